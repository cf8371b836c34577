package match

import (
	"context"
	"time"

	"github.com/corey/licscan/internal/domain/index"
	"github.com/corey/licscan/internal/domain/span"
)

// runState tracks which positions of one query run are still matchable.
type runState struct {
	q         *index.Query
	run       index.QueryRun
	matchable []bool
}

func newRunState(q *index.Query, run index.QueryRun) *runState {
	st := &runState{q: q, run: run, matchable: make([]bool, run.Len())}
	for i := range st.matchable {
		st.matchable[i] = true
	}
	return st
}

func (st *runState) isMatchable(pos int) bool {
	if pos < st.run.Start || pos > st.run.End {
		return false
	}
	return st.matchable[pos-st.run.Start]
}

func (st *runState) allMatchable(start, end int) bool {
	for p := start; p <= end; p++ {
		if !st.isMatchable(p) {
			return false
		}
	}
	return true
}

func (st *runState) consume(s span.Span) {
	for _, p := range s.Positions() {
		if p >= st.run.Start && p <= st.run.End {
			st.matchable[p-st.run.Start] = false
		}
	}
}

// segments returns the maximal stretches of matchable positions.
func (st *runState) segments() []index.QueryRun {
	var out []index.QueryRun
	start := -1
	for p := st.run.Start; p <= st.run.End; p++ {
		if st.isMatchable(p) {
			if start < 0 {
				start = p
			}
			continue
		}
		if start >= 0 {
			out = append(out, index.QueryRun{Start: start, End: p - 1})
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, index.QueryRun{Start: start, End: st.run.End})
	}
	return out
}

// deadline latches once the context is done or the time limit passes.
type deadline struct {
	ctx context.Context
	at  time.Time
	hit bool
}

func newDeadline(ctx context.Context, timeout time.Duration) *deadline {
	d := &deadline{ctx: ctx}
	if at, ok := ctx.Deadline(); ok {
		d.at = at
	}
	if timeout > 0 {
		if at := time.Now().Add(timeout); d.at.IsZero() || at.Before(d.at) {
			d.at = at
		}
	}
	return d
}

func (d *deadline) expired() bool {
	if d.hit {
		return true
	}
	if d.ctx.Err() != nil || (!d.at.IsZero() && !time.Now().Before(d.at)) {
		d.hit = true
	}
	return d.hit
}
