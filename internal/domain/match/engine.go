package match

import (
	"context"
	"time"

	"github.com/projectdiscovery/gologger"

	"github.com/corey/licscan/internal/domain/index"
)

// Engine matches queries against one index. It holds no per-query state and
// is safe for concurrent use.
type Engine struct {
	idx  *index.LicenseIndex
	opts Options
}

// NewEngine creates an engine over idx. Zero option fields take defaults.
func NewEngine(idx *index.LicenseIndex, opts Options) *Engine {
	return &Engine{idx: idx, opts: opts.withDefaults()}
}

// Index returns the index the engine matches against.
func (e *Engine) Index() *index.LicenseIndex { return e.idx }

// Options returns the effective options.
func (e *Engine) Options() Options { return e.opts }

// WithTimeout returns an engine over the same index whose Match calls are
// bounded by d instead of the configured Timeout.
func (e *Engine) WithTimeout(d time.Duration) *Engine {
	c := *e
	c.opts.Timeout = d
	return &c
}

// Result holds the final matches of one query, ordered by query position.
// Truncated is set when the deadline stopped matching early; Matches then
// holds what was found up to that point.
type Result struct {
	Query     *index.Query
	Matches   []*LicenseMatch
	Truncated bool
	Elapsed   time.Duration
}

// MatchText builds a query from text and matches it.
func (e *Engine) MatchText(ctx context.Context, text string) *Result {
	return e.Match(ctx, e.idx.BuildQuery(text))
}

// Match runs every stage over each run of q and merges the results.
func (e *Engine) Match(ctx context.Context, q *index.Query) *Result {
	start := time.Now()
	dl := newDeadline(ctx, e.opts.Timeout)
	res := &Result{Query: q}

	var raw []*LicenseMatch
	for _, run := range q.Runs {
		if dl.expired() {
			res.Truncated = true
			break
		}
		ms, truncated := e.matchRun(q, run, dl)
		raw = append(raw, ms...)
		if truncated {
			res.Truncated = true
			break
		}
	}

	res.Matches = e.merge(raw)
	res.Elapsed = time.Since(start)
	if res.Truncated {
		gologger.Warning().Msgf("match: deadline reached after %s, %d matches so far", res.Elapsed, len(res.Matches))
	}
	gologger.Debug().Msgf("match: %d tokens, %d runs, %d raw, %d final in %s",
		q.Len(), len(q.Runs), len(raw), len(res.Matches), res.Elapsed)
	return res
}

func (e *Engine) matchRun(q *index.Query, run index.QueryRun, dl *deadline) ([]*LicenseMatch, bool) {
	st := newRunState(q, run)
	if m := e.matchHash(st); m != nil {
		return []*LicenseMatch{m}, false
	}

	cands := e.candidates(st)
	gologger.Debug().Msgf("match: run %d-%d: %d candidates", run.Start, run.End, len(cands))

	out, truncated := e.matchSeq(st, cands, dl)
	if truncated {
		return out, true
	}
	chunks, truncated := e.matchChunk(st, cands, dl)
	out = append(out, chunks...)
	if truncated {
		return out, true
	}
	if m := e.matchUnknown(st); m != nil {
		out = append(out, m)
	}
	return out, false
}
