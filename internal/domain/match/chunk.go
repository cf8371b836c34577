package match

import (
	"sort"

	"github.com/corey/licscan/internal/domain/models"
	"github.com/corey/licscan/internal/domain/span"
	"github.com/corey/licscan/internal/domain/tokens"
)

// segment is one aligned stretch of a gapped rule; q and i are parallel and
// ascending.
type segment struct {
	q, i []int
}

func (s segment) qlast() int { return s.q[len(s.q)-1] }
func (s segment) ilast() int { return s.i[len(s.i)-1] }

// matchChunk anchors gapped candidates on their chunk starters and aligns
// outward from each anchor, skipping template gaps.
func (e *Engine) matchChunk(st *runState, cands []int, dl *deadline) ([]*LicenseMatch, bool) {
	var out []*LicenseMatch
	for _, rid := range cands {
		r := e.idx.Rule(rid)
		if !r.HasGaps() {
			continue
		}
		starters, n := e.idx.Starters(rid)
		if n == 0 {
			continue
		}

		var segs []segment
		covered := make(map[int]bool)
		for p := st.run.Start; p+n-1 <= st.run.End; p++ {
			if dl.expired() {
				return out, true
			}
			if covered[p] || !st.allMatchable(p, p+n-1) {
				continue
			}
			starts, ok := starters[tokens.Key(st.q.Tokens[p:p+n])]
			if !ok {
				continue
			}
			var best segment
			for _, is := range starts {
				if seg := e.alignChunk(st, r, p, is, n); len(seg.q) > len(best.q) {
					best = seg
				}
			}
			segs = append(segs, best)
			for _, q := range best.q {
				covered[q] = true
			}
		}

		for _, m := range e.stitch(r, segs) {
			out = append(out, m)
			if m.isGood() {
				st.consume(m.QSpan)
			}
		}
	}
	return out, false
}

// alignChunk extends an anchor of n equal tokens at query position qs and
// rule position is. Matching is strict token equality; a template gap may
// absorb up to MaxGapSkip query tokens.
func (e *Engine) alignChunk(st *runState, r *models.Rule, qs, is, n int) segment {
	qtoks := st.q.Tokens
	var seg segment
	for k := 0; k < n; k++ {
		seg.q = append(seg.q, qs+k)
		seg.i = append(seg.i, is+k)
	}

	qi, ii, skipped := qs+n, is+n, 0
	for qi <= st.run.End && ii < r.Length && st.isMatchable(qi) {
		switch {
		case qtoks[qi] == r.Tokens[ii]:
			seg.q = append(seg.q, qi)
			seg.i = append(seg.i, ii)
			qi, ii, skipped = qi+1, ii+1, 0
		case r.Gaps.Contains(ii-1) && skipped < e.opts.MaxGapSkip:
			qi++
			skipped++
		default:
			return e.alignLeft(st, r, seg, qs-1, is-1)
		}
	}
	return e.alignLeft(st, r, seg, qs-1, is-1)
}

func (e *Engine) alignLeft(st *runState, r *models.Rule, seg segment, qi, ii int) segment {
	qtoks := st.q.Tokens
	var lq, li []int
	skipped := 0
	for qi >= st.run.Start && ii >= 0 && st.isMatchable(qi) {
		if qtoks[qi] == r.Tokens[ii] {
			lq = append(lq, qi)
			li = append(li, ii)
			qi, ii, skipped = qi-1, ii-1, 0
			continue
		}
		if r.Gaps.Contains(ii) && skipped < e.opts.MaxGapSkip {
			qi--
			skipped++
			continue
		}
		break
	}
	if len(lq) == 0 {
		return seg
	}
	q := make([]int, 0, len(lq)+len(seg.q))
	i := make([]int, 0, len(li)+len(seg.i))
	for k := len(lq) - 1; k >= 0; k-- {
		q = append(q, lq[k])
		i = append(i, li[k])
	}
	return segment{q: append(q, seg.q...), i: append(i, seg.i...)}
}

// stitch joins segments that follow each other in both query and rule order,
// and that bridge allows, into single matches.
func (e *Engine) stitch(r *models.Rule, segs []segment) []*LicenseMatch {
	if len(segs) == 0 {
		return nil
	}
	sort.SliceStable(segs, func(a, b int) bool { return segs[a].q[0] < segs[b].q[0] })

	var out []*LicenseMatch
	cur := segs[0]
	flush := func() {
		out = append(out, newMatch(r, cur.q, cur.i, KindChunk, e.idx.Vocabulary()))
	}
	for _, s := range segs[1:] {
		switch {
		case s.q[0] > cur.qlast() && s.i[0] > cur.ilast() && e.bridges(r, cur, s):
			cur = segment{q: append(cur.q[:len(cur.q):len(cur.q)], s.q...), i: append(cur.i[:len(cur.i):len(cur.i)], s.i...)}
		case s.q[0] >= cur.q[0] && s.qlast() <= cur.qlast():
			// contained in the current stretch
		default:
			flush()
			cur = s
		}
	}
	flush()
	return out
}

// bridges reports whether the hole between cur and next may be spanned. A
// rule hole crossing a template gap absorbs at most MaxGapSkip extra query
// tokens; any other hole is bounded by MaxMergeDistance.
func (e *Engine) bridges(r *models.Rule, cur, next segment) bool {
	qhole := next.q[0] - cur.qlast() - 1
	ihole := next.i[0] - cur.ilast() - 1
	if ihole > e.opts.MaxMergeDistance {
		return false
	}
	if r.Gaps.Intersects(span.Range(cur.ilast(), next.i[0]-1)) {
		return qhole <= ihole+e.opts.MaxGapSkip
	}
	return qhole <= e.opts.MaxMergeDistance
}
