package match

import (
	"sort"

	"github.com/corey/licscan/internal/domain/models"
)

// block is an aligned stretch: query positions q..q+size-1 equal rule
// positions i..i+size-1.
type block struct {
	q, i, size int
}

// area is a pending (query range, rule range) pair, half-open.
type area struct {
	qlo, qhi, ilo, ihi int
}

// matchSeq aligns gap-free candidates against the run. A rule can match more
// than once; each good match consumes its positions before the next try.
// Returns true when the deadline cut the stage short.
func (e *Engine) matchSeq(st *runState, cands []int, dl *deadline) ([]*LicenseMatch, bool) {
	var out []*LicenseMatch
	for _, rid := range cands {
		r := e.idx.Rule(rid)
		if r.HasGaps() {
			continue
		}
		for {
			blocks, timedOut := e.matchBlocks(st, r, dl)
			if timedOut {
				return out, true
			}
			if len(blocks) == 0 {
				break
			}
			m := e.blocksMatch(r, blocks)
			out = append(out, m)
			if !m.isGood() {
				break
			}
			st.consume(m.QSpan)
		}
	}
	return out, false
}

// matchBlocks finds the non-crossing matching blocks between the matchable
// run positions and the rule, flanks first-in last-out through a work queue.
// Blocks come back sorted with adjacent blocks collapsed.
func (e *Engine) matchBlocks(st *runState, r *models.Rule, dl *deadline) ([]block, bool) {
	queue := []area{{qlo: st.run.Start, qhi: st.run.End + 1, ilo: 0, ihi: r.Length}}
	var blocks []block
	for len(queue) > 0 {
		if dl.expired() {
			return nil, true
		}
		a := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		b := e.longestMatch(st, r, a)
		if b.size == 0 {
			continue
		}
		blocks = append(blocks, b)
		if a.qlo < b.q && a.ilo < b.i {
			queue = append(queue, area{qlo: a.qlo, qhi: b.q, ilo: a.ilo, ihi: b.i})
		}
		if b.q+b.size < a.qhi && b.i+b.size < a.ihi {
			queue = append(queue, area{qlo: b.q + b.size, qhi: a.qhi, ilo: b.i + b.size, ihi: a.ihi})
		}
	}

	sort.Slice(blocks, func(x, y int) bool {
		if blocks[x].q != blocks[y].q {
			return blocks[x].q < blocks[y].q
		}
		return blocks[x].i < blocks[y].i
	})
	var merged []block
	for _, b := range blocks {
		if n := len(merged); n > 0 {
			last := &merged[n-1]
			if last.q+last.size == b.q && last.i+last.size == b.i {
				last.size += b.size
				continue
			}
		}
		merged = append(merged, b)
	}
	return merged, false
}

// longestMatch grows the longest block over legalese tokens only, then
// extends it on both ends over any equal matchable tokens, junk included.
func (e *Engine) longestMatch(st *runState, r *models.Rule, a area) block {
	vocab := e.idx.Vocabulary()
	postings := e.idx.Postings(r.RID)
	qtoks := st.q.Tokens

	bestq, besti, best := a.qlo, a.ilo, 0
	j2len := make(map[int]int)
	next := make(map[int]int)
	for q := a.qlo; q < a.qhi; q++ {
		if id := qtoks[q]; vocab.IsLegalese(id) && st.isMatchable(q) {
			for _, i := range postings[id] {
				if i < a.ilo {
					continue
				}
				if i >= a.ihi {
					break
				}
				k := j2len[i-1] + 1
				next[i] = k
				if k > best {
					bestq, besti, best = q-k+1, i-k+1, k
				}
			}
		}
		j2len, next = next, j2len
		clear(next)
	}
	if best == 0 {
		return block{}
	}

	for bestq > a.qlo && besti > a.ilo && st.isMatchable(bestq-1) &&
		qtoks[bestq-1] == r.Tokens[besti-1] {
		bestq--
		besti--
		best++
	}
	for bestq+best < a.qhi && besti+best < a.ihi && st.isMatchable(bestq+best) &&
		qtoks[bestq+best] == r.Tokens[besti+best] {
		best++
	}
	return block{q: bestq, i: besti, size: best}
}

func (e *Engine) blocksMatch(r *models.Rule, blocks []block) *LicenseMatch {
	var qpos, ipos []int
	for _, b := range blocks {
		for k := 0; k < b.size; k++ {
			qpos = append(qpos, b.q+k)
			ipos = append(ipos, b.i+k)
		}
	}
	return newMatch(r, qpos, ipos, KindSeq, e.idx.Vocabulary())
}
