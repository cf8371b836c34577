package match

import (
	"math"
	"sort"

	"github.com/corey/licscan/internal/domain/index"
	"github.com/corey/licscan/internal/domain/tokens"
)

type candidate struct {
	rid         int
	shared      int
	containment float64
}

// candidates ranks the rules whose distinct tokens are mostly present in the
// matchable part of the run. Only rules sharing a legalese token are looked
// at.
func (e *Engine) candidates(st *runState) []int {
	vocab := e.idx.Vocabulary()
	present := make(map[index.TokenID]struct{})
	for p := st.run.Start; p <= st.run.End; p++ {
		if id := st.q.Tokens[p]; id != tokens.UnknownID && st.isMatchable(p) {
			present[id] = struct{}{}
		}
	}

	seen := make(map[int]struct{})
	for id := range present {
		if !vocab.IsLegalese(id) {
			continue
		}
		for _, rid := range e.idx.RulesWithToken(id) {
			seen[rid] = struct{}{}
		}
	}

	var cands []candidate
	for rid := range seen {
		set := e.idx.TokenSet(rid)
		shared := 0
		for _, id := range set {
			if _, ok := present[id]; ok {
				shared++
			}
		}
		if shared < e.minShared(rid, len(set)) {
			continue
		}
		cands = append(cands, candidate{
			rid:         rid,
			shared:      shared,
			containment: float64(shared) / float64(len(set)),
		})
	}

	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.containment != b.containment {
			return a.containment > b.containment
		}
		if a.shared != b.shared {
			return a.shared > b.shared
		}
		return a.rid < b.rid
	})
	if len(cands) > e.opts.MaxCandidates {
		cands = cands[:e.opts.MaxCandidates]
	}
	out := make([]int, len(cands))
	for i, c := range cands {
		out[i] = c.rid
	}
	return out
}

func (e *Engine) minShared(rid, unique int) int {
	ratio := e.opts.SetMinRatio
	if mc := e.idx.Rule(rid).MinimumCoverage; mc > 0 {
		ratio = float64(mc) / 100
	}
	need := int(math.Ceil(float64(unique) * ratio))
	if need < 1 {
		need = 1
	}
	return need
}
