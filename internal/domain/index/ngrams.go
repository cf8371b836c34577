package index

import (
	"github.com/corey/licscan/internal/domain/models"
	"github.com/corey/licscan/internal/domain/tokens"
)

// chunk is a maximal gap-free stretch of rule positions, inclusive.
type chunk struct{ start, end int }

func (c chunk) len() int { return c.end - c.start + 1 }

// ruleChunks splits a rule's positions at its gaps.
func ruleChunks(r *models.Rule) []chunk {
	var out []chunk
	start := 0
	for _, g := range r.Gaps.Positions() {
		out = append(out, chunk{start, g})
		start = g + 1
	}
	return append(out, chunk{start, r.Length - 1})
}

// buildStarters indexes the first n tokens of every chunk at least n long.
// A rule without any such chunk indexes its longest chunk instead, with a
// shorter starter, so that it can still be found.
func buildStarters(r *models.Rule, n int) (map[string][]int, int) {
	chunks := ruleChunks(r)
	starters := make(map[string][]int)
	for _, c := range chunks {
		if c.len() < n {
			continue
		}
		k := tokens.Key(r.Tokens[c.start : c.start+n])
		starters[k] = append(starters[k], c.start)
	}
	if len(starters) > 0 {
		return starters, n
	}

	longest := chunks[0]
	for _, c := range chunks[1:] {
		if c.len() > longest.len() {
			longest = c
		}
	}
	k := tokens.Key(r.Tokens[longest.start : longest.end+1])
	starters[k] = []int{longest.start}
	return starters, longest.len()
}

// ruleNgrams returns the good n-grams of a rule that do not straddle a gap.
func (idx *LicenseIndex) ruleNgrams(r *models.Rule) [][]TokenID {
	n := idx.opts.NgramLength
	var out [][]TokenID
	for _, c := range ruleChunks(r) {
		for _, ng := range tokens.Ngrams(r.Tokens[c.start:c.end+1], n) {
			if idx.isGoodNgram(ng) {
				out = append(out, ng)
			}
		}
	}
	return out
}

// isGoodNgram filters n-grams that would make weak unknown-license evidence:
// numbers, years, single characters, all-junk or repetitive sequences, and
// copyright or URL boilerplate.
func (idx *LicenseIndex) isGoodNgram(ng []TokenID) bool {
	digits, singles := 0, 0
	high := false
	for _, id := range ng {
		s := idx.vocab.Token(id)
		if markerWords[s] || tokens.IsYear(s) {
			return false
		}
		if tokens.IsDigits(s) {
			digits++
		}
		if tokens.IsSingleChar(s) {
			singles++
		}
		if idx.vocab.IsLegalese(id) {
			high = true
		}
	}
	return digits < 3 && singles < 3 && high && distinct(ng) > 2
}

func distinct(ids []TokenID) int {
	n := 0
	for i, id := range ids {
		dup := false
		for _, prev := range ids[:i] {
			if prev == id {
				dup = true
				break
			}
		}
		if !dup {
			n++
		}
	}
	return n
}
