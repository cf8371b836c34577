package match

import (
	"crypto/sha1"
	"encoding/hex"

	"github.com/corey/licscan/internal/domain/index"
	"github.com/corey/licscan/internal/domain/models"
	"github.com/corey/licscan/internal/domain/span"
)

// UnknownExpression is the license expression of unknown license matches.
const UnknownExpression = "unknown"

// matchUnknown looks for license-like n-grams in what the other stages left
// over and reports them as one match against a synthesized rule.
func (e *Engine) matchUnknown(st *runState) *LicenseMatch {
	scanner := e.idx.UnknownScanner()
	if scanner == nil {
		return nil
	}
	n := e.idx.Options().NgramLength

	var hits []int
	for _, seg := range st.segments() {
		if seg.Len() < n {
			continue
		}
		for _, h := range scanner.Scan(st.q.RunTokens(seg)) {
			for p := seg.Start + h.Start; p < seg.Start+h.End; p++ {
				hits = append(hits, p)
			}
		}
	}
	qspan := span.New(hits...)
	if qspan.Len() < e.opts.UnknownMinFactor*n || st.q.HighCount(qspan) < e.opts.MinUnknownHigh {
		return nil
	}

	r := e.unknownRule(st.q, qspan)
	ipos := make([]int, r.Length)
	for i := range ipos {
		ipos[i] = i
	}
	return newMatch(r, qspan.Positions(), ipos, KindUnknown, e.idx.Vocabulary())
}

// unknownRule builds a throwaway rule from the matched query tokens.
func (e *Engine) unknownRule(q *index.Query, qspan span.Span) *models.Rule {
	vocab := e.idx.Vocabulary()
	text := q.Text(qspan, "")
	sum := sha1.Sum([]byte(text))

	r := &models.Rule{
		Identifier:        "unknown-" + hex.EncodeToString(sum[:])[:12],
		LicenseExpression: UnknownExpression,
		Text:              text,
		Relevance:         e.opts.UnknownRelevance,
		RID:               -1,
		IsUnknown:         true,
	}
	for _, p := range qspan.Positions() {
		id := q.Tokens[p]
		r.Tokens = append(r.Tokens, id)
		if vocab.IsLegalese(id) {
			r.HighLength++
		}
	}
	r.Length = len(r.Tokens)
	r.SetThresholds()
	return r
}
