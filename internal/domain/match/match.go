// Package match runs the license matching pipeline over a query: exact hash,
// token-set candidates, sequence alignment, template chunks and unknown
// license n-grams, followed by merging, filtering and overlap resolution.
package match

import (
	"fmt"
	"math"

	"github.com/corey/licscan/internal/domain/index"
	"github.com/corey/licscan/internal/domain/models"
	"github.com/corey/licscan/internal/domain/span"
)

// Kind identifies the matcher stage that produced a match.
type Kind int

const (
	KindHash Kind = iota + 1
	KindSet
	KindSeq
	KindChunk
	KindUnknown
)

var kindNames = map[Kind]string{
	KindHash:    "hash",
	KindSet:     "set",
	KindSeq:     "seq",
	KindChunk:   "chunk",
	KindUnknown: "unknown",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// priority breaks score ties: hash > seq > chunk > set > unknown.
func (k Kind) priority() int {
	switch k {
	case KindHash:
		return 5
	case KindSeq:
		return 4
	case KindChunk:
		return 3
	case KindSet:
		return 2
	case KindUnknown:
		return 1
	default:
		return 0
	}
}

// LicenseMatch aligns query positions with rule positions. QSpan and ISpan
// have the same size and the k-th query position pairs with the k-th rule
// position. HISpan is the subset of ISpan holding legalese tokens.
type LicenseMatch struct {
	Rule    *models.Rule
	QSpan   span.Span
	ISpan   span.Span
	HISpan  span.Span
	Matcher Kind
}

// newMatch builds a match from aligned ascending positions. Misaligned or
// out-of-rule positions are a matcher bug and panic.
func newMatch(r *models.Rule, qpos, ipos []int, kind Kind, vocab *index.Vocabulary) *LicenseMatch {
	if len(qpos) != len(ipos) || len(qpos) == 0 {
		panic(fmt.Sprintf("match: %s: %d query positions for %d rule positions", r.Identifier, len(qpos), len(ipos)))
	}
	qs := span.FromSorted(qpos)
	is := span.FromSorted(ipos)
	if is.Start() < 0 || is.End() >= r.Length {
		panic(fmt.Sprintf("match: %s: rule positions %s outside length %d", r.Identifier, is, r.Length))
	}
	var high []int
	for _, i := range ipos {
		if vocab.IsLegalese(r.Tokens[i]) {
			high = append(high, i)
		}
	}
	return &LicenseMatch{
		Rule:    r,
		QSpan:   qs,
		ISpan:   is,
		HISpan:  span.FromSorted(high),
		Matcher: kind,
	}
}

// Len returns the number of matched positions.
func (m *LicenseMatch) Len() int { return m.QSpan.Len() }

// Coverage is the percentage of rule tokens matched, rounded to 2 decimals.
func (m *LicenseMatch) Coverage() float64 {
	if m.Rule.Length == 0 {
		return 0
	}
	return round2(float64(m.ISpan.Len()) * 100 / float64(m.Rule.Length))
}

// Score weighs coverage by rule relevance, rounded to 2 decimals.
func (m *LicenseMatch) Score() float64 {
	return round2(m.Coverage() * float64(m.Rule.Relevance) / 100)
}

// IsSmall reports whether the match is too short to be trusted for its rule.
func (m *LicenseMatch) IsSmall() bool {
	r := m.Rule
	ilen, hilen := m.ISpan.Len(), m.HISpan.Len()
	if r.IsSmall && m.Coverage() < 50 && (hilen < r.MinHighLength || ilen < r.MinMatchLength) {
		return true
	}
	return hilen < r.MinHighLength && ilen < r.MinMatchLength
}

// isGood reports whether a match may claim its query positions.
func (m *LicenseMatch) isGood() bool {
	return !m.IsSmall() && m.Coverage() >= float64(m.Rule.MinimumCoverage)
}

// pairs returns the aligned (query, rule) positions.
func (m *LicenseMatch) pairs() ([]int, []int) {
	return m.QSpan.Positions(), m.ISpan.Positions()
}

// clip removes the query positions in other, with their rule positions.
// Returns nil when nothing is left.
func (m *LicenseMatch) clip(other span.Span) *LicenseMatch {
	qpos, ipos := m.pairs()
	var keepQ, keepI []int
	for k, q := range qpos {
		if !other.Contains(q) {
			keepQ = append(keepQ, q)
			keepI = append(keepI, ipos[k])
		}
	}
	if len(keepQ) == 0 {
		return nil
	}
	is := span.FromSorted(keepI)
	return &LicenseMatch{
		Rule:    m.Rule,
		QSpan:   span.FromSorted(keepQ),
		ISpan:   is,
		HISpan:  m.HISpan.Intersect(is),
		Matcher: m.Matcher,
	}
}

// combine merges a match lying strictly after m, in both query and rule
// positions, for the same rule.
func (m *LicenseMatch) combine(next *LicenseMatch) *LicenseMatch {
	kind := m.Matcher
	if next.Matcher.priority() < kind.priority() {
		kind = next.Matcher
	}
	return &LicenseMatch{
		Rule:    m.Rule,
		QSpan:   m.QSpan.Union(next.QSpan),
		ISpan:   m.ISpan.Union(next.ISpan),
		HISpan:  m.HISpan.Union(next.HISpan),
		Matcher: kind,
	}
}

func (m *LicenseMatch) String() string {
	return fmt.Sprintf("LicenseMatch(%s, %s, q=%s, i=%s, cov=%.2f, score=%.2f)",
		m.Rule.Identifier, m.Matcher, m.QSpan, m.ISpan, m.Coverage(), m.Score())
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
