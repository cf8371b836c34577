// Package models defines the rule and license corpus the matching engine is
// built from, and loads it from .RULE/.LICENSE text files with YAML sidecars.
package models

import (
	"github.com/corey/licscan/internal/domain/span"
	"github.com/corey/licscan/internal/domain/tokens"
)

// Thresholds applied to rules by length.
const (
	// SmallRuleLength marks rules short enough to need near-complete matches.
	SmallRuleLength = 15
	// TinyRuleLength marks rules that must be matched in full.
	TinyRuleLength = 10
	// MinMatchLength is the least matched length accepted for long rules.
	MinMatchLength = 4
	// MinMatchHighLength is the least matched legalese length for long rules.
	MinMatchHighLength = 3
	// longRuleLength is where the fixed minimums above start to apply.
	longRuleLength = 30
)

// Rule is one matchable text: a license notice, reference, tag, full text,
// or a known false positive. Metadata comes from the corpus files; the
// token fields are derived when the rule is indexed.
type Rule struct {
	Identifier        string
	LicenseExpression string
	Text              string

	Relevance       int
	MinimumCoverage int

	IsLicenseText      bool
	IsLicenseNotice    bool
	IsLicenseTag       bool
	IsLicenseReference bool
	IsLicenseIntro     bool
	IsFalsePositive    bool

	Notes string

	// Derived at index build.
	RID            int
	Tokens         []tokens.TokenID
	Gaps           span.Span
	Length         int
	HighLength     int
	MinMatchLength int
	MinHighLength  int
	IsSmall        bool
	IsUnknown      bool
}

// HasGaps reports whether the rule text contains {{...}} templates.
func (r *Rule) HasGaps() bool { return !r.Gaps.IsEmpty() }

// Clone returns a copy that shares no mutable state with r.
func (r *Rule) Clone() *Rule {
	c := *r
	if r.Tokens != nil {
		c.Tokens = make([]tokens.TokenID, len(r.Tokens))
		copy(c.Tokens, r.Tokens)
	}
	return &c
}

// categoryCount returns how many category flags are set.
func (r *Rule) categoryCount() int {
	n := 0
	for _, f := range []bool{
		r.IsLicenseText, r.IsLicenseNotice, r.IsLicenseTag,
		r.IsLicenseReference, r.IsLicenseIntro, r.IsFalsePositive,
	} {
		if f {
			n++
		}
	}
	return n
}

// Category names the rule's category flag, or "" when none is set.
func (r *Rule) Category() string {
	switch {
	case r.IsLicenseText:
		return "text"
	case r.IsLicenseNotice:
		return "notice"
	case r.IsLicenseTag:
		return "tag"
	case r.IsLicenseReference:
		return "reference"
	case r.IsLicenseIntro:
		return "intro"
	case r.IsFalsePositive:
		return "false_positive"
	default:
		return ""
	}
}

// SetThresholds derives the minimum match sizes from Length and HighLength.
func (r *Rule) SetThresholds() {
	r.IsSmall = r.Length < SmallRuleLength
	switch {
	case r.Length < TinyRuleLength:
		r.MinHighLength = r.HighLength
		r.MinMatchLength = r.Length
	case r.Length < longRuleLength:
		r.MinHighLength = r.HighLength
		r.MinMatchLength = r.Length / 2
	default:
		r.MinHighLength = MinMatchHighLength
		r.MinMatchLength = MinMatchLength
	}
}

// DefaultRelevance applies when a rule does not declare one.
const DefaultRelevance = 100

// NewRule returns a rule with the default relevance and no category flag.
func NewRule(identifier, expression, text string) *Rule {
	return &Rule{
		Identifier:        identifier,
		LicenseExpression: expression,
		Text:              text,
		Relevance:         DefaultRelevance,
	}
}
