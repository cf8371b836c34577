package models

import (
	"errors"
	"fmt"
)

// Corpus errors. Any of them aborts the index build.
var (
	ErrUnknownLicenseKey  = errors.New("unknown license key")
	ErrDuplicateRule      = errors.New("duplicate rule")
	ErrMultipleCategories = errors.New("more than one category flag")
	ErrGapOutOfRange      = errors.New("gap position out of range")
	ErrEmptyCorpus        = errors.New("empty corpus")
	ErrInvalidRule        = errors.New("invalid rule")
)

// CorpusError attaches the offending rule or license to a corpus error.
type CorpusError struct {
	Identifier string
	Err        error
}

func (e *CorpusError) Error() string {
	return fmt.Sprintf("%s: %v", e.Identifier, e.Err)
}

func (e *CorpusError) Unwrap() error { return e.Err }

func corpusErr(id string, err error) error {
	return &CorpusError{Identifier: id, Err: err}
}

// ValidateRule checks one rule's metadata against the known license keys.
// licenses may be nil to skip the key check.
func ValidateRule(r *Rule, licenses map[string]*License) []error {
	var errs []error
	if r.Identifier == "" {
		errs = append(errs, corpusErr("<unnamed>", fmt.Errorf("%w: missing identifier", ErrInvalidRule)))
	}
	if r.categoryCount() > 1 {
		errs = append(errs, corpusErr(r.Identifier, ErrMultipleCategories))
	}
	if r.Relevance < 0 || r.Relevance > 100 {
		errs = append(errs, corpusErr(r.Identifier, fmt.Errorf("%w: relevance %d not in 0..100", ErrInvalidRule, r.Relevance)))
	}
	if r.MinimumCoverage < 0 || r.MinimumCoverage > 100 {
		errs = append(errs, corpusErr(r.Identifier, fmt.Errorf("%w: minimum_coverage %d not in 0..100", ErrInvalidRule, r.MinimumCoverage)))
	}

	if r.LicenseExpression == "" {
		if !r.IsFalsePositive {
			errs = append(errs, corpusErr(r.Identifier, fmt.Errorf("%w: missing license_expression", ErrInvalidRule)))
		}
		return errs
	}
	expr, err := ParseExpression(r.LicenseExpression)
	if err != nil {
		return append(errs, corpusErr(r.Identifier, err))
	}
	if licenses == nil {
		return errs
	}
	for _, key := range expr.Keys() {
		if _, ok := licenses[key]; !ok {
			errs = append(errs, corpusErr(r.Identifier, fmt.Errorf("%w %q", ErrUnknownLicenseKey, key)))
		}
	}
	return errs
}

// CheckGaps verifies that every gap follows a real token and precedes
// another one.
func CheckGaps(r *Rule) error {
	for _, g := range r.Gaps.Positions() {
		if g < 0 || g >= r.Length-1 {
			return corpusErr(r.Identifier, fmt.Errorf("%w: gap %d with length %d", ErrGapOutOfRange, g, r.Length))
		}
	}
	return nil
}

// Validate checks every rule and license of the corpus and returns all
// problems joined, or nil.
func (c *Corpus) Validate() error {
	if len(c.Rules) == 0 && len(c.Licenses) == 0 {
		return ErrEmptyCorpus
	}
	var errs []error
	seen := make(map[string]bool, len(c.Rules))
	for _, r := range c.Rules {
		if seen[r.Identifier] {
			errs = append(errs, corpusErr(r.Identifier, fmt.Errorf("%w: identifier used twice", ErrDuplicateRule)))
		}
		seen[r.Identifier] = true
		errs = append(errs, ValidateRule(r, c.Licenses)...)
	}
	for key, l := range c.Licenses {
		if key != l.Key {
			errs = append(errs, corpusErr(key, fmt.Errorf("%w: indexed under %q", ErrInvalidRule, l.Key)))
		}
	}
	return errors.Join(errs...)
}
