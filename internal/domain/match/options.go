package match

import "time"

// Options tunes the matching stages. Zero fields take the defaults, which
// are calibrated against the rule corpus: change them knowingly.
type Options struct {
	// Timeout bounds one Match call. Zero means no limit beyond the context.
	Timeout time.Duration `yaml:"timeout"`

	// SetMinRatio is the share of a rule's distinct tokens a run must hold
	// for the rule to be a candidate, when the rule has no minimum coverage.
	SetMinRatio float64 `yaml:"set_min_ratio"`
	// MaxCandidates caps the candidates aligned per run.
	MaxCandidates int `yaml:"max_candidates"`
	// MaxGapSkip is how many query tokens a template gap may absorb.
	MaxGapSkip int `yaml:"max_gap_skip"`
	// MaxMergeDistance is the widest hole bridged when merging matches of
	// the same rule.
	MaxMergeDistance int `yaml:"max_merge_distance"`

	// UnknownMinFactor times the n-gram length is the smallest unknown match.
	UnknownMinFactor int `yaml:"unknown_min_factor"`
	// MinUnknownHigh is the least number of legalese tokens in an unknown match.
	MinUnknownHigh int `yaml:"min_unknown_high"`
	// UnknownRelevance is the relevance given to unknown license matches.
	UnknownRelevance int `yaml:"unknown_relevance"`
}

// Defaults.
const (
	DefaultSetMinRatio      = 0.5
	DefaultMaxCandidates    = 50
	DefaultMaxGapSkip       = 15
	DefaultMaxMergeDistance = 50
	DefaultUnknownMinFactor = 4
	DefaultMinUnknownHigh   = 5
	DefaultUnknownRelevance = 50
)

// DefaultOptions returns the tuned defaults.
func DefaultOptions() Options {
	return Options{}.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.SetMinRatio <= 0 {
		o.SetMinRatio = DefaultSetMinRatio
	}
	if o.MaxCandidates <= 0 {
		o.MaxCandidates = DefaultMaxCandidates
	}
	if o.MaxGapSkip <= 0 {
		o.MaxGapSkip = DefaultMaxGapSkip
	}
	if o.MaxMergeDistance <= 0 {
		o.MaxMergeDistance = DefaultMaxMergeDistance
	}
	if o.UnknownMinFactor <= 0 {
		o.UnknownMinFactor = DefaultUnknownMinFactor
	}
	if o.MinUnknownHigh <= 0 {
		o.MinUnknownHigh = DefaultMinUnknownHigh
	}
	if o.UnknownRelevance <= 0 {
		o.UnknownRelevance = DefaultUnknownRelevance
	}
	return o
}
