// Package index builds the immutable license index: vocabulary, rules and
// the lookup structures each matcher stage reads (exact hashes, token sets,
// legalese postings, template starters, unknown-license n-grams), and turns
// input text into queries against it.
package index

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/projectdiscovery/gologger"

	"github.com/corey/licscan/internal/domain/models"
	"github.com/corey/licscan/internal/domain/span"
	"github.com/corey/licscan/internal/domain/tokens"
	"github.com/corey/licscan/internal/ports"
)

// SnapshotVersion is bumped whenever indexing semantics change, so caches
// written by older builds are never reused.
const SnapshotVersion = 1

// Options tunes index construction. Zero fields take the defaults.
type Options struct {
	// NgramLength is the n-gram size of the unknown-license automaton.
	NgramLength int `yaml:"ngram_length"`
	// StarterLength is the template starter size of the chunk index.
	StarterLength int `yaml:"starter_length"`
	// RunBreakLength is how many consecutive unmatchable query tokens split
	// a query run. Defaults to 4 * NgramLength.
	RunBreakLength int `yaml:"run_break_length"`

	// ScannerFactory compiles the unknown n-gram automaton. Without one the
	// unknown stage never fires.
	ScannerFactory ports.NgramScannerFactory `yaml:"-"`
}

// Defaults.
const (
	DefaultNgramLength   = 6
	DefaultStarterLength = 3
)

// DefaultOptions returns the tuned defaults.
func DefaultOptions() Options {
	return Options{}.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.NgramLength <= 0 {
		o.NgramLength = DefaultNgramLength
	}
	if o.StarterLength <= 0 {
		o.StarterLength = DefaultStarterLength
	}
	if o.RunBreakLength <= 0 {
		o.RunBreakLength = 4 * o.NgramLength
	}
	return o
}

// CacheKey combines a corpus fingerprint with everything else that changes
// the built index, so a persisted snapshot is reused only when identical.
func CacheKey(fingerprint string, o Options) string {
	o = o.withDefaults()
	return fmt.Sprintf("%s|v%d|ngram=%d|starter=%d", fingerprint, SnapshotVersion, o.NgramLength, o.StarterLength)
}

// LicenseIndex is the read-only index shared by all match calls.
type LicenseIndex struct {
	opts     Options
	cacheKey string
	builtAt  time.Time

	vocab    *Vocabulary
	rules    []*models.Rule
	licenses map[string]*models.License

	hashes       map[string]int
	sets         [][]TokenID
	postings     []map[TokenID][]int
	rulesByToken map[TokenID][]int
	starters     []map[string][]int
	starterLen   []int
	ngrams       [][]TokenID
	scanner      ports.NgramScanner
}

// Build tokenizes and ranks the corpus and builds every lookup structure.
// Any corpus error aborts the build; all of them are reported together.
func Build(corpus *models.Corpus, opts Options) (*LicenseIndex, error) {
	start := time.Now()
	if err := corpus.Validate(); err != nil {
		return nil, err
	}

	rules := corpus.AllRules()
	vb := newVocabBuilder()
	prov := make([][]int, len(rules))
	gaps := make([][]int, len(rules))
	var errs []error
	for i, src := range rules {
		r := src.Clone()
		rules[i] = r
		words, g := tokens.RuleTokens(r.Text)
		if len(words) == 0 {
			errs = append(errs, &models.CorpusError{Identifier: r.Identifier, Err: fmt.Errorf("%w: no tokens", models.ErrInvalidRule)})
			continue
		}
		ids := make([]int, len(words))
		for j, w := range words {
			ids[j] = vb.intern(w)
		}
		prov[i] = ids
		gaps[i] = g
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	vocab, remap, err := vb.rank(prov)
	if err != nil {
		return nil, err
	}

	for i, r := range rules {
		r.Tokens = make([]TokenID, len(prov[i]))
		for j, p := range prov[i] {
			r.Tokens[j] = remap[p]
		}
		r.Gaps = span.New(gaps[i]...)
	}

	idx, err := newIndex(vocab, rules, corpus.Licenses, opts)
	if err != nil {
		return nil, err
	}
	idx.cacheKey = CacheKey(corpus.Fingerprint, opts)
	idx.builtAt = time.Now()

	gologger.Verbose().Msgf("Indexed %d rules: %d tokens (%d legalese), %d unknown n-grams in %s",
		len(rules), vocab.Len(), vocab.LenLegalese(), len(idx.ngrams), time.Since(start).Round(time.Millisecond))
	return idx, nil
}

// newIndex derives per-rule data, rejects duplicates and builds the lookups.
func newIndex(vocab *Vocabulary, rules []*models.Rule, licenses map[string]*models.License, opts Options) (*LicenseIndex, error) {
	idx := &LicenseIndex{
		opts:     opts.withDefaults(),
		vocab:    vocab,
		rules:    rules,
		licenses: licenses,
	}
	if idx.licenses == nil {
		idx.licenses = make(map[string]*models.License)
	}

	var errs []error
	seen := make(map[string]string, len(rules))
	for rid, r := range rules {
		r.RID = rid
		r.Length = len(r.Tokens)
		r.HighLength = 0
		for _, id := range r.Tokens {
			if int(id) >= vocab.Len() {
				return nil, fmt.Errorf("rule %s: token id %d outside vocabulary", r.Identifier, id)
			}
			if vocab.IsLegalese(id) {
				r.HighLength++
			}
		}
		r.SetThresholds()
		if err := models.CheckGaps(r); err != nil {
			errs = append(errs, err)
			continue
		}

		key := tokens.Key(r.Tokens) + gapKey(r.Gaps)
		if other, dup := seen[key]; dup {
			errs = append(errs, &models.CorpusError{
				Identifier: r.Identifier,
				Err:        fmt.Errorf("%w: same tokens as %s", models.ErrDuplicateRule, other),
			})
			continue
		}
		seen[key] = r.Identifier
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	idx.buildLookups()
	return idx, nil
}

func gapKey(gaps span.Span) string {
	if gaps.IsEmpty() {
		return ""
	}
	ids := make([]TokenID, gaps.Len())
	for i, g := range gaps.Positions() {
		ids[i] = TokenID(g)
	}
	return "|" + tokens.Key(ids)
}

func (idx *LicenseIndex) buildLookups() {
	n := len(idx.rules)
	idx.hashes = make(map[string]int, n)
	idx.sets = make([][]TokenID, n)
	idx.postings = make([]map[TokenID][]int, n)
	idx.rulesByToken = make(map[TokenID][]int)
	idx.starters = make([]map[string][]int, n)
	idx.starterLen = make([]int, n)
	seenNgram := make(map[string]bool)

	for rid, r := range idx.rules {
		if !r.HasGaps() {
			idx.hashes[tokens.Key(r.Tokens)] = rid
		} else {
			idx.starters[rid], idx.starterLen[rid] = buildStarters(r, idx.opts.StarterLength)
		}

		post := make(map[TokenID][]int)
		for pos, id := range r.Tokens {
			if idx.vocab.IsLegalese(id) {
				post[id] = append(post[id], pos)
			}
		}
		idx.postings[rid] = post

		set := uniqueSorted(r.Tokens)
		idx.sets[rid] = set
		for _, id := range set {
			if idx.vocab.IsLegalese(id) {
				idx.rulesByToken[id] = append(idx.rulesByToken[id], rid)
			}
		}

		if r.IsFalsePositive {
			continue
		}
		for _, ng := range idx.ruleNgrams(r) {
			k := tokens.Key(ng)
			if seenNgram[k] {
				continue
			}
			seenNgram[k] = true
			idx.ngrams = append(idx.ngrams, ng)
		}
	}

	if idx.opts.ScannerFactory != nil && len(idx.ngrams) > 0 {
		idx.scanner = idx.opts.ScannerFactory(idx.ngrams)
	}
}

func uniqueSorted(ids []TokenID) []TokenID {
	out := make([]TokenID, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	u := out[:0]
	for i, id := range out {
		if i == 0 || id != out[i-1] {
			u = append(u, id)
		}
	}
	return u
}

// Options returns the effective build options.
func (idx *LicenseIndex) Options() Options { return idx.opts }

// CacheKey identifies the corpus and options the index was built from.
func (idx *LicenseIndex) CacheKey() string { return idx.cacheKey }

// BuiltAt returns when the index was built.
func (idx *LicenseIndex) BuiltAt() time.Time { return idx.builtAt }

// Vocabulary returns the token vocabulary.
func (idx *LicenseIndex) Vocabulary() *Vocabulary { return idx.vocab }

// Rules returns the indexed rules ordered by rid. Callers must not modify them.
func (idx *LicenseIndex) Rules() []*models.Rule { return idx.rules }

// Rule returns the rule with the given rid.
func (idx *LicenseIndex) Rule(rid int) *models.Rule { return idx.rules[rid] }

// RuleByIdentifier finds a rule by identifier.
func (idx *LicenseIndex) RuleByIdentifier(id string) (*models.Rule, bool) {
	for _, r := range idx.rules {
		if r.Identifier == id {
			return r, true
		}
	}
	return nil, false
}

// License returns the license with the given key.
func (idx *LicenseIndex) License(key string) (*models.License, bool) {
	l, ok := idx.licenses[key]
	return l, ok
}

// LicenseCount returns the number of licenses.
func (idx *LicenseIndex) LicenseCount() int { return len(idx.licenses) }

// HashMatch returns the gap-free rule whose token sequence is exactly seq.
func (idx *LicenseIndex) HashMatch(seq []TokenID) (int, bool) {
	rid, ok := idx.hashes[tokens.Key(seq)]
	return rid, ok
}

// TokenSet returns the sorted distinct token ids of a rule.
func (idx *LicenseIndex) TokenSet(rid int) []TokenID { return idx.sets[rid] }

// RulesWithToken returns the rids of rules containing legalese token id.
func (idx *LicenseIndex) RulesWithToken(id TokenID) []int { return idx.rulesByToken[id] }

// Postings returns a rule's legalese token positions, keyed by token.
func (idx *LicenseIndex) Postings(rid int) map[TokenID][]int { return idx.postings[rid] }

// Starters returns a gapped rule's starter index and starter length.
func (idx *LicenseIndex) Starters(rid int) (map[string][]int, int) {
	return idx.starters[rid], idx.starterLen[rid]
}

// UnknownNgrams returns the n-grams compiled into the unknown automaton.
func (idx *LicenseIndex) UnknownNgrams() [][]TokenID { return idx.ngrams }

// UnknownScanner returns the unknown n-gram automaton, or nil.
func (idx *LicenseIndex) UnknownScanner() ports.NgramScanner { return idx.scanner }
