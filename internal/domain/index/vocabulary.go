package index

import (
	"fmt"
	"sort"

	"github.com/corey/licscan/internal/domain/models"
	"github.com/corey/licscan/internal/domain/tokens"
)

// TokenID is re-exported for callers that only import the index.
type TokenID = tokens.TokenID

// Vocabulary maps token strings to ids. Ids below LenLegalese are legalese
// (significant) tokens; the rest are junk. Immutable once ranked.
type Vocabulary struct {
	tokens      []string
	ids         map[string]TokenID
	lenLegalese int
}

// NewVocabulary wraps token strings already ordered by id, legalese first.
func NewVocabulary(toks []string, lenLegalese int) (*Vocabulary, error) {
	if len(toks) == 0 || lenLegalese <= 0 {
		return nil, fmt.Errorf("%w: no legalese tokens", models.ErrEmptyCorpus)
	}
	if lenLegalese > len(toks) {
		return nil, fmt.Errorf("vocabulary: len_legalese %d exceeds %d tokens", lenLegalese, len(toks))
	}
	v := &Vocabulary{
		tokens:      make([]string, len(toks)),
		ids:         make(map[string]TokenID, len(toks)),
		lenLegalese: lenLegalese,
	}
	copy(v.tokens, toks)
	for i, s := range toks {
		if _, dup := v.ids[s]; dup {
			return nil, fmt.Errorf("vocabulary: token %q listed twice", s)
		}
		v.ids[s] = TokenID(i)
	}
	return v, nil
}

// Len returns the number of known tokens.
func (v *Vocabulary) Len() int { return len(v.tokens) }

// LenLegalese returns the number of legalese tokens.
func (v *Vocabulary) LenLegalese() int { return v.lenLegalese }

// IsLegalese reports whether id is a significant token.
func (v *Vocabulary) IsLegalese(id TokenID) bool {
	return id < TokenID(v.lenLegalese)
}

// ID returns the id of s, or tokens.UnknownID when s is not in the vocabulary.
func (v *Vocabulary) ID(s string) TokenID {
	if id, ok := v.ids[s]; ok {
		return id
	}
	return tokens.UnknownID
}

// Lookup returns the id of s and whether it is known.
func (v *Vocabulary) Lookup(s string) (TokenID, bool) {
	id, ok := v.ids[s]
	return id, ok
}

// Token returns the string of id, or "" for an unknown id.
func (v *Vocabulary) Token(id TokenID) string {
	if int64(id) >= int64(len(v.tokens)) {
		return ""
	}
	return v.tokens[id]
}

// Tokens returns a copy of the token strings ordered by id.
func (v *Vocabulary) Tokens() []string {
	out := make([]string, len(v.tokens))
	copy(out, v.tokens)
	return out
}

// vocabBuilder interns token strings with provisional ids while rules are
// tokenized, then ranks them into a Vocabulary.
type vocabBuilder struct {
	ids    map[string]int
	tokens []string
	freq   []int
}

func newVocabBuilder() *vocabBuilder {
	return &vocabBuilder{ids: make(map[string]int)}
}

// intern returns the provisional id of s, counting one occurrence.
func (b *vocabBuilder) intern(s string) int {
	id, ok := b.ids[s]
	if !ok {
		id = len(b.tokens)
		b.ids[s] = id
		b.tokens = append(b.tokens, s)
		b.freq = append(b.freq, 0)
	}
	b.freq[id]++
	return id
}

// rank splits the interned tokens into legalese and junk and assigns final
// ids. rules holds each rule's provisional token ids. The returned slice maps
// provisional ids to final ids.
//
// Junk is digits, single letters and common English words (in frequency
// order, up to a third of the vocabulary). Tokens of one-token rules are
// never junk, and a rule made only of junk has its tokens promoted, so every
// rule keeps at least one legalese token.
func (b *vocabBuilder) rank(rules [][]int) (*Vocabulary, []TokenID, error) {
	n := len(b.tokens)
	if n == 0 {
		return nil, nil, models.ErrEmptyCorpus
	}

	good := make([]bool, n)
	for _, r := range rules {
		if len(r) == 1 {
			good[r[0]] = true
		}
	}

	junk := make([]bool, n)
	junkCount := 0
	for id, s := range b.tokens {
		if good[id] {
			continue
		}
		if tokens.IsDigits(s) || (len(s) == 1 && s[0] >= 'a' && s[0] <= 'z') {
			junk[id] = true
			junkCount++
		}
	}
	maxJunk := n / junkProportion
	for _, w := range commonWords {
		if junkCount >= maxJunk {
			break
		}
		id, ok := b.ids[w]
		if !ok || good[id] || junk[id] {
			continue
		}
		junk[id] = true
		junkCount++
	}

	for _, r := range rules {
		allJunk := true
		for _, id := range r {
			if !junk[id] {
				allJunk = false
				break
			}
		}
		if allJunk {
			for _, id := range r {
				junk[id] = false
			}
		}
	}

	var legalese, rest []int
	for id := range b.tokens {
		if junk[id] {
			rest = append(rest, id)
		} else {
			legalese = append(legalese, id)
		}
	}
	byFreq := func(ids []int) {
		sort.Slice(ids, func(i, j int) bool {
			a, c := ids[i], ids[j]
			if b.freq[a] != b.freq[c] {
				return b.freq[a] > b.freq[c]
			}
			return b.tokens[a] < b.tokens[c]
		})
	}
	byFreq(legalese)
	byFreq(rest)

	ordered := make([]string, 0, n)
	remap := make([]TokenID, n)
	for _, id := range append(legalese, rest...) {
		remap[id] = TokenID(len(ordered))
		ordered = append(ordered, b.tokens[id])
	}
	v, err := NewVocabulary(ordered, len(legalese))
	if err != nil {
		return nil, nil, err
	}
	return v, remap, nil
}
