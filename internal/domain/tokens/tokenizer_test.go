package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func values(toks []Token) []string {
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.Value
	}
	return out
}

func lines(toks []Token) []int {
	out := make([]int, len(toks))
	for i, t := range toks {
		out[i] = t.Line
	}
	return out
}

// =============================================================================
// Query tokenization
// =============================================================================

func TestTokenize_LowercasesAndStripsPunctuation(t *testing.T) {
	toks := Tokenize("Permission is hereby granted, free of charge!")
	assert.Equal(t, []string{"permission", "is", "hereby", "granted", "free", "of", "charge"}, values(toks))
	assert.Equal(t, "Permission", toks[0].Raw)
}

func TestTokenize_SeparatorsSplitWords(t *testing.T) {
	assert.Equal(t, []string{"gpl", "2", "0", "or", "later"}, values(Tokenize("GPL-2.0+ or_later")))
}

func TestTokenize_Unicode(t *testing.T) {
	assert.Equal(t, []string{"résumé", "müller"}, values(Tokenize("Résumé (Müller)")))
}

func TestTokenize_Empty(t *testing.T) {
	assert.Nil(t, Tokenize(""))
	assert.Nil(t, Tokenize("  --- ,,, "))
}

func TestTokenize_LineNumbers(t *testing.T) {
	toks := Tokenize("one two\n\nthree\r\nfour\rfive")
	assert.Equal(t, []string{"one", "two", "three", "four", "five"}, values(toks))
	assert.Equal(t, []int{1, 1, 3, 4, 5}, lines(toks))
}

func TestTokenizeLines_MatchesSingleBuffer(t *testing.T) {
	texts := []string{
		"Copyright (c) 2020 Jane Doe\nAll rights reserved.\n",
		"a\r\nb\rc\n\n\nd",
		"\n\nleading blank lines",
		"no newline at all",
		"trailing\n\n",
	}
	for _, text := range texts {
		whole := Tokenize(text)
		split := TokenizeLines(SplitLines(text))
		assert.Equal(t, whole, split, "text %q", text)
	}
}

func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{"a", "", "b", "c"}, SplitLines("a\n\nb\r\nc\n"))
	assert.Equal(t, []string{"x", "y"}, SplitLines("x\ry"))
	assert.Nil(t, SplitLines(""))
}

func TestWords(t *testing.T) {
	assert.Equal(t, []string{"mit", "license"}, Words("MIT License"))
	assert.Nil(t, Words("..."))
}

// =============================================================================
// Rule tokenization
// =============================================================================

func TestRuleTokens_Gaps(t *testing.T) {
	words, gaps := RuleTokens("Copyright {{YEAR}} by {{NAME}}. All rights reserved.")
	assert.Equal(t, []string{"copyright", "by", "all", "rights", "reserved"}, words)
	assert.Equal(t, []int{0, 1}, gaps)
}

func TestRuleTokens_LeadingAndTrailingTemplatesDropped(t *testing.T) {
	words, gaps := RuleTokens("{{Name}} licensed under the MIT license {{notice}}")
	assert.Equal(t, []string{"licensed", "under", "the", "mit", "license"}, words)
	assert.Empty(t, gaps)
}

func TestRuleTokens_AdjacentTemplatesCollapse(t *testing.T) {
	words, gaps := RuleTokens("foo {{a}} {{b}}{{c}} bar")
	assert.Equal(t, []string{"foo", "bar"}, words)
	assert.Equal(t, []int{0}, gaps)
}

func TestRuleTokens_BrokenTemplateIsText(t *testing.T) {
	words, gaps := RuleTokens("see {{ broken {not} }} here")
	assert.Equal(t, []string{"see", "broken", "not", "here"}, words)
	assert.Empty(t, gaps)
}

func TestRuleTokens_NoGaps(t *testing.T) {
	words, gaps := RuleTokens("Permission is hereby granted")
	require.Len(t, words, 4)
	assert.Nil(t, gaps)
}

// =============================================================================
// N-grams and token classes
// =============================================================================

func TestNgrams(t *testing.T) {
	got := Ngrams([]TokenID{1, 2, 3, 4}, 3)
	assert.Equal(t, [][]TokenID{{1, 2, 3}, {2, 3, 4}}, got)
	assert.Nil(t, Ngrams([]TokenID{1, 2}, 3))
	assert.Nil(t, Ngrams([]TokenID{1, 2}, 0))
}

func TestKey_DistinguishesSequences(t *testing.T) {
	assert.Equal(t, Key([]TokenID{1, 2}), Key([]TokenID{1, 2}))
	assert.NotEqual(t, Key([]TokenID{1, 2}), Key([]TokenID{2, 1}))
	assert.NotEqual(t, Key([]TokenID{1}), Key([]TokenID{1, 0}))
	assert.Len(t, Key([]TokenID{7, 8, 9}), 12)
}

func TestTokenClasses(t *testing.T) {
	assert.True(t, IsDigits("2020"))
	assert.False(t, IsDigits("20a0"))
	assert.False(t, IsDigits(""))
	assert.True(t, IsYear("1999"))
	assert.True(t, IsYear("2024"))
	assert.False(t, IsYear("1850"))
	assert.False(t, IsYear("20245"))
	assert.True(t, IsSingleChar("é"))
	assert.False(t, IsSingleChar("ab"))
}
