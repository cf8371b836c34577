// Package tokens turns text into the normalized word units matched by the
// license index: query text, rule text with {{...}} template gaps, and line
// tracking for both.
package tokens

import (
	"math"
	"regexp"
	"strings"
)

// TokenID is the integer id of a vocabulary token.
type TokenID = uint32

// UnknownID marks a query token absent from the vocabulary. It is above any
// legalese id, so it is always junk and never equals a rule token.
const UnknownID TokenID = math.MaxUint32

// wordRe matches one token: a maximal run of Unicode letters and numbers.
// Underscore, hyphen, plus and every other symbol are separators. Go's
// regexp engine runs in linear time, so no input can make this blow up.
var wordRe = regexp.MustCompile(`[\p{L}\p{N}]+`)

// ruleRe additionally recognizes {{...}} template markers in rule text.
var ruleRe = regexp.MustCompile(`\{\{[^{}]*\}\}|[\p{L}\p{N}]+`)

// Token is one word of a query with its position metadata.
type Token struct {
	Value string // lowercased form used for lookup
	Raw   string // text as it appeared in the input
	Line  int    // 1-based line number
}

// Tokenize scans text in a single pass, returning tokens with line numbers.
// "\n", "\r\n" and a lone "\r" each end a line.
func Tokenize(text string) []Token {
	return scan(text, 1, nil)
}

// TokenizeLines tokenizes pre-split lines. The result is identical to
// Tokenize on the joined text when lines come from SplitLines.
func TokenizeLines(lines []string) []Token {
	var out []Token
	for i, line := range lines {
		out = scan(line, i+1, out)
	}
	return out
}

func scan(text string, line int, out []Token) []Token {
	last := 0
	for _, loc := range wordRe.FindAllStringIndex(text, -1) {
		line += countNewlines(text[last:loc[0]])
		raw := text[loc[0]:loc[1]]
		out = append(out, Token{Value: strings.ToLower(raw), Raw: raw, Line: line})
		last = loc[1]
	}
	return out
}

func countNewlines(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\n':
			n++
		case '\r':
			n++
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
		}
	}
	return n
}

// SplitLines splits text on "\n", "\r\n" and "\r". A trailing line ending
// does not produce an empty final line.
func SplitLines(text string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			lines = append(lines, text[start:i])
			start = i + 1
		case '\r':
			lines = append(lines, text[start:i])
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			start = i + 1
		}
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	}
	return lines
}

// Words returns the lowercased tokens of text without position data.
func Words(text string) []string {
	matches := wordRe.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	for i := range matches {
		matches[i] = strings.ToLower(matches[i])
	}
	return matches
}

// RuleTokens tokenizes rule text. Each {{...}} template becomes a gap
// recorded as the position of the token it follows. Templates before the
// first token or after the last one are dropped, and adjacent templates
// collapse into a single gap.
func RuleTokens(text string) (words []string, gaps []int) {
	pendingGap := false
	for _, m := range ruleRe.FindAllString(text, -1) {
		if strings.HasPrefix(m, "{{") {
			if len(words) > 0 {
				pendingGap = true
			}
			continue
		}
		if pendingGap {
			gaps = append(gaps, len(words)-1)
			pendingGap = false
		}
		words = append(words, strings.ToLower(m))
	}
	return words, gaps
}
