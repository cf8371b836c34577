package index

import (
	"fmt"
	"io"
	"strings"

	"github.com/corey/licscan/internal/domain/span"
	"github.com/corey/licscan/internal/domain/tokens"
)

// Query is scanned input tokenized against an index.
type Query struct {
	Tokens    []TokenID // ids by position; tokens.UnknownID for unknown words
	Raw       []string  // token text as written, by position
	LineByPos []int     // 1-based line number by position
	Runs      []QueryRun

	idx *LicenseIndex
}

// QueryRun is a contiguous stretch of query positions matched as a unit.
type QueryRun struct {
	Start int // first position
	End   int // last position, inclusive
}

// Len returns the number of positions in the run.
func (r QueryRun) Len() int { return r.End - r.Start + 1 }

// Span returns the run positions.
func (r QueryRun) Span() span.Span { return span.Range(r.Start, r.End) }

// BuildQuery tokenizes text in one pass.
func (idx *LicenseIndex) BuildQuery(text string) *Query {
	return idx.newQuery(tokens.Tokenize(text))
}

// BuildQueryLines tokenizes pre-split lines; the result equals BuildQuery on
// the joined text.
func (idx *LicenseIndex) BuildQueryLines(lines []string) *Query {
	return idx.newQuery(tokens.TokenizeLines(lines))
}

// BuildQueryReader reads r fully and tokenizes it.
func (idx *LicenseIndex) BuildQueryReader(r io.Reader) (*Query, error) {
	var b strings.Builder
	if _, err := io.Copy(&b, r); err != nil {
		return nil, fmt.Errorf("read query: %w", err)
	}
	return idx.BuildQuery(b.String()), nil
}

func (idx *LicenseIndex) newQuery(toks []tokens.Token) *Query {
	q := &Query{
		Tokens:    make([]TokenID, len(toks)),
		Raw:       make([]string, len(toks)),
		LineByPos: make([]int, len(toks)),
		idx:       idx,
	}
	for i, t := range toks {
		q.Tokens[i] = idx.vocab.ID(t.Value)
		q.Raw[i] = t.Raw
		q.LineByPos[i] = t.Line
	}
	q.Runs = splitRuns(q.Tokens, idx.vocab, idx.opts.RunBreakLength)
	return q
}

// splitRuns cuts the positions at every stretch of at least breakLen
// consecutive non-legalese tokens. The stretch belongs to no run, and runs
// without a legalese token are dropped.
func splitRuns(ids []TokenID, vocab *Vocabulary, breakLen int) []QueryRun {
	var runs []QueryRun
	start, junkStart := -1, -1
	hasHigh := false
	for pos, id := range ids {
		if !vocab.IsLegalese(id) {
			if start < 0 {
				start = pos
			}
			if junkStart < 0 {
				junkStart = pos
			}
			continue
		}
		if junkStart >= 0 && pos-junkStart >= breakLen {
			if hasHigh {
				runs = append(runs, QueryRun{Start: start, End: junkStart - 1})
			}
			start = pos
			hasHigh = false
		}
		if start < 0 {
			start = pos
		}
		junkStart = -1
		hasHigh = true
	}
	if start >= 0 && hasHigh {
		end := len(ids) - 1
		if junkStart >= 0 && len(ids)-junkStart >= breakLen {
			end = junkStart - 1
		}
		runs = append(runs, QueryRun{Start: start, End: end})
	}
	return runs
}

// Index returns the index the query was built against.
func (q *Query) Index() *LicenseIndex { return q.idx }

// Len returns the number of query positions.
func (q *Query) Len() int { return len(q.Tokens) }

// RunTokens returns the token ids of a run.
func (q *Query) RunTokens(r QueryRun) []TokenID { return q.Tokens[r.Start : r.End+1] }

// HighCount returns how many positions of s hold legalese tokens.
func (q *Query) HighCount(s span.Span) int {
	n := 0
	for _, p := range s.Positions() {
		if q.idx.vocab.IsLegalese(q.Tokens[p]) {
			n++
		}
	}
	return n
}

// Lines returns the first and last line covered by s.
func (q *Query) Lines(s span.Span) (int, int) {
	if s.IsEmpty() {
		return 0, 0
	}
	return q.LineByPos[s.Start()], q.LineByPos[s.End()]
}

// Text joins the raw tokens of s, rendering holes between its bounds as
// placeholder.
func (q *Query) Text(s span.Span, placeholder string) string {
	if s.IsEmpty() {
		return ""
	}
	parts := make([]string, 0, s.Extent())
	for p := s.Start(); p <= s.End(); p++ {
		if s.Contains(p) {
			parts = append(parts, q.Raw[p])
		} else if placeholder != "" {
			parts = append(parts, placeholder)
		}
	}
	return strings.Join(parts, " ")
}
