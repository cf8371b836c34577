// Package span provides Span, an ordered set of integer positions.
//
// Spans express match extents in three coordinate spaces: query positions,
// rule positions and the high (legalese) subset of rule positions. A Span is
// a value: every operation returns a new Span and never mutates its inputs.
package span

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Span is a strictly ascending set of non-negative positions.
// The zero value is the empty span.
type Span struct {
	pos []int
}

// New builds a span from positions in any order. Duplicates are removed.
func New(positions ...int) Span {
	if len(positions) == 0 {
		return Span{}
	}
	p := make([]int, len(positions))
	copy(p, positions)
	sort.Ints(p)
	out := p[:1]
	for _, v := range p[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return Span{pos: out}
}

// FromSorted wraps an already strictly ascending slice without copying.
// It panics if the slice is out of order: callers build these slices
// themselves, so disorder is a bug.
func FromSorted(positions []int) Span {
	for i := 1; i < len(positions); i++ {
		if positions[i] <= positions[i-1] {
			panic(fmt.Sprintf("span: positions out of order at %d: %d after %d", i, positions[i], positions[i-1]))
		}
	}
	return Span{pos: positions}
}

// Range returns the span covering start..end inclusive. Empty if end < start.
func Range(start, end int) Span {
	if end < start {
		return Span{}
	}
	p := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		p = append(p, i)
	}
	return Span{pos: p}
}

// Len returns the number of positions (the magnitude of the set).
func (s Span) Len() int { return len(s.pos) }

// IsEmpty reports whether the span has no positions.
func (s Span) IsEmpty() bool { return len(s.pos) == 0 }

// Start returns the smallest position, or -1 when empty.
func (s Span) Start() int {
	if len(s.pos) == 0 {
		return -1
	}
	return s.pos[0]
}

// End returns the largest position, or -1 when empty.
func (s Span) End() int {
	if len(s.pos) == 0 {
		return -1
	}
	return s.pos[len(s.pos)-1]
}

// Extent is the distance from Start to End inclusive, holes included.
func (s Span) Extent() int {
	if len(s.pos) == 0 {
		return 0
	}
	return s.End() - s.Start() + 1
}

// Density is Len / Extent: 1 for a contiguous span, lower with holes.
func (s Span) Density() float64 {
	if len(s.pos) == 0 {
		return 0
	}
	return float64(len(s.pos)) / float64(s.Extent())
}

// Positions returns a copy of the positions.
func (s Span) Positions() []int {
	out := make([]int, len(s.pos))
	copy(out, s.pos)
	return out
}

// At returns the i-th smallest position.
func (s Span) At(i int) int { return s.pos[i] }

// Contains reports whether pos is in the span.
func (s Span) Contains(pos int) bool {
	i := sort.SearchInts(s.pos, pos)
	return i < len(s.pos) && s.pos[i] == pos
}

// IndexOf returns the rank of pos in the span, or -1.
func (s Span) IndexOf(pos int) int {
	i := sort.SearchInts(s.pos, pos)
	if i < len(s.pos) && s.pos[i] == pos {
		return i
	}
	return -1
}

// IsSubsetOf reports whether every position of s is in other.
func (s Span) IsSubsetOf(other Span) bool {
	if len(s.pos) > len(other.pos) {
		return false
	}
	j := 0
	for _, v := range s.pos {
		for j < len(other.pos) && other.pos[j] < v {
			j++
		}
		if j == len(other.pos) || other.pos[j] != v {
			return false
		}
	}
	return true
}

// Union returns the positions in s or other.
func (s Span) Union(other Span) Span {
	out := make([]int, 0, len(s.pos)+len(other.pos))
	i, j := 0, 0
	for i < len(s.pos) && j < len(other.pos) {
		switch {
		case s.pos[i] < other.pos[j]:
			out = append(out, s.pos[i])
			i++
		case s.pos[i] > other.pos[j]:
			out = append(out, other.pos[j])
			j++
		default:
			out = append(out, s.pos[i])
			i++
			j++
		}
	}
	out = append(out, s.pos[i:]...)
	out = append(out, other.pos[j:]...)
	return Span{pos: out}
}

// Intersect returns the positions in both s and other.
func (s Span) Intersect(other Span) Span {
	var out []int
	i, j := 0, 0
	for i < len(s.pos) && j < len(other.pos) {
		switch {
		case s.pos[i] < other.pos[j]:
			i++
		case s.pos[i] > other.pos[j]:
			j++
		default:
			out = append(out, s.pos[i])
			i++
			j++
		}
	}
	return Span{pos: out}
}

// Difference returns the positions in s that are not in other.
func (s Span) Difference(other Span) Span {
	var out []int
	j := 0
	for _, v := range s.pos {
		for j < len(other.pos) && other.pos[j] < v {
			j++
		}
		if j < len(other.pos) && other.pos[j] == v {
			continue
		}
		out = append(out, v)
	}
	return Span{pos: out}
}

// Overlap returns the number of positions shared with other.
func (s Span) Overlap(other Span) int {
	n := 0
	i, j := 0, 0
	for i < len(s.pos) && j < len(other.pos) {
		switch {
		case s.pos[i] < other.pos[j]:
			i++
		case s.pos[i] > other.pos[j]:
			j++
		default:
			n++
			i++
			j++
		}
	}
	return n
}

// Intersects reports whether s and other share at least one position.
func (s Span) Intersects(other Span) bool {
	if s.IsEmpty() || other.IsEmpty() || s.End() < other.Start() || other.End() < s.Start() {
		return false
	}
	return s.Overlap(other) > 0
}

// Surrounds reports whether other lies within the Start..End bounds of s.
func (s Span) Surrounds(other Span) bool {
	if s.IsEmpty() || other.IsEmpty() {
		return false
	}
	return s.Start() <= other.Start() && s.End() >= other.End()
}

// IsBefore reports whether every position of s is lower than other's.
func (s Span) IsBefore(other Span) bool {
	if s.IsEmpty() || other.IsEmpty() {
		return false
	}
	return s.End() < other.Start()
}

// IsAfter reports whether every position of s is greater than other's.
func (s Span) IsAfter(other Span) bool {
	return other.IsBefore(s)
}

// Touches reports whether s and other are adjacent without overlapping.
func (s Span) Touches(other Span) bool {
	if s.IsEmpty() || other.IsEmpty() {
		return false
	}
	return s.End()+1 == other.Start() || other.End()+1 == s.Start()
}

// Distance returns the gap between the bounds of two spans: 0 when they
// overlap or touch, otherwise the number of positions between them plus one.
func (s Span) Distance(other Span) int {
	if s.IsEmpty() || other.IsEmpty() {
		return 0
	}
	switch {
	case s.End() < other.Start():
		d := other.Start() - s.End()
		if d == 1 {
			return 0
		}
		return d
	case other.End() < s.Start():
		d := s.Start() - other.End()
		if d == 1 {
			return 0
		}
		return d
	default:
		return 0
	}
}

// Subspans splits s into its maximal contiguous runs.
func (s Span) Subspans() []Span {
	if len(s.pos) == 0 {
		return nil
	}
	var out []Span
	start := 0
	for i := 1; i <= len(s.pos); i++ {
		if i == len(s.pos) || s.pos[i] != s.pos[i-1]+1 {
			out = append(out, Span{pos: s.pos[start:i:i]})
			start = i
		}
	}
	return out
}

// Equal reports whether both spans hold the same positions.
func (s Span) Equal(other Span) bool {
	if len(s.pos) != len(other.pos) {
		return false
	}
	for i := range s.pos {
		if s.pos[i] != other.pos[i] {
			return false
		}
	}
	return true
}

// String renders contiguous runs compactly, e.g. "Span(0-3, 7, 9-10)".
func (s Span) String() string {
	var b strings.Builder
	b.WriteString("Span(")
	for i, sub := range s.Subspans() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Itoa(sub.Start()))
		if sub.Len() > 1 {
			b.WriteByte('-')
			b.WriteString(strconv.Itoa(sub.End()))
		}
	}
	b.WriteByte(')')
	return b.String()
}
