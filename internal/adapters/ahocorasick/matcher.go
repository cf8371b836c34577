// Package ahocorasick provides multi-pattern token n-gram matching using an Aho-Corasick automaton.
// It wraps the petar-dambovaliev/aho-corasick library for O(n + m + z) matching.
package ahocorasick

import (
	"encoding/binary"

	aho "github.com/petar-dambovaliev/aho-corasick"

	"github.com/corey/licscan/internal/ports"
)

// tokenWidth is the encoded size of one token id.
const tokenWidth = 4

// NgramScanner finds token-id n-grams in a token sequence. Ids are encoded
// as fixed-width little-endian bytes so the byte automaton can match them;
// hits that do not start on a token boundary are discarded.
type NgramScanner struct {
	automaton aho.AhoCorasick
	patterns  int
}

var _ ports.NgramScanner = (*NgramScanner)(nil)

// NewNgramScanner builds a scanner from the given patterns.
func NewNgramScanner(patterns [][]uint32) *NgramScanner {
	s := &NgramScanner{patterns: len(patterns)}
	if len(patterns) == 0 {
		return s
	}
	encoded := make([]string, len(patterns))
	for i, p := range patterns {
		encoded[i] = string(encode(p))
	}
	builder := aho.NewAhoCorasickBuilder(aho.Opts{
		DFA: true,
	})
	s.automaton = builder.Build(encoded)
	return s
}

// Factory adapts NewNgramScanner to the index build options.
func Factory(patterns [][]uint32) ports.NgramScanner {
	return NewNgramScanner(patterns)
}

// Scan finds all pattern occurrences in seq, in token offsets.
func (s *NgramScanner) Scan(seq []uint32) []ports.NgramHit {
	if s.patterns == 0 || len(seq) == 0 {
		return nil
	}
	iter := s.automaton.IterOverlappingByte(encode(seq))
	var hits []ports.NgramHit
	for next := iter.Next(); next != nil; next = iter.Next() {
		m := *next
		if m.Start()%tokenWidth != 0 {
			continue
		}
		hits = append(hits, ports.NgramHit{
			Pattern: m.Pattern(),
			Start:   m.Start() / tokenWidth,
			End:     m.End() / tokenWidth,
		})
	}
	return hits
}

// PatternCount returns the number of patterns in the automaton.
func (s *NgramScanner) PatternCount() int {
	return s.patterns
}

func encode(ids []uint32) []byte {
	buf := make([]byte, tokenWidth*len(ids))
	for i, id := range ids {
		binary.LittleEndian.PutUint32(buf[i*tokenWidth:], id)
	}
	return buf
}
