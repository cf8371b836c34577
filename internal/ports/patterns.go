package ports

// NgramScanner finds token-id n-grams in a token sequence using multi-pattern
// matching (Aho-Corasick). A single pass over the sequence finds every
// occurrence of every pattern, overlapping ones included. This is
// O(n + m + z) where n=sequence length, m=total pattern length, z=hits.
//
// A scanner is immutable once built: a changed pattern set means building a
// new scanner (and a new index), never mutating one in use.
type NgramScanner interface {
	// Scan returns all pattern occurrences in seq, ordered by end offset.
	// Returns nil if nothing matches.
	Scan(seq []uint32) []NgramHit

	// PatternCount returns the number of patterns compiled in.
	PatternCount() int
}

// NgramHit is one pattern occurrence, in token offsets.
type NgramHit struct {
	Pattern int // index into the patterns the scanner was built from
	Start   int // token offset start (inclusive)
	End     int // token offset end (exclusive)
}

// NgramScannerFactory compiles a scanner from n-gram patterns.
type NgramScannerFactory func(patterns [][]uint32) NgramScanner
