package tokens

import "encoding/binary"

// Key encodes a token id sequence as a compact map key: four little-endian
// bytes per id. Two sequences share a key only when they are identical.
func Key(ids []TokenID) string {
	buf := make([]byte, 4*len(ids))
	for i, id := range ids {
		binary.LittleEndian.PutUint32(buf[i*4:], id)
	}
	return string(buf)
}

// Ngrams returns every window of n consecutive ids. The windows share the
// backing array of seq.
func Ngrams(seq []TokenID, n int) [][]TokenID {
	if n <= 0 || len(seq) < n {
		return nil
	}
	out := make([][]TokenID, 0, len(seq)-n+1)
	for i := 0; i+n <= len(seq); i++ {
		out = append(out, seq[i:i+n:i+n])
	}
	return out
}

// IsDigits reports whether s is made only of ASCII digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// IsYear reports whether s looks like a four digit year (19xx or 20xx).
func IsYear(s string) bool {
	return len(s) == 4 && IsDigits(s) && (s[:2] == "19" || s[:2] == "20")
}

// IsSingleChar reports whether s is exactly one rune long.
func IsSingleChar(s string) bool {
	n := 0
	for range s {
		n++
		if n > 1 {
			return false
		}
	}
	return n == 1
}
