// Binary encoding for index snapshot blobs.
//
// The vocabulary and the rule token sequences dominate the snapshot, so they
// get compact little-endian formats; rule and license metadata use gob.
//
// Vocabulary format:
//
//	tokenCount: uint32
//	per token:
//	  keyLen: uint16
//	  key:    [keyLen]byte
//
// Rule token format:
//
//	ruleCount: uint32
//	per rule:
//	  tokenCount: uint32
//	  tokens:     [tokenCount]uint32
//	  gapCount:   uint32
//	  gaps:       [gapCount]uint32
package bbolt

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"math"
)

// encodeVocabulary encodes token strings in id order. A single buffer is
// pre-allocated to avoid repeated growth.
func encodeVocabulary(tokens []string) ([]byte, error) {
	totalSize := 4
	for _, t := range tokens {
		totalSize += 2 + len(t)
	}
	buf := make([]byte, totalSize)
	offset := 0

	binary.LittleEndian.PutUint32(buf[offset:], uint32(len(tokens)))
	offset += 4
	for _, t := range tokens {
		if len(t) > math.MaxUint16 {
			return nil, fmt.Errorf("token too long: %d bytes", len(t))
		}
		binary.LittleEndian.PutUint16(buf[offset:], uint16(len(t)))
		offset += 2
		copy(buf[offset:], t)
		offset += len(t)
	}
	return buf, nil
}

// decodeVocabulary decodes token strings. Every read is bounds-checked to
// avoid panics on corrupt data.
func decodeVocabulary(data []byte) ([]string, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("vocabulary too short: %d bytes", len(data))
	}
	offset := 0
	count := binary.LittleEndian.Uint32(data[offset:])
	offset += 4

	// Each token takes at least 2 bytes; reject counts the data cannot hold.
	if int(count) > (len(data)-offset)/2 {
		return nil, fmt.Errorf("vocabulary count %d exceeds data", count)
	}
	tokens := make([]string, count)
	for i := range tokens {
		if offset+2 > len(data) {
			return nil, fmt.Errorf("truncated at token %d length (offset %d)", i, offset)
		}
		n := int(binary.LittleEndian.Uint16(data[offset:]))
		offset += 2
		if offset+n > len(data) {
			return nil, fmt.Errorf("truncated at token %d (offset %d, need %d)", i, offset, n)
		}
		tokens[i] = string(data[offset : offset+n])
		offset += n
	}
	return tokens, nil
}

// ruleTokens is the sequence part of one rule record.
type ruleTokens struct {
	Tokens []uint32
	Gaps   []uint32
}

func encodeRuleTokens(rules []ruleTokens) []byte {
	totalSize := 4
	for _, r := range rules {
		totalSize += 8 + 4*len(r.Tokens) + 4*len(r.Gaps)
	}
	buf := make([]byte, totalSize)
	offset := 0

	put := func(v uint32) {
		binary.LittleEndian.PutUint32(buf[offset:], v)
		offset += 4
	}
	put(uint32(len(rules)))
	for _, r := range rules {
		put(uint32(len(r.Tokens)))
		for _, id := range r.Tokens {
			put(id)
		}
		put(uint32(len(r.Gaps)))
		for _, g := range r.Gaps {
			put(g)
		}
	}
	return buf
}

func decodeRuleTokens(data []byte) ([]ruleTokens, error) {
	offset := 0
	next := func() (uint32, error) {
		if offset+4 > len(data) {
			return 0, fmt.Errorf("truncated at offset %d", offset)
		}
		v := binary.LittleEndian.Uint32(data[offset:])
		offset += 4
		return v, nil
	}
	list := func(what string, rule int) ([]uint32, error) {
		n, err := next()
		if err != nil {
			return nil, fmt.Errorf("rule %d %s count: %w", rule, what, err)
		}
		if int(n) > (len(data)-offset)/4 {
			return nil, fmt.Errorf("rule %d %s count %d exceeds data", rule, what, n)
		}
		out := make([]uint32, n)
		for i := range out {
			out[i], _ = next()
		}
		return out, nil
	}

	count, err := next()
	if err != nil {
		return nil, fmt.Errorf("rule count: %w", err)
	}
	if int(count) > len(data)/8 {
		return nil, fmt.Errorf("rule count %d exceeds data", count)
	}
	rules := make([]ruleTokens, count)
	for i := range rules {
		if rules[i].Tokens, err = list("token", i); err != nil {
			return nil, err
		}
		if rules[i].Gaps, err = list("gap", i); err != nil {
			return nil, err
		}
	}
	if offset != len(data) {
		return nil, fmt.Errorf("%d trailing bytes", len(data)-offset)
	}
	return rules, nil
}

// encodeGob encodes a value using gob. Used for the metadata blobs, which
// are small next to the token data and need no custom format.
func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeGob decodes gob-encoded data into target. Target must be a pointer.
func decodeGob(data []byte, target interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(target)
}
