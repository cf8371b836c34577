// Package bbolt implements the ports.IndexCache interface using bbolt (embedded B+ tree).
// One "index" bucket holds the current snapshot: a JSON meta record, binary
// vocabulary and rule token blobs, and gob-encoded metadata. Writes are
// transactional — a crash mid-write cannot corrupt previously committed data.
package bbolt

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/corey/licscan/internal/ports"
)

// FormatVersion is bumped whenever the stored layout changes.
const FormatVersion = 2

// Bucket keys
var (
	bucketIndex = []byte("index")
	keyMeta     = []byte("meta")
	keyVocab    = []byte("vocab")
	keyTokens   = []byte("tokens")
	keyRules    = []byte("rules")
	keyLicenses = []byte("licenses")
)

// Store implements ports.IndexCache backed by bbolt.
type Store struct {
	db *bolt.DB
}

var _ ports.IndexCache = (*Store)(nil)

// NewStore opens (or creates) a bbolt database at the given path.
func NewStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ruleMeta is a rule record without its token data, which is stored apart.
type ruleMeta struct {
	Identifier         string
	LicenseExpression  string
	Text               string
	Relevance          int
	MinimumCoverage    int
	IsLicenseText      bool
	IsLicenseNotice    bool
	IsLicenseTag       bool
	IsLicenseReference bool
	IsLicenseIntro     bool
	IsFalsePositive    bool
	Notes              string
}

// SaveIndex persists the snapshot, replacing any previous one.
func (s *Store) SaveIndex(snap *ports.IndexSnapshot) error {
	if snap == nil {
		return fmt.Errorf("nil snapshot")
	}

	meta := ports.CacheMeta{
		FormatVersion: FormatVersion,
		CacheKey:      snap.CacheKey,
		Rules:         len(snap.Rules),
		Licenses:      len(snap.Licenses),
		Tokens:        len(snap.Vocabulary),
		LenLegalese:   snap.LenLegalese,
		BuiltAt:       snap.BuiltAt,
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}
	vocabBin, err := encodeVocabulary(snap.Vocabulary)
	if err != nil {
		return fmt.Errorf("encode vocabulary: %w", err)
	}

	toks := make([]ruleTokens, len(snap.Rules))
	metas := make([]ruleMeta, len(snap.Rules))
	for i, r := range snap.Rules {
		toks[i] = ruleTokens{Tokens: r.Tokens, Gaps: r.Gaps}
		metas[i] = ruleMeta{
			Identifier:         r.Identifier,
			LicenseExpression:  r.LicenseExpression,
			Text:               r.Text,
			Relevance:          r.Relevance,
			MinimumCoverage:    r.MinimumCoverage,
			IsLicenseText:      r.IsLicenseText,
			IsLicenseNotice:    r.IsLicenseNotice,
			IsLicenseTag:       r.IsLicenseTag,
			IsLicenseReference: r.IsLicenseReference,
			IsLicenseIntro:     r.IsLicenseIntro,
			IsFalsePositive:    r.IsFalsePositive,
			Notes:              r.Notes,
		}
	}
	tokensBin := encodeRuleTokens(toks)
	rulesGob, err := encodeGob(metas)
	if err != nil {
		return fmt.Errorf("encode rules: %w", err)
	}
	licensesGob, err := encodeGob(snap.Licenses)
	if err != nil {
		return fmt.Errorf("encode licenses: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketIndex) != nil {
			if err := tx.DeleteBucket(bucketIndex); err != nil {
				return err
			}
		}
		ib, err := tx.CreateBucket(bucketIndex)
		if err != nil {
			return err
		}
		for _, kv := range []struct{ k, v []byte }{
			{keyVocab, vocabBin},
			{keyTokens, tokensBin},
			{keyRules, rulesGob},
			{keyLicenses, licensesGob},
			{keyMeta, metaJSON},
		} {
			if err := ib.Put(kv.k, kv.v); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadIndex retrieves the snapshot stored under cacheKey.
// Returns nil, nil if no snapshot exists (fresh cache) and ports.ErrStaleCache
// when the stored one belongs to another corpus or format.
func (s *Store) LoadIndex(cacheKey string) (*ports.IndexSnapshot, error) {
	blobs := make(map[string][]byte)
	err := s.db.View(func(tx *bolt.Tx) error {
		ib := tx.Bucket(bucketIndex)
		if ib == nil {
			return nil
		}
		// Copy bytes out of the transaction (bbolt slices are only valid within tx)
		for _, k := range [][]byte{keyMeta, keyVocab, keyTokens, keyRules, keyLicenses} {
			if v := ib.Get(k); v != nil {
				b := make([]byte, len(v))
				copy(b, v)
				blobs[string(k)] = b
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metaJSON, ok := blobs[string(keyMeta)]
	if !ok {
		return nil, nil
	}
	var meta ports.CacheMeta
	if err := json.Unmarshal(metaJSON, &meta); err != nil {
		return nil, fmt.Errorf("unmarshal meta: %w", err)
	}
	if meta.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("%w: format version %d, want %d", ports.ErrStaleCache, meta.FormatVersion, FormatVersion)
	}
	if meta.CacheKey != cacheKey {
		return nil, fmt.Errorf("%w: stored %q", ports.ErrStaleCache, meta.CacheKey)
	}

	for _, k := range [][]byte{keyVocab, keyTokens, keyRules, keyLicenses} {
		if _, ok := blobs[string(k)]; !ok {
			return nil, fmt.Errorf("snapshot missing %q", k)
		}
	}

	snap := &ports.IndexSnapshot{
		CacheKey:    meta.CacheKey,
		LenLegalese: meta.LenLegalese,
		BuiltAt:     meta.BuiltAt,
	}
	if snap.Vocabulary, err = decodeVocabulary(blobs[string(keyVocab)]); err != nil {
		return nil, fmt.Errorf("decode vocabulary: %w", err)
	}
	toks, err := decodeRuleTokens(blobs[string(keyTokens)])
	if err != nil {
		return nil, fmt.Errorf("decode rule tokens: %w", err)
	}
	var metas []ruleMeta
	if err := decodeGob(blobs[string(keyRules)], &metas); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	if len(metas) != len(toks) {
		return nil, fmt.Errorf("snapshot has %d rules but %d token records", len(metas), len(toks))
	}
	if err := decodeGob(blobs[string(keyLicenses)], &snap.Licenses); err != nil {
		return nil, fmt.Errorf("decode licenses: %w", err)
	}

	snap.Rules = make([]ports.RuleRecord, len(metas))
	for i, m := range metas {
		snap.Rules[i] = ports.RuleRecord{
			Identifier:         m.Identifier,
			LicenseExpression:  m.LicenseExpression,
			Text:               m.Text,
			Relevance:          m.Relevance,
			MinimumCoverage:    m.MinimumCoverage,
			IsLicenseText:      m.IsLicenseText,
			IsLicenseNotice:    m.IsLicenseNotice,
			IsLicenseTag:       m.IsLicenseTag,
			IsLicenseReference: m.IsLicenseReference,
			IsLicenseIntro:     m.IsLicenseIntro,
			IsFalsePositive:    m.IsFalsePositive,
			Notes:              m.Notes,
			Tokens:             toks[i].Tokens,
			Gaps:               toks[i].Gaps,
		}
	}
	return snap, nil
}

// Meta describes the stored snapshot without decoding it.
// Returns nil, nil if no snapshot exists.
func (s *Store) Meta() (*ports.CacheMeta, error) {
	var metaJSON []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		ib := tx.Bucket(bucketIndex)
		if ib == nil {
			return nil
		}
		if v := ib.Get(keyMeta); v != nil {
			metaJSON = make([]byte, len(v))
			copy(metaJSON, v)
		}
		return nil
	})
	if err != nil || metaJSON == nil {
		return nil, err
	}
	var meta ports.CacheMeta
	if err := json.Unmarshal(metaJSON, &meta); err != nil {
		return nil, fmt.Errorf("unmarshal meta: %w", err)
	}
	return &meta, nil
}

// DeleteIndex removes the stored snapshot.
// Idempotent: deleting a missing snapshot is not an error.
func (s *Store) DeleteIndex() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketIndex) == nil {
			return nil
		}
		return tx.DeleteBucket(bucketIndex)
	})
}
