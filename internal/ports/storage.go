// Package ports defines the interfaces (contracts) that adapters must implement.
// These are the boundaries of the hexagonal architecture. Domain logic depends
// only on these interfaces, never on concrete implementations.
package ports

import (
	"errors"
	"time"
)

// ErrStaleCache is returned when a persisted index was built from a
// different corpus (or with different index options) than the caller's.
var ErrStaleCache = errors.New("index cache does not match corpus fingerprint")

// IndexCache persists a built license index between runs.
// The backing store (bbolt) holds one snapshot at a time. Concurrent reads
// are safe; writes are serialized by the adapter.
//
// Crash safety: SaveIndex must be transactional. A crash mid-write must not
// leave a half-written snapshot that LoadIndex would accept.
type IndexCache interface {
	// SaveIndex persists the snapshot, replacing any previous one.
	SaveIndex(snap *IndexSnapshot) error

	// LoadIndex retrieves the snapshot stored under cacheKey.
	// Returns nil, nil if no snapshot exists, and ErrStaleCache if the
	// stored snapshot was saved under another key.
	LoadIndex(cacheKey string) (*IndexSnapshot, error)

	// Meta describes the stored snapshot without decoding it.
	// Returns nil, nil if no snapshot exists.
	Meta() (*CacheMeta, error)

	// DeleteIndex removes the stored snapshot.
	// Idempotent: deleting a missing snapshot is not an error.
	DeleteIndex() error
}

// CacheMeta summarizes a stored snapshot.
type CacheMeta struct {
	FormatVersion int       `json:"format_version"`
	CacheKey      string    `json:"cache_key"`
	Rules         int       `json:"rules"`
	Licenses      int       `json:"licenses"`
	Tokens        int       `json:"tokens"`
	LenLegalese   int       `json:"len_legalese"`
	BuiltAt       time.Time `json:"built_at"`
}

// IndexSnapshot is the serializable state of a license index: everything
// that is expensive to recompute (tokenization and vocabulary ranking).
// Lookup structures are rebuilt from it on load.
type IndexSnapshot struct {
	CacheKey    string
	Vocabulary  []string // token strings ordered by id
	LenLegalese int
	Rules       []RuleRecord
	Licenses    []LicenseRecord
	BuiltAt     time.Time
}

// RuleRecord is one indexed rule: its metadata, text and token ids.
type RuleRecord struct {
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
	Tokens             []uint32
	Gaps               []uint32
}

// LicenseRecord is the metadata of one license. Full text is not kept:
// it lives in the license's text rule.
type LicenseRecord struct {
	Key             string
	Name            string
	ShortName       string
	Category        string
	Owner           string
	SPDXLicenseKey  string
	IsException     bool
	IsDeprecated    bool
	MinimumCoverage int
}
