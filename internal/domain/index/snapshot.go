package index

import (
	"fmt"
	"sort"
	"time"

	"github.com/corey/licscan/internal/domain/models"
	"github.com/corey/licscan/internal/domain/span"
	"github.com/corey/licscan/internal/ports"
)

// Snapshot captures the index in its persisted form.
func (idx *LicenseIndex) Snapshot() *ports.IndexSnapshot {
	snap := &ports.IndexSnapshot{
		CacheKey:    idx.cacheKey,
		Vocabulary:  idx.vocab.Tokens(),
		LenLegalese: idx.vocab.LenLegalese(),
		Rules:       make([]ports.RuleRecord, len(idx.rules)),
		BuiltAt:     idx.builtAt,
	}
	for i, r := range idx.rules {
		rec := ports.RuleRecord{
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
			Tokens:             make([]uint32, len(r.Tokens)),
		}
		copy(rec.Tokens, r.Tokens)
		for _, g := range r.Gaps.Positions() {
			rec.Gaps = append(rec.Gaps, uint32(g))
		}
		snap.Rules[i] = rec
	}

	keys := make([]string, 0, len(idx.licenses))
	for k := range idx.licenses {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		l := idx.licenses[k]
		snap.Licenses = append(snap.Licenses, ports.LicenseRecord{
			Key:             l.Key,
			Name:            l.Name,
			ShortName:       l.ShortName,
			Category:        l.Category,
			Owner:           l.Owner,
			SPDXLicenseKey:  l.SPDXLicenseKey,
			IsException:     l.IsException,
			IsDeprecated:    l.IsDeprecated,
			MinimumCoverage: l.MinimumCoverage,
		})
	}
	return snap
}

// FromSnapshot restores an index without re-tokenizing or re-ranking the
// corpus. opts must match the options the snapshot was built with; the
// cache key check is the caller's job.
func FromSnapshot(snap *ports.IndexSnapshot, opts Options) (*LicenseIndex, error) {
	vocab, err := NewVocabulary(snap.Vocabulary, snap.LenLegalese)
	if err != nil {
		return nil, fmt.Errorf("restore index: %w", err)
	}

	rules := make([]*models.Rule, len(snap.Rules))
	for i, rec := range snap.Rules {
		r := &models.Rule{
			Identifier:         rec.Identifier,
			LicenseExpression:  rec.LicenseExpression,
			Text:               rec.Text,
			Relevance:          rec.Relevance,
			MinimumCoverage:    rec.MinimumCoverage,
			IsLicenseText:      rec.IsLicenseText,
			IsLicenseNotice:    rec.IsLicenseNotice,
			IsLicenseTag:       rec.IsLicenseTag,
			IsLicenseReference: rec.IsLicenseReference,
			IsLicenseIntro:     rec.IsLicenseIntro,
			IsFalsePositive:    rec.IsFalsePositive,
			Notes:              rec.Notes,
			Tokens:             make([]TokenID, len(rec.Tokens)),
		}
		copy(r.Tokens, rec.Tokens)
		gaps := make([]int, len(rec.Gaps))
		for j, g := range rec.Gaps {
			gaps[j] = int(g)
		}
		r.Gaps = span.New(gaps...)
		rules[i] = r
	}

	licenses := make(map[string]*models.License, len(snap.Licenses))
	for _, rec := range snap.Licenses {
		licenses[rec.Key] = &models.License{
			Key:             rec.Key,
			Name:            rec.Name,
			ShortName:       rec.ShortName,
			Category:        rec.Category,
			Owner:           rec.Owner,
			SPDXLicenseKey:  rec.SPDXLicenseKey,
			IsException:     rec.IsException,
			IsDeprecated:    rec.IsDeprecated,
			MinimumCoverage: rec.MinimumCoverage,
		}
	}

	idx, err := newIndex(vocab, rules, licenses, opts)
	if err != nil {
		return nil, fmt.Errorf("restore index: %w", err)
	}
	idx.cacheKey = snap.CacheKey
	idx.builtAt = snap.BuiltAt
	if idx.builtAt.IsZero() {
		idx.builtAt = time.Now()
	}
	return idx, nil
}
