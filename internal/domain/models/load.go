package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// File extensions of the corpus layout.
const (
	RuleExt     = ".RULE"
	LicenseExt  = ".LICENSE"
	MetadataExt = ".yml"

	// FingerprintPrefix tags corpus fingerprints with their hash function.
	FingerprintPrefix = "sha256:"
)

// Corpus is the full set of rules and licenses an index is built from.
type Corpus struct {
	Rules    []*Rule
	Licenses map[string]*License

	// Fingerprint hashes every corpus file path and content.
	Fingerprint string
}

// AllRules returns the corpus rules followed by one full-text rule per
// license with text, ordered by license key.
func (c *Corpus) AllRules() []*Rule {
	out := make([]*Rule, 0, len(c.Rules)+len(c.Licenses))
	out = append(out, c.Rules...)
	keys := make([]string, 0, len(c.Licenses))
	for k := range c.Licenses {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if r := c.Licenses[k].TextRule(); r != nil {
			out = append(out, r)
		}
	}
	return out
}

type ruleFile struct {
	LicenseExpression  string `yaml:"license_expression"`
	Relevance          *int   `yaml:"relevance"`
	MinimumCoverage    int    `yaml:"minimum_coverage"`
	IsLicenseText      bool   `yaml:"is_license_text"`
	IsLicenseNotice    bool   `yaml:"is_license_notice"`
	IsLicenseTag       bool   `yaml:"is_license_tag"`
	IsLicenseReference bool   `yaml:"is_license_reference"`
	IsLicenseIntro     bool   `yaml:"is_license_intro"`
	IsFalsePositive    bool   `yaml:"is_false_positive"`
	Notes              string `yaml:"notes"`
}

type licenseFile struct {
	Key             string `yaml:"key"`
	Name            string `yaml:"name"`
	ShortName       string `yaml:"short_name"`
	Category        string `yaml:"category"`
	Owner           string `yaml:"owner"`
	SPDXLicenseKey  string `yaml:"spdx_license_key"`
	IsException     bool   `yaml:"is_exception"`
	IsDeprecated    bool   `yaml:"is_deprecated"`
	MinimumCoverage int    `yaml:"minimum_coverage"`
}

// LoadCorpus reads rule pairs (<id>.RULE + <id>.yml) from rulesDir and
// license pairs (<key>.yml + optional <key>.LICENSE) from licensesDir.
// Either directory may be empty to skip it. Files are visited in sorted
// order so the fingerprint is stable.
func LoadCorpus(rulesDir, licensesDir string) (*Corpus, error) {
	c := &Corpus{Licenses: make(map[string]*License)}
	h := sha256.New()

	if licensesDir != "" {
		files, err := listFiles(licensesDir)
		if err != nil {
			return nil, fmt.Errorf("load licenses: %w", err)
		}
		for _, rel := range files {
			if err := hashFile(h, "licenses", licensesDir, rel); err != nil {
				return nil, err
			}
			if filepath.Ext(rel) != MetadataExt {
				continue
			}
			lic, err := loadLicense(licensesDir, rel)
			if err != nil {
				return nil, err
			}
			if _, dup := c.Licenses[lic.Key]; dup {
				return nil, corpusErr(lic.Key, fmt.Errorf("%w: license key defined twice", ErrDuplicateRule))
			}
			c.Licenses[lic.Key] = lic
		}
	}

	if rulesDir != "" {
		files, err := listFiles(rulesDir)
		if err != nil {
			return nil, fmt.Errorf("load rules: %w", err)
		}
		for _, rel := range files {
			if err := hashFile(h, "rules", rulesDir, rel); err != nil {
				return nil, err
			}
			if filepath.Ext(rel) != RuleExt {
				continue
			}
			r, err := loadRule(rulesDir, rel)
			if err != nil {
				return nil, err
			}
			c.Rules = append(c.Rules, r)
		}
	}

	c.Fingerprint = FingerprintPrefix + hex.EncodeToString(h.Sum(nil))
	return c, nil
}

func listFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		switch filepath.Ext(path) {
		case RuleExt, LicenseExt, MetadataExt:
		default:
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func hashFile(h hash.Hash, label, dir, rel string) error {
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	if err != nil {
		return fmt.Errorf("read %s: %w", rel, err)
	}
	h.Write([]byte(label + "/" + rel))
	h.Write([]byte{0})
	h.Write(data)
	h.Write([]byte{0})
	return nil
}

func stem(rel string) string {
	return strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))
}

func loadRule(dir, rel string) (*Rule, error) {
	id := stem(rel)
	base := filepath.Join(dir, filepath.FromSlash(strings.TrimSuffix(rel, RuleExt)))

	text, err := os.ReadFile(base + RuleExt)
	if err != nil {
		return nil, fmt.Errorf("read rule %s: %w", id, err)
	}
	meta, err := os.ReadFile(base + MetadataExt)
	if err != nil {
		return nil, corpusErr(id, fmt.Errorf("%w: missing %s sidecar: %v", ErrInvalidRule, MetadataExt, err))
	}
	var rf ruleFile
	if err := yaml.Unmarshal(meta, &rf); err != nil {
		return nil, corpusErr(id, fmt.Errorf("%w: parse %s: %v", ErrInvalidRule, MetadataExt, err))
	}

	r := NewRule(id, strings.TrimSpace(rf.LicenseExpression), string(text))
	if rf.Relevance != nil {
		r.Relevance = *rf.Relevance
	}
	r.MinimumCoverage = rf.MinimumCoverage
	r.IsLicenseText = rf.IsLicenseText
	r.IsLicenseNotice = rf.IsLicenseNotice
	r.IsLicenseTag = rf.IsLicenseTag
	r.IsLicenseReference = rf.IsLicenseReference
	r.IsLicenseIntro = rf.IsLicenseIntro
	r.IsFalsePositive = rf.IsFalsePositive
	r.Notes = rf.Notes
	return r, nil
}

func loadLicense(dir, rel string) (*License, error) {
	base := filepath.Join(dir, filepath.FromSlash(strings.TrimSuffix(rel, MetadataExt)))
	meta, err := os.ReadFile(base + MetadataExt)
	if err != nil {
		return nil, fmt.Errorf("read license %s: %w", rel, err)
	}
	var lf licenseFile
	if err := yaml.Unmarshal(meta, &lf); err != nil {
		return nil, corpusErr(stem(rel), fmt.Errorf("%w: parse %s: %v", ErrInvalidRule, MetadataExt, err))
	}
	key := strings.ToLower(strings.TrimSpace(lf.Key))
	if key == "" {
		key = strings.ToLower(stem(rel))
	}
	lic := &License{
		Key:             key,
		Name:            lf.Name,
		ShortName:       lf.ShortName,
		Category:        lf.Category,
		Owner:           lf.Owner,
		SPDXLicenseKey:  lf.SPDXLicenseKey,
		IsException:     lf.IsException,
		IsDeprecated:    lf.IsDeprecated,
		MinimumCoverage: lf.MinimumCoverage,
	}
	text, err := os.ReadFile(base + LicenseExt)
	switch {
	case err == nil:
		lic.Text = string(text)
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("read license text %s: %w", key, err)
	}
	return lic, nil
}
