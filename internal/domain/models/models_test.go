package models

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/corey/licscan/internal/domain/span"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// copyTestdata copies the fixture corpus into a temp dir so tests can edit it.
func copyTestdata(t *testing.T) (rulesDir, licensesDir string) {
	t.Helper()
	root := t.TempDir()
	for _, sub := range []string{"rules", "licenses"} {
		src := filepath.Join("testdata", sub)
		dst := filepath.Join(root, sub)
		require.NoError(t, os.MkdirAll(dst, 0o755))
		entries, err := os.ReadDir(src)
		require.NoError(t, err)
		for _, e := range entries {
			data, err := os.ReadFile(filepath.Join(src, e.Name()))
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(filepath.Join(dst, e.Name()), data, 0o644))
		}
	}
	return filepath.Join(root, "rules"), filepath.Join(root, "licenses")
}

func ruleByID(c *Corpus, id string) *Rule {
	for _, r := range c.Rules {
		if r.Identifier == id {
			return r
		}
	}
	return nil
}

// =============================================================================
// Loading
// =============================================================================

func TestLoadCorpus_Fixture(t *testing.T) {
	c, err := LoadCorpus("testdata/rules", "testdata/licenses")
	require.NoError(t, err)

	assert.Len(t, c.Rules, 4)
	assert.Len(t, c.Licenses, 3)
	assert.True(t, strings.HasPrefix(c.Fingerprint, FingerprintPrefix))

	mit1 := ruleByID(c, "mit_1")
	require.NotNil(t, mit1)
	assert.Equal(t, "mit", mit1.LicenseExpression)
	assert.Equal(t, DefaultRelevance, mit1.Relevance)
	assert.True(t, mit1.IsLicenseNotice)
	assert.Equal(t, "notice", mit1.Category())

	tmpl := ruleByID(c, "mit_copyright_1")
	require.NotNil(t, tmpl)
	assert.Equal(t, 80, tmpl.Relevance)
	assert.Equal(t, 100, tmpl.MinimumCoverage)
	assert.Contains(t, tmpl.Text, "{{YEAR}}")

	fp := ruleByID(c, "false-positive_mit_1")
	require.NotNil(t, fp)
	assert.True(t, fp.IsFalsePositive)
	assert.Empty(t, fp.LicenseExpression)

	mit := c.Licenses["mit"]
	require.NotNil(t, mit)
	assert.Equal(t, "MIT", mit.SPDXLicenseKey)
	assert.Contains(t, mit.Text, "Permission is hereby granted")

	exc := c.Licenses["classpath-exception-2.0"]
	require.NotNil(t, exc)
	assert.True(t, exc.IsException)
	assert.Empty(t, exc.Text)

	assert.Equal(t, 30, c.Licenses["gpl-2.0"].MinimumCoverage)
	assert.NoError(t, c.Validate())
}

func TestLoadCorpus_FingerprintStableAndSensitive(t *testing.T) {
	rulesDir, licensesDir := copyTestdata(t)

	a, err := LoadCorpus(rulesDir, licensesDir)
	require.NoError(t, err)
	b, err := LoadCorpus(rulesDir, licensesDir)
	require.NoError(t, err)
	assert.Equal(t, a.Fingerprint, b.Fingerprint)

	require.NoError(t, os.WriteFile(filepath.Join(rulesDir, "mit_1.RULE"), []byte("Permission is granted\n"), 0o644))
	c, err := LoadCorpus(rulesDir, licensesDir)
	require.NoError(t, err)
	assert.NotEqual(t, a.Fingerprint, c.Fingerprint)
}

func TestLoadCorpus_MissingSidecar(t *testing.T) {
	rulesDir, licensesDir := copyTestdata(t)
	require.NoError(t, os.Remove(filepath.Join(rulesDir, "mit_1.yml")))

	_, err := LoadCorpus(rulesDir, licensesDir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRule))

	var ce *CorpusError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "mit_1", ce.Identifier)
}

func TestLoadCorpus_MissingDir(t *testing.T) {
	_, err := LoadCorpus(filepath.Join(t.TempDir(), "nope"), "")
	assert.Error(t, err)
}

func TestAllRules_AddsLicenseTextRules(t *testing.T) {
	c, err := LoadCorpus("testdata/rules", "testdata/licenses")
	require.NoError(t, err)

	all := c.AllRules()
	require.Len(t, all, 5)
	last := all[len(all)-1]
	assert.Equal(t, "mit.LICENSE", last.Identifier)
	assert.Equal(t, "mit", last.LicenseExpression)
	assert.True(t, last.IsLicenseText)
}

// =============================================================================
// Validation
// =============================================================================

func TestValidate_UnknownLicenseKey(t *testing.T) {
	c := &Corpus{
		Rules:    []*Rule{NewRule("x_1", "mit OR apache-2.0", "some text")},
		Licenses: map[string]*License{"mit": {Key: "mit"}},
	}
	err := c.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownLicenseKey)
	assert.Contains(t, err.Error(), "apache-2.0")
}

func TestValidate_MultipleCategories(t *testing.T) {
	r := NewRule("x_1", "mit", "some text")
	r.IsLicenseTag = true
	r.IsLicenseNotice = true
	c := &Corpus{Rules: []*Rule{r}, Licenses: map[string]*License{"mit": {Key: "mit"}}}
	assert.ErrorIs(t, c.Validate(), ErrMultipleCategories)
}

func TestValidate_DuplicateIdentifier(t *testing.T) {
	c := &Corpus{
		Rules: []*Rule{
			NewRule("x_1", "mit", "one"),
			NewRule("x_1", "mit", "two"),
		},
		Licenses: map[string]*License{"mit": {Key: "mit"}},
	}
	assert.ErrorIs(t, c.Validate(), ErrDuplicateRule)
}

func TestValidate_RangesAndExpression(t *testing.T) {
	bad := NewRule("x_1", "mit AND", "text")
	bad.Relevance = 120
	errs := ValidateRule(bad, nil)
	require.Len(t, errs, 2)
	assert.ErrorIs(t, errs[0], ErrInvalidRule)
	assert.ErrorIs(t, errs[1], ErrBadExpression)
}

func TestValidate_FalsePositiveNeedsNoExpression(t *testing.T) {
	r := NewRule("fp_1", "", "text")
	r.IsFalsePositive = true
	assert.Empty(t, ValidateRule(r, nil))

	r.IsFalsePositive = false
	assert.Len(t, ValidateRule(r, nil), 1)
}

func TestValidate_EmptyCorpus(t *testing.T) {
	assert.ErrorIs(t, (&Corpus{}).Validate(), ErrEmptyCorpus)
}

func TestCheckGaps(t *testing.T) {
	r := NewRule("x_1", "mit", "")
	r.Length = 3
	r.Gaps = span.New(0, 1)
	assert.NoError(t, CheckGaps(r))

	r.Gaps = span.New(2)
	assert.ErrorIs(t, CheckGaps(r), ErrGapOutOfRange)
}

// =============================================================================
// Thresholds
// =============================================================================

func TestSetThresholds(t *testing.T) {
	tiny := &Rule{Length: 4, HighLength: 3}
	tiny.SetThresholds()
	assert.True(t, tiny.IsSmall)
	assert.Equal(t, 4, tiny.MinMatchLength)
	assert.Equal(t, 3, tiny.MinHighLength)

	mid := &Rule{Length: 20, HighLength: 12}
	mid.SetThresholds()
	assert.False(t, mid.IsSmall)
	assert.Equal(t, 10, mid.MinMatchLength)
	assert.Equal(t, 12, mid.MinHighLength)

	long := &Rule{Length: 200, HighLength: 120}
	long.SetThresholds()
	assert.Equal(t, MinMatchLength, long.MinMatchLength)
	assert.Equal(t, MinMatchHighLength, long.MinHighLength)
}

func TestClone_IsIndependent(t *testing.T) {
	r := NewRule("x_1", "mit", "text")
	r.Tokens = []uint32{1, 2}
	c := r.Clone()
	c.Tokens[0] = 9
	c.Relevance = 5
	assert.Equal(t, uint32(1), r.Tokens[0])
	assert.Equal(t, DefaultRelevance, r.Relevance)
}
