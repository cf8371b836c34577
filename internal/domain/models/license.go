package models

// License is the canonical entity for one license key.
type License struct {
	Key             string
	Name            string
	ShortName       string
	Category        string
	Owner           string
	SPDXLicenseKey  string
	IsException     bool
	IsDeprecated    bool
	MinimumCoverage int
	Text            string
}

// TextRuleSuffix is appended to a license key to name its full-text rule.
const TextRuleSuffix = ".LICENSE"

// TextRule returns the rule matching the license's full text, or nil when
// the license has no text.
func (l *License) TextRule() *Rule {
	if l.Text == "" {
		return nil
	}
	r := NewRule(l.Key+TextRuleSuffix, l.Key, l.Text)
	r.IsLicenseText = true
	r.MinimumCoverage = l.MinimumCoverage
	return r
}
