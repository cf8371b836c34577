package match

import (
	"strings"

	"github.com/corey/licscan/internal/domain/index"
	"github.com/corey/licscan/internal/domain/models"
)

// Placeholders used when rendering matched texts.
const (
	NoMatch = "<no-match>"
	Gap     = "<gap>"
)

// Detection is the reported form of a match.
type Detection struct {
	RuleIdentifier        string  `json:"rule_identifier"`
	RuleCategory          string  `json:"rule_category,omitempty"`
	LicenseExpression     string  `json:"license_expression"`
	SPDXLicenseExpression string  `json:"spdx_license_expression"`
	StartLine             int     `json:"start_line"`
	EndLine               int     `json:"end_line"`
	StartToken            int     `json:"start_token"`
	EndToken              int     `json:"end_token"`
	MatchedLength         int     `json:"matched_length"`
	RuleLength            int     `json:"rule_length"`
	Coverage              float64 `json:"coverage"`
	Score                 float64 `json:"score"`
	Matcher               string  `json:"matcher"`
	MatchedText           string  `json:"matched_text,omitempty"`
	RuleText              string  `json:"rule_text,omitempty"`
}

// Detection describes m as found in q. With diagnostics set, the matched
// query and rule texts are included.
func (m *LicenseMatch) Detection(q *index.Query, diagnostics bool) Detection {
	start, end := q.Lines(m.QSpan)
	d := Detection{
		RuleIdentifier:        m.Rule.Identifier,
		RuleCategory:          m.Rule.Category(),
		LicenseExpression:     m.Rule.LicenseExpression,
		SPDXLicenseExpression: SPDXExpression(q.Index(), m.Rule.LicenseExpression),
		StartLine:             start,
		EndLine:               end,
		StartToken:            m.QSpan.Start(),
		EndToken:              m.QSpan.End(),
		MatchedLength:         m.Len(),
		RuleLength:            m.Rule.Length,
		Coverage:              m.Coverage(),
		Score:                 m.Score(),
		Matcher:               m.Matcher.String(),
	}
	if diagnostics {
		d.MatchedText, d.RuleText = m.Texts(q)
	}
	return d
}

// Texts renders the matched query text and the matched rule text. Unmatched
// positions inside the match show as NoMatch, rule template gaps as Gap.
func (m *LicenseMatch) Texts(q *index.Query) (string, string) {
	qtext := q.Text(m.QSpan, NoMatch)

	vocab := q.Index().Vocabulary()
	var b strings.Builder
	for i := m.ISpan.Start(); i <= m.ISpan.End(); i++ {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		if m.ISpan.Contains(i) {
			b.WriteString(vocab.Token(m.Rule.Tokens[i]))
		} else {
			b.WriteString(NoMatch)
		}
		if i < m.ISpan.End() && m.Rule.Gaps.Contains(i) {
			b.WriteString(" " + Gap)
		}
	}
	return qtext, b.String()
}

// Detections describes every match of the result.
func (r *Result) Detections(diagnostics bool) []Detection {
	out := make([]Detection, len(r.Matches))
	for i, m := range r.Matches {
		out[i] = m.Detection(r.Query, diagnostics)
	}
	return out
}

// Expressions returns the distinct license expressions found, in match
// order.
func (r *Result) Expressions() []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range r.Matches {
		if e := m.Rule.LicenseExpression; !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	return out
}

// SPDXRefPrefix names license keys that have no SPDX identifier.
const SPDXRefPrefix = "LicenseRef-licscan-"

// SPDXExpression renders a license expression with every key replaced by
// its SPDX identifier. Keys the index does not know, or that have no SPDX
// identifier, become SPDXRefPrefix+key. An expression that does not parse
// is returned unchanged.
func SPDXExpression(idx *index.LicenseIndex, expr string) string {
	e, err := models.ParseExpression(expr)
	if err != nil {
		return expr
	}
	return spdx(idx, e).String()
}

func spdx(idx *index.LicenseIndex, e *models.Expression) *models.Expression {
	return e.Rename(func(key string) string {
		if idx != nil {
			if l, ok := idx.License(key); ok && l.SPDXLicenseKey != "" {
				return l.SPDXLicenseKey
			}
		}
		return SPDXRefPrefix + key
	})
}

// GroupLineGap is the most lines between two matches reported in the same
// group.
const GroupLineGap = 4

// Group is a stretch of nearby matches reported as one license statement,
// their expressions combined with AND.
type Group struct {
	LicenseExpression     string   `json:"license_expression"`
	SPDXLicenseExpression string   `json:"spdx_license_expression"`
	StartLine             int      `json:"start_line"`
	EndLine               int      `json:"end_line"`
	RuleIdentifiers       []string `json:"rule_identifiers"`
}

type group struct {
	start, end int
	rules      []string
	exprs      []*models.Expression
	unknown    bool
}

func (g *group) add(m *LicenseMatch, end int) {
	g.rules = append(g.rules, m.Rule.Identifier)
	if end > g.end {
		g.end = end
	}
	e, err := models.ParseExpression(m.Rule.LicenseExpression)
	if err != nil {
		return
	}
	// an unknown intro gives way to the license that follows it
	if g.unknown && !m.Rule.IsUnknown {
		g.exprs = g.exprs[:0]
		g.unknown = false
	}
	if len(g.exprs) == 0 {
		g.unknown = m.Rule.IsUnknown
	}
	if m.Rule.IsUnknown && !g.unknown {
		return
	}
	g.exprs = append(g.exprs, e)
}

// Groups splits the matches into groups: a match starting more than
// GroupLineGap lines after the previous group ends opens a new one. An
// unknown match grouped with known ones adds nothing to the expression.
func (r *Result) Groups() []Group {
	groups := r.groups()
	out := make([]Group, len(groups))
	if len(groups) == 0 {
		return out
	}
	idx := r.Query.Index()
	for i, g := range groups {
		out[i] = Group{StartLine: g.start, EndLine: g.end, RuleIdentifiers: g.rules}
		if e := models.Combine(g.exprs...); e != nil {
			out[i].LicenseExpression = e.String()
			out[i].SPDXLicenseExpression = spdx(idx, e).String()
		}
	}
	return out
}

func (r *Result) groups() []*group {
	var groups []*group
	var cur *group
	for _, m := range r.Matches {
		start, end := r.Query.Lines(m.QSpan)
		if cur == nil || start-cur.end > GroupLineGap {
			cur = &group{start: start, end: end}
			groups = append(groups, cur)
		}
		cur.add(m, end)
	}
	return groups
}

// LicenseExpression combines the expressions of every group with AND. The
// SPDX form is returned second. Both are "" when nothing matched.
func (r *Result) LicenseExpression() (string, string) {
	var exprs []*models.Expression
	for _, g := range r.groups() {
		exprs = append(exprs, g.exprs...)
	}
	e := models.Combine(exprs...)
	if e == nil {
		return "", ""
	}
	return e.String(), spdx(r.Query.Index(), e).String()
}
