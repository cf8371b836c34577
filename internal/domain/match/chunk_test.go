package match

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/licscan/internal/domain/models"
)

func redistributionRule() *models.Rule {
	return notice("tpl_1", "bsd-new", "Redistribution of this software {{NAME}} requires written permission granted")
}

// seg aligns n query positions from q with n rule positions from i.
func seg(q, i, n int) segment {
	var s segment
	for k := 0; k < n; k++ {
		s.q = append(s.q, q+k)
		s.i = append(s.i, i+k)
	}
	return s
}

func TestStitch_TemplateGapBound(t *testing.T) {
	e := newEngine(t, redistributionRule())
	r, ok := e.Index().RuleByIdentifier("tpl_1")
	require.True(t, ok)
	require.Equal(t, 8, r.Length)
	require.True(t, r.Gaps.Contains(3))
	skip := e.Options().MaxGapSkip

	ms := e.stitch(r, []segment{seg(0, 0, 4), seg(4+skip, 4, 4)})
	require.Len(t, ms, 1)
	assert.Equal(t, KindChunk, ms[0].Matcher)
	assert.Equal(t, 100.0, ms[0].Coverage())

	ms = e.stitch(r, []segment{seg(0, 0, 4), seg(5+skip, 4, 4)})
	require.Len(t, ms, 2)
	assert.Equal(t, 50.0, ms[0].Coverage())
	assert.Equal(t, 50.0, ms[1].Coverage())
}

func TestStitch_PlainHoleBound(t *testing.T) {
	e := newEngine(t, redistributionRule())
	r, _ := e.Index().RuleByIdentifier("tpl_1")
	dist := e.Options().MaxMergeDistance

	// rule positions 5 and 6 are not separated by a gap
	ms := e.stitch(r, []segment{seg(0, 4, 2), seg(2+dist, 6, 2)})
	require.Len(t, ms, 1)
	assert.Equal(t, 4, ms[0].Len())

	ms = e.stitch(r, []segment{seg(0, 4, 2), seg(3+dist, 6, 2)})
	assert.Len(t, ms, 2)
}

func TestStitch_SkipsContainedSegments(t *testing.T) {
	e := newEngine(t, redistributionRule())
	r, _ := e.Index().RuleByIdentifier("tpl_1")

	ms := e.stitch(r, []segment{seg(0, 0, 4), seg(1, 1, 2)})
	require.Len(t, ms, 1)
	assert.Equal(t, []int{0, 1, 2, 3}, ms[0].QSpan.Positions())
}

func TestMatch_TemplatePartsFarApartStayApart(t *testing.T) {
	long := models.NewRule("long_1", "gpl-2.0", terms(0, 60))
	long.IsLicenseText = true
	e := newEngine(t, redistributionRule(), long)

	res := e.MatchText(context.Background(),
		"Redistribution of this software "+terms(0, 60)+" requires written permission granted")

	assert.Contains(t, identifiers(res.Matches), "long_1")
	for _, m := range res.Matches {
		if m.Rule.Identifier == "tpl_1" {
			assert.Less(t, m.Coverage(), 100.0, m.String())
		}
	}
	assertSpanInvariants(t, res)
}

func TestMatch_TemplateGapAbsorbsFewTokens(t *testing.T) {
	e := newEngine(t, redistributionRule())

	res := e.MatchText(context.Background(),
		"Redistribution of this software by Example Corp and its many contributors requires written permission granted")

	require.Len(t, res.Matches, 1)
	m := res.Matches[0]
	assert.Equal(t, "tpl_1", m.Rule.Identifier)
	assert.Equal(t, KindChunk, m.Matcher)
	assert.Equal(t, 100.0, m.Coverage())
	assertSpanInvariants(t, res)
}
