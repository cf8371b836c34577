package match

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/licscan/internal/adapters/ahocorasick"
	"github.com/corey/licscan/internal/domain/index"
	"github.com/corey/licscan/internal/domain/models"
)

// corpusOf wraps rules in a corpus that knows every license key they use.
func corpusOf(t *testing.T, rules ...*models.Rule) *models.Corpus {
	t.Helper()
	licenses := make(map[string]*models.License)
	for _, r := range rules {
		if r.LicenseExpression == "" {
			continue
		}
		e, err := models.ParseExpression(r.LicenseExpression)
		require.NoError(t, err)
		for _, k := range e.Keys() {
			licenses[k] = &models.License{Key: k}
		}
	}
	return &models.Corpus{Rules: rules, Licenses: licenses, Fingerprint: "sha256:test"}
}

func notice(id, expr, text string) *models.Rule {
	r := models.NewRule(id, expr, text)
	r.IsLicenseNotice = true
	return r
}

func newEngine(t *testing.T, rules ...*models.Rule) *Engine {
	t.Helper()
	idx, err := index.Build(corpusOf(t, rules...), index.Options{ScannerFactory: ahocorasick.Factory})
	require.NoError(t, err)
	return NewEngine(idx, Options{})
}

// terms returns distinct made-up legal words term<from>..term<to-1>.
func terms(from, to int) string {
	words := make([]string, 0, to-from)
	for i := from; i < to; i++ {
		words = append(words, fmt.Sprintf("term%02d", i))
	}
	return strings.Join(words, " ")
}

func mit1() *models.Rule {
	return notice("mit_1", "mit", "Permission is hereby granted")
}

func copyrightRule() *models.Rule {
	return notice("copyright_1", "mit", "Copyright {{YEAR}} by {{NAME}}. All rights reserved.")
}

func smallCorpus() []*models.Rule {
	apache := models.NewRule("apache-2.0_ref", "apache-2.0", "Apache License 2.0")
	apache.IsLicenseReference = true
	return []*models.Rule{
		mit1(),
		notice("gpl-2.0_1", "gpl-2.0", "Licensed under the GNU General Public License version 2"),
		apache,
		copyrightRule(),
	}
}

func assertSpanInvariants(t *testing.T, res *Result) {
	t.Helper()
	for _, m := range res.Matches {
		require.False(t, m.QSpan.IsEmpty(), m.String())
		assert.Equal(t, m.QSpan.Len(), m.ISpan.Len(), m.String())
		assert.GreaterOrEqual(t, m.ISpan.Start(), 0, m.String())
		assert.Less(t, m.ISpan.End(), m.Rule.Length, m.String())
		assert.True(t, m.HISpan.IsSubsetOf(m.ISpan), m.String())
		assert.GreaterOrEqual(t, m.Coverage(), float64(m.Rule.MinimumCoverage), m.String())
		assert.LessOrEqual(t, m.Coverage(), 100.0, m.String())
	}
	for i := range res.Matches {
		for j := i + 1; j < len(res.Matches); j++ {
			assert.False(t, res.Matches[i].QSpan.Intersects(res.Matches[j].QSpan),
				"%s overlaps %s", res.Matches[i], res.Matches[j])
		}
	}
}

// =============================================================================
// Scenarios
// =============================================================================

func TestMatch_ExactRuleIsHashMatch(t *testing.T) {
	e := newEngine(t, mit1())
	res := e.MatchText(context.Background(), "Permission is hereby granted")

	require.Len(t, res.Matches, 1)
	m := res.Matches[0]
	assert.Equal(t, "mit_1", m.Rule.Identifier)
	assert.Equal(t, KindHash, m.Matcher)
	assert.Equal(t, 100.0, m.Coverage())
	assert.Equal(t, 100.0, m.Score())
	assert.False(t, res.Truncated)
}

func TestMatch_RulePrefixOfQueryIsSeqMatch(t *testing.T) {
	e := newEngine(t, mit1())
	res := e.MatchText(context.Background(), "Permission is hereby granted free of charge")

	require.Len(t, res.Matches, 1)
	m := res.Matches[0]
	assert.Equal(t, KindSeq, m.Matcher)
	assert.Equal(t, 100.0, m.Coverage())
	assert.Equal(t, 0, m.QSpan.Start())
	assert.Equal(t, 3, m.QSpan.End())
}

func TestMatch_SeqMatchInsideText(t *testing.T) {
	e := newEngine(t, mit1())
	res := e.MatchText(context.Background(), "Some header text\nPermission is hereby granted to use.\n")

	require.Len(t, res.Matches, 1)
	d := res.Matches[0].Detection(res.Query, false)
	assert.Equal(t, "mit_1", d.RuleIdentifier)
	assert.Equal(t, "mit", d.LicenseExpression)
	assert.Equal(t, 2, d.StartLine)
	assert.Equal(t, 2, d.EndLine)
	assert.Equal(t, 3, d.StartToken)
	assert.Equal(t, 6, d.EndToken)
	assert.Equal(t, "seq", d.Matcher)
	assert.Empty(t, d.MatchedText)
}

func TestMatch_TemplateIsChunkMatch(t *testing.T) {
	e := newEngine(t, copyrightRule())
	res := e.MatchText(context.Background(), "Copyright 2020 by Jane Doe. All rights reserved.")

	require.Len(t, res.Matches, 1)
	m := res.Matches[0]
	assert.Equal(t, KindChunk, m.Matcher)
	assert.Equal(t, 100.0, m.Coverage())
	assert.Equal(t, []int{0, 2, 5, 6, 7}, m.QSpan.Positions())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, m.ISpan.Positions())

	qtext, itext := m.Texts(res.Query)
	assert.Equal(t, "Copyright <no-match> by <no-match> <no-match> All rights reserved", qtext)
	assert.Equal(t, "copyright <gap> by <gap> all rights reserved", itext)
}

func TestMatch_SeqExtendsOverJunkOnBothEnds(t *testing.T) {
	e := newEngine(t, notice("grant_1", "mit", "the software is licensed under the terms of this permission to you"))
	res := e.MatchText(context.Background(),
		"Note: the software is licensed under the terms of this permission to you today.")

	require.Len(t, res.Matches, 1)
	m := res.Matches[0]
	assert.Equal(t, KindSeq, m.Matcher)
	assert.Equal(t, 100.0, m.Coverage())
	assert.Equal(t, 1, m.QSpan.Start())
	assert.Equal(t, 12, m.QSpan.End())
	assert.Less(t, m.HISpan.Len(), m.ISpan.Len())
}

func TestMatch_UnindexedLegalTextIsUnknown(t *testing.T) {
	long := models.NewRule("long_1", "gpl-2.0", terms(0, 60))
	long.IsLicenseText = true
	e := newEngine(t, mit1(), long)

	res := e.MatchText(context.Background(), "Preamble.\n"+terms(10, 36))

	require.Len(t, res.Matches, 1)
	m := res.Matches[0]
	assert.Equal(t, KindUnknown, m.Matcher)
	assert.Equal(t, UnknownExpression, m.Rule.LicenseExpression)
	assert.True(t, m.Rule.IsUnknown)
	assert.True(t, strings.HasPrefix(m.Rule.Identifier, "unknown-"))
	assert.Equal(t, 1, m.QSpan.Start())
	assert.Equal(t, 26, m.QSpan.End())
	assert.Equal(t, 100.0, m.Coverage())
	assert.Equal(t, float64(DefaultUnknownRelevance), m.Score())
	assertSpanInvariants(t, res)
}

func TestMatch_UnknownNeedsEnoughTokens(t *testing.T) {
	long := models.NewRule("long_1", "gpl-2.0", terms(0, 60))
	e := newEngine(t, long)

	res := e.MatchText(context.Background(), terms(10, 30))
	assert.Empty(t, res.Matches)
}

func TestMatch_UnknownNeedsScanner(t *testing.T) {
	long := models.NewRule("long_1", "gpl-2.0", terms(0, 60))
	idx, err := index.Build(corpusOf(t, long), index.Options{})
	require.NoError(t, err)

	res := NewEngine(idx, Options{}).MatchText(context.Background(), terms(10, 36))
	assert.Empty(t, res.Matches)
}

// =============================================================================
// Properties
// =============================================================================

func TestMatch_EveryRuleFindsItself(t *testing.T) {
	rules := smallCorpus()
	e := newEngine(t, rules...)

	for _, r := range rules {
		t.Run(r.Identifier, func(t *testing.T) {
			indexed, ok := e.Index().RuleByIdentifier(r.Identifier)
			require.True(t, ok)

			res := e.MatchText(context.Background(), r.Text)
			require.Len(t, res.Matches, 1)
			m := res.Matches[0]
			assert.Equal(t, r.Identifier, m.Rule.Identifier)
			assert.Equal(t, 100.0, m.Coverage())
			if indexed.HasGaps() {
				assert.Contains(t, []Kind{KindSeq, KindChunk}, m.Matcher)
			} else {
				assert.Equal(t, KindHash, m.Matcher)
			}
		})
	}
}

func TestMatch_FalsePositiveTextYieldsNothing(t *testing.T) {
	tag := models.NewRule("mit_tag_1", "mit", "MIT License")
	tag.IsLicenseTag = true
	fp := models.NewRule("false-positive_1", "", "the MIT License plate number")
	fp.IsFalsePositive = true
	e := newEngine(t, tag, fp)

	assert.Empty(t, e.MatchText(context.Background(), fp.Text).Matches)
	assert.Empty(t, e.MatchText(context.Background(), "see the MIT License plate number here").Matches)

	res := e.MatchText(context.Background(), "released under the MIT License")
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "mit_tag_1", res.Matches[0].Rule.Identifier)
}

func TestMatch_SeveralLicensesInOrder(t *testing.T) {
	e := newEngine(t, smallCorpus()...)
	res := e.MatchText(context.Background(),
		"Permission is hereby granted.\nLicensed under the GNU General Public License version 2\n")

	require.Len(t, res.Matches, 2)
	assert.Equal(t, "mit_1", res.Matches[0].Rule.Identifier)
	assert.Equal(t, "gpl-2.0_1", res.Matches[1].Rule.Identifier)
	assert.Equal(t, []string{"mit", "gpl-2.0"}, res.Expressions())

	ds := res.Detections(true)
	assert.Equal(t, 1, ds[0].StartLine)
	assert.Equal(t, 2, ds[1].StartLine)
	assert.Equal(t, "Licensed under the GNU General Public License version 2", ds[1].MatchedText)
	assertSpanInvariants(t, res)
}

func TestMatch_RepeatedNoticeMatchesTwice(t *testing.T) {
	e := newEngine(t, mit1())
	res := e.MatchText(context.Background(),
		"Permission is hereby granted. Permission is hereby granted.")

	require.Len(t, res.Matches, 2)
	assert.Equal(t, 0, res.Matches[0].QSpan.Start())
	assert.Equal(t, 4, res.Matches[1].QSpan.Start())
	assertSpanInvariants(t, res)
}

func TestMatch_MinimumCoverage(t *testing.T) {
	long := models.NewRule("long_1", "gpl-2.0", terms(0, 40))
	e := newEngine(t, long)
	res := e.MatchText(context.Background(), terms(0, 20))
	require.Len(t, res.Matches, 1)
	assert.Equal(t, 50.0, res.Matches[0].Coverage())

	strict := models.NewRule("long_1", "gpl-2.0", terms(0, 40))
	strict.MinimumCoverage = 60
	e = newEngine(t, strict)
	assert.Empty(t, e.MatchText(context.Background(), terms(0, 20)).Matches)
}

func TestMatch_NoRunsNoMatches(t *testing.T) {
	e := newEngine(t, mit1())
	res := e.MatchText(context.Background(), "nothing to see here")
	assert.Empty(t, res.Matches)
	assert.False(t, res.Truncated)
	assert.Empty(t, e.MatchText(context.Background(), "").Matches)
}

func TestMatch_Deterministic(t *testing.T) {
	e := newEngine(t, smallCorpus()...)
	text := "Copyright 2021 by Acme. All rights reserved.\n" +
		"Permission is hereby granted.\n" +
		"Licensed under the GNU General Public License version 2 or the Apache License 2.0\n"

	want := e.MatchText(context.Background(), text).Detections(true)
	require.NotEmpty(t, want)

	var wg sync.WaitGroup
	got := make([][]Detection, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = e.MatchText(context.Background(), text).Detections(true)
		}(i)
	}
	wg.Wait()
	for _, g := range got {
		assert.Equal(t, want, g)
	}
}

// =============================================================================
// Deadlines
// =============================================================================

func TestMatch_CancelledContextTruncates(t *testing.T) {
	e := newEngine(t, mit1())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := e.MatchText(ctx, "Permission is hereby granted")
	assert.True(t, res.Truncated)
	assert.Empty(t, res.Matches)
}

func TestMatch_PastDeadlineTruncates(t *testing.T) {
	e := newEngine(t, mit1())
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	res := e.MatchText(ctx, "Permission is hereby granted")
	assert.True(t, res.Truncated)
}

// countdownCtx reports itself done after its first n Err calls.
type countdownCtx struct {
	context.Context
	mu sync.Mutex
	n  int
}

func (c *countdownCtx) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.n <= 0 {
		return context.DeadlineExceeded
	}
	c.n--
	return nil
}

func TestMatch_DeadlineMidStageKeepsScoredMatches(t *testing.T) {
	e := newEngine(t, smallCorpus()...)
	text := "Permission is hereby granted. Licensed under the GNU General Public License version 2"

	full := e.MatchText(context.Background(), text)
	require.False(t, full.Truncated)
	require.Len(t, full.Matches, 2)

	partial := false
	for n := 1; ; n++ {
		require.Less(t, n, 1000, "matching never finished")
		res := e.MatchText(&countdownCtx{Context: context.Background(), n: n}, text)
		assertSpanInvariants(t, res)
		for _, m := range res.Matches {
			assert.True(t, keep(m), m.String())
			assert.Equal(t, 100.0, m.Coverage(), m.String())
			assert.Equal(t, m.Coverage()*float64(m.Rule.Relevance)/100, m.Score(), m.String())
		}
		if !res.Truncated {
			assert.Equal(t, full.Detections(false), res.Detections(false))
			break
		}
		if len(res.Matches) > 0 {
			partial = true
			assert.Less(t, len(res.Matches), len(full.Matches))
		}
	}
	assert.True(t, partial, "no deadline fell between two matches")
}

func TestMatch_TimeoutOption(t *testing.T) {
	idx := newEngine(t, mit1()).Index()
	e := NewEngine(idx, Options{Timeout: time.Minute})
	res := e.MatchText(context.Background(), "Permission is hereby granted")
	assert.False(t, res.Truncated)
	assert.Len(t, res.Matches, 1)
}

func TestDefaultOptions(t *testing.T) {
	o := DefaultOptions()
	assert.Equal(t, DefaultSetMinRatio, o.SetMinRatio)
	assert.Equal(t, DefaultMaxCandidates, o.MaxCandidates)
	assert.Equal(t, DefaultMaxGapSkip, o.MaxGapSkip)
	assert.Equal(t, DefaultMaxMergeDistance, o.MaxMergeDistance)
	assert.Equal(t, DefaultUnknownMinFactor, o.UnknownMinFactor)
	assert.Equal(t, DefaultMinUnknownHigh, o.MinUnknownHigh)
	assert.Equal(t, DefaultUnknownRelevance, o.UnknownRelevance)
	assert.Zero(t, o.Timeout)

	custom := NewEngine(nil, Options{MaxGapSkip: 3}).Options()
	assert.Equal(t, 3, custom.MaxGapSkip)
	assert.Equal(t, DefaultMaxCandidates, custom.MaxCandidates)
}
