package ats

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvcraft/internal/resume"
)

func emptyDocument() *resume.Document {
	return &resume.Document{
		Summary:    "",
		Experience: []resume.Experience{},
		Education:  []resume.Education{},
		Skills:     []string{},
		Projects:   []resume.Project{},
	}
}

// scenarioDocument has an 80 character summary mentioning "led" and "shipped",
// one dated role with three quantified action-verb bullets, five skills used
// in the summary, one complete education entry and no projects.
func scenarioDocument() *resume.Document {
	base := "Engineer who led teams and shipped go, python, sql, docker and kubernetes"
	return &resume.Document{
		Basics: resume.Basics{
			FullName: "Jamie Doe",
			Headline: "Backend Engineer",
			Email:    "jamie@example.com",
			Phone:    "555-0100",
			Location: "Berlin",
		},
		Summary: base + strings.Repeat(".", 80-len(base)),
		Experience: []resume.Experience{{
			ID:        "exp-1",
			Company:   "Acme",
			Role:      "Engineer",
			StartDate: "2021-01",
			EndDate:   "",
			Bullets: []string{
				"Built 3 services for payments",
				"Automated 12 deploy pipelines",
				"Migrated 4 databases to postgres",
			},
		}},
		Education: []resume.Education{{ID: "edu-1", Institution: "MIT", Degree: "BSc"}},
		Skills:    []string{"Go", "Python", "SQL", "Docker", "Kubernetes"},
		Projects:  []resume.Project{},
	}
}

func TestNilDocumentIsInvalid(t *testing.T) {
	var invalid *resume.InvalidDocumentError

	_, err := ComputeBreakdown(nil)
	assert.True(t, errors.As(err, &invalid))

	_, err = ComputeReadiness(nil)
	assert.True(t, errors.As(err, &invalid))

	_, err = ScoreResume(nil)
	assert.True(t, errors.As(err, &invalid))

	_, err = IsReadyForExport(nil)
	assert.True(t, errors.As(err, &invalid))

	_, err = SectionTips(nil)
	assert.True(t, errors.As(err, &invalid))
}

func TestCollectText(t *testing.T) {
	doc := resume.Document{
		Summary:    "Hello World",
		Experience: []resume.Experience{{Role: "Dev", Company: "ACME", Bullets: []string{"Built X", "Ran Y"}}},
		Projects:   []resume.Project{{Name: "Tool", Description: "CLI", Bullets: []string{"Shipped"}}},
		Skills:     []string{"Go", "SQL"},
	}
	assert.Equal(t, "hello world dev acme built x ran y tool cli shipped go sql", CollectText(doc))

	assert.Equal(t, "   ", CollectText(resume.Document{}))
}

func TestMatchSkills(t *testing.T) {
	matched, missing, coverage := MatchSkills("i write python every day", []string{"Python", "Go"})
	assert.Equal(t, []string{"python"}, matched)
	assert.Equal(t, []string{"go"}, missing)
	assert.InDelta(t, 0.5, coverage, 1e-9)

	_, _, coverage = MatchSkills("anything", nil)
	assert.Zero(t, coverage)

	matched, missing, coverage = MatchSkills("go", []string{"", "Go"})
	assert.Equal(t, []string{"go"}, matched)
	assert.Empty(t, missing)
	assert.InDelta(t, 0.5, coverage, 1e-9)

	many := make([]string, 15)
	for i := range many {
		many[i] = fmt.Sprintf("skill-%d", i)
	}
	_, missing, _ = MatchSkills("", many)
	assert.Len(t, missing, 10)
}

func TestEmptyDocumentFloor(t *testing.T) {
	b, err := ComputeBreakdown(emptyDocument())
	require.NoError(t, err)

	assert.Zero(t, b.ExperienceQuality.Score)
	assert.Zero(t, b.KeywordCoverage.Score)
	assert.Zero(t, b.SectionCompleteness.Score)
	assert.Equal(t, []string{IssueNoExperience}, b.ExperienceQuality.Issues)
	assert.Equal(t, ExperienceDetails{}, b.ExperienceQuality.Details)

	// Only the contact deduction applies: 20 - 4.
	assert.Equal(t, 16.0, b.FormattingSignals.Score)
	assert.Equal(t, []string{WarningContact}, b.FormattingSignals.Warnings)
	assert.Equal(t, 16, b.TotalScore)
	assert.Equal(t, []string{"basics", "summary", "experience", "education", "skills", "projects"}, b.SectionCompleteness.MissingSections)

	r, err := ComputeReadiness(emptyDocument())
	require.NoError(t, err)
	assert.False(t, r.Ready())
	assert.Zero(t, r.CompletenessScore)
	assert.Equal(t, []string{MissingFullName, MissingHeadline, MissingSummary, MissingExperience, MissingSkills}, r.MissingSections)

	ready, err := IsReadyForExport(emptyDocument())
	require.NoError(t, err)
	assert.False(t, ready)
}

func TestZeroValueDocument(t *testing.T) {
	b, err := ComputeBreakdown(&resume.Document{})
	require.NoError(t, err)

	expected, err := ComputeBreakdown(emptyDocument())
	require.NoError(t, err)
	assert.Equal(t, expected, b)
}

func TestScenarioBreakdown(t *testing.T) {
	b, err := ComputeBreakdown(scenarioDocument())
	require.NoError(t, err)

	assert.Equal(t, []string{"projects"}, b.SectionCompleteness.MissingSections)
	assert.InDelta(t, 23.0, b.SectionCompleteness.Score, 1e-9)

	eq := b.ExperienceQuality
	assert.Equal(t, 3, eq.Details.TotalBullets)
	assert.Equal(t, 3, eq.Details.MetricBullets)
	assert.InDelta(t, 1.0, eq.Details.ActionVerbRatio, 1e-9)
	assert.InDelta(t, 1.0, eq.Details.DateCoverage, 1e-9)
	// 2.25 bullet volume + 6 verbs + 4 metrics + 4 dates
	assert.InDelta(t, 16.25, eq.Score, 1e-9)
	assert.Equal(t, []string{IssueFewBullets}, eq.Issues)

	kc := b.KeywordCoverage
	assert.InDelta(t, 1.0, kc.SkillCoverageRatio, 1e-9)
	assert.InDelta(t, 1.0, kc.CoverageRatio, 1e-9)
	// skills 20 + buckets (1/5 + 1/5) / 5 * 15
	assert.InDelta(t, 21.2, kc.Score, 1e-9)

	assert.Equal(t, 20.0, b.FormattingSignals.Score)
	assert.Len(t, b.FormattingSignals.Positive, 4)

	assert.Equal(t, Categories{Keywords: 21, Completeness: 23, Experience: 16, Formatting: 20}, b.Categories)
	// 21.2 + 23 + 16.25 + 20 = 80.45
	assert.Equal(t, 80, b.TotalScore)
}

func TestSampleBreakdown(t *testing.T) {
	b, err := ComputeBreakdown(resume.Sample())
	require.NoError(t, err)

	assert.Equal(t, 88, b.TotalScore)
	assert.Equal(t, Categories{Keywords: 24, Completeness: 25, Experience: 18, Formatting: 20}, b.Categories)
	assert.Empty(t, b.SectionCompleteness.MissingSections)
	assert.Empty(t, b.ExperienceQuality.Issues)
	assert.Empty(t, b.FormattingSignals.Warnings)

	assert.Equal(t, []string{
		`Work in keyword "improved" for ATS relevance.`,
		`Work in keyword "increased" for ATS relevance.`,
		`Work in keyword "accelerated" for ATS relevance.`,
		`Work in keyword "boosted" for ATS relevance.`,
		`Work in keyword "cut" for ATS relevance.`,
		`Work in keyword "optimized" for ATS relevance.`,
		`Work in keyword "shipped" for ATS relevance.`,
		`Work in keyword "launched" for ATS relevance.`,
	}, b.ImprovementAreas)

	score, err := ScoreResume(resume.Sample())
	require.NoError(t, err)
	assert.Equal(t, b.TotalScore, score)

	r, err := ComputeReadiness(resume.Sample())
	require.NoError(t, err)
	assert.True(t, r.Ready())
	assert.Equal(t, 100, r.CompletenessScore)
}

func TestBucketResultsOrder(t *testing.T) {
	kc := AnalyzeKeywords(resume.Document{Summary: "we shipped and deployed"})
	require.Len(t, kc.BucketResults, 5)
	assert.Equal(t, BucketNames(), []string{"impact", "delivery", "leadership", "collaboration", "quality"})

	delivery := kc.BucketResults[1]
	assert.Equal(t, "delivery", delivery.Bucket)
	assert.Equal(t, []string{"shipped", "deployed"}, delivery.Matches)
	assert.Equal(t, []string{"launched", "released", "delivered"}, delivery.Missing)
	assert.InDelta(t, 0.4, delivery.Ratio, 1e-9)

	// No skills: the coverage ratio falls back to the bucket average.
	assert.InDelta(t, 0.08, kc.CoverageRatio, 1e-9)
	assert.Len(t, kc.MissingKeywords, 10)
}

func TestKeywordMonotonicity(t *testing.T) {
	doc := scenarioDocument()
	doc.Skills = []string{"", "go"}
	before := AnalyzeKeywords(*doc).Score

	doc.Skills = append(doc.Skills, "python")
	after := AnalyzeKeywords(*doc).Score
	assert.Greater(t, after, before)

	capped := resume.Sample()
	start := AnalyzeKeywords(*capped).Score
	capped.Skills = append(capped.Skills, "microservices")
	assert.GreaterOrEqual(t, AnalyzeKeywords(*capped).Score, start)
}

func TestSectionCompleteness(t *testing.T) {
	doc := resume.Document{
		Basics:     resume.Basics{FullName: "A", Email: "a@b.c", Phone: "1", Location: "X"},
		Summary:    "   " + strings.Repeat("a", 49) + "   ",
		Experience: []resume.Experience{{Role: "Dev", Company: "Co", StartDate: "2020-01"}, {Role: "Dev", Company: "Co"}},
		Education:  []resume.Education{{Institution: "Uni", Degree: "BA"}},
		Skills:     []string{"", "", "", "", ""},
		Projects:   []resume.Project{{}},
	}
	sc := AnalyzeSections(doc)

	// Raw skill count is used, so five empty strings still fill the section.
	assert.Equal(t, []string{"summary", "experience"}, sc.MissingSections)
	assert.InDelta(t, 14.0, sc.Score, 1e-9)
	require.Len(t, sc.Sections, 6)
	assert.Equal(t, SectionStatus{Key: "basics", Weight: 6, Filled: true}, sc.Sections[0])
}

func TestExperienceQuality(t *testing.T) {
	doc := resume.Document{
		Experience: []resume.Experience{
			{StartDate: "2020-01", Bullets: []string{" Led the team", "Wrote 2 docs", "Shipped v2 in 3 weeks", "LED migration"}},
			{Bullets: []string{}},
		},
	}
	eq := AnalyzeExperience(doc)

	assert.Equal(t, 4, eq.Details.TotalBullets)
	assert.InDelta(t, 0.5, eq.Details.ActionVerbRatio, 1e-9)
	assert.Equal(t, 2, eq.Details.MetricBullets)
	assert.InDelta(t, 0.5, eq.Details.DateCoverage, 1e-9)
	// 3 + 3 + 2 + 2
	assert.InDelta(t, 10.0, eq.Score, 1e-9)
	assert.Equal(t, []string{IssueFewBullets, IssueActionVerbs, IssueDates}, eq.Issues)
}

func TestExperienceBulletVolumeCaps(t *testing.T) {
	bullets := make([]string, 12)
	for i := range bullets {
		bullets[i] = fmt.Sprintf("Delivered feature %d", i)
	}
	eq := AnalyzeExperience(resume.Document{Experience: []resume.Experience{{StartDate: "2022-02", Bullets: bullets}}})
	assert.InDelta(t, 20.0, eq.Score, 1e-9)
	assert.Empty(t, eq.Issues)
}

func TestFormattingSignals(t *testing.T) {
	tests := []struct {
		name     string
		doc      resume.Document
		score    float64
		positive []string
		warnings []string
	}{
		{
			name: "all positive overshoot clamps to 20",
			doc: resume.Document{
				Basics:     resume.Basics{Email: "e", Phone: "p", Location: "l"},
				Summary:    strings.Repeat("s", 80),
				Experience: []resume.Experience{{StartDate: "2020-12", Bullets: []string{strings.Repeat("b", 220)}}},
			},
			score:    20,
			positive: []string{SignalContact, SignalDates, SignalBullets, SignalSummary},
			warnings: []string{},
		},
		{
			name: "every check fails",
			doc: resume.Document{
				Summary:    "short",
				Experience: []resume.Experience{{StartDate: "2020-13", Bullets: []string{"too short"}}},
			},
			score:    4,
			positive: []string{},
			warnings: []string{WarningContact, WarningDates, WarningBullets, WarningSummary},
		},
		{
			name: "empty start dates give no date signal",
			doc: resume.Document{
				Basics:     resume.Basics{Email: "e", Phone: "p", Location: "l"},
				Experience: []resume.Experience{{Bullets: []string{strings.Repeat("b", 19)}}},
				Summary:    strings.Repeat("s", 601),
			},
			score:    13,
			positive: []string{SignalContact},
			warnings: []string{WarningBullets, WarningSummary},
		},
		{
			name: "lengths count characters not bytes",
			doc: resume.Document{
				Basics:     resume.Basics{Email: "e", Phone: "p", Location: "l"},
				Experience: []resume.Experience{{StartDate: "2020-01", Bullets: []string{strings.Repeat("é", 20)}}},
				Summary:    strings.Repeat("ü", 600),
			},
			score:    20,
			positive: []string{SignalContact, SignalDates, SignalBullets, SignalSummary},
			warnings: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := AnalyzeFormatting(tt.doc)
			assert.InDelta(t, tt.score, fs.Score, 1e-9)
			assert.Equal(t, tt.positive, fs.Positive)
			assert.Equal(t, tt.warnings, fs.Warnings)
		})
	}
}

func TestImprovementAreasCapAndOrder(t *testing.T) {
	doc := &resume.Document{
		Summary:    "tiny",
		Experience: []resume.Experience{{Bullets: []string{"x"}}},
	}
	b, err := ComputeBreakdown(doc)
	require.NoError(t, err)
	require.Len(t, b.ImprovementAreas, MaxImprovementAreas)
	for _, area := range b.ImprovementAreas {
		assert.True(t, strings.HasPrefix(area, "Work in keyword "), area)
	}

	areas := improvementAreas(
		KeywordCoverage{MissingSkills: []string{"go"}, MissingKeywords: []string{"led"}},
		SectionCompleteness{MissingSections: []string{"projects"}},
		ExperienceQuality{Issues: []string{IssueMetrics, ""}},
		FormattingSignals{Warnings: []string{WarningSummary}},
	)
	assert.Equal(t, []string{
		`Use skill "go" in your bullets.`,
		`Work in keyword "led" for ATS relevance.`,
		"Complete the projects section.",
		IssueMetrics,
		WarningSummary,
	}, areas)
}

func TestBoundsAcrossDocuments(t *testing.T) {
	docs := []*resume.Document{emptyDocument(), scenarioDocument(), resume.Sample(), {Summary: strings.Repeat("led shipped ", 200)}}
	for i, doc := range docs {
		b, err := ComputeBreakdown(doc)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, b.TotalScore, 0, "doc %d", i)
		assert.LessOrEqual(t, b.TotalScore, 100, "doc %d", i)
		assert.LessOrEqual(t, b.KeywordCoverage.Score, KeywordWeight)
		assert.LessOrEqual(t, b.SectionCompleteness.Score, CompletenessWeight)
		assert.LessOrEqual(t, b.ExperienceQuality.Score, ExperienceWeight)
		assert.LessOrEqual(t, b.FormattingSignals.Score, FormattingWeight)
		assert.LessOrEqual(t, len(b.ImprovementAreas), MaxImprovementAreas)

		r, err := ComputeReadiness(doc)
		require.NoError(t, err)
		assert.Contains(t, []int{0, 25, 50, 75, 100}, r.CompletenessScore)
	}
}

func TestDeterminismUnderConcurrency(t *testing.T) {
	doc := resume.Sample()
	want, err := ComputeBreakdown(doc)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]Breakdown, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = ComputeBreakdown(doc)
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestReadinessChecks(t *testing.T) {
	tests := []struct {
		name    string
		doc     resume.Document
		score   int
		missing []string
	}{
		{
			name:    "name without headline fails the identity check",
			doc:     resume.Document{Basics: resume.Basics{FullName: "  Ada  ", Headline: "   "}},
			score:   0,
			missing: []string{MissingHeadline, MissingSummary, MissingExperience, MissingSkills},
		},
		{
			name: "summary and skills pass",
			doc: resume.Document{
				Summary: "  " + strings.Repeat("x", 60) + "  ",
				Skills:  []string{"a", "b", "", "c", "d", "e"},
			},
			score:   50,
			missing: []string{MissingFullName, MissingHeadline, MissingExperience},
		},
		{
			name: "blank bullets do not count",
			doc: resume.Document{
				Basics:     resume.Basics{FullName: "Ada", Headline: "Analyst"},
				Experience: []resume.Experience{{Bullets: []string{"one", "   "}}, {Bullets: []string{"a", "b"}}},
				Skills:     []string{"a", "b", "c", "d", ""},
			},
			score:   50,
			missing: []string{MissingSummary, MissingSkills},
		},
		{
			name: "single entry needs two bullets",
			doc: resume.Document{
				Basics:     resume.Basics{FullName: "Ada", Headline: "Analyst"},
				Summary:    strings.Repeat("y", 59),
				Experience: []resume.Experience{{Bullets: []string{"only one", ""}}},
			},
			score:   25,
			missing: []string{MissingSummary, MissingExperience, MissingSkills},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ComputeReadiness(&tt.doc)
			require.NoError(t, err)
			assert.Equal(t, tt.score, r.CompletenessScore)
			assert.Equal(t, tt.missing, r.MissingSections)
		})
	}
}

func TestSectionTips(t *testing.T) {
	tips, err := SectionTips(emptyDocument())
	require.NoError(t, err)

	assert.ElementsMatch(t, TipSections(), keys(tips))
	assert.Equal(t, []string{
		"Write 2-3 sentences (80-200 chars) with role, scope, and impact.",
		"Work in impact keywords like improved, reduced, increased.",
	}, tips[SectionSummary])
	assert.Equal(t, []string{IssueNoExperience, "Add at least one role with dates and 3+ bullets."}, tips[SectionExperience])
	assert.Equal(t, []string{"Add your latest degree or certification."}, tips[SectionEducation])
	assert.Equal(t, []string{"List 5-10 relevant skills on separate lines."}, tips[SectionSkills])
	assert.Equal(t, []string{"Add 1-2 projects with outcomes and tech stack."}, tips[SectionProjects])

	sampleTips, err := SectionTips(resume.Sample())
	require.NoError(t, err)
	assert.Equal(t, []string{"Work in impact keywords like improved, increased, accelerated."}, sampleTips[SectionSummary])
	assert.Empty(t, sampleTips[SectionExperience])
	assert.Empty(t, sampleTips[SectionSkills])

	unknown, err := TipsFor(resume.Sample(), "hobbies")
	require.NoError(t, err)
	assert.Empty(t, unknown)
}

func keys(m map[string][]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
