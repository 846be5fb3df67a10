package ats

import (
	"fmt"
	"math"

	"cvcraft/internal/resume"
)

// Categories holds the rounded category scores used for display.
type Categories struct {
	Keywords     int `json:"keywords"`
	Completeness int `json:"completeness"`
	Experience   int `json:"experience"`
	Formatting   int `json:"formatting"`
}

type Breakdown struct {
	TotalScore          int                 `json:"totalScore"`
	Categories          Categories          `json:"categories"`
	KeywordCoverage     KeywordCoverage     `json:"keywordCoverage"`
	SectionCompleteness SectionCompleteness `json:"sectionCompleteness"`
	ExperienceQuality   ExperienceQuality   `json:"experienceQuality"`
	FormattingSignals   FormattingSignals   `json:"formattingSignals"`
	ImprovementAreas    []string            `json:"improvementAreas"`
}

// ComputeBreakdown runs the four analyzers and aggregates them. The total is
// clamped and rounded from the unrounded category sum.
func ComputeBreakdown(doc *resume.Document) (Breakdown, error) {
	normalized, err := resume.Normalize(doc)
	if err != nil {
		return Breakdown{}, err
	}
	return breakdown(normalized), nil
}

func breakdown(doc resume.Document) Breakdown {
	keywords := AnalyzeKeywords(doc)
	sections := AnalyzeSections(doc)
	experience := AnalyzeExperience(doc)
	formatting := AnalyzeFormatting(doc)

	total := clamp(keywords.Score+sections.Score+experience.Score+formatting.Score, 0, 100)

	return Breakdown{
		TotalScore: round(total),
		Categories: Categories{
			Keywords:     round(keywords.Score),
			Completeness: round(sections.Score),
			Experience:   round(experience.Score),
			Formatting:   round(formatting.Score),
		},
		KeywordCoverage:     keywords,
		SectionCompleteness: sections,
		ExperienceQuality:   experience,
		FormattingSignals:   formatting,
		ImprovementAreas:    improvementAreas(keywords, sections, experience, formatting),
	}
}

// improvementAreas lists gaps in priority order: skills, keywords, sections,
// experience issues, formatting warnings.
func improvementAreas(k KeywordCoverage, s SectionCompleteness, e ExperienceQuality, f FormattingSignals) []string {
	groups := [][]string{
		formatEach(`Use skill "%s" in your bullets.`, k.MissingSkills),
		formatEach(`Work in keyword "%s" for ATS relevance.`, k.MissingKeywords),
		formatEach("Complete the %s section.", s.MissingSections),
		e.Issues,
		f.Warnings,
	}

	areas := make([]string, 0, MaxImprovementAreas)
	for _, group := range groups {
		for _, item := range group {
			if item == "" {
				continue
			}
			areas = append(areas, item)
			if len(areas) == MaxImprovementAreas {
				return areas
			}
		}
	}
	return areas
}

func formatEach(pattern string, values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = fmt.Sprintf(pattern, v)
	}
	return out
}

// round matches half-up rounding for the non-negative scores produced here.
func round(v float64) int {
	return int(math.Round(v))
}

// ScoreResume returns only the total ATS score.
func ScoreResume(doc *resume.Document) (int, error) {
	b, err := ComputeBreakdown(doc)
	if err != nil {
		return 0, err
	}
	return b.TotalScore, nil
}
