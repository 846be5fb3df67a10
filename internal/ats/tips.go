package ats

import (
	"strings"
	"unicode/utf8"

	"cvcraft/internal/resume"
)

// Sections that carry editing tips.
const (
	SectionSummary    = "summary"
	SectionExperience = "experience"
	SectionEducation  = "education"
	SectionSkills     = "skills"
	SectionProjects   = "projects"
)

var tipSections = []string{SectionSummary, SectionExperience, SectionEducation, SectionSkills, SectionProjects}

// TipSections lists the sections SectionTips reports on.
func TipSections() []string {
	return append([]string(nil), tipSections...)
}

// SectionTips derives per-section editing guidance from the ATS breakdown.
func SectionTips(doc *resume.Document) (map[string][]string, error) {
	normalized, err := resume.Normalize(doc)
	if err != nil {
		return nil, err
	}
	return sectionTips(normalized, breakdown(normalized)), nil
}

// TipsFor returns the tips for one section. Unknown sections have none.
func TipsFor(doc *resume.Document, section string) ([]string, error) {
	tips, err := SectionTips(doc)
	if err != nil {
		return nil, err
	}
	if list, ok := tips[section]; ok {
		return list, nil
	}
	return []string{}, nil
}

func sectionTips(doc resume.Document, b Breakdown) map[string][]string {
	tips := make(map[string][]string, len(tipSections))
	for _, s := range tipSections {
		tips[s] = []string{}
	}

	if utf8.RuneCountInString(doc.Summary) < minSummaryRunes {
		tips[SectionSummary] = append(tips[SectionSummary], "Write 2-3 sentences (80-200 chars) with role, scope, and impact.")
	}
	if kws := b.KeywordCoverage.MissingKeywords; len(kws) > 0 {
		tips[SectionSummary] = append(tips[SectionSummary], "Work in impact keywords like "+joinFirst(kws, 3)+".")
	}

	tips[SectionExperience] = append(tips[SectionExperience], b.ExperienceQuality.Issues...)
	if len(doc.Experience) == 0 {
		tips[SectionExperience] = append(tips[SectionExperience], "Add at least one role with dates and 3+ bullets.")
	}

	if len(doc.Education) == 0 {
		tips[SectionEducation] = append(tips[SectionEducation], "Add your latest degree or certification.")
	}

	if len(doc.Skills) < 5 {
		tips[SectionSkills] = append(tips[SectionSkills], "List 5-10 relevant skills on separate lines.")
	}
	if missing := b.KeywordCoverage.MissingSkills; len(missing) > 0 {
		tips[SectionSkills] = append(tips[SectionSkills], "Mention skills in your bullets: "+joinFirst(missing, 3)+".")
	}

	if len(doc.Projects) == 0 {
		tips[SectionProjects] = append(tips[SectionProjects], "Add 1-2 projects with outcomes and tech stack.")
	}

	return tips
}

func joinFirst(values []string, n int) string {
	return strings.Join(values[:min(n, len(values))], ", ")
}
