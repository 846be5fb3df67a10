package ats

import (
	"strings"
	"unicode/utf8"

	"cvcraft/internal/resume"
)

const (
	summaryFilledRunes = 50
	skillsFilledCount  = 5
)

type SectionStatus struct {
	Key    string  `json:"key"`
	Weight float64 `json:"weight"`
	Filled bool    `json:"filled"`
}

type SectionCompleteness struct {
	Score           float64         `json:"score"`
	Sections        []SectionStatus `json:"sections"`
	MissingSections []string        `json:"missingSections"`
}

// AnalyzeSections awards weighted points for each section that is filled in.
func AnalyzeSections(doc resume.Document) SectionCompleteness {
	b := doc.Basics
	sections := []SectionStatus{
		{Key: "basics", Weight: 6, Filled: b.FullName != "" && b.Email != "" && b.Phone != "" && b.Location != ""},
		{Key: "summary", Weight: 5, Filled: utf8.RuneCountInString(strings.TrimSpace(doc.Summary)) >= summaryFilledRunes},
		{Key: "experience", Weight: 6, Filled: experienceFilled(doc.Experience)},
		{Key: "education", Weight: 4, Filled: educationFilled(doc.Education)},
		{Key: "skills", Weight: 2, Filled: len(doc.Skills) >= skillsFilledCount},
		{Key: "projects", Weight: 2, Filled: len(doc.Projects) > 0},
	}

	var total, filled float64
	missing := []string{}
	for _, s := range sections {
		total += s.Weight
		if s.Filled {
			filled += s.Weight
		} else {
			missing = append(missing, s.Key)
		}
	}
	if total == 0 {
		total = 1
	}

	return SectionCompleteness{
		Score:           clamp(filled/total*CompletenessWeight, 0, CompletenessWeight),
		Sections:        sections,
		MissingSections: missing,
	}
}

func experienceFilled(entries []resume.Experience) bool {
	if len(entries) == 0 {
		return false
	}
	for _, exp := range entries {
		if exp.Role == "" || exp.Company == "" || exp.StartDate == "" {
			return false
		}
	}
	return true
}

func educationFilled(entries []resume.Education) bool {
	if len(entries) == 0 {
		return false
	}
	for _, edu := range entries {
		if edu.Institution == "" || edu.Degree == "" {
			return false
		}
	}
	return true
}
