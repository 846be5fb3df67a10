package ats

import (
	"math"
	"strings"
	"unicode/utf8"

	"cvcraft/internal/resume"
)

// Reasons reported by the readiness gate. They are worded independently of
// the section completeness keys.
const (
	MissingFullName   = "Full name"
	MissingHeadline   = "Headline"
	MissingSummary    = "Summary (min 60 characters)"
	MissingExperience = "Experience with at least 2 bullets"
	MissingSkills     = "Add at least 5 skills"
)

const (
	readinessChecks        = 4
	readinessSummaryRunes  = 60
	readinessMinBullets    = 2
	readinessMinSkillCount = 5
)

type Readiness struct {
	CompletenessScore int      `json:"completenessScore"`
	MissingSections   []string `json:"missingSections"`
}

// Ready reports whether every readiness check passed.
func (r Readiness) Ready() bool {
	return len(r.MissingSections) == 0
}

// ComputeReadiness runs the four equally weighted export checks over the raw
// document fields.
func ComputeReadiness(doc *resume.Document) (Readiness, error) {
	normalized, err := resume.Normalize(doc)
	if err != nil {
		return Readiness{}, err
	}
	return readiness(normalized), nil
}

func readiness(doc resume.Document) Readiness {
	missing := []string{}
	passed := 0

	// Name and headline are reported separately but count as a single check.
	fullName := strings.TrimSpace(doc.Basics.FullName)
	headline := strings.TrimSpace(doc.Basics.Headline)
	if fullName == "" {
		missing = append(missing, MissingFullName)
	}
	if headline == "" {
		missing = append(missing, MissingHeadline)
	}
	if fullName != "" && headline != "" {
		passed++
	}

	if utf8.RuneCountInString(strings.TrimSpace(doc.Summary)) >= readinessSummaryRunes {
		passed++
	} else {
		missing = append(missing, MissingSummary)
	}

	if hasStrongExperience(doc.Experience) {
		passed++
	} else {
		missing = append(missing, MissingExperience)
	}

	skills := 0
	for _, s := range doc.Skills {
		if s != "" {
			skills++
		}
	}
	if skills >= readinessMinSkillCount {
		passed++
	} else {
		missing = append(missing, MissingSkills)
	}

	score := math.Round(float64(passed) / readinessChecks * 100)
	return Readiness{
		CompletenessScore: int(clamp(score, 0, 100)),
		MissingSections:   missing,
	}
}

func hasStrongExperience(entries []resume.Experience) bool {
	for _, exp := range entries {
		n := 0
		for _, b := range exp.Bullets {
			if strings.TrimSpace(b) != "" {
				n++
			}
		}
		if n >= readinessMinBullets {
			return true
		}
	}
	return false
}

// IsReadyForExport is the authoritative export gate.
func IsReadyForExport(doc *resume.Document) (bool, error) {
	r, err := ComputeReadiness(doc)
	if err != nil {
		return false, err
	}
	return r.Ready(), nil
}
