package ats

import (
	"unicode/utf8"

	"cvcraft/internal/resume"
)

const (
	SignalContact = "Contact block complete."
	SignalDates   = "Consistent date formatting across roles."
	SignalBullets = "Bullets have readable length."
	SignalSummary = "Summary length is balanced."

	WarningContact = "Add missing contact details (email, phone, location)."
	WarningDates   = "Use consistent YYYY-MM dates for roles."
	WarningBullets = "Keep bullets concise (20-220 characters)."
	WarningSummary = "Keep summary between 80-600 characters."
)

const (
	minBulletRunes  = 20
	maxBulletRunes  = 220
	minSummaryRunes = 80
	maxSummaryRunes = 600
	deductionPoints = 4
	signalPoints    = 1
)

type FormattingSignals struct {
	Score    float64  `json:"score"`
	Positive []string `json:"positive"`
	Warnings []string `json:"warnings"`
}

// AnalyzeFormatting starts at 20, subtracts 4 per deduction, adds 1 per
// positive signal and clamps the result to [0, 20].
func AnalyzeFormatting(doc resume.Document) FormattingSignals {
	positive := []string{}
	warnings := []string{}

	b := doc.Basics
	if b.Email != "" && b.Phone != "" && b.Location != "" {
		positive = append(positive, SignalContact)
	} else {
		warnings = append(warnings, WarningContact)
	}

	dates, wellFormed := 0, 0
	for _, exp := range doc.Experience {
		if exp.StartDate == "" {
			continue
		}
		dates++
		if dateRegex.MatchString(exp.StartDate) {
			wellFormed++
		}
	}
	if dates > 0 {
		if wellFormed < dates {
			warnings = append(warnings, WarningDates)
		} else {
			positive = append(positive, SignalDates)
		}
	}

	if len(doc.Experience) > 0 {
		if bulletsReadable(doc.Experience) {
			positive = append(positive, SignalBullets)
		} else {
			warnings = append(warnings, WarningBullets)
		}
	}

	if n := utf8.RuneCountInString(doc.Summary); n >= minSummaryRunes && n <= maxSummaryRunes {
		positive = append(positive, SignalSummary)
	} else if n > 0 {
		warnings = append(warnings, WarningSummary)
	}

	raw := FormattingWeight - float64(len(warnings)*deductionPoints) + float64(len(positive)*signalPoints)
	return FormattingSignals{
		Score:    clamp(raw, 0, FormattingWeight),
		Positive: positive,
		Warnings: warnings,
	}
}

func bulletsReadable(entries []resume.Experience) bool {
	for _, exp := range entries {
		for _, bullet := range exp.Bullets {
			if n := utf8.RuneCountInString(bullet); n < minBulletRunes || n > maxBulletRunes {
				return false
			}
		}
	}
	return true
}
