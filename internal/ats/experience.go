package ats

import (
	"strings"

	"cvcraft/internal/resume"
)

const (
	IssueNoExperience = "Add at least one experience entry with dates and bullets."
	IssueFewBullets   = "Add more accomplishment bullets (aim for 6+ across roles)."
	IssueActionVerbs  = "Start bullets with strong action verbs."
	IssueMetrics      = "Quantify impact with numbers or percentages."
	IssueDates        = "Ensure each role has a start date and optional end date."
)

type ExperienceDetails struct {
	TotalBullets    int     `json:"totalBullets"`
	ActionVerbRatio float64 `json:"actionVerbRatio"`
	DateCoverage    float64 `json:"dateCoverage"`
	MetricBullets   int     `json:"metricBullets"`
}

type ExperienceQuality struct {
	Score   float64           `json:"score"`
	Details ExperienceDetails `json:"details"`
	Issues  []string          `json:"issues"`
}

// AnalyzeExperience scores bullet volume, action-verb openings, quantified
// bullets and date coverage across all roles.
func AnalyzeExperience(doc resume.Document) ExperienceQuality {
	if len(doc.Experience) == 0 {
		return ExperienceQuality{
			Issues: []string{IssueNoExperience},
		}
	}

	var bullets []string
	dated := 0
	for _, exp := range doc.Experience {
		bullets = append(bullets, exp.Bullets...)
		if exp.StartDate != "" {
			dated++
		}
	}

	withVerb, withMetric := 0, 0
	for _, bullet := range bullets {
		if IsActionVerb(firstWord(bullet)) {
			withVerb++
		}
		if digitRegex.MatchString(bullet) {
			withMetric++
		}
	}

	total := len(bullets)
	verbRatio := ratio(withVerb, total)
	metricRatio := ratio(withMetric, total)
	dateCoverage := ratio(dated, len(doc.Experience))

	bulletScore := clamp(min(float64(total)/8, 1)*6, 0, 6)
	score := clamp(bulletScore+verbRatio*6+metricRatio*4+dateCoverage*4, 0, ExperienceWeight)

	issues := []string{}
	if total < 6 {
		issues = append(issues, IssueFewBullets)
	}
	if verbRatio < 0.6 {
		issues = append(issues, IssueActionVerbs)
	}
	if metricRatio < 0.5 {
		issues = append(issues, IssueMetrics)
	}
	if dateCoverage < 1 {
		issues = append(issues, IssueDates)
	}

	return ExperienceQuality{
		Score: score,
		Details: ExperienceDetails{
			TotalBullets:    total,
			ActionVerbRatio: verbRatio,
			DateCoverage:    dateCoverage,
			MetricBullets:   withMetric,
		},
		Issues: issues,
	}
}

// firstWord returns the lowercased text before the first whitespace run. A
// bullet with leading whitespace therefore has an empty first word.
func firstWord(bullet string) string {
	return whitespaceRegex.Split(strings.ToLower(bullet), 2)[0]
}
