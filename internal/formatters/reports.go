package formatters

import (
	"fmt"
	"slices"
	"strings"

	"cvcraft/internal/ats"
	"cvcraft/internal/resume"
	"cvcraft/internal/types"
)

// style is the difference between the text and markdown renderings.
type style struct {
	title   func(string) string
	section func(string) string
	bold    func(string) string
}

var styles = map[string]style{
	"text": {
		title:   func(s string) string { return "=== " + strings.ToUpper(s) + " ===\n" },
		section: func(s string) string { return s + ":\n" },
		bold:    func(s string) string { return s },
	},
	"markdown": {
		title:   func(s string) string { return "# " + s + "\n" },
		section: func(s string) string { return "## " + s + "\n" },
		bold:    func(s string) string { return "**" + s + "**" },
	},
}

// styledFormatter adapts a typed render function to the Formatter interface.
type styledFormatter[T any] struct {
	dataType string
	style    style
	render   func(*strings.Builder, style, T)
}

func newStyled[T any](dataType string, s style, render func(*strings.Builder, style, T)) *styledFormatter[T] {
	return &styledFormatter[T]{dataType: dataType, style: s, render: render}
}

func (f *styledFormatter[T]) Format(data any) (string, error) {
	value, ok := data.(T)
	if !ok {
		return "", fmt.Errorf("expected %s, got %T", f.dataType, data)
	}
	var out strings.Builder
	f.render(&out, f.style, value)
	return out.String(), nil
}

func (f *styledFormatter[T]) SupportedType() string {
	return f.dataType
}

func writeList(out *strings.Builder, items []string, empty string) {
	if len(items) == 0 {
		if empty != "" {
			fmt.Fprintf(out, "- %s\n", empty)
		}
		return
	}
	for _, item := range items {
		fmt.Fprintf(out, "- %s\n", item)
	}
}

func renderBreakdown(out *strings.Builder, s style, b ats.Breakdown) {
	out.WriteString(s.title("ATS Score"))
	fmt.Fprintf(out, "%s %d/100\n\n", s.bold("Total:"), b.TotalScore)

	out.WriteString(s.section("Categories"))
	fmt.Fprintf(out, "- Keywords: %d/%d\n", b.Categories.Keywords, int(ats.KeywordWeight))
	fmt.Fprintf(out, "- Completeness: %d/%d\n", b.Categories.Completeness, int(ats.CompletenessWeight))
	fmt.Fprintf(out, "- Experience: %d/%d\n", b.Categories.Experience, int(ats.ExperienceWeight))
	fmt.Fprintf(out, "- Formatting: %d/%d\n\n", b.Categories.Formatting, int(ats.FormattingWeight))

	out.WriteString(s.section("Keyword coverage"))
	fmt.Fprintf(out, "- Matched skills: %s\n", joinOrNone(b.KeywordCoverage.MatchedSkills))
	fmt.Fprintf(out, "- Missing skills: %s\n", joinOrNone(b.KeywordCoverage.MissingSkills))
	for _, bucket := range b.KeywordCoverage.BucketResults {
		fmt.Fprintf(out, "- %s: %d matched, %.0f%% coverage\n", bucket.Bucket, len(bucket.Matches), bucket.Ratio*100)
	}
	out.WriteString("\n")

	out.WriteString(s.section("Missing sections"))
	writeList(out, b.SectionCompleteness.MissingSections, "None")
	out.WriteString("\n")

	out.WriteString(s.section("Formatting"))
	writeList(out, b.FormattingSignals.Positive, "")
	for _, w := range b.FormattingSignals.Warnings {
		fmt.Fprintf(out, "- Warning: %s\n", w)
	}
	out.WriteString("\n")

	out.WriteString(s.section("Improvement areas"))
	writeList(out, b.ImprovementAreas, "None")
}

func renderFileScores(out *strings.Builder, s style, scores []types.FileScore) {
	for i, fs := range scores {
		if i > 0 {
			out.WriteString("\n")
		}
		out.WriteString(s.section(fs.File))
		renderBreakdown(out, s, fs.Breakdown)
	}
}

func renderReadiness(out *strings.Builder, s style, r types.ReadinessResponse) {
	out.WriteString(s.title("Export Readiness"))
	status := "not ready"
	if r.Ready {
		status = "ready"
	}
	fmt.Fprintf(out, "%s %s\n", s.bold("Status:"), status)
	fmt.Fprintf(out, "%s %d%%\n\n", s.bold("Completeness:"), r.CompletenessScore)
	out.WriteString(s.section("Missing"))
	writeList(out, r.MissingSections, "None")
}

func renderExportCheck(out *strings.Builder, s style, r types.ExportCheckResponse) {
	d := r.Decision
	out.WriteString(s.title("Export Check"))
	fmt.Fprintf(out, "%s %t\n", s.bold("Can export:"), d.CanExport)
	fmt.Fprintf(out, "%s %d (minimum %d)\n", s.bold("Score:"), d.Score, d.MinScore)
	fmt.Fprintf(out, "%s %d%%\n\n", s.bold("Completeness:"), d.CompletenessScore)
	if len(d.Blockers) > 0 {
		out.WriteString(s.section("Blockers"))
		writeList(out, d.Blockers, "")
	}
	if r.Receipt != nil {
		out.WriteString(s.section("Receipt"))
		fmt.Fprintf(out, "- %s\n- Format: %s\n- ID: %s\n", r.Receipt.Message, r.Receipt.Format, r.Receipt.ID)
	}
}

func renderTips(out *strings.Builder, s style, r types.TipsResponse) {
	out.WriteString(s.title("Section Tips"))
	order := ats.TipSections()
	for section := range r.Tips {
		if !slices.Contains(order, section) {
			order = append(order, section)
		}
	}
	for _, section := range order {
		tips, ok := r.Tips[section]
		if !ok {
			continue
		}
		out.WriteString(s.section(section))
		writeList(out, tips, "Looks good")
	}
}

func renderDocument(out *strings.Builder, s style, doc *resume.Document) {
	if doc == nil {
		return
	}
	b := doc.Basics
	out.WriteString(s.title(b.FullName))
	if b.Headline != "" {
		out.WriteString(b.Headline + "\n")
	}
	contact := []string{}
	for _, v := range []string{b.Email, b.Phone, b.Location, b.LinkedIn, b.GitHub} {
		if v != "" {
			contact = append(contact, v)
		}
	}
	if len(contact) > 0 {
		out.WriteString(strings.Join(contact, " | ") + "\n")
	}
	out.WriteString("\n")

	if doc.Summary != "" {
		out.WriteString(s.section("Summary"))
		out.WriteString(doc.Summary + "\n\n")
	}

	if len(doc.Experience) > 0 {
		out.WriteString(s.section("Experience"))
		for _, exp := range doc.Experience {
			fmt.Fprintf(out, "%s, %s (%s - %s)\n", s.bold(exp.Role), exp.Company, exp.StartDate, exp.EndDate)
			writeList(out, exp.Bullets, "")
		}
		out.WriteString("\n")
	}

	if len(doc.Education) > 0 {
		out.WriteString(s.section("Education"))
		for _, edu := range doc.Education {
			fmt.Fprintf(out, "%s, %s (%s - %s)\n", s.bold(edu.Degree), edu.Institution, edu.StartYear, edu.EndYear)
			writeList(out, edu.Highlights, "")
		}
		out.WriteString("\n")
	}

	if len(doc.Skills) > 0 {
		out.WriteString(s.section("Skills"))
		out.WriteString(strings.Join(doc.Skills, ", ") + "\n\n")
	}

	if len(doc.Projects) > 0 {
		out.WriteString(s.section("Projects"))
		for _, proj := range doc.Projects {
			fmt.Fprintf(out, "%s: %s\n", s.bold(proj.Name), proj.Description)
			writeList(out, proj.Bullets, "")
		}
	}
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	return strings.Join(values, ", ")
}
