// Package export layers the business export policy on top of the readiness
// gate. Export itself is a mock: no document is rendered.
package export

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"cvcraft/internal/ats"
	apperrors "cvcraft/internal/errors"
	"cvcraft/internal/resume"
)

const DefaultMinScore = 70

// Format describes an export target.
type Format struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

var formats = []Format{
	{ID: "pdf", Label: "PDF", Description: "Best for final applications"},
	{ID: "docx", Label: "DOCX", Description: "Editable in Word/Docs"},
	{ID: "share", Label: "Share Link", Description: "Generate a shareable link"},
}

// Formats returns every known export format.
func Formats() []Format {
	return slices.Clone(formats)
}

// LookupFormat finds a format by id, case-insensitively.
func LookupFormat(id string) (Format, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, f := range formats {
		if f.ID == id {
			return f, true
		}
	}
	return Format{}, false
}

// Decision is the outcome of the export gate.
type Decision struct {
	CanExport         bool     `json:"canExport"`
	Score             int      `json:"score"`
	MinScore          int      `json:"minScore"`
	Ready             bool     `json:"ready"`
	CompletenessScore int      `json:"completenessScore"`
	Blockers          []string `json:"blockers"`
}

// Receipt acknowledges a mock export.
type Receipt struct {
	ID      string `json:"id"`
	Format  string `json:"format"`
	Message string `json:"message"`
}

// Policy combines the readiness gate with a minimum ATS score.
type Policy struct {
	MinScore int
	Allowed  []string
}

// NewPolicy returns a policy. An empty allowed list permits every known format.
func NewPolicy(minScore int, allowed []string) *Policy {
	return &Policy{MinScore: minScore, Allowed: allowed}
}

// Decide evaluates an already computed score and readiness result.
func (p *Policy) Decide(score int, readiness ats.Readiness) Decision {
	ready := readiness.Ready()
	blockers := []string{}

	if score < p.MinScore {
		blockers = append(blockers, fmt.Sprintf("ATS score needs %d+ to export", p.MinScore))
	}
	if !ready {
		for _, section := range readiness.MissingSections {
			blockers = append(blockers, fmt.Sprintf("Add %s section", section))
		}
		if readiness.CompletenessScore < 100 {
			blockers = append(blockers, "Complete required fields to reach 100% readiness")
		}
	}

	canExport := ready && score >= p.MinScore
	if !canExport && len(blockers) == 0 {
		blockers = append(blockers, "Complete your resume to enable export")
	}

	return Decision{
		CanExport:         canExport,
		Score:             score,
		MinScore:          p.MinScore,
		Ready:             ready,
		CompletenessScore: readiness.CompletenessScore,
		Blockers:          blockers,
	}
}

// Check scores the document and evaluates the gate.
func (p *Policy) Check(doc *resume.Document) (Decision, error) {
	score, err := ats.ScoreResume(doc)
	if err != nil {
		return Decision{}, err
	}
	readiness, err := ats.ComputeReadiness(doc)
	if err != nil {
		return Decision{}, err
	}
	return p.Decide(score, readiness), nil
}

// ResolveFormat validates a requested format against the known and allowed sets.
func (p *Policy) ResolveFormat(id string) (Format, error) {
	f, ok := LookupFormat(id)
	if !ok || (len(p.Allowed) > 0 && !slices.Contains(p.Allowed, f.ID)) {
		return Format{}, apperrors.NewValidationError(
			apperrors.ErrCodeUnsupportedExportFormat,
			fmt.Sprintf("unsupported export format '%s'. Supported formats: %v", id, p.allowedIDs()),
			nil,
		)
	}
	return f, nil
}

// Authorize turns a decision into a mock receipt, or an EXPORT_BLOCKED error
// carrying the blockers.
func (p *Policy) Authorize(decision Decision, formatID string) (Receipt, error) {
	f, err := p.ResolveFormat(formatID)
	if err != nil {
		return Receipt{}, err
	}
	if !decision.CanExport {
		return Receipt{}, apperrors.NewValidationError(
			apperrors.ErrCodeExportBlocked,
			"export blocked: "+strings.Join(decision.Blockers, "; "),
			nil,
		).WithContext("blockers", decision.Blockers).WithContext("format", f.ID)
	}
	return Receipt{
		ID:      "export-" + uuid.NewString(),
		Format:  f.ID,
		Message: fmt.Sprintf("%s export (mock) triggered", strings.ToUpper(f.ID)),
	}, nil
}

// Export runs the gate and, when it passes, returns a mock receipt.
func (p *Policy) Export(doc *resume.Document, formatID string) (Receipt, error) {
	if _, err := p.ResolveFormat(formatID); err != nil {
		return Receipt{}, err
	}
	decision, err := p.Check(doc)
	if err != nil {
		return Receipt{}, err
	}
	return p.Authorize(decision, formatID)
}

func (p *Policy) allowedIDs() []string {
	if len(p.Allowed) > 0 {
		return p.Allowed
	}
	ids := make([]string, len(formats))
	for i, f := range formats {
		ids[i] = f.ID
	}
	return ids
}
