// Package types holds the request and response shapes shared by the HTTP
// server and the CLI.
package types

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"cvcraft/internal/ats"
	"cvcraft/internal/errors"
	"cvcraft/internal/export"
	"cvcraft/internal/resume"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ScoreRequest is the body of POST /score and POST /readiness
type ScoreRequest struct {
	Resume *resume.Document `json:"resume" validate:"required"`
}

// ExportCheckRequest is the body of POST /export/check. An empty format
// only evaluates the gate.
type ExportCheckRequest struct {
	Resume *resume.Document `json:"resume" validate:"required"`
	Format string           `json:"format" validate:"omitempty,max=32"`
}

// TipsRequest is the body of POST /tips. An empty section returns every section.
type TipsRequest struct {
	Resume  *resume.Document `json:"resume" validate:"required"`
	Section string           `json:"section" validate:"omitempty,max=32"`
}

// ReadinessResponse reports the readiness gate
type ReadinessResponse struct {
	CompletenessScore int      `json:"completenessScore"`
	MissingSections   []string `json:"missingSections"`
	Ready             bool     `json:"ready"`
}

// NewReadinessResponse converts a gate result for output.
func NewReadinessResponse(r ats.Readiness) ReadinessResponse {
	return ReadinessResponse{
		CompletenessScore: r.CompletenessScore,
		MissingSections:   r.MissingSections,
		Ready:             r.Ready(),
	}
}

// ExportCheckResponse carries the gate decision and, when a permitted export
// was requested, its mock receipt.
type ExportCheckResponse struct {
	Decision export.Decision `json:"decision"`
	Receipt  *export.Receipt `json:"receipt,omitempty"`
}

// TipsResponse maps section keys to tips
type TipsResponse struct {
	Tips map[string][]string `json:"tips"`
}

// FileScore pairs a scored file with its breakdown
type FileScore struct {
	File      string        `json:"file"`
	Breakdown ats.Breakdown `json:"breakdown"`
}

// ErrorResponse is the error envelope returned by the HTTP API
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Validate checks struct tags and reports violations as an INVALID_REQUEST error.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "invalid request", err)
	}

	fields := make([]string, 0, len(verrs))
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
		msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag()))
	}
	return errors.NewValidationError(errors.ErrCodeInvalidRequest,
		"validation error: "+strings.Join(msgs, "; "), nil).WithContext("fields", fields)
}
