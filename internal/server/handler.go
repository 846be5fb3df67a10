package server

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"cvcraft/internal/errors"
	"cvcraft/internal/resume"
	"cvcraft/internal/types"
)

const tracerName = "cvcraft.api"

// scoreHandler returns the ATS breakdown of the posted resume
func (s *Server) scoreHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.Observability.Tracer(tracerName).Start(r.Context(), "api.score")
	defer span.End()

	var req types.ScoreRequest
	if err := s.decodeRequest(r, &req); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.type", "validation"))
		writeAppError(w, err)
		return
	}

	breakdown, err := s.Engine.Breakdown(ctx, req.Resume)
	if err != nil {
		span.RecordError(err)
		writeAppError(w, err)
		return
	}

	span.SetAttributes(attribute.Int("ats.score", breakdown.TotalScore))
	writeJSON(w, http.StatusOK, breakdown)
}

// readinessHandler reports whether the posted resume may be exported
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.Observability.Tracer(tracerName).Start(r.Context(), "api.readiness")
	defer span.End()

	var req types.ScoreRequest
	if err := s.decodeRequest(r, &req); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.type", "validation"))
		writeAppError(w, err)
		return
	}

	readiness, err := s.Engine.Readiness(ctx, req.Resume)
	if err != nil {
		span.RecordError(err)
		writeAppError(w, err)
		return
	}

	span.SetAttributes(
		attribute.Bool("readiness.ready", readiness.Ready()),
		attribute.Int("readiness.completeness", readiness.CompletenessScore),
	)
	writeJSON(w, http.StatusOK, types.NewReadinessResponse(readiness))
}

// exportCheckHandler evaluates the export policy. With a format, a passing
// gate also yields a mock receipt. A blocked export is not an HTTP error: the
// decision carries the blockers.
func (s *Server) exportCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.Observability.Tracer(tracerName).Start(r.Context(), "api.export_check")
	defer span.End()

	var req types.ExportCheckRequest
	if err := s.decodeRequest(r, &req); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.type", "validation"))
		writeAppError(w, err)
		return
	}

	var resp types.ExportCheckResponse
	if req.Format == "" {
		decision, err := s.Engine.ExportDecision(ctx, req.Resume)
		if err != nil {
			span.RecordError(err)
			writeAppError(w, err)
			return
		}
		resp.Decision = decision
	} else {
		decision, receipt, err := s.Engine.Export(ctx, req.Resume, req.Format)
		switch {
		case err == nil:
			resp.Decision = decision
			resp.Receipt = &receipt
		case errors.CodeOf(err) == errors.ErrCodeExportBlocked:
			resp.Decision = decision
		default:
			span.RecordError(err)
			writeAppError(w, err)
			return
		}
	}

	span.SetAttributes(attribute.Bool("export.allowed", resp.Decision.CanExport))
	writeJSON(w, http.StatusOK, resp)
}

// tipsHandler returns section tips for the posted resume
func (s *Server) tipsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.Observability.Tracer(tracerName).Start(r.Context(), "api.tips")
	defer span.End()

	var req types.TipsRequest
	if err := s.decodeRequest(r, &req); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.type", "validation"))
		writeAppError(w, err)
		return
	}

	tips, err := s.Engine.Tips(ctx, req.Resume, req.Section)
	if err != nil {
		span.RecordError(err)
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, types.TipsResponse{Tips: tips})
}

// sampleHandler returns the built-in sample resume
func (s *Server) sampleHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("empty") == "true" {
		writeJSON(w, http.StatusOK, resume.Empty())
		return
	}
	writeJSON(w, http.StatusOK, resume.Sample())
}

// decodeRequest parses the JSON body into v, optionally checks the embedded
// resume against the document schema, then applies validator tags.
func (s *Server) decodeRequest(r *http.Request, v any) error {
	body, err := readJSONBody(r)
	if err != nil {
		return err
	}

	if s.AppConfig != nil && s.AppConfig.Scoring.ValidateSchema {
		var envelope struct {
			Resume json.RawMessage `json:"resume"`
		}
		if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Resume) > 0 && string(envelope.Resume) != "null" {
			if err := resume.ValidateSchema(envelope.Resume); err != nil {
				return err
			}
		}
	}

	if err := json.Unmarshal(body, v); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "failed to parse JSON: "+err.Error(), err)
	}
	return types.Validate(v)
}
