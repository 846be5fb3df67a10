package server

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"time"

	"cvcraft/internal/errors"
	"cvcraft/internal/resume"
	"cvcraft/internal/types"
)

// Certificate expiry thresholds reported by /health
const (
	certCriticalThreshold = 24 * time.Hour
	certWarningThreshold  = 7 * 24 * time.Hour
)

// healthHandler reports service health including cache and certificate state
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":  "healthy",
		"service": "cvcraft",
		"version": s.Version,
	}
	overallHealthy := true

	cacheStatus := map[string]any{"enabled": false}
	if s.Engine != nil {
		cacheStatus = s.Engine.CacheStats()
		if !s.Engine.CacheHealthy() {
			// Scoring still works without the cache, so this only degrades.
			response["status"] = "degraded"
		}
	}
	response["cache"] = cacheStatus

	if certStatus := s.checkCertificateHealth(); certStatus != nil {
		response["certificates"] = certStatus
		if healthy, ok := certStatus["healthy"].(bool); ok && !healthy {
			overallHealthy = false
		}
	}

	if s.keyWatcher != nil {
		response["api_key_rotation"] = s.keyWatcher.Status()
	}

	status := http.StatusOK
	if !overallHealthy {
		response["status"] = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

// checkCertificateHealth checks the health of TLS certificates
func (s *Server) checkCertificateHealth() map[string]any {
	if s.CertificateManager == nil {
		return nil
	}

	certStatus := make(map[string]any)

	timeToExpiry, err := s.CertificateManager.CheckExpiry()
	if err != nil {
		certStatus["healthy"] = false
		certStatus["error"] = fmt.Sprintf("Failed to check certificate expiry: %v", err)
		return certStatus
	}

	certStatus["time_to_expiry_hours"] = int(timeToExpiry.Hours())
	certStatus["time_to_expiry"] = timeToExpiry.String()

	switch {
	case timeToExpiry <= 0:
		certStatus["healthy"] = false
		certStatus["status"] = "expired"
		certStatus["message"] = "Certificate has expired"
	case timeToExpiry <= certCriticalThreshold:
		certStatus["healthy"] = false
		certStatus["status"] = "critical"
		certStatus["message"] = "Certificate expires within 24 hours"
	case timeToExpiry <= certWarningThreshold:
		certStatus["healthy"] = true
		certStatus["status"] = "warning"
		certStatus["message"] = "Certificate expires within 7 days"
	default:
		certStatus["healthy"] = true
		certStatus["status"] = "ok"
		certStatus["message"] = "Certificate is valid"
	}

	autoReload := map[string]any{"enabled": s.TLSConfig.AutoReload.Enabled}
	if files := s.CertificateManager.WatchedFiles(); files != nil {
		autoReload["watched_files"] = files
		autoReload["watcher_running"] = s.CertificateManager.WatcherRunning()
	}
	certStatus["auto_reload"] = autoReload

	m := s.CertificateManager.GetMetrics()
	certStatus["metrics"] = map[string]any{
		"reload_count":         m.ReloadCount,
		"reload_success_count": m.ReloadSuccessCount,
		"reload_failure_count": m.ReloadFailureCount,
		"last_reload_time":     m.LastReloadTime,
		"last_reload_success":  m.LastReloadSuccess,
		"last_reload_error":    m.LastReloadError,
	}

	return certStatus
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "cvcraft",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"api_keys_configured":    s.apiKeys.len(),
		},
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{"enabled": false}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	if s.Engine != nil {
		response["cache"] = s.Engine.CacheStats()
		policy := s.Engine.Policy()
		response["export_policy"] = map[string]any{
			"min_score": policy.MinScore,
			"formats":   policy.Allowed,
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// readJSONBody reads a JSON request body, enforcing the content type
func readJSONBody(r *http.Request) ([]byte, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "content-type must be application/json", nil)
	}

	defer func() {
		if err := r.Body.Close(); err != nil {
			log.Printf("Failed to close request body: %v", err)
		}
	}()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("request body too large (limit is %d bytes)", maxBytesErr.Limit), err).
				WithContext("status", http.StatusRequestEntityTooLarge)
		}
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read request body", err)
	}
	return body, nil
}

// statusForError maps an error to its HTTP status
func statusForError(err error) int {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		if status, ok := appErr.Context["status"].(int); ok {
			return status
		}
	}

	var invalid *resume.InvalidDocumentError
	if stderrors.As(err, &invalid) {
		return http.StatusBadRequest
	}

	switch errors.CodeOf(err) {
	case errors.ErrCodeInvalidRequest, errors.ErrCodeInvalidFormat, errors.ErrCodeInvalidDocument,
		errors.ErrCodeUnsupportedExportFormat:
		return http.StatusBadRequest
	case errors.ErrCodeSchemaViolation:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeExportBlocked:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeAppError writes err using the standard envelope. AppError codes become
// the "error" field and field-level context is passed through as details.
func writeAppError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	resp := types.ErrorResponse{Error: http.StatusText(status), Message: err.Error()}

	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		resp.Error = appErr.Code
		resp.Message = appErr.Message
		if fields, ok := appErr.Context["fields"]; ok {
			resp.Details = fields
		} else if blockers, ok := appErr.Context["blockers"]; ok {
			resp.Details = blockers
		}
	}
	if status == http.StatusInternalServerError {
		resp.Message = "internal error"
	}

	writeJSON(w, status, resp)
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	writeJSON(w, statusCode, types.ErrorResponse{Error: error, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
