package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvcraft/internal/ats"
	"cvcraft/internal/cache"
	"cvcraft/internal/config"
	"cvcraft/internal/engine"
	"cvcraft/internal/resume"
	"cvcraft/internal/types"
)

func newTestServer(t *testing.T, mutate func(*config.Config, *ServerConfig)) *Server {
	t.Helper()
	appCfg := &config.Config{}
	appCfg.Server.TLS.Mode = TLSModeDisabled
	cfg := ServerConfig{
		Host:           "127.0.0.1",
		Port:           "0",
		Version:        "test",
		TLSConfig:      appCfg.Server.TLS,
		MaxRequestSize: 1 << 20,
	}
	if mutate != nil {
		mutate(appCfg, &cfg)
	}
	svc := engine.New(engine.Options{Cache: cache.NewMemoryCache(16), CacheTTL: time.Minute})
	s := NewServer(appCfg, cfg, svc, nil, nil)
	t.Cleanup(s.cleanup)
	return s
}

func postJSON(t *testing.T, h http.Handler, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestScoreEndpoint(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	rec := postJSON(t, h, "/score", map[string]any{"resume": resume.Sample()}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	b := decodeBody[ats.Breakdown](t, rec)
	assert.Equal(t, 88, b.TotalScore)
	assert.Equal(t, ats.Categories{Keywords: 24, Completeness: 25, Experience: 18, Formatting: 20}, b.Categories)
}

func TestScoreEndpointPartialDocument(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	rec := postJSON(t, h, "/score", map[string]any{"resume": map[string]any{"basics": map[string]any{}}}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 16, decodeBody[ats.Breakdown](t, rec).TotalScore)
}

func TestRequestIDPropagated(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	rec := postJSON(t, h, "/score", map[string]any{"resume": resume.Sample()}, map[string]string{requestIDHeader: "req-123"})
	assert.Equal(t, "req-123", rec.Header().Get(requestIDHeader))
}

func TestRequestErrors(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	tests := []struct {
		name        string
		body        string
		contentType string
		wantStatus  int
		wantCode    string
	}{
		{"missing resume", `{}`, "application/json", http.StatusBadRequest, "INVALID_REQUEST"},
		{"null resume", `{"resume":null}`, "application/json", http.StatusBadRequest, "INVALID_REQUEST"},
		{"malformed json", `{"resume":`, "application/json", http.StatusBadRequest, "INVALID_REQUEST"},
		{"wrong content type", `{}`, "text/plain", http.StatusBadRequest, "INVALID_REQUEST"},
		{"charset allowed", `{"resume":{}}`, "application/json; charset=utf-8", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/score", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeBody[types.ErrorResponse](t, rec).Error)
			}
		})
	}
}

func TestRequestTooLarge(t *testing.T) {
	h := newTestServer(t, func(_ *config.Config, c *ServerConfig) { c.MaxRequestSize = 64 }).Handler()

	rec := postJSON(t, h, "/score", map[string]any{"resume": resume.Sample()}, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestSchemaValidation(t *testing.T) {
	h := newTestServer(t, func(c *config.Config, _ *ServerConfig) { c.Scoring.ValidateSchema = true }).Handler()

	rec := postJSON(t, h, "/score", map[string]any{"resume": map[string]any{"skills": "Go"}}, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	resp := decodeBody[types.ErrorResponse](t, rec)
	assert.Equal(t, "SCHEMA_VIOLATION", resp.Error)
	assert.NotNil(t, resp.Details)

	rec = postJSON(t, h, "/score", map[string]any{"resume": resume.Sample()}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	req := httptest.NewRequest(http.MethodGet, "/score", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestReadinessEndpoint(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	rec := postJSON(t, h, "/readiness", map[string]any{"resume": resume.Sample()}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ready := decodeBody[types.ReadinessResponse](t, rec)
	assert.True(t, ready.Ready)
	assert.Equal(t, 100, ready.CompletenessScore)
	assert.Empty(t, ready.MissingSections)

	rec = postJSON(t, h, "/readiness", map[string]any{"resume": resume.Empty()}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	notReady := decodeBody[types.ReadinessResponse](t, rec)
	assert.False(t, notReady.Ready)
	assert.Equal(t, 0, notReady.CompletenessScore)
	assert.Equal(t, []string{
		ats.MissingFullName, ats.MissingHeadline, ats.MissingSummary, ats.MissingExperience, ats.MissingSkills,
	}, notReady.MissingSections)
}

func TestExportCheckEndpoint(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	t.Run("decision only", func(t *testing.T) {
		rec := postJSON(t, h, "/export/check", map[string]any{"resume": resume.Sample()}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeBody[types.ExportCheckResponse](t, rec)
		assert.True(t, resp.Decision.CanExport)
		assert.Nil(t, resp.Receipt)
	})

	t.Run("receipt when allowed", func(t *testing.T) {
		rec := postJSON(t, h, "/export/check", map[string]any{"resume": resume.Sample(), "format": "pdf"}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeBody[types.ExportCheckResponse](t, rec)
		require.NotNil(t, resp.Receipt)
		assert.Equal(t, "pdf", resp.Receipt.Format)
		assert.Equal(t, "PDF export (mock) triggered", resp.Receipt.Message)
	})

	t.Run("blocked is not an error", func(t *testing.T) {
		rec := postJSON(t, h, "/export/check", map[string]any{"resume": resume.Empty(), "format": "docx"}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeBody[types.ExportCheckResponse](t, rec)
		assert.False(t, resp.Decision.CanExport)
		assert.Nil(t, resp.Receipt)
		require.NotEmpty(t, resp.Decision.Blockers)
		assert.Equal(t, "ATS score needs 70+ to export", resp.Decision.Blockers[0])
	})

	t.Run("unknown format", func(t *testing.T) {
		rec := postJSON(t, h, "/export/check", map[string]any{"resume": resume.Sample(), "format": "rtf"}, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "UNSUPPORTED_EXPORT_FORMAT", decodeBody[types.ErrorResponse](t, rec).Error)
	})
}

func TestTipsEndpoint(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	rec := postJSON(t, h, "/tips", map[string]any{"resume": resume.Empty()}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	all := decodeBody[types.TipsResponse](t, rec)
	assert.Len(t, all.Tips, len(ats.TipSections()))
	assert.Contains(t, all.Tips[ats.SectionEducation], "Add your latest degree or certification.")

	rec = postJSON(t, h, "/tips", map[string]any{"resume": resume.Empty(), "section": ats.SectionProjects}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	one := decodeBody[types.TipsResponse](t, rec)
	assert.Equal(t, map[string][]string{ats.SectionProjects: {"Add 1-2 projects with outcomes and tech stack."}}, one.Tips)
}

func TestSampleEndpoint(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sample", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Sarah Johnson", decodeBody[resume.Document](t, rec).Basics.FullName)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sample?empty=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[resume.Document](t, rec).Basics.FullName)
}

func TestAuthMiddleware(t *testing.T) {
	s := newTestServer(t, func(_ *config.Config, c *ServerConfig) { c.APIKeys = []string{"alpha-key-123", " beta-key-456 "} })
	h := s.Handler()
	body := map[string]any{"resume": resume.Sample()}

	tests := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{"missing key", nil, http.StatusUnauthorized},
		{"wrong key", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"header key", map[string]string{"X-API-Key": "alpha-key-123"}, http.StatusOK},
		{"bearer key", map[string]string{"Authorization": "Bearer beta-key-456"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, h, "/score", body, tt.headers)
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "health must stay public")
}

func TestAPIKeyRotation(t *testing.T) {
	s := newTestServer(t, func(_ *config.Config, c *ServerConfig) { c.APIKeys = []string{"old-key"} })
	h := s.Handler()
	body := map[string]any{"resume": resume.Sample()}

	mock := &MockSecretReader{secrets: map[string]*config.VaultSecret{}}
	mock.set("secret/data/api", "old-key", 1)
	kw := NewAPIKeyWatcher(mock, "secret/data/api", time.Hour, s.SetAPIKeys, nil)
	kw.lastVersion = 1

	mock.set("secret/data/api", "new-key", 2)
	changed, err := kw.poll()
	require.NoError(t, err)
	require.True(t, changed)

	assert.Equal(t, http.StatusUnauthorized, postJSON(t, h, "/score", body, map[string]string{"X-API-Key": "old-key"}).Code)
	assert.Equal(t, http.StatusOK, postJSON(t, h, "/score", body, map[string]string{"X-API-Key": "new-key"}).Code)
	assert.Equal(t, 1, s.APIKeyCount())
}

func TestRateLimitMiddleware(t *testing.T) {
	s := newTestServer(t, func(_ *config.Config, c *ServerConfig) {
		c.RateLimit = &config.RateLimitConfig{Enabled: true, RequestsPerMin: 1, BurstCapacity: 1, ByIP: true}
	})
	h := s.Handler()
	body := map[string]any{"resume": resume.Sample()}

	assert.Equal(t, http.StatusOK, postJSON(t, h, "/score", body, nil).Code)
	rec := postJSON(t, h, "/score", body, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	other := postJSON(t, h, "/score", body, map[string]string{"X-Forwarded-For": "203.0.113.7"})
	assert.Equal(t, http.StatusOK, other.Code, "separate client gets its own bucket")

	stats := s.RateLimiter.GetStats()
	assert.Equal(t, int64(1), stats["rejected_requests"])
	assert.Equal(t, 2, stats["active_limiters"])
}

func TestGetRateLimitKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/score", nil)
	req.RemoteAddr = "192.0.2.1:4567"
	req.Header.Set("X-API-Key", "k1")

	assert.Equal(t, "api:k1", getRateLimitKey(req, true, true))
	assert.Equal(t, "ip:192.0.2.1", getRateLimitKey(req, false, true))
	assert.Equal(t, "", getRateLimitKey(req, false, false))

	req.Header.Set("X-Forwarded-For", "garbage, 198.51.100.2")
	assert.Equal(t, "ip:198.51.100.2", getRateLimitKey(req, false, true))
}

func TestHealthAndStats(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	health := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "cvcraft", health["service"])
	assert.NotContains(t, health, "certificates")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decodeBody[map[string]any](t, rec)
	assert.Equal(t, map[string]any{"enabled": false}, stats["rate_limiting"])
	cacheStats, ok := stats["cache"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "memory", cacheStats["backend"])
}

func TestServeGracefulShutdown(t *testing.T) {
	s := newTestServer(t, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/health"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestInvalidTLSMode(t *testing.T) {
	s := newTestServer(t, func(_ *config.Config, c *ServerConfig) { c.TLSConfig.Mode = "bogus" })
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	err = s.Serve(context.Background(), ln)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid TLS mode")
}
