package observability

import (
	"context"
	"fmt"

	"cvcraft/internal/config"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Business metric types accepted by RecordBusinessMetric.
const (
	MetricReadinessCheck = "readiness_check"
	MetricExport         = "export"
	MetricCacheLookup    = "cache_lookup"
	MetricRateLimitHit   = "rate_limit_hit"
	MetricCertReload     = "cert_reload"
)

// Metrics holds all custom metrics for cvcraft
type Metrics struct {
	// Scoring operation metrics
	ATSScore        metric.Int64Histogram
	ScoringDuration metric.Float64Histogram
	ScoringRequests metric.Int64Counter

	// Business metrics
	ReadinessChecks metric.Int64Counter
	Exports         metric.Int64Counter
	CacheLookups    metric.Int64Counter

	// Infrastructure metrics
	RateLimitHits   metric.Int64Counter
	CertReloadCount metric.Int64Counter
	CertExpiryTime  metric.Float64Gauge
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.ATSScore, err = meter.Int64Histogram(
		"cvcraft_ats_score",
		metric.WithDescription("Distribution of computed ATS total scores"),
		metric.WithExplicitBucketBoundaries(10, 20, 30, 40, 50, 60, 70, 80, 90, 100),
	); err != nil {
		return nil, fmt.Errorf("failed to create ATS score metric: %w", err)
	}

	if m.ScoringDuration, err = meter.Float64Histogram(
		"cvcraft_scoring_duration_seconds",
		metric.WithDescription("Time spent computing scoring results"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create scoring duration metric: %w", err)
	}

	if m.ScoringRequests, err = meter.Int64Counter(
		"cvcraft_scoring_requests_total",
		metric.WithDescription("Total number of scoring operations"),
	); err != nil {
		return nil, fmt.Errorf("failed to create scoring requests metric: %w", err)
	}

	if m.ReadinessChecks, err = meter.Int64Counter(
		"cvcraft_readiness_checks_total",
		metric.WithDescription("Total number of export readiness checks"),
	); err != nil {
		return nil, fmt.Errorf("failed to create readiness checks metric: %w", err)
	}

	if m.Exports, err = meter.Int64Counter(
		"cvcraft_exports_total",
		metric.WithDescription("Total number of export attempts"),
	); err != nil {
		return nil, fmt.Errorf("failed to create exports metric: %w", err)
	}

	if m.CacheLookups, err = meter.Int64Counter(
		"cvcraft_cache_lookups_total",
		metric.WithDescription("Total number of breakdown cache lookups"),
	); err != nil {
		return nil, fmt.Errorf("failed to create cache lookups metric: %w", err)
	}

	if m.RateLimitHits, err = meter.Int64Counter(
		"cvcraft_rate_limit_hits_total",
		metric.WithDescription("Total number of rate limit hits"),
	); err != nil {
		return nil, fmt.Errorf("failed to create rate limit hits metric: %w", err)
	}

	if m.CertReloadCount, err = meter.Int64Counter(
		"cvcraft_cert_reloads_total",
		metric.WithDescription("Total number of certificate reloads"),
	); err != nil {
		return nil, fmt.Errorf("failed to create certificate reload count metric: %w", err)
	}

	// Populated by the server's certificate manager
	if m.CertExpiryTime, err = meter.Float64Gauge(
		"cvcraft_cert_expiry_seconds",
		metric.WithDescription("Seconds until certificate expiry"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create certificate expiry time metric: %w", err)
	}

	return m, nil
}

func metricAttrs(attrs ...attribute.KeyValue) metric.MeasurementOption {
	return metric.WithAttributes(attrs...)
}

func (om *ObservabilityManager) scoringEnabled() bool {
	if om == nil || om.metrics == nil {
		return false
	}
	return om.fullConfig == nil || om.fullConfig.Observability.CustomMetrics.Scoring.Enabled
}

func (om *ObservabilityManager) infrastructureEnabled() bool {
	if om == nil || om.metrics == nil {
		return false
	}
	return om.fullConfig == nil || om.fullConfig.Observability.CustomMetrics.Infrastructure.Enabled
}

// RecordScore records a computed total score.
func (om *ObservabilityManager) RecordScore(ctx context.Context, score int) {
	if !om.scoringEnabled() {
		return
	}
	if om.fullConfig != nil && !om.fullConfig.Observability.CustomMetrics.Scoring.TrackScores {
		return
	}
	om.metrics.ATSScore.Record(ctx, int64(score))
}

// RecordBusinessMetric records a counter identified by metricType. Unknown
// types are ignored.
func (om *ObservabilityManager) RecordBusinessMetric(ctx context.Context, metricType string, success bool, attributes ...attribute.KeyValue) {
	if om == nil || om.metrics == nil {
		return
	}
	attrs := append([]attribute.KeyValue{attribute.Bool("success", success)}, attributes...)

	switch metricType {
	case MetricReadinessCheck:
		if om.trackScoring(func(c config.ScoringMetricsConfig) bool { return c.TrackReadiness }) {
			om.metrics.ReadinessChecks.Add(ctx, 1, metricAttrs(attrs...))
		}
	case MetricExport:
		if om.trackScoring(func(c config.ScoringMetricsConfig) bool { return c.TrackExports }) {
			om.metrics.Exports.Add(ctx, 1, metricAttrs(attrs...))
		}
	case MetricCacheLookup:
		if om.trackScoring(func(c config.ScoringMetricsConfig) bool { return c.TrackCacheUsage }) {
			om.metrics.CacheLookups.Add(ctx, 1, metricAttrs(attrs...))
		}
	case MetricRateLimitHit:
		if om.trackInfrastructure(func(c config.InfrastructureMetricsConfig) bool { return c.TrackRateLimits }) {
			om.metrics.RateLimitHits.Add(ctx, 1, metricAttrs(attrs...))
		}
	case MetricCertReload:
		if om.trackInfrastructure(func(c config.InfrastructureMetricsConfig) bool { return c.TrackCertReloads }) {
			om.metrics.CertReloadCount.Add(ctx, 1, metricAttrs(attrs...))
		}
	}
}

// RecordCertExpiry records the remaining certificate lifetime.
func (om *ObservabilityManager) RecordCertExpiry(ctx context.Context, seconds float64) {
	if !om.infrastructureEnabled() {
		return
	}
	om.metrics.CertExpiryTime.Record(ctx, seconds)
}

// RecordReadiness counts one readiness check.
func (om *ObservabilityManager) RecordReadiness(ctx context.Context, ready bool) {
	om.RecordBusinessMetric(ctx, MetricReadinessCheck, true, attribute.Bool("ready", ready))
}

// RecordExport counts one export attempt.
func (om *ObservabilityManager) RecordExport(ctx context.Context, format string, allowed bool) {
	om.RecordBusinessMetric(ctx, MetricExport, allowed,
		attribute.String("format", format),
		attribute.Bool("allowed", allowed))
}

// RecordCacheLookup counts one breakdown cache lookup.
func (om *ObservabilityManager) RecordCacheLookup(ctx context.Context, backend string, hit bool) {
	om.RecordBusinessMetric(ctx, MetricCacheLookup, true,
		attribute.String("backend", backend),
		attribute.Bool("hit", hit))
}

func (om *ObservabilityManager) trackScoring(enabled func(config.ScoringMetricsConfig) bool) bool {
	if !om.scoringEnabled() {
		return false
	}
	return om.fullConfig == nil || enabled(om.fullConfig.Observability.CustomMetrics.Scoring)
}

func (om *ObservabilityManager) trackInfrastructure(enabled func(config.InfrastructureMetricsConfig) bool) bool {
	if !om.infrastructureEnabled() {
		return false
	}
	return om.fullConfig == nil || enabled(om.fullConfig.Observability.CustomMetrics.Infrastructure)
}
