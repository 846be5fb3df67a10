// Package engine wraps the pure scoring pipeline with memoization, tracing
// and metrics. Results never depend on whether a cache is configured.
package engine

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"cvcraft/internal/ats"
	"cvcraft/internal/cache"
	"cvcraft/internal/errors"
	"cvcraft/internal/export"
	"cvcraft/internal/observability"
	"cvcraft/internal/resume"
)

const (
	defaultKeyPrefix   = "cvcraft:breakdown:"
	defaultConcurrency = 4
)

// Options configures a Service. Every field is optional.
type Options struct {
	Cache         cache.Cache
	CacheTTL      time.Duration
	KeyPrefix     string
	Policy        *export.Policy
	Observability *observability.ObservabilityManager
	Logger        *errors.Logger
	Concurrency   int
}

// Service scores documents and evaluates the export gate.
type Service struct {
	cache       cache.Cache
	ttl         time.Duration
	keyPrefix   string
	policy      *export.Policy
	obs         *observability.ObservabilityManager
	logger      *errors.Logger
	concurrency int
}

// New creates a service. A nil policy defaults to the standard export policy.
func New(opts Options) *Service {
	s := &Service{
		cache:       opts.Cache,
		ttl:         opts.CacheTTL,
		keyPrefix:   opts.KeyPrefix,
		policy:      opts.Policy,
		obs:         opts.Observability,
		logger:      opts.Logger,
		concurrency: opts.Concurrency,
	}
	if s.keyPrefix == "" {
		s.keyPrefix = defaultKeyPrefix
	}
	if s.policy == nil {
		s.policy = export.NewPolicy(export.DefaultMinScore, nil)
	}
	if s.logger == nil {
		s.logger = errors.NewNopLogger()
	}
	if s.concurrency <= 0 {
		s.concurrency = defaultConcurrency
	}
	return s
}

// Policy returns the export policy in effect.
func (s *Service) Policy() *export.Policy {
	return s.policy
}

// Cache returns the configured cache, or nil.
func (s *Service) Cache() cache.Cache {
	return s.cache
}

// Breakdown computes the ATS breakdown, consulting the cache first.
func (s *Service) Breakdown(ctx context.Context, doc *resume.Document) (ats.Breakdown, error) {
	var result ats.Breakdown
	err := s.obs.TrackScoring(ctx, "breakdown", func(ctx context.Context) error {
		b, err := s.breakdown(ctx, doc)
		if err != nil {
			return err
		}
		result = b
		return nil
	})
	if err != nil {
		return ats.Breakdown{}, err
	}
	s.obs.RecordScore(ctx, result.TotalScore)
	return result, nil
}

func (s *Service) breakdown(ctx context.Context, doc *resume.Document) (ats.Breakdown, error) {
	if s.cache == nil {
		return ats.ComputeBreakdown(doc)
	}

	scored, err := resume.Scored(doc)
	if err != nil {
		return ats.Breakdown{}, err
	}
	key, err := cache.ContentKey(s.keyPrefix, scored)
	if err != nil {
		s.logger.LogError(err, "Failed to derive breakdown cache key")
		return ats.ComputeBreakdown(&scored)
	}

	var cached ats.Breakdown
	hit, err := s.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		s.logger.LogError(errors.NewCacheError(errors.ErrCodeCacheUnavailable, "breakdown cache lookup failed", err),
			"Treating cache failure as a miss", "backend", s.cache.Backend())
		hit = false
	}
	s.obs.RecordCacheLookup(ctx, s.cache.Backend(), hit)
	if hit {
		s.logger.Debug("Breakdown cache hit", "key", key)
		return cached, nil
	}

	result, err := ats.ComputeBreakdown(&scored)
	if err != nil {
		return ats.Breakdown{}, err
	}
	if err := s.cache.SetJSON(ctx, key, result, s.ttl); err != nil {
		s.logger.LogError(errors.NewCacheError(errors.ErrCodeCacheUnavailable, "breakdown cache store failed", err),
			"Breakdown not cached", "backend", s.cache.Backend())
	}
	return result, nil
}

// Score returns only the total score.
func (s *Service) Score(ctx context.Context, doc *resume.Document) (int, error) {
	b, err := s.Breakdown(ctx, doc)
	if err != nil {
		return 0, err
	}
	return b.TotalScore, nil
}

// Readiness evaluates the export readiness gate.
func (s *Service) Readiness(ctx context.Context, doc *resume.Document) (ats.Readiness, error) {
	var result ats.Readiness
	err := s.obs.TrackScoring(ctx, "readiness", func(context.Context) error {
		r, err := ats.ComputeReadiness(doc)
		result = r
		return err
	})
	if err != nil {
		return ats.Readiness{}, err
	}
	s.obs.RecordReadiness(ctx, result.Ready())
	return result, nil
}

// ExportDecision evaluates the export policy for doc.
func (s *Service) ExportDecision(ctx context.Context, doc *resume.Document) (export.Decision, error) {
	b, err := s.Breakdown(ctx, doc)
	if err != nil {
		return export.Decision{}, err
	}
	r, err := s.Readiness(ctx, doc)
	if err != nil {
		return export.Decision{}, err
	}
	return s.policy.Decide(b.TotalScore, r), nil
}

// Export runs the gate for the requested format and returns a mock receipt
// when it passes. The decision is returned in both cases.
func (s *Service) Export(ctx context.Context, doc *resume.Document, format string) (export.Decision, export.Receipt, error) {
	ctx, span := s.obs.StartSpan(ctx, "export", attribute.String("format", format))
	defer span.End()

	if _, err := s.policy.ResolveFormat(format); err != nil {
		span.RecordError(err)
		return export.Decision{}, export.Receipt{}, err
	}
	decision, err := s.ExportDecision(ctx, doc)
	if err != nil {
		span.RecordError(err)
		return export.Decision{}, export.Receipt{}, err
	}

	receipt, err := s.policy.Authorize(decision, format)
	s.obs.RecordExport(ctx, format, err == nil)
	span.SetAttributes(attribute.Bool("export.allowed", err == nil))
	if err != nil {
		return decision, export.Receipt{}, err
	}
	s.logger.Info("Export authorized", "format", receipt.Format, "id", receipt.ID, "score", decision.Score)
	return decision, receipt, nil
}

// Tips returns editing tips for every section, or for one section when
// section is non-empty.
func (s *Service) Tips(ctx context.Context, doc *resume.Document, section string) (map[string][]string, error) {
	var tips map[string][]string
	err := s.obs.TrackScoring(ctx, "tips", func(context.Context) error {
		if section == "" {
			t, err := ats.SectionTips(doc)
			tips = t
			return err
		}
		list, err := ats.TipsFor(doc, section)
		tips = map[string][]string{section: list}
		return err
	})
	if err != nil {
		return nil, err
	}
	return tips, nil
}

// BatchScore computes breakdowns for docs concurrently. Results keep the
// input order. The first error cancels the remaining work.
func (s *Service) BatchScore(ctx context.Context, docs []*resume.Document) ([]ats.Breakdown, error) {
	results := make([]ats.Breakdown, len(docs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, doc := range docs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			b, err := s.Breakdown(ctx, doc)
			if err != nil {
				return err
			}
			results[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// CacheStats reports cache backend details for diagnostics.
func (s *Service) CacheStats() map[string]any {
	if s.cache == nil {
		return map[string]any{"enabled": false}
	}
	stats := map[string]any{
		"enabled": true,
		"backend": s.cache.Backend(),
	}
	switch c := s.cache.(type) {
	case *cache.BreakerCache:
		stats["circuit_breaker"] = c.GetStats()
		stats["healthy"] = c.IsHealthy()
	case *cache.MemoryCache:
		stats["entries"] = c.Len()
	}
	return stats
}

// CacheHealthy reports false only when a circuit breaker has opened.
func (s *Service) CacheHealthy() bool {
	if bc, ok := s.cache.(*cache.BreakerCache); ok {
		return bc.IsHealthy()
	}
	return true
}
