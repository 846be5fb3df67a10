// Package server exposes the scoring engine over HTTP.
package server

import (
	"strings"
	"sync"
	"time"

	"cvcraft/internal/config"
	"cvcraft/internal/engine"
	"cvcraft/internal/errors"
	"cvcraft/internal/observability"
)

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	TLSConfig          config.TLSConfig
	CertificateManager *CertificateManager

	// API authentication. Keys may be swapped at runtime by the key watcher.
	apiKeys    *keySet
	keyWatcher *APIKeyWatcher

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	MaxRequestSize int64

	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	Engine        *engine.Service
	Observability *observability.ObservabilityManager
	Logger        *errors.Logger
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	TLSConfig      config.TLSConfig
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig
}

// NewServerConfig derives server settings from the application config.
func NewServerConfig(cfg *config.Config, version string) ServerConfig {
	rl := cfg.Server.RateLimit
	return ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        version,
		TLSConfig:      cfg.Server.TLS,
		APIKeys:        cfg.Server.APIKeys,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxRequestSize: cfg.App.MaxFileSize,
		RateLimit:      &rl,
	}
}

// NewServer creates a new Server instance. om may be nil.
func NewServer(appCfg *config.Config, cfg ServerConfig, svc *engine.Service, om *observability.ObservabilityManager, logger *errors.Logger) *Server {
	if logger == nil {
		logger = errors.NewNopLogger()
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(cfg.RateLimit.RequestsPerMin, cfg.RateLimit.BurstCapacity, logger)
	}

	return &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		TLSConfig:      cfg.TLSConfig,
		apiKeys:        newKeySet(cfg.APIKeys),
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		Engine:         svc,
		Observability:  om,
		Logger:         logger,
	}
}

// SetAPIKeys replaces the accepted API keys.
func (s *Server) SetAPIKeys(keys []string) {
	s.apiKeys.replace(keys)
}

// APIKeyCount returns the number of configured API keys.
func (s *Server) APIKeyCount() int {
	return s.apiKeys.len()
}

// keySet is a concurrency-safe set of API keys
type keySet struct {
	mu   sync.RWMutex
	keys map[string]struct{}
}

func newKeySet(keys []string) *keySet {
	ks := &keySet{}
	ks.replace(keys)
	return ks
}

func (ks *keySet) replace(keys []string) {
	m := make(map[string]struct{}, len(keys))
	for _, key := range parseKeyList(strings.Join(keys, ",")) {
		m[key] = struct{}{}
	}
	ks.mu.Lock()
	ks.keys = m
	ks.mu.Unlock()
}

func (ks *keySet) contains(key string) bool {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	_, ok := ks.keys[key]
	return ok
}

func (ks *keySet) len() int {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	return len(ks.keys)
}

// parseKeyList splits a comma-separated list, dropping blanks.
func parseKeyList(raw string) []string {
	var keys []string
	for key := range strings.SplitSeq(raw, ",") {
		if key = strings.TrimSpace(key); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}
