package config

import (
	"fmt"
	"slices"
	"strconv"
)

// Validate checks the loaded configuration for inconsistencies
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid server port: %s", c.Server.Port)
	}

	if len(c.App.SupportedFormats) > 0 && !slices.Contains(c.App.SupportedFormats, c.App.DefaultFormat) {
		return fmt.Errorf("default format '%s' is not in supported formats %v", c.App.DefaultFormat, c.App.SupportedFormats)
	}

	if c.Scoring.MinExportScore < 0 || c.Scoring.MinExportScore > 100 {
		return fmt.Errorf("scoring.minExportScore must be between 0 and 100, got %d", c.Scoring.MinExportScore)
	}
	if c.Scoring.BatchConcurrency < 0 {
		return fmt.Errorf("scoring.batchConcurrency must not be negative, got %d", c.Scoring.BatchConcurrency)
	}

	if err := c.validateCache(); err != nil {
		return err
	}

	return c.Server.TLS.Validate()
}

func (c *Config) validateCache() error {
	if !c.Cache.Enabled {
		return nil
	}
	switch c.Cache.Backend {
	case CacheBackendMemory:
		if c.Cache.MaxEntries < 0 {
			return fmt.Errorf("cache.maxEntries must not be negative, got %d", c.Cache.MaxEntries)
		}
	case CacheBackendRedis:
		if c.Cache.Redis.URL == "" && c.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.url or cache.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("invalid cache backend: %s (must be '%s' or '%s')", c.Cache.Backend, CacheBackendMemory, CacheBackendRedis)
	}
	if cb := c.Cache.CircuitBreaker; cb.Enabled && (cb.FailureThreshold <= 0 || cb.FailureThreshold > 1) {
		return fmt.Errorf("cache.circuitBreaker.failureThreshold must be in (0, 1], got %v", cb.FailureThreshold)
	}
	return nil
}

// pemSource describes one certificate input that may come from a file or inline content.
type pemSource struct {
	fileField    string
	file         string
	contentField string
	content      string
}

func (s pemSource) present() bool {
	return s.file != "" || s.content != ""
}

func (s pemSource) checkExclusive() error {
	if s.file != "" && s.content != "" {
		return fmt.Errorf("cannot specify both %s and %s - choose one", s.fileField, s.contentField)
	}
	return nil
}

func (t TLSConfig) sources() (cert, key, ca pemSource) {
	cert = pemSource{fileField: "certFile", file: t.CertFile, contentField: "certContent", content: t.CertContent}
	key = pemSource{fileField: "keyFile", file: t.KeyFile, contentField: "keyContent", content: t.KeyContent}
	ca = pemSource{fileField: "caFile", file: t.CAFile, contentField: "caContent", content: t.CAContent}
	return cert, key, ca
}

// Validate checks mode-specific TLS requirements.
func (t TLSConfig) Validate() error {
	switch t.MinVersion {
	case "", "1.2", "1.3":
	default:
		return fmt.Errorf("invalid TLS minVersion: %s (must be '1.2' or '1.3')", t.MinVersion)
	}

	cert, key, ca := t.sources()
	switch t.Mode {
	case "disabled":
		return nil
	case "server", "mutual":
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", t.Mode)
	}

	if !cert.present() || !key.present() {
		return fmt.Errorf("TLS certificate and key are required for %s mode (provide either files or content)", t.Mode)
	}
	if err := cert.checkExclusive(); err != nil {
		return err
	}
	if err := key.checkExclusive(); err != nil {
		return err
	}
	if t.Mode == "server" {
		return nil
	}

	if !ca.present() {
		return fmt.Errorf("CA certificate is required for mutual TLS mode (provide either caFile or caContent)")
	}
	if err := ca.checkExclusive(); err != nil {
		return err
	}
	switch t.ClientAuthPolicy {
	case "", "require", "request", "verify":
		return nil
	default:
		return fmt.Errorf("invalid clientAuthPolicy: %s (must be 'require', 'request', or 'verify')", t.ClientAuthPolicy)
	}
}
