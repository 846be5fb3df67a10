package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadConfigFileDefaults(t *testing.T) {
	cfg, err := LoadConfigFile(writeConfig(t, "app:\n  logLevel: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, 70, cfg.Scoring.MinExportScore)
	assert.Equal(t, []string{"pdf", "docx", "share"}, cfg.Scoring.ExportFormats)
	assert.True(t, cfg.Scoring.ValidateSchema)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, CacheBackendMemory, cfg.Cache.Backend)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "disabled", cfg.Server.TLS.Mode)
	assert.NotEmpty(t, cfg.Observability.ServiceInstance)
}

func TestLoadConfigFileOverrides(t *testing.T) {
	path := writeConfig(t, `
scoring:
  minExportScore: 85
  exportFormats: [pdf]
cache:
  enabled: true
  backend: redis
  redis:
    url: redis://cache:6379/1
`)
	t.Setenv("CVCRAFT_SERVER_PORT", "9000")
	t.Setenv("CVCRAFT_SERVER_APIKEYS", "one, two")

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, 85, cfg.Scoring.MinExportScore)
	assert.Equal(t, []string{"pdf"}, cfg.Scoring.ExportFormats)
	assert.Equal(t, CacheBackendRedis, cfg.Cache.Backend)
	assert.Equal(t, "redis://cache:6379/1", cfg.Cache.Redis.URL)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, []string{"one", "two"}, cfg.Server.APIKeys)
}

func TestLoadConfigFileInvalid(t *testing.T) {
	_, err := LoadConfigFile(writeConfig(t, "scoring:\n  minExportScore: 150\n"))
	assert.ErrorContains(t, err, "minExportScore must be between 0 and 100")

	_, err = LoadConfigFile(writeConfig(t, "cache:\n  enabled: true\n  backend: memcached\n"))
	assert.ErrorContains(t, err, "invalid cache backend: memcached")

	_, err = LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func validConfig() Config {
	return Config{
		App:     AppConfig{DefaultFormat: "json", SupportedFormats: []string{"json", "text"}},
		Scoring: ScoringConfig{MinExportScore: 70, BatchConcurrency: 2},
		Server:  ServerConfig{Port: "8080", TLS: TLSConfig{Mode: "disabled"}},
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = "http" }, wantErr: "invalid server port: http"},
		{name: "port out of range", mutate: func(c *Config) { c.Server.Port = "70000" }, wantErr: "invalid server port"},
		{name: "unsupported default format", mutate: func(c *Config) { c.App.DefaultFormat = "xml" }, wantErr: "default format 'xml'"},
		{name: "negative concurrency", mutate: func(c *Config) { c.Scoring.BatchConcurrency = -1 }, wantErr: "batchConcurrency must not be negative"},
		{
			name: "redis without address",
			mutate: func(c *Config) {
				c.Cache = CacheConfig{Enabled: true, Backend: CacheBackendRedis}
			},
			wantErr: "cache.redis.url or cache.redis.addr is required",
		},
		{
			name: "breaker threshold out of range",
			mutate: func(c *Config) {
				c.Cache = CacheConfig{
					Enabled:        true,
					Backend:        CacheBackendMemory,
					CircuitBreaker: CircuitBreakerConfig{Enabled: true, FailureThreshold: 1.5},
				}
			},
			wantErr: "failureThreshold must be in (0, 1]",
		},
		{
			name: "disabled cache skips backend checks",
			mutate: func(c *Config) {
				c.Cache = CacheConfig{Enabled: false, Backend: "bogus"}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestTLSConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		tls     TLSConfig
		wantErr string
	}{
		{name: "disabled", tls: TLSConfig{Mode: "disabled"}},
		{name: "invalid mode", tls: TLSConfig{Mode: "strict"}, wantErr: "invalid TLS mode: strict"},
		{name: "invalid min version", tls: TLSConfig{Mode: "disabled", MinVersion: "1.1"}, wantErr: "invalid TLS minVersion: 1.1"},
		{name: "server with files", tls: TLSConfig{Mode: "server", CertFile: "c.pem", KeyFile: "k.pem"}},
		{name: "server with content", tls: TLSConfig{Mode: "server", CertContent: "C", KeyContent: "K"}},
		{name: "server missing key", tls: TLSConfig{Mode: "server", CertFile: "c.pem"}, wantErr: "TLS certificate and key are required for server mode"},
		{
			name:    "server cert from both sources",
			tls:     TLSConfig{Mode: "server", CertFile: "c.pem", CertContent: "C", KeyFile: "k.pem"},
			wantErr: "cannot specify both certFile and certContent",
		},
		{
			name: "mutual",
			tls:  TLSConfig{Mode: "mutual", CertFile: "c.pem", KeyFile: "k.pem", CAFile: "ca.pem", ClientAuthPolicy: "verify"},
		},
		{
			name:    "mutual without CA",
			tls:     TLSConfig{Mode: "mutual", CertFile: "c.pem", KeyFile: "k.pem"},
			wantErr: "CA certificate is required for mutual TLS mode",
		},
		{
			name:    "mutual CA from both sources",
			tls:     TLSConfig{Mode: "mutual", CertFile: "c.pem", KeyFile: "k.pem", CAFile: "ca.pem", CAContent: "CA"},
			wantErr: "cannot specify both caFile and caContent",
		},
		{
			name:    "mutual bad policy",
			tls:     TLSConfig{Mode: "mutual", CertFile: "c.pem", KeyFile: "k.pem", CAFile: "ca.pem", ClientAuthPolicy: "maybe"},
			wantErr: "invalid clientAuthPolicy: maybe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tls.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestApplyFallbacks(t *testing.T) {
	cfg := Config{}
	cfg.Server.TLS.Mode = "mutual"
	cfg.Observability.ServiceName = "cvcraft"
	cfg.applyFallbacks()

	assert.Equal(t, "require", cfg.Server.TLS.ClientAuthPolicy)
	assert.Equal(t, "1.2", cfg.Server.TLS.MinVersion)
	assert.Contains(t, cfg.Observability.ServiceInstance, "cvcraft-")
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a ,, b ,"))
	assert.Nil(t, splitList(" , "))
}

func TestIsSensitive(t *testing.T) {
	assert.True(t, isSensitive("CVCRAFT_SERVER_APIKEYS"))
	assert.True(t, isSensitive("CVCRAFT_CACHE_REDIS_PASSWORD"))
	assert.True(t, isSensitive("CVCRAFT_VAULT_TOKEN"))
	assert.False(t, isSensitive("CVCRAFT_SERVER_PORT"))
}
