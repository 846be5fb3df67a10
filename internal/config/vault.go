package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"

	"cvcraft/internal/errors"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	// PollInterval enables API key rotation when positive.
	PollInterval time.Duration `mapstructure:"pollInterval"`

	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets holds KVv2 paths. Empty paths are skipped.
type VaultSecrets struct {
	APIKeys       string `mapstructure:"apiKeys"`       // key "keys", comma-separated
	RedisPassword string `mapstructure:"redisPassword"` // key "password"
	TLSCerts      string `mapstructure:"tlsCerts"`      // keys "cert", "key", "ca"
}

// Secret keys read from Vault.
const (
	VaultKeyAPIKeys       = "keys"
	VaultKeyRedisPassword = "password"
)

type logicalReader interface {
	Read(path string) (*api.Secret, error)
}

// VaultClient reads KVv2 secrets.
type VaultClient struct {
	logical logicalReader
	logger  *errors.Logger
}

// VaultSecret represents a secret read from Vault's KVv2 engine.
type VaultSecret struct {
	Data    map[string]any
	Version int64
}

// NewVaultClient connects to Vault. It returns nil when Vault is disabled.
func NewVaultClient(config VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	if !config.Enabled {
		return nil, nil
	}

	apiConfig := api.DefaultConfig()
	if config.Address != "" {
		apiConfig.Address = config.Address
	}
	client, err := api.NewClient(apiConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if config.Namespace != "" {
		client.SetNamespace(config.Namespace)
	}

	token, err := resolveVaultToken(config)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	health, err := client.Sys().Health()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to vault: %w", err)
	}
	if logger != nil {
		logger.Info("Connected to Vault",
			"address", apiConfig.Address,
			"version", health.Version,
			"sealed", health.Sealed)
	}

	return &VaultClient{logical: client.Logical(), logger: logger}, nil
}

// resolveVaultToken prefers the inline token over the token file.
func resolveVaultToken(config VaultConfig) (string, error) {
	token := config.Token
	if token == "" && config.TokenFile != "" {
		raw, err := os.ReadFile(config.TokenFile)
		if err != nil {
			return "", fmt.Errorf("failed to read vault token file: %w", err)
		}
		token = strings.TrimSpace(string(raw))
	}
	if token == "" {
		return "", fmt.Errorf("vault token is required when vault is enabled")
	}
	return token, nil
}

// GetSecretV2 retrieves a secret from a Vault KVv2 store.
func (vc *VaultClient) GetSecretV2(path string) (*VaultSecret, error) {
	if vc == nil {
		return nil, fmt.Errorf("vault client not initialized")
	}

	secret, err := vc.logical.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}

	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'data' field)", path)
	}
	metadata, ok := secret.Data["metadata"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'metadata' field)", path)
	}
	version, err := parseVersion(metadata["version"])
	if err != nil {
		return nil, fmt.Errorf("bad secret version at %s: %w", path, err)
	}

	return &VaultSecret{Data: data, Version: version}, nil
}

// parseVersion accepts the numeric forms the Vault API decodes metadata into.
func parseVersion(raw any) (int64, error) {
	switch v := raw.(type) {
	case nil:
		return 0, fmt.Errorf("missing version")
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	case interface{ Int64() (int64, error) }:
		return v.Int64()
	default:
		return 0, fmt.Errorf("unexpected version type %T", raw)
	}
}

// GetStringSecret retrieves a string value from a Vault secret
func (vc *VaultClient) GetStringSecret(path, key string) (string, error) {
	secret, err := vc.GetSecretV2(path)
	if err != nil {
		return "", err
	}
	value, ok := secret.Data[key]
	if !ok {
		return "", fmt.Errorf("key '%s' not found in secret %s", key, path)
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("value for key '%s' is not a string in secret %s", key, path)
	}
	if vc.logger != nil {
		vc.logger.Debug("String secret retrieved from Vault", "path", path, "key", key, "masked_value", MaskSecret(s))
	}
	return s, nil
}

// GetStringSliceSecret retrieves a comma-separated string as a slice from Vault
func (vc *VaultClient) GetStringSliceSecret(path, key string) ([]string, error) {
	value, err := vc.GetStringSecret(path, key)
	if err != nil {
		return nil, err
	}
	parts := splitList(value)
	if parts == nil {
		return []string{}, nil
	}
	return parts, nil
}

// MaskSecret keeps the first and last four characters of long values.
func MaskSecret(s string) string {
	switch {
	case len(s) > 8:
		return s[:4] + "****" + s[len(s)-4:]
	case s != "":
		return "****"
	default:
		return ""
	}
}

// ApplyVaultSecrets loads secrets from Vault and applies them to the config
func ApplyVaultSecrets(config *Config, logger *errors.Logger) error {
	if !config.Vault.Enabled {
		return nil
	}

	client, err := NewVaultClient(config.Vault, logger)
	if err != nil {
		return errors.NewConfigError(errors.ErrCodeInvalidConfig, "failed to initialize vault client", err)
	}
	return client.applySecrets(config)
}

func (vc *VaultClient) applySecrets(config *Config) error {
	paths := config.Vault.Secrets

	if paths.APIKeys != "" {
		keys, err := vc.GetStringSliceSecret(paths.APIKeys, VaultKeyAPIKeys)
		if err != nil {
			return fmt.Errorf("failed to load API keys from vault: %w", err)
		}
		if len(keys) > 0 {
			config.Server.APIKeys = keys
		}
		vc.log("API keys loaded from Vault", "count", len(keys))
	}

	if paths.RedisPassword != "" {
		password, err := vc.GetStringSecret(paths.RedisPassword, VaultKeyRedisPassword)
		if err != nil {
			return fmt.Errorf("failed to load redis password from vault: %w", err)
		}
		config.Cache.Redis.Password = password
		vc.log("Redis password loaded from Vault")
	}

	if paths.TLSCerts != "" {
		secret, err := vc.GetSecretV2(paths.TLSCerts)
		if err != nil {
			return fmt.Errorf("failed to load TLS certificates from vault: %w", err)
		}
		if err := applyTLSSecret(&config.Server.TLS, secret); err != nil {
			return err
		}
		vc.log("TLS certificates loaded from Vault", "version", secret.Version)
	}

	return nil
}

func (vc *VaultClient) log(msg string, args ...any) {
	if vc.logger != nil {
		vc.logger.Info(msg, args...)
	}
}

// applyTLSSecret copies PEM content into the TLS config. Vault-provided
// content replaces file paths so the two sources never conflict.
func applyTLSSecret(tls *TLSConfig, secret *VaultSecret) error {
	for _, legacy := range []string{"cert_file", "key_file", "ca_file"} {
		if _, ok := secret.Data[legacy]; ok {
			return fmt.Errorf("vault TLS configuration error: '%s' field is no longer supported. Store certificate content in '%s' field instead",
				legacy, strings.TrimSuffix(legacy, "_file"))
		}
	}

	targets := []struct {
		key     string
		content *string
		file    *string
	}{
		{"cert", &tls.CertContent, &tls.CertFile},
		{"key", &tls.KeyContent, &tls.KeyFile},
		{"ca", &tls.CAContent, &tls.CAFile},
	}
	for _, t := range targets {
		if pem, ok := secret.Data[t.key].(string); ok && pem != "" {
			*t.content = pem
			*t.file = ""
		}
	}
	return nil
}
