package server

import (
	"fmt"
	"sync"
	"time"

	"cvcraft/internal/config"
	"cvcraft/internal/errors"
)

// SecretReader is the subset of the Vault client the key watcher needs
type SecretReader interface {
	GetSecretV2(path string) (*config.VaultSecret, error)
}

// KeyRotationCallback receives the new key list after a version change
type KeyRotationCallback func(keys []string)

// APIKeyWatcher polls a KVv2 secret holding the API keys and hands the key
// list to its callback whenever the secret version increases.
type APIKeyWatcher struct {
	mu sync.RWMutex

	client       SecretReader
	secretPath   string
	pollInterval time.Duration
	onRotate     KeyRotationCallback
	logger       *errors.Logger

	stopChan    chan struct{}
	running     bool
	lastVersion int64
	lastError   string
	rotations   int
}

// NewAPIKeyWatcher creates a new APIKeyWatcher
func NewAPIKeyWatcher(client SecretReader, secretPath string, pollInterval time.Duration, onRotate KeyRotationCallback, logger *errors.Logger) *APIKeyWatcher {
	return &APIKeyWatcher{
		client:       client,
		secretPath:   secretPath,
		pollInterval: pollInterval,
		onRotate:     onRotate,
		logger:       logger,
		stopChan:     make(chan struct{}),
	}
}

// Start records the current secret version and begins polling. Keys loaded
// at startup are already in the config, so the first version is not a rotation.
func (kw *APIKeyWatcher) Start() error {
	kw.mu.Lock()
	defer kw.mu.Unlock()
	if kw.running {
		return fmt.Errorf("api key watcher is already running")
	}
	if kw.pollInterval <= 0 {
		return fmt.Errorf("api key watcher poll interval must be positive")
	}

	if secret, err := kw.client.GetSecretV2(kw.secretPath); err == nil {
		kw.lastVersion = secret.Version
	} else if kw.logger != nil {
		kw.logger.Warn("Initial API key version lookup failed", "secret_path", kw.secretPath, "error", err.Error())
	}

	kw.running = true
	go kw.pollLoop()
	if kw.logger != nil {
		kw.logger.Info("API key watcher started",
			"secret_path", kw.secretPath,
			"poll_interval", kw.pollInterval,
			"version", kw.lastVersion)
	}
	return nil
}

// Stop stops the watcher
func (kw *APIKeyWatcher) Stop() error {
	kw.mu.Lock()
	defer kw.mu.Unlock()
	if !kw.running {
		return nil
	}
	close(kw.stopChan)
	kw.running = false
	if kw.logger != nil {
		kw.logger.Info("API key watcher stopped")
	}
	return nil
}

func (kw *APIKeyWatcher) pollLoop() {
	ticker := time.NewTicker(kw.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := kw.poll(); err != nil && kw.logger != nil {
				kw.logger.LogError(err, "Failed to check Vault for API key updates")
			}
		case <-kw.stopChan:
			return
		}
	}
}

// poll reads the secret once and rotates when its version is newer than the
// last one seen. It reports whether a rotation happened.
func (kw *APIKeyWatcher) poll() (bool, error) {
	secret, err := kw.client.GetSecretV2(kw.secretPath)
	if err != nil {
		kw.setError(err)
		return false, fmt.Errorf("failed to read secret: %w", err)
	}

	kw.mu.Lock()
	if secret.Version <= kw.lastVersion {
		kw.mu.Unlock()
		return false, nil
	}
	kw.mu.Unlock()

	keys, err := keysFromSecret(secret)
	if err != nil {
		kw.setError(err)
		return false, err
	}

	kw.mu.Lock()
	kw.lastVersion = secret.Version
	kw.lastError = ""
	kw.rotations++
	kw.mu.Unlock()

	if kw.logger != nil {
		kw.logger.Info("API keys rotated from Vault", "version", secret.Version, "count", len(keys))
	}
	kw.onRotate(keys)
	return true, nil
}

func (kw *APIKeyWatcher) setError(err error) {
	kw.mu.Lock()
	kw.lastError = err.Error()
	kw.mu.Unlock()
}

// keysFromSecret extracts the comma-separated key list. An empty list is
// rejected so a bad write to Vault cannot lock every client out.
func keysFromSecret(secret *config.VaultSecret) ([]string, error) {
	raw, ok := secret.Data[config.VaultKeyAPIKeys].(string)
	if !ok {
		return nil, fmt.Errorf("key '%s' missing or not a string in API key secret", config.VaultKeyAPIKeys)
	}
	keys := parseKeyList(raw)
	if len(keys) == 0 {
		return nil, fmt.Errorf("API key secret version %d contains no keys", secret.Version)
	}
	return keys, nil
}

// Status returns the current status of the watcher for health reporting
func (kw *APIKeyWatcher) Status() map[string]any {
	kw.mu.RLock()
	defer kw.mu.RUnlock()
	status := map[string]any{
		"running":       kw.running,
		"poll_interval": kw.pollInterval.String(),
		"secret_path":   kw.secretPath,
		"last_version":  kw.lastVersion,
		"rotations":     kw.rotations,
	}
	if kw.lastError != "" {
		status["last_error"] = kw.lastError
	}
	return status
}
