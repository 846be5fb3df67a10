package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"cvcraft/internal/config"
	"cvcraft/internal/errors"
	"cvcraft/internal/observability"
	"cvcraft/internal/watch"
)

const expiryMetricInterval = time.Minute

// CertificateManager serves the current TLS certificate and reloads it when
// file-based certificates change on disk.
type CertificateManager struct {
	mu sync.RWMutex

	serverCert *tls.Certificate
	caCertPool *x509.CertPool
	expiry     time.Time

	watcher *watch.Watcher
	done    chan struct{}
	stop    sync.Once

	config *config.TLSConfig
	logger *errors.Logger
	om     *observability.ObservabilityManager

	reloadCount        int64
	reloadSuccessCount int64
	reloadFailureCount int64
	lastReloadTime     time.Time
	lastReloadSuccess  bool
	lastReloadError    string
}

// CertificateMetrics holds metrics about certificate operations
type CertificateMetrics struct {
	ReloadCount        int64
	ReloadSuccessCount int64
	ReloadFailureCount int64
	LastReloadTime     time.Time
	LastReloadSuccess  bool
	LastReloadError    string
}

// NewCertificateManager creates a new certificate manager
func NewCertificateManager(tlsConfig *config.TLSConfig, om *observability.ObservabilityManager, logger *errors.Logger) *CertificateManager {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	return &CertificateManager{
		config: tlsConfig,
		logger: logger,
		om:     om,
		done:   make(chan struct{}),
	}
}

// Start loads the initial certificates and, when auto-reload is enabled for
// file-based certificates, starts watching them.
func (cm *CertificateManager) Start() error {
	if err := cm.loadCertificates(); err != nil {
		return fmt.Errorf("failed to load initial certificates: %w", err)
	}

	if cm.om != nil {
		go cm.expiryLoop()
	}

	if !cm.config.AutoReload.Enabled || !cm.usesFiles() {
		return nil
	}

	files := []string{cm.config.CertFile, cm.config.KeyFile}
	if cm.config.Mode == "mutual" {
		files = append(files, cm.config.CAFile)
	}
	w := watch.New("tls", files, cm.config.AutoReload.DebounceDelay, cm.triggerReload, cm.logger)
	if err := w.Start(); err != nil {
		return fmt.Errorf("failed to start certificate watcher: %w", err)
	}
	cm.mu.Lock()
	cm.watcher = w
	cm.mu.Unlock()
	return nil
}

// Stop stops the watcher and expiry monitoring
func (cm *CertificateManager) Stop() error {
	cm.stop.Do(func() { close(cm.done) })

	cm.mu.RLock()
	w := cm.watcher
	cm.mu.RUnlock()
	if w != nil {
		return w.Stop()
	}
	return nil
}

// usesFiles reports whether certificates come from disk rather than content.
func (cm *CertificateManager) usesFiles() bool {
	return cm.config.CertContent == "" && cm.config.CertFile != ""
}

// GetServerCertificate is a tls.Config.GetCertificate hook
func (cm *CertificateManager) GetServerCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if cm.serverCert == nil {
		return nil, fmt.Errorf("no server certificate loaded")
	}
	return cm.serverCert, nil
}

// GetCACertPool returns the client CA pool for mutual TLS, or nil.
func (cm *CertificateManager) GetCACertPool() *x509.CertPool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.caCertPool
}

// ReloadCertificates manually triggers a certificate reload
func (cm *CertificateManager) ReloadCertificates() error {
	err := cm.loadCertificates()
	if err != nil {
		cm.logger.LogError(err, "Failed to reload certificates")
	}
	return err
}

// CheckExpiry returns the time until the server certificate expires
func (cm *CertificateManager) CheckExpiry() (time.Duration, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if cm.expiry.IsZero() {
		return 0, fmt.Errorf("no certificates loaded")
	}
	return time.Until(cm.expiry), nil
}

// GetMetrics returns certificate management metrics
func (cm *CertificateManager) GetMetrics() CertificateMetrics {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	return CertificateMetrics{
		ReloadCount:        cm.reloadCount,
		ReloadSuccessCount: cm.reloadSuccessCount,
		ReloadFailureCount: cm.reloadFailureCount,
		LastReloadTime:     cm.lastReloadTime,
		LastReloadSuccess:  cm.lastReloadSuccess,
		LastReloadError:    cm.lastReloadError,
	}
}

// WatchedFiles returns the files under watch, or nil without a watcher.
func (cm *CertificateManager) WatchedFiles() []string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if cm.watcher == nil {
		return nil
	}
	return cm.watcher.Files()
}

// WatcherRunning reports whether the file watcher is active.
func (cm *CertificateManager) WatcherRunning() bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.watcher != nil && cm.watcher.IsRunning()
}

// loadCertificates loads everything first and swaps only on success, so a
// half-written file never replaces a working certificate.
func (cm *CertificateManager) loadCertificates() error {
	cert, expiry, err := cm.loadCertificatePair()
	if err == nil {
		var pool *x509.CertPool
		if pool, err = cm.loadCACertificate(); err == nil {
			cm.mu.Lock()
			cm.serverCert = &cert
			cm.caCertPool = pool
			cm.expiry = expiry
			cm.mu.Unlock()
		}
	}

	cm.updateReloadMetrics(err)
	if err != nil {
		return err
	}

	cm.logger.Info("Certificates loaded", "server_cert_expiry", expiry)
	return nil
}

// loadCertificatePair prefers PEM content over files
func (cm *CertificateManager) loadCertificatePair() (tls.Certificate, time.Time, error) {
	var (
		cert tls.Certificate
		err  error
	)
	switch {
	case cm.config.CertContent != "" && cm.config.KeyContent != "":
		cert, err = tls.X509KeyPair([]byte(cm.config.CertContent), []byte(cm.config.KeyContent))
		if err != nil {
			return tls.Certificate{}, time.Time{}, fmt.Errorf("failed to load server cert/key from content: %w", err)
		}
	case cm.config.CertFile != "" && cm.config.KeyFile != "":
		cert, err = tls.LoadX509KeyPair(cm.config.CertFile, cm.config.KeyFile)
		if err != nil {
			return tls.Certificate{}, time.Time{}, fmt.Errorf("failed to load server cert/key from files: %w", err)
		}
	default:
		return tls.Certificate{}, time.Time{}, fmt.Errorf("TLS certificate and key are required (provide either files or content)")
	}

	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return tls.Certificate{}, time.Time{}, fmt.Errorf("failed to parse server certificate: %w", err)
	}
	cert.Leaf = leaf
	return cert, leaf.NotAfter, nil
}

// loadCACertificate loads the client CA pool. Only mutual TLS needs one.
func (cm *CertificateManager) loadCACertificate() (*x509.CertPool, error) {
	if cm.config.Mode != "mutual" {
		return nil, nil
	}

	var caCert []byte
	switch {
	case cm.config.CAContent != "":
		caCert = []byte(cm.config.CAContent)
	case cm.config.CAFile != "":
		raw, err := os.ReadFile(cm.config.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		caCert = raw
	default:
		return nil, fmt.Errorf("CA certificate is required for mutual TLS mode (provide either caFile or caContent)")
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("failed to parse CA certificate")
	}
	return pool, nil
}

func (cm *CertificateManager) updateReloadMetrics(err error) {
	cm.mu.Lock()
	cm.reloadCount++
	cm.lastReloadTime = time.Now()
	if err == nil {
		cm.reloadSuccessCount++
		cm.lastReloadSuccess = true
		cm.lastReloadError = ""
	} else {
		cm.reloadFailureCount++
		cm.lastReloadSuccess = false
		cm.lastReloadError = err.Error()
	}
	cm.mu.Unlock()

	ctx := context.Background()
	cm.om.RecordBusinessMetric(ctx, observability.MetricCertReload, err == nil,
		attribute.String("cert_type", "server"))
	cm.recordExpiry(ctx)
}

// triggerReload is called by the watcher
func (cm *CertificateManager) triggerReload() {
	cm.logger.Info("Certificate reload triggered by file watcher")
	_ = cm.ReloadCertificates()
}

func (cm *CertificateManager) recordExpiry(ctx context.Context) {
	cm.mu.RLock()
	expiry := cm.expiry
	cm.mu.RUnlock()
	if !expiry.IsZero() {
		cm.om.RecordCertExpiry(ctx, time.Until(expiry).Seconds())
	}
}

func (cm *CertificateManager) expiryLoop() {
	ticker := time.NewTicker(expiryMetricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cm.recordExpiry(context.Background())
		case <-cm.done:
			return
		}
	}
}
