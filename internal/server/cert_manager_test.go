package server

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvcraft/internal/config"
)

// writeSelfSigned writes a self-signed certificate valid for lifetime and
// returns the cert and key paths.
func writeSelfSigned(t *testing.T, dir, name string, lifetime time.Duration) (string, string) {
	t.Helper()
	certPEM, keyPEM := selfSignedPEM(t, name, lifetime)
	certFile := filepath.Join(dir, name+".crt")
	keyFile := filepath.Join(dir, name+".key")
	require.NoError(t, os.WriteFile(certFile, certPEM, 0o600))
	require.NoError(t, os.WriteFile(keyFile, keyPEM, 0o600))
	return certFile, keyFile
}

func selfSignedPEM(t *testing.T, name string, lifetime time.Duration) ([]byte, []byte) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: name},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(lifetime),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
}

func TestCertificateManagerLoadsFiles(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeSelfSigned(t, dir, "server", 48*time.Hour)

	cm := NewCertificateManager(&config.TLSConfig{Mode: TLSModeServer, CertFile: certFile, KeyFile: keyFile}, nil, nil)
	require.NoError(t, cm.Start())
	t.Cleanup(func() { _ = cm.Stop() })

	cert, err := cm.GetServerCertificate(nil)
	require.NoError(t, err)
	require.NotNil(t, cert.Leaf)
	assert.Equal(t, "server", cert.Leaf.Subject.CommonName)

	ttl, err := cm.CheckExpiry()
	require.NoError(t, err)
	assert.InDelta(t, (48 * time.Hour).Seconds(), ttl.Seconds(), 60)

	assert.Nil(t, cm.GetCACertPool())
	assert.Nil(t, cm.WatchedFiles(), "no watcher without auto-reload")

	m := cm.GetMetrics()
	assert.Equal(t, int64(1), m.ReloadSuccessCount)
	assert.True(t, m.LastReloadSuccess)
}

func TestCertificateManagerLoadsContent(t *testing.T) {
	certPEM, keyPEM := selfSignedPEM(t, "vault", time.Hour)
	cm := NewCertificateManager(&config.TLSConfig{
		Mode:        TLSModeMutual,
		CertContent: string(certPEM),
		KeyContent:  string(keyPEM),
		CAContent:   string(certPEM),
	}, nil, nil)
	require.NoError(t, cm.Start())
	t.Cleanup(func() { _ = cm.Stop() })

	assert.NotNil(t, cm.GetCACertPool())
}

func TestCertificateManagerMutualRequiresCA(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeSelfSigned(t, dir, "server", time.Hour)

	cm := NewCertificateManager(&config.TLSConfig{Mode: TLSModeMutual, CertFile: certFile, KeyFile: keyFile}, nil, nil)
	err := cm.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CA certificate is required")
}

func TestCertificateManagerFailedReloadKeepsCertificate(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeSelfSigned(t, dir, "server", time.Hour)

	cm := NewCertificateManager(&config.TLSConfig{Mode: TLSModeServer, CertFile: certFile, KeyFile: keyFile}, nil, nil)
	require.NoError(t, cm.Start())
	t.Cleanup(func() { _ = cm.Stop() })
	before, err := cm.GetServerCertificate(nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(certFile, []byte("not a certificate"), 0o600))
	require.Error(t, cm.ReloadCertificates())

	after, err := cm.GetServerCertificate(nil)
	require.NoError(t, err)
	assert.Same(t, before, after)

	m := cm.GetMetrics()
	assert.Equal(t, int64(2), m.ReloadCount)
	assert.Equal(t, int64(1), m.ReloadFailureCount)
	assert.False(t, m.LastReloadSuccess)
	assert.NotEmpty(t, m.LastReloadError)
}

func TestCertificateManagerAutoReload(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeSelfSigned(t, dir, "first", time.Hour)

	cm := NewCertificateManager(&config.TLSConfig{
		Mode:       TLSModeServer,
		CertFile:   certFile,
		KeyFile:    keyFile,
		AutoReload: config.AutoReloadConfig{Enabled: true, DebounceDelay: 50 * time.Millisecond},
	}, nil, nil)
	require.NoError(t, cm.Start())
	t.Cleanup(func() { _ = cm.Stop() })
	assert.ElementsMatch(t, []string{certFile, keyFile}, cm.WatchedFiles())
	assert.True(t, cm.WatcherRunning())

	// Rewrite both files and push mtimes forward so the change is detected
	// even on filesystems with coarse timestamps.
	certPEM, keyPEM := selfSignedPEM(t, "second", time.Hour)
	require.NoError(t, os.WriteFile(keyFile, keyPEM, 0o600))
	require.NoError(t, os.WriteFile(certFile, certPEM, 0o600))
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(keyFile, future, future))
	require.NoError(t, os.Chtimes(certFile, future, future))

	require.Eventually(t, func() bool {
		cert, err := cm.GetServerCertificate(nil)
		return err == nil && cert.Leaf.Subject.CommonName == "second"
	}, 5*time.Second, 25*time.Millisecond)
}

func TestServeTLS(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeSelfSigned(t, dir, "localhost", time.Hour)

	s := newTestServer(t, func(_ *config.Config, c *ServerConfig) {
		c.TLSConfig = config.TLSConfig{Mode: TLSModeServer, CertFile: certFile, KeyFile: keyFile, MinVersion: "1.3"}
	})
	tlsConfig, err := s.configureTLS()
	require.NoError(t, err)
	require.NotNil(t, tlsConfig)
	assert.Equal(t, uint16(tls.VersionTLS13), tlsConfig.MinVersion)
	assert.Equal(t, tls.NoClientCert, tlsConfig.ClientAuth)

	status := s.checkCertificateHealth()
	assert.Equal(t, true, status["healthy"])
	assert.Equal(t, "ok", status["status"])
}

func TestCertificateHealthThresholds(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeSelfSigned(t, dir, "soon", 2*time.Hour)

	s := newTestServer(t, func(_ *config.Config, c *ServerConfig) {
		c.TLSConfig = config.TLSConfig{Mode: TLSModeServer, CertFile: certFile, KeyFile: keyFile}
	})
	_, err := s.configureTLS()
	require.NoError(t, err)

	status := s.checkCertificateHealth()
	assert.Equal(t, false, status["healthy"])
	assert.Equal(t, "critical", status["status"])
}

func TestTLSHelpers(t *testing.T) {
	assert.Equal(t, uint16(tls.VersionTLS12), tlsVersion(""))
	assert.Equal(t, tls.RequireAndVerifyClientCert, clientAuthPolicy(""))
	assert.Equal(t, tls.VerifyClientCertIfGiven, clientAuthPolicy("verify"))
	assert.Equal(t, tls.RequestClientCert, clientAuthPolicy("request"))

	assert.Nil(t, cipherSuites(nil))
	assert.Nil(t, cipherSuites([]string{"NOT_A_SUITE"}))
	assert.Equal(t, []uint16{tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256},
		cipherSuites([]string{"TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256", "NOT_A_SUITE"}))
}
