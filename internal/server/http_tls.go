package server

import (
	"crypto/tls"
	"fmt"
)

// TLS modes
const (
	TLSModeDisabled = "disabled"
	TLSModeServer   = "server"
	TLSModeMutual   = "mutual"
)

// configureTLS starts the certificate manager and builds the TLS config.
// It returns nil in disabled mode.
func (s *Server) configureTLS() (*tls.Config, error) {
	switch s.TLSConfig.Mode {
	case TLSModeDisabled, "":
		return nil, nil
	case TLSModeServer, TLSModeMutual:
	default:
		return nil, fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", s.TLSConfig.Mode)
	}

	cm := NewCertificateManager(&s.TLSConfig, s.Observability, s.Logger)
	if err := cm.Start(); err != nil {
		return nil, err
	}
	s.CertificateManager = cm

	return s.buildTLSConfig(), nil
}

// buildTLSConfig creates the TLS configuration. Certificates and the client
// CA pool are resolved per handshake so reloads take effect immediately.
func (s *Server) buildTLSConfig() *tls.Config {
	tlsConfig := &tls.Config{
		MinVersion:     tlsVersion(s.TLSConfig.MinVersion),
		GetCertificate: s.CertificateManager.GetServerCertificate,
		CipherSuites:   cipherSuites(s.TLSConfig.CipherSuites),
		ClientAuth:     tls.NoClientCert,
	}

	if s.TLSConfig.Mode == TLSModeMutual {
		tlsConfig.ClientAuth = clientAuthPolicy(s.TLSConfig.ClientAuthPolicy)
		tlsConfig.ClientCAs = s.CertificateManager.GetCACertPool()
		tlsConfig.GetConfigForClient = func(*tls.ClientHelloInfo) (*tls.Config, error) {
			cfg := tlsConfig.Clone()
			cfg.ClientCAs = s.CertificateManager.GetCACertPool()
			cfg.GetConfigForClient = nil
			return cfg, nil
		}
	}

	if s.TLSConfig.InsecureSkipVerify {
		tlsConfig.InsecureSkipVerify = true
		s.Logger.Warn("TLS certificate verification is disabled (insecureSkipVerify=true)")
	}
	if s.TLSConfig.ServerName != "" {
		tlsConfig.ServerName = s.TLSConfig.ServerName
	}

	return tlsConfig
}

func tlsVersion(v string) uint16 {
	if v == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}

func clientAuthPolicy(policy string) tls.ClientAuthType {
	switch policy {
	case "request":
		return tls.RequestClientCert
	case "verify":
		return tls.VerifyClientCertIfGiven
	default:
		return tls.RequireAndVerifyClientCert
	}
}

// cipherSuites maps configured names to IDs, skipping unknown names. An
// empty result leaves Go's defaults in place.
func cipherSuites(names []string) []uint16 {
	if len(names) == 0 {
		return nil
	}
	known := make(map[string]uint16)
	for _, cs := range tls.CipherSuites() {
		known[cs.Name] = cs.ID
	}
	ids := make([]uint16, 0, len(names))
	for _, name := range names {
		if id, ok := known[name]; ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return ids
}
