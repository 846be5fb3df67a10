package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"cvcraft/internal/config"
)

const shutdownTimeout = 30 * time.Second

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.Host, s.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	tlsConfig, err := s.configureTLS()
	if err != nil {
		_ = ln.Close()
		return fmt.Errorf("failed to set up TLS: %w", err)
	}

	httpServer := &http.Server{
		Handler:      s.Handler(),
		TLSConfig:    tlsConfig,
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		IdleTimeout:  s.IdleTimeout,
	}

	s.startKeyWatcher()
	s.logServerInfo(ln.Addr().String(), tlsConfig != nil)

	serverErrors := make(chan error, 1)
	go func() {
		var err error
		if tlsConfig != nil {
			// Certificates come from GetCertificate, so no file paths here.
			err = httpServer.ServeTLS(ln, "", "")
		} else {
			err = httpServer.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	select {
	case err, ok := <-serverErrors:
		s.cleanup()
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.Logger.Info("Shutdown requested, starting graceful shutdown")
		return s.performGracefulShutdown(httpServer)
	}
}

// startKeyWatcher enables API key rotation when Vault polling is configured
func (s *Server) startKeyWatcher() {
	if s.AppConfig == nil {
		return
	}
	vcfg := s.AppConfig.Vault
	if !vcfg.Enabled || vcfg.PollInterval <= 0 || vcfg.Secrets.APIKeys == "" {
		return
	}

	client, err := config.NewVaultClient(vcfg, s.Logger)
	if err != nil {
		s.Logger.LogError(err, "API key rotation disabled: cannot connect to Vault")
		return
	}
	s.WatchAPIKeys(client, vcfg.Secrets.APIKeys, vcfg.PollInterval)
}

// WatchAPIKeys starts polling path for rotated API keys.
func (s *Server) WatchAPIKeys(client SecretReader, path string, interval time.Duration) {
	kw := NewAPIKeyWatcher(client, path, interval, s.SetAPIKeys, s.Logger)
	if err := kw.Start(); err != nil {
		s.Logger.LogError(err, "Failed to start API key watcher")
		return
	}
	s.keyWatcher = kw
}

func (s *Server) logServerInfo(addr string, tlsEnabled bool) {
	rateLimited := s.RateLimit != nil && s.RateLimit.Enabled
	s.Logger.Info("Starting HTTP server",
		"address", addr,
		"tls_enabled", tlsEnabled,
		"tls_mode", s.TLSConfig.Mode,
		"api_keys", s.apiKeys.len(),
		"max_request_size", s.MaxRequestSize,
		"rate_limit_enabled", rateLimited)

	if s.apiKeys.len() == 0 {
		s.Logger.Warn("API authentication disabled: endpoints are publicly accessible")
	}
	if !rateLimited {
		s.Logger.Warn("Rate limiting disabled")
	}
}

// performGracefulShutdown handles the graceful shutdown process
func (s *Server) performGracefulShutdown(server *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.cleanup()

	s.Logger.Info("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return server.Close()
	}

	s.Logger.Info("Server shutdown completed successfully")
	return nil
}

// cleanup stops background workers
func (s *Server) cleanup() {
	if s.CertificateManager != nil {
		if err := s.CertificateManager.Stop(); err != nil {
			s.Logger.LogError(err, "Failed to stop certificate manager")
		}
	}
	if s.keyWatcher != nil {
		_ = s.keyWatcher.Stop()
	}
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
		s.Logger.Info("Rate limiter cleaned up")
	}
}
