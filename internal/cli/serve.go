package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cvcraft/internal/config"
	"cvcraft/internal/observability"
	"cvcraft/internal/server"
)

type serveFlags struct {
	port     string
	host     string
	tlsMode  string
	certFile string
	keyFile  string
	caFile   string
}

func newServeCmd() *cobra.Command {
	flags := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the scoring HTTP API",
		Long: `Start an HTTP server exposing the scoring engine.

Endpoints:
- POST /score: ATS breakdown of a resume
- POST /readiness: export readiness and missing sections
- POST /export/check: export gate, optionally requesting a mock export
- POST /tips: section-level improvement tips
- GET /sample: the built-in sample resume (?empty=true for a blank one)
- GET /health: health check
- GET /stats: rate limiting, cache and export policy

Flags override the loaded configuration. Use --tls-mode with --cert-file
and --key-file to serve TLS, and --ca-file for mutual TLS.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.port, "port", "p", "", "Port to listen on (default from config)")
	cmd.Flags().StringVar(&flags.host, "host", "", "Host to bind to (default from config)")
	cmd.Flags().StringVar(&flags.tlsMode, "tls-mode", "", "TLS mode: disabled, server, mutual")
	cmd.Flags().StringVar(&flags.certFile, "cert-file", "", "Server certificate file (PEM)")
	cmd.Flags().StringVar(&flags.keyFile, "key-file", "", "Server private key file (PEM)")
	cmd.Flags().StringVar(&flags.caFile, "ca-file", "", "CA certificate for client verification (PEM)")
	return cmd
}

// apply copies every flag the user set onto cfg.
func (f *serveFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	set := func(name string, dst *string, value string) {
		if cmd.Flags().Changed(name) {
			*dst = value
		}
	}
	set("port", &cfg.Server.Port, f.port)
	set("host", &cfg.Server.Host, f.host)
	set("tls-mode", &cfg.Server.TLS.Mode, f.tlsMode)
	set("cert-file", &cfg.Server.TLS.CertFile, f.certFile)
	set("key-file", &cfg.Server.TLS.KeyFile, f.keyFile)
	set("ca-file", &cfg.Server.TLS.CAFile, f.caFile)
}

func runServe(cmd *cobra.Command, flags *serveFlags) error {
	cfg, logger, err := commandDeps(cmd)
	if err != nil {
		return err
	}
	flags.apply(cmd, cfg)

	if err := config.ApplyVaultSecrets(cfg, logger); err != nil {
		return fmt.Errorf("failed to load secrets from Vault: %w", err)
	}
	if err := cfg.Server.TLS.Validate(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	om, err := observability.NewObservabilityManager(observability.GetObservabilityConfig(cfg, Version), cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := om.Shutdown(ctx); err != nil {
			logger.LogError(err, "Observability shutdown failed")
		}
	}()

	svc, err := newEngine(cmd.Context(), cfg, logger, om)
	if err != nil {
		return err
	}

	return server.NewServer(cfg, server.NewServerConfig(cfg, Version), svc, om, logger).Start(cmd.Context())
}
