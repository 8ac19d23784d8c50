package cli

import (
	"context"
	"fmt"
	"time"

	"cvforge/internal/config"
	"cvforge/internal/observability"
	"cvforge/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP server exposing the extraction, analysis and export pipeline.

Available endpoints:
- POST /sanitize: Strip binary markers from CV or TOR text
- POST /extract: Extract text from an uploaded file (multipart "file")
- POST /analyze: Analyze a CV against an optional TOR
- POST /preview: Map text to display blocks
- POST /export: Render text as PDF or DOCX
- GET /models: Models with keys available (keys are never returned)
- GET /health: Health check endpoint
- GET /stats: Server statistics and rate limiting info

TLS is enabled when both --cert-file and --key-file (or server.tls.*) are set.`,
	RunE: runServe,
}

var serveOverrides struct {
	host     string
	port     string
	certFile string
	keyFile  string
}

func init() {
	serveCmd.Flags().StringVarP(&serveOverrides.port, "port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().StringVar(&serveOverrides.host, "host", "", "Host to bind to (default from config)")
	serveCmd.Flags().StringVar(&serveOverrides.certFile, "cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().StringVar(&serveOverrides.keyFile, "key-file", "", "Server private key file (PEM, overrides config)")
}

// applyServeOverrides copies non-empty flags over the server config.
func applyServeOverrides(cfg *config.ServerConfig) {
	if serveOverrides.host != "" {
		cfg.Host = serveOverrides.host
	}
	if serveOverrides.port != "" {
		cfg.Port = serveOverrides.port
	}
	if serveOverrides.certFile != "" {
		cfg.TLS.CertFile = serveOverrides.certFile
	}
	if serveOverrides.keyFile != "" {
		cfg.TLS.KeyFile = serveOverrides.keyFile
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	applyServeOverrides(&cfg.Server)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid server configuration: %w", err)
	}

	om, err := observability.NewObservabilityManager(observability.GetObservabilityConfig(cfg, Version))
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := om.Shutdown(ctx); err != nil {
			logger.LogError(err, "Failed to shutdown observability")
		}
	}()

	svc, err := newServices(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer svc.Close()

	if err := config.ApplyVaultSecrets(cfg, svc.vault, logger); err != nil {
		logger.LogError(err, "Continuing with configured API keys")
	}

	if svc.vaultWatcher != nil && cfg.Vault.Watch.Enabled {
		if err := svc.vaultWatcher.Start(); err != nil {
			return fmt.Errorf("failed to start vault watcher: %w", err)
		}
	}

	srv := server.NewServer(cfg, Version, server.Dependencies{
		Pipeline:      svc.pipeline,
		Service:       svc.ai,
		Keys:          svc.keys,
		Exporter:      svc.exporter,
		VaultWatcher:  svc.vaultWatcher,
		Observability: om,
	}, logger)
	return srv.Start(cmd.Context())
}
