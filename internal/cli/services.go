package cli

import (
	"cvforge/internal/ai"
	"cvforge/internal/config"
	"cvforge/internal/document"
	"cvforge/internal/errors"
	"cvforge/internal/keys"
	"cvforge/internal/pipeline"
	"cvforge/internal/render"
)

// services are the components a command wires together from config.
type services struct {
	keys         *keys.Store
	vault        *config.VaultClient
	vaultWatcher *keys.VaultWatcher
	ai           *ai.Service
	pipeline     *pipeline.Pipeline
	exporter     *render.Exporter
}

// newServices builds the key store (with its Vault layer when configured),
// the AI service and the extraction pipeline. A Vault failure is logged and
// the store carries on without that layer.
func newServices(cfg *config.Config, logger *errors.Logger) (*services, error) {
	store, err := keys.NewStoreFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	s := &services{keys: store, exporter: newExporter(cfg.Export, logger)}

	vaultClient, err := config.NewVaultClient(cfg.Vault, logger)
	if err != nil {
		logger.LogError(err, "Vault unavailable, continuing without Vault keys")
	}
	s.vault = vaultClient
	if vaultClient != nil && vaultClient.ModelKeysPath() != "" {
		s.vaultWatcher = keys.NewVaultWatcher(vaultClient, store, cfg.Vault.Watch.PollInterval, logger)
		if err := s.vaultWatcher.Load(); err != nil {
			logger.LogError(err, "Failed to load model keys from Vault")
		}
	}

	analyzeCfg := cfg.GetAnalyzeConfig()
	s.ai, err = ai.NewService(&analyzeCfg, store.Key, logger)
	if err != nil {
		return nil, err
	}

	validator := document.NewValidator(cfg.Upload.MaxFileSize, cfg.Upload.AllowedExtensions)
	s.pipeline = pipeline.New(validator, document.NewExtractor(logger), s.ai, logger)
	return s, nil
}

// newExporter returns an exporter using the chrome engine when configured.
func newExporter(cfg config.ExportConfig, logger *errors.Logger) *render.Exporter {
	if cfg.Engine == "chrome" {
		logger.Debug("Using headless Chrome for PDF export", "chrome_path", cfg.ChromePath)
		return render.NewExporter(render.WithPDFRenderer(render.NewChromeRenderer(cfg.ChromePath, cfg.Timeout)))
	}
	return render.NewExporter()
}

func (s *services) Close() {
	if s.vaultWatcher != nil {
		s.vaultWatcher.Stop()
	}
	if s.ai != nil {
		_ = s.ai.Close()
	}
}
