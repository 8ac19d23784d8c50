package ai

import (
	"time"

	"cvforge/internal/config"
	"cvforge/internal/errors"
)

// Defaults used when an OperationAIConfig was not produced by
// config.GetAnalyzeConfig and leaves pointer fields unset.
const (
	defaultTimeout     = 60 * time.Second
	defaultMaxRetries  = 3
	defaultTemperature = float32(0.7)
	modelCheckTimeout  = 10 * time.Second
)

// resolveConfig returns a copy of cfg with every pointer field set.
func resolveConfig(cfg *config.OperationAIConfig) *config.OperationAIConfig {
	out := config.OperationAIConfig{}
	if cfg != nil {
		out = *cfg
	}
	if out.Timeout == nil {
		t := defaultTimeout
		out.Timeout = &t
	}
	if out.MaxRetries == nil {
		r := defaultMaxRetries
		out.MaxRetries = &r
	}
	if out.Temperature == nil {
		temp := defaultTemperature
		out.Temperature = &temp
	}
	if out.UseSystemPrompts == nil {
		use := true
		out.UseSystemPrompts = &use
	}
	return &out
}

func orDiscard(logger *errors.Logger) *errors.Logger {
	if logger == nil {
		return errors.NewDiscardLogger()
	}
	return logger
}
