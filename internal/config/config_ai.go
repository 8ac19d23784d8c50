package config

import "cvforge/internal/types"

// applyOperationDefaults applies global defaults to operation-specific configuration
func (c *Config) applyOperationDefaults(opCfg *OperationAIConfig) {
	if opCfg.Provider == "" {
		opCfg.Provider = c.AI.Provider
	}
	if opCfg.Timeout == nil {
		opCfg.Timeout = &c.AI.Timeout
	}
	if opCfg.MaxRetries == nil {
		opCfg.MaxRetries = &c.AI.MaxRetries
	}
	if opCfg.Temperature == nil {
		opCfg.Temperature = &c.AI.Temperature
	}
	// UseSystemPrompts: apply global default only if not explicitly set
	if opCfg.UseSystemPrompts == nil {
		opCfg.UseSystemPrompts = &c.AI.UseSystemPrompts
	}
}

// applyModelDefaults fills endpoint, model and key from the model family
// that backs the operation's provider.
func (c *Config) applyModelDefaults(opCfg *OperationAIConfig) {
	model := c.Models.For(ProviderModel(opCfg.Provider))
	if opCfg.Model == "" {
		opCfg.Model = model.Model
	}
	if opCfg.Model == "" {
		opCfg.Model = c.AI.Model
	}
	if opCfg.BaseURL == "" {
		opCfg.BaseURL = model.BaseURL
	}
	if opCfg.APIKey == "" {
		opCfg.APIKey = model.APIKey
	}
}

// ProviderModel maps a provider name to the model id whose key it consumes.
func ProviderModel(provider string) types.ModelID {
	if provider == "gemini" {
		return types.ModelGemini
	}
	return types.ModelOpenAI
}

// GetAnalyzeConfig returns the AI configuration for analyze operations with fallback to global config
func (c *Config) GetAnalyzeConfig() OperationAIConfig {
	config := c.AI.Analyze

	c.applyOperationDefaults(&config)
	c.applyModelDefaults(&config)

	// Loaded file content wins over inline prompts; operation prompts win over global ones
	config.CustomPrompts.SystemPrompt = firstNonEmpty(
		c.prompts.Analyze.System,
		config.CustomPrompts.SystemPrompt,
		c.prompts.Global.System,
		c.AI.CustomPrompts.SystemPrompt,
	)
	config.CustomPrompts.UserPrompt = firstNonEmpty(
		c.prompts.Analyze.User,
		config.CustomPrompts.UserPrompt,
		c.prompts.Global.User,
		c.AI.CustomPrompts.UserPrompt,
	)

	return config
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
