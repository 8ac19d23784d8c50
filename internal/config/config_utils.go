package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"cvforge/internal/types"
)

// LegacyKeyEnv returns the pre-viper variable name for a model key,
// e.g. VITE_OPENAI_API_KEY.
func LegacyKeyEnv(id types.ModelID) string {
	return "VITE_" + strings.ToUpper(string(id)) + "_API_KEY"
}

// ModelKeyEnv returns the viper-bound variable name for a model key,
// e.g. CVFORGE_MODELS_OPENAI_APIKEY.
func ModelKeyEnv(id types.ModelID) string {
	return EnvPrefix + "_MODELS_" + strings.ToUpper(string(id)) + "_APIKEY"
}

// applyFallbacks applies environment variable fallbacks
func (c *Config) applyFallbacks() {
	c.applyServerAPIKeyFallbacks()
	c.applyLegacyModelKeys()
	c.applyPathDefaults()
	c.applyObservabilityDefaults()
}

// applyServerAPIKeyFallbacks applies API key fallbacks from environment variables
func (c *Config) applyServerAPIKeyFallbacks() {
	if len(c.Server.APIKeys) == 0 {
		if apiKeysEnv := os.Getenv(EnvPrefix + "_SERVER_APIKEYS"); apiKeysEnv != "" {
			c.Server.APIKeys = splitAndTrim(apiKeysEnv)
		}
	}
}

// applyLegacyModelKeys fills model keys from VITE_<ID>_API_KEY when the
// CVFORGE_ variable and config file left them empty.
func (c *Config) applyLegacyModelKeys() {
	for _, id := range types.KnownModels {
		mc := c.Models.Lookup(id)
		if mc.APIKey != "" {
			continue
		}
		if key := strings.TrimSpace(os.Getenv(LegacyKeyEnv(id))); key != "" {
			mc.APIKey = key
		}
	}
}

// applyPathDefaults expands $HOME style references in configured paths.
func (c *Config) applyPathDefaults() {
	c.Keys.UserFile = os.ExpandEnv(c.Keys.UserFile)
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}

	// Set console output based on log level if not explicitly configured
	if c.App.LogLevel == "debug" && !c.Observability.ConsoleOutput {
		c.Observability.ConsoleOutput = true
	}
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		EnvPrefix + "_AI_PROVIDER",
		EnvPrefix + "_AI_MODEL",
		EnvPrefix + "_SERVER_PORT",
		EnvPrefix + "_SERVER_HOST",
		EnvPrefix + "_SERVER_APIKEYS",
		EnvPrefix + "_APP_LOGLEVEL",
		EnvPrefix + "_VAULT_ENABLED",
	}
	for _, id := range types.KnownModels {
		envVars = append(envVars, ModelKeyEnv(id), LegacyKeyEnv(id))
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			if isSensitiveName(envVar) {
				log.Printf("[CONFIG]   %s=***MASKED***", envVar)
			} else {
				log.Printf("[CONFIG]   %s=%s", envVar, value)
			}
			hasEnvVars = true
		}
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] AI Provider: %s", c.AI.Provider)
	log.Printf("[CONFIG] AI Model: %s", c.AI.Model)
	for _, id := range types.KnownModels {
		state := "***NOT SET***"
		if c.Models.For(id).APIKey != "" {
			state = "***CONFIGURED***"
		}
		log.Printf("[CONFIG] %s API Key: %s", id, state)
	}
	log.Printf("[CONFIG] Server Host: %s", c.Server.Host)
	log.Printf("[CONFIG] Server Port: %s", c.Server.Port)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] TLS Enabled: %t", c.Server.TLS.Enabled())
	log.Printf("[CONFIG] Export Engine: %s", c.Export.Engine)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)
	log.Printf("[CONFIG] Analyze - Provider: %s, Model: %s", c.AI.Analyze.Provider, c.AI.Analyze.Model)

	log.Println("[CONFIG] =====================================")
}

func isSensitiveName(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "key") || strings.Contains(lower, "token")
}
