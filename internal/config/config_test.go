package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"cvforge/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points config discovery at an empty directory and clears the
// variables a developer machine may carry.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	for _, name := range []string{EnvPrefix + "_CONFIG", EnvPrefix + "_AI_PROVIDER", EnvPrefix + "_SERVER_APIKEYS"} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
	for _, id := range types.KnownModels {
		t.Setenv(ModelKeyEnv(id), "")
		os.Unsetenv(ModelKeyEnv(id))
		t.Setenv(LegacyKeyEnv(id), "")
		os.Unsetenv(LegacyKeyEnv(id))
	}
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.AI.Provider)
	assert.Equal(t, "gpt-4", cfg.AI.Model)
	assert.InDelta(t, 0.7, cfg.AI.Temperature, 0.0001)
	assert.Equal(t, int64(5*1024*1024), cfg.Upload.MaxFileSize)
	assert.Equal(t, []string{".pdf", ".doc", ".docx", ".txt"}, cfg.Upload.AllowedExtensions)
	assert.Equal(t, "eu", cfg.Export.DefaultTemplate)
	assert.Equal(t, "builtin", cfg.Export.Engine)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.DebounceDelay)
	assert.Equal(t, filepath.Join(dir, ".cvforge", "keys.json"), cfg.Keys.UserFile)
	assert.Equal(t, DefaultOpenAIBaseURL, cfg.Models.OpenAI.BaseURL)
	assert.Empty(t, cfg.Models.OpenAI.APIKey, "missing keys are not a load error")
	assert.True(t, cfg.AI.Analyze.CircuitBreaker.Enabled)
	assert.NotEmpty(t, cfg.Observability.ServiceInstance)
}

func TestLoadConfigEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv(EnvPrefix+"_AI_PROVIDER", "mock")
	t.Setenv(ModelKeyEnv(types.ModelOpenAI), "sk-env-openai")
	t.Setenv(LegacyKeyEnv(types.ModelClaude), "sk-legacy-claude")
	t.Setenv(LegacyKeyEnv(types.ModelOpenAI), "sk-legacy-openai")
	t.Setenv(EnvPrefix+"_SERVER_APIKEYS", "one, two ,,three")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "mock", cfg.AI.Provider)
	assert.Equal(t, "sk-env-openai", cfg.Models.OpenAI.APIKey, "prefixed variable wins over legacy")
	assert.Equal(t, "sk-legacy-claude", cfg.Models.Claude.APIKey)
	assert.Equal(t, []string{"one", "two", "three"}, cfg.Server.APIKeys)
}

func TestLoadConfigDotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("VITE_GEMINI_API_KEY=sk-dotenv\n"), 0600))

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "sk-dotenv", cfg.Models.Gemini.APIKey)
}

func TestLoadConfigFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	yaml := `
ai:
  provider: gemini
  analyze:
    temperature: 0.2
models:
  gemini:
    apiKey: sk-file
upload:
  maxFileSize: 1024
watch:
  debounceDelay: 2s
export:
  engine: chrome
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0600))
	t.Setenv(EnvPrefix+"_CONFIG", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.AI.Provider)
	assert.Equal(t, int64(1024), cfg.Upload.MaxFileSize)
	assert.Equal(t, 2*time.Second, cfg.Watch.DebounceDelay)
	assert.Equal(t, "chrome", cfg.Export.Engine)

	analyze := cfg.GetAnalyzeConfig()
	assert.Equal(t, "gemini", analyze.Provider)
	assert.Equal(t, "gemini-2.0-flash", analyze.Model)
	assert.Equal(t, "sk-file", analyze.APIKey)
	require.NotNil(t, analyze.Temperature)
	assert.InDelta(t, 0.2, *analyze.Temperature, 0.0001)
}

func TestLoadConfigInvalidFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ai: [unterminated"), 0600))
	t.Setenv(EnvPrefix+"_CONFIG", path)

	_, err := LoadConfig()
	assert.Error(t, err)
}

func validConfig() *Config {
	return &Config{
		App:    AppConfig{LogLevel: "info", DefaultFormat: "json", SupportedFormats: []string{"json", "text"}},
		Upload: UploadConfig{MaxFileSize: 1024},
		AI:     AIConfig{Provider: "openai", Timeout: time.Second},
		Export: ExportConfig{Engine: "builtin"},
		Server: ServerConfig{Port: "8080"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "mock provider", mutate: func(c *Config) { c.AI.Provider = "mock" }},
		{name: "unknown provider", mutate: func(c *Config) { c.AI.Provider = "claude" }, wantErr: "invalid AI provider"},
		{name: "unknown analyze provider", mutate: func(c *Config) { c.AI.Analyze.Provider = "x" }, wantErr: "invalid analyze AI provider"},
		{name: "zero timeout", mutate: func(c *Config) { c.AI.Timeout = 0 }, wantErr: "timeout"},
		{name: "zero upload size", mutate: func(c *Config) { c.Upload.MaxFileSize = 0 }, wantErr: "max file size"},
		{name: "missing port", mutate: func(c *Config) { c.Server.Port = "" }, wantErr: "port"},
		{name: "bad default format", mutate: func(c *Config) { c.App.DefaultFormat = "xml" }, wantErr: "default format"},
		{name: "bad engine", mutate: func(c *Config) { c.Export.Engine = "latex" }, wantErr: "export engine"},
		{name: "half tls pair", mutate: func(c *Config) { c.Server.TLS.CertFile = "cert.pem" }, wantErr: "TLS"},
		{name: "full tls pair", mutate: func(c *Config) { c.Server.TLS = TLSConfig{CertFile: "c", KeyFile: "k"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetAnalyzeConfigInheritance(t *testing.T) {
	cfg := validConfig()
	cfg.AI.Model = "fallback-model"
	cfg.AI.MaxRetries = 4
	cfg.AI.Temperature = 0.7
	cfg.AI.UseSystemPrompts = true
	cfg.Models.OpenAI = ModelConfig{APIKey: "sk-openai", BaseURL: DefaultOpenAIBaseURL}

	analyze := cfg.GetAnalyzeConfig()

	assert.Equal(t, "openai", analyze.Provider)
	assert.Equal(t, "fallback-model", analyze.Model)
	assert.Equal(t, DefaultOpenAIBaseURL, analyze.BaseURL)
	assert.Equal(t, "sk-openai", analyze.APIKey)
	require.NotNil(t, analyze.MaxRetries)
	assert.Equal(t, 4, *analyze.MaxRetries)
	require.NotNil(t, analyze.UseSystemPrompts)
	assert.True(t, *analyze.UseSystemPrompts)

	retries := 1
	cfg.AI.Analyze.MaxRetries = &retries
	cfg.AI.Analyze.Model = "override"
	analyze = cfg.GetAnalyzeConfig()
	assert.Equal(t, 1, *analyze.MaxRetries)
	assert.Equal(t, "override", analyze.Model)
}

func TestModelsLookup(t *testing.T) {
	var models ModelsConfig
	for _, id := range types.KnownModels {
		mc := models.Lookup(id)
		require.NotNil(t, mc, id)
		mc.APIKey = "key-" + string(id)
	}
	assert.Nil(t, models.Lookup("mistral"))
	assert.Equal(t, "key-qwen", models.For(types.ModelQwen).APIKey)
	assert.Equal(t, ModelConfig{}, models.For("mistral"))
}

func TestKeyEnvNames(t *testing.T) {
	assert.Equal(t, "VITE_DEEPSEEK_API_KEY", LegacyKeyEnv(types.ModelDeepSeek))
	assert.Equal(t, "CVFORGE_MODELS_OPENAI_APIKEY", ModelKeyEnv(types.ModelOpenAI))
	assert.Equal(t, types.ModelGemini, ProviderModel("gemini"))
	assert.Equal(t, types.ModelOpenAI, ProviderModel("openai"))
	assert.Equal(t, types.ModelOpenAI, ProviderModel("mock"))
}
