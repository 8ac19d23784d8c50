package config

import (
	stderrors "errors"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"time"

	"cvforge/internal/types"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by viper.
const EnvPrefix = "CVFORGE"

// Config holds all application configuration
// API Key Precedence Order (per model):
// 1. User key store (keys.userFile) - Highest priority
// 2. Vault (if configured)
// 3. Environment variables (CVFORGE_MODELS_<ID>_APIKEY, legacy VITE_<ID>_API_KEY)
// 4. Config file values - Lowest priority
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Upload        UploadConfig        `mapstructure:"upload"`
	AI            AIConfig            `mapstructure:"ai"`
	Models        ModelsConfig        `mapstructure:"models"`
	Keys          KeysConfig          `mapstructure:"keys"`
	Export        ExportConfig        `mapstructure:"export"`
	Watch         WatchConfig         `mapstructure:"watch"`
	Server        ServerConfig        `mapstructure:"server"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`

	prompts LoadedPrompts
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
}

// UploadConfig bounds what the extraction pipeline accepts.
type UploadConfig struct {
	MaxFileSize       int64    `mapstructure:"maxFileSize"`
	AllowedExtensions []string `mapstructure:"allowedExtensions"`
}

// AIConfig holds AI service configuration
type AIConfig struct {
	// Provider is one of "mock", "openai" or "gemini".
	Provider         string        `mapstructure:"provider"`
	Model            string        `mapstructure:"model"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxRetries       int           `mapstructure:"maxRetries"`
	Temperature      float32       `mapstructure:"temperature"`
	UseSystemPrompts bool          `mapstructure:"useSystemPrompts"`
	CustomPrompts    PromptConfig  `mapstructure:"customPrompts"`

	Analyze OperationAIConfig `mapstructure:"analyze"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// OperationAIConfig holds AI configuration for the analyze operation. Unset
// pointer fields inherit the global AIConfig values.
type OperationAIConfig struct {
	Provider         string               `mapstructure:"provider"`
	Model            string               `mapstructure:"model"`
	BaseURL          string               `mapstructure:"baseURL"`
	APIKey           string               `mapstructure:"apiKey"`
	Timeout          *time.Duration       `mapstructure:"timeout"`
	MaxRetries       *int                 `mapstructure:"maxRetries"`
	Temperature      *float32             `mapstructure:"temperature"`
	UseSystemPrompts *bool                `mapstructure:"useSystemPrompts"`
	CustomPrompts    PromptConfig         `mapstructure:"customPrompts"`
	CircuitBreaker   CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// PromptConfig holds configuration for customizable prompts
type PromptConfig struct {
	SystemPrompt     string `mapstructure:"systemPrompt"`
	SystemPromptFile string `mapstructure:"systemPromptFile"`
	UserPrompt       string `mapstructure:"userPrompt"`
	UserPromptFile   string `mapstructure:"userPromptFile"`
}

// ModelConfig is the endpoint and credential of one model family.
type ModelConfig struct {
	APIKey  string `mapstructure:"apiKey"`
	BaseURL string `mapstructure:"baseURL"`
	Model   string `mapstructure:"model"`
}

// ModelsConfig holds one ModelConfig per known model id.
type ModelsConfig struct {
	OpenAI   ModelConfig `mapstructure:"openai"`
	Claude   ModelConfig `mapstructure:"claude"`
	Gemini   ModelConfig `mapstructure:"gemini"`
	Qwen     ModelConfig `mapstructure:"qwen"`
	DeepSeek ModelConfig `mapstructure:"deepseek"`
}

// Lookup returns a pointer to the entry for id, or nil for unknown ids.
func (m *ModelsConfig) Lookup(id types.ModelID) *ModelConfig {
	switch id {
	case types.ModelOpenAI:
		return &m.OpenAI
	case types.ModelClaude:
		return &m.Claude
	case types.ModelGemini:
		return &m.Gemini
	case types.ModelQwen:
		return &m.Qwen
	case types.ModelDeepSeek:
		return &m.DeepSeek
	}
	return nil
}

// For returns a copy of the entry for id.
func (m ModelsConfig) For(id types.ModelID) ModelConfig {
	if mc := m.Lookup(id); mc != nil {
		return *mc
	}
	return ModelConfig{}
}

// KeysConfig locates the user key store.
type KeysConfig struct {
	UserFile string `mapstructure:"userFile"`
}

// ExportConfig selects the export template and PDF engine.
type ExportConfig struct {
	DefaultTemplate string        `mapstructure:"defaultTemplate"`
	Engine          string        `mapstructure:"engine"` // "builtin" or "chrome"
	ChromePath      string        `mapstructure:"chromePath"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// WatchConfig configures the watch command.
type WatchConfig struct {
	DebounceDelay time.Duration `mapstructure:"debounceDelay"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`

	TLS TLSConfig `mapstructure:"tls"`

	// API Authentication
	APIKeys []string `mapstructure:"apiKeys"`

	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// TLSConfig holds the server certificate pair. TLS is off when both are empty.
type TLSConfig struct {
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
}

// Enabled reports whether a certificate pair is configured.
func (t TLSConfig) Enabled() bool {
	return t.CertFile != "" && t.KeyFile != ""
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`        // Enable/disable rate limiting
	RequestsPerMin int           `mapstructure:"requestsPerMin"` // Requests allowed per minute
	BurstCapacity  int           `mapstructure:"burstCapacity"`  // Burst capacity for token bucket
	ByIP           bool          `mapstructure:"byIP"`           // Enable per-IP rate limiting
	ByAPIKey       bool          `mapstructure:"byAPIKey"`       // Enable per-API-key rate limiting
	Window         time.Duration `mapstructure:"window"`         // Rate limiting window duration
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool                `mapstructure:"enabled"`
	ServiceName     string              `mapstructure:"serviceName"`
	ServiceVersion  string              `mapstructure:"serviceVersion"`
	ServiceInstance string              `mapstructure:"serviceInstance"`
	ConsoleOutput   bool                `mapstructure:"consoleOutput"`
	SampleRate      float64             `mapstructure:"sampleRate"`
	Metrics         MetricsConfig       `mapstructure:"metrics"`
	CustomMetrics   CustomMetricsConfig `mapstructure:"customMetrics"`
	Console         ConsoleConfig       `mapstructure:"console"`
	Prometheus      PrometheusConfig    `mapstructure:"prometheus"`
	OTLP            OTLPConfig          `mapstructure:"otlp"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// ConsoleConfig holds console output configuration
type ConsoleConfig struct {
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// CustomMetricsConfig toggles the application metric groups.
type CustomMetricsConfig struct {
	AIOperations    bool `mapstructure:"aiOperations"`
	BusinessMetrics bool `mapstructure:"businessMetrics"`
	RateLimits      bool `mapstructure:"rateLimits"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// LoadConfig loads configuration from .env, environment variables and a config file.
// CVFORGE_CONFIG may point at an explicit config file.
func LoadConfig() (*Config, error) {
	log.Println("[CONFIG] Starting configuration loading process")

	loadDotEnv(".env")

	v := viper.New()

	setDefaults(v)
	log.Println("[CONFIG] Applied default configuration values")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	log.Printf("[CONFIG] Configured environment variable handling with prefix '%s'", EnvPrefix)

	if explicit := os.Getenv(EnvPrefix + "_CONFIG"); explicit != "" {
		v.SetConfigFile(explicit)
		log.Printf("[CONFIG] Using explicit config file: %s", explicit)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/cvforge/")
		v.AddConfigPath("$HOME/.cvforge")
		v.AddConfigPath(".")
		log.Println("[CONFIG] Configured config file search paths: /etc/cvforge/, $HOME/.cvforge, .")
	}

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
	} else {
		configFileUsed = v.ConfigFileUsed()
		log.Printf("[CONFIG] Successfully loaded config file: %s", configFileUsed)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	log.Println("[CONFIG] Successfully unmarshaled configuration")

	config.applyFallbacks()
	log.Println("[CONFIG] Applied configuration fallbacks and environment variable overrides")

	config.logConfigurationSources(configFileUsed)

	if err := config.validatePromptFiles(); err != nil {
		return nil, fmt.Errorf("prompt file validation failed: %w", err)
	}

	if err := config.loadPromptsFromFiles(); err != nil {
		return nil, fmt.Errorf("failed to load custom prompts from files: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("[CONFIG] Configuration loading completed successfully")
	return &config, nil
}

// loadDotEnv exports variables from path without overriding the environment.
func loadDotEnv(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		log.Printf("[CONFIG] Failed to load %s: %v", path, err)
		return
	}
	log.Printf("[CONFIG] Loaded environment variables from %s", path)
}

var validProviders = []string{"mock", "openai", "gemini"}

// Validate checks if the configuration is valid. Missing AI credentials are
// not an error: analysis falls back to the mock provider.
func (c *Config) Validate() error {
	if !slices.Contains(validProviders, c.AI.Provider) {
		return fmt.Errorf("invalid AI provider: %s (must be one of %s)", c.AI.Provider, strings.Join(validProviders, ", "))
	}
	if c.AI.Analyze.Provider != "" && !slices.Contains(validProviders, c.AI.Analyze.Provider) {
		return fmt.Errorf("invalid analyze AI provider: %s", c.AI.Analyze.Provider)
	}

	if c.AI.Timeout <= 0 {
		return fmt.Errorf("AI timeout must be positive")
	}

	if c.Upload.MaxFileSize <= 0 {
		return fmt.Errorf("upload max file size must be positive")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if !slices.Contains(c.App.SupportedFormats, c.App.DefaultFormat) {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	switch c.Export.Engine {
	case "builtin", "chrome":
	default:
		return fmt.Errorf("invalid export engine: %s (must be 'builtin' or 'chrome')", c.Export.Engine)
	}

	if (c.Server.TLS.CertFile == "") != (c.Server.TLS.KeyFile == "") {
		return fmt.Errorf("TLS configuration error: certFile and keyFile must be set together")
	}

	if c.Watch.DebounceDelay < 0 {
		return fmt.Errorf("watch debounce delay must not be negative")
	}

	return nil
}
