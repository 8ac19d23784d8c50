package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default endpoints per model family. Qwen and DeepSeek expose
// OpenAI-compatible chat completion APIs; Claude is reached through OpenRouter.
const (
	DefaultOpenAIBaseURL   = "https://api.openai.com/v1"
	DefaultClaudeBaseURL   = "https://openrouter.ai/api/v1"
	DefaultQwenBaseURL     = "https://dashscope-intl.aliyuncs.com/compatible-mode/v1"
	DefaultDeepSeekBaseURL = "https://api.deepseek.com/v1"
)

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// AI Configuration - Global defaults
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.model", "gpt-4")
	v.SetDefault("ai.timeout", 60*time.Second)
	v.SetDefault("ai.maxRetries", 3)
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.useSystemPrompts", true)
	v.SetDefault("ai.customPrompts.systemPrompt", "")
	v.SetDefault("ai.customPrompts.systemPromptFile", "")
	v.SetDefault("ai.customPrompts.userPrompt", "")
	v.SetDefault("ai.customPrompts.userPromptFile", "")

	// AI Configuration - Analyze operation defaults
	v.SetDefault("ai.analyze.provider", "")
	v.SetDefault("ai.analyze.model", "")
	v.SetDefault("ai.analyze.baseURL", "")
	v.SetDefault("ai.analyze.apiKey", "")

	// Circuit Breaker Configuration defaults
	v.SetDefault("ai.analyze.circuitBreaker.enabled", true)
	v.SetDefault("ai.analyze.circuitBreaker.maxRequests", 3)
	v.SetDefault("ai.analyze.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("ai.analyze.circuitBreaker.timeout", 60*time.Second)
	v.SetDefault("ai.analyze.circuitBreaker.minRequests", 3)
	v.SetDefault("ai.analyze.circuitBreaker.failureThreshold", 0.6)

	// Per-model endpoints and keys
	v.SetDefault("models.openai.apiKey", "")
	v.SetDefault("models.openai.baseURL", DefaultOpenAIBaseURL)
	v.SetDefault("models.openai.model", "gpt-4")
	v.SetDefault("models.claude.apiKey", "")
	v.SetDefault("models.claude.baseURL", DefaultClaudeBaseURL)
	v.SetDefault("models.claude.model", "anthropic/claude-3.5-sonnet")
	v.SetDefault("models.gemini.apiKey", "")
	v.SetDefault("models.gemini.baseURL", "")
	v.SetDefault("models.gemini.model", "gemini-2.0-flash")
	v.SetDefault("models.qwen.apiKey", "")
	v.SetDefault("models.qwen.baseURL", DefaultQwenBaseURL)
	v.SetDefault("models.qwen.model", "qwen-plus")
	v.SetDefault("models.deepseek.apiKey", "")
	v.SetDefault("models.deepseek.baseURL", DefaultDeepSeekBaseURL)
	v.SetDefault("models.deepseek.model", "deepseek-chat")

	// Key store
	v.SetDefault("keys.userFile", "$HOME/.cvforge/keys.json")

	// Upload limits
	v.SetDefault("upload.maxFileSize", 5*1024*1024) // 5MB
	v.SetDefault("upload.allowedExtensions", []string{".pdf", ".doc", ".docx", ".txt"})

	// Export
	v.SetDefault("export.defaultTemplate", "eu")
	v.SetDefault("export.engine", "builtin")
	v.SetDefault("export.chromePath", "")
	v.SetDefault("export.timeout", 60*time.Second)

	// Watch mode
	v.SetDefault("watch.debounceDelay", 500*time.Millisecond)

	// Server Configuration
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 90*time.Second) // analysis calls can be slow
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.tls.certFile", "")
	v.SetDefault("server.tls.keyFile", "")
	// API Authentication defaults
	v.SetDefault("server.apiKeys", []string{})
	// Rate limiting defaults
	v.SetDefault("server.rateLimit.enabled", false)
	v.SetDefault("server.rateLimit.requestsPerMin", 60)
	v.SetDefault("server.rateLimit.burstCapacity", 10)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byAPIKey", false)
	v.SetDefault("server.rateLimit.window", time.Minute)

	// App Configuration
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "json")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown"})

	// Vault Configuration
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.secrets.apiKeys", "")
	v.SetDefault("vault.secrets.modelKeys", "")
	v.SetDefault("vault.watch.enabled", false)
	v.SetDefault("vault.watch.pollInterval", 5*time.Minute)

	// Observability Configuration
	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "cvforge")
	v.SetDefault("observability.serviceVersion", "")  // Will use app version if empty
	v.SetDefault("observability.serviceInstance", "") // Will be auto-generated if empty
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)
	v.SetDefault("observability.customMetrics.aiOperations", true)
	v.SetDefault("observability.customMetrics.businessMetrics", true)
	v.SetDefault("observability.customMetrics.rateLimits", true)
	v.SetDefault("observability.console.prettyPrint", true)
	v.SetDefault("observability.prometheus.enabled", false)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")
	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})
}
