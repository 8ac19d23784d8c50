package server

import (
	"strings"
	"time"

	"cvforge/internal/ai"
	"cvforge/internal/config"
	"cvforge/internal/content"
	cvforgeErrors "cvforge/internal/errors"
	"cvforge/internal/keys"
	"cvforge/internal/observability"
	"cvforge/internal/pipeline"
	"cvforge/internal/render"
	"cvforge/internal/types"
)

// DocumentPayload is a document sent inline, either as text or as a base64
// encoded file.
type DocumentPayload struct {
	Text     string `json:"text,omitempty" validate:"required_without=Data"`
	FileName string `json:"fileName,omitempty" validate:"required_with=Data"`
	Data     string `json:"data,omitempty" validate:"omitempty,base64"`
}

// SanitizeRequest represents the request body for the sanitize endpoint
type SanitizeRequest struct {
	Text string `json:"text" validate:"required"`
	Kind string `json:"kind,omitempty" validate:"omitempty,oneof=cv tor"`
}

// SanitizeResponse is the sanitized text with its parsed provenance header.
type SanitizeResponse struct {
	RequestID string `json:"requestId"`
	content.Processed
}

// AnalyzeRequest represents the request body for the analyze endpoint
type AnalyzeRequest struct {
	CV           DocumentPayload  `json:"cv"`
	TOR          *DocumentPayload `json:"tor,omitempty" validate:"omitempty"`
	Competencies string           `json:"competencies,omitempty" validate:"max=20000"`
	Models       []string         `json:"models,omitempty" validate:"dive,oneof=openai claude gemini qwen deepseek"`
}

func (r *AnalyzeRequest) normalize() {
	models := types.ParseModels(r.Models)
	r.Models = make([]string, len(models))
	for i, m := range models {
		r.Models[i] = string(m)
	}
}

// AnalyzeResponse wraps a synthesis result.
type AnalyzeResponse struct {
	RequestID string `json:"requestId"`
	types.SynthesisResult
	Warnings []string       `json:"warnings"`
	Fallback bool           `json:"fallback"`
	Usage    *ai.TokenUsage `json:"usage,omitempty"`
}

// ExtractResponse wraps an extraction result.
type ExtractResponse struct {
	RequestID string `json:"requestId"`
	types.ExtractionResult
}

// PreviewRequest represents the request body for the preview endpoint
type PreviewRequest struct {
	Text string `json:"text" validate:"required"`
}

// PreviewResponse lists one block per input line.
type PreviewResponse struct {
	RequestID string         `json:"requestId"`
	Blocks    []render.Block `json:"blocks"`
}

// ExportRequest represents the request body for the export endpoint
type ExportRequest struct {
	Text     string `json:"text" validate:"required"`
	Format   string `json:"format" validate:"required,oneof=pdf docx"`
	Template string `json:"template,omitempty"`
	Name     string `json:"name,omitempty" validate:"omitempty,max=64"`
}

func (r *ExportRequest) normalize() {
	r.Format = strings.ToLower(strings.TrimSpace(r.Format))
}

// ModelsResponse lists model families by key availability. Keys themselves
// are never returned.
type ModelsResponse struct {
	RequestID  string          `json:"requestId"`
	Available  []types.ModelID `json:"available"`
	Configured []types.ModelID `json:"configured"`
	Known      []types.ModelID `json:"known"`
	Provider   string          `json:"provider"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// Dependencies are the components the handlers call into.
type Dependencies struct {
	Pipeline      *pipeline.Pipeline
	Service       *ai.Service
	Keys          *keys.Store
	Exporter      *render.Exporter
	VaultWatcher  *keys.VaultWatcher
	Observability *observability.ObservabilityManager
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	// TLS Configuration
	TLSConfig config.TLSConfig

	// API Authentication
	APIKeys map[string]bool

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Request size limit
	MaxRequestSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	deps Dependencies

	// Logger
	Logger *cvforgeErrors.Logger
}

// NewServer creates a Server from the application config.
func NewServer(appCfg *config.Config, version string, deps Dependencies, logger *cvforgeErrors.Logger) *Server {
	if logger == nil {
		logger = cvforgeErrors.NewDiscardLogger()
	}
	if deps.Exporter == nil {
		deps.Exporter = render.NewExporter()
	}

	// Convert API keys slice to map for O(1) lookup
	apiKeyMap := make(map[string]bool)
	for _, key := range appCfg.Server.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	rateLimit := appCfg.Server.RateLimit
	var rateLimiter *RateLimiter
	if rateLimit.Enabled {
		rateLimiter = NewRateLimiter(rateLimit.RequestsPerMin, rateLimit.BurstCapacity, logger)
	}

	return &Server{
		Host:           appCfg.Server.Host,
		Port:           appCfg.Server.Port,
		Version:        version,
		AppConfig:      appCfg,
		TLSConfig:      appCfg.Server.TLS,
		APIKeys:        apiKeyMap,
		ReadTimeout:    appCfg.Server.ReadTimeout,
		WriteTimeout:   appCfg.Server.WriteTimeout,
		IdleTimeout:    appCfg.Server.IdleTimeout,
		MaxRequestSize: maxRequestSize(appCfg.Upload.MaxFileSize),
		RateLimit:      &rateLimit,
		RateLimiter:    rateLimiter,
		deps:           deps,
		Logger:         logger,
	}
}

// maxRequestSize leaves room for base64 expansion of a CV and a TOR at the
// upload limit plus the JSON envelope.
func maxRequestSize(maxFileSize int64) int64 {
	if maxFileSize <= 0 {
		return 0
	}
	return maxFileSize*3 + 64*1024
}
