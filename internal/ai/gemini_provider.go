package ai

import (
	"context"
	"fmt"

	"cvforge/internal/config"
	"cvforge/internal/errors"
	"cvforge/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"
)

// ProviderGemini names the Google Gemini provider.
const ProviderGemini = "gemini"

// GeminiProvider implements Provider for Google Gemini
type GeminiProvider struct {
	client       *genai.Client
	config       *config.OperationAIConfig
	breaker      *CircuitBreaker[*genai.GenerateContentResponse]
	modelBreaker *CircuitBreaker[*genai.Model]
	retry        retrier
	logger       *errors.Logger
}

var _ Provider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a new Gemini provider instance
func NewGeminiProvider(ctx context.Context, cfg *config.OperationAIConfig, logger *errors.Logger) (*GeminiProvider, error) {
	cfg = resolveConfig(cfg)
	logger = orDiscard(logger)

	if cfg.APIKey == "" {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey,
			"API key is required for the gemini provider", nil)
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed,
			"Failed to create Gemini client", err)
	}

	modelBreakerCfg := cfg.CircuitBreaker
	modelBreakerCfg.MinRequests = max(modelBreakerCfg.MinRequests, 5)
	modelBreakerCfg.FailureThreshold = max(modelBreakerCfg.FailureThreshold, 0.8)

	return &GeminiProvider{
		client:       client,
		config:       cfg,
		breaker:      NewCircuitBreaker[*genai.GenerateContentResponse]("Gemini", cfg.CircuitBreaker, logger),
		modelBreaker: NewCircuitBreaker[*genai.Model]("Gemini-Model", modelBreakerCfg, logger),
		retry:        newRetrier(*cfg.MaxRetries, logger),
		logger:       logger,
	}, nil
}

func (g *GeminiProvider) Name() string { return ProviderGemini }

// GetModelInfo checks the readiness and availability of the configured model
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	modelInfo := &ModelInfo{
		Name:     g.config.Model,
		Provider: ProviderGemini,
	}

	checkCtx, cancel := context.WithTimeout(ctx, modelCheckTimeout)
	defer cancel()

	model, err := g.modelBreaker.Execute(func() (*genai.Model, error) {
		return g.client.Models.Get(checkCtx, g.config.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		modelInfo.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", g.config.Model,
			"provider", ProviderGemini,
			"error", err.Error())
		return modelInfo
	}

	modelInfo.Available = true
	modelInfo.DisplayName = model.DisplayName
	modelInfo.Version = model.Version

	g.logger.Debug("Model availability check successful",
		"model", g.config.Model,
		"display_name", modelInfo.DisplayName,
		"version", modelInfo.Version)

	return modelInfo
}

// Analyze asks Gemini for a JSON answer constrained by a response schema,
// then validates it like any other provider answer.
func (g *GeminiProvider) Analyze(ctx context.Context, text string, models []types.ModelID) (Result, error) {
	tracer := otel.Tracer("cvforge.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini.analyze_cv")
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", ProviderGemini),
		attribute.String("ai.model", g.config.Model),
		attribute.Float64("ai.temperature", float64(*g.config.Temperature)),
		attribute.Int("input.cv_length", len(text)),
	)

	systemPrompt, userPrompt := buildPrompts(g.config, text, models)
	genaiConfig := g.buildAnalyzeSchema()
	if systemPrompt != "" {
		genaiConfig.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	result, err := g.breaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return withRetry(ctx, g.retry, "analyze_cv", func() (*genai.GenerateContentResponse, error) {
			return g.client.Models.GenerateContent(ctx, g.config.Model, genai.Text(userPrompt), genaiConfig)
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return Result{}, errors.NewAIError(errors.ErrCodeAIServiceFailed, "Failed to generate content for analyze_cv", err)
	}

	parsed := ParseResponse(result.Text())
	if !parsed.IsOk() {
		span.SetAttributes(attribute.Bool("success", false))
		g.logger.Warn("Gemini response rejected", "model", g.config.Model, "reason", parsed.Err.Reason)
		return parsed, nil
	}

	if usage := extractTokenUsage(result); usage != nil {
		parsed.Ok.Usage = usage
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", usage.InputTokens),
			attribute.Int64("ai.tokens.output", usage.OutputTokens),
			attribute.Int64("ai.tokens.total", usage.TotalTokens),
		)
	}
	span.SetAttributes(attribute.Bool("success", true))
	return parsed, nil
}

// CircuitBreakerStats returns circuit breaker statistics
func (g *GeminiProvider) CircuitBreakerStats() map[string]any {
	return map[string]any{
		"ai_operations":    g.breaker.GetStats(),
		"model_operations": g.modelBreaker.GetStats(),
		"overall_healthy":  g.breaker.IsHealthy() && g.modelBreaker.IsHealthy(),
	}
}

// Close implements Provider. The genai client holds no resources in
// single-shot usage.
func (g *GeminiProvider) Close() error {
	return nil
}

// buildAnalyzeSchema mirrors ResponseSchema in genai form.
func (g *GeminiProvider) buildAnalyzeSchema() *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"improvedText": {Type: genai.TypeString},
				"suggestions": {
					Type: genai.TypeArray,
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"section":       {Type: genai.TypeString},
							"suggestion":    {Type: genai.TypeString},
							"suggestedCopy": {Type: genai.TypeString},
							"rationale":     {Type: genai.TypeString},
						},
						Required: []string{"section", "suggestion"},
					},
				},
			},
			Required: []string{"improvedText", "suggestions"},
		},
	}

	if *g.config.Temperature > 0 {
		cfg.Temperature = g.config.Temperature
	}

	return cfg
}

// extractTokenUsage extracts token usage information from Gemini API response
func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}
