package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"cvforge/internal/config"
	"cvforge/internal/errors"
	"cvforge/internal/types"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// ProviderOpenAI names the chat-completions provider. Any OpenAI compatible
// endpoint (OpenRouter, DashScope, DeepSeek) is reached through BaseURL.
const ProviderOpenAI = "openai"

// maxErrorBody bounds how much of a failed response is read.
const maxErrorBody = 64 * 1024

// ChatProvider implements Provider over the chat-completions HTTP API.
type ChatProvider struct {
	httpClient *http.Client
	config     *config.OperationAIConfig
	breaker    *CircuitBreaker[*chatResponse]
	retry      retrier
	logger     *errors.Logger
}

var _ Provider = (*ChatProvider)(nil)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float32      `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *chatError `json:"error,omitempty"`
}

type chatError struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
}

// NewChatProvider creates a chat-completions provider. cfg.APIKey and
// cfg.BaseURL are required.
func NewChatProvider(cfg *config.OperationAIConfig, logger *errors.Logger) (*ChatProvider, error) {
	cfg = resolveConfig(cfg)
	logger = orDiscard(logger)

	if cfg.APIKey == "" {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey,
			"API key is required for the chat provider", nil)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = config.DefaultOpenAIBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &ChatProvider{
		httpClient: &http.Client{
			Timeout:   *cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		config:  cfg,
		breaker: NewCircuitBreaker[*chatResponse]("Chat", cfg.CircuitBreaker, logger),
		retry:   newRetrier(*cfg.MaxRetries, logger),
		logger:  logger,
	}, nil
}

func (c *ChatProvider) Name() string { return ProviderOpenAI }

// Analyze sends the CV to the chat endpoint and validates the answer.
func (c *ChatProvider) Analyze(ctx context.Context, text string, models []types.ModelID) (Result, error) {
	tracer := otel.Tracer("cvforge.ai.chat")
	ctx, span := tracer.Start(ctx, "chat.analyze_cv")
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", ProviderOpenAI),
		attribute.String("ai.model", c.config.Model),
		attribute.Float64("ai.temperature", float64(*c.config.Temperature)),
		attribute.Int("input.cv_length", len(text)),
		attribute.Int("input.models", len(models)),
	)

	system, user := buildPrompts(c.config, text, models)
	req := chatRequest{Model: c.config.Model}
	if system != "" {
		req.Messages = append(req.Messages, chatMessage{Role: "system", Content: system})
	}
	req.Messages = append(req.Messages, chatMessage{Role: "user", Content: user})
	if *c.config.Temperature > 0 {
		req.Temperature = c.config.Temperature
	}

	resp, err := c.breaker.Execute(func() (*chatResponse, error) {
		return withRetry(ctx, c.retry, "analyze_cv", func() (*chatResponse, error) {
			return c.complete(ctx, req)
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return Result{}, errors.NewAIError(errors.ErrCodeAIServiceFailed, "Failed to generate content for analyze_cv", err)
	}

	if len(resp.Choices) == 0 {
		span.SetAttributes(attribute.Bool("success", false))
		return Failure("no choices in response"), nil
	}

	result := ParseResponse(resp.Choices[0].Message.Content)
	if !result.IsOk() {
		span.SetAttributes(attribute.Bool("success", false))
		c.logger.Warn("Chat response rejected", "model", c.config.Model, "reason", result.Err.Reason)
		return result, nil
	}

	if resp.Usage != nil {
		result.Ok.Usage = &TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		}
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", resp.Usage.PromptTokens),
			attribute.Int64("ai.tokens.output", resp.Usage.CompletionTokens),
			attribute.Int64("ai.tokens.total", resp.Usage.TotalTokens),
		)
	}
	span.SetAttributes(
		attribute.Bool("success", true),
		attribute.Int("output.improved_length", len(result.Ok.ImprovedText)),
		attribute.Int("output.suggestions", len(result.Ok.Suggestions)),
	)
	return result, nil
}

// complete performs one chat-completions round trip.
func (c *ChatProvider) complete(ctx context.Context, payload chatRequest) (*chatResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, readStatusError(resp)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if out.Error != nil {
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: out.Error.Message}
	}
	return &out, nil
}

func (c *ChatProvider) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
}

func readStatusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	statusErr := &StatusError{StatusCode: resp.StatusCode}

	var envelope chatResponse
	if json.Unmarshal(raw, &envelope) == nil && envelope.Error != nil {
		statusErr.Message = envelope.Error.Message
	} else {
		statusErr.Message = http.StatusText(resp.StatusCode)
	}
	return statusErr
}

// GetModelInfo checks that the configured model is listed by the endpoint.
func (c *ChatProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	info := &ModelInfo{Name: c.config.Model, Provider: ProviderOpenAI}

	checkCtx, cancel := context.WithTimeout(ctx, modelCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, c.config.BaseURL+"/models/"+c.config.Model, nil)
	if err != nil {
		info.Error = err.Error()
		return info
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		info.Error = fmt.Sprintf("Failed to get model info: %v", err)
		c.logger.Warn("Model availability check failed", "model", c.config.Model, "error", err.Error())
		return info
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		info.Error = readStatusError(resp).Error()
		return info
	}

	var model struct {
		ID      string `json:"id"`
		OwnedBy string `json:"owned_by"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&model); err == nil && model.ID != "" {
		info.DisplayName = model.ID
		info.Version = model.OwnedBy
	}
	info.Available = true
	return info
}

// CircuitBreakerStats reports the breaker guarding chat calls.
func (c *ChatProvider) CircuitBreakerStats() map[string]any {
	return c.breaker.GetStats()
}

// Close releases idle connections.
func (c *ChatProvider) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
