package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"cvforge/internal/config"
	"cvforge/internal/errors"
	"cvforge/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatConfig(baseURL string, retries int) *config.OperationAIConfig {
	timeout := 5 * time.Second
	return &config.OperationAIConfig{
		Provider:   ProviderOpenAI,
		Model:      "gpt-4",
		BaseURL:    baseURL,
		APIKey:     "sk-test",
		Timeout:    &timeout,
		MaxRetries: &retries,
	}
}

func chatReply(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	assert.NoError(t, json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
		"usage":   map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	}))
}

func TestChatProviderAnalyze(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		chatReply(t, w, `{"improvedText":"# Jane Doe","suggestions":[{"section":"Experience","suggestion":"Quantify results"}]}`)
	}))
	defer server.Close()

	p, err := NewChatProvider(chatConfig(server.URL+"/", 0), errors.NewDiscardLogger())
	require.NoError(t, err)
	defer p.Close()

	res, err := p.Analyze(context.Background(), "# Jane\n## SKILLS\n- Go", []types.ModelID{types.ModelOpenAI})
	require.NoError(t, err)
	require.True(t, res.IsOk())

	assert.Equal(t, "# Jane Doe", res.Ok.ImprovedText)
	require.Len(t, res.Ok.Suggestions, 1)
	assert.Equal(t, "Experience", res.Ok.Suggestions[0].Section)
	require.NotNil(t, res.Ok.Usage)
	assert.Equal(t, int64(15), res.Ok.Usage.TotalTokens)

	assert.Equal(t, "gpt-4", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, DefaultSystemPrompt, got.Messages[0].Content)
	assert.Contains(t, got.Messages[1].Content, "## SKILLS\n- Go")
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.7, *got.Temperature, 0.0001)
}

func TestChatProviderRejectsInvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, `{"suggestions":[]}`)
	}))
	defer server.Close()

	p, err := NewChatProvider(chatConfig(server.URL, 0), nil)
	require.NoError(t, err)

	res, err := p.Analyze(context.Background(), "cv", nil)
	require.NoError(t, err)
	assert.False(t, res.IsOk())
	assert.Contains(t, res.Err.Reason, "improvedText")
}

func TestChatProviderNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	p, err := NewChatProvider(chatConfig(server.URL, 0), nil)
	require.NoError(t, err)

	res, err := p.Analyze(context.Background(), "cv", nil)
	require.NoError(t, err)
	assert.Equal(t, "no choices in response", res.Err.Reason)
}

func TestChatProviderStatusErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided"}}`))
	}))
	defer server.Close()

	p, err := NewChatProvider(chatConfig(server.URL, 2), nil)
	require.NoError(t, err)

	_, err = p.Analyze(context.Background(), "cv", nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeAIServiceFailed))
	assert.Contains(t, err.Error(), "Incorrect API key provided")
	assert.Equal(t, int32(1), calls.Load(), "401 is not retried")
}

func TestChatProviderRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		chatReply(t, w, `{"improvedText":"# Recovered"}`)
	}))
	defer server.Close()

	p, err := NewChatProvider(chatConfig(server.URL, 3), nil)
	require.NoError(t, err)
	p.retry.baseDelay = time.Millisecond

	res, err := p.Analyze(context.Background(), "cv", nil)
	require.NoError(t, err)
	require.True(t, res.IsOk())
	assert.Equal(t, "# Recovered", res.Ok.ImprovedText)
	assert.Equal(t, int32(3), calls.Load())
}

func TestChatProviderRequiresKey(t *testing.T) {
	cfg := chatConfig("http://localhost", 0)
	cfg.APIKey = ""

	_, err := NewChatProvider(cfg, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeMissingAPIKey))
}

func TestChatProviderGetModelInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gpt-4" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"id":"gpt-4","owned_by":"openai"}`))
	}))
	defer server.Close()

	p, err := NewChatProvider(chatConfig(server.URL, 0), nil)
	require.NoError(t, err)

	info := p.GetModelInfo(context.Background())
	assert.True(t, info.Available)
	assert.Equal(t, "gpt-4", info.DisplayName)
	assert.Equal(t, ProviderOpenAI, info.Provider)

	p.config.Model = "missing"
	info = p.GetModelInfo(context.Background())
	assert.False(t, info.Available)
	assert.NotEmpty(t, info.Error)
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, isRetryableError(nil))
	assert.False(t, isRetryableError(context.Canceled))
	assert.True(t, isRetryableError(&StatusError{StatusCode: http.StatusTooManyRequests}))
	assert.True(t, isRetryableError(&StatusError{StatusCode: http.StatusBadGateway}))
	assert.False(t, isRetryableError(&StatusError{StatusCode: http.StatusBadRequest}))
}
