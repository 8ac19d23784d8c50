package ai

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"cvforge/internal/config"
	"cvforge/internal/synth"
	"cvforge/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCV = `# Jane Doe

## Summary
Finance professional.

## Skills
- Excel
- Risk analysis`

func sampleInput() types.CompositeInput {
	return types.CompositeInput{
		CV:  sampleCV,
		TOR: types.StringPtr("Post-issuance review of green bonds and audit compliance."),
	}
}

// stubProvider is a scripted Provider.
type stubProvider struct {
	result Result
	err    error
	calls  int
	closed bool
	text   string
}

func (s *stubProvider) Name() string { return "stub" }
func (s *stubProvider) Analyze(_ context.Context, text string, _ []types.ModelID) (Result, error) {
	s.calls++
	s.text = text
	return s.result, s.err
}
func (s *stubProvider) GetModelInfo(context.Context) *ModelInfo {
	return &ModelInfo{Name: "stub", Available: true}
}
func (s *stubProvider) Close() error {
	s.closed = true
	return nil
}

func assertMockResult(t *testing.T, in types.CompositeInput, models []types.ModelID, got types.SynthesisResult) {
	t.Helper()
	want := synth.Synthesize(in, models)
	assert.Equal(t, want.ImprovedText, got.ImprovedText)
	assert.Equal(t, want.Suggestions, got.Suggestions)
	assert.Equal(t, want.ModelsUsed, got.ModelsUsed)
	assert.Equal(t, in.CV, got.OriginalText)
}

func TestServiceMockProvider(t *testing.T) {
	svc, err := NewService(&config.OperationAIConfig{Provider: ProviderMock}, nil, nil)
	require.NoError(t, err)

	in := sampleInput()
	models := []types.ModelID{types.ModelOpenAI, types.ModelGemini}
	analysis := svc.Analyze(context.Background(), in, models)

	assert.Equal(t, ProviderMock, analysis.Provider)
	assert.False(t, analysis.Fallback)
	assert.Empty(t, analysis.Warnings)
	assertMockResult(t, in, models, analysis.Result)
}

func TestServiceFallsBackWithoutKey(t *testing.T) {
	svc, err := NewService(&config.OperationAIConfig{Provider: ProviderOpenAI}, func(types.ModelID) string { return "" }, nil)
	require.NoError(t, err)

	in := sampleInput()
	analysis := svc.Analyze(context.Background(), in, nil)

	assert.True(t, analysis.Fallback)
	assert.Equal(t, ProviderMock, analysis.Provider)
	require.Len(t, analysis.Warnings, 1)
	assert.Contains(t, analysis.Warnings[0], "no API key")
	assertMockResult(t, in, nil, analysis.Result)
	assert.Equal(t, []types.ModelID{types.ModelOpenAI}, analysis.Result.ModelsUsed)
}

func TestServiceFallsBackOnServerFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	cfg := chatConfig(server.URL, 0)
	svc, err := NewService(cfg, nil, nil)
	require.NoError(t, err)

	in := sampleInput()
	models := []types.ModelID{types.ModelClaude}
	analysis := svc.Analyze(context.Background(), in, models)

	assert.True(t, analysis.Fallback)
	assertMockResult(t, in, models, analysis.Result)
}

func TestServiceFallsBackOnMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, `{"improvedText":"x",`)
	}))
	defer server.Close()

	svc, err := NewService(chatConfig(server.URL, 0), nil, nil)
	require.NoError(t, err)

	in := sampleInput()
	analysis := svc.Analyze(context.Background(), in, nil)

	assert.True(t, analysis.Fallback)
	assert.NotEmpty(t, analysis.Warnings)
	assertMockResult(t, in, nil, analysis.Result)
}

func TestServiceUsesRemoteResult(t *testing.T) {
	stub := &stubProvider{result: Success(Ok{
		ImprovedText: "# Remote CV",
		Usage:        &TokenUsage{TotalTokens: 3},
	})}
	svc, err := NewService(&config.OperationAIConfig{Provider: ProviderOpenAI, APIKey: "sk"}, nil, nil)
	require.NoError(t, err)
	svc.WithProviderFactory(func(*config.OperationAIConfig) (Provider, error) { return stub, nil })

	in := sampleInput()
	analysis := svc.Analyze(context.Background(), in, nil)

	assert.False(t, analysis.Fallback)
	assert.Equal(t, "stub", analysis.Provider)
	assert.Equal(t, "# Remote CV", analysis.Result.ImprovedText)
	assert.NotNil(t, analysis.Result.Suggestions)
	assert.Equal(t, int64(3), analysis.Usage.TotalTokens)
	assert.Equal(t, in.Combined(), stub.text, "remote providers receive the combined text")
}

func TestServiceFallsBackOnRejectedResult(t *testing.T) {
	stub := &stubProvider{result: Failure("schema mismatch")}
	svc, err := NewService(&config.OperationAIConfig{Provider: ProviderGemini, APIKey: "sk"}, nil, nil)
	require.NoError(t, err)
	svc.WithProviderFactory(func(*config.OperationAIConfig) (Provider, error) { return stub, nil })

	in := sampleInput()
	analysis := svc.Analyze(context.Background(), in, nil)

	assert.True(t, analysis.Fallback)
	assertMockResult(t, in, nil, analysis.Result)
}

func TestServiceFallsBackOnFactoryError(t *testing.T) {
	svc, err := NewService(&config.OperationAIConfig{Provider: ProviderOpenAI, APIKey: "sk"}, nil, nil)
	require.NoError(t, err)
	svc.WithProviderFactory(func(*config.OperationAIConfig) (Provider, error) {
		return nil, stderrors.New("dial failed")
	})

	analysis := svc.Analyze(context.Background(), sampleInput(), nil)
	assert.True(t, analysis.Fallback)
	assert.Contains(t, analysis.Warnings[0], "dial failed")
}

func TestServiceRebuildsProviderOnKeyChange(t *testing.T) {
	key := "sk-1"
	var built []string
	var providers []*stubProvider

	svc, err := NewService(&config.OperationAIConfig{Provider: ProviderOpenAI}, func(id types.ModelID) string {
		assert.Equal(t, types.ModelOpenAI, id)
		return key
	}, nil)
	require.NoError(t, err)
	svc.WithProviderFactory(func(cfg *config.OperationAIConfig) (Provider, error) {
		built = append(built, cfg.APIKey)
		p := &stubProvider{result: Success(Ok{ImprovedText: "x"})}
		providers = append(providers, p)
		return p, nil
	})

	svc.Analyze(context.Background(), sampleInput(), nil)
	svc.Analyze(context.Background(), sampleInput(), nil)
	key = "sk-2"
	svc.Analyze(context.Background(), sampleInput(), nil)

	assert.Equal(t, []string{"sk-1", "sk-2"}, built)
	assert.True(t, providers[0].closed)
	assert.Equal(t, 2, providers[0].calls)

	key = ""
	analysis := svc.Analyze(context.Background(), sampleInput(), nil)
	assert.True(t, analysis.Fallback)
	assert.True(t, providers[1].closed)
}

func TestServiceSynthesisFailureReturnsInput(t *testing.T) {
	svc, err := NewService(&config.OperationAIConfig{Provider: ProviderMock}, nil, nil)
	require.NoError(t, err)
	svc.mock = &MockProvider{}

	in := sampleInput()
	analysis := svc.Analyze(context.Background(), in, nil)

	assert.Equal(t, in.CV, analysis.Result.ImprovedText)
	assert.Empty(t, analysis.Result.Suggestions)
	assert.NotEmpty(t, analysis.Warnings)
}

func TestNewServiceUnsupportedProvider(t *testing.T) {
	_, err := NewService(&config.OperationAIConfig{Provider: "watson"}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unsupported AI provider")
}

func TestMockProviderSplitsCombinedText(t *testing.T) {
	in := sampleInput()
	in.Competencies = types.StringPtr("- Climate finance")
	p := NewMockProvider(nil)

	res, err := p.Analyze(context.Background(), in.Combined(), []types.ModelID{types.ModelOpenAI})
	require.NoError(t, err)
	require.True(t, res.IsOk())

	want := synth.Synthesize(types.SplitCombined(in.Combined()), []types.ModelID{types.ModelOpenAI})
	assert.Equal(t, want.ImprovedText, res.Ok.ImprovedText)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Analyze(ctx, in.Combined(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func BenchmarkServiceAnalyzeMock(b *testing.B) {
	svc, err := NewService(&config.OperationAIConfig{Provider: ProviderMock}, nil, nil)
	if err != nil {
		b.Fatal(err)
	}
	in := sampleInput()
	for b.Loop() {
		svc.Analyze(context.Background(), in, nil)
	}
}
