package ai

import (
	"context"

	"cvforge/internal/synth"
	"cvforge/internal/types"
)

// ProviderMock is the name of the rule-engine provider.
const ProviderMock = "mock"

// MockProvider answers with the deterministic rule-engine synthesis. It
// needs no credentials and is the fallback for every remote provider.
type MockProvider struct {
	synth *synth.Synthesizer
}

var _ Provider = (*MockProvider)(nil)

// NewMockProvider creates a mock provider. A nil synthesizer uses synth.New().
func NewMockProvider(s *synth.Synthesizer) *MockProvider {
	if s == nil {
		s = synth.New()
	}
	return &MockProvider{synth: s}
}

func (m *MockProvider) Name() string { return ProviderMock }

// Analyze re-detects the TOR and competencies sections of the flattened text
// and synthesizes the CV from them.
func (m *MockProvider) Analyze(ctx context.Context, text string, models []types.ModelID) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	res := m.Synthesize(types.SplitCombined(text), models)
	return Success(Ok{ImprovedText: res.ImprovedText, Suggestions: res.Suggestions}), nil
}

// Synthesize exposes the underlying synthesizer for callers holding a
// structured input.
func (m *MockProvider) Synthesize(in types.CompositeInput, models []types.ModelID) types.SynthesisResult {
	return m.synth.Synthesize(in, models)
}

func (m *MockProvider) GetModelInfo(context.Context) *ModelInfo {
	return &ModelInfo{
		Name:        "rule-engine",
		Provider:    ProviderMock,
		DisplayName: "Deterministic CV synthesizer",
		Available:   true,
	}
}

func (m *MockProvider) Close() error { return nil }
