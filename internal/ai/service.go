package ai

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cvforge/internal/config"
	"cvforge/internal/errors"
	"cvforge/internal/types"
)

// KeyLookup resolves the current API key for a model family. It is called on
// every analysis so rotated keys take effect without a restart.
type KeyLookup func(types.ModelID) string

// Analysis is the outcome of Service.Analyze.
type Analysis struct {
	Result   types.SynthesisResult
	Provider string
	Fallback bool
	Warnings []string
	Usage    *TokenUsage
	Duration time.Duration
}

// Service handles CV analysis. It wraps the configured remote provider and
// falls back to the rule engine when credentials are missing or the
// provider fails.
type Service struct {
	config *config.OperationAIConfig
	keys   KeyLookup
	mock   *MockProvider
	logger *errors.Logger

	mu        sync.Mutex
	remote    Provider
	remoteKey string
	factory   func(cfg *config.OperationAIConfig) (Provider, error)
}

// NewService creates a new AI service for the analyze operation. keys may be
// nil, in which case only cfg.APIKey is used.
func NewService(cfg *config.OperationAIConfig, keys KeyLookup, logger *errors.Logger) (*Service, error) {
	cfg = resolveConfig(cfg)
	logger = orDiscard(logger)

	logger.Debug("Initializing AI service",
		"provider", cfg.Provider,
		"model", cfg.Model,
		"temperature", *cfg.Temperature,
		"timeout", *cfg.Timeout,
		"max_retries", *cfg.MaxRetries,
		"use_system_prompts", *cfg.UseSystemPrompts)

	s := &Service{
		config: cfg,
		keys:   keys,
		mock:   NewMockProvider(nil),
		logger: logger,
	}

	switch cfg.Provider {
	case ProviderMock, "":
		// rule engine only
	case ProviderOpenAI:
		s.factory = func(c *config.OperationAIConfig) (Provider, error) {
			return NewChatProvider(c, logger)
		}
	case ProviderGemini:
		s.factory = func(c *config.OperationAIConfig) (Provider, error) {
			return NewGeminiProvider(context.Background(), c, logger)
		}
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}

	return s, nil
}

// WithProviderFactory replaces how the remote provider is built. Tests use it
// to inject fakes.
func (s *Service) WithProviderFactory(factory func(cfg *config.OperationAIConfig) (Provider, error)) *Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.factory = factory
	s.closeRemoteLocked()
	return s
}

// ProviderName is the configured provider.
func (s *Service) ProviderName() string {
	if s.config.Provider == "" {
		return ProviderMock
	}
	return s.config.Provider
}

// currentKey returns the key for the configured provider: the lookup first,
// then the static config value.
func (s *Service) currentKey() string {
	if s.keys != nil {
		if key := s.keys(config.ProviderModel(s.config.Provider)); key != "" {
			return key
		}
	}
	return s.config.APIKey
}

// Remote returns the remote provider for the current key, building it on
// first use or after a key change. It returns nil, nil when the service runs
// on the rule engine only or no key is available.
func (s *Service) Remote() (Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.factory == nil {
		return nil, nil
	}
	key := s.currentKey()
	if key == "" {
		s.closeRemoteLocked()
		return nil, nil
	}
	if s.remote != nil && key == s.remoteKey {
		return s.remote, nil
	}

	s.closeRemoteLocked()
	cfg := *s.config
	cfg.APIKey = key
	provider, err := s.factory(&cfg)
	if err != nil {
		return nil, err
	}
	s.remote = provider
	s.remoteKey = key
	return provider, nil
}

func (s *Service) closeRemoteLocked() {
	if s.remote != nil {
		if err := s.remote.Close(); err != nil {
			s.logger.Warn("Failed to close AI provider", "error", err.Error())
		}
	}
	s.remote = nil
	s.remoteKey = ""
}

// Analyze produces a SynthesisResult for in. It never fails: remote errors
// degrade to the rule engine, and a rule engine failure degrades to the
// sanitized CV text.
func (s *Service) Analyze(ctx context.Context, in types.CompositeInput, models []types.ModelID) Analysis {
	start := time.Now()
	models = types.NormalizeModels(models)
	analysis := Analysis{Provider: ProviderMock}

	remote, err := s.Remote()
	switch {
	case err != nil:
		s.logger.LogError(err, "Failed to initialize AI provider, using rule engine", "provider", s.config.Provider)
		analysis.fallback(fmt.Sprintf("AI provider %s unavailable: %v", s.config.Provider, err))
	case remote == nil && s.factory != nil:
		s.logger.Warn("No API key configured, using rule engine", "provider", s.config.Provider)
		analysis.fallback(fmt.Sprintf("no API key configured for %s, used rule-engine synthesis", s.config.Provider))
	case remote != nil:
		if ok := s.analyzeRemote(ctx, remote, in, models, &analysis); ok {
			analysis.Duration = time.Since(start)
			return analysis
		}
	}

	analysis.Result = s.synthesize(in, models, &analysis)
	analysis.Duration = time.Since(start)
	return analysis
}

func (s *Service) analyzeRemote(ctx context.Context, remote Provider, in types.CompositeInput, models []types.ModelID, analysis *Analysis) bool {
	result, err := remote.Analyze(ctx, in.Combined(), models)
	if err != nil {
		s.logger.LogError(err, "AI analysis failed, using rule engine", "provider", remote.Name())
		analysis.fallback(fmt.Sprintf("AI provider %s failed, used rule-engine synthesis", remote.Name()))
		return false
	}
	if !result.IsOk() {
		reason := "invalid response"
		if result.Err != nil {
			reason = result.Err.Reason
		}
		s.logger.Warn("AI analysis rejected, using rule engine", "provider", remote.Name(), "reason", reason)
		analysis.fallback(fmt.Sprintf("AI provider %s returned an unusable response, used rule-engine synthesis", remote.Name()))
		return false
	}

	suggestions := result.Ok.Suggestions
	if suggestions == nil {
		suggestions = []types.Suggestion{}
	}
	analysis.Provider = remote.Name()
	analysis.Usage = result.Ok.Usage
	analysis.Result = types.SynthesisResult{
		OriginalText: in.CV,
		ImprovedText: result.Ok.ImprovedText,
		Suggestions:  suggestions,
		ModelsUsed:   models,
		Provider:     remote.Name(),
	}
	return true
}

// synthesize runs the rule engine, recovering from any panic by returning
// the input CV unchanged.
func (s *Service) synthesize(in types.CompositeInput, models []types.ModelID, analysis *Analysis) (res types.SynthesisResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.LogError(errors.NewInternalError(errors.ErrCodeAIServiceFailed,
				"rule engine failed", fmt.Errorf("%v", r)), "Synthesis failed, returning sanitized input")
			analysis.Warnings = append(analysis.Warnings, "synthesis failed, returned the sanitized input")
			analysis.Provider = "none"
			res = types.SynthesisResult{
				OriginalText: in.CV,
				ImprovedText: in.CV,
				Suggestions:  []types.Suggestion{},
				ModelsUsed:   models,
				Provider:     "none",
			}
		}
	}()

	res = s.mock.Synthesize(in, models)
	res.Provider = ProviderMock
	return res
}

func (a *Analysis) fallback(warning string) {
	a.Fallback = true
	a.Warnings = append(a.Warnings, warning)
}

// GetModelInfo returns information about the active model for health checks
func (s *Service) GetModelInfo(ctx context.Context) *ModelInfo {
	remote, err := s.Remote()
	if err != nil || remote == nil {
		info := s.mock.GetModelInfo(ctx)
		if err != nil {
			info.Error = err.Error()
		}
		return info
	}
	return remote.GetModelInfo(ctx)
}

// CircuitBreakerStats reports breaker state of the remote provider, if any.
func (s *Service) CircuitBreakerStats() map[string]any {
	remote, _ := s.Remote()
	if reporter, ok := remote.(interface{ CircuitBreakerStats() map[string]any }); ok {
		return reporter.CircuitBreakerStats()
	}
	return map[string]any{"enabled": false}
}

// Close releases the remote provider.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeRemoteLocked()
	return nil
}
