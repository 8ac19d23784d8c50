package ai

import (
	"context"

	"cvforge/internal/types"
)

// Provider analyzes a flattened CV text (see types.CompositeInput.Combined)
// and returns an improved text with suggestions. A transport or setup
// failure is returned as error; a response the provider could not turn into
// a CV is returned as a Result carrying Err.
type Provider interface {
	Name() string
	Analyze(ctx context.Context, text string, models []types.ModelID) (Result, error)
	GetModelInfo(ctx context.Context) *ModelInfo
	Close() error
}

// Ok is a successful provider outcome.
type Ok struct {
	ImprovedText string             `json:"improvedText"`
	Suggestions  []types.Suggestion `json:"suggestions"`
	Usage        *TokenUsage        `json:"usage,omitempty"`
}

// Err is a provider outcome that produced no usable CV.
type Err struct {
	Reason string `json:"reason"`
}

// Result holds exactly one of Ok or Err.
type Result struct {
	Ok  *Ok  `json:"ok,omitempty"`
	Err *Err `json:"err,omitempty"`
}

// Success wraps ok in a Result.
func Success(ok Ok) Result {
	return Result{Ok: &ok}
}

// Failure builds an Err Result.
func Failure(reason string) Result {
	return Result{Err: &Err{Reason: reason}}
}

// IsOk reports whether r carries a usable CV.
func (r Result) IsOk() bool {
	return r.Ok != nil && r.Err == nil
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	Provider    string `json:"provider"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64 `json:"inputTokens"`
	OutputTokens int64 `json:"outputTokens"`
	TotalTokens  int64 `json:"totalTokens"`
}
