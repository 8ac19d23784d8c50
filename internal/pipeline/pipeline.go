// Package pipeline ties upload validation, extraction, sanitization and
// analysis together.
package pipeline

import (
	"context"
	"strings"

	"cvforge/internal/ai"
	"cvforge/internal/content"
	"cvforge/internal/document"
	"cvforge/internal/errors"
	"cvforge/internal/types"

	"golang.org/x/sync/errgroup"
)

// Analyzer is the AI boundary the pipeline calls. *ai.Service implements it.
type Analyzer interface {
	Analyze(ctx context.Context, in types.CompositeInput, models []types.ModelID) ai.Analysis
}

// Pipeline runs one analysis from raw uploads to a SynthesisResult.
type Pipeline struct {
	validator document.Validator
	extractor *document.Extractor
	analyzer  Analyzer
	logger    *errors.Logger
}

// New creates a pipeline. A nil extractor uses document.NewExtractor(logger).
func New(validator document.Validator, extractor *document.Extractor, analyzer Analyzer, logger *errors.Logger) *Pipeline {
	if logger == nil {
		logger = errors.NewDiscardLogger()
	}
	if extractor == nil {
		extractor = document.NewExtractor(logger)
	}
	return &Pipeline{
		validator: validator,
		extractor: extractor,
		analyzer:  analyzer,
		logger:    logger,
	}
}

// PreparedInput is the sanitized composite input plus what was learned
// while building it.
type PreparedInput struct {
	Input    types.CompositeInput `json:"input"`
	CV       content.Processed    `json:"cv"`
	TOR      *content.Processed   `json:"tor,omitempty"`
	Warnings []string             `json:"warnings,omitempty"`
}

// Output is the result of Run.
type Output struct {
	Result   types.SynthesisResult `json:"result"`
	Warnings []string              `json:"warnings,omitempty"`
	Provider string                `json:"provider"`
	Fallback bool                  `json:"fallback"`
	Usage    *ai.TokenUsage        `json:"usage,omitempty"`
}

// Prepare validates and extracts the CV and optional TOR concurrently, then
// sanitizes both and composes the input. A validation failure of either
// document aborts the whole call.
func (p *Pipeline) Prepare(ctx context.Context, cv types.UploadedDocument, tor *types.UploadedDocument, competencies string) (PreparedInput, error) {
	var cvResult, torResult types.ExtractionResult

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := p.validator.ValidateDocument(cv); err != nil {
			return err
		}
		cvResult = p.extractor.Extract(gCtx, cv)
		return nil
	})
	if tor != nil {
		g.Go(func() error {
			if err := p.validator.ValidateDocument(*tor); err != nil {
				return err
			}
			torResult = p.extractor.Extract(gCtx, *tor)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		p.logger.LogError(err, "Upload rejected")
		return PreparedInput{}, err
	}

	warnings := append([]string(nil), cvResult.Warnings...)
	var torText *string
	if tor != nil {
		warnings = append(warnings, torResult.Warnings...)
		torText = &torResult.Body
	}

	prepared := p.PrepareText(cvResult.Body, torText, competencies)
	prepared.Warnings = append(warnings, prepared.Warnings...)
	if prepared.CV.Header == nil {
		prepared.CV.Header = cvResult.Header
	}
	return prepared, nil
}

// PrepareText is Prepare for text that is already in memory. Text may carry
// a provenance header; it is split off before sanitization.
func (p *Pipeline) PrepareText(cv string, tor *string, competencies string) PreparedInput {
	prepared := PreparedInput{CV: content.Process(cv, content.KindCV)}
	if prepared.CV.Opaque {
		prepared.Warnings = append(prepared.Warnings, "CV content was binary; placeholder markers were removed")
	}
	prepared.Input.CV = prepared.CV.Text

	if tor != nil && strings.TrimSpace(*tor) != "" {
		processed := content.Process(*tor, content.KindTOR)
		prepared.TOR = &processed
		if processed.Opaque {
			prepared.Warnings = append(prepared.Warnings, "TOR content was binary; placeholder markers were removed")
		}
		prepared.Input.TOR = &processed.Text
	}

	if comp := strings.TrimSpace(competencies); comp != "" {
		prepared.Input.Competencies = &comp
	}
	return prepared
}

// Run analyzes prepared input. It never fails; provider problems surface as
// warnings.
func (p *Pipeline) Run(ctx context.Context, prepared PreparedInput, models []types.ModelID) Output {
	analysis := p.analyzer.Analyze(ctx, prepared.Input, models)

	warnings := append(append([]string(nil), prepared.Warnings...), analysis.Warnings...)
	p.logger.Info("CV analysis completed",
		"provider", analysis.Provider,
		"fallback", analysis.Fallback,
		"models", len(analysis.Result.ModelsUsed),
		"suggestions", len(analysis.Result.Suggestions),
		"duration_ms", analysis.Duration.Milliseconds())

	return Output{
		Result:   analysis.Result,
		Warnings: warnings,
		Provider: analysis.Provider,
		Fallback: analysis.Fallback,
		Usage:    analysis.Usage,
	}
}

// Analyze is Prepare followed by Run.
func (p *Pipeline) Analyze(ctx context.Context, cv types.UploadedDocument, tor *types.UploadedDocument, competencies string, models []types.ModelID) (Output, error) {
	prepared, err := p.Prepare(ctx, cv, tor, competencies)
	if err != nil {
		return Output{}, err
	}
	return p.Run(ctx, prepared, models), nil
}

// Extract validates and extracts a single document.
func (p *Pipeline) Extract(ctx context.Context, doc types.UploadedDocument) (types.ExtractionResult, error) {
	if err := p.validator.ValidateDocument(doc); err != nil {
		return types.ExtractionResult{}, err
	}
	return p.extractor.Extract(ctx, doc), nil
}

// Validator exposes the upload rules.
func (p *Pipeline) Validator() document.Validator {
	return p.validator
}
