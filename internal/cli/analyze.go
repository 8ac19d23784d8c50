package cli

import (
	"context"
	"fmt"
	"io"

	"cvforge/internal/ai"
	"cvforge/internal/common"
	"cvforge/internal/formatters"
	"cvforge/internal/pipeline"
	"cvforge/internal/types"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <cv-file> [tor-file]",
	Short: "Analyze a CV, optionally against Terms of Reference",
	Long: `Analyze a CV and produce an improved version with structured suggestions.

Both files may be PDF, DOCX, DOC or TXT. When a TOR is given, the CV is
aligned with its requirements. Additional competencies are folded into the
skills and summary sections.

The configured AI provider is used when a key is available for it. Otherwise,
or when the provider fails, a deterministic rule engine produces the result
and a warning says so.`,
	Args: cobra.RangeArgs(1, 2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return resolveOutput(cmd, &analyzeConfig)
	},
	RunE: runAnalyze,
}

var (
	analyzeConfig           common.CommandConfig
	analyzeModels           []string
	analyzeCompetencies     string
	analyzeCompetenciesFile string
)

func init() {
	addOutputFlags(analyzeCmd, &analyzeConfig)
	analyzeCmd.Flags().StringSliceVarP(&analyzeModels, "models", "m", nil, "Model families to credit: openai, claude, gemini, qwen, deepseek (default openai)")
	analyzeCmd.Flags().StringVar(&analyzeCompetencies, "competencies", "", "Additional competencies text")
	analyzeCmd.Flags().StringVar(&analyzeCompetenciesFile, "competencies-file", "", "Read additional competencies from a file")
	analyzeCmd.MarkFlagsMutuallyExclusive("competencies", "competencies-file")

	_ = analyzeCmd.RegisterFlagCompletionFunc("models", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return modelNames(), cobra.ShellCompDirectiveNoFileComp
	})
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	models := types.ParseModels(analyzeModels)
	for _, m := range models {
		if !m.IsKnown() {
			return fmt.Errorf("unknown model %q (known: %v)", m, types.KnownModels)
		}
	}

	svc, err := newServices(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer svc.Close()

	createInput := func(ctx context.Context, paths []string) (pipeline.PreparedInput, error) {
		return prepareAnalysis(ctx, svc.pipeline, paths, cmd.InOrStdin())
	}

	logDetails := func(input pipeline.PreparedInput, cc common.CommandConfig) {
		logger.Info("Starting CV analysis",
			"provider", svc.ai.ProviderName(),
			"cv_chars", len(input.Input.CV),
			"has_tor", input.Input.HasTOR(),
			"has_competencies", input.Input.HasCompetencies(),
			"models", len(models),
			"output_format", cc.OutputFormat)
	}

	analyzeOperation := func(ctx context.Context, input pipeline.PreparedInput) (formatters.AnalysisReport, *ai.TokenUsage, error) {
		out := svc.pipeline.Run(ctx, input, models)
		for _, w := range out.Warnings {
			logger.Warn("Analysis warning", "warning", w)
		}
		report := formatters.AnalysisReport{
			SynthesisResult: out.Result,
			Warnings:        out.Warnings,
			Fallback:        out.Fallback,
		}
		report.Provider = out.Provider
		if report.Warnings == nil {
			report.Warnings = []string{}
		}
		return report, out.Usage, nil
	}

	err = common.RunAICommand(
		cmd.Context(),
		logger,
		analyzeConfig,
		args,
		createInput,
		analyzeOperation,
		logDetails,
	)
	if err != nil {
		return fmt.Errorf("failed to analyze CV: %w", err)
	}
	logger.Info("CV analysis completed successfully")
	return nil
}

// prepareAnalysis reads the CV and optional TOR through the upload rules and
// composes the analysis input.
func prepareAnalysis(ctx context.Context, p *pipeline.Pipeline, paths []string, stdin io.Reader) (pipeline.PreparedInput, error) {
	validator := p.Validator()

	cv, err := validator.ReadFile(paths[0])
	if err != nil {
		return pipeline.PreparedInput{}, err
	}

	var tor *types.UploadedDocument
	if len(paths) > 1 {
		doc, err := validator.ReadFile(paths[1])
		if err != nil {
			return pipeline.PreparedInput{}, err
		}
		tor = &doc
	}

	competencies := analyzeCompetencies
	if analyzeCompetenciesFile != "" {
		competencies, err = common.NewFileProcessor(nil).ReadText(analyzeCompetenciesFile, stdin)
		if err != nil {
			return pipeline.PreparedInput{}, err
		}
	}

	return p.Prepare(ctx, cv, tor, competencies)
}
