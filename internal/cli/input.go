package cli

import (
	"context"
	"slices"

	"cvforge/internal/common"
	"cvforge/internal/config"
	"cvforge/internal/content"
	"cvforge/internal/document"
	"cvforge/internal/errors"

	"github.com/spf13/cobra"
)

// binaryExtensions are inputs that must go through extraction before they
// can be treated as text.
var binaryExtensions = []string{".pdf", ".doc", ".docx"}

// readInputText returns the text of path. Documents are validated, extracted
// and sanitized; anything else is read as plain text, "-" from stdin.
func readInputText(cmd *cobra.Command, path string, kind content.Kind) (string, error) {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	if path != "-" && slices.Contains(binaryExtensions, document.Extension(path)) {
		return extractText(cmd.Context(), cfg, logger, path, kind)
	}
	return common.NewFileProcessor(logger).ReadText(path, cmd.InOrStdin())
}

func extractText(ctx context.Context, cfg *config.Config, logger *errors.Logger, path string, kind content.Kind) (string, error) {
	doc, err := uploadValidator(cfg).ReadFile(path)
	if err != nil {
		return "", err
	}
	result := document.NewExtractor(logger).Extract(ctx, doc)
	for _, w := range result.Warnings {
		logger.Warn("Extraction warning", "file", doc.FileName, "warning", w)
	}
	return content.SanitizeExtraction(result, kind), nil
}

// addOutputFlags registers --output and --format on cmd.
func addOutputFlags(cmd *cobra.Command, cc *common.CommandConfig) {
	cmd.Flags().StringVarP(&cc.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&cc.OutputFormat, "format", "", "Output format: json, text, or markdown")

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return cfg.App.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
	})
}

// resolveOutput fills in the output format and writer of cc.
func resolveOutput(cmd *cobra.Command, cc *common.CommandConfig) error {
	cfg := getConfigFromContext(cmd.Context())
	format, err := common.ResolveOutputFormat(cc.OutputFormat, cc.OutputFile, cfg.App.DefaultFormat, cfg.App.SupportedFormats)
	if err != nil {
		return err
	}
	cc.OutputFormat = format
	cc.Out = cmd.OutOrStdout()
	return nil
}
