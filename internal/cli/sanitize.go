package cli

import (
	"cvforge/internal/common"
	"cvforge/internal/content"

	"github.com/spf13/cobra"
)

var sanitizeCmd = &cobra.Command{
	Use:   "sanitize [file|-]",
	Short: "Strip binary markers and noise from CV or TOR text",
	Long: `Sanitize text extracted from a CV or Terms of Reference document.

Binary container markers (PK headers, XML parts, PDF operators) and control
characters are removed, whitespace is normalized, and a CV gets a top-level
heading when it has none. PDF and DOCX files are extracted first. Use "-" or
no argument to read from standard input.`,
	Args: cobra.MaximumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return resolveOutput(cmd, &sanitizeConfig)
	},
	RunE: runSanitize,
}

var (
	sanitizeConfig common.CommandConfig
	sanitizeKind   string
)

func init() {
	addOutputFlags(sanitizeCmd, &sanitizeConfig)
	sanitizeCmd.Flags().StringVar(&sanitizeKind, "kind", "cv", "Document kind: cv or tor")
}

func runSanitize(cmd *cobra.Command, args []string) error {
	logger := getLoggerFromContext(cmd.Context())

	path := "-"
	if len(args) == 1 {
		path = args[0]
	}
	kind := content.ParseKind(sanitizeKind)

	text, err := readInputText(cmd, path, kind)
	if err != nil {
		return err
	}

	processed := content.Process(text, kind)
	logger.Debug("Text sanitized",
		"kind", kind.String(),
		"input_chars", len(text),
		"output_chars", len(processed.Text),
		"opaque", processed.Opaque)

	return common.NewOutputHandler(logger).HandleOutput(processed, sanitizeConfig)
}
