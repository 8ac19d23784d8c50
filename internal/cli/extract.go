package cli

import (
	"cvforge/internal/common"
	"cvforge/internal/config"
	"cvforge/internal/content"
	"cvforge/internal/document"

	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract text from a PDF, DOCX, DOC or TXT file",
	Long: `Extract the text of an uploaded document. The result starts with a
provenance header naming the file. Extraction never fails on unreadable
content: the output then carries a placeholder and a warning instead.

Use --sanitize to clean the extracted text in the same step.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return resolveOutput(cmd, &extractConfig)
	},
	RunE: runExtract,
}

var (
	extractConfig   common.CommandConfig
	extractSanitize bool
	extractKind     string
)

func init() {
	addOutputFlags(extractCmd, &extractConfig)
	extractCmd.Flags().BoolVar(&extractSanitize, "sanitize", false, "Sanitize the extracted text")
	extractCmd.Flags().StringVar(&extractKind, "kind", "cv", "Document kind used when sanitizing: cv or tor")
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())
	output := common.NewOutputHandler(logger)

	doc, err := uploadValidator(cfg).ReadFile(args[0])
	if err != nil {
		return err
	}

	result := document.NewExtractor(logger).Extract(cmd.Context(), doc)
	logger.Info("Document extracted",
		"file", doc.FileName,
		"bytes", doc.SizeBytes,
		"opaque", result.Opaque,
		"warnings", len(result.Warnings))

	if extractSanitize {
		kind := content.ParseKind(extractKind)
		processed := content.Process(result.Body, kind)
		return output.HandleOutput(processed, extractConfig)
	}
	return output.HandleOutput(result, extractConfig)
}

func uploadValidator(cfg *config.Config) document.Validator {
	return document.NewValidator(cfg.Upload.MaxFileSize, cfg.Upload.AllowedExtensions)
}
