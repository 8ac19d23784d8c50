package cli

import (
	"cvforge/internal/common"
	"cvforge/internal/content"
	"cvforge/internal/render"

	"github.com/spf13/cobra"
)

var previewCmd = &cobra.Command{
	Use:   "preview [file|-]",
	Short: "Show the display blocks of a CV",
	Long: `Map each line of a CV to a display block: heading1 ("# "), heading2
("## "), listItem ("- "), blank or paragraph. PDF and DOCX files are
extracted and sanitized first.

The markdown format re-serializes the blocks, which round-trips the input.`,
	Args: cobra.MaximumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return resolveOutput(cmd, &previewConfig)
	},
	RunE: runPreview,
}

var previewConfig common.CommandConfig

func init() {
	addOutputFlags(previewCmd, &previewConfig)
}

func runPreview(cmd *cobra.Command, args []string) error {
	logger := getLoggerFromContext(cmd.Context())

	path := "-"
	if len(args) == 1 {
		path = args[0]
	}
	text, err := readInputText(cmd, path, content.KindCV)
	if err != nil {
		return err
	}

	blocks := render.ToBlocks(text)
	logger.Debug("Preview generated", "blocks", len(blocks))
	return common.NewOutputHandler(logger).HandleOutput(blocks, previewConfig)
}
