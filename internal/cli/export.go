package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"cvforge/internal/common"
	"cvforge/internal/content"
	"cvforge/internal/render"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <file|->",
	Short: "Export a CV as PDF or DOCX",
	Long: `Render a CV with an export template. Lines starting with "# ", "## " and
"- " become the title, section headings and bullets.

Without --output the file is written to the current directory as
<name>-<template>.<format>, where name is the input file's base name.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var (
	exportOutput   string
	exportFormat   string
	exportTemplate string
)

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path")
	exportCmd.Flags().StringVar(&exportFormat, "format", "pdf", "Export format: pdf or docx")
	exportCmd.Flags().StringVarP(&exportTemplate, "template", "t", "", "Export template (default from config)")

	_ = exportCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{string(render.FormatPDF), string(render.FormatDOCX)}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = exportCmd.RegisterFlagCompletionFunc("template", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return render.TemplateNames(), cobra.ShellCompDirectiveNoFileComp
	})
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	format, err := render.ParseFormat(exportFormat)
	if err != nil {
		return err
	}
	templateName := exportTemplate
	if templateName == "" {
		templateName = cfg.Export.DefaultTemplate
	}

	text, err := readInputText(cmd, args[0], content.KindCV)
	if err != nil {
		return err
	}

	data, err := newExporter(cfg.Export, logger).Export(cmd.Context(), text, format, templateName)
	if err != nil {
		return fmt.Errorf("%w (try --format %s)", err, format.Alternative())
	}

	output := exportOutput
	if output == "" {
		output = render.FileName(exportBaseName(args[0]), format, templateName)
	}

	if err := common.NewOutputHandler(logger).HandleBinary(data, common.CommandConfig{OutputFile: output, OutputFormat: string(format)}); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Exported %s (%d bytes)\n", output, len(data))
	return nil
}

// exportBaseName is the input file name without directory or extension.
func exportBaseName(path string) string {
	if path == "-" {
		return ""
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
