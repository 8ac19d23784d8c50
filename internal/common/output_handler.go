package common

import (
	"fmt"
	"io"
	"os"

	"cvforge/internal/errors"
	"cvforge/internal/formatters"
)

// CommandConfig holds common configuration for commands
type CommandConfig struct {
	OutputFile   string
	OutputFormat string

	// Out receives output when OutputFile is empty. Defaults to stdout.
	Out io.Writer
}

func (c CommandConfig) writer() io.Writer {
	if c.Out != nil {
		return c.Out
	}
	return os.Stdout
}

// OutputHandler handles formatting and writing output
type OutputHandler struct {
	fileProcessor *FileProcessor
	registry      *formatters.FormatterRegistry
	logger        *errors.Logger
}

// NewOutputHandler creates a new output handler
func NewOutputHandler(logger *errors.Logger) *OutputHandler {
	fp := NewFileProcessor(logger)
	return &OutputHandler{
		fileProcessor: fp,
		registry:      formatters.GlobalRegistry,
		logger:        fp.logger,
	}
}

// HandleOutput formats data and writes it to the specified output
func (oh *OutputHandler) HandleOutput(data any, config CommandConfig) error {
	output, err := oh.registry.Format(data, config.OutputFormat)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Failed to format output as %s", config.OutputFormat), err)
	}

	return oh.write([]byte(output), config)
}

// HandleBinary writes data unformatted, e.g. an exported PDF.
func (oh *OutputHandler) HandleBinary(data []byte, config CommandConfig) error {
	return oh.write(data, config)
}

func (oh *OutputHandler) write(data []byte, config CommandConfig) error {
	if config.OutputFile == "" {
		if _, err := config.writer().Write(data); err != nil {
			return errors.NewIOError("FILE_WRITE_FAILED", "Cannot write output", err)
		}
		return nil
	}

	if err := oh.fileProcessor.WriteFile(config.OutputFile, data); err != nil {
		return err // Error already wrapped by WriteFile
	}
	oh.logger.Info("Output written successfully",
		"file", config.OutputFile, "format", config.OutputFormat, "bytes", len(data))
	return nil
}

// GetSupportedFormats returns all supported output formats
func (oh *OutputHandler) GetSupportedFormats() []string {
	return oh.registry.GetSupportedFormats()
}
