package common

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// ValidateOutputFormat validates format against configured supported formats
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil // No restrictions configured
	}

	if slices.Contains(supportedFormats, format) {
		return nil
	}

	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v",
		format, supportedFormats)
}

// ResolveOutputFormat picks the output format: the flag when set, then the
// output file's extension, then the configured default.
func ResolveOutputFormat(flag, outputFile, defaultFormat string, supportedFormats []string) (string, error) {
	format := strings.ToLower(strings.TrimSpace(flag))
	if format == "" {
		format = FormatForFile(outputFile)
	}
	if format == "" {
		format = defaultFormat
	}
	if err := ValidateOutputFormat(format, supportedFormats); err != nil {
		return "", err
	}
	return format, nil
}

// FormatForFile infers an output format from a file extension, "" when
// the extension says nothing.
func FormatForFile(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	case ".md", ".markdown":
		return "markdown"
	case ".txt", ".text":
		return "text"
	default:
		return ""
	}
}
