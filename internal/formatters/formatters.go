package formatters

import (
	"encoding/json"
	"fmt"
	"strings"

	"cvforge/internal/content"
	"cvforge/internal/keys"
	"cvforge/internal/render"
	"cvforge/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// AnalysisReport is what the analyze command prints.
type AnalysisReport struct {
	types.SynthesisResult
	Warnings []string `json:"warnings"`
	Fallback bool     `json:"fallback"`
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "AnalysisReport", &AnalysisTextFormatter{})
	registry.RegisterFormatter("markdown", "AnalysisReport", &AnalysisMarkdownFormatter{})
	registry.RegisterFormatter("text", "ExtractionResult", &ExtractionFormatter{})
	registry.RegisterFormatter("markdown", "ExtractionResult", &ExtractionFormatter{})
	registry.RegisterFormatter("text", "Processed", &ProcessedFormatter{})
	registry.RegisterFormatter("markdown", "Processed", &ProcessedFormatter{})
	registry.RegisterFormatter("text", "Blocks", &BlocksTextFormatter{})
	registry.RegisterFormatter("markdown", "Blocks", &BlocksMarkdownFormatter{})
	registry.RegisterFormatter("text", "KeyEntries", &KeyEntriesFormatter{})
	registry.RegisterFormatter("markdown", "KeyEntries", &KeyEntriesFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	// Try specific formatter first
	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		// Fall back to generic formatter
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case AnalysisReport:
		return "AnalysisReport"
	case types.ExtractionResult:
		return "ExtractionResult"
	case content.Processed:
		return "Processed"
	case []render.Block:
		return "Blocks"
	case []keys.Entry:
		return "KeyEntries"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// AnalysisTextFormatter handles text formatting for analysis results
type AnalysisTextFormatter struct{}

func (atf *AnalysisTextFormatter) Format(data any) (string, error) {
	result, ok := data.(AnalysisReport)
	if !ok {
		return "", fmt.Errorf("expected AnalysisReport, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== IMPROVED CV ===\n\n")
	output.WriteString(result.ImprovedText)
	output.WriteString("\n\n")

	output.WriteString("=== SUGGESTIONS ===\n\n")
	if len(result.Suggestions) == 0 {
		output.WriteString("No suggestions.\n\n")
	}
	for i, s := range result.Suggestions {
		fmt.Fprintf(&output, "%d. [%s] %s\n", i+1, s.Section, s.Suggestion)
		if s.Rationale != nil {
			fmt.Fprintf(&output, "   Rationale: %s\n", *s.Rationale)
		}
		if s.SuggestedCopy != nil {
			fmt.Fprintf(&output, "   Suggested copy: %s\n", *s.SuggestedCopy)
		}
		output.WriteString("\n")
	}

	fmt.Fprintf(&output, "Models: %s\n", joinModels(result.ModelsUsed))
	fmt.Fprintf(&output, "Provider: %s\n", result.Provider)
	for _, w := range result.Warnings {
		fmt.Fprintf(&output, "Warning: %s\n", w)
	}

	return output.String(), nil
}

func (atf *AnalysisTextFormatter) SupportedType() string {
	return "AnalysisReport"
}

// AnalysisMarkdownFormatter handles markdown formatting for analysis results
type AnalysisMarkdownFormatter struct{}

func (amf *AnalysisMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(AnalysisReport)
	if !ok {
		return "", fmt.Errorf("expected AnalysisReport, got %T", data)
	}

	var output strings.Builder

	output.WriteString(result.ImprovedText)
	output.WriteString("\n\n---\n\n")

	output.WriteString("## Suggestions\n\n")
	for _, s := range result.Suggestions {
		fmt.Fprintf(&output, "### %s\n\n%s\n\n", s.Section, s.Suggestion)
		if s.Rationale != nil {
			fmt.Fprintf(&output, "**Rationale:** %s\n\n", *s.Rationale)
		}
		if s.SuggestedCopy != nil {
			fmt.Fprintf(&output, "> %s\n\n", strings.ReplaceAll(*s.SuggestedCopy, "\n", "\n> "))
		}
	}

	fmt.Fprintf(&output, "**Models:** %s  \n**Provider:** %s\n", joinModels(result.ModelsUsed), result.Provider)
	if len(result.Warnings) > 0 {
		output.WriteString("\n## Warnings\n\n")
		for _, w := range result.Warnings {
			fmt.Fprintf(&output, "- %s\n", w)
		}
	}

	return output.String(), nil
}

func (amf *AnalysisMarkdownFormatter) SupportedType() string {
	return "AnalysisReport"
}

// ExtractionFormatter prints the extracted body and any warnings
type ExtractionFormatter struct{}

func (ef *ExtractionFormatter) Format(data any) (string, error) {
	result, ok := data.(types.ExtractionResult)
	if !ok {
		return "", fmt.Errorf("expected ExtractionResult, got %T", data)
	}

	var output strings.Builder
	output.WriteString(result.Body)
	if !strings.HasSuffix(result.Body, "\n") {
		output.WriteString("\n")
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(&output, "Warning: %s\n", w)
	}
	return output.String(), nil
}

func (ef *ExtractionFormatter) SupportedType() string {
	return "ExtractionResult"
}

// ProcessedFormatter prints sanitized text
type ProcessedFormatter struct{}

func (pf *ProcessedFormatter) Format(data any) (string, error) {
	result, ok := data.(content.Processed)
	if !ok {
		return "", fmt.Errorf("expected Processed, got %T", data)
	}
	if result.Text == "" || strings.HasSuffix(result.Text, "\n") {
		return result.Text, nil
	}
	return result.Text + "\n", nil
}

func (pf *ProcessedFormatter) SupportedType() string {
	return "Processed"
}

// BlocksTextFormatter prints one kind(text) line per block
type BlocksTextFormatter struct{}

func (btf *BlocksTextFormatter) Format(data any) (string, error) {
	blocks, ok := data.([]render.Block)
	if !ok {
		return "", fmt.Errorf("expected []render.Block, got %T", data)
	}

	var output strings.Builder
	for _, b := range blocks {
		output.WriteString(b.String())
		output.WriteString("\n")
	}
	return output.String(), nil
}

func (btf *BlocksTextFormatter) SupportedType() string {
	return "Blocks"
}

// BlocksMarkdownFormatter turns blocks back into markdown lines
type BlocksMarkdownFormatter struct{}

func (bmf *BlocksMarkdownFormatter) Format(data any) (string, error) {
	blocks, ok := data.([]render.Block)
	if !ok {
		return "", fmt.Errorf("expected []render.Block, got %T", data)
	}
	return render.JoinLines(blocks) + "\n", nil
}

func (bmf *BlocksMarkdownFormatter) SupportedType() string {
	return "Blocks"
}

// KeyEntriesFormatter prints a table of masked keys and their source
type KeyEntriesFormatter struct{}

func (kef *KeyEntriesFormatter) Format(data any) (string, error) {
	entries, ok := data.([]keys.Entry)
	if !ok {
		return "", fmt.Errorf("expected []keys.Entry, got %T", data)
	}

	var output strings.Builder
	fmt.Fprintf(&output, "%-10s %-8s %s\n", "MODEL", "SOURCE", "KEY")
	for _, e := range entries {
		source, key := string(e.Source), e.Masked
		if e.Source == keys.SourceNone {
			source, key = "-", "(not set)"
		}
		fmt.Fprintf(&output, "%-10s %-8s %s\n", e.Model, source, key)
	}
	return output.String(), nil
}

func (kef *KeyEntriesFormatter) SupportedType() string {
	return "KeyEntries"
}

func joinModels(models []types.ModelID) string {
	names := make([]string, len(models))
	for i, m := range models {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()
