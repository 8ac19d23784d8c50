package formatters

import (
	"encoding/json"
	"strings"
	"testing"

	"cvforge/internal/content"
	"cvforge/internal/keys"
	"cvforge/internal/render"
	"cvforge/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() AnalysisReport {
	return AnalysisReport{
		SynthesisResult: types.SynthesisResult{
			OriginalText: "Jane Doe",
			ImprovedText: "# Jane Doe\n\n## Skills\n- Go",
			Suggestions: []types.Suggestion{
				{Section: "Skills", Suggestion: "Quantify impact", Rationale: types.StringPtr("Numbers stand out"), SuggestedCopy: types.StringPtr("Cut latency 40%")},
				{Section: "Summary", Suggestion: "Add a summary"},
			},
			ModelsUsed: []types.ModelID{types.ModelOpenAI, types.ModelClaude},
			Provider:   "mock",
		},
		Warnings: []string{"Remote provider unavailable"},
		Fallback: true,
	}
}

func TestJSONFormatter(t *testing.T) {
	out, err := GlobalRegistry.Format(sampleReport(), "json")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, "}\n"))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "# Jane Doe\n\n## Skills\n- Go", decoded["improvedText"])
	assert.Equal(t, true, decoded["fallback"])
	assert.Equal(t, "mock", decoded["provider"])
}

func TestAnalysisText(t *testing.T) {
	out, err := GlobalRegistry.Format(sampleReport(), "text")
	require.NoError(t, err)

	assert.Contains(t, out, "=== IMPROVED CV ===")
	assert.Contains(t, out, "1. [Skills] Quantify impact\n   Rationale: Numbers stand out\n   Suggested copy: Cut latency 40%\n")
	assert.Contains(t, out, "2. [Summary] Add a summary\n")
	assert.Contains(t, out, "Models: openai, claude\n")
	assert.Contains(t, out, "Warning: Remote provider unavailable\n")
}

func TestAnalysisTextWithoutSuggestions(t *testing.T) {
	report := sampleReport()
	report.Suggestions = nil

	out, err := GlobalRegistry.Format(report, "text")
	require.NoError(t, err)
	assert.Contains(t, out, "No suggestions.")
}

func TestAnalysisMarkdown(t *testing.T) {
	out, err := GlobalRegistry.Format(sampleReport(), "markdown")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "# Jane Doe\n"))
	assert.Contains(t, out, "### Skills\n\nQuantify impact\n\n**Rationale:** Numbers stand out\n\n> Cut latency 40%\n")
	assert.Contains(t, out, "## Warnings\n\n- Remote provider unavailable\n")
}

func TestBlocksFormatters(t *testing.T) {
	text := "# Jane Doe\n\n- Go"
	blocks := render.ToBlocks(text)

	out, err := GlobalRegistry.Format(blocks, "text")
	require.NoError(t, err)
	assert.Equal(t, "heading1(Jane Doe)\nblank()\nlistItem(Go)\n", out)

	out, err = GlobalRegistry.Format(blocks, "markdown")
	require.NoError(t, err)
	assert.Equal(t, text+"\n", out)
}

func TestProcessedAndExtractionFormatters(t *testing.T) {
	out, err := GlobalRegistry.Format(content.Processed{Text: "# Jane"}, "text")
	require.NoError(t, err)
	assert.Equal(t, "# Jane\n", out)

	out, err = GlobalRegistry.Format(content.Processed{}, "markdown")
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = GlobalRegistry.Format(types.ExtractionResult{Body: "Jane", Warnings: []string{"scanned PDF"}}, "text")
	require.NoError(t, err)
	assert.Equal(t, "Jane\nWarning: scanned PDF\n", out)
}

func TestKeyEntriesFormatter(t *testing.T) {
	entries := []keys.Entry{
		{Model: types.ModelOpenAI, Source: keys.SourceUser, Masked: "sk-...1234"},
		{Model: types.ModelClaude, Source: keys.SourceNone},
	}

	out, err := GlobalRegistry.Format(entries, "text")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"MODEL", "SOURCE", "KEY"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"openai", "user", "sk-...1234"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"claude", "-", "(not set)"}, strings.Fields(lines[2]))
}

func TestUnknownFormat(t *testing.T) {
	_, err := GlobalRegistry.Format(sampleReport(), "yaml")
	assert.ErrorContains(t, err, "no formatter found for format 'yaml'")

	// Only json has a generic formatter.
	_, err = GlobalRegistry.Format(map[string]string{"a": "b"}, "text")
	assert.Error(t, err)
}

func TestSupportedFormats(t *testing.T) {
	assert.ElementsMatch(t, []string{"json", "text", "markdown"}, GlobalRegistry.GetSupportedFormats())
}
