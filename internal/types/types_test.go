package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModels(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []ModelID
	}{
		{"empty", nil, []ModelID{}},
		{"single", []string{"openai"}, []ModelID{ModelOpenAI}},
		{"comma separated", []string{"openai, Claude"}, []ModelID{ModelOpenAI, ModelClaude}},
		{"duplicates dropped", []string{"gemini", "GEMINI", "qwen"}, []ModelID{ModelGemini, ModelQwen}},
		{"blanks dropped", []string{" ", "deepseek,,"}, []ModelID{ModelDeepSeek}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseModels(tt.input))
		})
	}
}

func TestCombinedRoundTrip(t *testing.T) {
	tor := "# Terms of Reference\n\n## SCOPE\n- Review documents"
	comp := "- Blended Finance"
	in := CompositeInput{CV: "# Jane\n## Skills\n- Go", TOR: &tor, Competencies: &comp}

	combined := in.Combined()
	assert.Contains(t, combined, TORSectionHeading)
	assert.Contains(t, combined, CompetenciesSectionHeading)

	out := SplitCombined(combined)
	assert.Equal(t, in.CV, out.CV)
	require.True(t, out.HasTOR())
	require.True(t, out.HasCompetencies())
	assert.Equal(t, tor, out.TORText())
	assert.Equal(t, comp, out.CompetenciesText())
}

func TestCombinedCVOnly(t *testing.T) {
	in := CompositeInput{CV: "  # Jane\n- Go  "}
	assert.Equal(t, "# Jane\n- Go", in.Combined())

	out := SplitCombined(in.Combined())
	assert.False(t, out.HasTOR())
	assert.False(t, out.HasCompetencies())
	assert.Equal(t, "# Jane\n- Go", out.CV)
}

func TestBlankOptionalSectionsIgnored(t *testing.T) {
	blank := "   "
	in := CompositeInput{CV: "# Jane", TOR: &blank, Competencies: &blank}
	assert.False(t, in.HasTOR())
	assert.False(t, in.HasCompetencies())
	assert.Equal(t, "# Jane", in.Combined())
}

func TestHeadingMustBeWholeLine(t *testing.T) {
	out := SplitCombined("# Jane\nSee ## TOR Requirements inline")
	assert.False(t, out.HasTOR())
}

func TestNormalizeModels(t *testing.T) {
	assert.Equal(t, []ModelID{ModelOpenAI}, NormalizeModels(nil))
	assert.Equal(t, []ModelID{ModelOpenAI}, NormalizeModels([]ModelID{"", ""}))
	assert.Equal(t, []ModelID{ModelClaude, ModelOpenAI}, NormalizeModels([]ModelID{ModelClaude, ModelOpenAI, ModelClaude}))
	assert.Equal(t, []ModelID{"mistral"}, NormalizeModels([]ModelID{"mistral"}), "unknown ids are kept")
}
