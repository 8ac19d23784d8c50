package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name            string
		content         string
		wantOk          bool
		wantText        string
		wantSuggestions int
	}{
		{
			name:            "valid json",
			content:         `{"improvedText":"# Jane","suggestions":[{"section":"Skills","suggestion":"Group tools"}]}`,
			wantOk:          true,
			wantText:        "# Jane",
			wantSuggestions: 1,
		},
		{
			name:     "fenced json",
			content:  "```json\n{\"improvedText\":\"# Fenced\"}\n```",
			wantOk:   true,
			wantText: "# Fenced",
		},
		{
			name:     "plain text becomes improved text",
			content:  "# Jane Doe\n\n## SKILLS\n- Go",
			wantOk:   true,
			wantText: "# Jane Doe\n\n## SKILLS\n- Go",
		},
		{name: "empty", content: "   ", wantOk: false},
		{name: "missing improvedText", content: `{"suggestions":[]}`, wantOk: false},
		{name: "wrong type", content: `{"improvedText": 42}`, wantOk: false},
		{name: "suggestion without section", content: `{"improvedText":"x","suggestions":[{"suggestion":"y"}]}`, wantOk: false},
		{name: "json scalar", content: `42`, wantOk: false},
		{name: "truncated object", content: `{"improvedText":"x",`, wantOk: false},
		{name: "truncated array", content: `[{"section":"Skills"`, wantOk: false},
		{name: "malformed json fence", content: "```json\nimprovedText: x\n```", wantOk: false},
		{
			name:     "markdown fence is prose",
			content:  "```markdown\n# Jane Doe\n```",
			wantOk:   true,
			wantText: "# Jane Doe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ParseResponse(tt.content)
			if !tt.wantOk {
				assert.False(t, res.IsOk())
				require.NotNil(t, res.Err)
				assert.NotEmpty(t, res.Err.Reason)
				return
			}
			require.True(t, res.IsOk(), "reason: %+v", res.Err)
			assert.Equal(t, tt.wantText, res.Ok.ImprovedText)
			assert.Len(t, res.Ok.Suggestions, tt.wantSuggestions)
			assert.NotNil(t, res.Ok.Suggestions)
		})
	}
}

func TestParseResponseOptionalFields(t *testing.T) {
	res := ParseResponse(`{"improvedText":"x","suggestions":[{"section":"Summary","suggestion":"s","suggestedCopy":"copy","rationale":null}]}`)
	require.True(t, res.IsOk())
	require.Len(t, res.Ok.Suggestions, 1)
	require.NotNil(t, res.Ok.Suggestions[0].SuggestedCopy)
	assert.Equal(t, "copy", *res.Ok.Suggestions[0].SuggestedCopy)
	assert.Nil(t, res.Ok.Suggestions[0].Rationale)
}

func TestValidateResponseErrors(t *testing.T) {
	err := ValidateResponse(`{"suggestions":"nope"}`)
	require.Error(t, err)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.GreaterOrEqual(t, len(validationErr.Errors), 2)
	assert.Contains(t, err.Error(), "improvedText")
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		content, body, lang string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`, "json"},
		{"```\n{\"a\":1}```", `{"a":1}`, ""},
		{"```", "```", ""},
		{"plain", "plain", ""},
	}
	for _, tt := range tests {
		body, lang := extractJSON(tt.content)
		assert.Equal(t, tt.body, body)
		assert.Equal(t, tt.lang, lang)
	}
}

func TestResultConstructors(t *testing.T) {
	assert.True(t, Success(Ok{ImprovedText: "x"}).IsOk())
	failed := Failure("bad")
	assert.False(t, failed.IsOk())
	assert.Equal(t, "bad", failed.Err.Reason)
	assert.False(t, Result{}.IsOk())
}
