package ai

import (
	"testing"

	"cvforge/internal/config"
	"cvforge/internal/types"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompts(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		system, user := buildPrompts(resolveConfig(nil), "# Jane", []types.ModelID{types.ModelOpenAI, types.ModelClaude})
		assert.Equal(t, DefaultSystemPrompt, system)
		assert.Contains(t, user, "CV Content:\n# Jane")
		assert.Contains(t, user, "openai, claude")
		assert.NotContains(t, user, PlaceholderCV)
	})

	t.Run("custom template without placeholder gets the cv appended", func(t *testing.T) {
		cfg := resolveConfig(&config.OperationAIConfig{
			CustomPrompts: config.PromptConfig{SystemPrompt: "be brief", UserPrompt: "Improve this"},
		})
		system, user := buildPrompts(cfg, "# Jane", nil)
		assert.Equal(t, "be brief", system)
		assert.Equal(t, "Improve this\n\n# Jane", user)
	})

	t.Run("system prompts disabled", func(t *testing.T) {
		off := false
		cfg := resolveConfig(&config.OperationAIConfig{UseSystemPrompts: &off})
		system, _ := buildPrompts(cfg, "x", nil)
		assert.Empty(t, system)
	})

	t.Run("cv text is not expanded", func(t *testing.T) {
		_, user := buildPrompts(resolveConfig(nil), "literal {{models}}", nil)
		assert.Contains(t, user, "literal {{models}}")
	})
}
