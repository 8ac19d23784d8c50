package ai

import (
	"strings"

	"cvforge/internal/config"
	"cvforge/internal/types"
)

// Placeholders recognised in user prompt templates.
const (
	PlaceholderCV     = "{{cv}}"
	PlaceholderModels = "{{models}}"
)

// DefaultSystemPrompt is sent as the system message when system prompts are enabled.
const DefaultSystemPrompt = "You are an expert CV optimizer that helps improve professional CVs for maximum impact."

// DefaultUserPrompt is the analysis request template.
const DefaultUserPrompt = `Analyze and optimize the following CV for professional impact.
Provide specific improvements to make the CV more effective and impactful.

CV Content:
{{cv}}

IMPORTANT: If the CV content contains a "TOR Requirements" section, tailor the CV to those requirements.
If it contains an "Additional Competencies" section, use that information throughout the CV.
Do not use any placeholder or mock data. Use only the information provided in the input.

Format the CV in a professional structure with clear sections like:
# FULL NAME
[Contact Information]

## PROFESSIONAL SUMMARY
[Concise summary of expertise and value]

## PROFESSIONAL EXPERIENCE
[Position Title] | [Organization] | [Date Range]
- [Achievement with metrics]

## EDUCATION
[Degree] | [Institution] | [Year]

## SKILLS & CERTIFICATIONS
[List of relevant skills and certifications]

Give the suggestions from the perspective of these models: {{models}}.

Return only a JSON object with the following structure:
{
  "improvedText": "The formatted CV content based ONLY on the information provided",
  "suggestions": [
    {"section": "Professional Summary", "suggestion": "Specific improvement suggestion", "suggestedCopy": "optional replacement text", "rationale": "optional reason"},
    {"section": "Experience", "suggestion": "..."},
    {"section": "Skills", "suggestion": "..."},
    {"section": "Education", "suggestion": "..."}
  ]
}`

// buildPrompts resolves the system and user prompts for an analysis. A custom
// user template without a {{cv}} placeholder gets the CV appended.
func buildPrompts(cfg *config.OperationAIConfig, text string, models []types.ModelID) (string, string) {
	system := cfg.CustomPrompts.SystemPrompt
	if system == "" {
		system = DefaultSystemPrompt
	}
	if cfg.UseSystemPrompts != nil && !*cfg.UseSystemPrompts {
		system = ""
	}

	template := cfg.CustomPrompts.UserPrompt
	if template == "" {
		template = DefaultUserPrompt
	}
	if !strings.Contains(template, PlaceholderCV) {
		template += "\n\n" + PlaceholderCV
	}

	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, string(m))
	}
	if len(names) == 0 {
		names = append(names, string(types.ModelOpenAI))
	}

	user := strings.NewReplacer(
		PlaceholderCV, text,
		PlaceholderModels, strings.Join(names, ", "),
	).Replace(template)
	return system, user
}
