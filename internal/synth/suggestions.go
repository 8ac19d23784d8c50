package synth

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"cvforge/internal/types"
)

const (
	SectionNameSummary      = "Professional Summary"
	SectionNameExperience   = "Experience"
	SectionNameSkills       = "Skills"
	SectionNameEducation    = "Education"
	SectionNameProjects     = "Project Highlights"
	SectionNameTORAlignment = "TOR Alignment"
	SectionNameCompetencies = "Additional Competencies"
)

type suggestionText struct {
	section string
	text    string
}

var genericSuggestions = []suggestionText{
	{SectionNameSummary, "Add quantifiable achievements to highlight your impact. Include specific metrics that demonstrate your expertise and the value you've brought to previous roles."},
	{SectionNameExperience, "Include specific metrics and outcomes for each role. Quantify your achievements with percentages, dollar amounts, or other measurable results."},
	{SectionNameSkills, "Organize your skills into categories (technical, soft skills, domain expertise) and prioritize those most relevant to your target positions."},
	{SectionNameEducation, "Include relevant coursework, research projects, or thesis topics that align with your career goals and demonstrate specialized knowledge."},
	{SectionNameProjects, "Add a dedicated section for 2-3 signature projects with detailed outcomes and your specific contributions to each."},
}

var torSuggestions = []suggestionText{
	{SectionNameSummary, "Align your professional summary with the TOR requirements, highlighting specific expertise in post-issuance review and financial analysis."},
	{SectionNameExperience, "Emphasize experience related to financial auditing, compliance review, and post-issuance processes mentioned in the TOR."},
	{SectionNameSkills, "Highlight skills in financial analysis, regulatory compliance, and audit methodologies that match the TOR requirements."},
	{SectionNameEducation, "Emphasize qualifications relevant to financial review and compliance as specified in the TOR."},
	{SectionNameTORAlignment, "Add a section that explicitly addresses how your experience meets the specific requirements outlined in the Terms of Reference."},
}

const competenciesSuggestion = "Highlight the additional competencies you've provided throughout your CV, especially in your professional summary and experience sections."

// buildSuggestions returns a fresh, ordered suggestion list for one pass.
func buildSuggestions(f Facts, models []types.ModelID, copies map[string]string) []types.Suggestion {
	base := genericSuggestions
	if f.HasTOR {
		base = torSuggestions
	}

	suggestions := make([]types.Suggestion, 0, len(base)+len(models)+1)
	rationale := torRationale(f)
	for _, st := range base {
		s := types.Suggestion{Section: st.section, Suggestion: st.text}
		if c, ok := copies[st.section]; ok && c != "" {
			s.SuggestedCopy = types.StringPtr(c)
		}
		if f.HasTOR {
			s.Rationale = types.StringPtr(rationale)
		}
		suggestions = append(suggestions, s)
	}

	if f.HasCompetencies {
		suggestions = append(suggestions, types.Suggestion{
			Section:    SectionNameCompetencies,
			Suggestion: competenciesSuggestion,
		})
	}

	for _, model := range models[min(1, len(models)):] {
		suggestions = append(suggestions, modelSuggestion(model))
	}
	return suggestions
}

func modelSuggestion(model types.ModelID) types.Suggestion {
	id := string(model)
	return types.Suggestion{
		Section:    capitalize(id) + " Analysis",
		Suggestion: fmt.Sprintf("Based on %s analysis: Consider restructuring your experience section to highlight leadership roles and strategic initiatives more prominently.", id),
	}
}

func torRationale(f Facts) string {
	focus := f.Focus()
	if len(focus) == 0 {
		return "Aligns this section with the requirements stated in the Terms of Reference."
	}
	return "Aligns this section with the Terms of Reference focus on " + joinList(focus) + "."
}

func joinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
