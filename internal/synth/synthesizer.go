// Package synth is the deterministic CV rewriting engine. It reads the
// sections already present in a CV, chooses phrasing from an ordered rule
// table driven by keyword facts, and composes a complete Markdown CV with
// improvement suggestions.
package synth

import (
	"fmt"
	"slices"
	"strings"

	"cvforge/internal/types"
)

const (
	HeadingSummary      = "## PROFESSIONAL SUMMARY"
	HeadingExperience   = "## PROFESSIONAL EXPERIENCE"
	HeadingEducation    = "## EDUCATION"
	HeadingSkills       = "## SKILLS & CERTIFICATIONS"
	HeadingNotableProj  = "## NOTABLE PROJECTS"
	HeadingRelevantProj = "## RELEVANT PROJECTS"
	HeadingKeyProj      = "## KEY PROJECTS"
)

// Synthesizer composes improved CVs. The zero value is not usable; use New.
type Synthesizer struct {
	rules     RuleTable
	templates Templates
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithRules replaces the phrasing rule table.
func WithRules(rules RuleTable) Option {
	return func(s *Synthesizer) {
		s.rules = rules
	}
}

// WithTemplates replaces the default section filler text.
func WithTemplates(t Templates) Option {
	return func(s *Synthesizer) {
		s.templates = t
	}
}

// New creates a Synthesizer using DefaultRules and DefaultTemplates unless
// overridden.
func New(opts ...Option) *Synthesizer {
	s := &Synthesizer{
		rules:     DefaultRules,
		templates: DefaultTemplates(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var defaultSynthesizer = New()

// Synthesize runs the default synthesizer.
func Synthesize(in types.CompositeInput, models []types.ModelID) types.SynthesisResult {
	return defaultSynthesizer.Synthesize(in, models)
}

// Synthesize builds the improved document and its suggestions. It never
// fails: missing input is replaced by template text.
func (s *Synthesizer) Synthesize(in types.CompositeInput, models []types.ModelID) types.SynthesisResult {
	models = types.NormalizeModels(models)
	facts := DetectFacts(in)

	cv := in.CV
	if strings.TrimSpace(cv) == "" {
		cv = s.templates.Skeleton
	}
	sections := ExtractSections(cv)
	comp := parseCompetencies(in.CompetenciesText())

	summary := s.summary(sections, facts, comp)
	experience, experienceCopy := s.experience(sections, facts)
	education := s.education(sections, facts)
	skills := s.skills(sections, facts, comp)
	projectsHeading, projects := s.projects(sections, facts)

	title := "# " + sections.Name
	if facts.HasTOR {
		title = "# Optimized CV for " + sections.Name
	}

	doc := strings.Join([]string{
		title,
		HeadingSummary + "\n" + summary,
		HeadingExperience + "\n" + experience,
		HeadingEducation + "\n" + education,
		HeadingSkills + "\n" + skills,
		projectsHeading + "\n" + projects,
	}, "\n\n")

	copies := map[string]string{
		SectionNameSummary:    summary,
		SectionNameExperience: experienceCopy,
	}

	return types.SynthesisResult{
		OriginalText: in.CV,
		ImprovedText: doc,
		Suggestions:  buildSuggestions(facts, models, copies),
		ModelsUsed:   models,
	}
}

func (s *Synthesizer) summary(sec Sections, f Facts, comp competencies) string {
	parts := []string{s.templates.Summary}
	if sec.Summary != "" {
		parts = []string{sec.Summary}
	}
	if f.HasTOR {
		if add := s.rules.Collect(SlotSummaryAddendum, f); len(add) > 0 {
			parts = append(parts, strings.Join(add, " "))
		}
	}
	if comp.paragraph != "" {
		parts = append(parts, comp.paragraph)
	}
	return strings.Join(parts, "\n\n")
}

// experience returns the section body and, when the body came from a
// template, its first bullet as example copy.
func (s *Synthesizer) experience(sec Sections, f Facts) (string, string) {
	if sec.Experience != "" {
		return sec.Experience, ""
	}
	body := s.templates.Experience
	if f.HasTOR {
		body = fmt.Sprintf(s.templates.TORExperience,
			sec.Name,
			s.rules.Resolve(SlotTORExperienceLead, f),
			s.rules.Resolve(SlotTORExperienceDocs, f),
			s.rules.Resolve(SlotTORExperienceTool, f),
			s.rules.Resolve(SlotTORPreviousLead, f),
		)
	}
	return body, firstBullet(body)
}

func (s *Synthesizer) education(sec Sections, f Facts) string {
	switch {
	case sec.Education != "":
		return sec.Education
	case f.HasTOR:
		return s.templates.TOREducation
	default:
		return s.templates.Education
	}
}

func (s *Synthesizer) skills(sec Sections, f Facts, comp competencies) string {
	var lines []string
	switch {
	case sec.Skills != "":
		lines = strings.Split(sec.Skills, "\n")
	case f.HasTOR:
		items := []string{
			s.rules.Resolve(SlotTORSkillMethod, f),
			s.rules.Resolve(SlotTORSkillComply, f),
			s.rules.Resolve(SlotTORSkillDocs, f),
		}
		items = append(items, s.templates.TORSkillsFixed...)
		items = append(items, s.rules.Resolve(SlotTORSkillAnalysis, f))
		items = append(items, s.templates.TORSkillsTail...)
		lines = bullets(items)
	default:
		lines = bullets(s.templates.Skills)
	}

	extra := append(s.rules.Collect(SlotSkillExtra, f), comp.bullets...)
	for _, item := range extra {
		if !containsSkill(lines, item) {
			lines = append(lines, "- "+item)
		}
	}
	return strings.Join(lines, "\n")
}

func (s *Synthesizer) projects(sec Sections, f Facts) (string, string) {
	switch {
	case sec.Projects != "":
		return HeadingNotableProj, sec.Projects
	case f.HasTOR:
		return HeadingRelevantProj, s.templates.TORProjects
	default:
		return HeadingKeyProj, s.templates.Projects
	}
}

type competencies struct {
	bullets   []string
	paragraph string
}

// parseCompetencies splits free text into bullet items and the first prose
// paragraph. Headings are ignored.
func parseCompetencies(text string) competencies {
	var (
		c     competencies
		para  []string
		ended bool
	)
	for line := range strings.SplitSeq(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "- "), strings.HasPrefix(trimmed, "* "):
			if item := strings.TrimSpace(trimmed[2:]); item != "" {
				c.bullets = append(c.bullets, item)
			}
			ended = ended || len(para) > 0
		case trimmed == "", strings.HasPrefix(trimmed, "#"):
			ended = ended || len(para) > 0
		case !ended:
			para = append(para, trimmed)
		}
	}
	c.paragraph = strings.Join(para, " ")
	return c
}

func bullets(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item != "" {
			out = append(out, "- "+item)
		}
	}
	return out
}

func containsSkill(lines []string, item string) bool {
	want := normalizeSkill(item)
	return slices.ContainsFunc(lines, func(l string) bool {
		return normalizeSkill(l) == want
	})
}

func normalizeSkill(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "- ")
	s = strings.TrimPrefix(s, "* ")
	return strings.ToLower(strings.TrimSpace(s))
}

func firstBullet(body string) string {
	for line := range strings.SplitSeq(body, "\n") {
		if item, ok := strings.CutPrefix(strings.TrimSpace(line), "- "); ok {
			return item
		}
	}
	return ""
}
