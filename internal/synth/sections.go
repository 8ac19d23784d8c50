package synth

import (
	"regexp"
	"strings"

	"cvforge/internal/content"
)

// SectionKind identifies a CV section the synthesizer knows how to carry.
type SectionKind int

const (
	SectionUnknown SectionKind = iota
	SectionSummary
	SectionExperience
	SectionEducation
	SectionSkills
	SectionProjects
)

func (k SectionKind) String() string {
	switch k {
	case SectionSummary:
		return "summary"
	case SectionExperience:
		return "experience"
	case SectionEducation:
		return "education"
	case SectionSkills:
		return "skills"
	case SectionProjects:
		return "projects"
	default:
		return "unknown"
	}
}

var sectionSynonyms = map[string]SectionKind{
	"professional summary":      SectionSummary,
	"summary":                   SectionSummary,
	"profile":                   SectionSummary,
	"professional profile":      SectionSummary,
	"executive summary":         SectionSummary,
	"experience":                SectionExperience,
	"professional experience":   SectionExperience,
	"work experience":           SectionExperience,
	"employment history":        SectionExperience,
	"education":                 SectionEducation,
	"education and training":    SectionEducation,
	"skills":                    SectionSkills,
	"skill":                     SectionSkills,
	"key skills":                SectionSkills,
	"technical skills":          SectionSkills,
	"certifications":            SectionSkills,
	"skills and certifications": SectionSkills,
	"projects":                  SectionProjects,
	"key projects":              SectionProjects,
	"relevant projects":         SectionProjects,
	"notable projects":          SectionProjects,
	"project highlights":        SectionProjects,
}

// ClassifyHeading maps heading text to a section kind. Matching ignores case,
// a trailing colon and the "&"/"and" spelling difference.
func ClassifyHeading(heading string) SectionKind {
	h := strings.ToLower(strings.TrimSpace(heading))
	h = strings.TrimSpace(strings.TrimSuffix(h, ":"))
	h = strings.ReplaceAll(h, "&", "and")
	h = strings.Join(strings.Fields(h), " ")
	return sectionSynonyms[h]
}

// Sections holds the content of recognized CV sections, verbatim.
type Sections struct {
	Name       string
	Summary    string
	Experience string
	Education  string
	Skills     string
	Projects   string
}

// Get returns the content recorded for kind.
func (s Sections) Get(kind SectionKind) string {
	switch kind {
	case SectionSummary:
		return s.Summary
	case SectionExperience:
		return s.Experience
	case SectionEducation:
		return s.Education
	case SectionSkills:
		return s.Skills
	case SectionProjects:
		return s.Projects
	default:
		return ""
	}
}

func (s *Sections) set(kind SectionKind, text string) {
	switch kind {
	case SectionSummary:
		s.Summary = text
	case SectionExperience:
		s.Experience = text
	case SectionEducation:
		s.Education = text
	case SectionSkills:
		s.Skills = text
	case SectionProjects:
		s.Projects = text
	}
}

// ExtractSections splits cv into its known sections. A section starts at a
// "## " heading and runs to the next one. Plain lines that are exactly a known
// heading open sections only in a CV without any "## " heading. Repeated
// sections of one kind are joined in order.
func ExtractSections(cv string) Sections {
	s := Sections{Name: ExtractName(cv)}
	plainHeadings := !hasLevelTwoHeading(cv)

	bodies := make(map[SectionKind][][]string)
	current := SectionUnknown

	for line := range strings.SplitSeq(cv, "\n") {
		if kind, ok := headingKind(line, plainHeadings); ok {
			current = kind
			if kind != SectionUnknown {
				bodies[kind] = append(bodies[kind], nil)
			}
			continue
		}
		if current != SectionUnknown {
			parts := bodies[current]
			parts[len(parts)-1] = append(parts[len(parts)-1], line)
		}
	}

	for kind, parts := range bodies {
		texts := make([]string, 0, len(parts))
		for _, lines := range parts {
			if text := trimBlankLines(lines); text != "" {
				texts = append(texts, text)
			}
		}
		s.set(kind, strings.Join(texts, "\n\n"))
	}
	return s
}

func hasLevelTwoHeading(cv string) bool {
	for line := range strings.SplitSeq(cv, "\n") {
		if strings.HasPrefix(line, "## ") {
			return true
		}
	}
	return false
}

// headingKind reports whether line is a section boundary and, if so, which
// section it opens. Level one headings close the current section.
func headingKind(line string, plainHeadings bool) (SectionKind, bool) {
	trimmed := strings.TrimRight(line, " \t\r")
	switch {
	case strings.HasPrefix(trimmed, "## "):
		return ClassifyHeading(trimmed[3:]), true
	case strings.HasPrefix(trimmed, "# "):
		return SectionUnknown, true
	case !plainHeadings, strings.HasPrefix(trimmed, "#"), strings.HasPrefix(trimmed, "-"):
		return SectionUnknown, false
	}
	if kind := ClassifyHeading(trimmed); kind != SectionUnknown {
		return kind, true
	}
	return SectionUnknown, false
}

func trimBlankLines(lines []string) string {
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	out := lines[start:end]
	for i, l := range out {
		out[i] = strings.TrimRight(l, "\r")
	}
	return strings.Join(out, "\n")
}

const DefaultName = "Professional CV"

var (
	extractedFromPattern = regexp.MustCompile(`(?i)Content extracted from ([^\n]+)`)
	documentExtPattern   = regexp.MustCompile(`(?i)\.(docx|pdf|doc|txt)$`)
)

// ExtractName picks the CV holder's name: the first level one heading that is
// not a provenance or generic heading, then the provenance file name without
// its extension, then DefaultName.
func ExtractName(cv string) string {
	for line := range strings.SplitSeq(cv, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "# ") {
			continue
		}
		name := strings.TrimSpace(trimmed[2:])
		if name == "" || name == content.DefaultCVTitle || strings.HasPrefix(strings.ToLower(name), "content extracted from") {
			continue
		}
		return name
	}

	if m := extractedFromPattern.FindStringSubmatch(cv); m != nil {
		if name := documentExtPattern.ReplaceAllString(strings.TrimSpace(m[1]), ""); name != "" {
			return name
		}
	}
	return DefaultName
}
