package types

import (
	"slices"
	"strings"
)

// ModelID identifies an AI model family a user can select.
type ModelID string

const (
	ModelOpenAI   ModelID = "openai"
	ModelClaude   ModelID = "claude"
	ModelGemini   ModelID = "gemini"
	ModelQwen     ModelID = "qwen"
	ModelDeepSeek ModelID = "deepseek"
)

// KnownModels lists the supported model identifiers in display order.
var KnownModels = []ModelID{ModelOpenAI, ModelClaude, ModelGemini, ModelQwen, ModelDeepSeek}

// IsKnown reports whether m is one of KnownModels.
func (m ModelID) IsKnown() bool {
	return slices.Contains(KnownModels, m)
}

// ParseModels normalizes a user supplied model list: trimmed, lower-cased,
// empty entries dropped and duplicates removed while keeping first-seen order.
func ParseModels(raw []string) []ModelID {
	models := make([]ModelID, 0, len(raw))
	for _, r := range raw {
		for part := range strings.SplitSeq(r, ",") {
			id := ModelID(strings.ToLower(strings.TrimSpace(part)))
			if id == "" || slices.Contains(models, id) {
				continue
			}
			models = append(models, id)
		}
	}
	return models
}

// NormalizeModels drops empty and duplicate ids, keeping first-seen order.
// An empty selection means the single implicit model openai.
func NormalizeModels(models []ModelID) []ModelID {
	out := make([]ModelID, 0, max(1, len(models)))
	for _, m := range models {
		if m != "" && !slices.Contains(out, m) {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		out = append(out, ModelOpenAI)
	}
	return out
}

// UploadedDocument is a file as received from the user. It is never mutated
// after it has been read.
type UploadedDocument struct {
	Data      []byte `json:"-"`
	FileName  string `json:"fileName"`
	MimeType  string `json:"mimeType"`
	SizeBytes int64  `json:"sizeBytes"`
}

// Header describes where a block of extracted text came from.
type Header struct {
	FileName string `json:"fileName"`
	FileType string `json:"fileType"`
	FileSize string `json:"fileSize"`
}

// ExtractionResult is the text derived from an UploadedDocument. When Opaque
// is set, Body carries a sentinel token that must be stripped before display.
type ExtractionResult struct {
	Header   *Header  `json:"header,omitempty"`
	Body     string   `json:"body"`
	Opaque   bool     `json:"opaque"`
	Warnings []string `json:"warnings,omitempty"`
}

// Section headings used when the composite input is flattened into the single
// text handed to AI providers.
const (
	TORSectionHeading          = "## TOR Requirements"
	CompetenciesSectionHeading = "## Additional Competencies"
)

// CompositeInput is the read-only input of one analysis.
type CompositeInput struct {
	CV           string  `json:"cv"`
	TOR          *string `json:"tor,omitempty"`
	Competencies *string `json:"competencies,omitempty"`
}

// HasTOR reports whether non-blank TOR text was supplied.
func (c CompositeInput) HasTOR() bool {
	return c.TOR != nil && strings.TrimSpace(*c.TOR) != ""
}

// HasCompetencies reports whether non-blank competencies text was supplied.
func (c CompositeInput) HasCompetencies() bool {
	return c.Competencies != nil && strings.TrimSpace(*c.Competencies) != ""
}

// TORText returns the trimmed TOR text or "".
func (c CompositeInput) TORText() string {
	if !c.HasTOR() {
		return ""
	}
	return strings.TrimSpace(*c.TOR)
}

// CompetenciesText returns the trimmed competencies text or "".
func (c CompositeInput) CompetenciesText() string {
	if !c.HasCompetencies() {
		return ""
	}
	return strings.TrimSpace(*c.Competencies)
}

// Combined flattens the input into one Markdown text:
// the CV, then an optional TOR section, then optional competencies.
func (c CompositeInput) Combined() string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(c.CV))
	if c.HasTOR() {
		b.WriteString("\n\n" + TORSectionHeading + "\n")
		b.WriteString(c.TORText())
	}
	if c.HasCompetencies() {
		b.WriteString("\n\n" + CompetenciesSectionHeading + "\n")
		b.WriteString(c.CompetenciesText())
	}
	return b.String()
}

// SplitCombined is the inverse of Combined. Text without the section
// headings is returned as a CV-only input.
func SplitCombined(text string) CompositeInput {
	var in CompositeInput
	rest := text

	if idx := headingIndex(rest, CompetenciesSectionHeading); idx >= 0 {
		comp := strings.TrimSpace(rest[idx+len(CompetenciesSectionHeading):])
		rest = rest[:idx]
		if comp != "" {
			in.Competencies = &comp
		}
	}
	if idx := headingIndex(rest, TORSectionHeading); idx >= 0 {
		tor := strings.TrimSpace(rest[idx+len(TORSectionHeading):])
		rest = rest[:idx]
		if tor != "" {
			in.TOR = &tor
		}
	}

	in.CV = strings.TrimSpace(rest)
	return in
}

// headingIndex finds the last line equal to heading.
func headingIndex(text, heading string) int {
	search := text
	for {
		idx := strings.LastIndex(search, heading)
		if idx < 0 {
			return -1
		}
		end := idx + len(heading)
		startOK := idx == 0 || text[idx-1] == '\n'
		endOK := end == len(text) || text[end] == '\n' || text[end] == '\r'
		if startOK && endOK {
			return idx
		}
		search = text[:idx]
	}
}

// Suggestion is a structured improvement recommendation tied to a CV section.
type Suggestion struct {
	Section       string  `json:"section"`
	Suggestion    string  `json:"suggestion"`
	SuggestedCopy *string `json:"suggestedCopy,omitempty"`
	Rationale     *string `json:"rationale,omitempty"`
}

// SynthesisResult is the outcome of one analysis. A new value is produced per
// invocation and replaces any previous result wholesale.
type SynthesisResult struct {
	OriginalText string       `json:"originalText"`
	ImprovedText string       `json:"improvedText"`
	Suggestions  []Suggestion `json:"suggestions"`
	ModelsUsed   []ModelID    `json:"modelsUsed"`
	Provider     string       `json:"provider,omitempty"`
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
