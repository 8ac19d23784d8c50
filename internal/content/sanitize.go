package content

import (
	"regexp"
	"strings"

	"cvforge/internal/types"
)

const (
	// DefaultCVTitle heads a CV that has no usable first line.
	DefaultCVTitle = "CV Content"

	// DefaultTORTitle heads TOR text that carries no heading of its own.
	DefaultTORTitle = "Terms of Reference"
)

var placeholderPattern = regexp.MustCompile(regexp.QuoteMeta(PlaceholderPhrase) + `[^\n]*`)

// Kind selects the title rule applied by Process.
type Kind int

const (
	KindCV Kind = iota
	KindTOR
)

func (k Kind) String() string {
	if k == KindTOR {
		return "tor"
	}
	return "cv"
}

// ParseKind maps "cv" and "tor" to a Kind. Anything else is KindCV.
func ParseKind(s string) Kind {
	if strings.EqualFold(strings.TrimSpace(s), "tor") {
		return KindTOR
	}
	return KindCV
}

// Sanitize strips sentinel tokens and placeholder sentences from text and
// guarantees the result starts with a level one heading. It is idempotent and
// never panics; an internal failure yields the trimmed input.
func Sanitize(text string) (out string) {
	defer failOpen(text, &out)

	cleaned := StripMarkers(text)
	if !hasHeading(cleaned) {
		cleaned = titleFromFirstLine(cleaned)
	}
	return strings.TrimSpace(cleaned)
}

// SanitizeTOR is Sanitize with the TOR title rule: a generic
// "# Terms of Reference" heading is prepended when no heading exists.
func SanitizeTOR(text string) (out string) {
	defer failOpen(text, &out)

	cleaned := StripMarkers(text)
	if !hasHeading(cleaned) {
		cleaned = "# " + DefaultTORTitle + "\n\n" + cleaned
	}
	return strings.TrimSpace(cleaned)
}

// StripMarkers removes sentinel tokens and placeholder runs until none are
// left. Removing one token can join its neighbours into a new one, so a single
// pass is not enough.
func StripMarkers(text string) string {
	for {
		next := strings.ReplaceAll(text, PDFSentinel, "")
		next = strings.ReplaceAll(next, DOCXSentinel, "")
		next = placeholderPattern.ReplaceAllLiteralString(next, "")
		if next == text {
			return next
		}
		text = next
	}
}

// Processed is text that went through header parsing and sanitization.
type Processed struct {
	Header *types.Header `json:"header,omitempty"`
	Text   string        `json:"text"`
	Opaque bool          `json:"opaque"`
}

// Process splits off a provenance header, records whether the body was opaque
// and sanitizes it with the rule for kind.
func Process(text string, kind Kind) Processed {
	header, body := ParseHeader(text)
	p := Processed{
		Header: header,
		Opaque: IsOpaque(body),
	}
	if kind == KindTOR {
		p.Text = SanitizeTOR(body)
	} else {
		p.Text = Sanitize(body)
	}
	return p
}

// SanitizeExtraction sanitizes the body of an extraction result.
func SanitizeExtraction(res types.ExtractionResult, kind Kind) string {
	return Process(res.Body, kind).Text
}

func hasHeading(text string) bool {
	return strings.HasPrefix(text, "#") || strings.Contains(text, "\n#")
}

func titleFromFirstLine(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		title := strings.TrimSpace(line)
		if title == "" {
			continue
		}
		if !strings.HasPrefix(title, "#") {
			title = "# " + title
		}
		return title + "\n\n" + strings.Join(lines[i+1:], "\n")
	}
	return "# " + DefaultCVTitle + "\n\n" + text
}

func failOpen(input string, out *string) {
	if r := recover(); r != nil {
		*out = strings.TrimSpace(input)
	}
}
