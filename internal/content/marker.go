package content

import "strings"

// Sentinel tokens written in place of content that could not be extracted.
const (
	PDFSentinel  = "%PDF-binary-content"
	DOCXSentinel = "PK-binary-content-docx"

	// MarkerSubstring is common to every sentinel token.
	MarkerSubstring = "-binary-content"

	// PlaceholderPhrase starts the sentence that accompanies a sentinel.
	PlaceholderPhrase = "This is a placeholder for the binary file content"
)

// Signal names the evidence that made a text look opaque.
type Signal int

const (
	SignalNone Signal = iota
	SignalPDF
	SignalSentinel
	SignalZip
)

func (s Signal) String() string {
	switch s {
	case SignalPDF:
		return "pdf"
	case SignalSentinel:
		return "sentinel"
	case SignalZip:
		return "zip"
	default:
		return "none"
	}
}

// DetectOptions tunes opaque content detection.
type DetectOptions struct {
	// PermissivePK treats any "PK" occurrence as a ZIP signature, without
	// requiring a "Content_Types" entry next to it.
	PermissivePK bool
}

// IsOpaque reports whether text was produced by a stand-in extractor rather
// than genuine text extraction. It is total: any input, including "", yields
// a boolean. By default a bare "PK" is not a ZIP signature; IsOpaqueWith with
// PermissivePK flags any occurrence.
func IsOpaque(text string) bool {
	return IsOpaqueWith(text, DetectOptions{})
}

// IsOpaqueWith is IsOpaque with explicit options.
func IsOpaqueWith(text string, opts DetectOptions) bool {
	return DetectSignalWith(text, opts) != SignalNone
}

// DetectSignal returns the first signal found in text using strict options.
func DetectSignal(text string) Signal {
	return DetectSignalWith(text, DetectOptions{})
}

// DetectSignalWith returns the first signal found in text.
func DetectSignalWith(text string, opts DetectOptions) Signal {
	switch {
	case text == "":
		return SignalNone
	case strings.HasPrefix(text, "%PDF"):
		return SignalPDF
	case strings.Contains(text, MarkerSubstring):
		return SignalSentinel
	case strings.Contains(text, "PK") && (opts.PermissivePK || strings.Contains(text, "Content_Types")):
		return SignalZip
	default:
		return SignalNone
	}
}
