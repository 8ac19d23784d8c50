// Package document validates uploads and extracts their text.
package document

import (
	"context"
	"fmt"
	"strings"

	"cvforge/internal/content"
	"cvforge/internal/errors"
	"cvforge/internal/types"
)

type extractFunc func([]byte) (string, error)

var extractors = map[string]extractFunc{
	".pdf":      extractPDF,
	".docx":     extractDOCX,
	".txt":      extractTXT,
	".md":       extractTXT,
	".markdown": extractTXT,
}

// Extractor turns uploads into extraction results. Failures degrade to an
// opaque placeholder body with a warning instead of an error.
type Extractor struct {
	logger *errors.Logger
}

// NewExtractor creates an Extractor. A nil logger discards output.
func NewExtractor(logger *errors.Logger) *Extractor {
	if logger == nil {
		logger = errors.NewDiscardLogger()
	}
	return &Extractor{logger: logger}
}

var defaultExtractor = NewExtractor(nil)

// Extract runs the default extractor.
func Extract(doc types.UploadedDocument) types.ExtractionResult {
	return defaultExtractor.Extract(context.Background(), doc)
}

// Extract returns the document text prefixed with its provenance header.
func (e *Extractor) Extract(ctx context.Context, doc types.UploadedDocument) types.ExtractionResult {
	header := content.HeaderFor(doc)
	ext := Extension(doc.FileName)

	if err := ctx.Err(); err != nil {
		return e.fallback(doc, header, ext, err)
	}

	fn, ok := extractors[ext]
	if !ok {
		return e.fallback(doc, header, ext, fmt.Errorf("no text extractor for %q files", ext))
	}

	text, err := fn(doc.Data)
	if err != nil {
		return e.fallback(doc, header, ext, err)
	}

	body := content.SynthesizeHeader(header) + text
	e.logger.Debug("Document extracted",
		"file", doc.FileName,
		"bytes", len(doc.Data),
		"chars", len(text))

	return types.ExtractionResult{
		Header: &header,
		Body:   body,
		Opaque: content.IsOpaque(text),
	}
}

func (e *Extractor) fallback(doc types.UploadedDocument, header types.Header, ext string, cause error) types.ExtractionResult {
	appErr := errors.NewIOError(errors.ErrCodeExtractionFailed,
		fmt.Sprintf("could not extract text from %s", doc.FileName), cause).
		WithContext("file", doc.FileName)
	e.logger.LogError(appErr, "Falling back to placeholder content")

	sentinel := content.DOCXSentinel
	if ext == ".pdf" {
		sentinel = content.PDFSentinel
	}

	var sb strings.Builder
	sb.WriteString(content.SynthesizeHeader(header))
	sb.WriteString(sentinel)
	sb.WriteString("\n\n")
	sb.WriteString(content.PlaceholderPhrase)
	sb.WriteString(".")

	return types.ExtractionResult{
		Header:   &header,
		Body:     sb.String(),
		Opaque:   true,
		Warnings: []string{fmt.Sprintf("Text could not be extracted from %s: %v", doc.FileName, cause)},
	}
}
