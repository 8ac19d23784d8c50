package render

import (
	"context"
	"fmt"
	"strings"

	"cvforge/internal/errors"
)

// Format is an export file format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// ParseFormat accepts "pdf" or "docx" in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatPDF, FormatDOCX:
		return f, nil
	default:
		return "", errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("unsupported export format %q (use pdf or docx)", s), nil)
	}
}

// Alternative returns the other format, used in retry hints.
func (f Format) Alternative() Format {
	if f == FormatPDF {
		return FormatDOCX
	}
	return FormatPDF
}

// ContentType returns the media type of f.
func (f Format) ContentType() string {
	if f == FormatDOCX {
		return DOCXMimeType
	}
	return "application/pdf"
}

// FileName builds the download name, e.g. "cv-eu.pdf".
func FileName(base string, f Format, templateName string) string {
	if base == "" {
		base = "cv"
	}
	return fmt.Sprintf("%s-%s.%s", base, LookupTemplate(templateName).Name, f)
}

// PDFRenderer converts a complete HTML page to PDF bytes.
type PDFRenderer interface {
	RenderHTMLToPDF(ctx context.Context, html string) ([]byte, error)
}

// Exporter produces export files. Without a PDFRenderer it uses the
// built-in writer.
type Exporter struct {
	pdf PDFRenderer
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithPDFRenderer routes PDF export through r, e.g. a ChromeRenderer.
func WithPDFRenderer(r PDFRenderer) ExporterOption {
	return func(e *Exporter) {
		e.pdf = r
	}
}

// NewExporter creates an Exporter.
func NewExporter(opts ...ExporterOption) *Exporter {
	e := &Exporter{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export renders text in format using the named template. An empty
// template name selects the default.
func (e *Exporter) Export(ctx context.Context, text string, format Format, templateName string) ([]byte, error) {
	format, err := ParseFormat(string(format))
	if err != nil {
		return nil, err
	}
	tpl, err := resolveTemplate(templateName)
	if err != nil {
		return nil, err
	}

	var data []byte
	switch format {
	case FormatPDF:
		if e.pdf != nil {
			html, herr := ToHTML(text, tpl.Name)
			if herr != nil {
				return nil, exportError(format, herr)
			}
			data, err = e.pdf.RenderHTMLToPDF(ctx, html)
		} else {
			data, err = writePDF(text, tpl)
		}
	case FormatDOCX:
		data, err = writeDOCX(text, tpl)
	}
	if err != nil {
		return nil, exportError(format, err)
	}
	return data, nil
}

// GeneratePDF renders text with the built-in PDF writer.
func GeneratePDF(text, templateName string) ([]byte, error) {
	return NewExporter().Export(context.Background(), text, FormatPDF, templateName)
}

// GenerateDOCX renders text as a Word document.
func GenerateDOCX(text, templateName string) ([]byte, error) {
	return NewExporter().Export(context.Background(), text, FormatDOCX, templateName)
}

func resolveTemplate(name string) (Template, error) {
	if strings.TrimSpace(name) == "" {
		return LookupTemplate(DefaultTemplateName), nil
	}
	tpl, ok := FindTemplate(name)
	if !ok {
		return Template{}, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("unknown template %q (available: %s)", name, strings.Join(TemplateNames(), ", ")), nil)
	}
	return tpl, nil
}

func exportError(format Format, cause error) error {
	alt := format.Alternative()
	return errors.NewExportError(errors.ErrCodeExportFailed,
		fmt.Sprintf("%s export failed, try %s instead", strings.ToUpper(string(format)), strings.ToUpper(string(alt))),
		cause).WithContext("format", string(format)).WithContext("alternative", string(alt))
}
