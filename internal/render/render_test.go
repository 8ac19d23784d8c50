package render

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"strings"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvforge/internal/errors"
)

const sampleCV = `# Jane Doe

## PROFESSIONAL SUMMARY
Engineer with (some) experience and a \ backslash.

## SKILLS & CERTIFICATIONS
- Go
- Rust & <C>`

func TestToBlocks(t *testing.T) {
	got := ToBlocks("# Title\n\n- item1\nplain text")

	assert.Equal(t, []Block{
		{Kind: Heading1, Text: "Title"},
		{Kind: Blank},
		{Kind: ListItem, Text: "item1"},
		{Kind: Paragraph, Text: "plain text"},
	}, got)
}

func TestToBlocks_LinePrefixes(t *testing.T) {
	tests := []struct {
		line string
		want Block
	}{
		{"## Skills", Block{Kind: Heading2, Text: "Skills"}},
		{"### Sub", Block{Kind: Paragraph, Text: "### Sub"}},
		{"#NoSpace", Block{Kind: Paragraph, Text: "#NoSpace"}},
		{"-no space", Block{Kind: Paragraph, Text: "-no space"}},
		{"- ", Block{Kind: ListItem, Text: ""}},
		{" ", Block{Kind: Paragraph, Text: " "}},
		{"text\r", Block{Kind: Paragraph, Text: "text\r"}},
		{"# ", Block{Kind: Heading1, Text: ""}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, []Block{tt.want}, ToBlocks(tt.line))
		})
	}
}

func TestToBlocks_OneBlockPerLine(t *testing.T) {
	prop := func(s string) bool {
		return len(ToBlocks(s)) == strings.Count(s, "\n")+1
	}
	require.NoError(t, quick.Check(prop, nil))
}

func TestToBlocks_Restartable(t *testing.T) {
	prop := func(s string) bool {
		blocks := ToBlocks(s)
		again := ToBlocks(JoinLines(blocks))
		if len(again) != len(blocks) {
			return false
		}
		for i := range blocks {
			if blocks[i] != again[i] {
				return false
			}
		}
		return true
	}
	require.NoError(t, quick.Check(prop, nil))

	for _, s := range []string{"", "\n\n", sampleCV, "# a\r\n- b\r\n"} {
		assert.Equal(t, ToBlocks(s), ToBlocks(JoinLines(ToBlocks(s))))
		assert.Equal(t, s, JoinLines(ToBlocks(s)))
	}
}

func TestBlockKind_JSON(t *testing.T) {
	data, err := json.Marshal(Block{Kind: Heading2, Text: "Skills"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"heading2","text":"Skills"}`, string(data))

	var b Block
	require.NoError(t, json.Unmarshal(data, &b))
	assert.Equal(t, Heading2, b.Kind)

	assert.Error(t, json.Unmarshal([]byte(`{"kind":"table"}`), &b))
	assert.Equal(t, "BlockKind(42)", BlockKind(42).String())
}

func TestToHTML(t *testing.T) {
	html, err := ToHTML(sampleCV, "worldbank")
	require.NoError(t, err)

	assert.Contains(t, html, "<title>Jane Doe</title>")
	assert.Contains(t, html, "<h1>Jane Doe</h1>")
	assert.Contains(t, html, "<h2>PROFESSIONAL SUMMARY</h2>")
	assert.Contains(t, html, "<ul>\n<li>Go</li>\n<li>Rust &amp; &lt;C&gt;</li>\n</ul>")
	assert.Contains(t, html, "<br>")
	assert.Contains(t, html, "Times New Roman")
	assert.Equal(t, 1, strings.Count(html, "<ul>"))
}

func TestGeneratePDF(t *testing.T) {
	input := sampleCV
	a, err := GeneratePDF(input, "")
	require.NoError(t, err)
	b, err := GeneratePDF(input, "eu")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, sampleCV, input)
	assert.True(t, bytes.HasPrefix(a, []byte("%PDF-1.4")))
	assert.True(t, bytes.HasSuffix(a, []byte("%%EOF\n")))
	assert.Contains(t, string(a), `(Engineer with \(some\) experience and a \\ backslash.) Tj`)
	assert.Contains(t, string(a), "/BaseFont /Helvetica ")

	wb, err := GeneratePDF(input, "worldbank")
	require.NoError(t, err)
	assert.Contains(t, string(wb), "/BaseFont /Times-Roman ")
}

func TestGeneratePDF_Paginates(t *testing.T) {
	long := strings.Repeat("- a bullet line that goes on\n", 200)

	data, err := GeneratePDF(long, "eu")
	require.NoError(t, err)

	assert.Greater(t, strings.Count(string(data), "/Type /Page /Parent"), 1)
}

func TestGeneratePDF_NonLatinText(t *testing.T) {
	data, err := GeneratePDF("# Zoë 日本", "eu")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestGenerateDOCX(t *testing.T) {
	a, err := GenerateDOCX(sampleCV, "eu")
	require.NoError(t, err)
	b, err := GenerateDOCX(sampleCV, "eu")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	zr, err := zip.NewReader(bytes.NewReader(a), int64(len(a)))
	require.NoError(t, err)

	names := make([]string, 0, len(zr.File))
	var doc string
	for _, f := range zr.File {
		names = append(names, f.Name)
		if f.Name == "word/document.xml" {
			rc, err := f.Open()
			require.NoError(t, err)
			raw, err := io.ReadAll(rc)
			require.NoError(t, rc.Close())
			require.NoError(t, err)
			doc = string(raw)
		}
	}
	assert.Contains(t, names, "[Content_Types].xml")
	assert.Contains(t, names, "word/styles.xml")
	assert.Contains(t, doc, `<w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t xml:space="preserve">Jane Doe</w:t>`)
	assert.Contains(t, doc, "• Rust &amp; &lt;C&gt;")
}

func TestExport_Errors(t *testing.T) {
	_, err := NewExporter().Export(context.Background(), "x", Format("odt"), "")
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidRequest))

	_, err = GeneratePDF("x", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "available: eu, worldbank")
}

type failingRenderer struct{}

func (failingRenderer) RenderHTMLToPDF(context.Context, string) ([]byte, error) {
	return nil, stderrors.New("chrome not found")
}

type recordingRenderer struct{ html string }

func (r *recordingRenderer) RenderHTMLToPDF(_ context.Context, html string) ([]byte, error) {
	r.html = html
	return []byte("%PDF-chrome"), nil
}

func TestExport_RendererFailureSuggestsOtherFormat(t *testing.T) {
	_, err := NewExporter(WithPDFRenderer(failingRenderer{})).Export(context.Background(), sampleCV, FormatPDF, "eu")
	require.Error(t, err)

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorTypeExport, appErr.Type)
	assert.Equal(t, "PDF export failed, try DOCX instead", appErr.Message)
	assert.Equal(t, "docx", appErr.Context["alternative"])
	assert.Contains(t, err.Error(), "chrome not found")
}

func TestExport_UsesRenderer(t *testing.T) {
	r := &recordingRenderer{}
	data, err := NewExporter(WithPDFRenderer(r)).Export(context.Background(), sampleCV, "PDF", "eu")
	require.NoError(t, err)

	assert.Equal(t, []byte("%PDF-chrome"), data)
	assert.Contains(t, r.html, "<h1>Jane Doe</h1>")
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, FormatPDF, FormatDOCX.Alternative())
	assert.Equal(t, DOCXMimeType, FormatDOCX.ContentType())
	assert.Equal(t, "application/pdf", FormatPDF.ContentType())
	assert.Equal(t, "cv-eu.pdf", FileName("", FormatPDF, ""))
	assert.Equal(t, "jane-worldbank.docx", FileName("jane", FormatDOCX, "WorldBank"))
}

func BenchmarkToBlocks(b *testing.B) {
	text := strings.Repeat(sampleCV+"\n", 50)
	for b.Loop() {
		ToBlocks(text)
	}
}
