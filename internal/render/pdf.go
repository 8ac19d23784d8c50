package render

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// A4 in points.
const (
	pageWidth    = 595.0
	pageHeight   = 842.0
	pageMargin   = 56.0
	bodyFontSize = 10.5
)

type pdfLine struct {
	text    string
	size    float64
	bold    bool
	accent  bool
	indent  float64
	spacing float64
	rule    bool
}

// writePDF lays text out on A4 pages using the standard Type1 fonts, so
// the output depends only on its inputs.
func writePDF(text string, tpl Template) ([]byte, error) {
	lines, err := layoutPDF(ToBlocks(text))
	if err != nil {
		return nil, err
	}
	pages := paginate(lines)

	w := &pdfWriter{}
	w.header()

	nPages := len(pages)
	// 1 catalog, 2 page tree, 3 regular font, 4 bold font, then a page and
	// content stream pair per page.
	pageObj := func(i int) int { return 5 + 2*i }

	w.object(1, "<< /Type /Catalog /Pages 2 0 R >>")

	kids := make([]string, nPages)
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", pageObj(i))
	}
	w.object(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), nPages))
	w.object(3, fontDict(tpl.pdfRegular))
	w.object(4, fontDict(tpl.pdfBold))

	for i, page := range pages {
		w.object(pageObj(i), fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %.0f %.0f] /Resources << /Font << /F1 3 0 R /F2 4 0 R >> >> /Contents %d 0 R >>",
			pageWidth, pageHeight, pageObj(i)+1))
		stream := pageStream(page, tpl)
		w.object(pageObj(i)+1, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	w.trailer()
	return w.buf.Bytes(), nil
}

func fontDict(base string) string {
	return fmt.Sprintf("<< /Type /Font /Subtype /Type1 /BaseFont /%s /Encoding /WinAnsiEncoding >>", base)
}

func layoutPDF(blocks []Block) ([]pdfLine, error) {
	// Encoders carry transform state and are not shared between calls.
	winAnsi := encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder())

	var lines []pdfLine
	for _, b := range blocks {
		text, err := winAnsi.String(b.Text)
		if err != nil {
			return nil, fmt.Errorf("encode %q: %w", b.Text, err)
		}
		switch b.Kind {
		case Heading1:
			lines = appendWrapped(lines, pdfLine{size: 18, bold: true, accent: true, spacing: 26}, text)
		case Heading2:
			lines = appendWrapped(lines, pdfLine{size: 12.5, bold: true, accent: true, spacing: 22}, text)
			lines = append(lines, pdfLine{rule: true, spacing: 6})
		case ListItem:
			wrapped := appendWrapped(nil, pdfLine{size: bodyFontSize, indent: 14, spacing: 14}, text)
			wrapped[0].text = "\x95 " + wrapped[0].text
			wrapped[0].indent = 6
			lines = append(lines, wrapped...)
		case Blank:
			lines = append(lines, pdfLine{spacing: 8})
		default:
			lines = appendWrapped(lines, pdfLine{size: bodyFontSize, spacing: 14}, text)
		}
	}
	return lines, nil
}

// appendWrapped breaks text on spaces using an average glyph width.
func appendWrapped(lines []pdfLine, style pdfLine, text string) []pdfLine {
	maxChars := int((pageWidth - 2*pageMargin - style.indent) / (style.size * 0.5))
	words := strings.Fields(text)
	if len(words) == 0 {
		style.text = ""
		return append(lines, style)
	}
	var cur string
	for _, w := range words {
		switch {
		case cur == "":
			cur = w
		case len(cur)+1+len(w) > maxChars:
			l := style
			l.text = cur
			lines = append(lines, l)
			cur = w
		default:
			cur += " " + w
		}
	}
	style.text = cur
	return append(lines, style)
}

func paginate(lines []pdfLine) [][]pdfLine {
	pages := [][]pdfLine{nil}
	y := pageHeight - pageMargin
	for _, l := range lines {
		if y-l.spacing < pageMargin && len(pages[len(pages)-1]) > 0 {
			pages = append(pages, nil)
			y = pageHeight - pageMargin
		}
		y -= l.spacing
		pages[len(pages)-1] = append(pages[len(pages)-1], l)
	}
	return pages
}

func pageStream(lines []pdfLine, tpl Template) string {
	var sb strings.Builder
	y := pageHeight - pageMargin
	for _, l := range lines {
		y -= l.spacing
		if l.rule {
			r, g, b := tpl.pdfAccent[0], tpl.pdfAccent[1], tpl.pdfAccent[2]
			fmt.Fprintf(&sb, "%.3f %.3f %.3f RG 0.8 w %.2f %.2f m %.2f %.2f l S\n",
				r, g, b, pageMargin, y+4, pageWidth-pageMargin, y+4)
			continue
		}
		if l.text == "" {
			continue
		}
		font := "F1"
		if l.bold {
			font = "F2"
		}
		color := "0 0 0"
		if l.accent {
			color = fmt.Sprintf("%.3f %.3f %.3f", tpl.pdfAccent[0], tpl.pdfAccent[1], tpl.pdfAccent[2])
		}
		fmt.Fprintf(&sb, "BT /%s %.1f Tf %s rg %.2f %.2f Td (%s) Tj ET\n",
			font, l.size, color, pageMargin+l.indent, y, escapePDF(l.text))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

var pdfEscaper = strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`, "\r", `\r`)

func escapePDF(s string) string {
	return pdfEscaper.Replace(s)
}

type pdfWriter struct {
	buf     bytes.Buffer
	offsets []int
}

func (w *pdfWriter) header() {
	w.buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
}

func (w *pdfWriter) object(n int, body string) {
	for len(w.offsets) < n {
		w.offsets = append(w.offsets, 0)
	}
	w.offsets[n-1] = w.buf.Len()
	fmt.Fprintf(&w.buf, "%d 0 obj\n%s\nendobj\n", n, body)
}

func (w *pdfWriter) trailer() {
	xref := w.buf.Len()
	size := len(w.offsets) + 1
	fmt.Fprintf(&w.buf, "xref\n0 %d\n0000000000 65535 f \n", size)
	for _, off := range w.offsets {
		fmt.Fprintf(&w.buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&w.buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", size, xref)
}
