package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

type wordDocument struct {
	XMLName xml.Name `xml:"document"`
	Body    wordBody `xml:"body"`
}

type wordBody struct {
	Paragraphs []wordParagraph `xml:"p"`
}

type wordParagraph struct {
	Style struct {
		Val string `xml:"val,attr"`
	} `xml:"pPr>pStyle"`
	Runs []wordRun `xml:"r"`
}

type wordRun struct {
	Text []string `xml:"t"`
}

// maxDocumentXML bounds the decompressed size of word/document.xml.
const maxDocumentXML = 32 << 20

func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read DOCX as ZIP: %w", err)
	}

	var documentFile *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			documentFile = f
			break
		}
	}
	if documentFile == nil {
		return "", fmt.Errorf("document.xml not found in DOCX")
	}

	rc, err := documentFile.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open document.xml: %w", err)
	}
	defer func() { _ = rc.Close() }()

	raw, err := io.ReadAll(io.LimitReader(rc, maxDocumentXML))
	if err != nil {
		return "", fmt.Errorf("failed to read document.xml: %w", err)
	}

	var doc wordDocument
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return "", fmt.Errorf("failed to parse document.xml: %w", err)
	}

	var sb strings.Builder
	for _, p := range doc.Body.Paragraphs {
		var line strings.Builder
		for _, r := range p.Runs {
			for _, t := range r.Text {
				line.WriteString(t)
			}
		}
		sb.WriteString(markdownPrefix(p.Style.Val, line.String()))
		sb.WriteString("\n")
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("no text could be extracted from DOCX")
	}
	return text, nil
}

// markdownPrefix maps Word paragraph styles back to the Markdown line
// prefixes the rest of the pipeline understands.
func markdownPrefix(style, text string) string {
	if text == "" {
		return ""
	}
	switch s := strings.ToLower(style); {
	case s == "title", s == "heading1":
		return "# " + text
	case s == "heading2":
		return "## " + text
	case strings.HasPrefix(s, "listbullet"), s == "listparagraph":
		text = strings.TrimPrefix(text, "• ")
		return "- " + text
	default:
		return text
	}
}
