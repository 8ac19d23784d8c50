package content

import (
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strings"

	"cvforge/internal/types"
)

var headerPattern = regexp.MustCompile(`(?i)(?m:^)# Content extracted from (.+?)\s*\n\s*File type: (.+?)\s*\n\s*File size: (.+?)[ \t]*(?:\r?\n\s*\n|\r?\n|$)`)

// ParseHeader finds the first provenance header block in text. The block
// must start at the beginning of a line. It returns the
// parsed header and text with exactly that block removed. When no block is
// present the header is nil and text is returned unchanged.
func ParseHeader(text string) (*types.Header, string) {
	loc := headerPattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return nil, text
	}

	header := &types.Header{
		FileName: strings.TrimSpace(text[loc[2]:loc[3]]),
		FileType: strings.TrimSpace(text[loc[4]:loc[5]]),
		FileSize: strings.TrimSpace(text[loc[6]:loc[7]]),
	}
	return header, text[:loc[0]] + text[loc[1]:]
}

// SynthesizeHeader renders h in the canonical block form recognized by
// ParseHeader.
func SynthesizeHeader(h types.Header) string {
	return fmt.Sprintf("# Content extracted from %s\n\nFile type: %s\nFile size: %s\n\n", h.FileName, h.FileType, h.FileSize)
}

// HeaderFor describes doc the way the upload flow labels extracted text.
func HeaderFor(doc types.UploadedDocument) types.Header {
	fileType := doc.MimeType
	if fileType == "" {
		fileType = MimeTypeFor(doc.FileName)
	}

	size := doc.SizeBytes
	if size == 0 {
		size = int64(len(doc.Data))
	}

	return types.Header{
		FileName: doc.FileName,
		FileType: fileType,
		FileSize: FormatKB(size),
	}
}

// FormatKB formats a byte count as whole kilobytes, rounded half up.
func FormatKB(size int64) string {
	return fmt.Sprintf("%d KB", int64(math.Round(float64(size)/1024)))
}

var mimeTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".txt":  "text/plain",
	".md":   "text/markdown",
}

// MimeTypeFor infers a MIME type from a file name's extension.
func MimeTypeFor(fileName string) string {
	if mt, ok := mimeTypes[strings.ToLower(filepath.Ext(fileName))]; ok {
		return mt
	}
	return "application/octet-stream"
}
