package document

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

func extractTXT(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty text file")
	}

	text, err := decodeText(data)
	if err != nil {
		return "", fmt.Errorf("failed to decode text file: %w", err)
	}

	text = cleanText(text)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no text could be extracted from file")
	}
	return text, nil
}

// decodeText honours a byte order mark, then accepts valid UTF-8, then
// falls back to the common single byte Western encodings.
func decodeText(data []byte) (string, error) {
	switch {
	case len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF:
		return string(data[3:]), nil
	case len(data) >= 2 && data[0] == 0xFF && data[1] == 0xFE:
		return decodeWith(unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder(), data)
	case len(data) >= 2 && data[0] == 0xFE && data[1] == 0xFF:
		return decodeWith(unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder(), data)
	case utf8.Valid(data):
		return string(data), nil
	}

	if s, err := decodeWith(charmap.Windows1252.NewDecoder(), data); err == nil {
		return s, nil
	}
	if s, err := decodeWith(charmap.ISO8859_1.NewDecoder(), data); err == nil {
		return s, nil
	}
	return string(data), nil
}

func decodeWith(t transform.Transformer, data []byte) (string, error) {
	decoded, _, err := transform.Bytes(t, data)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// cleanText normalizes line endings and drops NUL bytes. Blank lines are
// kept because they separate Markdown blocks.
func cleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\x00", "")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n")
}
