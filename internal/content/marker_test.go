package content

import (
	"strings"
	"testing"
)

func TestIsOpaque(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"empty", "", false},
		{"plain text", "# Jane Doe\n- Go", false},
		{"pdf magic", "%PDF-1.7 binary", true},
		{"pdf magic not at start", "see %PDF-1.7", false},
		{"pdf sentinel", "intro %PDF-binary-content", true},
		{"docx sentinel", "PK-binary-content-docx", true},
		{"generic marker", "abc-binary-content", true},
		{"zip with content types", "PK\x03\x04[Content_Types].xml", true},
		{"bare PK is strict", "PKI certificates", false},
		{"only marker", MarkerSubstring, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsOpaque(tt.input); got != tt.expected {
				t.Errorf("IsOpaque(%q) = %v, expected %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestIsOpaquePermissivePK(t *testing.T) {
	opts := DetectOptions{PermissivePK: true}
	if !IsOpaqueWith("PKI certificates", opts) {
		t.Error("Expected permissive detection to flag bare PK")
	}
	if IsOpaqueWith("", opts) {
		t.Error("Expected empty input to be non-opaque in permissive mode")
	}
}

func TestDetectSignal(t *testing.T) {
	tests := []struct {
		input    string
		expected Signal
	}{
		{"", SignalNone},
		{"%PDF-binary-content", SignalPDF},
		{"x PK-binary-content-docx", SignalSentinel},
		{"PK Content_Types", SignalZip},
		{"hello", SignalNone},
	}

	for _, tt := range tests {
		t.Run(tt.expected.String(), func(t *testing.T) {
			if got := DetectSignal(tt.input); got != tt.expected {
				t.Errorf("DetectSignal(%q) = %v, expected %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestIsOpaqueLargeInput(t *testing.T) {
	large := strings.Repeat("lorem ipsum ", 500000)
	if IsOpaque(large) {
		t.Error("Expected large plain text to be non-opaque")
	}
	if !IsOpaque(large + PDFSentinel) {
		t.Error("Expected trailing sentinel to be detected")
	}
}

func BenchmarkIsOpaque(b *testing.B) {
	text := strings.Repeat("Experienced engineer. ", 2000)
	for b.Loop() {
		IsOpaque(text)
	}
}
