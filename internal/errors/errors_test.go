package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "without cause",
			err:      NewValidationError(ErrCodeFileTooLarge, "too big", nil),
			expected: "FILE_TOO_LARGE: too big",
		},
		{
			name:     "with cause",
			err:      NewIOError(ErrCodeFileNotReadable, "cannot read", fmt.Errorf("permission denied")),
			expected: "FILE_NOT_READABLE: cannot read (caused by: permission denied)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestAsAppErrorThroughWrapping(t *testing.T) {
	base := NewExportError(ErrCodeExportFailed, "render failed", nil)
	wrapped := fmt.Errorf("export: %w", base)

	appErr, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrorTypeExport, appErr.Type)
	assert.True(t, HasCode(wrapped, ErrCodeExportFailed))
	assert.False(t, HasCode(wrapped, ErrCodeAITimeout))
	assert.True(t, stderrors.Is(wrapped, base))
}

func TestWithContext(t *testing.T) {
	err := NewAIError(ErrCodeAIServiceFailed, "provider down", nil).
		WithContext("provider", "openai").
		WithContext("attempts", 3)

	assert.Equal(t, "openai", err.Context["provider"])
	assert.Equal(t, 3, err.Context["attempts"])
}

func TestLogErrorExpandsFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, slog.LevelDebug)

	err := NewValidationError(ErrCodeUnsupportedFileType, "bad extension", nil).WithContext("file", "cv.exe")
	logger.LogError(err, "upload rejected", "request_id", "abc")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "upload rejected", record["msg"])
	assert.Equal(t, "validation", record["error_type"])
	assert.Equal(t, ErrCodeUnsupportedFileType, record["error_code"])
	assert.Equal(t, "cv.exe", record["file"])
	assert.Equal(t, "abc", record["request_id"])
}

func TestNewLogLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		_, err := New(level)
		assert.NoError(t, err, level)
	}
	_, err := New("verbose")
	assert.Error(t, err)
}
