package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cvforge/internal/errors"
)

// FileProcessor handles common file operations
type FileProcessor struct {
	logger *errors.Logger
}

// NewFileProcessor creates a new file processor instance
func NewFileProcessor(logger *errors.Logger) *FileProcessor {
	if logger == nil {
		logger = errors.NewDiscardLogger()
	}
	return &FileProcessor{logger: logger}
}

// ReadText reads a plain text input. "-" reads from stdin.
func (fp *FileProcessor) ReadText(filename string, stdin io.Reader) (string, error) {
	if filename == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", errors.NewIOError(errors.ErrCodeFileNotReadable, "Failed to read standard input", err)
		}
		return string(data), nil
	}

	file, err := os.Open(filename) // #nosec G304 -- user-selected input file
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			fp.logger.Warn("Failed to close file", "filename", filename, "error", err)
		}
	}()

	content, err := io.ReadAll(file)
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read file content: %s", filename), err)
	}

	return string(content), nil
}

// WriteFile writes content to a file with directory creation
func (fp *FileProcessor) WriteFile(filename string, content []byte) error {
	if err := fp.ValidateOutputFile(filename); err != nil {
		return err
	}

	if err := os.WriteFile(filename, content, 0600); err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}

	return nil
}

// ValidateOutputFile makes sure the parent directory of filename exists.
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil // stdout is valid
	}

	dir := filepath.Dir(filename)
	if dir == "." {
		return nil
	}
	if info, err := os.Stat(dir); err == nil {
		if !info.IsDir() {
			return errors.NewValidationError("INVALID_OUTPUT_FILE",
				fmt.Sprintf("Invalid output file: %s is not a directory", dir), nil)
		}
		return nil
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return errors.NewIOError("DIRECTORY_CREATE_FAILED",
			fmt.Sprintf("Cannot create directory: %s", dir), err)
	}
	return nil
}
