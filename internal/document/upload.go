package document

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cvforge/internal/content"
	"cvforge/internal/errors"
	"cvforge/internal/types"
)

const DefaultMaxBytes int64 = 5 * 1024 * 1024

// DefaultExtensions are the upload extensions accepted out of the box.
var DefaultExtensions = []string{".pdf", ".doc", ".docx", ".txt"}

// Validator enforces the upload size limit and extension allow-list.
type Validator struct {
	MaxBytes   int64
	Extensions []string
}

// NewValidator returns a validator, applying defaults for zero values.
func NewValidator(maxBytes int64, extensions []string) Validator {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	normalized := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if !slices.Contains(normalized, ext) {
			normalized = append(normalized, ext)
		}
	}
	return Validator{MaxBytes: maxBytes, Extensions: normalized}
}

// Validate checks the declared size and the file name's extension.
func (v Validator) Validate(fileName string, size int64) error {
	if size > v.MaxBytes {
		return errors.NewValidationError(errors.ErrCodeFileTooLarge,
			fmt.Sprintf("File size exceeds the maximum limit of %s", formatLimit(v.MaxBytes)), nil).
			WithContext("file", fileName).
			WithContext("size", size)
	}
	if !slices.Contains(v.Extensions, Extension(fileName)) {
		return errors.NewValidationError(errors.ErrCodeUnsupportedFileType,
			fmt.Sprintf("File type not supported. Please upload %s files.", strings.Join(v.Extensions, ", ")), nil).
			WithContext("file", fileName)
	}
	return nil
}

// ValidateDocument validates doc using its declared size, or its data length
// when no size was declared.
func (v Validator) ValidateDocument(doc types.UploadedDocument) error {
	size := doc.SizeBytes
	if size == 0 {
		size = int64(len(doc.Data))
	}
	return v.Validate(doc.FileName, size)
}

// ReadFile validates and loads a file from disk.
func (v Validator) ReadFile(path string) (types.UploadedDocument, error) {
	if path == "" {
		return types.UploadedDocument{}, errors.NewValidationError(errors.ErrCodeFileNotFound, "filename cannot be empty", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return types.UploadedDocument{}, errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("file does not exist: %s", path), err)
		}
		return types.UploadedDocument{}, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("cannot access file %s", path), err)
	}
	if info.IsDir() {
		return types.UploadedDocument{}, errors.NewValidationError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("path is a directory, not a file: %s", path), nil)
	}

	name := filepath.Base(path)
	if err := v.Validate(name, info.Size()); err != nil {
		return types.UploadedDocument{}, err
	}

	f, err := os.Open(path) // #nosec G304 -- user-selected input file
	if err != nil {
		return types.UploadedDocument{}, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("cannot read file %s", path), err)
	}
	defer func() { _ = f.Close() }()

	return v.Read(name, "", f)
}

// Read loads an upload from r, refusing to read past the size limit.
func (v Validator) Read(fileName, mimeType string, r io.Reader) (types.UploadedDocument, error) {
	data, err := io.ReadAll(io.LimitReader(r, v.MaxBytes+1))
	if err != nil {
		return types.UploadedDocument{}, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("cannot read file %s", fileName), err)
	}
	if err := v.Validate(fileName, int64(len(data))); err != nil {
		return types.UploadedDocument{}, err
	}
	if mimeType == "" {
		mimeType = content.MimeTypeFor(fileName)
	}
	return types.UploadedDocument{
		Data:      data,
		FileName:  fileName,
		MimeType:  mimeType,
		SizeBytes: int64(len(data)),
	}, nil
}

// Extension returns the lower-cased extension of fileName.
func Extension(fileName string) string {
	return strings.ToLower(filepath.Ext(fileName))
}

func formatLimit(n int64) string {
	const mb = 1024 * 1024
	if n%mb == 0 {
		return fmt.Sprintf("%dMB", n/mb)
	}
	return fmt.Sprintf("%.1fMB", float64(n)/mb)
}
