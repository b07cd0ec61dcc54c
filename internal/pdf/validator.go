package pdf

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Validator checks uploads before their text layer is read
type Validator struct {
	maxFileSize int64
}

// NewValidator creates a new PDF validator with the specified constraints
func NewValidator(maxFileSize int64) *Validator {
	return &Validator{
		maxFileSize: maxFileSize,
	}
}

// ValidationResult describes one validated file
type ValidationResult struct {
	Path    string `json:"path"`
	Valid   bool   `json:"valid"`
	Pages   int    `json:"pages,omitempty"`
	Message string `json:"message,omitempty"`
}

// Validate checks the size limit and that pdfcpu can read the document in
// relaxed mode. It returns the page count.
func (v *Validator) Validate(rs io.ReadSeeker, size int64) (int, error) {
	if size == 0 {
		return 0, ErrEmpty
	}
	if size > v.maxFileSize {
		return 0, fmt.Errorf("%w: %d bytes (max: %d bytes)", ErrTooLarge, size, v.maxFileSize)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(rs, conf)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	return ctx.PageCount, nil
}

// ValidateBytes is Validate over an in-memory document
func (v *Validator) ValidateBytes(data []byte) (int, error) {
	return v.Validate(bytes.NewReader(data), int64(len(data)))
}

// ValidateFile performs validation on a PDF file on disk. Validation
// failures are reported in the result, not as an error.
func (v *Validator) ValidateFile(path string) (*ValidationResult, error) {
	result := &ValidationResult{Path: path}

	pages, err := v.validateFile(path)
	if err != nil {
		result.Message = err.Error()
		return result, nil //nolint:nilerr // Return result with validation error, not a processing error
	}

	result.Valid = true
	result.Pages = pages
	return result, nil
}

func (v *Validator) validateFile(path string) (int, error) {
	if path == "" {
		return 0, fmt.Errorf("path cannot be empty")
	}

	fileInfo, err := os.Stat(path)
	if os.IsNotExist(err) {
		return 0, fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return 0, fmt.Errorf("cannot access file: %w", err)
	}

	if fileInfo.IsDir() {
		return 0, fmt.Errorf("path is a directory, not a file: %s", path)
	}

	if !IsPDFName(path) {
		return 0, fmt.Errorf("file is not a PDF: %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("cannot open file: %w", err)
	}
	defer f.Close()

	return v.Validate(f, fileInfo.Size())
}

// MaxFileSize returns the configured limit in bytes
func (v *Validator) MaxFileSize() int64 {
	return v.maxFileSize
}
