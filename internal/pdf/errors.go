package pdf

import "errors"

var (
	// ErrMalformedDocument wraps every failure to open or read a PDF.
	ErrMalformedDocument = errors.New("malformed PDF document")

	// ErrEmpty is returned for zero-length input.
	ErrEmpty = errors.New("file is empty")

	// ErrTooLarge is returned when input exceeds the configured size limit.
	ErrTooLarge = errors.New("file too large")
)
