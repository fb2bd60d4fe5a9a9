package ocr

import (
	"errors"
	"fmt"
)

// Common OCR processing errors
var (
	// ErrPDFTooLarge is returned when the PDF exceeds MaxFileSizeBytes.
	ErrPDFTooLarge = errors.New("PDF file size exceeds the maximum limit (20MB)")

	// ErrInvalidPDF is returned when the data is not a readable PDF document.
	ErrInvalidPDF = errors.New("invalid or corrupted PDF document")

	// ErrOCRFailed is returned when a cloud OCR call fails.
	ErrOCRFailed = errors.New("OCR processing failed")

	// ErrMissingCredentials is returned when no Google Cloud credentials can be found.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS environment variable")

	// ErrInvalidConfiguration is returned when a cloud engine is missing required settings.
	ErrInvalidConfiguration = errors.New("invalid OCR configuration")

	// ErrTooManyPages is returned when Vision is given more pages than it processes synchronously.
	ErrTooManyPages = errors.New("PDF has too many pages (maximum 5 pages for synchronous processing)")

	// ErrUnknownEngine is returned for an unsupported engine name.
	ErrUnknownEngine = errors.New("unknown OCR engine")
)

// OCRError wraps errors with the operation that failed.
type OCRError struct {
	// Op is the operation that failed (e.g., "ProcessPDF", "NewService").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *OCRError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *OCRError) Unwrap() error {
	return e.Err
}

// Is reports whether the underlying error matches target.
func (e *OCRError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapOCRError wraps err as an OCRError unless it already is one.
func WrapOCRError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var ocrErr *OCRError
	if errors.As(err, &ocrErr) {
		return err
	}

	return &OCRError{Op: op, Err: err, Details: details}
}
