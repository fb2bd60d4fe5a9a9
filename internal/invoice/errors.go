package invoice

import (
	"errors"
	"fmt"
)

// Common invoice processing errors
var (
	// ErrEmptyBatch is returned when a batch contains no records.
	ErrEmptyBatch = errors.New("batch must contain at least one invoice")

	// ErrInvalidBatch is returned when a batch is not a JSON array of invoice objects.
	ErrInvalidBatch = errors.New("batch must be a JSON array of invoice objects")

	// ErrUnsupportedDocument is returned for files that are neither PDF nor plain text.
	ErrUnsupportedDocument = errors.New("unsupported document type")

	// ErrEmptyDocument is returned when a document yields no text at all.
	ErrEmptyDocument = errors.New("document contains no text")

	// ErrDocumentTooLarge is returned when a document exceeds the configured size limit.
	ErrDocumentTooLarge = errors.New("document exceeds maximum size limit")
)

// ExtractionError wraps a document-level extraction failure with its source.
type ExtractionError struct {
	// Op is the operation that failed (e.g., "ExtractFile").
	Op string

	// Source is the document the failure belongs to.
	Source string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("invoice: %s failed for %s: %s: %v", e.Op, e.Source, e.Details, e.Err)
	}
	return fmt.Sprintf("invoice: %s failed for %s: %v", e.Op, e.Source, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *ExtractionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapExtractionError wraps an error as an ExtractionError if it isn't already one.
func WrapExtractionError(op, source string, err error, details string) error {
	if err == nil {
		return nil
	}

	var extractionErr *ExtractionError
	if errors.As(err, &extractionErr) {
		return err
	}

	return &ExtractionError{Op: op, Source: source, Err: err, Details: details}
}

// BatchError reports why a submitted batch was rejected before validation.
type BatchError struct {
	Err    error
	Causes []string
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	if len(e.Causes) == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v: %s", e.Err, e.Causes[0])
}

// Unwrap returns the underlying sentinel.
func (e *BatchError) Unwrap() error {
	return e.Err
}
