// Package failure defines the error kinds surfaced by the matching engine.
// Callers branch on the kind to render different messages; the kinds survive
// fmt.Errorf wrapping.
package failure

import (
	"errors"
	"fmt"
)

// RetrievalError reports an unreachable index or store, a rejected query or a timeout.
type RetrievalError struct {
	Op  string
	Err error
}

func (e *RetrievalError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("retrieval failed: %v", e.Err)
	}
	return fmt.Sprintf("retrieval failed (%s): %v", e.Op, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// ExtractionError reports an unsupported or corrupt document.
type ExtractionError struct {
	MIMEType string
	Err      error
}

func (e *ExtractionError) Error() string {
	if e.MIMEType == "" {
		return fmt.Sprintf("extraction failed: %v", e.Err)
	}
	return fmt.Sprintf("extraction failed (%s): %v", e.MIMEType, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ValidationError reports a missing identifier or malformed argument. It is
// always raised before any I/O happens.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// Retrieval wraps err as a RetrievalError unless it already is one.
func Retrieval(op string, err error) error {
	if err == nil {
		return nil
	}
	var re *RetrievalError
	if errors.As(err, &re) {
		return err
	}
	return &RetrievalError{Op: op, Err: err}
}

// Extraction wraps err as an ExtractionError unless it already is one.
func Extraction(mimeType string, err error) error {
	if err == nil {
		return nil
	}
	var ee *ExtractionError
	if errors.As(err, &ee) {
		return err
	}
	return &ExtractionError{MIMEType: mimeType, Err: err}
}

// Invalid builds a ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func IsRetrieval(err error) bool {
	var re *RetrievalError
	return errors.As(err, &re)
}

func IsExtraction(err error) bool {
	var ee *ExtractionError
	return errors.As(err, &ee)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
