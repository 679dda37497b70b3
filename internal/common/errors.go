package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Infrastructure error taxonomy. These propagate to the caller as Go errors
// with a clear kind tag; business outcomes (insufficient quality, identity
// mismatch, duplicates) never do; they ride on the AnalysisResult instead.
var (
	ErrInvalidDocumentFormat = errors.New("invalid document format")
	ErrExtractionFailed      = errors.New("text extraction failed for all chunks")
	ErrInvalidInput          = errors.New("invalid input")
)

// NewAppError constructs a tagged application error.
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
