package common

import (
	"errors"
	"fmt"
)

// Error codes, one per failure class in the pipeline taxonomy.
const (
	CodeSegmentation = "SEGMENTATION" // malformed page input; fatal before any model call
	CodeExtraction   = "EXTRACTION"   // one segment's model call failed
	CodeCancelled    = "CANCELLED"    // cooperative cancellation observed
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	// SegmentIndex is the failing segment for extraction errors, -1 otherwise.
	SegmentIndex int
	Cause        error
}

func (e *AppError) Error() string {
	msg := e.Message
	if e.SegmentIndex >= 0 {
		msg = fmt.Sprintf("%s (segment %d)", msg, e.SegmentIndex)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrCancelled    = errors.New("run cancelled")
	ErrInvalidInput = errors.New("invalid input")
)

// Error constructors
func NewSegmentationError(message string, cause error) *AppError {
	return &AppError{Code: CodeSegmentation, Message: message, SegmentIndex: -1, Cause: cause}
}

func NewExtractionError(segmentIndex int, message string, cause error) *AppError {
	return &AppError{Code: CodeExtraction, Message: message, SegmentIndex: segmentIndex, Cause: cause}
}

func NewCancelledError(cause error) *AppError {
	return &AppError{Code: CodeCancelled, Message: "run cancelled", SegmentIndex: -1, Cause: cause}
}

// IsCancelled reports whether err belongs to the cancellation class, which
// callers treat as "aborted" rather than "failed".
func IsCancelled(err error) bool {
	if errors.Is(err, ErrCancelled) {
		return true
	}
	var ae *AppError
	return errors.As(err, &ae) && ae.Code == CodeCancelled
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
