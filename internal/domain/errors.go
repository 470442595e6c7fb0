package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrResultsTimeout indicates the results container never rendered
	// within the bounded wait.
	ErrResultsTimeout = errors.New("results timeout")

	// ErrExtractionFailed indicates a result block could not be mapped to a paper.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrNotPDF indicates a fetched artifact did not declare a PDF content type.
	ErrNotPDF = errors.New("not a pdf")

	// ErrFetchFailed indicates an artifact download failed.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrCacheMiss indicates no fresh cache entry exists for a query.
	ErrCacheMiss = errors.New("cache miss")

	// ErrPaperNotFound indicates that a requested paper was not found.
	ErrPaperNotFound = errors.New("paper not found")

	// ErrStoreUnavailable indicates the persistence layer failed.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInvalidInput indicates that the input data is invalid.
	ErrInvalidInput = errors.New("invalid input")
)

// ExtractionError describes why one result block failed extraction. Blocks
// that fail are skipped and logged; they never abort the page.
type ExtractionError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %s", e.Field, e.Reason)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ExtractionError) Unwrap() error {
	return ErrExtractionFailed
}

// FetchReason tags the failure mode of an artifact download.
type FetchReason string

// Artifact fetch failure modes.
const (
	FetchNotAPdf      FetchReason = "not_a_pdf"
	FetchNetworkError FetchReason = "network_error"
	FetchTimeout      FetchReason = "timeout"
	FetchBadStatus    FetchReason = "bad_status"
	FetchTooLarge     FetchReason = "too_large"
)

// FetchError describes a failed artifact download. It is surfaced to the
// caller as a value, never a panic, and is not retried automatically.
type FetchError struct {
	URL    string
	Reason FetchReason
	Cause  error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch %s (%s): %v", e.URL, e.Reason, e.Cause)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Reason)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *FetchError) Unwrap() error {
	if e.Reason == FetchNotAPdf {
		return ErrNotPDF
	}
	return ErrFetchFailed
}

// StoreError wraps a persistence failure with the operation that hit it.
// Callers receiving one alongside scraped papers keep the papers: caching is
// a side effect, not a precondition of returning data.
type StoreError struct {
	Op    string
	Cause error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *StoreError) Unwrap() error {
	return ErrStoreUnavailable
}

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewExtractionError creates a new ExtractionError.
func NewExtractionError(field, reason string) *ExtractionError {
	return &ExtractionError{
		Field:  field,
		Reason: reason,
	}
}

// NewFetchError creates a new FetchError.
func NewFetchError(url string, reason FetchReason, cause error) *FetchError {
	return &FetchError{
		URL:    url,
		Reason: reason,
		Cause:  cause,
	}
}

// NewStoreError creates a new StoreError.
func NewStoreError(op string, cause error) *StoreError {
	return &StoreError{
		Op:    op,
		Cause: cause,
	}
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
