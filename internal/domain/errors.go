package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the consultation error taxonomy. Callers are expected
// to handle ErrUnknownCombination and ErrInvalidInput programmatically;
// everything else propagates as a fatal condition.
var (
	// ErrUnknownCombination: no guideline entry for the requested cancer
	// type and stage. Expected and recoverable; not every valid stage has a
	// curated entry.
	ErrUnknownCombination = errors.New("no guideline entry for cancer type and stage")

	// ErrMalformedKnowledgeBase: the knowledge base failed its load-time
	// integrity checks. Fatal; the process must refuse to serve requests.
	ErrMalformedKnowledgeBase = errors.New("malformed knowledge base")

	// ErrInvalidInput: request fields outside the enumerated domain, or an
	// empty or nonsensical proposed treatment. Recoverable; rejected before
	// the matcher runs.
	ErrInvalidInput = errors.New("invalid consultation input")
)

// UnknownCombinationError carries the pair that had no curated entry so the
// caller can present a precise "not currently supported" message.
type UnknownCombinationError struct {
	CancerType CancerType
	Stage      string
}

// Error implements the error interface.
func (e *UnknownCombinationError) Error() string {
	return fmt.Sprintf("no guideline entry for %s stage %q", e.CancerType, e.Stage)
}

// Unwrap ties the structured error to its sentinel for errors.Is checks.
func (e *UnknownCombinationError) Unwrap() error {
	return ErrUnknownCombination
}

// NewUnknownCombinationError creates an UnknownCombinationError.
func NewUnknownCombinationError(ct CancerType, stage string) *UnknownCombinationError {
	return &UnknownCombinationError{CancerType: ct, Stage: stage}
}

// MalformedKnowledgeBaseError reports which entry broke which invariant.
// Raised only at load time; a process observing it must abort startup.
type MalformedKnowledgeBaseError struct {
	EntryKey string
	Reason   string
}

// Error implements the error interface.
func (e *MalformedKnowledgeBaseError) Error() string {
	if e.EntryKey == "" {
		return fmt.Sprintf("malformed knowledge base: %s", e.Reason)
	}
	return fmt.Sprintf("malformed knowledge base: entry %s: %s", e.EntryKey, e.Reason)
}

// Unwrap ties the structured error to its sentinel for errors.Is checks.
func (e *MalformedKnowledgeBaseError) Unwrap() error {
	return ErrMalformedKnowledgeBase
}

// NewMalformedKnowledgeBaseError creates a MalformedKnowledgeBaseError.
func NewMalformedKnowledgeBaseError(entryKey, reason string) *MalformedKnowledgeBaseError {
	return &MalformedKnowledgeBaseError{EntryKey: entryKey, Reason: reason}
}

// InvalidInputError identifies which request field was rejected and why.
type InvalidInputError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input for field %q: %s", e.Field, e.Message)
}

// Unwrap ties the structured error to its sentinel for errors.Is checks.
func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}

// NewInvalidInputError creates an InvalidInputError.
func NewInvalidInputError(field, message string) *InvalidInputError {
	return &InvalidInputError{Field: field, Message: message}
}

// APIError is the standardized error body returned by the HTTP surface.
type APIError struct {
	Code          string    `json:"code"`
	Message       string    `json:"message"`
	Details       string    `json:"details,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// Error codes for different failure scenarios
const (
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodeUnknownCombination = "UNKNOWN_COMBINATION"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeStorage            = "STORAGE_ERROR"
	ErrCodeRateLimit          = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal           = "INTERNAL_SERVER_ERROR"
)

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAPIError creates a new APIError with timestamp.
func NewAPIError(code, message, details, correlationID string) *APIError {
	return &APIError{
		Code:          code,
		Message:       message,
		Details:       details,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
	}
}
