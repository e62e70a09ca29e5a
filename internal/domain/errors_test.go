package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestUnknownCombinationError(t *testing.T) {
	err := NewUnknownCombinationError(COLORECTAL, "VII")

	if !errors.Is(err, ErrUnknownCombination) {
		t.Error("Expected error to match ErrUnknownCombination sentinel")
	}

	expected := `no guideline entry for COLORECTAL stage "VII"`
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}

	// Wrapping must preserve sentinel matching.
	wrapped := fmt.Errorf("running consultation: %w", err)
	if !errors.Is(wrapped, ErrUnknownCombination) {
		t.Error("Expected wrapped error to match sentinel")
	}

	var uce *UnknownCombinationError
	if !errors.As(wrapped, &uce) {
		t.Fatal("Expected errors.As to recover the structured error")
	}
	if uce.CancerType != COLORECTAL || uce.Stage != "VII" {
		t.Errorf("Expected COLORECTAL/VII, got %s/%s", uce.CancerType, uce.Stage)
	}
}

func TestMalformedKnowledgeBaseError(t *testing.T) {
	err := NewMalformedKnowledgeBaseError("BREAST/II", "risk_profile references unknown treatment")

	if !errors.Is(err, ErrMalformedKnowledgeBase) {
		t.Error("Expected error to match ErrMalformedKnowledgeBase sentinel")
	}
	expected := "malformed knowledge base: entry BREAST/II: risk_profile references unknown treatment"
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}

	// Entry key is optional for dataset-level failures.
	datasetErr := NewMalformedKnowledgeBaseError("", "duplicate entry key")
	if datasetErr.Error() != "malformed knowledge base: duplicate entry key" {
		t.Errorf("Unexpected message: %q", datasetErr.Error())
	}
}

func TestInvalidInputError(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		message string
	}{
		{"Empty treatment", "proposed_treatment", "must not be empty"},
		{"Bad cancer type", "cancer_type", "unsupported cancer type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewInvalidInputError(tt.field, tt.message)

			if !errors.Is(err, ErrInvalidInput) {
				t.Error("Expected error to match ErrInvalidInput sentinel")
			}
			expected := fmt.Sprintf("invalid input for field %q: %s", tt.field, tt.message)
			if err.Error() != expected {
				t.Errorf("Expected %q, got %q", expected, err.Error())
			}
		})
	}
}

func TestAPIError(t *testing.T) {
	err := NewAPIError(ErrCodeUnknownCombination, "No guideline entry", "COLORECTAL stage VII", "corr-123")

	if err.Code != ErrCodeUnknownCombination {
		t.Errorf("Expected code %s, got %s", ErrCodeUnknownCombination, err.Code)
	}
	if err.CorrelationID != "corr-123" {
		t.Errorf("Expected correlation ID corr-123, got %s", err.CorrelationID)
	}
	if time.Since(err.Timestamp) > time.Minute {
		t.Errorf("Timestamp should be recent, got %v", err.Timestamp)
	}

	expected := "UNKNOWN_COMBINATION: No guideline entry"
	if err.Error() != expected {
		t.Errorf("Expected error string %s, got %s", expected, err.Error())
	}
}

func TestErrorCodeConstants(t *testing.T) {
	expectedValues := map[string]string{
		ErrCodeInvalidInput:       "INVALID_INPUT",
		ErrCodeUnknownCombination: "UNKNOWN_COMBINATION",
		ErrCodeNotFound:           "NOT_FOUND",
		ErrCodeStorage:            "STORAGE_ERROR",
		ErrCodeRateLimit:          "RATE_LIMIT_EXCEEDED",
		ErrCodeInternal:           "INTERNAL_SERVER_ERROR",
	}

	for actual, expected := range expectedValues {
		if actual != expected {
			t.Errorf("Expected %s, got %s", expected, actual)
		}
	}
}
