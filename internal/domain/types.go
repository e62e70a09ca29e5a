// Package domain contains core business entities and types for oncology treatment
// guideline consultation, checking proposed treatments against published guidelines
// (NCCN, ASCO, ESMO) for supported cancer types.
//
// Reference: NCCN Clinical Practice Guidelines in Oncology, https://www.nccn.org/guidelines
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// CancerType enumerates the cancer types with curated guideline coverage.
// Only these types may appear in a ConsultationRequest; anything else is
// rejected before the matcher runs.
type CancerType string

const (
	BREAST     CancerType = "BREAST"
	LUNG_NSCLC CancerType = "LUNG_NSCLC"
	COLORECTAL CancerType = "COLORECTAL"
	PROSTATE   CancerType = "PROSTATE"
)

// AllCancerTypes returns the supported cancer types in a stable order.
func AllCancerTypes() []CancerType {
	return []CancerType{BREAST, LUNG_NSCLC, COLORECTAL, PROSTATE}
}

// Alignment represents the verdict of comparing a proposed treatment against
// the guideline entry for a (cancer type, stage) pair.
type Alignment string

const (
	ALIGNED             Alignment = "ALIGNED"
	PARTIALLY_ALIGNED   Alignment = "PARTIALLY_ALIGNED"
	NOT_ALIGNED         Alignment = "NOT_ALIGNED"
	UNKNOWN_COMBINATION Alignment = "UNKNOWN_COMBINATION"
)

// Currency tags for cost ranges.
type Currency string

const (
	INR Currency = "INR"
	USD Currency = "USD"
)

// Validation errors for guideline data integrity
var (
	ErrInvalidCancerType = errors.New("invalid cancer type")
	ErrInvalidStage      = errors.New("invalid stage for cancer type")
	ErrInvalidAlignment  = errors.New("invalid alignment verdict")
)

// IsValid validates that the CancerType is one of the supported types.
// Critical for keeping unsupported diagnoses out of the matching pipeline.
func (ct CancerType) IsValid() bool {
	switch ct {
	case BREAST, LUNG_NSCLC, COLORECTAL, PROSTATE:
		return true
	default:
		return false
	}
}

// String returns the string representation of the cancer type.
func (ct CancerType) String() string {
	return string(ct)
}

// DisplayName returns the clinical display name for reports.
func (ct CancerType) DisplayName() string {
	switch ct {
	case BREAST:
		return "Breast Cancer"
	case LUNG_NSCLC:
		return "Non-Small Cell Lung Cancer (NSCLC)"
	case COLORECTAL:
		return "Colorectal Cancer"
	case PROSTATE:
		return "Prostate Cancer"
	default:
		return "Unknown cancer type"
	}
}

// Stages returns the staging scheme tokens valid for this cancer type.
// Staging is not uniform: breast uses 0-IV, lung and colorectal use I-IV,
// prostate uses risk tiers plus a metastatic label.
func (ct CancerType) Stages() []string {
	switch ct {
	case BREAST:
		return []string{"0", "I", "II", "III", "IV"}
	case LUNG_NSCLC, COLORECTAL:
		return []string{"I", "II", "III", "IV"}
	case PROSTATE:
		return []string{"LowRisk", "IntermediateRisk", "HighRisk", "Metastatic"}
	default:
		return nil
	}
}

// HasStage reports whether the stage token belongs to this cancer type's
// staging scheme.
func (ct CancerType) HasStage(stage string) bool {
	for _, s := range ct.Stages() {
		if s == stage {
			return true
		}
	}
	return false
}

// ParseCancerType resolves a free-form cancer type label to a CancerType.
// Accepts enum names and common clinical labels ("breast", "nsclc", "lung",
// "colon", "rectal").
func ParseCancerType(input string) (CancerType, error) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.NewReplacer(" ", "_", "-", "_", "/", "_").Replace(normalized)

	switch normalized {
	case "breast", "breast_cancer":
		return BREAST, nil
	case "lung", "nsclc", "lung_nsclc", "lung_cancer", "non_small_cell_lung_cancer":
		return LUNG_NSCLC, nil
	case "colorectal", "colon", "rectal", "colorectal_cancer":
		return COLORECTAL, nil
	case "prostate", "prostate_cancer":
		return PROSTATE, nil
	default:
		return "", fmt.Errorf("parsing cancer type %q: %w", input, ErrInvalidCancerType)
	}
}

// IsValid validates the alignment verdict.
func (a Alignment) IsValid() bool {
	switch a {
	case ALIGNED, PARTIALLY_ALIGNED, NOT_ALIGNED, UNKNOWN_COMBINATION:
		return true
	default:
		return false
	}
}

// String returns the string representation of the alignment verdict.
// Required for proper logging and audit trails.
func (a Alignment) String() string {
	return string(a)
}

// ClinicalMessage returns a human-readable description of the verdict for
// patient-facing reports. The unrecognized-treatment case is worded by the
// synthesizer separately: "guideline disagrees" and "no data to judge" are
// different statements and must never be conflated.
func (a Alignment) ClinicalMessage() string {
	switch a {
	case ALIGNED:
		return "Aligned - Matches the guideline-preferred first-line treatment"
	case PARTIALLY_ALIGNED:
		return "Partially Aligned - Guideline-acceptable but not first-line"
	case NOT_ALIGNED:
		return "Not Aligned - Differs from the guideline recommendations for this stage"
	case UNKNOWN_COMBINATION:
		return "Unknown Combination - No curated guideline entry for this cancer type and stage"
	default:
		return "Unknown verdict"
	}
}

// RequiresReview reports whether the verdict warrants oncologist review before
// proceeding. Conservative for anything that is not fully aligned.
func (a Alignment) RequiresReview() bool {
	switch a {
	case ALIGNED:
		return false
	case PARTIALLY_ALIGNED, NOT_ALIGNED, UNKNOWN_COMBINATION:
		return true
	default:
		return true
	}
}

// LogFields returns structured logging fields for audit trails.
func (a Alignment) LogFields() map[string]any {
	return map[string]any{
		"alignment":        string(a),
		"clinical_message": a.ClinicalMessage(),
		"requires_review":  a.RequiresReview(),
		"is_valid":         a.IsValid(),
	}
}

// IsValid validates the currency tag.
func (c Currency) IsValid() bool {
	switch c {
	case INR, USD:
		return true
	default:
		return false
	}
}
