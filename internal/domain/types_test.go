package domain

import (
	"errors"
	"testing"
)

func TestCancerTypeConstants(t *testing.T) {
	tests := []struct {
		name     string
		value    CancerType
		expected string
	}{
		{"Breast", BREAST, "BREAST"},
		{"Lung NSCLC", LUNG_NSCLC, "LUNG_NSCLC"},
		{"Colorectal", COLORECTAL, "COLORECTAL"},
		{"Prostate", PROSTATE, "PROSTATE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.value) != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, string(tt.value))
			}
			if !tt.value.IsValid() {
				t.Errorf("Expected %s to be valid", tt.value)
			}
		})
	}

	if CancerType("PANCREATIC").IsValid() {
		t.Error("Expected unsupported cancer type to be invalid")
	}
}

func TestCancerTypeStages(t *testing.T) {
	tests := []struct {
		name       string
		cancerType CancerType
		stages     []string
	}{
		{"Breast includes in-situ stage", BREAST, []string{"0", "I", "II", "III", "IV"}},
		{"Lung uses I-IV", LUNG_NSCLC, []string{"I", "II", "III", "IV"}},
		{"Colorectal uses I-IV", COLORECTAL, []string{"I", "II", "III", "IV"}},
		{"Prostate uses risk tiers", PROSTATE, []string{"LowRisk", "IntermediateRisk", "HighRisk", "Metastatic"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cancerType.Stages()
			if len(got) != len(tt.stages) {
				t.Fatalf("Expected %d stages, got %d", len(tt.stages), len(got))
			}
			for i, s := range tt.stages {
				if got[i] != s {
					t.Errorf("Expected stage %s at position %d, got %s", s, i, got[i])
				}
				if !tt.cancerType.HasStage(s) {
					t.Errorf("Expected %s to accept stage %s", tt.cancerType, s)
				}
			}
		})
	}

	// Stage schemes are not interchangeable across cancer types.
	if BREAST.HasStage("LowRisk") {
		t.Error("Breast must not accept prostate risk tiers")
	}
	if PROSTATE.HasStage("II") {
		t.Error("Prostate must not accept numeric stages")
	}
	if LUNG_NSCLC.HasStage("0") {
		t.Error("Lung must not accept stage 0")
	}
}

func TestParseCancerType(t *testing.T) {
	tests := []struct {
		input    string
		expected CancerType
	}{
		{"breast", BREAST},
		{"Breast Cancer", BREAST},
		{"BREAST", BREAST},
		{"lung", LUNG_NSCLC},
		{"NSCLC", LUNG_NSCLC},
		{"Lung/NSCLC", LUNG_NSCLC},
		{"colorectal", COLORECTAL},
		{"colon", COLORECTAL},
		{"rectal", COLORECTAL},
		{"prostate", PROSTATE},
		{"  Prostate Cancer  ", PROSTATE},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCancerType(tt.input)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}

	if _, err := ParseCancerType("pancreatic"); !errors.Is(err, ErrInvalidCancerType) {
		t.Errorf("Expected ErrInvalidCancerType, got %v", err)
	}
}

func TestAlignmentVerdicts(t *testing.T) {
	tests := []struct {
		name           string
		value          Alignment
		expected       string
		requiresReview bool
	}{
		{"Aligned", ALIGNED, "ALIGNED", false},
		{"Partially Aligned", PARTIALLY_ALIGNED, "PARTIALLY_ALIGNED", true},
		{"Not Aligned", NOT_ALIGNED, "NOT_ALIGNED", true},
		{"Unknown Combination", UNKNOWN_COMBINATION, "UNKNOWN_COMBINATION", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.value) != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, string(tt.value))
			}
			if !tt.value.IsValid() {
				t.Errorf("Expected %s to be valid", tt.value)
			}
			if tt.value.RequiresReview() != tt.requiresReview {
				t.Errorf("Expected RequiresReview=%v for %s", tt.requiresReview, tt.value)
			}
			if tt.value.ClinicalMessage() == "Unknown verdict" {
				t.Errorf("Expected a clinical message for %s", tt.value)
			}
		})
	}

	if Alignment("MAYBE").IsValid() {
		t.Error("Expected undefined verdict to be invalid")
	}
	if !Alignment("MAYBE").RequiresReview() {
		t.Error("Undefined verdicts must require review")
	}
}

func TestAlignmentLogFields(t *testing.T) {
	fields := PARTIALLY_ALIGNED.LogFields()

	if fields["alignment"] != "PARTIALLY_ALIGNED" {
		t.Errorf("Expected alignment field, got %v", fields["alignment"])
	}
	if fields["requires_review"] != true {
		t.Errorf("Expected requires_review=true, got %v", fields["requires_review"])
	}
	if fields["is_valid"] != true {
		t.Errorf("Expected is_valid=true, got %v", fields["is_valid"])
	}
}
