package service

import (
	"github.com/oncoguide-server/internal/domain"
)

// SupportBundle carries the per-treatment support data resolved for a
// verdict. All slices are non-nil; absence is an empty slice, never a
// fabricated value.
type SupportBundle struct {
	Risks         []string
	Alternatives  []string
	RequiredTests []string
}

// ResolveSupport gathers risks, alternatives and required biomarker tests
// for the verdict's normalized treatment.
//
// Risks and alternatives come from the entry's per-treatment maps and stay
// empty when the entry records nothing for the treatment. Biomarker
// requirements are per-stage, not per-treatment, so they are returned
// unchanged regardless of the verdict.
func ResolveSupport(entry *domain.GuidelineEntry, verdict domain.AlignmentVerdict) SupportBundle {
	bundle := SupportBundle{
		Risks:         []string{},
		Alternatives:  []string{},
		RequiredTests: append([]string{}, entry.RequiredBiomarkers...),
	}

	if verdict.Unrecognized {
		return bundle
	}

	if risks, ok := entry.RiskProfile[verdict.NormalizedTreatment]; ok {
		bundle.Risks = append(bundle.Risks, risks...)
	}
	if alts, ok := entry.AlternativeTreatments[verdict.NormalizedTreatment]; ok {
		bundle.Alternatives = append(bundle.Alternatives, alts...)
	}

	return bundle
}
