package service

import (
	"fmt"
	"strings"

	"github.com/oncoguide-server/internal/domain"
)

// evidenceExplanations maps guideline evidence categories to patient-facing
// descriptions of how strong the supporting research is.
var evidenceExplanations = map[string]string{
	"Category 1":  "Highest confidence - Based on extensive research and expert agreement. This is the standard treatment that doctors worldwide recommend.",
	"Category 2A": "High confidence - Strong evidence supports this approach. Most doctors would recommend this.",
	"Category 2B": "Moderate confidence - Some evidence supports this, but there may be other good options too.",
	"Category 3":  "Lower confidence - Limited research available. Doctors may disagree on this approach.",
}

// ExplainEvidenceLevel returns the patient-facing explanation for a guideline
// evidence category, with a generic fallback for unrecorded levels.
func ExplainEvidenceLevel(level string) string {
	if explanation, ok := evidenceExplanations[level]; ok {
		return explanation
	}
	return "This treatment is supported by medical research and clinical experience."
}

// buildPlainLanguageSummary turns the verdict into a short, jargon-free
// paragraph for the patient-facing report. The unrecognized case is worded
// as "no data to judge", never as a guideline disagreement.
func buildPlainLanguageSummary(
	entry *domain.GuidelineEntry,
	verdict domain.AlignmentVerdict,
	displayName, stageDisplay, proposedTreatment string,
) string {
	preferred := entry.RecommendedTreatments[0]

	switch verdict.Alignment {
	case domain.ALIGNED:
		return fmt.Sprintf(
			"%s is the guideline-preferred first-line treatment for %s, %s. Your proposed plan matches what oncology guidelines recommend.",
			verdict.NormalizedTreatment, displayName, stageDisplay)

	case domain.PARTIALLY_ALIGNED:
		return fmt.Sprintf(
			"%s is an accepted guideline option for %s, %s, but it is not the first choice. Guidelines list %s as the preferred first-line treatment. Discuss with your oncologist why this option was chosen over the preferred one.",
			verdict.NormalizedTreatment, displayName, stageDisplay, preferred)

	case domain.NOT_ALIGNED:
		if verdict.Unrecognized {
			return fmt.Sprintf(
				"The guidelines for %s, %s have no data on %q, so this consultation cannot judge it. This does not mean the treatment is wrong, only that it is not covered here. Please review it directly with your oncologist. The guideline-recommended options are: %s.",
				displayName, stageDisplay, proposedTreatment, strings.Join(entry.RecommendedTreatments, ", "))
		}
		return fmt.Sprintf(
			"%s is known for %s, %s, but the guidelines do not recommend it for this stage. The recommended options are: %s. Please review this difference with your oncologist before proceeding.",
			verdict.NormalizedTreatment, displayName, stageDisplay, strings.Join(entry.RecommendedTreatments, ", "))

	default:
		return fmt.Sprintf(
			"No curated guideline entry exists for %s, %s, so this combination cannot be evaluated.",
			displayName, stageDisplay)
	}
}
