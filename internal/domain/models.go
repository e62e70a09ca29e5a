package domain

import (
	"errors"
	"fmt"
	"time"
)

// MoneyRange is a currency-tagged numeric range for treatment cost estimates.
type MoneyRange struct {
	Currency Currency `json:"currency"`
	Low      float64  `json:"low"`
	High     float64  `json:"high"`
}

// CostRange holds the cost estimate for one treatment in both supported
// currencies.
type CostRange struct {
	INR MoneyRange `json:"inr"`
	USD MoneyRange `json:"usd"`
}

// Validate ensures the cost range is internally consistent.
func (cr *CostRange) Validate() error {
	if cr.INR.Currency != INR {
		return fmt.Errorf("cost range validation: INR range tagged %q", cr.INR.Currency)
	}
	if cr.USD.Currency != USD {
		return fmt.Errorf("cost range validation: USD range tagged %q", cr.USD.Currency)
	}
	for _, r := range []MoneyRange{cr.INR, cr.USD} {
		if r.Low < 0 || r.High < r.Low {
			return fmt.Errorf("cost range validation: invalid %s range [%.2f, %.2f]", r.Currency, r.Low, r.High)
		}
	}
	return nil
}

// SurvivalStats is the structured survival record attached to a guideline
// entry. Informational only: the matcher never consults it. HorizonYears is
// the span the survival rate refers to (5, 10 or 15 years depending on the
// guideline source). Median survival months are zero when the guideline does
// not report them.
type SurvivalStats struct {
	SurvivalRateLowPct    float64 `json:"survival_rate_low_pct"`
	SurvivalRateHighPct   float64 `json:"survival_rate_high_pct"`
	HorizonYears          int     `json:"horizon_years"`
	MedianSurvivalMonths  float64 `json:"median_survival_months,omitempty"`
}

// Validate ensures the survival record is plausible.
func (ss *SurvivalStats) Validate() error {
	if ss.SurvivalRateLowPct < 0 || ss.SurvivalRateHighPct > 100 || ss.SurvivalRateHighPct < ss.SurvivalRateLowPct {
		return fmt.Errorf("survival stats validation: invalid rate range [%.1f, %.1f]",
			ss.SurvivalRateLowPct, ss.SurvivalRateHighPct)
	}
	if ss.HorizonYears <= 0 {
		return fmt.Errorf("survival stats validation: %w", errors.New("horizon years must be positive"))
	}
	return nil
}

// GuidelineEntry is one curated guideline record for a (cancer type, stage)
// pair. Entries are immutable after knowledge base load.
//
// KnownTreatments is the entry's treatment universe: every treatment name the
// entry references anywhere (recommendation ranks, risk profile keys, cost
// estimate keys, alternative keys and values) must be a member. The knowledge
// base loader enforces this closed-world invariant at load time.
type GuidelineEntry struct {
	CancerType      CancerType `json:"cancer_type" validate:"required"`
	Stage           string     `json:"stage" validate:"required"`
	GuidelineSource string     `json:"guideline_source"`
	GuidelineURL    string     `json:"guideline_url"`

	// Treatment universe and preference ranking (most preferred first).
	KnownTreatments       []string `json:"known_treatments" validate:"required"`
	RecommendedTreatments []string `json:"recommended_treatments" validate:"required"`

	// Biomarker tests that must be considered for this stage.
	RequiredBiomarkers []string `json:"required_biomarkers"`

	SurvivalStats SurvivalStats `json:"survival_stats"`

	// Per-treatment side effects, costs and substitutes.
	RiskProfile           map[string][]string  `json:"risk_profile"`
	CostEstimate          map[string]CostRange `json:"cost_estimate"`
	AlternativeTreatments map[string][]string  `json:"alternative_treatments"`

	// Report enrichment fields carried from the guideline source.
	EvidenceLevel    string `json:"evidence_level,omitempty"`
	StageDescription string `json:"stage_description,omitempty"`
}

// Key returns the lookup key for this entry.
func (e *GuidelineEntry) Key() string {
	return fmt.Sprintf("%s/%s", e.CancerType, e.Stage)
}

// Knows reports whether a treatment name belongs to the entry's universe.
func (e *GuidelineEntry) Knows(treatment string) bool {
	for _, t := range e.KnownTreatments {
		if t == treatment {
			return true
		}
	}
	return false
}

// RecommendationRank returns the 0-based preference rank of the treatment in
// RecommendedTreatments, or -1 if it is not recommended for this stage.
func (e *GuidelineEntry) RecommendationRank(treatment string) int {
	for i, t := range e.RecommendedTreatments {
		if t == treatment {
			return i
		}
	}
	return -1
}

// Validate enforces the entry's structural and reference-integrity
// invariants. A violation here means the knowledge base itself is broken;
// loading must abort rather than risk serving wrong medical guidance.
func (e *GuidelineEntry) Validate() error {
	if !e.CancerType.IsValid() {
		return fmt.Errorf("guideline entry validation: %w: %q", ErrInvalidCancerType, e.CancerType)
	}
	if !e.CancerType.HasStage(e.Stage) {
		return fmt.Errorf("guideline entry validation: %w: %q for %s", ErrInvalidStage, e.Stage, e.CancerType)
	}
	if len(e.KnownTreatments) == 0 {
		return fmt.Errorf("guideline entry %s validation: %w", e.Key(), errors.New("known treatments are required"))
	}
	if len(e.RecommendedTreatments) == 0 {
		return fmt.Errorf("guideline entry %s validation: %w", e.Key(), errors.New("recommended treatments are required"))
	}

	if err := e.SurvivalStats.Validate(); err != nil {
		return fmt.Errorf("guideline entry %s: %w", e.Key(), err)
	}

	// Closed-world reference integrity: no dangling treatment references.
	for _, t := range e.RecommendedTreatments {
		if !e.Knows(t) {
			return e.danglingRef("recommended_treatments", t)
		}
	}
	for t, risks := range e.RiskProfile {
		if !e.Knows(t) {
			return e.danglingRef("risk_profile", t)
		}
		if len(risks) == 0 {
			return fmt.Errorf("guideline entry %s validation: empty risk list for %q", e.Key(), t)
		}
	}
	for t, cr := range e.CostEstimate {
		if !e.Knows(t) {
			return e.danglingRef("cost_estimate", t)
		}
		if err := cr.Validate(); err != nil {
			return fmt.Errorf("guideline entry %s, treatment %q: %w", e.Key(), t, err)
		}
	}
	for t, alts := range e.AlternativeTreatments {
		if !e.Knows(t) {
			return e.danglingRef("alternative_treatments", t)
		}
		for _, alt := range alts {
			if !e.Knows(alt) {
				return e.danglingRef("alternative_treatments value", alt)
			}
		}
	}

	return nil
}

func (e *GuidelineEntry) danglingRef(field, treatment string) error {
	return fmt.Errorf("guideline entry %s validation: %s references treatment %q outside the entry's universe",
		e.Key(), field, treatment)
}

// ConsultationRequest is the validated input for one consultation. It is
// constructed externally, immutable once handed to the core, and discarded
// after the result is produced.
type ConsultationRequest struct {
	UserID            string     `json:"user_id,omitempty"`
	CancerType        CancerType `json:"cancer_type" validate:"required"`
	Stage             string     `json:"stage" validate:"required"`
	ProposedTreatment string     `json:"proposed_treatment" validate:"required"`

	// Reported symptoms are informational: surfaced in the result but never
	// altering the verdict.
	Symptoms []string `json:"symptoms,omitempty"`
}

// Validate checks the request fields that can be judged without the knowledge
// base. Stage membership is resolved by KB lookup so that an uncurated stage
// surfaces as an unknown combination, not an input error.
func (r *ConsultationRequest) Validate() error {
	if !r.CancerType.IsValid() {
		return fmt.Errorf("consultation request validation: %w: %q", ErrInvalidCancerType, r.CancerType)
	}
	if r.Stage == "" {
		return fmt.Errorf("consultation request validation: %w", errors.New("stage is required"))
	}
	if r.ProposedTreatment == "" {
		return fmt.Errorf("consultation request validation: %w", errors.New("proposed treatment is required"))
	}
	return nil
}

// AlignmentVerdict is the matcher's output: the categorical verdict plus the
// evidence that produced it.
type AlignmentVerdict struct {
	Alignment Alignment `json:"alignment"`

	// NormalizedTreatment is the canonical treatment name the verdict was
	// judged on, after normalization and synonym resolution.
	NormalizedTreatment string `json:"normalized_treatment"`

	// Rank is the 0-based preference rank when the treatment is recommended,
	// -1 otherwise.
	Rank int `json:"rank"`

	// Unrecognized distinguishes "the guideline disagrees with this
	// treatment" (false) from "the entry has no data on this treatment"
	// (true). Only meaningful when Alignment is NOT_ALIGNED.
	Unrecognized bool `json:"unrecognized"`
}

// ConsultationResult is the immutable output record for one consultation.
// Created once per request and never mutated afterwards; downstream rendering
// assumes total coverage of this schema, so every field is either populated
// or carries an explicit absence marker.
type ConsultationResult struct {
	ConsultationID string    `json:"consultation_id"`
	CreatedAt      time.Time `json:"created_at"`

	CancerType        CancerType `json:"cancer_type"`
	CancerDisplayName string     `json:"cancer_display_name"`
	Stage             string     `json:"stage"`
	StageDescription  string     `json:"stage_description"`
	ProposedTreatment string     `json:"proposed_treatment"`
	Symptoms          []string   `json:"symptoms"`

	Alignment           Alignment `json:"alignment"`
	AlignmentMessage    string    `json:"alignment_message"`
	NormalizedTreatment string    `json:"normalized_treatment"`
	Unrecognized        bool      `json:"unrecognized"`
	RequiresReview      bool      `json:"requires_review"`

	// The entry's recommendation list, unchanged, for display.
	MatchedGuidelineTreatments []string `json:"matched_guideline_treatments"`

	RequiredTests []string `json:"required_tests"`
	Risks         []string `json:"risks"`
	Alternatives  []string `json:"alternatives"`

	// CostAvailable marks whether the entry records a cost for the proposed
	// treatment; CostEstimate is zero-valued when it does not.
	CostAvailable bool      `json:"cost_available"`
	CostEstimate  CostRange `json:"cost_estimate"`

	SurvivalStats SurvivalStats `json:"survival_stats"`

	// Report enrichment.
	GuidelineSource      string `json:"guideline_source"`
	GuidelineURL         string `json:"guideline_url"`
	EvidenceLevel        string `json:"evidence_level"`
	EvidenceExplanation  string `json:"evidence_explanation"`
	PlainLanguageSummary string `json:"plain_language_summary"`
}

// Validate checks the total-coverage invariant: sequence fields must be
// non-nil (empty is fine, nil serializes as JSON null and breaks downstream
// renderers) and the verdict must be a valid enum member.
func (r *ConsultationResult) Validate() error {
	if r.ConsultationID == "" {
		return fmt.Errorf("consultation result validation: %w", errors.New("consultation ID is required"))
	}
	if !r.Alignment.IsValid() {
		return fmt.Errorf("consultation result validation: %w", ErrInvalidAlignment)
	}
	for name, seq := range map[string][]string{
		"symptoms":                     r.Symptoms,
		"matched_guideline_treatments": r.MatchedGuidelineTreatments,
		"required_tests":               r.RequiredTests,
		"risks":                        r.Risks,
		"alternatives":                 r.Alternatives,
	} {
		if seq == nil {
			return fmt.Errorf("consultation result validation: %s must not be nil", name)
		}
	}
	return nil
}
