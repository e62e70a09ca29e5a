package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oncoguide-server/internal/domain"
	"github.com/oncoguide-server/internal/knowledge"
)

// ConsultationService implements the guideline consultation workflow: it
// validates the request, looks up the guideline entry, evaluates alignment
// and assembles the immutable result record. It holds no mutable state
// beyond the matcher's verdict cache, so independent consultations run fully
// in parallel.
type ConsultationService struct {
	logger    *logrus.Logger
	kb        domain.GuidelineLookup
	matcher   *Matcher
	validator *InputValidator
}

// NewConsultationService creates a consultation service over an immutable
// knowledge base snapshot.
func NewConsultationService(
	logger *logrus.Logger,
	kb domain.GuidelineLookup,
	matcher *Matcher,
	validator *InputValidator,
) *ConsultationService {
	return &ConsultationService{
		logger:    logger,
		kb:        kb,
		matcher:   matcher,
		validator: validator,
	}
}

// RunConsultation performs one complete consultation.
//
// Callers handle two error outcomes programmatically: ErrInvalidInput for
// rejected request fields and ErrUnknownCombination when no guideline entry
// is curated for the pair. Everything else propagates as fatal.
func (s *ConsultationService) RunConsultation(ctx context.Context, req *domain.ConsultationRequest) (*domain.ConsultationResult, error) {
	startTime := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateRequest(req); err != nil {
		return nil, err
	}

	stage := knowledge.NormalizeStage(req.CancerType, req.Stage)

	s.logger.WithFields(logrus.Fields{
		"cancer_type":        req.CancerType.String(),
		"stage":              stage,
		"proposed_treatment": req.ProposedTreatment,
	}).Info("Starting guideline consultation")

	// Stage tokens the scheme does not know simply have no entry, so an
	// uncurated or invalid stage surfaces here before any matching runs.
	entry, err := s.kb.Lookup(req.CancerType, stage)
	if err != nil {
		return nil, err
	}

	verdict := s.matcher.Evaluate(entry, req.ProposedTreatment)
	support := ResolveSupport(entry, verdict)
	result := s.synthesize(req, entry, verdict, support, stage)

	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("assembling consultation result: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"consultation_id": result.ConsultationID,
		"alignment":       result.Alignment.String(),
		"requires_review": result.RequiresReview,
		"unrecognized":    result.Unrecognized,
		"processing_time": time.Since(startTime),
	}).Info("Guideline consultation completed")

	return result, nil
}

// synthesize assembles the result record. Pure assembly: the only branching
// is marking the cost estimate absent when the entry records none for the
// treatment. Every field is populated or carries an explicit absence marker.
func (s *ConsultationService) synthesize(
	req *domain.ConsultationRequest,
	entry *domain.GuidelineEntry,
	verdict domain.AlignmentVerdict,
	support SupportBundle,
	stage string,
) *domain.ConsultationResult {
	displayName := req.CancerType.DisplayName()
	stageDisplay := knowledge.FormatStage(req.CancerType, stage)

	symptoms := req.Symptoms
	if symptoms == nil {
		symptoms = []string{}
	}

	result := &domain.ConsultationResult{
		ConsultationID: uuid.New().String(),
		CreatedAt:      time.Now().UTC(),

		CancerType:        req.CancerType,
		CancerDisplayName: displayName,
		Stage:             stage,
		StageDescription:  entry.StageDescription,
		ProposedTreatment: req.ProposedTreatment,
		Symptoms:          symptoms,

		Alignment:           verdict.Alignment,
		AlignmentMessage:    verdict.Alignment.ClinicalMessage(),
		NormalizedTreatment: verdict.NormalizedTreatment,
		Unrecognized:        verdict.Unrecognized,
		RequiresReview:      verdict.Alignment.RequiresReview(),

		MatchedGuidelineTreatments: append([]string{}, entry.RecommendedTreatments...),
		RequiredTests:              support.RequiredTests,
		Risks:                      support.Risks,
		Alternatives:               support.Alternatives,

		SurvivalStats: entry.SurvivalStats,

		GuidelineSource:     entry.GuidelineSource,
		GuidelineURL:        entry.GuidelineURL,
		EvidenceLevel:       entry.EvidenceLevel,
		EvidenceExplanation: ExplainEvidenceLevel(entry.EvidenceLevel),
		PlainLanguageSummary: buildPlainLanguageSummary(
			entry, verdict, displayName, stageDisplay, req.ProposedTreatment),
	}

	if cost, ok := entry.CostEstimate[verdict.NormalizedTreatment]; ok && !verdict.Unrecognized {
		result.CostAvailable = true
		result.CostEstimate = cost
	}

	return result
}
