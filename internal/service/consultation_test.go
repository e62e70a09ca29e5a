package service

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oncoguide-server/internal/domain"
	"github.com/oncoguide-server/internal/knowledge"
	"github.com/oncoguide-server/pkg/treatment"
)

func newTestConsultationService(t *testing.T) *ConsultationService {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	snapshot, err := knowledge.LoadEmbedded(logger)
	require.NoError(t, err)

	matcher, err := NewMatcher(treatment.DefaultSynonyms(), 64, logger)
	require.NoError(t, err)

	return NewConsultationService(logger, snapshot, matcher, NewInputValidator())
}

func TestRunConsultationAligned(t *testing.T) {
	svc := newTestConsultationService(t)

	result, err := svc.RunConsultation(context.Background(), &domain.ConsultationRequest{
		CancerType:        domain.BREAST,
		Stage:             "II",
		ProposedTreatment: "Chemotherapy",
		Symptoms:          []string{"breast lump"},
	})
	require.NoError(t, err)
	require.NoError(t, result.Validate())

	assert.NotEmpty(t, result.ConsultationID)
	assert.Equal(t, domain.ALIGNED, result.Alignment)
	assert.False(t, result.RequiresReview)
	assert.False(t, result.Unrecognized)
	assert.Equal(t, "Chemotherapy", result.NormalizedTreatment)
	assert.Equal(t, []string{"ER/PR", "HER2", "Ki-67", "Oncotype DX"}, result.RequiredTests)
	assert.True(t, result.CostAvailable)
	assert.Equal(t, domain.INR, result.CostEstimate.INR.Currency)
	assert.Equal(t, float64(800000), result.CostEstimate.INR.Low)
	assert.NotEmpty(t, result.Risks)
	assert.NotEmpty(t, result.PlainLanguageSummary)
	assert.Contains(t, result.EvidenceExplanation, "Highest confidence")
	assert.Equal(t, "Breast Cancer", result.CancerDisplayName)
}

func TestRunConsultationStageNormalization(t *testing.T) {
	svc := newTestConsultationService(t)

	// "stage 2" and "II" must land on the same entry and verdict.
	for _, stage := range []string{"II", "stage 2", "Stage II", "ii"} {
		result, err := svc.RunConsultation(context.Background(), &domain.ConsultationRequest{
			CancerType:        domain.BREAST,
			Stage:             stage,
			ProposedTreatment: "Chemotherapy",
		})
		require.NoError(t, err, "stage %q", stage)
		assert.Equal(t, "II", result.Stage)
		assert.Equal(t, domain.ALIGNED, result.Alignment)
	}
}

func TestRunConsultationUnrecognizedTreatment(t *testing.T) {
	svc := newTestConsultationService(t)

	result, err := svc.RunConsultation(context.Background(), &domain.ConsultationRequest{
		CancerType:        domain.LUNG_NSCLC,
		Stage:             "IV",
		ProposedTreatment: "UnlistedDrugX",
	})
	require.NoError(t, err)
	require.NoError(t, result.Validate())

	assert.Equal(t, domain.NOT_ALIGNED, result.Alignment)
	assert.True(t, result.Unrecognized)
	assert.True(t, result.RequiresReview)
	assert.Empty(t, result.Risks)
	assert.False(t, result.CostAvailable)
	assert.Zero(t, result.CostEstimate.INR.Low)
	assert.Contains(t, result.PlainLanguageSummary, "no data")
	assert.NotEmpty(t, result.MatchedGuidelineTreatments)
}

func TestRunConsultationNotAlignedWithAlternatives(t *testing.T) {
	svc := newTestConsultationService(t)

	result, err := svc.RunConsultation(context.Background(), &domain.ConsultationRequest{
		CancerType:        domain.PROSTATE,
		Stage:             "LowRisk",
		ProposedTreatment: "hormone therapy",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.NOT_ALIGNED, result.Alignment)
	assert.False(t, result.Unrecognized)
	assert.Equal(t, "Hormonal Therapy", result.NormalizedTreatment)
	assert.Equal(t, []string{"Active Surveillance", "Radiation Therapy"}, result.Alternatives)
	assert.NotEmpty(t, result.Risks)
}

func TestRunConsultationUnknownCombination(t *testing.T) {
	svc := newTestConsultationService(t)

	_, err := svc.RunConsultation(context.Background(), &domain.ConsultationRequest{
		CancerType:        domain.COLORECTAL,
		Stage:             "VII",
		ProposedTreatment: "Chemotherapy",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownCombination)
}

func TestRunConsultationInvalidInput(t *testing.T) {
	svc := newTestConsultationService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  *domain.ConsultationRequest
	}{
		{"empty treatment", &domain.ConsultationRequest{
			CancerType: domain.BREAST, Stage: "II", ProposedTreatment: "",
		}},
		{"gibberish treatment", &domain.ConsultationRequest{
			CancerType: domain.BREAST, Stage: "II", ProposedTreatment: "asdfghjkl",
		}},
		{"unsupported cancer type", &domain.ConsultationRequest{
			CancerType: "PANCREATIC", Stage: "II", ProposedTreatment: "Chemotherapy",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RunConsultation(ctx, tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestRunConsultationIdempotent(t *testing.T) {
	svc := newTestConsultationService(t)
	req := &domain.ConsultationRequest{
		CancerType:        domain.COLORECTAL,
		Stage:             "III",
		ProposedTreatment: "Surgery",
	}

	first, err := svc.RunConsultation(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.RunConsultation(context.Background(), req)
	require.NoError(t, err)

	// Identity fields differ per call; every judgment field must not.
	first.ConsultationID, second.ConsultationID = "", ""
	first.CreatedAt = second.CreatedAt
	assert.Equal(t, first, second)
}

func TestRunConsultationCancelledContext(t *testing.T) {
	svc := newTestConsultationService(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.RunConsultation(ctx, &domain.ConsultationRequest{
		CancerType:        domain.BREAST,
		Stage:             "II",
		ProposedTreatment: "Chemotherapy",
	})
	assert.ErrorIs(t, err, context.Canceled)
}
