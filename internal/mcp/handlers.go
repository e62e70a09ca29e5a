package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/oncoguide-server/internal/domain"
	"github.com/oncoguide-server/internal/history"
	"github.com/oncoguide-server/internal/knowledge"
)

// CheckTreatmentParams defines parameters for the check_treatment tool
type CheckTreatmentParams struct {
	CancerType        string   `json:"cancer_type"`
	Stage             string   `json:"stage"`
	ProposedTreatment string   `json:"proposed_treatment"`
	Symptoms          []string `json:"symptoms,omitempty"`
	UserID            string   `json:"user_id,omitempty"`
}

// ListGuidelinesParams defines parameters for the list_guidelines tool
type ListGuidelinesParams struct {
	CancerType string `json:"cancer_type,omitempty"`
}

// ListGuidelinesResult defines the result structure for list_guidelines
type ListGuidelinesResult struct {
	DatasetVersion string             `json:"dataset_version"`
	Combinations   []GuidelineListing `json:"combinations"`
}

// GuidelineListing is one curated combination in a list_guidelines result
type GuidelineListing struct {
	CancerType            string   `json:"cancer_type"`
	CancerDisplayName     string   `json:"cancer_display_name"`
	Stage                 string   `json:"stage"`
	StageDisplay          string   `json:"stage_display"`
	RecommendedTreatments []string `json:"recommended_treatments"`
	RequiredBiomarkers    []string `json:"required_biomarkers"`
	GuidelineSource       string   `json:"guideline_source"`
	EvidenceLevel         string   `json:"evidence_level"`
}

// GetHistoryParams defines parameters for the get_consultation_history tool
type GetHistoryParams struct {
	UserID string `json:"user_id,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// GetHistoryResult defines the result structure for get_consultation_history
type GetHistoryResult struct {
	Total         int64             `json:"total"`
	Consultations []*history.Record `json:"consultations"`
}

// handleCheckTreatment handles the check_treatment tool invocation
func (s *Server) handleCheckTreatment(ctx context.Context, req *mcp.CallToolRequest, params CheckTreatmentParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "check_treatment").Info("Tool invoked")

	if params.CancerType == "" {
		return s.createErrorResult("Missing required parameter", errors.New("cancer_type is required")), nil, nil
	}
	if params.Stage == "" {
		return s.createErrorResult("Missing required parameter", errors.New("stage is required")), nil, nil
	}
	if params.ProposedTreatment == "" {
		return s.createErrorResult("Missing required parameter", errors.New("proposed_treatment is required")), nil, nil
	}

	cancerType, err := domain.ParseCancerType(params.CancerType)
	if err != nil {
		supported := make([]string, 0, len(domain.AllCancerTypes()))
		for _, ct := range domain.AllCancerTypes() {
			supported = append(supported, ct.String())
		}
		return s.createErrorResult(
			fmt.Sprintf("Unsupported cancer type %q. Supported types: %s",
				params.CancerType, strings.Join(supported, ", ")),
			err), nil, nil
	}

	result, err := s.consultation.RunConsultation(ctx, &domain.ConsultationRequest{
		UserID:            params.UserID,
		CancerType:        cancerType,
		Stage:             params.Stage,
		ProposedTreatment: params.ProposedTreatment,
		Symptoms:          params.Symptoms,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			return s.createErrorResult("Invalid consultation input", err), nil, nil
		case errors.Is(err, domain.ErrUnknownCombination):
			return s.createErrorResult(
				"This cancer type and stage combination is not in the current guideline dataset", err), nil, nil
		default:
			return nil, nil, fmt.Errorf("running consultation: %w", err)
		}
	}

	if err := s.store.Save(ctx, history.NewRecord(params.UserID, result)); err != nil {
		s.logger.WithError(err).WithField("consultation_id", result.ConsultationID).
			Error("Failed to persist consultation")
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: result.PlainLanguageSummary},
		},
	}, result, nil
}

// handleListGuidelines handles the list_guidelines tool invocation
func (s *Server) handleListGuidelines(ctx context.Context, req *mcp.CallToolRequest, params ListGuidelinesParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "list_guidelines").Info("Tool invoked")

	var filter domain.CancerType
	if params.CancerType != "" {
		parsed, err := domain.ParseCancerType(params.CancerType)
		if err != nil {
			return s.createErrorResult(
				fmt.Sprintf("Unsupported cancer type %q", params.CancerType), err), nil, nil
		}
		filter = parsed
	}

	result := ListGuidelinesResult{
		DatasetVersion: s.kb.Version(),
		Combinations:   []GuidelineListing{},
	}
	for _, entry := range s.kb.Entries() {
		if filter != "" && entry.CancerType != filter {
			continue
		}
		result.Combinations = append(result.Combinations, GuidelineListing{
			CancerType:            entry.CancerType.String(),
			CancerDisplayName:     entry.CancerType.DisplayName(),
			Stage:                 entry.Stage,
			StageDisplay:          knowledge.FormatStage(entry.CancerType, entry.Stage),
			RecommendedTreatments: entry.RecommendedTreatments,
			RequiredBiomarkers:    entry.RequiredBiomarkers,
			GuidelineSource:       entry.GuidelineSource,
			EvidenceLevel:         entry.EvidenceLevel,
		})
	}

	var text strings.Builder
	fmt.Fprintf(&text, "Guideline dataset %s covers %d combinations:\n",
		result.DatasetVersion, len(result.Combinations))
	for _, c := range result.Combinations {
		fmt.Fprintf(&text, "- %s, %s: first-line %s (%s)\n",
			c.CancerDisplayName, c.StageDisplay, c.RecommendedTreatments[0], c.GuidelineSource)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text.String()},
		},
	}, result, nil
}

// handleGetHistory handles the get_consultation_history tool invocation
func (s *Server) handleGetHistory(ctx context.Context, req *mcp.CallToolRequest, params GetHistoryParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "get_consultation_history").Info("Tool invoked")

	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	records, err := s.store.List(ctx, params.UserID, limit, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("listing consultations: %w", err)
	}
	total, err := s.store.Count(ctx, params.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("counting consultations: %w", err)
	}
	if records == nil {
		records = []*history.Record{}
	}

	result := GetHistoryResult{
		Total:         total,
		Consultations: records,
	}

	var text strings.Builder
	fmt.Fprintf(&text, "%d consultations on record", total)
	if params.UserID != "" {
		fmt.Fprintf(&text, " for user %s", params.UserID)
	}
	text.WriteString("\n")
	for _, r := range records {
		fmt.Fprintf(&text, "- %s: %s %s, proposed %s, verdict %s\n",
			r.CreatedAt.Format("2006-01-02"), r.CancerType, r.Stage,
			r.ProposedTreatment, r.Alignment)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text.String()},
		},
	}, result, nil
}

// createErrorResult creates a tool error result with a readable message.
func (s *Server) createErrorResult(message string, err error) *mcp.CallToolResult {
	s.logger.WithError(err).Warn(message)
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("%s: %v", message, err)},
		},
	}
}
