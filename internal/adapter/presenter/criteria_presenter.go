package presenter

import (
	dto "github.com/johnquangdev/qa-review/internal/adapter/dto/criteria"
	"github.com/johnquangdev/qa-review/internal/domain/entities"
	"github.com/johnquangdev/qa-review/internal/usecase/scoring"
)

// ToCriteriaResponse converts a Criteria tree to CriteriaResponse DTO
func ToCriteriaResponse(c *entities.Criteria) *dto.CriteriaResponse {
	if c == nil {
		return nil
	}

	response := &dto.CriteriaResponse{
		ID:                c.ID.String(),
		Name:              c.Name,
		Description:       c.Description,
		CreatedBy:         c.CreatedBy.String(),
		TeamID:            c.TeamID,
		IsPublic:          c.IsPublic,
		ScoringMethod:     string(scoring.MethodFor(c)),
		Weights:           c.Weights,
		RequiredPhrases:   nonNil(c.RequiredPhrases),
		ProhibitedPhrases: nonNil(c.ProhibitedPhrases),
		ChecklistItems:    c.ChecklistItems,
		Categories:        make([]dto.CategoryResponse, 0, len(c.Categories)),
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
	if response.ChecklistItems == nil {
		response.ChecklistItems = []entities.ChecklistSection{}
	}
	for i := range c.Categories {
		response.Categories = append(response.Categories, *ToCategoryResponse(&c.Categories[i]))
	}
	return response
}

// ToCriteriaListResponse converts a page of templates
func ToCriteriaListResponse(list []*entities.Criteria) []*dto.CriteriaResponse {
	out := make([]*dto.CriteriaResponse, 0, len(list))
	for _, c := range list {
		out = append(out, ToCriteriaResponse(c))
	}
	return out
}

// ToCategoryResponse converts a Category to CategoryResponse DTO
func ToCategoryResponse(c *entities.Category) *dto.CategoryResponse {
	if c == nil {
		return nil
	}
	response := &dto.CategoryResponse{
		ID:          c.ID.String(),
		CriteriaID:  c.CriteriaID.String(),
		Name:        c.Name,
		Description: c.Description,
		Weight:      c.Weight,
		Position:    c.Position,
		Metrics:     make([]dto.MetricResponse, 0, len(c.Metrics)),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	for i := range c.Metrics {
		response.Metrics = append(response.Metrics, *ToMetricResponse(&c.Metrics[i]))
	}
	return response
}

// ToMetricResponse converts a Metric to MetricResponse DTO
func ToMetricResponse(m *entities.Metric) *dto.MetricResponse {
	if m == nil {
		return nil
	}
	return &dto.MetricResponse{
		ID:          m.ID.String(),
		CategoryID:  m.CategoryID.String(),
		Name:        m.Name,
		Description: m.Description,
		Weight:      m.Weight,
		Type:        string(m.Type),
		ScaleMin:    m.ScaleMin,
		ScaleMax:    m.ScaleMax,
		ScaleLabels: m.ScaleLabels,
		Position:    m.Position,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// ToEvaluationResponse converts an Evaluation to EvaluationResponse DTO
func ToEvaluationResponse(e *entities.Evaluation) *dto.EvaluationResponse {
	if e == nil {
		return nil
	}
	return &dto.EvaluationResponse{
		ID:             e.ID.String(),
		RecordingID:    e.RecordingID.String(),
		CriteriaID:     e.CriteriaID.String(),
		ReviewerID:     e.ReviewerID.String(),
		Method:         string(e.Method),
		OverallScore:   e.OverallScore,
		Results:        e.Results,
		CategoryScores: e.CategoryScores,
		DomainScores:   e.DomainScores,
		Comment:        e.Comment,
		CreatedAt:      e.CreatedAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
