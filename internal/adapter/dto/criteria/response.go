package criteria

import (
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/qa-review/internal/domain/entities"
)

// MetricResponse represents a metric in API responses
type MetricResponse struct {
	ID          string                `json:"id"`
	CategoryID  string                `json:"category_id"`
	Name        string                `json:"name"`
	Description string                `json:"description,omitempty"`
	Weight      float64               `json:"weight"`
	Type        string                `json:"type"`
	ScaleMin    *float64              `json:"scale_min,omitempty"`
	ScaleMax    *float64              `json:"scale_max,omitempty"`
	ScaleLabels []entities.ScaleLabel `json:"scale_labels,omitempty"`
	Position    int                   `json:"position"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// CategoryResponse represents a category in API responses
type CategoryResponse struct {
	ID          string           `json:"id"`
	CriteriaID  string           `json:"criteria_id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Weight      float64          `json:"weight"`
	Position    int              `json:"position"`
	Metrics     []MetricResponse `json:"metrics"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// CriteriaResponse represents an evaluation template in API responses
type CriteriaResponse struct {
	ID                string                      `json:"id"`
	Name              string                      `json:"name"`
	Description       string                      `json:"description,omitempty"`
	CreatedBy         string                      `json:"created_by"`
	TeamID            *uuid.UUID                  `json:"team_id,omitempty"`
	IsPublic          bool                        `json:"is_public"`
	ScoringMethod     string                      `json:"scoring_method"`
	Weights           entities.LegacyWeights      `json:"weights"`
	RequiredPhrases   []string                    `json:"required_phrases"`
	ProhibitedPhrases []string                    `json:"prohibited_phrases"`
	ChecklistItems    []entities.ChecklistSection `json:"checklist_items"`
	Categories        []CategoryResponse          `json:"categories"`
	CreatedAt         time.Time                   `json:"created_at"`
	UpdatedAt         time.Time                   `json:"updated_at"`
}

// EvaluationResponse represents a stored evaluation
type EvaluationResponse struct {
	ID             string                   `json:"id"`
	RecordingID    string                   `json:"recording_id"`
	CriteriaID     string                   `json:"criteria_id"`
	ReviewerID     string                   `json:"reviewer_id"`
	Method         string                   `json:"method"`
	OverallScore   *float64                 `json:"overall_score"`
	Results        []entities.MetricResult  `json:"results,omitempty"`
	CategoryScores []entities.CategoryScore `json:"category_scores,omitempty"`
	DomainScores   *entities.DomainScores   `json:"domain_scores,omitempty"`
	Comment        string                   `json:"comment,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
}
