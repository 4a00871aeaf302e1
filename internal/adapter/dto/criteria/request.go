package criteria

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/johnquangdev/qa-review/internal/domain/entities"
)

// LegacyWeightsRequest holds the four domain weights of a legacy template
type LegacyWeightsRequest struct {
	CustomerService     int `json:"customer_service" validate:"gte=0,lte=100"`
	ProductKnowledge    int `json:"product_knowledge" validate:"gte=0,lte=100"`
	CommunicationSkills int `json:"communication_skills" validate:"gte=0,lte=100"`
	ComplianceAdherence int `json:"compliance_adherence" validate:"gte=0,lte=100"`
}

// ScaleLabelRequest names a point on a scale metric
type ScaleLabelRequest struct {
	Value float64 `json:"value" validate:"finite"`
	Label string  `json:"label" validate:"required,max=100"`
}

// ChecklistItemRequest is one checklist entry
type ChecklistItemRequest struct {
	ID   string `json:"id" validate:"required,max=64"`
	Text string `json:"text" validate:"required,max=500"`
}

// ChecklistSectionRequest groups checklist entries
type ChecklistSectionRequest struct {
	ID    string                 `json:"id" validate:"required,max=64"`
	Title string                 `json:"title" validate:"max=255"`
	Items []ChecklistItemRequest `json:"items" validate:"dive"`
}

// MetricRequest represents the request to create or update a metric
type MetricRequest struct {
	Name        string              `json:"name" validate:"required,min=1,max=255"`
	Description string              `json:"description,omitempty" validate:"max=2000"`
	Weight      float64             `json:"weight" validate:"finite,gte=0"`
	Type        string              `json:"type" validate:"required"`
	ScaleMin    *float64            `json:"scale_min,omitempty" validate:"omitempty,finite"`
	ScaleMax    *float64            `json:"scale_max,omitempty" validate:"omitempty,finite"`
	ScaleLabels []ScaleLabelRequest `json:"scale_labels,omitempty" validate:"dive"`
	Position    int                 `json:"position" validate:"gte=0"`
}

// CategoryRequest represents the request to create or update a category
type CategoryRequest struct {
	Name        string          `json:"name" validate:"required,min=1,max=255"`
	Description string          `json:"description,omitempty" validate:"max=2000"`
	Weight      float64         `json:"weight" validate:"finite,gte=0"`
	Position    int             `json:"position" validate:"gte=0"`
	Metrics     []MetricRequest `json:"metrics,omitempty" validate:"dive"`
}

// CriteriaRequest represents the request to create or update an evaluation template
type CriteriaRequest struct {
	Name              string                    `json:"name" validate:"required,min=1,max=255"`
	Description       string                    `json:"description,omitempty" validate:"max=2000"`
	TeamID            *uuid.UUID                `json:"team_id,omitempty"`
	IsPublic          bool                      `json:"is_public"`
	Weights           LegacyWeightsRequest      `json:"weights"`
	RequiredPhrases   []string                  `json:"required_phrases,omitempty" validate:"dive,required,max=255"`
	ProhibitedPhrases []string                  `json:"prohibited_phrases,omitempty" validate:"dive,required,max=255"`
	ChecklistItems    []ChecklistSectionRequest `json:"checklist_items,omitempty" validate:"dive"`
	Categories        []CategoryRequest         `json:"categories,omitempty" validate:"dive"`
}

// ListCriteriaRequest represents query parameters for listing templates
type ListCriteriaRequest struct {
	Search   string `query:"search"`
	Page     int    `query:"page" validate:"gte=0"`
	PageSize int    `query:"page_size" validate:"gte=0,lte=100"`
}

// MetricResultRequest answers one metric. Value is a bool, a number or a string
// depending on the metric type.
type MetricResultRequest struct {
	MetricID uuid.UUID       `json:"metric_id" validate:"required"`
	Value    json.RawMessage `json:"value"`
}

// DomainScoresRequest holds the four legacy domain scores
type DomainScoresRequest struct {
	CustomerService     float64 `json:"customer_service" validate:"finite"`
	ProductKnowledge    float64 `json:"product_knowledge" validate:"finite"`
	CommunicationSkills float64 `json:"communication_skills" validate:"finite"`
	ComplianceAdherence float64 `json:"compliance_adherence" validate:"finite"`
}

// ScoreRequest represents the request to compute a score
type ScoreRequest struct {
	Results      []MetricResultRequest `json:"results,omitempty" validate:"dive"`
	DomainScores *DomainScoresRequest  `json:"domain_scores,omitempty"`
}

// SubmitEvaluationRequest represents the request to store an evaluation of a recording
type SubmitEvaluationRequest struct {
	ScoreRequest
	CriteriaID *uuid.UUID `json:"criteria_id,omitempty"`
	Comment    string     `json:"comment,omitempty" validate:"max=5000"`
}

// ToEntity converts the legacy weights
func (w LegacyWeightsRequest) ToEntity() entities.LegacyWeights {
	return entities.LegacyWeights{
		CustomerService:     w.CustomerService,
		ProductKnowledge:    w.ProductKnowledge,
		CommunicationSkills: w.CommunicationSkills,
		ComplianceAdherence: w.ComplianceAdherence,
	}
}
