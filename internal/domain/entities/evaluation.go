package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ScoringMethod identifies which aggregation produced an overall score
type ScoringMethod string

const (
	ScoringMethodCategory ScoringMethod = "CATEGORY"
	ScoringMethodLegacy   ScoringMethod = "LEGACY"
)

// MetricResult is the reviewer's answer for one metric
type MetricResult struct {
	MetricID uuid.UUID `json:"metric_id"`
	Value    any       `json:"value"`
}

// CategoryScore is the aggregated score of one category, nil when it had nothing to score
type CategoryScore struct {
	CategoryID uuid.UUID `json:"category_id"`
	Score      *float64  `json:"score"`
}

// DomainScores are the legacy four-domain scores, each 0..100
type DomainScores struct {
	CustomerService     float64 `json:"customer_service"`
	ProductKnowledge    float64 `json:"product_knowledge"`
	CommunicationSkills float64 `json:"communication_skills"`
	ComplianceAdherence float64 `json:"compliance_adherence"`
}

// Values returns the scores in the same order as LegacyWeights.Values
func (d DomainScores) Values() []float64 {
	return []float64{d.CustomerService, d.ProductKnowledge, d.CommunicationSkills, d.ComplianceAdherence}
}

// Evaluation is a submitted review of a recording against a criteria template
type Evaluation struct {
	ID             uuid.UUID       `json:"id" gorm:"type:uuid;primary_key"`
	RecordingID    uuid.UUID       `json:"recording_id" gorm:"type:uuid;not null;index"`
	CriteriaID     uuid.UUID       `json:"criteria_id" gorm:"type:uuid;not null;index"`
	ReviewerID     uuid.UUID       `json:"reviewer_id" gorm:"type:uuid;not null"`
	Method         ScoringMethod   `json:"method" gorm:"type:varchar(20);not null"`
	OverallScore   *float64        `json:"overall_score"`
	Results        []MetricResult  `json:"results,omitempty" gorm:"type:jsonb;serializer:json"`
	CategoryScores []CategoryScore `json:"category_scores,omitempty" gorm:"type:jsonb;serializer:json"`
	DomainScores   *DomainScores   `json:"domain_scores,omitempty" gorm:"type:jsonb;serializer:json"`
	Comment        string          `json:"comment,omitempty" gorm:"type:text"`
	CreatedAt      time.Time       `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for GORM
func (Evaluation) TableName() string {
	return "evaluations"
}

// BeforeCreate assigns an id when the caller did not
func (e *Evaluation) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
