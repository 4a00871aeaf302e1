package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LegacyWeights are the four fixed domain weights of a criteria template
type LegacyWeights struct {
	CustomerService     int `json:"customer_service" gorm:"not null;default:25"`
	ProductKnowledge    int `json:"product_knowledge" gorm:"not null;default:25"`
	CommunicationSkills int `json:"communication_skills" gorm:"not null;default:25"`
	ComplianceAdherence int `json:"compliance_adherence" gorm:"not null;default:25"`
}

// Sum returns the total of the four weights
func (w LegacyWeights) Sum() int {
	return w.CustomerService + w.ProductKnowledge + w.CommunicationSkills + w.ComplianceAdherence
}

// Values returns the weights in declaration order
func (w LegacyWeights) Values() []int {
	return []int{w.CustomerService, w.ProductKnowledge, w.CommunicationSkills, w.ComplianceAdherence}
}

// ChecklistItem is one check inside a checklist section
type ChecklistItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ChecklistSection groups checklist items under a title
type ChecklistSection struct {
	ID    string          `json:"id"`
	Title string          `json:"title"`
	Items []ChecklistItem `json:"items"`
}

// Criteria is a weighted evaluation template
type Criteria struct {
	ID                uuid.UUID          `json:"id" gorm:"type:uuid;primary_key"`
	Name              string             `json:"name" gorm:"type:varchar(255);not null"`
	Description       string             `json:"description" gorm:"type:text"`
	CreatedBy         uuid.UUID          `json:"created_by" gorm:"type:uuid;not null;index"`
	TeamID            *uuid.UUID         `json:"team_id,omitempty" gorm:"type:uuid;index"`
	IsPublic          bool               `json:"is_public" gorm:"default:false;not null"`
	Weights           LegacyWeights      `json:"weights" gorm:"embedded;embeddedPrefix:weight_"`
	RequiredPhrases   []string           `json:"required_phrases" gorm:"type:jsonb;serializer:json"`
	ProhibitedPhrases []string           `json:"prohibited_phrases" gorm:"type:jsonb;serializer:json"`
	ChecklistItems    []ChecklistSection `json:"checklist_items" gorm:"type:jsonb;serializer:json"`
	Categories        []Category         `json:"categories,omitempty" gorm:"foreignKey:CriteriaID"`
	CreatedAt         time.Time          `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time          `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Criteria) TableName() string {
	return "criteria"
}

// BeforeCreate assigns an id when the caller did not
func (c *Criteria) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (c *Criteria) OwnerID() uuid.UUID { return c.CreatedBy }
func (c *Criteria) TeamScope() *uuid.UUID { return c.TeamID }
func (c *Criteria) Public() bool { return c.IsPublic }

// HasCategories reports whether the template scores by category
func (c *Criteria) HasCategories() bool {
	return len(c.Categories) > 0
}

// Category groups metrics inside a criteria template
type Category struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	CriteriaID  uuid.UUID `json:"criteria_id" gorm:"type:uuid;not null;uniqueIndex:idx_categories_criteria_name,priority:1"`
	Name        string    `json:"name" gorm:"type:varchar(255);not null;uniqueIndex:idx_categories_criteria_name,priority:2"`
	Description string    `json:"description" gorm:"type:text"`
	Weight      float64   `json:"weight" gorm:"not null;default:0"`
	Position    int       `json:"position" gorm:"not null;default:0"`
	Metrics     []Metric  `json:"metrics,omitempty" gorm:"foreignKey:CategoryID"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Category) TableName() string {
	return "categories"
}

// BeforeCreate assigns an id when the caller did not
func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// MetricType is the value kind a metric records
type MetricType string

const (
	MetricTypeBoolean MetricType = "boolean"
	MetricTypeScale   MetricType = "scale"
	MetricTypeText    MetricType = "text"
)

// IsValid checks if the metric type is known
func (t MetricType) IsValid() bool {
	switch t {
	case MetricTypeBoolean, MetricTypeScale, MetricTypeText:
		return true
	}
	return false
}

// IsNumeric reports whether results of this type contribute to scores
func (t MetricType) IsNumeric() bool {
	return t == MetricTypeBoolean || t == MetricTypeScale
}

// ScaleLabel names one point of a scale metric
type ScaleLabel struct {
	Value float64 `json:"value"`
	Label string  `json:"label"`
}

// Metric is a single scored question inside a category
type Metric struct {
	ID          uuid.UUID    `json:"id" gorm:"type:uuid;primary_key"`
	CategoryID  uuid.UUID    `json:"category_id" gorm:"type:uuid;not null;uniqueIndex:idx_metrics_category_name,priority:1"`
	Name        string       `json:"name" gorm:"type:varchar(255);not null;uniqueIndex:idx_metrics_category_name,priority:2"`
	Description string       `json:"description" gorm:"type:text"`
	Weight      float64      `json:"weight" gorm:"not null;default:0"`
	Type        MetricType   `json:"type" gorm:"type:varchar(20);not null"`
	ScaleMin    *float64     `json:"scale_min,omitempty"`
	ScaleMax    *float64     `json:"scale_max,omitempty"`
	ScaleLabels []ScaleLabel `json:"scale_labels,omitempty" gorm:"type:jsonb;serializer:json"`
	Position    int          `json:"position" gorm:"not null;default:0"`
	CreatedAt   time.Time    `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time    `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Metric) TableName() string {
	return "metrics"
}

// BeforeCreate assigns an id when the caller did not
func (m *Metric) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
