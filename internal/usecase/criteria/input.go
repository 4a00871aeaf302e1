package criteria

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/johnquangdev/qa-review/errors"
	"github.com/johnquangdev/qa-review/internal/domain/entities"
)

// MetricInput represents input for creating or updating a metric
type MetricInput struct {
	Name        string
	Description string
	Weight      float64
	Type        entities.MetricType
	ScaleMin    *float64
	ScaleMax    *float64
	ScaleLabels []entities.ScaleLabel
	Position    int
}

// CategoryInput represents input for creating or updating a category.
// Metrics are only honoured on create.
type CategoryInput struct {
	Name        string
	Description string
	Weight      float64
	Position    int
	Metrics     []MetricInput
}

// CriteriaInput represents input for creating or updating a criteria.
// Categories are only honoured on create.
type CriteriaInput struct {
	Name              string
	Description       string
	TeamID            *uuid.UUID
	IsPublic          bool
	Weights           entities.LegacyWeights
	RequiredPhrases   []string
	ProhibitedPhrases []string
	ChecklistItems    []entities.ChecklistSection
	Categories        []CategoryInput
}

// ValidateWeights checks that each legacy weight is within 0..100 and that
// the four of them sum to exactly 100
func ValidateWeights(w entities.LegacyWeights) error {
	for _, v := range w.Values() {
		if v < 0 || v > 100 {
			return apperrors.ErrInvalidWeights(w.Sum())
		}
	}
	if w.Sum() != 100 {
		return apperrors.ErrInvalidWeights(w.Sum())
	}
	return nil
}

// ValidateChecklist checks that sections and items carry ids and text, and
// that ids are unique
func ValidateChecklist(sections []entities.ChecklistSection) error {
	seen := make(map[string]struct{})
	for i, section := range sections {
		if strings.TrimSpace(section.ID) == "" {
			return apperrors.ErrInvalidChecklist(fmt.Sprintf("checklist section %d has no id", i))
		}
		if strings.TrimSpace(section.Title) == "" {
			return apperrors.ErrInvalidChecklist(fmt.Sprintf("checklist section %q has no title", section.ID))
		}
		if _, dup := seen[section.ID]; dup {
			return apperrors.ErrInvalidChecklist(fmt.Sprintf("duplicate checklist id %q", section.ID))
		}
		seen[section.ID] = struct{}{}

		for j, item := range section.Items {
			if strings.TrimSpace(item.ID) == "" {
				return apperrors.ErrInvalidChecklist(fmt.Sprintf("item %d of section %q has no id", j, section.ID))
			}
			if strings.TrimSpace(item.Text) == "" {
				return apperrors.ErrInvalidChecklist(fmt.Sprintf("checklist item %q has no text", item.ID))
			}
			if _, dup := seen[item.ID]; dup {
				return apperrors.ErrInvalidChecklist(fmt.Sprintf("duplicate checklist id %q", item.ID))
			}
			seen[item.ID] = struct{}{}
		}
	}
	return nil
}

// ValidateMetric checks the type and, for scale metrics, the bounds and labels
func ValidateMetric(in MetricInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return apperrors.ErrInvalidArgument("metric name is required")
	}
	if err := validateWeight("metric", in.Weight); err != nil {
		return err
	}
	if !in.Type.IsValid() {
		return apperrors.ErrInvalidMetricType(string(in.Type))
	}

	if in.Type != entities.MetricTypeScale {
		if in.ScaleMin != nil || in.ScaleMax != nil || len(in.ScaleLabels) > 0 {
			return apperrors.ErrInvalidScale(fmt.Sprintf("%s metrics cannot have scale bounds or labels", in.Type))
		}
		return nil
	}

	if in.ScaleMin == nil || in.ScaleMax == nil {
		return apperrors.ErrInvalidScale("scale metrics require scale_min and scale_max")
	}
	lo, hi := *in.ScaleMin, *in.ScaleMax
	if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return apperrors.ErrInvalidScale("scale bounds must be finite")
	}
	if lo >= hi {
		return apperrors.ErrInvalidScale(fmt.Sprintf("scale_min (%g) must be less than scale_max (%g)", lo, hi))
	}
	for _, label := range in.ScaleLabels {
		if label.Value < lo || label.Value > hi {
			return apperrors.ErrInvalidScale(fmt.Sprintf("scale label %q value %g is outside [%g, %g]", label.Label, label.Value, lo, hi))
		}
	}
	return nil
}

// ValidateCategory checks a category and every metric it carries
func ValidateCategory(in CategoryInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return apperrors.ErrInvalidArgument("category name is required")
	}
	if err := validateWeight("category", in.Weight); err != nil {
		return err
	}
	names := make(map[string]struct{}, len(in.Metrics))
	for _, m := range in.Metrics {
		if err := ValidateMetric(m); err != nil {
			return err
		}
		key := normalizeName(m.Name)
		if _, dup := names[key]; dup {
			return apperrors.ErrDuplicateName("metric", m.Name)
		}
		names[key] = struct{}{}
	}
	return nil
}

// Validate checks every invariant of a criteria and its nested tree
func (in CriteriaInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return apperrors.ErrInvalidArgument("criteria name is required")
	}
	if err := ValidateWeights(in.Weights); err != nil {
		return err
	}
	if err := ValidateChecklist(in.ChecklistItems); err != nil {
		return err
	}
	names := make(map[string]struct{}, len(in.Categories))
	for _, c := range in.Categories {
		if err := ValidateCategory(c); err != nil {
			return err
		}
		key := normalizeName(c.Name)
		if _, dup := names[key]; dup {
			return apperrors.ErrDuplicateName("category", c.Name)
		}
		names[key] = struct{}{}
	}
	return nil
}

func validateWeight(resource string, w float64) error {
	if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		return apperrors.ErrInvalidArgument(fmt.Sprintf("%s weight must be a non-negative number", resource))
	}
	return nil
}

func normalizeName(name string) string {
	return strings.TrimSpace(name)
}

func (in MetricInput) toEntity(categoryID uuid.UUID) entities.Metric {
	m := entities.Metric{
		CategoryID:  categoryID,
		Name:        normalizeName(in.Name),
		Description: in.Description,
		Weight:      in.Weight,
		Type:        in.Type,
		Position:    in.Position,
	}
	if in.Type == entities.MetricTypeScale {
		m.ScaleMin = in.ScaleMin
		m.ScaleMax = in.ScaleMax
		m.ScaleLabels = in.ScaleLabels
	}
	return m
}

func (in CategoryInput) toEntity(criteriaID uuid.UUID) entities.Category {
	c := entities.Category{
		CriteriaID:  criteriaID,
		Name:        normalizeName(in.Name),
		Description: in.Description,
		Weight:      in.Weight,
		Position:    in.Position,
	}
	for i, m := range in.Metrics {
		metric := m.toEntity(uuid.Nil)
		if metric.Position == 0 {
			metric.Position = i
		}
		c.Metrics = append(c.Metrics, metric)
	}
	return c
}

func (in CriteriaInput) applyTo(c *entities.Criteria) {
	c.Name = normalizeName(in.Name)
	c.Description = in.Description
	c.TeamID = in.TeamID
	c.IsPublic = in.IsPublic
	c.Weights = in.Weights
	c.RequiredPhrases = nonNilStrings(in.RequiredPhrases)
	c.ProhibitedPhrases = nonNilStrings(in.ProhibitedPhrases)
	c.ChecklistItems = in.ChecklistItems
	if c.ChecklistItems == nil {
		c.ChecklistItems = []entities.ChecklistSection{}
	}
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
