package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/johnquangdev/qa-review/internal/domain/entities"
)

// CriteriaRepository defines the interface for criteria template data access
type CriteriaRepository interface {
	// Create persists a criteria together with its nested categories and metrics
	Create(ctx context.Context, criteria *entities.Criteria) error

	// FindByID retrieves a criteria without its categories
	FindByID(ctx context.Context, id uuid.UUID) (*entities.Criteria, error)

	// FindTree retrieves a criteria with categories and metrics, ordered by position
	FindTree(ctx context.Context, id uuid.UUID) (*entities.Criteria, error)

	// Update saves the criteria's own columns, never its categories
	Update(ctx context.Context, criteria *entities.Criteria) error

	// Delete removes metrics, then categories, then the criteria
	Delete(ctx context.Context, id uuid.UUID) error

	// List retrieves the criteria visible to a subject
	List(ctx context.Context, filters CriteriaFilters) ([]*entities.Criteria, int64, error)

	// CreateCategory persists a category and any metrics it carries
	CreateCategory(ctx context.Context, category *entities.Category) error

	// FindCategory retrieves a category with its metrics
	FindCategory(ctx context.Context, id uuid.UUID) (*entities.Category, error)

	// UpdateCategory saves the category's own columns
	UpdateCategory(ctx context.Context, category *entities.Category) error

	// DeleteCategory removes a category and its metrics
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	// CategoryNameExists checks name uniqueness within a criteria
	CategoryNameExists(ctx context.Context, criteriaID uuid.UUID, name string, excludeID *uuid.UUID) (bool, error)

	// CountCategories returns how many categories a criteria has
	CountCategories(ctx context.Context, criteriaID uuid.UUID) (int64, error)

	// CreateMetric persists a metric
	CreateMetric(ctx context.Context, metric *entities.Metric) error

	// FindMetric retrieves a metric by its ID
	FindMetric(ctx context.Context, id uuid.UUID) (*entities.Metric, error)

	// UpdateMetric saves a metric
	UpdateMetric(ctx context.Context, metric *entities.Metric) error

	// DeleteMetric removes a metric
	DeleteMetric(ctx context.Context, id uuid.UUID) error

	// MetricNameExists checks name uniqueness within a category
	MetricNameExists(ctx context.Context, categoryID uuid.UUID, name string, excludeID *uuid.UUID) (bool, error)

	// CountMetrics returns how many metrics a category has
	CountMetrics(ctx context.Context, categoryID uuid.UUID) (int64, error)
}

// CriteriaFilters represents filter options for listing criteria
type CriteriaFilters struct {
	Subject entities.Subject
	Search  string // Search in name
	Limit   int
	Offset  int
}
