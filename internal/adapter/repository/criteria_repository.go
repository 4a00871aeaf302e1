package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/johnquangdev/qa-review/internal/domain/entities"
	"github.com/johnquangdev/qa-review/internal/domain/repositories"
)

// criteriaRepository implements the CriteriaRepository interface
type criteriaRepository struct {
	db *gorm.DB
}

// NewCriteriaRepository creates a new criteria repository
func NewCriteriaRepository(db *gorm.DB) repositories.CriteriaRepository {
	return &criteriaRepository{db: db}
}

// Create creates a criteria with its nested categories and metrics
func (r *criteriaRepository) Create(ctx context.Context, criteria *entities.Criteria) error {
	if criteria == nil {
		return errors.New("criteria cannot be nil")
	}
	return constraintError(r.db.WithContext(ctx).Create(criteria).Error)
}

// FindByID retrieves a criteria by ID
func (r *criteriaRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.Criteria, error) {
	var criteria entities.Criteria
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&criteria).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &criteria, nil
}

// FindTree retrieves a criteria with its categories and metrics
func (r *criteriaRepository) FindTree(ctx context.Context, id uuid.UUID) (*entities.Criteria, error) {
	var criteria entities.Criteria
	err := r.db.WithContext(ctx).
		Preload("Categories", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, created_at ASC")
		}).
		Preload("Categories.Metrics", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, created_at ASC")
		}).
		Where("id = ?", id).
		First(&criteria).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &criteria, nil
}

// Update updates a criteria's own columns
func (r *criteriaRepository) Update(ctx context.Context, criteria *entities.Criteria) error {
	if criteria == nil {
		return errors.New("criteria cannot be nil")
	}
	return constraintError(r.db.WithContext(ctx).Omit(clause.Associations).Save(criteria).Error)
}

// Delete removes a criteria and everything below it
func (r *criteriaRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	categoryIDs := db.Model(&entities.Category{}).Select("id").Where("criteria_id = ?", id)
	if err := db.Where("category_id IN (?)", categoryIDs).Delete(&entities.Metric{}).Error; err != nil {
		return fmt.Errorf("deleting metrics of criteria %s: %w", id, err)
	}
	if err := db.Where("criteria_id = ?", id).Delete(&entities.Category{}).Error; err != nil {
		return fmt.Errorf("deleting categories of criteria %s: %w", id, err)
	}
	if err := db.Where("id = ?", id).Delete(&entities.Criteria{}).Error; err != nil {
		return fmt.Errorf("deleting criteria %s: %w", id, constraintError(err))
	}
	return nil
}

// List retrieves the criteria a subject may see, newest first
func (r *criteriaRepository) List(ctx context.Context, filters repositories.CriteriaFilters) ([]*entities.Criteria, int64, error) {
	var list []*entities.Criteria
	var total int64

	query := r.db.WithContext(ctx).Model(&entities.Criteria{})

	if !filters.Subject.IsAdmin() {
		visible := r.db.Where("created_by = ?", filters.Subject.UserID).Or("is_public = ?", true)
		if len(filters.Subject.TeamIDs) > 0 {
			visible = visible.Or("team_id IN ?", filters.Subject.TeamIDs)
		}
		query = query.Where(visible)
	}
	if filters.Search != "" {
		searchPattern := fmt.Sprintf("%%%s%%", filters.Search)
		query = query.Where("LOWER(name) LIKE LOWER(?)", searchPattern)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("created_at DESC")
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	err := query.Find(&list).Error
	return list, total, err
}

// CreateCategory creates a category and its metrics
func (r *criteriaRepository) CreateCategory(ctx context.Context, category *entities.Category) error {
	if category == nil {
		return errors.New("category cannot be nil")
	}
	return constraintError(r.db.WithContext(ctx).Create(category).Error)
}

// FindCategory retrieves a category with its metrics
func (r *criteriaRepository) FindCategory(ctx context.Context, id uuid.UUID) (*entities.Category, error) {
	var category entities.Category
	err := r.db.WithContext(ctx).
		Preload("Metrics", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, created_at ASC")
		}).
		Where("id = ?", id).
		First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &category, nil
}

// UpdateCategory updates a category's own columns
func (r *criteriaRepository) UpdateCategory(ctx context.Context, category *entities.Category) error {
	if category == nil {
		return errors.New("category cannot be nil")
	}
	return constraintError(r.db.WithContext(ctx).Omit(clause.Associations).Save(category).Error)
}

// DeleteCategory removes a category and its metrics
func (r *criteriaRepository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("category_id = ?", id).Delete(&entities.Metric{}).Error; err != nil {
		return fmt.Errorf("deleting metrics of category %s: %w", id, err)
	}
	return db.Where("id = ?", id).Delete(&entities.Category{}).Error
}

// CategoryNameExists checks if another category of the criteria has the name
func (r *criteriaRepository) CategoryNameExists(ctx context.Context, criteriaID uuid.UUID, name string, excludeID *uuid.UUID) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).
		Model(&entities.Category{}).
		Where("criteria_id = ? AND name = ?", criteriaID, name)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountCategories counts the categories of a criteria
func (r *criteriaRepository) CountCategories(ctx context.Context, criteriaID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entities.Category{}).
		Where("criteria_id = ?", criteriaID).
		Count(&count).Error
	return count, err
}

// CreateMetric creates a metric
func (r *criteriaRepository) CreateMetric(ctx context.Context, metric *entities.Metric) error {
	if metric == nil {
		return errors.New("metric cannot be nil")
	}
	return constraintError(r.db.WithContext(ctx).Create(metric).Error)
}

// FindMetric retrieves a metric by ID
func (r *criteriaRepository) FindMetric(ctx context.Context, id uuid.UUID) (*entities.Metric, error) {
	var metric entities.Metric
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&metric).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &metric, nil
}

// UpdateMetric updates a metric
func (r *criteriaRepository) UpdateMetric(ctx context.Context, metric *entities.Metric) error {
	if metric == nil {
		return errors.New("metric cannot be nil")
	}
	return constraintError(r.db.WithContext(ctx).Save(metric).Error)
}

// DeleteMetric deletes a metric
func (r *criteriaRepository) DeleteMetric(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entities.Metric{}).Error
}

// MetricNameExists checks if another metric of the category has the name
func (r *criteriaRepository) MetricNameExists(ctx context.Context, categoryID uuid.UUID, name string, excludeID *uuid.UUID) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).
		Model(&entities.Metric{}).
		Where("category_id = ? AND name = ?", categoryID, name)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountMetrics counts the metrics of a category
func (r *criteriaRepository) CountMetrics(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entities.Metric{}).
		Where("category_id = ?", categoryID).
		Count(&count).Error
	return count, err
}
