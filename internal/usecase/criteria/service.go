// Package criteria manages evaluation templates: a criteria with its legacy
// domain weights, and the weighted category and metric tree below it.
package criteria

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/johnquangdev/qa-review/errors"
	"github.com/johnquangdev/qa-review/internal/domain/entities"
	"github.com/johnquangdev/qa-review/internal/domain/repositories"
	"github.com/johnquangdev/qa-review/internal/infrastructure/cache"
	"github.com/johnquangdev/qa-review/internal/usecase/access"
	"github.com/johnquangdev/qa-review/internal/usecase/audit"
	"github.com/johnquangdev/qa-review/pkg/metrics"
)

const (
	resourceCriteria = "criteria"
	resourceCategory = "category"
	resourceMetric   = "metric"
)

// Service defines operations on criteria templates
type Service interface {
	CreateCriteria(ctx context.Context, subject entities.Subject, input CriteriaInput) (*entities.Criteria, error)
	UpdateCriteria(ctx context.Context, subject entities.Subject, id uuid.UUID, input CriteriaInput) (*entities.Criteria, error)
	DeleteCriteria(ctx context.Context, subject entities.Subject, id uuid.UUID) error
	GetCriteria(ctx context.Context, subject entities.Subject, id uuid.UUID) (*entities.Criteria, error)
	ListCriteria(ctx context.Context, subject entities.Subject, search string, limit, offset int) ([]*entities.Criteria, int64, error)

	CreateCategory(ctx context.Context, subject entities.Subject, criteriaID uuid.UUID, input CategoryInput) (*entities.Category, error)
	UpdateCategory(ctx context.Context, subject entities.Subject, criteriaID, categoryID uuid.UUID, input CategoryInput) (*entities.Category, error)
	DeleteCategory(ctx context.Context, subject entities.Subject, criteriaID, categoryID uuid.UUID) error

	CreateMetric(ctx context.Context, subject entities.Subject, criteriaID, categoryID uuid.UUID, input MetricInput) (*entities.Metric, error)
	UpdateMetric(ctx context.Context, subject entities.Subject, criteriaID, categoryID, metricID uuid.UUID, input MetricInput) (*entities.Metric, error)
	DeleteMetric(ctx context.Context, subject entities.Subject, criteriaID, categoryID, metricID uuid.UUID) error
}

type criteriaService struct {
	repos    repositories.Repositories
	uow      repositories.UnitOfWork
	store    cache.Store
	cacheTTL time.Duration
	auditor  audit.Sink
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewService constructs a criteria service. store may be nil to disable caching.
func NewService(
	repos repositories.Repositories,
	uow repositories.UnitOfWork,
	store cache.Store,
	cacheTTL time.Duration,
	auditor audit.Sink,
	m *metrics.Metrics,
	logger *zap.Logger,
) Service {
	if auditor == nil {
		auditor = audit.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &criteriaService{
		repos:    repos,
		uow:      uow,
		store:    store,
		cacheTTL: cacheTTL,
		auditor:  auditor,
		metrics:  m,
		logger:   logger,
	}
}

// CreateCriteria validates the whole tree, then persists it in one transaction
func (s *criteriaService) CreateCriteria(ctx context.Context, subject entities.Subject, input CriteriaInput) (*entities.Criteria, error) {
	if !subject.CanManageCriteria() {
		return nil, apperrors.ErrUnauthorized("create criteria")
	}
	if input.TeamID != nil && !subject.IsAdmin() && !subject.IsTeamMember(*input.TeamID) {
		return nil, apperrors.ErrUnauthorized("create criteria for team")
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	criteria := &entities.Criteria{CreatedBy: subject.UserID}
	input.applyTo(criteria)
	for i, c := range input.Categories {
		category := c.toEntity(uuid.Nil)
		if category.Position == 0 {
			category.Position = i
		}
		criteria.Categories = append(criteria.Categories, category)
	}

	err := s.uow.Do(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		return repos.Criteria.Create(ctx, criteria)
	})
	s.metrics.RecordMutation(resourceCriteria, audit.ActionCreate, err)
	if err != nil {
		return nil, s.writeError("failed to create criteria", resourceCriteria, input.Name, err)
	}

	s.logger.Info("criteria created",
		zap.String("criteria_id", criteria.ID.String()),
		zap.String("user_id", subject.UserID.String()),
		zap.Int("categories", len(criteria.Categories)))
	s.audit(ctx, subject, audit.ActionCreate, resourceCriteria, criteria.ID, map[string]interface{}{
		"name":       criteria.Name,
		"categories": len(criteria.Categories),
	})
	return criteria, nil
}

// UpdateCriteria replaces the criteria's own fields. Categories and metrics
// are edited through their own operations.
func (s *criteriaService) UpdateCriteria(ctx context.Context, subject entities.Subject, id uuid.UUID, input CriteriaInput) (*entities.Criteria, error) {
	if len(input.Categories) > 0 {
		return nil, apperrors.ErrInvalidArgument("categories cannot be replaced through a criteria update")
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	criteria, err := s.loadForModify(ctx, subject, id, "update criteria")
	if err != nil {
		return nil, err
	}
	if input.TeamID != nil && !subject.IsAdmin() && !subject.IsTeamMember(*input.TeamID) {
		return nil, apperrors.ErrUnauthorized("move criteria to team")
	}

	input.applyTo(criteria)
	err = s.repos.Criteria.Update(ctx, criteria)
	s.metrics.RecordMutation(resourceCriteria, audit.ActionUpdate, err)
	if err != nil {
		return nil, s.writeError("failed to update criteria", resourceCriteria, criteria.Name, err)
	}
	s.invalidate(ctx, id)
	s.audit(ctx, subject, audit.ActionUpdate, resourceCriteria, id, map[string]interface{}{"name": criteria.Name})

	return s.tree(ctx, id)
}

// DeleteCriteria refuses while recordings reference the criteria, otherwise
// removes metrics, categories and the criteria in one transaction
func (s *criteriaService) DeleteCriteria(ctx context.Context, subject entities.Subject, id uuid.UUID) error {
	if _, err := s.loadForModify(ctx, subject, id, "delete criteria"); err != nil {
		return err
	}

	err := s.uow.Do(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		refs, err := repos.Recordings.CountByCriteriaID(ctx, id)
		if err != nil {
			return err
		}
		if refs > 0 {
			return apperrors.ErrInUse(resourceCriteria, refs)
		}
		return repos.Criteria.Delete(ctx, id)
	})
	s.metrics.RecordMutation(resourceCriteria, audit.ActionDelete, err)
	if err != nil {
		return s.writeError("failed to delete criteria", resourceCriteria, "", err)
	}
	s.invalidate(ctx, id)
	s.audit(ctx, subject, audit.ActionDelete, resourceCriteria, id, nil)
	return nil
}

// GetCriteria returns the full tree of a criteria visible to subject
func (s *criteriaService) GetCriteria(ctx context.Context, subject entities.Subject, id uuid.UUID) (*entities.Criteria, error) {
	criteria, err := s.tree(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.IsAuthorized(subject, criteria) {
		return nil, apperrors.ErrUnauthorized("view criteria")
	}
	return criteria, nil
}

// ListCriteria returns the criteria visible to subject, newest first
func (s *criteriaService) ListCriteria(ctx context.Context, subject entities.Subject, search string, limit, offset int) ([]*entities.Criteria, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	list, total, err := s.repos.Criteria.List(ctx, repositories.CriteriaFilters{
		Subject: subject,
		Search:  search,
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		return nil, 0, s.internal("failed to list criteria", err)
	}
	return list, total, nil
}

// ============================================================================
// Categories
// ============================================================================

func (s *criteriaService) CreateCategory(ctx context.Context, subject entities.Subject, criteriaID uuid.UUID, input CategoryInput) (*entities.Category, error) {
	if _, err := s.loadForModify(ctx, subject, criteriaID, "create category"); err != nil {
		return nil, err
	}
	if err := ValidateCategory(input); err != nil {
		return nil, err
	}
	if err := s.checkCategoryName(ctx, criteriaID, input.Name, nil); err != nil {
		return nil, err
	}

	category := input.toEntity(criteriaID)
	err := s.uow.Do(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		return repos.Criteria.CreateCategory(ctx, &category)
	})
	s.metrics.RecordMutation(resourceCategory, audit.ActionCreate, err)
	if err != nil {
		return nil, s.writeError("failed to create category", resourceCategory, category.Name, err)
	}
	s.invalidate(ctx, criteriaID)
	s.audit(ctx, subject, audit.ActionCreate, resourceCategory, category.ID, map[string]interface{}{
		"criteria_id": criteriaID.String(),
		"name":        category.Name,
	})
	return &category, nil
}

func (s *criteriaService) UpdateCategory(ctx context.Context, subject entities.Subject, criteriaID, categoryID uuid.UUID, input CategoryInput) (*entities.Category, error) {
	if len(input.Metrics) > 0 {
		return nil, apperrors.ErrInvalidArgument("metrics cannot be replaced through a category update")
	}
	if _, err := s.loadForModify(ctx, subject, criteriaID, "update category"); err != nil {
		return nil, err
	}
	category, err := s.findCategory(ctx, criteriaID, categoryID)
	if err != nil {
		return nil, err
	}
	if err := ValidateCategory(input); err != nil {
		return nil, err
	}
	if name := normalizeName(input.Name); name != category.Name {
		if err := s.checkCategoryName(ctx, criteriaID, name, &categoryID); err != nil {
			return nil, err
		}
	}

	category.Name = normalizeName(input.Name)
	category.Description = input.Description
	category.Weight = input.Weight
	category.Position = input.Position

	err = s.repos.Criteria.UpdateCategory(ctx, category)
	s.metrics.RecordMutation(resourceCategory, audit.ActionUpdate, err)
	if err != nil {
		return nil, s.writeError("failed to update category", resourceCategory, category.Name, err)
	}
	s.invalidate(ctx, criteriaID)
	s.audit(ctx, subject, audit.ActionUpdate, resourceCategory, categoryID, map[string]interface{}{
		"criteria_id": criteriaID.String(),
		"name":        category.Name,
	})
	return category, nil
}

func (s *criteriaService) DeleteCategory(ctx context.Context, subject entities.Subject, criteriaID, categoryID uuid.UUID) error {
	if _, err := s.loadForModify(ctx, subject, criteriaID, "delete category"); err != nil {
		return err
	}
	if _, err := s.findCategory(ctx, criteriaID, categoryID); err != nil {
		return err
	}

	err := s.uow.Do(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		return repos.Criteria.DeleteCategory(ctx, categoryID)
	})
	s.metrics.RecordMutation(resourceCategory, audit.ActionDelete, err)
	if err != nil {
		return s.internal("failed to delete category", err)
	}
	s.invalidate(ctx, criteriaID)
	s.audit(ctx, subject, audit.ActionDelete, resourceCategory, categoryID, map[string]interface{}{
		"criteria_id": criteriaID.String(),
	})
	return nil
}

// ============================================================================
// Metrics
// ============================================================================

func (s *criteriaService) CreateMetric(ctx context.Context, subject entities.Subject, criteriaID, categoryID uuid.UUID, input MetricInput) (*entities.Metric, error) {
	if _, err := s.loadForModify(ctx, subject, criteriaID, "create metric"); err != nil {
		return nil, err
	}
	if _, err := s.findCategory(ctx, criteriaID, categoryID); err != nil {
		return nil, err
	}
	if err := ValidateMetric(input); err != nil {
		return nil, err
	}
	if err := s.checkMetricName(ctx, categoryID, input.Name, nil); err != nil {
		return nil, err
	}

	metric := input.toEntity(categoryID)
	err := s.repos.Criteria.CreateMetric(ctx, &metric)
	s.metrics.RecordMutation(resourceMetric, audit.ActionCreate, err)
	if err != nil {
		return nil, s.writeError("failed to create metric", resourceMetric, metric.Name, err)
	}
	s.invalidate(ctx, criteriaID)
	s.audit(ctx, subject, audit.ActionCreate, resourceMetric, metric.ID, map[string]interface{}{
		"category_id": categoryID.String(),
		"name":        metric.Name,
		"type":        string(metric.Type),
	})
	return &metric, nil
}

func (s *criteriaService) UpdateMetric(ctx context.Context, subject entities.Subject, criteriaID, categoryID, metricID uuid.UUID, input MetricInput) (*entities.Metric, error) {
	if _, err := s.loadForModify(ctx, subject, criteriaID, "update metric"); err != nil {
		return nil, err
	}
	metric, err := s.findMetric(ctx, criteriaID, categoryID, metricID)
	if err != nil {
		return nil, err
	}
	if err := ValidateMetric(input); err != nil {
		return nil, err
	}
	if name := normalizeName(input.Name); name != metric.Name {
		if err := s.checkMetricName(ctx, categoryID, name, &metricID); err != nil {
			return nil, err
		}
	}

	updated := input.toEntity(categoryID)
	updated.ID = metric.ID
	updated.CreatedAt = metric.CreatedAt

	err = s.repos.Criteria.UpdateMetric(ctx, &updated)
	s.metrics.RecordMutation(resourceMetric, audit.ActionUpdate, err)
	if err != nil {
		return nil, s.writeError("failed to update metric", resourceMetric, updated.Name, err)
	}
	s.invalidate(ctx, criteriaID)
	s.audit(ctx, subject, audit.ActionUpdate, resourceMetric, metricID, map[string]interface{}{
		"category_id": categoryID.String(),
		"name":        updated.Name,
	})
	return &updated, nil
}

func (s *criteriaService) DeleteMetric(ctx context.Context, subject entities.Subject, criteriaID, categoryID, metricID uuid.UUID) error {
	if _, err := s.loadForModify(ctx, subject, criteriaID, "delete metric"); err != nil {
		return err
	}
	if _, err := s.findMetric(ctx, criteriaID, categoryID, metricID); err != nil {
		return err
	}

	err := s.repos.Criteria.DeleteMetric(ctx, metricID)
	s.metrics.RecordMutation(resourceMetric, audit.ActionDelete, err)
	if err != nil {
		return s.internal("failed to delete metric", err)
	}
	s.invalidate(ctx, criteriaID)
	s.audit(ctx, subject, audit.ActionDelete, resourceMetric, metricID, map[string]interface{}{
		"category_id": categoryID.String(),
	})
	return nil
}

// ============================================================================
// Helpers
// ============================================================================

func (s *criteriaService) loadForModify(ctx context.Context, subject entities.Subject, id uuid.UUID, action string) (*entities.Criteria, error) {
	criteria, err := s.repos.Criteria.FindByID(ctx, id)
	if err != nil {
		return nil, s.internal("failed to get criteria", err)
	}
	if criteria == nil {
		return nil, apperrors.ErrNotFound("Criteria")
	}
	if !access.CanModify(subject, criteria) {
		return nil, apperrors.ErrUnauthorized(action)
	}
	return criteria, nil
}

// findCategory returns NOT_FOUND when the category belongs to another criteria
func (s *criteriaService) findCategory(ctx context.Context, criteriaID, categoryID uuid.UUID) (*entities.Category, error) {
	category, err := s.repos.Criteria.FindCategory(ctx, categoryID)
	if err != nil {
		return nil, s.internal("failed to get category", err)
	}
	if category == nil || category.CriteriaID != criteriaID {
		return nil, apperrors.ErrNotFound("Category")
	}
	return category, nil
}

func (s *criteriaService) findMetric(ctx context.Context, criteriaID, categoryID, metricID uuid.UUID) (*entities.Metric, error) {
	if _, err := s.findCategory(ctx, criteriaID, categoryID); err != nil {
		return nil, err
	}
	metric, err := s.repos.Criteria.FindMetric(ctx, metricID)
	if err != nil {
		return nil, s.internal("failed to get metric", err)
	}
	if metric == nil || metric.CategoryID != categoryID {
		return nil, apperrors.ErrNotFound("Metric")
	}
	return metric, nil
}

func (s *criteriaService) checkCategoryName(ctx context.Context, criteriaID uuid.UUID, name string, exclude *uuid.UUID) error {
	exists, err := s.repos.Criteria.CategoryNameExists(ctx, criteriaID, normalizeName(name), exclude)
	if err != nil {
		return s.internal("failed to check category name", err)
	}
	if exists {
		return apperrors.ErrDuplicateName(resourceCategory, name)
	}
	return nil
}

func (s *criteriaService) checkMetricName(ctx context.Context, categoryID uuid.UUID, name string, exclude *uuid.UUID) error {
	exists, err := s.repos.Criteria.MetricNameExists(ctx, categoryID, normalizeName(name), exclude)
	if err != nil {
		return s.internal("failed to check metric name", err)
	}
	if exists {
		return apperrors.ErrDuplicateName(resourceMetric, name)
	}
	return nil
}

// tree loads a criteria with its categories and metrics, through the cache
// when one is configured
func (s *criteriaService) tree(ctx context.Context, id uuid.UUID) (*entities.Criteria, error) {
	key := cacheKey(id)
	if s.store != nil {
		data, ok, err := s.store.Get(ctx, key)
		switch {
		case err != nil:
			s.metrics.RecordCache("error")
			s.logger.Warn("criteria cache read failed", zap.String("key", key), zap.Error(err))
		case ok:
			var cached entities.Criteria
			if err := json.Unmarshal(data, &cached); err == nil {
				s.metrics.RecordCache("hit")
				return &cached, nil
			}
			s.metrics.RecordCache("error")
		default:
			s.metrics.RecordCache("miss")
		}
	}

	criteria, err := s.repos.Criteria.FindTree(ctx, id)
	if err != nil {
		return nil, s.internal("failed to get criteria", err)
	}
	if criteria == nil {
		return nil, apperrors.ErrNotFound("Criteria")
	}

	if s.store != nil {
		if data, err := json.Marshal(criteria); err == nil {
			if err := s.store.Set(ctx, key, data, s.cacheTTL); err != nil {
				s.logger.Warn("criteria cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
	}
	return criteria, nil
}

func (s *criteriaService) invalidate(ctx context.Context, id uuid.UUID) {
	if s.store == nil {
		return
	}
	if err := s.store.Delete(ctx, cacheKey(id)); err != nil {
		s.logger.Warn("criteria cache invalidation failed", zap.String("criteria_id", id.String()), zap.Error(err))
	}
}

func (s *criteriaService) audit(ctx context.Context, subject entities.Subject, action, resource string, id uuid.UUID, details map[string]interface{}) {
	s.auditor.Record(ctx, audit.Entry{
		UserID:     subject.UserID,
		Action:     action,
		Resource:   resource,
		ResourceID: id.String(),
		Details:    details,
	})
}

// writeError keeps domain errors raised inside a write and maps constraint
// violations that raced past the pre-checks onto their domain codes
func (s *criteriaService) writeError(msg, resource, name string, err error) error {
	if appErr, ok := apperrors.As(err); ok {
		return appErr
	}
	switch {
	case errors.Is(err, repositories.ErrDuplicate):
		return apperrors.ErrDuplicateName(resource, name)
	case errors.Is(err, repositories.ErrReferenced):
		s.logger.Warn("criteria write hit a reference constraint", zap.Error(err))
		return apperrors.ErrInUse(resourceCriteria, 0)
	}
	return s.internal(msg, err)
}

func (s *criteriaService) internal(msg string, err error) error {
	s.logger.Error(msg, zap.Error(err))
	return apperrors.ErrInternal(fmt.Errorf("%s: %w", msg, err))
}

func cacheKey(id uuid.UUID) string {
	return "criteria:" + id.String()
}
