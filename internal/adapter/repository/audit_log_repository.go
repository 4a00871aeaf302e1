package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/johnquangdev/qa-review/internal/domain/entities"
	"github.com/johnquangdev/qa-review/internal/domain/repositories"
)

type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository creates a new audit log repository
func NewAuditLogRepository(db *gorm.DB) repositories.AuditLogRepository {
	return &auditLogRepository{db: db}
}

// Create stores an audit record
func (r *auditLogRepository) Create(ctx context.Context, log *entities.AuditLog) error {
	if log == nil {
		return errors.New("audit log cannot be nil")
	}
	return r.db.WithContext(ctx).Create(log).Error
}
