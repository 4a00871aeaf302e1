package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/johnquangdev/qa-review/internal/domain/entities"
	"github.com/johnquangdev/qa-review/internal/domain/repositories"
)

type evaluationRepository struct {
	db *gorm.DB
}

// NewEvaluationRepository creates a new evaluation repository
func NewEvaluationRepository(db *gorm.DB) repositories.EvaluationRepository {
	return &evaluationRepository{db: db}
}

// Create stores a submitted evaluation
func (r *evaluationRepository) Create(ctx context.Context, evaluation *entities.Evaluation) error {
	if evaluation == nil {
		return errors.New("evaluation cannot be nil")
	}
	return r.db.WithContext(ctx).Create(evaluation).Error
}

// ListByRecordingID lists the evaluations of a recording, newest first
func (r *evaluationRepository) ListByRecordingID(ctx context.Context, recordingID uuid.UUID) ([]*entities.Evaluation, error) {
	var evaluations []*entities.Evaluation
	if err := r.db.WithContext(ctx).
		Where("recording_id = ?", recordingID).
		Order("created_at DESC").
		Find(&evaluations).Error; err != nil {
		return nil, err
	}
	return evaluations, nil
}
