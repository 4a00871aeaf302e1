package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/johnquangdev/qa-review/internal/domain/entities"
)

// EvaluationRepository defines persistence operations for submitted evaluations
type EvaluationRepository interface {
	Create(ctx context.Context, evaluation *entities.Evaluation) error
	ListByRecordingID(ctx context.Context, recordingID uuid.UUID) ([]*entities.Evaluation, error)
}

// AuditLogRepository stores audit records
type AuditLogRepository interface {
	Create(ctx context.Context, log *entities.AuditLog) error
}
