package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/johnquangdev/qa-review/internal/domain/entities"
)

// RecordingRepository defines the interface for recording data access
type RecordingRepository interface {
	// Create creates a new recording
	Create(ctx context.Context, recording *entities.Recording) error

	// FindByID retrieves a recording by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*entities.Recording, error)

	// Update updates an existing recording
	Update(ctx context.Context, recording *entities.Recording) error

	// CountByCriteriaID counts recordings evaluated with a criteria
	CountByCriteriaID(ctx context.Context, criteriaID uuid.UUID) (int64, error)
}
