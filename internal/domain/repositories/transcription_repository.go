package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/johnquangdev/qa-review/internal/domain/entities"
)

// TranscriptionRepository defines persistence operations for transcriptions and their segments
type TranscriptionRepository interface {
	// Create persists a transcription and the segments it carries
	Create(ctx context.Context, transcription *entities.Transcription) error

	// FindByID retrieves a transcription with its segments sorted by start time
	FindByID(ctx context.Context, id uuid.UUID) (*entities.Transcription, error)

	// FindByRecordingID retrieves the transcription of a recording with its segments
	FindByRecordingID(ctx context.Context, recordingID uuid.UUID) (*entities.Transcription, error)

	// FindByExternalID retrieves a transcription by the transcription provider's id
	FindByExternalID(ctx context.Context, externalID string) (*entities.Transcription, error)

	// Update saves the transcription's own columns, never its segments
	Update(ctx context.Context, transcription *entities.Transcription) error

	// ReplaceSegments drops every segment of a transcription and stores the given ones
	ReplaceSegments(ctx context.Context, transcriptionID uuid.UUID, segments []entities.Segment) error

	// Segments
	CreateSegment(ctx context.Context, segment *entities.Segment) error
	UpdateSegment(ctx context.Context, segment *entities.Segment) error
	DeleteSegment(ctx context.Context, id uuid.UUID) error

	// ClearSpeaker nulls speaker_id on the given segments
	ClearSpeaker(ctx context.Context, segmentIDs []uuid.UUID) error

	// ClearSection nulls section_type on the given segments
	ClearSection(ctx context.Context, segmentIDs []uuid.UUID) error
}
