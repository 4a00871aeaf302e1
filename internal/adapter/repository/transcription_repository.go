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

// transcriptionRepository handles transcription and segment data operations
type transcriptionRepository struct {
	db *gorm.DB
}

// NewTranscriptionRepository creates a new transcription repository
func NewTranscriptionRepository(db *gorm.DB) repositories.TranscriptionRepository {
	return &transcriptionRepository{db: db}
}

// Create creates a new transcription with its segments
func (r *transcriptionRepository) Create(ctx context.Context, transcription *entities.Transcription) error {
	if transcription == nil {
		return errors.New("transcription cannot be nil")
	}
	return r.db.WithContext(ctx).Create(transcription).Error
}

// FindByID retrieves a transcription by ID
func (r *transcriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.Transcription, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByRecordingID retrieves the transcription of a recording
func (r *transcriptionRepository) FindByRecordingID(ctx context.Context, recordingID uuid.UUID) (*entities.Transcription, error) {
	return r.findOne(ctx, "recording_id = ?", recordingID)
}

// FindByExternalID retrieves a transcription by the provider's transcript id
func (r *transcriptionRepository) FindByExternalID(ctx context.Context, externalID string) (*entities.Transcription, error) {
	return r.findOne(ctx, "external_id = ?", externalID)
}

func (r *transcriptionRepository) findOne(ctx context.Context, where string, arg interface{}) (*entities.Transcription, error) {
	var transcription entities.Transcription
	err := r.db.WithContext(ctx).
		Preload("Segments", func(db *gorm.DB) *gorm.DB {
			return db.Order("start_time ASC, id ASC")
		}).
		Where(where, arg).
		First(&transcription).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if transcription.SpeakerMap == nil {
		transcription.SpeakerMap = map[string]entities.Speaker{}
	}
	if transcription.Sections == nil {
		transcription.Sections = map[string]entities.Section{}
	}
	return &transcription, nil
}

// Update updates a transcription's own columns
func (r *transcriptionRepository) Update(ctx context.Context, transcription *entities.Transcription) error {
	if transcription == nil {
		return errors.New("transcription cannot be nil")
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(transcription).Error
}

// ReplaceSegments swaps the full segment list of a transcription
func (r *transcriptionRepository) ReplaceSegments(ctx context.Context, transcriptionID uuid.UUID, segments []entities.Segment) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("transcription_id = ?", transcriptionID).Delete(&entities.Segment{}).Error; err != nil {
		return fmt.Errorf("deleting segments of transcription %s: %w", transcriptionID, err)
	}
	if len(segments) == 0 {
		return nil
	}
	for i := range segments {
		segments[i].TranscriptionID = transcriptionID
	}
	if err := db.CreateInBatches(segments, 200).Error; err != nil {
		return fmt.Errorf("storing segments of transcription %s: %w", transcriptionID, err)
	}
	return nil
}

// CreateSegment creates a segment
func (r *transcriptionRepository) CreateSegment(ctx context.Context, segment *entities.Segment) error {
	if segment == nil {
		return errors.New("segment cannot be nil")
	}
	return r.db.WithContext(ctx).Create(segment).Error
}

// UpdateSegment saves a segment
func (r *transcriptionRepository) UpdateSegment(ctx context.Context, segment *entities.Segment) error {
	if segment == nil {
		return errors.New("segment cannot be nil")
	}
	return r.db.WithContext(ctx).Save(segment).Error
}

// DeleteSegment deletes a segment
func (r *transcriptionRepository) DeleteSegment(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entities.Segment{}).Error
}

// ClearSpeaker nulls the speaker reference of the given segments
func (r *transcriptionRepository) ClearSpeaker(ctx context.Context, segmentIDs []uuid.UUID) error {
	return r.clearColumn(ctx, "speaker_id", segmentIDs)
}

// ClearSection nulls the section reference of the given segments
func (r *transcriptionRepository) ClearSection(ctx context.Context, segmentIDs []uuid.UUID) error {
	return r.clearColumn(ctx, "section_type", segmentIDs)
}

func (r *transcriptionRepository) clearColumn(ctx context.Context, column string, segmentIDs []uuid.UUID) error {
	if len(segmentIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&entities.Segment{}).
		Where("id IN ?", segmentIDs).
		Update(column, gorm.Expr("NULL")).Error
}
