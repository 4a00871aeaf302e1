// Package recording serves recording metadata and audio links.
package recording

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/johnquangdev/qa-review/errors"
	"github.com/johnquangdev/qa-review/internal/domain/entities"
	"github.com/johnquangdev/qa-review/internal/domain/repositories"
	"github.com/johnquangdev/qa-review/internal/usecase/access"
)

// Presigner signs time-limited GET links to stored objects
type Presigner interface {
	PresignedAudioURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
}

// AudioURL is a signed link and when it stops working
type AudioURL struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service reads recordings
type Service interface {
	Get(ctx context.Context, subject entities.Subject, id uuid.UUID) (*entities.Recording, error)
	AudioURL(ctx context.Context, subject entities.Subject, id uuid.UUID) (*AudioURL, error)
}

type recordingService struct {
	recordings repositories.RecordingRepository
	presigner  Presigner
	expiry     time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewService constructs a recording service
func NewService(recordings repositories.RecordingRepository, presigner Presigner, expiry time.Duration, logger *zap.Logger) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &recordingService{
		recordings: recordings,
		presigner:  presigner,
		expiry:     expiry,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *recordingService) Get(ctx context.Context, subject entities.Subject, id uuid.UUID) (*entities.Recording, error) {
	rec, err := s.recordings.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.ErrInternal(fmt.Errorf("failed to get recording: %w", err))
	}
	if rec == nil {
		return nil, apperrors.ErrNotFound("Recording")
	}
	if !access.IsAuthorized(subject, rec) {
		return nil, apperrors.ErrUnauthorized("view recording")
	}
	return rec, nil
}

func (s *recordingService) AudioURL(ctx context.Context, subject entities.Subject, id uuid.UUID) (*AudioURL, error) {
	rec, err := s.Get(ctx, subject, id)
	if err != nil {
		return nil, err
	}
	if rec.AudioObjectKey == "" {
		return nil, apperrors.ErrNotFound("Recording audio")
	}

	issued := s.now()
	link, err := s.presigner.PresignedAudioURL(ctx, rec.AudioObjectKey, s.expiry)
	if err != nil {
		s.logger.Error("failed to sign audio url",
			zap.String("recording_id", id.String()),
			zap.Error(err))
		return nil, apperrors.ErrStorageFailed("presign", err)
	}
	return &AudioURL{URL: link, ExpiresAt: issued.Add(s.expiry)}, nil
}
