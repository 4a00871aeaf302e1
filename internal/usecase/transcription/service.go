// Package transcription serves and edits stored transcripts. Every edit loads
// the transcript into a transcript.Document, applies one command and writes
// the result back in a single transaction.
package transcription

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/johnquangdev/qa-review/errors"
	"github.com/johnquangdev/qa-review/internal/domain/entities"
	"github.com/johnquangdev/qa-review/internal/domain/repositories"
	"github.com/johnquangdev/qa-review/internal/domain/transcript"
	"github.com/johnquangdev/qa-review/internal/usecase/access"
	"github.com/johnquangdev/qa-review/internal/usecase/audit"
	"github.com/johnquangdev/qa-review/pkg/metrics"
)

const (
	resourceTranscription = "transcription"
	resourceSegment       = "segment"
	resourceSpeaker       = "speaker"
	resourceSection       = "section"
)

// View is a transcript as served to reviewers
type View struct {
	Transcription *entities.Transcription
	Warnings      []transcript.Warning
}

// UpdateInput holds the editable transcription metadata
type UpdateInput struct {
	ContextNotes *string
}

// Service defines transcript reads and edits
type Service interface {
	Get(ctx context.Context, subject entities.Subject, id uuid.UUID) (*View, error)
	GetByRecording(ctx context.Context, subject entities.Subject, recordingID uuid.UUID) (*View, error)
	UpdateTranscription(ctx context.Context, subject entities.Subject, id uuid.UUID, input UpdateInput) (*entities.Transcription, error)

	CreateSegment(ctx context.Context, subject entities.Subject, id uuid.UUID, input transcript.SegmentInput) (*entities.Segment, error)
	UpdateSegment(ctx context.Context, subject entities.Subject, id, segmentID uuid.UUID, changes transcript.SegmentChanges) (*entities.Segment, error)
	DeleteSegment(ctx context.Context, subject entities.Subject, id, segmentID uuid.UUID) error

	UpsertSpeaker(ctx context.Context, subject entities.Subject, id uuid.UUID, speaker entities.Speaker) error
	RemoveSpeaker(ctx context.Context, subject entities.Subject, id uuid.UUID, speakerID string) ([]uuid.UUID, error)
	UpsertSection(ctx context.Context, subject entities.Subject, id uuid.UUID, section entities.Section) error
	RemoveSection(ctx context.Context, subject entities.Subject, id uuid.UUID, sectionID string) ([]uuid.UUID, error)
}

type transcriptionService struct {
	repos   repositories.Repositories
	uow     repositories.UnitOfWork
	auditor audit.Sink
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewService constructs a transcription service
func NewService(repos repositories.Repositories, uow repositories.UnitOfWork, auditor audit.Sink, m *metrics.Metrics, logger *zap.Logger) Service {
	if auditor == nil {
		auditor = audit.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &transcriptionService{
		repos:   repos,
		uow:     uow,
		auditor: auditor,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Get returns a transcript with its sorted segments and any problems found in it
func (s *transcriptionService) Get(ctx context.Context, subject entities.Subject, id uuid.UUID) (*View, error) {
	t, err := s.repos.Transcriptions.FindByID(ctx, id)
	if err != nil {
		return nil, s.internal("failed to get transcription", err)
	}
	return s.view(ctx, subject, t)
}

// GetByRecording returns the transcript of a recording
func (s *transcriptionService) GetByRecording(ctx context.Context, subject entities.Subject, recordingID uuid.UUID) (*View, error) {
	t, err := s.repos.Transcriptions.FindByRecordingID(ctx, recordingID)
	if err != nil {
		return nil, s.internal("failed to get transcription", err)
	}
	return s.view(ctx, subject, t)
}

func (s *transcriptionService) view(ctx context.Context, subject entities.Subject, t *entities.Transcription) (*View, error) {
	if t == nil {
		return nil, apperrors.ErrNotFound("Transcription")
	}
	recording, err := s.repos.Recordings.FindByID(ctx, t.RecordingID)
	if err != nil {
		return nil, s.internal("failed to get recording", err)
	}
	if recording == nil {
		return nil, apperrors.ErrNotFound("Recording")
	}
	if !access.IsAuthorized(subject, recording) {
		return nil, apperrors.ErrUnauthorized("view transcription")
	}

	doc := transcript.FromTranscription(t)
	t.Segments = doc.Segments()
	return &View{Transcription: t, Warnings: doc.Validate()}, nil
}

// UpdateTranscription changes transcription metadata
func (s *transcriptionService) UpdateTranscription(ctx context.Context, subject entities.Subject, id uuid.UUID, input UpdateInput) (*entities.Transcription, error) {
	var updated *entities.Transcription
	err := s.uow.Do(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		t, err := s.loadForEdit(ctx, repos, subject, id)
		if err != nil {
			return err
		}
		if input.ContextNotes != nil {
			t.ContextNotes = *input.ContextNotes
		}
		if err := repos.Transcriptions.Update(ctx, t); err != nil {
			return fmt.Errorf("failed to update transcription: %w", err)
		}
		updated = t
		return nil
	})
	if err := s.finish(ctx, subject, audit.ActionUpdate, resourceTranscription, id.String(), nil, err); err != nil {
		return nil, err
	}
	return updated, nil
}

// ============================================================================
// Segments
// ============================================================================

// CreateSegment adds a segment. Timing, references and overlap are checked
// against the stored transcript.
func (s *transcriptionService) CreateSegment(ctx context.Context, subject entities.Subject, id uuid.UUID, input transcript.SegmentInput) (*entities.Segment, error) {
	var created entities.Segment
	err := s.edit(ctx, subject, id, func(ctx context.Context, repos repositories.Repositories, doc *transcript.Document) error {
		segID := uuid.New()
		if _, err := doc.AddSegment(segID, input); err != nil {
			return err
		}
		created, _ = doc.Segment(segID)
		if err := repos.Transcriptions.CreateSegment(ctx, &created); err != nil {
			return fmt.Errorf("failed to create segment: %w", err)
		}
		return nil
	})
	if err := s.finish(ctx, subject, audit.ActionCreate, resourceSegment, created.ID.String(), map[string]interface{}{
		"transcription_id": id.String(),
	}, err); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateSegment applies a partial change to a segment
func (s *transcriptionService) UpdateSegment(ctx context.Context, subject entities.Subject, id, segmentID uuid.UUID, changes transcript.SegmentChanges) (*entities.Segment, error) {
	if changes.IsEmpty() {
		return nil, apperrors.ErrInvalidArgument("no changes given")
	}
	var updated entities.Segment
	err := s.edit(ctx, subject, id, func(ctx context.Context, repos repositories.Repositories, doc *transcript.Document) error {
		if _, err := doc.UpdateSegment(segmentID, changes); err != nil {
			return err
		}
		updated, _ = doc.Segment(segmentID)
		if err := repos.Transcriptions.UpdateSegment(ctx, &updated); err != nil {
			return fmt.Errorf("failed to update segment: %w", err)
		}
		return nil
	})
	if err := s.finish(ctx, subject, audit.ActionUpdate, resourceSegment, segmentID.String(), map[string]interface{}{
		"transcription_id": id.String(),
		"edited":           updated.Edited,
	}, err); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteSegment removes a segment
func (s *transcriptionService) DeleteSegment(ctx context.Context, subject entities.Subject, id, segmentID uuid.UUID) error {
	err := s.edit(ctx, subject, id, func(ctx context.Context, repos repositories.Repositories, doc *transcript.Document) error {
		if _, err := doc.RemoveSegment(segmentID); err != nil {
			return err
		}
		if err := repos.Transcriptions.DeleteSegment(ctx, segmentID); err != nil {
			return fmt.Errorf("failed to delete segment: %w", err)
		}
		return nil
	})
	return s.finish(ctx, subject, audit.ActionDelete, resourceSegment, segmentID.String(), map[string]interface{}{
		"transcription_id": id.String(),
	}, err)
}

// ============================================================================
// Registries
// ============================================================================

// UpsertSpeaker adds or renames a speaker
func (s *transcriptionService) UpsertSpeaker(ctx context.Context, subject entities.Subject, id uuid.UUID, speaker entities.Speaker) error {
	err := s.edit(ctx, subject, id, func(_ context.Context, _ repositories.Repositories, doc *transcript.Document) error {
		return doc.UpsertSpeaker(speaker)
	})
	return s.finish(ctx, subject, audit.ActionUpdate, resourceSpeaker, speaker.ID, map[string]interface{}{
		"transcription_id": id.String(),
		"name":             speaker.Name,
	}, err)
}

// RemoveSpeaker deletes a speaker and clears it from every segment, returning
// the ids of the segments that changed
func (s *transcriptionService) RemoveSpeaker(ctx context.Context, subject entities.Subject, id uuid.UUID, speakerID string) ([]uuid.UUID, error) {
	var cleared []uuid.UUID
	err := s.edit(ctx, subject, id, func(ctx context.Context, repos repositories.Repositories, doc *transcript.Document) error {
		ids, err := doc.RemoveSpeaker(speakerID)
		if err != nil {
			return err
		}
		if err := repos.Transcriptions.ClearSpeaker(ctx, ids); err != nil {
			return fmt.Errorf("failed to clear speaker references: %w", err)
		}
		cleared = ids
		return nil
	})
	if err := s.finish(ctx, subject, audit.ActionDelete, resourceSpeaker, speakerID, map[string]interface{}{
		"transcription_id": id.String(),
		"cleared_segments": len(cleared),
	}, err); err != nil {
		return nil, err
	}
	return cleared, nil
}

// UpsertSection adds or renames a section
func (s *transcriptionService) UpsertSection(ctx context.Context, subject entities.Subject, id uuid.UUID, section entities.Section) error {
	err := s.edit(ctx, subject, id, func(_ context.Context, _ repositories.Repositories, doc *transcript.Document) error {
		return doc.UpsertSection(section)
	})
	return s.finish(ctx, subject, audit.ActionUpdate, resourceSection, section.ID, map[string]interface{}{
		"transcription_id": id.String(),
		"name":             section.Name,
	}, err)
}

// RemoveSection deletes a section and clears it from every segment
func (s *transcriptionService) RemoveSection(ctx context.Context, subject entities.Subject, id uuid.UUID, sectionID string) ([]uuid.UUID, error) {
	var cleared []uuid.UUID
	err := s.edit(ctx, subject, id, func(ctx context.Context, repos repositories.Repositories, doc *transcript.Document) error {
		ids, err := doc.RemoveSection(sectionID)
		if err != nil {
			return err
		}
		if err := repos.Transcriptions.ClearSection(ctx, ids); err != nil {
			return fmt.Errorf("failed to clear section references: %w", err)
		}
		cleared = ids
		return nil
	})
	if err := s.finish(ctx, subject, audit.ActionDelete, resourceSection, sectionID, map[string]interface{}{
		"transcription_id": id.String(),
		"cleared_segments": len(cleared),
	}, err); err != nil {
		return nil, err
	}
	return cleared, nil
}

// ============================================================================
// Helpers
// ============================================================================

type editFunc func(ctx context.Context, repos repositories.Repositories, doc *transcript.Document) error

// edit runs fn against the stored document in one transaction, then writes
// back the registries and the edit stamp
func (s *transcriptionService) edit(ctx context.Context, subject entities.Subject, id uuid.UUID, fn editFunc) error {
	return s.uow.Do(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		t, err := s.loadForEdit(ctx, repos, subject, id)
		if err != nil {
			return err
		}
		doc := transcript.FromTranscription(t)
		if err := fn(ctx, repos, doc); err != nil {
			return err
		}
		t.SpeakerMap = doc.Speakers()
		t.Sections = doc.Sections()
		t.MarkEdited(subject.UserID, s.now())
		if err := repos.Transcriptions.Update(ctx, t); err != nil {
			return fmt.Errorf("failed to stamp transcription: %w", err)
		}
		return nil
	})
}

func (s *transcriptionService) loadForEdit(ctx context.Context, repos repositories.Repositories, subject entities.Subject, id uuid.UUID) (*entities.Transcription, error) {
	t, err := repos.Transcriptions.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get transcription: %w", err)
	}
	if t == nil {
		return nil, apperrors.ErrNotFound("Transcription")
	}
	recording, err := repos.Recordings.FindByID(ctx, t.RecordingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get recording: %w", err)
	}
	if recording == nil {
		return nil, apperrors.ErrNotFound("Recording")
	}
	if !access.CanEdit(subject, recording) {
		return nil, apperrors.ErrUnauthorized("edit transcription")
	}
	return t, nil
}

// finish records metrics and, on success, the audit entry. Errors that are
// not already AppErrors are logged and reported as INTERNAL.
func (s *transcriptionService) finish(ctx context.Context, subject entities.Subject, action, resource, resourceID string, details map[string]interface{}, err error) error {
	s.metrics.RecordMutation(resource, action, err)
	if err != nil {
		if _, ok := apperrors.As(err); ok {
			return err
		}
		return s.internal(fmt.Sprintf("failed to %s %s", action, resource), err)
	}
	s.auditor.Record(ctx, audit.Entry{
		UserID:     subject.UserID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Details:    details,
	})
	return nil
}

func (s *transcriptionService) internal(msg string, err error) error {
	s.logger.Error(msg, zap.Error(err))
	return apperrors.ErrInternal(fmt.Errorf("%s: %w", msg, err))
}
