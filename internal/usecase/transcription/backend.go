package transcription

import (
	"context"

	"github.com/google/uuid"

	"github.com/johnquangdev/qa-review/internal/domain/entities"
	"github.com/johnquangdev/qa-review/internal/domain/transcript"
	"github.com/johnquangdev/qa-review/internal/usecase/editor"
)

// Backend adapts the service to editor.Backend for one subject, so an editor
// session can run in process against the database
type Backend struct {
	svc     Service
	subject entities.Subject
}

var _ editor.Backend = (*Backend)(nil)

// NewBackend binds svc to subject
func NewBackend(svc Service, subject entities.Subject) *Backend {
	return &Backend{svc: svc, subject: subject}
}

func (b *Backend) CreateSegment(ctx context.Context, transcriptionID uuid.UUID, in transcript.SegmentInput) (*entities.Segment, error) {
	return b.svc.CreateSegment(ctx, b.subject, transcriptionID, in)
}

func (b *Backend) UpdateSegment(ctx context.Context, transcriptionID, segmentID uuid.UUID, changes transcript.SegmentChanges) (*entities.Segment, error) {
	return b.svc.UpdateSegment(ctx, b.subject, transcriptionID, segmentID, changes)
}

func (b *Backend) DeleteSegment(ctx context.Context, transcriptionID, segmentID uuid.UUID) error {
	return b.svc.DeleteSegment(ctx, b.subject, transcriptionID, segmentID)
}

func (b *Backend) UpsertSpeaker(ctx context.Context, transcriptionID uuid.UUID, speaker entities.Speaker) error {
	return b.svc.UpsertSpeaker(ctx, b.subject, transcriptionID, speaker)
}

func (b *Backend) RemoveSpeaker(ctx context.Context, transcriptionID uuid.UUID, speakerID string) error {
	_, err := b.svc.RemoveSpeaker(ctx, b.subject, transcriptionID, speakerID)
	return err
}

func (b *Backend) UpsertSection(ctx context.Context, transcriptionID uuid.UUID, section entities.Section) error {
	return b.svc.UpsertSection(ctx, b.subject, transcriptionID, section)
}

func (b *Backend) RemoveSection(ctx context.Context, transcriptionID uuid.UUID, sectionID string) error {
	_, err := b.svc.RemoveSection(ctx, b.subject, transcriptionID, sectionID)
	return err
}

// OpenEditor loads a transcript and starts an editor session on it
func OpenEditor(ctx context.Context, svc Service, subject entities.Subject, transcriptionID uuid.UUID) (*editor.Editor, error) {
	v, err := svc.Get(ctx, subject, transcriptionID)
	if err != nil {
		return nil, err
	}
	doc := transcript.FromTranscription(v.Transcription)
	return editor.NewEditor(doc, NewBackend(svc, subject), nil), nil
}
