// Package editor applies transcript edits against a persistence backend while
// keeping a local document that reviewers read from.
package editor

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/johnquangdev/qa-review/errors"
	"github.com/johnquangdev/qa-review/internal/domain/entities"
	"github.com/johnquangdev/qa-review/internal/domain/transcript"
)

// ErrConfirmationRequired is returned when a delete is not confirmed
var ErrConfirmationRequired = errors.New("delete requires confirmation")

// Backend persists transcript mutations. One call is one round trip.
type Backend interface {
	CreateSegment(ctx context.Context, transcriptionID uuid.UUID, in transcript.SegmentInput) (*entities.Segment, error)
	UpdateSegment(ctx context.Context, transcriptionID, segmentID uuid.UUID, changes transcript.SegmentChanges) (*entities.Segment, error)
	DeleteSegment(ctx context.Context, transcriptionID, segmentID uuid.UUID) error
	UpsertSpeaker(ctx context.Context, transcriptionID uuid.UUID, speaker entities.Speaker) error
	RemoveSpeaker(ctx context.Context, transcriptionID uuid.UUID, speakerID string) error
	UpsertSection(ctx context.Context, transcriptionID uuid.UUID, section entities.Section) error
	RemoveSection(ctx context.Context, transcriptionID uuid.UUID, sectionID string) error
}

// Subscriber receives the committed segment list after each successful mutation
type Subscriber func(segments []entities.Segment)

// Editor serializes mutations of one transcription. Reads never wait on the
// backend; mutations wait for each other.
type Editor struct {
	opMu sync.Mutex // one mutation at a time

	mu          sync.RWMutex
	doc         *transcript.Document
	subscribers []Subscriber

	backend Backend
	logger  *zap.Logger
}

// NewEditor wraps a loaded document
func NewEditor(doc *transcript.Document, backend Backend, logger *zap.Logger) *Editor {
	return &Editor{
		doc:     doc,
		backend: backend,
		logger:  logger,
	}
}

// Subscribe registers a subscriber
func (e *Editor) Subscribe(fn Subscriber) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscribers = append(e.subscribers, fn)
}

// Segments returns the current segment list, including an in-flight optimistic update
func (e *Editor) Segments() []entities.Segment {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.doc.Segments()
}

// Speakers returns the current speaker registry
func (e *Editor) Speakers() map[string]entities.Speaker {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.doc.Speakers()
}

// Sections returns the current section registry
func (e *Editor) Sections() map[string]entities.Section {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.doc.Sections()
}

// Warnings reports problems in the loaded data
func (e *Editor) Warnings() []transcript.Warning {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.doc.Validate()
}

// Create persists a new segment and inserts it locally
func (e *Editor) Create(ctx context.Context, in transcript.SegmentInput) (*entities.Segment, error) {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	// dry run so invalid input never reaches the backend
	e.mu.Lock()
	snap := e.doc.Snapshot()
	_, err := e.doc.AddSegment(uuid.Nil, in)
	e.doc.Restore(snap)
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	created, err := e.backend.CreateSegment(ctx, e.doc.TranscriptionID(), in)
	if err != nil {
		e.logError("create segment failed", err)
		return nil, err
	}

	e.mu.Lock()
	list := e.doc.Put(*created)
	e.mu.Unlock()

	e.notify(list)
	return created, nil
}

// Update applies changes optimistically, then persists them. On failure the
// local document is rolled back to its state before the call.
func (e *Editor) Update(ctx context.Context, segmentID uuid.UUID, changes transcript.SegmentChanges) (*entities.Segment, error) {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	snap := e.doc.Snapshot()
	if _, err := e.doc.UpdateSegment(segmentID, changes); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	e.mu.Unlock()

	persisted, err := e.backend.UpdateSegment(ctx, e.doc.TranscriptionID(), segmentID, changes)
	if err != nil {
		e.rollback(snap)
		e.logError("update segment failed, rolled back", err, zap.String("segment_id", segmentID.String()))
		return nil, err
	}

	e.mu.Lock()
	list := e.doc.Put(*persisted)
	e.mu.Unlock()

	e.notify(list)
	return persisted, nil
}

// Delete removes a segment after the backend confirms. confirm must be true.
func (e *Editor) Delete(ctx context.Context, segmentID uuid.UUID, confirm bool) error {
	if !confirm {
		return ErrConfirmationRequired
	}
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.RLock()
	_, ok := e.doc.Segment(segmentID)
	e.mu.RUnlock()
	if !ok {
		return apperrors.ErrNotFound("segment").WithDetail("segment_id", segmentID.String())
	}

	if err := e.backend.DeleteSegment(ctx, e.doc.TranscriptionID(), segmentID); err != nil {
		e.logError("delete segment failed", err, zap.String("segment_id", segmentID.String()))
		return err
	}

	e.mu.Lock()
	list, err := e.doc.RemoveSegment(segmentID)
	e.mu.Unlock()
	if err != nil {
		return err
	}

	e.notify(list)
	return nil
}

// UpsertSpeaker adds or replaces a speaker
func (e *Editor) UpsertSpeaker(ctx context.Context, speaker entities.Speaker) error {
	return e.mutateRegistry(ctx, "upsert speaker",
		func(doc *transcript.Document) error { return doc.UpsertSpeaker(speaker) },
		func(ctx context.Context, id uuid.UUID) error { return e.backend.UpsertSpeaker(ctx, id, speaker) })
}

// RemoveSpeaker removes a speaker and clears it from segments
func (e *Editor) RemoveSpeaker(ctx context.Context, speakerID string) error {
	return e.mutateRegistry(ctx, "remove speaker",
		func(doc *transcript.Document) error { _, err := doc.RemoveSpeaker(speakerID); return err },
		func(ctx context.Context, id uuid.UUID) error { return e.backend.RemoveSpeaker(ctx, id, speakerID) })
}

// UpsertSection adds or replaces a section
func (e *Editor) UpsertSection(ctx context.Context, section entities.Section) error {
	return e.mutateRegistry(ctx, "upsert section",
		func(doc *transcript.Document) error { return doc.UpsertSection(section) },
		func(ctx context.Context, id uuid.UUID) error { return e.backend.UpsertSection(ctx, id, section) })
}

// RemoveSection removes a section and clears it from segments
func (e *Editor) RemoveSection(ctx context.Context, sectionID string) error {
	return e.mutateRegistry(ctx, "remove section",
		func(doc *transcript.Document) error { _, err := doc.RemoveSection(sectionID); return err },
		func(ctx context.Context, id uuid.UUID) error { return e.backend.RemoveSection(ctx, id, sectionID) })
}

func (e *Editor) mutateRegistry(ctx context.Context, op string, apply func(*transcript.Document) error, persist func(context.Context, uuid.UUID) error) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	snap := e.doc.Snapshot()
	if err := apply(e.doc); err != nil {
		e.mu.Unlock()
		return err
	}
	e.mu.Unlock()

	if err := persist(ctx, e.doc.TranscriptionID()); err != nil {
		e.rollback(snap)
		e.logError(op+" failed, rolled back", err)
		return err
	}

	e.notify(e.Segments())
	return nil
}

func (e *Editor) rollback(snap transcript.Snapshot) {
	e.mu.Lock()
	e.doc.Restore(snap)
	e.mu.Unlock()
}

func (e *Editor) notify(list []entities.Segment) {
	e.mu.RLock()
	subscribers := append([]Subscriber(nil), e.subscribers...)
	e.mu.RUnlock()
	for _, fn := range subscribers {
		fn(list)
	}
}

func (e *Editor) logError(msg string, err error, fields ...zap.Field) {
	if e.logger == nil {
		return
	}
	e.logger.Warn(msg, append(fields, zap.Error(err))...)
}
