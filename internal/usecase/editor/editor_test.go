package editor

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/johnquangdev/qa-review/errors"
	"github.com/johnquangdev/qa-review/internal/domain/entities"
	"github.com/johnquangdev/qa-review/internal/domain/transcript"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) CreateSegment(ctx context.Context, transcriptionID uuid.UUID, in transcript.SegmentInput) (*entities.Segment, error) {
	args := m.Called(ctx, transcriptionID, in)
	seg, _ := args.Get(0).(*entities.Segment)
	return seg, args.Error(1)
}

func (m *mockBackend) UpdateSegment(ctx context.Context, transcriptionID, segmentID uuid.UUID, changes transcript.SegmentChanges) (*entities.Segment, error) {
	args := m.Called(ctx, transcriptionID, segmentID, changes)
	seg, _ := args.Get(0).(*entities.Segment)
	return seg, args.Error(1)
}

func (m *mockBackend) DeleteSegment(ctx context.Context, transcriptionID, segmentID uuid.UUID) error {
	return m.Called(ctx, transcriptionID, segmentID).Error(0)
}

func (m *mockBackend) UpsertSpeaker(ctx context.Context, transcriptionID uuid.UUID, speaker entities.Speaker) error {
	return m.Called(ctx, transcriptionID, speaker).Error(0)
}

func (m *mockBackend) RemoveSpeaker(ctx context.Context, transcriptionID uuid.UUID, speakerID string) error {
	return m.Called(ctx, transcriptionID, speakerID).Error(0)
}

func (m *mockBackend) UpsertSection(ctx context.Context, transcriptionID uuid.UUID, section entities.Section) error {
	return m.Called(ctx, transcriptionID, section).Error(0)
}

func (m *mockBackend) RemoveSection(ctx context.Context, transcriptionID uuid.UUID, sectionID string) error {
	return m.Called(ctx, transcriptionID, sectionID).Error(0)
}

var errBackendDown = errors.New("backend unavailable")

func strPtr(s string) *string { return &s }

type fixture struct {
	editor    *Editor
	backend   *mockBackend
	tid       uuid.UUID
	first     entities.Segment
	published [][]entities.Segment
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tid := uuid.New()
	first := entities.Segment{ID: uuid.New(), TranscriptionID: tid, StartTime: 0, EndTime: 4, Text: "hello", SpeakerID: strPtr("agent")}
	doc := transcript.NewDocument(tid, []entities.Segment{first},
		map[string]entities.Speaker{"agent": {ID: "agent", Name: "Agent"}},
		map[string]entities.Section{})

	f := &fixture{backend: &mockBackend{}, tid: tid, first: first}
	f.editor = NewEditor(doc, f.backend, zap.NewNop())
	f.editor.Subscribe(func(list []entities.Segment) {
		f.published = append(f.published, list)
	})
	return f
}

// =============================================================================
// Update
// =============================================================================

func TestEditor_UpdateSuccessReplacesWithPersisted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	changes := transcript.SegmentChanges{Text: strPtr("hello there")}

	persisted := f.first
	persisted.Text = "hello there"
	persisted.Edited = true
	f.backend.On("UpdateSegment", ctx, f.tid, f.first.ID, changes).Return(&persisted, nil).Once()

	got, err := f.editor.Update(ctx, f.first.ID, changes)
	require.NoError(t, err)

	assert.Equal(t, "hello there", got.Text)
	assert.Equal(t, []entities.Segment{persisted}, f.editor.Segments())
	require.Len(t, f.published, 1)
	assert.Equal(t, persisted, f.published[0][0])
	f.backend.AssertExpectations(t)
}

func TestEditor_UpdateFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	before := f.editor.Segments()
	changes := transcript.SegmentChanges{Text: strPtr("typo"), EndTime: func() *float64 { v := 5.0; return &v }()}

	f.backend.On("UpdateSegment", ctx, f.tid, f.first.ID, changes).Return(nil, errBackendDown).Once()

	_, err := f.editor.Update(ctx, f.first.ID, changes)
	require.ErrorIs(t, err, errBackendDown)

	assert.Equal(t, before, f.editor.Segments())
	assert.Empty(t, f.published)
}

func TestEditor_UpdateInvalidNeverReachesBackend(t *testing.T) {
	f := newFixture(t)
	bad := -1.0

	_, err := f.editor.Update(context.Background(), f.first.ID, transcript.SegmentChanges{StartTime: &bad})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_INVALID_SEGMENT_TIMING))
	f.backend.AssertNotCalled(t, "UpdateSegment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// =============================================================================
// Create / Delete
// =============================================================================

func TestEditor_CreateInsertsSorted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := transcript.SegmentInput{StartTime: 10, EndTime: 12, Text: "later"}
	created := &entities.Segment{ID: uuid.New(), TranscriptionID: f.tid, StartTime: 10, EndTime: 12, Text: "later"}
	f.backend.On("CreateSegment", ctx, f.tid, in).Return(created, nil).Once()

	_, err := f.editor.Create(ctx, in)
	require.NoError(t, err)

	segs := f.editor.Segments()
	require.Len(t, segs, 2)
	assert.Equal(t, f.first.ID, segs[0].ID)
	assert.Equal(t, created.ID, segs[1].ID)
	require.Len(t, f.published, 1)
}

func TestEditor_CreateOverlapRejectedLocally(t *testing.T) {
	f := newFixture(t)

	_, err := f.editor.Create(context.Background(), transcript.SegmentInput{StartTime: 2, EndTime: 6})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_SEGMENT_OVERLAP))
	assert.Len(t, f.editor.Segments(), 1)
	f.backend.AssertNotCalled(t, "CreateSegment", mock.Anything, mock.Anything, mock.Anything)
}

func TestEditor_CreateFailureLeavesList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := transcript.SegmentInput{StartTime: 10, EndTime: 12}
	f.backend.On("CreateSegment", ctx, f.tid, in).Return(nil, errBackendDown).Once()

	_, err := f.editor.Create(ctx, in)
	require.Error(t, err)
	assert.Len(t, f.editor.Segments(), 1)
}

func TestEditor_DeleteRequiresConfirmation(t *testing.T) {
	f := newFixture(t)

	err := f.editor.Delete(context.Background(), f.first.ID, false)
	assert.ErrorIs(t, err, ErrConfirmationRequired)
	assert.Len(t, f.editor.Segments(), 1)
	f.backend.AssertNotCalled(t, "DeleteSegment", mock.Anything, mock.Anything, mock.Anything)
}

func TestEditor_DeleteConfirmed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.On("DeleteSegment", ctx, f.tid, f.first.ID).Return(nil).Once()

	require.NoError(t, f.editor.Delete(ctx, f.first.ID, true))
	assert.Empty(t, f.editor.Segments())
	require.Len(t, f.published, 1)
	assert.Empty(t, f.published[0])
}

func TestEditor_DeleteFailureKeepsSegment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.On("DeleteSegment", ctx, f.tid, f.first.ID).Return(errBackendDown).Once()

	require.Error(t, f.editor.Delete(ctx, f.first.ID, true))
	assert.Len(t, f.editor.Segments(), 1)
}

// =============================================================================
// Registries
// =============================================================================

func TestEditor_RemoveSpeakerFailureRestoresReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.On("RemoveSpeaker", ctx, f.tid, "agent").Return(errBackendDown).Once()

	require.Error(t, f.editor.RemoveSpeaker(ctx, "agent"))

	segs := f.editor.Segments()
	require.NotNil(t, segs[0].SpeakerID)
	assert.Equal(t, "agent", *segs[0].SpeakerID)
	_, ok := f.editor.Speakers()["agent"]
	assert.True(t, ok)
}

func TestEditor_RemoveSpeakerSuccessClears(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.On("RemoveSpeaker", ctx, f.tid, "agent").Return(nil).Once()

	require.NoError(t, f.editor.RemoveSpeaker(ctx, "agent"))
	assert.Nil(t, f.editor.Segments()[0].SpeakerID)
	require.Len(t, f.published, 1)
}

func TestEditor_UpsertSectionThenReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	section := entities.Section{ID: "greeting", Name: "Greeting", Color: "#fff"}
	f.backend.On("UpsertSection", ctx, f.tid, section).Return(nil).Once()

	require.NoError(t, f.editor.UpsertSection(ctx, section))
	assert.Contains(t, f.editor.Sections(), "greeting")

	changes := transcript.SegmentChanges{SectionType: transcript.To("greeting")}
	persisted := f.first
	persisted.SectionType = strPtr("greeting")
	f.backend.On("UpdateSegment", ctx, f.tid, f.first.ID, changes).Return(&persisted, nil).Once()

	got, err := f.editor.Update(ctx, f.first.ID, changes)
	require.NoError(t, err)
	assert.False(t, got.Edited)
}
