package transcription

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	apperrors "github.com/johnquangdev/qa-review/errors"
	"github.com/johnquangdev/qa-review/internal/adapter/repository"
	"github.com/johnquangdev/qa-review/internal/domain/entities"
	"github.com/johnquangdev/qa-review/internal/domain/transcript"
	"github.com/johnquangdev/qa-review/internal/testutil"
	"github.com/johnquangdev/qa-review/internal/usecase/editor"
)

func strPtr(s string) *string { return &s }

type fixture struct {
	db    *gorm.DB
	svc   Service
	owner entities.Subject
	team  uuid.UUID
	tr    *entities.Transcription
	first uuid.UUID // [0, 4) agent, greeting
	last  uuid.UUID // [5, 9) customer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	team := uuid.New()
	owner := testutil.Manager(team)

	rec := testutil.SeedRecording(t, db, owner, nil)
	rec.TeamID = &team
	require.NoError(t, db.Save(rec).Error)

	first, last := uuid.New(), uuid.New()
	tr := testutil.SeedTranscription(t, db, rec.ID,
		[]entities.Segment{
			{ID: last, StartTime: 5, EndTime: 9, Text: "I need help", SpeakerID: strPtr("customer")},
			{ID: first, StartTime: 0, EndTime: 4, Text: "Hello, thanks for calling", SpeakerID: strPtr("agent"), SectionType: strPtr("greeting")},
		},
		map[string]entities.Speaker{
			"agent":    {ID: "agent", Name: "Agent", Role: "agent"},
			"customer": {ID: "customer", Name: "Customer", Role: "customer"},
		},
		map[string]entities.Section{
			"greeting": {ID: "greeting", Name: "Greeting", Color: "#00aa00"},
		})

	svc := NewService(repository.NewRepositories(db), repository.NewUnitOfWork(db), nil, nil, nil)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.(*transcriptionService).now = func() time.Time { return fixed }

	return &fixture{db: db, svc: svc, owner: owner, team: team, tr: tr, first: first, last: last}
}

func (f *fixture) reload(t *testing.T) *entities.Transcription {
	t.Helper()
	tr, err := repository.NewTranscriptionRepository(f.db).FindByID(context.Background(), f.tr.ID)
	require.NoError(t, err)
	require.NotNil(t, tr)
	return tr
}

// =============================================================================
// Reads
// =============================================================================

func TestGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v, err := f.svc.Get(ctx, f.owner, f.tr.ID)
	require.NoError(t, err)
	require.Len(t, v.Transcription.Segments, 2)
	assert.Equal(t, f.first, v.Transcription.Segments[0].ID)
	assert.Empty(t, v.Warnings)

	byRecording, err := f.svc.GetByRecording(ctx, testutil.Reviewer(f.team), f.tr.RecordingID)
	require.NoError(t, err)
	assert.Equal(t, f.tr.ID, byRecording.Transcription.ID)

	_, err = f.svc.Get(ctx, testutil.Reviewer(), f.tr.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_UNAUTHORIZED))

	_, err = f.svc.Get(ctx, f.owner, uuid.New())
	assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_NOT_FOUND))
}

func TestGet_ReportsLoadedOverlaps(t *testing.T) {
	f := newFixture(t)
	overlapping := entities.Segment{ID: uuid.New(), TranscriptionID: f.tr.ID, StartTime: 3, EndTime: 6, Text: "overlap"}
	require.NoError(t, f.db.Create(&overlapping).Error)

	v, err := f.svc.Get(context.Background(), f.owner, f.tr.ID)
	require.NoError(t, err)
	require.NotEmpty(t, v.Warnings)
	assert.Equal(t, transcript.WarningOverlap, v.Warnings[0].Code)
}

// =============================================================================
// Segments
// =============================================================================

func TestCreateSegment(t *testing.T) {
	ctx := context.Background()

	t.Run("stored and stamped", func(t *testing.T) {
		f := newFixture(t)
		seg, err := f.svc.CreateSegment(ctx, f.owner, f.tr.ID, transcript.SegmentInput{
			StartTime: 10, EndTime: 12, Text: "Anything else?", SpeakerID: strPtr("agent"),
		})
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, seg.ID)
		assert.False(t, seg.Edited)

		tr := f.reload(t)
		require.Len(t, tr.Segments, 3)
		assert.Equal(t, seg.ID, tr.Segments[2].ID)
		require.NotNil(t, tr.EditedByID)
		assert.Equal(t, f.owner.UserID, *tr.EditedByID)
		require.NotNil(t, tr.EditedAt)
	})

	t.Run("overlap rejected", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.CreateSegment(ctx, f.owner, f.tr.ID, transcript.SegmentInput{StartTime: 3, EndTime: 6, Text: "x"})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_SEGMENT_OVERLAP))
		assert.Len(t, f.reload(t).Segments, 2)
		assert.Nil(t, f.reload(t).EditedAt)
	})

	t.Run("adjacent allowed", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.CreateSegment(ctx, f.owner, f.tr.ID, transcript.SegmentInput{StartTime: 4, EndTime: 5, Text: "um"})
		assert.NoError(t, err)
	})

	t.Run("unknown speaker", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.CreateSegment(ctx, f.owner, f.tr.ID, transcript.SegmentInput{StartTime: 20, EndTime: 21, SpeakerID: strPtr("ghost")})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_UNKNOWN_REFERENCE))
	})

	t.Run("bad timing", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.CreateSegment(ctx, f.owner, f.tr.ID, transcript.SegmentInput{StartTime: 21, EndTime: 20})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_INVALID_SEGMENT_TIMING))
	})

	t.Run("team members may edit, outsiders may not", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.CreateSegment(ctx, testutil.Reviewer(f.team), f.tr.ID, transcript.SegmentInput{StartTime: 20, EndTime: 21})
		assert.NoError(t, err)
		_, err = f.svc.CreateSegment(ctx, testutil.Reviewer(), f.tr.ID, transcript.SegmentInput{StartTime: 30, EndTime: 31})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_UNAUTHORIZED))
	})
}

func TestUpdateSegment(t *testing.T) {
	ctx := context.Background()

	t.Run("text change sets edited", func(t *testing.T) {
		f := newFixture(t)
		text := "Hello, thank you for calling"
		seg, err := f.svc.UpdateSegment(ctx, f.owner, f.tr.ID, f.first, transcript.SegmentChanges{Text: &text})
		require.NoError(t, err)
		assert.True(t, seg.Edited)
		assert.Equal(t, text, f.reload(t).Segments[0].Text)
	})

	t.Run("speaker-only change does not set edited", func(t *testing.T) {
		f := newFixture(t)
		seg, err := f.svc.UpdateSegment(ctx, f.owner, f.tr.ID, f.last, transcript.SegmentChanges{SpeakerID: transcript.To("agent")})
		require.NoError(t, err)
		assert.False(t, seg.Edited)
		require.NotNil(t, f.reload(t).Segments[1].SpeakerID)
		assert.Equal(t, "agent", *f.reload(t).Segments[1].SpeakerID)
	})

	t.Run("moving start reorders", func(t *testing.T) {
		f := newFixture(t)
		start, end := 20.0, 22.0
		_, err := f.svc.UpdateSegment(ctx, f.owner, f.tr.ID, f.first, transcript.SegmentChanges{StartTime: &start, EndTime: &end})
		require.NoError(t, err)
		tr := f.reload(t)
		assert.Equal(t, []uuid.UUID{f.last, f.first}, []uuid.UUID{tr.Segments[0].ID, tr.Segments[1].ID})
	})

	t.Run("overlap leaves storage untouched", func(t *testing.T) {
		f := newFixture(t)
		end := 6.0
		_, err := f.svc.UpdateSegment(ctx, f.owner, f.tr.ID, f.first, transcript.SegmentChanges{EndTime: &end})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_SEGMENT_OVERLAP))
		assert.Equal(t, 4.0, f.reload(t).Segments[0].EndTime)
	})

	t.Run("text edit on a loaded overlap", func(t *testing.T) {
		f := newFixture(t)
		overlapping := entities.Segment{ID: uuid.New(), TranscriptionID: f.tr.ID, StartTime: 3, EndTime: 6, Text: "imported"}
		require.NoError(t, f.db.Create(&overlapping).Error)

		text := "Hello, thanks for calling us"
		seg, err := f.svc.UpdateSegment(ctx, f.owner, f.tr.ID, f.first, transcript.SegmentChanges{Text: &text})
		require.NoError(t, err)
		assert.Equal(t, text, seg.Text)

		_, err = f.svc.UpdateSegment(ctx, f.owner, f.tr.ID, overlapping.ID, transcript.SegmentChanges{SpeakerID: transcript.To("customer")})
		require.NoError(t, err)

		v, err := f.svc.Get(ctx, f.owner, f.tr.ID)
		require.NoError(t, err)
		require.NotEmpty(t, v.Warnings)
		assert.Equal(t, transcript.WarningOverlap, v.Warnings[0].Code)
	})

	t.Run("empty change", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.UpdateSegment(ctx, f.owner, f.tr.ID, f.first, transcript.SegmentChanges{})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_INVALID_ARGUMENT))
	})

	t.Run("missing segment", func(t *testing.T) {
		f := newFixture(t)
		text := "x"
		_, err := f.svc.UpdateSegment(ctx, f.owner, f.tr.ID, uuid.New(), transcript.SegmentChanges{Text: &text})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_NOT_FOUND))
	})
}

func TestEdit_MissingRecording(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Unscoped().Delete(&entities.Recording{}, "id = ?", f.tr.RecordingID).Error)

	text := "x"
	_, err := f.svc.UpdateSegment(context.Background(), f.owner, f.tr.ID, f.first, transcript.SegmentChanges{Text: &text})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_NOT_FOUND))
	assert.Equal(t, "Hello, thanks for calling", f.reload(t).Segments[0].Text)
}

func TestDeleteSegment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.DeleteSegment(ctx, f.owner, f.tr.ID, f.first))
	tr := f.reload(t)
	require.Len(t, tr.Segments, 1)
	assert.Equal(t, f.last, tr.Segments[0].ID)

	err := f.svc.DeleteSegment(ctx, f.owner, f.tr.ID, f.first)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_NOT_FOUND))
}

// =============================================================================
// Registries
// =============================================================================

func TestRemoveSpeaker_ClearsReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cleared, err := f.svc.RemoveSpeaker(ctx, f.owner, f.tr.ID, "agent")
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{f.first}, cleared)

	tr := f.reload(t)
	assert.NotContains(t, tr.SpeakerMap, "agent")
	assert.Len(t, tr.Segments, 2)
	assert.Nil(t, tr.Segments[0].SpeakerID)
	assert.False(t, tr.Segments[0].Edited)
	require.NotNil(t, tr.Segments[1].SpeakerID)

	_, err = f.svc.RemoveSpeaker(ctx, f.owner, f.tr.ID, "agent")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_NOT_FOUND))
}

func TestSections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.UpsertSection(ctx, f.owner, f.tr.ID, entities.Section{ID: "issue", Name: "Issue", Color: "#aa0000"}))
	_, err := f.svc.UpdateSegment(ctx, f.owner, f.tr.ID, f.last, transcript.SegmentChanges{SectionType: transcript.To("issue")})
	require.NoError(t, err)

	cleared, err := f.svc.RemoveSection(ctx, f.owner, f.tr.ID, "greeting")
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{f.first}, cleared)

	tr := f.reload(t)
	assert.Contains(t, tr.Sections, "issue")
	assert.NotContains(t, tr.Sections, "greeting")
	assert.Nil(t, tr.Segments[0].SectionType)
	require.NotNil(t, tr.Segments[1].SectionType)
	assert.Equal(t, "issue", *tr.Segments[1].SectionType)

	err = f.svc.UpsertSpeaker(ctx, f.owner, f.tr.ID, entities.Speaker{ID: "sup"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_INVALID_ARGUMENT))
}

func TestUpdateTranscription(t *testing.T) {
	f := newFixture(t)
	notes := "Escalated billing dispute"
	tr, err := f.svc.UpdateTranscription(context.Background(), f.owner, f.tr.ID, UpdateInput{ContextNotes: &notes})
	require.NoError(t, err)
	assert.Equal(t, notes, tr.ContextNotes)
	assert.Equal(t, notes, f.reload(t).ContextNotes)
	assert.Len(t, f.reload(t).Segments, 2)
}

// =============================================================================
// Editor session
// =============================================================================

func TestEditorSession_AgainstDatabase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ed, err := OpenEditor(ctx, f.svc, f.owner, f.tr.ID)
	require.NoError(t, err)

	var notified [][]entities.Segment
	ed.Subscribe(func(segs []entities.Segment) { notified = append(notified, segs) })

	text := "Hi there"
	_, err = ed.Update(ctx, f.first, transcript.SegmentChanges{Text: &text})
	require.NoError(t, err)

	end := 7.0
	_, err = ed.Update(ctx, f.first, transcript.SegmentChanges{EndTime: &end})
	require.Error(t, err)
	assert.Equal(t, 4.0, ed.Segments()[0].EndTime)

	assert.ErrorIs(t, ed.Delete(ctx, f.last, false), editor.ErrConfirmationRequired)
	require.NoError(t, ed.Delete(ctx, f.last, true))

	assert.Len(t, notified, 2)
	tr := f.reload(t)
	require.Len(t, tr.Segments, 1)
	assert.Equal(t, "Hi there", tr.Segments[0].Text)
}
