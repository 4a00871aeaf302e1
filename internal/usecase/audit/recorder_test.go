package audit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/johnquangdev/qa-review/internal/adapter/repository"
	"github.com/johnquangdev/qa-review/internal/domain/entities"
	"github.com/johnquangdev/qa-review/internal/testutil"
	"github.com/johnquangdev/qa-review/pkg/metrics"
)

type failingRepo struct {
	mu    sync.Mutex
	calls int
}

func (f *failingRepo) Create(context.Context, *entities.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return errors.New("database unavailable")
}

func TestRecorder_WritesEntries(t *testing.T) {
	// the sqlite handle is closed by t.Cleanup, after this check
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"))

	db := testutil.NewTestDB(t)
	rec := NewRecorder(repository.NewAuditLogRepository(db), zap.NewNop(), nil, 8)

	userID := uuid.New()
	rec.Record(context.Background(), Entry{
		UserID:     userID,
		Action:     ActionUpdate,
		Resource:   "segment",
		ResourceID: "seg-1",
		Details:    map[string]interface{}{"edited": true},
	})
	rec.Close()

	var logs []entities.AuditLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, userID, logs[0].UserID)
	assert.Equal(t, "segment", logs[0].Resource)
	assert.Equal(t, true, logs[0].Details["edited"])
}

func TestRecorder_FailuresAreCountedNotPropagated(t *testing.T) {
	defer goleak.VerifyNone(t)

	m, err := metrics.New()
	require.NoError(t, err)
	repo := &failingRepo{}
	rec := NewRecorder(repo, zap.NewNop(), m, 8)

	assert.NotPanics(t, func() {
		rec.Record(context.Background(), Entry{Action: ActionDelete, Resource: "criteria"})
		rec.Record(context.Background(), Entry{Action: ActionDelete, Resource: "criteria"})
	})
	rec.Close()

	assert.Equal(t, 2, repo.calls)
	expected := `
# HELP qa_review_audit_failures_total Audit records that could not be written
# TYPE qa_review_audit_failures_total counter
qa_review_audit_failures_total 2
`
	assert.NoError(t, promtestutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "qa_review_audit_failures_total"))
}

func TestRecorder_RecordAfterCloseIsDropped(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo := &failingRepo{}
	rec := NewRecorder(repo, nil, nil, 1)
	rec.Close()
	rec.Close()

	assert.NotPanics(t, func() {
		rec.Record(context.Background(), Entry{Action: ActionCreate})
	})
	assert.Zero(t, repo.calls)
}
