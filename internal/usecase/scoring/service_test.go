package scoring

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/johnquangdev/qa-review/errors"
	"github.com/johnquangdev/qa-review/internal/adapter/repository"
	"github.com/johnquangdev/qa-review/internal/domain/entities"
	"github.com/johnquangdev/qa-review/internal/testutil"
	"github.com/johnquangdev/qa-review/pkg/metrics"
)

func seedCriteria(t *testing.T, db *gorm.DB, owner entities.Subject) tree {
	t.Helper()
	tr := newTree()
	tr.criteria.CreatedBy = owner.UserID
	require.NoError(t, db.Create(tr.criteria).Error)
	return tr
}

func TestScore(t *testing.T) {
	db := testutil.NewTestDB(t)
	m, err := metrics.New()
	require.NoError(t, err)
	svc := NewService(repository.NewRepositories(db), repository.NewUnitOfWork(db), nil, m, zap.NewNop())
	owner := testutil.Manager()
	tr := seedCriteria(t, db, owner)
	ctx := context.Background()

	res, err := svc.Score(ctx, owner, tr.criteria.ID, Input{Results: []entities.MetricResult{
		{MetricID: tr.polite.ID, Value: true},
	}})
	require.NoError(t, err)
	assert.Equal(t, entities.ScoringMethodCategory, res.Method)
	require.NotNil(t, res.Overall)
	assert.InDelta(t, 100, *res.Overall, 1e-9)

	_, err = svc.Score(ctx, testutil.Reviewer(), tr.criteria.ID, Input{})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_UNAUTHORIZED))

	_, err = svc.Score(ctx, owner, uuid.New(), Input{})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_NOT_FOUND))

	expected := `
# HELP qa_review_scores_total Total number of computed scores by aggregation method
# TYPE qa_review_scores_total counter
qa_review_scores_total{method="CATEGORY"} 1
`
	assert.NoError(t, promtestutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "qa_review_scores_total"))
}

func TestSubmitEvaluation(t *testing.T) {
	ctx := context.Background()

	t.Run("stores evaluation and marks recording reviewed", func(t *testing.T) {
		db := testutil.NewTestDB(t)
		svc := NewService(repository.NewRepositories(db), repository.NewUnitOfWork(db), nil, nil, nil)
		owner := testutil.Manager()
		tr := seedCriteria(t, db, owner)
		rec := testutil.SeedRecording(t, db, owner, &tr.criteria.ID)

		eval, err := svc.SubmitEvaluation(ctx, owner, rec.ID, SubmitInput{
			Input: Input{Results: []entities.MetricResult{
				{MetricID: tr.empathy.ID, Value: float64(5)},
				{MetricID: tr.correct.ID, Value: true},
			}},
			Comment: "solid call",
		})
		require.NoError(t, err)
		require.NotNil(t, eval.OverallScore)
		assert.InDelta(t, 100, *eval.OverallScore, 1e-9)

		list, err := svc.ListEvaluations(ctx, owner, rec.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, entities.ScoringMethodCategory, list[0].Method)
		assert.Equal(t, "solid call", list[0].Comment)
		assert.Len(t, list[0].CategoryScores, 2)

		stored, err := repository.NewRecordingRepository(db).FindByID(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.RecordingStatusReviewed, stored.Status)
	})

	t.Run("recording without criteria needs one", func(t *testing.T) {
		db := testutil.NewTestDB(t)
		svc := NewService(repository.NewRepositories(db), repository.NewUnitOfWork(db), nil, nil, nil)
		owner := testutil.Manager()
		rec := testutil.SeedRecording(t, db, owner, nil)

		_, err := svc.SubmitEvaluation(ctx, owner, rec.ID, SubmitInput{})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_INVALID_ARGUMENT))
	})

	t.Run("invalid result stores nothing", func(t *testing.T) {
		db := testutil.NewTestDB(t)
		svc := NewService(repository.NewRepositories(db), repository.NewUnitOfWork(db), nil, nil, nil)
		owner := testutil.Manager()
		tr := seedCriteria(t, db, owner)
		rec := testutil.SeedRecording(t, db, owner, &tr.criteria.ID)

		_, err := svc.SubmitEvaluation(ctx, owner, rec.ID, SubmitInput{
			Input: Input{Results: []entities.MetricResult{{MetricID: tr.empathy.ID, Value: float64(9)}}},
		})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_INVALID_RESULT))

		var n int64
		require.NoError(t, db.Model(&entities.Evaluation{}).Count(&n).Error)
		assert.Zero(t, n)
	})

	t.Run("outsiders cannot evaluate", func(t *testing.T) {
		db := testutil.NewTestDB(t)
		svc := NewService(repository.NewRepositories(db), repository.NewUnitOfWork(db), nil, nil, nil)
		owner := testutil.Manager()
		tr := seedCriteria(t, db, owner)
		rec := testutil.SeedRecording(t, db, owner, &tr.criteria.ID)

		_, err := svc.SubmitEvaluation(ctx, testutil.Reviewer(), rec.ID, SubmitInput{})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_UNAUTHORIZED))
	})
}
