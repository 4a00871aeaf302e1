package criteria

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/johnquangdev/qa-review/errors"
	"github.com/johnquangdev/qa-review/internal/adapter/repository"
	"github.com/johnquangdev/qa-review/internal/domain/entities"
	"github.com/johnquangdev/qa-review/internal/domain/repositories"
	"github.com/johnquangdev/qa-review/internal/infrastructure/cache"
	"github.com/johnquangdev/qa-review/internal/testutil"
	"github.com/johnquangdev/qa-review/internal/usecase/audit"
)

type captureSink struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (c *captureSink) Record(_ context.Context, e audit.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
}

type failingUnitOfWork struct{}

func (failingUnitOfWork) Do(context.Context, func(context.Context, repositories.Repositories) error) error {
	return errors.New("connection reset")
}

// staleNames reports every name as free, as a concurrent writer would see it
type staleNames struct {
	repositories.CriteriaRepository
}

func (staleNames) CategoryNameExists(context.Context, uuid.UUID, string, *uuid.UUID) (bool, error) {
	return false, nil
}

func (staleNames) MetricNameExists(context.Context, uuid.UUID, string, *uuid.UUID) (bool, error) {
	return false, nil
}

// assignFirst runs before the transaction, as a concurrent evaluation would
type assignFirst struct {
	repositories.UnitOfWork
	before func()
}

func (u assignFirst) Do(ctx context.Context, fn func(context.Context, repositories.Repositories) error) error {
	u.before()
	return u.UnitOfWork.Do(ctx, fn)
}

type errUnitOfWork struct {
	err error
}

func (u errUnitOfWork) Do(context.Context, func(context.Context, repositories.Repositories) error) error {
	return u.err
}

type fixture struct {
	db      *gorm.DB
	svc     Service
	sink    *captureSink
	store   *cache.MemoryStore
	manager entities.Subject
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	sink := &captureSink{}
	store := cache.NewMemoryStore(time.Minute, time.Minute)
	svc := NewService(repository.NewRepositories(db), repository.NewUnitOfWork(db), store, time.Minute, sink, nil, zap.NewNop())
	return &fixture{db: db, svc: svc, sink: sink, store: store, manager: testutil.Manager()}
}

func supportInput() CriteriaInput {
	return CriteriaInput{
		Name:    "Support calls",
		Weights: entities.LegacyWeights{CustomerService: 40, ProductKnowledge: 30, CommunicationSkills: 20, ComplianceAdherence: 10},
		ChecklistItems: []entities.ChecklistSection{
			{ID: "open", Title: "Opening", Items: []entities.ChecklistItem{{ID: "greet", Text: "Greets caller"}}},
		},
		Categories: []CategoryInput{
			{Name: "Tone", Weight: 2, Metrics: []MetricInput{
				{Name: "Polite", Weight: 1, Type: entities.MetricTypeBoolean},
				{Name: "Empathy", Weight: 1, Type: entities.MetricTypeScale, ScaleMin: fPtr(1), ScaleMax: fPtr(5)},
			}},
			{Name: "Accuracy", Weight: 1, Metrics: []MetricInput{
				{Name: "Notes", Type: entities.MetricTypeText},
			}},
		},
	}
}

func (f *fixture) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

// =============================================================================
// Criteria
// =============================================================================

func TestCreateCriteria(t *testing.T) {
	ctx := context.Background()

	t.Run("persists nested tree", func(t *testing.T) {
		f := newFixture(t)
		c, err := f.svc.CreateCriteria(ctx, f.manager, supportInput())
		require.NoError(t, err)

		tree, err := f.svc.GetCriteria(ctx, f.manager, c.ID)
		require.NoError(t, err)
		require.Len(t, tree.Categories, 2)
		assert.Equal(t, "Tone", tree.Categories[0].Name)
		assert.Len(t, tree.Categories[0].Metrics, 2)
		assert.Equal(t, f.manager.UserID, tree.CreatedBy)
		require.Len(t, f.sink.entries, 1)
		assert.Equal(t, audit.ActionCreate, f.sink.entries[0].Action)
	})

	t.Run("invalid weights write nothing", func(t *testing.T) {
		f := newFixture(t)
		in := supportInput()
		in.Weights.ComplianceAdherence = 11
		_, err := f.svc.CreateCriteria(ctx, f.manager, in)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_INVALID_WEIGHTS))
		assert.Zero(t, f.count(t, &entities.Criteria{}))
	})

	t.Run("invalid nested metric writes nothing", func(t *testing.T) {
		f := newFixture(t)
		in := supportInput()
		in.Categories[1].Metrics = append(in.Categories[1].Metrics, MetricInput{
			Name: "Broken", Type: entities.MetricTypeScale, ScaleMin: fPtr(5), ScaleMax: fPtr(1),
		})
		_, err := f.svc.CreateCriteria(ctx, f.manager, in)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_INVALID_SCALE))
		assert.Zero(t, f.count(t, &entities.Criteria{}))
		assert.Zero(t, f.count(t, &entities.Category{}))
		assert.Zero(t, f.count(t, &entities.Metric{}))
	})

	t.Run("reviewers cannot create", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.CreateCriteria(ctx, testutil.Reviewer(), supportInput())
		assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_UNAUTHORIZED))
	})

	t.Run("team scope requires membership", func(t *testing.T) {
		f := newFixture(t)
		team := uuid.New()
		in := supportInput()
		in.TeamID = &team

		_, err := f.svc.CreateCriteria(ctx, f.manager, in)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_UNAUTHORIZED))

		_, err = f.svc.CreateCriteria(ctx, testutil.Manager(team), in)
		assert.NoError(t, err)

		_, err = f.svc.CreateCriteria(ctx, testutil.Admin(), in)
		assert.NoError(t, err)
	})
}

func TestUpdateCriteria(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c, err := f.svc.CreateCriteria(ctx, f.manager, supportInput())
	require.NoError(t, err)

	// warm the cache
	_, err = f.svc.GetCriteria(ctx, f.manager, c.ID)
	require.NoError(t, err)

	in := supportInput()
	in.Categories = nil
	in.Name = "Support calls v2"
	in.Weights = entities.LegacyWeights{CustomerService: 25, ProductKnowledge: 25, CommunicationSkills: 25, ComplianceAdherence: 25}

	t.Run("other users cannot modify", func(t *testing.T) {
		_, err := f.svc.UpdateCriteria(ctx, testutil.Manager(), c.ID, in)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_UNAUTHORIZED))
	})

	t.Run("owner update keeps categories and invalidates cache", func(t *testing.T) {
		updated, err := f.svc.UpdateCriteria(ctx, f.manager, c.ID, in)
		require.NoError(t, err)
		assert.Equal(t, "Support calls v2", updated.Name)
		assert.Len(t, updated.Categories, 2)

		got, err := f.svc.GetCriteria(ctx, f.manager, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "Support calls v2", got.Name)
		assert.Equal(t, 25, got.Weights.CustomerService)
	})

	t.Run("weights still validated", func(t *testing.T) {
		bad := in
		bad.Weights.CustomerService = 30
		_, err := f.svc.UpdateCriteria(ctx, f.manager, c.ID, bad)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_INVALID_WEIGHTS))
	})

	t.Run("nested categories rejected", func(t *testing.T) {
		_, err := f.svc.UpdateCriteria(ctx, f.manager, c.ID, supportInput())
		assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_INVALID_ARGUMENT))
	})

	t.Run("unknown criteria", func(t *testing.T) {
		_, err := f.svc.UpdateCriteria(ctx, f.manager, uuid.New(), in)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_NOT_FOUND))
	})
}

func TestDeleteCriteria(t *testing.T) {
	ctx := context.Background()

	t.Run("in use", func(t *testing.T) {
		f := newFixture(t)
		c, err := f.svc.CreateCriteria(ctx, f.manager, supportInput())
		require.NoError(t, err)
		testutil.SeedRecording(t, f.db, f.manager, &c.ID)

		err = f.svc.DeleteCriteria(ctx, f.manager, c.ID)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_IN_USE))
		assert.Equal(t, int64(1), f.count(t, &entities.Criteria{}))
		assert.Equal(t, int64(3), f.count(t, &entities.Metric{}))
	})

	t.Run("cascades", func(t *testing.T) {
		f := newFixture(t)
		c, err := f.svc.CreateCriteria(ctx, f.manager, supportInput())
		require.NoError(t, err)
		_, err = f.svc.GetCriteria(ctx, f.manager, c.ID)
		require.NoError(t, err)

		require.NoError(t, f.svc.DeleteCriteria(ctx, f.manager, c.ID))
		assert.Zero(t, f.count(t, &entities.Criteria{}))
		assert.Zero(t, f.count(t, &entities.Category{}))
		assert.Zero(t, f.count(t, &entities.Metric{}))

		_, err = f.svc.GetCriteria(ctx, f.manager, c.ID)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_NOT_FOUND))
	})

	t.Run("cascade failure is internal", func(t *testing.T) {
		f := newFixture(t)
		c, err := f.svc.CreateCriteria(ctx, f.manager, supportInput())
		require.NoError(t, err)

		svc := NewService(repository.NewRepositories(f.db), failingUnitOfWork{}, nil, 0, nil, nil, nil)
		err = svc.DeleteCriteria(ctx, f.manager, c.ID)
		assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(err))
		assert.Equal(t, int64(1), f.count(t, &entities.Criteria{}))
	})
}

func TestDeleteCriteria_ConcurrentAssignment(t *testing.T) {
	ctx := context.Background()

	t.Run("assignment after the pre-check is in use", func(t *testing.T) {
		f := newFixture(t)
		c, err := f.svc.CreateCriteria(ctx, f.manager, supportInput())
		require.NoError(t, err)

		uow := assignFirst{
			UnitOfWork: repository.NewUnitOfWork(f.db),
			before:     func() { testutil.SeedRecording(t, f.db, f.manager, &c.ID) },
		}
		svc := NewService(repository.NewRepositories(f.db), uow, nil, 0, nil, nil, nil)

		err = svc.DeleteCriteria(ctx, f.manager, c.ID)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_IN_USE))
		assert.Equal(t, int64(1), f.count(t, &entities.Criteria{}))
	})

	t.Run("foreign key violation is in use", func(t *testing.T) {
		f := newFixture(t)
		c, err := f.svc.CreateCriteria(ctx, f.manager, supportInput())
		require.NoError(t, err)

		uow := errUnitOfWork{err: fmt.Errorf("deleting criteria %s: %w", c.ID, repositories.ErrReferenced)}
		svc := NewService(repository.NewRepositories(f.db), uow, nil, 0, nil, nil, nil)

		err = svc.DeleteCriteria(ctx, f.manager, c.ID)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_IN_USE))
		assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
	})
}

func TestCategoryAndMetric_UniqueIndexIsDuplicateName(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c, err := f.svc.CreateCriteria(ctx, f.manager, supportInput())
	require.NoError(t, err)

	repos := repository.NewRepositories(f.db)
	repos.Criteria = staleNames{CriteriaRepository: repos.Criteria}
	svc := NewService(repos, repository.NewUnitOfWork(f.db), nil, 0, nil, nil, nil)

	_, err = svc.CreateCategory(ctx, f.manager, c.ID, CategoryInput{Name: "Tone"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_DUPLICATE_NAME))

	tree, err := f.svc.GetCriteria(ctx, f.manager, c.ID)
	require.NoError(t, err)
	tone := tree.Categories[0]
	require.Equal(t, "Tone", tone.Name)
	_, err = svc.CreateMetric(ctx, f.manager, c.ID, tone.ID, MetricInput{Name: "Polite", Type: entities.MetricTypeBoolean})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_DUPLICATE_NAME))
	assert.Equal(t, int64(3), f.count(t, &entities.Metric{}))
}

func TestGetAndListCriteria_Visibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	team := uuid.New()

	private, err := f.svc.CreateCriteria(ctx, f.manager, supportInput())
	require.NoError(t, err)

	teamIn := supportInput()
	teamIn.Name = "Team template"
	teamIn.TeamID = &team
	teamOwner := testutil.Manager(team)
	_, err = f.svc.CreateCriteria(ctx, teamOwner, teamIn)
	require.NoError(t, err)

	publicIn := supportInput()
	publicIn.Name = "Public template"
	publicIn.IsPublic = true
	_, err = f.svc.CreateCriteria(ctx, f.manager, publicIn)
	require.NoError(t, err)

	outsider := testutil.Reviewer()
	_, err = f.svc.GetCriteria(ctx, outsider, private.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_UNAUTHORIZED))

	list, total, err := f.svc.ListCriteria(ctx, outsider, "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, "Public template", list[0].Name)

	_, total, err = f.svc.ListCriteria(ctx, testutil.Reviewer(team), "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	_, total, err = f.svc.ListCriteria(ctx, testutil.Admin(), "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

// =============================================================================
// Categories and metrics
// =============================================================================

func TestCategoryOperations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c, err := f.svc.CreateCriteria(ctx, f.manager, supportInput())
	require.NoError(t, err)
	other, err := f.svc.CreateCriteria(ctx, f.manager, supportInput())
	require.NoError(t, err)

	t.Run("duplicate name", func(t *testing.T) {
		_, err := f.svc.CreateCategory(ctx, f.manager, c.ID, CategoryInput{Name: "Tone"})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_DUPLICATE_NAME))
	})

	t.Run("unknown criteria", func(t *testing.T) {
		_, err := f.svc.CreateCategory(ctx, f.manager, uuid.New(), CategoryInput{Name: "Closing"})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_NOT_FOUND))
	})

	t.Run("non owner", func(t *testing.T) {
		_, err := f.svc.CreateCategory(ctx, testutil.Manager(), c.ID, CategoryInput{Name: "Closing"})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_UNAUTHORIZED))
	})

	created, err := f.svc.CreateCategory(ctx, f.manager, c.ID, CategoryInput{Name: "Closing", Weight: 1, Position: 2})
	require.NoError(t, err)

	t.Run("update keeping the same name skips the uniqueness check", func(t *testing.T) {
		updated, err := f.svc.UpdateCategory(ctx, f.manager, c.ID, created.ID, CategoryInput{Name: "Closing", Weight: 5, Position: 2})
		require.NoError(t, err)
		assert.Equal(t, 5.0, updated.Weight)
	})

	t.Run("rename onto sibling", func(t *testing.T) {
		_, err := f.svc.UpdateCategory(ctx, f.manager, c.ID, created.ID, CategoryInput{Name: "Tone"})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_DUPLICATE_NAME))
	})

	t.Run("wrong parent is not found", func(t *testing.T) {
		_, err := f.svc.UpdateCategory(ctx, f.manager, other.ID, created.ID, CategoryInput{Name: "Closing"})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_NOT_FOUND))
		assert.True(t, apperrors.HasCode(f.svc.DeleteCategory(ctx, f.manager, other.ID, created.ID), apperrors.ErrorCode_NOT_FOUND))
	})

	t.Run("delete cascades metrics", func(t *testing.T) {
		tree, err := f.svc.GetCriteria(ctx, f.manager, c.ID)
		require.NoError(t, err)
		tone := tree.Categories[0]
		require.Equal(t, "Tone", tone.Name)

		before := f.count(t, &entities.Metric{})
		require.NoError(t, f.svc.DeleteCategory(ctx, f.manager, c.ID, tone.ID))
		assert.Equal(t, before-2, f.count(t, &entities.Metric{}))

		tree, err = f.svc.GetCriteria(ctx, f.manager, c.ID)
		require.NoError(t, err)
		for _, cat := range tree.Categories {
			assert.NotEqual(t, "Tone", cat.Name)
		}
	})
}

func TestMetricOperations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c, err := f.svc.CreateCriteria(ctx, f.manager, supportInput())
	require.NoError(t, err)
	tree, err := f.svc.GetCriteria(ctx, f.manager, c.ID)
	require.NoError(t, err)
	tone, accuracy := tree.Categories[0], tree.Categories[1]

	t.Run("invalid type", func(t *testing.T) {
		_, err := f.svc.CreateMetric(ctx, f.manager, c.ID, tone.ID, MetricInput{Name: "Stars", Type: "stars"})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_INVALID_TYPE))
	})

	t.Run("duplicate within category", func(t *testing.T) {
		_, err := f.svc.CreateMetric(ctx, f.manager, c.ID, tone.ID, MetricInput{Name: "Polite", Type: entities.MetricTypeBoolean})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_DUPLICATE_NAME))
	})

	t.Run("same name in another category", func(t *testing.T) {
		_, err := f.svc.CreateMetric(ctx, f.manager, c.ID, accuracy.ID, MetricInput{Name: "Polite", Type: entities.MetricTypeBoolean})
		assert.NoError(t, err)
	})

	m, err := f.svc.CreateMetric(ctx, f.manager, c.ID, tone.ID, MetricInput{
		Name: "Clarity", Weight: 2, Type: entities.MetricTypeScale, ScaleMin: fPtr(0), ScaleMax: fPtr(10),
		ScaleLabels: []entities.ScaleLabel{{Value: 0, Label: "unclear"}, {Value: 10, Label: "crisp"}},
	})
	require.NoError(t, err)

	t.Run("update re-checks scale", func(t *testing.T) {
		_, err := f.svc.UpdateMetric(ctx, f.manager, c.ID, tone.ID, m.ID, MetricInput{
			Name: "Clarity", Type: entities.MetricTypeScale, ScaleMin: fPtr(0), ScaleMax: fPtr(10),
			ScaleLabels: []entities.ScaleLabel{{Value: 11, Label: "beyond"}},
		})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_INVALID_SCALE))
	})

	t.Run("update to boolean drops bounds", func(t *testing.T) {
		updated, err := f.svc.UpdateMetric(ctx, f.manager, c.ID, tone.ID, m.ID, MetricInput{Name: "Clear", Weight: 1, Type: entities.MetricTypeBoolean})
		require.NoError(t, err)
		assert.Nil(t, updated.ScaleMin)

		stored, err := repository.NewCriteriaRepository(f.db).FindMetric(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, "Clear", stored.Name)
		assert.Equal(t, entities.MetricTypeBoolean, stored.Type)
		assert.Nil(t, stored.ScaleMax)
	})

	t.Run("metric under wrong category", func(t *testing.T) {
		_, err := f.svc.UpdateMetric(ctx, f.manager, c.ID, accuracy.ID, m.ID, MetricInput{Name: "Clear", Type: entities.MetricTypeBoolean})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_NOT_FOUND))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, f.svc.DeleteMetric(ctx, f.manager, c.ID, tone.ID, m.ID))
		err := f.svc.DeleteMetric(ctx, f.manager, c.ID, tone.ID, m.ID)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrorCode_NOT_FOUND))
	})
}
