package scoring

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/johnquangdev/qa-review/errors"
	"github.com/johnquangdev/qa-review/internal/domain/entities"
	"github.com/johnquangdev/qa-review/internal/domain/repositories"
	"github.com/johnquangdev/qa-review/internal/usecase/access"
	"github.com/johnquangdev/qa-review/internal/usecase/audit"
	"github.com/johnquangdev/qa-review/pkg/metrics"
)

// SubmitInput represents a reviewer's evaluation of a recording
type SubmitInput struct {
	// CriteriaID overrides the criteria assigned to the recording
	CriteriaID *uuid.UUID
	Input
	Comment string
}

// Service scores results against criteria and stores evaluations
type Service interface {
	Score(ctx context.Context, subject entities.Subject, criteriaID uuid.UUID, in Input) (*Result, error)
	SubmitEvaluation(ctx context.Context, subject entities.Subject, recordingID uuid.UUID, in SubmitInput) (*entities.Evaluation, error)
	ListEvaluations(ctx context.Context, subject entities.Subject, recordingID uuid.UUID) ([]*entities.Evaluation, error)
}

type scoringService struct {
	repos   repositories.Repositories
	uow     repositories.UnitOfWork
	auditor audit.Sink
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewService constructs a scoring service
func NewService(repos repositories.Repositories, uow repositories.UnitOfWork, auditor audit.Sink, m *metrics.Metrics, logger *zap.Logger) Service {
	if auditor == nil {
		auditor = audit.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &scoringService{repos: repos, uow: uow, auditor: auditor, metrics: m, logger: logger}
}

// Score computes a score without storing it
func (s *scoringService) Score(ctx context.Context, subject entities.Subject, criteriaID uuid.UUID, in Input) (*Result, error) {
	criteria, err := s.loadCriteria(ctx, subject, criteriaID)
	if err != nil {
		return nil, err
	}
	res, err := Aggregate(criteria, in)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordScore(string(res.Method))
	return res, nil
}

// SubmitEvaluation scores the input and stores it against the recording,
// marking the recording reviewed
func (s *scoringService) SubmitEvaluation(ctx context.Context, subject entities.Subject, recordingID uuid.UUID, in SubmitInput) (*entities.Evaluation, error) {
	recording, err := s.repos.Recordings.FindByID(ctx, recordingID)
	if err != nil {
		return nil, s.internal("failed to get recording", err)
	}
	if recording == nil {
		return nil, apperrors.ErrNotFound("Recording")
	}
	if !access.CanEdit(subject, recording) {
		return nil, apperrors.ErrUnauthorized("evaluate recording")
	}

	criteriaID := recording.CriteriaID
	if in.CriteriaID != nil {
		criteriaID = in.CriteriaID
	}
	if criteriaID == nil {
		return nil, apperrors.ErrInvalidArgument("recording has no criteria; criteria_id is required")
	}

	criteria, err := s.loadCriteria(ctx, subject, *criteriaID)
	if err != nil {
		return nil, err
	}
	res, err := Aggregate(criteria, in.Input)
	if err != nil {
		return nil, err
	}

	evaluation := &entities.Evaluation{
		RecordingID:    recording.ID,
		CriteriaID:     criteria.ID,
		ReviewerID:     subject.UserID,
		Method:         res.Method,
		OverallScore:   res.Overall,
		Results:        in.Results,
		CategoryScores: res.CategoryScores,
		DomainScores:   res.DomainScores,
		Comment:        in.Comment,
	}

	err = s.uow.Do(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		if err := repos.Evaluations.Create(ctx, evaluation); err != nil {
			return err
		}
		recording.CriteriaID = &criteria.ID
		recording.MarkAsReviewed()
		return repos.Recordings.Update(ctx, recording)
	})
	s.metrics.RecordMutation("evaluation", audit.ActionCreate, err)
	if err != nil {
		return nil, s.internal("failed to store evaluation", err)
	}
	s.metrics.RecordScore(string(res.Method))

	s.logger.Info("evaluation submitted",
		zap.String("evaluation_id", evaluation.ID.String()),
		zap.String("recording_id", recording.ID.String()),
		zap.String("method", string(res.Method)))
	details := map[string]interface{}{
		"criteria_id": criteria.ID.String(),
		"method":      string(res.Method),
	}
	if res.Overall != nil {
		details["overall_score"] = *res.Overall
	}
	s.auditor.Record(ctx, audit.Entry{
		UserID:     subject.UserID,
		Action:     audit.ActionCreate,
		Resource:   "evaluation",
		ResourceID: evaluation.ID.String(),
		Details:    details,
	})
	return evaluation, nil
}

// ListEvaluations returns the evaluations of a recording visible to subject
func (s *scoringService) ListEvaluations(ctx context.Context, subject entities.Subject, recordingID uuid.UUID) ([]*entities.Evaluation, error) {
	recording, err := s.repos.Recordings.FindByID(ctx, recordingID)
	if err != nil {
		return nil, s.internal("failed to get recording", err)
	}
	if recording == nil {
		return nil, apperrors.ErrNotFound("Recording")
	}
	if !access.IsAuthorized(subject, recording) {
		return nil, apperrors.ErrUnauthorized("view evaluations")
	}
	list, err := s.repos.Evaluations.ListByRecordingID(ctx, recordingID)
	if err != nil {
		return nil, s.internal("failed to list evaluations", err)
	}
	return list, nil
}

func (s *scoringService) loadCriteria(ctx context.Context, subject entities.Subject, id uuid.UUID) (*entities.Criteria, error) {
	criteria, err := s.repos.Criteria.FindTree(ctx, id)
	if err != nil {
		return nil, s.internal("failed to get criteria", err)
	}
	if criteria == nil {
		return nil, apperrors.ErrNotFound("Criteria")
	}
	if !access.IsAuthorized(subject, criteria) {
		return nil, apperrors.ErrUnauthorized("score with criteria")
	}
	return criteria, nil
}

func (s *scoringService) internal(msg string, err error) error {
	s.logger.Error(msg, zap.Error(err))
	return apperrors.ErrInternal(fmt.Errorf("%s: %w", msg, err))
}
