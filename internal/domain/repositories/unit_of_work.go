package repositories

import "context"

// Repositories groups the repositories bound to one database handle
type Repositories struct {
	Criteria       CriteriaRepository
	Recordings     RecordingRepository
	Transcriptions TranscriptionRepository
	Evaluations    EvaluationRepository
}

// UnitOfWork runs fn with repositories bound to a single transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
