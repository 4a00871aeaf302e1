package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/johnquangdev/qa-review/internal/domain/repositories"
)

type unitOfWork struct {
	db *gorm.DB
}

// NewUnitOfWork creates a transaction runner over db
func NewUnitOfWork(db *gorm.DB) repositories.UnitOfWork {
	return &unitOfWork{db: db}
}

// NewRepositories binds every repository to db
func NewRepositories(db *gorm.DB) repositories.Repositories {
	return repositories.Repositories{
		Criteria:       NewCriteriaRepository(db),
		Recordings:     NewRecordingRepository(db),
		Transcriptions: NewTranscriptionRepository(db),
		Evaluations:    NewEvaluationRepository(db),
	}
}

// Do runs fn inside one transaction
func (u *unitOfWork) Do(ctx context.Context, fn func(ctx context.Context, repos repositories.Repositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, NewRepositories(tx))
	})
}
