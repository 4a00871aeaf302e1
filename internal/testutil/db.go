// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/johnquangdev/qa-review/internal/domain/entities"
)

// NewTestDB opens an in-memory sqlite database with every table migrated
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	// every connection to :memory: is a separate database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&entities.Criteria{},
		&entities.Category{},
		&entities.Metric{},
		&entities.Recording{},
		&entities.Transcription{},
		&entities.Segment{},
		&entities.Evaluation{},
		&entities.AuditLog{},
	))
	return db
}

// Admin returns an admin subject
func Admin() entities.Subject {
	return entities.Subject{UserID: uuid.New(), Role: entities.RoleAdmin}
}

// Manager returns a manager subject in the given teams
func Manager(teams ...uuid.UUID) entities.Subject {
	return entities.Subject{UserID: uuid.New(), Role: entities.RoleManager, TeamIDs: teams}
}

// Reviewer returns a reviewer subject in the given teams
func Reviewer(teams ...uuid.UUID) entities.Subject {
	return entities.Subject{UserID: uuid.New(), Role: entities.RoleReviewer, TeamIDs: teams}
}

// SeedRecording stores a recording owned by owner
func SeedRecording(t *testing.T, db *gorm.DB, owner entities.Subject, criteriaID *uuid.UUID) *entities.Recording {
	t.Helper()
	rec := &entities.Recording{
		Name:       "call.mp3",
		CreatedBy:  owner.UserID,
		CriteriaID: criteriaID,
		Status:     entities.RecordingStatusTranscribed,
	}
	require.NoError(t, db.Create(rec).Error)
	return rec
}

// SeedTranscription stores a transcription with the given segments and registries
func SeedTranscription(t *testing.T, db *gorm.DB, recordingID uuid.UUID, segments []entities.Segment, speakers map[string]entities.Speaker, sections map[string]entities.Section) *entities.Transcription {
	t.Helper()
	tr := entities.NewTranscription(recordingID)
	tr.Status = entities.TranscriptionStatusCompleted
	if speakers != nil {
		tr.SpeakerMap = speakers
	}
	if sections != nil {
		tr.Sections = sections
	}
	tr.Segments = segments
	require.NoError(t, db.Create(tr).Error)
	return tr
}
