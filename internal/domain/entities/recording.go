package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecordingStatus represents the status of a recording
type RecordingStatus string

const (
	RecordingStatusUploaded     RecordingStatus = "uploaded"
	RecordingStatusTranscribing RecordingStatus = "transcribing"
	RecordingStatusTranscribed  RecordingStatus = "transcribed"
	RecordingStatusReviewed     RecordingStatus = "reviewed"
	RecordingStatusFailed       RecordingStatus = "failed"
)

// Recording represents a call recording under review
type Recording struct {
	ID              uuid.UUID       `json:"id" gorm:"type:uuid;primary_key"`
	Name            string          `json:"name" gorm:"type:varchar(255);not null"`
	CreatedBy       uuid.UUID       `json:"created_by" gorm:"type:uuid;not null;index"`
	TeamID          *uuid.UUID      `json:"team_id,omitempty" gorm:"type:uuid;index"`
	IsPublic        bool            `json:"is_public" gorm:"default:false;not null"`
	CriteriaID      *uuid.UUID      `json:"criteria_id,omitempty" gorm:"type:uuid;index"`
	AudioObjectKey  string          `json:"audio_object_key" gorm:"type:text"`
	Duration        *float64        `json:"duration,omitempty"`
	Status          RecordingStatus `json:"status" gorm:"type:varchar(20);not null;default:'uploaded';index"`
	ProcessingError *string         `json:"processing_error,omitempty" gorm:"type:text"`
	CreatedAt       time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Recording) TableName() string {
	return "recordings"
}

// BeforeCreate assigns an id when the caller did not
func (r *Recording) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (r *Recording) OwnerID() uuid.UUID { return r.CreatedBy }
func (r *Recording) TeamScope() *uuid.UUID { return r.TeamID }
func (r *Recording) Public() bool { return r.IsPublic }

// MarkAsTranscribed marks recording as transcribed
func (r *Recording) MarkAsTranscribed() {
	r.Status = RecordingStatusTranscribed
	r.ProcessingError = nil
}

// MarkAsFailed marks recording as failed
func (r *Recording) MarkAsFailed(errorMsg string) {
	r.Status = RecordingStatusFailed
	r.ProcessingError = &errorMsg
}

// MarkAsReviewed marks recording as reviewed
func (r *Recording) MarkAsReviewed() {
	r.Status = RecordingStatusReviewed
}
