package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TranscriptionStatus represents the lifecycle of a transcription
type TranscriptionStatus string

const (
	TranscriptionStatusPending   TranscriptionStatus = "pending"
	TranscriptionStatusCompleted TranscriptionStatus = "completed"
	TranscriptionStatusFailed    TranscriptionStatus = "failed"
)

// Speaker is an entry of the speaker registry
type Speaker struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// Section is an entry of the section registry
type Section struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Transcription is the stored transcript of one recording
type Transcription struct {
	ID           uuid.UUID           `json:"id" gorm:"type:uuid;primary_key"`
	RecordingID  uuid.UUID           `json:"recording_id" gorm:"type:uuid;not null;uniqueIndex"`
	Text         string              `json:"text" gorm:"type:text"`
	Status       TranscriptionStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending'"`
	Language     string              `json:"language,omitempty" gorm:"type:varchar(20)"`
	Confidence   *float64            `json:"confidence,omitempty"`
	ExternalID   *string             `json:"external_id,omitempty" gorm:"type:varchar(255);index"`
	SpeakerMap   map[string]Speaker  `json:"speaker_map" gorm:"type:jsonb;serializer:json"`
	Sections     map[string]Section  `json:"sections" gorm:"type:jsonb;serializer:json"`
	ContextNotes string              `json:"context_notes" gorm:"type:text"`
	EditedAt     *time.Time          `json:"edited_at,omitempty"`
	EditedByID   *uuid.UUID          `json:"edited_by_id,omitempty" gorm:"type:uuid"`
	Segments     []Segment           `json:"segments,omitempty" gorm:"foreignKey:TranscriptionID"`
	CreatedAt    time.Time           `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time           `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Transcription) TableName() string {
	return "transcriptions"
}

// BeforeCreate assigns an id when the caller did not
func (t *Transcription) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// NewTranscription creates an empty transcription for a recording
func NewTranscription(recordingID uuid.UUID) *Transcription {
	return &Transcription{
		ID:          uuid.New(),
		RecordingID: recordingID,
		Status:      TranscriptionStatusPending,
		SpeakerMap:  map[string]Speaker{},
		Sections:    map[string]Section{},
	}
}

// MarkEdited stamps the editor and time of a change
func (t *Transcription) MarkEdited(userID uuid.UUID, at time.Time) {
	t.EditedAt = &at
	t.EditedByID = &userID
}
