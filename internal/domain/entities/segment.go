package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Segment is a time-coded piece of a transcription
type Segment struct {
	ID              uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	TranscriptionID uuid.UUID `json:"transcription_id" gorm:"type:uuid;not null;index"`
	StartTime       float64   `json:"start_time" gorm:"not null"`
	EndTime         float64   `json:"end_time" gorm:"not null"`
	Text            string    `json:"text" gorm:"type:text;not null"`
	SpeakerID       *string   `json:"speaker_id,omitempty" gorm:"type:varchar(100)"`
	SectionType     *string   `json:"section_type,omitempty" gorm:"type:varchar(100)"`
	Confidence      *float64  `json:"confidence,omitempty"`
	Edited          bool      `json:"edited" gorm:"default:false;not null"`
	CreatedAt       time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Segment) TableName() string {
	return "segments"
}

// BeforeCreate assigns an id when the caller did not
func (s *Segment) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
