package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog records one mutation made through the API
type AuditLog struct {
	ID         uuid.UUID         `json:"id" gorm:"type:uuid;primary_key"`
	UserID     uuid.UUID         `json:"user_id" gorm:"type:uuid;not null;index"`
	Action     string            `json:"action" gorm:"type:varchar(100);not null"`
	Resource   string            `json:"resource" gorm:"type:varchar(100);not null;index:idx_audit_resource"`
	ResourceID string            `json:"resource_id" gorm:"type:varchar(255);index:idx_audit_resource"`
	Details    datatypes.JSONMap `json:"details,omitempty" gorm:"type:jsonb"`
	CreatedAt  time.Time         `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for GORM
func (AuditLog) TableName() string {
	return "audit_logs"
}

// BeforeCreate assigns an id when the caller did not
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
