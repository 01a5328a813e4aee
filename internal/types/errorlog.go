package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ErrorLog struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProfileID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"profile_id"`
	LessonRunID uuid.UUID      `gorm:"type:uuid;not null;index" json:"lesson_run_id"`
	ErrorType   string         `gorm:"column:error_type;not null" json:"error_type"`
	Snippet     string         `gorm:"column:snippet;not null" json:"snippet"`
	Correction  string         `gorm:"column:correction;not null" json:"correction"`
	Severity    int            `gorm:"column:severity;not null" json:"severity"`
	OccurredAt  time.Time      `gorm:"column:occurred_at;not null;default:now();index" json:"occurred_at"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ErrorLog) TableName() string { return "error_log" }
