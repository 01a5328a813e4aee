package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type LessonRun struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	LessonID         string         `gorm:"column:lesson_id;not null;uniqueIndex" json:"lesson_id"`
	ProfileID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"profile_id"`
	TargetStructures datatypes.JSON `gorm:"type:jsonb;column:target_structures" json:"target_structures"`
	TargetVocab      datatypes.JSON `gorm:"type:jsonb;column:target_vocab" json:"target_vocab"`
	Feedback         datatypes.JSON `gorm:"type:jsonb;column:feedback" json:"feedback"`
	CreatedAt        time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (LessonRun) TableName() string { return "lesson_run" }
