package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LessonTemplate holds a curated stage sequence for a (cefr, topic) pair.
// The planner falls back to a synthesized sequence when no template matches.
type LessonTemplate struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CEFR      string         `gorm:"column:cefr;not null;index:idx_cefr_topic" json:"cefr"`
	Topic     string         `gorm:"column:topic;not null;index:idx_cefr_topic" json:"topic"`
	Stages    datatypes.JSON `gorm:"type:jsonb;column:stages;not null" json:"stages"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (LessonTemplate) TableName() string { return "lesson_template" }
