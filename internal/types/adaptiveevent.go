package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AdaptiveEvent is an append-only record of one adaptive decision. Rows are
// never mutated after creation.
type AdaptiveEvent struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	LessonRunID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"lesson_run_id"`
	StageID       string         `gorm:"column:stage_id;not null" json:"stage_id"`
	Action        string         `gorm:"column:action;not null" json:"action"`
	Decision      datatypes.JSON `gorm:"type:jsonb;column:decision" json:"decision"`
	AbilityBefore datatypes.JSON `gorm:"type:jsonb;column:ability_before" json:"ability_before"`
	AbilityAfter  datatypes.JSON `gorm:"type:jsonb;column:ability_after" json:"ability_after"`
	Signals       datatypes.JSON `gorm:"type:jsonb;column:signals" json:"signals"`
	CreatedAt     time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (AdaptiveEvent) TableName() string { return "adaptive_event" }
