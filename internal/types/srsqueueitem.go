package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SrsItemWord    = "WORD"
	SrsItemPattern = "PATTERN"
)

type SrsQueueItem struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProfileID    uuid.UUID      `gorm:"type:uuid;not null;index:idx_profile_item,unique" json:"profile_id"`
	ItemID       string         `gorm:"column:item_id;not null;index:idx_profile_item,unique" json:"item_id"`
	ItemType     string         `gorm:"column:item_type;not null;index:idx_profile_item,unique" json:"item_type"`
	DueAt        time.Time      `gorm:"column:due_at;not null;index" json:"due_at"`
	Ease         float64        `gorm:"column:ease;not null" json:"ease"`
	IntervalDays int            `gorm:"column:interval_days;not null" json:"interval_days"`
	CreatedAt    time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (SrsQueueItem) TableName() string { return "srs_queue" }
