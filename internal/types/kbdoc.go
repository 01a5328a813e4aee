package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type KbDoc struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ExternalRef string         `gorm:"column:external_ref;not null;uniqueIndex" json:"external_ref"`
	CEFR        string         `gorm:"column:cefr;index" json:"cefr"`
	Topic       string         `gorm:"column:topic;index" json:"topic"`
	Kind        string         `gorm:"column:kind" json:"kind"`
	Content     datatypes.JSON `gorm:"type:jsonb;column:content" json:"content"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (KbDoc) TableName() string { return "kb_doc" }
