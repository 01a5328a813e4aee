package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AdaptiveAbility is the per-skill ability estimate. Sigma only shrinks over
// successive updates and is floored at 0.15.
type AdaptiveAbility struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProfileID uuid.UUID      `gorm:"type:uuid;not null;index:idx_profile_skill,unique" json:"profile_id"`
	SkillID   string         `gorm:"column:skill_id;not null;index:idx_profile_skill,unique" json:"skill_id"`
	Theta     float64        `gorm:"column:theta;not null" json:"theta"`
	Sigma     float64        `gorm:"column:sigma;not null" json:"sigma"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (AdaptiveAbility) TableName() string { return "adaptive_ability" }
