package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/angie-backend/internal/logger"
	"github.com/yungbote/angie-backend/internal/types"
)

type AdaptiveAbilityRepo interface {
	GetOrCreate(ctx context.Context, tx *gorm.DB, profileID uuid.UUID, skillID string) (*types.AdaptiveAbility, error)
	UpdateEstimate(ctx context.Context, tx *gorm.DB, id uuid.UUID, theta, sigma float64) error
}

type adaptiveAbilityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAdaptiveAbilityRepo(db *gorm.DB, baseLog *logger.Logger) AdaptiveAbilityRepo {
	repoLog := baseLog.With("repo", "AdaptiveAbilityRepo")
	return &adaptiveAbilityRepo{db: db, log: repoLog}
}

// GetOrCreate returns the ability row for (profileID, skillID), inserting the
// neutral prior (theta 0, sigma 0.5) when the learner has never been scored on
// the skill. The unique index on the pair serializes concurrent creates.
func (r *adaptiveAbilityRepo) GetOrCreate(ctx context.Context, tx *gorm.DB, profileID uuid.UUID, skillID string) (*types.AdaptiveAbility, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	row := &types.AdaptiveAbility{
		ProfileID: profileID,
		SkillID:   skillID,
		Theta:     0,
		Sigma:     0.5,
	}
	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "profile_id"}, {Name: "skill_id"}},
			DoNothing: true,
		}).
		Create(row).Error; err != nil {
		return nil, err
	}

	var stored types.AdaptiveAbility
	if err := transaction.WithContext(ctx).
		Where("profile_id = ? AND skill_id = ?", profileID, skillID).
		First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *adaptiveAbilityRepo) UpdateEstimate(ctx context.Context, tx *gorm.DB, id uuid.UUID, theta, sigma float64) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Model(&types.AdaptiveAbility{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"theta": theta,
			"sigma": sigma,
		}).Error
}
