package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/angie-backend/internal/logger"
	"github.com/yungbote/angie-backend/internal/types"
)

type SrsQueueRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, item *types.SrsQueueItem) error
	ListDue(ctx context.Context, tx *gorm.DB, profileID uuid.UUID, asOf time.Time) ([]*types.SrsQueueItem, error)
}

type srsQueueRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSrsQueueRepo(db *gorm.DB, baseLog *logger.Logger) SrsQueueRepo {
	repoLog := baseLog.With("repo", "SrsQueueRepo")
	return &srsQueueRepo{db: db, log: repoLog}
}

// Upsert writes the review item keyed by (profile_id, item_id, item_type),
// replacing timing fields on conflict.
func (r *srsQueueRepo) Upsert(ctx context.Context, tx *gorm.DB, item *types.SrsQueueItem) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "profile_id"}, {Name: "item_id"}, {Name: "item_type"}},
			DoUpdates: clause.AssignmentColumns([]string{"due_at", "ease", "interval_days", "updated_at"}),
		}).
		Create(item).Error
}

func (r *srsQueueRepo) ListDue(ctx context.Context, tx *gorm.DB, profileID uuid.UUID, asOf time.Time) ([]*types.SrsQueueItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.SrsQueueItem
	if profileID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("profile_id = ? AND due_at <= ?", profileID, asOf).
		Order("due_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
