package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/angie-backend/internal/logger"
	"github.com/yungbote/angie-backend/internal/types"
)

type AdaptiveEventRepo interface {
	Create(ctx context.Context, tx *gorm.DB, event *types.AdaptiveEvent) (*types.AdaptiveEvent, error)
}

type adaptiveEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAdaptiveEventRepo(db *gorm.DB, baseLog *logger.Logger) AdaptiveEventRepo {
	repoLog := baseLog.With("repo", "AdaptiveEventRepo")
	return &adaptiveEventRepo{db: db, log: repoLog}
}

func (r *adaptiveEventRepo) Create(ctx context.Context, tx *gorm.DB, event *types.AdaptiveEvent) (*types.AdaptiveEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(event).Error; err != nil {
		return nil, err
	}
	return event, nil
}
