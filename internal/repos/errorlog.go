package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/angie-backend/internal/logger"
	"github.com/yungbote/angie-backend/internal/types"
)

type ErrorLogRepo interface {
	Create(ctx context.Context, tx *gorm.DB, entries []*types.ErrorLog) ([]*types.ErrorLog, error)
	GetRecentByRunID(ctx context.Context, tx *gorm.DB, lessonRunID uuid.UUID, limit int) ([]*types.ErrorLog, error)
}

type errorLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewErrorLogRepo(db *gorm.DB, baseLog *logger.Logger) ErrorLogRepo {
	repoLog := baseLog.With("repo", "ErrorLogRepo")
	return &errorLogRepo{db: db, log: repoLog}
}

func (r *errorLogRepo) Create(ctx context.Context, tx *gorm.DB, entries []*types.ErrorLog) ([]*types.ErrorLog, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(entries) == 0 {
		return []*types.ErrorLog{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *errorLogRepo) GetRecentByRunID(ctx context.Context, tx *gorm.DB, lessonRunID uuid.UUID, limit int) ([]*types.ErrorLog, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ErrorLog
	if lessonRunID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("lesson_run_id = ?", lessonRunID).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
