package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/angie-backend/internal/logger"
	"github.com/yungbote/angie-backend/internal/types"
)

type LessonPlanRepo interface {
	Create(ctx context.Context, tx *gorm.DB, plan *types.LessonPlan) (*types.LessonPlan, error)
	GetByLessonID(ctx context.Context, tx *gorm.DB, lessonID string) (*types.LessonPlan, error)
	GetLatestByProfileID(ctx context.Context, tx *gorm.DB, profileID uuid.UUID) (*types.LessonPlan, error)
}

type lessonPlanRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonPlanRepo(db *gorm.DB, baseLog *logger.Logger) LessonPlanRepo {
	repoLog := baseLog.With("repo", "LessonPlanRepo")
	return &lessonPlanRepo{db: db, log: repoLog}
}

func (r *lessonPlanRepo) Create(ctx context.Context, tx *gorm.DB, plan *types.LessonPlan) (*types.LessonPlan, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(plan).Error; err != nil {
		return nil, err
	}
	return plan, nil
}

func (r *lessonPlanRepo) GetByLessonID(ctx context.Context, tx *gorm.DB, lessonID string) (*types.LessonPlan, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.LessonPlan
	if err := transaction.WithContext(ctx).
		Where("lesson_id = ?", lessonID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *lessonPlanRepo) GetLatestByProfileID(ctx context.Context, tx *gorm.DB, profileID uuid.UUID) (*types.LessonPlan, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.LessonPlan
	if profileID == uuid.Nil {
		return nil, nil
	}

	if err := transaction.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Order("created_at DESC").
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}
