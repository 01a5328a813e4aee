package repos

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/angie-backend/internal/logger"
	"github.com/yungbote/angie-backend/internal/types"
)

type LessonRunRepo interface {
	Ensure(ctx context.Context, tx *gorm.DB, run *types.LessonRun) (*types.LessonRun, error)
	GetByLessonID(ctx context.Context, tx *gorm.DB, lessonID string) (*types.LessonRun, error)
	UpdateFeedback(ctx context.Context, tx *gorm.DB, lessonID string, feedback datatypes.JSON) error
}

type lessonRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonRunRepo(db *gorm.DB, baseLog *logger.Logger) LessonRunRepo {
	repoLog := baseLog.With("repo", "LessonRunRepo")
	return &lessonRunRepo{db: db, log: repoLog}
}

// Ensure creates the run for its lesson id if absent, otherwise leaves the
// existing row untouched, and returns the stored row either way.
func (r *lessonRunRepo) Ensure(ctx context.Context, tx *gorm.DB, run *types.LessonRun) (*types.LessonRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "lesson_id"}},
			DoNothing: true,
		}).
		Create(run).Error; err != nil {
		return nil, err
	}

	var stored types.LessonRun
	if err := transaction.WithContext(ctx).
		Where("lesson_id = ?", run.LessonID).
		First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *lessonRunRepo) GetByLessonID(ctx context.Context, tx *gorm.DB, lessonID string) (*types.LessonRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.LessonRun
	if err := transaction.WithContext(ctx).
		Where("lesson_id = ?", lessonID).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (r *lessonRunRepo) UpdateFeedback(ctx context.Context, tx *gorm.DB, lessonID string, feedback datatypes.JSON) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Model(&types.LessonRun{}).
		Where("lesson_id = ?", lessonID).
		Update("feedback", feedback).Error
}
