package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/angie-backend/internal/logger"
	"github.com/yungbote/angie-backend/internal/types"
)

type LessonTemplateRepo interface {
	FindByCEFRAndTopic(ctx context.Context, tx *gorm.DB, cefr, topic string) (*types.LessonTemplate, error)
	Upsert(ctx context.Context, tx *gorm.DB, template *types.LessonTemplate) error
}

type lessonTemplateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonTemplateRepo(db *gorm.DB, baseLog *logger.Logger) LessonTemplateRepo {
	repoLog := baseLog.With("repo", "LessonTemplateRepo")
	return &lessonTemplateRepo{db: db, log: repoLog}
}

// FindByCEFRAndTopic returns (nil, nil) on a template miss; the planner
// treats that as a signal to synthesize its fallback sequence.
func (r *lessonTemplateRepo) FindByCEFRAndTopic(ctx context.Context, tx *gorm.DB, cefr, topic string) (*types.LessonTemplate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if cefr == "" && topic == "" {
		return nil, nil
	}

	query := transaction.WithContext(ctx).Model(&types.LessonTemplate{})
	if cefr != "" {
		query = query.Where("cefr = ?", cefr)
	}
	if topic != "" {
		query = query.Where("topic = ?", topic)
	}

	var results []*types.LessonTemplate
	if err := query.Limit(1).Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (r *lessonTemplateRepo) Upsert(ctx context.Context, tx *gorm.DB, template *types.LessonTemplate) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var existing []*types.LessonTemplate
	if err := transaction.WithContext(ctx).
		Where("cefr = ? AND topic = ?", template.CEFR, template.Topic).
		Limit(1).
		Find(&existing).Error; err != nil {
		return err
	}
	if len(existing) > 0 {
		return transaction.WithContext(ctx).
			Model(existing[0]).
			Update("stages", template.Stages).Error
	}
	return transaction.WithContext(ctx).Create(template).Error
}
