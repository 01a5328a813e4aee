package repos

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/angie-backend/internal/logger"
	"github.com/yungbote/angie-backend/internal/types"
)

type KbDocRepo interface {
	Search(ctx context.Context, tx *gorm.DB, topics []string, cefr string, limit int) ([]*types.KbDoc, error)
	UpsertByExternalRef(ctx context.Context, tx *gorm.DB, doc *types.KbDoc) error
}

type kbDocRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewKbDocRepo(db *gorm.DB, baseLog *logger.Logger) KbDocRepo {
	repoLog := baseLog.With("repo", "KbDocRepo")
	return &kbDocRepo{db: db, log: repoLog}
}

// Search matches docs whose topic is one of the given topics or whose CEFR
// level equals cefr. With neither filter present it returns the newest docs.
func (r *kbDocRepo) Search(ctx context.Context, tx *gorm.DB, topics []string, cefr string, limit int) ([]*types.KbDoc, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	query := transaction.WithContext(ctx).Model(&types.KbDoc{})
	switch {
	case len(topics) > 0 && cefr != "":
		query = query.Where("topic IN ? OR cefr = ?", topics, cefr)
	case len(topics) > 0:
		query = query.Where("topic IN ?", topics)
	case cefr != "":
		query = query.Where("cefr = ?", cefr)
	}

	var results []*types.KbDoc
	if err := query.Limit(limit).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *kbDocRepo) UpsertByExternalRef(ctx context.Context, tx *gorm.DB, doc *types.KbDoc) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_ref"}},
			DoUpdates: clause.AssignmentColumns([]string{"cefr", "topic", "kind", "content", "updated_at"}),
		}).
		Create(doc).Error
}
