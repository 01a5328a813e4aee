package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/angie-backend/internal/logger"
	"github.com/yungbote/angie-backend/internal/repos"
	"github.com/yungbote/angie-backend/internal/types"
)

type SrsService interface {
	Schedule(ctx context.Context, profileID uuid.UUID, plan *types.Plan, performanceDelta int) error
	DueItems(ctx context.Context, profileID uuid.UUID, asOf time.Time) ([]*types.SrsQueueItem, error)
}

type srsService struct {
	db    *gorm.DB
	log   *logger.Logger
	queue repos.SrsQueueRepo
	now   func() time.Time
	runTx func(ctx context.Context, fn func(tx *gorm.DB) error) error
}

func NewSrsService(db *gorm.DB, baseLog *logger.Logger, queue repos.SrsQueueRepo) SrsService {
	return &srsService{
		db:    db,
		log:   baseLog.With("service", "SrsService"),
		queue: queue,
		now:   time.Now,
		runTx: func(ctx context.Context, fn func(tx *gorm.DB) error) error {
			return db.WithContext(ctx).Transaction(fn)
		},
	}
}

// Schedule upserts one review item per plan target inside a single
// transaction; a failed target rolls back the whole turn's review update.
func (s *srsService) Schedule(ctx context.Context, profileID uuid.UUID, plan *types.Plan, performanceDelta int) error {
	intervalDays, ease := computeSchedule(performanceDelta)
	dueAt := s.now().UTC().AddDate(0, 0, intervalDays)

	err := s.runTx(ctx, func(tx *gorm.DB) error {
		for _, target := range plan.Targets {
			itemType := types.SrsItemPattern
			if target.Type == types.TargetVocab {
				itemType = types.SrsItemWord
			}
			item := &types.SrsQueueItem{
				ProfileID:    profileID,
				ItemID:       target.ID,
				ItemType:     itemType,
				DueAt:        dueAt,
				Ease:         ease,
				IntervalDays: intervalDays,
			}
			if err := s.queue.Upsert(ctx, tx, item); err != nil {
				return fmt.Errorf("upsert review item %s/%s: %w", target.ID, itemType, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Debug("Review queue updated",
		"lesson_id", plan.LessonID,
		"targets", len(plan.Targets),
		"interval_days", intervalDays,
		"ease", ease,
	)
	return nil
}

func (s *srsService) DueItems(ctx context.Context, profileID uuid.UUID, asOf time.Time) ([]*types.SrsQueueItem, error) {
	if asOf.IsZero() {
		asOf = s.now().UTC()
	}
	return s.queue.ListDue(ctx, nil, profileID, asOf)
}

// computeSchedule maps the turn's performance delta to review timing:
// success stretches the interval to 3 days, failure pulls the item back to
// tomorrow, a neutral turn lands in between. Ease moves with the delta and
// never drops below 1.3.
func computeSchedule(performanceDelta int) (intervalDays int, ease float64) {
	switch {
	case performanceDelta > 0:
		intervalDays = 3
	case performanceDelta < 0:
		intervalDays = 1
	default:
		intervalDays = 2
	}
	ease = math.Max(1.3, 2.3+float64(performanceDelta)*0.5)
	return intervalDays, ease
}
