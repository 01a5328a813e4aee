package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/angie-backend/internal/logger"
	"github.com/yungbote/angie-backend/internal/types"
)

func TestComputeSchedule_MapsDeltaToIntervalAndEase(t *testing.T) {
	cases := []struct {
		delta        int
		wantInterval int
		wantEase     float64
	}{
		{1, 3, 2.8},
		{-1, 1, 1.8},
		{0, 2, 2.3},
	}
	for _, tc := range cases {
		interval, ease := computeSchedule(tc.delta)
		if interval != tc.wantInterval {
			t.Fatalf("delta=%d: expected interval=%d got %d", tc.delta, tc.wantInterval, interval)
		}
		if math.Abs(ease-tc.wantEase) > 1e-9 {
			t.Fatalf("delta=%d: expected ease=%v got %v", tc.delta, tc.wantEase, ease)
		}
	}
}

func TestComputeSchedule_EaseNeverDropsBelowFloor(t *testing.T) {
	_, ease := computeSchedule(-5)
	if math.Abs(ease-1.3) > 1e-9 {
		t.Fatalf("expected ease floor 1.3 got %v", ease)
	}
}

type fakeSrsQueueRepo struct {
	items   []*types.SrsQueueItem
	due     []*types.SrsQueueItem
	lastAt  time.Time
	failAt  int
	upserts int
}

func (f *fakeSrsQueueRepo) Upsert(ctx context.Context, tx *gorm.DB, item *types.SrsQueueItem) error {
	f.upserts++
	if f.failAt > 0 && f.upserts == f.failAt {
		return errors.New("queue write failed")
	}
	f.items = append(f.items, item)
	return nil
}

func (f *fakeSrsQueueRepo) ListDue(ctx context.Context, tx *gorm.DB, profileID uuid.UUID, asOf time.Time) ([]*types.SrsQueueItem, error) {
	f.lastAt = asOf
	return f.due, nil
}

func newTestSrsService(queue *fakeSrsQueueRepo, now func() time.Time, committed *bool) *srsService {
	return &srsService{
		log:   logger.NewNop(),
		queue: queue,
		now:   now,
		runTx: func(ctx context.Context, fn func(tx *gorm.DB) error) error {
			err := fn(nil)
			if err == nil && committed != nil {
				*committed = true
			}
			return err
		},
	}
}

func TestSchedule_UpsertsOneItemPerTargetWithMappedTypes(t *testing.T) {
	queue := &fakeSrsQueueRepo{}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestSrsService(queue, func() time.Time { return now }, nil)

	profileID := uuid.New()
	plan := &types.Plan{
		LessonID: "lesson-1",
		Targets: []types.Target{
			{Type: types.TargetStructure, ID: "A2.past_simple_neg"},
			{Type: types.TargetVocab, ID: "travel_a2"},
		},
	}
	if err := svc.Schedule(context.Background(), profileID, plan, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(queue.items) != 2 {
		t.Fatalf("expected one item per target, got %d", len(queue.items))
	}
	pattern, word := queue.items[0], queue.items[1]
	if pattern.ItemType != types.SrsItemPattern || pattern.ItemID != "A2.past_simple_neg" {
		t.Fatalf("unexpected structure item: %+v", pattern)
	}
	if word.ItemType != types.SrsItemWord || word.ItemID != "travel_a2" {
		t.Fatalf("unexpected vocab item: %+v", word)
	}
	wantDue := now.AddDate(0, 0, 3)
	for _, item := range queue.items {
		if item.ProfileID != profileID {
			t.Fatalf("unexpected profile on item: %+v", item)
		}
		if !item.DueAt.Equal(wantDue) {
			t.Fatalf("expected due_at %v got %v", wantDue, item.DueAt)
		}
		if item.IntervalDays != 3 || math.Abs(item.Ease-2.8) > 1e-9 {
			t.Fatalf("unexpected schedule on item: %+v", item)
		}
	}
}

func TestSchedule_FailedUpsertRollsBackWholeUpdate(t *testing.T) {
	queue := &fakeSrsQueueRepo{failAt: 2}
	committed := false
	svc := newTestSrsService(queue, time.Now, &committed)

	plan := &types.Plan{
		LessonID: "lesson-1",
		Targets: []types.Target{
			{Type: types.TargetStructure, ID: "A2.past_simple_neg"},
			{Type: types.TargetVocab, ID: "travel_a2"},
			{Type: types.TargetVocab, ID: "food_a2"},
		},
	}
	err := svc.Schedule(context.Background(), uuid.New(), plan, 0)
	if err == nil {
		t.Fatalf("expected upsert failure to surface")
	}
	if committed {
		t.Fatalf("expected transaction not to commit after failed upsert")
	}
	if queue.upserts != 2 {
		t.Fatalf("expected loop to stop at failing target, got %d upserts", queue.upserts)
	}
}

func TestDueItems_DefaultsAsOfToNow(t *testing.T) {
	queue := &fakeSrsQueueRepo{due: []*types.SrsQueueItem{{ItemID: "travel_a2"}}}
	svc := &srsService{
		log:   logger.NewNop(),
		queue: queue,
		now:   func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	}

	items, err := svc.DueItems(context.Background(), uuid.New(), time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].ItemID != "travel_a2" {
		t.Fatalf("unexpected due items: %+v", items)
	}
	if !queue.lastAt.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected clock-injected asOf, got %v", queue.lastAt)
	}
}

func TestDueItems_PassesExplicitAsOfThrough(t *testing.T) {
	queue := &fakeSrsQueueRepo{}
	svc := &srsService{log: logger.NewNop(), queue: queue, now: time.Now}

	asOf := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	if _, err := svc.DueItems(context.Background(), uuid.New(), asOf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !queue.lastAt.Equal(asOf) {
		t.Fatalf("expected asOf passed through, got %v", queue.lastAt)
	}
}
