package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/angie-backend/internal/logger"
	"github.com/yungbote/angie-backend/internal/types"
)

type fakeLessonPlanRepo struct {
	created []*types.LessonPlan
	byID    map[string]*types.LessonPlan
	latest  *types.LessonPlan
}

func (f *fakeLessonPlanRepo) Create(ctx context.Context, tx *gorm.DB, plan *types.LessonPlan) (*types.LessonPlan, error) {
	f.created = append(f.created, plan)
	if f.byID == nil {
		f.byID = map[string]*types.LessonPlan{}
	}
	f.byID[plan.LessonID] = plan
	return plan, nil
}

func (f *fakeLessonPlanRepo) GetByLessonID(ctx context.Context, tx *gorm.DB, lessonID string) (*types.LessonPlan, error) {
	if plan, ok := f.byID[lessonID]; ok {
		return plan, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeLessonPlanRepo) GetLatestByProfileID(ctx context.Context, tx *gorm.DB, profileID uuid.UUID) (*types.LessonPlan, error) {
	return f.latest, nil
}

type fakeLessonTemplateRepo struct {
	template *types.LessonTemplate
	err      error
}

func (f *fakeLessonTemplateRepo) FindByCEFRAndTopic(ctx context.Context, tx *gorm.DB, cefr, topic string) (*types.LessonTemplate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.template, nil
}

func (f *fakeLessonTemplateRepo) Upsert(ctx context.Context, tx *gorm.DB, template *types.LessonTemplate) error {
	f.template = template
	return nil
}

func newTestPlanner(plans *fakeLessonPlanRepo, templates *fakeLessonTemplateRepo) PlannerService {
	return NewPlannerService(nil, logger.NewNop(), plans, templates)
}

func TestPickTargets_PrefersMistakeHeavyHistory(t *testing.T) {
	targets := pickTargets(PlannerInput{History: []HistoryEntry{
		{TargetID: "A2.articles", Mistakes: 1},
		{TargetID: "A2.past_simple_neg", Mistakes: 5},
		{TargetID: "A2.prepositions", Mistakes: 3},
	}})
	if len(targets) != 2 {
		t.Fatalf("expected two targets, got %d", len(targets))
	}
	if targets[0].ID != "A2.past_simple_neg" || targets[1].ID != "A2.prepositions" {
		t.Fatalf("unexpected target order: %+v", targets)
	}
	for _, target := range targets {
		if target.Type != types.TargetStructure {
			t.Fatalf("expected structure targets, got %+v", target)
		}
	}
}

func TestPickTargets_NoHistoryDerivesFromTopic(t *testing.T) {
	targets := pickTargets(PlannerInput{PreferredTopics: []string{"food_b1"}})
	if len(targets) != 2 {
		t.Fatalf("expected structure+vocab pair, got %+v", targets)
	}
	if targets[0].Type != types.TargetStructure || targets[0].ID != "food_b1_pattern" {
		t.Fatalf("unexpected structure target: %+v", targets[0])
	}
	if targets[1].Type != types.TargetVocab || targets[1].ID != "food_b1" {
		t.Fatalf("unexpected vocab target: %+v", targets[1])
	}
}

func TestPickTargets_EmptyInputUsesDefaultTopic(t *testing.T) {
	targets := pickTargets(PlannerInput{})
	if targets[1].ID != defaultTopic {
		t.Fatalf("expected default topic vocab target, got %+v", targets[1])
	}
}

func TestFallbackStages_ProducesFiveStageArc(t *testing.T) {
	stages := fallbackStages([]types.Target{
		{Type: types.TargetStructure, ID: "A2.past_simple_neg"},
		{Type: types.TargetVocab, ID: "travel_a2"},
	})
	wantIDs := []string{"warmup", "input", "task", "feedback", "review"}
	if len(stages) != len(wantIDs) {
		t.Fatalf("expected %d stages, got %d", len(wantIDs), len(stages))
	}
	for i, id := range wantIDs {
		if stages[i].ID != id {
			t.Fatalf("stage %d: expected %q got %q", i, id, stages[i].ID)
		}
	}
	review := stages[4]
	if review.Kind != types.StageSRS || len(review.Items) != 2 {
		t.Fatalf("unexpected review stage: %+v", review)
	}
	if review.Items[0].Type != "pattern" || review.Items[1].Type != "word" {
		t.Fatalf("unexpected review items: %+v", review.Items)
	}
}

func TestGeneratePlan_PersistsAndReturnsBranchingHints(t *testing.T) {
	plans := &fakeLessonPlanRepo{}
	svc := newTestPlanner(plans, &fakeLessonTemplateRepo{})

	plan, err := svc.GeneratePlan(context.Background(), PlannerInput{
		ProfileID: uuid.New(),
		CEFR:      "A2",
		History:   []HistoryEntry{{TargetID: "A2.past_simple_neg", Mistakes: 5}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.LessonID == "" {
		t.Fatalf("expected generated lesson id")
	}
	if len(plans.created) != 1 || plans.created[0].LessonID != plan.LessonID {
		t.Fatalf("expected persisted plan row, got %+v", plans.created)
	}
	if plan.Branching == nil ||
		plan.Branching.OnHighError != "repeat_task_variant_b" ||
		plan.Branching.OnFastSuccess != "advance_to_extension" {
		t.Fatalf("unexpected branching hints: %+v", plan.Branching)
	}
	if len(plan.Stages) != 5 {
		t.Fatalf("expected fallback stage arc, got %d stages", len(plan.Stages))
	}
}

func TestGeneratePlan_UsesTemplateStagesWhenPresent(t *testing.T) {
	stages := []types.Stage{
		{ID: "custom_warmup", Kind: types.StageDialogue},
		{ID: "custom_task", Kind: types.StageRoleplay},
	}
	raw, err := json.Marshal(stages)
	if err != nil {
		t.Fatalf("marshal stages: %v", err)
	}
	templates := &fakeLessonTemplateRepo{template: &types.LessonTemplate{
		CEFR:   "A2",
		Topic:  "travel_a2",
		Stages: datatypes.JSON(raw),
	}}
	svc := newTestPlanner(&fakeLessonPlanRepo{}, templates)

	plan, err := svc.GeneratePlan(context.Background(), PlannerInput{
		ProfileID:       uuid.New(),
		CEFR:            "A2",
		PreferredTopics: []string{"travel_a2"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Stages) != 2 || plan.Stages[0].ID != "custom_warmup" {
		t.Fatalf("expected template stages, got %+v", plan.Stages)
	}
}

func TestGeneratePlan_TemplateLookupFailureFallsBack(t *testing.T) {
	templates := &fakeLessonTemplateRepo{err: errors.New("db down")}
	svc := newTestPlanner(&fakeLessonPlanRepo{}, templates)

	plan, err := svc.GeneratePlan(context.Background(), PlannerInput{ProfileID: uuid.New()})
	if err != nil {
		t.Fatalf("expected silent fallback, got error: %v", err)
	}
	if len(plan.Stages) != 5 {
		t.Fatalf("expected fallback stages on lookup failure, got %d", len(plan.Stages))
	}
}
