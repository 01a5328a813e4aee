package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/angie-backend/internal/logger"
	"github.com/yungbote/angie-backend/internal/repos"
	"github.com/yungbote/angie-backend/internal/types"
)

const defaultTopic = "travel_a2"

type HistoryEntry struct {
	TargetID string `json:"target_id"`
	Mistakes int    `json:"mistakes"`
}

type PlannerInput struct {
	ProfileID       uuid.UUID      `json:"profile_id"`
	CEFR            string         `json:"cefr,omitempty"`
	Goals           string         `json:"goals,omitempty"`
	History         []HistoryEntry `json:"history,omitempty"`
	PreferredTopics []string       `json:"preferred_topics,omitempty"`
}

type PlannerService interface {
	GeneratePlan(ctx context.Context, input PlannerInput) (*types.Plan, error)
}

type plannerService struct {
	db        *gorm.DB
	log       *logger.Logger
	plans     repos.LessonPlanRepo
	templates repos.LessonTemplateRepo
}

func NewPlannerService(db *gorm.DB, baseLog *logger.Logger, plans repos.LessonPlanRepo, templates repos.LessonTemplateRepo) PlannerService {
	return &plannerService{
		db:        db,
		log:       baseLog.With("service", "PlannerService"),
		plans:     plans,
		templates: templates,
	}
}

// planPayload is the jsonb shape stored on the lesson_plan row.
type planPayload struct {
	CEFR    string         `json:"cefr,omitempty"`
	Targets []types.Target `json:"targets"`
	Stages  []types.Stage  `json:"stages"`
}

func (s *plannerService) GeneratePlan(ctx context.Context, input PlannerInput) (*types.Plan, error) {
	lessonID := uuid.New().String()
	targets := pickTargets(input)

	topic := ""
	if len(input.PreferredTopics) > 0 {
		topic = input.PreferredTopics[0]
	}

	stages := s.lookupTemplateStages(ctx, input.CEFR, topic)
	if len(stages) == 0 {
		stages = fallbackStages(targets)
	}

	payload := planPayload{
		CEFR:    input.CEFR,
		Targets: targets,
		Stages:  stages,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal plan payload: %w", err)
	}

	if _, err := s.plans.Create(ctx, nil, &types.LessonPlan{
		LessonID:  lessonID,
		ProfileID: input.ProfileID,
		Plan:      datatypes.JSON(raw),
	}); err != nil {
		return nil, fmt.Errorf("persist lesson plan: %w", err)
	}

	s.log.Info("Generated lesson plan", "lesson_id", lessonID, "targets", len(targets), "stages", len(stages))

	return &types.Plan{
		LessonID: lessonID,
		CEFR:     input.CEFR,
		Targets:  targets,
		Stages:   stages,
		Branching: &types.Branching{
			OnHighError:   "repeat_task_variant_b",
			OnFastSuccess: "advance_to_extension",
		},
	}, nil
}

// lookupTemplateStages never surfaces an error; a template miss or a broken
// stages payload both mean "use the fallback sequence".
func (s *plannerService) lookupTemplateStages(ctx context.Context, cefr, topic string) []types.Stage {
	template, err := s.templates.FindByCEFRAndTopic(ctx, nil, cefr, topic)
	if err != nil {
		s.log.Warn("Lesson template lookup failed, using fallback stages", "cefr", cefr, "topic", topic, "error", err)
		return nil
	}
	if template == nil {
		return nil
	}
	var stages []types.Stage
	if err := json.Unmarshal(template.Stages, &stages); err != nil {
		s.log.Warn("Lesson template stages malformed, using fallback stages", "template_id", template.ID, "error", err)
		return nil
	}
	return stages
}

// pickTargets prefers the learner's two most mistake-heavy history targets as
// structure targets; with no history it derives a structure+vocab pair from
// the first preferred topic.
func pickTargets(input PlannerInput) []types.Target {
	sorted := make([]HistoryEntry, len(input.History))
	copy(sorted, input.History)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Mistakes > sorted[j].Mistakes
	})

	primary := make([]types.Target, 0, 2)
	for _, entry := range sorted {
		if len(primary) == 2 {
			break
		}
		primary = append(primary, types.Target{Type: types.TargetStructure, ID: entry.TargetID})
	}
	if len(primary) > 0 {
		return primary
	}

	topic := defaultTopic
	if len(input.PreferredTopics) > 0 && input.PreferredTopics[0] != "" {
		topic = input.PreferredTopics[0]
	}
	return []types.Target{
		{Type: types.TargetStructure, ID: topic + "_pattern"},
		{Type: types.TargetVocab, ID: topic},
	}
}

func fallbackStages(targets []types.Target) []types.Stage {
	topic := defaultTopic
	for _, target := range targets {
		if target.Type == types.TargetVocab {
			topic = target.ID
			break
		}
	}

	items := make([]types.StageItem, 0, len(targets))
	for _, target := range targets {
		itemType := "pattern"
		if target.Type == types.TargetVocab {
			itemType = "word"
		}
		items = append(items, types.StageItem{Type: itemType, ID: target.ID})
	}

	return []types.Stage{
		{
			ID:     "warmup",
			Kind:   types.StageDialogue,
			Goal:   "activate schema",
			Prompt: "Small talk about " + strings.ReplaceAll(topic, "_", " "),
		},
		{
			ID:   "input",
			Kind: types.StageModeling,
			Goal: "model target language",
			Materials: &types.StageMaterials{
				Examples: []string{"I didn't go", "We didn't travel"},
				KbRefs:   []string{"kb://default/past_simple"},
			},
		},
		{
			ID:     "task",
			Kind:   types.StageRoleplay,
			Goal:   "communicative practice",
			Prompt: "Roleplay booking a hostel room in English",
			Materials: &types.StageMaterials{
				Scenario:        "booking a hostel",
				SuccessCriteria: []string{"use past simple negation correctly at least three times"},
			},
			Timeouts: &types.StageTimeouts{Soft: 120},
		},
		{
			ID:   "feedback",
			Kind: types.StageFormative,
			Goal: "deliver corrective feedback",
			Materials: &types.StageMaterials{
				RubricRef: "rubric://a2/past_simple_clarity",
			},
		},
		{
			ID:    "review",
			Kind:  types.StageSRS,
			Goal:  "schedule spaced repetition",
			Items: items,
		},
	}
}
