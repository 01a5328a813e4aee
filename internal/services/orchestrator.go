package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/angie-backend/internal/logger"
	"github.com/yungbote/angie-backend/internal/repos"
	"github.com/yungbote/angie-backend/internal/types"
)

var (
	// ErrPlanNotFound aborts the turn when an explicitly requested lesson
	// plan does not exist. Never retried.
	ErrPlanNotFound = errors.New("lesson plan not found")
	// ErrPlanHasNoStages aborts the turn before any mutation when the
	// resolved plan has no stages to run.
	ErrPlanHasNoStages = errors.New("lesson plan has no stages")
)

type TurnInput struct {
	ProfileID  uuid.UUID
	LessonID   string
	StageID    string
	Transcript string
	Signals    map[string]float64
}

// OrchestratorService owns turn ordering: it resolves the plan, fans out
// pronunciation analysis and retrieval, generates and validates content,
// computes the adaptive decision, persists outcomes, schedules review, and
// reports the turn.
type OrchestratorService interface {
	StartLesson(ctx context.Context, input PlannerInput) (*types.Plan, error)
	HandleTurn(ctx context.Context, input TurnInput) (*types.TurnResult, error)
}

type orchestratorService struct {
	db            *gorm.DB
	log           *logger.Logger
	planner       PlannerService
	adaptive      AdaptiveService
	policy        PolicyService
	content       ContentService
	retrieval     RetrievalService
	pronunciation PronunciationService
	srs           SrsService
	runs          LessonRunService
	analytics     AnalyticsService
	plans         repos.LessonPlanRepo
}

func NewOrchestratorService(
	db *gorm.DB,
	baseLog *logger.Logger,
	planner PlannerService,
	adaptive AdaptiveService,
	policy PolicyService,
	content ContentService,
	retrieval RetrievalService,
	pronunciation PronunciationService,
	srs SrsService,
	runs LessonRunService,
	analytics AnalyticsService,
	plans repos.LessonPlanRepo,
) OrchestratorService {
	return &orchestratorService{
		db:            db,
		log:           baseLog.With("service", "OrchestratorService"),
		planner:       planner,
		adaptive:      adaptive,
		policy:        policy,
		content:       content,
		retrieval:     retrieval,
		pronunciation: pronunciation,
		srs:           srs,
		runs:          runs,
		analytics:     analytics,
		plans:         plans,
	}
}

func (s *orchestratorService) StartLesson(ctx context.Context, input PlannerInput) (*types.Plan, error) {
	plan, err := s.planner.GeneratePlan(ctx, input)
	if err != nil {
		return nil, err
	}
	if _, err := s.runs.EnsureRun(ctx, input.ProfileID, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *orchestratorService) HandleTurn(ctx context.Context, input TurnInput) (*types.TurnResult, error) {
	plan, err := s.resolvePlan(ctx, input.ProfileID, input.LessonID)
	if err != nil {
		return nil, err
	}

	// Stage precondition before any mutation.
	stage := plan.StageByID(input.StageID)
	if stage == nil {
		return nil, ErrPlanHasNoStages
	}

	if _, err := s.runs.EnsureRun(ctx, input.ProfileID, plan); err != nil {
		return nil, err
	}

	var promptPolicy types.PolicyResult
	if stage.Prompt != "" {
		promptPolicy = s.policy.ValidatePrompt(stage.Prompt)
	} else {
		promptPolicy = types.PolicyResult{Valid: true, Violations: []types.PolicyViolation{}}
	}

	// Pronunciation analysis and retrieval are independent; run both before
	// content generation joins on their output.
	var (
		analysis        PronunciationAnalysis
		retrievalResult *types.RetrievalResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		analysis = s.pronunciation.Analyze(input.Transcript)
		return nil
	})
	g.Go(func() error {
		var retrieveErr error
		retrievalResult, retrieveErr = s.retrieval.Retrieve(gctx, plan)
		return retrieveErr
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	signals := make(map[string]float64, len(input.Signals)+1)
	for k, v := range input.Signals {
		signals[k] = v
	}
	signals["pron"] = analysis.Score

	turn := &types.TurnContext{
		ProfileID:  input.ProfileID,
		LessonID:   plan.LessonID,
		StageID:    stage.ID,
		Transcript: input.Transcript,
		Signals:    signals,
	}

	feedback, err := s.content.GenerateTaskFeedback(ctx, plan, turn, retrievalResult)
	if err != nil {
		return nil, fmt.Errorf("generate task feedback: %w", err)
	}
	feedback.Feedback.Recommendations = append(feedback.Feedback.Recommendations, analysis.Hints...)

	feedbackPolicy := s.policy.ValidateFeedback(feedback.Feedback)
	policyViolations := append(append([]types.PolicyViolation{}, promptPolicy.Violations...), feedbackPolicy.Violations...)

	decision, err := s.adaptive.Recommend(ctx, AdaptiveInput{
		ProfileID: input.ProfileID,
		LessonID:  plan.LessonID,
		StageID:   stage.ID,
		Signals:   signals,
	}, plan)
	if err != nil {
		return nil, err
	}

	if err := s.runs.RecordFeedback(ctx, plan.LessonID, feedback); err != nil {
		return nil, err
	}
	if err := s.srs.Schedule(ctx, input.ProfileID, plan, decision.Decision.Delta); err != nil {
		return nil, err
	}

	violationCodes := make([]string, 0, len(policyViolations))
	for _, violation := range policyViolations {
		violationCodes = append(violationCodes, violation.Code)
	}
	s.analytics.Record(ctx, input.ProfileID, []types.TurnEvent{{
		Name: "lesson_turn",
		Props: map[string]any{
			"lesson_id":         plan.LessonID,
			"stage_id":          stage.ID,
			"decision":          string(decision.Decision.Action),
			"policy_violations": violationCodes,
		},
	}})

	result := &types.TurnResult{
		Plan:             plan,
		Task:             feedback.Task,
		Feedback:         feedback.Feedback,
		AdaptiveDecision: decision,
		Telemetry: types.Telemetry{
			Events: []types.TurnEvent{{
				Name: "lesson_turn",
				Props: map[string]any{
					"signals":   signals,
					"next_task": decision.NextTask,
				},
			}},
		},
	}
	if len(policyViolations) > 0 {
		result.PolicyViolations = policyViolations
	}

	s.log.Info("Turn completed",
		"lesson_id", plan.LessonID,
		"stage_id", stage.ID,
		"action", string(decision.Decision.Action),
		"policy_violations", len(policyViolations),
	)
	return result, nil
}

// resolvePlan loads the exact plan when a lesson id is supplied (missing plan
// is fatal), otherwise reuses the profile's most recent plan or synthesizes a
// fresh one through the planner.
func (s *orchestratorService) resolvePlan(ctx context.Context, profileID uuid.UUID, lessonID string) (*types.Plan, error) {
	if lessonID != "" {
		row, err := s.plans.GetByLessonID(ctx, nil, lessonID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrPlanNotFound
			}
			return nil, fmt.Errorf("load lesson plan: %w", err)
		}
		return hydratePlan(row)
	}

	row, err := s.plans.GetLatestByProfileID(ctx, nil, profileID)
	if err != nil {
		return nil, fmt.Errorf("load latest lesson plan: %w", err)
	}
	if row != nil {
		return hydratePlan(row)
	}

	plan, err := s.planner.GeneratePlan(ctx, PlannerInput{ProfileID: profileID})
	if err != nil {
		return nil, err
	}
	if _, err := s.runs.EnsureRun(ctx, profileID, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func hydratePlan(row *types.LessonPlan) (*types.Plan, error) {
	var plan types.Plan
	if len(row.Plan) > 0 {
		if err := json.Unmarshal(row.Plan, &plan); err != nil {
			return nil, fmt.Errorf("decode stored plan %s: %w", row.LessonID, err)
		}
	}
	plan.LessonID = row.LessonID
	if plan.Targets == nil {
		plan.Targets = []types.Target{}
	}
	if plan.Stages == nil {
		plan.Stages = []types.Stage{}
	}
	return &plan, nil
}
