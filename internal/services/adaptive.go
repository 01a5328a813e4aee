package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/angie-backend/internal/logger"
	"github.com/yungbote/angie-backend/internal/repos"
	"github.com/yungbote/angie-backend/internal/types"
)

// Signal defaults applied when a channel is absent from the turn.
const (
	defaultAccuracy     = 0.6
	defaultResponseMs   = 6000
	defaultConfidence   = 2
	accuracyBaseline    = 0.65
	sigmaFloor          = 0.15
	defaultSkillID      = "structure.A2.default"
	remediationDrillID  = "remediate_drill"
	extensionDifficulty = 0.4
	drillDifficulty     = -0.2
)

type AdaptiveInput struct {
	ProfileID uuid.UUID
	LessonID  string
	StageID   string
	Signals   map[string]float64
}

type AdaptiveService interface {
	Recommend(ctx context.Context, input AdaptiveInput, plan *types.Plan) (*types.AdaptiveDecision, error)
}

type adaptiveService struct {
	db        *gorm.DB
	log       *logger.Logger
	abilities repos.AdaptiveAbilityRepo
	events    repos.AdaptiveEventRepo
	runs      repos.LessonRunRepo
}

func NewAdaptiveService(db *gorm.DB, baseLog *logger.Logger, abilities repos.AdaptiveAbilityRepo, events repos.AdaptiveEventRepo, runs repos.LessonRunRepo) AdaptiveService {
	return &adaptiveService{
		db:        db,
		log:       baseLog.With("service", "AdaptiveService"),
		abilities: abilities,
		events:    events,
		runs:      runs,
	}
}

func (s *adaptiveService) Recommend(ctx context.Context, input AdaptiveInput, plan *types.Plan) (*types.AdaptiveDecision, error) {
	skillID := defaultSkillID
	if len(plan.Targets) > 0 && plan.Targets[0].ID != "" {
		skillID = plan.Targets[0].ID
	}

	ability, err := s.abilities.GetOrCreate(ctx, nil, input.ProfileID, skillID)
	if err != nil {
		return nil, fmt.Errorf("load ability estimate: %w", err)
	}

	accuracy := signalOrDefault(input.Signals, "acc", defaultAccuracy)
	responseMs := signalOrDefault(input.Signals, "rt_ms", defaultResponseMs)
	confidence := signalOrDefault(input.Signals, "conf", defaultConfidence)

	newTheta, newSigma := updateAbility(ability.Theta, ability.Sigma, accuracy, responseMs)
	if err := s.abilities.UpdateEstimate(ctx, nil, ability.ID, newTheta, newSigma); err != nil {
		return nil, fmt.Errorf("persist ability estimate: %w", err)
	}

	action := selectAction(accuracy, confidence)
	decision := &types.AdaptiveDecision{
		LessonID: input.LessonID,
		StageID:  input.StageID,
		Ability: map[string]types.AbilitySnapshot{
			skillID: {Theta: newTheta, Sigma: newSigma},
		},
		Decision: types.Decision{
			Action: action,
			Delta:  actionDelta(action),
		},
		NextTask: pickNextTask(plan, action),
		Rationale: types.Rationale{
			Signals: map[string]float64{
				"acc":   math.Round(accuracy*100) / 100,
				"rt_ms": responseMs,
				"conf":  confidence,
			},
			Rule: describeRule(action, accuracy, confidence),
		},
	}

	if err := s.appendDecisionEvent(ctx, input, ability, decision); err != nil {
		return nil, fmt.Errorf("append decision event: %w", err)
	}

	s.log.Debug("Adaptive decision computed",
		"lesson_id", input.LessonID,
		"stage_id", input.StageID,
		"action", string(action),
		"rule", decision.Rationale.Rule,
	)
	return decision, nil
}

func (s *adaptiveService) appendDecisionEvent(ctx context.Context, input AdaptiveInput, before *types.AdaptiveAbility, decision *types.AdaptiveDecision) error {
	run, err := s.runs.GetByLessonID(ctx, nil, input.LessonID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("no lesson run for lesson %s", input.LessonID)
	}

	decisionJSON, _ := json.Marshal(decision)
	beforeJSON, _ := json.Marshal(types.AbilitySnapshot{Theta: before.Theta, Sigma: before.Sigma})
	var after types.AbilitySnapshot
	for _, snapshot := range decision.Ability {
		after = snapshot
	}
	afterJSON, _ := json.Marshal(after)
	signalsJSON, _ := json.Marshal(input.Signals)

	_, err = s.events.Create(ctx, nil, &types.AdaptiveEvent{
		LessonRunID:   run.ID,
		StageID:       input.StageID,
		Action:        string(decision.Decision.Action),
		Decision:      datatypes.JSON(decisionJSON),
		AbilityBefore: datatypes.JSON(beforeJSON),
		AbilityAfter:  datatypes.JSON(afterJSON),
		Signals:       datatypes.JSON(signalsJSON),
	})
	return err
}

func signalOrDefault(signals map[string]float64, key string, fallback float64) float64 {
	if signals == nil {
		return fallback
	}
	if v, ok := signals[key]; ok {
		return v
	}
	return fallback
}

// updateAbility applies the linear ability rule: accuracy above the 0.65
// baseline pushes theta up, slow responses (>8s) drag it down, and sigma
// shrinks by 10% per observation down to the floor.
func updateAbility(theta, sigma, accuracy, responseMs float64) (float64, float64) {
	slownessPenalty := math.Max(0, (responseMs-8000)/8000) * 0.1
	thetaDelta := (accuracy-accuracyBaseline)*0.8 - slownessPenalty
	newTheta := theta + thetaDelta
	newSigma := math.Max(sigmaFloor, sigma*0.9)
	return newTheta, newSigma
}

// selectAction is first-match-wins; the order is the contract.
func selectAction(accuracy, confidence float64) types.DecisionAction {
	if accuracy >= 0.75 && confidence >= 2 {
		return types.ActionAdvance
	}
	if accuracy < 0.45 {
		return types.ActionRemediate
	}
	return types.ActionRepeat
}

func actionDelta(action types.DecisionAction) int {
	switch action {
	case types.ActionAdvance:
		return 1
	case types.ActionRemediate:
		return -1
	default:
		return 0
	}
}

func pickNextTask(plan *types.Plan, action types.DecisionAction) *types.NextTask {
	if action == types.ActionAdvance {
		for _, stage := range plan.Stages {
			if stage.Kind == types.StageExtension {
				return &types.NextTask{
					ID:         stage.ID,
					Difficulty: extensionDifficulty,
					Variant:    "extension",
				}
			}
		}
		return nil
	}
	if action == types.ActionRemediate {
		return &types.NextTask{
			ID:         remediationDrillID,
			Difficulty: drillDifficulty,
			Variant:    "remediate",
		}
	}
	return nil
}

// describeRule tags the decision for audit trails; nothing branches on it.
func describeRule(action types.DecisionAction, accuracy, confidence float64) string {
	switch action {
	case types.ActionAdvance:
		return "IRT.confident_success"
	case types.ActionRemediate:
		if accuracy < 0.3 {
			return "IRT.high_error"
		}
		return "IRT.low_confidence"
	default:
		if confidence < 2 {
			return "IRT.monitor_confidence"
		}
		return "IRT.low_margin"
	}
}
