package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/angie-backend/internal/logger"
	"github.com/yungbote/angie-backend/internal/types"
)

const (
	taskFeedbackSchemaName = "task_feedback"

	contentSystemPrompt = "You are Angie, an adaptive English tutor. Respond strictly with JSON following the provided schema."
)

type providerContent struct {
	log       *logger.Logger
	ai        OpenAIClient
	fallback  ContentService
	callLimit time.Duration
}

// NewProviderContentService wraps the heuristic generator with a
// provider-backed one. Every failure path (transport, timeout, refusal,
// schema violation) degrades to the fallback; callers never see an error
// caused by provider unavailability.
func NewProviderContentService(baseLog *logger.Logger, ai OpenAIClient, fallback ContentService, callLimit time.Duration) ContentService {
	if callLimit <= 0 {
		callLimit = 20 * time.Second
	}
	return &providerContent{
		log:       baseLog.With("service", "ProviderContentService"),
		ai:        ai,
		fallback:  fallback,
		callLimit: callLimit,
	}
}

func (s *providerContent) GenerateTaskFeedback(ctx context.Context, plan *types.Plan, turn *types.TurnContext, retrieval *types.RetrievalResult) (*types.TaskFeedback, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.callLimit)
	defer cancel()

	raw, err := s.ai.GenerateJSON(callCtx, contentSystemPrompt, buildContentPrompt(plan, turn, retrieval), taskFeedbackSchemaName, taskFeedbackSchema())
	if err != nil {
		s.log.Warn("Provider generation failed, falling back to heuristic feedback", "lesson_id", plan.LessonID, "error", err)
		return s.fallback.GenerateTaskFeedback(ctx, plan, turn, retrieval)
	}

	feedback, err := decodeTaskFeedback(raw)
	if err != nil {
		s.log.Warn("Provider returned malformed feedback, falling back to heuristic", "lesson_id", plan.LessonID, "error", err)
		return s.fallback.GenerateTaskFeedback(ctx, plan, turn, retrieval)
	}
	return feedback, nil
}

func buildContentPrompt(plan *types.Plan, turn *types.TurnContext, retrieval *types.RetrievalResult) string {
	stage := plan.StageByID(turn.StageID)

	targets := make([]string, 0, len(plan.Targets))
	for _, target := range plan.Targets {
		targets = append(targets, string(target.Type)+":"+target.ID)
	}
	docIDs := make([]string, 0, len(retrieval.PedagogyDocs))
	for _, doc := range retrieval.PedagogyDocs {
		docIDs = append(docIDs, doc.ID)
	}
	memory := make([]string, 0, len(retrieval.PersonalMemory))
	for _, item := range retrieval.PersonalMemory {
		memory = append(memory, item.Content)
	}

	transcript := turn.Transcript
	if transcript == "" {
		transcript = "(none)"
	}
	signals, _ := json.Marshal(turn.Signals)

	return strings.Join([]string{
		"Lesson ID: " + plan.LessonID,
		fmt.Sprintf("Current stage: %s (%s)", stage.ID, stage.Kind),
		"Targets: " + strings.Join(targets, ", "),
		"Learner transcript: " + transcript,
		"Signals: " + string(signals),
		"Relevant pedagogy docs: " + strings.Join(docIDs, ", "),
		"Personal memory: " + strings.Join(memory, " | "),
		"Return structured TASK+FEEDBACK JSON following the schema.",
	}, "\n")
}

// decodeTaskFeedback re-marshals the provider's loose map through the typed
// contract and rejects anything that would break downstream consumers.
func decodeTaskFeedback(raw map[string]any) (*types.TaskFeedback, error) {
	buf, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var feedback types.TaskFeedback
	if err := json.Unmarshal(buf, &feedback); err != nil {
		return nil, err
	}
	if feedback.Task.StageID == "" {
		return nil, fmt.Errorf("task.stage_id missing")
	}
	if feedback.Task.Prompt == "" {
		return nil, fmt.Errorf("task.prompt missing")
	}
	if feedback.Feedback.Summary == "" {
		return nil, fmt.Errorf("feedback.summary missing")
	}
	for i, fbErr := range feedback.Feedback.Errors {
		switch fbErr.Type {
		case types.ErrorPhon, types.ErrorGram, types.ErrorLex:
		default:
			return nil, fmt.Errorf("feedback.errors[%d].type %q invalid", i, fbErr.Type)
		}
		if fbErr.Severity < 1 || fbErr.Severity > 3 {
			return nil, fmt.Errorf("feedback.errors[%d].severity %d out of range", i, fbErr.Severity)
		}
	}
	if feedback.Feedback.Recommendations == nil {
		feedback.Feedback.Recommendations = []string{}
	}
	if feedback.Feedback.Errors == nil {
		feedback.Feedback.Errors = []types.FeedbackError{}
	}
	return &feedback, nil
}

func taskFeedbackSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"task", "feedback", "meta"},
		"properties": map[string]any{
			"task": map[string]any{
				"type":     "object",
				"required": []string{"stage_id", "prompt", "targets"},
				"properties": map[string]any{
					"stage_id": map[string]any{"type": "string"},
					"prompt":   map[string]any{"type": "string"},
					"targets": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type":     "object",
							"required": []string{"type", "id"},
							"properties": map[string]any{
								"type": map[string]any{"type": "string"},
								"id":   map[string]any{"type": "string"},
							},
						},
					},
				},
			},
			"feedback": map[string]any{
				"type":     "object",
				"required": []string{"summary", "errors", "recommendations"},
				"properties": map[string]any{
					"summary": map[string]any{"type": "string"},
					"errors": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type":     "object",
							"required": []string{"type", "snippet", "correction", "severity"},
							"properties": map[string]any{
								"type":       map[string]any{"type": "string", "enum": []string{"phon", "gram", "lex"}},
								"snippet":    map[string]any{"type": "string"},
								"correction": map[string]any{"type": "string"},
								"severity":   map[string]any{"type": "integer", "minimum": 1, "maximum": 3},
							},
						},
					},
					"recommendations": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "string"},
					},
				},
			},
			"meta": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"pronunciation_score": map[string]any{"type": "number"},
					"confidence":          map[string]any{"type": "number"},
					"speaking_time_ms":    map[string]any{"type": "number"},
				},
			},
		},
	}
}
