package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/angie-backend/internal/logger"
	"github.com/yungbote/angie-backend/internal/types"
)

// ContentService produces the task framing and corrective feedback for one
// turn. Two implementations exist: a deterministic heuristic (default) and a
// provider-backed generator that falls back to the heuristic on any failure,
// so no turn ever fails on content generation.
type ContentService interface {
	GenerateTaskFeedback(ctx context.Context, plan *types.Plan, turn *types.TurnContext, retrieval *types.RetrievalResult) (*types.TaskFeedback, error)
}

type heuristicContent struct {
	log *logger.Logger
}

func NewHeuristicContentService(baseLog *logger.Logger) ContentService {
	return &heuristicContent{log: baseLog.With("service", "HeuristicContentService")}
}

const defaultTaskPrompt = "Let's practice your target structure."

func (s *heuristicContent) GenerateTaskFeedback(ctx context.Context, plan *types.Plan, turn *types.TurnContext, retrieval *types.RetrievalResult) (*types.TaskFeedback, error) {
	stage := plan.StageByID(turn.StageID)
	if stage == nil {
		return nil, fmt.Errorf("plan %s has no stages", plan.LessonID)
	}

	prompt := stage.Prompt
	if prompt == "" {
		prompt = defaultTaskPrompt
	}

	return &types.TaskFeedback{
		Task: types.Task{
			StageID: stage.ID,
			Prompt:  prompt,
			Targets: plan.Targets,
		},
		Feedback: types.Feedback{
			Summary:         composeSummary(stage, turn),
			Errors:          estimateErrors(turn),
			Recommendations: composeRecommendations(retrieval, stage),
		},
		Meta: types.FeedbackMeta{
			PronunciationScore: signalOrDefault(turn.Signals, "pron", 0.7),
			Confidence:         signalOrDefault(turn.Signals, "conf", defaultConfidence),
			SpeakingTimeMs:     signalOrDefault(turn.Signals, "rt_ms", 5000),
		},
	}, nil
}

func composeSummary(stage *types.Stage, turn *types.TurnContext) string {
	focus := stage.Goal
	if focus == "" {
		focus = string(stage.Kind)
	}
	base := fmt.Sprintf("Stage %s focused on %s.", stage.ID, focus)
	if strings.TrimSpace(turn.Transcript) == "" {
		return base + " You stayed mostly silent, so we should try again with more detail."
	}
	wordCount := len(strings.Fields(turn.Transcript))
	return fmt.Sprintf("%s You produced %d words and we will target clearer negative past forms.", base, wordCount)
}

// estimateErrors emits exactly one error per turn, tiered on what the
// transcript shows about the negative-past marker.
func estimateErrors(turn *types.TurnContext) []types.FeedbackError {
	if strings.TrimSpace(turn.Transcript) == "" {
		return []types.FeedbackError{{
			Type:       types.ErrorLex,
			Snippet:    "(no output)",
			Correction: "Try describing your last trip in at least three sentences.",
			Severity:   3,
		}}
	}

	if !strings.Contains(strings.ToLower(turn.Transcript), "didn't") {
		snippet := turn.Transcript
		if runes := []rune(snippet); len(runes) > 80 {
			snippet = string(runes[:80])
		}
		return []types.FeedbackError{{
			Type:       types.ErrorGram,
			Snippet:    snippet,
			Correction: "Use the auxiliary 'didn't' for negative past simple sentences.",
			Severity:   2,
		}}
	}

	return []types.FeedbackError{{
		Type:       types.ErrorPhon,
		Snippet:    "didn't",
		Correction: "Soften the /d/ release: say 'didn't' with a glottal stop.",
		Severity:   1,
	}}
}

// composeRecommendations keeps a fixed order: the stage's own success
// criteria, then up to two pedagogy docs, then at most one personal-memory
// reminder.
func composeRecommendations(retrieval *types.RetrievalResult, stage *types.Stage) []string {
	recommendations := []string{}
	if stage.Materials != nil {
		recommendations = append(recommendations, stage.Materials.SuccessCriteria...)
	}
	for i, doc := range retrieval.PedagogyDocs {
		if i == 2 {
			break
		}
		recommendations = append(recommendations, "Review "+doc.ID)
	}
	if len(retrieval.PersonalMemory) > 0 {
		recommendations = append(recommendations, "Revisit your earlier mistake: "+retrieval.PersonalMemory[0].Content)
	}
	return recommendations
}
