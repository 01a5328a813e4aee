package services

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/yungbote/angie-backend/internal/logger"
	"github.com/yungbote/angie-backend/internal/types"
)

func contentPlan() *types.Plan {
	return &types.Plan{
		LessonID: "lesson-1",
		Targets: []types.Target{
			{Type: types.TargetStructure, ID: "A2.past_simple_neg"},
			{Type: types.TargetVocab, ID: "travel_a2"},
		},
		Stages: []types.Stage{
			{ID: "warmup", Kind: types.StageDialogue, Prompt: "Small talk about travel"},
			{
				ID:     "task",
				Kind:   types.StageRoleplay,
				Goal:   "communicative practice",
				Prompt: "Roleplay booking a hostel room in English",
				Materials: &types.StageMaterials{
					SuccessCriteria: []string{"use past simple negation correctly at least three times"},
				},
			},
		},
	}
}

func contentTurn(transcript string) *types.TurnContext {
	return &types.TurnContext{
		LessonID:   "lesson-1",
		StageID:    "task",
		Transcript: transcript,
		Signals:    map[string]float64{"acc": 0.8, "rt_ms": 4000, "conf": 3, "pron": 0.63},
	}
}

func emptyRetrieval() *types.RetrievalResult {
	return &types.RetrievalResult{PersonalMemory: []types.ScoredDoc{}, PedagogyDocs: []types.ScoredDoc{}}
}

func TestHeuristicContent_IsDeterministic(t *testing.T) {
	svc := NewHeuristicContentService(logger.NewNop())
	first, err := svc.GenerateTaskFeedback(context.Background(), contentPlan(), contentTurn("I didn't went"), emptyRetrieval())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.GenerateTaskFeedback(context.Background(), contentPlan(), contentTurn("I didn't went"), emptyRetrieval())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical output for identical input:\n%+v\n%+v", first, second)
	}
}

func TestHeuristicContent_SilentTurnEmitsLexError(t *testing.T) {
	svc := NewHeuristicContentService(logger.NewNop())
	out, err := svc.GenerateTaskFeedback(context.Background(), contentPlan(), contentTurn(""), emptyRetrieval())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Feedback.Errors) != 1 {
		t.Fatalf("expected exactly one error, got %+v", out.Feedback.Errors)
	}
	fbErr := out.Feedback.Errors[0]
	if fbErr.Type != types.ErrorLex || fbErr.Severity != 3 || fbErr.Snippet != "(no output)" {
		t.Fatalf("unexpected silent-turn error: %+v", fbErr)
	}
}

func TestHeuristicContent_MissingAuxiliaryEmitsGramError(t *testing.T) {
	svc := NewHeuristicContentService(logger.NewNop())
	out, err := svc.GenerateTaskFeedback(context.Background(), contentPlan(), contentTurn("I no go yesterday"), emptyRetrieval())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fbErr := out.Feedback.Errors[0]
	if fbErr.Type != types.ErrorGram || fbErr.Severity != 2 {
		t.Fatalf("unexpected grammar error: %+v", fbErr)
	}
	if fbErr.Snippet != "I no go yesterday" {
		t.Fatalf("expected transcript snippet, got %q", fbErr.Snippet)
	}
}

func TestHeuristicContent_LongTranscriptSnippetTruncatesAt80(t *testing.T) {
	svc := NewHeuristicContentService(logger.NewNop())
	transcript := strings.Repeat("we walk slow ", 20)
	out, err := svc.GenerateTaskFeedback(context.Background(), contentPlan(), contentTurn(transcript), emptyRetrieval())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(out.Feedback.Errors[0].Snippet); got != 80 {
		t.Fatalf("expected 80-char snippet, got %d", got)
	}
}

func TestHeuristicContent_SnippetTruncationKeepsValidUTF8(t *testing.T) {
	svc := NewHeuristicContentService(logger.NewNop())
	transcript := strings.Repeat("café müsli ", 12)
	out, err := svc.GenerateTaskFeedback(context.Background(), contentPlan(), contentTurn(transcript), emptyRetrieval())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snippet := out.Feedback.Errors[0].Snippet
	if !utf8.ValidString(snippet) {
		t.Fatalf("expected valid utf-8 snippet, got %q", snippet)
	}
	if got := utf8.RuneCountInString(snippet); got != 80 {
		t.Fatalf("expected 80-rune snippet, got %d", got)
	}
}

func TestHeuristicContent_CorrectAuxiliaryEmitsPhonError(t *testing.T) {
	svc := NewHeuristicContentService(logger.NewNop())
	out, err := svc.GenerateTaskFeedback(context.Background(), contentPlan(), contentTurn("I didn't went to the station"), emptyRetrieval())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fbErr := out.Feedback.Errors[0]
	if fbErr.Type != types.ErrorPhon || fbErr.Severity != 1 || fbErr.Snippet != "didn't" {
		t.Fatalf("unexpected pronunciation error: %+v", fbErr)
	}
}

func TestHeuristicContent_RecommendationOrderIsFixed(t *testing.T) {
	retrieval := &types.RetrievalResult{
		PedagogyDocs: []types.ScoredDoc{
			{ID: "kb://a2/past_simple", Score: 0.8},
			{ID: "kb://a2/negation", Score: 0.8},
			{ID: "kb://a2/extra", Score: 0.8},
		},
		PersonalMemory: []types.ScoredDoc{
			{ID: "m1", Content: "I didn't went → I didn't go", Score: 1},
			{ID: "m2", Content: "old mistake", Score: 0.9},
		},
	}
	svc := NewHeuristicContentService(logger.NewNop())
	out, err := svc.GenerateTaskFeedback(context.Background(), contentPlan(), contentTurn("I didn't went"), retrieval)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{
		"use past simple negation correctly at least three times",
		"Review kb://a2/past_simple",
		"Review kb://a2/negation",
		"Revisit your earlier mistake: I didn't went → I didn't go",
	}
	if !reflect.DeepEqual(out.Feedback.Recommendations, want) {
		t.Fatalf("unexpected recommendations:\n got %v\nwant %v", out.Feedback.Recommendations, want)
	}
}

func TestHeuristicContent_EmptyStagePromptFallsBack(t *testing.T) {
	plan := contentPlan()
	plan.Stages[1].Prompt = ""
	svc := NewHeuristicContentService(logger.NewNop())
	out, err := svc.GenerateTaskFeedback(context.Background(), plan, contentTurn("I didn't went"), emptyRetrieval())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Task.Prompt != defaultTaskPrompt {
		t.Fatalf("expected default prompt, got %q", out.Task.Prompt)
	}
}

type fakeOpenAIClient struct {
	response map[string]any
	err      error
	calls    int
}

func (f *fakeOpenAIClient) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func TestProviderContent_FallsBackOnProviderError(t *testing.T) {
	client := &fakeOpenAIClient{err: errors.New("rate limited")}
	svc := NewProviderContentService(logger.NewNop(), client, NewHeuristicContentService(logger.NewNop()), time.Second)

	out, err := svc.GenerateTaskFeedback(context.Background(), contentPlan(), contentTurn("I didn't went"), emptyRetrieval())
	if err != nil {
		t.Fatalf("expected transparent fallback, got error: %v", err)
	}
	if client.calls != 1 {
		t.Fatalf("expected one provider call, got %d", client.calls)
	}
	if out.Feedback.Errors[0].Type != types.ErrorPhon {
		t.Fatalf("expected heuristic output after fallback, got %+v", out.Feedback.Errors)
	}
}

func TestProviderContent_FallsBackOnSchemaViolation(t *testing.T) {
	client := &fakeOpenAIClient{response: map[string]any{
		"task":     map[string]any{"stage_id": "task", "prompt": ""},
		"feedback": map[string]any{"summary": "ok"},
	}}
	svc := NewProviderContentService(logger.NewNop(), client, NewHeuristicContentService(logger.NewNop()), time.Second)

	out, err := svc.GenerateTaskFeedback(context.Background(), contentPlan(), contentTurn("I didn't went"), emptyRetrieval())
	if err != nil {
		t.Fatalf("expected transparent fallback, got error: %v", err)
	}
	if out.Task.Prompt == "" {
		t.Fatalf("expected heuristic prompt after fallback")
	}
}

func TestProviderContent_AcceptsWellFormedResponse(t *testing.T) {
	client := &fakeOpenAIClient{response: map[string]any{
		"task": map[string]any{
			"stage_id": "task",
			"prompt":   "Tell me what you didn't do last weekend.",
			"targets":  []any{map[string]any{"type": "structure", "id": "A2.past_simple_neg"}},
		},
		"feedback": map[string]any{
			"summary": "Strong turn with one slip.",
			"errors": []any{map[string]any{
				"type":       "gram",
				"snippet":    "didn't went",
				"correction": "didn't go",
				"severity":   2,
			}},
			"recommendations": []any{"Review kb://a2/past_simple"},
		},
		"meta": map[string]any{"pronunciation_score": 0.8, "confidence": 3, "speaking_time_ms": 4000},
	}}
	svc := NewProviderContentService(logger.NewNop(), client, NewHeuristicContentService(logger.NewNop()), time.Second)

	out, err := svc.GenerateTaskFeedback(context.Background(), contentPlan(), contentTurn("I didn't went"), emptyRetrieval())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Task.Prompt != "Tell me what you didn't do last weekend." {
		t.Fatalf("expected provider prompt kept, got %q", out.Task.Prompt)
	}
	if len(out.Feedback.Errors) != 1 || out.Feedback.Errors[0].Type != types.ErrorGram {
		t.Fatalf("unexpected provider errors: %+v", out.Feedback.Errors)
	}
}

func TestDecodeTaskFeedback_RejectsInvalidErrorType(t *testing.T) {
	_, err := decodeTaskFeedback(map[string]any{
		"task":     map[string]any{"stage_id": "task", "prompt": "p"},
		"feedback": map[string]any{"summary": "s", "errors": []any{map[string]any{"type": "semantics", "severity": 2}}},
	})
	if err == nil {
		t.Fatalf("expected error for invalid type")
	}
}

func TestDecodeTaskFeedback_RejectsSeverityOutOfRange(t *testing.T) {
	_, err := decodeTaskFeedback(map[string]any{
		"task":     map[string]any{"stage_id": "task", "prompt": "p"},
		"feedback": map[string]any{"summary": "s", "errors": []any{map[string]any{"type": "gram", "severity": 4}}},
	})
	if err == nil {
		t.Fatalf("expected error for severity out of range")
	}
}

func TestDecodeTaskFeedback_NormalizesNilSlices(t *testing.T) {
	out, err := decodeTaskFeedback(map[string]any{
		"task":     map[string]any{"stage_id": "task", "prompt": "p"},
		"feedback": map[string]any{"summary": "s"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Feedback.Errors == nil || out.Feedback.Recommendations == nil {
		t.Fatalf("expected non-nil slices, got %+v", out.Feedback)
	}
}
