package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/angie-backend/internal/logger"
	"github.com/yungbote/angie-backend/internal/requestdata"
	"github.com/yungbote/angie-backend/internal/services"
	"github.com/yungbote/angie-backend/internal/types"
)

type fakeOrchestrator struct {
	plan   *types.Plan
	result *types.TurnResult
	err    error
	input  services.TurnInput
}

func (f *fakeOrchestrator) StartLesson(ctx context.Context, input services.PlannerInput) (*types.Plan, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.plan, nil
}

func (f *fakeOrchestrator) HandleTurn(ctx context.Context, input services.TurnInput) (*types.TurnResult, error) {
	f.input = input
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func turnRequest(t *testing.T, profileID uuid.UUID, body any) (*httptest.ResponseRecorder, *http.Request) {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/lesson/turn", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if profileID != uuid.Nil {
		ctx := requestdata.WithRequestData(req.Context(), &requestdata.RequestData{ProfileID: profileID})
		req = req.WithContext(ctx)
	}
	return httptest.NewRecorder(), req
}

func serveTurn(t *testing.T, orch *fakeOrchestrator, profileID uuid.UUID, body any) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	handler := NewLessonHandler(logger.NewNop(), orch)
	router := gin.New()
	router.POST("/api/lesson/turn", handler.HandleTurn)

	rec, req := turnRequest(t, profileID, body)
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleTurn_ReturnsResult(t *testing.T) {
	orch := &fakeOrchestrator{result: &types.TurnResult{
		Plan: &types.Plan{LessonID: "lesson-1"},
		Task: types.Task{StageID: "task", Prompt: "Roleplay a trip"},
	}}
	rec := serveTurn(t, orch, uuid.New(), map[string]any{
		"lesson_id":  "lesson-1",
		"stage_id":   "task",
		"transcript": "I didn't went",
		"signals":    map[string]float64{"acc": 0.8},
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if orch.input.LessonID != "lesson-1" || orch.input.StageID != "task" {
		t.Fatalf("unexpected turn input: %+v", orch.input)
	}
	var out types.TurnResult
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Task.StageID != "task" {
		t.Fatalf("unexpected response body: %s", rec.Body.String())
	}
}

func TestHandleTurn_MissingProfileIsUnauthorized(t *testing.T) {
	rec := serveTurn(t, &fakeOrchestrator{}, uuid.Nil, map[string]any{"stage_id": "task"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestHandleTurn_PlanNotFoundMapsTo404(t *testing.T) {
	orch := &fakeOrchestrator{err: services.ErrPlanNotFound}
	rec := serveTurn(t, orch, uuid.New(), map[string]any{"lesson_id": "missing", "stage_id": "task"})

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
	var envelope ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if envelope.Error.Code != "plan_not_found" {
		t.Fatalf("unexpected error code %q", envelope.Error.Code)
	}
}

func TestHandleTurn_StagelessPlanMapsTo422(t *testing.T) {
	orch := &fakeOrchestrator{err: services.ErrPlanHasNoStages}
	rec := serveTurn(t, orch, uuid.New(), map[string]any{"lesson_id": "empty", "stage_id": "task"})

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rec.Code)
	}
	var envelope ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if envelope.Error.Code != "plan_has_no_stages" {
		t.Fatalf("unexpected error code %q", envelope.Error.Code)
	}
}

func TestHandleTurn_MalformedBodyIsBadRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewLessonHandler(logger.NewNop(), &fakeOrchestrator{})
	router := gin.New()
	router.POST("/api/lesson/turn", handler.HandleTurn)

	req := httptest.NewRequest(http.MethodPost, "/api/lesson/turn", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	ctx := requestdata.WithRequestData(req.Context(), &requestdata.RequestData{ProfileID: uuid.New()})
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
