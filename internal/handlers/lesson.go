package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/angie-backend/internal/logger"
	"github.com/yungbote/angie-backend/internal/requestdata"
	"github.com/yungbote/angie-backend/internal/services"
)

type LessonHandler struct {
	log          *logger.Logger
	orchestrator services.OrchestratorService
}

func NewLessonHandler(log *logger.Logger, orchestrator services.OrchestratorService) *LessonHandler {
	return &LessonHandler{
		log:          log.With("handler", "LessonHandler"),
		orchestrator: orchestrator,
	}
}

type startLessonRequest struct {
	CEFR            string                  `json:"cefr,omitempty"`
	Goals           string                  `json:"goals,omitempty"`
	PreferredTopics []string                `json:"preferred_topics,omitempty"`
	History         []services.HistoryEntry `json:"history,omitempty"`
}

// POST /api/lesson/start
func (h *LessonHandler) StartLesson(c *gin.Context) {
	profileID := profileFromContext(c)
	if profileID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthenticated", errors.New("missing profile identity"))
		return
	}

	var req startLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	plan, err := h.orchestrator.StartLesson(c.Request.Context(), services.PlannerInput{
		ProfileID:       profileID,
		CEFR:            req.CEFR,
		Goals:           req.Goals,
		History:         req.History,
		PreferredTopics: req.PreferredTopics,
	})
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "start_lesson_failed", err)
		return
	}

	RespondOK(c, gin.H{"plan": plan})
}

type handleTurnRequest struct {
	LessonID   string             `json:"lesson_id,omitempty"`
	StageID    string             `json:"stage_id,omitempty"`
	Transcript string             `json:"transcript,omitempty"`
	Signals    map[string]float64 `json:"signals,omitempty"`
}

// POST /api/lesson/turn
func (h *LessonHandler) HandleTurn(c *gin.Context) {
	profileID := profileFromContext(c)
	if profileID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthenticated", errors.New("missing profile identity"))
		return
	}

	var req handleTurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	result, err := h.orchestrator.HandleTurn(c.Request.Context(), services.TurnInput{
		ProfileID:  profileID,
		LessonID:   req.LessonID,
		StageID:    req.StageID,
		Transcript: req.Transcript,
		Signals:    req.Signals,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPlanNotFound):
			RespondError(c, http.StatusNotFound, "plan_not_found", err)
		case errors.Is(err, services.ErrPlanHasNoStages):
			RespondError(c, http.StatusUnprocessableEntity, "plan_has_no_stages", err)
		default:
			RespondError(c, http.StatusInternalServerError, "turn_failed", err)
		}
		return
	}

	RespondOK(c, result)
}

func profileFromContext(c *gin.Context) uuid.UUID {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		return uuid.Nil
	}
	return rd.ProfileID
}
