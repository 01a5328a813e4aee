package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/angie-backend/internal/logger"
	"github.com/yungbote/angie-backend/internal/services"
	"github.com/yungbote/angie-backend/internal/types"
)

type TelemetryHandler struct {
	log *logger.Logger
	svc services.AnalyticsService
}

func NewTelemetryHandler(log *logger.Logger, svc services.AnalyticsService) *TelemetryHandler {
	return &TelemetryHandler{
		log: log.With("handler", "TelemetryHandler"),
		svc: svc,
	}
}

type telemetryBatchRequest struct {
	Events []types.TurnEvent `json:"events"`
}

// POST /api/telemetry/batch
func (h *TelemetryHandler) RecordBatch(c *gin.Context) {
	profileID := profileFromContext(c)
	if profileID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthenticated", errors.New("missing profile identity"))
		return
	}

	var req telemetryBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	count, err := h.svc.Ingest(c.Request.Context(), profileID, req.Events)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "ingest_failed", err)
		return
	}

	RespondOK(c, gin.H{"ingested": count})
}
