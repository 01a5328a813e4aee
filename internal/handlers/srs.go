package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/angie-backend/internal/logger"
	"github.com/yungbote/angie-backend/internal/services"
)

type SrsHandler struct {
	log *logger.Logger
	svc services.SrsService
}

func NewSrsHandler(log *logger.Logger, svc services.SrsService) *SrsHandler {
	return &SrsHandler{
		log: log.With("handler", "SrsHandler"),
		svc: svc,
	}
}

// GET /api/srs/due
func (h *SrsHandler) ListDue(c *gin.Context) {
	profileID := profileFromContext(c)
	if profileID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthenticated", errors.New("missing profile identity"))
		return
	}

	items, err := h.svc.DueItems(c.Request.Context(), profileID, time.Now().UTC())
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_due_failed", err)
		return
	}

	RespondOK(c, gin.H{"items": items})
}
