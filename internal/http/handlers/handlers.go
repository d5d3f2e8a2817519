package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/whisperstudio/chat-backend/internal/db"
	"github.com/whisperstudio/chat-backend/internal/errs"
	"github.com/whisperstudio/chat-backend/internal/service"
	"github.com/whisperstudio/chat-backend/internal/session"
	"github.com/whisperstudio/chat-backend/internal/settings"
	"github.com/whisperstudio/chat-backend/internal/tickets"
)

type Handler struct {
	Store     *db.Store
	Pipeline  *service.Pipeline
	Sessions  *session.Records
	Settings  *settings.Channel
	Tickets   *tickets.Bridge
	Validator *validator.Validate
	Logger    zerolog.Logger
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func writeError(c *gin.Context, status int, code, message string, details any) {
	body := gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
	if details != nil {
		body["error"].(gin.H)["details"] = details
	}
	c.AbortWithStatusJSON(status, body)
}

// writeDomainError maps the error taxonomy onto HTTP statuses.
func writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errs.ErrValidation):
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	case errors.Is(err, errs.ErrNotFound):
		writeError(c, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, errs.ErrSendInFlight):
		writeError(c, http.StatusConflict, "SEND_IN_FLIGHT", "A send is already in progress for this session", nil)
	case errors.Is(err, errs.ErrMaintenanceHold):
		writeError(c, http.StatusConflict, "MAINTENANCE_HOLD", "Session is on hold; an advisor will respond", nil)
	case errors.Is(err, errs.ErrStoreUnavailable):
		writeError(c, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Message could not be saved", nil)
	default:
		writeError(c, http.StatusInternalServerError, "INTERNAL", "Unexpected error", nil)
	}
}
