package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/whisperstudio/chat-backend/internal/models"
)

type submitRequest struct {
	Text string `json:"text" validate:"required"`
	Lang string `json:"lang" validate:"omitempty,oneof=en no"`
}

// @Summary Submit a chat message
// @Description Runs one user message through the support-chat pipeline
// @Tags chat
// @Accept json
// @Produce json
// @Param id path string true "session id"
// @Success 200 {object} service.SendResult
// @Failure 400 {object} map[string]any
// @Failure 409 {object} map[string]any
// @Router /api/chats/{id}/messages [post]
func (h *Handler) SubmitMessage(c *gin.Context) {
	sessionID := c.Param("id")
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "malformed body", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid fields", err.Error())
		return
	}

	result, err := h.Pipeline.Submit(c.Request.Context(), sessionID, req.Text, req.Lang)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// @Summary Request a welcome greeting
// @Tags chat
// @Produce json
// @Param id path string true "session id"
// @Success 200 {object} map[string]any
// @Router /api/chats/{id}/greet [post]
func (h *Handler) Greet(c *gin.Context) {
	sessionID := c.Param("id")
	lang := c.Query("lang")

	msg, err := h.Pipeline.Greet(c.Request.Context(), sessionID, lang)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if msg == nil {
		c.JSON(http.StatusOK, gin.H{"greeted": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"greeted": true, "message": msg})
}

// @Summary Chat transcript
// @Tags chat
// @Produce json
// @Param id path string true "session id"
// @Success 200 {array} models.Message
// @Router /api/chats/{id}/messages [get]
func (h *Handler) ListMessages(c *gin.Context) {
	sessionID := c.Param("id")
	msgs, err := h.Store.ListMessages(c.Request.Context(), sessionID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	c.JSON(http.StatusOK, msgs)
}

// @Summary Session snapshot
// @Description Lazily creates the session on first open
// @Tags chat
// @Produce json
// @Param id path string true "session id"
// @Success 200 {object} models.Session
// @Router /api/chats/{id} [get]
func (h *Handler) GetSession(c *gin.Context) {
	sessionID := c.Param("id")
	handle, err := h.Sessions.Open(c.Request.Context(), sessionID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	defer handle.Close()

	snapshot := handle.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"session":    snapshot,
		"mode":       snapshot.Mode(h.Settings.Current()),
		"send_state": h.Pipeline.State(sessionID),
	})
}
