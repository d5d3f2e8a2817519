package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/whisperstudio/chat-backend/internal/models"
)

type patchSessionRequest struct {
	TakenOver           *bool   `json:"taken_over"`
	MaintenanceOverride *bool   `json:"maintenance_override"`
	AdminTyping         *bool   `json:"admin_typing"`
	ExpectedWaitMinutes *int    `json:"expected_wait_minutes"`
	Country             *string `json:"country"`
}

// @Summary Patch session flags
// @Description Operator control: take-over, typing indicator, per-session hold
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "session id"
// @Success 200 {object} models.Session
// @Router /api/admin/chats/{id} [patch]
func (h *Handler) PatchSession(c *gin.Context) {
	sessionID := c.Param("id")
	var req patchSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "malformed body", err.Error())
		return
	}

	// Lazy create so an operator can claim a session before its first send.
	if _, err := h.Sessions.Ensure(c.Request.Context(), sessionID); err != nil {
		writeDomainError(c, err)
		return
	}

	patch := models.SessionPatch{
		TakenOver:           req.TakenOver,
		MaintenanceOverride: req.MaintenanceOverride,
		AdminTyping:         req.AdminTyping,
		ExpectedWaitMinutes: req.ExpectedWaitMinutes,
		Country:             req.Country,
	}
	if patch.Empty() {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "no fields to patch", nil)
		return
	}
	if err := h.Sessions.Patch(c.Request.Context(), sessionID, patch); err != nil {
		writeDomainError(c, err)
		return
	}

	sess, err := h.Store.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

type adminMessageRequest struct {
	Text string `json:"text" validate:"required"`
}

// @Summary Post an operator reply into a session
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "session id"
// @Success 201 {object} models.Message
// @Router /api/admin/chats/{id}/messages [post]
func (h *Handler) PostAdminMessage(c *gin.Context) {
	sessionID := c.Param("id")
	var req adminMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "malformed body", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid fields", err.Error())
		return
	}

	msg, err := h.Pipeline.PostAdminMessage(c.Request.Context(), sessionID, req.Text)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// @Summary Read global chat settings
// @Tags admin
// @Produce json
// @Success 200 {object} models.GlobalSettings
// @Router /api/admin/settings [get]
func (h *Handler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.Settings.Current())
}

type updateSettingsRequest struct {
	Enabled             bool              `json:"enabled"`
	MaintenanceMessage  string            `json:"maintenance_message"`
	ExpectedWaitMinutes *int              `json:"expected_wait_minutes"`
	AppearanceHints     map[string]string `json:"appearance_hints"`
}

// @Summary Update global chat settings
// @Description Republishes the record to every open session
// @Tags admin
// @Accept json
// @Produce json
// @Success 200 {object} models.GlobalSettings
// @Router /api/admin/settings [put]
func (h *Handler) UpdateSettings(c *gin.Context) {
	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "malformed body", err.Error())
		return
	}

	next := models.GlobalSettings{
		Enabled:             req.Enabled,
		MaintenanceMessage:  req.MaintenanceMessage,
		ExpectedWaitMinutes: req.ExpectedWaitMinutes,
		AppearanceHints:     req.AppearanceHints,
	}
	if err := h.Settings.Update(c.Request.Context(), next); err != nil {
		writeError(c, http.StatusServiceUnavailable, "FEED_UNAVAILABLE", "Settings could not be published", err.Error())
		return
	}
	c.JSON(http.StatusOK, h.Settings.Current())
}

type setStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=open in-progress resolved"`
}

// @Summary Set ticket status
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "ticket id"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /api/admin/tickets/{id}/status [patch]
func (h *Handler) SetTicketStatus(c *gin.Context) {
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "malformed body", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid fields", err.Error())
		return
	}

	if err := h.Tickets.SetStatus(c.Request.Context(), c.Param("id"), models.TicketStatus(req.Status)); err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}

// @Summary Aggregate counts for the dashboard
// @Tags admin
// @Produce json
// @Success 200 {object} db.Stats
// @Router /api/admin/stats [get]
func (h *Handler) AdminStats(c *gin.Context) {
	stats, err := h.Store.AggregateStats(c.Request.Context())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// @Summary List all tickets
// @Tags admin
// @Produce json
// @Param status query string false "status filter"
// @Success 200 {array} models.Ticket
// @Router /api/admin/tickets [get]
func (h *Handler) AdminListTickets(c *gin.Context) {
	list, err := h.Tickets.List(c.Request.Context(), "", c.Query("status"), 200)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if list == nil {
		list = []models.Ticket{}
	}
	c.JSON(http.StatusOK, list)
}
