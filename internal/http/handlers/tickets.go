package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/whisperstudio/chat-backend/internal/models"
)

type createTicketRequest struct {
	SessionID   string `json:"session_id" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	Category    string `json:"category"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high"`
}

// @Summary Create a support ticket
// @Tags tickets
// @Accept json
// @Produce json
// @Success 201 {object} models.Ticket
// @Failure 400 {object} map[string]any
// @Router /api/tickets [post]
func (h *Handler) CreateTicket(c *gin.Context) {
	var req createTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "malformed body", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid fields", err.Error())
		return
	}

	ticket, err := h.Tickets.Create(c.Request.Context(), req.SessionID, req.Title, req.Description, req.Category, req.Priority)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ticket)
}

// @Summary List tickets for a session
// @Tags tickets
// @Produce json
// @Param session_id query string true "session id"
// @Success 200 {array} models.Ticket
// @Router /api/tickets [get]
func (h *Handler) ListTickets(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "session_id is required", nil)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	list, err := h.Tickets.List(c.Request.Context(), sessionID, c.Query("status"), limit)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if list == nil {
		list = []models.Ticket{}
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Ticket details with messages
// @Tags tickets
// @Produce json
// @Param id path string true "ticket id"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /api/tickets/{id} [get]
func (h *Handler) GetTicket(c *gin.Context) {
	ticket, msgs, err := h.Tickets.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if msgs == nil {
		msgs = []models.TicketMessage{}
	}
	c.JSON(http.StatusOK, gin.H{"ticket": ticket, "messages": msgs})
}

type ticketMessageRequest struct {
	Text   string `json:"text" validate:"required"`
	Sender string `json:"sender" validate:"omitempty,oneof=user admin"`
}

// @Summary Append a message to a ticket
// @Description Moves an open ticket to in-progress
// @Tags tickets
// @Accept json
// @Produce json
// @Param id path string true "ticket id"
// @Success 201 {object} models.TicketMessage
// @Failure 404 {object} map[string]any
// @Router /api/tickets/{id}/messages [post]
func (h *Handler) AppendTicketMessage(c *gin.Context) {
	var req ticketMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "malformed body", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid fields", err.Error())
		return
	}
	sender := models.Sender(req.Sender)
	if req.Sender == "" {
		sender = models.SenderUser
	}

	msg, err := h.Tickets.AppendMessage(c.Request.Context(), c.Param("id"), req.Text, sender)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}
