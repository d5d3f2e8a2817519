package tickets

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/whisperstudio/chat-backend/internal/errs"
	"github.com/whisperstudio/chat-backend/internal/models"
)

// Store is the persistence surface the bridge writes through.
type Store interface {
	CreateTicket(ctx context.Context, t models.Ticket) (models.Ticket, error)
	GetTicket(ctx context.Context, ticketID string) (models.Ticket, error)
	ListTickets(ctx context.Context, sessionID string, status string, limit int) ([]models.Ticket, error)
	AppendTicketMessage(ctx context.Context, msg models.TicketMessage) (models.TicketMessage, error)
	ListTicketMessages(ctx context.Context, ticketID string) ([]models.TicketMessage, error)
	SetTicketStatus(ctx context.Context, ticketID string, status models.TicketStatus) error
}

// EventSink receives best-effort ticket activity notifications.
type EventSink interface {
	Produce(ctx context.Context, event string, payload map[string]any)
}

// Bridge couples chat sessions to support tickets. Tickets share the
// session identity but have no state machine of their own: identity-
// scoped writes and status transitions, nothing more.
type Bridge struct {
	Store  Store
	Events EventSink
	Logger zerolog.Logger
}

func (b *Bridge) Create(ctx context.Context, sessionID, title, description, category, priority string) (models.Ticket, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" || description == "" {
		return models.Ticket{}, fmt.Errorf("%w: title and description are required", errs.ErrValidation)
	}
	if sessionID == "" {
		return models.Ticket{}, fmt.Errorf("%w: missing session id", errs.ErrValidation)
	}
	if category == "" {
		category = "general"
	}
	if priority == "" {
		priority = "medium"
	}

	ticket, err := b.Store.CreateTicket(ctx, models.Ticket{
		ID:             uuid.NewString(),
		SessionOwnerID: sessionID,
		Title:          title,
		Description:    description,
		Category:       category,
		Priority:       priority,
		Status:         models.TicketOpen,
	})
	if err != nil {
		return models.Ticket{}, err
	}
	b.produce(ctx, "ticket.created", ticket.ID, sessionID)
	return ticket, nil
}

func (b *Bridge) Get(ctx context.Context, ticketID string) (models.Ticket, []models.TicketMessage, error) {
	ticket, err := b.Store.GetTicket(ctx, ticketID)
	if err != nil {
		return models.Ticket{}, nil, err
	}
	msgs, err := b.Store.ListTicketMessages(ctx, ticketID)
	if err != nil {
		return models.Ticket{}, nil, err
	}
	return ticket, msgs, nil
}

func (b *Bridge) List(ctx context.Context, sessionID, status string, limit int) ([]models.Ticket, error) {
	return b.Store.ListTickets(ctx, sessionID, status, limit)
}

// AppendMessage adds a message to a ticket. Message activity moves an
// open ticket to in-progress; later statuses are left alone.
func (b *Bridge) AppendMessage(ctx context.Context, ticketID, text string, sender models.Sender) (models.TicketMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.TicketMessage{}, fmt.Errorf("%w: empty message", errs.ErrValidation)
	}
	if !sender.Valid() {
		return models.TicketMessage{}, fmt.Errorf("%w: unknown sender %q", errs.ErrValidation, sender)
	}

	msg, err := b.Store.AppendTicketMessage(ctx, models.TicketMessage{
		ID:       uuid.NewString(),
		TicketID: ticketID,
		Text:     text,
		Sender:   sender,
	})
	if err != nil {
		return models.TicketMessage{}, err
	}
	b.produce(ctx, "ticket.message", ticketID, "")
	return msg, nil
}

func (b *Bridge) SetStatus(ctx context.Context, ticketID string, status models.TicketStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", errs.ErrValidation, status)
	}
	if err := b.Store.SetTicketStatus(ctx, ticketID, status); err != nil {
		return err
	}
	b.produce(ctx, "ticket.status", ticketID, "")
	return nil
}

func (b *Bridge) produce(ctx context.Context, event, ticketID, sessionID string) {
	if b.Events == nil {
		return
	}
	payload := map[string]any{"ticket_id": ticketID}
	if sessionID != "" {
		payload["session_id"] = sessionID
	}
	b.Events.Produce(ctx, event, payload)
}
