package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/whisperstudio/chat-backend/internal/errs"
	"github.com/whisperstudio/chat-backend/internal/models"
	"github.com/whisperstudio/chat-backend/internal/responder"
)

// SendState is the lifecycle of one submit. A session is Sending from
// the moment a submit is accepted until it resolves; there is no cancel,
// a send always ends Delivered or Failed.
type SendState string

const (
	StateIdle      SendState = "idle"
	StateSending   SendState = "sending"
	StateDelivered SendState = "delivered"
	StateFailed    SendState = "failed"
)

// MessageStore is the persistence surface the pipeline writes through.
type MessageStore interface {
	AppendMessage(ctx context.Context, msg models.Message) (models.Message, error)
	CountMessages(ctx context.Context, sessionID string) (int, error)
	RecentMessages(ctx context.Context, limit int) ([]models.Message, error)
}

// SessionDirectory resolves and patches session records.
type SessionDirectory interface {
	Ensure(ctx context.Context, sessionID string) (models.Session, error)
	Patch(ctx context.Context, sessionID string, patch models.SessionPatch) error
}

// SettingsSource yields the current global settings snapshot.
type SettingsSource interface {
	Current() models.GlobalSettings
}

// EventSink receives best-effort activity notifications.
type EventSink interface {
	Produce(ctx context.Context, event string, payload map[string]any)
}

// Pipeline arbitrates the response mode for each incoming user message
// and drives persistence, responder invocation, and fallback.
type Pipeline struct {
	Store            MessageStore
	Sessions         SessionDirectory
	Settings         SettingsSource
	Responder        responder.Gateway
	Events           EventSink
	Logger           zerolog.Logger
	WaitScanLimit    int
	ResponderTimeout time.Duration

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// SendResult reports how one submit resolved.
type SendResult struct {
	State               SendState       `json:"state"`
	Mode                models.Mode     `json:"mode"`
	UserMessage         models.Message  `json:"user_message"`
	BotMessage          *models.Message `json:"bot_message,omitempty"`
	DetectedLanguage    string          `json:"detected_language,omitempty"`
	ExpectedWaitMinutes *int            `json:"expected_wait_minutes,omitempty"`
}

// State reports whether a send is currently in flight for the session.
// Callers check this before submitting; a submit that races past the
// check is still rejected inside Submit.
func (p *Pipeline) State(sessionID string) SendState {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.inFlight[sessionID]; ok {
		return StateSending
	}
	return StateIdle
}

func (p *Pipeline) begin(sessionID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inFlight == nil {
		p.inFlight = map[string]struct{}{}
	}
	if _, ok := p.inFlight[sessionID]; ok {
		return false
	}
	p.inFlight[sessionID] = struct{}{}
	return true
}

func (p *Pipeline) end(sessionID string) {
	p.mu.Lock()
	delete(p.inFlight, sessionID)
	p.mu.Unlock()
}

// Submit runs one user message through the state machine. The user
// message append is attempted (with one retry) no matter what happens
// afterwards: a lost send is worse than a duplicated bot reply. Sessions
// are independent; only sends within one session are serialized.
func (p *Pipeline) Submit(ctx context.Context, sessionID, text, langHint string) (SendResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return SendResult{State: StateIdle}, fmt.Errorf("%w: empty message", errs.ErrValidation)
	}
	if sessionID == "" {
		return SendResult{State: StateIdle}, fmt.Errorf("%w: missing session id", errs.ErrValidation)
	}

	if !p.begin(sessionID) {
		return SendResult{State: StateSending}, errs.ErrSendInFlight
	}
	defer p.end(sessionID)

	sess, err := p.Sessions.Ensure(ctx, sessionID)
	if err != nil {
		sess, err = p.Sessions.Ensure(ctx, sessionID)
	}
	if err != nil {
		return SendResult{State: StateFailed}, fmt.Errorf("%w: %v", errs.ErrStoreUnavailable, err)
	}

	st := p.Settings.Current()
	mode := sess.Mode(st)

	// Only maintenance needs the pre-send count, for the first-contact
	// check. Other modes skip the read entirely: an extra precondition
	// query must never cost them the user-message append.
	if mode == models.ModeMaintenance {
		priorCount, countErr := p.Store.CountMessages(ctx, sessionID)
		if countErr != nil {
			priorCount, countErr = p.Store.CountMessages(ctx, sessionID)
		}
		if countErr != nil {
			return SendResult{State: StateFailed, Mode: mode}, fmt.Errorf("%w: %v", errs.ErrStoreUnavailable, countErr)
		}
		if priorCount > 0 {
			return SendResult{State: StateIdle, Mode: mode}, errs.ErrMaintenanceHold
		}
	}

	userMsg, err := p.appendWithRetry(ctx, models.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Text:      text,
		Sender:    models.SenderUser,
	})
	if err != nil {
		// Surfaced as a visible "message not sent" state, never dropped silently.
		return SendResult{State: StateFailed, Mode: mode}, fmt.Errorf("%w: %v", errs.ErrStoreUnavailable, err)
	}
	p.produce(ctx, "chat.message", sessionID, models.SenderUser)

	result := SendResult{Mode: mode, UserMessage: userMsg}

	switch mode {
	case models.ModeMaintenance:
		return p.finishMaintenance(ctx, sessionID, langHint, st, result)
	case models.ModeHuman:
		// The operator owns the reply; adminTyping is surfaced elsewhere.
		p.touch(ctx, sessionID)
		result.State = StateDelivered
		return result, nil
	default:
		return p.finishAutonomous(ctx, sessionID, text, langHint, result)
	}
}

// finishMaintenance handles first contact on a held session: estimate
// the wait, tell the user, and remember the estimate on the session.
func (p *Pipeline) finishMaintenance(ctx context.Context, sessionID, langHint string, st models.GlobalSettings, result SendResult) (SendResult, error) {
	eta := DefaultWaitMinutes
	if history, err := p.Store.RecentMessages(ctx, p.WaitScanLimit); err == nil {
		eta = EstimateWaitMinutes(history)
	} else {
		p.Logger.Warn().Err(err).Msg("pipeline: wait estimate scan failed, using default")
	}

	notice := responder.MaintenanceNotice(langHint, st.MaintenanceMessage, eta)
	botMsg, err := p.appendWithRetry(ctx, models.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Text:      notice,
		Sender:    models.SenderBot,
	})
	if err != nil {
		p.touch(ctx, sessionID)
		result.State = StateFailed
		return result, fmt.Errorf("%w: %v", errs.ErrStoreUnavailable, err)
	}
	p.produce(ctx, "chat.message", sessionID, models.SenderBot)

	now := time.Now().UTC()
	if err := p.Sessions.Patch(ctx, sessionID, models.SessionPatch{
		ExpectedWaitMinutes: &eta,
		LastUpdated:         &now,
	}); err != nil {
		p.Logger.Warn().Err(err).Str("session_id", sessionID).Msg("pipeline: patch expected wait")
	}

	result.State = StateDelivered
	result.BotMessage = &botMsg
	result.ExpectedWaitMinutes = &eta
	return result, nil
}

// finishAutonomous invokes the responder; any failure becomes the fixed
// fallback reply so the user never sees silence.
func (p *Pipeline) finishAutonomous(ctx context.Context, sessionID, text, langHint string, result SendResult) (SendResult, error) {
	callCtx := ctx
	if p.ResponderTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.ResponderTimeout)
		defer cancel()
	}

	replyText := ""
	reply, err := p.Responder.Generate(callCtx, text, sessionID)
	if err != nil {
		p.Logger.Warn().Err(err).Str("session_id", sessionID).Msg("pipeline: responder failed, sending fallback")
		replyText = responder.FallbackText(langHint)
	} else {
		replyText = reply.Text
		result.DetectedLanguage = reply.DetectedLanguage
	}

	botMsg, appendErr := p.appendWithRetry(ctx, models.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Text:      replyText,
		Sender:    models.SenderBot,
	})
	p.touch(ctx, sessionID)
	if appendErr != nil {
		result.State = StateFailed
		return result, fmt.Errorf("%w: %v", errs.ErrStoreUnavailable, appendErr)
	}
	p.produce(ctx, "chat.message", sessionID, models.SenderBot)

	result.State = StateDelivered
	result.BotMessage = &botMsg
	return result, nil
}

// Greet asks the responder for a welcome line on a fresh session. No-op
// when the session already has history or the bot is not in charge.
func (p *Pipeline) Greet(ctx context.Context, sessionID, langHint string) (*models.Message, error) {
	sess, err := p.Sessions.Ensure(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrStoreUnavailable, err)
	}
	if sess.Mode(p.Settings.Current()) != models.ModeAutonomous {
		return nil, nil
	}
	count, err := p.Store.CountMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrStoreUnavailable, err)
	}
	if count > 0 {
		return nil, nil
	}

	callCtx := ctx
	if p.ResponderTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.ResponderTimeout)
		defer cancel()
	}
	reply, err := p.Responder.Generate(callCtx, "hello", sessionID)
	if err != nil {
		// A missing greeting is not worth an apology message.
		p.Logger.Warn().Err(err).Str("session_id", sessionID).Msg("pipeline: greeting failed")
		return nil, nil
	}

	msg, err := p.appendWithRetry(ctx, models.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Text:      reply.Text,
		Sender:    models.SenderBot,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrStoreUnavailable, err)
	}
	p.touch(ctx, sessionID)
	return &msg, nil
}

// PostAdminMessage persists an operator reply. It bypasses mode
// arbitration entirely: a human reply is valid in every mode.
func (p *Pipeline) PostAdminMessage(ctx context.Context, sessionID, text string) (models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Message{}, fmt.Errorf("%w: empty message", errs.ErrValidation)
	}
	if _, err := p.Sessions.Ensure(ctx, sessionID); err != nil {
		return models.Message{}, fmt.Errorf("%w: %v", errs.ErrStoreUnavailable, err)
	}

	msg, err := p.appendWithRetry(ctx, models.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Text:      text,
		Sender:    models.SenderAdmin,
	})
	if err != nil {
		return models.Message{}, fmt.Errorf("%w: %v", errs.ErrStoreUnavailable, err)
	}
	p.touch(ctx, sessionID)
	p.produce(ctx, "chat.message", sessionID, models.SenderAdmin)
	return msg, nil
}

func (p *Pipeline) appendWithRetry(ctx context.Context, msg models.Message) (models.Message, error) {
	out, err := p.Store.AppendMessage(ctx, msg)
	if err == nil {
		return out, nil
	}
	return p.Store.AppendMessage(ctx, msg)
}

// touch bumps last_updated regardless of how the send resolved.
func (p *Pipeline) touch(ctx context.Context, sessionID string) {
	now := time.Now().UTC()
	if err := p.Sessions.Patch(ctx, sessionID, models.SessionPatch{LastUpdated: &now}); err != nil {
		p.Logger.Warn().Err(err).Str("session_id", sessionID).Msg("pipeline: touch session")
	}
}

func (p *Pipeline) produce(ctx context.Context, event, sessionID string, sender models.Sender) {
	if p.Events == nil {
		return
	}
	p.Events.Produce(ctx, event, map[string]any{
		"session_id": sessionID,
		"sender":     string(sender),
	})
}
