package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/whisperstudio/chat-backend/internal/feed"
	"github.com/whisperstudio/chat-backend/internal/models"
)

// Store is the narrow persistence surface session records need.
type Store interface {
	EnsureSession(ctx context.Context, sessionID string) (models.Session, error)
	GetSession(ctx context.Context, sessionID string) (models.Session, error)
	PatchSession(ctx context.Context, sessionID string, patch models.SessionPatch) error
}

func topic(sessionID string) string { return "chat:session:" + sessionID }

// Records owns session reads and writes. Every patch is republished on
// the feed so open handles see the change without polling. Both the
// pipeline and the operator surface write through here; the taken_over
// flag is only ever set by the operator, so the two writers never race
// over the same field.
type Records struct {
	store  Store
	feed   feed.Feed
	logger zerolog.Logger
}

func NewRecords(store Store, f feed.Feed, logger zerolog.Logger) *Records {
	return &Records{store: store, feed: f, logger: logger}
}

// Ensure lazily creates the session on first contact and returns it.
func (r *Records) Ensure(ctx context.Context, sessionID string) (models.Session, error) {
	return r.store.EnsureSession(ctx, sessionID)
}

// Patch applies a partial update and republishes the fresh snapshot.
// Retrying a patch is safe: fields are independent flags and scalars,
// last write wins.
func (r *Records) Patch(ctx context.Context, sessionID string, patch models.SessionPatch) error {
	if err := r.store.PatchSession(ctx, sessionID, patch); err != nil {
		return err
	}

	sess, err := r.store.GetSession(ctx, sessionID)
	if err != nil {
		r.logger.Warn().Err(err).Str("session_id", sessionID).Msg("session: reload after patch")
		return nil
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return nil
	}
	if err := r.feed.Publish(ctx, topic(sessionID), payload); err != nil {
		// Feed delivery is best-effort; the store already holds the truth.
		r.logger.Warn().Err(err).Str("session_id", sessionID).Msg("session: publish snapshot")
	}
	return nil
}

// Open returns a live handle. Fields update asynchronously as the feed
// delivers new snapshots; a failed subscription degrades to a static
// handle rather than blocking the caller.
func (r *Records) Open(ctx context.Context, sessionID string) (*Handle, error) {
	sess, err := r.store.EnsureSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	h := &Handle{current: sess}
	unsub, err := r.feed.Subscribe(ctx, topic(sessionID), h.onPayload)
	if err != nil {
		r.logger.Warn().Err(err).Str("session_id", sessionID).Msg("session: change feed unavailable")
		return h, nil
	}
	h.stop = unsub
	return h, nil
}

// Handle is a live view of one session record.
type Handle struct {
	mu      sync.RWMutex
	current models.Session
	stop    feed.Unsubscribe
}

func (h *Handle) onPayload(payload []byte) {
	var sess models.Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return
	}
	h.mu.Lock()
	h.current = sess
	h.mu.Unlock()
}

// Snapshot returns the most recently delivered session state.
func (h *Handle) Snapshot() models.Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

func (h *Handle) Close() {
	if h.stop != nil {
		h.stop()
	}
}
