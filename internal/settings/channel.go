package settings

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/whisperstudio/chat-backend/internal/feed"
	"github.com/whisperstudio/chat-backend/internal/models"
)

// Topic carries the global chat settings record on the feed.
const Topic = "chat:settings"

// Channel republishes GlobalSettings changes to the rest of the process.
// If the underlying feed subscription cannot be established the channel
// keeps serving hinted defaults (enabled, no maintenance message) so
// nothing ever blocks waiting for configuration.
type Channel struct {
	feed   feed.Feed
	logger zerolog.Logger

	mu      sync.RWMutex
	current models.GlobalSettings
	nextID  int
	subs    map[int]func(models.GlobalSettings)

	stop feed.Unsubscribe
}

func NewChannel(f feed.Feed, logger zerolog.Logger) *Channel {
	return &Channel{
		feed:    f,
		logger:  logger,
		current: models.DefaultSettings(),
		subs:    map[int]func(models.GlobalSettings){},
	}
}

// Start attaches the channel to the feed. A failed subscription is
// logged and swallowed: the channel stays on defaults.
func (c *Channel) Start(ctx context.Context) {
	unsub, err := c.feed.Subscribe(ctx, Topic, c.onPayload)
	if err != nil {
		c.logger.Warn().Err(err).Msg("settings: subscription failed, using defaults")
		return
	}
	c.stop = unsub
}

func (c *Channel) Close() {
	if c.stop != nil {
		c.stop()
	}
}

func (c *Channel) onPayload(payload []byte) {
	var s models.GlobalSettings
	if err := json.Unmarshal(payload, &s); err != nil {
		c.logger.Warn().Err(err).Msg("settings: malformed payload dropped")
		return
	}

	c.mu.Lock()
	c.current = s
	handlers := make([]func(models.GlobalSettings), 0, len(c.subs))
	for _, fn := range c.subs {
		handlers = append(handlers, fn)
	}
	c.mu.Unlock()

	for _, fn := range handlers {
		fn(s)
	}
}

// Current returns the latest settings snapshot.
func (c *Channel) Current() models.GlobalSettings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Subscribe delivers the current value immediately, then every later
// change, at most once per change, in arrival order.
func (c *Channel) Subscribe(fn func(models.GlobalSettings)) feed.Unsubscribe {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	current := c.current
	c.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

// Update publishes new settings on the feed. The admin surface is the
// only writer; the updated record flows back through onPayload.
func (c *Channel) Update(ctx context.Context, s models.GlobalSettings) error {
	s.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.feed.Publish(ctx, Topic, payload)
}
