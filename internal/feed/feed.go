package feed

import "context"

// Handler receives one published payload. Handlers must not block;
// delivery for a topic is sequential and in publish order.
type Handler func(payload []byte)

// Unsubscribe detaches a subscription. Safe to call more than once.
type Unsubscribe func()

// Feed is a retained-value pub/sub channel: a new subscriber first
// receives the topic's current value (when one exists), then every
// later publish, at most once each, in arrival order.
type Feed interface {
	Subscribe(ctx context.Context, topic string, fn Handler) (Unsubscribe, error)
	Publish(ctx context.Context, topic string, payload []byte) error
}
