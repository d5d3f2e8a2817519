package feed

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisFeed carries topic payloads over Redis pub/sub. The latest payload
// per topic is retained in a plain key so late subscribers still get the
// current value first.
type RedisFeed struct {
	client *redis.Client
	logger zerolog.Logger
}

// Connect initializes a Redis client from URL or host:port input.
// Supporting both formats keeps local/dev and container config paths simple.
func Connect(_ context.Context, redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") {
		opt, parseErr := redis.ParseURL(redisURL)
		if parseErr != nil {
			return nil, fmt.Errorf("parse redis url: %w", parseErr)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

func NewRedisFeed(client *redis.Client, logger zerolog.Logger) *RedisFeed {
	return &RedisFeed{client: client, logger: logger}
}

func retainKey(topic string) string { return "feed:last:" + topic }

func (f *RedisFeed) Subscribe(ctx context.Context, topic string, fn Handler) (Unsubscribe, error) {
	sub := f.client.Subscribe(ctx, topic)
	// Force the SUBSCRIBE round trip so a broken connection surfaces
	// here instead of as a silently dead channel.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	var retained []byte
	if current, err := f.client.Get(ctx, retainKey(topic)).Bytes(); err == nil {
		retained = current
		fn(current)
	} else if err != redis.Nil {
		f.logger.Warn().Err(err).Str("topic", topic).Msg("feed: read retained value")
	}

	done := make(chan struct{})
	go func() {
		ch := sub.Channel()
		first := true
		for {
			select {
			case <-done:
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				// A publish landing between SUBSCRIBE and the retained
				// read arrives on both paths; the first channel message
				// is dropped when it matches the already-delivered value.
				if first {
					first = false
					if retained != nil && msg.Payload == string(retained) {
						continue
					}
				}
				fn([]byte(msg.Payload))
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			_ = sub.Close()
		})
	}, nil
}

func (f *RedisFeed) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := f.client.Set(ctx, retainKey(topic), payload, 0).Err(); err != nil {
		return fmt.Errorf("retain %s: %w", topic, err)
	}
	if err := f.client.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}
