package feed

import (
	"context"
	"sync"
)

// MemoryFeed is an in-process Feed. It backs single-node deployments
// and doubles as the fake publisher in tests.
type MemoryFeed struct {
	mu       sync.Mutex
	nextID   int
	retained map[string][]byte
	subs     map[string]map[int]Handler
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{
		retained: map[string][]byte{},
		subs:     map[string]map[int]Handler{},
	}
}

func (f *MemoryFeed) Subscribe(_ context.Context, topic string, fn Handler) (Unsubscribe, error) {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	if f.subs[topic] == nil {
		f.subs[topic] = map[int]Handler{}
	}
	f.subs[topic][id] = fn
	current, ok := f.retained[topic]
	f.mu.Unlock()

	if ok {
		fn(current)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs[topic], id)
			f.mu.Unlock()
		})
	}, nil
}

func (f *MemoryFeed) Publish(_ context.Context, topic string, payload []byte) error {
	f.mu.Lock()
	f.retained[topic] = payload
	handlers := make([]Handler, 0, len(f.subs[topic]))
	for _, fn := range f.subs[topic] {
		handlers = append(handlers, fn)
	}
	f.mu.Unlock()

	for _, fn := range handlers {
		fn(payload)
	}
	return nil
}
