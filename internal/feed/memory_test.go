package feed

import (
	"context"
	"testing"
)

func TestMemoryFeed_DeliversInOrder(t *testing.T) {
	f := NewMemoryFeed()
	var got []string
	unsub, err := f.Subscribe(context.Background(), "t", func(p []byte) {
		got = append(got, string(p))
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer unsub()

	f.Publish(context.Background(), "t", []byte("a"))
	f.Publish(context.Background(), "t", []byte("b"))

	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("expected [a b], got %v", got)
	}
}

func TestMemoryFeed_RetainsLastValueForLateSubscriber(t *testing.T) {
	f := NewMemoryFeed()
	f.Publish(context.Background(), "t", []byte("a"))
	f.Publish(context.Background(), "t", []byte("b"))

	var got []string
	unsub, err := f.Subscribe(context.Background(), "t", func(p []byte) {
		got = append(got, string(p))
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer unsub()

	if len(got) != 1 || got[0] != "b" {
		t.Fatalf("late subscriber must see only the retained value, got %v", got)
	}
}

func TestMemoryFeed_NoRetainedValueNoDelivery(t *testing.T) {
	f := NewMemoryFeed()
	delivered := false
	unsub, _ := f.Subscribe(context.Background(), "empty", func([]byte) { delivered = true })
	defer unsub()
	if delivered {
		t.Fatal("subscribe on an unpublished topic must deliver nothing")
	}
}

func TestMemoryFeed_TopicsAreIndependent(t *testing.T) {
	f := NewMemoryFeed()
	var got []string
	unsub, _ := f.Subscribe(context.Background(), "a", func(p []byte) {
		got = append(got, string(p))
	})
	defer unsub()

	f.Publish(context.Background(), "b", []byte("other"))
	if len(got) != 0 {
		t.Fatalf("publish on another topic leaked: %v", got)
	}
}

func TestMemoryFeed_UnsubscribeStopsDeliveryAndIsIdempotent(t *testing.T) {
	f := NewMemoryFeed()
	count := 0
	unsub, _ := f.Subscribe(context.Background(), "t", func([]byte) { count++ })

	f.Publish(context.Background(), "t", []byte("a"))
	unsub()
	unsub()
	f.Publish(context.Background(), "t", []byte("b"))

	if count != 1 {
		t.Fatalf("expected one delivery, got %d", count)
	}
}
