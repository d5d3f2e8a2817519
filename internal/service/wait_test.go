package service

import (
	"testing"
	"time"

	"github.com/whisperstudio/chat-backend/internal/models"
)

var waitBase = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

// exchange builds one answered user message in its own session.
func exchange(sessionID string, latency time.Duration) []models.Message {
	return []models.Message{
		{SessionID: sessionID, Sender: models.SenderUser, SentAt: waitBase, Seq: 1},
		{SessionID: sessionID, Sender: models.SenderAdmin, SentAt: waitBase.Add(latency), Seq: 2},
	}
}

func TestEstimateWaitMinutes_OddSamples(t *testing.T) {
	var msgs []models.Message
	for i, m := range []time.Duration{5, 10, 15} {
		msgs = append(msgs, exchange(string(rune('a'+i)), m*time.Minute)...)
	}
	if got := EstimateWaitMinutes(msgs); got != 10 {
		t.Fatalf("expected median 10, got %d", got)
	}
}

func TestEstimateWaitMinutes_EvenSamplesRounded(t *testing.T) {
	var msgs []models.Message
	for i, m := range []time.Duration{5, 10, 15, 20} {
		msgs = append(msgs, exchange(string(rune('a'+i)), m*time.Minute)...)
	}
	// (10+15)/2 = 12.5 rounds up
	if got := EstimateWaitMinutes(msgs); got != 13 {
		t.Fatalf("expected 13, got %d", got)
	}
}

func TestEstimateWaitMinutes_EmptyDefaults(t *testing.T) {
	if got := EstimateWaitMinutes(nil); got != DefaultWaitMinutes {
		t.Fatalf("expected default %d, got %d", DefaultWaitMinutes, got)
	}
}

func TestEstimateWaitMinutes_DiscardsOvernightGaps(t *testing.T) {
	var msgs []models.Message
	for i, m := range []time.Duration{5, 10, 15} {
		msgs = append(msgs, exchange(string(rune('a'+i)), m*time.Minute)...)
	}
	msgs = append(msgs, exchange("slow", 1500*time.Minute)...)
	if got := EstimateWaitMinutes(msgs); got != 10 {
		t.Fatalf("expected 1500min sample excluded, got %d", got)
	}
}

func TestEstimateWaitMinutes_UnansweredIgnored(t *testing.T) {
	msgs := exchange("a", 5*time.Minute)
	msgs = append(msgs, models.Message{
		SessionID: "lonely", Sender: models.SenderUser, SentAt: waitBase, Seq: 1,
	})
	if got := EstimateWaitMinutes(msgs); got != 5 {
		t.Fatalf("expected 5, got %d", got)
	}
}

func TestEstimateWaitMinutes_CrossSessionAdminDoesNotCount(t *testing.T) {
	// Admin reply in session b must not answer session a's message.
	msgs := []models.Message{
		{SessionID: "a", Sender: models.SenderUser, SentAt: waitBase, Seq: 1},
		{SessionID: "b", Sender: models.SenderAdmin, SentAt: waitBase.Add(2 * time.Minute), Seq: 1},
	}
	if got := EstimateWaitMinutes(msgs); got != DefaultWaitMinutes {
		t.Fatalf("expected default, got %d", got)
	}
}

func TestEstimateWaitMinutes_ToleratesUnsortedInput(t *testing.T) {
	msgs := []models.Message{
		{SessionID: "a", Sender: models.SenderAdmin, SentAt: waitBase.Add(8 * time.Minute), Seq: 2},
		{SessionID: "a", Sender: models.SenderUser, SentAt: waitBase, Seq: 1},
	}
	if got := EstimateWaitMinutes(msgs); got != 8 {
		t.Fatalf("expected 8, got %d", got)
	}
}

func TestEstimateWaitMinutes_FloorsAtOneMinute(t *testing.T) {
	msgs := exchange("a", 10*time.Second)
	if got := EstimateWaitMinutes(msgs); got != 1 {
		t.Fatalf("expected floor of 1, got %d", got)
	}
}
