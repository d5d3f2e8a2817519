package responder

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/whisperstudio/chat-backend/internal/errs"
)

func TestHTTPGateway_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			SessionID string `json:"session_id"`
			Text      string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.SessionID != "s1" || req.Text != "hello" {
			t.Errorf("unexpected request %+v", req)
		}
		json.NewEncoder(w).Encode(map[string]string{"reply": "Hi!", "lang": "en"})
	}))
	defer srv.Close()

	g := HTTPGateway{BaseURL: srv.URL}
	reply, err := g.Generate(context.Background(), "hello", "s1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if reply.Text != "Hi!" || reply.DetectedLanguage != "en" {
		t.Fatalf("unexpected reply %+v", reply)
	}
}

func TestHTTPGateway_EmptyReplyIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"reply": "   "})
	}))
	defer srv.Close()

	g := HTTPGateway{BaseURL: srv.URL}
	if _, err := g.Generate(context.Background(), "hello", "s1"); !errors.Is(err, errs.ErrResponder) {
		t.Fatalf("expected responder error, got %v", err)
	}
}

func TestHTTPGateway_NonOKStatusIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := HTTPGateway{BaseURL: srv.URL}
	if _, err := g.Generate(context.Background(), "hello", "s1"); !errors.Is(err, errs.ErrResponder) {
		t.Fatalf("expected responder error, got %v", err)
	}
}

func TestHTTPGateway_TimeoutIsFailure(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	g := HTTPGateway{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}
	if _, err := g.Generate(context.Background(), "hello", "s1"); !errors.Is(err, errs.ErrResponder) {
		t.Fatalf("expected responder error, got %v", err)
	}
}

func TestHTTPGateway_MissingURLIsFailure(t *testing.T) {
	g := HTTPGateway{}
	if _, err := g.Generate(context.Background(), "hello", "s1"); !errors.Is(err, errs.ErrResponder) {
		t.Fatalf("expected responder error, got %v", err)
	}
}

func TestMockGateway_Deterministic(t *testing.T) {
	g := MockGateway{}
	first, _ := g.Generate(context.Background(), "hello", "s1")
	second, _ := g.Generate(context.Background(), "hello", "s1")
	if first.Text != second.Text {
		t.Fatalf("same input must produce same reply: %q vs %q", first.Text, second.Text)
	}
	if first.DetectedLanguage != "en" {
		t.Fatalf("expected en, got %q", first.DetectedLanguage)
	}

	no, _ := g.Generate(context.Background(), "hei, takk for hjelpen", "s1")
	if no.DetectedLanguage != "no" {
		t.Fatalf("expected norwegian detection, got %q", no.DetectedLanguage)
	}
}

func TestFallbackText(t *testing.T) {
	if FallbackText("no") == FallbackText("en") {
		t.Fatal("fallback must be localized")
	}
}

func TestMaintenanceNotice(t *testing.T) {
	got := MaintenanceNotice("en", "", 15)
	if got != "Our bot is under construction. An advisor will contact you shortly. Estimated wait: 15 min." {
		t.Fatalf("unexpected notice %q", got)
	}
	custom := MaintenanceNotice("en", "We are migrating servers.", 5)
	if custom != "We are migrating servers. Estimated wait: 5 min." {
		t.Fatalf("unexpected custom notice %q", custom)
	}
	no := MaintenanceNotice("no", "", 15)
	if no != "Botten er under arbeid. En rådgiver kontakter deg snart. Forventet ventetid: 15 min." {
		t.Fatalf("unexpected norwegian notice %q", no)
	}
}
