package responder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/whisperstudio/chat-backend/internal/errs"
)

// HTTPGateway calls the external bot backend over HTTP.
type HTTPGateway struct {
	BaseURL string
	Timeout time.Duration
	Client  *http.Client
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

type chatResponse struct {
	Reply string `json:"reply"`
	Lang  string `json:"lang"`
}

func (g HTTPGateway) Generate(ctx context.Context, text string, sessionID string) (Reply, error) {
	if strings.TrimSpace(g.BaseURL) == "" {
		return Reply{}, fmt.Errorf("%w: RESPONDER_URL is not set", errs.ErrResponder)
	}

	payload := chatRequest{SessionID: sessionID, Text: text}
	b, _ := json.Marshal(payload)
	url := strings.TrimRight(g.BaseURL, "/") + "/api/chat"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return Reply{}, fmt.Errorf("%w: %v", errs.ErrResponder, err)
	}
	req.Header.Set("Content-Type", "application/json")

	timeout := g.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 && remaining < timeout {
			timeout = remaining
		}
	}
	client := g.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Reply{}, fmt.Errorf("%w: request timed out", errs.ErrResponder)
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return Reply{}, fmt.Errorf("%w: request timed out", errs.ErrResponder)
		}
		return Reply{}, fmt.Errorf("%w: request failed", errs.ErrResponder)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Reply{}, fmt.Errorf("%w: http status %s", errs.ErrResponder, resp.Status)
	}

	var r chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return Reply{}, fmt.Errorf("%w: malformed response", errs.ErrResponder)
	}
	if strings.TrimSpace(r.Reply) == "" {
		return Reply{}, fmt.Errorf("%w: empty reply", errs.ErrResponder)
	}
	return Reply{Text: r.Reply, DetectedLanguage: r.Lang}, nil
}
