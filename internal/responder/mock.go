package responder

import (
	"context"
	"fmt"
	"strings"

	"github.com/whisperstudio/chat-backend/internal/utils"
)

// MockGateway answers deterministically from the input hash. Used when
// no responder URL is configured, so local setups still get replies.
type MockGateway struct{}

var cannedReplies = []string{
	"Thanks for reaching out! What can I help you with?",
	"Got it. Could you tell me a bit more?",
	"I can help with that. One moment.",
	"That's a good question, let me check.",
}

func (MockGateway) Generate(_ context.Context, text string, sessionID string) (Reply, error) {
	h := utils.HashStringToUint64(sessionID + "|" + text)
	reply := cannedReplies[h%uint64(len(cannedReplies))]

	lang := "en"
	lower := strings.ToLower(text)
	for _, w := range []string{"hei", "takk", "hvordan", "vennligst"} {
		if strings.Contains(lower, w) {
			lang = "no"
			break
		}
	}
	if lang == "no" {
		reply = fmt.Sprintf("Takk for meldingen! (%s)", reply)
	}
	return Reply{Text: reply, DetectedLanguage: lang}, nil
}
