package responder

import (
	"context"
	"fmt"
)

// Reply is what the external responder produced for one user message.
type Reply struct {
	Text             string `json:"reply"`
	DetectedLanguage string `json:"lang,omitempty"`
}

// Gateway generates assistant replies. Implementations are opaque and
// untrusted: callers treat any error, timeout, or empty reply as a
// responder failure and fall back locally.
type Gateway interface {
	Generate(ctx context.Context, text string, sessionID string) (Reply, error)
}

// FallbackText is the apology persisted when generation fails. The user
// must always see a reply, never silence.
func FallbackText(lang string) string {
	if lang == "no" {
		return "Beklager, noe gikk galt. Prøv igjen om litt."
	}
	return "Sorry, something went wrong. Please try again."
}

// MaintenanceNotice is the bot message for first contact while the
// assistant is on hold.
func MaintenanceNotice(lang string, custom string, waitMinutes int) string {
	base := custom
	if base == "" {
		if lang == "no" {
			base = "Botten er under arbeid. En rådgiver kontakter deg snart."
		} else {
			base = "Our bot is under construction. An advisor will contact you shortly."
		}
	}
	if lang == "no" {
		return fmt.Sprintf("%s Forventet ventetid: %d min.", base, waitMinutes)
	}
	return fmt.Sprintf("%s Estimated wait: %d min.", base, waitMinutes)
}
