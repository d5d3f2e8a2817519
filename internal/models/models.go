package models

import "time"

type Sender string

const (
	SenderUser  Sender = "user"
	SenderBot   Sender = "bot"
	SenderAdmin Sender = "admin"
)

func (s Sender) Valid() bool {
	switch s {
	case SenderUser, SenderBot, SenderAdmin:
		return true
	}
	return false
}

// Mode is the derived decision for a send; never stored.
type Mode string

const (
	ModeHuman       Mode = "human"
	ModeMaintenance Mode = "maintenance"
	ModeAutonomous  Mode = "autonomous"
)

// GlobalSettings is the single process-wide chat configuration record.
// Written only by the admin surface; the pipeline reads snapshots.
type GlobalSettings struct {
	Enabled             bool              `json:"enabled"`
	MaintenanceMessage  string            `json:"maintenance_message"`
	ExpectedWaitMinutes *int              `json:"expected_wait_minutes,omitempty"`
	AppearanceHints     map[string]string `json:"appearance_hints,omitempty"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

func DefaultSettings() GlobalSettings {
	return GlobalSettings{Enabled: true}
}

type Session struct {
	ID                  string    `json:"id"`
	TakenOver           bool      `json:"taken_over"`
	MaintenanceOverride bool      `json:"maintenance_override"`
	ExpectedWaitMinutes *int      `json:"expected_wait_minutes,omitempty"`
	AdminTyping         bool      `json:"admin_typing"`
	Country             *string   `json:"country,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	LastUpdated         time.Time `json:"last_updated"`
}

// Mode arbitrates between the three response modes. Priority is fixed:
// a human take-over beats maintenance, maintenance beats the bot,
// no matter which upstream signal changed last.
func (s Session) Mode(settings GlobalSettings) Mode {
	if s.TakenOver {
		return ModeHuman
	}
	if !settings.Enabled || s.MaintenanceOverride {
		return ModeMaintenance
	}
	return ModeAutonomous
}

type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	SentAt    time.Time `json:"sent_at"`
	// Seq is the insertion order within a session, used to break
	// SentAt ties so a user message sorts before its own reply.
	Seq int64 `json:"seq"`
}

type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in-progress"
	TicketResolved   TicketStatus = "resolved"
)

func (s TicketStatus) Valid() bool {
	switch s {
	case TicketOpen, TicketInProgress, TicketResolved:
		return true
	}
	return false
}

type Ticket struct {
	ID             string       `json:"id"`
	SessionOwnerID string       `json:"session_owner_id"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	Category       string       `json:"category"`
	Priority       string       `json:"priority"`
	Status         TicketStatus `json:"status"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

type TicketMessage struct {
	ID       string    `json:"id"`
	TicketID string    `json:"ticket_id"`
	Text     string    `json:"text"`
	Sender   Sender    `json:"sender"`
	SentAt   time.Time `json:"sent_at"`
}

// SessionPatch is a partial session update. Nil fields are left untouched;
// writes are last-write-wins per field.
type SessionPatch struct {
	TakenOver           *bool
	MaintenanceOverride *bool
	ExpectedWaitMinutes *int
	AdminTyping         *bool
	Country             *string
	LastUpdated         *time.Time
}

func (p SessionPatch) Empty() bool {
	return p.TakenOver == nil && p.MaintenanceOverride == nil &&
		p.ExpectedWaitMinutes == nil && p.AdminTyping == nil &&
		p.Country == nil && p.LastUpdated == nil
}
