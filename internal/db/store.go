package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/whisperstudio/chat-backend/internal/errs"
	"github.com/whisperstudio/chat-backend/internal/models"
)

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// EnsureSession returns the session, creating it on first contact.
// Session ids arrive from clients and may never have been seen before.
func (s *Store) EnsureSession(ctx context.Context, sessionID string) (models.Session, error) {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO sessions (id, created_at, last_updated)
		VALUES ($1, NOW(), NOW())
		ON CONFLICT (id) DO NOTHING
	`, sessionID)
	if err != nil {
		return models.Session{}, err
	}
	return s.GetSession(ctx, sessionID)
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (models.Session, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, taken_over, maintenance_override, expected_wait_minutes,
			admin_typing, country, created_at, last_updated
		FROM sessions WHERE id = $1
	`, sessionID)

	var sess models.Session
	err := row.Scan(&sess.ID, &sess.TakenOver, &sess.MaintenanceOverride,
		&sess.ExpectedWaitMinutes, &sess.AdminTyping, &sess.Country,
		&sess.CreatedAt, &sess.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Session{}, errs.ErrNotFound
	}
	if err != nil {
		return models.Session{}, err
	}
	return sess, nil
}

// PatchSession applies a partial update; untouched fields keep their
// value (last-write-wins per field).
func (s *Store) PatchSession(ctx context.Context, sessionID string, patch models.SessionPatch) error {
	if patch.Empty() {
		return nil
	}

	var sets []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.TakenOver != nil {
		add("taken_over", *patch.TakenOver)
	}
	if patch.MaintenanceOverride != nil {
		add("maintenance_override", *patch.MaintenanceOverride)
	}
	if patch.ExpectedWaitMinutes != nil {
		add("expected_wait_minutes", *patch.ExpectedWaitMinutes)
	}
	if patch.AdminTyping != nil {
		add("admin_typing", *patch.AdminTyping)
	}
	if patch.Country != nil {
		add("country", *patch.Country)
	}
	if patch.LastUpdated != nil {
		add("last_updated", *patch.LastUpdated)
	} else {
		sets = append(sets, "last_updated = NOW()")
	}

	args = append(args, sessionID)
	query := "UPDATE sessions SET " + strings.Join(sets, ", ") +
		fmt.Sprintf(" WHERE id = $%d", len(args))

	tag, err := s.Pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// AppendMessage inserts one message and returns it with the
// server-assigned sequence number and timestamp filled in.
func (s *Store) AppendMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO messages (id, session_id, text, sender, sent_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING seq, sent_at
	`, msg.ID, msg.SessionID, msg.Text, string(msg.Sender))
	if err := row.Scan(&msg.Seq, &msg.SentAt); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

func (s *Store) ListMessages(ctx context.Context, sessionID string) ([]models.Message, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, session_id, text, sender, sent_at, seq
		FROM messages WHERE session_id = $1
		ORDER BY sent_at ASC, seq ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (s *Store) CountMessages(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages WHERE session_id = $1`, sessionID).Scan(&n)
	return n, err
}

// RecentMessages returns the newest messages across all sessions for the
// wait estimator. The limit keeps the scan bounded; the estimator does
// not care about global order.
func (s *Store) RecentMessages(ctx context.Context, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 5000
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, session_id, text, sender, sent_at, seq
		FROM messages ORDER BY sent_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func scanMessages(rows pgx.Rows) ([]models.Message, error) {
	var out []models.Message
	for rows.Next() {
		var m models.Message
		var sender string
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Text, &sender, &m.SentAt, &m.Seq); err != nil {
			return nil, err
		}
		m.Sender = models.Sender(sender)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) CreateTicket(ctx context.Context, t models.Ticket) (models.Ticket, error) {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO tickets (id, session_owner_id, title, description, category, priority, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING created_at, updated_at
	`, t.ID, t.SessionOwnerID, t.Title, t.Description, t.Category, t.Priority, string(t.Status))
	if err := row.Scan(&t.CreatedAt, &t.UpdatedAt); err != nil {
		return models.Ticket{}, err
	}
	return t, nil
}

func (s *Store) GetTicket(ctx context.Context, ticketID string) (models.Ticket, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, session_owner_id, title, description, category, priority, status, created_at, updated_at
		FROM tickets WHERE id = $1
	`, ticketID)
	return scanTicketRow(row)
}

func scanTicketRow(row pgx.Row) (models.Ticket, error) {
	var t models.Ticket
	var status string
	err := row.Scan(&t.ID, &t.SessionOwnerID, &t.Title, &t.Description,
		&t.Category, &t.Priority, &status, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Ticket{}, errs.ErrNotFound
	}
	if err != nil {
		return models.Ticket{}, err
	}
	t.Status = models.TicketStatus(status)
	return t, nil
}

func (s *Store) ListTickets(ctx context.Context, sessionID string, status string, limit int) ([]models.Ticket, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `SELECT id, session_owner_id, title, description, category, priority, status, created_at, updated_at FROM tickets`
	var args []any
	var wheres []string
	if sessionID != "" {
		args = append(args, sessionID)
		wheres = append(wheres, fmt.Sprintf("session_owner_id = $%d", len(args)))
	}
	if status != "" {
		args = append(args, status)
		wheres = append(wheres, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(wheres) > 0 {
		query += " WHERE " + strings.Join(wheres, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Ticket
	for rows.Next() {
		var t models.Ticket
		var st string
		if err := rows.Scan(&t.ID, &t.SessionOwnerID, &t.Title, &t.Description,
			&t.Category, &t.Priority, &st, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		t.Status = models.TicketStatus(st)
		out = append(out, t)
	}
	return out, rows.Err()
}

// AppendTicketMessage adds a message and moves an open ticket to
// in-progress in the same transaction.
func (s *Store) AppendTicketMessage(ctx context.Context, msg models.TicketMessage) (models.TicketMessage, error) {
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		var status string
		err := tx.QueryRow(ctx, `SELECT status FROM tickets WHERE id = $1 FOR UPDATE`, msg.TicketID).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.ErrNotFound
		}
		if err != nil {
			return err
		}

		row := tx.QueryRow(ctx, `
			INSERT INTO ticket_messages (id, ticket_id, text, sender, sent_at)
			VALUES ($1, $2, $3, $4, NOW())
			RETURNING sent_at
		`, msg.ID, msg.TicketID, msg.Text, string(msg.Sender))
		if err := row.Scan(&msg.SentAt); err != nil {
			return err
		}

		if models.TicketStatus(status) == models.TicketOpen {
			_, err = tx.Exec(ctx, `UPDATE tickets SET status = $1, updated_at = NOW() WHERE id = $2`,
				string(models.TicketInProgress), msg.TicketID)
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE tickets SET updated_at = NOW() WHERE id = $1`, msg.TicketID)
		return err
	})
	if err != nil {
		return models.TicketMessage{}, err
	}
	return msg, nil
}

func (s *Store) ListTicketMessages(ctx context.Context, ticketID string) ([]models.TicketMessage, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, ticket_id, text, sender, sent_at
		FROM ticket_messages WHERE ticket_id = $1 ORDER BY sent_at ASC
	`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TicketMessage
	for rows.Next() {
		var m models.TicketMessage
		var sender string
		if err := rows.Scan(&m.ID, &m.TicketID, &m.Text, &sender, &m.SentAt); err != nil {
			return nil, err
		}
		m.Sender = models.Sender(sender)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) SetTicketStatus(ctx context.Context, ticketID string, status models.TicketStatus) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE tickets SET status = $1, updated_at = NOW() WHERE id = $2`,
		string(status), ticketID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

type Stats struct {
	Sessions          int            `json:"sessions"`
	Messages          int            `json:"messages"`
	TicketsByStatus   map[string]int `json:"tickets_by_status"`
	SessionsByCountry map[string]int `json:"sessions_by_country"`
}

// AggregateStats feeds the admin dashboard's count widgets.
func (s *Store) AggregateStats(ctx context.Context) (Stats, error) {
	stats := Stats{
		TicketsByStatus:   map[string]int{},
		SessionsByCountry: map[string]int{},
	}

	if err := s.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&stats.Sessions); err != nil {
		return Stats{}, err
	}
	if err := s.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages`).Scan(&stats.Messages); err != nil {
		return Stats{}, err
	}

	rows, err := s.Pool.Query(ctx, `SELECT status, COUNT(*) FROM tickets GROUP BY status`)
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return Stats{}, err
		}
		stats.TicketsByStatus[status] = n
	}
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	countryRows, err := s.Pool.Query(ctx, `
		SELECT COALESCE(country, 'unknown'), COUNT(*) FROM sessions GROUP BY 1
	`)
	if err != nil {
		return Stats{}, err
	}
	defer countryRows.Close()
	for countryRows.Next() {
		var country string
		var n int
		if err := countryRows.Scan(&country, &n); err != nil {
			return Stats{}, err
		}
		stats.SessionsByCountry[country] = n
	}
	return stats, countryRows.Err()
}
