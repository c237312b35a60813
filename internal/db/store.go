package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adaptive-cs/insights/internal/models"
)

// Store gives read access to the ticketing product's tickets and messages
// tables. The schema is owned by the surrounding product; everything here is
// a query, except the optional satisfaction write-back.
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

// MessageSpan reports the true range of stored message timestamps, used to
// diagnose analysis windows that miss the data entirely.
func (s *Store) MessageSpan(ctx context.Context) (min, max time.Time, total int, err error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT COALESCE(MIN(created_at), 'epoch'::timestamptz),
			COALESCE(MAX(created_at), 'epoch'::timestamptz),
			COUNT(*)
		FROM messages
	`)
	if err = row.Scan(&min, &max, &total); err != nil {
		return time.Time{}, time.Time{}, 0, err
	}
	return min, max, total, nil
}

// TicketWindowStats returns per-ticket bot/user message counts for tickets
// created in [start, end] that have at least one message.
func (s *Store) TicketWindowStats(ctx context.Context, start, end time.Time) ([]models.TicketWindowStats, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT t.id, t.status,
			COUNT(*) FILTER (WHERE m.is_bot) AS bot_messages,
			COUNT(*) FILTER (WHERE NOT m.is_bot) AS user_messages
		FROM tickets t
		JOIN messages m ON m.ticket_id = t.id
		WHERE t.created_at BETWEEN $1 AND $2
		GROUP BY t.id, t.status
	`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TicketWindowStats
	for rows.Next() {
		var st models.TicketWindowStats
		if err := rows.Scan(&st.TicketID, &st.Status, &st.BotMessages, &st.UserMessages); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// TicketConversation returns a ticket's messages ordered by time, joined with
// the ticket context. A ticket without messages yields an empty transcript.
func (s *Store) TicketConversation(ctx context.Context, ticketID string) (models.TicketConversation, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT m.id, m.content, m.is_bot, m.sender_name, m.created_at,
			t.title, t.category, t.description
		FROM messages m
		JOIN tickets t ON m.ticket_id = t.id
		WHERE m.ticket_id = $1
		ORDER BY m.created_at ASC
	`, ticketID)
	if err != nil {
		return models.TicketConversation{}, err
	}
	defer rows.Close()

	conv := models.TicketConversation{TicketID: ticketID}
	for rows.Next() {
		var m models.Message
		m.TicketID = ticketID
		if err := rows.Scan(&m.ID, &m.Content, &m.IsBot, &m.SenderName, &m.CreatedAt,
			&conv.Title, &conv.Category, &conv.Description); err != nil {
			return models.TicketConversation{}, err
		}
		conv.Messages = append(conv.Messages, m)
	}
	return conv, rows.Err()
}

// SampleResolvedTicketIDs draws an unweighted random sample of resolved or
// closed tickets in the window that have at least one message.
func (s *Store) SampleResolvedTicketIDs(ctx context.Context, start, end time.Time, limit int) ([]string, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT t.id
		FROM tickets t
		WHERE t.created_at BETWEEN $1 AND $2
			AND t.status IN ('resolved', 'closed')
			AND EXISTS (SELECT 1 FROM messages m WHERE m.ticket_id = t.id)
		ORDER BY RANDOM()
		LIMIT $3
	`, start, end, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// FirstUserMessages returns the earliest non-bot message per ticket for
// tickets created in the window, the input of the pattern analysis.
func (s *Store) FirstUserMessages(ctx context.Context, start, end time.Time) ([]models.FirstUserMessage, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT DISTINCT ON (m.ticket_id)
			m.ticket_id, m.content, t.title, t.category
		FROM messages m
		JOIN tickets t ON m.ticket_id = t.id
		WHERE NOT m.is_bot
			AND t.created_at BETWEEN $1 AND $2
		ORDER BY m.ticket_id, m.created_at ASC
	`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.FirstUserMessage
	for rows.Next() {
		var f models.FirstUserMessage
		if err := rows.Scan(&f.TicketID, &f.Content, &f.Title, &f.Category); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// FCRFailedTickets lists resolved/closed tickets in the window that needed
// more than one bot turn, with their transcripts, worst first.
func (s *Store) FCRFailedTickets(ctx context.Context, start, end time.Time, limit int) ([]models.FCRFailedTicket, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx, `
		WITH failed AS (
			SELECT t.id, t.title, t.category,
				COUNT(*) FILTER (WHERE m.is_bot) AS bot_turns
			FROM tickets t
			JOIN messages m ON m.ticket_id = t.id
			WHERE t.created_at BETWEEN $1 AND $2
				AND t.status IN ('resolved', 'closed')
			GROUP BY t.id, t.title, t.category
			HAVING COUNT(*) FILTER (WHERE m.is_bot) > 1
			ORDER BY bot_turns DESC
			LIMIT $3
		)
		SELECT f.id, f.title, f.category, f.bot_turns,
			m.id, m.content, m.is_bot, m.sender_name, m.created_at
		FROM failed f
		JOIN messages m ON m.ticket_id = f.id
		ORDER BY f.bot_turns DESC, f.id, m.created_at ASC
	`, start, end, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.FCRFailedTicket
	index := map[string]int{}
	for rows.Next() {
		var (
			ft models.FCRFailedTicket
			m  models.Message
		)
		if err := rows.Scan(&ft.TicketID, &ft.Title, &ft.Category, &ft.BotTurns,
			&m.ID, &m.Content, &m.IsBot, &m.SenderName, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.TicketID = ft.TicketID
		i, ok := index[ft.TicketID]
		if !ok {
			out = append(out, ft)
			i = len(out) - 1
			index[ft.TicketID] = i
		}
		out[i].Messages = append(out[i].Messages, m)
	}
	return out, rows.Err()
}

// TicketTextFilter narrows the conversation corpus pulled for intent
// ranking. Zero values mean no filter.
type TicketTextFilter struct {
	Status       string
	Category     string
	Since        time.Time
	Until        time.Time
	LimitTickets int
}

// TicketTexts collapses each ticket's messages into one ordered text blob,
// scoped to the most recent tickets matching the filter.
func (s *Store) TicketTexts(ctx context.Context, f TicketTextFilter) ([]models.TicketText, error) {
	if f.LimitTickets <= 0 || f.LimitTickets > 5000 {
		f.LimitTickets = 500
	}

	scope := `SELECT id FROM tickets`
	var args []any
	var wheres []string
	if f.Status != "" {
		args = append(args, f.Status)
		wheres = append(wheres, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		wheres = append(wheres, fmt.Sprintf("category = $%d", len(args)))
	}
	if len(wheres) > 0 {
		scope += " WHERE " + strings.Join(wheres, " AND ")
	}
	args = append(args, f.LimitTickets)
	scope += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	query := fmt.Sprintf(`
		WITH ticket_scope AS (%s)
		SELECT m.ticket_id, m.content
		FROM messages m
		JOIN ticket_scope s ON s.id = m.ticket_id`, scope)
	var more []string
	if !f.Since.IsZero() {
		args = append(args, f.Since)
		more = append(more, fmt.Sprintf("m.created_at >= $%d", len(args)))
	}
	if !f.Until.IsZero() {
		args = append(args, f.Until)
		more = append(more, fmt.Sprintf("m.created_at < $%d", len(args)))
	}
	if len(more) > 0 {
		query += " WHERE " + strings.Join(more, " AND ")
	}
	query += " ORDER BY m.ticket_id, m.created_at ASC"

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TicketText
	index := map[string]int{}
	for rows.Next() {
		var ticketID, content string
		if err := rows.Scan(&ticketID, &content); err != nil {
			return nil, err
		}
		i, ok := index[ticketID]
		if !ok {
			out = append(out, models.TicketText{TicketID: ticketID})
			i = len(out) - 1
			index[ticketID] = i
		}
		if out[i].Text != "" {
			out[i].Text += " "
		}
		out[i].Text += content
	}
	return out, rows.Err()
}

// UpdateSatisfaction writes an aggregate relevance score back onto a ticket.
// The column belongs to the external schema; last writer wins.
func (s *Store) UpdateSatisfaction(ctx context.Context, ticketID string, score float64) error {
	_, err := s.Pool.Exec(ctx,
		`UPDATE tickets SET satisfaction = $1 WHERE id = $2`, score, ticketID)
	return err
}
