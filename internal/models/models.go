package models

import "time"

// Ticket statuses mirror the ticketing store's enum. The store owns the
// lifecycle; this engine only reads them.
const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
	StatusClosed     = "closed"
)

type Ticket struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	Category    string    `json:"category"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type Message struct {
	ID         string    `json:"id"`
	TicketID   string    `json:"ticket_id"`
	Content    string    `json:"content"`
	IsBot      bool      `json:"is_bot"`
	SenderName string    `json:"sender_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// TicketWindowStats is one row of the per-ticket aggregation behind the FCR
// calculation: message counts for a ticket created inside the analysis window.
type TicketWindowStats struct {
	TicketID     string `json:"ticket_id"`
	Status       string `json:"status"`
	BotMessages  int    `json:"bot_messages"`
	UserMessages int    `json:"user_messages"`
}

// TicketConversation is the in-memory view of one ticket joined with its
// ordered messages. Built on demand, never persisted.
type TicketConversation struct {
	TicketID    string    `json:"ticket_id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Messages    []Message `json:"messages"`
}

// FirstUserMessage holds the earliest non-bot message of a ticket, the unit
// of the failure-pattern analysis.
type FirstUserMessage struct {
	TicketID string `json:"ticket_id"`
	Content  string `json:"content"`
	Title    string `json:"title"`
	Category string `json:"category"`
}

// FCRFailedTicket is a resolved ticket that needed more than one bot turn,
// returned with its full transcript for review.
type FCRFailedTicket struct {
	TicketID string    `json:"ticket_id"`
	Title    string    `json:"title"`
	Category string    `json:"category"`
	BotTurns int       `json:"bot_turns"`
	Messages []Message `json:"messages"`
}

// TicketText is a ticket's conversation collapsed into one text blob, the
// input of the coverage-based intent ranking.
type TicketText struct {
	TicketID string `json:"ticket_id"`
	Text     string `json:"text"`
}
