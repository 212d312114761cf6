package model

import (
	"time"
)

// TicketStatus is the lifecycle status of a support ticket.
type TicketStatus string

const (
	TicketOpen     TicketStatus = "open"
	TicketAssigned TicketStatus = "assigned"
	TicketResolved TicketStatus = "resolved"
	TicketClosed   TicketStatus = "closed"
)

// AuthorType identifies who wrote a ticket message.
type AuthorType string

const (
	AuthorCustomer AuthorType = "customer"
	AuthorAgent    AuthorType = "agent"
	AuthorSystem   AuthorType = "system"
)

// Ticket is a persisted support case handled by a human agent.
type Ticket struct {
	ID        string       `json:"id"`
	SessionID string       `json:"session_id,omitempty"`
	Email     string       `json:"email"`
	Subject   string       `json:"subject,omitempty"`
	Status    TicketStatus `json:"status"`
	AgentID   string       `json:"agent_id,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`

	// JetStream metadata, populated on read.
	Sequence uint64 `json:"sequence,omitempty"`
}

// TicketMessage is one message on a ticket thread.
type TicketMessage struct {
	ID        string     `json:"id"`
	TicketID  string     `json:"ticket_id"`
	Author    AuthorType `json:"author"`
	Body      string     `json:"body"`
	CreatedAt time.Time  `json:"created_at"`
	Sequence  uint64     `json:"sequence,omitempty"`
}

// AgentQueueEntry is published when a session needs a human agent.
type AgentQueueEntry struct {
	SessionID string    `json:"session_id"`
	Intent    Intent    `json:"intent"`
	Reason    string    `json:"reason"`
	Priority  Priority  `json:"priority"`
	QueuedAt  time.Time `json:"queued_at"`
}
