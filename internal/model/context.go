// Package model defines data structures for the support engine.
package model

import (
	"time"
)

// Role represents the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Action is a suggested follow-up the UI can render as a quick reply.
type Action struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	Value string `json:"value,omitempty"`
}

// Turn is a single message in a conversation. Immutable once appended.
type Turn struct {
	Role      Role          `json:"role"`
	Content   string        `json:"content"`
	Timestamp time.Time     `json:"timestamp"`
	Intent    *IntentResult `json:"intent,omitempty"`
	Actions   []Action      `json:"actions,omitempty"`
	TokenCost int           `json:"token_cost"`

	// Summary marks a synthetic turn produced by context compaction.
	Summary bool `json:"summary,omitempty"`
}

// ContextMetadata carries per-session facts accumulated across turns.
type ContextMetadata struct {
	StartedAt       time.Time       `json:"started_at"`
	LastActivity    time.Time       `json:"last_activity"`
	Language        string          `json:"language,omitempty"`
	Branch          string          `json:"branch,omitempty"`
	Platform        string          `json:"platform,omitempty"`
	TicketIDs       []string        `json:"ticket_ids,omitempty"`
	AgentAssigned   bool            `json:"agent_assigned,omitempty"`
	ResolvedIntents map[Intent]bool `json:"resolved_intents,omitempty"`
	FailedIntents   map[Intent]int  `json:"failed_intents,omitempty"`
}

// ConversationContext is the per-session conversation history and metadata.
// It is owned by one session and must only be mutated by its session worker.
type ConversationContext struct {
	SessionID string          `json:"session_id"`
	UserEmail string          `json:"user_email,omitempty"`
	Turns     []Turn          `json:"turns"`
	Metadata  ContextMetadata `json:"metadata"`
}

// NewConversationContext creates an empty context for a session.
func NewConversationContext(sessionID string) *ConversationContext {
	now := time.Now()
	return &ConversationContext{
		SessionID: sessionID,
		Metadata: ContextMetadata{
			StartedAt:       now,
			LastActivity:    now,
			ResolvedIntents: make(map[Intent]bool),
			FailedIntents:   make(map[Intent]int),
		},
	}
}

// LastTurn returns the most recent turn, or nil for an empty context.
func (c *ConversationContext) LastTurn() *Turn {
	if len(c.Turns) == 0 {
		return nil
	}
	return &c.Turns[len(c.Turns)-1]
}

// UserTurns returns the user-authored turns in chronological order.
func (c *ConversationContext) UserTurns() []Turn {
	var out []Turn
	for _, t := range c.Turns {
		if t.Role == RoleUser {
			out = append(out, t)
		}
	}
	return out
}

// Clone returns a deep copy. Used by tests and by the summarizer, which
// must not alias the live turn slice.
func (c *ConversationContext) Clone() *ConversationContext {
	cp := *c
	cp.Turns = make([]Turn, len(c.Turns))
	copy(cp.Turns, c.Turns)
	cp.Metadata.TicketIDs = append([]string(nil), c.Metadata.TicketIDs...)
	cp.Metadata.ResolvedIntents = make(map[Intent]bool, len(c.Metadata.ResolvedIntents))
	for k, v := range c.Metadata.ResolvedIntents {
		cp.Metadata.ResolvedIntents[k] = v
	}
	cp.Metadata.FailedIntents = make(map[Intent]int, len(c.Metadata.FailedIntents))
	for k, v := range c.Metadata.FailedIntents {
		cp.Metadata.FailedIntents[k] = v
	}
	return &cp
}
