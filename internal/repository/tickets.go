// Package repository persists tickets and ticket messages through
// JetStream. Records are append-only: a status change is a new ticket
// record on the same subject, and reads take the latest.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	natsclient "github.com/resto-ai/support-engine/internal/nats"

	"github.com/resto-ai/support-engine/internal/model"
	"github.com/resto-ai/support-engine/pkg/logger"
	"github.com/resto-ai/support-engine/pkg/metrics"
)

// ErrTicketNotFound is returned when a ticket does not exist.
var ErrTicketNotFound = fmt.Errorf("ticket not found")

// TicketRepository is the persistence collaborator for support tickets.
type TicketRepository struct {
	streams *natsclient.StreamManager
	logger  *logger.Logger
}

// NewTicketRepository creates a JetStream-backed ticket repository.
func NewTicketRepository(streams *natsclient.StreamManager, log *logger.Logger) *TicketRepository {
	return &TicketRepository{streams: streams, logger: log}
}

// CreateTicket opens a ticket and records the customer's first message.
func (r *TicketRepository) CreateTicket(ctx context.Context, email, message string) (*model.Ticket, error) {
	return r.CreateTicketForSession(ctx, email, message, "")
}

// CreateTicketForSession opens a ticket linked to a chat session.
func (r *TicketRepository) CreateTicketForSession(ctx context.Context, email, message, sessionID string) (*model.Ticket, error) {
	now := time.Now()
	ticket := &model.Ticket{
		ID:        uuid.Must(uuid.NewV7()).String(),
		SessionID: sessionID,
		Email:     email,
		Status:    model.TicketOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := r.putTicket(ctx, ticket); err != nil {
		return nil, err
	}
	if _, err := r.AppendMessage(ctx, ticket.ID, message, model.AuthorCustomer); err != nil {
		return nil, err
	}

	metrics.TicketsTotal.Inc()
	r.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("email", email))
	return ticket, nil
}

// AppendMessage adds a message to a ticket thread.
func (r *TicketRepository) AppendMessage(ctx context.Context, ticketID, body string, author model.AuthorType) (*model.TicketMessage, error) {
	msg := &model.TicketMessage{
		ID:        uuid.Must(uuid.NewV7()).String(),
		TicketID:  ticketID,
		Author:    author,
		Body:      body,
		CreatedAt: time.Now(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ticket message: %w", err)
	}
	seq, err := r.streams.Publish(ctx, natsclient.TicketMessageSubject(ticketID, author), data)
	if err != nil {
		return nil, err
	}
	msg.Sequence = seq
	return msg, nil
}

// GetTicket returns the latest record for a ticket, or ErrTicketNotFound.
func (r *TicketRepository) GetTicket(ctx context.Context, ticketID string) (*model.Ticket, error) {
	data, seq, err := r.streams.FetchLast(ctx, natsclient.TicketSubject(ticketID))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, ErrTicketNotFound
	}

	var ticket model.Ticket
	if err := json.Unmarshal(data, &ticket); err != nil {
		return nil, fmt.Errorf("failed to decode ticket: %w", err)
	}
	ticket.Sequence = seq
	return &ticket, nil
}

// GetMessages returns a ticket's thread after the given sequence.
func (r *TicketRepository) GetMessages(ctx context.Context, ticketID string, afterSequence uint64, limit int) ([]model.TicketMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}

	payloads, sequences, err := r.streams.FetchAll(ctx, natsclient.TicketMessageFilter(ticketID), afterSequence, limit)
	if err != nil {
		return nil, err
	}

	messages := make([]model.TicketMessage, 0, len(payloads))
	for i, data := range payloads {
		var msg model.TicketMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		msg.Sequence = sequences[i]
		messages = append(messages, msg)
	}
	return messages, nil
}

// AssignAgent records an agent taking over a ticket.
func (r *TicketRepository) AssignAgent(ctx context.Context, ticketID, agentID string) (*model.Ticket, error) {
	ticket, err := r.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	ticket.AgentID = agentID
	ticket.Status = model.TicketAssigned
	ticket.UpdatedAt = time.Now()
	if err := r.putTicket(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// SubscribeToMessages delivers new thread messages to the callback until
// the context is cancelled. Used to push live agent replies to the chat.
func (r *TicketRepository) SubscribeToMessages(ctx context.Context, ticketID string, callback func(msg *model.TicketMessage)) error {
	return r.streams.Subscribe(ctx, natsclient.TicketMessageFilter(ticketID), func(data []byte, sequence uint64) {
		var msg model.TicketMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			r.logger.Warn("undecodable ticket message on stream",
				zap.String("ticket_id", ticketID), zap.Error(err))
			return
		}
		msg.Sequence = sequence
		callback(&msg)
	})
}

// IsTimedOut reports whether a ticket has seen no activity for the given
// number of hours.
func (r *TicketRepository) IsTimedOut(ctx context.Context, ticketID string, hours int) (bool, error) {
	ticket, err := r.GetTicket(ctx, ticketID)
	if err != nil {
		return false, err
	}

	lastActivity := ticket.UpdatedAt
	messages, err := r.GetMessages(ctx, ticketID, 0, 100)
	if err == nil {
		for _, m := range messages {
			if m.CreatedAt.After(lastActivity) {
				lastActivity = m.CreatedAt
			}
		}
	}

	return time.Since(lastActivity) > time.Duration(hours)*time.Hour, nil
}

func (r *TicketRepository) putTicket(ctx context.Context, ticket *model.Ticket) error {
	data, err := json.Marshal(ticket)
	if err != nil {
		return fmt.Errorf("failed to marshal ticket: %w", err)
	}
	seq, err := r.streams.Publish(ctx, natsclient.TicketSubject(ticket.ID), data)
	if err != nil {
		return err
	}
	ticket.Sequence = seq
	return nil
}
