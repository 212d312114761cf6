// Package notify dispatches fire-and-forget notifications on ticket
// activity. Delivery failures are logged, never surfaced to the chat turn.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	natsclient "github.com/resto-ai/support-engine/internal/nats"

	"github.com/resto-ai/support-engine/internal/model"
	"github.com/resto-ai/support-engine/pkg/logger"
)

const webhookTimeout = 5 * time.Second

// Event is one outbound notification payload.
type Event struct {
	Kind      string    `json:"kind"` // ticket_created | agent_reply
	TicketID  string    `json:"ticket_id"`
	SessionID string    `json:"session_id,omitempty"`
	Email     string    `json:"email,omitempty"`
	Body      string    `json:"body,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier publishes events to the notification stream and, when
// configured, to an operator webhook.
type Notifier struct {
	streams    *natsclient.StreamManager
	webhookURL string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewNotifier creates a notifier. webhookURL may be empty.
func NewNotifier(streams *natsclient.StreamManager, webhookURL string, log *logger.Logger) *Notifier {
	return &Notifier{
		streams:    streams,
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: webhookTimeout},
		logger:     log,
	}
}

// TicketCreated announces a new ticket.
func (n *Notifier) TicketCreated(ctx context.Context, ticket *model.Ticket, sessionID string) {
	n.dispatch(ctx, Event{
		Kind:      "ticket_created",
		TicketID:  ticket.ID,
		SessionID: sessionID,
		Email:     ticket.Email,
		CreatedAt: time.Now(),
	})
}

// AgentReply announces an agent message on a ticket thread.
func (n *Notifier) AgentReply(ctx context.Context, msg *model.TicketMessage) {
	n.dispatch(ctx, Event{
		Kind:      "agent_reply",
		TicketID:  msg.TicketID,
		Body:      msg.Body,
		CreatedAt: time.Now(),
	})
}

// dispatch runs delivery in the background so the chat turn never waits
// on a notification.
func (n *Notifier) dispatch(ctx context.Context, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("failed to encode notification", zap.Error(err))
		return
	}

	go func() {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), webhookTimeout)
		defer cancel()

		if n.streams != nil {
			if _, err := n.streams.Publish(sendCtx, natsclient.NotificationSubject(event.Kind), data); err != nil {
				n.logger.Warn("notification publish failed",
					zap.String("kind", event.Kind), zap.Error(err))
			}
		}

		if n.webhookURL != "" {
			n.postWebhook(sendCtx, data, event.Kind)
		}
	}()
}

func (n *Notifier) postWebhook(ctx context.Context, data []byte, kind string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(data))
	if err != nil {
		n.logger.Warn("webhook request build failed", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.logger.Warn("webhook delivery failed",
			zap.String("kind", kind), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.logger.Warn("webhook rejected notification",
			zap.String("kind", kind), zap.Int("status", resp.StatusCode))
	}
}
