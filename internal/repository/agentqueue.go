package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	natsclient "github.com/resto-ai/support-engine/internal/nats"

	"github.com/resto-ai/support-engine/internal/model"
	"github.com/resto-ai/support-engine/pkg/logger"
)

// AgentQueue publishes escalated sessions to the human-agent queue
// stream. Implements the state machine's queue collaborator.
type AgentQueue struct {
	streams *natsclient.StreamManager
	logger  *logger.Logger
}

// NewAgentQueue creates a JetStream-backed agent queue.
func NewAgentQueue(streams *natsclient.StreamManager, log *logger.Logger) *AgentQueue {
	return &AgentQueue{streams: streams, logger: log}
}

// Enqueue publishes one queue entry. Called by the escalation transition.
func (q *AgentQueue) Enqueue(ctx context.Context, entry model.AgentQueueEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal agent queue entry: %w", err)
	}

	if _, err := q.streams.Publish(ctx, natsclient.AgentQueueSubject(), data); err != nil {
		return err
	}

	q.logger.Info("session queued for human agent",
		zap.String("session_id", entry.SessionID),
		zap.String("intent", string(entry.Intent)),
		zap.String("priority", string(entry.Priority)))
	return nil
}
