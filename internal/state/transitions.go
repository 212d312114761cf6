package state

import (
	"context"
	"time"

	"github.com/resto-ai/support-engine/internal/model"
	"github.com/resto-ai/support-engine/pkg/metrics"
)

// escalationConfidenceFloor: below this, a complaint is handed to a human
// rather than answered from a low-confidence guess.
const escalationConfidenceFloor = 0.5

// needsEscalation decides whether a turn must reach a human agent.
func needsEscalation(c *model.ConversationContext, res *model.IntentResult) bool {
	if res == nil {
		return false
	}
	if res.EscalationFlag {
		return true
	}
	if res.Primary.Intent.IsComplaintFamily() {
		return true
	}
	return res.Primary.Confidence < escalationConfidenceFloor && res.Sentiment.HasComplaint
}

func intentIs(targets ...model.Intent) Condition {
	return func(c *model.ConversationContext, res *model.IntentResult) bool {
		if res == nil {
			return false
		}
		for _, t := range targets {
			if res.Primary.Intent == t {
				return true
			}
		}
		return false
	}
}

func isFAQ(c *model.ConversationContext, res *model.IntentResult) bool {
	return res != nil && res.Primary.Intent.IsFAQ()
}

func hasTicket(c *model.ConversationContext, res *model.IntentResult) bool {
	return len(c.Metadata.TicketIDs) > 0
}

func agentAssigned(c *model.ConversationContext, res *model.IntentResult) bool {
	return c.Metadata.AgentAssigned
}

func enqueueAgent(queue AgentQueue) SideEffect {
	return func(ctx context.Context, c *model.ConversationContext, res *model.IntentResult) error {
		entry := model.AgentQueueEntry{
			SessionID: c.SessionID,
			Reason:    "escalation",
			Priority:  model.PriorityNormal,
			QueuedAt:  time.Now(),
		}
		if res != nil {
			entry.Intent = res.Primary.Intent
			if res.Entities.Priority != "" {
				entry.Priority = res.Entities.Priority
			}
		}
		metrics.EscalationsTotal.WithLabelValues(string(entry.Intent)).Inc()
		return queue.Enqueue(ctx, entry)
	}
}

// defaultTransitions is the declarative table. Order matters: the first
// matching row wins. Escalation and handoff rows sit above the generic
// conversation flow so a complaint is never shadowed by an FAQ match.
func defaultTransitions(queue AgentQueue) []Transition {
	return []Transition{
		{
			// Explicit self loop: while a human handles the session the
			// machine stays put and no bot-side escalation re-fires.
			Name:      "agent_handling",
			From:      model.StateAgentConversation,
			To:        model.StateAgentConversation,
			Condition: agentAssigned,
		},
		{
			Name:      "request_human_agent",
			From:      AnyState,
			To:        model.StateSupportTicketMode,
			Condition: intentIs(model.IntentContactSupport, model.IntentSpeakAgent),
		},
		{
			Name:      "ticket_created",
			From:      model.StateSupportTicketMode,
			To:        model.StateWaitingForAgent,
			Condition: hasTicket,
		},
		{
			Name:       "escalate",
			From:       AnyState,
			To:         model.StateEscalationPending,
			Condition:  needsEscalation,
			SideEffect: enqueueAgent(queue),
		},
		{
			Name:      "agent_joined",
			From:      model.StateEscalationPending,
			To:        model.StateAgentConversation,
			Condition: agentAssigned,
		},
		{
			Name:      "handoff_complete",
			From:      model.StateAgentHandoff,
			To:        model.StateAgentConversation,
			Condition: agentAssigned,
		},
		{
			Name:      "agent_picked_up",
			From:      model.StateWaitingForAgent,
			To:        model.StateAgentConversation,
			Condition: agentAssigned,
		},
		{
			Name:      "session_farewell",
			From:      AnyState,
			To:        model.StateClosed,
			Condition: intentIs(model.IntentGoodbye),
		},
		{
			Name:      "faq_from_idle",
			From:      model.StateIdle,
			To:        model.StateFAQMode,
			Condition: isFAQ,
		},
		{
			Name: "conversation_started",
			From: model.StateIdle,
			To:   model.StateActiveConversation,
		},
		{
			Name: "input_received",
			From: model.StateAwaitingUserInput,
			To:   model.StateActiveConversation,
		},
		{
			Name:      "faq_entered",
			From:      model.StateActiveConversation,
			To:        model.StateFAQMode,
			Condition: isFAQ,
		},
		{
			Name: "faq_left",
			From: model.StateFAQMode,
			To:   model.StateActiveConversation,
			Condition: func(c *model.ConversationContext, res *model.IntentResult) bool {
				return res != nil && !res.Primary.Intent.IsFAQ() && res.Primary.Intent != model.IntentUnclear
			},
		},
	}
}
