package model

// ConversationState is the state machine position for one session. Exactly
// one active state per session at any time.
type ConversationState string

const (
	StateIdle               ConversationState = "IDLE"
	StateActiveConversation ConversationState = "ACTIVE_CONVERSATION"
	StateAwaitingUserInput  ConversationState = "AWAITING_USER_INPUT"
	StateFAQMode            ConversationState = "FAQ_MODE"
	StateSupportTicketMode  ConversationState = "SUPPORT_TICKET_MODE"
	StateAgentHandoff       ConversationState = "AGENT_HANDOFF_IN_PROGRESS"
	StateAgentConversation  ConversationState = "AGENT_CONVERSATION"
	StateWaitingForAgent    ConversationState = "WAITING_FOR_AGENT"
	StateEscalationPending  ConversationState = "ESCALATION_PENDING"
	StateClosed             ConversationState = "CLOSED"
)

// Terminal reports whether the state ends the conversation.
func (s ConversationState) Terminal() bool {
	return s == StateClosed
}

// ContextHealth describes how full the token budget is.
type ContextHealth string

const (
	ContextHealthy  ContextHealth = "healthy"
	ContextWarning  ContextHealth = "warning"
	ContextCritical ContextHealth = "critical"
)
