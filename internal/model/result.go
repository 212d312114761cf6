package model

// ProcessResult is the single output contract the UI layer depends on.
type ProcessResult struct {
	Response         string                 `json:"response"`
	Escalate         bool                   `json:"escalate"`
	EscalationReason string                 `json:"escalation_reason,omitempty"`
	UsedRAG          bool                   `json:"used_rag"`
	UsedTools        bool                   `json:"used_tools"`
	State            ConversationState      `json:"state"`
	Actions          []Action               `json:"actions,omitempty"`
	Proactive        []ProactiveOpportunity `json:"proactive,omitempty"`
	Metadata         map[string]any         `json:"metadata,omitempty"`
}

// ResponseTemplate maps an intent to a deterministic canned answer.
// Condition and Render are pure functions of context and entities.
type ResponseTemplate struct {
	ID        string
	Intent    Intent
	Condition func(c *ConversationContext, e EntityExtraction) bool
	Render    func(c *ConversationContext, e EntityExtraction) string
	Actions   []Action
	Metadata  TemplateMetadata
}

// TemplateMetadata carries routing hints for a template.
type TemplateMetadata struct {
	CanEscalate bool
	Priority    int
	Tags        []string
}
