// Package window owns per-session conversation history and token budget.
package window

import (
	"time"

	"github.com/resto-ai/support-engine/internal/llm"
	"github.com/resto-ai/support-engine/internal/model"
	"github.com/resto-ai/support-engine/pkg/metrics"
)

const (
	// DefaultTokenBudget is the context budget in estimated tokens.
	DefaultTokenBudget = 4000
	// DefaultIdleTimeout is the inactivity threshold for close recommendations.
	DefaultIdleTimeout = 30 * time.Minute

	warningRatio  = 0.70
	criticalRatio = 0.85

	// recentWindow is how many trailing turns stay verbatim during compaction.
	recentWindow = 5
	// hardCap is the maximum retained turns after critical pruning.
	hardCap = 20
)

// priorityIntents are force-kept during critical pruning regardless of age.
var priorityIntents = map[model.Intent]bool{
	model.IntentComplaint:      true,
	model.IntentRefundRequest:  true,
	model.IntentMissingItem:    true,
	model.IntentWrongOrder:     true,
	model.IntentQualityIssue:   true,
	model.IntentSpeakAgent:     true,
	model.IntentContactSupport: true,
}

// LLMContext is the bounded slice of history handed to the model.
type LLMContext struct {
	History              []llm.ChatMessage
	Metadata             model.ContextMetadata
	TokenBudgetRemaining int
	State                model.ContextHealth
}

// Manager applies token accounting and the summarize-then-prune strategy.
type Manager struct {
	tokenBudget int
	idleTimeout time.Duration
}

// NewManager creates a window manager. Zero values select the defaults.
func NewManager(tokenBudget int, idleTimeout time.Duration) *Manager {
	if tokenBudget <= 0 {
		tokenBudget = DefaultTokenBudget
	}
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Manager{tokenBudget: tokenBudget, idleTimeout: idleTimeout}
}

// EstimateTokens approximates the token cost of text (~1 token per 4 chars).
func EstimateTokens(text string) int {
	n := len(text) / 4
	if n == 0 && text != "" {
		n = 1
	}
	return n
}

// AddTurn appends one turn and updates activity metadata. The caller holds
// the session lock; two turns of one session are never appended concurrently.
func (m *Manager) AddTurn(c *model.ConversationContext, role model.Role, text string, intent *model.IntentResult, actions []model.Action) {
	now := time.Now()
	c.Turns = append(c.Turns, model.Turn{
		Role:      role,
		Content:   text,
		Timestamp: now,
		Intent:    intent,
		Actions:   actions,
		TokenCost: EstimateTokens(text),
	})
	c.Metadata.LastActivity = now
}

// TotalTokens sums the estimated cost of all retained turns.
func (m *Manager) TotalTokens(c *model.ConversationContext) int {
	total := 0
	for _, t := range c.Turns {
		total += t.TokenCost
	}
	return total
}

// CalculateContextState reports budget health. Monotonic in token count.
func (m *Manager) CalculateContextState(c *model.ConversationContext) model.ContextHealth {
	ratio := float64(m.TotalTokens(c)) / float64(m.tokenBudget)
	switch {
	case ratio >= criticalRatio:
		return model.ContextCritical
	case ratio >= warningRatio:
		return model.ContextWarning
	default:
		return model.ContextHealthy
	}
}

// BuildLLMContext compacts history as needed and returns the model-ready
// window. The result never exceeds the configured budget.
func (m *Manager) BuildLLMContext(c *model.ConversationContext) *LLMContext {
	state := m.CalculateContextState(c)

	switch state {
	case model.ContextWarning:
		m.summarize(c)
		metrics.ContextCompactionsTotal.WithLabelValues("summarize").Inc()
	case model.ContextCritical:
		m.summarize(c)
		m.prune(c)
		metrics.ContextCompactionsTotal.WithLabelValues("prune").Inc()
	}

	history := make([]llm.ChatMessage, 0, len(c.Turns))
	for _, t := range c.Turns {
		role := string(t.Role)
		if t.Role == model.RoleSystem {
			role = "user" // summaries travel as user-visible context
		}
		history = append(history, llm.ChatMessage{Role: role, Content: t.Content})
	}

	remaining := m.tokenBudget - m.TotalTokens(c)
	if remaining < 0 {
		remaining = 0
	}

	return &LLMContext{
		History:              history,
		Metadata:             c.Metadata,
		TokenBudgetRemaining: remaining,
		State:                m.CalculateContextState(c),
	}
}

// ShouldCloseConversation recommends closing after prolonged inactivity.
// It is advisory only; nothing is mutated.
func (m *Manager) ShouldCloseConversation(c *model.ConversationContext) bool {
	return time.Since(c.Metadata.LastActivity) > m.idleTimeout
}

// IdleTimeout returns the configured inactivity threshold.
func (m *Manager) IdleTimeout() time.Duration {
	return m.idleTimeout
}
