package window

import (
	"fmt"
	"strings"
	"time"

	"github.com/resto-ai/support-engine/internal/model"
)

// summarize collapses everything older than the recent window into one
// synthetic turn: dominant topic, up to 3 key user statements, unresolved
// issues. Runs before pruning so context degrades gracefully instead of
// truncating user-visible history.
func (m *Manager) summarize(c *model.ConversationContext) {
	if len(c.Turns) <= recentWindow+1 {
		return
	}

	cutoff := len(c.Turns) - recentWindow
	older := c.Turns[:cutoff]

	summary := buildSummary(older, c.Metadata)
	compacted := make([]model.Turn, 0, recentWindow+1+countPriority(older))
	compacted = append(compacted, model.Turn{
		Role:      model.RoleSystem,
		Content:   summary,
		Timestamp: time.Now(),
		TokenCost: EstimateTokens(summary),
		Summary:   true,
	})
	// Priority turns survive compaction verbatim.
	for _, t := range older {
		if isPriorityTurn(t) {
			compacted = append(compacted, t)
		}
	}
	compacted = append(compacted, c.Turns[cutoff:]...)
	c.Turns = compacted
}

// prune enforces the hard cap, force-keeping the summary turn and any turn
// whose intent is in the priority set.
func (m *Manager) prune(c *model.ConversationContext) {
	if len(c.Turns) <= hardCap {
		m.enforceBudget(c)
		return
	}

	keep := make([]model.Turn, 0, hardCap)
	// First pass: summary + priority turns, oldest first.
	for _, t := range c.Turns {
		if t.Summary || isPriorityTurn(t) {
			keep = append(keep, t)
		}
	}
	// Second pass: fill the remaining slots with the most recent turns.
	budget := hardCap - len(keep)
	start := len(c.Turns) - budget
	if start < 0 {
		start = 0
	}
	for _, t := range c.Turns[start:] {
		if t.Summary || isPriorityTurn(t) {
			continue // already kept
		}
		keep = append(keep, t)
	}
	if len(keep) > hardCap {
		keep = keep[len(keep)-hardCap:]
	}
	c.Turns = keep
	m.enforceBudget(c)
}

// enforceBudget drops the oldest droppable turns until the window fits the
// token budget. The summary turn and the latest turn always survive.
func (m *Manager) enforceBudget(c *model.ConversationContext) {
	for m.TotalTokens(c) > m.tokenBudget && len(c.Turns) > 2 {
		dropped := false
		for i, t := range c.Turns[:len(c.Turns)-1] {
			if t.Summary {
				continue
			}
			c.Turns = append(c.Turns[:i], c.Turns[i+1:]...)
			dropped = true
			break
		}
		if !dropped {
			return
		}
	}
}

func isPriorityTurn(t model.Turn) bool {
	return t.Intent != nil && priorityIntents[t.Intent.Primary.Intent]
}

func countPriority(turns []model.Turn) int {
	n := 0
	for _, t := range turns {
		if isPriorityTurn(t) {
			n++
		}
	}
	return n
}

// buildSummary renders the synthetic summary turn.
func buildSummary(older []model.Turn, meta model.ContextMetadata) string {
	intentCounts := make(map[model.Intent]int)
	var keyStatements []string
	var unresolved []string

	for _, t := range older {
		if t.Summary {
			// Fold an earlier summary's content in verbatim.
			keyStatements = append([]string{t.Content}, keyStatements...)
			continue
		}
		if t.Role != model.RoleUser {
			continue
		}
		if t.Intent != nil {
			intentCounts[t.Intent.Primary.Intent]++
		}
		if len(keyStatements) < 3 && len(t.Content) > 0 {
			keyStatements = append(keyStatements, truncate(t.Content, 120))
		}
	}

	topic := model.IntentUnclear
	best := 0
	for intent, n := range intentCounts {
		if n > best {
			topic, best = intent, n
		}
	}

	for intent := range intentCounts {
		if !meta.ResolvedIntents[intent] && intent != model.IntentGreeting && intent != model.IntentThanks {
			unresolved = append(unresolved, string(intent))
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[Conversation summary] Main topic: %s.", topic)
	if len(keyStatements) > 0 {
		fmt.Fprintf(&b, " Key user statements: %s.", strings.Join(keyStatements, " | "))
	}
	if len(unresolved) > 0 {
		fmt.Fprintf(&b, " Unresolved issues: %s.", strings.Join(unresolved, ", "))
	}
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
