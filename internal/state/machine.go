// Package state implements the declarative conversation state machine.
package state

import (
	"context"

	"go.uber.org/zap"

	"github.com/resto-ai/support-engine/internal/model"
	"github.com/resto-ai/support-engine/pkg/logger"
	"github.com/resto-ai/support-engine/pkg/metrics"
)

// AnyState matches every non-terminal state in a transition's From field.
const AnyState model.ConversationState = "*"

// Condition decides whether a transition applies to the current turn.
type Condition func(c *model.ConversationContext, res *model.IntentResult) bool

// SideEffect runs when a transition fires, before the reply is computed.
// Errors are logged and swallowed so a failed notification never breaks
// the turn.
type SideEffect func(ctx context.Context, c *model.ConversationContext, res *model.IntentResult) error

// Transition is one row of the declarative transition table.
type Transition struct {
	Name       string
	From       model.ConversationState
	To         model.ConversationState
	Condition  Condition
	SideEffect SideEffect
}

// AgentQueue receives sessions that need a human agent.
type AgentQueue interface {
	Enqueue(ctx context.Context, entry model.AgentQueueEntry) error
}

// Machine evaluates the transition table. First matching row wins, table
// order is the tie-break. If no row matches the state is unchanged.
type Machine struct {
	transitions []Transition
	logger      *logger.Logger
}

// NewMachine builds a machine with the default transition table wired to
// the given agent queue.
func NewMachine(queue AgentQueue, log *logger.Logger) *Machine {
	return &Machine{
		transitions: defaultTransitions(queue),
		logger:      log,
	}
}

// NewMachineWithTable builds a machine over a custom table. Used in tests.
func NewMachineWithTable(table []Transition, log *logger.Logger) *Machine {
	return &Machine{transitions: table, logger: log}
}

// Next applies one user turn to the machine: it evaluates the table from
// the current state and returns the resulting state. The matched row's
// side effect runs exactly once, before this function returns.
func (m *Machine) Next(ctx context.Context, current model.ConversationState, c *model.ConversationContext, res *model.IntentResult) model.ConversationState {
	if current.Terminal() {
		return current
	}

	for i := range m.transitions {
		tr := &m.transitions[i]
		if tr.From != AnyState && tr.From != current {
			continue
		}
		// A wildcard row never re-fires into the state it is already in,
		// so its side effect runs once per entry, not once per turn.
		if tr.From == AnyState && tr.To == current {
			continue
		}
		if tr.Condition != nil && !tr.Condition(c, res) {
			continue
		}

		if tr.SideEffect != nil {
			if err := tr.SideEffect(ctx, c, res); err != nil {
				m.logger.Error("state transition side effect failed",
					zap.String("transition", tr.Name),
					zap.String("session_id", c.SessionID),
					zap.Error(err))
			}
		}

		m.logger.Info("state transition",
			zap.String("transition", tr.Name),
			zap.String("session_id", c.SessionID),
			zap.String("from", string(current)),
			zap.String("to", string(tr.To)))
		metrics.StateTransitionsTotal.WithLabelValues(string(current), string(tr.To)).Inc()
		return tr.To
	}

	return current
}
