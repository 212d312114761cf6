package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resto-ai/support-engine/internal/model"
	"github.com/resto-ai/support-engine/pkg/logger"
)

type fakeQueue struct {
	entries []model.AgentQueueEntry
}

func (q *fakeQueue) Enqueue(ctx context.Context, entry model.AgentQueueEntry) error {
	q.entries = append(q.entries, entry)
	return nil
}

func testMachine(t *testing.T) (*Machine, *fakeQueue) {
	t.Helper()
	log, err := logger.NewDevelopment()
	require.NoError(t, err)
	queue := &fakeQueue{}
	return NewMachine(queue, log), queue
}

func intentResult(intent model.Intent, confidence float64) *model.IntentResult {
	return &model.IntentResult{
		Primary: model.IntentScore{Intent: intent, Confidence: confidence},
	}
}

func TestIdleToActiveConversation(t *testing.T) {
	m, _ := testMachine(t)
	c := model.NewConversationContext("s1")

	next := m.Next(context.Background(), model.StateIdle, c, intentResult(model.IntentGreeting, 0.9))

	assert.Equal(t, model.StateActiveConversation, next)
}

func TestFAQIntentEntersFAQMode(t *testing.T) {
	m, _ := testMachine(t)
	c := model.NewConversationContext("s1")

	fromIdle := m.Next(context.Background(), model.StateIdle, c, intentResult(model.IntentFAQHalal, 0.9))
	assert.Equal(t, model.StateFAQMode, fromIdle)

	fromActive := m.Next(context.Background(), model.StateActiveConversation, c, intentResult(model.IntentFAQHours, 0.8))
	assert.Equal(t, model.StateFAQMode, fromActive)
}

func TestMissingItemEscalatesAndEnqueuesOnce(t *testing.T) {
	m, queue := testMachine(t)
	c := model.NewConversationContext("s1")

	res := intentResult(model.IntentMissingItem, 0.85)
	res.EscalationFlag = true
	res.Entities.OrderNumber = "12345"

	next := m.Next(context.Background(), model.StateActiveConversation, c, res)

	assert.Equal(t, model.StateEscalationPending, next)
	require.Len(t, queue.entries, 1)
	assert.Equal(t, "s1", queue.entries[0].SessionID)
	assert.Equal(t, model.IntentMissingItem, queue.entries[0].Intent)
}

func TestEscalationDoesNotReenqueueWhilePending(t *testing.T) {
	m, queue := testMachine(t)
	c := model.NewConversationContext("s1")

	res := intentResult(model.IntentComplaint, 0.9)
	res.EscalationFlag = true

	first := m.Next(context.Background(), model.StateActiveConversation, c, res)
	require.Equal(t, model.StateEscalationPending, first)

	second := m.Next(context.Background(), first, c, res)
	assert.Equal(t, model.StateEscalationPending, second)
	assert.Len(t, queue.entries, 1)
}

func TestLowConfidenceComplaintEscalates(t *testing.T) {
	m, queue := testMachine(t)
	c := model.NewConversationContext("s1")

	res := intentResult(model.IntentUnclear, 0.3)
	res.Sentiment.HasComplaint = true

	next := m.Next(context.Background(), model.StateActiveConversation, c, res)

	assert.Equal(t, model.StateEscalationPending, next)
	assert.Len(t, queue.entries, 1)
}

func TestSpeakAgentEntersSupportTicketMode(t *testing.T) {
	m, _ := testMachine(t)
	c := model.NewConversationContext("s1")

	next := m.Next(context.Background(), model.StateFAQMode, c, intentResult(model.IntentSpeakAgent, 0.9))

	assert.Equal(t, model.StateSupportTicketMode, next)
}

func TestTicketMovesToWaitingForAgent(t *testing.T) {
	m, _ := testMachine(t)
	c := model.NewConversationContext("s1")
	c.Metadata.TicketIDs = []string{"tkt-1"}

	next := m.Next(context.Background(), model.StateSupportTicketMode, c, intentResult(model.IntentUnclear, 0.2))

	assert.Equal(t, model.StateWaitingForAgent, next)
}

func TestAgentAssignmentReachesAgentConversation(t *testing.T) {
	m, _ := testMachine(t)
	c := model.NewConversationContext("s1")
	c.Metadata.AgentAssigned = true

	fromEscalation := m.Next(context.Background(), model.StateEscalationPending, c, nil)
	assert.Equal(t, model.StateAgentConversation, fromEscalation)

	fromWaiting := m.Next(context.Background(), model.StateWaitingForAgent, c, nil)
	assert.Equal(t, model.StateAgentConversation, fromWaiting)
}

func TestAgentConversationStaysPutOnComplaint(t *testing.T) {
	m, queue := testMachine(t)
	c := model.NewConversationContext("s1")
	c.Metadata.AgentAssigned = true

	res := intentResult(model.IntentComplaint, 0.9)
	res.EscalationFlag = true

	next := m.Next(context.Background(), model.StateAgentConversation, c, res)

	assert.Equal(t, model.StateAgentConversation, next)
	assert.Empty(t, queue.entries)
}

func TestGoodbyeClosesSession(t *testing.T) {
	m, _ := testMachine(t)
	c := model.NewConversationContext("s1")

	next := m.Next(context.Background(), model.StateActiveConversation, c, intentResult(model.IntentGoodbye, 0.9))

	assert.Equal(t, model.StateClosed, next)
}

func TestClosedIsTerminal(t *testing.T) {
	m, queue := testMachine(t)
	c := model.NewConversationContext("s1")

	res := intentResult(model.IntentComplaint, 0.9)
	res.EscalationFlag = true

	next := m.Next(context.Background(), model.StateClosed, c, res)

	assert.Equal(t, model.StateClosed, next)
	assert.Empty(t, queue.entries)
}

func TestNoMatchLeavesStateUnchanged(t *testing.T) {
	m, _ := testMachine(t)
	c := model.NewConversationContext("s1")

	next := m.Next(context.Background(), model.StateFAQMode, c, intentResult(model.IntentUnclear, 0.2))

	assert.Equal(t, model.StateFAQMode, next)
}

// Escalation safety: from every non-terminal state, an escalation-flagged
// turn reaches ESCALATION_PENDING within at most two turns.
func TestEscalationNeverDropped(t *testing.T) {
	m, _ := testMachine(t)

	states := []model.ConversationState{
		model.StateIdle,
		model.StateActiveConversation,
		model.StateAwaitingUserInput,
		model.StateFAQMode,
		model.StateSupportTicketMode,
		model.StateAgentHandoff,
		model.StateWaitingForAgent,
	}

	res := intentResult(model.IntentComplaint, 0.9)
	res.EscalationFlag = true

	for _, from := range states {
		c := model.NewConversationContext("s-" + string(from))

		next := m.Next(context.Background(), from, c, res)
		if next != model.StateEscalationPending {
			next = m.Next(context.Background(), next, c, res)
		}
		assert.Equal(t, model.StateEscalationPending, next, "from %s", from)
	}
}
