package proactive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resto-ai/support-engine/internal/model"
	"github.com/resto-ai/support-engine/pkg/logger"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	log, err := logger.NewDevelopment()
	require.NoError(t, err)
	return NewEngine(log)
}

func addUserTurn(c *model.ConversationContext, intent model.Intent, polarity string) {
	c.Turns = append(c.Turns, model.Turn{
		Role:      model.RoleUser,
		Content:   "message",
		Timestamp: time.Now(),
		Intent: &model.IntentResult{
			Primary:   model.IntentScore{Intent: intent, Confidence: 0.8},
			Sentiment: model.SentimentScore{Polarity: polarity},
		},
	})
}

func TestQuietConversationHasNoOpportunities(t *testing.T) {
	e := testEngine(t)
	c := model.NewConversationContext("s1")
	addUserTurn(c, model.IntentGreeting, "neutral")
	addUserTurn(c, model.IntentFAQHours, "neutral")

	opps := e.AnalyzeUserBehavior(c, model.StateFAQMode)

	assert.Empty(t, opps)
}

func TestRepeatedRefundFrustrationRanksFirst(t *testing.T) {
	e := testEngine(t)
	c := model.NewConversationContext("s1")
	c.Metadata.FailedIntents[model.IntentRefundRequest] = 2
	addUserTurn(c, model.IntentRefundRequest, "negative")
	addUserTurn(c, model.IntentRefundRequest, "negative")
	addUserTurn(c, model.IntentRefundRequest, "negative")

	opps := e.AnalyzeUserBehavior(c, model.StateActiveConversation)

	require.NotEmpty(t, opps)
	top := opps[0]
	assert.Equal(t, model.OpportunityFrustratedUser, top.Type)
	assert.Equal(t, "escalate_immediately", top.Action)
	assert.Equal(t, model.OpportunityUrgent, top.Priority)
	assert.GreaterOrEqual(t, top.Confidence, 0.6)
}

func TestRepeatedIntentDetected(t *testing.T) {
	e := testEngine(t)
	c := model.NewConversationContext("s1")
	addUserTurn(c, model.IntentFAQMenu, "neutral")
	addUserTurn(c, model.IntentFAQMenu, "neutral")
	addUserTurn(c, model.IntentFAQMenu, "neutral")

	opps := e.AnalyzeUserBehavior(c, model.StateActiveConversation)

	require.NotEmpty(t, opps)
	found := false
	for _, o := range opps {
		if o.Type == model.OpportunityRepeatedIntent {
			found = true
			assert.Equal(t, model.OpportunityHigh, o.Priority)
		}
	}
	assert.True(t, found)
}

func TestLowDiversityDetected(t *testing.T) {
	e := testEngine(t)
	c := model.NewConversationContext("s1")
	addUserTurn(c, model.IntentFAQMenu, "neutral")
	addUserTurn(c, model.IntentFAQHours, "neutral")
	addUserTurn(c, model.IntentFAQMenu, "neutral")
	addUserTurn(c, model.IntentFAQHours, "neutral")

	opps := e.AnalyzeUserBehavior(c, model.StateActiveConversation)

	found := false
	for _, o := range opps {
		if o.Type == model.OpportunityLowDiversity {
			found = true
			assert.Equal(t, "offer_agent", o.Action)
			assert.Equal(t, model.OpportunityHigh, o.Priority)
		}
	}
	assert.True(t, found)
}

func TestLowDiversityYieldsToRepetition(t *testing.T) {
	e := testEngine(t)
	c := model.NewConversationContext("s1")
	addUserTurn(c, model.IntentFAQMenu, "neutral")
	addUserTurn(c, model.IntentFAQMenu, "neutral")
	addUserTurn(c, model.IntentFAQMenu, "neutral")
	addUserTurn(c, model.IntentFAQHours, "neutral")

	opps := e.AnalyzeUserBehavior(c, model.StateActiveConversation)

	repeated := false
	for _, o := range opps {
		assert.NotEqual(t, model.OpportunityLowDiversity, o.Type)
		if o.Type == model.OpportunityRepeatedIntent {
			repeated = true
		}
	}
	assert.True(t, repeated)
}

func TestFrustrationIgnoresStaleNegativity(t *testing.T) {
	e := testEngine(t)
	c := model.NewConversationContext("s1")
	c.Metadata.FailedIntents[model.IntentRefundRequest] = 2
	addUserTurn(c, model.IntentRefundRequest, "negative")
	addUserTurn(c, model.IntentFAQHours, "neutral")
	addUserTurn(c, model.IntentFAQMenu, "neutral")
	addUserTurn(c, model.IntentFAQDelivery, "neutral")

	for _, o := range e.AnalyzeUserBehavior(c, model.StateActiveConversation) {
		assert.NotEqual(t, model.OpportunityFrustratedUser, o.Type)
	}
}

func TestOrderAnxietyDetected(t *testing.T) {
	e := testEngine(t)
	c := model.NewConversationContext("s1")
	addUserTurn(c, model.IntentOrderTracking, "neutral")
	addUserTurn(c, model.IntentOrderTracking, "neutral")
	addUserTurn(c, model.IntentOrderTracking, "negative")

	opps := e.AnalyzeUserBehavior(c, model.StateActiveConversation)

	found := false
	for _, o := range opps {
		if o.Type == model.OpportunityOrderAnxiety {
			found = true
		}
	}
	assert.True(t, found)
}

func TestUpsellNeedsNoOrderActivity(t *testing.T) {
	e := testEngine(t)
	c := model.NewConversationContext("s1")
	addUserTurn(c, model.IntentFAQMenu, "neutral")
	addUserTurn(c, model.IntentFAQHours, "neutral")
	addUserTurn(c, model.IntentFAQDelivery, "neutral")
	addUserTurn(c, model.IntentFAQPayment, "neutral")

	opps := e.AnalyzeUserBehavior(c, model.StateActiveConversation)
	found := false
	for _, o := range opps {
		if o.Type == model.OpportunityUpsellNudge {
			found = true
		}
	}
	assert.True(t, found)

	// An order number anywhere in the history disables the nudge.
	c2 := model.NewConversationContext("s2")
	addUserTurn(c2, model.IntentFAQMenu, "neutral")
	c2.Turns[0].Intent.Entities.OrderNumber = "12345"
	addUserTurn(c2, model.IntentFAQHours, "neutral")
	addUserTurn(c2, model.IntentFAQDelivery, "neutral")
	addUserTurn(c2, model.IntentFAQPayment, "neutral")

	for _, o := range e.AnalyzeUserBehavior(c2, model.StateActiveConversation) {
		assert.NotEqual(t, model.OpportunityUpsellNudge, o.Type)
	}
}

func TestSilenceTriggersLivenessCheck(t *testing.T) {
	e := testEngine(t)
	c := model.NewConversationContext("s1")
	c.Turns = append(c.Turns, model.Turn{
		Role:      model.RoleAssistant,
		Content:   "Voilà !",
		Timestamp: time.Now().Add(-3 * time.Minute),
	})

	opps := e.AnalyzeUserBehavior(c, model.StateActiveConversation)

	require.Len(t, opps, 1)
	assert.Equal(t, model.OpportunityLivenessCheck, opps[0].Type)
}

func TestTrackerThrottlesByInterval(t *testing.T) {
	tr := NewTracker(0, 0)
	base := time.Now()
	tr.now = func() time.Time { return base }

	opp := []model.ProactiveOpportunity{{
		Type:       model.OpportunityLivenessCheck,
		Confidence: 0.8,
	}}

	first := tr.Pick("s1", opp)
	require.NotNil(t, first)

	// Within the 2-minute window nothing is shown.
	tr.now = func() time.Time { return base.Add(time.Minute) }
	assert.Nil(t, tr.Pick("s1", opp))

	// A different session is unaffected.
	assert.NotNil(t, tr.Pick("s2", opp))

	// After the window the session can see the next one.
	tr.now = func() time.Time { return base.Add(3 * time.Minute) }
	assert.NotNil(t, tr.Pick("s1", opp))
}

func TestTrackerEnforcesConfidenceFloor(t *testing.T) {
	tr := NewTracker(0, 0)

	weak := []model.ProactiveOpportunity{{
		Type:       model.OpportunityUpsellNudge,
		Confidence: 0.4,
	}}
	assert.Nil(t, tr.Pick("s1", weak))

	// A weak candidate ahead of a strong one does not block it.
	mixed := []model.ProactiveOpportunity{
		{Type: model.OpportunityUpsellNudge, Confidence: 0.4},
		{Type: model.OpportunityFrustratedUser, Confidence: 0.9},
	}
	picked := tr.Pick("s1", mixed)
	require.NotNil(t, picked)
	assert.Equal(t, model.OpportunityFrustratedUser, picked.Type)
}
