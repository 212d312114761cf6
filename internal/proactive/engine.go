// Package proactive detects moments where the assistant should speak up
// before the user asks, based on accumulated conversation context only.
package proactive

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/resto-ai/support-engine/internal/model"
	"github.com/resto-ai/support-engine/pkg/logger"
)

const (
	// recentTurnWindow bounds how far back detectors look.
	recentTurnWindow = 5

	// repetitionThreshold: same intent this many times in the recent
	// window signals the user is going in circles.
	repetitionThreshold = 3

	// lowDiversityTurns / lowDiversityMaxIntents: this many classified
	// recent turns circling at most this many topics is confusion even
	// when no single intent repeats enough for repetitionThreshold.
	lowDiversityTurns      = 4
	lowDiversityMaxIntents = 2

	// frustrationWindow: negative sentiment only counts this many user
	// turns back.
	frustrationWindow = 3

	// trackingAnxietyThreshold: order-tracking attempts before we assume
	// the customer is worried about their order.
	trackingAnxietyThreshold = 3

	// faqStruggleTurns: user turns spent in FAQ territory without a
	// single resolved intent.
	faqStruggleTurns = 4

	silenceMin = 2 * time.Minute
	silenceMax = 5 * time.Minute
)

// detector inspects the context and returns an opportunity or nil.
type detector func(c *model.ConversationContext, current model.ConversationState, now time.Time) *model.ProactiveOpportunity

// Engine runs all detectors over a conversation context.
type Engine struct {
	detectors []detector
	logger    *logger.Logger
}

// NewEngine creates an engine with the full detector set.
func NewEngine(log *logger.Logger) *Engine {
	return &Engine{
		detectors: []detector{
			detectFrustration,
			detectRepeatedIntent,
			detectLowDiversity,
			detectOrderAnxiety,
			detectFAQStruggle,
			detectUpsell,
			detectSilence,
		},
		logger: log,
	}
}

// AnalyzeUserBehavior returns detected opportunities sorted by priority
// then confidence, highest first. No network calls, history only.
func (e *Engine) AnalyzeUserBehavior(c *model.ConversationContext, current model.ConversationState) []model.ProactiveOpportunity {
	now := time.Now()

	var out []model.ProactiveOpportunity
	for _, d := range e.detectors {
		if opp := d(c, current, now); opp != nil {
			opp.DetectedAt = now
			out = append(out, *opp)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority.Rank() != out[j].Priority.Rank() {
			return out[i].Priority.Rank() > out[j].Priority.Rank()
		}
		return out[i].Confidence > out[j].Confidence
	})

	if len(out) > 0 {
		e.logger.Debug("proactive opportunities detected",
			zap.String("session_id", c.SessionID),
			zap.Int("count", len(out)),
			zap.String("top", string(out[0].Type)))
	}
	return out
}

// recentUserIntents returns the primary intents of the last n user turns,
// oldest first.
func recentUserIntents(c *model.ConversationContext, n int) []model.Intent {
	user := c.UserTurns()
	if len(user) > n {
		user = user[len(user)-n:]
	}
	var out []model.Intent
	for _, t := range user {
		if t.Intent != nil {
			out = append(out, t.Intent.Primary.Intent)
		}
	}
	return out
}

// detectFrustration: repeated failed refund attempts plus recent negative
// sentiment. The one detector allowed to demand immediate escalation.
func detectFrustration(c *model.ConversationContext, current model.ConversationState, now time.Time) *model.ProactiveOpportunity {
	if c.Metadata.FailedIntents[model.IntentRefundRequest] < 2 {
		return nil
	}

	user := c.UserTurns()
	if len(user) > frustrationWindow {
		user = user[len(user)-frustrationWindow:]
	}
	negative := false
	for _, t := range user {
		if t.Intent != nil && t.Intent.Sentiment.Polarity == "negative" {
			negative = true
			break
		}
	}
	if !negative {
		return nil
	}

	return &model.ProactiveOpportunity{
		Type:       model.OpportunityFrustratedUser,
		Action:     "escalate_immediately",
		Message:    "Je vois que votre demande de remboursement n'avance pas. Je transmets votre dossier directement à notre équipe.",
		Confidence: 0.9,
		Priority:   model.OpportunityUrgent,
	}
}

// detectRepeatedIntent: the same intent at least 3 times in the last 5
// user turns means the answers are not landing.
func detectRepeatedIntent(c *model.ConversationContext, current model.ConversationState, now time.Time) *model.ProactiveOpportunity {
	intents := recentUserIntents(c, recentTurnWindow)
	counts := make(map[model.Intent]int)
	for _, it := range intents {
		counts[it]++
	}
	for it, n := range counts {
		if n >= repetitionThreshold && it != model.IntentUnclear {
			return &model.ProactiveOpportunity{
				Type:       model.OpportunityRepeatedIntent,
				Action:     "offer_agent",
				Message:    "On dirait que je n'arrive pas à bien vous aider sur ce point. Voulez-vous parler à un membre de notre équipe ?",
				Confidence: 0.75,
				Priority:   model.OpportunityHigh,
			}
		}
	}
	return nil
}

// detectLowDiversity: several classified recent turns spanning one or two
// topics without any single intent repeating enough to count as
// repetition. The answers are close, but not landing.
func detectLowDiversity(c *model.ConversationContext, current model.ConversationState, now time.Time) *model.ProactiveOpportunity {
	counts := make(map[model.Intent]int)
	total := 0
	for _, it := range recentUserIntents(c, recentTurnWindow) {
		if it == model.IntentUnclear {
			continue
		}
		counts[it]++
		total++
	}
	if total < lowDiversityTurns || len(counts) > lowDiversityMaxIntents {
		return nil
	}
	for _, n := range counts {
		// The repetition detector owns this case.
		if n >= repetitionThreshold {
			return nil
		}
	}
	return &model.ProactiveOpportunity{
		Type:       model.OpportunityLowDiversity,
		Action:     "offer_agent",
		Message:    "Nous tournons un peu en rond sur ce sujet. Souhaitez-vous que je vous mette en relation avec notre équipe ?",
		Confidence: 0.7,
		Priority:   model.OpportunityHigh,
	}
}

// detectOrderAnxiety: excessive tracking attempts for the same order.
func detectOrderAnxiety(c *model.ConversationContext, current model.ConversationState, now time.Time) *model.ProactiveOpportunity {
	tracking := 0
	for _, it := range recentUserIntents(c, recentTurnWindow) {
		if it == model.IntentOrderTracking {
			tracking++
		}
	}
	if tracking < trackingAnxietyThreshold {
		return nil
	}
	return &model.ProactiveOpportunity{
		Type:       model.OpportunityOrderAnxiety,
		Action:     "reassure_order",
		Message:    "Votre commande est bien en route. Je vous préviens dès qu'elle approche !",
		Confidence: 0.7,
		Priority:   model.OpportunityNormal,
	}
}

// detectFAQStruggle: prolonged FAQ activity without a resolved intent.
func detectFAQStruggle(c *model.ConversationContext, current model.ConversationState, now time.Time) *model.ProactiveOpportunity {
	if current != model.StateFAQMode {
		return nil
	}
	faqTurns := 0
	for _, it := range recentUserIntents(c, recentTurnWindow) {
		if it.IsFAQ() {
			faqTurns++
		}
	}
	if faqTurns < faqStruggleTurns {
		return nil
	}
	for it, resolved := range c.Metadata.ResolvedIntents {
		if resolved && it.IsFAQ() {
			return nil
		}
	}
	return &model.ProactiveOpportunity{
		Type:       model.OpportunityFAQStruggle,
		Action:     "offer_help",
		Message:    "Vous ne trouvez pas ce que vous cherchez ? Posez-moi votre question autrement, ou demandez un agent.",
		Confidence: 0.65,
		Priority:   model.OpportunityNormal,
	}
}

// detectUpsell: sustained FAQ interest with no order in sight.
func detectUpsell(c *model.ConversationContext, current model.ConversationState, now time.Time) *model.ProactiveOpportunity {
	faqTurns := 0
	for _, t := range c.UserTurns() {
		if t.Intent == nil {
			continue
		}
		if t.Intent.Primary.Intent.IsFAQ() {
			faqTurns++
		}
		if t.Intent.Entities.OrderNumber != "" || t.Intent.Primary.Intent == model.IntentOrderTracking {
			return nil
		}
	}
	if faqTurns < faqStruggleTurns {
		return nil
	}
	return &model.ProactiveOpportunity{
		Type:       model.OpportunityUpsellNudge,
		Action:     "suggest_order",
		Message:    "Envie de passer commande ? Notre menu du moment est à découvrir ici.",
		Confidence: 0.6,
		Priority:   model.OpportunityLow,
	}
}

// detectSilence: a 2 to 5 minute pause after the last turn.
func detectSilence(c *model.ConversationContext, current model.ConversationState, now time.Time) *model.ProactiveOpportunity {
	last := c.LastTurn()
	if last == nil || current.Terminal() {
		return nil
	}
	idle := now.Sub(last.Timestamp)
	if idle < silenceMin || idle > silenceMax {
		return nil
	}
	return &model.ProactiveOpportunity{
		Type:       model.OpportunityLivenessCheck,
		Action:     "check_in",
		Message:    "Toujours là ? Je reste disponible si vous avez besoin d'aide.",
		Confidence: 0.6,
		Priority:   model.OpportunityLow,
	}
}
