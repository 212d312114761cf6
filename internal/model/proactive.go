package model

import (
	"time"
)

// OpportunityType identifies a proactive intervention pattern.
type OpportunityType string

const (
	OpportunityFAQStruggle    OpportunityType = "faq_struggle"
	OpportunityRepeatedIntent OpportunityType = "repeated_intent"
	OpportunityLowDiversity   OpportunityType = "low_diversity"
	OpportunityOrderAnxiety   OpportunityType = "order_anxiety"
	OpportunityFrustratedUser OpportunityType = "frustrated_user"
	OpportunityUpsellNudge    OpportunityType = "upsell_nudge"
	OpportunityLivenessCheck  OpportunityType = "liveness_check"
)

// OpportunityPriority orders proactive interventions.
type OpportunityPriority string

const (
	OpportunityLow    OpportunityPriority = "low"
	OpportunityNormal OpportunityPriority = "normal"
	OpportunityHigh   OpportunityPriority = "high"
	OpportunityUrgent OpportunityPriority = "urgent"
)

// Rank maps priority to a sortable weight.
func (p OpportunityPriority) Rank() int {
	switch p {
	case OpportunityUrgent:
		return 3
	case OpportunityHigh:
		return 2
	case OpportunityNormal:
		return 1
	default:
		return 0
	}
}

// ProactiveOpportunity is a system-initiated suggestion derived from
// accumulated context, not from the latest message.
type ProactiveOpportunity struct {
	Type       OpportunityType     `json:"type"`
	Action     string              `json:"action"`
	Message    string              `json:"message"`
	Confidence float64             `json:"confidence"`
	Priority   OpportunityPriority `json:"priority"`
	DetectedAt time.Time           `json:"detected_at"`
}
