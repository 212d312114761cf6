package model

// Intent identifies what the user is trying to accomplish.
type Intent string

const (
	IntentFAQHalal       Intent = "faq_halal"
	IntentFAQHours       Intent = "faq_hours"
	IntentFAQMenu        Intent = "faq_menu"
	IntentFAQDelivery    Intent = "faq_delivery"
	IntentFAQAllergens   Intent = "faq_allergens"
	IntentFAQPayment     Intent = "faq_payment"
	IntentOrderTracking  Intent = "order_tracking"
	IntentComplaint      Intent = "complaint"
	IntentRefundRequest  Intent = "refund_request"
	IntentMissingItem    Intent = "missing_item"
	IntentWrongOrder     Intent = "wrong_order"
	IntentQualityIssue   Intent = "quality_issue"
	IntentContactSupport Intent = "contact_support"
	IntentSpeakAgent     Intent = "speak_agent"
	IntentGreeting       Intent = "greeting"
	IntentGoodbye        Intent = "goodbye"
	IntentThanks         Intent = "thanks"
	IntentUnclear        Intent = "unclear"
)

// IsFAQ reports whether the intent belongs to the FAQ family.
func (i Intent) IsFAQ() bool {
	switch i {
	case IntentFAQHalal, IntentFAQHours, IntentFAQMenu, IntentFAQDelivery,
		IntentFAQAllergens, IntentFAQPayment:
		return true
	}
	return false
}

// IsComplaintFamily reports whether the intent describes a problem with an
// order that warrants escalation handling.
func (i Intent) IsComplaintFamily() bool {
	switch i {
	case IntentComplaint, IntentRefundRequest, IntentMissingItem,
		IntentWrongOrder, IntentQualityIssue:
		return true
	}
	return false
}

// Priority is the urgency extracted from the user's message.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// EntityExtraction holds entities pulled out of one utterance.
type EntityExtraction struct {
	OrderNumber string   `json:"order_number,omitempty"`
	Platform    string   `json:"platform,omitempty"`
	Branch      string   `json:"branch,omitempty"`
	Email       string   `json:"email,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	Allergens   []string `json:"allergens,omitempty"`
	Priority    Priority `json:"priority,omitempty"`
}

// SentimentScore captures lexical sentiment for one utterance.
type SentimentScore struct {
	Polarity     string  `json:"polarity"` // positive | neutral | negative
	Intensity    float64 `json:"intensity"`
	HasComplaint bool    `json:"has_complaint"`
	HasUrgency   bool    `json:"has_urgency"`
}

// IntentScore is one scored intent candidate.
type IntentScore struct {
	Intent     Intent   `json:"intent"`
	Confidence float64  `json:"confidence"`
	Tokens     []string `json:"tokens,omitempty"`
}

// IntentResult is the classifier output for one user turn. Produced once,
// attached to the turn, never mutated afterward.
type IntentResult struct {
	Primary         IntentScore      `json:"primary"`
	Alternatives    []IntentScore    `json:"alternatives,omitempty"`
	Entities        EntityExtraction `json:"entities"`
	Sentiment       SentimentScore   `json:"sentiment"`
	RequiresContext bool             `json:"requires_context"`
	EscalationFlag  bool             `json:"escalation_flag"`
}
