package model

import (
	"time"
)

// Severity classifies how a guardrail violation is handled.
type Severity string

const (
	// SeverityWarning is logged but does not alter the turn.
	SeverityWarning Severity = "warning"
	// SeverityBlock rejects the turn; the model is never called.
	SeverityBlock Severity = "block"
	// SeverityEscalate allows the turn but flags it for human follow-up.
	SeverityEscalate Severity = "escalate"
)

// GuardrailViolation records one fired rule. Lives only for the duration of
// a response cycle; never persisted.
type GuardrailViolation struct {
	RuleID    string    `json:"rule_id"`
	RuleName  string    `json:"rule_name"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	Redacted  bool      `json:"redacted,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Context   string    `json:"context,omitempty"`
}

// ValidationResult is the input validator output.
type ValidationResult struct {
	Sanitized  string               `json:"sanitized"`
	Violations []GuardrailViolation `json:"violations,omitempty"`
	IsValid    bool                 `json:"is_valid"`
}

// FirstBlocking returns the first block-severity violation, or nil.
func (r *ValidationResult) FirstBlocking() *GuardrailViolation {
	for i := range r.Violations {
		if r.Violations[i].Severity == SeverityBlock {
			return &r.Violations[i]
		}
	}
	return nil
}

// FirstRedaction returns the first violation that redacted a span, or nil.
func (r *ValidationResult) FirstRedaction() *GuardrailViolation {
	for i := range r.Violations {
		if r.Violations[i].Redacted {
			return &r.Violations[i]
		}
	}
	return nil
}

// ShouldEscalate reports whether any escalate-severity rule fired.
func (r *ValidationResult) ShouldEscalate() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityEscalate {
			return true
		}
	}
	return false
}

// FilterResult is the output filter result.
type FilterResult struct {
	Filtered       string               `json:"filtered"`
	Violations     []GuardrailViolation `json:"violations,omitempty"`
	IsValid        bool                 `json:"is_valid"`
	ShouldEscalate bool                 `json:"should_escalate"`
}
