// Package guardrails validates user input and filters generated output
// through rule-based safety checks.
package guardrails

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/resto-ai/support-engine/internal/model"
	"github.com/resto-ai/support-engine/pkg/logger"
	"github.com/resto-ai/support-engine/pkg/metrics"
)

const (
	// Redacted replaces matched sensitive spans.
	Redacted = "[REDACTED]"

	// DefaultHourlyMessageLimit bounds messages per session per rolling hour.
	DefaultHourlyMessageLimit = 30
)

// InputValidator checks user messages before any model processing.
type InputValidator struct {
	rules       []inputRule
	hourlyLimit int
	logger      *logger.Logger

	mu   sync.Mutex
	seen map[string][]time.Time
}

// NewInputValidator builds a validator with the default rule set plus any
// extra rules. hourlyLimit <= 0 selects the default.
func NewInputValidator(extra []inputRule, hourlyLimit int, log *logger.Logger) *InputValidator {
	if hourlyLimit <= 0 {
		hourlyLimit = DefaultHourlyMessageLimit
	}
	return &InputValidator{
		rules:       append(defaultInputRules(), extra...),
		hourlyLimit: hourlyLimit,
		logger:      log,
		seen:        make(map[string][]time.Time),
	}
}

// Validate runs every rule and always returns a sanitized copy of the
// input. IsValid is false only when a block-severity rule fired.
func (v *InputValidator) Validate(message string, convCtx *model.ConversationContext) *model.ValidationResult {
	result := &model.ValidationResult{
		Sanitized: message,
		IsValid:   true,
	}

	now := time.Now()
	for _, rule := range v.rules {
		if !rule.re.MatchString(result.Sanitized) {
			continue
		}
		if rule.redact {
			result.Sanitized = rule.re.ReplaceAllString(result.Sanitized, Redacted)
		}
		v.record(result, rule.id, rule.name, rule.severity, rule.message, rule.redact, now)
	}

	if convCtx != nil && v.overRate(convCtx.SessionID, now) {
		v.record(result, "message_rate", "message rate exceeded", model.SeverityBlock,
			"Vous envoyez trop de messages. Merci de patienter quelques minutes.", false, now)
	}

	if blocking := result.FirstBlocking(); blocking != nil {
		result.IsValid = false
		v.logger.Warn("input blocked by guardrail",
			zap.String("rule", blocking.RuleID),
			zap.String("session_id", sessionID(convCtx)))
	}

	return result
}

func (v *InputValidator) record(result *model.ValidationResult, id, name string, severity model.Severity, message string, redacted bool, now time.Time) {
	result.Violations = append(result.Violations, model.GuardrailViolation{
		RuleID:    id,
		RuleName:  name,
		Severity:  severity,
		Message:   message,
		Redacted:  redacted,
		Timestamp: now,
	})
	metrics.GuardrailViolationsTotal.WithLabelValues(id, string(severity), "input").Inc()
}

// overRate records one message for the session and reports whether the
// rolling-hour count exceeds the limit.
func (v *InputValidator) overRate(sessionID string, now time.Time) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	cutoff := now.Add(-time.Hour)
	kept := v.seen[sessionID][:0]
	for _, t := range v.seen[sessionID] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)
	v.seen[sessionID] = kept

	return len(kept) > v.hourlyLimit
}

func sessionID(c *model.ConversationContext) string {
	if c == nil {
		return ""
	}
	return c.SessionID
}
