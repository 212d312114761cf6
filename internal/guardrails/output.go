package guardrails

import (
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/resto-ai/support-engine/internal/model"
	"github.com/resto-ai/support-engine/pkg/logger"
	"github.com/resto-ai/support-engine/pkg/metrics"
)

// minKBOverlap is the content-word overlap ratio below which a response is
// flagged as potentially unsupported by retrieved knowledge.
const minKBOverlap = 0.3

var sentenceSplitRe = regexp.MustCompile(`(?m)([^.!?]+[.!?]+|[^.!?]+$)`)

// OutputFilter checks generated responses before delivery.
type OutputFilter struct {
	rules  []outputRule
	logger *logger.Logger
}

// NewOutputFilter builds a filter with the default rules plus any extras.
func NewOutputFilter(extra []outputRule, log *logger.Logger) *OutputFilter {
	return &OutputFilter{
		rules:  append(defaultOutputRules(), extra...),
		logger: log,
	}
}

// Filter applies every output rule. Blocked sentences are replaced with the
// neutral disclaimer; IsValid is false only on block, ShouldEscalate is true
// when any escalate rule fired.
func (f *OutputFilter) Filter(response string, convCtx *model.ConversationContext, kbPassages []string) *model.FilterResult {
	result := &model.FilterResult{
		Filtered: response,
		IsValid:  true,
	}

	now := time.Now()
	for _, rule := range f.rules {
		if !rule.re.MatchString(result.Filtered) {
			continue
		}
		if rule.replace {
			result.Filtered = replaceOffendingSentences(result.Filtered, rule.re)
		}
		f.record(result, rule.id, rule.name, rule.severity, rule.message, now)
	}

	if len(kbPassages) > 0 {
		if overlap := contentOverlap(response, kbPassages); overlap < minKBOverlap {
			f.record(result, "kb_overlap", "low knowledge-base overlap", model.SeverityWarning,
				"response weakly supported by retrieved passages", now)
			f.record(result, "kb_overlap", "low knowledge-base overlap", model.SeverityEscalate,
				"response weakly supported by retrieved passages", now)
		}
	}

	for _, v := range result.Violations {
		switch v.Severity {
		case model.SeverityBlock:
			result.IsValid = false
		case model.SeverityEscalate:
			result.ShouldEscalate = true
		}
	}

	if !result.IsValid || result.ShouldEscalate {
		f.logger.Info("output filtered",
			zap.Bool("valid", result.IsValid),
			zap.Bool("escalate", result.ShouldEscalate),
			zap.Int("violations", len(result.Violations)))
	}

	return result
}

func (f *OutputFilter) record(result *model.FilterResult, id, name string, severity model.Severity, message string, now time.Time) {
	result.Violations = append(result.Violations, model.GuardrailViolation{
		RuleID:    id,
		RuleName:  name,
		Severity:  severity,
		Message:   message,
		Timestamp: now,
	})
	metrics.GuardrailViolationsTotal.WithLabelValues(id, string(severity), "output").Inc()
}

// replaceOffendingSentences swaps each sentence matching the rule for the
// disclaimer, leaving the rest of the response intact.
func replaceOffendingSentences(response string, re *regexp.Regexp) string {
	sentences := sentenceSplitRe.FindAllString(response, -1)
	if sentences == nil {
		return Disclaimer
	}
	for i, s := range sentences {
		if re.MatchString(s) {
			sentences[i] = " " + Disclaimer
		}
	}
	return strings.TrimSpace(strings.Join(sentences, ""))
}

// contentOverlap computes the ratio of response content words that appear
// in the retrieved passages. Cheap proxy for unsupported claims.
func contentOverlap(response string, passages []string) float64 {
	passageWords := make(map[string]bool)
	for _, p := range passages {
		for _, w := range contentWords(p) {
			passageWords[w] = true
		}
	}

	words := contentWords(response)
	if len(words) == 0 {
		return 1
	}
	matched := 0
	for _, w := range words {
		if passageWords[w] {
			matched++
		}
	}
	return float64(matched) / float64(len(words))
}

// contentWords lowercases and keeps words of 4+ runes, dropping
// punctuation. Short function words carry no evidence either way.
func contentWords(s string) []string {
	var out []string
	for _, w := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r < 128
	}) {
		if len([]rune(w)) >= 4 {
			out = append(out, w)
		}
	}
	return out
}
