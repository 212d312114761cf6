package guardrails

import (
	"context"

	"github.com/resto-ai/support-engine/internal/model"
	"github.com/resto-ai/support-engine/pkg/logger"
)

// GenerateFunc produces a candidate response from the sanitized input.
type GenerateFunc func(ctx context.Context, sanitized string) (response string, kbPassages []string, err error)

// Outcome is the combined result of one guarded generation cycle.
// Sanitized is the redacted input; it is what gets stored, never the raw
// message.
type Outcome struct {
	Response       string
	Sanitized      string
	Blocked        bool
	ShouldEscalate bool
	Violations     []model.GuardrailViolation
}

// Engine combines the input validator and output filter.
type Engine struct {
	Input  *InputValidator
	Output *OutputFilter
}

// NewEngine wires both passes with default rules.
func NewEngine(hourlyLimit int, log *logger.Logger) *Engine {
	return &Engine{
		Input:  NewInputValidator(nil, hourlyLimit, log),
		Output: NewOutputFilter(nil, log),
	}
}

// NewEngineWithRules wires both passes with extra rules loaded from a file.
func NewEngineWithRules(rulePath string, hourlyLimit int, log *logger.Logger) (*Engine, error) {
	in, out, err := LoadRuleFile(rulePath)
	if err != nil {
		return nil, err
	}
	return &Engine{
		Input:  NewInputValidator(in, hourlyLimit, log),
		Output: NewOutputFilter(out, log),
	}, nil
}

// ProcessMessage short-circuits on input block and on redaction: generate
// never runs, and the firing rule's message becomes the user-facing
// response. The turn is then marked for escalation by the caller.
func (e *Engine) ProcessMessage(ctx context.Context, userMessage string, generate GenerateFunc, convCtx *model.ConversationContext) (*Outcome, error) {
	validation := e.Input.Validate(userMessage, convCtx)
	if !validation.IsValid {
		blocking := validation.FirstBlocking()
		return &Outcome{
			Response:       blocking.Message,
			Sanitized:      validation.Sanitized,
			Blocked:        true,
			ShouldEscalate: true,
			Violations:     validation.Violations,
		}, nil
	}

	// A redacted span means sensitive data reached the chat. The matched
	// rule's notice is the whole response; the message, even sanitized,
	// never goes to the model or to tools.
	if red := validation.FirstRedaction(); red != nil {
		return &Outcome{
			Response:       red.Message,
			Sanitized:      validation.Sanitized,
			ShouldEscalate: true,
			Violations:     validation.Violations,
		}, nil
	}

	response, kbPassages, err := generate(ctx, validation.Sanitized)
	if err != nil {
		return nil, err
	}

	filtered := e.Output.Filter(response, convCtx, kbPassages)

	outcome := &Outcome{
		Response:       filtered.Filtered,
		Sanitized:      validation.Sanitized,
		ShouldEscalate: validation.ShouldEscalate() || filtered.ShouldEscalate,
		Violations:     append(validation.Violations, filtered.Violations...),
	}
	return outcome, nil
}
