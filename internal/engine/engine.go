// Package engine wires classification, guardrails, state, templates,
// tools and proactive help into the single turn-processing pipeline.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/resto-ai/support-engine/internal/guardrails"
	"github.com/resto-ai/support-engine/internal/intent"
	"github.com/resto-ai/support-engine/internal/knowledge"
	"github.com/resto-ai/support-engine/internal/llm"
	"github.com/resto-ai/support-engine/internal/model"
	"github.com/resto-ai/support-engine/internal/proactive"
	"github.com/resto-ai/support-engine/internal/session"
	"github.com/resto-ai/support-engine/internal/state"
	"github.com/resto-ai/support-engine/internal/template"
	"github.com/resto-ai/support-engine/internal/tool"
	"github.com/resto-ai/support-engine/internal/window"
	"github.com/resto-ai/support-engine/pkg/logger"
	"github.com/resto-ai/support-engine/pkg/metrics"
)

// DefaultSystemPrompt frames every model call.
const DefaultSystemPrompt = "Tu es l'assistant du service client d'une chaîne de restaurants. " +
	"Réponds dans la langue du client (français, anglais ou néerlandais), " +
	"reste bref et factuel, et ne promets jamais de remboursement ou de délai précis. " +
	"Si tu n'es pas sûr, propose de transmettre la demande à l'équipe."

const (
	defaultMaxTokens = 512
	kbTopK           = 3
)

// Config carries the engine's collaborators.
type Config struct {
	Classifier   *intent.Classifier
	Window       *window.Manager
	Guardrails   *guardrails.Engine
	Templates    *template.Registry
	Orchestrator *tool.Orchestrator
	Machine      *state.Machine
	Proactive    *proactive.Engine
	Tracker      *proactive.Tracker
	Knowledge    *knowledge.Store
	Client       llm.Client
	Limiter      *llm.Limiter
	Logger       *logger.Logger

	ModelName    string
	SystemPrompt string
}

// Engine is the conversational support orchestration engine.
type Engine struct {
	cfg Config
}

// New creates the engine. SystemPrompt empty selects the default.
func New(cfg Config) *Engine {
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	return &Engine{cfg: cfg}
}

// ProcessUserMessage runs one full turn for a session. It is the only
// entry point the transport layer depends on. Turns for one session are
// serialized on the session lock; a panic anywhere in the pipeline
// degrades to an apology plus escalation, never a crashed session.
func (e *Engine) ProcessUserMessage(ctx context.Context, sess *session.Session, message string) (result *model.ProcessResult) {
	tracer := otel.Tracer("support-engine")
	ctx, span := tracer.Start(ctx, "engine.process_user_message")
	defer span.End()

	start := time.Now()

	sess.Lock()
	defer sess.Unlock()

	defer func() {
		if rec := recover(); rec != nil {
			e.cfg.Logger.Error("turn pipeline panicked",
				zap.String("session_id", sess.ID),
				zap.Any("panic", rec))
			result = &model.ProcessResult{
				Response:         template.ApologyAnswer,
				Escalate:         true,
				EscalationReason: fmt.Sprintf("pipeline panic: %v", rec),
				State:            sess.State,
			}
		}
		metrics.TurnsTotal.WithLabelValues(string(result.State), fmt.Sprintf("%t", result.Escalate)).Inc()
		metrics.TurnDuration.Observe(time.Since(start).Seconds())
		span.SetAttributes(
			attribute.String("conversation.state", string(result.State)),
			attribute.Bool("conversation.escalate", result.Escalate),
		)
	}()

	if sess.State.Terminal() {
		return &model.ProcessResult{
			Response: "Cette conversation est terminée. Ouvrez une nouvelle session pour continuer.",
			State:    sess.State,
		}
	}

	var res *model.IntentResult
	var usedRAG, usedTools bool
	var actions []model.Action

	// Classification happens inside the guarded cycle so it only ever
	// sees text the input validator has already sanitized.
	generate := func(genCtx context.Context, sanitized string) (string, []string, error) {
		res = e.classify(genCtx, sess, sanitized)
		text, acts, kb, rag, tools := e.generate(genCtx, sess, sanitized, res)
		usedRAG = rag
		usedTools = tools
		actions = acts
		return text, kb, nil
	}

	outcome, err := e.cfg.Guardrails.ProcessMessage(ctx, message, generate, sess.Context)
	if err != nil {
		// generate never returns an error; this is a defensive branch.
		e.cfg.Logger.Error("guarded generation failed",
			zap.String("session_id", sess.ID), zap.Error(err))
		outcome = &guardrails.Outcome{
			Response:       template.ApologyAnswer,
			Sanitized:      message,
			ShouldEscalate: true,
		}
	}

	// Blocked and redacted turns skip generation entirely. State and
	// intent bookkeeping still want a classification, over the sanitized
	// text only.
	if res == nil {
		res = e.classify(ctx, sess, outcome.Sanitized)
	}
	span.SetAttributes(
		attribute.String("intent.primary", string(res.Primary.Intent)),
		attribute.Float64("intent.confidence", res.Primary.Confidence),
	)

	next := e.cfg.Machine.Next(ctx, sess.State, sess.Context, res)

	escalate := outcome.ShouldEscalate || res.EscalationFlag || next == model.StateEscalationPending
	reason := escalationReason(outcome, res, next)

	e.cfg.Window.AddTurn(sess.Context, model.RoleUser, outcome.Sanitized, res, nil)
	e.cfg.Window.AddTurn(sess.Context, model.RoleAssistant, outcome.Response, nil, actions)

	e.recordIntentOutcome(sess.Context, res, escalate, outcome.Blocked)

	var shown []model.ProactiveOpportunity
	if !next.Terminal() {
		opps := e.cfg.Proactive.AnalyzeUserBehavior(sess.Context, next)
		if picked := e.cfg.Tracker.Pick(sess.ID, opps); picked != nil {
			shown = append(shown, *picked)
			if picked.Action == "escalate_immediately" {
				escalate = true
				if reason == "" {
					reason = string(picked.Type)
				}
			}
		}
	}

	sess.State = next

	return &model.ProcessResult{
		Response:         outcome.Response,
		Escalate:         escalate,
		EscalationReason: reason,
		UsedRAG:          usedRAG,
		UsedTools:        usedTools,
		State:            next,
		Actions:          actions,
		Proactive:        shown,
		Metadata: map[string]any{
			"intent":        res.Primary.Intent,
			"confidence":    res.Primary.Confidence,
			"language":      sess.Context.Metadata.Language,
			"context_state": e.cfg.Window.CalculateContextState(sess.Context),
			"violations":    len(outcome.Violations),
		},
	}
}

// classify runs language detection and intent classification over the
// sanitized text, updating the session language as a side effect.
func (e *Engine) classify(ctx context.Context, sess *session.Session, sanitized string) *model.IntentResult {
	if lang := e.cfg.Classifier.DetectLanguage(sanitized, sess.Context.Metadata.Language); lang != "" {
		sess.Context.Metadata.Language = lang
	}
	return e.cfg.Classifier.Classify(ctx, sanitized, sess.Context)
}

// turnBudget memoizes one limiter reservation so a turn that tries the
// tool path and then the direct model path is charged a single hourly
// token, not two.
type turnBudget struct {
	limiter *llm.Limiter
	checked bool
	ok      bool
}

func (b *turnBudget) allow() bool {
	if !b.checked {
		b.checked = true
		b.ok = b.limiter.Allow()
	}
	return b.ok
}

// generate picks the response strategy for one sanitized user message:
// tools for order lookups, templates for known intents, a bounded model
// call otherwise, and a static fallback when everything else is out.
func (e *Engine) generate(ctx context.Context, sess *session.Session, sanitized string, res *model.IntentResult) (text string, actions []model.Action, kbPassages []string, usedRAG, usedTools bool) {
	// Retrieval grounds both the model call and the output filter.
	if res.Primary.Intent.IsFAQ() || res.Primary.Intent == model.IntentRefundRequest {
		hits := e.cfg.Knowledge.Search(ctx, sanitized, kbTopK)
		if len(hits) > 0 {
			kbPassages = knowledge.Texts(hits)
			usedRAG = true
		}
	}

	budget := &turnBudget{limiter: e.cfg.Limiter}

	// Tool-augmented path: order questions with a known order number.
	if allowed := toolsFor(res); len(allowed) > 0 && e.cfg.Orchestrator != nil && budget.allow() {
		orch, err := e.cfg.Orchestrator.ExecuteWithTools(ctx, sanitized, e.systemPrompt(sess, kbPassages), allowed, nil)
		if orch != nil {
			e.captureCreatedTickets(sess, orch.ToolsUsed)
		}
		if err == nil && orch.StopReason == model.StopReasonEndTurn && orch.FinalResponse != "" {
			return orch.FinalResponse, nil, kbPassages, usedRAG, len(orch.ToolsUsed) > 0
		}
		if err != nil {
			e.cfg.Logger.Warn("tool orchestration failed, falling back",
				zap.String("session_id", sess.ID), zap.Error(err))
		}
		usedTools = orch != nil && len(orch.ToolsUsed) > 0
	}

	// Template path: deterministic answers for known intents.
	if text, acts, ok := e.cfg.Templates.Render(res.Primary.Intent, sess.Context, res.Entities); ok {
		return text, acts, kbPassages, usedRAG, usedTools
	}

	// Direct model call, budget permitting.
	if e.cfg.Client != nil && budget.allow() {
		if text, ok := e.complete(ctx, sess, sanitized, kbPassages); ok {
			return text, nil, kbPassages, usedRAG, usedTools
		}
	} else {
		metrics.LLMRateLimitedTotal.Inc()
	}

	return template.FallbackAnswer, nil, kbPassages, usedRAG, usedTools
}

// captureCreatedTickets links tickets opened through the tool path to the
// session, so ticket-aware transitions see them like tickets opened over
// the HTTP API.
func (e *Engine) captureCreatedTickets(sess *session.Session, results []model.ToolResult) {
	for _, r := range results {
		if r.Tool != "create_support_ticket" || !r.Success {
			continue
		}
		var out struct {
			TicketID string `json:"ticket_id"`
		}
		if err := json.Unmarshal(r.Output, &out); err != nil || out.TicketID == "" {
			continue
		}
		sess.Context.Metadata.TicketIDs = append(sess.Context.Metadata.TicketIDs, out.TicketID)
		e.cfg.Logger.Info("ticket created from chat",
			zap.String("session_id", sess.ID),
			zap.String("ticket_id", out.TicketID))
	}
}

// complete issues one direct model call over the compacted history.
func (e *Engine) complete(ctx context.Context, sess *session.Session, sanitized string, kbPassages []string) (string, bool) {
	llmCtx := e.cfg.Window.BuildLLMContext(sess.Context)
	messages := append(llmCtx.History, llm.ChatMessage{Role: "user", Content: sanitized})

	start := time.Now()
	resp, err := e.cfg.Client.Complete(ctx, &llm.CompletionRequest{
		Model:     e.cfg.ModelName,
		System:    e.systemPrompt(sess, kbPassages),
		Messages:  messages,
		MaxTokens: defaultMaxTokens,
	})
	if err != nil {
		metrics.RecordLLMCall(e.cfg.ModelName, "error", time.Since(start).Seconds(), 0, 0)
		e.cfg.Logger.Warn("model call failed, falling back to template",
			zap.String("session_id", sess.ID), zap.Error(err))
		return "", false
	}
	metrics.RecordLLMCall(resp.Model, "success", time.Since(start).Seconds(), resp.TokensIn, resp.TokensOut)

	if strings.TrimSpace(resp.Content) == "" {
		return "", false
	}
	return resp.Content, true
}

func (e *Engine) systemPrompt(sess *session.Session, kbPassages []string) string {
	var b strings.Builder
	b.WriteString(e.cfg.SystemPrompt)
	if lang := sess.Context.Metadata.Language; lang != "" {
		b.WriteString("\nLangue du client: " + lang + ".")
	}
	if len(kbPassages) > 0 {
		b.WriteString("\nBase de connaissances:\n")
		for _, p := range kbPassages {
			b.WriteString("- " + p + "\n")
		}
	}
	return b.String()
}

// toolsFor returns the allowed tool subset for an intent, or nil when the
// turn should not touch tools.
func toolsFor(res *model.IntentResult) []string {
	switch res.Primary.Intent {
	case model.IntentOrderTracking:
		if res.Entities.OrderNumber != "" {
			return []string{"lookup_order", "check_delivery_status"}
		}
	case model.IntentContactSupport, model.IntentSpeakAgent:
		if res.Entities.Email != "" {
			return []string{"create_support_ticket"}
		}
	}
	return nil
}

func (e *Engine) recordIntentOutcome(c *model.ConversationContext, res *model.IntentResult, escalate, blocked bool) {
	it := res.Primary.Intent
	if it == model.IntentUnclear {
		return
	}
	if escalate || blocked {
		c.Metadata.FailedIntents[it]++
		return
	}
	c.Metadata.ResolvedIntents[it] = true
}

func escalationReason(outcome *guardrails.Outcome, res *model.IntentResult, next model.ConversationState) string {
	switch {
	case outcome.Blocked:
		if v := firstViolation(outcome.Violations, model.SeverityBlock); v != nil {
			return "guardrail:" + v.RuleID
		}
		return "guardrail:block"
	case res.EscalationFlag:
		return "intent:" + string(res.Primary.Intent)
	case next == model.StateEscalationPending:
		return "state:escalation_pending"
	case outcome.ShouldEscalate:
		if v := firstViolation(outcome.Violations, model.SeverityEscalate); v != nil {
			return "guardrail:" + v.RuleID
		}
		return "guardrail:escalate"
	}
	return ""
}

func firstViolation(violations []model.GuardrailViolation, severity model.Severity) *model.GuardrailViolation {
	for i := range violations {
		if violations[i].Severity == severity {
			return &violations[i]
		}
	}
	return nil
}
