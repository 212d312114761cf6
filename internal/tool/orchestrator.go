package tool

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/resto-ai/support-engine/internal/llm"
	"github.com/resto-ai/support-engine/internal/model"
	"github.com/resto-ai/support-engine/pkg/logger"
)

// DefaultMaxIterations is the hard ceiling on tool calls per orchestration.
// Defensive backstop against a model that never stops asking for tools.
const DefaultMaxIterations = 10

// Orchestrator drives the function-calling loop: model requests a tool,
// the registry executes it, the result goes back into the transcript.
type Orchestrator struct {
	registry      *Registry
	client        llm.Client
	model         string
	maxTokens     int
	maxIterations int
	logger        *logger.Logger
}

// NewOrchestrator creates an orchestrator. modelName empty selects the
// provider default; maxIterations <= 0 selects DefaultMaxIterations.
func NewOrchestrator(registry *Registry, client llm.Client, modelName string, maxIterations int, log *logger.Logger) *Orchestrator {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &Orchestrator{
		registry:      registry,
		client:        client,
		model:         modelName,
		maxTokens:     1024,
		maxIterations: maxIterations,
		logger:        log,
	}
}

// ExecuteWithTools runs one bounded tool-augmented generation. The
// transcript is an append-only message list: assistant tool-call message,
// then tool-result message, so the loop replays deterministically.
func (o *Orchestrator) ExecuteWithTools(ctx context.Context, query, systemPrompt string, allowed []string, history []llm.ChatMessage) (*model.OrchestrationResult, error) {
	defs := o.registry.Defs(allowed)

	messages := make([]llm.ChatMessage, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, llm.ChatMessage{Role: "user", Content: query})

	result := &model.OrchestrationResult{}

	for i := 0; i < o.maxIterations; i++ {
		resp, err := o.client.Complete(ctx, &llm.CompletionRequest{
			Model:     o.model,
			System:    systemPrompt,
			Messages:  messages,
			MaxTokens: o.maxTokens,
			Tools:     defs,
		})
		if err != nil {
			return nil, fmt.Errorf("model call failed: %w", err)
		}

		if !resp.WantsTool() {
			result.FinalResponse = resp.Content
			result.StopReason = model.StopReasonEndTurn
			return result, nil
		}

		// Execute exactly one requested tool per iteration.
		call := resp.ToolCalls[0]
		toolResult := o.registry.Execute(ctx, call.Name, call.Args)
		result.ToolsUsed = append(result.ToolsUsed, toolResult)

		o.logger.Debug("tool executed in orchestration loop",
			zap.String("tool", call.Name),
			zap.Bool("success", toolResult.Success),
			zap.Int("iteration", i))

		messages = append(messages, llm.ChatMessage{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: []llm.ToolCall{call},
		})
		messages = append(messages, llm.ChatMessage{
			Role:       "tool",
			Content:    toolResultContent(toolResult),
			ToolCallID: call.ID,
		})
	}

	o.logger.Warn("orchestration hit iteration ceiling",
		zap.Int("max_iterations", o.maxIterations))
	result.FinalResponse = ""
	result.StopReason = model.StopReasonMaxIterations
	return result, nil
}

// toolResultContent renders the result for the model: output on success,
// the error string otherwise so the model can recover or apologize.
func toolResultContent(r model.ToolResult) string {
	if r.Success {
		return string(r.Output)
	}
	return fmt.Sprintf(`{"error":%q}`, r.Error)
}
