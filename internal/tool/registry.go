// Package tool provides the tool registry and the bounded function-calling
// loop against the language-model service.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/resto-ai/support-engine/internal/llm"
	"github.com/resto-ai/support-engine/internal/model"
	"github.com/resto-ai/support-engine/pkg/logger"
	"github.com/resto-ai/support-engine/pkg/metrics"
)

// HandlerFunc executes one tool call. The returned value is JSON-marshaled
// into the tool-result message.
type HandlerFunc func(ctx context.Context, args json.RawMessage) (any, error)

// Tool describes one callable operation.
type Tool struct {
	Name        string
	Description string
	Category    string
	InputSchema json.RawMessage
	Handler     HandlerFunc
}

// Registry maps tool names to handlers. Registration is code-controlled at
// startup; duplicate names overwrite silently.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]*Tool
	logger *logger.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		tools:  make(map[string]*Tool),
		logger: log,
	}
}

// Register adds or replaces a tool.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name] = &t
}

// Get returns a tool by name, or nil.
func (r *Registry) Get(name string) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Names lists all registered tool names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.tools))
	for name := range r.tools {
		out = append(out, name)
	}
	return out
}

// Defs returns the LLM tool definitions for the allowed subset. Unknown
// names are skipped. A nil allowed list selects every registered tool.
func (r *Registry) Defs(allowed []string) []llm.ToolDef {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if allowed == nil {
		allowed = make([]string, 0, len(r.tools))
		for name := range r.tools {
			allowed = append(allowed, name)
		}
	}

	out := make([]llm.ToolDef, 0, len(allowed))
	for _, name := range allowed {
		t, ok := r.tools[name]
		if !ok {
			continue
		}
		out = append(out, llm.ToolDef{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}
	return out
}

// Execute validates args against the tool's schema and runs the handler.
// Failures are captured in the result, never raised: the model recovers
// from an error string, not from a crashed turn.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) model.ToolResult {
	start := time.Now()
	result := model.ToolResult{Tool: name, Input: args}

	t := r.Get(name)
	if t == nil {
		result.Error = fmt.Sprintf("unknown tool %q", name)
		result.Duration = time.Since(start)
		metrics.ToolCallsTotal.WithLabelValues(name, "unknown").Inc()
		return result
	}

	if err := r.validateArgs(t, args); err != nil {
		result.Error = err.Error()
		result.Duration = time.Since(start)
		metrics.ToolCallsTotal.WithLabelValues(name, "invalid_args").Inc()
		return result
	}

	out, err := r.run(ctx, t, args)
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = err.Error()
		metrics.ToolCallsTotal.WithLabelValues(name, "error").Inc()
		r.logger.Warn("tool execution failed",
			zap.String("tool", name), zap.Error(err))
		return result
	}

	data, err := json.Marshal(out)
	if err != nil {
		result.Error = fmt.Sprintf("failed to encode tool output: %v", err)
		metrics.ToolCallsTotal.WithLabelValues(name, "error").Inc()
		return result
	}

	result.Output = data
	result.Success = true
	metrics.ToolCallsTotal.WithLabelValues(name, "success").Inc()
	return result
}

// run executes the handler, converting a panic into an error.
func (r *Registry) run(ctx context.Context, t *Tool, args json.RawMessage) (out any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("tool %s panicked: %v", t.Name, rec)
		}
	}()
	return t.Handler(ctx, args)
}

func (r *Registry) validateArgs(t *Tool, args json.RawMessage) error {
	if len(t.InputSchema) == 0 {
		return nil
	}
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}

	schemaLoader := gojsonschema.NewBytesLoader(t.InputSchema)
	argsLoader := gojsonschema.NewBytesLoader(args)
	res, err := gojsonschema.Validate(schemaLoader, argsLoader)
	if err != nil {
		return fmt.Errorf("argument validation failed: %w", err)
	}
	if !res.Valid() {
		return fmt.Errorf("invalid arguments for %s: %v", t.Name, res.Errors())
	}
	return nil
}
