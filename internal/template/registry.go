// Package template maps intents to deterministic canned answers.
package template

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/resto-ai/support-engine/internal/model"
	"github.com/resto-ai/support-engine/pkg/logger"
)

// Registry holds response templates. Assembled at startup, frozen before
// serving traffic; runtime extension is an explicit, audited operation.
type Registry struct {
	mu       sync.RWMutex
	byIntent map[model.Intent][]model.ResponseTemplate
	frozen   bool
	logger   *logger.Logger
}

// NewRegistry creates a registry preloaded with the built-in templates.
func NewRegistry(log *logger.Logger) *Registry {
	r := &Registry{
		byIntent: make(map[model.Intent][]model.ResponseTemplate),
		logger:   log,
	}
	for _, t := range builtinTemplates() {
		r.add(t)
	}
	return r
}

// AddTemplate registers a template before the registry is frozen. owner is
// recorded in the audit log; registration after Freeze is rejected.
func (r *Registry) AddTemplate(t model.ResponseTemplate, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("template registry is frozen, cannot add %q", t.ID)
	}
	r.logger.Info("template registered",
		zap.String("template_id", t.ID),
		zap.String("intent", string(t.Intent)),
		zap.String("owner", owner))
	r.add(t)
	return nil
}

// Freeze makes the registry immutable.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

func (r *Registry) add(t model.ResponseTemplate) {
	r.byIntent[t.Intent] = append(r.byIntent[t.Intent], t)
	sort.SliceStable(r.byIntent[t.Intent], func(i, j int) bool {
		return r.byIntent[t.Intent][i].Metadata.Priority > r.byIntent[t.Intent][j].Metadata.Priority
	})
}

// Resolve returns the highest-priority template for the intent whose
// condition accepts the context, or nil when none applies.
func (r *Registry) Resolve(intent model.Intent, convCtx *model.ConversationContext, entities model.EntityExtraction) *model.ResponseTemplate {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.byIntent[intent] {
		if t.Condition == nil || t.Condition(convCtx, entities) {
			out := t
			return &out
		}
	}
	return nil
}

// Render resolves and renders in one step.
func (r *Registry) Render(intent model.Intent, convCtx *model.ConversationContext, entities model.EntityExtraction) (string, []model.Action, bool) {
	t := r.Resolve(intent, convCtx, entities)
	if t == nil {
		return "", nil, false
	}
	return t.Render(convCtx, entities), t.Actions, true
}
