package proactive

import (
	"sync"
	"time"

	"github.com/resto-ai/support-engine/internal/model"
	"github.com/resto-ai/support-engine/pkg/metrics"
)

const (
	// DefaultMinInterval is the minimum gap between proactive messages
	// shown to one session.
	DefaultMinInterval = 2 * time.Minute

	// DefaultConfidenceFloor filters out weak opportunities.
	DefaultConfidenceFloor = 0.6
)

// Tracker throttles proactive messages per session: at most one per
// interval, and only above the confidence floor.
type Tracker struct {
	mu              sync.Mutex
	lastShown       map[string]time.Time
	minInterval     time.Duration
	confidenceFloor float64
	now             func() time.Time
}

// NewTracker creates a tracker with the given throttle settings. Zero
// values select the defaults.
func NewTracker(minInterval time.Duration, confidenceFloor float64) *Tracker {
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	if confidenceFloor <= 0 {
		confidenceFloor = DefaultConfidenceFloor
	}
	return &Tracker{
		lastShown:       make(map[string]time.Time),
		minInterval:     minInterval,
		confidenceFloor: confidenceFloor,
		now:             time.Now,
	}
}

// Pick returns the first opportunity that clears the throttle, or nil.
// Candidates must already be sorted best-first. A returned opportunity is
// recorded as shown.
func (t *Tracker) Pick(sessionID string, candidates []model.ProactiveOpportunity) *model.ProactiveOpportunity {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if last, ok := t.lastShown[sessionID]; ok && now.Sub(last) < t.minInterval {
		return nil
	}

	for i := range candidates {
		if candidates[i].Confidence < t.confidenceFloor {
			continue
		}
		t.lastShown[sessionID] = now
		metrics.ProactiveShownTotal.WithLabelValues(string(candidates[i].Type)).Inc()
		return &candidates[i]
	}
	return nil
}

// Forget drops throttle state for a closed session.
func (t *Tracker) Forget(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.lastShown, sessionID)
}
