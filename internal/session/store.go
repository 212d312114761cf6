// Package session holds live chat sessions and serializes turn
// processing per session.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/resto-ai/support-engine/internal/model"
	"github.com/resto-ai/support-engine/internal/window"
	"github.com/resto-ai/support-engine/pkg/logger"
	"github.com/resto-ai/support-engine/pkg/metrics"
)

// ErrNotFound is returned for unknown or closed sessions.
var ErrNotFound = fmt.Errorf("session not found")

// Session is one live conversation. Turns for the same session must be
// processed under its lock; turns for different sessions are independent.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu      sync.Mutex
	Context *model.ConversationContext
	State   model.ConversationState
}

// Lock serializes turn processing for this session.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session.
func (s *Session) Unlock() { s.mu.Unlock() }

// Store is the in-memory session registry. Sessions are ephemeral; only
// tickets are persisted, through the repository.
type Store struct {
	windowMgr *window.Manager
	logger    *logger.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty session store.
func NewStore(windowMgr *window.Manager, log *logger.Logger) *Store {
	return &Store{
		windowMgr: windowMgr,
		logger:    log,
		sessions:  make(map[string]*Session),
	}
}

// Create opens a new session.
func (s *Store) Create(userEmail string) *Session {
	sess := &Session{
		ID:        uuid.Must(uuid.NewV7()).String(),
		CreatedAt: time.Now(),
		Context:   model.NewConversationContext(""),
		State:     model.StateIdle,
	}
	sess.Context.SessionID = sess.ID
	sess.Context.UserEmail = userEmail

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	metrics.SessionsActive.Inc()
	s.logger.Info("session created", zap.String("session_id", sess.ID))
	return sess
}

// Get returns a session by ID.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// Delete closes and removes a session.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	sess.Lock()
	sess.State = model.StateClosed
	sess.Unlock()

	metrics.SessionsActive.Dec()
	s.logger.Info("session closed", zap.String("session_id", id))
	return nil
}

// Count returns the number of open sessions.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// RunJanitor closes idle sessions until the context is cancelled. The
// idle threshold is the window manager's; closure here is the automatic
// follow-up to its recommendation.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Store) sweep() {
	s.mu.RLock()
	candidates := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		candidates = append(candidates, sess)
	}
	s.mu.RUnlock()

	for _, sess := range candidates {
		sess.Lock()
		expired := sess.State.Terminal() || s.windowMgr.ShouldCloseConversation(sess.Context)
		sess.Unlock()
		if expired {
			if err := s.Delete(sess.ID); err == nil {
				s.logger.Info("idle session swept", zap.String("session_id", sess.ID))
			}
		}
	}
}
