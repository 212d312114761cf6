package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resto-ai/support-engine/internal/model"
	"github.com/resto-ai/support-engine/internal/window"
	"github.com/resto-ai/support-engine/pkg/logger"
)

func testStore(t *testing.T, idle time.Duration) *Store {
	t.Helper()
	log, err := logger.NewDevelopment()
	require.NoError(t, err)
	return NewStore(window.NewManager(0, idle), log)
}

func TestCreateAndGet(t *testing.T) {
	s := testStore(t, 0)

	sess := s.Create("client@example.com")
	require.NotEmpty(t, sess.ID)
	assert.Equal(t, model.StateIdle, sess.State)
	assert.Equal(t, sess.ID, sess.Context.SessionID)
	assert.Equal(t, "client@example.com", sess.Context.UserEmail)

	got, err := s.Get(sess.ID)
	require.NoError(t, err)
	assert.Same(t, sess, got)
	assert.Equal(t, 1, s.Count())
}

func TestGetUnknownSession(t *testing.T) {
	s := testStore(t, 0)

	_, err := s.Get("missing")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteClosesSession(t *testing.T) {
	s := testStore(t, 0)
	sess := s.Create("")

	require.NoError(t, s.Delete(sess.ID))

	assert.Equal(t, model.StateClosed, sess.State)
	assert.Equal(t, 0, s.Count())
	assert.ErrorIs(t, s.Delete(sess.ID), ErrNotFound)
}

func TestSweepRemovesIdleSessions(t *testing.T) {
	s := testStore(t, time.Minute)

	idle := s.Create("")
	idle.Context.Metadata.LastActivity = time.Now().Add(-2 * time.Minute)
	active := s.Create("")

	s.sweep()

	_, err := s.Get(idle.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(active.ID)
	assert.NoError(t, err)
}
