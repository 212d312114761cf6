// Package handler provides HTTP handlers for the API.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/resto-ai/support-engine/internal/middleware"
	"github.com/resto-ai/support-engine/internal/session"
	"github.com/resto-ai/support-engine/pkg/logger"
)

// SessionHandler handles chat session endpoints.
type SessionHandler struct {
	store  *session.Store
	logger *logger.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(store *session.Store, log *logger.Logger) *SessionHandler {
	return &SessionHandler{store: store, logger: log}
}

// CreateSessionRequest is the body for POST /api/v1/sessions.
type CreateSessionRequest struct {
	Email string `json:"email,omitempty"`
}

// SessionResponse is the session representation returned to clients.
type SessionResponse struct {
	SessionID string         `json:"session_id"`
	State     string         `json:"state"`
	Language  string         `json:"language,omitempty"`
	TicketIDs []string       `json:"ticket_ids,omitempty"`
	Turns     int            `json:"turns"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	if req.Email != "" {
		if err := middleware.ValidateEmail(req.Email); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	sess := h.store.Create(req.Email)
	writeJSON(w, http.StatusCreated, h.render(sess))
}

// Get handles GET /api/v1/sessions/{sessionID}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := h.store.Get(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	writeJSON(w, http.StatusOK, h.render(sess))
}

// Delete handles DELETE /api/v1/sessions/{sessionID}
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Delete(sessionID); err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	h.logger.Info("session deleted by client", zap.String("session_id", sessionID))
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) render(sess *session.Session) *SessionResponse {
	sess.Lock()
	defer sess.Unlock()

	return &SessionResponse{
		SessionID: sess.ID,
		State:     string(sess.State),
		Language:  sess.Context.Metadata.Language,
		TicketIDs: append([]string(nil), sess.Context.Metadata.TicketIDs...),
		Turns:     len(sess.Context.Turns),
		Metadata: map[string]any{
			"started_at":    sess.Context.Metadata.StartedAt,
			"last_activity": sess.Context.Metadata.LastActivity,
			"branch":        sess.Context.Metadata.Branch,
			"platform":      sess.Context.Metadata.Platform,
		},
	}
}
