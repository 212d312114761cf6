package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/resto-ai/support-engine/internal/engine"
	"github.com/resto-ai/support-engine/internal/middleware"
	"github.com/resto-ai/support-engine/internal/session"
	"github.com/resto-ai/support-engine/pkg/logger"
)

// MessageHandler handles chat message endpoints.
type MessageHandler struct {
	store  *session.Store
	engine *engine.Engine
	logger *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(store *session.Store, eng *engine.Engine, log *logger.Logger) *MessageHandler {
	return &MessageHandler{store: store, engine: eng, logger: log}
}

// SendMessageRequest is the body for POST /api/v1/sessions/{sessionID}/messages.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// Send handles POST /api/v1/sessions/{sessionID}/messages
//
// The turn pipeline runs synchronously and the full result comes back
// in one response. The widget renders the response text, quick reply
// actions and proactive suggestions from the same payload.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := h.store.Get(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	result := h.engine.ProcessUserMessage(r.Context(), sess, req.Content)
	writeJSON(w, http.StatusOK, result)
}
