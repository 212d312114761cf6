package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/resto-ai/support-engine/internal/middleware"
	"github.com/resto-ai/support-engine/internal/model"
	"github.com/resto-ai/support-engine/internal/notify"
	"github.com/resto-ai/support-engine/internal/repository"
	"github.com/resto-ai/support-engine/internal/session"
	"github.com/resto-ai/support-engine/pkg/logger"
)

// TicketHandler handles support ticket endpoints. Customer routes are
// unauthenticated; agent routes sit behind JWT auth in the router.
type TicketHandler struct {
	repo     *repository.TicketRepository
	sessions *session.Store
	notifier *notify.Notifier
	logger   *logger.Logger
}

// NewTicketHandler creates a new ticket handler.
func NewTicketHandler(
	repo *repository.TicketRepository,
	sessions *session.Store,
	notifier *notify.Notifier,
	log *logger.Logger,
) *TicketHandler {
	return &TicketHandler{
		repo:     repo,
		sessions: sessions,
		notifier: notifier,
		logger:   log,
	}
}

// CreateTicketRequest is the body for POST /api/v1/tickets.
type CreateTicketRequest struct {
	Email     string `json:"email"`
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// TicketMessageRequest is the body for appending a thread message.
type TicketMessageRequest struct {
	Body string `json:"body"`
}

// MessagesResponse is a page of a ticket thread.
type MessagesResponse struct {
	Messages []model.TicketMessage `json:"messages"`
	HasMore  bool                  `json:"has_more"`
}

// Create handles POST /api/v1/tickets
func (h *TicketHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateEmail(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateMessageContent(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ticket, err := h.repo.CreateTicketForSession(r.Context(), req.Email, req.Message, req.SessionID)
	if err != nil {
		h.logger.Error("failed to create ticket", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create ticket")
		return
	}

	if req.SessionID != "" {
		h.linkTicketToSession(req.SessionID, ticket.ID)
	}

	h.notifier.TicketCreated(r.Context(), ticket, req.SessionID)
	writeJSON(w, http.StatusCreated, ticket)
}

// Get handles GET /api/v1/tickets/{ticketID}
func (h *TicketHandler) Get(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketID")
	if err := middleware.ValidateTicketID(ticketID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ticket, err := h.repo.GetTicket(r.Context(), ticketID)
	if err != nil {
		if err == repository.ErrTicketNotFound {
			writeError(w, http.StatusNotFound, "ticket not found")
			return
		}
		h.logger.Error("failed to get ticket", zap.String("ticket_id", ticketID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get ticket")
		return
	}

	writeJSON(w, http.StatusOK, ticket)
}

// ListMessages handles GET /api/v1/tickets/{ticketID}/messages
// Supports ?after_sequence=N and ?limit=N for paging through a thread.
func (h *TicketHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketID")
	if err := middleware.ValidateTicketID(ticketID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.repo.GetTicket(r.Context(), ticketID); err != nil {
		writeError(w, http.StatusNotFound, "ticket not found")
		return
	}

	var afterSequence uint64
	if seqStr := r.URL.Query().Get("after_sequence"); seqStr != "" {
		if seq, err := strconv.ParseUint(seqStr, 10, 64); err == nil {
			afterSequence = seq
		}
	}
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil {
			limit = n
		}
	}

	messages, err := h.repo.GetMessages(r.Context(), ticketID, afterSequence, limit)
	if err != nil {
		h.logger.Error("failed to list ticket messages",
			zap.String("ticket_id", ticketID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}

	writeJSON(w, http.StatusOK, &MessagesResponse{
		Messages: messages,
		HasMore:  len(messages) == limit,
	})
}

// CustomerReply handles POST /api/v1/tickets/{ticketID}/messages
func (h *TicketHandler) CustomerReply(w http.ResponseWriter, r *http.Request) {
	h.appendMessage(w, r, model.AuthorCustomer)
}

// AgentReply handles POST /api/v1/agent/tickets/{ticketID}/messages
// The agent identity comes from the JWT, never from the body.
func (h *TicketHandler) AgentReply(w http.ResponseWriter, r *http.Request) {
	h.appendMessage(w, r, model.AuthorAgent)
}

// Assign handles POST /api/v1/agent/tickets/{ticketID}/assign
func (h *TicketHandler) Assign(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketID")
	if err := middleware.ValidateTicketID(ticketID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	agentID := middleware.GetAgentID(r.Context())
	if agentID == "" {
		writeError(w, http.StatusUnauthorized, "agent identity required")
		return
	}

	ticket, err := h.repo.AssignAgent(r.Context(), ticketID, agentID)
	if err != nil {
		if err == repository.ErrTicketNotFound {
			writeError(w, http.StatusNotFound, "ticket not found")
			return
		}
		h.logger.Error("failed to assign ticket",
			zap.String("ticket_id", ticketID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to assign ticket")
		return
	}

	// The linked chat session, if still open, flips into agent mode so
	// the state machine routes subsequent turns to the human.
	if ticket.SessionID != "" {
		if sess, err := h.sessions.Get(ticket.SessionID); err == nil {
			sess.Lock()
			sess.Context.Metadata.AgentAssigned = true
			sess.Unlock()
		}
	}

	h.logger.Info("ticket assigned",
		zap.String("ticket_id", ticketID),
		zap.String("agent_id", agentID))
	writeJSON(w, http.StatusOK, ticket)
}

func (h *TicketHandler) appendMessage(w http.ResponseWriter, r *http.Request, author model.AuthorType) {
	ticketID := chi.URLParam(r, "ticketID")
	if err := middleware.ValidateTicketID(ticketID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req TicketMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateMessageContent(req.Body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.repo.GetTicket(r.Context(), ticketID); err != nil {
		writeError(w, http.StatusNotFound, "ticket not found")
		return
	}

	msg, err := h.repo.AppendMessage(r.Context(), ticketID, req.Body, author)
	if err != nil {
		h.logger.Error("failed to append ticket message",
			zap.String("ticket_id", ticketID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to append message")
		return
	}

	if author == model.AuthorAgent {
		h.notifier.AgentReply(r.Context(), msg)
	}

	writeJSON(w, http.StatusCreated, msg)
}

func (h *TicketHandler) linkTicketToSession(sessionID, ticketID string) {
	sess, err := h.sessions.Get(sessionID)
	if err != nil {
		return
	}
	sess.Lock()
	sess.Context.Metadata.TicketIDs = append(sess.Context.Metadata.TicketIDs, ticketID)
	sess.Unlock()
}
