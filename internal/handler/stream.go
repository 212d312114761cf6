package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/resto-ai/support-engine/internal/middleware"
	"github.com/resto-ai/support-engine/internal/model"
	"github.com/resto-ai/support-engine/internal/repository"
	"github.com/resto-ai/support-engine/pkg/logger"
	"github.com/resto-ai/support-engine/pkg/metrics"
)

// StreamHandler streams ticket threads over SSE. The chat widget keeps
// this open after a handoff so agent replies appear live.
type StreamHandler struct {
	repo   *repository.TicketRepository
	logger *logger.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(repo *repository.TicketRepository, log *logger.Logger) *StreamHandler {
	return &StreamHandler{repo: repo, logger: log}
}

// ReplayCompleteEvent marks the end of the historical replay phase.
type ReplayCompleteEvent struct {
	LastSequence uint64 `json:"last_sequence"`
	MessageCount int    `json:"message_count"`
}

// HeartbeatEvent keeps idle connections alive through proxies.
type HeartbeatEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// ErrorEvent reports a stream-side failure to the client.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Stream handles GET /api/v1/tickets/{ticketID}/stream
// Supports ?after_sequence=N for resuming from a specific point.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ticketID := chi.URLParam(r, "ticketID")

	if err := middleware.ValidateTicketID(ticketID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.repo.GetTicket(ctx, ticketID); err != nil {
		writeError(w, http.StatusNotFound, "ticket not found")
		return
	}

	var afterSequence uint64
	if seqStr := r.URL.Query().Get("after_sequence"); seqStr != "" {
		if seq, err := strconv.ParseUint(seqStr, 10, 64); err == nil {
			afterSequence = seq
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	done := ctx.Done()

	sendSSEEvent(w, flusher, "connected", map[string]string{
		"ticket_id": ticketID,
	})

	// Replay the thread so far, in batches.
	lastSequence := afterSequence
	var totalReplayed int
	for {
		messages, err := h.repo.GetMessages(ctx, ticketID, lastSequence, 50)
		if err != nil {
			h.logger.Error("failed to replay ticket messages",
				zap.String("ticket_id", ticketID), zap.Error(err))
			sendSSEEvent(w, flusher, "error", &ErrorEvent{
				Code:    "replay_error",
				Message: "Failed to replay messages",
			})
			break
		}

		for _, msg := range messages {
			select {
			case <-done:
				return
			default:
			}
			sendSSEEvent(w, flusher, "message", msg)
			lastSequence = msg.Sequence
			totalReplayed++
		}

		if len(messages) < 50 {
			break
		}
	}

	sendSSEEvent(w, flusher, "replay_complete", &ReplayCompleteEvent{
		LastSequence: lastSequence,
		MessageCount: totalReplayed,
	})

	h.logger.Info("ticket replay complete",
		zap.String("ticket_id", ticketID),
		zap.Int("messages_replayed", totalReplayed),
		zap.Uint64("last_sequence", lastSequence))

	// Live phase: push new thread messages as they land on the stream.
	// Replay and subscription overlap by at most the window between the
	// last fetch and the consumer start; the sequence guard drops dupes.
	live := make(chan *model.TicketMessage, 16)
	subCtx := ctx
	if err := h.repo.SubscribeToMessages(subCtx, ticketID, func(msg *model.TicketMessage) {
		select {
		case live <- msg:
		default:
			h.logger.Warn("dropping live ticket message, slow SSE client",
				zap.String("ticket_id", ticketID))
		}
	}); err != nil {
		h.logger.Error("failed to subscribe to ticket messages",
			zap.String("ticket_id", ticketID), zap.Error(err))
		sendSSEEvent(w, flusher, "error", &ErrorEvent{
			Code:    "subscribe_error",
			Message: "Failed to subscribe to live updates",
		})
		return
	}

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-done:
			h.logger.Info("SSE client disconnected", zap.String("ticket_id", ticketID))
			return

		case msg := <-live:
			if msg.Sequence != 0 && msg.Sequence <= lastSequence {
				continue
			}
			sendSSEEvent(w, flusher, "message", msg)
			if msg.Sequence > lastSequence {
				lastSequence = msg.Sequence
			}

		case <-heartbeat.C:
			sendSSEEvent(w, flusher, "heartbeat", &HeartbeatEvent{
				Timestamp: time.Now(),
			})
		}
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()

	return nil
}
