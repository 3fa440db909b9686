package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/hangr/internal/application"
)

const (
	chatWriteWait  = 10 * time.Second
	chatPongWait   = 60 * time.Second
	chatPingPeriod = chatPongWait * 9 / 10
)

type chatService interface {
	PostMessage(ctx context.Context, params application.PostMessageParams) (application.ChatMessage, error)
	ListMessages(ctx context.Context, planID string) ([]application.ChatMessage, error)
	Subscribe(ctx context.Context, planID string) (<-chan application.ChatMessage, func(), error)
}

// ChatHandler serves the plan chat and its websocket stream.
type ChatHandler struct {
	service   chatService
	upgrader  websocket.Upgrader
	now       func() time.Time
	responder responder
	logger    *slog.Logger
}

func NewChatHandler(service chatService, now func() time.Time, logger *slog.Logger) *ChatHandler {
	base := defaultLogger(logger)
	if now == nil {
		now = time.Now
	}
	return &ChatHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		now:       now,
		responder: newResponder(base),
		logger:    base,
	}
}

func (h *ChatHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "ChatHandler", operation, attrs...)
}

// List handles GET /plans/{id}/chat/messages.
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	messages, err := h.service.ListMessages(r.Context(), r.PathValue("id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	now := h.now()
	resp := make([]chatMessageDTO, 0, len(messages))
	for _, m := range messages {
		resp = append(resp, toChatMessageDTO(m, now))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

// Post handles POST /plans/{id}/chat/messages.
func (h *ChatHandler) Post(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	message, err := h.service.PostMessage(ctx, application.PostMessageParams{
		Principal: principalPtr(ctx),
		PlanID:    r.PathValue("id"),
		Handle:    req.Handle,
		Body:      req.Body,
	})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusCreated, toChatMessageDTO(message, h.now()))
}

// Stream handles GET /plans/{id}/chat/stream. New messages are pushed as
// JSON text frames until the client disconnects or the chat subscription ends.
func (h *ChatHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	planID := r.PathValue("id")

	messages, cancel, err := h.service.Subscribe(ctx, planID)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	defer cancel()

	logger := h.log(ctx, "Stream", "plan_id", planID)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WarnContext(ctx, "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(chatPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(chatPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(chatPingPeriod)
	defer ticker.Stop()

	logger.DebugContext(ctx, "chat stream opened")
	for {
		select {
		case <-closed:
			logger.DebugContext(ctx, "chat stream closed by client")
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(chatWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case message, ok := <-messages:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			data, err := json.Marshal(toChatMessageDTO(message, h.now()))
			if err != nil {
				logger.ErrorContext(ctx, "failed to encode chat message", "error", err)
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(chatWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.DebugContext(ctx, "chat stream write failed", "error", err)
				return
			}
		}
	}
}

type postMessageRequest struct {
	Handle string `json:"handle"`
	Body   string `json:"body"`
}

type chatMessageDTO struct {
	ID        string `json:"id"`
	PlanID    string `json:"plan_id"`
	Handle    string `json:"handle"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
	TimeLabel string `json:"time_label"`
}

func toChatMessageDTO(m application.ChatMessage, now time.Time) chatMessageDTO {
	return chatMessageDTO{
		ID:        m.ID,
		PlanID:    m.PlanID,
		Handle:    m.Handle,
		Body:      m.Body,
		CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339Nano),
		TimeLabel: relativeLabel(m.CreatedAt, now),
	}
}
