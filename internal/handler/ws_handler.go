package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"article-sync-server/internal/config"
	"article-sync-server/internal/domain"
	"article-sync-server/internal/service"
	"article-sync-server/internal/websocket"
	"article-sync-server/pkg/jwt"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	manager   *websocket.Manager
	jwtSecret string
	upgrader  ws.Upgrader
	logger    *slog.Logger
}

func NewWebSocketHandler(manager *websocket.Manager, jwtSecret string, cfg config.WebSocketConfig, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		manager:   manager,
		jwtSecret: jwtSecret,
		upgrader: ws.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
	}
}

func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}

	if token == "" {
		http.Error(w, "missing authorization token", http.StatusUnauthorized)
		return
	}

	claims, err := jwt.ValidateToken(token, h.jwtSecret)
	if err != nil {
		h.logger.Warn("websocket token rejected", "error", err)
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		deviceID = claims.DeviceID
	}
	if deviceID == "" {
		deviceID = "default"
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "user_id", claims.UserID, "error", err)
		return
	}

	client := websocket.NewClient(uuid.New().String(), claims.UserID, deviceID, conn, h.manager)

	h.manager.Register <- client

	go client.WritePump()
	go client.ReadPump()
}

// WebSocketMessageHandler answers requests sent over an open connection.
type WebSocketMessageHandler struct {
	conflicts *service.ConflictService
}

func NewWebSocketMessageHandler(conflicts *service.ConflictService) *WebSocketMessageHandler {
	return &WebSocketMessageHandler{conflicts: conflicts}
}

func (h *WebSocketMessageHandler) HandleWebSocketMessage(ctx context.Context, client *websocket.Client, msg *websocket.Message) error {
	switch msg.Type {
	case websocket.TypePing:
		return reply(client, websocket.TypePong, msg.ID, nil)

	case websocket.TypeCheckConflict:
		return h.handleCheckConflict(ctx, client, msg)

	case websocket.TypeResolveConflict:
		return h.handleResolveConflict(ctx, client, msg)

	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
}

func (h *WebSocketMessageHandler) handleCheckConflict(ctx context.Context, client *websocket.Client, msg *websocket.Message) error {
	var payload websocket.CheckConflictPayload
	if err := msg.UnmarshalPayload(&payload); err != nil {
		return ack(client, msg.ID, err)
	}

	status, err := h.conflicts.CheckConflict(ctx, payload.ArticleID)
	if err != nil {
		return ack(client, msg.ID, err)
	}

	return reply(client, websocket.TypeConflictStatus, msg.ID, status)
}

// handleResolveConflict acks the request; the resolution itself reaches the
// other devices as a conflict_resolved broadcast.
func (h *WebSocketMessageHandler) handleResolveConflict(ctx context.Context, client *websocket.Client, msg *websocket.Message) error {
	var payload websocket.ResolveConflictPayload
	if err := msg.UnmarshalPayload(&payload); err != nil {
		return ack(client, msg.ID, err)
	}

	_, err := h.conflicts.ResolveConflict(ctx, &domain.ResolveConflictRequest{
		ArticleID:  payload.ArticleID,
		Resolution: domain.Resolution(payload.Resolution),
	})
	return ack(client, msg.ID, err)
}

func ack(client *websocket.Client, messageID string, err error) error {
	payload := websocket.AckPayload{MessageID: messageID, Success: err == nil}
	if err != nil {
		payload.Error = err.Error()
	}
	return reply(client, websocket.TypeAck, messageID, payload)
}

func reply(client *websocket.Client, msgType websocket.MessageType, id string, payload interface{}) error {
	msg, err := websocket.NewMessage(msgType, payload)
	if err != nil {
		return err
	}
	msg.ID = id

	sent, err := client.SendMessage(msg)
	if err != nil {
		return err
	}
	if !sent {
		return fmt.Errorf("send buffer full for client %s", client.ID)
	}
	return nil
}
