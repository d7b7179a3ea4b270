package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"article-sync-server/internal/service"
)

type ClientMessage struct {
	Client  *Client
	Message []byte
}

type Options struct {
	MaxConnPerUser int
	MaxMessageSize int64
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	Logger         *slog.Logger
}

// Manager tracks connected devices and fans article events out to them. It
// implements service.Notifier.
type Manager struct {
	clients        map[string]*Client
	userIndex      map[string]map[string]bool
	clientsMutex   sync.RWMutex
	Register       chan *Client
	Unregister     chan *Client
	HandleMessage  chan *ClientMessage
	maxConnPerUser int
	maxMessageSize int64
	writeWait      time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
	logger         *slog.Logger
	messageHandler MessageHandler
}

type MessageHandler interface {
	HandleWebSocketMessage(ctx context.Context, client *Client, msg *Message) error
}

func NewManager(opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Manager{
		clients:        make(map[string]*Client),
		userIndex:      make(map[string]map[string]bool),
		Register:       make(chan *Client),
		Unregister:     make(chan *Client),
		HandleMessage:  make(chan *ClientMessage),
		maxConnPerUser: opts.MaxConnPerUser,
		maxMessageSize: opts.MaxMessageSize,
		writeWait:      opts.WriteWait,
		pongWait:       opts.PongWait,
		pingPeriod:     opts.PingPeriod,
		logger:         opts.Logger,
	}
}

func (m *Manager) SetMessageHandler(handler MessageHandler) {
	m.messageHandler = handler
}

// Run serves registrations and inbound messages until ctx is done, then
// closes every remaining client.
func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case client := <-m.Register:
			m.registerClient(client)

		case client := <-m.Unregister:
			m.unregisterClient(client)

		case clientMsg := <-m.HandleMessage:
			m.processMessage(ctx, clientMsg)

		case <-ctx.Done():
			m.closeAll()
			return
		}
	}
}

func (m *Manager) registerClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if m.maxConnPerUser > 0 && len(m.userIndex[client.UserID]) >= m.maxConnPerUser {
		m.logger.Warn("max connections reached", "user_id", client.UserID)
		close(client.Send)
		return
	}

	if m.userIndex[client.UserID] == nil {
		m.userIndex[client.UserID] = make(map[string]bool)
	}
	m.clients[client.ID] = client
	m.userIndex[client.UserID][client.ID] = true

	m.logger.Info("client registered", "client_id", client.ID, "user_id", client.UserID, "device_id", client.DeviceID)
}

func (m *Manager) unregisterClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if _, ok := m.clients[client.ID]; ok {
		m.removeLocked(client)
		m.logger.Info("client unregistered", "client_id", client.ID)
	}
}

func (m *Manager) removeLocked(client *Client) {
	delete(m.clients, client.ID)
	delete(m.userIndex[client.UserID], client.ID)

	if len(m.userIndex[client.UserID]) == 0 {
		delete(m.userIndex, client.UserID)
	}

	close(client.Send)
}

func (m *Manager) closeAll() {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	for _, client := range m.clients {
		m.removeLocked(client)
	}
}

func (m *Manager) processMessage(ctx context.Context, clientMsg *ClientMessage) {
	m.clientsMutex.RLock()
	_, registered := m.clients[clientMsg.Client.ID]
	m.clientsMutex.RUnlock()
	if !registered {
		return
	}

	var msg Message
	if err := json.Unmarshal(clientMsg.Message, &msg); err != nil {
		m.logger.Warn("invalid websocket message", "client_id", clientMsg.Client.ID, "error", err)
		return
	}

	if m.messageHandler != nil {
		if err := m.messageHandler.HandleWebSocketMessage(ctx, clientMsg.Client, &msg); err != nil {
			m.logger.Warn("websocket message failed", "client_id", clientMsg.Client.ID, "type", msg.Type, "error", err)
		}
	}
}

// Broadcast delivers message to every connected client except those on
// excludeDeviceID. Clients with a full buffer are dropped.
func (m *Manager) Broadcast(message *Message, excludeDeviceID string) error {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	m.clientsMutex.RLock()
	var slow []*Client
	for _, client := range m.clients {
		if excludeDeviceID != "" && client.DeviceID == excludeDeviceID {
			continue
		}
		if !client.enqueue(messageBytes) {
			slow = append(slow, client)
		}
	}
	m.clientsMutex.RUnlock()

	for _, client := range slow {
		m.logger.Warn("client send buffer full, closing connection", "client_id", client.ID)
		go func(c *Client) { m.Unregister <- c }(client)
	}

	return nil
}

// Notify turns a service event into a broadcast. The device that caused the
// change does not get its own event back.
func (m *Manager) Notify(event service.Event) {
	payload := ArticleEventPayload{
		ArticleID:     event.ArticleID,
		LocalVersion:  event.LocalVersion,
		RemoteVersion: event.RemoteVersion,
		SyncStatus:    string(event.SyncStatus),
		Resolution:    string(event.Resolution),
		DeviceID:      event.DeviceID,
	}

	msg, err := NewMessage(MessageType(event.Type), payload)
	if err != nil {
		m.logger.Error("failed to encode event", "type", event.Type, "article_id", event.ArticleID, "error", err)
		return
	}

	if err := m.Broadcast(msg, event.DeviceID); err != nil {
		m.logger.Error("failed to broadcast event", "type", event.Type, "article_id", event.ArticleID, "error", err)
	}
}

func (m *Manager) GetUserConnections(userID string) int {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	if clients, exists := m.userIndex[userID]; exists {
		return len(clients)
	}
	return 0
}
