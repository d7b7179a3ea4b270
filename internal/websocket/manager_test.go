package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"article-sync-server/internal/domain"
	"article-sync-server/internal/service"
)

func newTestManager(maxConn int) *Manager {
	return NewManager(Options{
		MaxConnPerUser: maxConn,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func newTestClient(m *Manager, id, userID, deviceID string) *Client {
	return NewClient(id, userID, deviceID, nil, m)
}

func receive(t *testing.T, c *Client) *Message {
	t.Helper()

	select {
	case data := <-c.Send:
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("invalid message: %v", err)
		}
		return &msg
	default:
		return nil
	}
}

func TestManager_NotifySkipsOriginDevice(t *testing.T) {
	m := newTestManager(5)
	laptop := newTestClient(m, "c-1", "user-1", "laptop")
	tablet := newTestClient(m, "c-2", "user-1", "tablet")
	m.registerClient(laptop)
	m.registerClient(tablet)

	m.Notify(service.Event{
		Type:         service.EventArticleEdited,
		ArticleID:    "article-1",
		LocalVersion: 3,
		SyncStatus:   domain.SyncStatusPending,
		DeviceID:     "laptop",
	})

	if msg := receive(t, laptop); msg != nil {
		t.Errorf("origin device received %s", msg.Type)
	}

	msg := receive(t, tablet)
	if msg == nil {
		t.Fatal("tablet received nothing")
	}
	if msg.Type != TypeArticleEdited {
		t.Errorf("Type = %s, want %s", msg.Type, TypeArticleEdited)
	}

	var payload ArticleEventPayload
	if err := msg.UnmarshalPayload(&payload); err != nil {
		t.Fatalf("UnmarshalPayload() error = %v", err)
	}
	if payload.ArticleID != "article-1" || payload.LocalVersion != 3 || payload.SyncStatus != "pending" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestManager_NotifyWithoutDeviceReachesAll(t *testing.T) {
	m := newTestManager(5)
	a := newTestClient(m, "c-1", "user-1", "laptop")
	b := newTestClient(m, "c-2", "user-2", "phone")
	m.registerClient(a)
	m.registerClient(b)

	remote := int64(7)
	m.Notify(service.Event{
		Type:          service.EventConflictDetected,
		ArticleID:     "article-1",
		RemoteVersion: &remote,
		SyncStatus:    domain.SyncStatusConflict,
	})

	for _, c := range []*Client{a, b} {
		msg := receive(t, c)
		if msg == nil || msg.Type != TypeConflictDetected {
			t.Errorf("client %s got %v, want conflict_detected", c.ID, msg)
		}
	}
}

func TestManager_MaxConnectionsPerUser(t *testing.T) {
	m := newTestManager(1)
	first := newTestClient(m, "c-1", "user-1", "laptop")
	second := newTestClient(m, "c-2", "user-1", "tablet")

	m.registerClient(first)
	m.registerClient(second)

	if n := m.GetUserConnections("user-1"); n != 1 {
		t.Errorf("GetUserConnections() = %d, want 1", n)
	}
	if _, ok := <-second.Send; ok {
		t.Error("rejected client send channel still open")
	}
}

func TestManager_Unregister(t *testing.T) {
	m := newTestManager(5)
	c := newTestClient(m, "c-1", "user-1", "laptop")
	m.registerClient(c)
	m.unregisterClient(c)
	m.unregisterClient(c)

	if n := m.GetUserConnections("user-1"); n != 0 {
		t.Errorf("GetUserConnections() = %d, want 0", n)
	}
}

func TestManager_RunClosesClientsOnShutdown(t *testing.T) {
	m := newTestManager(5)
	c := newTestClient(m, "c-1", "user-1", "laptop")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	m.Register <- c
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if _, ok := <-c.Send; ok {
		t.Error("client send channel still open after shutdown")
	}
}

type recordingHandler struct {
	got []MessageType
}

func (h *recordingHandler) HandleWebSocketMessage(_ context.Context, _ *Client, msg *Message) error {
	h.got = append(h.got, msg.Type)
	return nil
}

func TestManager_ProcessMessage(t *testing.T) {
	m := newTestManager(5)
	h := &recordingHandler{}
	m.SetMessageHandler(h)

	registered := newTestClient(m, "c-1", "user-1", "laptop")
	stranger := newTestClient(m, "c-2", "user-1", "tablet")
	m.registerClient(registered)

	ctx := context.Background()
	m.processMessage(ctx, &ClientMessage{Client: registered, Message: []byte(`{"type":"ping"}`)})
	m.processMessage(ctx, &ClientMessage{Client: registered, Message: []byte(`not json`)})
	m.processMessage(ctx, &ClientMessage{Client: stranger, Message: []byte(`{"type":"ping"}`)})

	if len(h.got) != 1 || h.got[0] != TypePing {
		t.Errorf("handled = %v, want [ping]", h.got)
	}
}
