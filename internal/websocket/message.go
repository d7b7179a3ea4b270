package websocket

import (
	"encoding/json"
	"time"
)

type MessageType string

const (
	TypeConflictDetected MessageType = "conflict_detected"
	TypeConflictResolved MessageType = "conflict_resolved"
	TypeSyncStatus       MessageType = "sync_status"
	TypeArticleEdited    MessageType = "article_edited"
	TypeCheckConflict    MessageType = "check_conflict"
	TypeConflictStatus   MessageType = "conflict_status"
	TypeResolveConflict  MessageType = "resolve_conflict"
	TypeAck              MessageType = "ack"
	TypePing             MessageType = "ping"
	TypePong             MessageType = "pong"
)

type Message struct {
	ID        string          `json:"id,omitempty"`
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type ArticleEventPayload struct {
	ArticleID     string `json:"article_id"`
	LocalVersion  int64  `json:"local_version"`
	RemoteVersion *int64 `json:"remote_version,omitempty"`
	SyncStatus    string `json:"sync_status"`
	Resolution    string `json:"resolution,omitempty"`
	DeviceID      string `json:"device_id,omitempty"`
}

type CheckConflictPayload struct {
	ArticleID string `json:"article_id"`
}

type ResolveConflictPayload struct {
	ArticleID  string `json:"article_id"`
	Resolution string `json:"resolution"`
}

type AckPayload struct {
	MessageID string `json:"message_id"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		bytes, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		payloadBytes = bytes
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payloadBytes,
	}, nil
}

func (m *Message) UnmarshalPayload(v interface{}) error {
	if m.Payload == nil {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}
