package service

import "article-sync-server/internal/domain"

type EventType string

const (
	EventConflictDetected EventType = "conflict_detected"
	EventConflictResolved EventType = "conflict_resolved"
	EventSyncStatus       EventType = "sync_status"
	EventArticleEdited    EventType = "article_edited"
)

type Event struct {
	Type          EventType
	ArticleID     string
	LocalVersion  int64
	RemoteVersion *int64
	SyncStatus    domain.SyncStatus
	Resolution    domain.Resolution
	DeviceID      string
}

// Notifier receives article lifecycle events after the change is stored.
// Delivery is best effort; it never fails the operation.
type Notifier interface {
	Notify(event Event)
}

type nopNotifier struct{}

func (nopNotifier) Notify(Event) {}

func eventFor(t EventType, a *domain.Article) Event {
	return Event{
		Type:          t,
		ArticleID:     a.ID,
		LocalVersion:  a.LocalVersion,
		RemoteVersion: a.RemoteVersion,
		SyncStatus:    a.SyncStatus,
	}
}
