package domain

import "time"

type SyncStatus string

const (
	SyncStatusSynced   SyncStatus = "synced"
	SyncStatusPending  SyncStatus = "pending"
	SyncStatusSyncing  SyncStatus = "syncing"
	SyncStatusConflict SyncStatus = "conflict"
	SyncStatusError    SyncStatus = "error"
)

func (s SyncStatus) Valid() bool {
	switch s {
	case SyncStatusSynced, SyncStatusPending, SyncStatusSyncing, SyncStatusConflict, SyncStatusError:
		return true
	}
	return false
}

// Article is the locally editable document together with its sync metadata.
// HasConflict, ConflictRemoteContent and SyncStatus == conflict always move together.
type Article struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	ContentHash string `json:"content_hash"`

	LocalVersion  int64  `json:"local_version"`
	RemoteVersion *int64 `json:"remote_version,omitempty"`

	HasConflict           bool       `json:"has_conflict"`
	ConflictRemoteContent *string    `json:"conflict_remote_content,omitempty"`
	ConflictRemoteTitle   *string    `json:"conflict_remote_title,omitempty"`
	ConflictRemoteHash    *string    `json:"conflict_remote_hash,omitempty"`
	ConflictDetectedAt    *time.Time `json:"conflict_detected_at,omitempty"`

	SyncStatus     SyncStatus `json:"sync_status"`
	SyncError      *string    `json:"sync_error,omitempty"`
	LastModifiedBy *string    `json:"last_modified_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ArticleUpdate is a field-level patch. Nil pointers leave the column untouched;
// the Clear flags null out optional columns.
type ArticleUpdate struct {
	Title       *string
	Content     *string
	ContentHash *string

	LocalVersion  *int64
	RemoteVersion *int64

	HasConflict           *bool
	ConflictRemoteContent *string
	ConflictRemoteTitle   *string
	ConflictRemoteHash    *string
	ConflictDetectedAt    *time.Time
	ClearConflict         bool

	SyncStatus     *SyncStatus
	SyncError      *string
	ClearSyncError bool

	LastModifiedBy *string
	UpdatedAt      time.Time
}

// Apply mutates a in place. Repositories without field-level writes use it
// to build the row they persist.
func (u *ArticleUpdate) Apply(a *Article) {
	if u.Title != nil {
		a.Title = *u.Title
	}
	if u.Content != nil {
		a.Content = *u.Content
	}
	if u.ContentHash != nil {
		a.ContentHash = *u.ContentHash
	}
	if u.LocalVersion != nil {
		a.LocalVersion = *u.LocalVersion
	}
	if u.RemoteVersion != nil {
		v := *u.RemoteVersion
		a.RemoteVersion = &v
	}
	if u.ClearConflict {
		a.HasConflict = false
		a.ConflictRemoteContent = nil
		a.ConflictRemoteTitle = nil
		a.ConflictRemoteHash = nil
		a.ConflictDetectedAt = nil
	}
	if u.HasConflict != nil {
		a.HasConflict = *u.HasConflict
	}
	if u.ConflictRemoteContent != nil {
		v := *u.ConflictRemoteContent
		a.ConflictRemoteContent = &v
	}
	if u.ConflictRemoteTitle != nil {
		v := *u.ConflictRemoteTitle
		a.ConflictRemoteTitle = &v
	}
	if u.ConflictRemoteHash != nil {
		v := *u.ConflictRemoteHash
		a.ConflictRemoteHash = &v
	}
	if u.ConflictDetectedAt != nil {
		v := *u.ConflictDetectedAt
		a.ConflictDetectedAt = &v
	}
	if u.SyncStatus != nil {
		a.SyncStatus = *u.SyncStatus
	}
	if u.ClearSyncError {
		a.SyncError = nil
	}
	if u.SyncError != nil {
		v := *u.SyncError
		a.SyncError = &v
	}
	if u.LastModifiedBy != nil {
		v := *u.LastModifiedBy
		a.LastModifiedBy = &v
	}
	if !u.UpdatedAt.IsZero() {
		a.UpdatedAt = u.UpdatedAt
	}
}

type CreateArticleRequest struct {
	Title    string `json:"title" validate:"required"`
	Content  string `json:"content"`
	DeviceID string `json:"device_id" validate:"required"`
	Pending  bool   `json:"pending"`
}

type EditArticleRequest struct {
	Title    *string `json:"title"`
	Content  *string `json:"content"`
	DeviceID string  `json:"device_id" validate:"required"`
}
