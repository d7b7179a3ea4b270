package domain

type Resolution string

const (
	ResolutionLocal  Resolution = "local"
	ResolutionRemote Resolution = "remote"
)

// ConflictStatus is the read-only projection returned by a conflict check.
type ConflictStatus struct {
	ArticleID     string     `json:"article_id"`
	HasConflict   bool       `json:"has_conflict"`
	LocalVersion  int64      `json:"local_version"`
	RemoteVersion *int64     `json:"remote_version,omitempty"`
	RemoteContent *string    `json:"remote_content,omitempty"`
	SyncStatus    SyncStatus `json:"sync_status"`
}

type MarkConflictRequest struct {
	RemoteContent string `json:"remote_content"`
	RemoteTitle   string `json:"remote_title"`
	RemoteVersion *int64 `json:"remote_version"`
}

type ResolveConflictRequest struct {
	ArticleID  string     `json:"-"`
	Resolution Resolution `json:"resolution" validate:"required,oneof=local remote"`
}

type UpdateSyncStatusRequest struct {
	Status SyncStatus `json:"status" validate:"required,oneof=synced pending syncing conflict error"`
	Error  *string    `json:"error"`
}
