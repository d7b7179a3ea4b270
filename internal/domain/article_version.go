package domain

import "time"

type VersionSource string

const (
	VersionSourceLocal          VersionSource = "local"
	VersionSourceRemote         VersionSource = "remote"
	VersionSourceConflictRemote VersionSource = "conflict_remote"
)

func (s VersionSource) Valid() bool {
	switch s {
	case VersionSourceLocal, VersionSourceRemote, VersionSourceConflictRemote:
		return true
	}
	return false
}

// ArticleVersion is an immutable snapshot. Version is the article's
// LocalVersion at capture time.
type ArticleVersion struct {
	ID          string        `json:"id"`
	ArticleID   string        `json:"article_id"`
	Version     int64         `json:"version"`
	Title       string        `json:"title"`
	Content     string        `json:"content"`
	ContentHash string        `json:"content_hash"`
	Source      VersionSource `json:"source"`
	CreatedAt   time.Time     `json:"created_at"`
}

type SaveVersionRequest struct {
	Source  VersionSource `json:"source" validate:"required,oneof=local remote conflict_remote"`
	Content *string       `json:"content"`
	Title   *string       `json:"title"`
}
