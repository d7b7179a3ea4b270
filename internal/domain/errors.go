package domain

import "errors"

var (
	ErrArticleNotFound      = errors.New("article not found")
	ErrArticleExists        = errors.New("article already exists")
	ErrVersionNotFound      = errors.New("article version not found")
	ErrMissingRemoteContent = errors.New("no remote content stored for conflict resolution")
	ErrInvalidResolution    = errors.New("invalid conflict resolution")
	ErrInvalidSyncStatus    = errors.New("invalid sync status")
	ErrInvalidVersionSource = errors.New("invalid version source")
	ErrConflictPending      = errors.New("article has an unresolved conflict")
	ErrInvalidKeepCount     = errors.New("keep count must not be negative")
)
