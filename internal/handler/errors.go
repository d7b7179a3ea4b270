package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"article-sync-server/internal/domain"
	"article-sync-server/internal/upload"
	"article-sync-server/pkg/response"
)

// writeError maps service errors onto HTTP statuses. Anything unrecognised is
// logged and reported as a 500 without internal detail.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrArticleNotFound),
		errors.Is(err, domain.ErrVersionNotFound):
		response.NotFound(w, err.Error())

	case errors.Is(err, domain.ErrMissingRemoteContent):
		response.Conflict(w, "missing_remote_content", err.Error())
	case errors.Is(err, domain.ErrConflictPending):
		response.Conflict(w, "conflict_pending", err.Error())
	case errors.Is(err, domain.ErrArticleExists):
		response.Conflict(w, "article_exists", err.Error())

	case errors.Is(err, domain.ErrInvalidResolution),
		errors.Is(err, domain.ErrInvalidSyncStatus),
		errors.Is(err, domain.ErrInvalidVersionSource),
		errors.Is(err, domain.ErrInvalidKeepCount),
		errors.Is(err, upload.ErrOutsideSourceRoot),
		errors.Is(err, upload.ErrSourceDisabled):
		response.BadRequest(w, err.Error())

	default:
		logger.Error("request failed", "error", err)
		response.InternalError(w, "internal server error")
	}
}
