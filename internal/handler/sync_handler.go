package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"article-sync-server/internal/domain"
	"article-sync-server/internal/service"
	"article-sync-server/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// SyncHandler exposes conflict detection and resolution, sync status
// tracking and version history.
type SyncHandler struct {
	articles  *service.ArticleService
	conflicts *service.ConflictService
	status    *service.SyncStatusService
	versions  *service.VersionService
	validate  *validator.Validate
	logger    *slog.Logger
}

func NewSyncHandler(
	articles *service.ArticleService,
	conflicts *service.ConflictService,
	status *service.SyncStatusService,
	versions *service.VersionService,
	logger *slog.Logger,
) *SyncHandler {
	return &SyncHandler{
		articles:  articles,
		conflicts: conflicts,
		status:    status,
		versions:  versions,
		validate:  validator.New(),
		logger:    logger,
	}
}

type pruneResponse struct {
	Removed int `json:"removed"`
	Kept    int `json:"kept"`
}

func (h *SyncHandler) ListConflicts(w http.ResponseWriter, r *http.Request) {
	articles, err := h.conflicts.ListConflicts(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, articles)
}

func (h *SyncHandler) CheckConflict(w http.ResponseWriter, r *http.Request) {
	status, err := h.conflicts.CheckConflict(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, status)
}

func (h *SyncHandler) MarkConflict(w http.ResponseWriter, r *http.Request) {
	var req domain.MarkConflictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	article, err := h.conflicts.MarkConflict(r.Context(), mux.Vars(r)["id"], req.RemoteContent, req.RemoteTitle, req.RemoteVersion)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, article)
}

func (h *SyncHandler) ResolveConflict(w http.ResponseWriter, r *http.Request) {
	var req domain.ResolveConflictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	req.ArticleID = mux.Vars(r)["id"]

	article, err := h.conflicts.ResolveConflict(r.Context(), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, article)
}

func (h *SyncHandler) UpdateSyncStatus(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateSyncStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	article, err := h.status.UpdateSyncStatus(r.Context(), mux.Vars(r)["id"], req.Status, req.Error)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, article)
}

func (h *SyncHandler) SaveVersion(w http.ResponseWriter, r *http.Request) {
	var req domain.SaveVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	version, err := h.articles.SaveVersion(r.Context(), mux.Vars(r)["id"], req.Source, req.Content, req.Title)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Created(w, version)
}

func (h *SyncHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", 0)
	if !ok {
		return
	}

	versions, err := h.versions.GetVersionHistory(r.Context(), mux.Vars(r)["id"], limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, versions)
}

func (h *SyncHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	version, err := h.versions.GetVersion(r.Context(), vars["id"], vars["versionId"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, version)
}

func (h *SyncHandler) PruneVersions(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("keep") == "" {
		response.BadRequest(w, "keep query parameter is required")
		return
	}
	keep, ok := queryInt(w, r, "keep", 0)
	if !ok {
		return
	}

	removed, err := h.versions.CleanOldVersions(r.Context(), mux.Vars(r)["id"], keep)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, pruneResponse{Removed: removed, Kept: keep})
}

func queryInt(w http.ResponseWriter, r *http.Request, name string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		response.BadRequest(w, "invalid "+name+" parameter")
		return 0, false
	}
	return v, true
}

func (h *SyncHandler) Register(r *mux.Router) {
	r.HandleFunc("/conflicts", h.ListConflicts).Methods("GET", "OPTIONS")
	r.HandleFunc("/articles/{id}/conflict", h.CheckConflict).Methods("GET", "OPTIONS")
	r.HandleFunc("/articles/{id}/conflict", h.MarkConflict).Methods("POST", "OPTIONS")
	r.HandleFunc("/articles/{id}/resolve", h.ResolveConflict).Methods("POST", "OPTIONS")
	r.HandleFunc("/articles/{id}/status", h.UpdateSyncStatus).Methods("PUT", "OPTIONS")
	r.HandleFunc("/articles/{id}/version", h.SaveVersion).Methods("POST", "OPTIONS")
	r.HandleFunc("/articles/{id}/versions", h.ListVersions).Methods("GET", "OPTIONS")
	r.HandleFunc("/articles/{id}/versions", h.PruneVersions).Methods("DELETE", "OPTIONS")
	r.HandleFunc("/articles/{id}/versions/{versionId}", h.GetVersion).Methods("GET", "OPTIONS")
}
