package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"article-sync-server/internal/domain"
	"article-sync-server/internal/middleware"
	"article-sync-server/internal/service"
	"article-sync-server/internal/upload"
	"article-sync-server/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

type ArticleHandler struct {
	service  *service.ArticleService
	validate *validator.Validate
	logger   *slog.Logger
}

func NewArticleHandler(service *service.ArticleService, logger *slog.Logger) *ArticleHandler {
	return &ArticleHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}
}

type uploadImagesRequest struct {
	DeviceID string            `json:"device_id"`
	Images   []upload.ImageRef `json:"images" validate:"required,min=1,dive"`
}

type uploadImagesResponse struct {
	Article *domain.Article `json:"article"`
	Results []upload.Result `json:"results"`
}

func (h *ArticleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateArticleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}
	if req.DeviceID == "" {
		req.DeviceID = middleware.GetDeviceID(r)
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	article, err := h.service.Create(r.Context(), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Created(w, article)
}

func (h *ArticleHandler) List(w http.ResponseWriter, r *http.Request) {
	articles, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, articles)
}

func (h *ArticleHandler) Get(w http.ResponseWriter, r *http.Request) {
	article, err := h.service.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, article)
}

func (h *ArticleHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var req domain.EditArticleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}
	if req.DeviceID == "" {
		req.DeviceID = middleware.GetDeviceID(r)
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	if req.Title == nil && req.Content == nil {
		response.BadRequest(w, "title or content is required")
		return
	}

	article, err := h.service.Edit(r.Context(), mux.Vars(r)["id"], &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, article)
}

// UploadImages answers 200 even when some images failed; per-image outcomes
// are in the results.
func (h *ArticleHandler) UploadImages(w http.ResponseWriter, r *http.Request) {
	var req uploadImagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}
	if req.DeviceID == "" {
		req.DeviceID = middleware.GetDeviceID(r)
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	article, results, err := h.service.UploadImages(r.Context(), mux.Vars(r)["id"], req.DeviceID, req.Images)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, uploadImagesResponse{Article: article, Results: results})
}

func (h *ArticleHandler) Register(r *mux.Router) {
	r.HandleFunc("/articles", h.Create).Methods("POST", "OPTIONS")
	r.HandleFunc("/articles", h.List).Methods("GET", "OPTIONS")
	r.HandleFunc("/articles/{id}", h.Get).Methods("GET", "OPTIONS")
	r.HandleFunc("/articles/{id}", h.Edit).Methods("PUT", "OPTIONS")
	r.HandleFunc("/articles/{id}/images", h.UploadImages).Methods("POST", "OPTIONS")
}
