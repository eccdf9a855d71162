package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xela07ax/fractal-gallery/internal/auth"
	"github.com/xela07ax/fractal-gallery/internal/domain"
	"github.com/xela07ax/fractal-gallery/internal/repository"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// GalleryService — срез gallery.Service для HTTP-слоя.
type GalleryService interface {
	ByID(ctx context.Context, id int64) (*domain.Gallery, error)
	List(ctx context.Context, page, limit int, userID string) (*domain.GalleryPage, error)
	Create(ctx context.Context, userID, thumbnail string, props map[string]string) (*domain.Gallery, error)
	Delete(ctx context.Context, id int64, userID string) error
	ToggleLike(ctx context.Context, id int64, userID string) (*domain.Gallery, error)
}

type GalleryHandler struct {
	svc    GalleryService
	logger *zap.Logger
}

func NewGalleryHandler(svc GalleryService, logger *zap.Logger) *GalleryHandler {
	return &GalleryHandler{svc: svc, logger: logger}
}

// List обслуживает GET /gallery. Пагинация приводится к валидной:
// page минимум 1, limit в диапазоне 1..100.
func (h *GalleryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	result, err := h.svc.List(r.Context(), page, limit, q.Get("user_id"))
	if err != nil {
		h.logger.Error("gallery list failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, auth.CodeInternal, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// FindOne обслуживает GET /gallery/{id}.
func (h *GalleryHandler) FindOne(w http.ResponseWriter, r *http.Request) {
	id, err := galleryID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, auth.CodeBadRequest, "invalid gallery id")
		return
	}

	g, err := h.svc.ByID(r.Context(), id)
	if err != nil {
		h.respondRepoError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, g)
}

type createGalleryBody struct {
	Thumbnail string            `json:"thumbnail"`
	Props     map[string]string `json:"props,omitempty"`
}

// Create обслуживает POST /gallery. Маршрут закрыт bearer-middleware,
// автор берётся из клеймов.
func (h *GalleryHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.Principal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, auth.CodeUnauthorized, "authentication required")
		return
	}

	var body createGalleryBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Thumbnail == "" {
		respondError(w, http.StatusBadRequest, auth.CodeBadRequest, "thumbnail is required")
		return
	}

	g, err := h.svc.Create(r.Context(), principal.ID, body.Thumbnail, body.Props)
	if err != nil {
		h.logger.Error("gallery create failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, auth.CodeInternal, "internal error")
		return
	}
	respondJSON(w, http.StatusCreated, g)
}

// Like обслуживает POST /gallery/{id}/like: повторный лайк снимает отметку.
func (h *GalleryHandler) Like(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.Principal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, auth.CodeUnauthorized, "authentication required")
		return
	}

	id, err := galleryID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, auth.CodeBadRequest, "invalid gallery id")
		return
	}

	g, err := h.svc.ToggleLike(r.Context(), id, principal.ID)
	if err != nil {
		h.respondRepoError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, g)
}

// Remove обслуживает DELETE /gallery/{id}. Удалить запись может
// только её автор, чужой id даёт 404.
func (h *GalleryHandler) Remove(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.Principal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, auth.CodeUnauthorized, "authentication required")
		return
	}

	id, err := galleryID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, auth.CodeBadRequest, "invalid gallery id")
		return
	}

	if err := h.svc.Delete(r.Context(), id, principal.ID); err != nil {
		h.respondRepoError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *GalleryHandler) respondRepoError(w http.ResponseWriter, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		respondError(w, http.StatusNotFound, auth.CodeNotFound, "gallery not found")
		return
	}
	h.logger.Error("gallery operation failed", zap.Error(err))
	respondError(w, http.StatusInternalServerError, auth.CodeInternal, "internal error")
}

func galleryID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
