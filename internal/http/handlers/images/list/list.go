// Package list отдаёт историю сгенерированных изображений пользователя.
package list

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/portrait-studio/internal/http/middlewarectx"
	"github.com/magabrotheeeer/portrait-studio/internal/http/response"
	"github.com/magabrotheeeer/portrait-studio/internal/lib/sl"
	"github.com/magabrotheeeer/portrait-studio/internal/models"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Repository читает изображения пользователя, новые первыми.
type Repository interface {
	ListGeneratedImages(ctx context.Context, userUID string, limit, offset int) ([]models.GeneratedImage, error)
}

type Handler struct {
	log  *slog.Logger
	repo Repository
}

func New(log *slog.Logger, repo Repository) *Handler {
	return &Handler{
		log:  log,
		repo: repo,
	}
}

// ServeHTTP godoc
// @Summary История изображений
// @Tags Images
// @Produce  json
// @Security BearerAuth
// @Param limit query int false "Размер страницы" default(20)
// @Param offset query int false "Смещение" default(0)
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse
// @Router /images [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.images.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)

	offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}

	userUID, ok := middlewarectx.UserUIDFrom(r.Context())
	if !ok {
		log.Error("user uid not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	images, err := h.repo.ListGeneratedImages(r.Context(), userUID, limit, offset)
	if err != nil {
		log.Error("failed to list images", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	if images == nil {
		images = []models.GeneratedImage{}
	}

	log.Info("list images", "count", len(images))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"list_count": len(images),
		"images":     images,
	}))
}
