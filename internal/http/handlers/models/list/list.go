// Package list отдаёт модели пользователя. Перед ответом статусы незавершённых
// обучений обновляются у провайдера.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/portrait-studio/internal/http/middlewarectx"
	"github.com/magabrotheeeer/portrait-studio/internal/http/response"
	"github.com/magabrotheeeer/portrait-studio/internal/lib/sl"
	"github.com/magabrotheeeer/portrait-studio/internal/models"
)

// Service возвращает модели пользователя с актуальными статусами.
type Service interface {
	RefreshAll(ctx context.Context, userUID string) ([]models.ModelJob, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Список моделей
// @Tags Models
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse
// @Router /models [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.models.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := middlewarectx.UserUIDFrom(r.Context())
	if !ok {
		log.Error("user uid not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	jobs, err := h.service.RefreshAll(r.Context(), userUID)
	if err != nil {
		log.Error("failed to list models", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []models.ModelJob{}
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"models": jobs,
	}))
}
