// Package status отдаёт текущее состояние обучения модели.
package status

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/portrait-studio/internal/http/middlewarectx"
	"github.com/magabrotheeeer/portrait-studio/internal/http/response"
	"github.com/magabrotheeeer/portrait-studio/internal/lib/sl"
	statusservice "github.com/magabrotheeeer/portrait-studio/internal/services/status"
)

// Service опрашивает провайдера о задаче пользователя.
type Service interface {
	Poll(ctx context.Context, userUID, jobID string) (statusservice.Result, error)
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
// @Summary Статус обучения
// @Description Для незавершённого обучения выставляет заголовок Retry-After.
// @Tags Models
// @Produce  json
// @Security BearerAuth
// @Param id path string true "Идентификатор модели"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "Модель не найдена"
// @Failure 502 {object} response.ErrorResponse "Провайдер недоступен"
// @Router /models/{id}/status [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.models.status"

	jobID := chi.URLParam(r, "id")
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("job_id", jobID),
	)

	userUID, ok := middlewarectx.UserUIDFrom(r.Context())
	if !ok {
		log.Error("user uid not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	res, err := h.service.Poll(r.Context(), userUID, jobID)
	if err != nil {
		log.Error("failed to poll training status", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	if res.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())))
	}
	render.JSON(w, r, response.OKWithData(res))
}
