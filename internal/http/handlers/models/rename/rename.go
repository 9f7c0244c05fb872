// Package rename задаёт пользовательское имя модели.
package rename

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/portrait-studio/internal/http/middlewarectx"
	"github.com/magabrotheeeer/portrait-studio/internal/http/response"
	"github.com/magabrotheeeer/portrait-studio/internal/lib/sl"
)

// Request: новое имя модели.
type Request struct {
	CustomName string `json:"custom_name" validate:"required,max=100"`
}

// Repository сохраняет имя.
type Repository interface {
	RenameModelJob(ctx context.Context, userUID, jobID, customName string) error
}

type Handler struct {
	log      *slog.Logger
	repo     Repository
	validate *validator.Validate
}

func New(log *slog.Logger, repo Repository) *Handler {
	return &Handler{
		log:      log,
		repo:     repo,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Переименовать модель
// @Tags Models
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path string true "Идентификатор модели"
// @Param request body Request true "Новое имя"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "Модель не найдена"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /models/{id} [patch]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.models.rename"

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

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	req.CustomName = strings.TrimSpace(req.CustomName)
	if err := h.validate.Struct(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	if err := h.repo.RenameModelJob(r.Context(), userUID, jobID, req.CustomName); err != nil {
		log.Error("failed to rename model", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("model renamed")
	render.JSON(w, r, response.OKWithData(map[string]any{
		"model_id":    jobID,
		"custom_name": req.CustomName,
	}))
}
