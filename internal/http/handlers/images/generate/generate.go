// Package generate запускает генерацию изображения обученной моделью пользователя.
package generate

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/portrait-studio/internal/http/middlewarectx"
	"github.com/magabrotheeeer/portrait-studio/internal/http/response"
	"github.com/magabrotheeeer/portrait-studio/internal/lib/sl"
	"github.com/magabrotheeeer/portrait-studio/internal/services/generation"
)

// Request: модель и текстовый запрос.
type Request struct {
	ModelID string `json:"model_id" validate:"required"`
	Prompt  string `json:"prompt" validate:"required"`
}

// Service генерирует изображение.
type Service interface {
	Generate(ctx context.Context, userUID, modelID, prompt string) (generation.Result, error)
}

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Генерация изображения
// @Description Ждёт результата у провайдера, сохраняет изображение и списывает один кредит генерации.
// @Tags Images
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Модель и запрос"
// @Success 200 {object} response.Response
// @Failure 402 {object} response.ErrorResponse "Нет кредитов генерации"
// @Failure 404 {object} response.ErrorResponse "Модель не найдена"
// @Failure 409 {object} response.ErrorResponse "Модель ещё не обучена"
// @Failure 502 {object} response.ErrorResponse "Ошибка провайдера"
// @Router /images/generate [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.images.generate"

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

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	res, err := h.service.Generate(r.Context(), userUID, req.ModelID, req.Prompt)
	if err != nil {
		log.Error("generation failed", sl.Err(err), slog.String("model_id", req.ModelID))
		response.RenderError(w, r, err)
		return
	}

	log.Info("image generated", slog.Int64("image_id", res.Image.ID))
	render.JSON(w, r, response.OKWithData(res))
}
