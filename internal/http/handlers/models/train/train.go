// Package train принимает фотографии пользователя (multipart, поле images)
// и запускает обучение персональной модели.
package train

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/portrait-studio/internal/http/middlewarectx"
	"github.com/magabrotheeeer/portrait-studio/internal/http/response"
	"github.com/magabrotheeeer/portrait-studio/internal/lib/sl"
	"github.com/magabrotheeeer/portrait-studio/internal/models"
	"github.com/magabrotheeeer/portrait-studio/internal/services/training"
)

// FormField имя поля формы с фотографиями.
const FormField = "images"

// Service запускает обучение.
type Service interface {
	Submit(ctx context.Context, userUID string, uploads []training.Upload) (models.ModelJob, error)
}

// Handler обрабатывает POST /models/train.
type Handler struct {
	log      *slog.Logger
	service  Service
	maxBytes int64 // Предел размера тела запроса
}

// New создает Handler. maxUploadMB ограничивает размер всей формы.
func New(log *slog.Logger, service Service, maxUploadMB int64) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		maxBytes: maxUploadMB << 20,
	}
}

// ServeHTTP godoc
// @Summary Запуск обучения
// @Description Принимает от 1 до 20 фотографий и запускает обучение. Списывает один кредит обучения.
// @Tags Models
// @Accept  multipart/form-data
// @Produce  json
// @Security BearerAuth
// @Param images formData file true "Фотографии"
// @Success 202 {object} response.Response "Обучение запущено"
// @Failure 402 {object} response.ErrorResponse "Нет кредитов обучения"
// @Failure 422 {object} response.ErrorResponse "Неверное количество фото"
// @Failure 502 {object} response.ErrorResponse "Ошибка провайдера"
// @Router /models/train [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.models.train"

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

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		log.Warn("failed to parse multipart form", sl.Err(err))
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			render.Status(r, http.StatusRequestEntityTooLarge)
			render.JSON(w, r, response.Error("upload is too large"))
			return
		}
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid multipart form"))
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			log.Warn("failed to remove multipart temp files", sl.Err(err))
		}
	}()

	job, err := h.service.Submit(r.Context(), userUID, uploads(r.MultipartForm.File[FormField]))
	if err != nil {
		log.Error("training submission failed", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, response.OKWithData(map[string]any{
		"model_id": job.JobID,
		"model":    job,
	}))
}

func uploads(files []*multipart.FileHeader) []training.Upload {
	out := make([]training.Upload, 0, len(files))
	for _, fh := range files {
		out = append(out, training.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}
	return out
}
