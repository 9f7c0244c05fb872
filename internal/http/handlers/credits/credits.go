// Package credits отдаёт остатки кредитов пользователя.
package credits

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

type Service interface {
	Credits(ctx context.Context, userUID string) (models.Credits, error)
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
// @Summary Баланс кредитов
// @Tags Credits
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse
// @Router /credits [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.credits"

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

	credits, err := h.service.Credits(r.Context(), userUID)
	if err != nil {
		log.Error("failed to read credits", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(credits))
}
