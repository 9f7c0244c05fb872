package packs

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/portrait-studio/internal/http/response"
	"github.com/magabrotheeeer/portrait-studio/internal/models"
)

// Service возвращает каталог пакетов кредитов.
type Service interface {
	Packs() []models.CreditPack
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
// @Summary Пакеты кредитов
// @Tags Payments
// @Produce  json
// @Success 200 {object} response.Response
// @Router /payments/packs [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	packs := h.service.Packs()
	if packs == nil {
		packs = []models.CreditPack{}
	}

	h.log.Debug("list packs", "count", len(packs))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"list_count": len(packs),
		"packs":      packs,
	}))
}
