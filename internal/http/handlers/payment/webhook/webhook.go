// Package webhook принимает уведомления платёжного провайдера об оплате.
package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/portrait-studio/internal/common"
	"github.com/magabrotheeeer/portrait-studio/internal/http/response"
	"github.com/magabrotheeeer/portrait-studio/internal/lib/sl"
	"github.com/magabrotheeeer/portrait-studio/internal/paymentprovider"
)

const maxPayloadBytes = 64 << 10

// Service проверяет подпись и применяет событие.
type Service interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Webhook платёжного провайдера
// @Description Подпись передаётся в заголовке Stripe-Signature. Повторная доставка события безопасна.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Неверная подпись"
// @Router /payments/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"
	log := h.log.With(slog.String("op", op))

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	defer r.Body.Close()

	if err := h.service.HandleWebhook(r.Context(), body, r.Header.Get(paymentprovider.SignatureHeader)); err != nil {
		if errors.Is(err, common.ErrInvalidSignature) {
			log.Warn("rejected webhook", sl.Err(err))
		} else {
			log.Error("failed to process webhook event", sl.Err(err))
		}
		response.RenderError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"received": true,
	}))
}
