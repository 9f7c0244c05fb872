// Package studio собирает HTTP-приложение: хранилище, кэш, брокер, клиенты провайдеров и маршруты.
package studio

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/portrait-studio/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/portrait-studio/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/portrait-studio/internal/http/handlers/credits"
	"github.com/magabrotheeeer/portrait-studio/internal/http/handlers/health"
	"github.com/magabrotheeeer/portrait-studio/internal/http/handlers/images/generate"
	imagelist "github.com/magabrotheeeer/portrait-studio/internal/http/handlers/images/list"
	modellist "github.com/magabrotheeeer/portrait-studio/internal/http/handlers/models/list"
	"github.com/magabrotheeeer/portrait-studio/internal/http/handlers/models/rename"
	trainingstatus "github.com/magabrotheeeer/portrait-studio/internal/http/handlers/models/status"
	"github.com/magabrotheeeer/portrait-studio/internal/http/handlers/models/train"
	"github.com/magabrotheeeer/portrait-studio/internal/http/handlers/payment/checkout"
	"github.com/magabrotheeeer/portrait-studio/internal/http/handlers/payment/packs"
	"github.com/magabrotheeeer/portrait-studio/internal/http/handlers/payment/webhook"
	"github.com/magabrotheeeer/portrait-studio/internal/http/middlewarectx"
	"github.com/magabrotheeeer/portrait-studio/internal/services/auth"
	"github.com/magabrotheeeer/portrait-studio/internal/services/generation"
	"github.com/magabrotheeeer/portrait-studio/internal/services/ledger"
	"github.com/magabrotheeeer/portrait-studio/internal/services/payment"
	"github.com/magabrotheeeer/portrait-studio/internal/services/status"
	"github.com/magabrotheeeer/portrait-studio/internal/services/training"
	"github.com/magabrotheeeer/portrait-studio/internal/storage/repository"
)

// Services: всё, что нужно обработчикам.
type Services struct {
	Auth        *auth.Service
	Ledger      *ledger.Ledger
	Training    *training.Service
	Status      *status.Service
	Generation  *generation.Service
	Payment     *payment.Service
	Repository  *repository.Storage
	DB          health.Pinger
	Limiter     *middlewarectx.RateLimiter
	MaxUploadMB int64
	Gatherer    prometheus.Gatherer
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, s Services) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Get("/health", health.New(logger, s.DB).ServeHTTP)
		r.Post("/register", register.New(logger, s.Auth).ServeHTTP)
		r.Post("/login", login.New(logger, s.Auth).ServeHTTP)
		r.Get("/payments/packs", packs.New(logger, s.Payment).ServeHTTP)

		// Webhook endpoint (без аутентификации, проверяется подпись)
		r.Post("/payments/webhook", webhook.New(logger, s.Payment).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(s.Auth, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger, s.Limiter))

			r.Get("/credits", credits.New(logger, s.Ledger).ServeHTTP)

			r.Get("/models", modellist.New(logger, s.Status).ServeHTTP)
			r.Post("/models/train", train.New(logger, s.Training, s.MaxUploadMB).ServeHTTP)
			r.Get("/models/{id}/status", trainingstatus.New(logger, s.Status).ServeHTTP)
			r.Patch("/models/{id}", rename.New(logger, s.Repository).ServeHTTP)

			r.Post("/images/generate", generate.New(logger, s.Generation).ServeHTTP)
			r.Get("/images", imagelist.New(logger, s.Repository).ServeHTTP)

			r.Post("/payments/checkout", checkout.New(logger, s.Payment).ServeHTTP)
		})
	})

	gatherer := s.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}

