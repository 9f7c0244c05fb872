package studio

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/portrait-studio/internal/blobstore"
	"github.com/magabrotheeeer/portrait-studio/internal/cache"
	"github.com/magabrotheeeer/portrait-studio/internal/config"
	"github.com/magabrotheeeer/portrait-studio/internal/gateway/replicate"
	"github.com/magabrotheeeer/portrait-studio/internal/http/middlewarectx"
	"github.com/magabrotheeeer/portrait-studio/internal/lib/jwt"
	"github.com/magabrotheeeer/portrait-studio/internal/lib/sl"
	"github.com/magabrotheeeer/portrait-studio/internal/metrics"
	"github.com/magabrotheeeer/portrait-studio/internal/migrations"
	"github.com/magabrotheeeer/portrait-studio/internal/paymentprovider"
	"github.com/magabrotheeeer/portrait-studio/internal/rabbitmq"
	"github.com/magabrotheeeer/portrait-studio/internal/services/auth"
	"github.com/magabrotheeeer/portrait-studio/internal/services/generation"
	"github.com/magabrotheeeer/portrait-studio/internal/services/ledger"
	"github.com/magabrotheeeer/portrait-studio/internal/services/payment"
	"github.com/magabrotheeeer/portrait-studio/internal/services/status"
	"github.com/magabrotheeeer/portrait-studio/internal/services/training"
	"github.com/magabrotheeeer/portrait-studio/internal/storage/repository"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	server *http.Server
	logger *slog.Logger
	db     *sql.DB
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.Open(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db, cfg.MigrationsPath); err != nil {
		db.Close()
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		db.Close()
		return nil, err
	}

	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.Retries, cfg.RetryDelay)
	if err != nil {
		cacheRedis.Close()
		db.Close()
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.NotificationQueues())
	if err != nil {
		conn.Close()
		cacheRedis.Close()
		db.Close()
		return nil, err
	}
	publisher := rabbitmq.NewPublisher(ch)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	repo := repository.New(db)
	creditLedger := ledger.New(logger, db)
	gateway := replicate.NewClient(cfg.Replicate.BaseURL, cfg.APIToken, cfg.Replicate.Timeout)

	var rehoster generation.Rehoster
	if cfg.Generation.Rehost {
		store, err := blobstore.New(ctx, cfg.S3, &http.Client{Timeout: cfg.Replicate.Timeout})
		if err != nil {
			ch.Close()
			conn.Close()
			cacheRedis.Close()
			db.Close()
			return nil, err
		}
		rehoster = store
	}

	statusService := status.New(logger, gateway, repo, publisher, m)
	services := Services{
		Auth:   auth.New(logger, repo, jwt.NewMaker(cfg.JWTSecretKey, cfg.TokenTTL), statusService),
		Ledger: creditLedger,
		Training: training.New(logger, gateway, creditLedger, m, training.Config{
			Owner:          cfg.Replicate.Owner,
			Hardware:       cfg.Hardware,
			TrainerOwner:   cfg.TrainerOwner,
			TrainerName:    cfg.TrainerName,
			TrainerVersion: cfg.TrainerVer,
		}),
		Status: statusService,
		Generation: generation.New(logger, gateway, creditLedger, repo, cacheRedis, rehoster, m, generation.Config{
			Owner:         cfg.Replicate.Owner,
			PollInterval:  cfg.Generation.PollInterval,
			Timeout:       cfg.Generation.Timeout,
			RehostTimeout: cfg.RehostTimeout,
			VersionTTL:    cfg.VersionTTL,
		}),
		Payment: payment.New(logger,
			paymentprovider.NewClient(cfg.ProviderURL, cfg.Payment.SecretKey),
			creditLedger, repo, publisher, m, cfg.Payment),
		Repository:  repo,
		DB:          db,
		Limiter:     middlewarectx.NewRateLimiter(cfg.RPS, cfg.Burst),
		MaxUploadMB: cfg.MaxUploadMB,
		Gatherer:    registry,
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, services)

	srv := newServer(cfg.HTTPServer, router)

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
		conn:   conn,
		ch:     ch,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err = a.server.Shutdown(timeoutCtx)
	}
	a.close()
	return err
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close cache", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
}

// newServer создаёт HTTP-сервер. Заголовки читаются не дольше TimeoutHTTP,
// тело запроса с фотографиями для обучения читается до BodyTimeout.
func newServer(cfg config.HTTPServer, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.AddressHTTP,
		Handler:           handler,
		ReadHeaderTimeout: cfg.TimeoutHTTP,
		ReadTimeout:       cfg.BodyTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}
