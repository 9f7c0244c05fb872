// Package sender собирает воркер, который читает уведомления из брокера и рассылает письма.
package sender

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/portrait-studio/internal/config"
	"github.com/magabrotheeeer/portrait-studio/internal/lib/sl"
	"github.com/magabrotheeeer/portrait-studio/internal/lib/smtp"
	"github.com/magabrotheeeer/portrait-studio/internal/rabbitmq"
	senderservice "github.com/magabrotheeeer/portrait-studio/internal/services/sender"
)

type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *senderservice.Service
	logger        *slog.Logger
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.Retries, cfg.RetryDelay)
	if err != nil {
		return nil, err
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.NotificationQueues())
	if err != nil {
		conn.Close()
		return nil, err
	}

	senderService := senderservice.New(logger, smtp.NewTransport(cfg.SMTP))

	return &App{
		conn:          conn,
		ch:            ch,
		senderService: senderService,
		logger:        logger,
	}, nil
}

func (a *App) handlers() map[string]rabbitmq.Handler {
	return map[string]rabbitmq.Handler{
		rabbitmq.RoutingTrainingFinished: a.senderService.TrainingFinished,
		rabbitmq.RoutingCreditsToppedUp:  a.senderService.CreditsToppedUp,
	}
}

func (a *App) Run(ctx context.Context) error {
	handlers := a.handlers()
	for _, q := range rabbitmq.NotificationQueues() {
		handler, ok := handlers[q.RoutingKey]
		if !ok {
			return fmt.Errorf("sender.Run: no handler for routing key %q", q.RoutingKey)
		}
		if err := rabbitmq.Consume(ctx, a.logger, a.ch, q.QueueName, handler); err != nil {
			a.logger.Error("failed to start consumer", slog.String("queue", q.QueueName), sl.Err(err))
			return err
		}
	}

	<-ctx.Done()
	a.logger.Info("Sender service shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}

	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}

	return nil
}
