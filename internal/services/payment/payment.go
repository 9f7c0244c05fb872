// Package payment продаёт пакеты кредитов и начисляет их по вебхуку провайдера.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/portrait-studio/internal/common"
	"github.com/magabrotheeeer/portrait-studio/internal/config"
	"github.com/magabrotheeeer/portrait-studio/internal/lib/sl"
	"github.com/magabrotheeeer/portrait-studio/internal/metrics"
	"github.com/magabrotheeeer/portrait-studio/internal/models"
	"github.com/magabrotheeeer/portrait-studio/internal/paymentprovider"
	"github.com/magabrotheeeer/portrait-studio/internal/rabbitmq"
)

// Provider создаёт сессии оплаты.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, params paymentprovider.CheckoutSessionRequest) (paymentprovider.CheckoutSession, error)
}

// Ledger начисляет кредиты по платёжному событию.
type Ledger interface {
	TopUp(ctx context.Context, event models.PaymentEvent) (bool, error)
}

// Users читает пользователя для письма и сессии оплаты.
type Users interface {
	GetUser(ctx context.Context, userUID string) (*models.User, error)
}

// Publisher отправляет уведомление в брокер.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Service: платёжный сервис.
type Service struct {
	log       *slog.Logger
	provider  Provider
	ledger    Ledger
	users     Users
	publisher Publisher
	metrics   *metrics.Metrics
	cfg       config.Payment
	now       func() time.Time
}

// New создаёт платёжный сервис. publisher может быть nil.
func New(log *slog.Logger, provider Provider, ledger Ledger, users Users, publisher Publisher, m *metrics.Metrics, cfg config.Payment) *Service {
	return &Service{
		log:       log,
		provider:  provider,
		ledger:    ledger,
		users:     users,
		publisher: publisher,
		metrics:   m,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Packs возвращает доступные пакеты кредитов.
func (s *Service) Packs() []models.CreditPack {
	return s.cfg.Packs
}

// Checkout создаёт сессию оплаты пакета priceID. Неизвестный пакет: common.ErrValidation.
func (s *Service) Checkout(ctx context.Context, userUID, priceID string) (paymentprovider.CheckoutSession, error) {
	const op = "payment.Checkout"
	if _, ok := s.cfg.Pack(priceID); !ok {
		return paymentprovider.CheckoutSession{}, fmt.Errorf("%s: %w: unknown price %q", op, common.ErrValidation, priceID)
	}
	user, err := s.users.GetUser(ctx, userUID)
	if err != nil {
		return paymentprovider.CheckoutSession{}, fmt.Errorf("%s: %w", op, err)
	}
	session, err := s.provider.CreateCheckoutSession(ctx, paymentprovider.CheckoutSessionRequest{
		PriceID:       priceID,
		UserUID:       userUID,
		CustomerEmail: user.Email,
		SuccessURL:    s.cfg.SuccessURL,
		CancelURL:     s.cfg.CancelURL,
	})
	if err != nil {
		return paymentprovider.CheckoutSession{}, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("checkout session created",
		slog.String("user_uid", userUID), slog.String("price_id", priceID), slog.String("session_id", session.ID))
	return session, nil
}

// HandleWebhook проверяет подпись события и начисляет кредиты за оплаченную сессию.
// Повторная доставка того же события ничего не меняет. События других типов
// и неоплаченные сессии пропускаются без ошибки.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	const op = "payment.HandleWebhook"
	event, err := paymentprovider.ConstructEvent(payload, signature, s.cfg.WebhookSecret, s.now(), paymentprovider.DefaultTolerance)
	if err != nil {
		if errors.Is(err, paymentprovider.ErrNoWebhookSecret) {
			s.log.Error("webhook rejected: payment.webhook_secret is empty", sl.Op(op))
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	log := s.log.With(sl.Op(op), slog.String("event_id", event.ID), slog.String("type", event.Type))

	if event.Type != paymentprovider.EventCheckoutCompleted {
		log.Debug("event ignored")
		return nil
	}
	session, err := event.CheckoutSession()
	if err != nil {
		return fmt.Errorf("%s: %w: decode session: %v", op, common.ErrValidation, err)
	}
	if session.PaymentStatus != paymentprovider.PaymentStatusPaid {
		log.Info("session not paid, skipping", slog.String("payment_status", session.PaymentStatus))
		return nil
	}

	userUID := session.ClientReferenceID
	if userUID == "" {
		userUID = session.Metadata["user_uid"]
	}
	priceID := session.Metadata["price_id"]
	pack, ok := s.cfg.Pack(priceID)
	if userUID == "" || !ok {
		return fmt.Errorf("%s: %w: session %s has no user or known price", op, common.ErrValidation, session.ID)
	}

	applied, err := s.ledger.TopUp(ctx, models.PaymentEvent{
		EventID:           event.ID,
		UserUID:           userUID,
		PriceID:           priceID,
		TrainingCredits:   pack.TrainingCredits,
		GenerationCredits: pack.GenerationCredits,
		CreatedAt:         s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !applied {
		log.Info("duplicate event, credits already applied")
		return nil
	}

	s.metrics.PaymentsApplied.Inc()
	log.Info("credits topped up", slog.String("user_uid", userUID), slog.String("pack", pack.Name))
	s.notify(context.WithoutCancel(ctx), log, userUID, pack)
	return nil
}

func (s *Service) notify(ctx context.Context, log *slog.Logger, userUID string, pack models.CreditPack) {
	if s.publisher == nil {
		return
	}
	user, err := s.users.GetUser(ctx, userUID)
	if err != nil {
		log.Warn("skip top-up notification", sl.Err(err))
		return
	}
	event := models.CreditsToppedUpEvent{
		UserUID:           userUID,
		Email:             user.Email,
		PackName:          pack.Name,
		TrainingCredits:   pack.TrainingCredits,
		GenerationCredits: pack.GenerationCredits,
	}
	if err := s.publisher.Publish(ctx, rabbitmq.RoutingCreditsToppedUp, event); err != nil {
		log.Warn("failed to publish top-up notification", sl.Err(err))
	}
}
