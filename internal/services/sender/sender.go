// Package sender превращает события из очереди уведомлений в письма пользователю.
package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/portrait-studio/internal/common"
	"github.com/magabrotheeeer/portrait-studio/internal/lib/sl"
	"github.com/magabrotheeeer/portrait-studio/internal/lib/smtp"
	"github.com/magabrotheeeer/portrait-studio/internal/models"
)

// Service отправляет письма через SMTP.
type Service struct {
	dialer smtp.Dialer
	log    *slog.Logger
}

// New создаёт сервис рассылки.
func New(log *slog.Logger, dialer smtp.Dialer) *Service {
	return &Service{dialer: dialer, log: log}
}

// TrainingFinished пишет пользователю о завершении обучения модели.
func (s *Service) TrainingFinished(_ context.Context, body []byte) error {
	const op = "sender.TrainingFinished"
	var event models.TrainingFinishedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("%s: %w: %w", op, common.ErrValidation, err)
	}

	var subject, text string
	if event.Status == models.JobStatusSucceeded {
		subject = "Ваша модель готова"
		text = fmt.Sprintf("Здравствуйте!\n\nОбучение модели %s завершено. Теперь можно генерировать изображения.", event.ModelName)
	} else {
		subject = "Обучение модели не удалось"
		text = fmt.Sprintf("Здравствуйте!\n\nОбучение модели %s завершилось ошибкой. Попробуйте загрузить другие фотографии.", event.ModelName)
	}
	if err := s.send(event.Email, subject, text); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CreditsToppedUp пишет пользователю о начислении кредитов.
func (s *Service) CreditsToppedUp(_ context.Context, body []byte) error {
	const op = "sender.CreditsToppedUp"
	var event models.CreditsToppedUpEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("%s: %w: %w", op, common.ErrValidation, err)
	}

	text := fmt.Sprintf("Здравствуйте!\n\nОплата пакета %q прошла успешно.\nНачислено: обучений модели %d, генераций изображений %d.",
		event.PackName, event.TrainingCredits, event.GenerationCredits)
	if err := s.send(event.Email, "Кредиты начислены", text); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Service) send(to, subject, text string) error {
	log := s.log.With(slog.String("to", to), slog.String("subject", subject))
	from := s.dialer.From()
	msg := strings.Join([]string{
		"From: " + from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		text,
	}, "\r\n")

	client, err := s.dialer.Connect()
	if err != nil {
		log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer client.Close()

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}
	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := wc.Write([]byte(msg)); err != nil {
		_ = wc.Close()
		return fmt.Errorf("write body: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("close body: %w", err)
	}
	if err := client.Quit(); err != nil {
		return fmt.Errorf("quit: %w", err)
	}
	log.Info("email sent")
	return nil
}
