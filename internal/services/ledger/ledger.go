// Package ledger ведёт кредиты пользователя. Списание кредита и запись результата,
// за который он списан, выполняются в одной транзакции.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/portrait-studio/internal/lib/dbx"
	"github.com/magabrotheeeer/portrait-studio/internal/models"
	"github.com/magabrotheeeer/portrait-studio/internal/storage/repository"
)

// Ledger: операции над балансом поверх PostgreSQL.
type Ledger struct {
	db  *sql.DB
	log *slog.Logger
}

// New создаёт Ledger.
func New(log *slog.Logger, db *sql.DB) *Ledger {
	return &Ledger{db: db, log: log}
}

// Credits возвращает баланс пользователя.
func (l *Ledger) Credits(ctx context.Context, userUID string) (models.Credits, error) {
	const op = "ledger.Credits"
	c, err := repository.New(l.db).GetCredits(ctx, userUID)
	if err != nil {
		return models.Credits{}, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// HasTrainingCredit сообщает, есть ли у пользователя кредит на обучение.
func (l *Ledger) HasTrainingCredit(ctx context.Context, userUID string) (bool, error) {
	const op = "ledger.HasTrainingCredit"
	c, err := l.Credits(ctx, userUID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return c.ModelTrainingCredits > 0, nil
}

// HasGenerationCredit сообщает, есть ли у пользователя кредит на генерацию.
func (l *Ledger) HasGenerationCredit(ctx context.Context, userUID string) (bool, error) {
	const op = "ledger.HasGenerationCredit"
	c, err := l.Credits(ctx, userUID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return c.ImageGenerationCredits > 0, nil
}

// CommitTraining списывает кредит обучения и сохраняет задачу.
// Если кредита уже нет, задача не сохраняется: common.ErrInsufficientCredit.
func (l *Ledger) CommitTraining(ctx context.Context, job models.ModelJob) error {
	const op = "ledger.CommitTraining"
	err := dbx.WithTx(ctx, l.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		s := repository.New(tx)
		if err := s.DebitTrainingCredit(ctx, job.UserUID); err != nil {
			return err
		}
		return s.CreateModelJob(ctx, job)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	l.log.Debug("training committed", slog.String("user_uid", job.UserUID), slog.String("job_id", job.JobID))
	return nil
}

// CommitGeneration списывает один кредит генерации и сохраняет изображение.
// Возвращает сохранённую запись с присвоенным ID.
func (l *Ledger) CommitGeneration(ctx context.Context, img models.GeneratedImage) (models.GeneratedImage, error) {
	const op = "ledger.CommitGeneration"
	err := dbx.WithTx(ctx, l.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		s := repository.New(tx)
		if err := s.DebitGenerationCredit(ctx, img.UserUID); err != nil {
			return err
		}
		id, err := s.CreateGeneratedImage(ctx, img)
		if err != nil {
			return err
		}
		img.ID = id
		return nil
	})
	if err != nil {
		return models.GeneratedImage{}, fmt.Errorf("%s: %w", op, err)
	}
	return img, nil
}

// TopUp начисляет кредиты по платёжному событию ровно один раз.
// Возвращает false, если событие уже было учтено.
func (l *Ledger) TopUp(ctx context.Context, event models.PaymentEvent) (bool, error) {
	const op = "ledger.TopUp"
	var applied bool
	err := dbx.WithTx(ctx, l.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		s := repository.New(tx)
		inserted, err := s.RecordPaymentEvent(ctx, event)
		if err != nil || !inserted {
			return err
		}
		if err := s.AddCredits(ctx, event.UserUID, event.TrainingCredits, event.GenerationCredits); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return applied, nil
}
