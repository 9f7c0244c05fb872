package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/portrait-studio/internal/models"
)

// RecordPaymentEvent сохраняет событие оплаты. Возвращает false, если событие
// с таким ID уже было обработано.
func (s *Storage) RecordPaymentEvent(ctx context.Context, e models.PaymentEvent) (bool, error) {
	const op = "storage.RecordPaymentEvent"
	query := `INSERT INTO payment_events (event_id, user_uid, price_id, training_credits, generation_credits, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  ON CONFLICT (event_id) DO NOTHING`
	res, err := s.db.ExecContext(ctx, query, e.EventID, e.UserUID, e.PriceID, e.TrainingCredits, e.GenerationCredits, e.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n == 1, nil
}
