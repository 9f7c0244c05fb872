package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/portrait-studio/internal/common"
	"github.com/magabrotheeeer/portrait-studio/internal/models"
)

// CreateUser сохраняет пользователя с нулевым балансом и возвращает его UID.
func (s *Storage) CreateUser(ctx context.Context, email, passwordHash string) (string, error) {
	const op = "storage.CreateUser"
	query := `INSERT INTO users (email, password_hash)
			  VALUES ($1, $2)
			  RETURNING uid`
	var uid string
	if err := s.db.QueryRowContext(ctx, query, email, passwordHash).Scan(&uid); err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%s: %w", op, common.ErrAlreadyExists)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return uid, nil
}

const selectUser = `SELECT uid, email, password_hash, model_training_credits,
			      image_generation_credits, created_at
			  FROM users`

func scanUser(row *sql.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.UUID, &u.Email, &u.PasswordHash, &u.TrainingCredits, &u.GenerationCredits, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetUserByEmail возвращает пользователя по email.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	u, err := scanUser(s.db.QueryRowContext(ctx, selectUser+` WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, common.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUser возвращает пользователя по UID.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUser"
	u, err := scanUser(s.db.QueryRowContext(ctx, selectUser+` WHERE uid = $1`, userUID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, common.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetCredits возвращает текущий баланс пользователя.
func (s *Storage) GetCredits(ctx context.Context, userUID string) (models.Credits, error) {
	const op = "storage.GetCredits"
	query := `SELECT model_training_credits, image_generation_credits
			  FROM users
			  WHERE uid = $1`
	var c models.Credits
	err := s.db.QueryRowContext(ctx, query, userUID).Scan(&c.ModelTrainingCredits, &c.ImageGenerationCredits)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Credits{}, fmt.Errorf("%s: %w", op, common.ErrNotFound)
		}
		return models.Credits{}, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// DebitTrainingCredit списывает один кредит обучения.
// Если кредитов нет, возвращается common.ErrInsufficientCredit и баланс не меняется.
func (s *Storage) DebitTrainingCredit(ctx context.Context, userUID string) error {
	const op = "storage.DebitTrainingCredit"
	query := `UPDATE users
			  SET model_training_credits = model_training_credits - 1
			  WHERE uid = $1 AND model_training_credits > 0`
	return s.debit(ctx, op, query, userUID)
}

// DebitGenerationCredit списывает один кредит генерации.
func (s *Storage) DebitGenerationCredit(ctx context.Context, userUID string) error {
	const op = "storage.DebitGenerationCredit"
	query := `UPDATE users
			  SET image_generation_credits = image_generation_credits - 1
			  WHERE uid = $1 AND image_generation_credits > 0`
	return s.debit(ctx, op, query, userUID)
}

func (s *Storage) debit(ctx context.Context, op, query, userUID string) error {
	res, err := s.db.ExecContext(ctx, query, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, common.ErrInsufficientCredit)
	}
	return nil
}

// AddCredits начисляет кредиты обоих типов.
func (s *Storage) AddCredits(ctx context.Context, userUID string, training, generation int) error {
	const op = "storage.AddCredits"
	query := `UPDATE users
			  SET model_training_credits = model_training_credits + $2,
			      image_generation_credits = image_generation_credits + $3
			  WHERE uid = $1`
	res, err := s.db.ExecContext(ctx, query, userUID, training, generation)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, common.ErrNotFound)
	}
	return nil
}
