// Package repository хранит пользователей, их кредиты, задачи обучения,
// сгенерированные изображения и платёжные события в PostgreSQL.
//
// Storage работает поверх dbx.DBTX, поэтому одинаково используется
// и с *sql.DB, и внутри транзакции из dbx.WithTx.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/magabrotheeeer/portrait-studio/internal/lib/dbx"
)

const uniqueViolation = "23505"

// Storage реализует доступ к таблицам сервиса.
type Storage struct {
	db dbx.DBTX
}

// New создаёт Storage поверх соединения или транзакции.
func New(db dbx.DBTX) *Storage {
	return &Storage{db: db}
}

// Open открывает пул соединений с PostgreSQL и проверяет его.
func Open(ctx context.Context, connString string) (*sql.DB, error) {
	const op = "storage.Open"
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return db, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
