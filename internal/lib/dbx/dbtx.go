// Package dbx содержит общий интерфейс *sql.DB и *sql.Tx для репозиториев
// и помощник для выполнения функции в транзакции.
package dbx

import (
	"context"
	"database/sql"
	"fmt"
)

// DBTX: подмножество database/sql, которым пользуются репозитории.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx выполняет fn в транзакции: commit при успехе, rollback при ошибке или панике.
// Паника пробрасывается дальше после отката.
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	const op = "dbx.WithTx"
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("%s: commit: %w", op, cerr)
		}
	}()

	return fn(ctx, tx)
}
