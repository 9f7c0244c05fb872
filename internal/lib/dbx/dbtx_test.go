package dbx

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTx(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(m sqlmock.Sqlmock)
		fn      func(ctx context.Context, tx DBTX) error
		wantErr string
	}{
		{
			name: "commit on success",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectExec("UPDATE users").WillReturnResult(sqlmock.NewResult(0, 1))
				m.ExpectCommit()
			},
			fn: func(ctx context.Context, tx DBTX) error {
				_, err := tx.ExecContext(ctx, "UPDATE users SET x = 1")
				return err
			},
		},
		{
			name: "rollback on error",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectRollback()
			},
			fn:      func(context.Context, DBTX) error { return errors.New("boom") },
			wantErr: "boom",
		},
		{
			name: "begin error",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectBegin().WillReturnError(errors.New("conn refused"))
			},
			fn:      func(context.Context, DBTX) error { return nil },
			wantErr: "dbx.WithTx: begin",
		},
		{
			name: "commit error",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectCommit().WillReturnError(errors.New("serialization failure"))
			},
			fn:      func(context.Context, DBTX) error { return nil },
			wantErr: "dbx.WithTx: commit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, m, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			tt.setup(m)

			err = WithTx(context.Background(), db, nil, tt.fn)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.NoError(t, m.ExpectationsWereMet())
		})
	}
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	db, m, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	m.ExpectBegin()
	m.ExpectRollback()

	assert.Panics(t, func() {
		_ = WithTx(context.Background(), db, nil, func(context.Context, DBTX) error {
			panic("kaput")
		})
	})
	assert.NoError(t, m.ExpectationsWereMet())
}
