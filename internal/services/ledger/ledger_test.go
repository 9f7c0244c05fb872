package ledger

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/portrait-studio/internal/common"
	"github.com/magabrotheeeer/portrait-studio/internal/models"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newLedgerWithMock(t *testing.T) (*Ledger, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return New(newNoopLogger(), db), mock
}

const (
	debitTraining   = `UPDATE\s+users\s+SET\s+model_training_credits\s*=\s*model_training_credits\s*-\s*1`
	debitGeneration = `UPDATE\s+users\s+SET\s+image_generation_credits\s*=\s*image_generation_credits\s*-\s*1`
)

func TestLedger_HasCredit(t *testing.T) {
	tests := []struct {
		name           string
		training       int
		generation     int
		wantTraining   bool
		wantGeneration bool
	}{
		{name: "both present", training: 1, generation: 3, wantTraining: true, wantGeneration: true},
		{name: "training exhausted", training: 0, generation: 3, wantTraining: false, wantGeneration: true},
		{name: "both exhausted", training: 0, generation: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, m := newLedgerWithMock(t)
			for range 2 {
				m.ExpectQuery(`SELECT\s+model_training_credits`).WithArgs("u-1").
					WillReturnRows(sqlmock.NewRows([]string{"model_training_credits", "image_generation_credits"}).
						AddRow(tt.training, tt.generation))
			}

			ok, err := l.HasTrainingCredit(context.Background(), "u-1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantTraining, ok)

			ok, err = l.HasGenerationCredit(context.Background(), "u-1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantGeneration, ok)
		})
	}
}

func TestLedger_CommitTraining(t *testing.T) {
	job := models.ModelJob{
		JobID:     "tr-1",
		UserUID:   "u-1",
		Name:      "fluxmodel-20250301t100000000z-abc123",
		Status:    models.JobStatusPending,
		CreatedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	t.Run("debit and append in one transaction", func(t *testing.T) {
		l, m := newLedgerWithMock(t)
		m.ExpectBegin()
		m.ExpectExec(debitTraining).WithArgs("u-1").WillReturnResult(sqlmock.NewResult(0, 1))
		m.ExpectExec(`INSERT\s+INTO\s+model_jobs`).
			WithArgs("tr-1", "u-1", job.Name, nil, "pending", job.CreatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))
		m.ExpectCommit()

		require.NoError(t, l.CommitTraining(context.Background(), job))
	})

	t.Run("no credit leaves no job", func(t *testing.T) {
		l, m := newLedgerWithMock(t)
		m.ExpectBegin()
		m.ExpectExec(debitTraining).WithArgs("u-1").WillReturnResult(sqlmock.NewResult(0, 0))
		m.ExpectRollback()

		err := l.CommitTraining(context.Background(), job)
		assert.ErrorIs(t, err, common.ErrInsufficientCredit)
	})

	t.Run("append failure rolls back debit", func(t *testing.T) {
		l, m := newLedgerWithMock(t)
		m.ExpectBegin()
		m.ExpectExec(debitTraining).WithArgs("u-1").WillReturnResult(sqlmock.NewResult(0, 1))
		m.ExpectExec(`INSERT\s+INTO\s+model_jobs`).WillReturnError(assert.AnError)
		m.ExpectRollback()

		err := l.CommitTraining(context.Background(), job)
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestLedger_CommitGeneration(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	img := models.GeneratedImage{UserUID: "u-1", URL: "https://cdn/1.png", Prompt: "p", ModelName: "fluxmodel-a", CreatedAt: created}

	t.Run("success assigns id", func(t *testing.T) {
		l, m := newLedgerWithMock(t)
		m.ExpectBegin()
		m.ExpectExec(debitGeneration).WithArgs("u-1").WillReturnResult(sqlmock.NewResult(0, 1))
		m.ExpectQuery(`INSERT\s+INTO\s+generated_images`).
			WithArgs("u-1", "https://cdn/1.png", "p", "fluxmodel-a", created).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))
		m.ExpectCommit()

		got, err := l.CommitGeneration(context.Background(), img)
		require.NoError(t, err)
		assert.Equal(t, int64(11), got.ID)
		assert.Equal(t, "p", got.Prompt)
	})

	t.Run("credit spent concurrently", func(t *testing.T) {
		l, m := newLedgerWithMock(t)
		m.ExpectBegin()
		m.ExpectExec(debitGeneration).WithArgs("u-1").WillReturnResult(sqlmock.NewResult(0, 0))
		m.ExpectRollback()

		_, err := l.CommitGeneration(context.Background(), img)
		assert.ErrorIs(t, err, common.ErrInsufficientCredit)
	})
}

func TestLedger_TopUp(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	event := models.PaymentEvent{EventID: "evt_1", UserUID: "u-1", PriceID: "price_std", TrainingCredits: 2, GenerationCredits: 50, CreatedAt: created}

	t.Run("first delivery credits", func(t *testing.T) {
		l, m := newLedgerWithMock(t)
		m.ExpectBegin()
		m.ExpectExec(`INSERT\s+INTO\s+payment_events`).WillReturnResult(sqlmock.NewResult(0, 1))
		m.ExpectExec(`UPDATE\s+users\s+SET\s+model_training_credits\s*=\s*model_training_credits\s*\+`).
			WithArgs("u-1", 2, 50).
			WillReturnResult(sqlmock.NewResult(0, 1))
		m.ExpectCommit()

		applied, err := l.TopUp(context.Background(), event)
		require.NoError(t, err)
		assert.True(t, applied)
	})

	t.Run("redelivery is a no-op", func(t *testing.T) {
		l, m := newLedgerWithMock(t)
		m.ExpectBegin()
		m.ExpectExec(`INSERT\s+INTO\s+payment_events`).WillReturnResult(sqlmock.NewResult(0, 0))
		m.ExpectCommit()

		applied, err := l.TopUp(context.Background(), event)
		require.NoError(t, err)
		assert.False(t, applied)
	})

	t.Run("unknown user rolls back event", func(t *testing.T) {
		l, m := newLedgerWithMock(t)
		m.ExpectBegin()
		m.ExpectExec(`INSERT\s+INTO\s+payment_events`).WillReturnResult(sqlmock.NewResult(0, 1))
		m.ExpectExec(`UPDATE\s+users`).WillReturnResult(sqlmock.NewResult(0, 0))
		m.ExpectRollback()

		applied, err := l.TopUp(context.Background(), event)
		assert.ErrorIs(t, err, common.ErrNotFound)
		assert.False(t, applied)
	})
}
