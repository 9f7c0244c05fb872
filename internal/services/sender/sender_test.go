package sender

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/portrait-studio/internal/common"
	"github.com/magabrotheeeer/portrait-studio/internal/lib/smtp"
)

type MockDialer struct {
	mock.Mock
}

func (m *MockDialer) Connect() (smtp.Client, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(smtp.Client), args.Error(1)
}

func (m *MockDialer) From() string {
	return m.Called().String(0)
}

type MockSMTPClient struct {
	mock.Mock
}

func (m *MockSMTPClient) Mail(from string) error { return m.Called(from).Error(0) }
func (m *MockSMTPClient) Rcpt(to string) error   { return m.Called(to).Error(0) }
func (m *MockSMTPClient) Quit() error            { return m.Called().Error(0) }
func (m *MockSMTPClient) Close() error           { return m.Called().Error(0) }
func (m *MockSMTPClient) Data() (io.WriteCloser, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.WriteCloser), args.Error(1)
}

type bufWriter struct {
	data   []byte
	closed bool
}

func (b *bufWriter) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

func (b *bufWriter) Close() error {
	b.closed = true
	return nil
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func expectDelivery(d *MockDialer, to string, w *bufWriter) *MockSMTPClient {
	client := new(MockSMTPClient)
	d.On("From").Return("noreply@studio.test")
	d.On("Connect").Return(client, nil).Once()
	client.On("Mail", "noreply@studio.test").Return(nil).Once()
	client.On("Rcpt", to).Return(nil).Once()
	client.On("Data").Return(w, nil).Once()
	client.On("Quit").Return(nil).Once()
	client.On("Close").Return(nil).Once()
	return client
}

func TestService_TrainingFinished(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantSubject string
	}{
		{
			name:        "succeeded",
			body:        `{"email":"anna@example.com","model_name":"fluxmodel-1","status":"succeeded"}`,
			wantSubject: "Subject: Ваша модель готова",
		},
		{
			name:        "failed",
			body:        `{"email":"anna@example.com","model_name":"fluxmodel-1","status":"failed"}`,
			wantSubject: "Subject: Обучение модели не удалось",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dialer := new(MockDialer)
			w := &bufWriter{}
			client := expectDelivery(dialer, "anna@example.com", w)

			err := New(newNoopLogger(), dialer).TrainingFinished(context.Background(), []byte(tt.body))
			assert.NoError(t, err)
			assert.Contains(t, string(w.data), tt.wantSubject)
			assert.Contains(t, string(w.data), "fluxmodel-1")
			assert.True(t, w.closed)
			dialer.AssertExpectations(t)
			client.AssertExpectations(t)
		})
	}
}

func TestService_CreditsToppedUp(t *testing.T) {
	dialer := new(MockDialer)
	w := &bufWriter{}
	client := expectDelivery(dialer, "anna@example.com", w)

	body := `{"email":"anna@example.com","pack_name":"standard","training_credits":2,"generation_credits":50}`
	err := New(newNoopLogger(), dialer).CreditsToppedUp(context.Background(), []byte(body))
	assert.NoError(t, err)
	assert.Contains(t, string(w.data), "To: anna@example.com")
	assert.Contains(t, string(w.data), "обучений модели 2, генераций изображений 50")
	dialer.AssertExpectations(t)
	client.AssertExpectations(t)
}

func TestService_Errors(t *testing.T) {
	t.Run("invalid json", func(t *testing.T) {
		dialer := new(MockDialer)
		err := New(newNoopLogger(), dialer).CreditsToppedUp(context.Background(), []byte("not json"))
		assert.ErrorIs(t, err, common.ErrValidation)
		dialer.AssertNotCalled(t, "Connect")
	})

	t.Run("connect failure", func(t *testing.T) {
		dialer := new(MockDialer)
		dialer.On("From").Return("noreply@studio.test")
		dialer.On("Connect").Return(nil, errors.New("connection refused")).Once()
		err := New(newNoopLogger(), dialer).TrainingFinished(context.Background(),
			[]byte(`{"email":"a@example.com","status":"failed"}`))
		assert.ErrorContains(t, err, "connection refused")
	})

	t.Run("rcpt rejected", func(t *testing.T) {
		dialer := new(MockDialer)
		client := new(MockSMTPClient)
		dialer.On("From").Return("noreply@studio.test")
		dialer.On("Connect").Return(client, nil).Once()
		client.On("Mail", "noreply@studio.test").Return(nil).Once()
		client.On("Rcpt", "a@example.com").Return(errors.New("550 no such user")).Once()
		client.On("Close").Return(nil).Once()

		err := New(newNoopLogger(), dialer).TrainingFinished(context.Background(),
			[]byte(`{"email":"a@example.com","status":"succeeded"}`))
		assert.ErrorContains(t, err, "rcpt to")
		client.AssertExpectations(t)
	})
}
