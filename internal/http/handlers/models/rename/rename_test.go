package rename

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/portrait-studio/internal/common"
	"github.com/magabrotheeeer/portrait-studio/internal/http/middlewarectx"
)

type RepositoryMock struct {
	mock.Mock
}

func (m *RepositoryMock) RenameModelJob(ctx context.Context, userUID, jobID, customName string) error {
	args := m.Called(ctx, userUID, jobID, customName)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRenameHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		mockErr  error
		callRepo bool
		wantCode int
	}{
		{name: "renamed", body: `{"custom_name":"  Portrait  "}`, callRepo: true, wantCode: http.StatusOK},
		{name: "unknown model", body: `{"custom_name":"Portrait"}`, callRepo: true, mockErr: fmt.Errorf("storage.RenameModelJob: %w", common.ErrNotFound), wantCode: http.StatusNotFound},
		{name: "empty name", body: `{"custom_name":"   "}`, wantCode: http.StatusUnprocessableEntity},
		{name: "bad json", body: `{`, wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepositoryMock)
			if tt.callRepo {
				repo.On("RenameModelJob", mock.Anything, "uid-1", "tr-1", "Portrait").Return(tt.mockErr)
			}

			r := chi.NewRouter()
			r.Patch("/models/{id}", New(newNoopLogger(), repo).ServeHTTP)
			req := httptest.NewRequest(http.MethodPatch, "/models/tr-1", bytes.NewBufferString(tt.body))
			req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserUID, "uid-1"))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			repo.AssertExpectations(t)
		})
	}
}
