package auth_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/portrait-studio/internal/common"
	customjwt "github.com/magabrotheeeer/portrait-studio/internal/lib/jwt"
	"github.com/magabrotheeeer/portrait-studio/internal/lib/password"
	"github.com/magabrotheeeer/portrait-studio/internal/models"
	"github.com/magabrotheeeer/portrait-studio/internal/services/auth"
)

// Мок для UserRepository
type UserRepoMock struct {
	mock.Mock
}

func (m *UserRepoMock) CreateUser(ctx context.Context, email, passwordHash string) (string, error) {
	args := m.Called(ctx, email, passwordHash)
	return args.String(0), args.Error(1)
}

func (m *UserRepoMock) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type JwtMakerMock struct {
	mock.Mock
}

func (m *JwtMakerMock) GenerateToken(userUID, email string) (string, error) {
	args := m.Called(userUID, email)
	return args.String(0), args.Error(1)
}

func (m *JwtMakerMock) ParseToken(token string) (*customjwt.Claims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customjwt.Claims), args.Error(1)
}

type RefresherMock struct {
	mock.Mock
}

func (m *RefresherMock) RefreshAll(ctx context.Context, userUID string) ([]models.ModelJob, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ModelJob), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestService_Register(t *testing.T) {
	tests := []struct {
		name       string
		email      string
		password   string
		setupMocks func(r *UserRepoMock, j *JwtMakerMock)
		wantUID    string
		wantErr    error
	}{
		{
			name:     "successful registration",
			email:    " Anna@Example.com ",
			password: "password123",
			setupMocks: func(r *UserRepoMock, j *JwtMakerMock) {
				r.On("CreateUser", mock.Anything, "anna@example.com", mock.MatchedBy(func(hash string) bool {
					return password.CompareHash(hash, "password123") == nil
				})).Return("uid-1", nil).Once()
				j.On("GenerateToken", "uid-1", "anna@example.com").Return("jwt-token", nil).Once()
			},
			wantUID: "uid-1",
		},
		{
			name:     "email taken",
			email:    "anna@example.com",
			password: "password123",
			setupMocks: func(r *UserRepoMock, _ *JwtMakerMock) {
				r.On("CreateUser", mock.Anything, "anna@example.com", mock.Anything).
					Return("", common.ErrAlreadyExists).Once()
			},
			wantErr: common.ErrAlreadyExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			jwtMock := new(JwtMakerMock)
			svc := auth.New(newNoopLogger(), repo, jwtMock, nil)
			tt.setupMocks(repo, jwtMock)

			got, err := svc.Register(context.Background(), tt.email, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				jwtMock.AssertNotCalled(t, "GenerateToken", mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "jwt-token", got.Token)
				assert.Equal(t, tt.wantUID, got.User.UUID)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestService_Login(t *testing.T) {
	rawPassword := "correctpassword"
	hashedPassword, err := password.GetHash(rawPassword)
	require.NoError(t, err)

	testUser := &models.User{UUID: "uid-1", Email: "anna@example.com", PasswordHash: hashedPassword}
	ready := models.ModelJob{JobID: "tr-1", Status: models.JobStatusSucceeded}
	pending := models.ModelJob{JobID: "tr-2", Status: models.JobStatusTraining}

	tests := []struct {
		name         string
		email        string
		password     string
		setupMocks   func(r *UserRepoMock, j *JwtMakerMock, f *RefresherMock)
		wantErr      error
		wantModels   int
		wantSelected string
	}{
		{
			name:     "successful login selects the only ready model",
			email:    "anna@example.com",
			password: rawPassword,
			setupMocks: func(r *UserRepoMock, j *JwtMakerMock, f *RefresherMock) {
				r.On("GetUserByEmail", mock.Anything, "anna@example.com").Return(testUser, nil).Once()
				j.On("GenerateToken", "uid-1", "anna@example.com").Return("jwt-token", nil).Once()
				f.On("RefreshAll", mock.Anything, "uid-1").Return([]models.ModelJob{ready, pending}, nil).Once()
			},
			wantModels:   2,
			wantSelected: "tr-1",
		},
		{
			name:     "refresh failure does not block login",
			email:    "anna@example.com",
			password: rawPassword,
			setupMocks: func(r *UserRepoMock, j *JwtMakerMock, f *RefresherMock) {
				r.On("GetUserByEmail", mock.Anything, "anna@example.com").Return(testUser, nil).Once()
				j.On("GenerateToken", "uid-1", "anna@example.com").Return("jwt-token", nil).Once()
				f.On("RefreshAll", mock.Anything, "uid-1").Return(nil, errors.New("db down")).Once()
			},
		},
		{
			name:     "user not found",
			email:    "ghost@example.com",
			password: "password",
			setupMocks: func(r *UserRepoMock, _ *JwtMakerMock, _ *RefresherMock) {
				r.On("GetUserByEmail", mock.Anything, "ghost@example.com").Return(nil, common.ErrNotFound).Once()
			},
			wantErr: common.ErrInvalidCredentials,
		},
		{
			name:     "wrong password",
			email:    "anna@example.com",
			password: "wrongpassword",
			setupMocks: func(r *UserRepoMock, _ *JwtMakerMock, _ *RefresherMock) {
				r.On("GetUserByEmail", mock.Anything, "anna@example.com").Return(testUser, nil).Once()
			},
			wantErr: common.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			jwtMock := new(JwtMakerMock)
			refresher := new(RefresherMock)
			svc := auth.New(newNoopLogger(), repo, jwtMock, refresher)
			tt.setupMocks(repo, jwtMock, refresher)

			session, err := svc.Login(context.Background(), tt.email, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				refresher.AssertNotCalled(t, "RefreshAll", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "jwt-token", session.Token)
			assert.Len(t, session.Models, tt.wantModels)
			if tt.wantSelected == "" {
				assert.Nil(t, session.AutoSelected)
			} else {
				require.NotNil(t, session.AutoSelected)
				assert.Equal(t, tt.wantSelected, session.AutoSelected.JobID)
			}
			repo.AssertExpectations(t)
			jwtMock.AssertExpectations(t)
		})
	}
}

func TestService_ValidateToken(t *testing.T) {
	validClaims := &customjwt.Claims{
		UserUID: "uid-1",
		Email:   "anna@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	t.Run("valid token", func(t *testing.T) {
		jwtMock := new(JwtMakerMock)
		jwtMock.On("ParseToken", "valid-token").Return(validClaims, nil).Once()
		svc := auth.New(newNoopLogger(), new(UserRepoMock), jwtMock, nil)

		claims, err := svc.ValidateToken(context.Background(), "valid-token")
		require.NoError(t, err)
		assert.Equal(t, "uid-1", claims.UserUID)
	})

	t.Run("invalid token", func(t *testing.T) {
		jwtMock := new(JwtMakerMock)
		jwtMock.On("ParseToken", "bad").Return(nil, customjwt.ErrInvalidToken).Once()
		svc := auth.New(newNoopLogger(), new(UserRepoMock), jwtMock, nil)

		_, err := svc.ValidateToken(context.Background(), "bad")
		assert.ErrorIs(t, err, customjwt.ErrInvalidToken)
	})
}
