// Package auth регистрирует пользователей и выдаёт им токены доступа.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/portrait-studio/internal/common"
	"github.com/magabrotheeeer/portrait-studio/internal/lib/jwt"
	"github.com/magabrotheeeer/portrait-studio/internal/lib/password"
	"github.com/magabrotheeeer/portrait-studio/internal/lib/sl"
	"github.com/magabrotheeeer/portrait-studio/internal/models"
	"github.com/magabrotheeeer/portrait-studio/internal/services/status"
)

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// CreateUser сохраняет нового пользователя и возвращает его UID.
	CreateUser(ctx context.Context, email, passwordHash string) (string, error)
	// GetUserByEmail возвращает пользователя или common.ErrNotFound.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// TokenMaker выпускает и проверяет JWT.
type TokenMaker interface {
	GenerateToken(userUID, email string) (string, error)
	ParseToken(token string) (*jwt.Claims, error)
}

// JobRefresher обновляет статусы незавершённых обучений пользователя.
type JobRefresher interface {
	RefreshAll(ctx context.Context, userUID string) ([]models.ModelJob, error)
}

// Session итог входа: токен, пользователь и его модели с актуальными статусами.
type Session struct {
	Token        string
	User         *models.User
	Models       []models.ModelJob
	AutoSelected *models.ModelJob
}

// Service отвечает за регистрацию, вход и проверку токенов.
type Service struct {
	log       *slog.Logger
	users     UserRepository
	tokens    TokenMaker
	refresher JobRefresher
}

// New создаёт сервис авторизации. refresher может быть nil.
func New(log *slog.Logger, users UserRepository, tokens TokenMaker, refresher JobRefresher) *Service {
	return &Service{log: log, users: users, tokens: tokens, refresher: refresher}
}

// Register создаёт пользователя без кредитов и сразу выдаёт ему токен.
// Занятый email: common.ErrAlreadyExists.
func (s *Service) Register(ctx context.Context, email, rawPassword string) (Session, error) {
	const op = "auth.Register"
	email = normalizeEmail(email)
	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}
	uid, err := s.users.CreateUser(ctx, email, hashed)
	if err != nil {
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}
	token, err := s.tokens.GenerateToken(uid, email)
	if err != nil {
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user registered", slog.String("user_uid", uid))
	return Session{
		Token: token,
		User:  &models.User{UUID: uid, Email: email},
	}, nil
}

// Login проверяет пароль, обновляет статусы обучений и выбирает модель, если
// успешно обучена ровно одна. Неизвестный email и неверный пароль неразличимы:
// common.ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, rawPassword string) (Session, error) {
	const op = "auth.Login"
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return Session{}, fmt.Errorf("%s: %w", op, common.ErrInvalidCredentials)
		}
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return Session{}, fmt.Errorf("%s: %w", op, common.ErrInvalidCredentials)
		}
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}
	token, err := s.tokens.GenerateToken(user.UUID, user.Email)
	if err != nil {
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}

	session := Session{Token: token, User: user, Models: []models.ModelJob{}}
	if s.refresher != nil {
		jobs, err := s.refresher.RefreshAll(ctx, user.UUID)
		if err != nil {
			s.log.Warn("failed to refresh models on login", sl.Op(op), sl.Err(err))
		} else {
			session.Models = jobs
			session.AutoSelected = status.AutoSelect(jobs)
		}
	}
	return session, nil
}

// ValidateToken проверяет JWT и возвращает его claims.
func (s *Service) ValidateToken(_ context.Context, token string) (*jwt.Claims, error) {
	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		return nil, fmt.Errorf("auth.ValidateToken: %w", err)
	}
	return claims, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
