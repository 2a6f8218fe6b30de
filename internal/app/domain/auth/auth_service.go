package auth

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/visitops/fieldtrack/internal/app/models"
	"github.com/visitops/fieldtrack/internal/pkg/config"
)

type LoginResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type Service interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
}

type ServiceImpl struct {
	repo   Repository
	cfg    config.JWTConfig
	logger *zap.Logger
	now    func() time.Time
}

var _ Service = (*ServiceImpl)(nil)

func NewService(repo Repository, cfg config.JWTConfig, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{repo: repo, cfg: cfg, logger: logger, now: time.Now}
}

// Login verifies credentials and issues an access token carrying the
// user's role. Lookup failures and bad passwords are indistinguishable
// to the caller.
func (s *ServiceImpl) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	l := s.logger.With(zap.String("method", "Login"))

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthenticated
		}
		l.Error("failed to fetch user", zap.Error(err))
		return nil, err
	}
	if !user.IsActive {
		l.Warn("login attempt for inactive user", zap.String("user_id", user.ID.String()))
		return nil, models.ErrUnauthenticated
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, models.ErrUnauthenticated
	}

	token, err := GenerateToken(s.cfg.SecretKey, s.cfg.TokenExpiration, user.ID.String(), user.Email, user.Role)
	if err != nil {
		l.Error("failed to generate token", zap.Error(err))
		return nil, err
	}

	loginAt := s.now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, user.ID, loginAt); err != nil {
		// Stamp failure should not block the login.
		l.Warn("failed to stamp last login", zap.String("user_id", user.ID.String()), zap.Error(err))
	} else {
		user.LastLoginAt = &loginAt
	}

	l.Info("user logged in", zap.String("user_id", user.ID.String()), zap.String("role", user.Role))
	return &LoginResult{Token: token, User: user}, nil
}

// HashPassword hashes a plaintext password for storage.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}
