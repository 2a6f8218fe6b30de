package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/visitops/fieldtrack/internal/app/models"
	"github.com/visitops/fieldtrack/internal/pkg/config"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func TestLogin(t *testing.T) {
	cfg := config.JWTConfig{
		SecretKey:       "test-secret",
		TokenExpiration: time.Hour,
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.DefaultCost)
	assert.NoError(t, err)

	activeUser := func() *models.User {
		return &models.User{
			ID:           uuid.New(),
			Email:        "agent@visitops.io",
			PasswordHash: string(hashed),
			Name:         "Jane Agent",
			Role:         models.RoleBD,
			IsActive:     true,
		}
	}

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockRepository)
		service := NewService(mockRepo, cfg, zap.NewNop())
		ctx := context.Background()
		user := activeUser()

		mockRepo.On("GetUserByEmail", ctx, user.Email).Return(user, nil).Once()
		mockRepo.On("UpdateLastLogin", ctx, user.ID, mock.AnythingOfType("time.Time")).Return(nil).Once()

		result, err := service.Login(ctx, user.Email, "correct-horse")

		assert.NoError(t, err)
		assert.NotEmpty(t, result.Token)
		assert.Equal(t, user.ID, result.User.ID)
		assert.NotNil(t, result.User.LastLoginAt)

		// the token must carry the role claim the route layer gates on
		claims, err := ValidateToken(cfg.SecretKey, result.Token)
		assert.NoError(t, err)
		assert.Equal(t, user.ID.String(), claims.UserID)
		assert.Equal(t, models.RoleBD, claims.Role)
		mockRepo.AssertExpectations(t)
	})

	t.Run("UserNotFound", func(t *testing.T) {
		mockRepo := new(MockRepository)
		service := NewService(mockRepo, cfg, zap.NewNop())
		ctx := context.Background()

		mockRepo.On("GetUserByEmail", ctx, "nobody@visitops.io").Return(nil, models.ErrNotFound).Once()

		_, err := service.Login(ctx, "nobody@visitops.io", "whatever")

		assert.ErrorIs(t, err, models.ErrUnauthenticated)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		mockRepo := new(MockRepository)
		service := NewService(mockRepo, cfg, zap.NewNop())
		ctx := context.Background()
		user := activeUser()

		mockRepo.On("GetUserByEmail", ctx, user.Email).Return(user, nil).Once()

		_, err := service.Login(ctx, user.Email, "wrong")

		assert.ErrorIs(t, err, models.ErrUnauthenticated)
	})

	t.Run("InactiveUser", func(t *testing.T) {
		mockRepo := new(MockRepository)
		service := NewService(mockRepo, cfg, zap.NewNop())
		ctx := context.Background()
		user := activeUser()
		user.IsActive = false

		mockRepo.On("GetUserByEmail", ctx, user.Email).Return(user, nil).Once()

		_, err := service.Login(ctx, user.Email, "correct-horse")

		assert.ErrorIs(t, err, models.ErrUnauthenticated)
	})
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("secret", time.Hour, "user-1", "a@b.c", models.RoleAdmin)
	assert.NoError(t, err)

	claims, err := ValidateToken("secret", token)
	assert.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	_, err = ValidateToken("other-secret", token)
	assert.Error(t, err)
}

func TestExpiredToken(t *testing.T) {
	token, err := GenerateToken("secret", -time.Minute, "user-1", "a@b.c", models.RoleBD)
	assert.NoError(t, err)

	_, err = ValidateToken("secret", token)
	assert.Error(t, err)
}
