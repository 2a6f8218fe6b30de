package operator

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/visitops/fieldtrack/internal/app/models"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Operator, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Operator), args.Error(1)
}

func (m *MockRepository) ListByAgent(ctx context.Context, agentID uuid.UUID) ([]models.Operator, error) {
	args := m.Called(ctx, agentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Operator), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, page, limit int) ([]models.Operator, int, error) {
	args := m.Called(ctx, page, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]models.Operator), args.Int(1), args.Error(2)
}

func (m *MockRepository) Create(ctx context.Context, op *models.Operator) error {
	args := m.Called(ctx, op)
	return args.Error(0)
}

func (m *MockRepository) Update(ctx context.Context, op *models.Operator) error {
	args := m.Called(ctx, op)
	return args.Error(0)
}

func (m *MockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func testOperator() *models.Operator {
	return &models.Operator{
		ID:        uuid.New(),
		Name:      "Kibanda Supplies",
		Latitude:  -1.2921,
		Longitude: 36.8219,
	}
}

func TestGetCachesReads(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, zap.NewNop())
	ctx := context.Background()
	op := testOperator()

	// the repository is hit once; the second read comes from cache
	mockRepo.On("GetByID", ctx, op.ID).Return(op, nil).Once()

	first, err := service.Get(ctx, op.ID)
	assert.NoError(t, err)
	second, err := service.Get(ctx, op.ID)
	assert.NoError(t, err)

	assert.Equal(t, first, second)
	mockRepo.AssertExpectations(t)
}

func TestGetMissIsNotCached(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, zap.NewNop())
	ctx := context.Background()
	id := uuid.New()

	mockRepo.On("GetByID", ctx, id).Return(nil, models.ErrNotFound).Twice()

	_, err := service.Get(ctx, id)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = service.Get(ctx, id)
	assert.ErrorIs(t, err, models.ErrNotFound)
	mockRepo.AssertExpectations(t)
}

func TestUpdateInvalidatesCache(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, zap.NewNop())
	ctx := context.Background()
	op := testOperator()

	mockRepo.On("GetByID", ctx, op.ID).Return(op, nil).Twice()
	mockRepo.On("Update", ctx, op).Return(nil).Once()

	_, err := service.Get(ctx, op.ID)
	assert.NoError(t, err)

	assert.NoError(t, service.Update(ctx, op))

	// cache was dropped, so this read goes back to the repository
	_, err = service.Get(ctx, op.ID)
	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestCreateValidation(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, zap.NewNop())
	ctx := context.Background()

	t.Run("RejectsNullIsland", func(t *testing.T) {
		op := testOperator()
		op.Latitude, op.Longitude = 0, 0
		assert.ErrorIs(t, service.Create(ctx, op), models.ErrInvalidLocation)
	})

	t.Run("RejectsOutOfRangeLatitude", func(t *testing.T) {
		op := testOperator()
		op.Latitude = 91
		assert.ErrorIs(t, service.Create(ctx, op), models.ErrInvalidLocation)
	})

	t.Run("RequiresName", func(t *testing.T) {
		op := testOperator()
		op.Name = ""
		assert.ErrorIs(t, service.Create(ctx, op), models.ErrBadRequest)
	})

	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
