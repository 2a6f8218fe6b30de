package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/visitops/fieldtrack/internal/app/models"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) ListSessions(ctx context.Context, filter models.SessionFilter, page, limit int) ([]models.VisitSession, int, error) {
	args := m.Called(ctx, filter, page, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]models.VisitSession), args.Int(1), args.Error(2)
}

func (m *MockRepository) ListStats(ctx context.Context, filter models.SessionFilter) (*models.SessionListStats, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SessionListStats), args.Error(1)
}

func (m *MockRepository) DailySeries(ctx context.Context, since time.Time) ([]models.DailyVisitStats, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DailyVisitStats), args.Error(1)
}

func (m *MockRepository) AgentPerformance(ctx context.Context, since time.Time) ([]models.AgentPerformance, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AgentPerformance), args.Error(1)
}

func (m *MockRepository) OperatorVisitStats(ctx context.Context, since time.Time) ([]models.OperatorVisitStats, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.OperatorVisitStats), args.Error(1)
}

func TestListSessions(t *testing.T) {
	ctx := context.Background()

	t.Run("CombinesListAndStats", func(t *testing.T) {
		mockRepo := new(MockRepository)
		service := NewService(mockRepo, zap.NewNop())
		filter := models.SessionFilter{Status: models.StatusAutoCheckout}

		mockRepo.On("ListSessions", mock.Anything, filter, 1, 20).
			Return([]models.VisitSession{{Status: models.StatusAutoCheckout}}, 41, nil).Once()
		mockRepo.On("ListStats", mock.Anything, filter).
			Return(&models.SessionListStats{TotalSessions: 41, AutoCheckouts: 41}, nil).Once()

		sessions, stats, pagination, err := service.ListSessions(ctx, filter, 1, 20)

		assert.NoError(t, err)
		assert.Len(t, sessions, 1)
		assert.Equal(t, 41, stats.TotalSessions)
		assert.Equal(t, 3, pagination.Pages)
		mockRepo.AssertExpectations(t)
	})

	t.Run("ClampsPaging", func(t *testing.T) {
		mockRepo := new(MockRepository)
		service := NewService(mockRepo, zap.NewNop())

		mockRepo.On("ListSessions", mock.Anything, models.SessionFilter{}, 1, 20).
			Return([]models.VisitSession{}, 0, nil).Once()
		mockRepo.On("ListStats", mock.Anything, models.SessionFilter{}).
			Return(&models.SessionListStats{}, nil).Once()

		_, _, _, err := service.ListSessions(ctx, models.SessionFilter{}, -3, 9999)

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("PropagatesQueryError", func(t *testing.T) {
		mockRepo := new(MockRepository)
		service := NewService(mockRepo, zap.NewNop())
		boom := errors.New("connection reset")

		mockRepo.On("ListSessions", mock.Anything, models.SessionFilter{}, 1, 20).
			Return(nil, 0, boom).Once()
		mockRepo.On("ListStats", mock.Anything, models.SessionFilter{}).
			Return(&models.SessionListStats{}, nil).Maybe()

		_, _, _, err := service.ListSessions(ctx, models.SessionFilter{}, 1, 20)

		assert.ErrorIs(t, err, boom)
	})
}

func TestReport(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	newService := func(mockRepo *MockRepository) *ServiceImpl {
		s := NewService(mockRepo, zap.NewNop())
		s.now = func() time.Time { return now }
		return s
	}

	t.Run("AggregatesAllSections", func(t *testing.T) {
		mockRepo := new(MockRepository)
		service := newService(mockRepo)
		since := now.AddDate(0, 0, -7)

		mockRepo.On("DailySeries", mock.Anything, since).
			Return([]models.DailyVisitStats{{Date: "2026-03-09", TotalCheckIns: 4}}, nil).Once()
		mockRepo.On("AgentPerformance", mock.Anything, since).
			Return([]models.AgentPerformance{{Name: "Jane Agent", TotalSessions: 4}}, nil).Once()
		mockRepo.On("OperatorVisitStats", mock.Anything, since).
			Return([]models.OperatorVisitStats{{Name: "Kibanda Supplies", VisitCount: 4}}, nil).Once()

		report, err := service.Report(ctx, 7)

		assert.NoError(t, err)
		assert.Equal(t, 7, report.Period.Days)
		assert.Equal(t, since, report.Period.StartDate)
		assert.Len(t, report.Daily, 1)
		assert.Len(t, report.Agents, 1)
		assert.Len(t, report.Operators, 1)
		mockRepo.AssertExpectations(t)
	})

	t.Run("DefaultsWindow", func(t *testing.T) {
		mockRepo := new(MockRepository)
		service := newService(mockRepo)
		since := now.AddDate(0, 0, -30)

		mockRepo.On("DailySeries", mock.Anything, since).Return([]models.DailyVisitStats{}, nil).Once()
		mockRepo.On("AgentPerformance", mock.Anything, since).Return([]models.AgentPerformance{}, nil).Once()
		mockRepo.On("OperatorVisitStats", mock.Anything, since).Return([]models.OperatorVisitStats{}, nil).Once()

		report, err := service.Report(ctx, 0)

		assert.NoError(t, err)
		assert.Equal(t, 30, report.Period.Days)
	})
}
