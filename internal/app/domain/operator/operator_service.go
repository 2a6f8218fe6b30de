package operator

import (
	"context"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/visitops/fieldtrack/internal/app/domain/geo"
	"github.com/visitops/fieldtrack/internal/app/models"
)

// Operator records sit on the hot path of every eligibility probe and every
// location audit, and their coordinates are immutable while a session is
// open, so a short-TTL read-through cache is safe. Admin mutations
// invalidate eagerly.
const (
	cacheTTL     = 5 * time.Minute
	cacheCleanup = 10 * time.Minute
)

type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Operator, error)
	ListForAgent(ctx context.Context, agentID uuid.UUID) ([]models.Operator, error)
	List(ctx context.Context, page, limit int) ([]models.Operator, int, error)
	Create(ctx context.Context, op *models.Operator) error
	Update(ctx context.Context, op *models.Operator) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type ServiceImpl struct {
	repo   Repository
	cache  *gocache.Cache
	logger *zap.Logger
}

var _ Service = (*ServiceImpl)(nil)

func NewService(repo Repository, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{
		repo:   repo,
		cache:  gocache.New(cacheTTL, cacheCleanup),
		logger: logger,
	}
}

func (s *ServiceImpl) Get(ctx context.Context, id uuid.UUID) (*models.Operator, error) {
	key := id.String()
	if cached, found := s.cache.Get(key); found {
		return cached.(*models.Operator), nil
	}

	op, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, op, gocache.DefaultExpiration)
	return op, nil
}

func (s *ServiceImpl) ListForAgent(ctx context.Context, agentID uuid.UUID) ([]models.Operator, error) {
	return s.repo.ListByAgent(ctx, agentID)
}

func (s *ServiceImpl) List(ctx context.Context, page, limit int) ([]models.Operator, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.repo.List(ctx, page, limit)
}

func (s *ServiceImpl) Create(ctx context.Context, op *models.Operator) error {
	l := s.logger.With(zap.String("method", "Create"))
	if !geo.ValidateCoordinates(op.Latitude, op.Longitude) {
		return models.ErrInvalidLocation
	}
	if op.Name == "" {
		return models.ErrBadRequest
	}
	if err := s.repo.Create(ctx, op); err != nil {
		l.Error("Failed to create operator", zap.Error(err))
		return err
	}
	l.Info("Operator created", zap.String("operator_id", op.ID.String()))
	return nil
}

func (s *ServiceImpl) Update(ctx context.Context, op *models.Operator) error {
	l := s.logger.With(zap.String("method", "Update"), zap.String("operator_id", op.ID.String()))
	if !geo.ValidateCoordinates(op.Latitude, op.Longitude) {
		return models.ErrInvalidLocation
	}
	if err := s.repo.Update(ctx, op); err != nil {
		return err
	}
	s.cache.Delete(op.ID.String())
	l.Info("Operator updated")
	return nil
}

func (s *ServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	l := s.logger.With(zap.String("method", "Delete"), zap.String("operator_id", id.String()))
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Delete(id.String())
	l.Info("Operator deleted with cascading sessions")
	return nil
}
