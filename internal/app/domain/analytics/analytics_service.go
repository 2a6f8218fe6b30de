package analytics

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/visitops/fieldtrack/internal/app/models"
)

const defaultReportDays = 30

type Service interface {
	// ListSessions is the unscoped admin view over all sessions.
	ListSessions(ctx context.Context, filter models.SessionFilter, page, limit int) ([]models.VisitSession, *models.SessionListStats, *models.Pagination, error)
	// Report aggregates daily, per-agent and per-operator figures over the
	// trailing window.
	Report(ctx context.Context, days int) (*models.AnalyticsReport, error)
}

type ServiceImpl struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
}

var _ Service = (*ServiceImpl)(nil)

func NewService(repo Repository, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{repo: repo, logger: logger, now: time.Now}
}

func (s *ServiceImpl) ListSessions(ctx context.Context, filter models.SessionFilter, page, limit int) ([]models.VisitSession, *models.SessionListStats, *models.Pagination, error) {
	l := s.logger.With(zap.String("method", "ListSessions"))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var (
		sessions []models.VisitSession
		total    int
		stats    *models.SessionListStats
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sessions, total, err = s.repo.ListSessions(gctx, filter, page, limit)
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = s.repo.ListStats(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		l.Error("failed to list sessions", zap.Error(err))
		return nil, nil, nil, err
	}

	pagination := &models.Pagination{
		Page:  page,
		Limit: limit,
		Total: total,
		Pages: int(math.Ceil(float64(total) / float64(limit))),
	}
	return sessions, stats, pagination, nil
}

func (s *ServiceImpl) Report(ctx context.Context, days int) (*models.AnalyticsReport, error) {
	l := s.logger.With(zap.String("method", "Report"))

	if days < 1 || days > 365 {
		days = defaultReportDays
	}
	now := s.now().UTC()
	since := now.AddDate(0, 0, -days)

	report := &models.AnalyticsReport{
		Period: models.AnalyticsPeriod{Days: days, StartDate: since, EndDate: now},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		daily, err := s.repo.DailySeries(gctx, since)
		report.Daily = daily
		return err
	})
	g.Go(func() error {
		agents, err := s.repo.AgentPerformance(gctx, since)
		report.Agents = agents
		return err
	})
	g.Go(func() error {
		operators, err := s.repo.OperatorVisitStats(gctx, since)
		report.Operators = operators
		return err
	})
	if err := g.Wait(); err != nil {
		l.Error("failed to build analytics report", zap.Int("days", days), zap.Error(err))
		return nil, err
	}

	l.Debug("analytics report built",
		zap.Int("days", days),
		zap.Int("daily_buckets", len(report.Daily)),
		zap.Int("agents", len(report.Agents)),
		zap.Int("operators", len(report.Operators)))
	return report, nil
}
