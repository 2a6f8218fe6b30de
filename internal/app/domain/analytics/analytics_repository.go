package analytics

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/visitops/fieldtrack/internal/app/models"
	"github.com/visitops/fieldtrack/internal/app/observability/metrics"
)

type Repository interface {
	// ListSessions pages through sessions matching the filter, newest first,
	// with operator and agent projections and no audit trails.
	ListSessions(ctx context.Context, filter models.SessionFilter, page, limit int) ([]models.VisitSession, int, error)
	// ListStats summarizes the sessions matching the same filter.
	ListStats(ctx context.Context, filter models.SessionFilter) (*models.SessionListStats, error)

	DailySeries(ctx context.Context, since time.Time) ([]models.DailyVisitStats, error)
	AgentPerformance(ctx context.Context, since time.Time) ([]models.AgentPerformance, error)
	OperatorVisitStats(ctx context.Context, since time.Time) ([]models.OperatorVisitStats, error)
}

// DB is the read surface the analytics queries need. *pgxpool.Pool satisfies
// it, as does pgxmock in tests.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ DB = (*pgxpool.Pool)(nil)

type RepositoryImpl struct {
	db DB
}

var _ Repository = (*RepositoryImpl)(nil)

func NewRepository(db DB) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// applyFilter applies the optional admin filters to a builder. The same
// predicates back both the list query and its summary stats so they
// always agree.
func applyFilter(b sq.SelectBuilder, filter models.SessionFilter) sq.SelectBuilder {
	if filter.Status != "" {
		b = b.Where(sq.Eq{"v.status": filter.Status})
	}
	if filter.AgentID != nil {
		b = b.Where(sq.Eq{"v.agent_id": *filter.AgentID})
	}
	if filter.OperatorID != nil {
		b = b.Where(sq.Eq{"v.operator_id": *filter.OperatorID})
	}
	if filter.DateFrom != nil {
		b = b.Where(sq.GtOrEq{"v.check_in_time": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		b = b.Where(sq.LtOrEq{"v.check_in_time": *filter.DateTo})
	}
	return b
}

// observeQuery records the duration of a named analytics query.
func observeQuery(ctx context.Context, name string, start time.Time) {
	if m := metrics.Get(); m != nil {
		m.DBQueryDurationSeconds.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String("query", name)))
	}
}

func (r *RepositoryImpl) ListSessions(ctx context.Context, filter models.SessionFilter, page, limit int) ([]models.VisitSession, int, error) {
	defer observeQuery(ctx, "admin_list_sessions", time.Now())

	offset := (page - 1) * limit

	query, args, err := applyFilter(psql.
		Select(
			"v.id", "v.operator_id", "v.agent_id", "v.status", "v.checkout_reason",
			"v.check_in_time", "v.check_out_time",
			"v.check_in_lat", "v.check_in_lng", "v.check_in_distance_m",
			"v.max_distance_violated_m", "v.total_duration_minutes", "v.notes",
			"o.name", "o.address", "o.latitude", "o.longitude",
			"u.email", "u.name", "u.role",
		).
		From("visit_sessions v").
		Join("operators o ON o.id = v.operator_id").
		Join("users u ON u.id = v.agent_id"), filter).
		OrderBy("v.check_in_time DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build session list query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query session list: %w", err)
	}
	defer rows.Close()

	var sessions []models.VisitSession
	for rows.Next() {
		var s models.VisitSession
		var op models.OperatorSummary
		var agent models.UserSummary
		err := rows.Scan(
			&s.ID, &s.OperatorID, &s.AgentID, &s.Status, &s.CheckoutReason,
			&s.CheckInTime, &s.CheckOutTime,
			&s.CheckInLocation.Latitude, &s.CheckInLocation.Longitude, &s.CheckInLocation.DistanceFromOperator,
			&s.MaxDistanceViolated, &s.TotalDurationMinutes, &s.Notes,
			&op.Name, &op.Address, &op.Latitude, &op.Longitude,
			&agent.Email, &agent.Name, &agent.Role,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan session list row: %w", err)
		}
		op.ID = s.OperatorID
		agent.ID = s.AgentID
		s.Operator = &op
		s.Agent = &agent
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate session list: %w", err)
	}

	countQuery, countArgs, err := applyFilter(psql.
		Select("COUNT(*)").
		From("visit_sessions v"), filter).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build session count query: %w", err)
	}
	var total int
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	return sessions, total, nil
}

func (r *RepositoryImpl) ListStats(ctx context.Context, filter models.SessionFilter) (*models.SessionListStats, error) {
	query, args, err := applyFilter(psql.
		Select(
			"COUNT(*)",
			"COUNT(*) FILTER (WHERE v.status = 'checked-out')",
			"COUNT(*) FILTER (WHERE v.status = 'auto-checkout')",
			"COALESCE(AVG(v.total_duration_minutes), 0)",
		).
		From("visit_sessions v"), filter).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build session stats query: %w", err)
	}

	var stats models.SessionListStats
	err = r.db.QueryRow(ctx, query, args...).Scan(
		&stats.TotalSessions,
		&stats.CompletedSessions,
		&stats.AutoCheckouts,
		&stats.AverageDuration,
	)
	if err != nil {
		return nil, fmt.Errorf("query session stats: %w", err)
	}
	return &stats, nil
}

func (r *RepositoryImpl) DailySeries(ctx context.Context, since time.Time) ([]models.DailyVisitStats, error) {
	defer observeQuery(ctx, "daily_series", time.Now())

	rows, err := r.db.Query(ctx, `
		SELECT to_char(check_in_time, 'YYYY-MM-DD') AS day,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'checked-out'),
		       COUNT(*) FILTER (WHERE status = 'auto-checkout')
		FROM visit_sessions
		WHERE check_in_time >= $1
		GROUP BY day
		ORDER BY day`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("query daily series: %w", err)
	}
	defer rows.Close()

	var series []models.DailyVisitStats
	for rows.Next() {
		var d models.DailyVisitStats
		if err := rows.Scan(&d.Date, &d.TotalCheckIns, &d.CompletedSessions, &d.AutoCheckouts); err != nil {
			return nil, fmt.Errorf("scan daily series row: %w", err)
		}
		series = append(series, d)
	}
	return series, rows.Err()
}

func (r *RepositoryImpl) AgentPerformance(ctx context.Context, since time.Time) ([]models.AgentPerformance, error) {
	defer observeQuery(ctx, "agent_performance", time.Now())

	rows, err := r.db.Query(ctx, `
		SELECT v.agent_id, u.email, u.name,
		       COUNT(*) AS total_sessions,
		       COUNT(*) FILTER (WHERE v.status = 'checked-out') AS completed_sessions,
		       COUNT(*) FILTER (WHERE v.status = 'auto-checkout') AS auto_checkouts,
		       COALESCE(AVG(v.total_duration_minutes), 0) AS average_duration,
		       COUNT(*) FILTER (WHERE v.max_distance_violated_m IS NOT NULL) AS total_violations
		FROM visit_sessions v
		JOIN users u ON u.id = v.agent_id
		WHERE v.check_in_time >= $1
		GROUP BY v.agent_id, u.email, u.name
		ORDER BY total_sessions DESC`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("query agent performance: %w", err)
	}
	defer rows.Close()

	var perf []models.AgentPerformance
	for rows.Next() {
		var p models.AgentPerformance
		err := rows.Scan(
			&p.AgentID, &p.Email, &p.Name,
			&p.TotalSessions, &p.CompletedSessions, &p.AutoCheckouts,
			&p.AverageDuration, &p.TotalViolations,
		)
		if err != nil {
			return nil, fmt.Errorf("scan agent performance row: %w", err)
		}
		if p.TotalSessions > 0 {
			p.CompletionRate = 100 * float64(p.CompletedSessions) / float64(p.TotalSessions)
		}
		perf = append(perf, p)
	}
	return perf, rows.Err()
}

func (r *RepositoryImpl) OperatorVisitStats(ctx context.Context, since time.Time) ([]models.OperatorVisitStats, error) {
	defer observeQuery(ctx, "operator_visit_stats", time.Now())

	rows, err := r.db.Query(ctx, `
		SELECT v.operator_id, o.name, o.address,
		       COUNT(*) AS visit_count,
		       COUNT(DISTINCT v.agent_id) AS unique_visitors,
		       MAX(v.check_in_time) AS last_visit
		FROM visit_sessions v
		JOIN operators o ON o.id = v.operator_id
		WHERE v.check_in_time >= $1
		GROUP BY v.operator_id, o.name, o.address
		ORDER BY visit_count DESC`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("query operator visit stats: %w", err)
	}
	defer rows.Close()

	var stats []models.OperatorVisitStats
	for rows.Next() {
		var s models.OperatorVisitStats
		err := rows.Scan(&s.OperatorID, &s.Name, &s.Address, &s.VisitCount, &s.UniqueVisitors, &s.LastVisit)
		if err != nil {
			return nil, fmt.Errorf("scan operator visit stats row: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
