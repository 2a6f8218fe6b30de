package visit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/visitops/fieldtrack/internal/app/models"
)

// SessionClose carries the terminal transition parameters. Location is nil
// for manual checkouts without a final fix.
type SessionClose struct {
	Status   string
	Reason   string
	Time     time.Time
	Location *models.GeoFix
	Notes    string
}

// ExpiredSession is a checked-in session that has overrun the duration
// ceiling, with the last audited fix to stamp as its checkout location.
type ExpiredSession struct {
	ID          uuid.UUID
	AgentID     uuid.UUID
	CheckInTime time.Time
	LastFix     *models.GeoFix
}

type Repository interface {
	// CreateSession inserts the session, its seed audit entry and the
	// operator last-visit stamp in one transaction. Returns
	// ErrSessionAlreadyActive when a checked-in session for the
	// (agent, operator) pair already exists.
	CreateSession(ctx context.Context, s *models.VisitSession) error

	GetActiveSessionForPair(ctx context.Context, agentID, operatorID uuid.UUID) (*models.VisitSession, error)
	GetActiveSessionByAgent(ctx context.Context, agentID uuid.UUID) (*models.VisitSession, error)
	GetOwnedActiveSession(ctx context.Context, sessionID, agentID uuid.UUID) (*models.VisitSession, error)

	// AppendAudit appends one audit entry and maintains the running
	// max-violation distance in one transaction. The insert is guarded on the
	// session still being checked-in; ErrSessionNotFound signals it closed in
	// the meantime. Returns the total audit count after the append.
	AppendAudit(ctx context.Context, sessionID uuid.UUID, audit models.LocationAudit) (int, error)

	// CloseSession performs the single terminal transition as a
	// compare-and-swap on status. ErrSessionAlreadyClosed means another
	// caller won the race; nothing is re-stamped.
	CloseSession(ctx context.Context, sessionID uuid.UUID, close SessionClose) (*models.VisitSession, error)

	ListSessionsByAgent(ctx context.Context, agentID uuid.UUID, page, limit int) ([]models.VisitSession, int, error)
	GetSessionDetails(ctx context.Context, sessionID uuid.UUID, agentID *uuid.UUID) (*models.VisitSession, error)
	ListExpiredSessions(ctx context.Context, cutoff time.Time) ([]ExpiredSession, error)
}

// DB is the slice of pgxpool.Pool the repository uses. pgxmock satisfies
// it in tests.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ DB = (*pgxpool.Pool)(nil)

type RepositoryImpl struct {
	db DB
}

func NewRepository(db DB) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

var _ Repository = (*RepositoryImpl)(nil)

const sessionColumns = `
	id, operator_id, agent_id, status, checkout_reason,
	check_in_time, check_out_time,
	check_in_lat, check_in_lng, check_in_distance_m,
	check_out_lat, check_out_lng, check_out_distance_m,
	max_distance_violated_m, total_duration_minutes, notes,
	created_at, updated_at`

func scanSession(row pgx.Row) (*models.VisitSession, error) {
	var s models.VisitSession
	var outLat, outLng, outDist *float64
	err := row.Scan(
		&s.ID, &s.OperatorID, &s.AgentID, &s.Status, &s.CheckoutReason,
		&s.CheckInTime, &s.CheckOutTime,
		&s.CheckInLocation.Latitude, &s.CheckInLocation.Longitude, &s.CheckInLocation.DistanceFromOperator,
		&outLat, &outLng, &outDist,
		&s.MaxDistanceViolated, &s.TotalDurationMinutes, &s.Notes,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if outLat != nil && outLng != nil {
		fix := models.GeoFix{Latitude: *outLat, Longitude: *outLng}
		if outDist != nil {
			fix.DistanceFromOperator = *outDist
		}
		s.CheckOutLocation = &fix
	}
	return &s, nil
}

func (r *RepositoryImpl) CreateSession(ctx context.Context, s *models.VisitSession) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create session: %w", err)
	}
	defer tx.Rollback(ctx)

	// The partial unique index on (agent_id, operator_id) WHERE
	// status='checked-in' makes this the atomic check-and-create.
	tag, err := tx.Exec(ctx, `
		INSERT INTO visit_sessions (
			id, operator_id, agent_id, status, check_in_time,
			check_in_lat, check_in_lng, check_in_distance_m, notes
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (agent_id, operator_id) WHERE status = 'checked-in' DO NOTHING`,
		s.ID, s.OperatorID, s.AgentID, models.StatusCheckedIn, s.CheckInTime,
		s.CheckInLocation.Latitude, s.CheckInLocation.Longitude,
		s.CheckInLocation.DistanceFromOperator, s.Notes,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.ErrSessionAlreadyActive
		}
		return fmt.Errorf("insert session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrSessionAlreadyActive
	}

	// Seed the audit trail with the check-in fix itself.
	_, err = tx.Exec(ctx, `
		INSERT INTO location_audits (session_id, recorded_at, latitude, longitude, distance_m, within_radius)
		VALUES ($1, $2, $3, $4, $5, TRUE)`,
		s.ID, s.CheckInTime,
		s.CheckInLocation.Latitude, s.CheckInLocation.Longitude,
		s.CheckInLocation.DistanceFromOperator,
	)
	if err != nil {
		return fmt.Errorf("insert seed audit: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE operators SET last_visit_at = $2, updated_at = $2 WHERE id = $1`,
		s.OperatorID, s.CheckInTime,
	)
	if err != nil {
		return fmt.Errorf("stamp operator last visit: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *RepositoryImpl) GetActiveSessionForPair(ctx context.Context, agentID, operatorID uuid.UUID) (*models.VisitSession, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM visit_sessions
		WHERE agent_id = $1 AND operator_id = $2 AND status = 'checked-in'`,
		agentID, operatorID,
	)
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query active session for pair: %w", err)
	}
	return s, nil
}

func (r *RepositoryImpl) GetActiveSessionByAgent(ctx context.Context, agentID uuid.UUID) (*models.VisitSession, error) {
	row := r.db.QueryRow(ctx, `
		SELECT v.id, v.operator_id, v.agent_id, v.status, v.checkout_reason,
		       v.check_in_time, v.check_out_time,
		       v.check_in_lat, v.check_in_lng, v.check_in_distance_m,
		       v.check_out_lat, v.check_out_lng, v.check_out_distance_m,
		       v.max_distance_violated_m, v.total_duration_minutes, v.notes,
		       v.created_at, v.updated_at,
		       o.name, o.address, o.latitude, o.longitude,
		       (SELECT COUNT(*) FROM location_audits a WHERE a.session_id = v.id)
		FROM visit_sessions v
		JOIN operators o ON o.id = v.operator_id
		WHERE v.agent_id = $1 AND v.status = 'checked-in'`,
		agentID,
	)

	var s models.VisitSession
	var op models.OperatorSummary
	var outLat, outLng, outDist *float64
	err := row.Scan(
		&s.ID, &s.OperatorID, &s.AgentID, &s.Status, &s.CheckoutReason,
		&s.CheckInTime, &s.CheckOutTime,
		&s.CheckInLocation.Latitude, &s.CheckInLocation.Longitude, &s.CheckInLocation.DistanceFromOperator,
		&outLat, &outLng, &outDist,
		&s.MaxDistanceViolated, &s.TotalDurationMinutes, &s.Notes,
		&s.CreatedAt, &s.UpdatedAt,
		&op.Name, &op.Address, &op.Latitude, &op.Longitude,
		&s.AuditCount,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query active session: %w", err)
	}
	op.ID = s.OperatorID
	s.Operator = &op
	return &s, nil
}

func (r *RepositoryImpl) GetOwnedActiveSession(ctx context.Context, sessionID, agentID uuid.UUID) (*models.VisitSession, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM visit_sessions
		WHERE id = $1 AND agent_id = $2 AND status = 'checked-in'`,
		sessionID, agentID,
	)
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query owned active session: %w", err)
	}
	return s, nil
}

func (r *RepositoryImpl) AppendAudit(ctx context.Context, sessionID uuid.UUID, audit models.LocationAudit) (int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin append audit: %w", err)
	}
	defer tx.Rollback(ctx)

	// The INSERT ... SELECT guard keeps the trail append-only for live
	// sessions only: a session closed by a racing call accepts no more
	// entries.
	tag, err := tx.Exec(ctx, `
		INSERT INTO location_audits (session_id, recorded_at, latitude, longitude, distance_m, within_radius)
		SELECT v.id, $2, $3, $4, $5, $6
		FROM visit_sessions v
		WHERE v.id = $1 AND v.status = 'checked-in'`,
		sessionID, audit.RecordedAt, audit.Latitude, audit.Longitude,
		audit.DistanceM, audit.WithinRadius,
	)
	if err != nil {
		return 0, fmt.Errorf("insert audit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, models.ErrSessionNotFound
	}

	if !audit.WithinRadius {
		_, err = tx.Exec(ctx, `
			UPDATE visit_sessions
			SET max_distance_violated_m = GREATEST(COALESCE(max_distance_violated_m, 0), $2),
			    updated_at = $3
			WHERE id = $1 AND status = 'checked-in'`,
			sessionID, audit.DistanceM, audit.RecordedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("update max violation distance: %w", err)
		}
	}

	var count int
	err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM location_audits WHERE session_id = $1`, sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count audits: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit append audit: %w", err)
	}
	return count, nil
}

func (r *RepositoryImpl) CloseSession(ctx context.Context, sessionID uuid.UUID, close SessionClose) (*models.VisitSession, error) {
	var lat, lng, dist *float64
	if close.Location != nil {
		lat, lng, dist = &close.Location.Latitude, &close.Location.Longitude, &close.Location.DistanceFromOperator
	}
	var notes *string
	if close.Notes != "" {
		notes = &close.Notes
	}

	// A single conditional UPDATE is the compare-and-swap that makes the
	// terminal transition idempotent under races with the other closer.
	row := r.db.QueryRow(ctx, `
		UPDATE visit_sessions
		SET status = $2,
		    checkout_reason = $3,
		    check_out_time = $4,
		    check_out_lat = $5,
		    check_out_lng = $6,
		    check_out_distance_m = $7,
		    total_duration_minutes = FLOOR(EXTRACT(EPOCH FROM ($4::timestamptz - check_in_time)) / 60),
		    notes = COALESCE($8, notes),
		    updated_at = $4
		WHERE id = $1 AND status = 'checked-in'
		RETURNING `+sessionColumns,
		sessionID, close.Status, close.Reason, close.Time, lat, lng, dist, notes,
	)
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrSessionAlreadyClosed
	}
	if err != nil {
		return nil, fmt.Errorf("close session: %w", err)
	}
	return s, nil
}

func (r *RepositoryImpl) ListSessionsByAgent(ctx context.Context, agentID uuid.UUID, page, limit int) ([]models.VisitSession, int, error) {
	offset := (page - 1) * limit
	rows, err := r.db.Query(ctx, `
		SELECT v.id, v.operator_id, v.agent_id, v.status, v.checkout_reason,
		       v.check_in_time, v.check_out_time,
		       v.check_in_lat, v.check_in_lng, v.check_in_distance_m,
		       v.check_out_lat, v.check_out_lng, v.check_out_distance_m,
		       v.max_distance_violated_m, v.total_duration_minutes, v.notes,
		       v.created_at, v.updated_at,
		       o.name, o.address, o.latitude, o.longitude
		FROM visit_sessions v
		JOIN operators o ON o.id = v.operator_id
		WHERE v.agent_id = $1
		ORDER BY v.check_in_time DESC
		LIMIT $2 OFFSET $3`,
		agentID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query session history: %w", err)
	}
	defer rows.Close()

	var sessions []models.VisitSession
	for rows.Next() {
		var s models.VisitSession
		var op models.OperatorSummary
		var outLat, outLng, outDist *float64
		err := rows.Scan(
			&s.ID, &s.OperatorID, &s.AgentID, &s.Status, &s.CheckoutReason,
			&s.CheckInTime, &s.CheckOutTime,
			&s.CheckInLocation.Latitude, &s.CheckInLocation.Longitude, &s.CheckInLocation.DistanceFromOperator,
			&outLat, &outLng, &outDist,
			&s.MaxDistanceViolated, &s.TotalDurationMinutes, &s.Notes,
			&s.CreatedAt, &s.UpdatedAt,
			&op.Name, &op.Address, &op.Latitude, &op.Longitude,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan session history row: %w", err)
		}
		if outLat != nil && outLng != nil {
			fix := models.GeoFix{Latitude: *outLat, Longitude: *outLng}
			if outDist != nil {
				fix.DistanceFromOperator = *outDist
			}
			s.CheckOutLocation = &fix
		}
		op.ID = s.OperatorID
		s.Operator = &op
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate session history: %w", err)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM visit_sessions WHERE agent_id = $1`, agentID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count session history: %w", err)
	}

	return sessions, total, nil
}

// GetSessionDetails loads the full session including operator and agent
// projections and the complete audit trail. A non-nil agentID restricts the
// lookup to sessions owned by that agent; nil is the admin (unscoped) read.
func (r *RepositoryImpl) GetSessionDetails(ctx context.Context, sessionID uuid.UUID, agentID *uuid.UUID) (*models.VisitSession, error) {
	row := r.db.QueryRow(ctx, `
		SELECT v.id, v.operator_id, v.agent_id, v.status, v.checkout_reason,
		       v.check_in_time, v.check_out_time,
		       v.check_in_lat, v.check_in_lng, v.check_in_distance_m,
		       v.check_out_lat, v.check_out_lng, v.check_out_distance_m,
		       v.max_distance_violated_m, v.total_duration_minutes, v.notes,
		       v.created_at, v.updated_at,
		       o.name, o.address, o.latitude, o.longitude,
		       u.email, u.name, u.role
		FROM visit_sessions v
		JOIN operators o ON o.id = v.operator_id
		JOIN users u ON u.id = v.agent_id
		WHERE v.id = $1 AND ($2::uuid IS NULL OR v.agent_id = $2)`,
		sessionID, agentID,
	)

	var s models.VisitSession
	var op models.OperatorSummary
	var agent models.UserSummary
	var outLat, outLng, outDist *float64
	err := row.Scan(
		&s.ID, &s.OperatorID, &s.AgentID, &s.Status, &s.CheckoutReason,
		&s.CheckInTime, &s.CheckOutTime,
		&s.CheckInLocation.Latitude, &s.CheckInLocation.Longitude, &s.CheckInLocation.DistanceFromOperator,
		&outLat, &outLng, &outDist,
		&s.MaxDistanceViolated, &s.TotalDurationMinutes, &s.Notes,
		&s.CreatedAt, &s.UpdatedAt,
		&op.Name, &op.Address, &op.Latitude, &op.Longitude,
		&agent.Email, &agent.Name, &agent.Role,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session details: %w", err)
	}
	if outLat != nil && outLng != nil {
		fix := models.GeoFix{Latitude: *outLat, Longitude: *outLng}
		if outDist != nil {
			fix.DistanceFromOperator = *outDist
		}
		s.CheckOutLocation = &fix
	}
	op.ID = s.OperatorID
	agent.ID = s.AgentID
	s.Operator = &op
	s.Agent = &agent

	rows, err := r.db.Query(ctx, `
		SELECT id, session_id, recorded_at, latitude, longitude, distance_m, within_radius
		FROM location_audits
		WHERE session_id = $1
		ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit trail: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a models.LocationAudit
		err := rows.Scan(&a.ID, &a.SessionID, &a.RecordedAt, &a.Latitude, &a.Longitude, &a.DistanceM, &a.WithinRadius)
		if err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		s.Audits = append(s.Audits, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit trail: %w", err)
	}
	s.AuditCount = len(s.Audits)

	return &s, nil
}

func (r *RepositoryImpl) ListExpiredSessions(ctx context.Context, cutoff time.Time) ([]ExpiredSession, error) {
	rows, err := r.db.Query(ctx, `
		SELECT v.id, v.agent_id, v.check_in_time, a.latitude, a.longitude, a.distance_m
		FROM visit_sessions v
		LEFT JOIN LATERAL (
			SELECT latitude, longitude, distance_m
			FROM location_audits
			WHERE session_id = v.id
			ORDER BY id DESC
			LIMIT 1
		) a ON TRUE
		WHERE v.status = 'checked-in' AND v.check_in_time < $1`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("query expired sessions: %w", err)
	}
	defer rows.Close()

	var expired []ExpiredSession
	for rows.Next() {
		var e ExpiredSession
		var lat, lng, dist *float64
		if err := rows.Scan(&e.ID, &e.AgentID, &e.CheckInTime, &lat, &lng, &dist); err != nil {
			return nil, fmt.Errorf("scan expired session: %w", err)
		}
		if lat != nil && lng != nil {
			fix := models.GeoFix{Latitude: *lat, Longitude: *lng}
			if dist != nil {
				fix.DistanceFromOperator = *dist
			}
			e.LastFix = &fix
		}
		expired = append(expired, e)
	}
	return expired, rows.Err()
}
