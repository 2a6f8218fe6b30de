package visit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/visitops/fieldtrack/internal/app/domain/geo"
	"github.com/visitops/fieldtrack/internal/app/models"
	"github.com/visitops/fieldtrack/internal/app/observability/metrics"
)

// OperatorSource is the slice of the operator service the session engine
// needs: resolve an operator's coordinates and assignment.
type OperatorSource interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Operator, error)
}

// AuditResult is what an update-location call reports back to the client.
type AuditResult struct {
	AutoCheckout bool       `json:"autoCheckout"`
	Reason       string     `json:"reason,omitempty"`
	Distance     float64    `json:"distance"`
	WithinRadius bool       `json:"isWithinRadius"`
	AuditCount   int        `json:"locationTrackingCount"`
	CheckOutTime *time.Time `json:"checkOutTime,omitempty"`
}

// SessionDetails bundles a fully loaded session with its derived metrics.
type SessionDetails struct {
	Session *models.VisitSession  `json:"checkIn"`
	Metrics models.SessionMetrics `json:"sessionMetrics"`
}

// SessionReader is the owner-scoped read capability handed to BD routes.
type SessionReader interface {
	ActiveSession(ctx context.Context, agentID uuid.UUID) (*models.VisitSession, error)
	History(ctx context.Context, agentID uuid.UUID, page, limit int) ([]models.VisitSession, *models.Pagination, error)
	SessionDetails(ctx context.Context, sessionID, agentID uuid.UUID) (*SessionDetails, error)
}

// AdminSessionReader is the unscoped read capability handed to admin routes.
type AdminSessionReader interface {
	AdminSessionDetails(ctx context.Context, sessionID uuid.UUID) (*SessionDetails, error)
}

type Service interface {
	SessionReader
	AdminSessionReader

	CanCheckIn(ctx context.Context, agentID, operatorID uuid.UUID, loc models.Location) (*models.EligibilityResult, error)
	CheckIn(ctx context.Context, agentID, operatorID uuid.UUID, loc models.Location, notes string) (*models.VisitSession, error)
	RecordLocation(ctx context.Context, agentID, sessionID uuid.UUID, loc models.Location) (*AuditResult, error)
	CheckOut(ctx context.Context, agentID, sessionID uuid.UUID, loc *models.Location, notes string) (*models.VisitSession, error)
	SweepExpired(ctx context.Context) (int, error)
}

type ServiceImpl struct {
	repo      Repository
	operators OperatorSource
	policy    Policy
	logger    *zap.Logger
	now       func() time.Time
}

var _ Service = (*ServiceImpl)(nil)

func NewService(repo Repository, operators OperatorSource, policy Policy, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{
		repo:      repo,
		operators: operators,
		policy:    policy,
		logger:    logger,
		now:       time.Now,
	}
}

// validateAssignment resolves the operator and checks it belongs to the
// requesting agent.
func (s *ServiceImpl) validateAssignment(ctx context.Context, agentID, operatorID uuid.UUID) (*models.Operator, error) {
	op, err := s.operators.Get(ctx, operatorID)
	if err != nil {
		return nil, err
	}
	if op.AssignedAgentID != agentID {
		return nil, models.ErrOperatorNotAssigned
	}
	return op, nil
}

// CanCheckIn is the side-effect-free eligibility probe: assignment first,
// then the single-active-session invariant, then the geofence distance. An
// existing open session makes the probe ineligible and hands back its id so
// the client can resume or check out.
func (s *ServiceImpl) CanCheckIn(ctx context.Context, agentID, operatorID uuid.UUID, loc models.Location) (*models.EligibilityResult, error) {
	l := s.logger.With(zap.String("method", "CanCheckIn"),
		zap.String("agent_id", agentID.String()),
		zap.String("operator_id", operatorID.String()))

	if !geo.ValidateCoordinates(loc.Latitude, loc.Longitude) {
		return nil, models.ErrInvalidLocation
	}

	op, err := s.validateAssignment(ctx, agentID, operatorID)
	if err != nil {
		return nil, err
	}

	var existingID *uuid.UUID
	if existing, err := s.repo.GetActiveSessionForPair(ctx, agentID, operatorID); err == nil {
		existingID = &existing.ID
	} else if !errors.Is(err, models.ErrSessionNotFound) {
		return nil, err
	}

	distance := geo.DistanceMeters(loc.Latitude, loc.Longitude, op.Latitude, op.Longitude)
	result := &models.EligibilityResult{
		Eligible:          existingID == nil && s.policy.WithinRadius(distance),
		Distance:          math.Round(distance),
		AllowedRadius:     s.policy.AllowedRadiusMeters,
		ExistingSessionID: existingID,
		Operator: &models.OperatorSummary{
			ID:        op.ID,
			Name:      op.Name,
			Address:   op.Address,
			Latitude:  op.Latitude,
			Longitude: op.Longitude,
		},
	}

	l.Info("Eligibility checked",
		zap.Float64("distance_m", result.Distance),
		zap.Bool("eligible", result.Eligible))
	return result, nil
}

// CheckIn runs the guarded create transition: eligibility, then the atomic
// check-and-create in the repository. The new session carries one seed audit
// entry (the check-in fix itself).
func (s *ServiceImpl) CheckIn(ctx context.Context, agentID, operatorID uuid.UUID, loc models.Location, notes string) (*models.VisitSession, error) {
	l := s.logger.With(zap.String("method", "CheckIn"),
		zap.String("agent_id", agentID.String()),
		zap.String("operator_id", operatorID.String()))

	if !geo.ValidateCoordinates(loc.Latitude, loc.Longitude) {
		return nil, models.ErrInvalidLocation
	}

	op, err := s.validateAssignment(ctx, agentID, operatorID)
	if err != nil {
		return nil, err
	}

	distance := geo.DistanceMeters(loc.Latitude, loc.Longitude, op.Latitude, op.Longitude)
	if !s.policy.WithinRadius(distance) {
		l.Warn("Check-in rejected, out of range",
			zap.Float64("distance_m", distance),
			zap.Float64("allowed_radius_m", s.policy.AllowedRadiusMeters))
		return nil, &models.OutOfRangeError{
			Distance:      math.Round(distance),
			AllowedRadius: s.policy.AllowedRadiusMeters,
		}
	}

	now := s.now()
	session := &models.VisitSession{
		ID:          uuid.New(),
		OperatorID:  operatorID,
		AgentID:     agentID,
		Status:      models.StatusCheckedIn,
		CheckInTime: now,
		CheckInLocation: models.GeoFix{
			Latitude:             loc.Latitude,
			Longitude:            loc.Longitude,
			DistanceFromOperator: math.Round(distance),
		},
		Notes: notes,
	}

	if err := s.repo.CreateSession(ctx, session); err != nil {
		if errors.Is(err, models.ErrSessionAlreadyActive) {
			// Lost the check-and-create race (or the client retried): hand
			// back the winning session's id.
			if existing, lookupErr := s.repo.GetActiveSessionForPair(ctx, agentID, operatorID); lookupErr == nil {
				return nil, &models.ActiveSessionError{SessionID: existing.ID}
			}
			return nil, models.ErrSessionAlreadyActive
		}
		l.Error("Failed to create session", zap.Error(err))
		return nil, err
	}

	if m := metrics.Get(); m != nil {
		m.CheckInsTotal.Add(ctx, 1)
		m.ActiveSessionsGauge.Add(ctx, 1)
	}

	l.Info("Checked in",
		zap.String("session_id", session.ID.String()),
		zap.Float64("distance_m", session.CheckInLocation.DistanceFromOperator))
	return session, nil
}

// RecordLocation appends one audit entry and immediately evaluates the
// auto-checkout policy on it. The append, the violation bookkeeping and the
// (possible) terminal transition are each guarded on the session still being
// checked-in, so concurrent calls settle benignly: whichever closes the
// session first wins and the other observes a no-op.
func (s *ServiceImpl) RecordLocation(ctx context.Context, agentID, sessionID uuid.UUID, loc models.Location) (*AuditResult, error) {
	l := s.logger.With(zap.String("method", "RecordLocation"),
		zap.String("session_id", sessionID.String()),
		zap.String("agent_id", agentID.String()))

	if !geo.ValidateCoordinates(loc.Latitude, loc.Longitude) {
		return nil, models.ErrInvalidLocation
	}

	session, err := s.repo.GetOwnedActiveSession(ctx, sessionID, agentID)
	if err != nil {
		return nil, err
	}

	op, err := s.operators.Get(ctx, session.OperatorID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	distance := geo.DistanceMeters(loc.Latitude, loc.Longitude, op.Latitude, op.Longitude)
	audit := models.LocationAudit{
		SessionID:    sessionID,
		RecordedAt:   now,
		Latitude:     loc.Latitude,
		Longitude:    loc.Longitude,
		DistanceM:    math.Round(distance),
		WithinRadius: s.policy.WithinRadius(distance),
	}

	count, err := s.repo.AppendAudit(ctx, sessionID, audit)
	if err != nil {
		return nil, err
	}

	if m := metrics.Get(); m != nil {
		m.LocationAuditsTotal.Add(ctx, 1)
		if !audit.WithinRadius {
			m.GeofenceViolations.Add(ctx, 1)
		}
	}

	result := &AuditResult{
		Distance:     audit.DistanceM,
		WithinRadius: audit.WithinRadius,
		AuditCount:   count,
	}

	decision := s.policy.Evaluate(session.CheckInTime, audit, now)
	if !decision.AutoCheckout {
		l.Info("Location recorded",
			zap.Float64("distance_m", audit.DistanceM),
			zap.Bool("within_radius", audit.WithinRadius),
			zap.Int("audit_count", count))
		return result, nil
	}

	closed, err := s.repo.CloseSession(ctx, sessionID, SessionClose{
		Status: models.StatusAutoCheckout,
		Reason: decision.Reason,
		Time:   now,
		Location: &models.GeoFix{
			Latitude:             loc.Latitude,
			Longitude:            loc.Longitude,
			DistanceFromOperator: audit.DistanceM,
		},
	})
	if err != nil {
		if errors.Is(err, models.ErrSessionAlreadyClosed) {
			// A concurrent call closed the session between our append and the
			// transition; ours is a no-op, not an error.
			result.AutoCheckout = true
			result.Reason = decision.Reason
			return result, nil
		}
		return nil, err
	}

	if m := metrics.Get(); m != nil {
		m.AutoCheckoutsTotal.Add(ctx, 1)
		m.ActiveSessionsGauge.Add(ctx, -1)
		if closed.TotalDurationMinutes != nil {
			m.SessionDurationMinutes.Record(ctx, float64(*closed.TotalDurationMinutes))
		}
	}

	result.AutoCheckout = true
	result.Reason = decision.Reason
	result.CheckOutTime = closed.CheckOutTime

	l.Warn("Auto-checkout triggered",
		zap.String("reason", decision.Reason),
		zap.Float64("distance_m", audit.DistanceM),
		zap.Float64("allowed_radius_m", s.policy.AllowedRadiusMeters))
	return result, nil
}

// CheckOut is the manual terminal transition for the session's own agent.
func (s *ServiceImpl) CheckOut(ctx context.Context, agentID, sessionID uuid.UUID, loc *models.Location, notes string) (*models.VisitSession, error) {
	l := s.logger.With(zap.String("method", "CheckOut"),
		zap.String("session_id", sessionID.String()),
		zap.String("agent_id", agentID.String()))

	session, err := s.repo.GetOwnedActiveSession(ctx, sessionID, agentID)
	if errors.Is(err, models.ErrSessionNotFound) {
		// A repeat checkout is not an unknown id: a session the agent owns
		// that already left checked-in reports the closed state instead.
		if prior, lookupErr := s.repo.GetSessionDetails(ctx, sessionID, &agentID); lookupErr == nil && prior.IsTerminal() {
			return nil, models.ErrSessionAlreadyClosed
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	var fix *models.GeoFix
	if loc != nil {
		if !geo.ValidateCoordinates(loc.Latitude, loc.Longitude) {
			return nil, models.ErrInvalidLocation
		}
		op, err := s.operators.Get(ctx, session.OperatorID)
		if err != nil {
			return nil, err
		}
		distance := geo.DistanceMeters(loc.Latitude, loc.Longitude, op.Latitude, op.Longitude)
		fix = &models.GeoFix{
			Latitude:             loc.Latitude,
			Longitude:            loc.Longitude,
			DistanceFromOperator: math.Round(distance),
		}
	}

	closed, err := s.repo.CloseSession(ctx, sessionID, SessionClose{
		Status:   models.StatusCheckedOut,
		Reason:   models.ReasonManual,
		Time:     s.now(),
		Location: fix,
		Notes:    notes,
	})
	if err != nil {
		// The auto-checkout evaluator may have beaten us to the transition.
		return nil, err
	}

	if m := metrics.Get(); m != nil {
		m.CheckOutsTotal.Add(ctx, 1)
		m.ActiveSessionsGauge.Add(ctx, -1)
		if closed.TotalDurationMinutes != nil {
			m.SessionDurationMinutes.Record(ctx, float64(*closed.TotalDurationMinutes))
		}
	}

	l.Info("Checked out",
		zap.Timep("check_out_time", closed.CheckOutTime),
		zap.Intp("duration_minutes", closed.TotalDurationMinutes))
	return closed, nil
}

// ActiveSession returns the agent's open session with its operator
// projection, or nil when there is none.
func (s *ServiceImpl) ActiveSession(ctx context.Context, agentID uuid.UUID) (*models.VisitSession, error) {
	session, err := s.repo.GetActiveSessionByAgent(ctx, agentID)
	if errors.Is(err, models.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *ServiceImpl) History(ctx context.Context, agentID uuid.UUID, page, limit int) ([]models.VisitSession, *models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	sessions, total, err := s.repo.ListSessionsByAgent(ctx, agentID, page, limit)
	if err != nil {
		return nil, nil, err
	}
	return sessions, &models.Pagination{
		Page:  page,
		Limit: limit,
		Total: total,
		Pages: (total + limit - 1) / limit,
	}, nil
}

func (s *ServiceImpl) SessionDetails(ctx context.Context, sessionID, agentID uuid.UUID) (*SessionDetails, error) {
	session, err := s.repo.GetSessionDetails(ctx, sessionID, &agentID)
	if err != nil {
		return nil, err
	}
	return &SessionDetails{Session: session, Metrics: session.Metrics(s.now())}, nil
}

func (s *ServiceImpl) AdminSessionDetails(ctx context.Context, sessionID uuid.UUID) (*SessionDetails, error) {
	session, err := s.repo.GetSessionDetails(ctx, sessionID, nil)
	if err != nil {
		return nil, err
	}
	return &SessionDetails{Session: session, Metrics: session.Metrics(s.now())}, nil
}

// SweepExpired closes every checked-in session that has overrun the duration
// ceiling, stamping the last audited fix as the checkout location. It backs
// the auto-timeout rule for clients that stopped polling. Returns the number
// of sessions closed.
func (s *ServiceImpl) SweepExpired(ctx context.Context) (int, error) {
	if s.policy.MaxSessionDuration <= 0 {
		return 0, nil
	}

	now := s.now()
	cutoff := now.Add(-s.policy.MaxSessionDuration)
	expired, err := s.repo.ListExpiredSessions(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list expired sessions: %w", err)
	}

	closed := 0
	for _, e := range expired {
		_, err := s.repo.CloseSession(ctx, e.ID, SessionClose{
			Status:   models.StatusAutoCheckout,
			Reason:   models.ReasonTimeout,
			Time:     now,
			Location: e.LastFix,
		})
		if errors.Is(err, models.ErrSessionAlreadyClosed) {
			continue
		}
		if err != nil {
			return closed, fmt.Errorf("close expired session %s: %w", e.ID, err)
		}
		closed++

		if m := metrics.Get(); m != nil {
			m.AutoCheckoutsTotal.Add(ctx, 1)
			m.ActiveSessionsGauge.Add(ctx, -1)
		}
		s.logger.Warn("Session closed by timeout sweep",
			zap.String("session_id", e.ID.String()),
			zap.String("agent_id", e.AgentID.String()),
			zap.Time("check_in_time", e.CheckInTime))
	}
	return closed, nil
}
