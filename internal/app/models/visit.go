package models

import (
	"time"

	"github.com/google/uuid"
)

// Session status values, stored as-is.
const (
	StatusCheckedIn    = "checked-in"
	StatusCheckedOut   = "checked-out"
	StatusAutoCheckout = "auto-checkout"
)

// Checkout reasons, set exactly once when a session leaves checked-in.
const (
	ReasonManual            = "manual"
	ReasonLocationViolation = "auto-location-violation"
	ReasonTimeout           = "auto-timeout"
)

// Location is a WGS 84 coordinate pair supplied by the client.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// GeoFix is a location stamped with its distance from the session's operator.
type GeoFix struct {
	Latitude             float64 `json:"latitude"`
	Longitude            float64 `json:"longitude"`
	DistanceFromOperator float64 `json:"distanceFromOperator"`
}

// LocationAudit is one sample of the session's audit trail. Entries are
// append-only and never edited; the repository's serial id is the insertion
// order, which is also chronological.
type LocationAudit struct {
	ID           int64     `json:"id"`
	SessionID    uuid.UUID `json:"sessionId"`
	RecordedAt   time.Time `json:"timestamp"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	DistanceM    float64   `json:"distanceFromOperator"`
	WithinRadius bool      `json:"isWithinRadius"`
}

// VisitSession is one check-in-to-check-out episode for an (agent, operator)
// pair. OperatorID, AgentID, CheckInTime and CheckInLocation are immutable
// after creation; the only mutations are audit appends and the single
// transition into a terminal status.
type VisitSession struct {
	ID                   uuid.UUID  `json:"id"`
	OperatorID           uuid.UUID  `json:"operatorId"`
	AgentID              uuid.UUID  `json:"agentId"`
	Status               string     `json:"status"`
	CheckoutReason       *string    `json:"checkoutReason,omitempty"`
	CheckInTime          time.Time  `json:"checkInTime"`
	CheckOutTime         *time.Time `json:"checkOutTime,omitempty"`
	CheckInLocation      GeoFix     `json:"checkInLocation"`
	CheckOutLocation     *GeoFix    `json:"checkOutLocation,omitempty"`
	MaxDistanceViolated  *float64   `json:"maxDistanceViolated,omitempty"`
	TotalDurationMinutes *int       `json:"totalDuration,omitempty"`
	Notes                string     `json:"notes"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`

	// Read-side projections, populated only by repository read paths.
	Operator   *OperatorSummary `json:"operator,omitempty"`
	Agent      *UserSummary     `json:"user,omitempty"`
	Audits     []LocationAudit  `json:"locationTracking,omitempty"`
	AuditCount int              `json:"locationTrackingCount,omitempty"`
}

// IsTerminal reports whether the session has left checked-in.
func (s *VisitSession) IsTerminal() bool {
	return s.Status != StatusCheckedIn
}

// SessionMetrics are the derived per-session numbers, computed fresh from a
// terminal or in-progress session.
type SessionMetrics struct {
	DurationMinutes int     `json:"duration"`
	TotalAudits     int     `json:"totalLocationChecks"`
	ViolationCount  int     `json:"violationChecks"`
	ComplianceRate  float64 `json:"complianceRate"`
}

// Metrics computes the derived numbers for the session. For an open session
// the duration runs up to now. A session with zero audits is fully compliant.
func (s *VisitSession) Metrics(now time.Time) SessionMetrics {
	end := now
	if s.CheckOutTime != nil {
		end = *s.CheckOutTime
	}
	m := SessionMetrics{
		DurationMinutes: int(end.Sub(s.CheckInTime).Minutes()),
		TotalAudits:     len(s.Audits),
		ComplianceRate:  100,
	}
	for _, a := range s.Audits {
		if !a.WithinRadius {
			m.ViolationCount++
		}
	}
	if m.TotalAudits > 0 {
		m.ComplianceRate = 100 * float64(m.TotalAudits-m.ViolationCount) / float64(m.TotalAudits)
	}
	return m
}

// EligibilityResult is the outcome of a can-check-in probe. Distance and
// AllowedRadius are always populated so the client can decide what to do
// next.
type EligibilityResult struct {
	Eligible          bool             `json:"canCheckIn"`
	Distance          float64          `json:"distance"`
	AllowedRadius     float64          `json:"allowedRadius"`
	ExistingSessionID *uuid.UUID       `json:"existingSessionId,omitempty"`
	Operator          *OperatorSummary `json:"operator,omitempty"`
}
