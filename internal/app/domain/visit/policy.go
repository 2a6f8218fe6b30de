package visit

import (
	"time"

	"github.com/visitops/fieldtrack/internal/app/models"
)

// Policy holds the geofence enforcement rules. One instance is built from
// configuration and shared by the eligibility check and the auto-checkout
// evaluation so both always agree on the radius.
type Policy struct {
	// AllowedRadiusMeters is the maximum distance from the operator at which
	// presence still counts as valid. The boundary itself is eligible.
	AllowedRadiusMeters float64
	// MaxSessionDuration is the ceiling on a session's age before it is
	// closed with the auto-timeout reason. Zero disables the rule.
	MaxSessionDuration time.Duration
}

// Decision is the outcome of evaluating the policy against a fresh audit.
type Decision struct {
	AutoCheckout bool
	Reason       string
}

// WithinRadius reports whether a distance is inside the geofence. The
// comparison is <=, so a reading exactly on the boundary is compliant.
func (p Policy) WithinRadius(distanceMeters float64) bool {
	return distanceMeters <= p.AllowedRadiusMeters
}

// Expired reports whether a session checked in at checkInTime has overrun
// the duration ceiling at now.
func (p Policy) Expired(checkInTime, now time.Time) bool {
	return p.MaxSessionDuration > 0 && now.Sub(checkInTime) > p.MaxSessionDuration
}

// Evaluate applies the checkout rules to the latest audit entry. The timeout
// rule runs first; the radius rule is zero-tolerance, terminating on the very
// first out-of-radius audit. The evaluator is only ever invoked immediately
// after an audit append, so it never sees a stale session.
func (p Policy) Evaluate(checkInTime time.Time, latest models.LocationAudit, now time.Time) Decision {
	if p.Expired(checkInTime, now) {
		return Decision{AutoCheckout: true, Reason: models.ReasonTimeout}
	}
	if !latest.WithinRadius {
		return Decision{AutoCheckout: true, Reason: models.ReasonLocationViolation}
	}
	return Decision{}
}
