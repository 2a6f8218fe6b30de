package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionMetrics(t *testing.T) {
	checkIn := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("NoAuditsIsFullyCompliant", func(t *testing.T) {
		s := &VisitSession{CheckInTime: checkIn}
		m := s.Metrics(checkIn.Add(30 * time.Minute))

		assert.Equal(t, 30, m.DurationMinutes)
		assert.Equal(t, 0, m.TotalAudits)
		assert.Equal(t, 0, m.ViolationCount)
		assert.Equal(t, 100.0, m.ComplianceRate)
	})

	t.Run("ClosedSessionUsesCheckOutTime", func(t *testing.T) {
		out := checkIn.Add(47 * time.Minute)
		s := &VisitSession{CheckInTime: checkIn, CheckOutTime: &out}

		// now is well past checkout and must not matter
		m := s.Metrics(checkIn.Add(10 * time.Hour))
		assert.Equal(t, 47, m.DurationMinutes)
	})

	t.Run("DurationFloorsPartialMinutes", func(t *testing.T) {
		s := &VisitSession{CheckInTime: checkIn}
		m := s.Metrics(checkIn.Add(5*time.Minute + 59*time.Second))
		assert.Equal(t, 5, m.DurationMinutes)
	})

	t.Run("ComplianceRateCountsViolations", func(t *testing.T) {
		s := &VisitSession{
			CheckInTime: checkIn,
			Audits: []LocationAudit{
				{WithinRadius: true},
				{WithinRadius: false},
				{WithinRadius: true},
			},
		}
		m := s.Metrics(checkIn.Add(time.Hour))

		assert.Equal(t, 3, m.TotalAudits)
		assert.Equal(t, 1, m.ViolationCount)
		assert.InDelta(t, 66.7, m.ComplianceRate, 0.05)
	})

	t.Run("AllViolations", func(t *testing.T) {
		s := &VisitSession{
			CheckInTime: checkIn,
			Audits: []LocationAudit{
				{WithinRadius: false},
				{WithinRadius: false},
			},
		}
		m := s.Metrics(checkIn.Add(time.Hour))
		assert.Equal(t, 0.0, m.ComplianceRate)
	})
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, (&VisitSession{Status: StatusCheckedIn}).IsTerminal())
	assert.True(t, (&VisitSession{Status: StatusCheckedOut}).IsTerminal())
	assert.True(t, (&VisitSession{Status: StatusAutoCheckout}).IsTerminal())
}
