package visit

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visitops/fieldtrack/internal/app/models"
)

func sessionColumnNames() []string {
	return []string{
		"id", "operator_id", "agent_id", "status", "checkout_reason",
		"check_in_time", "check_out_time",
		"check_in_lat", "check_in_lng", "check_in_distance_m",
		"check_out_lat", "check_out_lng", "check_out_distance_m",
		"max_distance_violated_m", "total_duration_minutes", "notes",
		"created_at", "updated_at",
	}
}

func newSession() *models.VisitSession {
	return &models.VisitSession{
		ID:          testSessionID,
		OperatorID:  testOperatorID,
		AgentID:     testAgentID,
		Status:      models.StatusCheckedIn,
		CheckInTime: testCheckIn,
		CheckInLocation: models.GeoFix{
			Latitude: 0, Longitude: 0.5035, DistanceFromOperator: 389,
		},
		Notes: "restock visit",
	}
}

func TestCreateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := NewRepository(mockPool)
		s := newSession()

		mockPool.ExpectBegin()
		mockPool.ExpectExec("INSERT INTO visit_sessions").
			WithArgs(s.ID, s.OperatorID, s.AgentID, models.StatusCheckedIn, s.CheckInTime,
				s.CheckInLocation.Latitude, s.CheckInLocation.Longitude,
				s.CheckInLocation.DistanceFromOperator, s.Notes).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectExec("INSERT INTO location_audits").
			WithArgs(s.ID, s.CheckInTime,
				s.CheckInLocation.Latitude, s.CheckInLocation.Longitude,
				s.CheckInLocation.DistanceFromOperator).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectExec("UPDATE operators SET last_visit_at").
			WithArgs(s.OperatorID, s.CheckInTime).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mockPool.ExpectCommit()
		mockPool.ExpectRollback()

		err = repo.CreateSession(ctx, s)

		assert.NoError(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("PairAlreadyActive", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := NewRepository(mockPool)
		s := newSession()

		// ON CONFLICT DO NOTHING swallows the duplicate and affects no rows
		mockPool.ExpectBegin()
		mockPool.ExpectExec("INSERT INTO visit_sessions").
			WithArgs(s.ID, s.OperatorID, s.AgentID, models.StatusCheckedIn, s.CheckInTime,
				s.CheckInLocation.Latitude, s.CheckInLocation.Longitude,
				s.CheckInLocation.DistanceFromOperator, s.Notes).
			WillReturnResult(pgxmock.NewResult("INSERT", 0))
		mockPool.ExpectRollback()

		err = repo.CreateSession(ctx, s)

		assert.ErrorIs(t, err, models.ErrSessionAlreadyActive)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestAppendAudit(t *testing.T) {
	ctx := context.Background()
	audit := models.LocationAudit{
		SessionID:    testSessionID,
		RecordedAt:   testCheckIn.Add(5 * time.Minute),
		Latitude:     0,
		Longitude:    0.504,
		DistanceM:    445,
		WithinRadius: false,
	}

	t.Run("ViolationUpdatesMaxDistance", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := NewRepository(mockPool)

		mockPool.ExpectBegin()
		mockPool.ExpectExec("INSERT INTO location_audits").
			WithArgs(testSessionID, audit.RecordedAt, audit.Latitude, audit.Longitude,
				audit.DistanceM, audit.WithinRadius).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectExec("UPDATE visit_sessions").
			WithArgs(testSessionID, audit.DistanceM, audit.RecordedAt).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mockPool.ExpectQuery("SELECT COUNT\\(\\*\\) FROM location_audits").
			WithArgs(testSessionID).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(4))
		mockPool.ExpectCommit()
		mockPool.ExpectRollback()

		count, err := repo.AppendAudit(ctx, testSessionID, audit)

		assert.NoError(t, err)
		assert.Equal(t, 4, count)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("SessionClosedMeanwhile", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := NewRepository(mockPool)

		// the guarded INSERT ... SELECT matches nothing once the session left
		// checked-in
		mockPool.ExpectBegin()
		mockPool.ExpectExec("INSERT INTO location_audits").
			WithArgs(testSessionID, audit.RecordedAt, audit.Latitude, audit.Longitude,
				audit.DistanceM, audit.WithinRadius).
			WillReturnResult(pgxmock.NewResult("INSERT", 0))
		mockPool.ExpectRollback()

		_, err = repo.AppendAudit(ctx, testSessionID, audit)

		assert.ErrorIs(t, err, models.ErrSessionNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestCloseSession(t *testing.T) {
	ctx := context.Background()
	closeAt := testCheckIn.Add(45 * time.Minute)

	t.Run("Success", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := NewRepository(mockPool)

		reason := models.ReasonManual
		duration := 45
		rows := pgxmock.NewRows(sessionColumnNames()).AddRow(
			testSessionID, testOperatorID, testAgentID, models.StatusCheckedOut, &reason,
			testCheckIn, &closeAt,
			0.0, 0.5035, 389.0,
			nil, nil, nil,
			nil, &duration, "restock visit",
			testCheckIn, closeAt,
		)
		mockPool.ExpectQuery("UPDATE visit_sessions").
			WithArgs(testSessionID, models.StatusCheckedOut, models.ReasonManual, closeAt,
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnRows(rows)

		closed, err := repo.CloseSession(ctx, testSessionID, SessionClose{
			Status: models.StatusCheckedOut,
			Reason: models.ReasonManual,
			Time:   closeAt,
		})

		require.NoError(t, err)
		assert.Equal(t, models.StatusCheckedOut, closed.Status)
		assert.Equal(t, 45, *closed.TotalDurationMinutes)
		assert.Nil(t, closed.CheckOutLocation)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("AlreadyClosed", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := NewRepository(mockPool)

		// the conditional UPDATE matches nothing when another closer won
		mockPool.ExpectQuery("UPDATE visit_sessions").
			WithArgs(testSessionID, models.StatusAutoCheckout, models.ReasonLocationViolation, closeAt,
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows(sessionColumnNames()))

		_, err = repo.CloseSession(ctx, testSessionID, SessionClose{
			Status:   models.StatusAutoCheckout,
			Reason:   models.ReasonLocationViolation,
			Time:     closeAt,
			Location: &models.GeoFix{Latitude: 0, Longitude: 0.504, DistanceFromOperator: 445},
		})

		assert.ErrorIs(t, err, models.ErrSessionAlreadyClosed)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestGetActiveSessionForPair(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()
	repo := NewRepository(mockPool)

	mockPool.ExpectQuery("SELECT (.+) FROM visit_sessions").
		WithArgs(testAgentID, testOperatorID).
		WillReturnRows(pgxmock.NewRows(sessionColumnNames()))

	_, err = repo.GetActiveSessionForPair(context.Background(), testAgentID, testOperatorID)

	assert.ErrorIs(t, err, models.ErrSessionNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
