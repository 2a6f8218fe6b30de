package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visitops/fieldtrack/internal/app/models"
)

var (
	filterAgentID    = uuid.MustParse("7b9f38f2-9f0e-4c6f-9a41-111111111111")
	filterOperatorID = uuid.MustParse("c1a2b3d4-0e0f-4a5b-8c7d-222222222222")
)

func TestApplyFilter(t *testing.T) {
	base := psql.Select("COUNT(*)").From("visit_sessions v")

	t.Run("NoConstraints", func(t *testing.T) {
		query, args, err := applyFilter(base, models.SessionFilter{}).ToSql()

		require.NoError(t, err)
		assert.Equal(t, "SELECT COUNT(*) FROM visit_sessions v", query)
		assert.Empty(t, args)
	})

	t.Run("StatusOnly", func(t *testing.T) {
		query, args, err := applyFilter(base, models.SessionFilter{
			Status: models.StatusAutoCheckout,
		}).ToSql()

		require.NoError(t, err)
		assert.Contains(t, query, "WHERE v.status = $1")
		assert.Equal(t, []interface{}{models.StatusAutoCheckout}, args)
	})

	t.Run("DateRangeOnly", func(t *testing.T) {
		from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
		to := from.AddDate(0, 1, 0)

		query, args, err := applyFilter(base, models.SessionFilter{
			DateFrom: &from,
			DateTo:   &to,
		}).ToSql()

		require.NoError(t, err)
		assert.Contains(t, query, "v.check_in_time >= $1")
		assert.Contains(t, query, "v.check_in_time <= $2")
		assert.Equal(t, []interface{}{from, to}, args)
	})

	t.Run("AllConstraintsInOrder", func(t *testing.T) {
		from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
		to := from.AddDate(0, 1, 0)

		query, args, err := applyFilter(base, models.SessionFilter{
			Status:     models.StatusCheckedOut,
			AgentID:    &filterAgentID,
			OperatorID: &filterOperatorID,
			DateFrom:   &from,
			DateTo:     &to,
		}).ToSql()

		require.NoError(t, err)
		assert.Contains(t, query,
			"WHERE v.status = $1 AND v.agent_id = $2 AND v.operator_id = $3"+
				" AND v.check_in_time >= $4 AND v.check_in_time <= $5")
		assert.Equal(t, []interface{}{
			models.StatusCheckedOut, filterAgentID, filterOperatorID, from, to,
		}, args)
	})
}

func TestAdminListSessions(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()
	repo := NewRepository(mockPool)

	checkIn := time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)
	checkOut := checkIn.Add(50 * time.Minute)
	reason := models.ReasonManual
	duration := 50
	sessionID := uuid.MustParse("3d3d3d3d-0000-4000-8000-333333333333")

	listColumns := []string{
		"id", "operator_id", "agent_id", "status", "checkout_reason",
		"check_in_time", "check_out_time",
		"check_in_lat", "check_in_lng", "check_in_distance_m",
		"max_distance_violated_m", "total_duration_minutes", "notes",
		"operator_name", "operator_address", "operator_lat", "operator_lng",
		"agent_email", "agent_name", "agent_role",
	}

	// filter predicates flow into both the page query and the count query
	mockPool.ExpectQuery("SELECT (.+) FROM visit_sessions v JOIN operators o (.+) WHERE v.status = \\$1 ORDER BY v.check_in_time DESC LIMIT 20 OFFSET 0").
		WithArgs(models.StatusCheckedOut).
		WillReturnRows(pgxmock.NewRows(listColumns).AddRow(
			sessionID, filterOperatorID, filterAgentID, models.StatusCheckedOut, &reason,
			checkIn, &checkOut,
			0.0, 0.5035, 389.0,
			nil, &duration, "restock visit",
			"Mercado Central", "Av. Alameda 12", 0.0, 0.5,
			"bd@fieldtrack.dev", "Ana Reyes", "BD",
		))
	mockPool.ExpectQuery("SELECT COUNT\\(\\*\\) FROM visit_sessions v WHERE v.status = \\$1").
		WithArgs(models.StatusCheckedOut).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(41))

	sessions, total, err := repo.ListSessions(context.Background(),
		models.SessionFilter{Status: models.StatusCheckedOut}, 1, 20)

	require.NoError(t, err)
	assert.Equal(t, 41, total)
	require.Len(t, sessions, 1)
	assert.Equal(t, sessionID, sessions[0].ID)
	require.NotNil(t, sessions[0].Operator)
	assert.Equal(t, filterOperatorID, sessions[0].Operator.ID)
	assert.Equal(t, "Mercado Central", sessions[0].Operator.Name)
	require.NotNil(t, sessions[0].Agent)
	assert.Equal(t, filterAgentID, sessions[0].Agent.ID)
	assert.Equal(t, "Ana Reyes", sessions[0].Agent.Name)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestListStatsFiltered(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()
	repo := NewRepository(mockPool)

	mockPool.ExpectQuery("SELECT COUNT\\(\\*\\), (.+) FROM visit_sessions v WHERE v.agent_id = \\$1").
		WithArgs(filterAgentID).
		WillReturnRows(pgxmock.NewRows([]string{"total", "completed", "auto", "avg"}).
			AddRow(12, 9, 2, 47.5))

	stats, err := repo.ListStats(context.Background(),
		models.SessionFilter{AgentID: &filterAgentID})

	require.NoError(t, err)
	assert.Equal(t, 12, stats.TotalSessions)
	assert.Equal(t, 9, stats.CompletedSessions)
	assert.Equal(t, 2, stats.AutoCheckouts)
	assert.InDelta(t, 47.5, stats.AverageDuration, 0.001)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
