package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	CheckInsTotal          metric.Int64Counter
	CheckOutsTotal         metric.Int64Counter
	AutoCheckoutsTotal     metric.Int64Counter
	LocationAuditsTotal    metric.Int64Counter
	GeofenceViolations     metric.Int64Counter
	ActiveSessionsGauge    metric.Int64UpDownCounter
	SessionDurationMinutes metric.Float64Histogram
	DBQueryDurationSeconds metric.Float64Histogram
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metric instruments once, against the
// globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("fieldtrack")
		var err error
		m := &AppMetrics{}

		m.CheckInsTotal, err = meter.Int64Counter(
			"visit_checkins_total",
			metric.WithDescription("Total number of successful check-ins"),
			metric.WithUnit("{session}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create visit_checkins_total: %v", err)
		}

		m.CheckOutsTotal, err = meter.Int64Counter(
			"visit_checkouts_total",
			metric.WithDescription("Total number of manual checkouts"),
			metric.WithUnit("{session}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create visit_checkouts_total: %v", err)
		}

		m.AutoCheckoutsTotal, err = meter.Int64Counter(
			"visit_auto_checkouts_total",
			metric.WithDescription("Total number of policy-triggered checkouts"),
			metric.WithUnit("{session}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create visit_auto_checkouts_total: %v", err)
		}

		m.LocationAuditsTotal, err = meter.Int64Counter(
			"visit_location_audits_total",
			metric.WithDescription("Total number of location audit entries recorded"),
			metric.WithUnit("{audit}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create visit_location_audits_total: %v", err)
		}

		m.GeofenceViolations, err = meter.Int64Counter(
			"visit_geofence_violations_total",
			metric.WithDescription("Total number of out-of-radius audit entries"),
			metric.WithUnit("{audit}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create visit_geofence_violations_total: %v", err)
		}

		m.ActiveSessionsGauge, err = meter.Int64UpDownCounter(
			"visit_active_sessions",
			metric.WithDescription("Number of currently checked-in sessions"),
			metric.WithUnit("{session}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create visit_active_sessions: %v", err)
		}

		m.SessionDurationMinutes, err = meter.Float64Histogram(
			"visit_session_duration_minutes",
			metric.WithDescription("Duration of closed sessions in minutes"),
			metric.WithUnit("min"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create visit_session_duration_minutes: %v", err)
		}

		m.DBQueryDurationSeconds, err = meter.Float64Histogram(
			"db_query_duration_seconds",
			metric.WithDescription("Duration of database queries in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_duration_seconds: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the global metrics instance, or nil when observability was not
// initialized (tests).
func Get() *AppMetrics {
	return appMetrics
}
