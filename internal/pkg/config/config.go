package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type PostgresConfig struct {
	Host     string
	Port     string
	DB       string
	Username string
	Password string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

type RepositoriesConfig struct {
	Postgres PostgresConfig
}

type JWTConfig struct {
	SecretKey       string
	TokenExpiration time.Duration
}

// GeofenceConfig carries the visit policy knobs. AllowedRadiusMeters is the
// single radius shared by the eligibility validator and the auto-checkout
// evaluator.
type GeofenceConfig struct {
	AllowedRadiusMeters float64
	MaxSessionDuration  time.Duration
	SweepInterval       time.Duration
}

type Config struct {
	Repositories RepositoriesConfig
	JWT          JWTConfig
	Geofence     GeofenceConfig
	ServerPort   string
}

func Load() (*Config, error) {
	cfg := &Config{
		Repositories: RepositoriesConfig{
			Postgres: PostgresConfig{
				Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
				Port:     getEnvOrDefault("POSTGRES_PORT", "5432"),
				DB:       getEnvOrDefault("POSTGRES_DB", "fieldtrack"),
				Username: getEnvOrDefault("POSTGRES_USER", "postgres"),
				Password: getEnvOrDefault("POSTGRES_PASSWORD", ""),
				SSLMode:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
				MaxConns: 30,
				MinConns: 5,
			},
		},
		JWT: JWTConfig{
			SecretKey:       getEnvOrDefault("JWT_SECRET_KEY", ""),
			TokenExpiration: time.Duration(getEnvIntOrDefault("JWT_EXPIRATION_HOURS", 24)) * time.Hour,
		},
		Geofence: GeofenceConfig{
			AllowedRadiusMeters: getEnvFloatOrDefault("GEOFENCE_RADIUS_METERS", 400),
			MaxSessionDuration:  time.Duration(getEnvIntOrDefault("SESSION_MAX_MINUTES", 720)) * time.Minute,
			SweepInterval:       time.Duration(getEnvIntOrDefault("SESSION_SWEEP_INTERVAL_MINUTES", 5)) * time.Minute,
		},
		ServerPort: getEnvOrDefault("SERVER_PORT", "8080"),
	}

	if cfg.Repositories.Postgres.Password == "" {
		return nil, fmt.Errorf("POSTGRES_PASSWORD environment variable is required")
	}
	if cfg.JWT.SecretKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is required")
	}
	if cfg.Geofence.AllowedRadiusMeters <= 0 {
		return nil, fmt.Errorf("GEOFENCE_RADIUS_METERS must be positive")
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
