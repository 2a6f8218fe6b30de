package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionListStats summarizes the sessions matching an admin list query.
type SessionListStats struct {
	TotalSessions     int     `json:"totalSessions"`
	CompletedSessions int     `json:"completedSessions"`
	AutoCheckouts     int     `json:"autoCheckouts"`
	AverageDuration   float64 `json:"averageDuration"`
}

// DailyVisitStats is one day in the rolling check-in time series.
type DailyVisitStats struct {
	Date              string `json:"date"`
	TotalCheckIns     int    `json:"totalCheckIns"`
	CompletedSessions int    `json:"completedSessions"`
	AutoCheckouts     int    `json:"autoCheckouts"`
}

// AgentPerformance aggregates one agent's sessions over the window.
type AgentPerformance struct {
	AgentID           uuid.UUID `json:"agentId"`
	Email             string    `json:"email"`
	Name              string    `json:"name"`
	TotalSessions     int       `json:"totalSessions"`
	CompletedSessions int       `json:"completedSessions"`
	AutoCheckouts     int       `json:"autoCheckouts"`
	AverageDuration   float64   `json:"averageDuration"`
	TotalViolations   int       `json:"totalViolations"`
	CompletionRate    float64   `json:"completionRate"`
}

// OperatorVisitStats aggregates visit frequency for one operator.
type OperatorVisitStats struct {
	OperatorID     uuid.UUID `json:"operatorId"`
	Name           string    `json:"name"`
	Address        string    `json:"address"`
	VisitCount     int       `json:"visitCount"`
	UniqueVisitors int       `json:"uniqueVisitors"`
	LastVisit      time.Time `json:"lastVisit"`
}

// AnalyticsReport is the full admin analytics payload for a rolling window.
type AnalyticsReport struct {
	Daily     []DailyVisitStats    `json:"dailyStats"`
	Agents    []AgentPerformance   `json:"bdPerformance"`
	Operators []OperatorVisitStats `json:"operatorStats"`
	Period    AnalyticsPeriod      `json:"period"`
}

type AnalyticsPeriod struct {
	Days      int       `json:"days"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

// SessionFilter narrows an admin session list query. Zero values mean "no
// constraint".
type SessionFilter struct {
	Status     string
	AgentID    *uuid.UUID
	OperatorID *uuid.UUID
	DateFrom   *time.Time
	DateTo     *time.Time
}

// Pagination is the shared paging envelope.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}
