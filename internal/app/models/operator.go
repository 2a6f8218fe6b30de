package models

import (
	"time"

	"github.com/google/uuid"
)

// Operator is a fixed-location partner site. Coordinates never move while a
// session against the operator is open; the engine only ever stores the
// operator id on sessions and joins the rest back in on reads.
type Operator struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Address         string     `json:"address"`
	ContactPerson   string     `json:"contactPerson"`
	Phone           string     `json:"phone"`
	Latitude        float64    `json:"latitude"`
	Longitude       float64    `json:"longitude"`
	AssignedAgentID uuid.UUID  `json:"assignedAgentId"`
	LastVisitAt     *time.Time `json:"lastVisitAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// OperatorSummary is the read-side projection embedded into session views.
type OperatorSummary struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
}
