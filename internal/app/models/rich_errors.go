package models

import (
	"fmt"

	"github.com/google/uuid"
)

// OutOfRangeError carries the measured distance alongside the policy radius
// so the client can see how far off it is. Unwraps to ErrOutOfRange.
type OutOfRangeError struct {
	Distance      float64
	AllowedRadius float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("distance %.0fm exceeds the allowed radius of %.0fm", e.Distance, e.AllowedRadius)
}

func (e *OutOfRangeError) Unwrap() error { return ErrOutOfRange }

// ActiveSessionError references the conflicting session so the client can
// resume it instead of retrying blindly. Unwraps to ErrSessionAlreadyActive.
type ActiveSessionError struct {
	SessionID uuid.UUID
}

func (e *ActiveSessionError) Error() string {
	return fmt.Sprintf("an active session already exists: %s", e.SessionID)
}

func (e *ActiveSessionError) Unwrap() error { return ErrSessionAlreadyActive }
