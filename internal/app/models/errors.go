package models

import "errors"

// Domain error taxonomy for the visit session engine. Services and
// repositories return these as-is; handlers translate them to HTTP status
// codes in one place. Storage failures are wrapped and surface as a generic
// internal error, never as one of these.
var (
	ErrNotFound             = errors.New("requested item not found")
	ErrUnauthenticated      = errors.New("authentication required or invalid credentials")
	ErrForbidden            = errors.New("action forbidden")
	ErrBadRequest           = errors.New("bad request")
	ErrInvalidLocation      = errors.New("location coordinates are missing or malformed")
	ErrOperatorNotAssigned  = errors.New("operator is not assigned to this agent")
	ErrSessionAlreadyActive = errors.New("an active session already exists for this agent and operator")
	ErrOutOfRange           = errors.New("distance exceeds the allowed radius")
	ErrSessionNotFound      = errors.New("active session not found")
	ErrSessionAlreadyClosed = errors.New("session is already closed")
)
