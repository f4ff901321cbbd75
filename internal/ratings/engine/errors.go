package engine

import "errors"

// Outcome errors for rating operations. Handlers map these to HTTP statuses;
// everything else is treated as an internal failure.
var (
	ErrInvalidRequest = errors.New("invalid rating request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("rating already exists")
)
