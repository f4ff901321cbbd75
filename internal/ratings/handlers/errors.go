package handlers

import (
	"errors"
	"net/http"

	"github.com/example/marketplace/internal/platform/api"
	"github.com/example/marketplace/internal/ratings/engine"
)

// writeEngineError maps an engine outcome to the API error envelope.
func writeEngineError(w http.ResponseWriter, rid string, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidRequest):
		api.BadRequest(w, "INVALID_REQUEST", err.Error(), rid, nil)
	case errors.Is(err, engine.ErrUnauthorized):
		api.Unauthorized(w, "AUTH_MISSING", "authentication required", rid)
	case errors.Is(err, engine.ErrForbidden):
		api.Forbidden(w, "FORBIDDEN", err.Error(), rid)
	case errors.Is(err, engine.ErrNotFound):
		api.NotFound(w, "NOT_FOUND", err.Error(), rid)
	case errors.Is(err, engine.ErrConflict):
		api.Conflict(w, "ALREADY_RATED", err.Error(), rid, nil)
	default:
		api.Internal(w, rid)
	}
}
