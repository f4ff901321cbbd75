package profile

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/marketplace/internal/platform/api"
	"github.com/example/marketplace/internal/platform/httpserver"
	"github.com/example/marketplace/internal/ratings/engine"
)

// Handler serves the public seller profile endpoint.
func Handler(a Assembler, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		username := chi.URLParam(r, "username")
		if username == "" {
			api.BadRequest(w, "MISSING_USERNAME", "username is required", rid, nil)
			return
		}

		p, err := a.ByUsername(r.Context(), username)
		if err != nil {
			if errors.Is(err, engine.ErrNotFound) {
				api.NotFound(w, "USER_NOT_FOUND", "user not found", rid)
				return
			}
			log.Error("assemble profile", zap.String("username", username), zap.Error(err))
			api.Internal(w, rid)
			return
		}
		api.WriteJSON(w, http.StatusOK, p)
	}
}
