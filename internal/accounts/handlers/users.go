package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/marketplace/internal/accounts/store"
	"github.com/example/marketplace/internal/platform/api"
	"github.com/example/marketplace/internal/platform/auth"
	"github.com/example/marketplace/internal/platform/httpserver"
)

// ListUsers returns all accounts. Admin only; enforced by router middleware.
func ListUsers(users store.UserStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		out, err := users.List(r.Context())
		if err != nil {
			log.Error("list users", zap.Error(err))
			api.Internal(w, rid)
			return
		}
		if out == nil {
			out = []store.User{}
		}
		api.WriteJSON(w, http.StatusOK, map[string]any{"items": out, "total_count": len(out)})
	}
}

type updateRolesReq struct {
	Roles []string `json:"roles"`
}

// UpdateRoles replaces a user's role list. Admin only; enforced by router
// middleware. Unknown role names and an empty result are rejected.
func UpdateRoles(users store.UserStore, log *zap.Logger) http.HandlerFunc {
	known := auth.NewRoleSet(auth.RoleUser, auth.RoleProvider, auth.RoleAdmin)

	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		username := chi.URLParam(r, "username")
		if username == "" {
			api.BadRequest(w, "MISSING_USERNAME", "username is required", rid, nil)
			return
		}

		var req updateRolesReq
		if !decodeJSON(w, r, rid, &req) {
			return
		}
		roles := auth.NewRoleSet(req.Roles...).Names()
		if len(roles) == 0 {
			api.BadRequest(w, "EMPTY_ROLES", "at least one role is required", rid, nil)
			return
		}
		for _, role := range roles {
			if !known.Has(role) {
				api.BadRequest(w, "UNKNOWN_ROLE", "unknown role: "+role, rid, nil)
				return
			}
		}

		user, err := users.SetRoles(r.Context(), username, roles)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "USER_NOT_FOUND", "user not found", rid)
				return
			}
			log.Error("set roles", zap.Error(err))
			api.Internal(w, rid)
			return
		}

		log.Info("roles updated", zap.String("username", user.Username), zap.Strings("roles", user.Roles))
		api.WriteJSON(w, http.StatusOK, user)
	}
}
