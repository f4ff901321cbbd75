package auth

import (
	"net/http"
)

// RequireAdmin allows the request only if RequireUser already resolved a
// role set containing admin.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !RolesFromContext(r.Context()).Has(RoleAdmin) {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
