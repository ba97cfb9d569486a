package middleware

import (
	"net/http"

	"github.com/s/campus/internal/handlers"
	"github.com/s/campus/internal/models"
)

// RequiredRole admits signed-in, enabled users whose role is one of roles.
// With no roles, any signed-in user passes. The resolved profile is put on
// the request context.
func RequiredRole(h *handlers.Handler, roles ...models.Role) func(next http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			uid, ok := h.GetAuthenticatedUID(r)
			if !ok {
				handlers.JSONError(w, "not signed in", http.StatusUnauthorized)
				return
			}

			profile, err := h.App.Directory.ResolveByUID(r.Context(), uid)
			if err != nil {
				h.WriteError(w, err)
				return
			}
			if profile == nil {
				handlers.JSONError(w, "unknown user", http.StatusUnauthorized)
				return
			}
			if profile.Disabled {
				handlers.JSONError(w, "account disabled", http.StatusForbidden)
				return
			}
			if !allowed(profile.Role, roles) {
				handlers.JSONError(w, "insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(handlers.WithProfile(r.Context(), profile)))
		}
	}
}

func allowed(role models.Role, roles []models.Role) bool {
	if len(roles) == 0 {
		return true
	}
	for _, want := range roles {
		if role == want {
			return true
		}
	}
	return false
}
