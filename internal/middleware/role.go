package middleware

import (
	"net/http"

	"github.com/forgo/fete/api/internal/model"
)

// RequireRole returns a middleware that only admits identities holding one
// of roles. It must run after Auth.
func RequireRole(roles ...model.Role) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := GetIdentity(r.Context())
			if identity == nil {
				model.NewUnauthorizedError("authentication required").WriteJSON(w)
				return
			}

			for _, role := range roles {
				if identity.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}

			problem := model.NewForbiddenError("role not permitted for this action")
			problem.Code = model.ErrCodeWrongRole
			problem.WriteJSON(w)
		})
	}
}
