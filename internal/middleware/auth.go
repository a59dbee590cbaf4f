package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/forgo/fete/api/internal/model"
	"github.com/forgo/fete/api/internal/service"
)

// IdentityResolver turns a bearer token into the identity it belongs to
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, token string) (*model.Identity, error)
}

// IdentityKey is the context key for the resolved identity
const IdentityKey contextKey = "identity"

// Auth returns a middleware that resolves the bearer token to an identity.
// Requests without a valid token are rejected with 401.
func Auth(resolver IdentityResolver) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, problem := bearerToken(r)
			if problem != nil {
				problem.WriteJSON(w)
				return
			}

			identity, err := resolver.ResolveIdentity(r.Context(), token)
			if err != nil {
				if errors.Is(err, service.ErrUnauthorized) {
					unauthorizedProblem(err).WriteJSON(w)
					return
				}
				slog.Error("identity lookup failed",
					slog.String("request_id", GetRequestID(r.Context())),
					slog.String("error", err.Error()),
				)
				model.NewInternalError("").WriteJSON(w)
				return
			}

			ctx := context.WithValue(r.Context(), IdentityKey, identity)
			ctx = context.WithValue(ctx, UserIDKey, identity.ID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// unauthorizedProblem tells clients whether the token expired or is bad
func unauthorizedProblem(err error) *model.ProblemDetails {
	pd := model.NewUnauthorizedError(service.Detail(err))
	switch {
	case errors.Is(err, service.ErrTokenExpired):
		pd.Code = model.ErrCodeTokenExpired
	case errors.Is(err, service.ErrInvalidToken):
		pd.Code = model.ErrCodeTokenInvalid
	}
	return pd
}

func bearerToken(r *http.Request) (string, *model.ProblemDetails) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", model.NewUnauthorizedError("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", model.NewUnauthorizedError("invalid authorization header format")
	}
	return strings.TrimSpace(parts[1]), nil
}

// GetIdentity extracts the resolved identity from context
func GetIdentity(ctx context.Context) *model.Identity {
	if identity, ok := ctx.Value(IdentityKey).(*model.Identity); ok {
		return identity
	}
	return nil
}

// GetUserID extracts the user ID from context
func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}
