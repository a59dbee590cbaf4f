// Package middleware provides HTTP middleware for the Fete API.
//
// # Available Middleware
//
//   - Auth: bearer token validation and identity resolution
//   - RequireRole: role gate for routes owned by one kind of account
//   - RateLimit: per-client token bucket limiting
//   - Idempotency: replay of POST responses keyed by Idempotency-Key
//   - CORS, RequestID, Logger, Recovery, Compress
//
// # Authentication
//
// Auth resolves the bearer token into a *model.Identity:
//
//	mux.Handle("GET /api/auth/me", middleware.Auth(authService)(meHandler))
//
// Handlers read the caller with GetIdentity(r.Context()).
//
// # Idempotency
//
// Responses are stored in Redis when configured, otherwise in memory:
//
//	store := middleware.NewRedisIdempotencyStore(client, middleware.DefaultIdempotencyTTL)
//	mux.Handle("POST /api/bookings", middleware.Idempotency(store)(createBooking))
//
// # Context Values
//
//   - GetIdentity(ctx): authenticated identity
//   - GetUserID(ctx): authenticated user ID
//   - GetRequestID(ctx): unique request identifier
package middleware
