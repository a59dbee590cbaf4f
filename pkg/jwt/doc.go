// Package jwt provides JSON Web Token utilities for the Fete API.
//
// Tokens are HS256-signed and carry the identity id in the user_id claim.
// They expire after seven days unless configured otherwise.
//
// # Token Generation
//
//	service, err := jwt.NewService(jwt.Config{
//	    Secret:     os.Getenv("JWT_SECRET"),
//	    Issuer:     "fete-api",
//	    Expiration: 7 * 24 * time.Hour,
//	})
//
//	token, err := service.Sign(user.ID, string(user.Role))
//
// # Token Validation
//
//	claims, err := service.Validate(tokenString)
//	if errors.Is(err, jwt.ErrTokenExpired) {
//	    // Ask the client to log in again
//	}
//	userID := claims.UserID
package jwt
