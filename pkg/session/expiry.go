package session

import (
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// TokenExpired reports whether token is a JWT whose exp claim has passed.
// The canonical backend issues opaque tokens, for which this returns false;
// JWT-issuing deployments get client-side failed-session detection without a
// round trip. The signature is deliberately not verified: this is a UX
// shortcut, the server remains the authority.
func TokenExpired(token string) bool {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}
