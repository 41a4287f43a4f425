package session

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// NormalizeToken strips the cookie-string form some backend builds return
// ("jwt=<value>; Path=/; HttpOnly") down to the bare token value.
func NormalizeToken(raw string) string {
	if !strings.Contains(raw, ";") {
		return raw
	}
	cookiePart := strings.SplitN(raw, ";", 2)[0]
	if idx := strings.Index(cookiePart, "="); idx != -1 {
		return cookiePart[idx+1:]
	}
	return cookiePart
}

// tokenExpired inspects the JWT expiry claim without verifying the
// signature (verification is the backend's job). Opaque or claimless
// tokens are kept; the backend decides their fate on first use.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}
