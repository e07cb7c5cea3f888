package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Expiry returns the exp claim of the token. The signature is not verified:
// the client only needs to know when the backend will stop accepting it.
// Tokens that cannot be decoded, or carry no exp claim, report ok=false.
func Expiry(token string) (exp time.Time, ok bool) {
	if token == "" {
		return time.Time{}, false
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}

	claims, err := parsed.Claims.GetExpirationTime()
	if err != nil || claims == nil {
		return time.Time{}, false
	}

	return claims.Time, true
}

// Expired reports whether the token is unusable at now. Malformed tokens are expired.
func Expired(token string, now time.Time) bool {
	exp, ok := Expiry(token)
	if !ok {
		return true
	}
	return !now.Before(exp)
}
