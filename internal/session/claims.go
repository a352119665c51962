package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessExpiry reads the exp claim of a JWT access token. The signature is
// not verified: the value is for display only and the server remains the
// authority on validity. ok is false for non-JWT tokens or tokens without exp.
func AccessExpiry(access string) (exp time.Time, ok bool) {
	if access == "" {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		return time.Time{}, false
	}

	nd, err := claims.GetExpirationTime()
	if err != nil || nd == nil {
		return time.Time{}, false
	}

	return nd.Time, true
}
