// Package jwtx signs and verifies the platform's HMAC tokens. Access and
// refresh tokens are ordinary JWTs signed with distinct secrets so that
// compromise of one secret cannot forge the other kind.
package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTLs. Access tokens are short-lived and travel on every
// request; refresh tokens live for days inside an HTTP-only cookie.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Claims is the signed claim set carried by both token kinds. The subject
// is the user ID; everything else is standard registered claims.
type Claims struct {
	jwt.RegisteredClaims
}

// NewClaims builds a minimally-correct claim set for the given subject.
func NewClaims(subject, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
