package httpx

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ripple-social/ripple/pkg/jwtx"
	"github.com/ripple-social/ripple/pkg/slogx"
)

// Error codes emitted by the auth guard. Expired is deliberately
// distinguishable from invalid so clients know a refresh is worth trying.
const (
	ErrCodeNoToken      = "no_token"
	ErrCodeInvalidToken = "invalid_token"
	ErrCodeExpiredToken = "expired_token"
)

// AuthGuard verifies the bearer access token on protected routes and
// attaches the resulting Principal to the request context. Access tokens
// travel only in the Authorization header, never in cookies.
func AuthGuard(v *jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := BearerToken(r)
			if !ok {
				WriteError(w, http.StatusUnauthorized, ErrCodeNoToken, "no token provided")
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				if errors.Is(err, jwtx.ErrExpired) {
					WriteError(w, http.StatusUnauthorized, ErrCodeExpiredToken, "access token expired")
					return
				}
				log.Warn("access token rejected", "err", err)
				WriteError(w, http.StatusUnauthorized, ErrCodeInvalidToken, "token verification failed")
				return
			}

			ctx = WithPrincipal(ctx, Principal{SubjectID: claims.Subject})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the raw token from an Authorization header using the
// bearer scheme. ok is false when the header is absent or not bearer.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if authz == "" {
		return "", false
	}

	scheme, raw, found := strings.Cut(authz, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}
