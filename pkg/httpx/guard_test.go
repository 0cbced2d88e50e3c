package httpx_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ripple-social/ripple/pkg/httpx"
	"github.com/ripple-social/ripple/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const guardIssuer = "ripple-auth"

var guardSecret = []byte("guard-test-access-secret")

func guardedEcho(t *testing.T) http.Handler {
	t.Helper()
	verifier := jwtx.NewVerifier(guardSecret, guardIssuer)

	// Echoes the principal's subject so tests can see what the guard attached.
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := httpx.PrincipalFromContext(r.Context())
		require.True(t, ok, "handler reached without principal")
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"subject": p.SubjectID})
	})

	return httpx.Chain(inner, httpx.AuthGuard(verifier))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body httpx.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error
}

func TestAuthGuardMissingToken(t *testing.T) {
	t.Parallel()
	h := guardedEcho(t)

	for name, decorate := range map[string]func(*http.Request){
		"no header":       func(r *http.Request) {},
		"not bearer":      func(r *http.Request) { r.Header.Set("Authorization", "Basic abc123") },
		"empty bearer":    func(r *http.Request) { r.Header.Set("Authorization", "Bearer ") },
		"cookie is noise": func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "accessToken", Value: "x"}) },
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/feed", nil)
			decorate(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, http.StatusUnauthorized, rec.Code)
			require.Equal(t, "no_token", errorCode(t, rec))
		})
	}
}

// Wrong-secret tokens and expired tokens must be distinguishable by
// response content, not just status code.
func TestAuthGuardDiscriminatesExpiredFromInvalid(t *testing.T) {
	t.Parallel()
	h := guardedEcho(t)

	t.Run("wrong secret", func(t *testing.T) {
		raw, err := jwtx.NewSigner([]byte("some-other-secret"), guardIssuer, time.Minute).
			Sign("user-1", time.Now())
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/feed", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "invalid_token", errorCode(t, rec))
	})

	t.Run("expired", func(t *testing.T) {
		raw, err := jwtx.NewSigner(guardSecret, guardIssuer, time.Minute).
			Sign("user-1", time.Now().Add(-time.Hour))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/feed", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "expired_token", errorCode(t, rec))
	})
}

func TestAuthGuardAttachesPrincipal(t *testing.T) {
	t.Parallel()
	h := guardedEcho(t)

	raw, err := jwtx.NewSigner(guardSecret, guardIssuer, time.Minute).Sign("user-42", time.Now())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/feed", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "user-42", body["subject"])
}
