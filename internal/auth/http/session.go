package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ripple-social/ripple/internal/auth/service"
	"github.com/ripple-social/ripple/pkg/httpx"
	"github.com/ripple-social/ripple/pkg/slogx"
)

// RefreshCookieName is the HTTP-only cookie carrying the refresh token.
// The refresh token never travels in a header or body.
const RefreshCookieName = "refreshToken"

// RefreshCookiePath scopes the cookie to the auth endpoints so it is not
// replayed to every service behind the gateway.
const RefreshCookiePath = "/auth"

// SessionHandler serves login, refresh, and logout.
type SessionHandler struct {
	TokenService *service.TokenService

	// SecureCookies marks the refresh cookie Secure; off in dev over http.
	SecureCookies bool
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PrincipalPayload is the user identity returned to the client at login.
type PrincipalPayload struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

type loginResponse struct {
	AccessToken string           `json:"accessToken"`
	Principal   PrincipalPayload `json:"principal"`
}

type refreshResponse struct {
	NewAccessToken string `json:"newAccessToken"`
}

func (h *SessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_body", "malformed JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "missing_fields", "email and password are required")
		return
	}

	sess, err := h.TokenService.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "email or password is incorrect")
			return
		}
		log.Error("login failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "login failed")
		return
	}

	h.setRefreshCookie(w, sess.RefreshToken, sess.RefreshTTL)
	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		AccessToken: sess.AccessToken,
		Principal: PrincipalPayload{
			ID:       sess.User.ID,
			Username: sess.User.Username,
			Email:    sess.User.Email,
			Name:     sess.User.Name,
		},
	})
}

func (h *SessionHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	cookie, err := r.Cookie(RefreshCookieName)
	if err != nil || cookie.Value == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "missing_token", "refresh token missing")
		return
	}

	sess, err := h.TokenService.Refresh(ctx, cookie.Value)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRefresh) {
			httpx.WriteError(w, http.StatusForbidden, "expired_or_invalid_refresh",
				"invalid or expired refresh token")
			return
		}
		log.Error("refresh failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "refresh failed")
		return
	}

	// Rotate: every successful refresh replaces the cookie.
	h.setRefreshCookie(w, sess.RefreshToken, sess.RefreshTTL)
	httpx.WriteJSON(w, http.StatusOK, refreshResponse{NewAccessToken: sess.AccessToken})
}

// HandleLogout clears the refresh cookie. Stateless: a previously issued
// refresh token stays cryptographically valid until its natural expiry,
// logout only removes the client's copy.
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     RefreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (h *SessionHandler) setRefreshCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     RefreshCookiePath,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
