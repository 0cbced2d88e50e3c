package service

import (
	"context"
	"errors"
	"time"

	"github.com/ripple-social/ripple/internal/auth/domain"
	"github.com/ripple-social/ripple/internal/auth/store"
	"github.com/ripple-social/ripple/pkg/cryptox"
	"github.com/ripple-social/ripple/pkg/jwtx"
	"github.com/ripple-social/ripple/pkg/slogx"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidRefresh     = errors.New("expired_or_invalid_refresh")
)

// TokenService mints and rotates the platform's credentials. Access and
// refresh tokens are signed with distinct secrets; the refresh token is
// purely cryptographic state, nothing is persisted per session.
type TokenService struct {
	Store           store.Store
	AccessSigner    *jwtx.Signer
	RefreshSigner   *jwtx.Signer
	RefreshVerifier *jwtx.Verifier
}

// Session is the result of a successful login or refresh: a fresh access
// token, a (new or rotated) refresh token, and the authenticated user.
type Session struct {
	AccessToken  string
	RefreshToken string
	RefreshTTL   time.Duration
	User         domain.User
}

// Login verifies credentials and mints both token kinds. A missing user
// and a wrong password are indistinguishable to the caller.
func (s *TokenService) Login(ctx context.Context, email, password string) (*Session, error) {
	l := slogx.FromContext(ctx)

	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := cryptox.VerifyPassword(password, u.PasswordHash); err != nil {
		l.Info("password verification failed", "user_id", u.ID)
		return nil, ErrInvalidCredentials
	}

	return s.mintSession(u)
}

// Refresh validates a refresh token, confirms the subject still exists,
// and mints a brand-new access token plus a rotated refresh token. The
// previous refresh token is not revoked server-side; rotation replaces it
// at the client and the old value simply ages out (documented gap, no
// reuse detection).
func (s *TokenService) Refresh(ctx context.Context, refreshRaw string) (*Session, error) {
	l := slogx.FromContext(ctx)

	claims, err := s.RefreshVerifier.Verify(refreshRaw)
	if err != nil {
		l.Info("refresh token rejected", "err", err)
		return nil, ErrInvalidRefresh
	}

	u, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Subject was deleted after the token was minted.
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}

	return s.mintSession(u)
}

func (s *TokenService) mintSession(u domain.User) (*Session, error) {
	now := time.Now()

	access, err := s.AccessSigner.Sign(u.ID, now)
	if err != nil {
		return nil, err
	}

	refresh, err := s.RefreshSigner.Sign(u.ID, now)
	if err != nil {
		return nil, err
	}

	return &Session{
		AccessToken:  access,
		RefreshToken: refresh,
		RefreshTTL:   s.RefreshSigner.TTL(),
		User:         u,
	}, nil
}
