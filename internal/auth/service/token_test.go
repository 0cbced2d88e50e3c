package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ripple-social/ripple/internal/auth/domain"
	"github.com/ripple-social/ripple/internal/auth/store"
	"github.com/ripple-social/ripple/pkg/cryptox"
	"github.com/ripple-social/ripple/pkg/jwtx"
)

// memStore is an in-memory store.Store for service tests.
type memStore struct {
	users map[string]domain.User // keyed by ID
}

func newMemStore() *memStore {
	return &memStore{users: make(map[string]domain.User)}
}

func (m *memStore) Users() store.Users         { return m }
func (m *memStore) Ping(context.Context) error { return nil }
func (m *memStore) Close() error               { return nil }

func (m *memStore) GetUserByID(_ context.Context, id string) (domain.User, error) {
	u, ok := m.users[id]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return u, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, store.ErrNotFound
}

func (m *memStore) GetUserByUsernameOrEmail(_ context.Context, username, email string) (domain.User, error) {
	for _, u := range m.users {
		if u.Username == username || u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, store.ErrNotFound
}

func (m *memStore) CreateUser(_ context.Context, u domain.User) error {
	m.users[u.ID] = u
	return nil
}

func newTokenService(t *testing.T, st store.Store, refreshTTL time.Duration) *TokenService {
	t.Helper()
	return &TokenService{
		Store:           st,
		AccessSigner:    jwtx.NewSigner([]byte("test-access-secret"), "ripple-auth", 15*time.Minute),
		RefreshSigner:   jwtx.NewSigner([]byte("test-refresh-secret"), "ripple-auth", refreshTTL),
		RefreshVerifier: jwtx.NewVerifier([]byte("test-refresh-secret"), "ripple-auth"),
	}
}

func seedUser(t *testing.T, st *memStore, password string) domain.User {
	t.Helper()

	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)

	u := domain.User{
		ID:           "user-1",
		Name:         "Alice Example",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: hash,
	}
	require.NoError(t, st.CreateUser(context.Background(), u))
	return u
}

func TestTokenServiceLogin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newMemStore()
	svc := newTokenService(t, st, 7*24*time.Hour)
	user := seedUser(t, st, "hunter2")

	t.Run("valid credentials mint both tokens", func(t *testing.T) {
		sess, err := svc.Login(ctx, "alice@example.com", "hunter2")
		require.NoError(t, err)
		require.NotEmpty(t, sess.AccessToken)
		require.NotEmpty(t, sess.RefreshToken)
		require.NotEqual(t, sess.AccessToken, sess.RefreshToken)
		require.Equal(t, user.ID, sess.User.ID)

		// Access token verifies against the access secret only.
		accessVerifier := jwtx.NewVerifier([]byte("test-access-secret"), "ripple-auth")
		claims, err := accessVerifier.Verify(sess.AccessToken)
		require.NoError(t, err)
		require.Equal(t, user.ID, claims.Subject)

		_, err = accessVerifier.Verify(sess.RefreshToken)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, "alice@example.com", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown account reports the same error as wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, "nobody@example.com", "hunter2")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestTokenServiceRefresh(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("valid refresh rotates both tokens", func(t *testing.T) {
		st := newMemStore()
		svc := newTokenService(t, st, 7*24*time.Hour)
		seedUser(t, st, "hunter2")

		first, err := svc.Login(ctx, "alice@example.com", "hunter2")
		require.NoError(t, err)

		next, err := svc.Refresh(ctx, first.RefreshToken)
		require.NoError(t, err)
		require.NotEmpty(t, next.AccessToken)
		require.NotEqual(t, first.AccessToken, next.AccessToken)
		require.NotEqual(t, first.RefreshToken, next.RefreshToken)
	})

	t.Run("access token is not accepted as a refresh token", func(t *testing.T) {
		st := newMemStore()
		svc := newTokenService(t, st, 7*24*time.Hour)
		seedUser(t, st, "hunter2")

		sess, err := svc.Login(ctx, "alice@example.com", "hunter2")
		require.NoError(t, err)

		_, err = svc.Refresh(ctx, sess.AccessToken)
		require.ErrorIs(t, err, ErrInvalidRefresh)
	})

	t.Run("expired refresh token", func(t *testing.T) {
		st := newMemStore()
		svc := newTokenService(t, st, -time.Minute)
		seedUser(t, st, "hunter2")

		sess, err := svc.Login(ctx, "alice@example.com", "hunter2")
		require.NoError(t, err)

		_, err = svc.Refresh(ctx, sess.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidRefresh)
	})

	t.Run("subject deleted after minting", func(t *testing.T) {
		st := newMemStore()
		svc := newTokenService(t, st, 7*24*time.Hour)
		seedUser(t, st, "hunter2")

		sess, err := svc.Login(ctx, "alice@example.com", "hunter2")
		require.NoError(t, err)

		delete(st.users, "user-1")

		_, err = svc.Refresh(ctx, sess.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidRefresh)
	})

	t.Run("garbage token", func(t *testing.T) {
		st := newMemStore()
		svc := newTokenService(t, st, 7*24*time.Hour)

		_, err := svc.Refresh(ctx, "not-a-jwt")
		require.ErrorIs(t, err, ErrInvalidRefresh)
	})
}

func TestUserServiceRegister(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("creates user with hashed password", func(t *testing.T) {
		st := newMemStore()
		svc := &UserService{Store: st}

		u, err := svc.Register(ctx, "Bob Example", "bob", "Bob@Example.com", "s3cret")
		require.NoError(t, err)
		require.NotEmpty(t, u.ID)
		require.Equal(t, "bob@example.com", u.Email, "email is normalised to lower case")
		require.NotEqual(t, "s3cret", u.PasswordHash)
		require.NoError(t, cryptox.VerifyPassword("s3cret", u.PasswordHash))
	})

	t.Run("duplicate username or email", func(t *testing.T) {
		st := newMemStore()
		svc := &UserService{Store: st}

		_, err := svc.Register(ctx, "Bob", "bob", "bob@example.com", "s3cret")
		require.NoError(t, err)

		_, err = svc.Register(ctx, "Other", "bob", "other@example.com", "s3cret")
		require.ErrorIs(t, err, ErrUserExists)

		_, err = svc.Register(ctx, "Other", "other", "bob@example.com", "s3cret")
		require.ErrorIs(t, err, ErrUserExists)
	})

	t.Run("missing fields", func(t *testing.T) {
		st := newMemStore()
		svc := &UserService{Store: st}

		_, err := svc.Register(ctx, "", "bob", "bob@example.com", "s3cret")
		require.ErrorIs(t, err, ErrMissingFields)

		_, err = svc.Register(ctx, "Bob", "bob", "bob@example.com", "")
		require.ErrorIs(t, err, ErrMissingFields)
	})
}
