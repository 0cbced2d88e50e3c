package service

import (
	"context"
	"errors"
	"strings"

	"github.com/ripple-social/ripple/internal/auth/domain"
	"github.com/ripple-social/ripple/internal/auth/store"
	"github.com/ripple-social/ripple/pkg/cryptox"
	"github.com/ripple-social/ripple/pkg/idx"
)

var (
	ErrUserExists    = errors.New("user_exists")
	ErrMissingFields = errors.New("missing_fields")
)

// UserService handles account creation. Everything else about users
// (profiles, posts, follows) lives in downstream services.
type UserService struct {
	Store store.Store
}

// Register creates a new account with an argon2id password hash.
func (s *UserService) Register(
	ctx context.Context,
	name, username, email, password string,
) (domain.User, error) {
	name = strings.TrimSpace(name)
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))

	if name == "" || username == "" || email == "" || password == "" {
		return domain.User{}, ErrMissingFields
	}

	_, err := s.Store.Users().GetUserByUsernameOrEmail(ctx, username, email)
	switch {
	case err == nil:
		return domain.User{}, ErrUserExists
	case !errors.Is(err, store.ErrNotFound):
		return domain.User{}, err
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}

	u := domain.User{
		ID:           idx.New().String(),
		Name:         name,
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}

	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		return domain.User{}, err
	}

	return u, nil
}
