// Package store defines the persistence interfaces used by the auth
// service. Drivers live in subpackages.
package store

import (
	"context"
	"errors"

	"github.com/ripple-social/ripple/internal/auth/domain"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the top-level database handle passed into services.
type Store interface {
	Users() Users
	Ping(ctx context.Context) error
	Close() error
}

// Users is the account repository.
type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	GetUserByUsernameOrEmail(ctx context.Context, username, email string) (domain.User, error)
	CreateUser(ctx context.Context, u domain.User) error
}
