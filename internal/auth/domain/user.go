package domain

import "time"

// User is an account in the social platform. Only the fields the auth
// service needs live here; posts, follows, and the rest of the social
// graph belong to downstream services.
type User struct {
	ID           string
	Name         string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
