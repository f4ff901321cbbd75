// Package store persists marketplace user accounts.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("user not found")
	ErrConflict = errors.New("user already exists")
)

// User is a marketplace account. Roles is the normalized lowercase role list.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Location  string    `json:"location,omitempty"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
}

// UserRow pairs a user with its password hash for credential checks. The hash
// never leaves the store package boundary otherwise.
type UserRow struct {
	User         User
	PasswordHash string
}

type CreateUserParams struct {
	Username     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        string
	Location     string
	Roles        []string
}

// UserStore defines the contract for account persistence. Username and email
// are unique case-insensitively; violations surface as ErrConflict.
type UserStore interface {
	Create(ctx context.Context, p CreateUserParams) (User, error)
	ByID(ctx context.Context, id string) (User, error)
	ByUsername(ctx context.Context, username string) (User, error)
	// FindByLogin matches either username or email, case-insensitively.
	FindByLogin(ctx context.Context, login string) (UserRow, error)
	List(ctx context.Context) ([]User, error)
	SetRoles(ctx context.Context, username string, roles []string) (User, error)
	Exists(ctx context.Context, id string) (bool, error)
}
