// Package accounts bundles user persistence, token issuance, and the account
// HTTP handlers.
package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/marketplace/internal/accounts/store"
	"github.com/example/marketplace/internal/ratings/engine"
)

// Directory adapts a UserStore to the rating engine's user lookups.
type Directory struct {
	Users store.UserStore
}

func (d Directory) UsernameByID(ctx context.Context, id string) (string, error) {
	u, err := d.Users.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", engine.ErrNotFound
		}
		return "", fmt.Errorf("user by id: %w", err)
	}
	return u.Username, nil
}

func (d Directory) Exists(ctx context.Context, id string) (bool, error) {
	return d.Users.Exists(ctx, id)
}
