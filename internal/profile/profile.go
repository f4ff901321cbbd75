// Package profile assembles the public seller profile: account attributes
// combined with the provider's rating aggregates.
package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/marketplace/internal/accounts/store"
	"github.com/example/marketplace/internal/ratings/engine"
)

// SellerProfile is the public view of a provider.
type SellerProfile struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Location  string `json:"location,omitempty"`

	engine.ProviderStats
}

// Assembler builds seller profiles from the user store and the rating engine.
type Assembler struct {
	Users store.UserStore
	Stats *engine.Engine
}

// ByUsername looks up the user and attaches their rating aggregates. A user
// with no listings or ratings gets all-zero stats.
func (a Assembler) ByUsername(ctx context.Context, username string) (SellerProfile, error) {
	u, err := a.Users.ByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return SellerProfile{}, fmt.Errorf("user %s: %w", username, engine.ErrNotFound)
		}
		return SellerProfile{}, fmt.Errorf("user by username: %w", err)
	}

	stats, err := a.Stats.ProviderStats(ctx, u.ID)
	if err != nil {
		return SellerProfile{}, err
	}

	return SellerProfile{
		UserID:        u.ID,
		Username:      u.Username,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Location:      u.Location,
		ProviderStats: stats,
	}, nil
}
