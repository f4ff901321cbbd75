// Package catalog bundles listing persistence and the catalog HTTP handlers.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/marketplace/internal/catalog/store"
	"github.com/example/marketplace/internal/ratings/engine"
)

// Directory adapts a CatalogStore to the rating engine's listing lookups and
// to the in-memory rating store's owner resolution.
type Directory struct {
	Store store.CatalogStore
}

func (d Directory) ProductByID(ctx context.Context, id string) (engine.Listing, error) {
	p, err := d.Store.ProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return engine.Listing{}, engine.ErrNotFound
		}
		return engine.Listing{}, fmt.Errorf("product by id: %w", err)
	}
	return engine.Listing{ID: p.ID, Name: p.Name, OwnerID: p.OwnerID}, nil
}

func (d Directory) ServiceByID(ctx context.Context, id string) (engine.Listing, error) {
	sv, err := d.Store.ServiceByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return engine.Listing{}, engine.ErrNotFound
		}
		return engine.Listing{}, fmt.Errorf("service by id: %w", err)
	}
	return engine.Listing{ID: sv.ID, Name: sv.Name, OwnerID: sv.OwnerID}, nil
}

func (d Directory) ProductOwner(ctx context.Context, id string) (string, error) {
	l, err := d.ProductByID(ctx, id)
	return l.OwnerID, err
}

func (d Directory) ServiceOwner(ctx context.Context, id string) (string, error) {
	l, err := d.ServiceByID(ctx, id)
	return l.OwnerID, err
}
