// Package store persists catalog listings: categories, products, and
// services. Products and services are the two rateable listing kinds; both
// carry the owning provider's user id.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("listing not found")
	ErrConflict = errors.New("listing already exists")
)

type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Stock       int       `json:"stock"`
	ImageURL    string    `json:"image_url,omitempty"`
	CategoryID  string    `json:"category_id,omitempty"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type Service struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	EstimatedPrice float64   `json:"estimated_price"`
	ImageURL       string    `json:"image_url,omitempty"`
	CategoryID     string    `json:"category_id,omitempty"`
	OwnerID        string    `json:"owner_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// ListParams selects one page. Page is 1-based.
type ListParams struct {
	Page int
	Size int
}

func (p ListParams) offset() int { return (p.Page - 1) * p.Size }

// CatalogStore defines the contract for listing persistence. Lists are
// ordered by creation time descending and return the total row count.
type CatalogStore interface {
	CreateCategory(ctx context.Context, c Category) (Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
	CategoryExists(ctx context.Context, id string) (bool, error)

	CreateProduct(ctx context.Context, p Product) (Product, error)
	ProductByID(ctx context.Context, id string) (Product, error)
	ListProducts(ctx context.Context, pg ListParams) ([]Product, int64, error)
	DeleteProduct(ctx context.Context, id string) error

	CreateService(ctx context.Context, s Service) (Service, error)
	ServiceByID(ctx context.Context, id string) (Service, error)
	ListServices(ctx context.Context, pg ListParams) ([]Service, int64, error)
	DeleteService(ctx context.Context, id string) error
}
