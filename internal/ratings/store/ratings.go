// Package store persists rating records. Uniqueness of one rating per
// (rater, product) and per (rater, service) pair is owned by the store; a
// violated constraint surfaces as ErrConflict so concurrent submissions can
// never produce a duplicate row.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("rating not found")
	ErrConflict = errors.New("duplicate rating")
)

// Rating is a persisted rating record. Exactly one of ProductID/ServiceID is
// set. Records are immutable after creation.
type Rating struct {
	ID        string    `json:"id"`
	RaterID   string    `json:"rater_id"`
	ProductID *string   `json:"product_id,omitempty"`
	ServiceID *string   `json:"service_id,omitempty"`
	Score     int       `json:"score"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateParams carries the caller-supplied fields of a new rating; the store
// assigns id and creation timestamp.
type CreateParams struct {
	RaterID   string
	ProductID *string
	ServiceID *string
	Score     int
	Comment   string
}

// ListParams selects one page of a listing. Page is 1-based.
type ListParams struct {
	Page int
	Size int
}

func (p ListParams) offset() int { return (p.Page - 1) * p.Size }

// CategoryStats is one provider-side aggregate: the unrounded mean score and
// the row count for one listing category. Average is 0 when Count is 0.
type CategoryStats struct {
	Average float64
	Count   int64
}

// OwnerResolver maps a listing to its owning user. The Postgres store joins
// the listing tables directly; the in-memory store resolves through this.
type OwnerResolver interface {
	ProductOwner(ctx context.Context, productID string) (string, error)
	ServiceOwner(ctx context.Context, serviceID string) (string, error)
}

// RatingStore defines the contract for rating persistence.
// List results are ordered by creation time descending (id descending as a
// tiebreak) and return the total row count alongside the page.
type RatingStore interface {
	Create(ctx context.Context, p CreateParams) (Rating, error)
	GetByID(ctx context.Context, id string) (Rating, error)
	Delete(ctx context.Context, id string) error

	ListByProduct(ctx context.Context, productID string, pg ListParams) ([]Rating, int64, error)
	ListByService(ctx context.Context, serviceID string, pg ListParams) ([]Rating, int64, error)
	ListByRater(ctx context.Context, raterID string, pg ListParams) ([]Rating, int64, error)

	HasProductRating(ctx context.Context, raterID, productID string) (bool, error)
	HasServiceRating(ctx context.Context, raterID, serviceID string) (bool, error)

	// Provider aggregates over ratings whose target listing is owned by the
	// given user. Averages are unrounded.
	ProductStats(ctx context.Context, providerID string) (CategoryStats, error)
	ServiceStats(ctx context.Context, providerID string) (CategoryStats, error)
}
