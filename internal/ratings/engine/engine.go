// Package engine enforces the rating integrity rules: a rating targets
// exactly one existing listing, a user never rates their own listing, and a
// (rater, listing) pair is rated at most once. It also computes per-provider
// aggregates over both listing categories.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/example/marketplace/internal/platform/auth"
	"github.com/example/marketplace/internal/platform/events"
	"github.com/example/marketplace/internal/ratings/store"
	"go.uber.org/zap"
)

const (
	minScore      = 1
	maxScore      = 5
	maxCommentLen = 500

	defaultListingPageSize = 5
	defaultRaterPageSize   = 10
	maxPageSize            = 100
)

// Listing is the slice of a product or service the engine needs: identity,
// display name, and the owning user.
type Listing struct {
	ID      string
	Name    string
	OwnerID string
}

// ListingResolver looks up rating targets. Implementations return ErrNotFound
// (possibly wrapped) when the listing does not exist.
type ListingResolver interface {
	ProductByID(ctx context.Context, id string) (Listing, error)
	ServiceByID(ctx context.Context, id string) (Listing, error)
}

// UserDirectory resolves user identities. Implementations return ErrNotFound
// (possibly wrapped) when the user does not exist.
type UserDirectory interface {
	UsernameByID(ctx context.Context, id string) (string, error)
	Exists(ctx context.Context, id string) (bool, error)
}

// Engine coordinates rating writes and reads against the store, the catalog
// and the user directory.
type Engine struct {
	ratings  store.RatingStore
	listings ListingResolver
	users    UserDirectory
	events   *events.Publisher
	log      *zap.Logger
}

// New wires an Engine. The events publisher may be nil.
func New(ratings store.RatingStore, listings ListingResolver, users UserDirectory, ev *events.Publisher, log *zap.Logger) *Engine {
	return &Engine{
		ratings:  ratings,
		listings: listings,
		users:    users,
		events:   ev,
		log:      log,
	}
}

// CreateInput carries a rating submission. Exactly one of ProductID and
// ServiceID must be set.
type CreateInput struct {
	ProductID string
	ServiceID string
	Score     int
	Comment   string
}

// RatingView is a rating enriched with the rater's username and the resolved
// target listing, the shape all read endpoints return.
type RatingView struct {
	ID            string    `json:"id"`
	Score         int       `json:"score"`
	Comment       string    `json:"comment,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	RaterID       string    `json:"rater_id"`
	RaterUsername string    `json:"rater_username,omitempty"`
	ProductID     string    `json:"product_id,omitempty"`
	ProductName   string    `json:"product_name,omitempty"`
	ServiceID     string    `json:"service_id,omitempty"`
	ServiceName   string    `json:"service_name,omitempty"`
	ProviderID    string    `json:"provider_id,omitempty"`
}

// RatingPage is one page of ratings with the total match count.
type RatingPage struct {
	Items      []RatingView `json:"items"`
	TotalCount int64        `json:"total_count"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
}

// Create validates and persists a new rating.
//
// Checks run in a fixed order so each failure mode maps to one outcome:
// authentication, target shape, score and comment bounds, listing existence,
// the self-rating rule, then duplicate detection. The store's unique
// constraint remains authoritative for duplicates under concurrency.
func (e *Engine) Create(ctx context.Context, raterID string, in CreateInput) (RatingView, error) {
	if raterID == "" {
		return RatingView{}, ErrUnauthorized
	}
	if (in.ProductID == "") == (in.ServiceID == "") {
		return RatingView{}, fmt.Errorf("%w: exactly one of product_id and service_id must be set", ErrInvalidRequest)
	}
	if in.Score < minScore || in.Score > maxScore {
		return RatingView{}, fmt.Errorf("%w: score must be between %d and %d", ErrInvalidRequest, minScore, maxScore)
	}
	if utf8.RuneCountInString(in.Comment) > maxCommentLen {
		return RatingView{}, fmt.Errorf("%w: comment exceeds %d characters", ErrInvalidRequest, maxCommentLen)
	}

	username, err := e.users.UsernameByID(ctx, raterID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Token subject no longer resolves to a user.
			return RatingView{}, ErrUnauthorized
		}
		return RatingView{}, fmt.Errorf("resolve rater: %w", err)
	}

	listing, params, err := e.resolveTarget(ctx, raterID, in)
	if err != nil {
		return RatingView{}, err
	}
	if listing.OwnerID == raterID {
		return RatingView{}, fmt.Errorf("%w: rating your own listing is not allowed", ErrForbidden)
	}

	created, err := e.ratings.Create(ctx, params)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return RatingView{}, fmt.Errorf("%w for this listing", ErrConflict)
		}
		return RatingView{}, fmt.Errorf("persist rating: %w", err)
	}

	e.events.Publish(events.SubjectRatingCreated, "rating_created", raterID, map[string]any{
		"rating_id":   created.ID,
		"product_id":  in.ProductID,
		"service_id":  in.ServiceID,
		"provider_id": listing.OwnerID,
		"score":       created.Score,
	})
	e.log.Info("rating created",
		zap.String("rating_id", created.ID),
		zap.String("rater_id", raterID),
		zap.String("provider_id", listing.OwnerID),
		zap.Int("score", created.Score),
	)

	view := e.baseView(created)
	view.RaterUsername = username
	view.ProviderID = listing.OwnerID
	if in.ProductID != "" {
		view.ProductName = listing.Name
	} else {
		view.ServiceName = listing.Name
	}
	return view, nil
}

// resolveTarget validates the listing reference and runs the duplicate
// pre-check, returning the listing and ready-to-persist params.
func (e *Engine) resolveTarget(ctx context.Context, raterID string, in CreateInput) (Listing, store.CreateParams, error) {
	params := store.CreateParams{
		RaterID: raterID,
		Score:   in.Score,
		Comment: in.Comment,
	}

	if in.ProductID != "" {
		listing, err := e.listings.ProductByID(ctx, in.ProductID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return Listing{}, store.CreateParams{}, fmt.Errorf("product %s: %w", in.ProductID, ErrNotFound)
			}
			return Listing{}, store.CreateParams{}, fmt.Errorf("resolve product: %w", err)
		}
		exists, err := e.ratings.HasProductRating(ctx, raterID, in.ProductID)
		if err != nil {
			return Listing{}, store.CreateParams{}, fmt.Errorf("duplicate check: %w", err)
		}
		if exists {
			return Listing{}, store.CreateParams{}, fmt.Errorf("%w for product %s", ErrConflict, in.ProductID)
		}
		params.ProductID = &in.ProductID
		return listing, params, nil
	}

	listing, err := e.listings.ServiceByID(ctx, in.ServiceID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Listing{}, store.CreateParams{}, fmt.Errorf("service %s: %w", in.ServiceID, ErrNotFound)
		}
		return Listing{}, store.CreateParams{}, fmt.Errorf("resolve service: %w", err)
	}
	exists, err := e.ratings.HasServiceRating(ctx, raterID, in.ServiceID)
	if err != nil {
		return Listing{}, store.CreateParams{}, fmt.Errorf("duplicate check: %w", err)
	}
	if exists {
		return Listing{}, store.CreateParams{}, fmt.Errorf("%w for service %s", ErrConflict, in.ServiceID)
	}
	params.ServiceID = &in.ServiceID
	return listing, params, nil
}

// Delete removes a rating. Only the rating's author or an admin may delete it.
func (e *Engine) Delete(ctx context.Context, requesterID string, roles auth.RoleSet, ratingID string) error {
	if requesterID == "" {
		return ErrUnauthorized
	}
	rating, err := e.ratings.GetByID(ctx, ratingID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("rating %s: %w", ratingID, ErrNotFound)
		}
		return fmt.Errorf("load rating: %w", err)
	}
	if rating.RaterID != requesterID && !roles.Has(auth.RoleAdmin) {
		return fmt.Errorf("%w: only the author or an admin may delete a rating", ErrForbidden)
	}

	if err := e.ratings.Delete(ctx, ratingID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("rating %s: %w", ratingID, ErrNotFound)
		}
		return fmt.Errorf("delete rating: %w", err)
	}

	e.events.Publish(events.SubjectRatingDeleted, "rating_deleted", requesterID, map[string]any{
		"rating_id": ratingID,
		"rater_id":  rating.RaterID,
	})
	e.log.Info("rating deleted",
		zap.String("rating_id", ratingID),
		zap.String("requester_id", requesterID),
	)
	return nil
}

// ListForProduct returns one page of ratings for an existing product,
// newest first.
func (e *Engine) ListForProduct(ctx context.Context, productID string, page, size int) (RatingPage, error) {
	listing, err := e.listings.ProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return RatingPage{}, fmt.Errorf("product %s: %w", productID, ErrNotFound)
		}
		return RatingPage{}, fmt.Errorf("resolve product: %w", err)
	}

	pg := normalizePage(page, size, defaultListingPageSize)
	items, total, err := e.ratings.ListByProduct(ctx, productID, pg)
	if err != nil {
		return RatingPage{}, fmt.Errorf("list product ratings: %w", err)
	}
	views := make([]RatingView, 0, len(items))
	for _, r := range items {
		v := e.baseView(r)
		v.ProductName = listing.Name
		v.ProviderID = listing.OwnerID
		v.RaterUsername = e.usernameOf(ctx, r.RaterID)
		views = append(views, v)
	}
	return RatingPage{Items: views, TotalCount: total, Page: pg.Page, PageSize: pg.Size}, nil
}

// ListForService returns one page of ratings for an existing service,
// newest first.
func (e *Engine) ListForService(ctx context.Context, serviceID string, page, size int) (RatingPage, error) {
	listing, err := e.listings.ServiceByID(ctx, serviceID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return RatingPage{}, fmt.Errorf("service %s: %w", serviceID, ErrNotFound)
		}
		return RatingPage{}, fmt.Errorf("resolve service: %w", err)
	}

	pg := normalizePage(page, size, defaultListingPageSize)
	items, total, err := e.ratings.ListByService(ctx, serviceID, pg)
	if err != nil {
		return RatingPage{}, fmt.Errorf("list service ratings: %w", err)
	}
	views := make([]RatingView, 0, len(items))
	for _, r := range items {
		v := e.baseView(r)
		v.ServiceName = listing.Name
		v.ProviderID = listing.OwnerID
		v.RaterUsername = e.usernameOf(ctx, r.RaterID)
		views = append(views, v)
	}
	return RatingPage{Items: views, TotalCount: total, Page: pg.Page, PageSize: pg.Size}, nil
}

// ListByRater returns one page of the ratings a user has authored. Only that
// user or an admin may read it.
func (e *Engine) ListByRater(ctx context.Context, requesterID string, roles auth.RoleSet, raterID string, page, size int) (RatingPage, error) {
	if requesterID == "" {
		return RatingPage{}, ErrUnauthorized
	}
	if requesterID != raterID && !roles.Has(auth.RoleAdmin) {
		return RatingPage{}, fmt.Errorf("%w: only the rater or an admin may list these ratings", ErrForbidden)
	}
	ok, err := e.users.Exists(ctx, raterID)
	if err != nil {
		return RatingPage{}, fmt.Errorf("resolve rater: %w", err)
	}
	if !ok {
		return RatingPage{}, fmt.Errorf("user %s: %w", raterID, ErrNotFound)
	}

	pg := normalizePage(page, size, defaultRaterPageSize)
	items, total, err := e.ratings.ListByRater(ctx, raterID, pg)
	if err != nil {
		return RatingPage{}, fmt.Errorf("list rater ratings: %w", err)
	}
	username := e.usernameOf(ctx, raterID)
	views := make([]RatingView, 0, len(items))
	for _, r := range items {
		v := e.baseView(r)
		v.RaterUsername = username
		e.attachListing(ctx, &v, r)
		views = append(views, v)
	}
	return RatingPage{Items: views, TotalCount: total, Page: pg.Page, PageSize: pg.Size}, nil
}

func (e *Engine) baseView(r store.Rating) RatingView {
	v := RatingView{
		ID:        r.ID,
		Score:     r.Score,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
		RaterID:   r.RaterID,
	}
	if r.ProductID != nil {
		v.ProductID = *r.ProductID
	}
	if r.ServiceID != nil {
		v.ServiceID = *r.ServiceID
	}
	return v
}

// usernameOf is best-effort enrichment; a missing user leaves the field empty.
func (e *Engine) usernameOf(ctx context.Context, userID string) string {
	username, err := e.users.UsernameByID(ctx, userID)
	if err != nil {
		return ""
	}
	return username
}

// attachListing is best-effort enrichment; a deleted listing leaves the name
// and provider fields empty.
func (e *Engine) attachListing(ctx context.Context, v *RatingView, r store.Rating) {
	switch {
	case r.ProductID != nil:
		if l, err := e.listings.ProductByID(ctx, *r.ProductID); err == nil {
			v.ProductName = l.Name
			v.ProviderID = l.OwnerID
		}
	case r.ServiceID != nil:
		if l, err := e.listings.ServiceByID(ctx, *r.ServiceID); err == nil {
			v.ServiceName = l.Name
			v.ProviderID = l.OwnerID
		}
	}
}

func normalizePage(page, size, def int) store.ListParams {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = def
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return store.ListParams{Page: page, Size: size}
}
