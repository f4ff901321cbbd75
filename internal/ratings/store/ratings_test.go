package store

import (
	"context"
	"testing"
	"time"
)

// Interface compliance.
var (
	_ RatingStore = (*InMemoryRatingStore)(nil)
	_ RatingStore = (*PostgresRatingStore)(nil)
)

// stubOwners maps listing ids to owner ids for in-memory stats.
type stubOwners struct {
	products map[string]string
	services map[string]string
}

func (s stubOwners) ProductOwner(_ context.Context, id string) (string, error) {
	if owner, ok := s.products[id]; ok {
		return owner, nil
	}
	return "", ErrNotFound
}

func (s stubOwners) ServiceOwner(_ context.Context, id string) (string, error) {
	if owner, ok := s.services[id]; ok {
		return owner, nil
	}
	return "", ErrNotFound
}

func strPtr(s string) *string { return &s }

func newTestStore() *InMemoryRatingStore {
	return NewInMemoryRatingStore(stubOwners{
		products: map[string]string{"prod-1": "seller-1", "prod-2": "seller-2"},
		services: map[string]string{"svc-1": "seller-1"},
	})
}

func TestCreateAndGet(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	created, err := s.Create(ctx, CreateParams{
		RaterID:   "buyer-1",
		ProductID: strPtr("prod-1"),
		Score:     4,
		Comment:   "solid",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated id")
	}
	if created.CreatedAt.IsZero() {
		t.Fatal("expected creation timestamp")
	}

	got, err := s.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Score != 4 || got.Comment != "solid" || *got.ProductID != "prod-1" {
		t.Fatalf("unexpected rating: %+v", got)
	}
}

func TestCreate_DuplicateProduct(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	p := CreateParams{RaterID: "buyer-1", ProductID: strPtr("prod-1"), Score: 5}
	if _, err := s.Create(ctx, p); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := s.Create(ctx, p); err != ErrConflict {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestCreate_SameRaterDifferentTargets(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	if _, err := s.Create(ctx, CreateParams{RaterID: "buyer-1", ProductID: strPtr("prod-1"), Score: 5}); err != nil {
		t.Fatalf("product rating: %v", err)
	}
	// A different product and a service are both fine for the same rater.
	if _, err := s.Create(ctx, CreateParams{RaterID: "buyer-1", ProductID: strPtr("prod-2"), Score: 3}); err != nil {
		t.Fatalf("second product rating: %v", err)
	}
	if _, err := s.Create(ctx, CreateParams{RaterID: "buyer-1", ServiceID: strPtr("svc-1"), Score: 2}); err != nil {
		t.Fatalf("service rating: %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	created, err := s.Create(ctx, CreateParams{RaterID: "buyer-1", ProductID: strPtr("prod-1"), Score: 3})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetByID(ctx, created.ID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, created.ID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}

	// Deleting frees the pair for a fresh rating.
	if _, err := s.Create(ctx, CreateParams{RaterID: "buyer-1", ProductID: strPtr("prod-1"), Score: 5}); err != nil {
		t.Fatalf("re-create after delete: %v", err)
	}
}

func TestListByProduct_OrderAndPaging(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i, rater := range []string{"a", "b", "c"} {
		created, err := s.Create(ctx, CreateParams{RaterID: rater, ProductID: strPtr("prod-1"), Score: i + 1})
		if err != nil {
			t.Fatalf("create %s: %v", rater, err)
		}
		// Distinct timestamps so ordering is deterministic.
		r := s.ratings[created.ID]
		r.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		s.ratings[created.ID] = r
	}

	page, total, err := s.ListByProduct(ctx, "prod-1", ListParams{Page: 1, Size: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected total 3, got %d", total)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 items, got %d", len(page))
	}
	if page[0].RaterID != "c" || page[1].RaterID != "b" {
		t.Fatalf("expected newest first, got %s then %s", page[0].RaterID, page[1].RaterID)
	}

	page, total, err = s.ListByProduct(ctx, "prod-1", ListParams{Page: 2, Size: 2})
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if total != 3 || len(page) != 1 || page[0].RaterID != "a" {
		t.Fatalf("unexpected second page: total=%d items=%+v", total, page)
	}

	page, total, err = s.ListByProduct(ctx, "prod-1", ListParams{Page: 5, Size: 2})
	if err != nil {
		t.Fatalf("list past end: %v", err)
	}
	if total != 3 || len(page) != 0 {
		t.Fatalf("expected empty page with total 3, got total=%d items=%d", total, len(page))
	}
}

func TestListByRater(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	if _, err := s.Create(ctx, CreateParams{RaterID: "buyer-1", ProductID: strPtr("prod-1"), Score: 4}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(ctx, CreateParams{RaterID: "buyer-1", ServiceID: strPtr("svc-1"), Score: 2}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(ctx, CreateParams{RaterID: "buyer-2", ProductID: strPtr("prod-1"), Score: 1}); err != nil {
		t.Fatal(err)
	}

	items, total, err := s.ListByRater(ctx, "buyer-1", ListParams{Page: 1, Size: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("expected 2 ratings for buyer-1, got total=%d items=%d", total, len(items))
	}
}

func TestHasRating(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	if _, err := s.Create(ctx, CreateParams{RaterID: "buyer-1", ProductID: strPtr("prod-1"), Score: 5}); err != nil {
		t.Fatal(err)
	}

	ok, err := s.HasProductRating(ctx, "buyer-1", "prod-1")
	if err != nil || !ok {
		t.Fatalf("expected existing product rating, got ok=%v err=%v", ok, err)
	}
	ok, err = s.HasProductRating(ctx, "buyer-2", "prod-1")
	if err != nil || ok {
		t.Fatalf("expected no rating for buyer-2, got ok=%v err=%v", ok, err)
	}
	ok, err = s.HasServiceRating(ctx, "buyer-1", "svc-1")
	if err != nil || ok {
		t.Fatalf("expected no service rating, got ok=%v err=%v", ok, err)
	}
}

func TestProviderStats(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	// seller-1 owns prod-1 and svc-1; seller-2 owns prod-2.
	for rater, score := range map[string]int{"a": 5, "b": 4, "c": 3} {
		if _, err := s.Create(ctx, CreateParams{RaterID: rater, ProductID: strPtr("prod-1"), Score: score}); err != nil {
			t.Fatal(err)
		}
	}
	for rater, score := range map[string]int{"a": 1, "b": 2} {
		if _, err := s.Create(ctx, CreateParams{RaterID: rater, ServiceID: strPtr("svc-1"), Score: score}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.Create(ctx, CreateParams{RaterID: "a", ProductID: strPtr("prod-2"), Score: 1}); err != nil {
		t.Fatal(err)
	}

	ps, err := s.ProductStats(ctx, "seller-1")
	if err != nil {
		t.Fatalf("product stats: %v", err)
	}
	if ps.Count != 3 || ps.Average != 4.0 {
		t.Fatalf("expected avg 4.0 over 3 product ratings, got %+v", ps)
	}

	ss, err := s.ServiceStats(ctx, "seller-1")
	if err != nil {
		t.Fatalf("service stats: %v", err)
	}
	if ss.Count != 2 || ss.Average != 1.5 {
		t.Fatalf("expected avg 1.5 over 2 service ratings, got %+v", ss)
	}
}

func TestProviderStats_Empty(t *testing.T) {
	s := newTestStore()
	st, err := s.ProductStats(context.Background(), "seller-without-ratings")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Count != 0 || st.Average != 0 {
		t.Fatalf("expected zero stats, got %+v", st)
	}
}
