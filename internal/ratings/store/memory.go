package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRatingStore is a mutex-guarded implementation used in tests and in
// local runs without a database. It resolves listing owners through the
// supplied OwnerResolver to compute provider aggregates.
type InMemoryRatingStore struct {
	mu      sync.RWMutex
	ratings map[string]Rating
	owners  OwnerResolver
}

// NewInMemoryRatingStore creates an empty in-memory store.
func NewInMemoryRatingStore(owners OwnerResolver) *InMemoryRatingStore {
	return &InMemoryRatingStore{
		ratings: make(map[string]Rating),
		owners:  owners,
	}
}

func (s *InMemoryRatingStore) Create(_ context.Context, p CreateParams) (Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Same uniqueness rule the Postgres partial indexes enforce.
	for _, r := range s.ratings {
		if r.RaterID != p.RaterID {
			continue
		}
		if p.ProductID != nil && r.ProductID != nil && *r.ProductID == *p.ProductID {
			return Rating{}, ErrConflict
		}
		if p.ServiceID != nil && r.ServiceID != nil && *r.ServiceID == *p.ServiceID {
			return Rating{}, ErrConflict
		}
	}

	r := Rating{
		ID:        uuid.NewString(),
		RaterID:   p.RaterID,
		ProductID: p.ProductID,
		ServiceID: p.ServiceID,
		Score:     p.Score,
		Comment:   p.Comment,
		CreatedAt: time.Now().UTC(),
	}
	s.ratings[r.ID] = r
	return r, nil
}

func (s *InMemoryRatingStore) GetByID(_ context.Context, id string) (Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.ratings[id]
	if !ok {
		return Rating{}, ErrNotFound
	}
	return r, nil
}

func (s *InMemoryRatingStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ratings[id]; !ok {
		return ErrNotFound
	}
	delete(s.ratings, id)
	return nil
}

func (s *InMemoryRatingStore) ListByProduct(_ context.Context, productID string, pg ListParams) ([]Rating, int64, error) {
	return s.listWhere(func(r Rating) bool {
		return r.ProductID != nil && *r.ProductID == productID
	}, pg)
}

func (s *InMemoryRatingStore) ListByService(_ context.Context, serviceID string, pg ListParams) ([]Rating, int64, error) {
	return s.listWhere(func(r Rating) bool {
		return r.ServiceID != nil && *r.ServiceID == serviceID
	}, pg)
}

func (s *InMemoryRatingStore) ListByRater(_ context.Context, raterID string, pg ListParams) ([]Rating, int64, error) {
	return s.listWhere(func(r Rating) bool { return r.RaterID == raterID }, pg)
}

func (s *InMemoryRatingStore) listWhere(match func(Rating) bool, pg ListParams) ([]Rating, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []Rating
	for _, r := range s.ratings {
		if match(r) {
			all = append(all, r)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	total := int64(len(all))
	start := pg.offset()
	if start >= len(all) {
		return []Rating{}, total, nil
	}
	end := start + pg.Size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (s *InMemoryRatingStore) HasProductRating(_ context.Context, raterID, productID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.ratings {
		if r.RaterID == raterID && r.ProductID != nil && *r.ProductID == productID {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryRatingStore) HasServiceRating(_ context.Context, raterID, serviceID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.ratings {
		if r.RaterID == raterID && r.ServiceID != nil && *r.ServiceID == serviceID {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryRatingStore) ProductStats(ctx context.Context, providerID string) (CategoryStats, error) {
	return s.statsWhere(ctx, providerID, func(ctx context.Context, r Rating) (string, bool) {
		if r.ProductID == nil {
			return "", false
		}
		owner, err := s.owners.ProductOwner(ctx, *r.ProductID)
		return owner, err == nil
	})
}

func (s *InMemoryRatingStore) ServiceStats(ctx context.Context, providerID string) (CategoryStats, error) {
	return s.statsWhere(ctx, providerID, func(ctx context.Context, r Rating) (string, bool) {
		if r.ServiceID == nil {
			return "", false
		}
		owner, err := s.owners.ServiceOwner(ctx, *r.ServiceID)
		return owner, err == nil
	})
}

// statsWhere mirrors the join in the Postgres stats queries. Ratings whose
// listing no longer resolves are skipped, matching the inner join.
func (s *InMemoryRatingStore) statsWhere(ctx context.Context, providerID string, ownerOf func(context.Context, Rating) (string, bool)) (CategoryStats, error) {
	s.mu.RLock()
	snapshot := make([]Rating, 0, len(s.ratings))
	for _, r := range s.ratings {
		snapshot = append(snapshot, r)
	}
	s.mu.RUnlock()

	var sum, count int64
	for _, r := range snapshot {
		owner, ok := ownerOf(ctx, r)
		if !ok || owner != providerID {
			continue
		}
		sum += int64(r.Score)
		count++
	}

	st := CategoryStats{Count: count}
	if count > 0 {
		st.Average = float64(sum) / float64(count)
	}
	return st, nil
}
