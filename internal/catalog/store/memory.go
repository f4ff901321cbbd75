package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryCatalogStore is a mutex-guarded implementation used in tests and in
// local runs without a database.
type InMemoryCatalogStore struct {
	mu         sync.RWMutex
	categories map[string]Category
	products   map[string]Product
	services   map[string]Service
}

// NewInMemoryCatalogStore creates an empty in-memory store.
func NewInMemoryCatalogStore() *InMemoryCatalogStore {
	return &InMemoryCatalogStore{
		categories: make(map[string]Category),
		products:   make(map[string]Product),
		services:   make(map[string]Service),
	}
}

func (s *InMemoryCatalogStore) CreateCategory(_ context.Context, c Category) (Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.categories {
		if strings.EqualFold(existing.Name, c.Name) {
			return Category{}, ErrConflict
		}
	}
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now().UTC()
	s.categories[c.ID] = c
	return c, nil
}

func (s *InMemoryCatalogStore) ListCategories(_ context.Context) ([]Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *InMemoryCatalogStore) CategoryExists(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.categories[id]
	return ok, nil
}

func (s *InMemoryCatalogStore) CreateProduct(_ context.Context, p Product) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = uuid.NewString()
	p.CreatedAt = time.Now().UTC()
	s.products[p.ID] = p
	return p, nil
}

func (s *InMemoryCatalogStore) ProductByID(_ context.Context, id string) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (s *InMemoryCatalogStore) ListProducts(_ context.Context, pg ListParams) ([]Product, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	total := int64(len(all))
	start, end := pageBounds(len(all), pg)
	return all[start:end], total, nil
}

func (s *InMemoryCatalogStore) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *InMemoryCatalogStore) CreateService(_ context.Context, sv Service) (Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sv.ID = uuid.NewString()
	sv.CreatedAt = time.Now().UTC()
	s.services[sv.ID] = sv
	return sv, nil
}

func (s *InMemoryCatalogStore) ServiceByID(_ context.Context, id string) (Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sv, ok := s.services[id]
	if !ok {
		return Service{}, ErrNotFound
	}
	return sv, nil
}

func (s *InMemoryCatalogStore) ListServices(_ context.Context, pg ListParams) ([]Service, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]Service, 0, len(s.services))
	for _, sv := range s.services {
		all = append(all, sv)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	total := int64(len(all))
	start, end := pageBounds(len(all), pg)
	return all[start:end], total, nil
}

func (s *InMemoryCatalogStore) DeleteService(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.services[id]; !ok {
		return ErrNotFound
	}
	delete(s.services, id)
	return nil
}

func pageBounds(n int, pg ListParams) (int, int) {
	start := pg.offset()
	if start >= n {
		return 0, 0
	}
	end := start + pg.Size
	if end > n {
		end = n
	}
	return start, end
}
