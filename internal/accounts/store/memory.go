package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryUserStore is a mutex-guarded implementation used in tests and in
// local runs without a database.
type InMemoryUserStore struct {
	mu     sync.RWMutex
	users  map[string]User
	hashes map[string]string // user id -> password hash
}

// NewInMemoryUserStore creates an empty in-memory store.
func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{
		users:  make(map[string]User),
		hashes: make(map[string]string),
	}
}

func (s *InMemoryUserStore) Create(_ context.Context, p CreateUserParams) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, p.Username) || strings.EqualFold(u.Email, p.Email) {
			return User{}, ErrConflict
		}
	}

	u := User{
		ID:        uuid.NewString(),
		Username:  p.Username,
		Email:     p.Email,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Phone:     p.Phone,
		Location:  p.Location,
		Roles:     append([]string(nil), p.Roles...),
		CreatedAt: time.Now().UTC(),
	}
	s.users[u.ID] = u
	s.hashes[u.ID] = p.PasswordHash
	return u, nil
}

func (s *InMemoryUserStore) ByID(_ context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (s *InMemoryUserStore) ByUsername(_ context.Context, username string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (s *InMemoryUserStore) FindByLogin(_ context.Context, login string) (UserRow, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return UserRow{}, ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Username, login) || strings.EqualFold(u.Email, login) {
			return UserRow{User: u, PasswordHash: s.hashes[u.ID]}, nil
		}
	}
	return UserRow{}, ErrNotFound
}

func (s *InMemoryUserStore) List(_ context.Context) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *InMemoryUserStore) SetRoles(_ context.Context, username string, roles []string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			u.Roles = append([]string(nil), roles...)
			s.users[id] = u
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (s *InMemoryUserStore) Exists(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[id]
	return ok, nil
}
