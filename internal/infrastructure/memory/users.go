package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-admin-auth/internal/domain"
)

// UserStore is an in-memory user directory keyed by user id.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]domain.User)}
}

func (s *UserStore) Put(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.UserID] = *u
	return nil
}

func (s *UserStore) Get(_ context.Context, userID string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	return &u, nil
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return s.find(func(u domain.User) bool { return u.Email == email })
}

func (s *UserStore) GetByPhone(_ context.Context, phone string) (*domain.User, error) {
	return s.find(func(u domain.User) bool { return u.Phone != nil && *u.Phone == phone })
}

func (s *UserStore) find(match func(domain.User) bool) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
}
