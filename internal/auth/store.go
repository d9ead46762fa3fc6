package auth

import (
	"context"
	"sync"
)

// UserStore is the persistence contract for user records. Lookups return
// ErrUserNotFound when nothing matches; Save inserts or replaces by ID and
// returns ErrEmailTaken when another user already owns the email.
type UserStore interface {
	FindByID(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByResetTokenHash(ctx context.Context, hash string) (User, error)
	Save(ctx context.Context, user User) error
}

type InMemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{users: make(map[string]User)}
}

func (s *InMemoryUserStore) FindByID(_ context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u.Clone(), nil
}

func (s *InMemoryUserStore) FindByEmail(_ context.Context, email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findUser(s.users, func(u User) bool { return u.Email == email })
}

func (s *InMemoryUserStore) FindByResetTokenHash(_ context.Context, hash string) (User, error) {
	if hash == "" {
		return User{}, ErrUserNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findUser(s.users, func(u User) bool { return u.ResetTokenHash == hash })
}

func (s *InMemoryUserStore) Save(_ context.Context, user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if emailOwnedByOther(s.users, user) {
		return ErrEmailTaken
	}
	s.users[user.ID] = user.Clone()
	return nil
}

// Delete removes a user; used to model accounts removed after a session
// was issued.
func (s *InMemoryUserStore) Delete(_ context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
}

func (s *InMemoryUserStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

func findUser(users map[string]User, match func(User) bool) (User, error) {
	for _, u := range users {
		if match(u) {
			return u.Clone(), nil
		}
	}
	return User{}, ErrUserNotFound
}

func emailOwnedByOther(users map[string]User, user User) bool {
	for id, u := range users {
		if id != user.ID && u.Email == user.Email {
			return true
		}
	}
	return false
}
