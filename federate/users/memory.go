package users

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// keeps users in process memory, used for development and tests
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]*User
	now   func() time.Time
}

// creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users: make(map[string]*User),
		now:   time.Now,
	}
}

// inserts a new user with a fresh id
func (m *MemoryRepository) Create(_ context.Context, u *User) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := u.Clone()
	stored.ID = uuid.NewString()
	stored.Email = NormalizeEmail(stored.Email)
	stored.CreatedAt = m.now()
	stored.UpdatedAt = stored.CreatedAt

	m.users[stored.ID] = stored

	return stored.Clone(), nil
}

// finds a user by their ID
func (m *MemoryRepository) FindByID(_ context.Context, userID string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[userID]
	if !ok {
		return nil, ErrNotFound
	}

	return u.Clone(), nil
}

// finds the oldest user registered with email
func (m *MemoryRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrNotFound
	}

	return m.oldest(func(u *User) bool { return u.Email == email })
}

// finds the user that has providerUserID linked under provider
func (m *MemoryRepository) FindByProvider(_ context.Context, provider, providerUserID string) (*User, error) {
	return m.oldest(func(u *User) bool {
		id, ok := u.LinkedTo(provider)
		return ok && id == providerUserID
	})
}

// replaces the mutable fields of an existing user
func (m *MemoryRepository) Update(_ context.Context, u *User) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.users[u.ID]
	if !ok {
		return nil, ErrNotFound
	}

	stored := u.Clone()
	stored.Email = NormalizeEmail(stored.Email)
	stored.PasswordHash = existing.PasswordHash
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = m.now()

	m.users[stored.ID] = stored

	return stored.Clone(), nil
}

// number of stored users
func (m *MemoryRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.users)
}

func (m *MemoryRepository) oldest(match func(*User) bool) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var found []*User

	for _, u := range m.users {
		if match(u) {
			found = append(found, u)
		}
	}

	if len(found) == 0 {
		return nil, ErrNotFound
	}

	sort.Slice(found, func(i, j int) bool {
		return found[i].CreatedAt.Before(found[j].CreatedAt)
	})

	return found[0].Clone(), nil
}
