package user

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("email already exists")
)

// Repository persists users. Implementations assign ID, CreatedAt and
// UpdatedAt on Create and must reject a second user with the same email
// with ErrEmailExists.
type Repository interface {
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	Create(ctx context.Context, user User) (User, error)
	// TouchLastLogin records a successful signin and returns the updated user.
	TouchLastLogin(ctx context.Context, id string, at time.Time) (User, error)
}

type InMemoryRepository struct {
	mu      sync.RWMutex
	users   map[string]User
	byEmail map[string]string
	now     func() time.Time
}

func NewInMemoryRepository(seed []User) *InMemoryRepository {
	repo := &InMemoryRepository{
		users:   make(map[string]User, len(seed)),
		byEmail: make(map[string]string, len(seed)),
		now:     time.Now,
	}

	for _, user := range seed {
		if user.ID == "" {
			user.ID = uuid.NewString()
		}
		repo.users[user.ID] = user
		repo.byEmail[user.Email] = user.ID
	}

	return repo
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return cloneUser(user), nil
}

func (r *InMemoryRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return User{}, ErrNotFound
	}
	return cloneUser(r.users[id]), nil
}

func (r *InMemoryRepository) Create(ctx context.Context, user User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[user.Email]; exists {
		return User{}, ErrEmailExists
	}

	now := r.now().UTC()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.LastLogin = nil
	user = cloneUser(user)

	r.users[user.ID] = user
	r.byEmail[user.Email] = user.ID
	return cloneUser(user), nil
}

func (r *InMemoryRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}

	at = at.UTC()
	user.LastLogin = &at
	user.UpdatedAt = at
	r.users[id] = user
	return cloneUser(user), nil
}

// Delete removes a user. It is not reachable through the API and exists for
// tests that need a token whose subject no longer resolves.
func (r *InMemoryRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	delete(r.byEmail, user.Email)
	delete(r.users, id)
	return nil
}

// Len reports how many users are stored.
func (r *InMemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

func cloneUser(u User) User {
	if u.Phones != nil {
		phones := make([]Phone, len(u.Phones))
		for i, p := range u.Phones {
			phones[i] = maps.Clone(p)
		}
		u.Phones = phones
	}
	if u.LastLogin != nil {
		at := *u.LastLogin
		u.LastLogin = &at
	}
	return u
}
