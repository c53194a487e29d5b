package memory

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/userhub/internal/domain/user"
)

// UsersRepo is an in-memory store with the same contract as the
// postgres repo, including the sentinel errors. Used by tests and local
// runs without a database.
type UsersRepo struct {
	mu     sync.RWMutex
	items  map[int64]user.User
	nextID int64
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items:  make(map[int64]user.User),
		nextID: 1,
	}
}

func (r *UsersRepo) ListAll(_ context.Context) ([]user.Public, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]user.Public, 0, len(r.items))

	for _, u := range r.items {
		out = append(out, u.Public())
	}

	return out, nil
}

func (r *UsersRepo) GetByID(_ context.Context, id int64) (user.Public, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]

	if !ok {
		return user.Public{}, user.ErrNotFound
	}

	return u.Public(), nil
}

func (r *UsersRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.items {
		if u.Email == email {
			return u, nil
		}
	}

	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) Create(_ context.Context, name, email, passwordHash, role string) (user.Public, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.items {
		if u.Email == email {
			return user.Public{}, user.ErrEmailTaken
		}
	}

	now := time.Now().UTC()

	u := user.User{
		ID:           r.nextID,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.items[u.ID] = u
	r.nextID++

	return u.Public(), nil
}

func (r *UsersRepo) Update(_ context.Context, id int64, req user.UpdateUserRequest) (user.Public, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]

	if !ok {
		return user.Public{}, user.ErrNotFound
	}

	if req.Email != nil {
		for otherID, other := range r.items {
			if otherID != id && other.Email == *req.Email {
				return user.Public{}, user.ErrEmailTaken
			}
		}
		u.Email = *req.Email
	}

	if req.Name != nil {
		u.Name = *req.Name
	}

	if req.Role != nil {
		u.Role = *req.Role
	}

	if req.Password != nil {
		u.PasswordHash = *req.Password
	}

	u.UpdatedAt = time.Now().UTC()
	r.items[id] = u

	return u.Public(), nil
}

func (r *UsersRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.items[id]

	if !ok {
		return user.ErrNotFound
	}

	delete(r.items, id)

	return nil
}
