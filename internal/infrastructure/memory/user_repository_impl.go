// Package memory holds map-backed repositories used by STORE_DRIVER=memory and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-project-tracker/internal/domain/entity"
	"github.com/oksasatya/go-project-tracker/internal/domain/repository"
)

type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*entity.User
	now   func() time.Time
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: map[string]*entity.User{}, now: time.Now}
}

func cloneUser(u *entity.User) *entity.User {
	c := *u
	if u.SocialIDs != nil {
		c.SocialIDs = make(map[entity.Provider]string, len(u.SocialIDs))
		for k, v := range u.SocialIDs {
			c.SocialIDs[k] = v
		}
	}
	return &c
}

// conflicts reports whether another user already holds u's email or username.
func (r *UserRepository) conflicts(u *entity.User) bool {
	for id, other := range r.users {
		if id == u.ID {
			continue
		}
		if other.Email == u.Email || other.Username == u.Username {
			return true
		}
	}
	return false
}

func (r *UserRepository) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.ID = uuid.NewString()
	if r.conflicts(u) {
		u.ID = ""
		return repository.ErrDuplicate
	}
	now := r.now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	r.users[u.ID] = cloneUser(u)
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *UserRepository) first(match func(*entity.User) bool) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	return r.first(func(u *entity.User) bool { return u.Email == email })
}

// GetByLogin matches username exactly and email case-insensitively.
func (r *UserRepository) GetByLogin(_ context.Context, loginID string) (*entity.User, error) {
	email := strings.ToLower(loginID)
	return r.first(func(u *entity.User) bool { return u.Username == loginID || u.Email == email })
}

func (r *UserRepository) GetByIDs(_ context.Context, ids []string) ([]*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entity.User, 0, len(ids))
	seen := map[string]bool{}
	for _, id := range ids {
		if u, ok := r.users[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (r *UserRepository) UsernameExists(_ context.Context, username string) (bool, error) {
	_, err := r.first(func(u *entity.User) bool { return u.Username == username })
	return err == nil, nil
}

func (r *UserRepository) List(_ context.Context) ([]*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entity.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *UserRepository) Update(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return repository.ErrNotFound
	}
	if r.conflicts(u) {
		return repository.ErrDuplicate
	}
	u.UpdatedAt = r.now().UTC()
	r.users[u.ID] = cloneUser(u)
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
