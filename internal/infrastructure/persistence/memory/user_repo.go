package memory

import (
	"context"
	"time"

	"github.com/xiebiao/library/internal/domain/user"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

type userRow struct {
	user.User
}

type userRepository struct {
	s *Store
}

// NewUserRepository returns the memory user repository.
func NewUserRepository(s *Store) user.Repository {
	return &userRepository{s: s}
}

func (r *userRepository) Create(ctx context.Context, u *user.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, row := range r.s.users {
		if row.Email == u.Email {
			return apperrors.ErrEmailDuplicate
		}
	}

	r.s.nextUserID++
	u.ID = r.s.nextUserID
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	r.s.users[u.ID] = &userRow{User: *u}

	id := u.ID
	r.s.record(ctx, func() { delete(r.s.users, id) })
	return nil
}

func (r *userRepository) FindByID(_ context.Context, id uint) (*user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	row, ok := r.s.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	u := row.User
	return &u, nil
}

func (r *userRepository) FindByIDs(_ context.Context, ids []uint) (map[uint]*user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make(map[uint]*user.User, len(ids))
	for _, id := range ids {
		if row, ok := r.s.users[id]; ok {
			u := row.User
			out[id] = &u
		}
	}
	return out, nil
}

func (r *userRepository) FindByEmail(_ context.Context, email string) (*user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, row := range r.s.users {
		if row.Email == email {
			u := row.User
			return &u, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (r *userRepository) UpdateRole(ctx context.Context, id uint, role user.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.users[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	prev := row.Role
	row.Role = role
	row.UpdatedAt = time.Now()

	r.s.record(ctx, func() { row.Role = prev })
	return nil
}
