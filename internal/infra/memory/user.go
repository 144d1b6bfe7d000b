package memory

import (
	"context"

	"flexvault/internal/domain/model"
	repo "flexvault/internal/repository"
)

type UserRepository struct {
	s *Store
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	defer r.s.lock(false)()

	if _, ok := r.s.st.users[user.ID]; ok {
		return repo.ErrDuplicate
	}
	// emailは一意
	for _, u := range r.s.st.users {
		if u.Email == user.Email {
			return repo.ErrDuplicate
		}
	}

	now := r.s.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	r.s.st.users[user.ID] = *user
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	defer r.s.lock(false)()

	u, ok := r.s.st.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	defer r.s.lock(false)()

	for _, u := range r.s.st.users {
		if u.Email == email {
			found := u
			return &found, nil
		}
	}
	return nil, repo.ErrNotFound
}
