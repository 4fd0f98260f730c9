package repository

import (
	"context"
	"fmt"

	"github.com/dom/kaf-catalog/internal/domain"
	"github.com/google/uuid"
)

type userRepository struct {
	users *Collection[domain.User]
}

func NewUserRepository(store CollectionStore) *userRepository {
	return &userRepository{users: NewCollection[domain.User](store, UsersCollection)}
}

// Create appends the user unless the email is already taken. The uniqueness
// check and the append happen under the same collection lock.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	_, err := r.users.Update(ctx, func(users []domain.User) ([]domain.User, error) {
		for _, u := range users {
			if u.Email == user.Email {
				return nil, domain.ErrDuplicateEmail
			}
		}
		return append(users, *user), nil
	})
	return err
}

// CreateIfEmpty stores user only when the collection has no users yet.
func (r *userRepository) CreateIfEmpty(ctx context.Context, user *domain.User) (bool, error) {
	created := false
	_, err := r.users.Update(ctx, func(users []domain.User) ([]domain.User, error) {
		if len(users) > 0 {
			return nil, ErrNoChange
		}
		created = true
		return []domain.User{*user}, nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	users, err := r.users.All(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ID == id {
			return &users[i], nil
		}
	}
	return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	users, err := r.users.All(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Email == email {
			return &users[i], nil
		}
	}
	return nil, fmt.Errorf("%w: user with email %q", domain.ErrNotFound, email)
}

func (r *userRepository) Count(ctx context.Context) (int, error) {
	users, err := r.users.All(ctx)
	if err != nil {
		return 0, err
	}
	return len(users), nil
}
