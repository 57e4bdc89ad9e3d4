package repository

import (
	"context"

	"github.com/accountd/accountd/internal/domain"
	"github.com/accountd/accountd/internal/query"
)

// UserUpdate is a partial update. Nil pointers leave the column untouched.
// PasswordHash and CreatedAt are deliberately absent: password changes go
// through UpdatePassword and created_at is immutable.
type UserUpdate struct {
	Username  *string
	Email     *string
	FirstName *string
	LastName  *string
	Active    *bool
	LastLogin *int64
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	Update(ctx context.Context, id string, upd UserUpdate) (*domain.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) error
	// List executes the query spec and returns the page's records plus the
	// total number of matches independent of pagination.
	List(ctx context.Context, spec query.Spec) ([]*domain.User, int, error)
}
