package repository

import (
	"context"

	"agromarket/internal/domain"
)

// UserRepository stores registered users. Find methods return (nil, nil)
// when no user matches.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByToken(ctx context.Context, token string) (*domain.User, error)
}
