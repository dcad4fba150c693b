package mysql

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"agromarket/internal/domain"
	"agromarket/internal/repository"
)

type userRepo struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) repository.UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if err != nil {
		if strings.Contains(err.Error(), "Duplicate entry") {
			return domain.ErrAlreadyExists
		}
		return errors.Wrap(err, "insert user")
	}
	return nil
}

func (r *userRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, "email = ?", email)
}

func (r *userRepo) FindByToken(ctx context.Context, token string) (*domain.User, error) {
	return r.findOne(ctx, "token = ?", token)
}

func (r *userRepo) findOne(ctx context.Context, cond string, arg string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).First(&u, cond, arg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find user")
	}
	return &u, nil
}
