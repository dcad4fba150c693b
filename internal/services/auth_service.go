package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"agromarket/internal/domain"
	"agromarket/internal/repository"
)

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
	Phone    string
	Location domain.Address
}

// AuthService handles registration and the bare token scheme: each user owns
// one opaque API token looked up on every request.
type AuthService struct {
	users repository.UserRepository
}

func NewAuthService(users repository.UserRepository) *AuthService {
	return &AuthService{users: users}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	if in.Name == "" {
		return nil, domain.NewValidationError("name", "required")
	}
	if !strings.Contains(in.Email, "@") {
		return nil, domain.NewValidationError("email", "must be a valid email address")
	}
	if len(in.Password) < 6 {
		return nil, domain.NewValidationError("password", "must be at least 6 characters")
	}
	role := in.Role
	if role == "" {
		role = domain.RoleBuyer
	}
	if !domain.ValidRole(role) {
		return nil, domain.NewValidationError("role", "must be one of farmer, buyer, delivery, admin")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        strings.ToLower(in.Email),
		PasswordHash: string(hash),
		Role:         role,
		Phone:        in.Phone,
		Location:     in.Location,
		Token:        uuid.NewString(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

// Authenticate resolves a bearer token to its user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}
	user, err := s.users.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUnauthenticated
	}
	return user, nil
}
