package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agromarket/internal/domain"
	"agromarket/internal/repository/memory"
)

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("registered user can log in", func(t *testing.T) {
		svc := NewAuthService(memory.NewUserStore())

		user, err := svc.Register(ctx, RegisterInput{
			Name:     "Anita",
			Email:    "Anita@Example.com",
			Password: "secret1",
			Role:     domain.RoleBuyer,
		})
		require.NoError(t, err)
		assert.Equal(t, "anita@example.com", user.Email)
		assert.NotEmpty(t, user.Token)
		assert.NotEqual(t, "secret1", user.PasswordHash)

		got, err := svc.Login(ctx, "anita@example.com", "secret1")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("duplicate email", func(t *testing.T) {
		svc := NewAuthService(memory.NewUserStore())
		in := RegisterInput{Name: "Anita", Email: "a@example.com", Password: "secret1"}

		_, err := svc.Register(ctx, in)
		require.NoError(t, err)
		_, err = svc.Register(ctx, in)
		assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	})

	t.Run("defaults to the buyer role", func(t *testing.T) {
		svc := NewAuthService(memory.NewUserStore())
		user, err := svc.Register(ctx, RegisterInput{Name: "Anita", Email: "a@example.com", Password: "secret1"})
		require.NoError(t, err)
		assert.Equal(t, domain.RoleBuyer, user.Role)
	})

	t.Run("validation", func(t *testing.T) {
		svc := NewAuthService(memory.NewUserStore())
		var verr *domain.ValidationError

		_, err := svc.Register(ctx, RegisterInput{Email: "a@example.com", Password: "secret1"})
		assert.ErrorAs(t, err, &verr)

		_, err = svc.Register(ctx, RegisterInput{Name: "A", Email: "not-an-email", Password: "secret1"})
		assert.ErrorAs(t, err, &verr)

		_, err = svc.Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "short"})
		assert.ErrorAs(t, err, &verr)

		_, err = svc.Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "secret1", Role: "reseller"})
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc := NewAuthService(memory.NewUserStore())
		_, err := svc.Register(ctx, RegisterInput{Name: "Anita", Email: "a@example.com", Password: "secret1"})
		require.NoError(t, err)

		_, err = svc.Login(ctx, "a@example.com", "wrong")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		svc := NewAuthService(memory.NewUserStore())
		_, err := svc.Login(ctx, "nobody@example.com", "secret1")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := NewAuthService(memory.NewUserStore())

	user, err := svc.Register(ctx, RegisterInput{Name: "Anita", Email: "a@example.com", Password: "secret1"})
	require.NoError(t, err)

	got, err := svc.Authenticate(ctx, user.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = svc.Authenticate(ctx, "bogus-token")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}
