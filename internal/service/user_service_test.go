package service

import (
	"context"
	"testing"

	"almoxarifado-api/internal/authz"
	"almoxarifado-api/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserServiceCreateAndLogin(t *testing.T) {
	f := newFixture(t, authz.Limits{})
	ctx := context.Background()
	users := NewUserService(repository.NewUserRepository(f.db))

	created, err := users.CreateUser(ctx, CreateUserRequest{
		Username:   "maria.silva",
		Email:      "maria.silva@example.com",
		Password:   "segredo123",
		Role:       authz.RoleGerente,
		Department: "TI",
	})
	require.NoError(t, err)
	assert.Equal(t, authz.RoleGerente, created.Role)
	assert.True(t, created.Capabilities.CanApprove)
	assert.False(t, created.Capabilities.CanProcessStock)

	// Role names outside the matrix are refused
	_, err = users.CreateUser(ctx, CreateUserRequest{
		Username: "x", Email: "x@example.com", Password: "segredo123", Role: "superuser",
	})
	assert.Error(t, err)

	// Duplicate username
	_, err = users.CreateUser(ctx, CreateUserRequest{
		Username: "maria.silva", Email: "other@example.com", Password: "segredo123", Role: authz.RoleTecnico,
	})
	assert.Error(t, err)

	tokens, err := users.Login(ctx, LoginUserRequest{Email: "maria.silva@example.com", Password: "segredo123"})
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.Token)
	assert.NotEmpty(t, tokens.RefreshToken)

	_, err = users.Login(ctx, LoginUserRequest{Email: "maria.silva@example.com", Password: "errada"})
	assert.Error(t, err)
}

func TestUserServiceRefreshRotation(t *testing.T) {
	f := newFixture(t, authz.Limits{})
	ctx := context.Background()
	users := NewUserService(repository.NewUserRepository(f.db))

	_, err := users.CreateUser(ctx, CreateUserRequest{
		Username: "joao", Email: "joao@example.com", Password: "segredo123", Role: authz.RoleTecnico,
	})
	require.NoError(t, err)

	tokens, err := users.Login(ctx, LoginUserRequest{Email: "joao@example.com", Password: "segredo123"})
	require.NoError(t, err)

	rotated, err := users.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	// Refresh tokens are single-use
	_, err = users.Refresh(ctx, tokens.RefreshToken)
	assert.Error(t, err)

	// Logout revokes the current one
	require.NoError(t, users.Logout(ctx, rotated.RefreshToken))
	_, err = users.Refresh(ctx, rotated.RefreshToken)
	assert.Error(t, err)
}
