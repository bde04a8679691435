package services

import (
	"testing"

	"github.com/j-greybard/arcadetracker/internal/repositories"
	"github.com/j-greybard/arcadetracker/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(t *testing.T, env *testEnv) AuthService {
	t.Helper()
	return NewAuthService(repositories.NewAuthRepository(env.db), env.db)
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	authService := newAuthService(t, env)

	user, err := authService.RegisterUser(RegisterUserRequest{
		Username: "dana",
		Email:    "dana@example.com",
		Password: "correct horse",
		FullName: "Dana Ruiz",
	})
	require.NoError(t, err)
	assert.Equal(t, RoleOperator, user.Role)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "correct horse", user.PasswordHash)

	resp, err := authService.LoginUser(LoginRequest{Username: "dana", Password: "correct horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, user.ID, resp.User.ID)

	claims, err := utils.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, RoleOperator, claims.Role)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	authService := newAuthService(t, env)

	_, err := authService.RegisterUser(RegisterUserRequest{
		Username: "dana",
		Email:    "dana@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)

	_, err = authService.LoginUser(LoginRequest{Username: "dana", Password: "wrong horse"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = authService.LoginUser(LoginRequest{Username: "nobody", Password: "correct horse"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRejectsDeactivatedUser(t *testing.T) {
	env := newTestEnv(t)
	authService := newAuthService(t, env)

	user, err := authService.RegisterUser(RegisterUserRequest{
		Username: "dana",
		Email:    "dana@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)

	require.NoError(t, authService.SetUserActive(user.ID, false))
	_, err = authService.LoginUser(LoginRequest{Username: "dana", Password: "correct horse"})
	assert.ErrorIs(t, err, ErrUserInactive)

	require.NoError(t, authService.SetUserActive(user.ID, true))
	_, err = authService.LoginUser(LoginRequest{Username: "dana", Password: "correct horse"})
	assert.NoError(t, err)
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	env := newTestEnv(t)
	authService := newAuthService(t, env)

	_, err := authService.RegisterUser(RegisterUserRequest{
		Username: "dana",
		Email:    "dana@example.com",
		Password: "correct horse",
		Role:     "superuser",
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetUserProfile(t *testing.T) {
	env := newTestEnv(t)
	authService := newAuthService(t, env)

	user, err := authService.RegisterUser(RegisterUserRequest{
		Username: "dana",
		Email:    "dana@example.com",
		Password: "correct horse",
		Role:     RoleManager,
	})
	require.NoError(t, err)

	profile, err := authService.GetUserProfile(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "dana", profile.Username)
	assert.Equal(t, RoleManager, profile.Role)

	_, err = authService.GetUserProfile(user.ID + 99)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
