package service

import (
	"testing"
	"time"

	"calevid/config"
	"calevid/internal/auth"
	"calevid/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthService(t *testing.T) (*AuthService, *config.Config) {
	t.Helper()
	db := newTestDB(t)
	cfg := &config.Config{
		JWT: config.JWTConfig{
			AccessSecret:  "test-access",
			RefreshSecret: "test-refresh",
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: time.Hour,
			Issuer:        "calevid",
		},
	}
	return NewAuthService(cfg, repository.NewUserRepository(db)), cfg
}

func TestRegisterAndLogin(t *testing.T) {
	svc, cfg := newTestAuthService(t)

	u, access, refresh, err := svc.Register("a@b.com", "password123")
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, refresh)
	assert.Zero(t, u.Credits, "new accounts start with no credits")

	claims, err := auth.ParseAccessToken(&cfg.JWT, access)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, "a@b.com", claims.Email)

	u2, loginAccess, loginRefresh, err := svc.Login("a@b.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, u2.ID)
	assert.NotEmpty(t, loginAccess, "login must hand out usable tokens")
	assert.NotEmpty(t, loginRefresh)

	claims, err = auth.ParseAccessToken(&cfg.JWT, loginAccess)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)

	_, _, _, err = svc.Login("a@b.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCreds)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, _, _, err := svc.Register("a@b.com", "password123")
	require.NoError(t, err)
	_, _, _, err = svc.Register("a@b.com", "password456")
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestRefreshToken(t *testing.T) {
	svc, cfg := newTestAuthService(t)

	u, _, refresh, err := svc.Register("a@b.com", "password123")
	require.NoError(t, err)

	access, err := svc.Refresh(refresh)
	require.NoError(t, err)
	claims, err := auth.ParseAccessToken(&cfg.JWT, access)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)

	_, err = svc.Refresh("not-a-token")
	assert.Error(t, err)
}
