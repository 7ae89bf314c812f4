package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proxygate/proxygate/internal/auth/domain"
	"github.com/proxygate/proxygate/internal/auth/service"
	autherror "github.com/proxygate/proxygate/internal/errors"
)

func newGateFixture(t *testing.T) (*service.AuthGate, *memoryStore, *fakeCache, *service.TokenService, *domain.User) {
	t.Helper()

	store := newMemoryStore()
	cache := newFakeCache()
	tokens := service.NewTokenService("gate-test-secret", 30*time.Minute, 24*time.Hour)
	gate := service.NewAuthGate(store, tokens, cache)

	id, err := store.Create(context.Background(), &domain.User{
		Email:    "gate@example.com",
		Username: "gate",
		IsActive: true,
	})
	require.NoError(t, err)

	user, err := store.GetByID(context.Background(), id)
	require.NoError(t, err)

	return gate, store, cache, tokens, user
}

func TestAuthGate_Authorize_CacheMiss(t *testing.T) {
	gate, _, _, tokens, user := newGateFixture(t)

	token, err := tokens.IssueAccess(user.ID, user.Email)
	require.NoError(t, err)

	resolved, err := gate.Authorize(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)
}

func TestAuthGate_Authorize_CacheHitEquivalence(t *testing.T) {
	gate, _, cache, tokens, user := newGateFixture(t)

	token, err := tokens.IssueAccess(user.ID, user.Email)
	require.NoError(t, err)

	viaMiss, err := gate.Authorize(context.Background(), token)
	require.NoError(t, err)

	require.NoError(t, cache.CacheToken(context.Background(), token, user.ID, time.Minute))

	viaHit, err := gate.Authorize(context.Background(), token)
	require.NoError(t, err)

	assert.Equal(t, viaMiss.ID, viaHit.ID)
	assert.Equal(t, viaMiss.Email, viaHit.Email)
}

func TestAuthGate_Authorize_CacheUnavailableFallsBack(t *testing.T) {
	gate, _, cache, tokens, user := newGateFixture(t)

	token, err := tokens.IssueAccess(user.ID, user.Email)
	require.NoError(t, err)

	cache.unavailable = true

	resolved, err := gate.Authorize(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)
}

func TestAuthGate_Authorize_RejectsRefreshToken(t *testing.T) {
	gate, _, _, tokens, user := newGateFixture(t)

	refresh, err := tokens.IssueRefresh(user.ID, user.Email)
	require.NoError(t, err)

	_, err = gate.Authorize(context.Background(), refresh)
	assert.ErrorIs(t, err, autherror.ErrMalformedToken)
}

func TestAuthGate_Authorize_Failures(t *testing.T) {
	gate, store, _, tokens, user := newGateFixture(t)

	t.Run("empty token", func(t *testing.T) {
		_, err := gate.Authorize(context.Background(), "")
		assert.ErrorIs(t, err, autherror.ErrMissingToken)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := tokens.Issue(user.ID, user.Email, service.TokenTypeAccess, -time.Minute)
		require.NoError(t, err)

		_, err = gate.Authorize(context.Background(), token)
		assert.ErrorIs(t, err, autherror.ErrTokenExpired)
	})

	t.Run("unknown user", func(t *testing.T) {
		token, err := tokens.IssueAccess(9999, "ghost@example.com")
		require.NoError(t, err)

		_, err = gate.Authorize(context.Background(), token)
		assert.ErrorIs(t, err, autherror.ErrUserNotFound)
	})

	t.Run("inactive user", func(t *testing.T) {
		inactive := *user
		inactive.IsActive = false
		require.NoError(t, store.Update(context.Background(), &inactive))

		token, err := tokens.IssueAccess(user.ID, user.Email)
		require.NoError(t, err)

		_, err = gate.Authorize(context.Background(), token)
		assert.ErrorIs(t, err, autherror.ErrUserInactive)

		require.NoError(t, store.Update(context.Background(), user))
	})
}
