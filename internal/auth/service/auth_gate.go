package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/proxygate/proxygate/internal/auth/domain"
	autherror "github.com/proxygate/proxygate/internal/errors"
)

// AuthGate is the single authorization checkpoint for every proxied request
// and WebSocket upgrade. It resolves a presented access token to an active
// user via a two-tier lookup: the fast cache first, then full signature
// verification.
type AuthGate struct {
	users  domain.UserRepository
	tokens TokenGenerator
	cache  domain.TokenCache
}

func NewAuthGate(users domain.UserRepository, tokens TokenGenerator, cache domain.TokenCache) *AuthGate {
	return &AuthGate{users: users, tokens: tokens, cache: cache}
}

// Authorize resolves a presented bearer token to a user. Cache entries are
// trusted without re-verification because they are only written right after
// a successful verify; a cache error is treated as a miss so an unreachable
// cache never blocks authorization.
func (g *AuthGate) Authorize(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, autherror.ErrMissingToken
	}

	userID, hit, err := g.cache.UserIDForToken(ctx, token)
	if err != nil {
		logrus.WithError(err).Warn("token cache unavailable, falling back to verification")
		hit = false
	}

	if !hit {
		claims, err := g.tokens.Verify(token)
		if err != nil {
			return nil, err
		}
		if claims.Type != TokenTypeAccess {
			return nil, autherror.ErrMalformedToken
		}
		userID, err = claims.UserID()
		if err != nil {
			return nil, err
		}
	}

	user, err := g.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, autherror.ErrUserNotFound
	}
	if !user.IsActive {
		return nil, autherror.ErrUserInactive
	}

	return user, nil
}
