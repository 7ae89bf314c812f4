package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/proxygate/proxygate/internal/auth/domain"
	"github.com/proxygate/proxygate/internal/auth/service"
	autherror "github.com/proxygate/proxygate/internal/errors"
)

const (
	userLocalsKey  = "currentUser"
	tokenLocalsKey = "currentToken"
)

// RequireAuth extracts the bearer token, authorizes it through the gate,
// and stores the resolved user for downstream handlers.
func RequireAuth(gate *service.AuthGate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		const prefix = "Bearer "

		header := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(header, prefix) {
			return fiberError(c, autherror.ErrMissingToken)
		}
		token := strings.TrimPrefix(header, prefix)

		user, err := gate.Authorize(c.UserContext(), token)
		if err != nil {
			return fiberError(c, err)
		}

		c.Locals(userLocalsKey, user)
		c.Locals(tokenLocalsKey, token)

		return c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin {
			return fiberError(c, autherror.ErrNotAdmin)
		}

		return c.Next()
	}
}

// CurrentUser returns the user resolved by RequireAuth, or nil.
func CurrentUser(c *fiber.Ctx) *domain.User {
	user, _ := c.Locals(userLocalsKey).(*domain.User)
	return user
}

// BearerToken returns the raw token RequireAuth authorized, or "".
func BearerToken(c *fiber.Ctx) string {
	token, _ := c.Locals(tokenLocalsKey).(string)
	return token
}
