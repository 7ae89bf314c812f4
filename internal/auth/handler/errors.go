package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	autherror "github.com/proxygate/proxygate/internal/errors"
)

// StatusForError maps core error kinds to HTTP status codes at the
// transport boundary.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, autherror.ErrMissingToken),
		errors.Is(err, autherror.ErrMalformedToken),
		errors.Is(err, autherror.ErrBadSignature),
		errors.Is(err, autherror.ErrTokenExpired),
		errors.Is(err, autherror.ErrInvalidCredentials),
		errors.Is(err, autherror.ErrUserNotFound),
		errors.Is(err, autherror.ErrSessionInvalid):
		return fiber.StatusUnauthorized
	case errors.Is(err, autherror.ErrUserInactive),
		errors.Is(err, autherror.ErrNotAdmin):
		return fiber.StatusForbidden
	case errors.Is(err, autherror.ErrBadTargetURL),
		errors.Is(err, autherror.ErrPasswordTooWeak),
		errors.Is(err, autherror.ErrEmailInUse),
		errors.Is(err, autherror.ErrUsernameInUse):
		return fiber.StatusBadRequest
	case errors.Is(err, autherror.ErrBodyTooLarge):
		return fiber.StatusRequestEntityTooLarge
	case errors.Is(err, autherror.ErrSessionNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, autherror.ErrUpstreamTimeout):
		return fiber.StatusGatewayTimeout
	case errors.Is(err, autherror.ErrUpstreamConnect):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// fiberError writes the mapped status with a short classification message.
// Internal detail is logged server-side, never echoed to the caller.
func fiberError(c *fiber.Ctx, err error) error {
	status := StatusForError(err)

	switch {
	case status == fiber.StatusInternalServerError:
		logrus.WithError(err).Error("unhandled internal error")
		return c.Status(status).JSON(fiber.Map{"error": "internal server error"})
	case errors.Is(err, autherror.ErrUpstreamTimeout):
		logrus.WithError(err).Warn("upstream timeout")
		return c.Status(status).JSON(fiber.Map{"error": autherror.ErrUpstreamTimeout.Error()})
	case errors.Is(err, autherror.ErrUpstreamConnect):
		logrus.WithError(err).Warn("upstream connect failure")
		return c.Status(status).JSON(fiber.Map{"error": autherror.ErrUpstreamConnect.Error()})
	}

	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
