package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/proxygate/proxygate/internal/auth/dto"
	"github.com/proxygate/proxygate/internal/auth/service"
	autherror "github.com/proxygate/proxygate/internal/errors"
)

type AuthHandler struct {
	userService *service.UserService
}

func NewAuthHandler(userService *service.UserService) *AuthHandler {
	return &AuthHandler{userService: userService}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input dto.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid input",
		})
	}

	user, err := h.userService.Register(c.UserContext(), input)
	if err != nil {
		return fiberError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.RegisterOutput{
		Message: "user registered",
		UserID:  user.ID,
		Email:   user.Email,
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input dto.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid input",
		})
	}

	input.IPAddress = c.IP()
	input.UserAgent = string(c.Request().Header.UserAgent())

	tokenPair, err := h.userService.Login(c.UserContext(), input)
	if err != nil {
		return fiberError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(tokenPair)
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var input dto.RefreshInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}

	tokens, err := h.userService.Refresh(c.UserContext(), input.RefreshToken)
	if err != nil {
		return fiberError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(tokens)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	h.userService.Logout(c.UserContext(), BearerToken(c))

	return c.JSON(fiber.Map{"message": "logged out"})
}

func (h *AuthHandler) ListSessions(c *fiber.Ctx) error {
	user := CurrentUser(c)

	sessions, err := h.userService.Sessions(c.UserContext(), user.ID)
	if err != nil {
		return fiberError(c, err)
	}

	out := make([]dto.SessionOutput, 0, len(sessions))
	for i := range sessions {
		out = append(out, dto.NewSessionOutput(&sessions[i]))
	}

	return c.JSON(out)
}

func (h *AuthHandler) RevokeSession(c *fiber.Ctx) error {
	user := CurrentUser(c)
	sessionID := c.Params("id")

	deleted, err := h.userService.RevokeSession(c.UserContext(), sessionID, user.ID)
	if err != nil {
		return fiberError(c, err)
	}
	if !deleted {
		return fiberError(c, autherror.ErrSessionNotFound)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
