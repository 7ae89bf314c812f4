package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/proxygate/proxygate/internal/auth/dto"
)

func (h *AuthHandler) GetProfile(c *fiber.Ctx) error {
	return c.JSON(dto.NewUserOutput(CurrentUser(c)))
}

func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	var input dto.UpdateProfileInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}

	user := CurrentUser(c)
	if err := h.userService.UpdateProfile(c.UserContext(), user, input); err != nil {
		return fiberError(c, err)
	}

	return c.JSON(dto.NewUserOutput(user))
}

func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var input dto.PasswordChangeInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}

	if err := h.userService.ChangePassword(c.UserContext(), CurrentUser(c), input); err != nil {
		return fiberError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
