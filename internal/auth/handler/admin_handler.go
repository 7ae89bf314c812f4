package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/proxygate/proxygate/internal/auth/dto"
	"github.com/proxygate/proxygate/internal/auth/service"
	"github.com/proxygate/proxygate/internal/usage"
)

// AdminHandler serves user administration and the aggregate usage view.
type AdminHandler struct {
	userService *service.UserService
	accountant  *usage.Accountant
}

func NewAdminHandler(userService *service.UserService, accountant *usage.Accountant) *AdminHandler {
	return &AdminHandler{userService: userService, accountant: accountant}
}

func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	skip := c.QueryInt("skip", 0)
	limit := c.QueryInt("limit", 100)

	users, err := h.userService.ListUsers(c.UserContext(), skip, limit)
	if err != nil {
		return fiberError(c, err)
	}

	out := make([]dto.UserOutput, 0, len(users))
	for i := range users {
		out = append(out, dto.NewUserOutput(&users[i]))
	}

	return c.JSON(out)
}

func (h *AdminHandler) GetUser(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}

	user, err := h.userService.GetByID(c.UserContext(), userID)
	if err != nil {
		return fiberError(c, err)
	}
	if user == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
	}

	return c.JSON(dto.NewUserOutput(user))
}

func (h *AdminHandler) UpdateUser(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}

	var input dto.UpdateProfileInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}

	user, err := h.userService.UpdateUser(c.UserContext(), userID, input)
	if err != nil {
		return fiberError(c, err)
	}

	return c.JSON(dto.NewUserOutput(user))
}

func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}

	if userID == CurrentUser(c).ID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cannot delete yourself"})
	}

	if err := h.userService.DeleteUser(c.UserContext(), userID); err != nil {
		return fiberError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AdminHandler) AllStats(c *fiber.Ctx) error {
	users, err := h.userService.ListUsers(c.UserContext(), 0, 1000)
	if err != nil {
		return fiberError(c, err)
	}

	type userStats struct {
		dto.UserOutput
		usage.Stats
	}

	stats := make(map[int64]userStats, len(users))
	for i := range users {
		s, err := h.accountant.Read(c.UserContext(), users[i].ID)
		if err != nil {
			logrus.WithError(err).WithField("user_id", users[i].ID).Warn("failed to read usage")
		}
		stats[users[i].ID] = userStats{UserOutput: dto.NewUserOutput(&users[i]), Stats: s}
	}

	return c.JSON(fiber.Map{"users": stats, "total_users": len(users)})
}
