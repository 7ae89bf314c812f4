package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/proxygate/proxygate/internal/usage"
)

type StatsHandler struct {
	accountant *usage.Accountant
}

func NewStatsHandler(accountant *usage.Accountant) *StatsHandler {
	return &StatsHandler{accountant: accountant}
}

func (h *StatsHandler) GetStats(c *fiber.Ctx) error {
	user := CurrentUser(c)

	stats, err := h.accountant.Read(c.UserContext(), user.ID)
	if err != nil {
		logrus.WithError(err).Error("failed to read usage stats")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(stats)
}
