package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/atavi-atlas/backend/internal/claims"
	"github.com/atavi-atlas/backend/pkg/logger"
)

type DashboardHandler struct {
	claims *claims.Service
}

func NewDashboardHandler(claimsService *claims.Service) *DashboardHandler {
	return &DashboardHandler{
		claims: claimsService,
	}
}

func (h *DashboardHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.claims.Dashboard(c.Context())
	if err != nil {
		logger.Error("Failed to compute dashboard stats", zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, "Failed to compute dashboard stats")
	}
	return respondOK(c, stats)
}

func (h *DashboardHandler) Summary(c *fiber.Ctx) error {
	summary, err := h.claims.Summary()
	if err != nil {
		logger.Error("Failed to compute claims summary", zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, "Failed to compute claims summary")
	}
	return respondOK(c, summary)
}
