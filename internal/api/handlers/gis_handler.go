package handlers

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/atavi-atlas/backend/internal/gis"
	"github.com/atavi-atlas/backend/internal/storage/sqlite"
	"github.com/atavi-atlas/backend/pkg/logger"
)

type GISHandler struct {
	gis *gis.Service
}

func NewGISHandler(gisService *gis.Service) *GISHandler {
	return &GISHandler{
		gis: gisService,
	}
}

// AnalyzeClaim classifies the submitted boundary and appends the result to
// the claim's analysis history.
func (h *GISHandler) AnalyzeClaim(c *fiber.Ctx) error {
	id, err := claimID(c)
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid claim id")
	}

	var req struct {
		Boundary json.RawMessage `json:"boundary"`
	}
	if err := c.BodyParser(&req); err != nil || len(req.Boundary) == 0 {
		return respondError(c, fiber.StatusBadRequest, "boundary GeoJSON is required")
	}

	result, err := h.gis.AnalyzeForClaim(c.Context(), id, req.Boundary)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return respondError(c, fiber.StatusNotFound, "Claim not found")
		}
		logger.Error("Failed to analyze claim boundary", zap.Int("claim_id", id), zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, "Failed to analyze boundary")
	}

	return respondOK(c, result)
}

// ClaimGIS returns the stored analysis history for one claim.
func (h *GISHandler) ClaimGIS(c *fiber.Ctx) error {
	id, err := claimID(c)
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid claim id")
	}

	data, err := h.gis.GetForClaim(id)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return respondError(c, fiber.StatusNotFound, "Claim not found")
		}
		logger.Error("Failed to load claim GIS data", zap.Int("claim_id", id), zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, "Failed to load GIS data")
	}

	return respondOK(c, data)
}

func (h *GISHandler) Summary(c *fiber.Ctx) error {
	summary, err := h.gis.Summary()
	if err != nil {
		logger.Error("Failed to compute GIS summary", zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, "Failed to compute GIS summary")
	}
	return respondOK(c, summary)
}
