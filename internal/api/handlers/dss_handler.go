package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/atavi-atlas/backend/internal/claims"
	"github.com/atavi-atlas/backend/internal/dss"
	"github.com/atavi-atlas/backend/internal/gis"
	"github.com/atavi-atlas/backend/pkg/logger"
)

type DSSHandler struct {
	claims      *claims.Service
	gis         *gis.Service
	recommender *dss.Recommender
}

func NewDSSHandler(claimsService *claims.Service, gisService *gis.Service, recommender *dss.Recommender) *DSSHandler {
	return &DSSHandler{
		claims:      claimsService,
		gis:         gisService,
		recommender: recommender,
	}
}

// Recommendations returns scheme recommendations for a claim, combining its
// workflow state with any stored land classification.
func (h *DSSHandler) Recommendations(c *fiber.Ctx) error {
	id, err := claimID(c)
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid claim id")
	}

	claim, err := h.claims.Get(id, false)
	if err != nil {
		logger.Error("Failed to load claim", zap.Int("claim_id", id), zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, "Failed to load claim")
	}
	if claim == nil {
		return respondError(c, fiber.StatusNotFound, "Claim not found")
	}

	gisData, err := h.gis.GetForClaim(id)
	if err != nil {
		logger.Error("Failed to load GIS data for recommendations", zap.Int("claim_id", id), zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, "Failed to load GIS data")
	}

	rec := h.recommender.Recommend(c.Context(), claim, gisData.Analytics)
	return respondOK(c, rec)
}
