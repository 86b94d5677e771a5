package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/atavi-atlas/backend/internal/claims"
	"github.com/atavi-atlas/backend/internal/ingestion"
	"github.com/atavi-atlas/backend/internal/ocr/director"
	"github.com/atavi-atlas/backend/internal/ocr/extract"
	"github.com/atavi-atlas/backend/internal/storage/sqlite"
	"github.com/atavi-atlas/backend/pkg/logger"
)

type ClaimHandler struct {
	claims    *claims.Service
	processor *ingestion.Processor
}

func NewClaimHandler(claimsService *claims.Service, processor *ingestion.Processor) *ClaimHandler {
	return &ClaimHandler{
		claims:    claimsService,
		processor: processor,
	}
}

// CreateClaim creates a claim from a structured payload, without a document.
func (h *ClaimHandler) CreateClaim(c *fiber.Ctx) error {
	var req struct {
		FormCategory string            `json:"form_category"`
		ClaimantName string            `json:"claimant_name"`
		VillageName  string            `json:"village_name"`
		District     string            `json:"district"`
		State        string            `json:"state"`
		FormType     string            `json:"form_type"`
		Comments     string            `json:"comments"`
		Fields       map[string]string `json:"fields"`
	}
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse claim request", zap.Error(err))
		return respondError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if req.FormCategory == "" {
		req.FormCategory = extract.CategoryNewClaim
	}

	claim, err := h.processor.CreateFromAtlas(c.Context(), &director.AtlasValues{
		ClaimantName: req.ClaimantName,
		VillageName:  req.VillageName,
		District:     req.District,
		State:        req.State,
		FormType:     req.FormType,
		Comments:     req.Comments,
	}, req.Fields, req.FormCategory)
	if err != nil {
		if errors.Is(err, extract.ErrInvalidFormCategory) {
			return respondError(c, fiber.StatusBadRequest, "Unknown form category")
		}
		logger.Error("Failed to create claim", zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, "Failed to create claim")
	}

	return respondCreated(c, claim)
}

func (h *ClaimHandler) GetClaim(c *fiber.Ctx) error {
	id, err := claimID(c)
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid claim id")
	}

	claim, err := h.claims.Get(id, c.QueryBool("full", true))
	if err != nil {
		logger.Error("Failed to load claim", zap.Int("claim_id", id), zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, "Failed to load claim")
	}
	if claim == nil {
		return respondError(c, fiber.StatusNotFound, "Claim not found")
	}

	return respondOK(c, claim)
}

// ListClaims serves the listing surface. Filters are mutually exclusive in
// priority order: search term, then status, then district.
func (h *ClaimHandler) ListClaims(c *fiber.Ctx) error {
	full := c.QueryBool("full", false)

	if term := c.Query("q"); term != "" {
		if sanitized, ok := c.Locals("sanitized_search").(string); ok {
			term = sanitized
		}
		return respondOK(c, h.claims.Search(term, full))
	}

	if status := c.Query("status"); status != "" {
		results, err := h.claims.ByStatus(status, full)
		if err != nil {
			if errors.Is(err, sqlite.ErrInvalidStatus) {
				return respondError(c, fiber.StatusBadRequest, "Unknown claim status")
			}
			logger.Error("Failed to list claims by status", zap.Error(err))
			return respondError(c, fiber.StatusInternalServerError, "Failed to list claims")
		}
		return respondOK(c, results)
	}

	if district := c.Query("district"); district != "" {
		results, err := h.claims.ByDistrict(district, full)
		if err != nil {
			logger.Error("Failed to list claims by district", zap.Error(err))
			return respondError(c, fiber.StatusInternalServerError, "Failed to list claims")
		}
		return respondOK(c, results)
	}

	skip := c.QueryInt("skip", 0)
	limit := c.QueryInt("limit", 100)
	results, err := h.claims.List(skip, limit, full)
	if err != nil {
		logger.Error("Failed to list claims", zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, "Failed to list claims")
	}
	return respondOK(c, results)
}

func (h *ClaimHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := claimID(c)
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid claim id")
	}

	var req struct {
		Status string `json:"status"`
		Notes  string `json:"notes"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if err := h.claims.UpdateStatus(c.Context(), id, req.Status, req.Notes); err != nil {
		switch {
		case errors.Is(err, sqlite.ErrNotFound):
			return respondError(c, fiber.StatusNotFound, "Claim not found")
		case errors.Is(err, sqlite.ErrInvalidStatus):
			return respondError(c, fiber.StatusBadRequest, "Unknown claim status")
		default:
			logger.Error("Failed to update status", zap.Int("claim_id", id), zap.Error(err))
			return respondError(c, fiber.StatusInternalServerError, "Failed to update status")
		}
	}

	return respondOK(c, fiber.Map{"claim_id": id, "status": req.Status})
}

func (h *ClaimHandler) AssignOfficer(c *fiber.Ctx) error {
	id, err := claimID(c)
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid claim id")
	}

	var req struct {
		OfficerName string `json:"officer_name"`
	}
	if err := c.BodyParser(&req); err != nil || req.OfficerName == "" {
		return respondError(c, fiber.StatusBadRequest, "officer_name is required")
	}

	if err := h.claims.AssignOfficer(c.Context(), id, req.OfficerName); err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return respondError(c, fiber.StatusNotFound, "Claim not found")
		}
		logger.Error("Failed to assign officer", zap.Int("claim_id", id), zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, "Failed to assign officer")
	}

	return respondOK(c, fiber.Map{"claim_id": id, "assigned_officer": req.OfficerName})
}

// UpdateClaim applies a partial update; unknown fields are ignored.
func (h *ClaimHandler) UpdateClaim(c *fiber.Ctx) error {
	id, err := claimID(c)
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid claim id")
	}

	var updates map[string]interface{}
	if err := c.BodyParser(&updates); err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	applied, err := h.claims.UpdateFields(c.Context(), id, updates)
	if err != nil {
		switch {
		case errors.Is(err, sqlite.ErrNotFound):
			return respondError(c, fiber.StatusNotFound, "Claim not found")
		case errors.Is(err, sqlite.ErrNoChanges):
			return respondError(c, fiber.StatusBadRequest, "No updatable fields in request")
		default:
			logger.Error("Failed to update claim", zap.Int("claim_id", id), zap.Error(err))
			return respondError(c, fiber.StatusInternalServerError, "Failed to update claim")
		}
	}

	return respondOK(c, fiber.Map{"claim_id": id, "updated_fields": applied})
}

func (h *ClaimHandler) DeleteClaim(c *fiber.Ctx) error {
	id, err := claimID(c)
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid claim id")
	}

	if err := h.claims.Delete(c.Context(), id); err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return respondError(c, fiber.StatusNotFound, "Claim not found")
		}
		logger.Error("Failed to delete claim", zap.Int("claim_id", id), zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, "Failed to delete claim")
	}

	return respondOK(c, fiber.Map{"claim_id": id, "deleted": true})
}

func claimID(c *fiber.Ctx) (int, error) {
	return strconv.Atoi(c.Params("id"))
}
