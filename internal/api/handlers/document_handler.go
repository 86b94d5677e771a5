package handlers

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/atavi-atlas/backend/internal/ingestion"
	"github.com/atavi-atlas/backend/internal/ocr/extract"
	"github.com/atavi-atlas/backend/internal/ocr/provider"
	"github.com/atavi-atlas/backend/pkg/logger"
)

type DocumentHandler struct {
	processor *ingestion.Processor
}

func NewDocumentHandler(processor *ingestion.Processor) *DocumentHandler {
	return &DocumentHandler{
		processor: processor,
	}
}

// UploadDocument accepts a scanned FRA form and runs the full OCR-to-claim
// pipeline. The form category defaults to a new claim form.
func (h *DocumentHandler) UploadDocument(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, "file is required")
	}

	formCategory := c.FormValue("form_category", extract.CategoryNewClaim)

	file, err := fileHeader.Open()
	if err != nil {
		logger.Error("Failed to open upload", zap.Error(err))
		return respondError(c, fiber.StatusBadRequest, "Unreadable upload")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		logger.Error("Failed to read upload", zap.Error(err))
		return respondError(c, fiber.StatusBadRequest, "Unreadable upload")
	}

	claim, err := h.processor.ProcessDocument(c.Context(), fileHeader.Filename, data, formCategory)
	if err != nil {
		if errors.Is(err, extract.ErrInvalidFormCategory) {
			return respondError(c, fiber.StatusBadRequest, "Unknown form category")
		}

		var provErr *provider.Error
		if errors.As(err, &provErr) && provErr.StatusCode == fiber.StatusTooManyRequests {
			return respondError(c, fiber.StatusTooManyRequests, "OCR provider rate limit reached, retry later")
		}

		logger.Error("Document processing failed",
			zap.String("filename", fileHeader.Filename),
			zap.Error(err),
		)
		return respondError(c, fiber.StatusBadGateway, "Failed to process document")
	}

	return respondCreated(c, claim)
}

// FormTypes lists the recognised form categories and their field names, so
// clients can render manual-correction UIs.
func (h *DocumentHandler) FormTypes(c *fiber.Ctx) error {
	newClaimFields, _ := extract.FieldNames(extract.CategoryNewClaim)
	legacyFields, _ := extract.FieldNames(extract.CategoryLegacyClaim)

	return respondOK(c, fiber.Map{
		"form_categories": []fiber.Map{
			{
				"category":    extract.CategoryNewClaim,
				"description": "New FRA claim form (FORM-A / FORM-B / FORM-C)",
				"subtypes":    []string{extract.SubtypeIFR, extract.SubtypeCR, extract.SubtypeCFR},
				"fields":      newClaimFields,
			},
			{
				"category":    extract.CategoryLegacyClaim,
				"description": "Legacy granted title record",
				"subtypes":    []string{"Granted Title"},
				"fields":      legacyFields,
			},
		},
	})
}
