// Package ingestion drives the document-to-claim pipeline: store the upload,
// run OCR, extract form fields, and materialize a claim record.
package ingestion

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/atavi-atlas/backend/internal/metrics"
	"github.com/atavi-atlas/backend/internal/ocr/director"
	"github.com/atavi-atlas/backend/internal/ocr/extract"
	"github.com/atavi-atlas/backend/internal/ocr/ner"
	"github.com/atavi-atlas/backend/internal/ocr/provider"
	"github.com/atavi-atlas/backend/internal/storage/blob"
	"github.com/atavi-atlas/backend/internal/storage/models"
	"github.com/atavi-atlas/backend/pkg/logger"
)

// TextExtractor is the OCR boundary, narrowed for testability.
type TextExtractor interface {
	ExtractText(ctx context.Context, document []byte, filename string) (*provider.Result, error)
}

// ClaimCreator persists materialized drafts.
type ClaimCreator interface {
	Create(ctx context.Context, draft *models.ClaimDraft) (*models.Claim, error)
}

type Processor struct {
	ocr      TextExtractor
	director *director.Director
	store    *blob.Store
	claims   ClaimCreator
}

func NewProcessor(ocr TextExtractor, dir *director.Director, store *blob.Store, claims ClaimCreator) *Processor {
	return &Processor{
		ocr:      ocr,
		director: dir,
		store:    store,
		claims:   claims,
	}
}

// ProcessDocument runs the full pipeline for one uploaded form and returns
// the created claim.
func (p *Processor) ProcessDocument(ctx context.Context, filename string, data []byte, formCategory string) (*models.Claim, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty document: %s", filename)
	}

	logger.Info("Processing claim document",
		zap.String("filename", filename),
		zap.String("form_category", formCategory),
		zap.Int("size_bytes", len(data)),
	)

	saved, err := p.store.Save(filename, data)
	if err != nil {
		metrics.DocumentsProcessed.WithLabelValues("storage_error").Inc()
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	start := time.Now()
	result, err := p.ocr.ExtractText(ctx, data, saved.Name)
	metrics.OCRDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.DocumentsProcessed.WithLabelValues("ocr_error").Inc()
		return nil, fmt.Errorf("failed to extract text: %w", err)
	}
	metrics.OCRConfidence.Observe(result.Confidence)

	fields, err := extract.Fields(result.Text, formCategory)
	if err != nil {
		metrics.DocumentsProcessed.WithLabelValues("invalid_category").Inc()
		return nil, err
	}

	draft, err := p.director.Materialize(director.Payload{
		Fields:     fields,
		Confidence: result.Confidence,
		RawText:    result.Text,
		Hints:      ner.Extract(result.Text),
	}, formCategory, saved.Name)
	if err != nil {
		metrics.DocumentsProcessed.WithLabelValues("materialize_error").Inc()
		return nil, err
	}
	draft.DocumentURL = saved.URL

	claim, err := p.claims.Create(ctx, draft)
	if err != nil {
		metrics.DocumentsProcessed.WithLabelValues("storage_error").Inc()
		return nil, err
	}

	metrics.DocumentsProcessed.WithLabelValues("success").Inc()
	logger.Info("Document materialized into claim",
		zap.Int("claim_id", claim.ID),
		zap.String("document", saved.Name),
	)

	return claim, nil
}

// CreateFromAtlas materializes a claim from a structured atlas payload,
// bypassing OCR. Used by the direct claim-creation endpoint.
func (p *Processor) CreateFromAtlas(ctx context.Context, atlas *director.AtlasValues, fields map[string]string, formCategory string) (*models.Claim, error) {
	draft, err := p.director.Materialize(director.Payload{
		Atlas:  atlas,
		Fields: fields,
	}, formCategory, "")
	if err != nil {
		return nil, err
	}
	return p.claims.Create(ctx, draft)
}
