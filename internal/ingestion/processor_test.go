package ingestion

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/atavi-atlas/backend/internal/claims"
	"github.com/atavi-atlas/backend/internal/ocr/director"
	"github.com/atavi-atlas/backend/internal/ocr/extract"
	"github.com/atavi-atlas/backend/internal/ocr/provider"
	"github.com/atavi-atlas/backend/internal/storage/blob"
	"github.com/atavi-atlas/backend/internal/storage/models"
	"github.com/atavi-atlas/backend/internal/storage/sqlite"
)

type fakeOCR struct {
	text       string
	confidence float64
	err        error
}

func (f *fakeOCR) ExtractText(_ context.Context, _ []byte, _ string) (*provider.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &provider.Result{Text: f.text, Confidence: f.confidence}, nil
}

const sampleFormText = `FORM - A
CLAIM FORM FOR RIGHTS TO FOREST LAND
Name of the claimant (s): Ram Singh
Name of the village: Khandagiri
District: Khordha
`

func newTestProcessor(t *testing.T, ocr TextExtractor) *Processor {
	t.Helper()

	client, err := sqlite.NewClient(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	if err := client.InitSchema(); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}

	store, err := blob.NewStore(t.TempDir(), "http://localhost:8000/files")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	svc := claims.NewService(client, nil, nil)
	dir := director.New("Odisha", "1.0.0")
	return NewProcessor(ocr, dir, store, svc)
}

func TestProcessDocumentCreatesClaim(t *testing.T) {
	p := newTestProcessor(t, &fakeOCR{text: sampleFormText, confidence: 0.92})

	claim, err := p.ProcessDocument(context.Background(), "claim 001.pdf", []byte("%PDF-1.4"), extract.CategoryNewClaim)
	if err != nil {
		t.Fatalf("ProcessDocument: %v", err)
	}

	if claim.ClaimantName != "Ram Singh" {
		t.Fatalf("claimant = %q, want Ram Singh", claim.ClaimantName)
	}
	if claim.District != "Khordha" {
		t.Fatalf("district = %q, want Khordha", claim.District)
	}
	if claim.Status != models.StatusOCRProcessed {
		t.Fatalf("status = %q, want %q", claim.Status, models.StatusOCRProcessed)
	}
	if claim.FormSubtype != extract.SubtypeIFR {
		t.Fatalf("subtype = %q, want %q", claim.FormSubtype, extract.SubtypeIFR)
	}
	if !strings.HasPrefix(claim.DocumentURL, "http://localhost:8000/files/") {
		t.Fatalf("document url = %q", claim.DocumentURL)
	}
	// Stored name is sanitized, never the raw upload name.
	if strings.Contains(claim.DocumentFilename, " ") {
		t.Fatalf("document filename not sanitized: %q", claim.DocumentFilename)
	}
}

func TestProcessDocumentEmptyUpload(t *testing.T) {
	p := newTestProcessor(t, &fakeOCR{text: sampleFormText})

	if _, err := p.ProcessDocument(context.Background(), "claim.pdf", nil, extract.CategoryNewClaim); err == nil {
		t.Fatal("expected error for empty document")
	}
}

func TestProcessDocumentOCRFailure(t *testing.T) {
	p := newTestProcessor(t, &fakeOCR{err: errors.New("provider unavailable")})

	_, err := p.ProcessDocument(context.Background(), "claim.pdf", []byte("%PDF-1.4"), extract.CategoryNewClaim)
	if err == nil {
		t.Fatal("expected error when OCR fails")
	}
}

func TestProcessDocumentInvalidCategory(t *testing.T) {
	p := newTestProcessor(t, &fakeOCR{text: sampleFormText})

	_, err := p.ProcessDocument(context.Background(), "claim.pdf", []byte("%PDF-1.4"), "unknown_form")
	if !errors.Is(err, extract.ErrInvalidFormCategory) {
		t.Fatalf("err = %v, want ErrInvalidFormCategory", err)
	}
}

func TestCreateFromAtlas(t *testing.T) {
	p := newTestProcessor(t, &fakeOCR{})

	claim, err := p.CreateFromAtlas(context.Background(), &director.AtlasValues{
		ClaimantName: "Sita Devi",
		District:     "Mayurbhanj",
	}, nil, extract.CategoryNewClaim)
	if err != nil {
		t.Fatalf("CreateFromAtlas: %v", err)
	}
	if claim.ClaimantName != "Sita Devi" {
		t.Fatalf("claimant = %q, want Sita Devi", claim.ClaimantName)
	}
	if claim.State != "Odisha" {
		t.Fatalf("state = %q, want pilot state Odisha", claim.State)
	}
	if claim.Status != models.StatusPending {
		t.Fatalf("status = %q, want %q without an OCR run", claim.Status, models.StatusPending)
	}
	if claim.OCRMetadata != nil {
		t.Fatal("atlas-only claims must not carry ocr metadata")
	}
}
