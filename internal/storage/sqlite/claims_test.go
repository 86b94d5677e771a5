package sqlite

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/atavi-atlas/backend/internal/storage/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	client, err := NewClient(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	if err := client.InitSchema(); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}
	return client
}

func testDraft() *models.ClaimDraft {
	return &models.ClaimDraft{
		ClaimantName: "Ram Singh",
		VillageName:  "Khandagiri",
		District:     "Khordha",
		State:        "Odisha",
		FormType:     "IFR",
		FormSubtype:  "IFR",
		Status:       models.StatusOCRProcessed,
		Priority:     "Medium",
		ExtractedFields: map[string]string{
			"FullName": "Ram Singh",
			"District": "Khordha",
			"Spouse":   "",
		},
		OCRMetadata: &models.OCRMetadata{
			AtlasVersion: "1.0.0",
			Confidence:   0.9,
			RawText:      "FORM - A ...",
		},
		DocumentFilename: "claim_001.pdf",
	}
}

func TestInsertAndGetClaim(t *testing.T) {
	client := newTestClient(t)

	id, err := client.InsertClaim(testDraft())
	if err != nil {
		t.Fatalf("InsertClaim: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero claim id")
	}

	claim, err := client.GetClaim(id, true)
	if err != nil {
		t.Fatalf("GetClaim: %v", err)
	}
	if claim == nil {
		t.Fatal("expected claim, got nil")
	}
	if claim.ClaimantName != "Ram Singh" {
		t.Errorf("claimant = %q, want %q", claim.ClaimantName, "Ram Singh")
	}
	if claim.OCRMetadata == nil {
		t.Fatal("OCR Processed claim must carry ocr metadata")
	}
	if claim.ExtractedFields == nil {
		t.Fatal("extracted_fields must always be present")
	}
	if got := claim.ExtractedFields["Spouse"]; got != "" {
		t.Errorf("unmatched field should be empty string, got %q", got)
	}
}

func TestGetClaimLightView(t *testing.T) {
	client := newTestClient(t)

	id, err := client.InsertClaim(testDraft())
	if err != nil {
		t.Fatalf("InsertClaim: %v", err)
	}

	claim, err := client.GetClaim(id, false)
	if err != nil {
		t.Fatalf("GetClaim: %v", err)
	}
	if claim.OCRMetadata != nil {
		t.Error("light view should omit ocr metadata")
	}
	if claim.ExtractedFields != nil {
		t.Error("light view should omit extracted fields")
	}
	if claim.Latitude != nil {
		t.Error("light view should omit coordinates")
	}
}

func TestGetClaimMissingReturnsNil(t *testing.T) {
	client := newTestClient(t)

	claim, err := client.GetClaim(99, true)
	if err != nil {
		t.Fatalf("GetClaim: %v", err)
	}
	if claim != nil {
		t.Errorf("expected nil for missing claim, got %+v", claim)
	}
}

func TestUpdateClaimStatus(t *testing.T) {
	client := newTestClient(t)

	id, err := client.InsertClaim(testDraft())
	if err != nil {
		t.Fatalf("InsertClaim: %v", err)
	}

	if err := client.UpdateClaimStatus(id, models.StatusApproved, "verified by DLC"); err != nil {
		t.Fatalf("UpdateClaimStatus: %v", err)
	}

	// Same status again is idempotent but still appends a log line.
	if err := client.UpdateClaimStatus(id, models.StatusApproved, ""); err != nil {
		t.Fatalf("UpdateClaimStatus repeat: %v", err)
	}

	claim, err := client.GetClaim(id, true)
	if err != nil {
		t.Fatalf("GetClaim: %v", err)
	}
	if claim.Status != models.StatusApproved {
		t.Errorf("status = %q, want %q", claim.Status, models.StatusApproved)
	}
	lines := strings.Count(claim.VerificationNotes, "status:")
	if lines != 2 {
		t.Errorf("expected 2 transition notes, got %d: %q", lines, claim.VerificationNotes)
	}
	if !strings.Contains(claim.VerificationNotes, "verified by DLC") {
		t.Errorf("notes missing transition comment: %q", claim.VerificationNotes)
	}
}

func TestUpdateClaimStatusErrors(t *testing.T) {
	client := newTestClient(t)

	id, err := client.InsertClaim(testDraft())
	if err != nil {
		t.Fatalf("InsertClaim: %v", err)
	}

	if err := client.UpdateClaimStatus(99, models.StatusApproved, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing claim: err = %v, want ErrNotFound", err)
	}
	if err := client.UpdateClaimStatus(id, "Teleported", ""); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("bad status: err = %v, want ErrInvalidStatus", err)
	}
}

func TestAssignOfficer(t *testing.T) {
	client := newTestClient(t)

	id, err := client.InsertClaim(testDraft())
	if err != nil {
		t.Fatalf("InsertClaim: %v", err)
	}

	if err := client.AssignOfficer(id, "Priya Mohanty"); err != nil {
		t.Fatalf("AssignOfficer: %v", err)
	}

	claim, err := client.GetClaim(id, true)
	if err != nil {
		t.Fatalf("GetClaim: %v", err)
	}
	if claim.AssignedOfficer != "Priya Mohanty" {
		t.Errorf("officer = %q, want %q", claim.AssignedOfficer, "Priya Mohanty")
	}
	if claim.Status != models.StatusUnderReview {
		t.Errorf("status = %q, want %q", claim.Status, models.StatusUnderReview)
	}

	if err := client.AssignOfficer(99, "Nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing claim: err = %v, want ErrNotFound", err)
	}
}

func TestUpdateClaimFields(t *testing.T) {
	client := newTestClient(t)

	id, err := client.InsertClaim(testDraft())
	if err != nil {
		t.Fatalf("InsertClaim: %v", err)
	}

	applied, err := client.UpdateClaimFields(id, map[string]interface{}{
		"priority":      "High",
		"is_verified":   true,
		"ocr_metadata":  "should be ignored",
		"unknown_field": 42,
	})
	if err != nil {
		t.Fatalf("UpdateClaimFields: %v", err)
	}
	if len(applied) != 2 {
		t.Errorf("applied = %v, want priority and is_verified only", applied)
	}

	claim, err := client.GetClaim(id, true)
	if err != nil {
		t.Fatalf("GetClaim: %v", err)
	}
	if claim.Priority != "High" {
		t.Errorf("priority = %q, want High", claim.Priority)
	}
	if !claim.IsVerified {
		t.Error("expected claim to be verified")
	}

	if _, err := client.UpdateClaimFields(id, map[string]interface{}{"nope": 1}); !errors.Is(err, ErrNoChanges) {
		t.Errorf("unknown-only update: err = %v, want ErrNoChanges", err)
	}
	if _, err := client.UpdateClaimFields(99, map[string]interface{}{"priority": "Low"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing claim: err = %v, want ErrNotFound", err)
	}
}

func TestDeleteClaim(t *testing.T) {
	client := newTestClient(t)

	id, err := client.InsertClaim(testDraft())
	if err != nil {
		t.Fatalf("InsertClaim: %v", err)
	}

	if err := client.DeleteClaim(id); err != nil {
		t.Fatalf("DeleteClaim: %v", err)
	}
	if err := client.DeleteClaim(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: err = %v, want ErrNotFound", err)
	}

	claim, err := client.GetClaim(id, true)
	if err != nil {
		t.Fatalf("GetClaim: %v", err)
	}
	if claim != nil {
		t.Error("claim should be gone after delete")
	}
}

func TestSearchClaims(t *testing.T) {
	client := newTestClient(t)

	first := testDraft()
	second := testDraft()
	second.ClaimantName = "Sita Devi"
	second.District = "Mayurbhanj"
	second.DocumentFilename = "legacy_claim_042.pdf"

	for _, draft := range []*models.ClaimDraft{first, second} {
		if _, err := client.InsertClaim(draft); err != nil {
			t.Fatalf("InsertClaim: %v", err)
		}
	}

	tests := []struct {
		term string
		want int
	}{
		{"Ram", 1},
		{"Mayurbhanj", 1},
		{"Khandagiri", 2},
		{"legacy_claim", 1},
		{"nonexistent", 0},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			got, err := client.SearchClaims(tt.term, false)
			if err != nil {
				t.Fatalf("SearchClaims: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("search %q returned %d claims, want %d", tt.term, len(got), tt.want)
			}
		})
	}
}

func TestListClaimsPagination(t *testing.T) {
	client := newTestClient(t)

	for i := 0; i < 5; i++ {
		if _, err := client.InsertClaim(testDraft()); err != nil {
			t.Fatalf("InsertClaim: %v", err)
		}
	}

	page, err := client.ListClaims(2, 2, false)
	if err != nil {
		t.Fatalf("ListClaims: %v", err)
	}
	if len(page) != 2 {
		t.Errorf("page size = %d, want 2", len(page))
	}
}
