package gis

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/atavi-atlas/backend/internal/gis/classifier"
	"github.com/atavi-atlas/backend/internal/storage/models"
	"github.com/atavi-atlas/backend/internal/storage/sqlite"
)

type fakeClassifier struct {
	result *classifier.Result
}

func (f *fakeClassifier) Classify(_ context.Context, _ json.RawMessage) *classifier.Result {
	return f.result
}

func modelResult() *classifier.Result {
	return &classifier.Result{
		Classes: map[string]float64{
			"Forest":              60.0,
			"Agriculture":         40.0,
			"Shrub & Grassland":   0,
			"Urban & Barren Land": 0,
			"Water & Wetland":     0,
		},
		TotalAreaHectares:     100.0,
		ForestCoveragePercent: 60.0,
		TileURL:               "https://tiles.example/xyz/{z}/{x}/{y}",
		Metadata: models.ProcessingMetadata{
			ModelVersion:     "rf_model_odisha_multiclass_v1",
			SatelliteSource:  "Sentinel-2 SR Harmonized",
			DateRange:        "2022-01-01 to 2022-12-31",
			ResolutionMeters: 30,
			Mode:             classifier.ModeActive,
		},
	}
}

var boundary = json.RawMessage(`{"type":"Polygon","coordinates":[[[85.8,20.2],[85.9,20.2],[85.9,20.3],[85.8,20.2]]]}`)

func newTestService(t *testing.T) (*Service, *sqlite.Client) {
	t.Helper()

	client, err := sqlite.NewClient(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	if err := client.InitSchema(); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}

	return NewService(client, &fakeClassifier{result: modelResult()}, nil), client
}

func insertClaim(t *testing.T, client *sqlite.Client) int {
	t.Helper()

	id, err := client.InsertClaim(&models.ClaimDraft{
		ClaimantName: "Ram Singh",
		VillageName:  "Khandagiri",
		District:     "Khordha",
		State:        "Odisha",
		FormType:     "FRA Form",
		FormSubtype:  "IFR",
		Status:       models.StatusOCRProcessed,
		Priority:     "Medium",
	})
	if err != nil {
		t.Fatalf("InsertClaim: %v", err)
	}
	return id
}

func TestAnalyzeForClaim(t *testing.T) {
	svc, client := newTestService(t)
	claimID := insertClaim(t, client)

	result, err := svc.AnalyzeForClaim(context.Background(), claimID, boundary)
	if err != nil {
		t.Fatalf("AnalyzeForClaim: %v", err)
	}

	if result.ClaimID != claimID {
		t.Fatalf("claim id = %d, want %d", result.ClaimID, claimID)
	}
	if result.ClaimantName != "Ram Singh" {
		t.Fatalf("claimant = %q", result.ClaimantName)
	}
	if result.AssetID == 0 {
		t.Fatal("expected stored asset id")
	}
	if result.TotalAreaHectares != 100.0 {
		t.Fatalf("total = %v, want 100", result.TotalAreaHectares)
	}

	// Zero-area classes produce no analytics row.
	if len(result.Analytics) != 2 {
		t.Fatalf("got %d analytics rows, want 2", len(result.Analytics))
	}
	for _, row := range result.Analytics {
		if row.ClaimID != claimID {
			t.Fatalf("analytics row claim id = %d, want %d", row.ClaimID, claimID)
		}
		if row.AssetID != result.AssetID {
			t.Fatalf("analytics row asset id = %d, want %d", row.AssetID, result.AssetID)
		}
	}
}

func TestAnalyzeForClaimMissingClaim(t *testing.T) {
	svc, client := newTestService(t)

	_, err := svc.AnalyzeForClaim(context.Background(), 9999, boundary)
	if !errors.Is(err, sqlite.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	// A missing claim must leave no trace.
	summary, err := client.GISSummary()
	if err != nil {
		t.Fatalf("GISSummary: %v", err)
	}
	if summary.TotalAnalyzedAreaHectares != 0 {
		t.Fatalf("analyzed area = %v, want 0", summary.TotalAnalyzedAreaHectares)
	}
}

func TestAnalysisHistoryIsAppendOnly(t *testing.T) {
	svc, client := newTestService(t)
	claimID := insertClaim(t, client)
	ctx := context.Background()

	if _, err := svc.AnalyzeForClaim(ctx, claimID, boundary); err != nil {
		t.Fatalf("first analysis: %v", err)
	}
	if _, err := svc.AnalyzeForClaim(ctx, claimID, boundary); err != nil {
		t.Fatalf("second analysis: %v", err)
	}

	data, err := svc.GetForClaim(claimID)
	if err != nil {
		t.Fatalf("GetForClaim: %v", err)
	}
	if !data.HasData {
		t.Fatal("expected HasData after analysis")
	}
	if len(data.Assets) != 2 {
		t.Fatalf("got %d assets, want 2 (append-only history)", len(data.Assets))
	}
	if len(data.Analytics) != 4 {
		t.Fatalf("got %d analytics rows, want 4", len(data.Analytics))
	}
}

func TestGetForClaimWithoutAnalysis(t *testing.T) {
	svc, client := newTestService(t)
	claimID := insertClaim(t, client)

	data, err := svc.GetForClaim(claimID)
	if err != nil {
		t.Fatalf("GetForClaim: %v", err)
	}
	if data.HasData {
		t.Fatal("expected HasData false before any analysis")
	}
	if len(data.Assets) != 0 || len(data.Analytics) != 0 {
		t.Fatalf("expected empty history, got %d assets / %d analytics", len(data.Assets), len(data.Analytics))
	}
}

func TestGetForClaimMissing(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.GetForClaim(404); !errors.Is(err, sqlite.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
