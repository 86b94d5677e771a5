package sqlite

import (
	"math"
	"testing"

	"github.com/atavi-atlas/backend/internal/storage/models"
)

func storeAnalysis(t *testing.T, client *Client, claimID int) int {
	t.Helper()

	asset := &models.GISAsset{
		ClaimID:          claimID,
		AssetType:        "satellite_analysis",
		AssetName:        "Sentinel-2 Land Classification",
		TileURL:          "https://tiles.example/{z}/{x}/{y}",
		Classification:   map[string]float64{"Forest": 50, "Agriculture": 50},
		TotalAreaHectares: 100,
		SatelliteSource:  "Sentinel-2 SR Harmonized",
		DateRange:        "2022-01-01 to 2022-12-31",
		ProcessingMetadata: models.ProcessingMetadata{
			ModelVersion: "rf_model_odisha_multiclass_v1",
			Mode:         "active",
		},
	}
	analytics := []models.GISAnalytics{
		{LandClassName: "Forest", AreaHectares: 50, Percentage: 50, ConfidenceScore: 0.85, ModelVersion: "rf_model_odisha_multiclass_v1"},
		{LandClassName: "Agriculture", AreaHectares: 50, Percentage: 50, ConfidenceScore: 0.85, ModelVersion: "rf_model_odisha_multiclass_v1"},
	}

	assetID, err := client.InsertAnalysis(asset, analytics)
	if err != nil {
		t.Fatalf("InsertAnalysis: %v", err)
	}
	return assetID
}

func TestInsertAndReadAnalysis(t *testing.T) {
	client := newTestClient(t)

	claimID, err := client.InsertClaim(testDraft())
	if err != nil {
		t.Fatalf("InsertClaim: %v", err)
	}
	assetID := storeAnalysis(t, client, claimID)

	assets, err := client.AssetsForClaim(claimID)
	if err != nil {
		t.Fatalf("AssetsForClaim: %v", err)
	}
	if len(assets) != 1 {
		t.Fatalf("assets = %d, want 1", len(assets))
	}
	if assets[0].ID != assetID {
		t.Errorf("asset id = %d, want %d", assets[0].ID, assetID)
	}
	if assets[0].Classification["Forest"] != 50 {
		t.Errorf("forest area = %v, want 50", assets[0].Classification["Forest"])
	}
	if assets[0].ProcessingMetadata.Mode != "active" {
		t.Errorf("mode = %q, want active", assets[0].ProcessingMetadata.Mode)
	}

	analytics, err := client.AnalyticsForClaim(claimID)
	if err != nil {
		t.Fatalf("AnalyticsForClaim: %v", err)
	}
	if len(analytics) != 2 {
		t.Fatalf("analytics rows = %d, want 2", len(analytics))
	}

	var pctSum float64
	for _, row := range analytics {
		if row.ClaimID != claimID || row.AssetID != assetID {
			t.Errorf("row references claim %d asset %d, want claim %d asset %d",
				row.ClaimID, row.AssetID, claimID, assetID)
		}
		pctSum += row.Percentage
	}
	if math.Abs(pctSum-100) > 0.1 {
		t.Errorf("percentage sum = %v, want 100 +/- 0.1", pctSum)
	}
}

func TestAnalysisHistoryIsAppendOnly(t *testing.T) {
	client := newTestClient(t)

	claimID, err := client.InsertClaim(testDraft())
	if err != nil {
		t.Fatalf("InsertClaim: %v", err)
	}
	storeAnalysis(t, client, claimID)
	storeAnalysis(t, client, claimID)

	assets, err := client.AssetsForClaim(claimID)
	if err != nil {
		t.Fatalf("AssetsForClaim: %v", err)
	}
	if len(assets) != 2 {
		t.Errorf("re-running analysis should create a new asset, got %d", len(assets))
	}
}

func TestDeleteClaimCascadesToGIS(t *testing.T) {
	client := newTestClient(t)

	claimID, err := client.InsertClaim(testDraft())
	if err != nil {
		t.Fatalf("InsertClaim: %v", err)
	}
	storeAnalysis(t, client, claimID)

	if err := client.DeleteClaim(claimID); err != nil {
		t.Fatalf("DeleteClaim: %v", err)
	}

	assets, err := client.AssetsForClaim(claimID)
	if err != nil {
		t.Fatalf("AssetsForClaim: %v", err)
	}
	if len(assets) != 0 {
		t.Errorf("assets = %d after cascade delete, want 0", len(assets))
	}

	analytics, err := client.AnalyticsForClaim(claimID)
	if err != nil {
		t.Fatalf("AnalyticsForClaim: %v", err)
	}
	if len(analytics) != 0 {
		t.Errorf("analytics = %d after cascade delete, want 0", len(analytics))
	}
}

func TestGISSummary(t *testing.T) {
	client := newTestClient(t)

	claimID, err := client.InsertClaim(testDraft())
	if err != nil {
		t.Fatalf("InsertClaim: %v", err)
	}
	storeAnalysis(t, client, claimID)

	summary, err := client.GISSummary()
	if err != nil {
		t.Fatalf("GISSummary: %v", err)
	}
	if summary.TotalAnalyzedAreaHectares != 100 {
		t.Errorf("total area = %v, want 100", summary.TotalAnalyzedAreaHectares)
	}
	if summary.TotalForestAreaHectares != 50 {
		t.Errorf("forest area = %v, want 50", summary.TotalForestAreaHectares)
	}
	if summary.ForestCoveragePercent != 50 {
		t.Errorf("forest percent = %v, want 50", summary.ForestCoveragePercent)
	}
	if len(summary.LandClassBreakdown) != 2 {
		t.Errorf("breakdown entries = %d, want 2", len(summary.LandClassBreakdown))
	}
}

func TestDashboardStats(t *testing.T) {
	client := newTestClient(t)

	first := testDraft()
	second := testDraft()
	second.Status = models.StatusPending
	second.District = "Mayurbhanj"

	firstID, err := client.InsertClaim(first)
	if err != nil {
		t.Fatalf("InsertClaim: %v", err)
	}
	if _, err := client.InsertClaim(second); err != nil {
		t.Fatalf("InsertClaim: %v", err)
	}
	storeAnalysis(t, client, firstID)

	stats, err := client.DashboardStats()
	if err != nil {
		t.Fatalf("DashboardStats: %v", err)
	}
	if stats.TotalClaims != 2 {
		t.Errorf("total = %d, want 2", stats.TotalClaims)
	}
	if stats.ClaimsLast7Days != 2 {
		t.Errorf("recent = %d, want 2", stats.ClaimsLast7Days)
	}
	if stats.GISAnalyzed != 1 {
		t.Errorf("analyzed = %d, want 1", stats.GISAnalyzed)
	}
	if stats.GISCoveragePct != 50 {
		t.Errorf("coverage = %v, want 50", stats.GISCoveragePct)
	}
	if len(stats.Districts) != 2 {
		t.Errorf("districts = %d, want 2", len(stats.Districts))
	}
}
