// Package gis coordinates claim boundaries, land classification, and the
// persisted analytics history.
package gis

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/atavi-atlas/backend/internal/events"
	"github.com/atavi-atlas/backend/internal/gis/classifier"
	"github.com/atavi-atlas/backend/internal/storage/models"
	"github.com/atavi-atlas/backend/internal/storage/sqlite"
	"github.com/atavi-atlas/backend/pkg/logger"
)

// LandClassifier is the classification boundary, narrowed for testability.
type LandClassifier interface {
	Classify(ctx context.Context, boundary json.RawMessage) *classifier.Result
}

type Service struct {
	db         *sqlite.Client
	classifier LandClassifier
	hub        *events.Hub
}

func NewService(db *sqlite.Client, lc LandClassifier, hub *events.Hub) *Service {
	return &Service{
		db:         db,
		classifier: lc,
		hub:        hub,
	}
}

// AnalysisResult pairs the stored analysis with the identity of the claim it
// belongs to, so callers never have to join the two themselves.
type AnalysisResult struct {
	ClaimID               int                       `json:"claim_id"`
	ClaimantName          string                    `json:"claimant_name"`
	VillageName           string                    `json:"village_name"`
	District              string                    `json:"district"`
	AssetID               int                       `json:"asset_id"`
	Classification        map[string]float64        `json:"classification"`
	TotalAreaHectares     float64                   `json:"total_area_hectares"`
	ForestCoveragePercent float64                   `json:"forest_coverage_percent"`
	TileURL               string                    `json:"tile_url,omitempty"`
	Analytics             []models.GISAnalytics     `json:"analytics"`
	Metadata              models.ProcessingMetadata `json:"processing_metadata"`
}

// ClaimGISData is everything stored for one claim's analysis history.
type ClaimGISData struct {
	HasData   bool                  `json:"has_data"`
	Assets    []models.GISAsset     `json:"assets"`
	Analytics []models.GISAnalytics `json:"analytics"`
}

// AnalyzeForClaim classifies the boundary and appends the run to the claim's
// analysis history. Returns sqlite.ErrNotFound when the claim does not exist;
// nothing is classified or stored in that case.
func (s *Service) AnalyzeForClaim(ctx context.Context, claimID int, boundary json.RawMessage) (*AnalysisResult, error) {
	claim, err := s.db.GetClaim(claimID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to load claim: %w", err)
	}
	if claim == nil {
		return nil, sqlite.ErrNotFound
	}

	result := s.classifier.Classify(ctx, boundary)

	asset := &models.GISAsset{
		ClaimID:   claimID,
		AssetType: "land_classification",
		AssetName: fmt.Sprintf("Land Classification - Claim %d", claimID),
		AssetDescription: fmt.Sprintf("Land cover classification for %s, %s",
			claim.VillageName, claim.District),
		TileURL:            result.TileURL,
		Classification:     result.Classes,
		ProcessingMetadata: result.Metadata,
		TotalAreaHectares:  result.TotalAreaHectares,
		SatelliteSource:    result.Metadata.SatelliteSource,
		DateRange:          result.Metadata.DateRange,
	}

	analytics := buildAnalytics(claimID, result)

	assetID, err := s.db.InsertAnalysis(asset, analytics)
	if err != nil {
		return nil, fmt.Errorf("failed to store analysis: %w", err)
	}

	stored, err := s.db.AnalyticsForClaim(claimID)
	if err != nil {
		logger.Warn("Failed to reload analytics after insert", zap.Error(err))
		stored = analytics
	} else {
		// History is append-only; the result carries only this run's rows.
		run := stored[:0]
		for _, row := range stored {
			if row.AssetID == assetID {
				run = append(run, row)
			}
		}
		stored = run
	}

	s.hub.Publish(events.Event{
		Type:    events.TypeGISAnalyzed,
		ClaimID: claimID,
		Data: map[string]interface{}{
			"asset_id":            assetID,
			"total_area_hectares": result.TotalAreaHectares,
			"mode":                result.Metadata.Mode,
		},
	})

	logger.Info("Claim boundary analyzed",
		zap.Int("claim_id", claimID),
		zap.Int("asset_id", assetID),
		zap.String("mode", result.Metadata.Mode),
		zap.Float64("total_area_hectares", result.TotalAreaHectares),
	)

	return &AnalysisResult{
		ClaimID:               claimID,
		ClaimantName:          claim.ClaimantName,
		VillageName:           claim.VillageName,
		District:              claim.District,
		AssetID:               assetID,
		Classification:        result.Classes,
		TotalAreaHectares:     result.TotalAreaHectares,
		ForestCoveragePercent: result.ForestCoveragePercent,
		TileURL:               result.TileURL,
		Analytics:             stored,
		Metadata:              result.Metadata,
	}, nil
}

// GetForClaim returns the stored analysis history for a claim. A claim with
// no runs yet yields HasData false and empty slices, not an error.
func (s *Service) GetForClaim(claimID int) (*ClaimGISData, error) {
	claim, err := s.db.GetClaim(claimID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to load claim: %w", err)
	}
	if claim == nil {
		return nil, sqlite.ErrNotFound
	}

	assets, err := s.db.AssetsForClaim(claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to load assets: %w", err)
	}
	analytics, err := s.db.AnalyticsForClaim(claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to load analytics: %w", err)
	}

	return &ClaimGISData{
		HasData:   len(assets) > 0,
		Assets:    assets,
		Analytics: analytics,
	}, nil
}

// Summary aggregates analyzed area across all claims.
func (s *Service) Summary() (*models.GISSummary, error) {
	return s.db.GISSummary()
}

// buildAnalytics expands a classification into one analytics row per class
// with a non-zero area, with percentages of the run total.
func buildAnalytics(claimID int, result *classifier.Result) []models.GISAnalytics {
	rows := make([]models.GISAnalytics, 0, len(result.Classes))
	for _, name := range []string{"Forest", "Shrub & Grassland", "Agriculture", "Urban & Barren Land", "Water & Wetland"} {
		area, ok := result.Classes[name]
		if !ok || area <= 0 {
			continue
		}

		pct := 0.0
		if result.TotalAreaHectares > 0 {
			pct = math.Round(area/result.TotalAreaHectares*100*100) / 100
		}

		rows = append(rows, models.GISAnalytics{
			ClaimID:       claimID,
			LandClassName: name,
			AreaHectares:  area,
			Percentage:    pct,
			ModelVersion:  result.Metadata.ModelVersion,
		})
	}
	return rows
}
