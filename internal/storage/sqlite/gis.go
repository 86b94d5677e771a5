package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/atavi-atlas/backend/internal/storage/models"
	"github.com/atavi-atlas/backend/pkg/logger"
)

// InsertAnalysis stores one asset plus its analytics rows in a single
// transaction. A failure anywhere rolls the whole run back so no orphaned
// analytics row is ever visible.
func (c *Client) InsertAnalysis(asset *models.GISAsset, analytics []models.GISAnalytics) (int, error) {
	classJSON, err := json.Marshal(asset.Classification)
	if err != nil {
		return 0, fmt.Errorf("failed to encode classification: %w", err)
	}
	metaJSON, err := json.Marshal(asset.ProcessingMetadata)
	if err != nil {
		return 0, fmt.Errorf("failed to encode processing metadata: %w", err)
	}

	tx, err := c.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO gis_assets (claim_id, asset_type, asset_name, asset_description,
			tile_url, classification, processing_metadata, total_area_hectares,
			satellite_source, date_range, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		asset.ClaimID,
		asset.AssetType,
		asset.AssetName,
		asset.AssetDescription,
		asset.TileURL,
		string(classJSON),
		string(metaJSON),
		asset.TotalAreaHectares,
		asset.SatelliteSource,
		asset.DateRange,
		time.Now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert gis asset: %w", err)
	}

	assetID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read asset id: %w", err)
	}

	for _, row := range analytics {
		// Both FK paths must agree: analytics rows always reference the
		// asset's own claim.
		_, err = tx.Exec(
			`INSERT INTO gis_analytics (claim_id, asset_id, land_class_name,
				area_hectares, percentage_of_total, confidence_score,
				model_version, analysis_date)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			asset.ClaimID,
			assetID,
			row.LandClassName,
			row.AreaHectares,
			row.Percentage,
			row.ConfidenceScore,
			row.ModelVersion,
			time.Now().Unix(),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert analytics row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit analysis: %w", err)
	}

	logger.Info("GIS analysis stored",
		zap.Int("claim_id", asset.ClaimID),
		zap.Int64("asset_id", assetID),
		zap.Int("analytics_rows", len(analytics)),
	)

	return int(assetID), nil
}

func (c *Client) AssetsForClaim(claimID int) ([]models.GISAsset, error) {
	rows, err := c.db.Query(
		`SELECT id, claim_id, asset_type, asset_name, asset_description, tile_url,
			classification, processing_metadata, total_area_hectares,
			satellite_source, date_range, created_at
		FROM gis_assets WHERE claim_id = ? ORDER BY created_at DESC, id DESC`,
		claimID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query gis assets: %w", err)
	}
	defer rows.Close()

	var assets []models.GISAsset
	for rows.Next() {
		var a models.GISAsset
		var classJSON, metaJSON string
		var createdAt int64
		var desc, tileURL, source, dateRange sql.NullString

		err := rows.Scan(&a.ID, &a.ClaimID, &a.AssetType, &a.AssetName, &desc,
			&tileURL, &classJSON, &metaJSON, &a.TotalAreaHectares,
			&source, &dateRange, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan gis asset: %w", err)
		}

		a.AssetDescription = desc.String
		a.TileURL = tileURL.String
		a.SatelliteSource = source.String
		a.DateRange = dateRange.String
		a.CreatedAt = time.Unix(createdAt, 0)

		a.Classification = map[string]float64{}
		if err := json.Unmarshal([]byte(classJSON), &a.Classification); err != nil {
			return nil, fmt.Errorf("failed to decode classification: %w", err)
		}
		if err := json.Unmarshal([]byte(metaJSON), &a.ProcessingMetadata); err != nil {
			return nil, fmt.Errorf("failed to decode processing metadata: %w", err)
		}

		assets = append(assets, a)
	}

	return assets, rows.Err()
}

func (c *Client) AnalyticsForClaim(claimID int) ([]models.GISAnalytics, error) {
	rows, err := c.db.Query(
		`SELECT id, claim_id, asset_id, land_class_name, area_hectares,
			percentage_of_total, confidence_score, model_version, analysis_date
		FROM gis_analytics WHERE claim_id = ? ORDER BY asset_id DESC, id ASC`,
		claimID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query gis analytics: %w", err)
	}
	defer rows.Close()

	var analytics []models.GISAnalytics
	for rows.Next() {
		var row models.GISAnalytics
		var analysisDate int64
		var confidence sql.NullFloat64
		var modelVersion sql.NullString

		err := rows.Scan(&row.ID, &row.ClaimID, &row.AssetID, &row.LandClassName,
			&row.AreaHectares, &row.Percentage, &confidence, &modelVersion, &analysisDate)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analytics row: %w", err)
		}

		row.ConfidenceScore = confidence.Float64
		row.ModelVersion = modelVersion.String
		row.AnalysisDate = time.Unix(analysisDate, 0)
		analytics = append(analytics, row)
	}

	return analytics, rows.Err()
}

// GISSummary aggregates classified area across all claims.
func (c *Client) GISSummary() (*models.GISSummary, error) {
	var totalArea, forestArea float64

	err := c.db.QueryRow(`SELECT COALESCE(SUM(area_hectares), 0) FROM gis_analytics`).Scan(&totalArea)
	if err != nil {
		return nil, fmt.Errorf("failed to sum analyzed area: %w", err)
	}

	err = c.db.QueryRow(
		`SELECT COALESCE(SUM(area_hectares), 0) FROM gis_analytics WHERE land_class_name LIKE '%Forest%'`,
	).Scan(&forestArea)
	if err != nil {
		return nil, fmt.Errorf("failed to sum forest area: %w", err)
	}

	rows, err := c.db.Query(
		`SELECT land_class_name, SUM(area_hectares)
		FROM gis_analytics GROUP BY land_class_name ORDER BY SUM(area_hectares) DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query land class breakdown: %w", err)
	}
	defer rows.Close()

	summary := &models.GISSummary{
		TotalAnalyzedAreaHectares: round2(totalArea),
		TotalForestAreaHectares:   round2(forestArea),
	}
	if totalArea > 0 {
		summary.ForestCoveragePercent = round2(forestArea / totalArea * 100)
	}

	for rows.Next() {
		var name string
		var area float64
		if err := rows.Scan(&name, &area); err != nil {
			return nil, fmt.Errorf("failed to scan breakdown row: %w", err)
		}
		entry := models.LandClassBreakdown{
			LandClass:    name,
			AreaHectares: round2(area),
		}
		if totalArea > 0 {
			entry.Percentage = round2(area / totalArea * 100)
		}
		summary.LandClassBreakdown = append(summary.LandClassBreakdown, entry)
	}

	return summary, rows.Err()
}
