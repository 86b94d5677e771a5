package sqlite

import (
	"fmt"
	"math"
	"time"

	"github.com/atavi-atlas/backend/internal/storage/models"
)

// DashboardStats collects the claim and GIS coverage aggregates consumed by
// the dashboard surface.
func (c *Client) DashboardStats() (*models.DashboardStats, error) {
	stats := &models.DashboardStats{}

	err := c.db.QueryRow(`SELECT COUNT(*) FROM claims`).Scan(&stats.TotalClaims)
	if err != nil {
		return nil, fmt.Errorf("failed to count claims: %w", err)
	}

	var queries = []struct {
		query string
		dest  *[]models.CountByKey
	}{
		{`SELECT status, COUNT(*) FROM claims GROUP BY status`, &stats.StatusBreakdown},
		{`SELECT district, COUNT(*) FROM claims GROUP BY district ORDER BY COUNT(*) DESC`, &stats.Districts},
		{`SELECT COALESCE(NULLIF(form_subtype, ''), 'Unknown'), COUNT(*) FROM claims GROUP BY 1`, &stats.FormSubtypes},
		{`SELECT priority, COUNT(*) FROM claims GROUP BY priority`, &stats.Priorities},
	}

	for _, q := range queries {
		counts, err := c.countByKey(q.query)
		if err != nil {
			return nil, err
		}
		*q.dest = counts
	}

	err = c.db.QueryRow(`SELECT COUNT(*) FROM claims WHERE is_verified = 1`).Scan(&stats.VerifiedClaims)
	if err != nil {
		return nil, fmt.Errorf("failed to count verified claims: %w", err)
	}
	stats.UnverifiedClaims = stats.TotalClaims - stats.VerifiedClaims

	sevenDaysAgo := time.Now().AddDate(0, 0, -7).Unix()
	err = c.db.QueryRow(`SELECT COUNT(*) FROM claims WHERE submission_date >= ?`, sevenDaysAgo).
		Scan(&stats.ClaimsLast7Days)
	if err != nil {
		return nil, fmt.Errorf("failed to count recent claims: %w", err)
	}

	err = c.db.QueryRow(`SELECT COUNT(DISTINCT claim_id) FROM gis_assets`).Scan(&stats.GISAnalyzed)
	if err != nil {
		return nil, fmt.Errorf("failed to count analyzed claims: %w", err)
	}
	if stats.TotalClaims > 0 {
		stats.GISCoveragePct = round2(float64(stats.GISAnalyzed) / float64(stats.TotalClaims) * 100)
	}

	return stats, nil
}

func (c *Client) ClaimsSummary() (*models.ClaimsSummary, error) {
	summary := &models.ClaimsSummary{}

	err := c.db.QueryRow(`SELECT COUNT(*) FROM claims`).Scan(&summary.TotalClaims)
	if err != nil {
		return nil, fmt.Errorf("failed to count claims: %w", err)
	}

	err = c.db.QueryRow(`SELECT COUNT(*) FROM claims WHERE status = ?`, models.StatusPending).
		Scan(&summary.PendingClaims)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending claims: %w", err)
	}

	err = c.db.QueryRow(`SELECT COUNT(*) FROM claims WHERE status LIKE '%Processed%'`).
		Scan(&summary.ProcessedClaims)
	if err != nil {
		return nil, fmt.Errorf("failed to count processed claims: %w", err)
	}

	if summary.TotalClaims > 0 {
		summary.CompletionRate = round2(float64(summary.ProcessedClaims) / float64(summary.TotalClaims) * 100)
	}

	return summary, nil
}

func (c *Client) countByKey(query string) ([]models.CountByKey, error) {
	rows, err := c.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to run aggregate query: %w", err)
	}
	defer rows.Close()

	var counts []models.CountByKey
	for rows.Next() {
		var entry models.CountByKey
		if err := rows.Scan(&entry.Key, &entry.Count); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate row: %w", err)
		}
		counts = append(counts, entry)
	}

	return counts, rows.Err()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
