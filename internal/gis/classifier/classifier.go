// Package classifier turns a claim boundary into per-class land cover areas.
// It calls the Earth Engine backend when reachable and falls back to a
// deterministic demo payload when it is not, so claim analysis always
// produces a result.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"path"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/atavi-atlas/backend/internal/cache/redis"
	"github.com/atavi-atlas/backend/internal/metrics"
	"github.com/atavi-atlas/backend/internal/storage/models"
	"github.com/atavi-atlas/backend/pkg/circuitbreaker"
	"github.com/atavi-atlas/backend/pkg/config"
	"github.com/atavi-atlas/backend/pkg/logger"
	"github.com/atavi-atlas/backend/pkg/utils"
)

const (
	ModeActive   = "active"
	ModeFallback = "fallback"

	cacheTTL = 24 * time.Hour
)

// Raw model classes are merged into five reporting classes.
var classRemap = map[int]int{
	10: 0,
	20: 1,
	30: 1,
	40: 2,
	50: 3,
	60: 3,
	80: 4,
	90: 4,
}

var classNames = [5]string{
	"Forest",
	"Shrub & Grassland",
	"Agriculture",
	"Urban & Barren Land",
	"Water & Wetland",
}

// Result is a completed classification in hectares per reporting class.
type Result struct {
	Classes               map[string]float64 `json:"classes"`
	TotalAreaHectares     float64            `json:"total_area_hectares"`
	ForestCoveragePercent float64            `json:"forest_coverage_percent"`
	TileURL               string             `json:"tile_url"`
	Metadata              models.ProcessingMetadata `json:"metadata"`
}

type Classifier struct {
	backendURL    string
	modelAssetID  string
	imagerySource string
	dateStart     string
	dateEnd       string
	scaleMeters   int

	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	cache      *redis.Client
}

func New(cfg config.ClassifierConfig, cache *redis.Client) *Classifier {
	return &Classifier{
		backendURL:    cfg.BackendURL,
		modelAssetID:  cfg.ModelAssetID,
		imagerySource: cfg.ImagerySource,
		dateStart:     cfg.DateStart,
		dateEnd:       cfg.DateEnd,
		scaleMeters:   cfg.ScaleMeters,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSec) * time.Second,
		},
		breaker: circuitbreaker.NewCircuitBreaker("land-classifier", circuitbreaker.Config{
			FailureThreshold: 3,
			SuccessThreshold: 2,
			Timeout:          30 * time.Second,
			Logger:           logger.GetLogger(),
		}),
		cache: cache,
	}
}

// Classify never fails: a backend error downgrades the run to the
// deterministic fallback payload, marked by its processing mode.
func (c *Classifier) Classify(ctx context.Context, boundary json.RawMessage) *Result {
	boundaryHash := utils.BoundaryHash(boundary)

	var cached Result
	hit, err := c.cache.GetClassification(ctx, boundaryHash, &cached)
	if err != nil {
		logger.Warn("Classification cache read failed", zap.Error(err))
	}
	if hit {
		metrics.CacheHits.WithLabelValues("classification").Inc()
		return &cached
	}
	metrics.CacheMisses.WithLabelValues("classification").Inc()

	start := time.Now()
	result, err := c.classifyRemote(ctx, boundary)
	if err != nil {
		logger.Warn("Land classification backend unavailable, using fallback",
			zap.String("boundary_hash", boundaryHash),
			zap.Error(err),
		)
		result = c.fallback()
		metrics.ClassificationTotal.WithLabelValues(ModeFallback).Inc()
		metrics.ClassificationDuration.WithLabelValues(ModeFallback).Observe(time.Since(start).Seconds())
		return result
	}

	metrics.ClassificationTotal.WithLabelValues(ModeActive).Inc()
	metrics.ClassificationDuration.WithLabelValues(ModeActive).Observe(time.Since(start).Seconds())

	if err := c.cache.SetClassification(ctx, boundaryHash, result, cacheTTL); err != nil {
		logger.Warn("Classification cache write failed", zap.Error(err))
	}

	return result
}

func (c *Classifier) classifyRemote(ctx context.Context, boundary json.RawMessage) (*Result, error) {
	reqBody, err := json.Marshal(map[string]interface{}{
		"boundary":       boundary,
		"model_asset_id": c.modelAssetID,
		"imagery_source": c.imagerySource,
		"date_start":     c.dateStart,
		"date_end":       c.dateEnd,
		"scale_meters":   c.scaleMeters,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal classification request: %w", err)
	}

	var result *Result
	err = c.breaker.Execute(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.backendURL+"/classify", bytes.NewReader(reqBody))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to reach classification backend: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read backend response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("classification backend returned status %d: %s", resp.StatusCode, string(body))
		}

		var payload struct {
			ClassAreasM2 map[string]float64 `json:"class_areas_m2"`
			TileURL      string             `json:"tile_url"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return fmt.Errorf("failed to parse backend response: %w", err)
		}
		if len(payload.ClassAreasM2) == 0 {
			return fmt.Errorf("classification backend returned no class areas")
		}

		result = c.buildResult(payload.ClassAreasM2, payload.TileURL)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// buildResult merges raw class areas into the five reporting classes and
// converts square meters to hectares.
func (c *Classifier) buildResult(rawAreasM2 map[string]float64, tileURL string) *Result {
	merged := make(map[string]float64, len(classNames))
	for _, name := range classNames {
		merged[name] = 0
	}

	for rawClass, areaM2 := range rawAreasM2 {
		id, err := strconv.Atoi(rawClass)
		if err != nil {
			logger.Warn("Skipping non-numeric class id", zap.String("class", rawClass))
			continue
		}
		target, ok := classRemap[id]
		if !ok {
			logger.Warn("Skipping unknown land cover class", zap.Int("class", id))
			continue
		}
		merged[classNames[target]] += areaM2 / 10000.0
	}

	var total float64
	for name, ha := range merged {
		merged[name] = round2(ha)
		total += merged[name]
	}
	total = round2(total)

	forestPct := 0.0
	if total > 0 {
		forestPct = round2(merged["Forest"] / total * 100)
	}

	return &Result{
		Classes:               merged,
		TotalAreaHectares:     total,
		ForestCoveragePercent: forestPct,
		TileURL:               tileURL,
		Metadata:              c.metadata(ModeActive),
	}
}

// fallback is the deterministic payload served when the backend cannot be
// reached. Values are fixed so demo environments stay reproducible.
func (c *Classifier) fallback() *Result {
	return &Result{
		Classes: map[string]float64{
			"Forest":              45.67,
			"Agriculture":         23.45,
			"Shrub & Grassland":   12.34,
			"Urban & Barren Land": 8.90,
			"Water & Wetland":     5.64,
		},
		TotalAreaHectares:     96.0,
		ForestCoveragePercent: 47.6,
		Metadata:              c.metadata(ModeFallback),
	}
}

func (c *Classifier) metadata(mode string) models.ProcessingMetadata {
	return models.ProcessingMetadata{
		ModelVersion:     path.Base(c.modelAssetID),
		SatelliteSource:  c.imagerySource,
		DateRange:        fmt.Sprintf("%s to %s", c.dateStart, c.dateEnd),
		ResolutionMeters: c.scaleMeters,
		Mode:             mode,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
