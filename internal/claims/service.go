// Package claims implements the claim lifecycle on top of the sqlite store:
// creation, status workflow, field updates, search, and dashboard aggregates.
package claims

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/atavi-atlas/backend/internal/cache/redis"
	"github.com/atavi-atlas/backend/internal/events"
	"github.com/atavi-atlas/backend/internal/metrics"
	"github.com/atavi-atlas/backend/internal/storage/models"
	"github.com/atavi-atlas/backend/internal/storage/sqlite"
	"github.com/atavi-atlas/backend/pkg/logger"
)

const dashboardCacheTTL = 60 * time.Second

type Service struct {
	db    *sqlite.Client
	cache *redis.Client
	hub   *events.Hub
}

func NewService(db *sqlite.Client, cache *redis.Client, hub *events.Hub) *Service {
	return &Service{
		db:    db,
		cache: cache,
		hub:   hub,
	}
}

// Create persists a draft and returns the stored claim in full view.
func (s *Service) Create(ctx context.Context, draft *models.ClaimDraft) (*models.Claim, error) {
	id, err := s.db.InsertClaim(draft)
	if err != nil {
		return nil, fmt.Errorf("failed to create claim: %w", err)
	}

	claim, err := s.db.GetClaim(id, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load created claim: %w", err)
	}

	metrics.ClaimsCreated.WithLabelValues(categoryLabel(draft)).Inc()
	s.invalidateDashboard(ctx)
	s.hub.Publish(events.Event{
		Type:    events.TypeClaimCreated,
		ClaimID: id,
		Data: map[string]interface{}{
			"claimant_name": claim.ClaimantName,
			"district":      claim.District,
			"form_subtype":  claim.FormSubtype,
		},
	})

	logger.Info("Claim created",
		zap.Int("claim_id", id),
		zap.String("district", claim.District),
		zap.String("form_subtype", claim.FormSubtype),
	)

	return claim, nil
}

// Get returns the claim or nil when no claim has the given id.
func (s *Service) Get(id int, includeFullData bool) (*models.Claim, error) {
	return s.db.GetClaim(id, includeFullData)
}

func (s *Service) List(skip, limit int, includeFullData bool) ([]models.Claim, error) {
	return s.db.ListClaims(skip, limit, includeFullData)
}

func (s *Service) ByStatus(status string, includeFullData bool) ([]models.Claim, error) {
	if !models.ValidStatus(status) {
		return nil, sqlite.ErrInvalidStatus
	}
	return s.db.ClaimsByStatus(status, includeFullData)
}

func (s *Service) ByDistrict(district string, includeFullData bool) ([]models.Claim, error) {
	return s.db.ClaimsByDistrict(district, includeFullData)
}

// Search never fails: a storage error is logged and an empty result
// returned, so a bad search term cannot take down a listing page.
func (s *Service) Search(term string, includeFullData bool) []models.Claim {
	results, err := s.db.SearchClaims(term, includeFullData)
	if err != nil {
		metrics.SearchFailures.Inc()
		logger.Error("Claim search failed", zap.String("term", term), zap.Error(err))
		return []models.Claim{}
	}
	return results
}

func (s *Service) UpdateStatus(ctx context.Context, id int, status, notes string) error {
	if err := s.db.UpdateClaimStatus(id, status, notes); err != nil {
		return err
	}

	metrics.ClaimStatusTransitions.WithLabelValues(status).Inc()
	s.invalidateDashboard(ctx)
	s.hub.Publish(events.Event{
		Type:    events.TypeStatusChanged,
		ClaimID: id,
		Data:    map[string]interface{}{"status": status},
	})

	logger.Info("Claim status updated", zap.Int("claim_id", id), zap.String("status", status))
	return nil
}

// AssignOfficer attaches a reviewing officer and moves the claim to
// Under Review.
func (s *Service) AssignOfficer(ctx context.Context, id int, officerName string) error {
	if err := s.db.AssignOfficer(id, officerName); err != nil {
		return err
	}

	metrics.ClaimStatusTransitions.WithLabelValues(models.StatusUnderReview).Inc()
	s.invalidateDashboard(ctx)
	s.hub.Publish(events.Event{
		Type:    events.TypeStatusChanged,
		ClaimID: id,
		Data: map[string]interface{}{
			"status":           models.StatusUnderReview,
			"assigned_officer": officerName,
		},
	})

	logger.Info("Officer assigned", zap.Int("claim_id", id), zap.String("officer", officerName))
	return nil
}

// UpdateFields applies a partial update and reports which columns changed.
func (s *Service) UpdateFields(ctx context.Context, id int, updates map[string]interface{}) ([]string, error) {
	applied, err := s.db.UpdateClaimFields(id, updates)
	if err != nil {
		return nil, err
	}

	s.invalidateDashboard(ctx)
	logger.Info("Claim fields updated", zap.Int("claim_id", id), zap.Strings("fields", applied))
	return applied, nil
}

// Delete removes the claim; associated GIS assets and analytics cascade.
func (s *Service) Delete(ctx context.Context, id int) error {
	if err := s.db.DeleteClaim(id); err != nil {
		return err
	}

	metrics.ClaimsDeleted.Inc()
	s.invalidateDashboard(ctx)
	s.hub.Publish(events.Event{
		Type:    events.TypeClaimDeleted,
		ClaimID: id,
	})

	logger.Info("Claim deleted", zap.Int("claim_id", id))
	return nil
}

// Dashboard returns the aggregate view, served from cache when available.
func (s *Service) Dashboard(ctx context.Context) (*models.DashboardStats, error) {
	var cached models.DashboardStats
	hit, err := s.cache.GetDashboard(ctx, "stats", &cached)
	if err != nil {
		logger.Warn("Dashboard cache read failed", zap.Error(err))
	}
	if hit {
		metrics.CacheHits.WithLabelValues("dashboard").Inc()
		return &cached, nil
	}
	metrics.CacheMisses.WithLabelValues("dashboard").Inc()

	stats, err := s.db.DashboardStats()
	if err != nil {
		return nil, fmt.Errorf("failed to compute dashboard stats: %w", err)
	}

	if err := s.cache.SetDashboard(ctx, "stats", stats, dashboardCacheTTL); err != nil {
		logger.Warn("Dashboard cache write failed", zap.Error(err))
	}

	return stats, nil
}

func (s *Service) Summary() (*models.ClaimsSummary, error) {
	return s.db.ClaimsSummary()
}

func (s *Service) invalidateDashboard(ctx context.Context) {
	if err := s.cache.InvalidateDashboard(ctx); err != nil {
		logger.Warn("Dashboard cache invalidation failed", zap.Error(err))
	}
}

func categoryLabel(draft *models.ClaimDraft) string {
	if draft.FormSubtype != "" {
		return draft.FormSubtype
	}
	return "unknown"
}
