package dss

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/atavi-atlas/backend/internal/storage/models"
	"github.com/atavi-atlas/backend/pkg/config"
	"github.com/atavi-atlas/backend/pkg/retry"
)

func testRecommender() *Recommender {
	return NewRecommender(config.DSSConfig{Enabled: false})
}

func analytics(forestPct, agriPct, waterPct float64) []models.GISAnalytics {
	return []models.GISAnalytics{
		{LandClassName: "Forest", Percentage: forestPct},
		{LandClassName: "Agriculture", Percentage: agriPct},
		{LandClassName: "Water & Wetland", Percentage: waterPct},
	}
}

func hasScheme(rec *Recommendation, name string) bool {
	for _, s := range rec.Schemes {
		if s.Name == name {
			return true
		}
	}
	return false
}

func TestRuleBasedApprovedForestClaim(t *testing.T) {
	r := testRecommender()
	claim := &models.Claim{ID: 1, Status: models.StatusApproved, IsVerified: true}

	rec := r.Recommend(context.Background(), claim, analytics(60, 25, 2))

	if rec.Source != SourceRules {
		t.Fatalf("source = %q, want %q", rec.Source, SourceRules)
	}
	if !hasScheme(rec, "Van Dhan Vikas Yojana") {
		t.Fatal("approved claim should recommend Van Dhan Vikas Yojana")
	}
	if !hasScheme(rec, "CAMPA Afforestation") {
		t.Fatal("high forest cover should recommend CAMPA")
	}
	if !hasScheme(rec, "PM-KISAN") {
		t.Fatal("agricultural land should recommend PM-KISAN")
	}
	if !hasScheme(rec, "Jal Jeevan Mission") {
		t.Fatal("low water coverage should recommend Jal Jeevan Mission")
	}
	if rec.EligibilityScore <= 0.8 {
		t.Fatalf("eligibility = %v, want > 0.8 for approved verified claim", rec.EligibilityScore)
	}
}

func TestRuleBasedPendingClaim(t *testing.T) {
	r := testRecommender()
	claim := &models.Claim{ID: 2, Status: models.StatusPending}

	rec := r.Recommend(context.Background(), claim, nil)

	if hasScheme(rec, "Van Dhan Vikas Yojana") {
		t.Fatal("pending claim should not recommend forest produce scheme")
	}
	if !hasScheme(rec, "MGNREGA") {
		t.Fatal("MGNREGA is always a candidate")
	}
	if rec.EligibilityScore >= 0.5 {
		t.Fatalf("eligibility = %v, want < 0.5 for pending claim", rec.EligibilityScore)
	}
}

func TestEligibilityScoreCapped(t *testing.T) {
	r := testRecommender()
	claim := &models.Claim{ID: 3, Status: models.StatusApproved, IsVerified: true}

	rec := r.Recommend(context.Background(), claim, analytics(90, 30, 1))
	if rec.EligibilityScore > 1.0 {
		t.Fatalf("eligibility = %v, must not exceed 1.0", rec.EligibilityScore)
	}
}

func TestRecommendEmptyCompletionFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	r := NewRecommender(config.DSSConfig{Enabled: true, APIKey: "test-key", Model: "gpt-4o-mini"})
	clientCfg := openai.DefaultConfig("test-key")
	clientCfg.BaseURL = srv.URL + "/v1"
	r.client = openai.NewClientWithConfig(clientCfg)
	r.retryConfig = retry.Config{MaxAttempts: 1}

	claim := &models.Claim{ID: 4, Status: models.StatusApproved}
	rec := r.Recommend(context.Background(), claim, analytics(60, 25, 2))

	if rec == nil {
		t.Fatal("expected rule-based result, got nil")
	}
	if rec.Source != SourceRules {
		t.Fatalf("source = %q, want %q when completion has no choices", rec.Source, SourceRules)
	}
}

func TestParseRecommendation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{
			name:    "plain json",
			content: `{"schemes": [{"name": "PM-KISAN", "reason": "farming", "priority": "High"}], "eligibility_score": 0.7}`,
		},
		{
			name: "fenced json",
			content: "```json\n" +
				`{"schemes": [{"name": "MGNREGA", "reason": "works", "priority": "Low"}], "eligibility_score": 0.4}` +
				"\n```",
		},
		{
			name:    "empty schemes",
			content: `{"schemes": [], "eligibility_score": 0.5}`,
			wantErr: true,
		},
		{
			name:    "not json",
			content: "I recommend PM-KISAN.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := parseRecommendation(tt.content)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected parse error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseRecommendation: %v", err)
			}
			if len(rec.Schemes) == 0 {
				t.Fatal("expected at least one scheme")
			}
		})
	}
}
