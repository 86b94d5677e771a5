// Package dss recommends government schemes for a claim based on its status
// and land classification. An LLM refines the recommendations when
// configured; a rule-based pass always provides the baseline.
package dss

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/atavi-atlas/backend/internal/metrics"
	"github.com/atavi-atlas/backend/internal/storage/models"
	"github.com/atavi-atlas/backend/pkg/circuitbreaker"
	"github.com/atavi-atlas/backend/pkg/config"
	"github.com/atavi-atlas/backend/pkg/logger"
	"github.com/atavi-atlas/backend/pkg/retry"
)

const (
	SourceRules = "rules"
	SourceLLM   = "llm"
)

type Scheme struct {
	Name     string `json:"name"`
	Reason   string `json:"reason"`
	Priority string `json:"priority"`
}

type Recommendation struct {
	ClaimID          int      `json:"claim_id"`
	Schemes          []Scheme `json:"schemes"`
	EligibilityScore float64  `json:"eligibility_score"`
	Source           string   `json:"source"`
}

type Recommender struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	enabled     bool
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

func NewRecommender(cfg config.DSSConfig) *Recommender {
	r := &Recommender{
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		enabled:     cfg.Enabled && cfg.APIKey != "",
		cb: circuitbreaker.NewCircuitBreaker("dss", circuitbreaker.Config{
			MaxRequests:      5,
			Interval:         time.Minute,
			Timeout:          30 * time.Second,
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Logger:           logger.GetLogger(),
		}),
		retryConfig: retry.UpstreamConfig(logger.GetLogger()),
	}

	if r.enabled {
		r.client = openai.NewClient(cfg.APIKey)
		logger.Info("DSS recommender initialized", zap.String("model", cfg.Model))
	} else {
		logger.Info("DSS recommender running rule-based only")
	}

	return r
}

// Recommend never fails: LLM errors downgrade to the rule-based result.
func (r *Recommender) Recommend(ctx context.Context, claim *models.Claim, analytics []models.GISAnalytics) *Recommendation {
	baseline := r.ruleBased(claim, analytics)

	if !r.enabled {
		metrics.DSSRecommendations.WithLabelValues(SourceRules).Inc()
		return baseline
	}

	refined, err := r.refine(ctx, claim, analytics, baseline)
	if err != nil {
		metrics.DSSRecommendations.WithLabelValues("llm_error").Inc()
		logger.Warn("DSS refinement failed, serving rule-based result",
			zap.Int("claim_id", claim.ID),
			zap.Error(err),
		)
		return baseline
	}

	metrics.DSSRecommendations.WithLabelValues(SourceLLM).Inc()
	return refined
}

// ruleBased maps claim state and land composition onto the scheme catalog.
func (r *Recommender) ruleBased(claim *models.Claim, analytics []models.GISAnalytics) *Recommendation {
	var schemes []Scheme
	score := 0.3

	if claim.Status == models.StatusApproved {
		score += 0.4
		schemes = append(schemes, Scheme{
			Name:     "Van Dhan Vikas Yojana",
			Reason:   "Approved forest rights holders qualify for minor forest produce value addition",
			Priority: "High",
		})
	}
	if claim.IsVerified {
		score += 0.1
	}

	forestPct := classShare(analytics, "Forest")
	agriPct := classShare(analytics, "Agriculture")
	waterPct := classShare(analytics, "Water & Wetland")

	if forestPct >= 40 {
		score += 0.1
		schemes = append(schemes, Scheme{
			Name:     "CAMPA Afforestation",
			Reason:   fmt.Sprintf("Forest cover of %.1f%% supports compensatory afforestation work", forestPct),
			Priority: "Medium",
		})
	}
	if agriPct >= 20 {
		schemes = append(schemes, Scheme{
			Name:     "PM-KISAN",
			Reason:   fmt.Sprintf("Agricultural land share of %.1f%% indicates active cultivation", agriPct),
			Priority: "Medium",
		})
	}
	if waterPct < 5 {
		schemes = append(schemes, Scheme{
			Name:     "Jal Jeevan Mission",
			Reason:   "Low water body coverage suggests need for water infrastructure",
			Priority: "Medium",
		})
	}

	schemes = append(schemes, Scheme{
		Name:     "MGNREGA",
		Reason:   "Land development works are eligible under the employment guarantee",
		Priority: "Low",
	})

	if score > 1.0 {
		score = 1.0
	}

	return &Recommendation{
		ClaimID:          claim.ID,
		Schemes:          schemes,
		EligibilityScore: score,
		Source:           SourceRules,
	}
}

func (r *Recommender) refine(ctx context.Context, claim *models.Claim, analytics []models.GISAnalytics, baseline *Recommendation) (*Recommendation, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	systemPrompt := `You advise on Indian government scheme eligibility for Forest Rights Act claim holders.
Given a claim and its land classification, select the most relevant schemes.

Return ONLY a JSON object:
{"schemes": [{"name": "...", "reason": "...", "priority": "High|Medium|Low"}], "eligibility_score": 0.0}`

	var landLines []string
	for _, row := range analytics {
		landLines = append(landLines, fmt.Sprintf("- %s: %.2f ha (%.1f%%)", row.LandClassName, row.AreaHectares, row.Percentage))
	}

	userPrompt := fmt.Sprintf(`Claim:
- Status: %s
- Verified: %t
- District: %s, %s
- Form subtype: %s

Land classification:
%s

Candidate schemes from rules: %s

Return JSON only.`,
		claim.Status, claim.IsVerified, claim.District, claim.State, claim.FormSubtype,
		strings.Join(landLines, "\n"), schemeNames(baseline.Schemes))

	var content string
	err := r.cb.Execute(ctx, func() error {
		return retry.Do(ctx, r.retryConfig, func() error {
			resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model: r.model,
				Messages: []openai.ChatCompletionMessage{
					{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
					{Role: openai.ChatMessageRoleUser, Content: userPrompt},
				},
				Temperature: r.temperature,
				MaxTokens:   r.maxTokens,
			})
			if err != nil {
				return fmt.Errorf("failed to create completion: %w", err)
			}

			logger.Debug("DSS completion generated",
				zap.Int("prompt_tokens", resp.Usage.PromptTokens),
				zap.Int("completion_tokens", resp.Usage.CompletionTokens),
			)

			if len(resp.Choices) == 0 {
				return fmt.Errorf("completion returned no choices")
			}
			content = resp.Choices[0].Message.Content
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	parsed, err := parseRecommendation(content)
	if err != nil {
		return nil, err
	}

	parsed.ClaimID = claim.ID
	parsed.Source = SourceLLM
	return parsed, nil
}

func parseRecommendation(content string) (*Recommendation, error) {
	// Models sometimes wrap the JSON in a code fence.
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var parsed struct {
		Schemes          []Scheme `json:"schemes"`
		EligibilityScore float64  `json:"eligibility_score"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse recommendation: %w", err)
	}
	if len(parsed.Schemes) == 0 {
		return nil, fmt.Errorf("recommendation contains no schemes")
	}

	return &Recommendation{
		Schemes:          parsed.Schemes,
		EligibilityScore: parsed.EligibilityScore,
	}, nil
}

func classShare(analytics []models.GISAnalytics, className string) float64 {
	for _, row := range analytics {
		if row.LandClassName == className {
			return row.Percentage
		}
	}
	return 0
}

func schemeNames(schemes []Scheme) string {
	names := make([]string, 0, len(schemes))
	for _, s := range schemes {
		names = append(names, s.Name)
	}
	return strings.Join(names, ", ")
}
