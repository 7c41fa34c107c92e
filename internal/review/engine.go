// Package review runs the configured checklist against one document and
// aggregates per-rule outcomes into a compliance score.
package review

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/soc-review/backend/internal/evaluation"
	"github.com/soc-review/backend/internal/metrics"
	"github.com/soc-review/backend/internal/rules"
	"github.com/soc-review/backend/pkg/logger"
	"github.com/soc-review/backend/pkg/utils"
)

// RuleEvaluator judges one rule against document text. Implemented by
// evaluation.Evaluator.
type RuleEvaluator interface {
	Evaluate(ctx context.Context, rule rules.Rule, documentText string) evaluation.Outcome
}

// ResultCache stores finished reviews keyed by review hash. Implemented by
// the redis cache client.
type ResultCache interface {
	GetReview(ctx context.Context, reviewHash string, result interface{}) (bool, error)
	SetReview(ctx context.Context, reviewHash string, result interface{}, ttl time.Duration) error
}

type Config struct {
	// Concurrency is the number of rules evaluated in parallel. One
	// evaluates sequentially, which suits single-GPU model hosts.
	Concurrency int
	// Timeout bounds a whole review. Rules not evaluated before it
	// expires are completed through the keyword fallback.
	Timeout time.Duration
	// CacheTTL is how long finished reviews stay cached.
	CacheTTL time.Duration
	// Model names the generation model; it is part of the cache key so
	// a model change invalidates prior results.
	Model string
}

type Engine struct {
	store     *rules.Store
	evaluator RuleEvaluator
	cache     ResultCache
	cfg       Config
}

// Result is the aggregate of one review. Results holds one outcome per
// configured rule, in checklist order.
type Result struct {
	ReviewID        string               `json:"review_id"`
	ComplianceScore float64              `json:"compliance_score"`
	TotalRules      int                  `json:"total_rules"`
	SatisfiedRules  int                  `json:"satisfied_rules"`
	Results         []evaluation.Outcome `json:"results"`
	ElapsedMS       int                  `json:"elapsed_ms"`
}

// NewEngine wires the checklist, the per-rule evaluator and an optional
// result cache. A nil cache disables caching.
func NewEngine(store *rules.Store, evaluator RuleEvaluator, cache ResultCache, cfg Config) *Engine {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}

	return &Engine{
		store:     store,
		evaluator: evaluator,
		cache:     cache,
		cfg:       cfg,
	}
}

// Review evaluates every configured rule against documentText. It always
// produces a complete result: single-rule problems surface as fallback
// outcomes, never as an aborted review. An empty checklist yields the
// degenerate result with score 0 and no outcomes.
func (e *Engine) Review(ctx context.Context, documentText string) *Result {
	start := time.Now()
	reviewID := uuid.New().String()

	logger.Info("Starting review",
		zap.String("review_id", reviewID),
		zap.Int("rules", e.store.Count()),
		zap.Int("document_chars", len(documentText)),
	)

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	reviewHash := e.reviewHash(documentText)
	if e.cache != nil {
		var cached Result
		found, err := e.cache.GetReview(ctx, reviewHash, &cached)
		if err != nil {
			logger.Warn("Review cache lookup failed", zap.Error(err))
		}
		if found {
			metrics.CacheHits.WithLabelValues("review").Inc()
			metrics.ReviewsTotal.WithLabelValues("cached").Inc()
			cached.ReviewID = reviewID
			cached.ElapsedMS = int(time.Since(start).Milliseconds())
			return &cached
		}
		metrics.CacheMisses.WithLabelValues("review").Inc()
	}

	ruleList := e.store.Rules()
	outcomes := e.evaluateAll(ctx, ruleList, documentText)

	satisfied := 0
	for _, o := range outcomes {
		if o.Satisfied {
			satisfied++
		}
	}

	score := 0.0
	if len(ruleList) > 0 {
		score = round2(100 * float64(satisfied) / float64(len(ruleList)))
	}

	result := &Result{
		ReviewID:        reviewID,
		ComplianceScore: score,
		TotalRules:      len(ruleList),
		SatisfiedRules:  satisfied,
		Results:         outcomes,
		ElapsedMS:       int(time.Since(start).Milliseconds()),
	}

	metrics.ReviewsTotal.WithLabelValues("success").Inc()
	metrics.ReviewDuration.Observe(time.Since(start).Seconds())
	metrics.ComplianceScore.Observe(score)

	// Reviews that needed the fallback are not cached; the next attempt
	// may reach the model.
	if e.cache != nil && !anyFallback(outcomes) {
		if err := e.cache.SetReview(ctx, reviewHash, result, e.cfg.CacheTTL); err != nil {
			logger.Warn("Review cache store failed", zap.Error(err))
		}
	}

	logger.Info("Review completed",
		zap.String("review_id", reviewID),
		zap.Float64("compliance_score", score),
		zap.Int("satisfied_rules", satisfied),
		zap.Int("total_rules", len(ruleList)),
		zap.Int("elapsed_ms", result.ElapsedMS),
	)

	return result
}

// evaluateAll fills one outcome per rule, preserving checklist order even
// when rules are evaluated in parallel.
func (e *Engine) evaluateAll(ctx context.Context, ruleList []rules.Rule, documentText string) []evaluation.Outcome {
	outcomes := make([]evaluation.Outcome, len(ruleList))

	if e.cfg.Concurrency <= 1 || len(ruleList) <= 1 {
		for i, r := range ruleList {
			outcomes[i] = e.evaluator.Evaluate(ctx, r, documentText)
		}
		return outcomes
	}

	sem := make(chan struct{}, e.cfg.Concurrency)
	var wg sync.WaitGroup
	for i, r := range ruleList {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, r rules.Rule) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[i] = e.evaluator.Evaluate(ctx, r, documentText)
		}(i, r)
	}
	wg.Wait()

	return outcomes
}

// reviewHash keys the cache on everything a result depends on: document
// text, model and checklist content.
func (e *Engine) reviewHash(documentText string) string {
	return utils.Digest(documentText, e.cfg.Model, e.store.Fingerprint())
}

func anyFallback(outcomes []evaluation.Outcome) bool {
	for _, o := range outcomes {
		if o.Source == evaluation.SourceFallback {
			return true
		}
	}
	return false
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
