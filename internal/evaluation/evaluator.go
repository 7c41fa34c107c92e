// Package evaluation judges single compliance rules against document text.
// The primary path asks the model backend and parses its free-form answer;
// every failure mode drops to the deterministic keyword fallback so an
// evaluation always produces an outcome.
package evaluation

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/soc-review/backend/internal/llm"
	"github.com/soc-review/backend/internal/metrics"
	"github.com/soc-review/backend/internal/rules"
	"github.com/soc-review/backend/pkg/circuitbreaker"
	"github.com/soc-review/backend/pkg/logger"
	"github.com/soc-review/backend/pkg/retry"
)

type Config struct {
	// MaxAttempts bounds LLM calls per rule. Only transport and backend
	// errors are retried; an off-format answer will not fix itself.
	MaxAttempts int
	// CallTimeout is the deadline of a single generate call.
	CallTimeout time.Duration
	// MaxDocumentChars bounds the document excerpt embedded in prompts.
	MaxDocumentChars int
}

// Evaluator runs the try-model-then-fallback flow for one rule at a time.
// A nil generator skips the model entirely and evaluates offline.
type Evaluator struct {
	generator llm.Generator
	breaker   *circuitbreaker.CircuitBreaker
	cfg       Config
}

func NewEvaluator(generator llm.Generator, cfg Config) *Evaluator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 2
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	if cfg.MaxDocumentChars <= 0 {
		cfg.MaxDocumentChars = 10000
	}

	var cb *circuitbreaker.CircuitBreaker
	if generator != nil {
		cb = circuitbreaker.NewCircuitBreaker("llm", circuitbreaker.Config{
			MaxRequests:      3,
			Interval:         time.Minute,
			Timeout:          30 * time.Second,
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Logger:           logger.GetLogger(),
		})
	}

	return &Evaluator{
		generator: generator,
		breaker:   cb,
		cfg:       cfg,
	}
}

// Evaluate never fails: backend and parse errors are absorbed by the
// keyword fallback and reported through the outcome's source field.
func (e *Evaluator) Evaluate(ctx context.Context, rule rules.Rule, documentText string) Outcome {
	if e.generator == nil {
		return e.fallbackOutcome(rule, documentText)
	}

	prompt := BuildPrompt(rule, documentText, e.cfg.MaxDocumentChars)

	raw, err := e.generate(ctx, prompt)
	if err != nil {
		logger.Warn("LLM call failed, using keyword fallback",
			zap.String("rule_id", rule.ID),
			zap.Error(err),
		)
		metrics.LLMFailures.WithLabelValues(failureReason(err)).Inc()
		return e.fallbackOutcome(rule, documentText)
	}

	verdict, err := ParseVerdict(raw)
	if err != nil {
		logger.Warn("Unparseable model verdict, using keyword fallback",
			zap.String("rule_id", rule.ID),
			zap.Error(err),
		)
		metrics.LLMFailures.WithLabelValues("parse_error").Inc()
		return e.fallbackOutcome(rule, documentText)
	}

	metrics.RuleEvaluations.WithLabelValues(string(SourceLLM)).Inc()

	return Outcome{
		RuleID:     rule.ID,
		RuleName:   rule.Name,
		Importance: rule.Importance,
		Satisfied:  verdict.Satisfied,
		Confidence: ClampConfidence(verdict.Confidence),
		Reasoning:  verdict.Reasoning,
		Source:     SourceLLM,
	}
}

func (e *Evaluator) generate(ctx context.Context, prompt string) (string, error) {
	retryCfg := retry.Config{
		MaxAttempts:     e.cfg.MaxAttempts,
		InitialDelay:    500 * time.Millisecond,
		MaxDelay:        2 * time.Second,
		Multiplier:      2.0,
		JitterFraction:  0.1,
		RetryableErrors: []error{llm.ErrBackendUnavailable, llm.ErrBackendError},
		Logger:          logger.GetLogger(),
	}

	var raw string
	err := e.breaker.Execute(ctx, func() error {
		out, genErr := retry.DoWithResult(ctx, retryCfg, func() (string, error) {
			callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
			defer cancel()

			start := time.Now()
			answer, callErr := e.generator.Generate(callCtx, prompt)

			status := "ok"
			if callErr != nil {
				status = "error"
			}
			metrics.LLMRequestDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())

			return answer, callErr
		})
		if genErr != nil {
			return genErr
		}
		raw = out
		return nil
	})

	return raw, err
}

func (e *Evaluator) fallbackOutcome(rule rules.Rule, documentText string) Outcome {
	satisfied, confidence, reasoning := FallbackEvaluate(rule, documentText)
	metrics.RuleEvaluations.WithLabelValues(string(SourceFallback)).Inc()

	return Outcome{
		RuleID:     rule.ID,
		RuleName:   rule.Name,
		Importance: rule.Importance,
		Satisfied:  satisfied,
		Confidence: confidence,
		Reasoning:  reasoning,
		Source:     SourceFallback,
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, circuitbreaker.ErrCircuitOpen), errors.Is(err, circuitbreaker.ErrTooManyRequests):
		return "circuit_open"
	case errors.Is(err, llm.ErrBackendUnavailable):
		return "backend_unavailable"
	case errors.Is(err, llm.ErrBackendError):
		return "backend_error"
	default:
		return "other"
	}
}
