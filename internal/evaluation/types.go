package evaluation

import "github.com/soc-review/backend/internal/rules"

// Source records which path produced an outcome.
type Source string

const (
	SourceLLM      Source = "llm"
	SourceFallback Source = "fallback"
)

const (
	// FallbackConfidence is the fixed confidence of keyword-heuristic
	// outcomes, signaling reduced trust relative to model judgments.
	FallbackConfidence = 0.3

	// DefaultConfidence fills in when the model omits or mangles its
	// confidence estimate.
	DefaultConfidence = 0.5
)

// Outcome is the verdict for one rule against one document. Built fresh per
// review, never mutated afterwards, never persisted.
type Outcome struct {
	RuleID     string           `json:"rule_id"`
	RuleName   string           `json:"rule_name"`
	Importance rules.Importance `json:"importance"`
	Satisfied  bool             `json:"satisfied"`
	Confidence float64          `json:"confidence"`
	Reasoning  string           `json:"reasoning"`
	Source     Source           `json:"source"`
}
