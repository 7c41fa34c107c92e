// Package llm adapts the review engine to a locally hosted model-serving
// endpoint. Implementations are thin request/response clients: retry and
// fallback policy live in the evaluation layer, never here.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBackendUnavailable marks transport failures: connection refused,
	// DNS, or a request that timed out before the endpoint answered.
	ErrBackendUnavailable = errors.New("llm backend unavailable")

	// ErrBackendError marks failures the endpoint itself reported, such
	// as a model that has not been pulled.
	ErrBackendError = errors.New("llm backend error")
)

// Generator is the surface the rule evaluator depends on.
type Generator interface {
	// Generate sends one prompt and returns the raw generated text.
	Generate(ctx context.Context, prompt string) (string, error)
	// Reachable probes the endpoint for the health surface.
	Reachable(ctx context.Context) bool
	Model() string
	Name() string
}

type Options struct {
	Provider    string
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float32
}

// New selects a provider implementation by name. The empty provider means
// ollama, the default local deployment.
func New(opts Options) (Generator, error) {
	switch strings.ToLower(opts.Provider) {
	case "", "ollama":
		return NewOllamaClient(opts.BaseURL, opts.Model, opts.Temperature), nil
	case "openai":
		return NewOpenAIClient(opts.BaseURL, opts.Model, opts.APIKey, opts.Temperature), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
	}
}
