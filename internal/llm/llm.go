// Package llm adapts language model backends to the single Generator
// interface the analysis services depend on.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// ErrCollaborator wraps every backend failure: network, quota, auth or
// malformed output.
var ErrCollaborator = errors.New("collaborator failure")

// ErrUnsupported is returned when a backend cannot perform an operation.
var ErrUnsupported = errors.New("operation not supported by backend")

// Options tunes a single generation call.
type Options struct {
	// ThinkingBudget caps reasoning tokens on backends that support it.
	ThinkingBudget int32
}

// Generator is the language model collaborator.
type Generator interface {
	Generate(ctx context.Context, system, prompt, model string, opts *Options) (string, error)
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
	GenerateDiagram(ctx context.Context, source, model string) (string, error)
}

// Config selects and configures a backend.
type Config struct {
	Provider     string
	APIKey       string
	DefaultModel string
	OllamaURL    string
	HTTPClient   *http.Client
}

// New constructs the backend named by cfg.Provider.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (Generator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "gemini":
		return NewGemini(ctx, cfg.APIKey, cfg.DefaultModel, logger)
	case "ollama":
		return NewOllama(cfg.OllamaURL, cfg.DefaultModel, cfg.HTTPClient, logger)
	case "anthropic":
		return NewAnthropic(cfg.APIKey, cfg.DefaultModel, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q (must be gemini, ollama or anthropic)", cfg.Provider)
	}
}

func wrap(backend string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrCollaborator, backend, err)
}

func pickModel(model, fallback string) string {
	if strings.TrimSpace(model) != "" {
		return model
	}
	return fallback
}
