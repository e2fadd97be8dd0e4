package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/faq-agent/backend/pkg/config"
)

// ErrEmptyInput is returned when the input text is empty after trimming.
var ErrEmptyInput = errors.New("embedding input is empty")

// UnsupportedProviderError signals that the configured provider does not
// expose an embedding capability (or is unknown entirely).
type UnsupportedProviderError struct {
	Provider string
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("provider %q does not support embeddings", e.Provider)
}

// EmbeddingError wraps any upstream failure (timeout, non-2xx, malformed
// body) with the provider name. Callers treat it as "cannot embed".
type EmbeddingError struct {
	Provider string
	Err      error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed (provider %s): %v", e.Provider, e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}

// ProviderWidthError is returned when a provider produces more dimensions
// than the canonical width. Truncating would corrupt similarity geometry,
// so the gateway fails loudly instead.
type ProviderWidthError struct {
	Provider  string
	Got       int
	Canonical int
}

func (e *ProviderWidthError) Error() string {
	return fmt.Sprintf("provider %s returned %d dimensions, canonical width is %d", e.Provider, e.Got, e.Canonical)
}

// Provider is implemented once per embedding-capable backend. Request and
// response shapes differ per provider; everything behind this interface is
// already normalized to a plain vector.
type Provider interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// NewProvider selects the active provider from configuration. Providers
// without an embedding endpoint (e.g. anthropic) are rejected here, at
// startup, rather than at first use.
func NewProvider(cfg config.EmbeddingConfig) (Provider, error) {
	switch cfg.Provider {
	case "openai":
		return newOpenAIProvider(cfg.APIKey, cfg.Model, cfg.CanonicalDim), nil
	case "gemini":
		return newGeminiProvider(cfg.APIKey, cfg.Model)
	default:
		return nil, &UnsupportedProviderError{Provider: cfg.Provider}
	}
}
