package embedding

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/faq-agent/backend/internal/metrics"
	"github.com/faq-agent/backend/pkg/circuitbreaker"
	"github.com/faq-agent/backend/pkg/logger"
	"github.com/faq-agent/backend/pkg/retry"
	"github.com/faq-agent/backend/pkg/utils"
)

// VectorCache is the optional embedding cache. The Redis client satisfies
// it; a nil cache disables caching entirely.
type VectorCache interface {
	GetEmbedding(ctx context.Context, textHash string) ([]float32, bool, error)
	SetEmbedding(ctx context.Context, textHash string, embedding []float32, ttl time.Duration) error
}

// Gateway normalizes embedding calls across providers: it trims and bounds
// the input, pads provider output to the canonical width, and converts all
// upstream failures into typed errors so callers never see provider
// internals.
type Gateway struct {
	provider     Provider
	canonicalDim int
	maxInput     int
	timeout      time.Duration
	cache        VectorCache
	cacheTTL     time.Duration
	cb           *circuitbreaker.CircuitBreaker
	retryConfig  retry.Config
}

type GatewayConfig struct {
	CanonicalDim  int
	MaxInputChars int
	Timeout       time.Duration
	Cache         VectorCache
	CacheTTL      time.Duration
}

func NewGateway(provider Provider, cfg GatewayConfig) *Gateway {
	if cfg.CanonicalDim == 0 {
		cfg.CanonicalDim = 1536
	}
	if cfg.MaxInputChars == 0 {
		cfg.MaxInputChars = 8000
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	cb := circuitbreaker.NewCircuitBreaker("embedding", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	logger.Info("Embedding gateway initialized",
		zap.String("provider", provider.Name()),
		zap.Int("provider_dim", provider.Dimension()),
		zap.Int("canonical_dim", cfg.CanonicalDim),
	)

	return &Gateway{
		provider:     provider,
		canonicalDim: cfg.CanonicalDim,
		maxInput:     cfg.MaxInputChars,
		timeout:      cfg.Timeout,
		cache:        cfg.Cache,
		cacheTTL:     cfg.CacheTTL,
		cb:           cb,
		retryConfig:  retryConfig,
	}
}

func (g *Gateway) Provider() string {
	return g.provider.Name()
}

func (g *Gateway) CanonicalDim() int {
	return g.canonicalDim
}

// Embed turns text into a canonical-width vector. It returns ErrEmptyInput
// for blank text and EmbeddingError for any provider failure; it never
// panics past this boundary.
func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	prepared, err := g.prepare(text)
	if err != nil {
		return nil, err
	}

	if g.cache != nil {
		hash := utils.HashString(g.provider.Name() + ":" + prepared)
		if vector, ok, cacheErr := g.cache.GetEmbedding(ctx, hash); cacheErr == nil && ok {
			metrics.CacheHits.WithLabelValues("embedding").Inc()
			return vector, nil
		}
		metrics.CacheMisses.WithLabelValues("embedding").Inc()
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	var raw []float32
	err = g.cb.Execute(ctx, func() error {
		return retry.Do(ctx, g.retryConfig, func() error {
			var embedErr error
			raw, embedErr = g.provider.Embed(ctx, prepared)
			return embedErr
		})
	})
	if err != nil {
		return nil, &EmbeddingError{Provider: g.provider.Name(), Err: err}
	}
	metrics.EmbeddingDuration.Observe(time.Since(start).Seconds())

	vector, err := g.normalize(raw)
	if err != nil {
		return nil, err
	}

	if g.cache != nil {
		hash := utils.HashString(g.provider.Name() + ":" + prepared)
		if cacheErr := g.cache.SetEmbedding(ctx, hash, vector, g.cacheTTL); cacheErr != nil {
			logger.Warn("Failed to cache embedding", zap.Error(cacheErr))
		}
	}

	return vector, nil
}

// EmbedBatch embeds several texts in one provider round trip where the
// provider supports it. Used by bulk re-embedding; skips the cache.
func (g *Gateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	prepared := make([]string, len(texts))
	for i, text := range texts {
		p, err := g.prepare(text)
		if err != nil {
			return nil, err
		}
		prepared[i] = p
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout*time.Duration(1+len(texts)/16))
	defer cancel()

	var raw [][]float32
	err := g.cb.Execute(ctx, func() error {
		return retry.Do(ctx, g.retryConfig, func() error {
			var embedErr error
			raw, embedErr = g.provider.EmbedBatch(ctx, prepared)
			return embedErr
		})
	})
	if err != nil {
		return nil, &EmbeddingError{Provider: g.provider.Name(), Err: err}
	}

	vectors := make([][]float32, len(raw))
	for i, r := range raw {
		vector, err := g.normalize(r)
		if err != nil {
			return nil, err
		}
		vectors[i] = vector
	}

	return vectors, nil
}

func (g *Gateway) prepare(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", ErrEmptyInput
	}

	if len(trimmed) > g.maxInput {
		// Back off to a rune boundary so the cut never produces invalid
		// UTF-8 mid-character.
		cut := g.maxInput
		for cut > 0 && !utf8.RuneStart(trimmed[cut]) {
			cut--
		}
		logger.Debug("Embedding input truncated",
			zap.Int("original_len", len(trimmed)),
			zap.Int("max", g.maxInput),
		)
		trimmed = trimmed[:cut]
	}

	return trimmed, nil
}

// normalize zero-pads narrower provider vectors up to the canonical width.
// A wider vector is an error: truncation would silently corrupt similarity
// geometry for that provider.
func (g *Gateway) normalize(raw []float32) ([]float32, error) {
	if len(raw) > g.canonicalDim {
		return nil, &ProviderWidthError{
			Provider:  g.provider.Name(),
			Got:       len(raw),
			Canonical: g.canonicalDim,
		}
	}

	if len(raw) == g.canonicalDim {
		return raw, nil
	}

	padded := make([]float32, g.canonicalDim)
	copy(padded, raw)
	return padded, nil
}
