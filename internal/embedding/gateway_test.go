package embedding

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/faq-agent/backend/pkg/config"
	"github.com/faq-agent/backend/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.InitNop()
	os.Exit(m.Run())
}

type stubProvider struct {
	name     string
	dim      int
	vec      []float32
	err      error
	gotText  string
	embedded int
}

func (s *stubProvider) Name() string   { return s.name }
func (s *stubProvider) Dimension() int { return s.dim }

func (s *stubProvider) Embed(_ context.Context, text string) ([]float32, error) {
	s.gotText = text
	s.embedded++
	return s.vec, s.err
}

func (s *stubProvider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		s.embedded++
		out[i] = s.vec
	}
	return out, nil
}

type memoryCache struct {
	entries map[string][]float32
}

func (m *memoryCache) GetEmbedding(_ context.Context, hash string) ([]float32, bool, error) {
	v, ok := m.entries[hash]
	return v, ok, nil
}

func (m *memoryCache) SetEmbedding(_ context.Context, hash string, vec []float32, _ time.Duration) error {
	if m.entries == nil {
		m.entries = map[string][]float32{}
	}
	m.entries[hash] = vec
	return nil
}

func TestGatewayEmptyInput(t *testing.T) {
	gateway := NewGateway(&stubProvider{name: "stub", dim: 4, vec: []float32{1, 2, 3, 4}}, GatewayConfig{CanonicalDim: 4})

	for _, input := range []string{"", "   ", "\n\t"} {
		if _, err := gateway.Embed(context.Background(), input); !errors.Is(err, ErrEmptyInput) {
			t.Errorf("Embed(%q) error = %v, want ErrEmptyInput", input, err)
		}
	}
}

func TestGatewayPadsNarrowVectors(t *testing.T) {
	provider := &stubProvider{name: "stub", dim: 3, vec: []float32{0.1, 0.2, 0.3}}
	gateway := NewGateway(provider, GatewayConfig{CanonicalDim: 6})

	vec, err := gateway.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 6 {
		t.Fatalf("vector width = %d, want 6", len(vec))
	}
	for i := 3; i < 6; i++ {
		if vec[i] != 0 {
			t.Errorf("padding position %d = %v, want 0", i, vec[i])
		}
	}
	if vec[0] != 0.1 || vec[2] != 0.3 {
		t.Error("original components must be preserved")
	}
}

func TestGatewayRejectsWideVectors(t *testing.T) {
	provider := &stubProvider{name: "wide", dim: 8, vec: make([]float32, 8)}
	gateway := NewGateway(provider, GatewayConfig{CanonicalDim: 4})

	_, err := gateway.Embed(context.Background(), "hello")
	var widthErr *ProviderWidthError
	if !errors.As(err, &widthErr) {
		t.Fatalf("error = %v, want *ProviderWidthError", err)
	}
	if widthErr.Got != 8 || widthErr.Canonical != 4 {
		t.Errorf("width error = %+v", widthErr)
	}
}

func TestGatewayTruncatesLongInput(t *testing.T) {
	provider := &stubProvider{name: "stub", dim: 2, vec: []float32{1, 2}}
	gateway := NewGateway(provider, GatewayConfig{CanonicalDim: 2, MaxInputChars: 10})

	long := strings.Repeat("x", 50)
	if _, err := gateway.Embed(context.Background(), long); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(provider.gotText) != 10 {
		t.Errorf("provider received %d chars, want 10", len(provider.gotText))
	}
}

func TestGatewayTruncatesOnRuneBoundary(t *testing.T) {
	provider := &stubProvider{name: "stub", dim: 2, vec: []float32{1, 2}}
	gateway := NewGateway(provider, GatewayConfig{CanonicalDim: 2, MaxInputChars: 10})

	// Nine ASCII bytes followed by a three-byte rune; a byte cut at 10
	// would land mid-rune.
	long := strings.Repeat("x", 9) + strings.Repeat("€", 5)
	if _, err := gateway.Embed(context.Background(), long); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !utf8.ValidString(provider.gotText) {
		t.Errorf("provider received invalid UTF-8: %q", provider.gotText)
	}
	if provider.gotText != strings.Repeat("x", 9) {
		t.Errorf("provider received %q, want the nine ASCII bytes", provider.gotText)
	}
}

func TestGatewayWrapsProviderFailures(t *testing.T) {
	provider := &stubProvider{name: "stub", dim: 2, err: errors.New("boom")}
	gateway := NewGateway(provider, GatewayConfig{CanonicalDim: 2})

	_, err := gateway.Embed(context.Background(), "hello")
	var embedErr *EmbeddingError
	if !errors.As(err, &embedErr) {
		t.Fatalf("error = %v, want *EmbeddingError", err)
	}
	if embedErr.Provider != "stub" {
		t.Errorf("provider = %q", embedErr.Provider)
	}
}

func TestGatewayUsesCache(t *testing.T) {
	provider := &stubProvider{name: "stub", dim: 2, vec: []float32{1, 2}}
	cache := &memoryCache{}
	gateway := NewGateway(provider, GatewayConfig{CanonicalDim: 2, Cache: cache})

	if _, err := gateway.Embed(context.Background(), "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := gateway.Embed(context.Background(), "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if provider.embedded != 1 {
		t.Errorf("provider called %d times, want 1 (second hit from cache)", provider.embedded)
	}
}

func TestNewProviderUnsupported(t *testing.T) {
	for _, name := range []string{"anthropic", "unknown", ""} {
		_, err := NewProvider(config.EmbeddingConfig{Provider: name})
		var unsupported *UnsupportedProviderError
		if !errors.As(err, &unsupported) {
			t.Errorf("NewProvider(%q) error = %v, want *UnsupportedProviderError", name, err)
		}
	}
}

func TestNewProviderOpenAI(t *testing.T) {
	provider, err := NewProvider(config.EmbeddingConfig{
		Provider:     "openai",
		APIKey:       "test",
		Model:        "text-embedding-3-small",
		CanonicalDim: 1536,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.Name() != "openai" {
		t.Errorf("name = %q", provider.Name())
	}
	if provider.Dimension() != 1536 {
		t.Errorf("dimension = %d", provider.Dimension())
	}
}
