package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/faq-agent/backend/internal/metrics"
	"github.com/faq-agent/backend/internal/storage/models"
	"github.com/faq-agent/backend/pkg/logger"
)

// ErrSearchUnavailable means the query could not be embedded, so no
// similarity search ran at all. There is no keyword-only fallback; the
// caller decides whether to surface an error or treat it as "no match".
var ErrSearchUnavailable = errors.New("search unavailable")

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type VectorSearcher interface {
	Search(ctx context.Context, queryEmbedding []float32, opts models.VectorSearchOptions) ([]models.FAQMatch, error)
}

// Recorder captures sub-threshold queries for gap analysis. Implementations
// must never fail the caller.
type Recorder interface {
	Record(ctx context.Context, q *models.GapQuestion)
}

type Generator interface {
	RephraseAnswer(ctx context.Context, question, answer string) (string, error)
	ComposeAnswer(ctx context.Context, question, contextBlock string) (string, error)
}

type Config struct {
	MinSimilarity   float64
	ResultLimit     int
	AuditTier       ConfidenceTier
	HybridRerank    bool
	VectorWeight    float64
	LexicalWeight   float64
	FallbackMessage string
}

type Engine struct {
	embedder  Embedder
	searcher  VectorSearcher
	recorder  Recorder
	generator Generator
	cfg       Config
}

type Request struct {
	Question            string
	Category            string
	Limit               int
	SessionID           string
	UserID              string
	PageID              string
	ConversationContext string
}

type Result struct {
	Matches   []models.FAQMatch
	BestMatch *models.FAQMatch
	Tier      ConfidenceTier
	Strategy  ResponseStrategy
}

type AnswerResult struct {
	Answer         string
	Tier           ConfidenceTier
	Strategy       ResponseStrategy
	UsedGeneration bool
	MatchedDocID   string
	LatencyMS      int
}

func NewEngine(embedder Embedder, searcher VectorSearcher, recorder Recorder, generator Generator, cfg Config) *Engine {
	if cfg.MinSimilarity == 0 {
		cfg.MinSimilarity = 0.40
	}
	if cfg.ResultLimit == 0 {
		cfg.ResultLimit = 5
	}
	if cfg.AuditTier == "" {
		cfg.AuditTier = TierMedium
	}
	if cfg.VectorWeight == 0 {
		cfg.VectorWeight = 0.8
	}
	if cfg.LexicalWeight == 0 {
		cfg.LexicalWeight = 0.2
	}

	return &Engine{
		embedder:  embedder,
		searcher:  searcher,
		recorder:  recorder,
		generator: generator,
		cfg:       cfg,
	}
}

// Search embeds the question, runs a thresholded similarity query, and
// classifies the result into a confidence tier. Any result below the audit
// tier is also logged as a gap question; that logging is best effort and
// never fails the search.
func (e *Engine) Search(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	queryEmbedding, err := e.embedder.Embed(ctx, req.Question)
	if err != nil {
		metrics.SearchTotal.WithLabelValues("unavailable").Inc()
		return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = e.cfg.ResultLimit
	}

	matches, err := e.searcher.Search(ctx, queryEmbedding, models.VectorSearchOptions{
		Kind:      models.KindCombined,
		Threshold: e.cfg.MinSimilarity,
		Limit:     limit,
		Category:  req.Category,
	})
	if err != nil {
		metrics.SearchTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}

	if e.cfg.HybridRerank {
		matches = e.rerank(req.Question, matches)
	}

	result := &Result{Matches: matches}
	if len(matches) > 0 {
		result.BestMatch = &matches[0]
		result.Tier = ClassifyTier(matches[0].Similarity)
		metrics.SimilarityScore.Observe(matches[0].Similarity)
	} else {
		result.Tier = TierNone
	}
	result.Strategy = strategyForTier(result.Tier)

	metrics.SearchTotal.WithLabelValues("ok").Inc()
	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	metrics.ConfidenceTierTotal.WithLabelValues(string(result.Tier)).Inc()

	if result.Tier.Below(e.cfg.AuditTier) {
		e.recordGap(ctx, req, result)
	}

	logger.Debug("Search completed",
		zap.String("tier", string(result.Tier)),
		zap.Int("matches", len(matches)),
	)

	return result, nil
}

// Answer is the host-facing call: it runs Search and applies the response
// strategy. It always produces a response path; a failed search or failed
// generation degrades, it never errors out to the end user.
func (e *Engine) Answer(ctx context.Context, req Request) *AnswerResult {
	start := time.Now()

	result, err := e.Search(ctx, req)
	if err != nil {
		logger.Warn("Search unavailable, generating unaided", zap.Error(err))
		e.recordGap(ctx, req, &Result{Tier: TierNone})
		answer, genErr := e.generator.ComposeAnswer(ctx, req.Question, "")
		if genErr != nil {
			answer = e.cfg.FallbackMessage
		}
		return &AnswerResult{
			Answer:         answer,
			Tier:           TierNone,
			Strategy:       StrategyGenerate,
			UsedGeneration: genErr == nil,
			LatencyMS:      int(time.Since(start).Milliseconds()),
		}
	}

	answer := &AnswerResult{
		Tier:     result.Tier,
		Strategy: result.Strategy,
	}
	if result.BestMatch != nil {
		answer.MatchedDocID = result.BestMatch.DocumentID
	}

	switch result.Strategy {
	case StrategyVerbatim:
		answer.Answer = result.BestMatch.Answer

	case StrategyRephrase:
		rephrased, genErr := e.generator.RephraseAnswer(ctx, req.Question, result.BestMatch.Answer)
		if genErr != nil {
			logger.Warn("Rephrase failed, returning stored answer", zap.Error(genErr))
			answer.Answer = result.BestMatch.Answer
		} else {
			answer.Answer = rephrased
			answer.UsedGeneration = true
		}

	case StrategyContext, StrategyWeakContext:
		composed, genErr := e.generator.ComposeAnswer(ctx, req.Question, e.contextBlock(result))
		if genErr != nil {
			logger.Warn("Answer generation failed", zap.Error(genErr))
			answer.Answer = e.cfg.FallbackMessage
		} else {
			answer.Answer = composed
			answer.UsedGeneration = true
		}

	default:
		composed, genErr := e.generator.ComposeAnswer(ctx, req.Question, "")
		if genErr != nil {
			logger.Warn("Unaided generation failed", zap.Error(genErr))
			answer.Answer = e.cfg.FallbackMessage
		} else {
			answer.Answer = composed
			answer.UsedGeneration = true
		}
	}

	answer.LatencyMS = int(time.Since(start).Milliseconds())
	return answer
}

// rerank combines vector similarity with lexical keyword overlap, re-sorts
// the candidates, and reapplies the minimum threshold on the combined
// score. Secondary mode only.
func (e *Engine) rerank(question string, matches []models.FAQMatch) []models.FAQMatch {
	if len(matches) == 0 {
		return matches
	}

	reranked := make([]models.FAQMatch, 0, len(matches))
	for _, m := range matches {
		combined := e.cfg.VectorWeight*m.Similarity + e.cfg.LexicalWeight*lexicalScore(question, m.Question)
		m.Similarity = combined
		if combined >= e.cfg.MinSimilarity {
			reranked = append(reranked, m)
		}
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Similarity > reranked[j].Similarity
	})

	return reranked
}

func (e *Engine) contextBlock(result *Result) string {
	var builder strings.Builder
	if result.Tier == TierLow {
		builder.WriteString("The following entries are only loosely related; treat them as weak background material:\n\n")
	}
	for i, m := range result.Matches {
		if i >= 3 {
			break
		}
		builder.WriteString(fmt.Sprintf("Q: %s\nA: %s\n\n", m.Question, m.Answer))
	}
	return strings.TrimSpace(builder.String())
}

func (e *Engine) recordGap(ctx context.Context, req Request, result *Result) {
	if e.recorder == nil {
		return
	}

	gap := &models.GapQuestion{
		QuestionText:        req.Question,
		ConversationContext: req.ConversationContext,
		SessionID:           req.SessionID,
		UserID:              req.UserID,
		PageID:              req.PageID,
		CreatedAt:           time.Now(),
	}
	if result.BestMatch != nil {
		gap.ConfidenceScore = result.BestMatch.Similarity
		docID := result.BestMatch.DocumentID
		gap.MatchedFAQID = &docID
	}

	e.recorder.Record(ctx, gap)
}
