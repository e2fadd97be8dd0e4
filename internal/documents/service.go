package documents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/faq-agent/backend/internal/metrics"
	"github.com/faq-agent/backend/internal/storage/models"
	"github.com/faq-agent/backend/pkg/logger"
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type VectorStore interface {
	UpsertVectors(ctx context.Context, doc *models.FAQDocument, vectors *models.DocumentVectors) error
	DeleteVectors(ctx context.Context, docID string) error
}

type DocumentStore interface {
	InsertDocument(ctx context.Context, doc *models.FAQDocument) error
	GetDocument(ctx context.Context, id string) (*models.FAQDocument, error)
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, limit int) ([]models.FAQDocument, error)
}

// Invalidator flushes cached search answers after the knowledge base
// changes. Optional.
type Invalidator interface {
	InvalidateSearchCache(ctx context.Context) error
}

// Service owns the write path of the knowledge base. Every document carries
// three embeddings (question, answer, combined) and all three are written to
// the vector store before the relational row, so a searchable document is
// never partially embedded.
type Service struct {
	embedder Embedder
	vectors  VectorStore
	store    DocumentStore
	cache    Invalidator
}

func NewService(embedder Embedder, vectors VectorStore, store DocumentStore, cache Invalidator) *Service {
	return &Service{
		embedder: embedder,
		vectors:  vectors,
		store:    store,
		cache:    cache,
	}
}

func (s *Service) Add(ctx context.Context, question, answer, category string) (*models.FAQDocument, error) {
	question = strings.TrimSpace(question)
	answer = strings.TrimSpace(answer)
	if question == "" || answer == "" {
		return nil, fmt.Errorf("question and answer are required")
	}

	now := time.Now()
	doc := &models.FAQDocument{
		ID:        uuid.New().String(),
		Question:  question,
		Answer:    answer,
		Category:  strings.TrimSpace(category),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.index(ctx, doc); err != nil {
		return nil, err
	}

	metrics.DocumentsTotal.WithLabelValues("add").Inc()
	logger.Info("Document added", zap.String("doc_id", doc.ID), zap.String("category", doc.Category))
	return doc, nil
}

func (s *Service) Update(ctx context.Context, id, question, answer, category string) (*models.FAQDocument, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	if q := strings.TrimSpace(question); q != "" {
		doc.Question = q
	}
	if a := strings.TrimSpace(answer); a != "" {
		doc.Answer = a
	}
	if c := strings.TrimSpace(category); c != "" {
		doc.Category = c
	}
	doc.UpdatedAt = time.Now()

	if err := s.index(ctx, doc); err != nil {
		return nil, err
	}

	metrics.DocumentsTotal.WithLabelValues("update").Inc()
	logger.Info("Document updated", zap.String("doc_id", doc.ID))
	return doc, nil
}

// UpdateAnswer replaces only the answer text. Used when an improve cluster
// is accepted.
func (s *Service) UpdateAnswer(ctx context.Context, id, answer string) (*models.FAQDocument, error) {
	return s.Update(ctx, id, "", answer, "")
}

func (s *Service) Get(ctx context.Context, id string) (*models.FAQDocument, error) {
	return s.store.GetDocument(ctx, id)
}

func (s *Service) List(ctx context.Context, limit int) ([]models.FAQDocument, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.store.ListDocuments(ctx, limit)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.store.GetDocument(ctx, id); err != nil {
		return err
	}

	if err := s.vectors.DeleteVectors(ctx, id); err != nil {
		return fmt.Errorf("failed to delete vectors for %s: %w", id, err)
	}
	if err := s.store.DeleteDocument(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx)
	metrics.DocumentsTotal.WithLabelValues("delete").Inc()
	logger.Info("Document deleted", zap.String("doc_id", id))
	return nil
}

// ReembedAll recomputes every document's vectors, for provider or dimension
// changes. Documents that fail are skipped and reported; the rest proceed.
func (s *Service) ReembedAll(ctx context.Context) (succeeded, failed int, err error) {
	docs, err := s.store.ListDocuments(ctx, 10000)
	if err != nil {
		return 0, 0, err
	}

	for i := range docs {
		if ctx.Err() != nil {
			return succeeded, failed, ctx.Err()
		}
		if err := s.index(ctx, &docs[i]); err != nil {
			failed++
			logger.Error("Re-embed failed for document",
				zap.String("doc_id", docs[i].ID),
				zap.Error(err),
			)
			continue
		}
		succeeded++
	}

	logger.Info("Re-embed pass finished", zap.Int("succeeded", succeeded), zap.Int("failed", failed))
	return succeeded, failed, nil
}

// index embeds the document and writes vectors before the relational row.
func (s *Service) index(ctx context.Context, doc *models.FAQDocument) error {
	vectors, err := s.embed(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to embed document: %w", err)
	}

	if err := s.vectors.UpsertVectors(ctx, doc, vectors); err != nil {
		return fmt.Errorf("failed to store vectors: %w", err)
	}
	if err := s.store.InsertDocument(ctx, doc); err != nil {
		return err
	}

	s.invalidate(ctx)
	return nil
}

func (s *Service) embed(ctx context.Context, doc *models.FAQDocument) (*models.DocumentVectors, error) {
	question, err := s.embedder.Embed(ctx, doc.Question)
	if err != nil {
		return nil, err
	}
	answer, err := s.embedder.Embed(ctx, doc.Answer)
	if err != nil {
		return nil, err
	}
	combined, err := s.embedder.Embed(ctx, doc.Question+" "+doc.Answer)
	if err != nil {
		return nil, err
	}

	return &models.DocumentVectors{
		Question: question,
		Answer:   answer,
		Combined: combined,
	}, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateSearchCache(ctx); err != nil {
		logger.Warn("Failed to invalidate search cache", zap.Error(err))
	}
}
