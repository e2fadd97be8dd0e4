package milvus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/faq-agent/backend/internal/storage"
	"github.com/faq-agent/backend/internal/storage/models"
	"github.com/faq-agent/backend/pkg/logger"
)

// Client stores FAQ embeddings in a Milvus collection. Each document
// contributes three rows, one per embedding kind, keyed "{docID}:{kind}".
// Searches run server-side with the COSINE metric, so scores come back as
// cosine similarity already sorted descending.
type Client struct {
	client         client.Client
	collectionName string
	vectorDim      int
}

func NewClient(endpoint, apiKey, collectionName string, vectorDim int) (*Client, error) {
	c, err := client.NewGrpcClient(context.Background(), endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	logger.Info("Milvus client initialized",
		zap.String("endpoint", endpoint),
		zap.String("collection", collectionName),
		zap.Int("dim", vectorDim),
	)

	return &Client{
		client:         c,
		collectionName: collectionName,
		vectorDim:      vectorDim,
	}, nil
}

func (m *Client) Close() error {
	return m.client.Close()
}

func (m *Client) EnsureCollection(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if has {
		logger.Info("Collection already exists", zap.String("collection", m.collectionName))
		return nil
	}

	schema := &entity.Schema{
		CollectionName: m.collectionName,
		Description:    "FAQ document embeddings",
		Fields: []*entity.Field{
			{
				Name:       "vector_id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{"max_length": "80"},
			},
			{
				Name:       "doc_id",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "64"},
			},
			{
				Name:       "kind",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "16"},
			},
			{
				Name:       "question",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "2048"},
			},
			{
				Name:       "answer",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "8192"},
			},
			{
				Name:       "category",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "128"},
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", m.vectorDim),
				},
			},
			{
				Name:     "updated_at",
				DataType: entity.FieldTypeInt64,
			},
		},
	}

	if err := m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx := entity.NewIndexIVFFlat(entity.COSINE, 1024)
	if err := m.client.CreateIndex(ctx, m.collectionName, "embedding", idx, false); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	if err := m.client.LoadCollection(ctx, m.collectionName, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	logger.Info("Collection created and loaded", zap.String("collection", m.collectionName))
	return nil
}

// UpsertVectors replaces all three embedding rows for a document. The old
// rows are deleted first so a re-embed never leaves stale vectors behind.
func (m *Client) UpsertVectors(ctx context.Context, doc *models.FAQDocument, vectors *models.DocumentVectors) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := m.deleteByDocID(ctx, doc.ID); err != nil {
		return err
	}

	kinds := []models.EmbeddingKind{models.KindQuestion, models.KindAnswer, models.KindCombined}
	embeddings := [][]float32{vectors.Question, vectors.Answer, vectors.Combined}

	vectorIDs := make([]string, len(kinds))
	docIDs := make([]string, len(kinds))
	kindVals := make([]string, len(kinds))
	questions := make([]string, len(kinds))
	answers := make([]string, len(kinds))
	categories := make([]string, len(kinds))
	timestamps := make([]int64, len(kinds))

	now := time.Now().Unix()
	for i, kind := range kinds {
		vectorIDs[i] = fmt.Sprintf("%s:%s", doc.ID, kind)
		docIDs[i] = doc.ID
		kindVals[i] = string(kind)
		questions[i] = doc.Question
		answers[i] = doc.Answer
		categories[i] = doc.Category
		timestamps[i] = now
	}

	_, err := m.client.Insert(
		ctx,
		m.collectionName,
		"",
		entity.NewColumnVarChar("vector_id", vectorIDs),
		entity.NewColumnVarChar("doc_id", docIDs),
		entity.NewColumnVarChar("kind", kindVals),
		entity.NewColumnVarChar("question", questions),
		entity.NewColumnVarChar("answer", answers),
		entity.NewColumnVarChar("category", categories),
		entity.NewColumnFloatVector("embedding", m.vectorDim, embeddings),
		entity.NewColumnInt64("updated_at", timestamps),
	)
	if err != nil {
		return storage.NewStoreError("upsert_vectors", doc.ID, err)
	}

	if err := m.client.Flush(ctx, m.collectionName, false); err != nil {
		return storage.NewStoreError("flush_vectors", doc.ID, err)
	}

	logger.Debug("Document vectors upserted", zap.String("doc_id", doc.ID))
	return nil
}

func (m *Client) DeleteVectors(ctx context.Context, docID string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return m.deleteByDocID(ctx, docID)
}

func (m *Client) deleteByDocID(ctx context.Context, docID string) error {
	expr := fmt.Sprintf(`doc_id == "%s"`, escapeExpr(docID))
	if err := m.client.Delete(ctx, m.collectionName, "", expr); err != nil {
		return storage.NewStoreError("delete_vectors", docID, err)
	}
	return nil
}

// Search runs a cosine similarity query against one embedding kind and
// returns matches at or above the threshold, ordered by similarity
// descending (the server's ordering, no client-side rerank).
func (m *Client) Search(ctx context.Context, queryEmbedding []float32, opts models.VectorSearchOptions) ([]models.FAQMatch, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	kind := opts.Kind
	if kind == "" {
		kind = models.KindCombined
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 5
	}

	expr := fmt.Sprintf(`kind == "%s"`, string(kind))
	if opts.Category != "" {
		expr += fmt.Sprintf(` && category == "%s"`, escapeExpr(opts.Category))
	}

	sp, _ := entity.NewIndexIVFFlatSearchParam(16)

	searchResult, err := m.client.Search(
		ctx,
		m.collectionName,
		[]string{},
		expr,
		[]string{"doc_id", "question", "answer", "category"},
		[]entity.Vector{entity.FloatVector(queryEmbedding)},
		"embedding",
		entity.COSINE,
		limit,
		sp,
	)
	if err != nil {
		return nil, storage.NewStoreError("similarity_search", string(kind), err)
	}

	matches := make([]models.FAQMatch, 0)
	for _, sr := range searchResult {
		docIDCol := sr.Fields.GetColumn("doc_id")
		questionCol := sr.Fields.GetColumn("question")
		answerCol := sr.Fields.GetColumn("answer")
		categoryCol := sr.Fields.GetColumn("category")

		for i := 0; i < sr.ResultCount; i++ {
			similarity := float64(sr.Scores[i])
			if similarity < opts.Threshold {
				continue
			}

			docID, _ := docIDCol.Get(i)
			question, _ := questionCol.Get(i)
			answer, _ := answerCol.Get(i)
			category, _ := categoryCol.Get(i)

			matches = append(matches, models.FAQMatch{
				DocumentID: docID.(string),
				Question:   question.(string),
				Answer:     answer.(string),
				Category:   category.(string),
				Similarity: similarity,
			})
		}
	}

	logger.Debug("Vector search completed",
		zap.String("kind", string(kind)),
		zap.Int("limit", limit),
		zap.Int("matches", len(matches)),
		zap.Float64("threshold", opts.Threshold),
	)

	return matches, nil
}

func escapeExpr(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}
