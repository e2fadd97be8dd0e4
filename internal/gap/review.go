package gap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/faq-agent/backend/internal/metrics"
	"github.com/faq-agent/backend/internal/storage/models"
	"github.com/faq-agent/backend/pkg/logger"
)

// ErrClusterTerminal is returned for any state change on an accepted or
// dismissed cluster.
var ErrClusterTerminal = errors.New("cluster is in a terminal state")

type ReviewStore interface {
	GetCluster(ctx context.Context, id string) (*models.GapCluster, error)
	UpdateClusterStatus(ctx context.Context, id string, status models.ClusterStatus) error
	ResolveQuestionsByCluster(ctx context.Context, clusterID string) error
}

// DocumentWriter is the slice of the document service reviews drive.
type DocumentWriter interface {
	Add(ctx context.Context, question, answer, category string) (*models.FAQDocument, error)
	UpdateAnswer(ctx context.Context, id, answer string) (*models.FAQDocument, error)
}

// AcceptEdits lets the reviewer adjust the suggested content before it is
// committed to the knowledge base. Nil fields keep the suggestion as is.
type AcceptEdits struct {
	Question *string
	Answer   *string
	Category *string
}

// Reviewer applies human decisions to gap clusters. Accepting a cluster
// commits its suggestion to the knowledge base and resolves every member
// question; dismissing resolves the members without touching the knowledge
// base. Both are terminal.
type Reviewer struct {
	store ReviewStore
	docs  DocumentWriter
}

func NewReviewer(store ReviewStore, docs DocumentWriter) *Reviewer {
	return &Reviewer{store: store, docs: docs}
}

func (r *Reviewer) AcceptCluster(ctx context.Context, clusterID string, edits AcceptEdits) (*models.FAQDocument, error) {
	cluster, err := r.store.GetCluster(ctx, clusterID)
	if err != nil {
		return nil, err
	}
	if cluster.Status.Terminal() {
		return nil, ErrClusterTerminal
	}

	question := cluster.SuggestedQuestion
	answer := cluster.SuggestedAnswer
	category := cluster.SuggestedCategory
	if edits.Question != nil {
		question = *edits.Question
	}
	if edits.Answer != nil {
		answer = *edits.Answer
	}
	if edits.Category != nil {
		category = *edits.Category
	}

	var doc *models.FAQDocument
	if cluster.ActionType == models.ActionImprove && cluster.ExistingDocumentID != nil {
		doc, err = r.docs.UpdateAnswer(ctx, *cluster.ExistingDocumentID, answer)
	} else {
		if strings.TrimSpace(question) == "" || strings.TrimSpace(answer) == "" {
			return nil, fmt.Errorf("cluster %s has no usable question or answer to accept", clusterID)
		}
		doc, err = r.docs.Add(ctx, question, answer, category)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to commit cluster %s to knowledge base: %w", clusterID, err)
	}

	if err := r.store.UpdateClusterStatus(ctx, clusterID, models.StatusAccepted); err != nil {
		return nil, err
	}
	if err := r.store.ResolveQuestionsByCluster(ctx, clusterID); err != nil {
		logger.Error("Accepted cluster but failed to resolve member questions",
			zap.String("cluster_id", clusterID),
			zap.Error(err),
		)
	}

	metrics.ClusterReviewsTotal.WithLabelValues("accepted").Inc()
	logger.Info("Cluster accepted",
		zap.String("cluster_id", clusterID),
		zap.String("document_id", doc.ID),
	)
	return doc, nil
}

func (r *Reviewer) DismissCluster(ctx context.Context, clusterID string) error {
	cluster, err := r.store.GetCluster(ctx, clusterID)
	if err != nil {
		return err
	}
	if cluster.Status.Terminal() {
		return ErrClusterTerminal
	}

	if err := r.store.UpdateClusterStatus(ctx, clusterID, models.StatusDismissed); err != nil {
		return err
	}
	if err := r.store.ResolveQuestionsByCluster(ctx, clusterID); err != nil {
		logger.Error("Dismissed cluster but failed to resolve member questions",
			zap.String("cluster_id", clusterID),
			zap.Error(err),
		)
	}

	metrics.ClusterReviewsTotal.WithLabelValues("dismissed").Inc()
	logger.Info("Cluster dismissed", zap.String("cluster_id", clusterID))
	return nil
}

// MarkClusterReviewed flags a cluster as seen without deciding it.
func (r *Reviewer) MarkClusterReviewed(ctx context.Context, clusterID string) error {
	cluster, err := r.store.GetCluster(ctx, clusterID)
	if err != nil {
		return err
	}
	if cluster.Status.Terminal() {
		return ErrClusterTerminal
	}
	return r.store.UpdateClusterStatus(ctx, clusterID, models.StatusReviewed)
}
