package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/faq-agent/backend/internal/gap"
	"github.com/faq-agent/backend/internal/storage"
	"github.com/faq-agent/backend/internal/storage/models"
	"github.com/faq-agent/backend/pkg/logger"
)

// GapStore is the read surface the gap endpoints serve from.
type GapStore interface {
	ActiveClusters(ctx context.Context) ([]models.GapCluster, error)
	GetCluster(ctx context.Context, id string) (*models.GapCluster, error)
	RecentRuns(ctx context.Context, limit int) ([]models.AnalysisRun, error)
	TopUnclusteredQuestions(ctx context.Context, limit int) ([]models.GapQuestion, error)
	CountUnresolvedGapQuestions(ctx context.Context) (int, error)
}

type GapHandler struct {
	store     GapStore
	clusterer *gap.Clusterer
	reviewer  *gap.Reviewer
}

func NewGapHandler(store GapStore, clusterer *gap.Clusterer, reviewer *gap.Reviewer) *GapHandler {
	return &GapHandler{
		store:     store,
		clusterer: clusterer,
		reviewer:  reviewer,
	}
}

// HandleAnalyze triggers a manual analysis run. "force" bypasses the
// cooldown and backlog gates; "single_batch" limits the run to one page.
// A run already in flight yields 409 rather than queueing.
func (h *GapHandler) HandleAnalyze(c *fiber.Ctx) error {
	var req struct {
		Force       bool `json:"force"`
		SingleBatch bool `json:"single_batch"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
	}

	run, err := h.clusterer.Run(c.Context(), gap.RunOptions{
		Trigger:     models.TriggerManual,
		Force:       req.Force,
		SingleBatch: req.SingleBatch,
	})
	if err != nil {
		if errors.Is(err, gap.ErrRunInProgress) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "An analysis run is already in progress",
			})
		}
		logger.Error("Analysis run failed", zap.Error(err))
		if run == nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Analysis run failed",
			})
		}
		// Partial run, report what completed alongside the error.
		resp := runJSON(run)
		resp["error"] = "Analysis run finished with errors"
		return c.Status(fiber.StatusInternalServerError).JSON(resp)
	}

	return c.JSON(runJSON(run))
}

func (h *GapHandler) HandleListClusters(c *fiber.Ctx) error {
	clusters, err := h.store.ActiveClusters(c.Context())
	if err != nil {
		logger.Error("Failed to list clusters", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list clusters",
		})
	}

	out := make([]fiber.Map, 0, len(clusters))
	for i := range clusters {
		out = append(out, clusterJSON(&clusters[i]))
	}

	return c.JSON(fiber.Map{"clusters": out, "count": len(out)})
}

func (h *GapHandler) HandleGetCluster(c *fiber.Ctx) error {
	cluster, err := h.store.GetCluster(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Cluster not found",
			})
		}
		logger.Error("Failed to get cluster", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get cluster",
		})
	}

	return c.JSON(clusterJSON(cluster))
}

func (h *GapHandler) HandleAcceptCluster(c *fiber.Ctx) error {
	var req struct {
		Question *string `json:"question"`
		Answer   *string `json:"answer"`
		Category *string `json:"category"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
	}

	doc, err := h.reviewer.AcceptCluster(c.Context(), c.Params("id"), gap.AcceptEdits{
		Question: req.Question,
		Answer:   req.Answer,
		Category: req.Category,
	})
	if err != nil {
		return h.reviewError(c, err, "Failed to accept cluster")
	}

	return c.JSON(fiber.Map{
		"status":   "accepted",
		"document": documentJSON(doc),
	})
}

func (h *GapHandler) HandleDismissCluster(c *fiber.Ctx) error {
	if err := h.reviewer.DismissCluster(c.Context(), c.Params("id")); err != nil {
		return h.reviewError(c, err, "Failed to dismiss cluster")
	}
	return c.JSON(fiber.Map{"status": "dismissed"})
}

func (h *GapHandler) HandleReviewCluster(c *fiber.Ctx) error {
	if err := h.reviewer.MarkClusterReviewed(c.Context(), c.Params("id")); err != nil {
		return h.reviewError(c, err, "Failed to mark cluster reviewed")
	}
	return c.JSON(fiber.Map{"status": "reviewed"})
}

func (h *GapHandler) HandleListRuns(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)

	runs, err := h.store.RecentRuns(c.Context(), limit)
	if err != nil {
		logger.Error("Failed to list runs", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list runs",
		})
	}

	out := make([]fiber.Map, 0, len(runs))
	for i := range runs {
		out = append(out, runJSON(&runs[i]))
	}

	return c.JSON(fiber.Map{"runs": out, "count": len(out)})
}

func (h *GapHandler) HandleListQuestions(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)

	questions, err := h.store.TopUnclusteredQuestions(c.Context(), limit)
	if err != nil {
		logger.Error("Failed to list gap questions", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list gap questions",
		})
	}

	out := make([]fiber.Map, 0, len(questions))
	for _, q := range questions {
		out = append(out, fiber.Map{
			"id":               q.ID,
			"question":         q.QuestionText,
			"confidence_score": q.ConfidenceScore,
			"session_id":       q.SessionID,
			"created_at":       q.CreatedAt,
		})
	}

	return c.JSON(fiber.Map{"questions": out, "count": len(out)})
}

// HandleDashboard is the single review-queue view: backlog size, open
// clusters by priority, the loudest unclustered questions, and recent runs.
func (h *GapHandler) HandleDashboard(c *fiber.Ctx) error {
	ctx := c.Context()

	pending, err := h.store.CountUnresolvedGapQuestions(ctx)
	if err != nil {
		logger.Error("Failed to count gap questions", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load dashboard",
		})
	}

	clusters, err := h.store.ActiveClusters(ctx)
	if err != nil {
		logger.Error("Failed to list clusters", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load dashboard",
		})
	}

	questions, err := h.store.TopUnclusteredQuestions(ctx, 10)
	if err != nil {
		logger.Error("Failed to list gap questions", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load dashboard",
		})
	}

	runs, err := h.store.RecentRuns(ctx, 5)
	if err != nil {
		logger.Error("Failed to list runs", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load dashboard",
		})
	}

	clusterOut := make([]fiber.Map, 0, len(clusters))
	for i := range clusters {
		clusterOut = append(clusterOut, clusterJSON(&clusters[i]))
	}
	questionOut := make([]fiber.Map, 0, len(questions))
	for _, q := range questions {
		questionOut = append(questionOut, fiber.Map{
			"id":               q.ID,
			"question":         q.QuestionText,
			"confidence_score": q.ConfidenceScore,
			"created_at":       q.CreatedAt,
		})
	}
	runOut := make([]fiber.Map, 0, len(runs))
	for i := range runs {
		runOut = append(runOut, runJSON(&runs[i]))
	}

	return c.JSON(fiber.Map{
		"pending_questions": pending,
		"active_clusters":   clusterOut,
		"top_questions":     questionOut,
		"recent_runs":       runOut,
	})
}

func (h *GapHandler) reviewError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Cluster not found",
		})
	case errors.Is(err, gap.ErrClusterTerminal):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Cluster has already been accepted or dismissed",
		})
	default:
		logger.Error(fallback, zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fallback,
		})
	}
}

func clusterJSON(cluster *models.GapCluster) fiber.Map {
	return fiber.Map{
		"id":                   cluster.ID,
		"name":                 cluster.ClusterName,
		"description":          cluster.Description,
		"question_count":       cluster.QuestionCount,
		"sample_questions":     cluster.SampleQuestions,
		"priority_score":       cluster.PriorityScore,
		"action_type":          cluster.ActionType,
		"suggested_question":   cluster.SuggestedQuestion,
		"suggested_answer":     cluster.SuggestedAnswer,
		"suggested_category":   cluster.SuggestedCategory,
		"existing_document_id": cluster.ExistingDocumentID,
		"status":               cluster.Status,
		"created_at":           cluster.CreatedAt,
		"updated_at":           cluster.UpdatedAt,
	}
}

func runJSON(run *models.AnalysisRun) fiber.Map {
	return fiber.Map{
		"id":                  run.ID,
		"started_at":          run.StartedAt,
		"finished_at":         run.FinishedAt,
		"trigger":             run.Trigger,
		"skipped":             run.Skipped,
		"skip_reason":         run.SkipReason,
		"pages_processed":     run.PagesProcessed,
		"questions_processed": run.QuestionsProcessed,
		"clusters_created":    run.ClustersCreated,
		"clusters_merged":     run.ClustersMerged,
		"clusters_rejected":   run.ClustersRejected,
		"parse_errors":        run.ParseErrors,
		"persist_errors":      run.PersistErrors,
	}
}
