package gap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/faq-agent/backend/internal/llm"
	"github.com/faq-agent/backend/internal/metrics"
	"github.com/faq-agent/backend/internal/storage"
	"github.com/faq-agent/backend/internal/storage/models"
	"github.com/faq-agent/backend/pkg/logger"
)

// ErrRunInProgress is returned when an analysis run is requested while a
// previous one is still executing. The caller should not queue behind it.
var ErrRunInProgress = errors.New("analysis run already in progress")

// Store is the relational surface the clusterer drives. The concrete
// implementation is the SQLite client.
type Store interface {
	CountUnresolvedGapQuestions(ctx context.Context) (int, error)
	FetchUnresolvedGapQuestions(ctx context.Context, afterID int64, limit int) ([]models.GapQuestion, error)
	MarkGapQuestionsClustered(ctx context.Context, ids []int64, clusterID *string) error
	MarkGapQuestionsResolved(ctx context.Context, ids []int64) error
	CreateCluster(ctx context.Context, cluster *models.GapCluster) error
	FindActiveClusterByName(ctx context.Context, name string) (*models.GapCluster, error)
	MergeCluster(ctx context.Context, id string, questionCount int, sampleQuestions, sampleContexts []string, priorityScore float64) error
	GetDocument(ctx context.Context, id string) (*models.FAQDocument, error)
	ListFAQSummaries(ctx context.Context) ([]models.FAQSummary, error)
	InsertAnalysisRun(ctx context.Context, run *models.AnalysisRun) error
	LatestCompletedRun(ctx context.Context) (*models.AnalysisRun, error)
}

// Suggester groups a page of gap questions into cluster suggestions.
type Suggester interface {
	SuggestClusters(ctx context.Context, questions []models.GapQuestion, kb []models.FAQSummary) ([]llm.ClusterSuggestion, error)
}

// Event is pushed to subscribers (the websocket feed) as a run progresses.
type Event struct {
	Type      string    `json:"type"`
	RunID     string    `json:"run_id"`
	Page      int       `json:"page,omitempty"`
	ClusterID string    `json:"cluster_id,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Notifier interface {
	Notify(event Event)
}

type Config struct {
	CooldownDays        int
	MinPendingQuestions int
	MinUniqueUsers      int
	PageSize            int
	MaxPages            int
	PageDelay           time.Duration
	SampleLimit         int
}

type RunOptions struct {
	Trigger models.RunTrigger
	// Force bypasses the cooldown and minimum-backlog gates, not the
	// in-progress lock.
	Force bool
	// SingleBatch restricts the run to one page, for interactive manual runs.
	SingleBatch bool
}

type Clusterer struct {
	store     Store
	suggester Suggester
	notifier  Notifier
	cfg       Config

	mu  sync.Mutex
	now func() time.Time
}

func NewClusterer(store Store, suggester Suggester, notifier Notifier, cfg Config) *Clusterer {
	if cfg.CooldownDays == 0 {
		cfg.CooldownDays = 7
	}
	if cfg.MinPendingQuestions == 0 {
		cfg.MinPendingQuestions = 30
	}
	if cfg.MinUniqueUsers == 0 {
		cfg.MinUniqueUsers = 3
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = 50
	}
	if cfg.MaxPages == 0 {
		cfg.MaxPages = 10
	}
	if cfg.SampleLimit == 0 {
		cfg.SampleLimit = 5
	}

	return &Clusterer{
		store:     store,
		suggester: suggester,
		notifier:  notifier,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Run executes one analysis pass: gate checks, paged fetching, clustering
// via the suggester, and persistence. Only one run executes at a time;
// concurrent callers get ErrRunInProgress immediately rather than queueing.
// Every non-rejected invocation leaves an analysis_runs row, including
// skipped ones.
func (c *Clusterer) Run(ctx context.Context, opts RunOptions) (*models.AnalysisRun, error) {
	if !c.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer c.mu.Unlock()

	run := &models.AnalysisRun{
		ID:        uuid.New().String(),
		StartedAt: c.now(),
		Trigger:   opts.Trigger,
	}

	if !opts.Force {
		if reason, skip := c.shouldSkip(ctx); skip {
			run.Skipped = true
			run.SkipReason = reason
			run.FinishedAt = c.now()
			if err := c.store.InsertAnalysisRun(ctx, run); err != nil {
				logger.Error("Failed to record skipped run", zap.Error(err))
			}
			logger.Info("Analysis run skipped", zap.String("reason", reason))
			c.notify(Event{Type: "run_skipped", RunID: run.ID, Message: reason})
			return run, nil
		}
	}

	c.notify(Event{Type: "run_started", RunID: run.ID})
	logger.Info("Analysis run started",
		zap.String("run_id", run.ID),
		zap.String("trigger", string(opts.Trigger)),
	)

	kb, err := c.store.ListFAQSummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge base summaries: %w", err)
	}

	maxPages := c.cfg.MaxPages
	if opts.SingleBatch {
		maxPages = 1
	}

	var runErr error
	var afterID int64

pages:
	for page := 0; page < maxPages; page++ {
		if page > 0 {
			select {
			case <-ctx.Done():
				runErr = ctx.Err()
				break pages
			case <-time.After(c.cfg.PageDelay):
			}
		}

		batch, err := c.store.FetchUnresolvedGapQuestions(ctx, afterID, c.cfg.PageSize)
		if err != nil {
			runErr = fmt.Errorf("failed to fetch gap question page: %w", err)
			break
		}
		if len(batch) == 0 {
			break
		}
		// A short page is the last one; no point fetching again.
		lastPage := len(batch) < c.cfg.PageSize

		afterID = batch[len(batch)-1].ID
		run.PagesProcessed++
		run.QuestionsProcessed += len(batch)
		c.notify(Event{Type: "page_started", RunID: run.ID, Page: run.PagesProcessed})

		suggestions, err := c.suggester.SuggestClusters(ctx, batch, kb)
		if err != nil {
			var parseErr *llm.GenerationParseError
			if errors.As(err, &parseErr) {
				// A malformed page is skipped whole; its questions stay
				// pending and come back in the next run.
				run.ParseErrors++
				logger.Warn("Skipping page after unparseable clustering output",
					zap.Int("page", run.PagesProcessed),
					zap.Error(err),
				)
				if lastPage {
					break pages
				}
				continue
			}
			runErr = fmt.Errorf("clustering page %d failed: %w", run.PagesProcessed, err)
			break
		}

		byID := make(map[int64]models.GapQuestion, len(batch))
		for _, q := range batch {
			byID[q.ID] = q
		}

		for _, suggestion := range suggestions {
			c.applySuggestion(ctx, run, suggestion, byID)
		}

		if lastPage {
			break
		}
	}

	run.FinishedAt = c.now()
	if err := c.store.InsertAnalysisRun(ctx, run); err != nil {
		logger.Error("Failed to record analysis run", zap.String("run_id", run.ID), zap.Error(err))
	}

	metrics.AnalysisRunsTotal.WithLabelValues(string(opts.Trigger)).Inc()
	metrics.ClustersCreatedTotal.Add(float64(run.ClustersCreated))

	c.notify(Event{Type: "run_finished", RunID: run.ID})
	logger.Info("Analysis run finished",
		zap.String("run_id", run.ID),
		zap.Int("pages", run.PagesProcessed),
		zap.Int("questions", run.QuestionsProcessed),
		zap.Int("created", run.ClustersCreated),
		zap.Int("merged", run.ClustersMerged),
		zap.Int("rejected", run.ClustersRejected),
		zap.Int("parse_errors", run.ParseErrors),
	)

	return run, runErr
}

func (c *Clusterer) shouldSkip(ctx context.Context) (string, bool) {
	last, err := c.store.LatestCompletedRun(ctx)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		logger.Warn("Failed to read last run, proceeding without cooldown", zap.Error(err))
	}
	if last != nil {
		cooldown := time.Duration(c.cfg.CooldownDays) * 24 * time.Hour
		if elapsed := c.now().Sub(last.StartedAt); elapsed < cooldown {
			return fmt.Sprintf("cooldown active, last run %s ago", elapsed.Round(time.Minute)), true
		}
	}

	pending, err := c.store.CountUnresolvedGapQuestions(ctx)
	if err != nil {
		logger.Warn("Failed to count pending questions, proceeding", zap.Error(err))
		return "", false
	}
	if pending < c.cfg.MinPendingQuestions {
		return fmt.Sprintf("only %d pending questions, minimum is %d", pending, c.cfg.MinPendingQuestions), true
	}

	return "", false
}

// applySuggestion validates one suggested cluster and persists the outcome.
// Rejected groups have their members marked clustered with no cluster row so
// the same weak grouping is not re-proposed every run. Persistence failures
// are counted and logged but do not abort the run.
func (c *Clusterer) applySuggestion(ctx context.Context, run *models.AnalysisRun, suggestion llm.ClusterSuggestion, byID map[int64]models.GapQuestion) {
	members := make([]models.GapQuestion, 0, len(suggestion.QuestionIDs))
	ids := make([]int64, 0, len(suggestion.QuestionIDs))
	for _, id := range suggestion.QuestionIDs {
		q, ok := byID[id]
		if !ok {
			// Hallucinated id, ignore it rather than failing the cluster.
			logger.Warn("Suggestion references unknown question id",
				zap.String("cluster_name", suggestion.Name),
				zap.Int64("question_id", id),
			)
			continue
		}
		members = append(members, q)
		ids = append(ids, id)
	}

	// Dismissed noise is resolved outright, regardless of how few askers it
	// had; the member and user minimums only guard real proposals.
	if dismiss, ok := suggestion.Action.(llm.DismissAction); ok {
		if err := c.store.MarkGapQuestionsResolved(ctx, ids); err != nil {
			run.PersistErrors++
			logger.Error("Failed to resolve dismissed group", zap.String("cluster_name", suggestion.Name), zap.Error(err))
			return
		}
		run.ClustersRejected++
		logger.Info("Gap group dismissed",
			zap.String("cluster_name", suggestion.Name),
			zap.String("reason", dismiss.Reason),
			zap.Int("questions", len(ids)),
		)
		return
	}

	if len(members) < 2 {
		c.reject(ctx, run, ids, suggestion.Name, "fewer than two members")
		return
	}
	if users := uniqueUsers(members); users < c.cfg.MinUniqueUsers {
		c.reject(ctx, run, ids, suggestion.Name,
			fmt.Sprintf("%d unique users, minimum is %d", users, c.cfg.MinUniqueUsers))
		return
	}

	if existing, err := c.store.FindActiveClusterByName(ctx, suggestion.Name); err == nil {
		c.merge(ctx, run, existing, members, ids)
		return
	} else if !errors.Is(err, storage.ErrNotFound) {
		run.PersistErrors++
		logger.Error("Cluster name lookup failed", zap.String("cluster_name", suggestion.Name), zap.Error(err))
		return
	}

	c.create(ctx, run, suggestion, members, ids)
}

func (c *Clusterer) reject(ctx context.Context, run *models.AnalysisRun, ids []int64, name, reason string) {
	run.ClustersRejected++
	logger.Debug("Cluster suggestion rejected",
		zap.String("cluster_name", name),
		zap.String("reason", reason),
	)
	if err := c.store.MarkGapQuestionsClustered(ctx, ids, nil); err != nil {
		run.PersistErrors++
		logger.Error("Failed to mark rejected group", zap.String("cluster_name", name), zap.Error(err))
	}
}

func (c *Clusterer) merge(ctx context.Context, run *models.AnalysisRun, existing *models.GapCluster, members []models.GapQuestion, ids []int64) {
	newCount := existing.QuestionCount + len(members)
	samples, contexts := c.mergeSamples(existing, members)

	if err := c.store.MergeCluster(ctx, existing.ID, newCount, samples, contexts, PriorityScore(newCount)); err != nil {
		run.PersistErrors++
		logger.Error("Failed to merge cluster", zap.String("cluster_id", existing.ID), zap.Error(err))
		return
	}
	if err := c.store.MarkGapQuestionsClustered(ctx, ids, &existing.ID); err != nil {
		run.PersistErrors++
		logger.Error("Failed to attach questions to merged cluster", zap.String("cluster_id", existing.ID), zap.Error(err))
		return
	}

	run.ClustersMerged++
	c.notify(Event{Type: "cluster_merged", RunID: run.ID, ClusterID: existing.ID})
}

func (c *Clusterer) create(ctx context.Context, run *models.AnalysisRun, suggestion llm.ClusterSuggestion, members []models.GapQuestion, ids []int64) {
	cluster := &models.GapCluster{
		ID:            uuid.New().String(),
		ClusterName:   suggestion.Name,
		Description:   suggestion.Description,
		QuestionCount: len(members),
		PriorityScore: PriorityScore(len(members)),
		Status:        models.StatusNew,
		CreatedAt:     c.now(),
		UpdatedAt:     c.now(),
	}
	cluster.SampleQuestions, cluster.SampleContexts = c.sample(members)

	switch action := suggestion.Action.(type) {
	case llm.CreateAction:
		cluster.ActionType = models.ActionCreate
		cluster.SuggestedQuestion = action.Question
		cluster.SuggestedAnswer = action.Answer
		cluster.SuggestedCategory = action.Category

	case llm.ImproveAction:
		improve := false
		doc, err := c.store.GetDocument(ctx, action.ExistingDocumentID)
		if err != nil {
			logger.Warn("Improve target not found, downgrading to create",
				zap.String("cluster_name", suggestion.Name),
				zap.String("document_id", action.ExistingDocumentID),
			)
		} else if strings.TrimSpace(doc.Answer) == strings.TrimSpace(action.SuggestedAnswer) {
			// The suggestion repeats the stored answer, so a reviewer
			// would have nothing to apply.
			logger.Warn("Improve suggestion matches stored answer, downgrading to create",
				zap.String("cluster_name", suggestion.Name),
				zap.String("document_id", action.ExistingDocumentID),
			)
		} else {
			improve = true
		}

		if improve {
			cluster.ActionType = models.ActionImprove
			cluster.SuggestedAnswer = action.SuggestedAnswer
			docID := action.ExistingDocumentID
			cluster.ExistingDocumentID = &docID
		} else {
			// The content is still worth reviewing; carry it as a create
			// suggestion rather than dropping it.
			cluster.ActionType = models.ActionCreate
			cluster.SuggestedQuestion = members[0].QuestionText
			cluster.SuggestedAnswer = action.SuggestedAnswer
		}

	default:
		run.ClustersRejected++
		logger.Error("Unknown cluster action", zap.String("cluster_name", suggestion.Name))
		return
	}

	if err := c.store.CreateCluster(ctx, cluster); err != nil {
		run.PersistErrors++
		logger.Error("Failed to persist cluster", zap.String("cluster_name", suggestion.Name), zap.Error(err))
		return
	}
	if err := c.store.MarkGapQuestionsClustered(ctx, ids, &cluster.ID); err != nil {
		run.PersistErrors++
		logger.Error("Failed to attach questions to cluster", zap.String("cluster_id", cluster.ID), zap.Error(err))
		return
	}

	run.ClustersCreated++
	c.notify(Event{Type: "cluster_created", RunID: run.ID, ClusterID: cluster.ID, Message: cluster.ClusterName})
}

func (c *Clusterer) sample(members []models.GapQuestion) ([]string, []string) {
	questions := make([]string, 0, c.cfg.SampleLimit)
	contexts := make([]string, 0, c.cfg.SampleLimit)
	for _, m := range members {
		if len(questions) >= c.cfg.SampleLimit {
			break
		}
		questions = append(questions, m.QuestionText)
		if m.ConversationContext != "" {
			contexts = append(contexts, m.ConversationContext)
		}
	}
	return questions, contexts
}

func (c *Clusterer) mergeSamples(existing *models.GapCluster, members []models.GapQuestion) ([]string, []string) {
	questions := append([]string{}, existing.SampleQuestions...)
	contexts := append([]string{}, existing.SampleContexts...)
	for _, m := range members {
		if len(questions) >= c.cfg.SampleLimit {
			break
		}
		questions = append(questions, m.QuestionText)
		if m.ConversationContext != "" && len(contexts) < c.cfg.SampleLimit {
			contexts = append(contexts, m.ConversationContext)
		}
	}
	return questions, contexts
}

func (c *Clusterer) notify(event Event) {
	if c.notifier == nil {
		return
	}
	event.Timestamp = c.now()
	c.notifier.Notify(event)
}

// uniqueUsers counts distinct askers, falling back to the session when no
// user id was captured.
func uniqueUsers(members []models.GapQuestion) int {
	seen := make(map[string]struct{}, len(members))
	for _, m := range members {
		key := m.UserID
		if key == "" {
			key = m.SessionID
		}
		if key == "" {
			continue
		}
		seen[key] = struct{}{}
	}
	return len(seen)
}
