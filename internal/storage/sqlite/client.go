package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/faq-agent/backend/internal/storage"
	"github.com/faq-agent/backend/internal/storage/models"
	"github.com/faq-agent/backend/pkg/logger"
)

// ErrNotFound aliases the shared storage sentinel so existing callers of
// this package keep working.
var ErrNotFound = storage.ErrNotFound

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err = db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err = db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS faq_documents (
		id TEXT PRIMARY KEY,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		category TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_documents_category ON faq_documents(category);

	CREATE TABLE IF NOT EXISTS gap_questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		question_text TEXT NOT NULL,
		conversation_context TEXT,
		session_id TEXT,
		user_id TEXT,
		page_id TEXT,
		confidence_score REAL NOT NULL,
		matched_faq_id TEXT,
		is_clustered INTEGER NOT NULL DEFAULT 0,
		cluster_id TEXT,
		is_resolved INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_gap_unresolved ON gap_questions(is_resolved, is_clustered, created_at);
	CREATE INDEX IF NOT EXISTS idx_gap_cluster ON gap_questions(cluster_id);

	CREATE TABLE IF NOT EXISTS gap_clusters (
		id TEXT PRIMARY KEY,
		cluster_name TEXT NOT NULL,
		description TEXT,
		question_count INTEGER NOT NULL DEFAULT 0,
		sample_questions TEXT,
		sample_contexts TEXT,
		priority_score REAL NOT NULL DEFAULT 0,
		action_type TEXT NOT NULL,
		suggested_question TEXT,
		suggested_answer TEXT,
		suggested_category TEXT,
		existing_document_id TEXT,
		status TEXT NOT NULL DEFAULT 'new',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_clusters_status ON gap_clusters(status);
	CREATE INDEX IF NOT EXISTS idx_clusters_name ON gap_clusters(cluster_name);

	CREATE TABLE IF NOT EXISTS analysis_runs (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		trigger_type TEXT NOT NULL,
		skipped INTEGER NOT NULL DEFAULT 0,
		skip_reason TEXT,
		pages_processed INTEGER NOT NULL DEFAULT 0,
		questions_processed INTEGER NOT NULL DEFAULT 0,
		clusters_created INTEGER NOT NULL DEFAULT 0,
		clusters_merged INTEGER NOT NULL DEFAULT 0,
		clusters_rejected INTEGER NOT NULL DEFAULT 0,
		parse_errors INTEGER NOT NULL DEFAULT 0,
		persist_errors INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON analysis_runs(started_at);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

// Documents

func (c *Client) InsertDocument(ctx context.Context, doc *models.FAQDocument) error {
	query := `
		INSERT INTO faq_documents (id, question, answer, category, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			question = excluded.question,
			answer = excluded.answer,
			category = excluded.category,
			updated_at = excluded.updated_at
	`

	_, err := c.db.ExecContext(ctx, query,
		doc.ID,
		doc.Question,
		doc.Answer,
		doc.Category,
		doc.CreatedAt.Unix(),
		doc.UpdatedAt.Unix(),
	)
	if err != nil {
		return storage.NewStoreError("upsert_document", doc.ID, err)
	}

	logger.Debug("Document upserted", zap.String("doc_id", doc.ID))
	return nil
}

func (c *Client) GetDocument(ctx context.Context, id string) (*models.FAQDocument, error) {
	query := `SELECT id, question, answer, category, created_at, updated_at FROM faq_documents WHERE id = ?`

	var doc models.FAQDocument
	var category sql.NullString
	var createdAt, updatedAt int64

	err := c.db.QueryRowContext(ctx, query, id).Scan(
		&doc.ID, &doc.Question, &doc.Answer, &category, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storage.NewStoreError("get_document", id, err)
	}

	doc.Category = category.String
	doc.CreatedAt = time.Unix(createdAt, 0)
	doc.UpdatedAt = time.Unix(updatedAt, 0)

	return &doc, nil
}

func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM faq_documents WHERE id = ?`, id); err != nil {
		return storage.NewStoreError("delete_document", id, err)
	}
	return nil
}

func (c *Client) ListDocuments(ctx context.Context, limit int) ([]models.FAQDocument, error) {
	query := `SELECT id, question, answer, category, created_at, updated_at FROM faq_documents ORDER BY created_at DESC LIMIT ?`

	rows, err := c.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, storage.NewStoreError("list_documents", "", err)
	}
	defer rows.Close()

	var docs []models.FAQDocument
	for rows.Next() {
		var doc models.FAQDocument
		var category sql.NullString
		var createdAt, updatedAt int64

		if err := rows.Scan(&doc.ID, &doc.Question, &doc.Answer, &category, &createdAt, &updatedAt); err != nil {
			return nil, storage.NewStoreError("list_documents", "", err)
		}

		doc.Category = category.String
		doc.CreatedAt = time.Unix(createdAt, 0)
		doc.UpdatedAt = time.Unix(updatedAt, 0)
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

func (c *Client) ListFAQSummaries(ctx context.Context) ([]models.FAQSummary, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, question, category FROM faq_documents ORDER BY created_at`)
	if err != nil {
		return nil, storage.NewStoreError("list_faq_summaries", "", err)
	}
	defer rows.Close()

	var summaries []models.FAQSummary
	for rows.Next() {
		var s models.FAQSummary
		var category sql.NullString
		if err := rows.Scan(&s.ID, &s.Question, &category); err != nil {
			return nil, storage.NewStoreError("list_faq_summaries", "", err)
		}
		s.Category = category.String
		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}

// Gap questions

func (c *Client) LogGapQuestion(ctx context.Context, q *models.GapQuestion) (int64, error) {
	query := `
		INSERT INTO gap_questions (question_text, conversation_context, session_id, user_id, page_id,
			confidence_score, matched_faq_id, is_clustered, cluster_id, is_resolved, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, NULL, 0, ?)
	`

	res, err := c.db.ExecContext(ctx, query,
		q.QuestionText,
		q.ConversationContext,
		q.SessionID,
		q.UserID,
		q.PageID,
		q.ConfidenceScore,
		q.MatchedFAQID,
		q.CreatedAt.Unix(),
	)
	if err != nil {
		return 0, storage.NewStoreError("log_gap_question", "", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, storage.NewStoreError("log_gap_question", "", err)
	}

	logger.Debug("Gap question logged",
		zap.Int64("id", id),
		zap.Float64("confidence", q.ConfidenceScore),
	)
	return id, nil
}

// FetchUnresolvedGapQuestions pages through the backlog oldest-first using
// an id cursor, so a page skipped after a parse error is not refetched in
// the same run.
func (c *Client) FetchUnresolvedGapQuestions(ctx context.Context, afterID int64, limit int) ([]models.GapQuestion, error) {
	query := `
		SELECT id, question_text, conversation_context, session_id, user_id, page_id,
			confidence_score, matched_faq_id, is_clustered, cluster_id, is_resolved, created_at
		FROM gap_questions
		WHERE is_resolved = 0 AND is_clustered = 0 AND id > ?
		ORDER BY id ASC
		LIMIT ?
	`

	rows, err := c.db.QueryContext(ctx, query, afterID, limit)
	if err != nil {
		return nil, storage.NewStoreError("fetch_unresolved_gap_questions", "", err)
	}
	defer rows.Close()

	return scanGapQuestions(rows)
}

func (c *Client) CountUnresolvedGapQuestions(ctx context.Context) (int, error) {
	var count int
	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM gap_questions WHERE is_resolved = 0 AND is_clustered = 0`,
	).Scan(&count)
	if err != nil {
		return 0, storage.NewStoreError("count_unresolved_gap_questions", "", err)
	}
	return count, nil
}

func (c *Client) MarkGapQuestionsClustered(ctx context.Context, ids []int64, clusterID *string) error {
	if len(ids) == 0 {
		return nil
	}

	query := fmt.Sprintf(
		`UPDATE gap_questions SET is_clustered = 1, cluster_id = ? WHERE id IN (%s)`,
		placeholders(len(ids)),
	)

	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, clusterID)
	for _, id := range ids {
		args = append(args, id)
	}

	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return storage.NewStoreError("mark_gap_questions_clustered", "", err)
	}
	return nil
}

func (c *Client) MarkGapQuestionsResolved(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query := fmt.Sprintf(
		`UPDATE gap_questions SET is_resolved = 1, is_clustered = 1 WHERE id IN (%s)`,
		placeholders(len(ids)),
	)

	args := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}

	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return storage.NewStoreError("mark_gap_questions_resolved", "", err)
	}
	return nil
}

func (c *Client) ResolveQuestionsByCluster(ctx context.Context, clusterID string) error {
	if _, err := c.db.ExecContext(ctx,
		`UPDATE gap_questions SET is_resolved = 1 WHERE cluster_id = ?`, clusterID,
	); err != nil {
		return storage.NewStoreError("resolve_questions_by_cluster", clusterID, err)
	}
	return nil
}

func (c *Client) TopUnclusteredQuestions(ctx context.Context, limit int) ([]models.GapQuestion, error) {
	query := `
		SELECT id, question_text, conversation_context, session_id, user_id, page_id,
			confidence_score, matched_faq_id, is_clustered, cluster_id, is_resolved, created_at
		FROM gap_questions
		WHERE is_resolved = 0 AND is_clustered = 0
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, storage.NewStoreError("top_unclustered_questions", "", err)
	}
	defer rows.Close()

	return scanGapQuestions(rows)
}

// Clusters

func (c *Client) CreateCluster(ctx context.Context, cluster *models.GapCluster) error {
	samplesJSON, _ := json.Marshal(cluster.SampleQuestions)
	contextsJSON, _ := json.Marshal(cluster.SampleContexts)

	query := `
		INSERT INTO gap_clusters (id, cluster_name, description, question_count, sample_questions,
			sample_contexts, priority_score, action_type, suggested_question, suggested_answer,
			suggested_category, existing_document_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.ExecContext(ctx, query,
		cluster.ID,
		cluster.ClusterName,
		cluster.Description,
		cluster.QuestionCount,
		string(samplesJSON),
		string(contextsJSON),
		cluster.PriorityScore,
		string(cluster.ActionType),
		cluster.SuggestedQuestion,
		cluster.SuggestedAnswer,
		cluster.SuggestedCategory,
		cluster.ExistingDocumentID,
		string(cluster.Status),
		cluster.CreatedAt.Unix(),
		cluster.UpdatedAt.Unix(),
	)
	if err != nil {
		return storage.NewStoreError("create_cluster", cluster.ID, err)
	}

	logger.Info("Gap cluster created",
		zap.String("cluster_id", cluster.ID),
		zap.String("name", cluster.ClusterName),
		zap.String("action", string(cluster.ActionType)),
	)
	return nil
}

// FindActiveClusterByName looks up a cluster by name among the non-terminal
// set. Accepted and dismissed clusters never match, so a recurring topic can
// legitimately produce a fresh cluster after the old one was closed out.
func (c *Client) FindActiveClusterByName(ctx context.Context, name string) (*models.GapCluster, error) {
	query := `
		SELECT id, cluster_name, description, question_count, sample_questions, sample_contexts,
			priority_score, action_type, suggested_question, suggested_answer, suggested_category,
			existing_document_id, status, created_at, updated_at
		FROM gap_clusters
		WHERE cluster_name = ? AND status NOT IN ('accepted', 'dismissed')
		LIMIT 1
	`

	cluster, err := c.scanCluster(c.db.QueryRowContext(ctx, query, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storage.NewStoreError("find_cluster_by_name", name, err)
	}
	return cluster, nil
}

func (c *Client) GetCluster(ctx context.Context, id string) (*models.GapCluster, error) {
	query := `
		SELECT id, cluster_name, description, question_count, sample_questions, sample_contexts,
			priority_score, action_type, suggested_question, suggested_answer, suggested_category,
			existing_document_id, status, created_at, updated_at
		FROM gap_clusters
		WHERE id = ?
	`

	cluster, err := c.scanCluster(c.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storage.NewStoreError("get_cluster", id, err)
	}
	return cluster, nil
}

// MergeCluster folds a re-run's counts and samples into an existing
// non-terminal cluster instead of duplicating the row.
func (c *Client) MergeCluster(ctx context.Context, id string, questionCount int, sampleQuestions, sampleContexts []string, priorityScore float64) error {
	samplesJSON, _ := json.Marshal(sampleQuestions)
	contextsJSON, _ := json.Marshal(sampleContexts)

	query := `
		UPDATE gap_clusters
		SET question_count = ?, sample_questions = ?, sample_contexts = ?, priority_score = ?, updated_at = ?
		WHERE id = ?
	`

	if _, err := c.db.ExecContext(ctx, query,
		questionCount, string(samplesJSON), string(contextsJSON), priorityScore, time.Now().Unix(), id,
	); err != nil {
		return storage.NewStoreError("merge_cluster", id, err)
	}

	logger.Info("Gap cluster merged", zap.String("cluster_id", id), zap.Int("question_count", questionCount))
	return nil
}

func (c *Client) UpdateClusterStatus(ctx context.Context, id string, status models.ClusterStatus) error {
	if _, err := c.db.ExecContext(ctx,
		`UPDATE gap_clusters SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().Unix(), id,
	); err != nil {
		return storage.NewStoreError("update_cluster_status", id, err)
	}
	return nil
}

func (c *Client) ActiveClusters(ctx context.Context) ([]models.GapCluster, error) {
	query := `
		SELECT id, cluster_name, description, question_count, sample_questions, sample_contexts,
			priority_score, action_type, suggested_question, suggested_answer, suggested_category,
			existing_document_id, status, created_at, updated_at
		FROM gap_clusters
		WHERE status NOT IN ('accepted', 'dismissed')
		ORDER BY priority_score DESC
	`

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storage.NewStoreError("active_clusters", "", err)
	}
	defer rows.Close()

	var clusters []models.GapCluster
	for rows.Next() {
		cluster, err := c.scanCluster(rows)
		if err != nil {
			return nil, storage.NewStoreError("active_clusters", "", err)
		}
		clusters = append(clusters, *cluster)
	}

	return clusters, rows.Err()
}

// Analysis runs

func (c *Client) InsertAnalysisRun(ctx context.Context, run *models.AnalysisRun) error {
	query := `
		INSERT INTO analysis_runs (id, started_at, finished_at, trigger_type, skipped, skip_reason,
			pages_processed, questions_processed, clusters_created, clusters_merged,
			clusters_rejected, parse_errors, persist_errors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	skipped := 0
	if run.Skipped {
		skipped = 1
	}

	_, err := c.db.ExecContext(ctx, query,
		run.ID,
		run.StartedAt.Unix(),
		run.FinishedAt.Unix(),
		string(run.Trigger),
		skipped,
		run.SkipReason,
		run.PagesProcessed,
		run.QuestionsProcessed,
		run.ClustersCreated,
		run.ClustersMerged,
		run.ClustersRejected,
		run.ParseErrors,
		run.PersistErrors,
	)
	if err != nil {
		return storage.NewStoreError("insert_analysis_run", run.ID, err)
	}

	logger.Info("Analysis run recorded",
		zap.String("run_id", run.ID),
		zap.Bool("skipped", run.Skipped),
		zap.Int("clusters_created", run.ClustersCreated),
	)
	return nil
}

// LatestCompletedRun returns the newest non-skipped run regardless of
// trigger. Cooldown checks use it as the persisted last-run timestamp, so a
// manual run also resets the scheduled cadence.
func (c *Client) LatestCompletedRun(ctx context.Context) (*models.AnalysisRun, error) {
	query := `
		SELECT id, started_at, finished_at, trigger_type, skipped, skip_reason,
			pages_processed, questions_processed, clusters_created, clusters_merged,
			clusters_rejected, parse_errors, persist_errors
		FROM analysis_runs
		WHERE skipped = 0
		ORDER BY started_at DESC
		LIMIT 1
	`

	run, err := scanAnalysisRun(c.db.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storage.NewStoreError("latest_completed_run", "", err)
	}
	return run, nil
}

func (c *Client) RecentRuns(ctx context.Context, limit int) ([]models.AnalysisRun, error) {
	query := `
		SELECT id, started_at, finished_at, trigger_type, skipped, skip_reason,
			pages_processed, questions_processed, clusters_created, clusters_merged,
			clusters_rejected, parse_errors, persist_errors
		FROM analysis_runs
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := c.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, storage.NewStoreError("recent_runs", "", err)
	}
	defer rows.Close()

	var runs []models.AnalysisRun
	for rows.Next() {
		run, err := scanAnalysisRun(rows)
		if err != nil {
			return nil, storage.NewStoreError("recent_runs", "", err)
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

// Scan helpers

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (c *Client) scanCluster(row rowScanner) (*models.GapCluster, error) {
	var cluster models.GapCluster
	var description, samplesJSON, contextsJSON, suggestedQuestion, suggestedAnswer, suggestedCategory sql.NullString
	var existingDocID sql.NullString
	var actionType, status string
	var createdAt, updatedAt int64

	err := row.Scan(
		&cluster.ID,
		&cluster.ClusterName,
		&description,
		&cluster.QuestionCount,
		&samplesJSON,
		&contextsJSON,
		&cluster.PriorityScore,
		&actionType,
		&suggestedQuestion,
		&suggestedAnswer,
		&suggestedCategory,
		&existingDocID,
		&status,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	cluster.Description = description.String
	cluster.SuggestedQuestion = suggestedQuestion.String
	cluster.SuggestedAnswer = suggestedAnswer.String
	cluster.SuggestedCategory = suggestedCategory.String
	cluster.ActionType = models.ClusterActionType(actionType)
	cluster.Status = models.ClusterStatus(status)
	cluster.CreatedAt = time.Unix(createdAt, 0)
	cluster.UpdatedAt = time.Unix(updatedAt, 0)

	if existingDocID.Valid {
		cluster.ExistingDocumentID = &existingDocID.String
	}
	if samplesJSON.Valid && samplesJSON.String != "" {
		if err := json.Unmarshal([]byte(samplesJSON.String), &cluster.SampleQuestions); err != nil {
			logger.Warn("Failed to parse sample questions", zap.String("cluster_id", cluster.ID), zap.Error(err))
		}
	}
	if contextsJSON.Valid && contextsJSON.String != "" {
		if err := json.Unmarshal([]byte(contextsJSON.String), &cluster.SampleContexts); err != nil {
			logger.Warn("Failed to parse sample contexts", zap.String("cluster_id", cluster.ID), zap.Error(err))
		}
	}

	return &cluster, nil
}

func scanAnalysisRun(row rowScanner) (*models.AnalysisRun, error) {
	var run models.AnalysisRun
	var skipReason sql.NullString
	var trigger string
	var skipped int
	var startedAt, finishedAt int64

	err := row.Scan(
		&run.ID,
		&startedAt,
		&finishedAt,
		&trigger,
		&skipped,
		&skipReason,
		&run.PagesProcessed,
		&run.QuestionsProcessed,
		&run.ClustersCreated,
		&run.ClustersMerged,
		&run.ClustersRejected,
		&run.ParseErrors,
		&run.PersistErrors,
	)
	if err != nil {
		return nil, err
	}

	run.StartedAt = time.Unix(startedAt, 0)
	run.FinishedAt = time.Unix(finishedAt, 0)
	run.Trigger = models.RunTrigger(trigger)
	run.Skipped = skipped != 0
	run.SkipReason = skipReason.String

	return &run, nil
}

func scanGapQuestions(rows *sql.Rows) ([]models.GapQuestion, error) {
	var questions []models.GapQuestion
	for rows.Next() {
		var q models.GapQuestion
		var convContext, sessionID, userID, pageID, matchedFAQID, clusterID sql.NullString
		var isClustered, isResolved int
		var createdAt int64

		err := rows.Scan(
			&q.ID,
			&q.QuestionText,
			&convContext,
			&sessionID,
			&userID,
			&pageID,
			&q.ConfidenceScore,
			&matchedFAQID,
			&isClustered,
			&clusterID,
			&isResolved,
			&createdAt,
		)
		if err != nil {
			return nil, storage.NewStoreError("scan_gap_question", "", err)
		}

		q.ConversationContext = convContext.String
		q.SessionID = sessionID.String
		q.UserID = userID.String
		q.PageID = pageID.String
		q.IsClustered = isClustered != 0
		q.IsResolved = isResolved != 0
		q.CreatedAt = time.Unix(createdAt, 0)

		if matchedFAQID.Valid {
			q.MatchedFAQID = &matchedFAQID.String
		}
		if clusterID.Valid {
			q.ClusterID = &clusterID.String
		}

		questions = append(questions, q)
	}

	return questions, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
