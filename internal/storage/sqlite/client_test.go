package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/faq-agent/backend/internal/storage/models"
	"github.com/faq-agent/backend/pkg/logger"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	logger.InitNop()

	client, err := NewClient(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	if err := client.InitSchema(); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}
	return client
}

func TestDocumentLifecycle(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	now := time.Now().Truncate(time.Second)
	doc := &models.FAQDocument{
		ID:        "doc-1",
		Question:  "How do I reset my password?",
		Answer:    "Use the reset link.",
		Category:  "account",
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := client.InsertDocument(ctx, doc); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	got, err := client.GetDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Question != doc.Question || got.Category != "account" {
		t.Errorf("got %+v", got)
	}

	// Same id upserts.
	doc.Answer = "Use the reset link on the login page."
	if err := client.InsertDocument(ctx, doc); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	got, err = client.GetDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Answer != "Use the reset link on the login page." {
		t.Errorf("answer = %q", got.Answer)
	}

	summaries, err := client.ListFAQSummaries(ctx)
	if err != nil {
		t.Fatalf("summaries failed: %v", err)
	}
	if len(summaries) != 1 || summaries[0].ID != "doc-1" {
		t.Errorf("summaries = %+v", summaries)
	}

	if err := client.DeleteDocument(ctx, "doc-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := client.GetDocument(ctx, "doc-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func logQuestion(t *testing.T, client *Client, text, userID string) int64 {
	t.Helper()
	id, err := client.LogGapQuestion(context.Background(), &models.GapQuestion{
		QuestionText:    text,
		UserID:          userID,
		ConfidenceScore: 0.3,
		CreatedAt:       time.Now(),
	})
	if err != nil {
		t.Fatalf("log failed: %v", err)
	}
	return id
}

func TestGapQuestionPaging(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 5; i++ {
		ids = append(ids, logQuestion(t, client, "q", "user"))
	}

	count, err := client.CountUnresolvedGapQuestions(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 5 {
		t.Errorf("count = %d, want 5", count)
	}

	page1, err := client.FetchUnresolvedGapQuestions(ctx, 0, 2)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(page1) != 2 || page1[0].ID != ids[0] || page1[1].ID != ids[1] {
		t.Fatalf("page1 = %+v", page1)
	}

	// Cursor excludes everything at or before the last seen id.
	page2, err := client.FetchUnresolvedGapQuestions(ctx, page1[1].ID, 2)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(page2) != 2 || page2[0].ID != ids[2] {
		t.Fatalf("page2 = %+v", page2)
	}
}

func TestGapQuestionClusteringMarks(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	id1 := logQuestion(t, client, "q1", "u1")
	id2 := logQuestion(t, client, "q2", "u2")
	id3 := logQuestion(t, client, "q3", "u3")

	clusterID := "cluster-1"
	if err := client.MarkGapQuestionsClustered(ctx, []int64{id1, id2}, &clusterID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	// Clustered questions drop out of the unresolved fetch.
	remaining, err := client.FetchUnresolvedGapQuestions(ctx, 0, 10)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != id3 {
		t.Fatalf("remaining = %+v", remaining)
	}

	// Rejected groups get clustered with no cluster id.
	if err := client.MarkGapQuestionsClustered(ctx, []int64{id3}, nil); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	remaining, err = client.FetchUnresolvedGapQuestions(ctx, 0, 10)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("remaining = %+v", remaining)
	}

	// Accepting the cluster resolves its members.
	if err := client.ResolveQuestionsByCluster(ctx, clusterID); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	count, err := client.CountUnresolvedGapQuestions(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func newCluster(id, name string) *models.GapCluster {
	now := time.Now()
	return &models.GapCluster{
		ID:              id,
		ClusterName:     name,
		Description:     "desc",
		QuestionCount:   3,
		SampleQuestions: []string{"q1", "q2"},
		PriorityScore:   30,
		ActionType:      models.ActionCreate,
		Status:          models.StatusNew,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestClusterNameLookupSkipsTerminal(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	if err := client.CreateCluster(ctx, newCluster("c1", "Password resets")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	found, err := client.FindActiveClusterByName(ctx, "Password resets")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if found.ID != "c1" {
		t.Errorf("found = %+v", found)
	}
	if len(found.SampleQuestions) != 2 {
		t.Errorf("samples = %v", found.SampleQuestions)
	}

	if err := client.UpdateClusterStatus(ctx, "c1", models.StatusAccepted); err != nil {
		t.Fatalf("status update failed: %v", err)
	}

	// A closed-out cluster never matches; a recurring topic starts fresh.
	if _, err := client.FindActiveClusterByName(ctx, "Password resets"); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestMergeCluster(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	if err := client.CreateCluster(ctx, newCluster("c1", "Billing")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := client.MergeCluster(ctx, "c1", 7, []string{"q1", "q2", "q3"}, nil, 84); err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	got, err := client.GetCluster(ctx, "c1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.QuestionCount != 7 || got.PriorityScore != 84 {
		t.Errorf("merged cluster = %+v", got)
	}
	if len(got.SampleQuestions) != 3 {
		t.Errorf("samples = %v", got.SampleQuestions)
	}
}

func TestActiveClustersOrderedByPriority(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	low := newCluster("c-low", "Low priority")
	low.PriorityScore = 20
	high := newCluster("c-high", "High priority")
	high.PriorityScore = 150
	closed := newCluster("c-closed", "Closed")
	closed.Status = models.StatusDismissed

	for _, c := range []*models.GapCluster{low, high, closed} {
		if err := client.CreateCluster(ctx, c); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	active, err := client.ActiveClusters(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("active = %d, want 2", len(active))
	}
	if active[0].ID != "c-high" || active[1].ID != "c-low" {
		t.Errorf("order = %s, %s", active[0].ID, active[1].ID)
	}
}

func TestAnalysisRunHistory(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	runs := []*models.AnalysisRun{
		{ID: "r1", StartedAt: base, FinishedAt: base, Trigger: models.TriggerScheduled},
		{ID: "r2", StartedAt: base.Add(10 * time.Minute), FinishedAt: base.Add(11 * time.Minute), Trigger: models.TriggerManual},
		{ID: "r3", StartedAt: base.Add(20 * time.Minute), FinishedAt: base.Add(20 * time.Minute), Trigger: models.TriggerScheduled, Skipped: true, SkipReason: "cooldown"},
	}
	for _, run := range runs {
		if err := client.InsertAnalysisRun(ctx, run); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	// Skipped runs do not count as the last completed run.
	latest, err := client.LatestCompletedRun(ctx)
	if err != nil {
		t.Fatalf("latest failed: %v", err)
	}
	if latest.ID != "r2" {
		t.Errorf("latest = %s, want r2", latest.ID)
	}

	recent, err := client.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("recent = %d, want 3", len(recent))
	}
	if recent[0].ID != "r3" || !recent[0].Skipped || recent[0].SkipReason != "cooldown" {
		t.Errorf("newest run = %+v", recent[0])
	}
}

func TestLatestCompletedRunEmpty(t *testing.T) {
	client := newTestClient(t)

	if _, err := client.LatestCompletedRun(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
