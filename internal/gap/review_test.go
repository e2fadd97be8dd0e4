package gap

import (
	"context"
	"errors"
	"testing"

	"github.com/faq-agent/backend/internal/storage"
	"github.com/faq-agent/backend/internal/storage/models"
)

type fakeDocWriter struct {
	added   []models.FAQDocument
	updated []models.FAQDocument
	err     error
}

func (f *fakeDocWriter) Add(_ context.Context, question, answer, category string) (*models.FAQDocument, error) {
	if f.err != nil {
		return nil, f.err
	}
	doc := models.FAQDocument{ID: "new-doc", Question: question, Answer: answer, Category: category}
	f.added = append(f.added, doc)
	return &doc, nil
}

func (f *fakeDocWriter) UpdateAnswer(_ context.Context, id, answer string) (*models.FAQDocument, error) {
	if f.err != nil {
		return nil, f.err
	}
	doc := models.FAQDocument{ID: id, Answer: answer}
	f.updated = append(f.updated, doc)
	return &doc, nil
}

func createCluster(id string, status models.ClusterStatus) *models.GapCluster {
	return &models.GapCluster{
		ID:                id,
		ClusterName:       "Password resets",
		ActionType:        models.ActionCreate,
		SuggestedQuestion: "How do I reset my password?",
		SuggestedAnswer:   "Use the reset link.",
		SuggestedCategory: "account",
		Status:            status,
	}
}

func TestAcceptClusterCreatesDocument(t *testing.T) {
	store := newFakeStore()
	store.active = []*models.GapCluster{createCluster("c1", models.StatusNew)}
	docs := &fakeDocWriter{}
	r := NewReviewer(store, docs)

	doc, err := r.AcceptCluster(context.Background(), "c1", AcceptEdits{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(docs.added) != 1 {
		t.Fatalf("expected one added document")
	}
	if doc.Question != "How do I reset my password?" || doc.Answer != "Use the reset link." {
		t.Errorf("document carries wrong content: %+v", doc)
	}
	if store.statusUpdates["c1"] != models.StatusAccepted {
		t.Errorf("status = %v, want accepted", store.statusUpdates["c1"])
	}
	if len(store.resolvedByCl) != 1 || store.resolvedByCl[0] != "c1" {
		t.Error("member questions must be resolved on accept")
	}
}

func TestAcceptClusterAppliesEdits(t *testing.T) {
	store := newFakeStore()
	store.active = []*models.GapCluster{createCluster("c1", models.StatusReviewed)}
	docs := &fakeDocWriter{}
	r := NewReviewer(store, docs)

	question := "Edited question?"
	answer := "Edited answer."
	doc, err := r.AcceptCluster(context.Background(), "c1", AcceptEdits{
		Question: &question,
		Answer:   &answer,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Question != question || doc.Answer != answer {
		t.Errorf("edits not applied: %+v", doc)
	}
	if doc.Category != "account" {
		t.Errorf("untouched field changed: %q", doc.Category)
	}
}

func TestAcceptImproveClusterUpdatesExistingDocument(t *testing.T) {
	store := newFakeStore()
	docID := "doc-7"
	cluster := createCluster("c1", models.StatusNew)
	cluster.ActionType = models.ActionImprove
	cluster.ExistingDocumentID = &docID
	cluster.SuggestedAnswer = "A fuller answer."
	store.active = []*models.GapCluster{cluster}
	docs := &fakeDocWriter{}
	r := NewReviewer(store, docs)

	doc, err := r.AcceptCluster(context.Background(), "c1", AcceptEdits{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(docs.updated) != 1 || len(docs.added) != 0 {
		t.Fatal("improve accept must update, not add")
	}
	if doc.ID != "doc-7" || doc.Answer != "A fuller answer." {
		t.Errorf("updated doc = %+v", doc)
	}
}

func TestAcceptClusterTerminalStateRejected(t *testing.T) {
	for _, status := range []models.ClusterStatus{models.StatusAccepted, models.StatusDismissed} {
		store := newFakeStore()
		store.active = []*models.GapCluster{createCluster("c1", status)}
		r := NewReviewer(store, &fakeDocWriter{})

		if _, err := r.AcceptCluster(context.Background(), "c1", AcceptEdits{}); !errors.Is(err, ErrClusterTerminal) {
			t.Errorf("status %v: error = %v, want ErrClusterTerminal", status, err)
		}
	}
}

func TestAcceptClusterFailedWriteKeepsStatus(t *testing.T) {
	store := newFakeStore()
	store.active = []*models.GapCluster{createCluster("c1", models.StatusNew)}
	r := NewReviewer(store, &fakeDocWriter{err: errors.New("vector store down")})

	if _, err := r.AcceptCluster(context.Background(), "c1", AcceptEdits{}); err == nil {
		t.Fatal("expected error")
	}
	if _, changed := store.statusUpdates["c1"]; changed {
		t.Error("cluster status must not change when the write fails")
	}
}

func TestDismissCluster(t *testing.T) {
	store := newFakeStore()
	store.active = []*models.GapCluster{createCluster("c1", models.StatusNew)}
	r := NewReviewer(store, &fakeDocWriter{})

	if err := r.DismissCluster(context.Background(), "c1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if store.statusUpdates["c1"] != models.StatusDismissed {
		t.Errorf("status = %v, want dismissed", store.statusUpdates["c1"])
	}
	if len(store.resolvedByCl) != 1 {
		t.Error("member questions must be resolved on dismiss")
	}
}

func TestDismissUnknownCluster(t *testing.T) {
	r := NewReviewer(newFakeStore(), &fakeDocWriter{})

	if err := r.DismissCluster(context.Background(), "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestMarkClusterReviewed(t *testing.T) {
	store := newFakeStore()
	store.active = []*models.GapCluster{createCluster("c1", models.StatusNew)}
	r := NewReviewer(store, &fakeDocWriter{})

	if err := r.MarkClusterReviewed(context.Background(), "c1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.statusUpdates["c1"] != models.StatusReviewed {
		t.Errorf("status = %v, want reviewed", store.statusUpdates["c1"])
	}

	store.active[0].Status = models.StatusAccepted
	if err := r.MarkClusterReviewed(context.Background(), "c1"); !errors.Is(err, ErrClusterTerminal) {
		t.Errorf("error = %v, want ErrClusterTerminal", err)
	}
}
