package documents

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/faq-agent/backend/internal/storage"
	"github.com/faq-agent/backend/internal/storage/models"
	"github.com/faq-agent/backend/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.InitNop()
	os.Exit(m.Run())
}

type fakeEmbedder struct {
	texts []string
	err   error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.texts = append(f.texts, text)
	return []float32{1, 2, 3}, nil
}

type fakeVectorStore struct {
	upserts []string
	deletes []string
	err     error
	events  *[]string
}

func (f *fakeVectorStore) UpsertVectors(_ context.Context, doc *models.FAQDocument, vectors *models.DocumentVectors) error {
	if f.err != nil {
		return f.err
	}
	if vectors.Question == nil || vectors.Answer == nil || vectors.Combined == nil {
		return errors.New("missing vectors")
	}
	f.upserts = append(f.upserts, doc.ID)
	if f.events != nil {
		*f.events = append(*f.events, "vectors")
	}
	return nil
}

func (f *fakeVectorStore) DeleteVectors(_ context.Context, docID string) error {
	f.deletes = append(f.deletes, docID)
	return nil
}

type fakeDocStore struct {
	docs    map[string]*models.FAQDocument
	inserts []string
	events  *[]string
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{docs: map[string]*models.FAQDocument{}}
}

func (f *fakeDocStore) InsertDocument(_ context.Context, doc *models.FAQDocument) error {
	copied := *doc
	f.docs[doc.ID] = &copied
	f.inserts = append(f.inserts, doc.ID)
	if f.events != nil {
		*f.events = append(*f.events, "row")
	}
	return nil
}

func (f *fakeDocStore) GetDocument(_ context.Context, id string) (*models.FAQDocument, error) {
	if doc, ok := f.docs[id]; ok {
		copied := *doc
		return &copied, nil
	}
	return nil, storage.ErrNotFound
}

func (f *fakeDocStore) DeleteDocument(_ context.Context, id string) error {
	delete(f.docs, id)
	return nil
}

func (f *fakeDocStore) ListDocuments(_ context.Context, _ int) ([]models.FAQDocument, error) {
	out := make([]models.FAQDocument, 0, len(f.docs))
	for _, doc := range f.docs {
		out = append(out, *doc)
	}
	return out, nil
}

func TestAddEmbedsAllThreeKinds(t *testing.T) {
	embedder := &fakeEmbedder{}
	svc := NewService(embedder, &fakeVectorStore{}, newFakeDocStore(), nil)

	doc, err := svc.Add(context.Background(), "How do I reset my password?", "Use the reset link.", "account")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ID == "" {
		t.Error("document must get an id")
	}

	if len(embedder.texts) != 3 {
		t.Fatalf("embedded %d texts, want 3", len(embedder.texts))
	}
	if embedder.texts[0] != "How do I reset my password?" {
		t.Errorf("first embedding input = %q, want the question", embedder.texts[0])
	}
	if embedder.texts[1] != "Use the reset link." {
		t.Errorf("second embedding input = %q, want the answer", embedder.texts[1])
	}
	if embedder.texts[2] != "How do I reset my password? Use the reset link." {
		t.Errorf("third embedding input = %q, want question+answer", embedder.texts[2])
	}
}

func TestAddWritesVectorsBeforeRow(t *testing.T) {
	var events []string
	vectors := &fakeVectorStore{events: &events}
	store := newFakeDocStore()
	store.events = &events
	svc := NewService(&fakeEmbedder{}, vectors, store, nil)

	if _, err := svc.Add(context.Background(), "q", "a", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(events) != 2 || events[0] != "vectors" || events[1] != "row" {
		t.Errorf("write order = %v, want vectors then row", events)
	}
}

func TestAddRejectsBlankFields(t *testing.T) {
	svc := NewService(&fakeEmbedder{}, &fakeVectorStore{}, newFakeDocStore(), nil)

	if _, err := svc.Add(context.Background(), "  ", "answer", ""); err == nil {
		t.Error("expected error for blank question")
	}
	if _, err := svc.Add(context.Background(), "question", "", ""); err == nil {
		t.Error("expected error for blank answer")
	}
}

func TestAddFailedVectorWriteSkipsRow(t *testing.T) {
	vectors := &fakeVectorStore{err: errors.New("milvus down")}
	store := newFakeDocStore()
	svc := NewService(&fakeEmbedder{}, vectors, store, nil)

	if _, err := svc.Add(context.Background(), "q", "a", ""); err == nil {
		t.Fatal("expected error")
	}
	if len(store.inserts) != 0 {
		t.Error("row must not be written when vectors failed")
	}
}

func TestUpdatePreservesUnsetFields(t *testing.T) {
	store := newFakeDocStore()
	svc := NewService(&fakeEmbedder{}, &fakeVectorStore{}, store, nil)

	doc, err := svc.Add(context.Background(), "q", "a", "billing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, err := svc.UpdateAnswer(context.Background(), doc.ID, "new answer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if updated.Answer != "new answer" {
		t.Errorf("answer = %q", updated.Answer)
	}
	if updated.Question != "q" || updated.Category != "billing" {
		t.Errorf("unset fields changed: %+v", updated)
	}
}

func TestDeleteRemovesVectorsAndRow(t *testing.T) {
	vectors := &fakeVectorStore{}
	store := newFakeDocStore()
	svc := NewService(&fakeEmbedder{}, vectors, store, nil)

	doc, err := svc.Add(context.Background(), "q", "a", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.Delete(context.Background(), doc.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(vectors.deletes) != 1 || vectors.deletes[0] != doc.ID {
		t.Errorf("vector deletes = %v", vectors.deletes)
	}
	if _, err := store.GetDocument(context.Background(), doc.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Error("row must be gone after delete")
	}
}

func TestDeleteUnknownDocument(t *testing.T) {
	svc := NewService(&fakeEmbedder{}, &fakeVectorStore{}, newFakeDocStore(), nil)

	if err := svc.Delete(context.Background(), "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestReembedAllCountsFailures(t *testing.T) {
	store := newFakeDocStore()
	svc := NewService(&fakeEmbedder{}, &fakeVectorStore{}, store, nil)

	for _, q := range []string{"q1", "q2", "q3"} {
		if _, err := svc.Add(context.Background(), q, "a", ""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	succeeded, failed, err := svc.ReembedAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if succeeded != 3 || failed != 0 {
		t.Errorf("succeeded = %d, failed = %d", succeeded, failed)
	}

	// A dead provider fails every document but the pass still finishes.
	broken := NewService(&fakeEmbedder{err: errors.New("provider down")}, &fakeVectorStore{}, store, nil)
	succeeded, failed, err = broken.ReembedAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if succeeded != 0 || failed != 3 {
		t.Errorf("succeeded = %d, failed = %d", succeeded, failed)
	}
}
