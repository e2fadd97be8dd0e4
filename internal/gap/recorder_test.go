package gap

import (
	"context"
	"errors"
	"testing"

	"github.com/faq-agent/backend/internal/storage/models"
)

type fakeQuestionStore struct {
	logged []*models.GapQuestion
	err    error
}

func (f *fakeQuestionStore) LogGapQuestion(_ context.Context, q *models.GapQuestion) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.logged = append(f.logged, q)
	return int64(len(f.logged)), nil
}

func TestRecorderPersistsQuestion(t *testing.T) {
	store := &fakeQuestionStore{}
	r := NewRecorder(store)

	r.Record(context.Background(), &models.GapQuestion{
		QuestionText: "how do I export my data",
		SessionID:    "sess-1",
	})

	if len(store.logged) != 1 {
		t.Fatalf("expected one logged question, got %d", len(store.logged))
	}
	if store.logged[0].CreatedAt.IsZero() {
		t.Error("created_at must be stamped")
	}
}

func TestRecorderIgnoresBlankQuestions(t *testing.T) {
	store := &fakeQuestionStore{}
	r := NewRecorder(store)

	r.Record(context.Background(), nil)
	r.Record(context.Background(), &models.GapQuestion{QuestionText: "   "})

	if len(store.logged) != 0 {
		t.Errorf("blank questions must not be logged, got %d", len(store.logged))
	}
}

func TestRecorderSwallowsStoreErrors(t *testing.T) {
	r := NewRecorder(&fakeQuestionStore{err: errors.New("disk full")})

	// Must not panic or propagate; recording is best effort.
	r.Record(context.Background(), &models.GapQuestion{QuestionText: "q"})
}
