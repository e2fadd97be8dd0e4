package gap

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/faq-agent/backend/internal/metrics"
	"github.com/faq-agent/backend/internal/storage/models"
	"github.com/faq-agent/backend/pkg/logger"
)

// QuestionStore is the slice of the relational store the recorder needs.
type QuestionStore interface {
	LogGapQuestion(ctx context.Context, q *models.GapQuestion) (int64, error)
}

// Recorder persists unanswered questions as gap entries. Recording is a
// side effect of search and must never fail the search itself, so all
// store errors are logged and swallowed.
type Recorder struct {
	store QuestionStore
}

func NewRecorder(store QuestionStore) *Recorder {
	return &Recorder{store: store}
}

func (r *Recorder) Record(ctx context.Context, q *models.GapQuestion) {
	if q == nil || strings.TrimSpace(q.QuestionText) == "" {
		return
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now()
	}

	if _, err := r.store.LogGapQuestion(ctx, q); err != nil {
		logger.Warn("Failed to record gap question",
			zap.String("session_id", q.SessionID),
			zap.Error(err),
		)
		return
	}

	metrics.GapQuestionsTotal.Inc()
}
