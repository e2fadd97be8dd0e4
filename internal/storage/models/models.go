package models

import "time"

// EmbeddingKind selects which of a document's three vectors a similarity
// search runs against.
type EmbeddingKind string

const (
	KindQuestion EmbeddingKind = "question"
	KindAnswer   EmbeddingKind = "answer"
	KindCombined EmbeddingKind = "combined"
)

type FAQDocument struct {
	ID        string
	Question  string
	Answer    string
	Category  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FAQSummary is the compact form sent to the clustering prompt.
type FAQSummary struct {
	ID       string
	Question string
	Category string
}

// DocumentVectors holds the three embeddings written alongside a document.
// All three must be present before the document becomes searchable.
type DocumentVectors struct {
	Question []float32
	Answer   []float32
	Combined []float32
}

type FAQMatch struct {
	DocumentID string
	Question   string
	Answer     string
	Category   string
	Similarity float64
}

type VectorSearchOptions struct {
	Kind      EmbeddingKind
	Threshold float64
	Limit     int
	Category  string
}

type GapQuestion struct {
	ID                  int64
	QuestionText        string
	ConversationContext string
	SessionID           string
	UserID              string
	PageID              string
	ConfidenceScore     float64
	MatchedFAQID        *string
	IsClustered         bool
	ClusterID           *string
	IsResolved          bool
	CreatedAt           time.Time
}

type ClusterActionType string

const (
	ActionCreate  ClusterActionType = "create"
	ActionImprove ClusterActionType = "improve"
	ActionDismiss ClusterActionType = "dismiss"
)

type ClusterStatus string

const (
	StatusNew       ClusterStatus = "new"
	StatusReviewed  ClusterStatus = "reviewed"
	StatusAccepted  ClusterStatus = "accepted"
	StatusDismissed ClusterStatus = "dismissed"
)

// Terminal reports whether a cluster can no longer change state.
func (s ClusterStatus) Terminal() bool {
	return s == StatusAccepted || s == StatusDismissed
}

type GapCluster struct {
	ID                 string
	ClusterName        string
	Description        string
	QuestionCount      int
	SampleQuestions    []string
	SampleContexts     []string
	PriorityScore      float64
	ActionType         ClusterActionType
	SuggestedQuestion  string
	SuggestedAnswer    string
	SuggestedCategory  string
	ExistingDocumentID *string
	Status             ClusterStatus
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type RunTrigger string

const (
	TriggerScheduled RunTrigger = "scheduled"
	TriggerManual    RunTrigger = "manual"
)

type AnalysisRun struct {
	ID                 string
	StartedAt          time.Time
	FinishedAt         time.Time
	Trigger            RunTrigger
	Skipped            bool
	SkipReason         string
	PagesProcessed     int
	QuestionsProcessed int
	ClustersCreated    int
	ClustersMerged     int
	ClustersRejected   int
	ParseErrors        int
	PersistErrors      int
}
