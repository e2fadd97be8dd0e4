package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/faq-agent/backend/internal/storage/models"
	"github.com/faq-agent/backend/pkg/circuitbreaker"
	"github.com/faq-agent/backend/pkg/logger"
	"github.com/faq-agent/backend/pkg/retry"
)

// ErrGenerationUnavailable wraps any network or provider failure from the
// generation backend. Callers degrade to a non-generated response path.
var ErrGenerationUnavailable = errors.New("generation capability unavailable")

type Client struct {
	client         *openai.Client
	model          string
	temperature    float32
	maxTokens      int
	answerTimeout  time.Duration
	clusterTimeout time.Duration
	cb             *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

type Config struct {
	APIKey         string
	Model          string
	Temperature    float32
	MaxTokens      int
	AnswerTimeout  time.Duration
	ClusterTimeout time.Duration
}

type completionRequest struct {
	systemPrompt string
	userPrompt   string
	temperature  float32
	maxTokens    int
	timeout      time.Duration
}

func NewClient(cfg Config) *Client {
	if cfg.AnswerTimeout == 0 {
		cfg.AnswerTimeout = 30 * time.Second
	}
	if cfg.ClusterTimeout == 0 {
		cfg.ClusterTimeout = 2 * time.Minute
	}

	cb := circuitbreaker.NewCircuitBreaker("llm", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	logger.Info("LLM client initialized", zap.String("model", cfg.Model))

	return &Client{
		client:         openai.NewClient(cfg.APIKey),
		model:          cfg.Model,
		temperature:    cfg.Temperature,
		maxTokens:      cfg.MaxTokens,
		answerTimeout:  cfg.AnswerTimeout,
		clusterTimeout: cfg.ClusterTimeout,
		cb:             cb,
		retryConfig:    retryConfig,
	}
}

func (c *Client) complete(ctx context.Context, req completionRequest) (string, error) {
	timeout := req.timeout
	if timeout == 0 {
		timeout = c.answerTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	temperature := req.temperature
	if temperature == 0 {
		temperature = c.temperature
	}
	maxTokens := req.maxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.systemPrompt,
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: req.userPrompt,
		},
	}

	var content string

	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model:       c.model,
				Messages:    messages,
				Temperature: temperature,
				MaxTokens:   maxTokens,
			})
			if err != nil {
				return fmt.Errorf("failed to create completion: %w", err)
			}

			if len(resp.Choices) == 0 {
				return fmt.Errorf("completion returned no choices")
			}

			logger.Debug("Completion generated",
				zap.Int("prompt_tokens", resp.Usage.PromptTokens),
				zap.Int("completion_tokens", resp.Usage.CompletionTokens),
			)

			content = resp.Choices[0].Message.Content
			return nil
		})
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
	}

	return content, nil
}

// RephraseAnswer lightly rewords a stored answer to fit the user's phrasing
// without changing its substance. Used for high-confidence matches.
func (c *Client) RephraseAnswer(ctx context.Context, question, answer string) (string, error) {
	systemPrompt := `You are a support assistant. Rephrase the given answer so it reads naturally
as a reply to the user's question. Keep every fact intact. Do not add information,
do not remove information, do not change numbers, names, or URLs. Stay concise.`

	userPrompt := fmt.Sprintf("Question: %s\n\nStored answer:\n%s", question, answer)

	return c.complete(ctx, completionRequest{
		systemPrompt: systemPrompt,
		userPrompt:   userPrompt,
		temperature:  0.3,
	})
}

// ComposeAnswer writes an answer from scratch. contextBlock carries stored
// answers as background material of varying strength; it may be empty, in
// which case generation proceeds unaided.
func (c *Client) ComposeAnswer(ctx context.Context, question, contextBlock string) (string, error) {
	systemPrompt := `You are a support assistant answering user questions.
Ground your answer in the provided knowledge-base context when it is relevant.
If the context does not cover the question, say what you can and suggest
contacting support rather than inventing details. Be concise and direct.`

	var builder strings.Builder
	if contextBlock != "" {
		builder.WriteString("Knowledge base context:\n")
		builder.WriteString(contextBlock)
		builder.WriteString("\n\n")
	}
	builder.WriteString("Question: ")
	builder.WriteString(question)

	return c.complete(ctx, completionRequest{
		systemPrompt: systemPrompt,
		userPrompt:   builder.String(),
	})
}

// SuggestClusters sends a page of unanswered questions plus a summary of
// the current knowledge base and asks for grouped, actionable suggestions
// as strict JSON.
func (c *Client) SuggestClusters(ctx context.Context, questions []models.GapQuestion, kb []models.FAQSummary) ([]ClusterSuggestion, error) {
	systemPrompt := `You analyze unanswered user questions for a FAQ knowledge base.

Group similar questions into named clusters. Only form clusters with at least 2 member
questions. For each cluster decide exactly one action:
- "create": the knowledge base has no entry for this topic. Provide suggested_question,
  suggested_answer, and suggested_category for a new entry.
- "improve": an existing entry covers the topic but its answer falls short. Provide
  existing_document_id and a suggested_answer that is genuinely different from and
  strictly better than the current one. If you cannot genuinely improve the existing
  answer, use "create" instead.
- "dismiss": the questions are noise, spam, or out of scope. Provide a short
  dismiss_reason.

Respond with ONLY a JSON object, no prose, no markdown fences:
{"clusters": [{"name": "...", "description": "...", "question_ids": [1, 2],
"action": "create|improve|dismiss", "suggested_question": "...", "suggested_answer": "...",
"suggested_category": "...", "existing_document_id": "...", "dismiss_reason": "..."}]}

Include only the fields relevant to the chosen action.`

	var builder strings.Builder
	builder.WriteString("Existing knowledge base entries:\n")
	if len(kb) == 0 {
		builder.WriteString("(none)\n")
	}
	for _, entry := range kb {
		builder.WriteString(fmt.Sprintf("- id=%s category=%s question=%s\n", entry.ID, entry.Category, entry.Question))
	}

	builder.WriteString("\nUnanswered questions:\n")
	for _, q := range questions {
		builder.WriteString(fmt.Sprintf("- id=%d question=%s", q.ID, q.QuestionText))
		if q.ConversationContext != "" {
			builder.WriteString(fmt.Sprintf(" (context: %s)", q.ConversationContext))
		}
		builder.WriteString("\n")
	}

	content, err := c.complete(ctx, completionRequest{
		systemPrompt: systemPrompt,
		userPrompt:   builder.String(),
		temperature:  0.2,
		maxTokens:    4096,
		timeout:      c.clusterTimeout,
	})
	if err != nil {
		return nil, err
	}

	suggestions, err := ParseClusterSuggestions(content)
	if err != nil {
		return nil, err
	}

	logger.Info("Cluster suggestions received",
		zap.Int("questions", len(questions)),
		zap.Int("clusters", len(suggestions)),
	)

	return suggestions, nil
}
