package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/faq-agent/backend/internal/storage/models"
)

// GenerationParseError means the generation output was not the strict JSON
// the prompt demanded. The affected page is skipped, never partially applied.
type GenerationParseError struct {
	Raw string
	Err error
}

func (e *GenerationParseError) Error() string {
	return fmt.Sprintf("failed to parse generation output: %v", e.Err)
}

func (e *GenerationParseError) Unwrap() error {
	return e.Err
}

// ClusterAction is the action payload attached to a suggestion. Exactly one
// variant applies per cluster; each carries only its own fields.
type ClusterAction interface {
	Type() models.ClusterActionType
}

type CreateAction struct {
	Question string
	Answer   string
	Category string
}

func (CreateAction) Type() models.ClusterActionType { return models.ActionCreate }

type ImproveAction struct {
	ExistingDocumentID string
	SuggestedAnswer    string
}

func (ImproveAction) Type() models.ClusterActionType { return models.ActionImprove }

type DismissAction struct {
	Reason string
}

func (DismissAction) Type() models.ClusterActionType { return models.ActionDismiss }

type ClusterSuggestion struct {
	Name        string
	Description string
	QuestionIDs []int64
	Action      ClusterAction
}

type wireCluster struct {
	Name               string  `json:"name"`
	Description        string  `json:"description"`
	QuestionIDs        []int64 `json:"question_ids"`
	Action             string  `json:"action"`
	SuggestedQuestion  string  `json:"suggested_question"`
	SuggestedAnswer    string  `json:"suggested_answer"`
	SuggestedCategory  string  `json:"suggested_category"`
	ExistingDocumentID string  `json:"existing_document_id"`
	DismissReason      string  `json:"dismiss_reason"`
}

type wireResponse struct {
	Clusters []wireCluster `json:"clusters"`
}

// ParseClusterSuggestions decodes the generation output. Models sometimes
// wrap JSON in markdown fences despite instructions, so fences are stripped
// before decoding; anything else malformed fails the whole page.
func ParseClusterSuggestions(content string) ([]ClusterSuggestion, error) {
	cleaned := stripFences(content)

	var resp wireResponse
	decoder := json.NewDecoder(strings.NewReader(cleaned))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&resp); err != nil {
		return nil, &GenerationParseError{Raw: content, Err: err}
	}

	suggestions := make([]ClusterSuggestion, 0, len(resp.Clusters))
	for i, wc := range resp.Clusters {
		if wc.Name == "" {
			return nil, &GenerationParseError{Raw: content, Err: fmt.Errorf("cluster %d has no name", i)}
		}

		action, err := decodeAction(wc)
		if err != nil {
			return nil, &GenerationParseError{Raw: content, Err: err}
		}

		suggestions = append(suggestions, ClusterSuggestion{
			Name:        wc.Name,
			Description: wc.Description,
			QuestionIDs: wc.QuestionIDs,
			Action:      action,
		})
	}

	return suggestions, nil
}

func decodeAction(wc wireCluster) (ClusterAction, error) {
	switch models.ClusterActionType(wc.Action) {
	case models.ActionCreate:
		if wc.SuggestedQuestion == "" || wc.SuggestedAnswer == "" {
			return nil, fmt.Errorf("create cluster %q missing suggested question or answer", wc.Name)
		}
		return CreateAction{
			Question: wc.SuggestedQuestion,
			Answer:   wc.SuggestedAnswer,
			Category: wc.SuggestedCategory,
		}, nil

	case models.ActionImprove:
		if wc.ExistingDocumentID == "" || wc.SuggestedAnswer == "" {
			return nil, fmt.Errorf("improve cluster %q missing document id or answer", wc.Name)
		}
		return ImproveAction{
			ExistingDocumentID: wc.ExistingDocumentID,
			SuggestedAnswer:    wc.SuggestedAnswer,
		}, nil

	case models.ActionDismiss:
		if wc.DismissReason == "" {
			return nil, fmt.Errorf("dismiss cluster %q missing reason", wc.Name)
		}
		return DismissAction{Reason: wc.DismissReason}, nil

	default:
		return nil, fmt.Errorf("cluster %q has unknown action %q", wc.Name, wc.Action)
	}
}

func stripFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
