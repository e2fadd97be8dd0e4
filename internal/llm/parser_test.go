package llm

import (
	"errors"
	"testing"

	"github.com/faq-agent/backend/internal/storage/models"
)

func TestParseClusterSuggestionsCreate(t *testing.T) {
	content := `{
		"clusters": [{
			"name": "Password resets",
			"description": "Users cannot find the reset flow",
			"question_ids": [1, 2, 3],
			"action": "create",
			"suggested_question": "How do I reset my password?",
			"suggested_answer": "Use the reset link on the login page.",
			"suggested_category": "account"
		}]
	}`

	suggestions, err := ParseClusterSuggestions(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(suggestions) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(suggestions))
	}

	s := suggestions[0]
	if s.Name != "Password resets" {
		t.Errorf("name = %q", s.Name)
	}
	if len(s.QuestionIDs) != 3 {
		t.Errorf("question ids = %v", s.QuestionIDs)
	}

	create, ok := s.Action.(CreateAction)
	if !ok {
		t.Fatalf("action type = %T, want CreateAction", s.Action)
	}
	if create.Question != "How do I reset my password?" || create.Category != "account" {
		t.Errorf("unexpected create payload: %+v", create)
	}
	if s.Action.Type() != models.ActionCreate {
		t.Errorf("action type = %v", s.Action.Type())
	}
}

func TestParseClusterSuggestionsImproveAndDismiss(t *testing.T) {
	content := `{
		"clusters": [
			{
				"name": "Vague billing answer",
				"question_ids": [4, 5],
				"action": "improve",
				"existing_document_id": "doc-9",
				"suggested_answer": "A fuller billing explanation."
			},
			{
				"name": "Off topic chatter",
				"question_ids": [6, 7],
				"action": "dismiss",
				"dismiss_reason": "Not product questions"
			}
		]
	}`

	suggestions, err := ParseClusterSuggestions(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(suggestions) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(suggestions))
	}

	improve, ok := suggestions[0].Action.(ImproveAction)
	if !ok {
		t.Fatalf("action type = %T, want ImproveAction", suggestions[0].Action)
	}
	if improve.ExistingDocumentID != "doc-9" {
		t.Errorf("document id = %q", improve.ExistingDocumentID)
	}

	dismiss, ok := suggestions[1].Action.(DismissAction)
	if !ok {
		t.Fatalf("action type = %T, want DismissAction", suggestions[1].Action)
	}
	if dismiss.Reason != "Not product questions" {
		t.Errorf("reason = %q", dismiss.Reason)
	}
}

func TestParseClusterSuggestionsStripsFences(t *testing.T) {
	content := "```json\n{\"clusters\": [{\"name\": \"n\", \"question_ids\": [1], \"action\": \"dismiss\", \"dismiss_reason\": \"r\"}]}\n```"

	suggestions, err := ParseClusterSuggestions(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(suggestions) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(suggestions))
	}
}

func TestParseClusterSuggestionsErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "here are your clusters: ..."},
		{"unknown field", `{"clusters": [{"name": "n", "action": "create", "suggested_question": "q", "suggested_answer": "a", "extra": true}]}`},
		{"missing name", `{"clusters": [{"action": "dismiss", "dismiss_reason": "r"}]}`},
		{"unknown action", `{"clusters": [{"name": "n", "action": "merge"}]}`},
		{"create missing answer", `{"clusters": [{"name": "n", "action": "create", "suggested_question": "q"}]}`},
		{"improve missing doc", `{"clusters": [{"name": "n", "action": "improve", "suggested_answer": "a"}]}`},
		{"dismiss missing reason", `{"clusters": [{"name": "n", "action": "dismiss"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseClusterSuggestions(tt.content)
			if err == nil {
				t.Fatal("expected error")
			}
			var parseErr *GenerationParseError
			if !errors.As(err, &parseErr) {
				t.Errorf("error type = %T, want *GenerationParseError", err)
			}
			if parseErr.Raw != tt.content {
				t.Error("parse error should carry the raw output")
			}
		})
	}
}
