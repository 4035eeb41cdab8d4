package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/brandforge/api/internal/domain"
	"github.com/brandforge/api/internal/platform/gemini"
)

type stubTextGenerator struct {
	lastPrompt string
	lastImage  *gemini.InlineImage
	response   string
	err        error
	calls      int
}

func (s *stubTextGenerator) GenerateText(_ context.Context, prompt string, image *gemini.InlineImage) (string, error) {
	s.calls++
	s.lastPrompt = prompt
	s.lastImage = image
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func newTestDialogueService(t *testing.T, text TextGenerator) DialogueService {
	t.Helper()
	svc, err := NewDialogueService(DialogueServiceDeps{Text: text})
	if err != nil {
		t.Fatalf("NewDialogueService returned error: %v", err)
	}
	return svc
}

func turns(n int) []domain.DialogueTurn {
	history := make([]domain.DialogueTurn, n)
	for i := range history {
		history[i] = domain.DialogueTurn{Question: "q", Answer: "a"}
	}
	return history
}

func TestDialogueEmitsNextQuestion(t *testing.T) {
	text := &stubTextGenerator{response: `{"ready": false, "question": {"text": "How often can you post?", "type": "radio", "options": ["daily", "weekly"]}}`}
	svc := newTestDialogueService(t, text)

	result, err := svc.Next(context.Background(), domain.CoreData{Niche: "ceramics"}, turns(2))
	if err != nil {
		t.Fatalf("Next returned error: %v", err)
	}
	if result.Ready {
		t.Fatal("expected not ready")
	}
	if result.Question == nil || result.Question.Text != "How often can you post?" {
		t.Fatalf("unexpected question %+v", result.Question)
	}
	if result.Question.Type != domain.QuestionTypeRadio || len(result.Question.Options) != 2 {
		t.Fatalf("unexpected question shape %+v", result.Question)
	}
	if !strings.Contains(text.lastPrompt, `"ceramics"`) {
		t.Fatalf("expected core data in prompt: %s", text.lastPrompt)
	}
}

func TestDialogueModelReportsReady(t *testing.T) {
	text := &stubTextGenerator{response: `{"ready": true}`}
	svc := newTestDialogueService(t, text)

	result, err := svc.Next(context.Background(), domain.CoreData{}, turns(3))
	if err != nil {
		t.Fatalf("Next returned error: %v", err)
	}
	if !result.Ready || result.Question != nil {
		t.Fatalf("expected terminal state, got %+v", result)
	}
}

func TestDialogueCapOverridesModel(t *testing.T) {
	text := &stubTextGenerator{response: `{"ready": false, "question": {"text": "one more?", "type": "text"}}`}
	svc := newTestDialogueService(t, text)

	result, err := svc.Next(context.Background(), domain.CoreData{}, turns(MaxDialogueTurns))
	if err != nil {
		t.Fatalf("Next returned error: %v", err)
	}
	if !result.Ready {
		t.Fatal("expected forced terminal at turn cap")
	}
	if result.Question != nil {
		t.Fatalf("no question may be emitted at the cap, got %+v", result.Question)
	}
}

func TestDialogueDecodeFailureEmitsFallback(t *testing.T) {
	text := &stubTextGenerator{response: "Sure! Here is my question: how are you?"}
	svc := newTestDialogueService(t, text)

	result, err := svc.Next(context.Background(), domain.CoreData{}, turns(1))
	if err != nil {
		t.Fatalf("Next returned error: %v", err)
	}
	if result.Ready {
		t.Fatal("decode failure must remain collecting")
	}
	if result.Question == nil || result.Question.Text != fallbackQuestion.Text {
		t.Fatalf("expected fallback question, got %+v", result.Question)
	}
	if result.Question.Type != domain.QuestionTypeText {
		t.Fatalf("fallback question must be free text, got %+v", result.Question)
	}
}

func TestDialogueFencedReplyStillDecodes(t *testing.T) {
	text := &stubTextGenerator{response: "```json\n{\"ready\": true}\n```"}
	svc := newTestDialogueService(t, text)

	result, err := svc.Next(context.Background(), domain.CoreData{}, turns(1))
	if err != nil {
		t.Fatalf("Next returned error: %v", err)
	}
	if !result.Ready {
		t.Fatal("expected fenced JSON to decode")
	}
}

func TestDialoguePropagatesModelError(t *testing.T) {
	text := &stubTextGenerator{err: errors.New("model down")}
	svc := newTestDialogueService(t, text)

	if _, err := svc.Next(context.Background(), domain.CoreData{}, nil); err == nil {
		t.Fatal("expected model error to propagate")
	}
}
