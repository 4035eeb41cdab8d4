package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/brandforge/api/internal/domain"
)

// MaxDialogueTurns caps the guide interview regardless of what the model reports.
const MaxDialogueTurns = 7

// fallbackQuestion is emitted when the model's reply cannot be decoded.
var fallbackQuestion = domain.DialogueQuestion{
	Text: "What is your biggest challenge?",
	Type: domain.QuestionTypeText,
}

// DialogueServiceDeps bundles collaborators required to construct a dialogue service instance.
type DialogueServiceDeps struct {
	Text   TextGenerator
	Logger *zap.Logger
}

type dialogueService struct {
	text   TextGenerator
	logger *zap.Logger
}

// NewDialogueService constructs the service driving the bounded guide interview.
func NewDialogueService(deps DialogueServiceDeps) (DialogueService, error) {
	if deps.Text == nil {
		return nil, errors.New("dialogue service: text generator is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &dialogueService{
		text:   deps.Text,
		logger: logger,
	}, nil
}

// Next asks the model for exactly one interview step. The model decides
// readiness; the turn cap overrules it, and an undecodable reply degrades to
// the fixed fallback question instead of failing the request.
func (s *dialogueService) Next(ctx context.Context, core domain.CoreData, history []domain.DialogueTurn) (DialogueResult, error) {
	prompt := buildDialoguePrompt(core, history)

	raw, err := s.text.GenerateText(ctx, prompt, nil)
	if err != nil {
		return DialogueResult{}, fmt.Errorf("dialogue: %w", err)
	}

	result := decodeDialogueReply(raw, s.logger)

	if len(history) >= MaxDialogueTurns {
		// Caller-enforced cap, independent of what the model reported.
		return DialogueResult{Ready: true}, nil
	}
	return result, nil
}

func decodeDialogueReply(raw string, logger *zap.Logger) DialogueResult {
	var reply struct {
		Ready    bool `json:"ready"`
		Question *struct {
			Text    string   `json:"text"`
			Type    string   `json:"type"`
			Options []string `json:"options"`
		} `json:"question"`
	}

	cleaned := StripCodeFences(raw)
	if err := json.Unmarshal([]byte(cleaned), &reply); err != nil {
		logger.Debug("dialogue: undecodable model reply, using fallback question", zap.Error(err))
		question := fallbackQuestion
		return DialogueResult{Ready: false, Question: &question}
	}

	if reply.Ready {
		return DialogueResult{Ready: true}
	}
	if reply.Question == nil || strings.TrimSpace(reply.Question.Text) == "" {
		question := fallbackQuestion
		return DialogueResult{Ready: false, Question: &question}
	}

	return DialogueResult{
		Ready: false,
		Question: &domain.DialogueQuestion{
			Text:    strings.TrimSpace(reply.Question.Text),
			Type:    normalizeQuestionType(reply.Question.Type),
			Options: reply.Question.Options,
		},
	}
}

func normalizeQuestionType(raw string) domain.QuestionType {
	switch domain.QuestionType(strings.ToLower(strings.TrimSpace(raw))) {
	case domain.QuestionTypeRadio:
		return domain.QuestionTypeRadio
	case domain.QuestionTypeSelect:
		return domain.QuestionTypeSelect
	default:
		return domain.QuestionTypeText
	}
}

func buildDialoguePrompt(core domain.CoreData, history []domain.DialogueTurn) string {
	var b strings.Builder
	b.WriteString("You are interviewing a creator to build a personalised content strategy guide.")
	fmt.Fprintf(&b, " Their niche is %q, their goal is %q, their tone is %q, and their commitment level is %q.",
		core.Niche, core.Goal, core.Tone, core.Commitment)

	if len(history) > 0 {
		b.WriteString(" The interview so far:")
		for i, turn := range history {
			fmt.Fprintf(&b, " Q%d: %s A%d: %s.", i+1, turn.Question, i+1, turn.Answer)
		}
	}

	b.WriteString(" Decide whether you have enough information to write the guide.")
	b.WriteString(` Respond with exactly one JSON object of the shape {"ready": bool, "question": {"text": string, "type": "text"|"radio"|"select", "options": [string]}}.`)
	b.WriteString(" When ready is true, omit the question. For radio and select questions keep the option list short. Return only the JSON, with no prose and no code fences.")
	return b.String()
}
