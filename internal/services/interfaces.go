package services

import (
	"context"
	"time"

	"github.com/brandforge/api/internal/domain"
	"github.com/brandforge/api/internal/platform/gemini"
)

// CreditService meters requests against the per-account credit balance.
type CreditService interface {
	// Cost computes the integer price of the request, including the vision
	// surcharge when an image is attached to a priced type.
	Cost(req domain.GenerationRequest) int

	// Deduct atomically subtracts cost from the uid's balance, provisioning
	// first-time accounts inside the transaction. A zero cost is a no-op
	// that never touches the store.
	Deduct(ctx context.Context, uid string, cost int, profile domain.NewAccountProfile) error

	// Refund returns cost to the balance after a failed generation.
	Refund(ctx context.Context, uid string, cost int) error

	// RefundOnFailure reports whether the refund-on-failure policy is enabled.
	RefundOnFailure() bool
}

// TextGenerator produces text from a prompt plus an optional inline source image.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string, image *gemini.InlineImage) (string, error)
}

// ImageGenerator produces an image from a prompt plus optional inline reference images.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string, images []gemini.InlineImage) (*gemini.GeneratedImage, error)
}

// DialogueResult is one step of the bounded guide interview.
type DialogueResult struct {
	Ready    bool                     `json:"ready"`
	Question *domain.DialogueQuestion `json:"question,omitempty"`
}

// DialogueService drives the bounded multi-turn guide interview.
type DialogueService interface {
	Next(ctx context.Context, core domain.CoreData, history []domain.DialogueTurn) (DialogueResult, error)
}

// GenerationResult is the caller-visible outcome of a generation request.
// Result is either a cleaned string or a decoded structured object.
type GenerationResult struct {
	Result any `json:"result"`
}

// GenerationService validates, meters, and dispatches generation requests.
type GenerationService interface {
	Generate(ctx context.Context, identity Identity, req domain.GenerationRequest) (GenerationResult, error)
}

// Identity carries the verified caller claims used for metering and bootstrap.
type Identity struct {
	UID   string
	Email string
	Name  string
}

// ContentGeneratedMessage is the payload published after a successful generation.
type ContentGeneratedMessage struct {
	EventID        string    `json:"eventId"`
	UID            string    `json:"uid"`
	ContentType    string    `json:"contentType"`
	CreditsCharged int       `json:"creditsCharged"`
	Model          string    `json:"model"`
	GeneratedAt    time.Time `json:"generatedAt"`
}

// EventPublisher emits content generation events for downstream consumers.
type EventPublisher interface {
	PublishContentGenerated(ctx context.Context, message ContentGeneratedMessage) (string, error)
}
