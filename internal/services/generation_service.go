package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/brandforge/api/internal/domain"
	"github.com/brandforge/api/internal/platform/gemini"
	"github.com/brandforge/api/internal/repositories"
)

// inputExemptTypes never require a topic or image; the guide family and the
// strategy generators run entirely off brand context and form data.
var inputExemptTypes = map[domain.ContentType]struct{}{
	domain.ContentTypeRoadmap:    {},
	domain.ContentTypeChecklist:  {},
	domain.ContentTypePillars:    {},
	domain.ContentTypeGuide:      {},
	domain.ContentTypeGuideIter:  {},
	domain.ContentTypeGuideFinal: {},
}

// GenerationServiceDeps bundles collaborators required to construct a generation service instance.
type GenerationServiceDeps struct {
	Credits  CreditService
	Accounts repositories.AccountRepository
	Text     TextGenerator
	Image    ImageGenerator
	Dialogue DialogueService
	// Events is optional; a nil publisher disables usage events.
	Events     EventPublisher
	Logger     *zap.Logger
	TextModel  string
	ImageModel string
	Clock      func() time.Time
	IDGen      func() string
}

type generationService struct {
	credits    CreditService
	accounts   repositories.AccountRepository
	text       TextGenerator
	image      ImageGenerator
	dialogue   DialogueService
	events     EventPublisher
	logger     *zap.Logger
	textModel  string
	imageModel string
	clock      func() time.Time
	idGen      func() string
}

// NewGenerationService constructs the dispatcher tying validation, metering,
// and the generation pipelines together.
func NewGenerationService(deps GenerationServiceDeps) (GenerationService, error) {
	if deps.Credits == nil {
		return nil, errors.New("generation service: credit service is required")
	}
	if deps.Accounts == nil {
		return nil, errors.New("generation service: account repository is required")
	}
	if deps.Text == nil {
		return nil, errors.New("generation service: text generator is required")
	}
	if deps.Image == nil {
		return nil, errors.New("generation service: image generator is required")
	}
	if deps.Dialogue == nil {
		return nil, errors.New("generation service: dialogue service is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGen
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	return &generationService{
		credits:    deps.Credits,
		accounts:   deps.Accounts,
		text:       deps.Text,
		image:      deps.Image,
		dialogue:   deps.Dialogue,
		events:     deps.Events,
		logger:     logger,
		textModel:  deps.TextModel,
		imageModel: deps.ImageModel,
		clock:      clock,
		idGen:      idGen,
	}, nil
}

// Generate runs one request through the full pipeline: validate, load brand
// context, deduct credits, dispatch, normalise. Deduction happens strictly
// before the model call; whether a downstream failure refunds is a policy
// switch on the credit service.
func (s *generationService) Generate(ctx context.Context, identity Identity, req domain.GenerationRequest) (GenerationResult, error) {
	if strings.TrimSpace(identity.UID) == "" {
		return GenerationResult{}, errors.New("generation: identity uid is required")
	}

	image, err := s.validate(req)
	if err != nil {
		return GenerationResult{}, err
	}

	brand := s.loadBrandContext(ctx, identity.UID, req.Payload)

	cost := s.credits.Cost(req)
	if err := s.credits.Deduct(ctx, identity.UID, cost, domain.NewAccountProfile{Email: identity.Email, Name: identity.Name}); err != nil {
		return GenerationResult{}, err
	}

	result, err := s.dispatch(ctx, req, brand, image)
	if err != nil {
		s.maybeRefund(ctx, identity.UID, cost, err)
		return GenerationResult{}, err
	}

	s.publishEvent(ctx, identity.UID, req.Type, cost)
	return result, nil
}

// validate enforces the per-type input policy and decodes the vision input.
// Unknown types pass validation when a topic is present; they fail later in
// dispatch, after the zero-cost deduction no-op.
func (s *generationService) validate(req domain.GenerationRequest) (*gemini.InlineImage, error) {
	if _, exempt := inputExemptTypes[req.Type]; !exempt {
		if strings.TrimSpace(req.Payload.Topic) == "" && !req.Payload.HasImage() {
			return nil, &ValidationError{
				Message: fmt.Sprintf("A topic or an image is required for type %q.", req.Type),
				Debug:   debugEcho(req),
			}
		}
	}

	if !req.Payload.HasImage() {
		return nil, nil
	}
	image, err := parseImageDataURL(req.Payload.Image)
	if err != nil {
		return nil, &ValidationError{
			Message: "The supplied image is not a valid base64 data URL.",
			Debug:   debugEcho(req),
		}
	}
	return image, nil
}

func (s *generationService) dispatch(ctx context.Context, req domain.GenerationRequest, brand domain.BrandContext, image *gemini.InlineImage) (GenerationResult, error) {
	switch req.Type {
	case domain.ContentTypeGuideIter:
		result, err := s.dialogue.Next(ctx, req.Payload.CoreData, req.Payload.History)
		if err != nil {
			return GenerationResult{}, err
		}
		return GenerationResult{Result: result}, nil

	case domain.ContentTypeImage:
		prompt := buildStandaloneImagePrompt(brand, req.Payload.Topic)
		return s.generateImageResult(ctx, prompt, nil)

	case domain.ContentTypeSmartImage:
		in := s.promptInput(req.Payload, brand, image != nil)
		ratio := resolveAspectRatio(req.Payload.AspectRatio, optionString(req.Payload.Options, "platform"))
		prompt := buildSmartImagePrompt(in, ratio, image != nil)
		var refs []gemini.InlineImage
		if image != nil {
			refs = append(refs, *image)
		}
		return s.generateImageResult(ctx, prompt, refs)

	default:
		in := s.promptInput(req.Payload, brand, image != nil)
		prompt, structured, err := CompilePrompt(req.Type, in)
		if err != nil {
			return GenerationResult{}, err
		}
		raw, err := s.text.GenerateText(ctx, prompt, image)
		if err != nil {
			if errors.Is(err, gemini.ErrNoText) {
				return GenerationResult{}, fmt.Errorf("%w: %s", ErrNoTextReturned, req.Type)
			}
			return GenerationResult{}, err
		}
		return GenerationResult{Result: NormalizeTextResult(raw, structured)}, nil
	}
}

func (s *generationService) generateImageResult(ctx context.Context, prompt string, refs []gemini.InlineImage) (GenerationResult, error) {
	generated, err := s.image.GenerateImage(ctx, prompt, refs)
	if err != nil {
		if errors.Is(err, gemini.ErrNoImage) {
			return GenerationResult{}, ErrNoImageReturned
		}
		return GenerationResult{}, err
	}
	uri := fmt.Sprintf("data:%s;base64,%s", generated.MIMEType, base64.StdEncoding.EncodeToString(generated.Data))
	return GenerationResult{Result: uri}, nil
}

// loadBrandContext is best-effort personalisation; any failure degrades to an
// empty context rather than failing the request.
func (s *generationService) loadBrandContext(ctx context.Context, uid string, payload domain.GenerationPayload) domain.BrandContext {
	if !payload.WantsBrandData() {
		return domain.BrandContext{}
	}
	brand, err := s.accounts.GetBrandContext(ctx, uid)
	if err != nil {
		s.logger.Debug("generation: brand context unavailable", zap.Error(err))
		return domain.BrandContext{}
	}
	return brand
}

func (s *generationService) maybeRefund(ctx context.Context, uid string, cost int, cause error) {
	if cost == 0 || !s.credits.RefundOnFailure() {
		return
	}
	var unknown *UnknownTypeError
	if errors.As(cause, &unknown) {
		// Unknown types cost zero by construction; nothing to return.
		return
	}
	if err := s.credits.Refund(ctx, uid, cost); err != nil {
		s.logger.Error("generation: refund after failure did not apply",
			zap.Int("credits", cost), zap.Error(err))
	}
}

func (s *generationService) publishEvent(ctx context.Context, uid string, contentType domain.ContentType, cost int) {
	if s.events == nil {
		return
	}
	model := s.textModel
	if contentType == domain.ContentTypeImage || contentType == domain.ContentTypeSmartImage {
		model = s.imageModel
	}
	message := ContentGeneratedMessage{
		EventID:        s.idGen(),
		UID:            uid,
		ContentType:    string(contentType),
		CreditsCharged: cost,
		Model:          model,
		GeneratedAt:    s.clock().UTC(),
	}
	if _, err := s.events.PublishContentGenerated(ctx, message); err != nil {
		s.logger.Warn("generation: content event not published",
			zap.String("eventId", message.EventID), zap.Error(err))
	}
}

func (s *generationService) promptInput(payload domain.GenerationPayload, brand domain.BrandContext, hasImage bool) PromptInput {
	return PromptInput{
		Brand:          brand,
		Topic:          payload.Topic,
		Tones:          payload.Tones,
		Options:        payload.Options,
		HasImage:       hasImage,
		Schema:         payload.Schema,
		FormData:       payload.FormData,
		DynamicAnswers: payload.DynamicAnswers,
	}
}

func debugEcho(req domain.GenerationRequest) map[string]any {
	return map[string]any{
		"type":    string(req.Type),
		"payload": req.Payload,
	}
}

// parseImageDataURL decodes a data:<mime>;base64,<payload> URI into inline image bytes.
func parseImageDataURL(raw string) (*gemini.InlineImage, error) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "data:") {
		return nil, fmt.Errorf("image is not a data URL")
	}
	meta, payload, found := strings.Cut(trimmed[len("data:"):], ",")
	if !found {
		return nil, fmt.Errorf("image data URL has no payload")
	}
	if !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("image data URL is not base64 encoded")
	}
	mime := strings.TrimSuffix(meta, ";base64")
	if mime == "" {
		mime = "image/png"
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode image payload: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image payload is empty")
	}
	return &gemini.InlineImage{MIMEType: mime, Data: data}, nil
}

func optionString(options map[string]any, key string) string {
	if options == nil {
		return ""
	}
	if v, ok := options[key].(string); ok {
		return v
	}
	return ""
}
