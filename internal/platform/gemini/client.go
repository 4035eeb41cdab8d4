package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

var (
	// ErrEmptyPrompt indicates the caller supplied no prompt text.
	ErrEmptyPrompt = errors.New("gemini: empty prompt")
	// ErrNoText indicates the model response contained no text parts.
	ErrNoText = errors.New("gemini: no text returned by model")
	// ErrNoImage indicates the model response contained no inline image data.
	ErrNoImage = errors.New("gemini: no image returned by model")
)

// InlineImage carries raw image bytes alongside their MIME type for inline model input.
type InlineImage struct {
	MIMEType string
	Data     []byte
}

// GeneratedImage is an image produced by the model.
type GeneratedImage struct {
	MIMEType string
	Data     []byte
}

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client wraps the Gemini API for the text and image generation pipelines.
type Client struct {
	models     contentGenerator
	textModel  string
	imageModel string
	logger     *zap.Logger
}

type clientConfig struct {
	logger *zap.Logger
	models contentGenerator
}

// ClientOption customises Client construction.
type ClientOption func(*clientConfig)

// WithLogger sets the logger used for diagnostic output.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(cfg *clientConfig) {
		cfg.logger = logger
	}
}

// WithContentGenerator injects a model backend (primarily for tests).
func WithContentGenerator(models contentGenerator) ClientOption {
	return func(cfg *clientConfig) {
		cfg.models = models
	}
}

// NewClient builds a Gemini client authenticated with the supplied API key.
func NewClient(ctx context.Context, apiKey, textModel, imageModel string, opts ...ClientOption) (*Client, error) {
	cfg := clientConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	if strings.TrimSpace(textModel) == "" {
		return nil, errors.New("gemini: text model is required")
	}
	if strings.TrimSpace(imageModel) == "" {
		return nil, errors.New("gemini: image model is required")
	}

	models := cfg.models
	if models == nil {
		if strings.TrimSpace(apiKey) == "" {
			return nil, errors.New("gemini: API key is required")
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini: create client: %w", err)
		}
		models = client.Models
	}

	return &Client{
		models:     models,
		textModel:  textModel,
		imageModel: imageModel,
		logger:     cfg.logger,
	}, nil
}

// GenerateText sends the prompt, plus an optional inline source image, to the
// text model and returns the concatenated text parts of the first candidate.
func (c *Client) GenerateText(ctx context.Context, prompt string, image *InlineImage) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	if image != nil && len(image.Data) > 0 {
		parts = append(parts, inlinePart(*image))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	res, err := c.models.GenerateContent(ctx, c.textModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini: generate text: %w", err)
	}

	text := collectText(res)
	if text == "" {
		c.logger.Warn("gemini: text response contained no text parts", zap.String("model", c.textModel))
		return "", ErrNoText
	}
	return text, nil
}

// GenerateImage sends the prompt, plus any inline reference images, to the
// image model and returns the first inline image part of the first candidate.
func (c *Client) GenerateImage(ctx context.Context, prompt string, images []InlineImage) (*GeneratedImage, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	for _, img := range images {
		if len(img.Data) == 0 {
			continue
		}
		parts = append(parts, inlinePart(img))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	res, err := c.models.GenerateContent(ctx, c.imageModel, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini: generate image: %w", err)
	}

	img := firstInlineImage(res)
	if img == nil {
		c.logger.Warn("gemini: image response contained no inline data", zap.String("model", c.imageModel))
		return nil, ErrNoImage
	}
	return img, nil
}

func inlinePart(img InlineImage) *genai.Part {
	mime := img.MIMEType
	if strings.TrimSpace(mime) == "" {
		mime = "image/png"
	}
	return &genai.Part{InlineData: &genai.Blob{MIMEType: mime, Data: img.Data}}
}

func collectText(res *genai.GenerateContentResponse) string {
	if res == nil || len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return ""
	}
	var out strings.Builder
	for _, part := range res.Candidates[0].Content.Parts {
		if part.Text != "" {
			out.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(out.String())
}

func firstInlineImage(res *genai.GenerateContentResponse) *GeneratedImage {
	if res == nil || len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return nil
	}
	for _, part := range res.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			mime := part.InlineData.MIMEType
			if mime == "" {
				mime = "image/png"
			}
			return &GeneratedImage{MIMEType: mime, Data: part.InlineData.Data}
		}
	}
	return nil
}
