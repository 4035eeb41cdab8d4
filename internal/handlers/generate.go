package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/brandforge/api/internal/domain"
	"github.com/brandforge/api/internal/platform/auth"
	"github.com/brandforge/api/internal/platform/httpx"
	"github.com/brandforge/api/internal/platform/requestctx"
	"github.com/brandforge/api/internal/services"
)

// maxBodyBytes bounds the request body; base64 vision inputs dominate the size.
const maxBodyBytes = 32 << 20

// internalErrorMessage is the only detail 500 responses carry; specifics stay in logs.
const internalErrorMessage = "An internal error occurred."

// GenerateHandler serves POST /generateContent.
type GenerateHandler struct {
	generation services.GenerationService
}

// NewGenerateHandler constructs the generation endpoint handler.
func NewGenerateHandler(generation services.GenerationService) (*GenerateHandler, error) {
	if generation == nil {
		return nil, errors.New("generate handler: generation service is required")
	}
	return &GenerateHandler{generation: generation}, nil
}

// Generate normalises the body, resolves the verified identity, and runs the
// generation pipeline, translating tagged errors to the HTTP taxonomy.
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := requestctx.Logger(ctx)

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("Unauthorized: no verified identity.", http.StatusUnauthorized))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		logger.Warn("generate: unreadable request body", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("Unable to read request body.", http.StatusBadRequest))
		return
	}

	req := normalizeRequestBody(body)

	result, err := h.generation.Generate(ctx, services.Identity{
		UID:   identity.UID,
		Email: identity.Email,
		Name:  identity.Name,
	}, req)
	if err != nil {
		writeGenerationError(ctx, w, logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		logger.Error("generate: response encoding failed", zap.Error(err))
	}
}

// normalizeRequestBody parses an arbitrary body into the canonical request.
// Accepted shapes, tried in order: a JSON object, a JSON string containing
// JSON, and the legacy {data:{...}} envelope. Undecodable bodies yield an
// empty request for downstream validation to reject.
func normalizeRequestBody(body []byte) domain.GenerationRequest {
	raw := decodeLoose(body)
	if raw == nil {
		return domain.GenerationRequest{}
	}

	// Legacy envelope: unwrap data when no top-level type is present.
	if _, hasType := raw["type"]; !hasType {
		if data, ok := raw["data"].(map[string]any); ok {
			raw = data
		}
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return domain.GenerationRequest{}
	}
	var req domain.GenerationRequest
	if err := json.Unmarshal(encoded, &req); err != nil {
		return domain.GenerationRequest{}
	}
	return req
}

func decodeLoose(body []byte) map[string]any {
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil
	}

	// A JSON string body carries a second layer of encoding.
	if text, ok := decoded.(string); ok {
		if err := json.Unmarshal([]byte(text), &decoded); err != nil {
			return nil
		}
	}

	obj, ok := decoded.(map[string]any)
	if !ok {
		return nil
	}
	return obj
}

// writeGenerationError maps the tagged service errors to HTTP statuses at the
// outermost boundary. Anything unrecognised is a 500 with the generic message.
func writeGenerationError(ctx context.Context, w http.ResponseWriter, logger *zap.Logger, err error) {
	var validation *services.ValidationError
	if errors.As(err, &validation) {
		httpErr := httpx.NewError(validation.Message, http.StatusBadRequest).WithDebug(validation.Debug)
		httpx.WriteError(ctx, w, httpErr)
		return
	}

	var insufficient *services.InsufficientCreditsError
	if errors.As(err, &insufficient) {
		message := fmt.Sprintf("Insufficient credits. You need %d credits but have %d.",
			insufficient.Required, insufficient.Available)
		httpx.WriteError(ctx, w, httpx.NewError(message, http.StatusTooManyRequests))
		return
	}

	var unknown *services.UnknownTypeError
	if errors.As(err, &unknown) {
		message := fmt.Sprintf("Invalid prompt type: %s", unknown.Type)
		httpx.WriteError(ctx, w, httpx.NewError(message, http.StatusNotFound))
		return
	}

	logger.Error("generate: pipeline failed", zap.Error(err))
	httpx.WriteError(ctx, w, httpx.NewError(internalErrorMessage, http.StatusInternalServerError))
}
