package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/brandforge/api/internal/platform/requestctx"
)

// Error represents the canonical JSON error envelope returned by the API.
type Error struct {
	Message string
	Status  int
	Debug   map[string]any
}

// NewError constructs a new Error with the provided message and status.
func NewError(message string, status int) Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Error{
		Message: sanitize(message, 512),
		Status:  status,
	}
}

// WithDebug attaches a debug echo of the offending request to the payload.
func (e Error) WithDebug(debug map[string]any) Error {
	if len(debug) == 0 {
		return e
	}
	copyDebug := make(map[string]any, len(debug))
	for k, v := range debug {
		copyDebug[k] = v
	}
	e.Debug = copyDebug
	return e
}

// WriteError writes the structured error as JSON to the provided response writer.
// Request and trace identifiers stay in the server-side log, not in the body.
func WriteError(ctx context.Context, w http.ResponseWriter, err Error) {
	status := err.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	requestctx.Logger(ctx).Debug("writing error response",
		zap.Int("status", status),
		zap.String("error", err.Message),
		zap.String("trace_id", requestctx.TraceID(ctx)),
	)

	payload := map[string]any{
		"error": err.Message,
	}
	if len(err.Debug) > 0 {
		payload["debug"] = err.Debug
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func sanitize(value string, limit int) string {
	if limit <= 0 {
		limit = 256
	}
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.TrimSpace(value)
	if len(value) > limit {
		value = value[:limit]
	}
	return value
}
