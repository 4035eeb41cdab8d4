package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/brandforge/api/internal/domain"
	"github.com/brandforge/api/internal/platform/auth"
	"github.com/brandforge/api/internal/services"
)

type stubGenerationService struct {
	lastIdentity services.Identity
	lastRequest  domain.GenerationRequest
	calls        int

	result services.GenerationResult
	err    error
}

func (s *stubGenerationService) Generate(_ context.Context, identity services.Identity, req domain.GenerationRequest) (services.GenerationResult, error) {
	s.calls++
	s.lastIdentity = identity
	s.lastRequest = req
	if s.err != nil {
		return services.GenerationResult{}, s.err
	}
	return s.result, nil
}

func newGenerateRequest(t *testing.T, body string, withIdentity bool) *http.Request {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/generateContent", strings.NewReader(body))
	if withIdentity {
		ctx := auth.WithIdentity(req.Context(), &auth.Identity{
			UID:   "uid-42",
			Email: "maker@example.com",
			Name:  "Maker",
		})
		req = req.WithContext(ctx)
	}
	return req
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var payload map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return payload
}

func TestGenerateReturnsResult(t *testing.T) {
	service := &stubGenerationService{result: services.GenerationResult{Result: "a caption"}}
	handler, err := NewGenerateHandler(service)
	if err != nil {
		t.Fatalf("NewGenerateHandler returned error: %v", err)
	}

	rec := httptest.NewRecorder()
	handler.Generate(rec, newGenerateRequest(t, `{"type":"caption","topic":"sourdough"}`, true))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload struct {
		Result string `json:"result"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if payload.Result != "a caption" {
		t.Fatalf("unexpected result %q", payload.Result)
	}
	if service.lastIdentity.UID != "uid-42" || service.lastIdentity.Email != "maker@example.com" {
		t.Fatalf("identity not forwarded: %+v", service.lastIdentity)
	}
	if service.lastRequest.Type != domain.ContentTypeCaption || service.lastRequest.Payload.Topic != "sourdough" {
		t.Fatalf("request not forwarded: %+v", service.lastRequest)
	}
}

func TestGenerateRequiresIdentity(t *testing.T) {
	service := &stubGenerationService{}
	handler, err := NewGenerateHandler(service)
	if err != nil {
		t.Fatalf("NewGenerateHandler returned error: %v", err)
	}

	rec := httptest.NewRecorder()
	handler.Generate(rec, newGenerateRequest(t, `{"type":"caption","topic":"x"}`, false))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatalf("service should not run without identity")
	}
	payload := decodeErrorBody(t, rec)
	if payload["error"] != "Unauthorized: no verified identity." {
		t.Fatalf("unexpected error message %q", payload["error"])
	}
}

func TestGenerateMapsServiceErrors(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
		wantDebug   bool
	}{
		{
			name:        "validation",
			err:         &services.ValidationError{Message: "Please provide a topic or an image.", Debug: map[string]any{"type": "caption"}},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Please provide a topic or an image.",
			wantDebug:   true,
		},
		{
			name:        "insufficient credits",
			err:         &services.InsufficientCreditsError{Required: 2, Available: 1},
			wantStatus:  http.StatusTooManyRequests,
			wantMessage: "Insufficient credits. You need 2 credits but have 1.",
		},
		{
			name:        "unknown type",
			err:         &services.UnknownTypeError{Type: domain.ContentType("haiku")},
			wantStatus:  http.StatusNotFound,
			wantMessage: "Invalid prompt type: haiku",
		},
		{
			name:        "internal",
			err:         errors.New("model unreachable"),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "An internal error occurred.",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler, err := NewGenerateHandler(&stubGenerationService{err: tc.err})
			if err != nil {
				t.Fatalf("NewGenerateHandler returned error: %v", err)
			}

			rec := httptest.NewRecorder()
			handler.Generate(rec, newGenerateRequest(t, `{"type":"caption","topic":"x"}`, true))

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, rec.Code)
			}
			payload := decodeErrorBody(t, rec)
			if payload["error"] != tc.wantMessage {
				t.Fatalf("unexpected message %q", payload["error"])
			}
			if _, hasDebug := payload["debug"]; hasDebug != tc.wantDebug {
				t.Fatalf("debug presence = %v, want %v", hasDebug, tc.wantDebug)
			}
		})
	}
}

func TestGenerateDoesNotExposeInternalDetail(t *testing.T) {
	handler, err := NewGenerateHandler(&stubGenerationService{err: errors.New("firestore: rpc unavailable")})
	if err != nil {
		t.Fatalf("NewGenerateHandler returned error: %v", err)
	}

	rec := httptest.NewRecorder()
	handler.Generate(rec, newGenerateRequest(t, `{"type":"caption","topic":"x"}`, true))

	if strings.Contains(rec.Body.String(), "firestore") {
		t.Fatalf("internal detail leaked into response: %s", rec.Body.String())
	}
}

func TestNormalizeRequestBody(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantType  domain.ContentType
		wantTopic string
	}{
		{
			name:      "plain object",
			body:      `{"type":"tweet","topic":"launch day"}`,
			wantType:  domain.ContentTypeTweet,
			wantTopic: "launch day",
		},
		{
			name:      "double encoded string",
			body:      `"{\"type\":\"tweet\",\"topic\":\"launch day\"}"`,
			wantType:  domain.ContentTypeTweet,
			wantTopic: "launch day",
		},
		{
			name:      "legacy data envelope",
			body:      `{"data":{"type":"idea","topic":"retention"}}`,
			wantType:  domain.ContentTypeIdea,
			wantTopic: "retention",
		},
		{
			name:     "envelope ignored when type present",
			body:     `{"type":"post","data":{"type":"idea"}}`,
			wantType: domain.ContentTypePost,
		},
		{
			name: "garbage yields empty request",
			body: `not json at all`,
		},
		{
			name: "array yields empty request",
			body: `[1,2,3]`,
		},
		{
			name: "empty body yields empty request",
			body: ``,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := normalizeRequestBody([]byte(tc.body))
			if req.Type != tc.wantType {
				t.Fatalf("type = %q, want %q", req.Type, tc.wantType)
			}
			if req.Payload.Topic != tc.wantTopic {
				t.Fatalf("topic = %q, want %q", req.Payload.Topic, tc.wantTopic)
			}
		})
	}
}
