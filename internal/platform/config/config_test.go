package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	env := map[string]string{
		"API_FIREBASE_PROJECT_ID": "bf-dev",
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Server.RequestTimeout != 540*time.Second {
		t.Errorf("unexpected request timeout: %s", cfg.Server.RequestTimeout)
	}
	if cfg.Firestore.ProjectID != "bf-dev" {
		t.Errorf("expected firestore project to default to firebase project, got %s", cfg.Firestore.ProjectID)
	}
	if cfg.Gemini.TextModel != defaultTextModel {
		t.Errorf("expected default text model %s, got %s", defaultTextModel, cfg.Gemini.TextModel)
	}
	if cfg.Gemini.ImageModel != defaultImageModel {
		t.Errorf("expected default image model %s, got %s", defaultImageModel, cfg.Gemini.ImageModel)
	}
	if cfg.Credits.StartingGrant != 10 {
		t.Errorf("expected starting grant 10, got %d", cfg.Credits.StartingGrant)
	}
	if cfg.Credits.RefundOnFailure {
		t.Errorf("refund on failure must default to false")
	}
	if cfg.Events.Enabled {
		t.Errorf("events must default to disabled")
	}
	if cfg.Events.Topic != defaultEventsTopic {
		t.Errorf("expected default events topic %s, got %s", defaultEventsTopic, cfg.Events.Topic)
	}
}

func TestLoadWithOverridesAndSecrets(t *testing.T) {
	env := map[string]string{
		"API_SERVER_PORT":               "9090",
		"API_SERVER_READ_TIMEOUT":       "20s",
		"API_SERVER_REQUEST_TIMEOUT":    "5m",
		"API_FIREBASE_PROJECT_ID":       "bf-prod",
		"API_FIRESTORE_PROJECT_ID":      "bf-fire",
		"API_GEMINI_API_KEY":            "secret://gemini/api-key",
		"API_GEMINI_TEXT_MODEL":         "gemini-2.5-pro",
		"API_GEMINI_IMAGE_MODEL":        "gemini-2.5-flash-image",
		"API_EVENTS_ENABLED":            "true",
		"API_EVENTS_TOPIC":              "generated-prod",
		"API_CREDITS_STARTING_GRANT":    "25",
		"API_CREDITS_REFUND_ON_FAILURE": "true",
	}

	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		if ref == "secret://gemini/api-key" {
			return "gm-key", nil
		}
		return "", &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
	})

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithSecretResolver(resolver))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout != 5*time.Minute {
		t.Errorf("unexpected request timeout: %s", cfg.Server.RequestTimeout)
	}
	if cfg.Firestore.ProjectID != "bf-fire" {
		t.Errorf("expected firestore project bf-fire, got %s", cfg.Firestore.ProjectID)
	}
	if cfg.Gemini.APIKey != "gm-key" {
		t.Errorf("expected resolved gemini key, got %s", cfg.Gemini.APIKey)
	}
	if cfg.Gemini.TextModel != "gemini-2.5-pro" {
		t.Errorf("unexpected text model: %s", cfg.Gemini.TextModel)
	}
	if !cfg.Events.Enabled || cfg.Events.Topic != "generated-prod" {
		t.Errorf("unexpected events config: %+v", cfg.Events)
	}
	if cfg.Credits.StartingGrant != 25 {
		t.Errorf("expected starting grant 25, got %d", cfg.Credits.StartingGrant)
	}
	if !cfg.Credits.RefundOnFailure {
		t.Errorf("expected refund on failure to be enabled")
	}
}

func TestLoadMissingRequiredFields(t *testing.T) {
	_, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatalf("expected validation error")
	}

	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %T", err)
	}

	fields := validation.Fields()
	found := false
	for _, field := range fields {
		if field == "Firebase.ProjectID" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected Firebase.ProjectID in missing fields, got %v", fields)
	}
}

func TestLoadSecretResolutionFailure(t *testing.T) {
	env := map[string]string{
		"API_FIREBASE_PROJECT_ID": "bf-dev",
		"API_GEMINI_API_KEY":      "sm://gemini/api-key",
	}

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatalf("expected secret error")
	}

	var secretErr *SecretError
	if !errors.As(err, &secretErr) {
		t.Fatalf("expected SecretError, got %T", err)
	}
	if secretErr.Ref != "secret://gemini/api-key" {
		t.Errorf("expected normalised secret ref, got %s", secretErr.Ref)
	}
}

func TestLoadRequiredSecrets(t *testing.T) {
	env := map[string]string{
		"API_FIREBASE_PROJECT_ID": "bf-dev",
	}

	_, err := Load(context.Background(),
		WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""),
		WithRequiredSecrets("Gemini.APIKey"),
	)
	if err == nil {
		t.Fatalf("expected missing secrets error")
	}

	var missing *MissingSecretsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingSecretsError, got %T", err)
	}
	if len(missing.RedactedNames()) != 1 {
		t.Errorf("expected one redacted name, got %v", missing.RedactedNames())
	}
}

func TestLoadReadsDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	content := "API_FIREBASE_PROJECT_ID=bf-local\nexport API_SERVER_PORT=7070\n# comment\nAPI_GEMINI_TEXT_MODEL=\"gemini-2.5-flash\"\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(context.Background(), WithoutSystemEnv(), WithEnvFile(envPath))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Firebase.ProjectID != "bf-local" {
		t.Errorf("expected project from .env, got %s", cfg.Firebase.ProjectID)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("expected port from .env, got %s", cfg.Server.Port)
	}
	if cfg.Gemini.TextModel != "gemini-2.5-flash" {
		t.Errorf("expected quoted value to be trimmed, got %s", cfg.Gemini.TextModel)
	}
}
