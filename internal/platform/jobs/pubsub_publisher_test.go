package jobs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/brandforge/api/internal/services"
)

func TestPubSubEventPublisherPublishesMessage(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	defer srv.Close()

	client, err := pubsub.NewClient(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("pubsub.NewClient: %v", err)
	}
	defer func() {
		_ = client.Close()
	}()

	topic, err := client.CreateTopic(ctx, "content-generated")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}

	publisher, err := NewPubSubEventPublisher(topic)
	if err != nil {
		t.Fatalf("NewPubSubEventPublisher: %v", err)
	}

	generatedAt := time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC)
	msg := services.ContentGeneratedMessage{
		EventID:        "01JK4YV4D1YCN0RertTEST00",
		UID:            "uid-123",
		ContentType:    "caption",
		CreditsCharged: 1,
		Model:          "gemini-2.5-flash",
		GeneratedAt:    generatedAt,
	}

	if _, err := publisher.PublishContentGenerated(ctx, msg); err != nil {
		t.Fatalf("PublishContentGenerated: %v", err)
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	var payload services.ContentGeneratedMessage
	if err := json.Unmarshal(messages[0].Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.EventID != msg.EventID || payload.UID != msg.UID {
		t.Fatalf("unexpected payload %#v", payload)
	}
	if attr := messages[0].Attributes["contentType"]; attr != "caption" {
		t.Fatalf("expected contentType attribute, got %q", attr)
	}
	if attr := messages[0].Attributes["creditsCharged"]; attr != "1" {
		t.Fatalf("expected creditsCharged attribute, got %q", attr)
	}
}
