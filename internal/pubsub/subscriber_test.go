package pubsub

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"app/internal/config"
	"app/internal/logger"
	"app/internal/model"

	ps "cloud.google.com/go/pubsub"
)

func TestNewSubscriberInvalidProject(t *testing.T) {
	cfg := &config.Config{GCPProjectID: ""}
	if _, err := NewSubscriber(context.Background(), cfg, logger.New()); err == nil {
		t.Fatal("expected error when project ID is empty")
	}
}

func TestReceiveWithEmulator(t *testing.T) {
	emulator := os.Getenv("PUBSUB_EMULATOR_HOST")
	if emulator == "" {
		t.Skip("PUBSUB_EMULATOR_HOST is not set, skip emulator integration test")
	}

	ctx := context.Background()
	cfg := &config.Config{
		GCPProjectID:        "test-project",
		PubSubEmulatorHost:  emulator,
		RecordsSubscription: "records-judged-test",
	}
	sub, err := NewSubscriber(ctx, cfg, logger.New())
	if err != nil {
		t.Fatalf("failed to create Subscriber: %v", err)
	}
	defer sub.Close()

	// Use the underlying client to create topic and subscription
	topic, err := sub.client.CreateTopic(ctx, "records-judged-test-topic")
	if err != nil {
		t.Fatalf("failed to create topic: %v", err)
	}
	if _, err := sub.client.CreateSubscription(ctx, cfg.RecordsSubscription, ps.SubscriptionConfig{Topic: topic}); err != nil {
		t.Fatalf("failed to create subscription: %v", err)
	}

	want := model.Record{
		DomainID:  "system",
		RecordID:  "rec-1",
		UserID:    7,
		ProblemID: 1001,
		Score:     100,
		Status:    1,
	}
	data, _ := json.Marshal(want)
	if _, err := topic.Publish(ctx, &ps.Message{Data: data}).Get(ctx); err != nil {
		t.Fatalf("failed to publish record: %v", err)
	}

	recvCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	got := make(chan model.Record, 1)
	go func() {
		sub.Run(recvCtx, func(ctx context.Context, rec model.Record) error {
			got <- rec
			cancel()
			return nil
		})
	}()

	select {
	case rec := <-got:
		if rec != want {
			t.Fatalf("expected record %+v, got %+v", want, rec)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for judged record from emulator subscription")
	}
}
