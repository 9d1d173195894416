package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"app/internal/config"
	"app/internal/model"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// RecordHandler is called once per judged-record message. Returning an error
// nacks the message for redelivery.
type RecordHandler func(ctx context.Context, rec model.Record) error

// Subscriber consumes judged-record messages from Pub/Sub. This is how the
// judging pipeline drives the progress journals: the judge publishes one
// message per finished submission and this loop folds it in.
type Subscriber struct {
	client       *pubsub.Client
	subscription string
	logger       zerolog.Logger
}

// NewSubscriber creates a Subscriber for the configured subscription.
func NewSubscriber(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Subscriber, error) {
	if cfg.GCPProjectID == "" {
		return nil, fmt.Errorf("GCP Project ID is not set for the current environment")
	}

	var opts []option.ClientOption
	if cfg.PubSubEmulatorHost != "" {
		opts = append(opts, option.WithEndpoint(cfg.PubSubEmulatorHost), option.WithoutAuthentication())
	}

	client, err := pubsub.NewClient(ctx, cfg.GCPProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Pub/Sub client: %w", err)
	}
	return &Subscriber{
		client:       client,
		subscription: cfg.RecordsSubscription,
		logger:       logger.With().Str("component", "RecordSubscriber").Logger(),
	}, nil
}

// Run blocks receiving messages until ctx is cancelled. Malformed messages
// are acked and dropped; handler failures are nacked for redelivery.
func (s *Subscriber) Run(ctx context.Context, handle RecordHandler) error {
	sub := s.client.Subscription(s.subscription)
	s.logger.Info().Str("subscription", s.subscription).Msg("Starting judged-record subscriber")

	err := sub.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
		var rec model.Record
		if err := json.Unmarshal(m.Data, &rec); err != nil {
			s.logger.Error().Err(err).Str("message_id", m.ID).Msg("Failed to unmarshal judged record; dropping message")
			m.Ack()
			return
		}
		if err := handle(ctx, rec); err != nil {
			s.logger.Error().Err(err).Str("record_id", rec.RecordID).Msg("Failed to apply judged record; nacking for redelivery")
			m.Nack()
			return
		}
		s.logger.Debug().Str("record_id", rec.RecordID).Int64("user_id", rec.UserID).Msg("Applied judged record")
		m.Ack()
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("receiving from subscription %s: %w", s.subscription, err)
	}
	return nil
}

// Close releases the underlying Pub/Sub client.
func (s *Subscriber) Close() error {
	return s.client.Close()
}
