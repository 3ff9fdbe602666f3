package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// JobRunner runs a job request to completion. *Runner implements it.
type JobRunner interface {
	Run(ctx context.Context, req Request) error
}

// PubSubHandler runs the jobs requested on a Pub/Sub subscription.
//
// Every message is acked, including malformed ones and failed jobs: a
// failed scrape is not redelivered.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	runner           JobRunner
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Runner           JobRunner

	// MaxOutstandingMessages bounds the jobs running at once.
	// Default: 2
	MaxOutstandingMessages int

	Logger zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	if cfg.MaxOutstandingMessages <= 0 {
		cfg.MaxOutstandingMessages = 2
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Scrapes are slow; keep leases long enough to cover a full run.
	subscriber.ReceiveSettings.MaxOutstandingMessages = cfg.MaxOutstandingMessages
	subscriber.ReceiveSettings.MaxExtension = time.Hour

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		runner:           cfg.Runner,
		logger:           cfg.Logger.With().Str("component", "pubsub").Logger(),
	}, nil
}

// Start processes messages until ctx is done.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	_ = ProcessMessage(ctx, h.runner, msg.Data, logger) //nolint:errcheck // logged
	msg.Ack()
}

// ProcessMessage decodes a job request and runs it. The error is logged and
// returned for callers that want it.
func ProcessMessage(ctx context.Context, runner JobRunner, data []byte, logger zerolog.Logger) error {
	startTime := time.Now()
	logger.Debug().Msg("received job message")

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		logger.Error().Err(err).Msg("failed to parse message")
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	logger = logger.With().Str("job", req.Job).Logger()
	if err := runner.Run(ctx, req); err != nil {
		logger.Error().Err(err).Dur("duration", time.Since(startTime)).Msg("job failed")
		return err
	}

	logger.Info().
		Dur("duration", time.Since(startTime)).
		Msg("job completed successfully")
	return nil
}
