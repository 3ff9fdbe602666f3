package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cropi/cropi/internal/provider/resilience"
)

// DefaultFCMEndpoint is the FCM HTTP v1 API host.
const DefaultFCMEndpoint = "https://fcm.googleapis.com"

// FCMConfig holds configuration for an FCMGateway.
type FCMConfig struct {
	// ProjectID is the Firebase project messages are sent through.
	ProjectID string

	// Endpoint is the API host.
	// Default: DefaultFCMEndpoint
	Endpoint string

	Tokens TokenSource

	// Client is the resilient HTTP client; it should be registered with the
	// provider registry for health reporting.
	// Default: resilience.NewClient(resilience.DefaultClientConfig("fcm"))
	Client *resilience.Client

	Logger zerolog.Logger
}

// FCMGateway sends messages through the FCM HTTP v1 API.
type FCMGateway struct {
	url    string
	tokens TokenSource
	client *resilience.Client
	logger zerolog.Logger
}

// NewFCMGateway creates an FCM gateway.
func NewFCMGateway(cfg FCMConfig) *FCMGateway {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultFCMEndpoint
	}
	if cfg.Client == nil {
		cfg.Client = resilience.NewClient(resilience.DefaultClientConfig("fcm"))
	}

	return &FCMGateway{
		url:    fmt.Sprintf("%s/v1/projects/%s/messages:send", strings.TrimRight(cfg.Endpoint, "/"), cfg.ProjectID),
		tokens: cfg.Tokens,
		client: cfg.Client,
		logger: cfg.Logger.With().Str("component", "push_fcm").Logger(),
	}
}

// Name returns the resilience client name.
func (g *FCMGateway) Name() string { return g.client.Name() }

type fcmRequest struct {
	Message fcmMessage `json:"message"`
}

type fcmMessage struct {
	Token        string          `json:"token"`
	Notification fcmNotification `json:"notification"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Send posts one message. Any non-2xx response is a delivery failure.
func (g *FCMGateway) Send(ctx context.Context, msg Message) error {
	if msg.Token == "" {
		return fmt.Errorf("%w: %w", ErrDelivery, ErrNoToken)
	}

	accessToken, err := g.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}

	payload, err := json.Marshal(fcmRequest{Message: fcmMessage{
		Token:        msg.Token,
		Notification: fcmNotification{Title: msg.Title, Body: msg.Body},
	}})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	defer resp.Body.Close()

	g.logger.Debug().Int("status", resp.StatusCode).Msg("fcm response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("%w: fcm returned %d: %s", ErrDelivery, resp.StatusCode, bytes.TrimSpace(body))
	}

	return nil
}
