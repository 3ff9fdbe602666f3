// Package push delivers notifications to growers' devices.
//
// Delivery is best effort: a Gateway reports failures but callers are not
// expected to retry them.
package push

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// Errors returned by gateways.
var (
	// ErrDelivery wraps every failed send.
	ErrDelivery = errors.New("push delivery failed")

	// ErrNoToken is returned for a message without a device token.
	ErrNoToken = errors.New("message has no device token")
)

// Message is a single device notification.
type Message struct {
	Token string
	Title string
	Body  string
}

// Gateway sends push messages.
type Gateway interface {
	// Send delivers one message. Failures wrap ErrDelivery.
	Send(ctx context.Context, msg Message) error

	// Name identifies the gateway in logs and health reports.
	Name() string
}

// LogGateway only logs messages. Used for dry runs and local development.
type LogGateway struct {
	logger zerolog.Logger
}

// NewLogGateway creates a gateway that logs instead of sending.
func NewLogGateway(logger zerolog.Logger) *LogGateway {
	return &LogGateway{logger: logger.With().Str("component", "push_log").Logger()}
}

// Send logs the message.
func (g *LogGateway) Send(_ context.Context, msg Message) error {
	if msg.Token == "" {
		return errors.Join(ErrDelivery, ErrNoToken)
	}
	g.logger.Info().
		Str("title", msg.Title).
		Str("body", msg.Body).
		Msg("push message (dry run)")
	return nil
}

// Name returns "log".
func (g *LogGateway) Name() string { return "log" }
