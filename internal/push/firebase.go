package push

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FirebaseConfig holds configuration for a FirebaseGateway.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

// FirebaseGateway sends messages through the Firebase Admin SDK.
type FirebaseGateway struct {
	client *messaging.Client
}

// NewFirebaseGateway initializes the Firebase app and messaging client.
func NewFirebaseGateway(ctx context.Context, cfg FirebaseConfig) (*FirebaseGateway, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID: cfg.ProjectID,
	}, option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("get messaging client: %w", err)
	}

	return &FirebaseGateway{client: client}, nil
}

// Name returns "firebase".
func (g *FirebaseGateway) Name() string { return "firebase" }

// Send delivers one message.
func (g *FirebaseGateway) Send(ctx context.Context, msg Message) error {
	if msg.Token == "" {
		return fmt.Errorf("%w: %w", ErrDelivery, ErrNoToken)
	}

	_, err := g.client.Send(ctx, &messaging.Message{
		Token: msg.Token,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Android: &messaging.AndroidConfig{Priority: "high"},
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	return nil
}
