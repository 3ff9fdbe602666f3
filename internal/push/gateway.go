package push

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cropi/cropi/internal/provider/resilience"
)

// ErrUnknownDriver is returned by NewGateway for an unsupported driver.
var ErrUnknownDriver = errors.New("unknown push driver")

// GatewayConfig selects and configures a gateway.
type GatewayConfig struct {
	// Driver is "fcm", "firebase" or "log". Empty means "log".
	Driver string

	// ProjectID defaults to the service-account key's project.
	ProjectID       string
	CredentialsFile string
	Endpoint        string

	// Registry receives the FCM client for health reporting. Optional.
	Registry *resilience.Registry

	Logger zerolog.Logger
}

// NewGateway builds the gateway named by cfg.Driver.
func NewGateway(ctx context.Context, cfg GatewayConfig) (Gateway, error) {
	switch cfg.Driver {
	case "", "log":
		return NewLogGateway(cfg.Logger), nil

	case "fcm":
		key, err := LoadServiceAccountKey(cfg.CredentialsFile)
		if err != nil {
			return nil, err
		}
		projectID := cfg.ProjectID
		if projectID == "" {
			projectID = key.ProjectID
		}
		if projectID == "" {
			return nil, fmt.Errorf("fcm: no project id configured or in %s", cfg.CredentialsFile)
		}

		// Sends are fire-and-forget: a retried POST that FCM already
		// accepted would push the same alert twice.
		clientCfg := resilience.DefaultClientConfig("fcm")
		clientCfg.NoRetry = true
		clientCfg.Registry = cfg.Registry

		return NewFCMGateway(FCMConfig{
			ProjectID: projectID,
			Endpoint:  cfg.Endpoint,
			Tokens:    NewServiceAccountTokenSource(key, MessagingScope, nil),
			Client:    resilience.NewClient(clientCfg),
			Logger:    cfg.Logger,
		}), nil

	case "firebase":
		return NewFirebaseGateway(ctx, FirebaseConfig{
			ProjectID:       cfg.ProjectID,
			CredentialsFile: cfg.CredentialsFile,
		})

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
