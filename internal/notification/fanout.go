package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cropi/cropi/internal/plantation"
	"github.com/cropi/cropi/internal/push"
	"github.com/cropi/cropi/internal/user"
)

// DefaultRadiusMeters is the neighbourhood searched around a triggering plantation.
const DefaultRadiusMeters = 100_000

// ErrNoLocation is returned when the triggering plantation has no location.
var ErrNoLocation = errors.New("triggering plantation has no location")

// FanoutConfig holds the dependencies of a Fanout.
type FanoutConfig struct {
	Plantations plantation.Repository
	Users       user.Repository
	Records     Repository
	Gateway     push.Gateway

	// RadiusMeters is the search radius for NotifyNearby.
	// Default: DefaultRadiusMeters
	RadiusMeters float64

	Logger zerolog.Logger
}

// Fanout notifies each eligible grower at most once per call.
//
// Every notification is persisted before it is pushed. A failed push keeps
// its record and does not stop the remaining growers. Calls are not
// idempotent across invocations: running the same event twice notifies
// everyone twice.
type Fanout struct {
	plantations plantation.Repository
	users       user.Repository
	records     Repository
	gateway     push.Gateway
	radius      float64
	logger      zerolog.Logger
}

// NewFanout creates a fanout engine.
func NewFanout(cfg FanoutConfig) *Fanout {
	if cfg.RadiusMeters <= 0 {
		cfg.RadiusMeters = DefaultRadiusMeters
	}

	return &Fanout{
		plantations: cfg.Plantations,
		users:       cfg.Users,
		records:     cfg.Records,
		gateway:     cfg.Gateway,
		radius:      cfg.RadiusMeters,
		logger:      cfg.Logger.With().Str("component", "fanout").Logger(),
	}
}

// Event describes what the growers are alerted about.
type Event struct {
	Template   Template
	Pathogenic string
	Culture    string
}

// SkipCounts counts recipients that were not notified, by reason.
type SkipCounts struct {
	Unresolved    int
	NoToken       int
	Owner         int
	Duplicate     int
	PersistFailed int
}

// Result summarizes one fanout call.
type Result struct {
	Candidates int

	// Notified counts persisted records; Delivered and DeliveryFailures
	// split them by push outcome.
	Notified         int
	Delivered        int
	DeliveryFailures int

	Skipped SkipCounts
}

// Add accumulates other into r.
func (r *Result) Add(other *Result) {
	if other == nil {
		return
	}
	r.Candidates += other.Candidates
	r.Notified += other.Notified
	r.Delivered += other.Delivered
	r.DeliveryFailures += other.DeliveryFailures
	r.Skipped.Unresolved += other.Skipped.Unresolved
	r.Skipped.NoToken += other.Skipped.NoToken
	r.Skipped.Owner += other.Skipped.Owner
	r.Skipped.Duplicate += other.Skipped.Duplicate
	r.Skipped.PersistFailed += other.Skipped.PersistFailed
}

// NotifyNearby alerts the owners of plantations within the radius of the
// triggering plantation. The triggering plantation and its owner are never
// notified.
func (f *Fanout) NotifyNearby(ctx context.Context, plantationID string, ev Event) (*Result, error) {
	origin, err := f.plantations.Get(ctx, plantationID)
	if err != nil {
		return nil, fmt.Errorf("load triggering plantation %s: %w", plantationID, err)
	}
	if origin.Location == nil {
		return nil, fmt.Errorf("plantation %s: %w", plantationID, ErrNoLocation)
	}

	nearby, err := f.plantations.ListWithinRadius(ctx, *origin.Location, f.radius, origin.ID)
	if err != nil {
		return nil, fmt.Errorf("search plantations near %s: %w", plantationID, err)
	}

	result := &Result{Candidates: len(nearby)}
	recipients := make([]*user.User, 0, len(nearby))
	for _, p := range nearby {
		u, err := f.users.Get(ctx, p.UserID)
		if err != nil {
			if !errors.Is(err, user.ErrUserNotFound) {
				f.logger.Warn().Err(err).Str("plantation_id", p.ID).Msg("failed to resolve plantation owner")
			}
			result.Skipped.Unresolved++
			continue
		}
		recipients = append(recipients, u)
	}

	return result, f.deliver(ctx, recipients, origin.UserID, ev, result)
}

// NotifyUsers alerts the given users, each at most once.
func (f *Fanout) NotifyUsers(ctx context.Context, users []*user.User, ev Event) (*Result, error) {
	result := &Result{Candidates: len(users)}
	return result, f.deliver(ctx, users, "", ev, result)
}

func (f *Fanout) deliver(ctx context.Context, users []*user.User, ownerID string, ev Event, result *Result) error {
	title, body := ev.Template.Render(ev.Pathogenic, ev.Culture)
	notified := make(map[string]struct{}, len(users))

	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return err
		}

		switch {
		case ownerID != "" && u.ID == ownerID:
			result.Skipped.Owner++
			continue
		case !u.CanReceivePush():
			result.Skipped.NoToken++
			continue
		}
		if _, ok := notified[u.ID]; ok {
			result.Skipped.Duplicate++
			continue
		}

		logger := f.logger.With().Str("user_id", u.ID).Logger()

		rec := &Record{UserID: u.ID, Message: body}
		if err := f.records.Insert(ctx, rec); err != nil {
			logger.Error().Err(err).Msg("failed to persist notification")
			result.Skipped.PersistFailed++
			continue
		}
		result.Notified++

		err := f.gateway.Send(ctx, push.Message{Token: *u.NotificationToken, Title: title, Body: body})
		if err != nil {
			logger.Warn().Err(err).Str("gateway", f.gateway.Name()).Str("notification_id", rec.ID).Msg("push delivery failed")
			result.DeliveryFailures++
		} else {
			result.Delivered++
		}

		notified[u.ID] = struct{}{}
	}

	return nil
}
