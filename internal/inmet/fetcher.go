package inmet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/cropi/cropi/internal/browser"
)

// Default portal locations.
const (
	DefaultStationURL = "https://tempo.inmet.gov.br/TabelaEstacoes/"
	DefaultCatalogURL = "https://portal.inmet.gov.br/paginas/catalogoaut"
)

// FetcherConfig holds configuration for a Fetcher.
type FetcherConfig struct {
	Driver browser.Driver

	// StationURL is prefixed to the station code.
	// Default: DefaultStationURL
	StationURL string

	// CatalogURL is the automatic station catalog page.
	// Default: DefaultCatalogURL
	CatalogURL string

	// RenderTimeout bounds each wait for a page element.
	// Default: 60 seconds (10 seconds for the catalog table)
	RenderTimeout time.Duration

	// FetchTimeout bounds a whole fetch including retries. Zero disables it.
	FetchTimeout time.Duration

	// MaxRetries is the number of extra attempts after a render timeout.
	// Default: 0 (no retry)
	MaxRetries uint64

	// RetryInterval is the initial backoff between attempts.
	// Default: 2 seconds
	RetryInterval time.Duration

	// Location interprets the naive table timestamps.
	// Default: UTC
	Location *time.Location

	Logger zerolog.Logger
}

// Fetcher scrapes station tables through a browser driver. It holds no
// session between calls and is safe for concurrent use when the driver is.
type Fetcher struct {
	driver browser.Driver
	cfg    FetcherConfig
	logger zerolog.Logger
}

// NewFetcher creates a fetcher, filling in defaults.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.StationURL == "" {
		cfg.StationURL = DefaultStationURL
	}
	if cfg.CatalogURL == "" {
		cfg.CatalogURL = DefaultCatalogURL
	}
	if cfg.RenderTimeout == 0 {
		cfg.RenderTimeout = 60 * time.Second
	}
	if cfg.RetryInterval == 0 {
		cfg.RetryInterval = 2 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	return &Fetcher{
		driver: cfg.Driver,
		cfg:    cfg,
		logger: cfg.Logger.With().Str("component", "inmet_fetcher").Logger(),
	}
}

// Location returns the zone table timestamps are interpreted in.
func (f *Fetcher) Location() *time.Location {
	return f.cfg.Location
}

// Fetch opens the station page, filters it to start at the calendar date of
// since and returns the rendered readings in chronological order.
//
// Render timeouts are retried up to MaxRetries times with exponential
// backoff; session and parse failures are returned immediately.
func (f *Fetcher) Fetch(ctx context.Context, stationCode string, since time.Time) ([]StationReading, error) {
	code := strings.TrimSpace(stationCode)
	if code == "" {
		return nil, ErrInvalidStation
	}

	if f.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.FetchTimeout)
		defer cancel()
	}

	startDate := since.In(f.cfg.Location).Format(time.DateOnly)
	logger := f.logger.With().Str("station", code).Str("start_date", startDate).Logger()

	var readings []StationReading
	operation := func() error {
		var err error
		readings, err = f.fetchOnce(ctx, code, startDate)
		if err != nil && !errors.Is(err, browser.ErrTimeout) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		logger.Warn().Err(err).Dur("retry_in", wait).Msg("station table did not render, retrying")
	}

	if err := backoff.RetryNotify(operation, f.retryPolicy(ctx), notify); err != nil {
		return nil, fmt.Errorf("fetch station %s: %w", code, err)
	}

	logger.Debug().Int("readings", len(readings)).Msg("station table fetched")
	return readings, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, code, startDate string) ([]StationReading, error) {
	var html string
	err := browser.With(ctx, f.driver, func(s browser.Session) error {
		if err := s.Navigate(ctx, f.cfg.StationURL+code); err != nil {
			return err
		}
		if err := s.Click(ctx, MenuToggleSelector, f.cfg.RenderTimeout); err != nil {
			return fmt.Errorf("open filter menu: %w", err)
		}
		if err := s.SetDateFilter(ctx, DateInputSelector, startDate); err != nil {
			return fmt.Errorf("set start date: %w", err)
		}
		if err := s.Click(ctx, ConfirmButtonSelector, f.cfg.RenderTimeout); err != nil {
			return fmt.Errorf("confirm filter: %w", err)
		}
		if err := s.WaitFor(ctx, TableBodySelector, f.cfg.RenderTimeout); err != nil {
			return fmt.Errorf("wait for table: %w", err)
		}

		var err error
		html, err = s.HTML(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	return ParseStationTable(html, f.cfg.Location)
}

// FetchCatalog scrapes the automatic station catalog.
func (f *Fetcher) FetchCatalog(ctx context.Context) ([]CatalogEntry, error) {
	if f.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.FetchTimeout)
		defer cancel()
	}

	var html string
	err := browser.With(ctx, f.driver, func(s browser.Session) error {
		if err := s.Navigate(ctx, f.cfg.CatalogURL); err != nil {
			return err
		}
		if err := s.WaitFor(ctx, CatalogTableSelector, min(f.cfg.RenderTimeout, 10*time.Second)); err != nil {
			return fmt.Errorf("wait for catalog: %w", err)
		}

		var err error
		html, err = s.HTML(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}

	entries, skipped, err := ParseCatalog(html)
	if err != nil {
		return nil, err
	}
	if len(skipped) > 0 {
		f.logger.Warn().Strs("rows", skipped).Msg("skipped unparsable catalog rows")
	}

	return entries, nil
}

func (f *Fetcher) retryPolicy(ctx context.Context) backoff.BackOff {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = f.cfg.RetryInterval
	expo.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(expo, f.cfg.MaxRetries), ctx)
}
