package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

// ChromeConfig holds configuration for the chromedp driver.
type ChromeConfig struct {
	// RemoteURL is the DevTools websocket of an already running browser
	// (e.g. ws://chrome:9222). Empty launches a local headless Chrome.
	RemoteURL string

	// WindowWidth and WindowHeight pin the viewport so the desktop layout renders.
	// Default: 1920x1080
	WindowWidth  int
	WindowHeight int

	// UserAgent overrides the spoofed agent. Default: ProcessUserAgent().
	UserAgent string

	// NavigateTimeout bounds page loads and script evaluation.
	// Default: 60 seconds
	NavigateTimeout time.Duration

	Logger zerolog.Logger
}

// ChromeDriver opens chromedp sessions.
type ChromeDriver struct {
	cfg    ChromeConfig
	logger zerolog.Logger
}

// NewChromeDriver creates a driver with defaults applied.
func NewChromeDriver(cfg ChromeConfig) *ChromeDriver {
	if cfg.WindowWidth <= 0 {
		cfg.WindowWidth = 1920
	}
	if cfg.WindowHeight <= 0 {
		cfg.WindowHeight = 1080
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = ProcessUserAgent()
	}
	if cfg.NavigateTimeout <= 0 {
		cfg.NavigateTimeout = 60 * time.Second
	}

	return &ChromeDriver{
		cfg:    cfg,
		logger: cfg.Logger.With().Str("component", "browser").Logger(),
	}
}

// allocatorOptions returns the flags for a locally launched browser.
func (d *ChromeDriver) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	return append(opts,
		chromedp.Headless,
		chromedp.DisableGPU,
		chromedp.Flag("disable-remote-fonts", true),
		chromedp.UserAgent(d.cfg.UserAgent),
		chromedp.WindowSize(d.cfg.WindowWidth, d.cfg.WindowHeight),
	)
}

// Open launches or attaches to a browser and creates a fresh tab.
// The session is bound to ctx: cancelling ctx tears the tab down.
func (d *ChromeDriver) Open(ctx context.Context) (Session, error) {
	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if d.cfg.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, d.cfg.RemoteURL)
	} else {
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, d.allocatorOptions()...)
	}

	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...any) {
			d.logger.Debug().Msgf(format, args...)
		}),
	)

	setup := []chromedp.Action{
		chromedp.EmulateViewport(int64(d.cfg.WindowWidth), int64(d.cfg.WindowHeight)),
	}
	if d.cfg.RemoteURL != "" {
		// Launch flags do not apply to a remote browser.
		setup = append(setup, emulation.SetUserAgentOverride(d.cfg.UserAgent))
	}

	if err := chromedp.Run(tabCtx, setup...); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("%w: %v", ErrSession, err)
	}

	d.logger.Debug().
		Bool("remote", d.cfg.RemoteURL != "").
		Str("user_agent", d.cfg.UserAgent).
		Msg("browser session opened")

	return &chromeSession{
		ctx:             tabCtx,
		navigateTimeout: d.cfg.NavigateTimeout,
		cancel: func() {
			tabCancel()
			allocCancel()
		},
	}, nil
}

type chromeSession struct {
	ctx             context.Context
	cancel          context.CancelFunc
	navigateTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

// run executes actions on the tab bounded by timeout and by the caller's ctx.
func (s *chromeSession) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}

	runCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case s.ctx.Err() != nil:
		return fmt.Errorf("%w: %v", ErrSession, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w after %s", ErrTimeout, timeout)
	default:
		return err
	}
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, s.navigateTimeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (s *chromeSession) Click(ctx context.Context, selector string, timeout time.Duration) error {
	if err := s.run(ctx, timeout, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("click %q: %w", selector, err)
	}
	return nil
}

func (s *chromeSession) SetDateFilter(ctx context.Context, selector, isoDate string) error {
	script, err := dateFilterScript(selector, isoDate)
	if err != nil {
		return err
	}

	var found bool
	if err := s.run(ctx, s.navigateTimeout, chromedp.Evaluate(script, &found)); err != nil {
		return fmt.Errorf("set date filter: %w", err)
	}
	if !found {
		return fmt.Errorf("set date filter: %w: %s", ErrElementNotFound, selector)
	}
	return nil
}

func (s *chromeSession) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	if err := s.run(ctx, timeout, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait for %q: %w", selector, err)
	}
	return nil
}

func (s *chromeSession) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, s.navigateTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("extract html: %w", err)
	}
	return html, nil
}

func (s *chromeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	s.cancel()
	return nil
}

// dateFilterScript builds the script that sets an input's value the way a
// user would. The page listens for input events and ignores plain DOM writes,
// so the native HTMLInputElement setter is invoked before dispatching.
func dateFilterScript(selector, isoDate string) (string, error) {
	if _, err := time.Parse(time.DateOnly, isoDate); err != nil {
		return "", fmt.Errorf("invalid date %q: %w", isoDate, err)
	}

	sel, err := json.Marshal(selector)
	if err != nil {
		return "", err
	}
	date, err := json.Marshal(isoDate)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(`(() => {
  const input = document.querySelector(%s);
  if (!input) return false;
  const setter = Object.getOwnPropertyDescriptor(window.HTMLInputElement.prototype, "value").set;
  setter.call(input, %s);
  input.dispatchEvent(new Event("input", { bubbles: true }));
  return true;
})()`, sel, date), nil
}
