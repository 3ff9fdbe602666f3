// Package browser drives a remote Chrome session used to scrape
// JavaScript-rendered pages.
//
// A Session carries one "current page" and must not be shared between
// goroutines. Callers open one session per fetch and always Close it, even
// after a failed step: an interrupted navigation leaves the page in an
// undefined state and the session is not reusable.
package browser

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrSession is returned when the browser cannot be launched or reached.
	ErrSession = errors.New("browser session unavailable")

	// ErrTimeout is returned when an element does not render in time.
	ErrTimeout = errors.New("timed out waiting for page")

	// ErrElementNotFound is returned when a scripted input target is missing.
	ErrElementNotFound = errors.New("element not found")

	// ErrClosed is returned when a closed session is used.
	ErrClosed = errors.New("session closed")
)

// Driver opens browser sessions.
type Driver interface {
	// Open starts a new session. Failures wrap ErrSession.
	Open(ctx context.Context) (Session, error)
}

// Session is a single-use browser tab.
type Session interface {
	// Navigate loads url and waits for the document to be ready.
	Navigate(ctx context.Context, url string) error

	// Click waits up to timeout for selector to become visible and clicks it.
	Click(ctx context.Context, selector string, timeout time.Duration) error

	// SetDateFilter assigns isoDate (YYYY-MM-DD) to the input matched by selector
	// through the native value setter and dispatches a bubbling input event.
	SetDateFilter(ctx context.Context, selector, isoDate string) error

	// WaitFor blocks until selector is present in the DOM. Returns ErrTimeout
	// when timeout elapses.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error

	// HTML returns the current document markup.
	HTML(ctx context.Context) (string, error)

	// Close releases the tab and, for locally launched browsers, the process.
	Close() error
}

// With opens a session, runs fn and closes the session whatever fn returns.
func With(ctx context.Context, d Driver, fn func(Session) error) (err error) {
	s, err := d.Open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil && !errors.Is(cerr, ErrClosed) {
			err = cerr
		}
	}()

	return fn(s)
}
