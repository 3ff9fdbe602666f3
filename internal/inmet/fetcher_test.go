package inmet_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cropi/cropi/internal/browser"
	"github.com/cropi/cropi/internal/inmet"
)

// fakeSession records the steps a fetch performs.
type fakeSession struct {
	html     string
	waitErr  error
	clickErr error

	mu     sync.Mutex
	calls  []string
	date   string
	closed bool
}

func (s *fakeSession) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *fakeSession) Navigate(_ context.Context, url string) error {
	s.record("navigate " + url)
	return nil
}

func (s *fakeSession) Click(_ context.Context, selector string, _ time.Duration) error {
	s.record("click " + selector)
	return s.clickErr
}

func (s *fakeSession) SetDateFilter(_ context.Context, selector, isoDate string) error {
	s.record("date " + selector)
	s.date = isoDate
	return nil
}

func (s *fakeSession) WaitFor(_ context.Context, selector string, _ time.Duration) error {
	s.record("wait " + selector)
	return s.waitErr
}

func (s *fakeSession) HTML(context.Context) (string, error) {
	s.record("html")
	return s.html, nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

// fakeDriver hands out sessions in order; once exhausted it repeats the last.
type fakeDriver struct {
	mu       sync.Mutex
	sessions []*fakeSession
	opened   int
	openErr  error
}

func (d *fakeDriver) Open(context.Context) (browser.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.openErr != nil {
		return nil, d.openErr
	}
	idx := min(d.opened, len(d.sessions)-1)
	d.opened++
	return d.sessions[idx], nil
}

func newFetcher(d browser.Driver, retries uint64) *inmet.Fetcher {
	return inmet.NewFetcher(inmet.FetcherConfig{
		Driver:        d,
		StationURL:    "https://example.test/station/",
		RenderTimeout: time.Second,
		MaxRetries:    retries,
		RetryInterval: time.Millisecond,
		Logger:        zerolog.Nop(),
	})
}

func TestFetcher_Fetch(t *testing.T) {
	session := &fakeSession{html: table(
		row("02/03/2024", "0010", "19,0"),
		row("01/03/2024", "2350", "18,0"),
	)}
	d := &fakeDriver{sessions: []*fakeSession{session}}

	since := time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC)
	readings, err := newFetcher(d, 0).Fetch(context.Background(), " A801 ", since)
	require.NoError(t, err)

	require.Len(t, readings, 2)
	assert.True(t, readings[0].Timestamp.Before(readings[1].Timestamp))

	assert.Equal(t, "2024-03-01", session.date)
	assert.Equal(t, []string{
		"navigate https://example.test/station/A801",
		"click " + inmet.MenuToggleSelector,
		"date " + inmet.DateInputSelector,
		"click " + inmet.ConfirmButtonSelector,
		"wait " + inmet.TableBodySelector,
		"html",
	}, session.calls)
	assert.True(t, session.closed)
}

func TestFetcher_Fetch_EmptyCode(t *testing.T) {
	d := &fakeDriver{sessions: []*fakeSession{{}}}

	_, err := newFetcher(d, 0).Fetch(context.Background(), "  ", time.Now())
	assert.ErrorIs(t, err, inmet.ErrInvalidStation)
	assert.Zero(t, d.opened)
}

func TestFetcher_Fetch_TimeoutNoRetryByDefault(t *testing.T) {
	session := &fakeSession{waitErr: browser.ErrTimeout}
	d := &fakeDriver{sessions: []*fakeSession{session}}

	_, err := newFetcher(d, 0).Fetch(context.Background(), "A801", time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, browser.ErrTimeout)
	assert.Equal(t, 1, d.opened)
	assert.True(t, session.closed)
}

func TestFetcher_Fetch_RetriesTimeout(t *testing.T) {
	slow := &fakeSession{waitErr: browser.ErrTimeout}
	ok := &fakeSession{html: table(row("01/03/2024", "1400", "18,2"))}
	d := &fakeDriver{sessions: []*fakeSession{slow, ok}}

	readings, err := newFetcher(d, 2).Fetch(context.Background(), "A801", time.Now())
	require.NoError(t, err)
	assert.Len(t, readings, 1)
	assert.Equal(t, 2, d.opened)
	assert.True(t, slow.closed)
	assert.True(t, ok.closed)
}

func TestFetcher_Fetch_DoesNotRetryOtherErrors(t *testing.T) {
	session := &fakeSession{clickErr: browser.ErrElementNotFound}
	d := &fakeDriver{sessions: []*fakeSession{session}}

	_, err := newFetcher(d, 3).Fetch(context.Background(), "A801", time.Now())
	assert.ErrorIs(t, err, browser.ErrElementNotFound)
	assert.Equal(t, 1, d.opened)
}

func TestFetcher_Fetch_SessionUnavailable(t *testing.T) {
	d := &fakeDriver{openErr: errors.Join(browser.ErrSession, errors.New("dial tcp: refused"))}

	_, err := newFetcher(d, 3).Fetch(context.Background(), "A801", time.Now())
	assert.ErrorIs(t, err, browser.ErrSession)
	assert.Equal(t, 0, d.opened)
}

func TestFetcher_Fetch_ParseError(t *testing.T) {
	session := &fakeSession{html: table(row("bad", "1400", "18,2"))}
	d := &fakeDriver{sessions: []*fakeSession{session}}

	_, err := newFetcher(d, 3).Fetch(context.Background(), "A801", time.Now())
	assert.ErrorIs(t, err, inmet.ErrParse)
	assert.Equal(t, 1, d.opened)
}

func TestFetcher_FetchCatalog(t *testing.T) {
	session := &fakeSession{html: catalogHTML}
	d := &fakeDriver{sessions: []*fakeSession{session}}

	f := inmet.NewFetcher(inmet.FetcherConfig{Driver: d, Logger: zerolog.Nop()})
	entries, err := f.FetchCatalog(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, []string{
		"navigate " + inmet.DefaultCatalogURL,
		"wait " + inmet.CatalogTableSelector,
		"html",
	}, session.calls)
	assert.True(t, session.closed)
}
