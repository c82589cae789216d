// Package page defines the capability surface the discovery and booking core
// needs from a rendered booking page. The core only ever talks to this
// interface; the real browser implementation lives in internal/browser and
// tests substitute a scripted fake.
package page

import (
	"context"
	"errors"
	"time"
)

// ErrNoElement is returned by Click and ClickNth when nothing on the current
// view matches the selector. Callers that treat a missing affordance as "try
// something else" test for it with errors.Is; any other error is a real page
// interaction failure.
var ErrNoElement = errors.New("page: no element matches selector")

// Page is one live browser page. Every call may suspend; none are
// instantaneous. Implementations are not safe for concurrent use -- a page is
// owned by exactly one discovery-and-booking run at a time.
type Page interface {
	// Navigate loads the given URL and waits for the document to settle.
	Navigate(ctx context.Context, url string) error

	// HTML returns the current document markup.
	HTML(ctx context.Context) (string, error)

	// Text returns the visible text of the current view.
	Text(ctx context.Context) (string, error)

	// Click clicks the first element matching the CSS selector.
	Click(ctx context.Context, selector string) error

	// ClickNth clicks the nth (0-based) element matching the selector.
	ClickNth(ctx context.Context, selector string, n int) error

	// ClickText clicks the first clickable element whose text contains
	// substr, case-insensitively. It reports false, nil when nothing
	// matched; errors are reserved for page interaction failures.
	ClickText(ctx context.Context, substr string) (bool, error)

	// WaitVisible waits until an element matching selector is visible or
	// the timeout elapses. A timeout is not an error; callers proceed with
	// whatever the page shows.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) bool

	// Inputs enumerates the visible input fields of the current view in
	// document order.
	Inputs(ctx context.Context) ([]Input, error)

	// Fill sets the value of the visible input at index, firing whatever
	// change events the page needs to notice the value.
	Fill(ctx context.Context, index int, value string) error

	// Close releases the page and its browser resources.
	Close(ctx context.Context) error
}

// Input describes one visible input field on the current view.
type Input struct {
	Index       int
	Type        string
	Name        string
	ID          string
	Placeholder string

	// Label is nearby label text, gathered by walking a few ancestor
	// elements. Used for keyword-based form filling when the field layout
	// is not the expected one.
	Label string
}

// Screenshotter is implemented by pages that can capture a rendered image.
type Screenshotter interface {
	Screenshot(ctx context.Context, path string) error
}

// Observer receives debug snapshots at interesting points of a run. The
// default observer does nothing; diagnostics are opt-in, never part of the
// algorithm.
type Observer interface {
	Snapshot(ctx context.Context, p Page, tag string)
}

type nopObserver struct{}

func (nopObserver) Snapshot(context.Context, Page, string) {}

// NopObserver returns an Observer that discards every snapshot.
func NopObserver() Observer { return nopObserver{} }
