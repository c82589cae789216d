// Package pagetest provides a scripted in-memory page.Page for testing the
// discovery and booking core without a browser. A fake page is a set of named
// views plus transitions: clicking a known selector (or text needle) moves the
// page to another view, exactly like the real calendar UI does.
package pagetest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/appt-booker/internal/page"
)

// View is one page state.
type View struct {
	HTML   string
	Text   string
	Inputs []page.Input

	// Goto maps click keys to the next view's name. Keys are the raw
	// selector for Click, "<selector>@<n>" for ClickNth, and
	// "text:<substr>" (lower case) for ClickText. A key mapping to ""
	// stays on the current view.
	Goto map[string]string
}

// Page is a scripted page.Page implementation.
type Page struct {
	Views   map[string]*View
	Start   string            // view shown after Navigate
	URLs    map[string]string // optional URL -> view overrides

	Current string
	Filled  map[int]string
	Log     []string // navigation and click history, in order
	Closed  bool

	// Err, when set, makes every subsequent call fail with it. Used to
	// exercise the page-interaction-failure paths.
	Err error
}

var _ page.Page = (*Page)(nil)

func (p *Page) view() *View {
	v, ok := p.Views[p.Current]
	if !ok {
		return &View{}
	}
	return v
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	if p.Err != nil {
		return p.Err
	}
	target := p.Start
	if v, ok := p.URLs[url]; ok {
		target = v
	}
	p.Current = target
	p.Log = append(p.Log, "navigate:"+target)
	return nil
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	if p.Err != nil {
		return "", p.Err
	}
	return p.view().HTML, nil
}

func (p *Page) Text(ctx context.Context) (string, error) {
	if p.Err != nil {
		return "", p.Err
	}
	return p.view().Text, nil
}

func (p *Page) transition(key string) bool {
	next, ok := p.view().Goto[key]
	if !ok {
		return false
	}
	p.Log = append(p.Log, "click:"+key)
	if next != "" {
		p.Current = next
	}
	return true
}

func (p *Page) Click(ctx context.Context, selector string) error {
	if p.Err != nil {
		return p.Err
	}
	if !p.transition(selector) {
		return fmt.Errorf("%w: %s", page.ErrNoElement, selector)
	}
	return nil
}

func (p *Page) ClickNth(ctx context.Context, selector string, n int) error {
	if p.Err != nil {
		return p.Err
	}
	if !p.transition(fmt.Sprintf("%s@%d", selector, n)) {
		return fmt.Errorf("%w: %s[%d]", page.ErrNoElement, selector, n)
	}
	return nil
}

func (p *Page) ClickText(ctx context.Context, substr string) (bool, error) {
	if p.Err != nil {
		return false, p.Err
	}
	return p.transition("text:" + strings.ToLower(substr)), nil
}

func (p *Page) WaitVisible(ctx context.Context, selector string, timeout time.Duration) bool {
	return p.Err == nil
}

func (p *Page) Inputs(ctx context.Context) ([]page.Input, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	return append([]page.Input(nil), p.view().Inputs...), nil
}

func (p *Page) Fill(ctx context.Context, index int, value string) error {
	if p.Err != nil {
		return p.Err
	}
	if index < 0 || index >= len(p.view().Inputs) {
		return fmt.Errorf("%w: input %d", page.ErrNoElement, index)
	}
	if p.Filled == nil {
		p.Filled = map[int]string{}
	}
	p.Filled[index] = value
	return nil
}

func (p *Page) Close(ctx context.Context) error {
	p.Closed = true
	return nil
}
