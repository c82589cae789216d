// Package browser implements the page capability surface on a real Chromium
// instance driven through Playwright. Browsers must be installed once with:
//
//	go run github.com/playwright-community/playwright-go/cmd/playwright@latest install chromium
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/example/appt-booker/internal/page"
)

// clickableSelector covers the elements a text-scan click considers.
const clickableSelector = `button, [role="button"], [role="option"], a, input[type="submit"]`

const visibleInputSelector = `input:visible`

// labelScript recovers nearby label text for an input, preferring an
// associated <label> and falling back to a short ancestor walk.
const labelScript = `el => {
	if (el.labels && el.labels.length > 0) return el.labels[0].innerText;
	let node = el.parentElement;
	for (let i = 0; i < 3 && node; i++) {
		const lab = node.querySelector('label');
		if (lab) return lab.innerText;
		node = node.parentElement;
	}
	return '';
}`

// Options configures a launched browser.
type Options struct {
	Headless bool
}

// Browser owns the Playwright runtime and one Chromium instance. Pages are
// created per run and closed by their owners.
type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
}

// Launch starts Playwright and a Chromium browser.
func Launch(opts Options) (*Browser, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	bctx, err := b.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: 1280, Height: 900},
	})
	if err != nil {
		b.Close()
		pw.Stop()
		return nil, fmt.Errorf("create browser context: %w", err)
	}

	return &Browser{pw: pw, browser: b, context: bctx}, nil
}

// NewPage opens a fresh page for one discovery-and-booking run.
func (b *Browser) NewPage() (*Page, error) {
	p, err := b.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	p.SetDefaultTimeout(30000)
	p.SetDefaultNavigationTimeout(60000)
	return &Page{page: p}, nil
}

// Close tears down the browser and the Playwright runtime, inner resources
// first.
func (b *Browser) Close() error {
	if b.context != nil {
		b.context.Close()
	}
	if b.browser != nil {
		b.browser.Close()
	}
	if b.pw != nil {
		return b.pw.Stop()
	}
	return nil
}

// Page adapts one Playwright page to the capability interface the core
// consumes.
type Page struct {
	page playwright.Page
}

var _ page.Page = (*Page)(nil)
var _ page.Screenshotter = (*Page)(nil)

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(60000),
	})
	if err != nil {
		return fmt.Errorf("goto %s: %w", url, err)
	}
	return nil
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	html, err := p.page.Content()
	if err != nil {
		return "", fmt.Errorf("read page content: %w", err)
	}
	return html, nil
}

func (p *Page) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := p.page.Locator("body").InnerText()
	if err != nil {
		return "", fmt.Errorf("read page text: %w", err)
	}
	return text, nil
}

func (p *Page) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	loc := p.page.Locator(selector)
	n, err := loc.Count()
	if err != nil {
		return fmt.Errorf("query %s: %w", selector, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", page.ErrNoElement, selector)
	}
	if err := loc.First().Click(playwright.LocatorClickOptions{Timeout: playwright.Float(5000)}); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

func (p *Page) ClickNth(ctx context.Context, selector string, n int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	loc := p.page.Locator(selector)
	count, err := loc.Count()
	if err != nil {
		return fmt.Errorf("query %s: %w", selector, err)
	}
	if n < 0 || n >= count {
		return fmt.Errorf("%w: %s[%d]", page.ErrNoElement, selector, n)
	}
	if err := loc.Nth(n).Click(playwright.LocatorClickOptions{Timeout: playwright.Float(5000)}); err != nil {
		return fmt.Errorf("click %s[%d]: %w", selector, n, err)
	}
	return nil
}

func (p *Page) ClickText(ctx context.Context, substr string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	needle := strings.ToLower(substr)
	loc := p.page.Locator(clickableSelector)
	count, err := loc.Count()
	if err != nil {
		return false, fmt.Errorf("query clickables: %w", err)
	}
	for i := 0; i < count; i++ {
		el := loc.Nth(i)
		text, err := el.InnerText(playwright.LocatorInnerTextOptions{Timeout: playwright.Float(1000)})
		if err != nil {
			continue
		}
		if !strings.Contains(strings.ToLower(text), needle) {
			continue
		}
		if err := el.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(5000)}); err != nil {
			return false, fmt.Errorf("click element with text %q: %w", substr, err)
		}
		return true, nil
	}
	return false, nil
}

func (p *Page) WaitVisible(ctx context.Context, selector string, timeout time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	err := p.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	return err == nil
}

func (p *Page) Inputs(ctx context.Context) ([]page.Input, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	loc := p.page.Locator(visibleInputSelector)
	count, err := loc.Count()
	if err != nil {
		return nil, fmt.Errorf("query inputs: %w", err)
	}

	var out []page.Input
	for i := 0; i < count; i++ {
		el := loc.Nth(i)
		in := page.Input{Index: i}
		in.Type, _ = el.GetAttribute("type")
		if skipInputType(in.Type) {
			continue
		}
		in.Name, _ = el.GetAttribute("name")
		in.ID, _ = el.GetAttribute("id")
		in.Placeholder, _ = el.GetAttribute("placeholder")
		if v, err := el.Evaluate(labelScript, nil); err == nil {
			if s, ok := v.(string); ok {
				in.Label = strings.TrimSpace(s)
			}
		}
		out = append(out, in)
	}
	return out, nil
}

func skipInputType(t string) bool {
	switch strings.ToLower(t) {
	case "hidden", "submit", "button", "checkbox", "radio", "file", "image", "reset":
		return true
	}
	return false
}

func (p *Page) Fill(ctx context.Context, index int, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	loc := p.page.Locator(visibleInputSelector)
	count, err := loc.Count()
	if err != nil {
		return fmt.Errorf("query inputs: %w", err)
	}
	if index < 0 || index >= count {
		return fmt.Errorf("%w: input %d", page.ErrNoElement, index)
	}
	if err := loc.Nth(index).Fill(value, playwright.LocatorFillOptions{Timeout: playwright.Float(5000)}); err != nil {
		return fmt.Errorf("fill input %d: %w", index, err)
	}
	return nil
}

func (p *Page) Screenshot(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("screenshot: %w", err)
	}
	return nil
}

func (p *Page) Close(ctx context.Context) error {
	return p.page.Close()
}
