// Package booking drives the form-fill-and-submit protocol for a chosen slot
// and wraps one whole discovery-plus-booking attempt into a reportable
// outcome.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/example/appt-booker/internal/page"
	"github.com/example/appt-booker/internal/slot"
)

const slotSelector = `button[data-date-time]`

var displayTimePattern = regexp.MustCompile(`(?i)(\d{1,2}:\d{2}\s*(?:am|pm))`)

var submitKeywords = []string{"book", "confirm", "submit", "schedule"}

var successKeywords = []string{"confirmed", "booked", "scheduled", "thank you", "success"}

// UserInfo carries the identity fields the booking form asks for.
type UserInfo struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// Booker executes the booking micro-protocol against an already-positioned
// page: the view showing the chosen slot must still be open.
type Booker struct {
	Page     page.Page
	Observer page.Observer

	// SettleDelay is how long to wait after submitting before reading the
	// confirmation text. Zero means the default.
	SettleDelay time.Duration

	// FormTimeout bounds the wait for the booking form to appear. Zero
	// means the default.
	FormTimeout time.Duration
}

func (b *Booker) observer() page.Observer {
	if b.Observer == nil {
		return page.NopObserver()
	}
	return b.Observer
}

func (b *Booker) settleDelay() time.Duration {
	if b.SettleDelay > 0 {
		return b.SettleDelay
	}
	return 3 * time.Second
}

func (b *Booker) formTimeout() time.Duration {
	if b.FormTimeout > 0 {
		return b.FormTimeout
	}
	return 10 * time.Second
}

// Book selects the slot, fills the booking form, submits it and verifies
// success from the resulting page text. Every failure -- including page
// interaction errors -- is reduced to a false return; a half-filled form must
// never take the whole run down.
func (b *Booker) Book(ctx context.Context, s slot.Slot, u UserInfo) bool {
	if err := b.selectSlot(ctx, s); err != nil {
		log.Printf("booking: select slot %q: %v", s.DisplayText, err)
		return false
	}

	b.Page.WaitVisible(ctx, "input", b.formTimeout())
	b.observer().Snapshot(ctx, b.Page, "form")

	if err := b.fillForm(ctx, u); err != nil {
		log.Printf("booking: fill form: %v", err)
		b.observer().Snapshot(ctx, b.Page, "form-failed")
		return false
	}
	b.observer().Snapshot(ctx, b.Page, "form-filled")

	if err := b.submit(ctx); err != nil {
		log.Printf("booking: submit: %v", err)
		return false
	}

	b.wait(ctx, b.settleDelay())
	b.observer().Snapshot(ctx, b.Page, "confirmation")

	ok, err := b.verifySuccess(ctx)
	if err != nil {
		log.Printf("booking: verify: %v", err)
		return false
	}
	return ok
}

// selectSlot clicks the chosen slot by its timestamp handle when present,
// then by its position among slot buttons, then by a text scan -- first
// success wins.
func (b *Booker) selectSlot(ctx context.Context, s slot.Slot) error {
	if s.Timestamp != 0 {
		err := b.Page.Click(ctx, fmt.Sprintf(`button[data-date-time="%d"]`, s.Timestamp))
		if err == nil {
			return nil
		}
		if !errors.Is(err, page.ErrNoElement) {
			return err
		}
	}

	if s.Index >= 0 {
		err := b.Page.ClickNth(ctx, slotSelector, s.Index)
		if err == nil {
			return nil
		}
		if !errors.Is(err, page.ErrNoElement) {
			return err
		}
	}

	if m := displayTimePattern.FindString(s.DisplayText); m != "" {
		ok, err := b.Page.ClickText(ctx, strings.ToLower(m))
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return fmt.Errorf("no clickable element for slot")
}

// fillForm sets the identity fields. With the expected four visible inputs
// the form is filled by fixed position (first name, last name, email, phone);
// otherwise fields are located by nearby label text. At least three of the
// four fields must be set for the fill to count.
func (b *Booker) fillForm(ctx context.Context, u UserInfo) error {
	inputs, err := b.Page.Inputs(ctx)
	if err != nil {
		return err
	}

	var filled int
	if len(inputs) >= 4 {
		for i, value := range []string{u.FirstName, u.LastName, u.Email} {
			if err := b.Page.Fill(ctx, inputs[i].Index, value); err == nil {
				filled++
			}
		}
		if u.Phone != "" {
			_ = b.Page.Fill(ctx, inputs[3].Index, u.Phone)
		}
	} else {
		fields := []struct {
			value    string
			patterns []string
			exclude  []string
		}{
			{u.FirstName, []string{"first name", "first", "given"}, []string{"last", "email"}},
			{u.LastName, []string{"last name", "last", "surname", "family"}, []string{"email"}},
			{u.Email, []string{"email"}, nil},
		}
		for _, f := range fields {
			in, ok := findByLabel(inputs, f.patterns, f.exclude)
			if !ok {
				continue
			}
			if err := b.Page.Fill(ctx, in.Index, f.value); err == nil {
				filled++
			}
		}
		if u.Phone != "" {
			if in, ok := findByLabel(inputs, []string{"phone", "tel"}, []string{"email"}); ok {
				_ = b.Page.Fill(ctx, in.Index, u.Phone)
			}
		}
	}

	if filled < 3 {
		return fmt.Errorf("only %d of the required fields could be set", filled)
	}
	return nil
}

// findByLabel returns the first input whose nearby label text contains one of
// the patterns and none of the excluded words.
func findByLabel(inputs []page.Input, patterns, exclude []string) (page.Input, bool) {
	for _, in := range inputs {
		label := strings.ToLower(in.Label + " " + in.Placeholder + " " + in.Name)
		if containsAny(label, exclude) {
			continue
		}
		if containsAny(label, patterns) {
			return in, true
		}
	}
	return page.Input{}, false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// submit locates the submission control by keyword scan and activates it.
func (b *Booker) submit(ctx context.Context) error {
	for _, kw := range submitKeywords {
		ok, err := b.Page.ClickText(ctx, kw)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return fmt.Errorf("no submission control found")
}

// verifySuccess reads the resulting page text; any one success keyword is
// sufficient evidence the booking went through.
func (b *Booker) verifySuccess(ctx context.Context) (bool, error) {
	text, err := b.Page.Text(ctx)
	if err != nil {
		return false, err
	}
	t := strings.ToLower(text)
	for _, kw := range successKeywords {
		if strings.Contains(t, kw) {
			return true, nil
		}
	}
	return false, nil
}

func (b *Booker) wait(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
