package scrape

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/example/appt-booker/internal/page"
	"github.com/example/appt-booker/internal/slot"
)

const (
	// monthCellSelector matches the month-view date cells; each carries the
	// date as an attribute and an inner button whose accessible label says
	// whether the date has any open times.
	monthCellSelector = `td[data-date]`

	nextMonthSelector = `button[aria-label*="next month"]`
	nextStepSelector  = `button[aria-label*="next"]`

	loadTimeout   = 15 * time.Second
	settleTimeout = 5 * time.Second
)

// Per-view unavailability: this view has nothing, but later views might.
var unavailablePhrases = []string{
	"no availability",
	"no times available",
	"fully booked",
}

// Terminal signal: the page states there is nothing bookable anywhere in the
// foreseeable future. Always short-circuits the search.
var terminalPhrases = []string{
	"no upcoming availability",
	"currently no available appointments",
}

// Result is what one discovery run produced.
type Result struct {
	// Match is set when the calendar-targeted search already matched a
	// preference. The unscoped search leaves it nil and returns every slot
	// of the first non-empty view for downstream matching.
	Match *slot.Slot

	// Slots are all slots seen during the run, for matching and for
	// reporting what was available when nothing matched.
	Slots []slot.Slot

	// Terminal is true when the run stopped on the nothing-anywhere signal.
	Terminal bool
}

// Navigator drives one discovery run over an unbounded calendar. It is not
// reused across runs; step counts and seen slots die with it.
type Navigator struct {
	Page page.Page

	// Horizon caps how many navigation advances (months or weeks) are
	// attempted before giving up.
	Horizon int

	// Observer receives debug snapshots. Nil means no diagnostics.
	Observer page.Observer
}

func (n *Navigator) observer() page.Observer {
	if n.Observer == nil {
		return page.NopObserver()
	}
	return n.Observer
}

// Discover navigates to the booking page and searches for slots. When at
// least one preference resolves to a day of week, the month view is used to
// open only dates on those weekdays; otherwise the current view is scanned
// directly, advancing week by week.
//
// Page interaction failures abort the run and propagate; discovery is never
// retried on error.
func (n *Navigator) Discover(ctx context.Context, bookingURL string, prefs []string) (Result, error) {
	if err := n.Page.Navigate(ctx, bookingURL); err != nil {
		return Result{}, fmt.Errorf("open booking page: %w", err)
	}
	n.Page.WaitVisible(ctx, slotSelector, loadTimeout)
	n.observer().Snapshot(ctx, n.Page, "initial")

	targets := targetWeekdays(prefs)
	if len(targets) > 0 {
		return n.searchByCalendar(ctx, prefs, targets)
	}
	return n.searchUnscoped(ctx)
}

// targetWeekdays resolves the preference list to the set of full weekday
// names worth opening on the month view.
func targetWeekdays(prefs []string) map[string]bool {
	targets := make(map[string]bool)
	for _, p := range prefs {
		if day := slot.DayOfWeek(p); day != "" {
			targets[day] = true
		}
	}
	return targets
}

// searchByCalendar reads the month view, opens only dates falling on a target
// weekday in ascending order, and returns on the first date whose slots match
// any preference. Months advance until the horizon is exhausted.
func (n *Navigator) searchByCalendar(ctx context.Context, prefs []string, targets map[string]bool) (Result, error) {
	var seen []slot.Slot

	for month := 0; month < n.Horizon; month++ {
		text, err := n.Page.Text(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("read month view: %w", err)
		}
		if hasTerminalSignal(text) {
			return Result{Terminal: true}, nil
		}

		dates, err := n.monthDates(ctx)
		if err != nil {
			return Result{}, err
		}

		for _, d := range dates {
			if !d.Available || !targets[d.Weekday] {
				continue
			}
			if err := n.Page.Click(ctx, d.Selector()); err != nil {
				return Result{}, fmt.Errorf("open date %s: %w", d.Raw, err)
			}
			n.Page.WaitVisible(ctx, slotSelector, settleTimeout)

			slots, err := Extract(ctx, n.Page)
			if err != nil {
				return Result{}, err
			}
			seen = append(seen, slots...)

			if m, ok := slot.Match(slots, prefs); ok {
				n.observer().Snapshot(ctx, n.Page, "match")
				return Result{Match: &m, Slots: seen}, nil
			}
		}

		advanced, err := n.advanceMonth(ctx)
		if err != nil {
			return Result{}, err
		}
		if !advanced {
			break
		}
		n.observer().Snapshot(ctx, n.Page, fmt.Sprintf("month-%d", month+1))
	}

	return Result{Slots: seen}, nil
}

// searchUnscoped scans the current view directly and returns every slot of
// the first view that has any, leaving matching to the caller. Empty views
// advance at most once per iteration: the jump-to-next-bookable affordance is
// tried first, then the single-step control, each consuming one horizon unit.
func (n *Navigator) searchUnscoped(ctx context.Context) (Result, error) {
	for step := 0; step < n.Horizon; step++ {
		slots, err := Extract(ctx, n.Page)
		if err != nil {
			return Result{}, err
		}
		if len(slots) > 0 {
			return Result{Slots: slots}, nil
		}

		text, err := n.Page.Text(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("read view: %w", err)
		}
		if hasTerminalSignal(text) {
			return Result{Terminal: true}, nil
		}

		if hasUnavailableSignal(text) {
			log.Printf("scrape: view %d reports no availability", step+1)
		}

		advanced, err := n.tryJump(ctx)
		if err != nil {
			return Result{}, err
		}
		if !advanced {
			advanced, err = n.tryNextStep(ctx)
			if err != nil {
				return Result{}, err
			}
		}
		if !advanced {
			break
		}
		n.observer().Snapshot(ctx, n.Page, fmt.Sprintf("step-%d", step+1))
	}

	return Result{}, nil
}

// tryJump clicks the fast-forward affordance that jumps straight to the next
// view with any availability.
func (n *Navigator) tryJump(ctx context.Context) (bool, error) {
	for _, needle := range []string{"jump to", "next bookable"} {
		ok, err := n.Page.ClickText(ctx, needle)
		if err != nil {
			return false, fmt.Errorf("jump to next bookable: %w", err)
		}
		if ok {
			n.Page.WaitVisible(ctx, slotSelector, settleTimeout)
			return true, nil
		}
	}
	return false, nil
}

// tryNextStep advances the calendar a single unit.
func (n *Navigator) tryNextStep(ctx context.Context) (bool, error) {
	err := n.Page.Click(ctx, nextStepSelector)
	if errors.Is(err, page.ErrNoElement) {
		ok, terr := n.Page.ClickText(ctx, "next")
		if terr != nil {
			return false, fmt.Errorf("step forward: %w", terr)
		}
		if !ok {
			return false, nil
		}
	} else if err != nil {
		return false, fmt.Errorf("step forward: %w", err)
	}
	n.Page.WaitVisible(ctx, slotSelector, settleTimeout)
	return true, nil
}

// advanceMonth moves the month view one month forward.
func (n *Navigator) advanceMonth(ctx context.Context) (bool, error) {
	err := n.Page.Click(ctx, nextMonthSelector)
	if errors.Is(err, page.ErrNoElement) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("advance month: %w", err)
	}
	n.Page.WaitVisible(ctx, monthCellSelector, settleTimeout)
	return true, nil
}

// monthDate is one date cell of the month view.
type monthDate struct {
	Raw       string // the cell's date attribute, as found
	Date      time.Time
	Weekday   string
	Available bool
}

// Selector addresses the cell's button for clicking.
func (d monthDate) Selector() string {
	return fmt.Sprintf(`td[data-date="%s"] button`, d.Raw)
}

// monthDates parses the month view's date cells: which dates exist, whether
// they have any open times, and what weekday they fall on. Cells whose date
// cannot be parsed are skipped. The result is sorted ascending.
func (n *Navigator) monthDates(ctx context.Context) ([]monthDate, error) {
	html, err := n.Page.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("read month view: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse month view: %w", err)
	}

	var out []monthDate
	doc.Find(monthCellSelector).Each(func(_ int, sel *goquery.Selection) {
		raw, _ := sel.Attr("data-date")
		date, ok := parseCellDate(raw)
		if !ok {
			return
		}

		label, _ := sel.Find("button").First().Attr("aria-label")
		weekday := slot.DayOfWeek(label)
		if weekday == "" {
			weekday = date.Weekday().String()
		}

		out = append(out, monthDate{
			Raw:       raw,
			Date:      date,
			Weekday:   weekday,
			Available: !strings.Contains(strings.ToLower(label), "no available"),
		})
	})

	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func parseCellDate(raw string) (time.Time, bool) {
	for _, layout := range []string{"20060102", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func hasTerminalSignal(text string) bool {
	t := strings.ToLower(text)
	for _, p := range terminalPhrases {
		if strings.Contains(t, p) {
			return true
		}
	}
	return false
}

// hasUnavailableSignal reports the per-view "nothing in this view" message.
func hasUnavailableSignal(text string) bool {
	t := strings.ToLower(text)
	for _, p := range unavailablePhrases {
		if strings.Contains(t, p) {
			return true
		}
	}
	return false
}
