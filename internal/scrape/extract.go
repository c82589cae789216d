// Package scrape discovers bookable slots on a calendar booking page: it
// extracts slot records out of a view and drives the navigation across weeks
// and months until something matches a preference or the search horizon runs
// out.
package scrape

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/example/appt-booker/internal/page"
	"github.com/example/appt-booker/internal/slot"
)

// slotSelector matches the calendar's appointment buttons, which carry the
// slot's epoch-millisecond timestamp as an attribute.
const slotSelector = `button[data-date-time]`

// Matches text that is exactly one time, e.g. "3:30 pm" or "10am". Used by
// the fallback extraction to pick time buttons out of generic clickables.
var timeOnlyPattern = regexp.MustCompile(`(?i)^(\d{1,2}):?(\d{2})?\s*(am|pm)$`)

// Extract reads the bookable slots out of the current view. The primary
// strategy keys off the structured data-date-time attribute; when no element
// carries one, a degraded scan over generic clickable elements runs instead.
// Either way, records that fail normalization never leave this function.
func Extract(ctx context.Context, p page.Page) ([]slot.Slot, error) {
	html, err := p.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	slots := extractTimestamped(doc)
	if len(slots) == 0 {
		slots = extractFallback(doc)
	}
	return slots, nil
}

// extractTimestamped builds slot records from elements carrying a structured
// timestamp. The timestamp yields the day of week, which is prepended to the
// button's own text before normalization, and is kept on the record as the
// most reliable handle for clicking the slot later.
func extractTimestamped(doc *goquery.Document) []slot.Slot {
	var out []slot.Slot
	doc.Find(slotSelector).Each(func(i int, sel *goquery.Selection) {
		raw, _ := sel.Attr("data-date-time")
		ts, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || ts == 0 {
			return
		}

		text := strings.TrimSpace(sel.Text())
		if text == "" {
			text, _ = sel.Attr("aria-label")
			text = strings.TrimSpace(text)
		}
		if text == "" {
			return
		}

		when := time.UnixMilli(ts)
		display := when.Weekday().String() + " " + text
		key := slot.Normalize(display)
		if key == "" {
			return
		}
		out = append(out, slot.Slot{
			DisplayText: display,
			Key:         key,
			Timestamp:   ts,
			Index:       i,
			Date:        when.Format("2006-01-02"),
		})
	})
	return out
}

// extractFallback scans generic clickable elements whose text is exactly a
// time, recovering a day label by walking a bounded number of ancestors for a
// nearby header. The header is reduced to its day token before it joins the
// display text: headers like "Wednesday, Feb 4" carry a date digit that the
// time parse would otherwise pick up as an hour. A record whose day cannot be
// recovered still goes through Normalize -- which fails without a day token --
// so filtering stays uniform.
func extractFallback(doc *goquery.Document) []slot.Slot {
	var out []slot.Slot
	doc.Find(`button, [role="button"], [role="option"]`).Each(func(i int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text == "" || !timeOnlyPattern.MatchString(text) {
			return
		}

		day := slot.DayOfWeek(nearbyDayHeader(sel))
		display := text
		if day != "" {
			display = day + " " + text
		}
		key := slot.Normalize(display)
		if key == "" {
			return
		}
		out = append(out, slot.Slot{
			DisplayText: display,
			Key:         key,
			Index:       i,
		})
	})
	return out
}

// nearbyDayHeader looks up to five ancestor levels for a column header or day
// header and returns its text.
func nearbyDayHeader(sel *goquery.Selection) string {
	parent := sel.Parent()
	for i := 0; i < 5 && parent.Length() > 0; i++ {
		header := parent.Find(`[role="columnheader"], .day-header`).First()
		if header.Length() > 0 {
			return strings.TrimSpace(header.Text())
		}
		parent = parent.Parent()
	}
	return ""
}
