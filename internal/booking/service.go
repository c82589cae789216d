package booking

import (
	"context"
	"time"

	"github.com/example/appt-booker/internal/page"
	"github.com/example/appt-booker/internal/scrape"
	"github.com/example/appt-booker/internal/slot"
)

// Reason classifies how an attempt ended.
type Reason string

const (
	ReasonBooked        Reason = "booked"
	ReasonBookingFailed Reason = "booking_failed"
	ReasonNoMatch       Reason = "no_match"
	ReasonNoSlots       Reason = "no_slots"
)

// Outcome is the attempt report handed to persistence and notification.
type Outcome struct {
	Reason Reason
	Slot   *slot.Slot
	Seen   []string
	DryRun bool
}

// Booked reports whether the attempt ended with a confirmed booking.
func (o Outcome) Booked() bool { return o.Reason == ReasonBooked }

// Service runs one full attempt: discover slots, pick the preferred one and
// book it.
type Service struct {
	Page        page.Page
	Observer    page.Observer
	BookingURL  string
	Preferences []string
	User        UserInfo
	Horizon     int
	DryRun      bool

	SettleDelay time.Duration
	FormTimeout time.Duration
}

// Attempt performs the discovery search and, when a preferred slot is found,
// drives the booking protocol against it. The page is released here only when
// discovery itself fails; otherwise it stays open for the caller to close
// after inspecting the outcome.
func (s *Service) Attempt(ctx context.Context) (Outcome, error) {
	nav := &scrape.Navigator{
		Page:     s.Page,
		Horizon:  s.Horizon,
		Observer: s.Observer,
	}

	res, err := nav.Discover(ctx, s.BookingURL, s.Preferences)
	if err != nil {
		_ = s.Page.Close(ctx)
		return Outcome{}, err
	}

	seen := slot.DisplayTexts(res.Slots)
	if len(res.Slots) == 0 {
		return Outcome{Reason: ReasonNoSlots, Seen: seen}, nil
	}

	match := res.Match
	if match == nil {
		if m, ok := slot.Match(res.Slots, s.Preferences); ok {
			match = &m
		}
	}
	if match == nil {
		return Outcome{Reason: ReasonNoMatch, Seen: seen}, nil
	}

	if s.DryRun {
		return Outcome{Reason: ReasonBooked, Slot: match, Seen: seen, DryRun: true}, nil
	}

	b := &Booker{
		Page:        s.Page,
		Observer:    s.Observer,
		SettleDelay: s.SettleDelay,
		FormTimeout: s.FormTimeout,
	}
	if !b.Book(ctx, *match, s.User) {
		return Outcome{Reason: ReasonBookingFailed, Slot: match, Seen: seen}, nil
	}
	return Outcome{Reason: ReasonBooked, Slot: match, Seen: seen}, nil
}
