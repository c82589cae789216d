// Package scheduler runs the daily booking attempt and folds each outcome
// into the persistent job state.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/example/appt-booker/internal/booking"
	"github.com/example/appt-booker/internal/notifier"
	"github.com/example/appt-booker/internal/store"
)

// AttemptFunc performs one full discovery-and-booking attempt. The scheduler
// owns nothing about browsers; the wiring layer passes a closure that builds
// and tears one down per attempt.
type AttemptFunc func(ctx context.Context) (booking.Outcome, error)

// Scheduler fires one attempt per day at the configured wall-clock time, as
// long as the job is active.
type Scheduler struct {
	Store   *store.Repo
	Mailer  *notifier.Mailer // nil disables notifications
	Attempt AttemptFunc

	Hour     int
	Minute   int
	Location *time.Location
}

func (s *Scheduler) loc() *time.Location {
	if s.Location == nil {
		return time.Local
	}
	return s.Location
}

// Run blocks until ctx is cancelled, attempting once per day.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		next := nextRun(time.Now().In(s.loc()), s.Hour, s.Minute)
		log.Printf("scheduler: next attempt at %s", next.Format(time.RFC1123))

		t := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}

		s.RunOnce(ctx)
	}
}

// nextRun is the first instant strictly after now that lands on the
// configured wall-clock time.
func nextRun(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// RunOnce performs one scheduled attempt: skipped when the job is inactive,
// otherwise attempted, recorded and, when warranted, notified.
func (s *Scheduler) RunOnce(ctx context.Context) {
	st, err := s.Store.State(ctx)
	if err != nil {
		log.Printf("scheduler: read job state: %v", err)
		return
	}
	if !st.Active {
		log.Printf("scheduler: job inactive, skipping attempt")
		return
	}

	out, err := s.Attempt(ctx)
	if err != nil {
		log.Printf("scheduler: attempt failed: %v", err)
		failures, rerr := s.Store.RecordError(ctx, err.Error())
		if rerr != nil {
			log.Printf("scheduler: record error: %v", rerr)
			return
		}
		s.maybeNotifyFailure(failures, "error", nil)
		return
	}

	var slotText *string
	if out.Slot != nil {
		slotText = &out.Slot.DisplayText
	}

	if out.Booked() {
		log.Printf("scheduler: booked %q", *slotText)
		if _, err := s.Store.RecordAttempt(ctx, string(out.Reason), slotText, out.Seen, true); err != nil {
			log.Printf("scheduler: record attempt: %v", err)
		}
		if s.Mailer != nil {
			if err := s.Mailer.NotifyBooked(*slotText); err != nil {
				log.Printf("scheduler: notify booked: %v", err)
			}
		}
		return
	}

	log.Printf("scheduler: attempt ended without booking: %s (%d slots seen)", out.Reason, len(out.Seen))
	failures, err := s.Store.RecordAttempt(ctx, string(out.Reason), slotText, out.Seen, false)
	if err != nil {
		log.Printf("scheduler: record attempt: %v", err)
		return
	}
	s.maybeNotifyFailure(failures, string(out.Reason), out.Seen)
}

func (s *Scheduler) maybeNotifyFailure(failures int, reason string, seen []string) {
	if s.Mailer == nil || !notifier.ShouldNotify(failures) {
		return
	}
	if err := s.Mailer.NotifyFailure(failures, reason, seen); err != nil {
		log.Printf("scheduler: notify failure: %v", err)
	}
}
