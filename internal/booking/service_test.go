package booking

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/appt-booker/internal/page"
	"github.com/example/appt-booker/internal/page/pagetest"
)

const bookingURL = "https://booking.example.com/dr-strange"

// bookableThursday wires up the whole happy path: a month view with one
// available Thursday, a day view with a 3pm slot, the booking form, and a
// confirmation page.
func bookableThursday(t *testing.T) (*pagetest.Page, int64) {
	t.Helper()
	ts := time.Date(2026, time.February, 5, 15, 0, 0, 0, time.Local).UnixMilli()

	month := `<table><tr>
		<td data-date="20260205"><button aria-label="Thursday, February 5 - available"></button></td>
	</tr></table>`
	day := fmt.Sprintf(`<div><button data-date-time="%d">3:00pm</button></div>`, ts)

	return &pagetest.Page{
		Views: map[string]*pagetest.View{
			"month": {
				HTML: month,
				Goto: map[string]string{`td[data-date="20260205"] button`: "day"},
			},
			"day": {
				HTML: day,
				Goto: map[string]string{fmt.Sprintf(`button[data-date-time="%d"]`, ts): "form"},
			},
			"form": {
				Inputs: []page.Input{{Index: 0}, {Index: 1}, {Index: 2}, {Index: 3}},
				Goto:   map[string]string{"text:confirm": "done"},
			},
			"done": {Text: "Your appointment is confirmed!"},
		},
		Start: "month",
	}, ts
}

func newService(p page.Page) *Service {
	return &Service{
		Page:        p,
		BookingURL:  bookingURL,
		Preferences: []string{"Thursday 3pm"},
		User:        testUser(),
		Horizon:     1,
		SettleDelay: time.Millisecond,
		FormTimeout: time.Millisecond,
	}
}

func TestAttemptBooksMatchedSlot(t *testing.T) {
	p, ts := bookableThursday(t)

	out, err := newService(p).Attempt(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ReasonBooked, out.Reason)
	require.NotNil(t, out.Slot)
	assert.Equal(t, "thu 3pm", out.Slot.Key)
	assert.Equal(t, ts, out.Slot.Timestamp)
	assert.Equal(t, []string{"Thursday 3:00pm"}, out.Seen)
	assert.True(t, out.Booked())
	assert.False(t, p.Closed, "the caller owns page release after a completed attempt")
}

func TestAttemptDryRunStopsBeforeBooking(t *testing.T) {
	p, _ := bookableThursday(t)

	svc := newService(p)
	svc.DryRun = true

	out, err := svc.Attempt(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ReasonBooked, out.Reason)
	assert.True(t, out.DryRun)
	require.NotNil(t, out.Slot)
	assert.Empty(t, p.Filled, "dry run must not touch the booking form")
}

func TestAttemptReportsNoSlotsOnTerminalSignal(t *testing.T) {
	p := &pagetest.Page{
		Views: map[string]*pagetest.View{
			"month": {Text: "There is no upcoming availability for this provider."},
		},
		Start: "month",
	}

	out, err := newService(p).Attempt(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ReasonNoSlots, out.Reason)
	assert.Empty(t, out.Seen)
	assert.Nil(t, out.Slot)
	assert.False(t, p.Closed)
}

func TestAttemptReportsNoMatchWithSeenSlots(t *testing.T) {
	ts := time.Date(2026, time.February, 9, 10, 0, 0, 0, time.Local).UnixMilli()
	p := &pagetest.Page{
		Views: map[string]*pagetest.View{
			"week": {HTML: fmt.Sprintf(`<div><button data-date-time="%d">10:00am</button></div>`, ts)},
		},
		Start: "week",
	}

	svc := newService(p)
	svc.Preferences = []string{"anytime after lunch"}

	out, err := svc.Attempt(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ReasonNoMatch, out.Reason)
	assert.Equal(t, []string{"Monday 10:00am"}, out.Seen)
	assert.Nil(t, out.Slot)
}

func TestAttemptClosesPageOnDiscoveryError(t *testing.T) {
	boom := errors.New("navigation failed")
	p := &pagetest.Page{Err: boom}

	_, err := newService(p).Attempt(context.Background())
	require.ErrorIs(t, err, boom)
	assert.True(t, p.Closed)
}

func TestAttemptReportsBookingFailure(t *testing.T) {
	p, _ := bookableThursday(t)
	p.Views["done"].Text = "Something went wrong."

	out, err := newService(p).Attempt(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ReasonBookingFailed, out.Reason)
	require.NotNil(t, out.Slot)
	assert.Equal(t, "thu 3pm", out.Slot.Key)
	assert.False(t, out.Booked())
}
