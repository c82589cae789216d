package scrape

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/appt-booker/internal/page/pagetest"
)

const bookingURL = "https://calendar.example.com/appointments/schedules/abc123"

func slotButtons(times ...int64) string {
	var b strings.Builder
	for _, ts := range times {
		fmt.Fprintf(&b, `<button data-date-time="%d">%s</button>`,
			ts, time.UnixMilli(ts).Format("3:04pm"))
	}
	return b.String()
}

// Month view for February 2026: one unavailable Wednesday, two available
// Thursdays, one available Friday.
const februaryCells = `<table>
	<td data-date="20260204"><button aria-label="Wednesday, February 4 - no available times"></button></td>
	<td data-date="20260205"><button aria-label="Thursday, February 5 - times available"></button></td>
	<td data-date="20260206"><button aria-label="Friday, February 6 - times available"></button></td>
	<td data-date="20260212"><button aria-label="Thursday, February 12 - times available"></button></td>
</table>`

func TestCalendarSearchVisitsTargetDatesAscending(t *testing.T) {
	// First Thursday: eight daytime slots, none at 8:30pm.
	var daytime []int64
	for hour := 9; hour < 17; hour++ {
		daytime = append(daytime, millis(2026, time.February, 5, hour, 0))
	}
	evening := millis(2026, time.February, 12, 20, 30)

	p := &pagetest.Page{
		Views: map[string]*pagetest.View{
			"month": {
				HTML: februaryCells,
				Text: "February 2026",
				Goto: map[string]string{
					`td[data-date="20260205"] button`: "day1",
				},
			},
			"day1": {
				HTML: februaryCells + slotButtons(daytime...),
				Text: "February 2026",
				Goto: map[string]string{
					`td[data-date="20260212"] button`: "day2",
				},
			},
			"day2": {
				HTML: februaryCells + slotButtons(evening),
				Text: "February 2026",
			},
		},
		Start: "month",
	}

	nav := &Navigator{Page: p, Horizon: 3}
	res, err := nav.Discover(context.Background(), bookingURL, []string{"Thu 8:30pm"})
	require.NoError(t, err)

	require.NotNil(t, res.Match)
	assert.Equal(t, "thu 8:30pm", res.Match.Key)
	assert.Equal(t, evening, res.Match.Timestamp)

	// Both Thursdays opened, in ascending date order; the Friday and the
	// unavailable Wednesday never opened.
	assert.Equal(t, []string{
		"navigate:month",
		`click:td[data-date="20260205"] button`,
		`click:td[data-date="20260212"] button`,
	}, p.Log)

	// Slots from both visited dates were seen.
	assert.Len(t, res.Slots, 9)
}

func TestCalendarSearchExhaustsHorizonWithoutMatch(t *testing.T) {
	// Only Fridays are ever available; the preference wants Thursdays.
	cells := `<table>
		<td data-date="20260206"><button aria-label="Friday, February 6 - times available"></button></td>
	</table>`

	p := &pagetest.Page{
		Views: map[string]*pagetest.View{
			"month1": {
				HTML: cells,
				Text: "February 2026",
				Goto: map[string]string{nextMonthSelector: "month2"},
			},
			"month2": {
				HTML: cells,
				Text: "March 2026",
				Goto: map[string]string{nextMonthSelector: "month1"},
			},
		},
		Start: "month1",
	}

	nav := &Navigator{Page: p, Horizon: 2}
	res, err := nav.Discover(context.Background(), bookingURL, []string{"Thu 8:30pm"})
	require.NoError(t, err)

	assert.Nil(t, res.Match)
	assert.Empty(t, res.Slots)
	assert.False(t, res.Terminal)

	var advances int
	for _, entry := range p.Log {
		if entry == "click:"+nextMonthSelector {
			advances++
		}
	}
	assert.Equal(t, 2, advances)
}

func TestCalendarSearchStopsWhenMonthCannotAdvance(t *testing.T) {
	nonMatching := millis(2026, time.February, 5, 9, 0)

	p := &pagetest.Page{
		Views: map[string]*pagetest.View{
			"month": {
				HTML: februaryCells,
				Text: "February 2026",
				Goto: map[string]string{
					`td[data-date="20260205"] button`: "day1",
					`td[data-date="20260212"] button`: "day2",
				},
			},
			"day1": {
				HTML: februaryCells + slotButtons(nonMatching),
				Text: "February 2026",
				Goto: map[string]string{
					`td[data-date="20260212"] button`: "day2",
				},
			},
			"day2": {
				HTML: februaryCells,
				Text: "February 2026",
			},
		},
		Start: "month",
	}

	nav := &Navigator{Page: p, Horizon: 4}
	res, err := nav.Discover(context.Background(), bookingURL, []string{"Thu 8:30pm"})
	require.NoError(t, err)

	// The 9am Thursday slot was seen but did not match, and with no
	// next-month control the search ends early without error.
	assert.Nil(t, res.Match)
	require.Len(t, res.Slots, 1)
	assert.Equal(t, "thu 9am", res.Slots[0].Key)
}

func TestTerminalSignalShortCircuits(t *testing.T) {
	p := &pagetest.Page{
		Views: map[string]*pagetest.View{
			"start": {
				HTML: "<div></div>",
				Text: "There is currently no available appointments at this location.",
				Goto: map[string]string{nextMonthSelector: "start"},
			},
		},
		Start: "start",
	}

	nav := &Navigator{Page: p, Horizon: 5}
	res, err := nav.Discover(context.Background(), bookingURL, []string{"Thu 8:30pm"})
	require.NoError(t, err)

	assert.True(t, res.Terminal)
	assert.Empty(t, res.Slots)
	// No horizon consumed: the only log entry is the initial navigation.
	assert.Equal(t, []string{"navigate:start"}, p.Log)
}

func TestUnscopedSearchReturnsFirstViewWithSlots(t *testing.T) {
	ts := millis(2026, time.February, 9, 10, 0)

	p := &pagetest.Page{
		Views: map[string]*pagetest.View{
			"start": {
				HTML: "<div></div>",
				Text: "No availability this week",
				Goto: map[string]string{"text:jump to": "week2"},
			},
			"week2": {
				HTML: slotButtons(ts),
				Text: "Week of February 9",
			},
		},
		Start: "start",
	}

	// No preference resolves to a weekday, so the unscoped strategy runs.
	nav := &Navigator{Page: p, Horizon: 4}
	res, err := nav.Discover(context.Background(), bookingURL, []string{"anytime works"})
	require.NoError(t, err)

	assert.Nil(t, res.Match)
	require.Len(t, res.Slots, 1)
	assert.Equal(t, "mon 10am", res.Slots[0].Key)
	assert.Contains(t, p.Log, "click:text:jump to")
}

func TestUnscopedSearchFallsBackToSingleStep(t *testing.T) {
	ts := millis(2026, time.February, 10, 14, 0)

	p := &pagetest.Page{
		Views: map[string]*pagetest.View{
			"start": {
				HTML: "<div></div>",
				Text: "No times available",
				Goto: map[string]string{nextStepSelector: "week2"},
			},
			"week2": {
				HTML: slotButtons(ts),
				Text: "Week of February 9",
			},
		},
		Start: "start",
	}

	nav := &Navigator{Page: p, Horizon: 4}
	res, err := nav.Discover(context.Background(), bookingURL, []string{"anytime works"})
	require.NoError(t, err)

	require.Len(t, res.Slots, 1)
	assert.Equal(t, "tue 2pm", res.Slots[0].Key)
}

func TestUnscopedSearchStopsWhenNothingAdvances(t *testing.T) {
	p := &pagetest.Page{
		Views: map[string]*pagetest.View{
			"start": {HTML: "<div></div>", Text: "No availability"},
		},
		Start: "start",
	}

	nav := &Navigator{Page: p, Horizon: 4}
	res, err := nav.Discover(context.Background(), bookingURL, []string{"whenever"})
	require.NoError(t, err)

	assert.Empty(t, res.Slots)
	assert.False(t, res.Terminal)
}

func TestDiscoverPropagatesPageErrors(t *testing.T) {
	boom := errors.New("browser crashed")
	p := &pagetest.Page{
		Views: map[string]*pagetest.View{"start": {}},
		Start: "start",
		Err:   boom,
	}

	nav := &Navigator{Page: p, Horizon: 4}
	_, err := nav.Discover(context.Background(), bookingURL, []string{"Thu 8:30pm"})
	assert.ErrorIs(t, err, boom)
}
