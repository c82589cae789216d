// Package slot holds the canonical representation of a bookable appointment
// time and the matching rules between discovered slots and user preferences.
package slot

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Slot is one discovered bookable appointment time.
type Slot struct {
	// DisplayText is the human-readable source text, e.g. "Tuesday 3:00 PM".
	DisplayText string

	// Key is the canonical comparison key, e.g. "tue 3pm" or "thu 8:30pm".
	Key string

	// Timestamp is epoch milliseconds when the page exposed one. It is the
	// most reliable handle for selecting the slot later. Zero when absent.
	Timestamp int64

	// Index is the ordinal position among same-class slot elements, used as
	// a fallback selection handle. Negative when unknown.
	Index int

	// Date is the associated ISO date when determinable.
	Date string
}

// Day names and their canonical three-letter abbreviations, full names first
// so "tuesday" wins over "tue" inside the same text.
var days = []struct{ full, abbr string }{
	{"sunday", "sun"},
	{"monday", "mon"},
	{"tuesday", "tue"},
	{"wednesday", "wed"},
	{"thursday", "thu"},
	{"friday", "fri"},
	{"saturday", "sat"},
}

var fullDayName = map[string]string{
	"sun": "Sunday", "mon": "Monday", "tue": "Tuesday", "wed": "Wednesday",
	"thu": "Thursday", "fri": "Friday", "sat": "Saturday",
}

// Matches "3:00 pm", "3pm", "15:00" and the like anywhere in a description.
var timePattern = regexp.MustCompile(`(\d{1,2}):?(\d{2})?\s*(am|pm)?`)

// Normalize canonicalizes free-form day+time text into a comparison key like
// "tue 3pm" or "thu 8:30pm". It returns "" when the text has no recognizable
// day or no recognizable time; such text does not describe a slot.
//
// A bare 24-hour time is mapped onto am/pm (hours >= 12 are pm), so "Tuesday
// 20:30" and "Tue 8:30pm" produce the same key. Minutes appear in the key
// only when non-zero, so "3pm" and "3:00pm" collapse to "3pm" while "8:30pm"
// never collides with "8pm".
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	t := strings.ToLower(text)

	var day string
	for _, d := range days {
		if strings.Contains(t, d.full) || strings.Contains(t, d.abbr) {
			day = d.abbr
			break
		}
	}
	if day == "" {
		return ""
	}

	m := timePattern.FindStringSubmatch(t)
	if m == nil {
		return ""
	}
	hour, err := strconv.Atoi(m[1])
	if err != nil {
		return ""
	}

	period := m[3]
	if period == "" {
		if hour >= 12 {
			period = "pm"
		} else {
			period = "am"
		}
		if hour > 12 {
			hour -= 12
		}
	}

	var minutes string
	if m[2] != "" && m[2] != "00" {
		minutes = ":" + m[2]
	}
	return fmt.Sprintf("%s %d%s%s", day, hour, minutes, period)
}

// DayOfWeek recovers the full day name ("Tuesday") from any preference or
// slot text, or "" when the text carries no day token. The navigation layer
// uses it to decide which calendar dates are worth opening.
func DayOfWeek(text string) string {
	if text == "" {
		return ""
	}
	t := strings.ToLower(text)
	for _, d := range days {
		if strings.Contains(t, d.full) || strings.Contains(t, d.abbr) {
			return fullDayName[d.abbr]
		}
	}
	return ""
}

// Match returns the slot satisfying the earliest preference in prefs.
// Preference order strictly dominates slot order: every slot is checked
// against preference N before preference N+1 is considered. Comparison is
// exact equality on the normalized key; a preference that fails to normalize
// is compared as its lower-cased raw text rather than dropped.
func Match(slots []Slot, prefs []string) (Slot, bool) {
	if len(slots) == 0 || len(prefs) == 0 {
		return Slot{}, false
	}
	for _, p := range prefs {
		key := Normalize(p)
		if key == "" {
			key = strings.ToLower(p)
		}
		for _, s := range slots {
			if s.Key == key {
				return s, true
			}
		}
	}
	return Slot{}, false
}

// DisplayTexts collects the raw display texts of slots, for reporting what
// was available when nothing matched.
func DisplayTexts(slots []Slot) []string {
	if len(slots) == 0 {
		return nil
	}
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.DisplayText)
	}
	return out
}
