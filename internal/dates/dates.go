// Package dates normalizes free-form date input and renders the
// canonical display format used in all API responses.
package dates

import (
	"strings"
	"time"
)

// DisplayLayout is the canonical date format for responses, e.g.
// "Thu Aug 28 2025". It is a compatibility contract for API consumers.
const DisplayLayout = "Mon Jan 02 2006"

// invalidDisplay is rendered for dates that failed to parse.
const invalidDisplay = "Invalid Date"

// inputLayouts are tried in order when parsing free-form input.
var inputLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"Jan 2 2006",
	"January 2 2006",
	"Mon Jan 02 2006",
	"01/02/2006",
}

// Normalize converts free-form or absent date input into a stored
// instant. An empty raw value yields fallback truncated to its
// calendar day. An unparseable value yields the zero instant, which is
// the stored sentinel for an invalid date; it never returns an error.
// Parsing and truncation happen in UTC.
func Normalize(raw string, fallback time.Time) time.Time {
	if strings.TrimSpace(raw) == "" {
		return Truncate(fallback)
	}
	if t, ok := Parse(raw); ok {
		return t
	}
	return time.Time{}
}

// Parse attempts to read a free-form date string. The boolean reports
// whether any known layout matched.
func Parse(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range inputLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return Truncate(t), true
		}
	}
	return time.Time{}, false
}

// Truncate drops the time-of-day component, keeping the UTC calendar
// date.
func Truncate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Display renders an instant in the canonical short format. The zero
// instant renders as "Invalid Date".
func Display(t time.Time) string {
	if t.IsZero() {
		return invalidDisplay
	}
	return t.UTC().Format(DisplayLayout)
}
