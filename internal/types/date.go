package types

import (
	"time"

	ierr "github.com/vidinfra/subqa/internal/errors"
)

// APITimeLayout is the timestamp format used by the membership API
// (ISO-8601 with milliseconds, always UTC).
const APITimeLayout = "2006-01-02T15:04:05.000Z"

// ParseAPITime parses a membership API timestamp. The API occasionally drops
// the millisecond part, so RFC 3339 is accepted as a fallback.
func ParseAPITime(value string) (time.Time, error) {
	if t, err := time.Parse(APITimeLayout, value); err == nil {
		return t.UTC(), nil
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, ierr.WithError(err).
			WithHintf("Timestamp %q is not a valid API timestamp", value).
			Mark(ierr.ErrValidation)
	}
	return t.UTC(), nil
}

// FormatAPITime renders a time in the membership API's timestamp format.
func FormatAPITime(t time.Time) string {
	return t.UTC().Format(APITimeLayout)
}

// SimulatedNow is the instant the billing ledger believes it is: the original
// period start plus the cumulative simulated-time offset. The membership
// backend's own clock never moves, so all boundary decisions derive from this.
func SimulatedNow(start time.Time, daysAdvanced int) time.Time {
	return start.AddDate(0, 0, daysAdvanced)
}

// AddCalendarMonths advances a date by whole calendar months, clamping the day
// of month to the target month's last valid day. A 12-month term starting
// Jan 31 ends Jan 31 next year; a 1-month term starting Jan 31 ends Feb 28
// (or Feb 29 in a leap year), never overflowing into March. Fixed day counts
// would drift across leap years and produce false verification failures.
func AddCalendarMonths(t time.Time, months int) time.Time {
	return addClampedDate(t, 0, months, 0)
}

func addClampedDate(t time.Time, years, months, days int) time.Time {
	y, m, d := t.Date()
	h, min, sec := t.Clock()

	newY := y + years
	newM := time.Month(int(m) + months)

	for newM > 12 {
		newM -= 12
		newY++
	}
	for newM < 1 {
		newM += 12
		newY--
	}

	// Last valid day of the target month
	firstOfNextMonth := time.Date(newY, newM+1, 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfNextMonth.Add(-24 * time.Hour).Day()

	newD := d + days
	if newD > lastDay {
		newD = lastDay
	}

	return time.Date(newY, newM, newD, h, min, sec, t.Nanosecond(), t.Location())
}

// WithinTolerance reports whether two timestamps agree within the given skew.
// Date comparisons across backends use a short tolerance to absorb clock skew
// and processing latency; a full-day tolerance would mask real bugs.
func WithinTolerance(a, b time.Time, tolerance time.Duration) bool {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}
