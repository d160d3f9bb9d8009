package billing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DURATION - Integer minutes, the single unit all pricing is based on
// =============================================================================

// DurationMinutes returns round((end - start) in ms / 60000).
// Fails with ErrInvalidRange when end is not after start.
//
// Every downstream calculation uses this integer value so rounding happens
// once, in one place.
func DurationMinutes(start, end time.Time) (int, error) {
	if !end.After(start) {
		return 0, &InvalidRangeError{Start: start, End: end}
	}
	ms := end.Sub(start).Milliseconds()
	return int((ms + 30_000) / 60_000), nil
}

// Duration returns the assignment's length in whole minutes.
func (a Assignment) Duration() (int, error) {
	return DurationMinutes(a.StartTime, a.EndTime)
}

// Hours converts whole minutes to fractional hours, unrounded.
func Hours(minutes int) decimal.Decimal {
	return decimal.NewFromInt(int64(minutes)).Div(decimal.NewFromInt(60))
}

// FormatDuration renders minutes as "1h 30min" or "45min".
func FormatDuration(minutes int) string {
	h, m := minutes/60, minutes%60
	if h > 0 {
		return fmt.Sprintf("%dh %dmin", h, m)
	}
	return fmt.Sprintf("%dmin", m)
}

// =============================================================================
// CALENDAR HELPERS
// =============================================================================

// StartOfDay returns midnight of t's date in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59.999 of t's date in t's location.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// String returns a string representation of the range.
func (r DateRange) String() string {
	return "[" + r.Start.Format("2006-01-02") + ", " + r.End.Format("2006-01-02") + "]"
}
