// Package calendar provides the pure date math the rotation engine is built on.
//
// Everything here is stateless and day-granular. Dates are civil dates with no
// timezone attached; conversions pin to UTC midnight so day arithmetic never
// crosses a DST boundary.
package calendar

import (
	"errors"
	"fmt"
	"time"
)

// ErrDateOutOfRange is returned for dates outside the supported window.
var ErrDateOutOfRange = errors.New("date out of supported range")

// Supported civil-date window. Wide enough for any realistic roster while
// keeping day counts far away from integer overflow.
const (
	MinYear = 1900
	MaxYear = 2200
)

// Date is a civil date (no time of day, no timezone).
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate builds a Date without validating it. Use Validate or CheckRange
// before feeding untrusted input into the engine.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateOf truncates t to its civil date in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses "YYYY-MM-DD".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Time returns the date at UTC midnight.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool { return other.Before(d) }

// IsZero reports whether d is the zero value.
func (d Date) IsZero() bool { return d.Year == 0 && d.Month == 0 && d.Day == 0 }

// Valid reports whether d denotes a real calendar day (normalization round-trip).
func (d Date) Valid() bool {
	return DateOf(d.Time()) == d
}

// CheckRange validates d against the supported window.
func CheckRange(d Date) error {
	if !d.Valid() {
		return fmt.Errorf("%w: %s is not a calendar day", ErrDateOutOfRange, d)
	}
	if d.Year < MinYear || d.Year > MaxYear {
		return fmt.Errorf("%w: %s (supported years %d..%d)", ErrDateOutOfRange, d, MinYear, MaxYear)
	}
	return nil
}

// DaysBetween returns the signed number of whole days from a to b
// (negative when b is before a).
func DaysBetween(a, b Date) int {
	// Both are UTC midnights, so the division is exact.
	return int(b.Time().Sub(a.Time()) / (24 * time.Hour))
}

// DaysFromStart returns the signed day offset of date from the scheme start.
func DaysFromStart(date, start Date) int {
	return DaysBetween(start, date)
}

// CyclePosition maps date onto [0, cycleLength) relative to start.
//
// Floor-mod, not truncating mod: dates before start must still land inside
// the cycle (e.g. the day before start maps to cycleLength-1, not -1).
// cycleLength must be >= 1; that is validated at scheme load, not here.
func CyclePosition(date, start Date, cycleLength int) int {
	return FloorMod(DaysFromStart(date, start), cycleLength)
}

// FloorMod returns a mod b with the sign of b (b > 0 gives a result in [0, b)).
func FloorMod(a, b int) int {
	m := a % b
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return m
}
