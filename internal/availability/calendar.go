package availability

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTimeOfDay indicates a value that is not a zero-padded 24-hour HH:MM time.
var ErrInvalidTimeOfDay = errors.New("availability: invalid time of day")

// ErrInvalidDate indicates a value that is not an ISO YYYY-MM-DD calendar date.
var ErrInvalidDate = errors.New("availability: invalid date")

// TimeOfDay is a wall-clock time expressed as minutes since midnight in the
// mosque's local civil time.
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM". The "HH:MM:SS" shape produced by SQL time
// columns is accepted as long as the seconds are zero.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	value = strings.TrimSpace(value)
	if len(value) == 8 && strings.HasSuffix(value, ":00") {
		value = value[:5]
	}
	if len(value) != 5 || value[2] != ':' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, value)
	}
	hours, err := strconv.Atoi(value[:2])
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, value)
	}
	minutes, err := strconv.Atoi(value[3:])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, value)
	}
	return TimeOfDay(hours*60 + minutes), nil
}

// MustTime parses value with ParseTimeOfDay and panics on failure. Intended for
// constants and tests.
func MustTime(value string) TimeOfDay {
	t, err := ParseTimeOfDay(value)
	if err != nil {
		panic(err)
	}
	return t
}

// Add returns the time shifted by d. The result is not wrapped at midnight so
// that occupancy windows running past 24:00 still compare correctly.
func (t TimeOfDay) Add(d time.Duration) TimeOfDay {
	return t + TimeOfDay(d/time.Minute)
}

// String formats the time as zero-padded HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// MarshalText implements encoding.TextMarshaler.
func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *TimeOfDay) UnmarshalText(text []byte) error {
	parsed, err := ParseTimeOfDay(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Date is a timezone-less calendar date.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses an ISO "YYYY-MM-DD" date.
func ParseDate(value string) (Date, error) {
	parsed, err := time.Parse(time.DateOnly, strings.TrimSpace(value))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return DateOf(parsed), nil
}

// MustDate parses value with ParseDate and panics on failure.
func MustDate(value string) Date {
	d, err := ParseDate(value)
	if err != nil {
		panic(err)
	}
	return d
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// IsZero reports whether the date is absent.
func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) midnight() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the date n days later (or earlier for negative n).
func (d Date) AddDays(n int) Date {
	return DateOf(d.midnight().AddDate(0, 0, n))
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d.midnight().Before(other.midnight())
}

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool {
	return d.midnight().After(other.midnight())
}

// Weekday returns the day of the week.
func (d Date) Weekday() time.Weekday {
	return d.midnight().Weekday()
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DateRange is an inclusive span of calendar dates. A zero bound is open.
type DateRange struct {
	From Date
	To   Date
}

// SingleDay returns the range covering only d.
func SingleDay(d Date) DateRange {
	return DateRange{From: d, To: d}
}

// MonthOf returns the range covering the month containing d.
func MonthOf(d Date) DateRange {
	first := Date{Year: d.Year, Month: d.Month, Day: 1}
	last := DateOf(first.midnight().AddDate(0, 1, -1))
	return DateRange{From: first, To: last}
}

// Contains reports whether d falls inside the range.
func (r DateRange) Contains(d Date) bool {
	if !r.From.IsZero() && d.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && d.After(r.To) {
		return false
	}
	return true
}

// Bounded reports whether both ends of the range are set.
func (r DateRange) Bounded() bool {
	return !r.From.IsZero() && !r.To.IsZero()
}

// Days lists every date in a bounded range in ascending order.
func (r DateRange) Days() []Date {
	if !r.Bounded() || r.To.Before(r.From) {
		return nil
	}
	days := make([]Date, 0, 31)
	for d := r.From; !d.After(r.To); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

// String renders the range for logs and cache keys.
func (r DateRange) String() string {
	return r.From.String() + ".." + r.To.String()
}
