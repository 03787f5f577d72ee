package recurrence

import (
	"errors"
	"strings"
	"time"

	"github.com/example/masjid-scheduler/internal/availability"
)

// Frequency represents supported recurrence intervals.
type Frequency int

const (
	// FrequencyUnspecified indicates the rule frequency is not set.
	FrequencyUnspecified Frequency = iota
	// FrequencyDaily generates occurrences for each day within the range.
	FrequencyDaily
	// FrequencyWeekly generates occurrences for the selected weekdays.
	FrequencyWeekly
)

// String returns the stored name of the frequency.
func (f Frequency) String() string {
	switch f {
	case FrequencyDaily:
		return "daily"
	case FrequencyWeekly:
		return "weekly"
	default:
		return ""
	}
}

// ParseFrequency maps a stored frequency name to a Frequency.
func ParseFrequency(value string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "daily":
		return FrequencyDaily, nil
	case "weekly":
		return FrequencyWeekly, nil
	}
	return FrequencyUnspecified, ErrInvalidFrequency
}

// Rule describes how an activity repeats after its first date.
type Rule struct {
	Frequency Frequency
	Weekdays  []time.Weekday
	StartsOn  availability.Date
	Until     *availability.Date
}

// DefaultMaxSpan bounds the number of days a single expansion may walk.
const DefaultMaxSpan = 400

// Engine expands recurrence rules into calendar dates.
type Engine struct {
	maxSpan int
}

// NewEngine constructs an Engine that refuses windows longer than maxSpan days.
// A non-positive maxSpan selects DefaultMaxSpan.
func NewEngine(maxSpan int) *Engine {
	if maxSpan <= 0 {
		maxSpan = DefaultMaxSpan
	}
	return &Engine{maxSpan: maxSpan}
}

// ErrInvalidFrequency indicates the recurrence frequency is not supported.
var ErrInvalidFrequency = errors.New("recurrence: invalid frequency")

// ErrInvalidWindow indicates the generation window is unbounded.
var ErrInvalidWindow = errors.New("recurrence: generation window requires an end bound")

// ErrWindowTooLarge indicates the generation window exceeds the engine limit.
var ErrWindowTooLarge = errors.New("recurrence: generation window too large")

// Dates lists the dates on which the rule occurs inside window, ascending.
//
// The window is clipped to [StartsOn, Until]; an open upper bound on both the
// rule and the window is rejected. Weekly rules need at least one weekday;
// daily rules optionally filter by weekdays.
func (e *Engine) Dates(rule Rule, window availability.DateRange) ([]availability.Date, error) {
	if rule.Frequency != FrequencyDaily && rule.Frequency != FrequencyWeekly {
		return nil, ErrInvalidFrequency
	}

	lower := rule.StartsOn
	if !window.From.IsZero() && window.From.After(lower) {
		lower = window.From
	}

	var upper availability.Date
	if rule.Until != nil {
		upper = *rule.Until
	}
	if !window.To.IsZero() && (upper.IsZero() || window.To.Before(upper)) {
		upper = window.To
	}
	if upper.IsZero() {
		return nil, ErrInvalidWindow
	}
	if lower.After(upper) {
		return nil, nil
	}
	if lower.AddDays(e.span()).Before(upper) {
		return nil, ErrWindowTooLarge
	}

	weekdaySet := make(map[time.Weekday]struct{}, len(rule.Weekdays))
	for _, day := range rule.Weekdays {
		weekdaySet[day] = struct{}{}
	}

	dates := make([]availability.Date, 0)
	for current := lower; !current.After(upper); current = current.AddDays(1) {
		if shouldInclude(rule.Frequency, weekdaySet, current.Weekday()) {
			dates = append(dates, current)
		}
	}
	return dates, nil
}

func (e *Engine) span() int {
	if e == nil || e.maxSpan <= 0 {
		return DefaultMaxSpan
	}
	return e.maxSpan
}

func shouldInclude(freq Frequency, weekdaySet map[time.Weekday]struct{}, day time.Weekday) bool {
	if freq == FrequencyDaily && len(weekdaySet) == 0 {
		return true
	}
	_, ok := weekdaySet[day]
	return ok
}
