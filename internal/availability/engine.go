// Package availability derives free booking slots from the set of occupied
// intervals on the mosque calendar.
//
// Every query is a pure function of its arguments: the engine keeps no state
// between calls and never mutates the interval snapshot it is given, so a
// snapshot may be shared across goroutines without locking.
package availability

import "time"

// DefaultDuration is the occupancy assumed for an interval without an end.
const DefaultDuration = 2 * time.Hour

// Interval is an occupied window on a single date. A nil End means the window
// lasts for the engine's default duration from Start.
type Interval struct {
	Date  Date
	Start TimeOfDay
	End   *TimeOfDay
	// Ref names the record that produced the interval. The engine ignores it.
	Ref string
}

// EndTimePolicy selects how candidate end times are validated.
type EndTimePolicy int

const (
	// EndTimeMarkers rejects an end time when any ladder slot in (start, end]
	// is booked.
	EndTimeMarkers EndTimePolicy = iota
	// EndTimeOverlap rejects an end time only when [start, end) overlaps an
	// occupied window.
	EndTimeOverlap
)

// DayStatus classifies a calendar day for decoration.
type DayStatus string

const (
	// DayFree means no interval falls on the date.
	DayFree DayStatus = "free"
	// DayPartial means the date has bookings but free start times remain.
	DayPartial DayStatus = "partial"
	// DayFull means no ladder time is free.
	DayFull DayStatus = "full"
)

// DayAvailability pairs a date with its classification.
type DayAvailability struct {
	Date   Date
	Status DayStatus
}

// Options configures an Engine. Zero fields fall back to the defaults.
type Options struct {
	Ladder          Ladder
	DefaultDuration time.Duration
	EndTimePolicy   EndTimePolicy
}

// Engine answers slot availability questions against an interval snapshot.
type Engine struct {
	ladder          Ladder
	defaultDuration time.Duration
	policy          EndTimePolicy
}

// NewEngine constructs an Engine.
func NewEngine(opts Options) *Engine {
	ladder := opts.Ladder
	if ladder.Len() == 0 {
		ladder = DefaultLadder()
	}
	duration := opts.DefaultDuration
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Engine{ladder: ladder, defaultDuration: duration, policy: opts.EndTimePolicy}
}

var defaultEngine = NewEngine(Options{})

// Ladder returns the ladder the engine selects from.
func (e *Engine) Ladder() Ladder {
	return e.ladder
}

func (e *Engine) endOf(iv Interval) TimeOfDay {
	if iv.End != nil {
		return *iv.End
	}
	return iv.Start.Add(e.defaultDuration)
}

// IsSlotBooked reports whether t on date is occupied. A time equal to an
// interval start is always booked, even when the interval's end does not lie
// after its start.
func (e *Engine) IsSlotBooked(date Date, t TimeOfDay, intervals []Interval) bool {
	for _, iv := range intervals {
		if iv.Date != date {
			continue
		}
		if t == iv.Start {
			return true
		}
		if t >= iv.Start && t < e.endOf(iv) {
			return true
		}
	}
	return false
}

// AvailableStartTimes lists the ladder times on date that are not booked, in
// ladder order. A zero date yields the whole ladder.
func (e *Engine) AvailableStartTimes(date Date, intervals []Interval) []TimeOfDay {
	if date.IsZero() {
		return e.ladder.Times()
	}
	free := make([]TimeOfDay, 0, e.ladder.Len())
	for _, t := range e.ladder.times {
		if !e.IsSlotBooked(date, t, intervals) {
			free = append(free, t)
		}
	}
	return free
}

// AvailableEndTimes lists the ladder times after start that can close a new
// interval beginning at start. A start outside the ladder yields nothing.
func (e *Engine) AvailableEndTimes(date Date, start TimeOfDay, intervals []Interval) []TimeOfDay {
	i := e.ladder.Index(start)
	if i < 0 {
		return []TimeOfDay{}
	}

	ends := make([]TimeOfDay, 0, e.ladder.Len()-i-1)
	for _, candidate := range e.ladder.times[i+1:] {
		// Both policies are monotone: once a candidate fails every later one fails too.
		if e.policy == EndTimeOverlap {
			if e.overlapsAny(date, start, candidate, intervals) {
				break
			}
		} else if e.IsSlotBooked(date, candidate, intervals) {
			break
		}
		ends = append(ends, candidate)
	}
	return ends
}

func (e *Engine) overlapsAny(date Date, start, end TimeOfDay, intervals []Interval) bool {
	for _, iv := range intervals {
		if iv.Date != date {
			continue
		}
		if end <= iv.Start || start >= e.endOf(iv) {
			continue
		}
		return true
	}
	return false
}

// IsDateFullyBooked reports whether no start time remains on date.
func (e *Engine) IsDateFullyBooked(date Date, intervals []Interval) bool {
	return len(e.AvailableStartTimes(date, intervals)) == 0
}

// DateHasAnyBooking reports whether at least one interval falls on date.
func (e *Engine) DateHasAnyBooking(date Date, intervals []Interval) bool {
	for _, iv := range intervals {
		if iv.Date == date {
			return true
		}
	}
	return false
}

// Classify returns the calendar decoration for date.
func (e *Engine) Classify(date Date, intervals []Interval) DayStatus {
	switch {
	case !e.DateHasAnyBooking(date, intervals):
		return DayFree
	case e.IsDateFullyBooked(date, intervals):
		return DayFull
	default:
		return DayPartial
	}
}

// ClassifyRange classifies every date of a bounded range.
func (e *Engine) ClassifyRange(r DateRange, intervals []Interval) []DayAvailability {
	byDate := make(map[Date][]Interval)
	for _, iv := range intervals {
		if r.Contains(iv.Date) {
			byDate[iv.Date] = append(byDate[iv.Date], iv)
		}
	}

	days := r.Days()
	out := make([]DayAvailability, 0, len(days))
	for _, d := range days {
		out = append(out, DayAvailability{Date: d, Status: e.Classify(d, byDate[d])})
	}
	return out
}

// CanBook reports whether [start, end) on date is a selectable window: start
// must be a free start time and end one of its available end times.
func (e *Engine) CanBook(date Date, start, end TimeOfDay, intervals []Interval) bool {
	if !e.ladder.Contains(start) || e.IsSlotBooked(date, start, intervals) {
		return false
	}
	for _, candidate := range e.AvailableEndTimes(date, start, intervals) {
		if candidate == end {
			return true
		}
	}
	return false
}

// CanBookOpenEnded reports whether an interval starting at start with no end
// fits on date. Such an interval occupies the default duration, so the start
// must be free and [start, start+duration) must not overlap any booking.
func (e *Engine) CanBookOpenEnded(date Date, start TimeOfDay, intervals []Interval) bool {
	if !e.ladder.Contains(start) || e.IsSlotBooked(date, start, intervals) {
		return false
	}
	return !e.overlapsAny(date, start, start.Add(e.defaultDuration), intervals)
}

// IsSlotBooked applies Engine.IsSlotBooked with the default configuration.
func IsSlotBooked(date Date, t TimeOfDay, intervals []Interval) bool {
	return defaultEngine.IsSlotBooked(date, t, intervals)
}

// AvailableStartTimes applies Engine.AvailableStartTimes with the default configuration.
func AvailableStartTimes(date Date, intervals []Interval) []TimeOfDay {
	return defaultEngine.AvailableStartTimes(date, intervals)
}

// AvailableEndTimes applies Engine.AvailableEndTimes with the default configuration.
func AvailableEndTimes(date Date, start TimeOfDay, intervals []Interval) []TimeOfDay {
	return defaultEngine.AvailableEndTimes(date, start, intervals)
}

// IsDateFullyBooked applies Engine.IsDateFullyBooked with the default configuration.
func IsDateFullyBooked(date Date, intervals []Interval) bool {
	return defaultEngine.IsDateFullyBooked(date, intervals)
}

// DateHasAnyBooking applies Engine.DateHasAnyBooking with the default configuration.
func DateHasAnyBooking(date Date, intervals []Interval) bool {
	return defaultEngine.DateHasAnyBooking(date, intervals)
}
