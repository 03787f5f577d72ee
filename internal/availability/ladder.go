package availability

import (
	"errors"
	"time"
)

// ErrInvalidLadder indicates a ladder configuration that yields no times.
var ErrInvalidLadder = errors.New("availability: invalid time ladder")

// Ladder is the ordered, fixed sequence of selectable times of day.
type Ladder struct {
	times []TimeOfDay
	index map[TimeOfDay]int
}

// NewLadder builds the ladder first, first+step, ... up to and including last.
func NewLadder(first, last TimeOfDay, step time.Duration) (Ladder, error) {
	if step < time.Minute || step%time.Minute != 0 {
		return Ladder{}, ErrInvalidLadder
	}
	if last < first {
		return Ladder{}, ErrInvalidLadder
	}

	times := make([]TimeOfDay, 0, int(last-first)/int(step/time.Minute)+1)
	for t := first; t <= last; t = t.Add(step) {
		times = append(times, t)
	}

	index := make(map[TimeOfDay]int, len(times))
	for i, t := range times {
		index[t] = i
	}
	return Ladder{times: times, index: index}, nil
}

// DefaultLadder returns 05:00 through 23:00 in 30 minute steps.
func DefaultLadder() Ladder {
	ladder, err := NewLadder(MustTime("05:00"), MustTime("23:00"), 30*time.Minute)
	if err != nil {
		panic(err)
	}
	return ladder
}

// Times returns a copy of the ladder values in ascending order.
func (l Ladder) Times() []TimeOfDay {
	out := make([]TimeOfDay, len(l.times))
	copy(out, l.times)
	return out
}

// Len returns the number of ladder values.
func (l Ladder) Len() int {
	return len(l.times)
}

// Index returns the position of t in the ladder or -1 when t is not a member.
func (l Ladder) Index(t TimeOfDay) int {
	if i, ok := l.index[t]; ok {
		return i
	}
	return -1
}

// Contains reports whether t is a ladder value.
func (l Ladder) Contains(t TimeOfDay) bool {
	return l.Index(t) >= 0
}

// At returns the i-th ladder value.
func (l Ladder) At(i int) TimeOfDay {
	return l.times[i]
}
