package availability

import (
	"reflect"
	"testing"
	"time"
)

func endAt(value string) *TimeOfDay {
	t := MustTime(value)
	return &t
}

func formatTimes(times []TimeOfDay) []string {
	out := make([]string, 0, len(times))
	for _, t := range times {
		out = append(out, t.String())
	}
	return out
}

func containsTime(times []TimeOfDay, value string) bool {
	target := MustTime(value)
	for _, t := range times {
		if t == target {
			return true
		}
	}
	return false
}

func TestEngine_EmptySnapshot(t *testing.T) {
	day := MustDate("2025-01-10")

	starts := AvailableStartTimes(day, nil)
	if len(starts) != 38 {
		t.Fatalf("expected full 38 slot ladder, got %d", len(starts))
	}
	if starts[0] != MustTime("05:00") || starts[len(starts)-1] != MustTime("23:00") {
		t.Fatalf("unexpected ladder bounds: %s..%s", starts[0], starts[len(starts)-1])
	}
	if IsDateFullyBooked(day, nil) {
		t.Fatalf("empty snapshot must not be fully booked")
	}
	if DateHasAnyBooking(day, nil) {
		t.Fatalf("empty snapshot must not report bookings")
	}
}

func TestEngine_IsSlotBooked(t *testing.T) {
	day := MustDate("2025-01-10")

	t.Run("closed interval is start inclusive and end exclusive", func(t *testing.T) {
		intervals := []Interval{{Date: day, Start: MustTime("08:00"), End: endAt("10:00")}}
		for _, booked := range []string{"08:00", "08:30", "09:00", "09:30"} {
			if !IsSlotBooked(day, MustTime(booked), intervals) {
				t.Fatalf("expected %s to be booked", booked)
			}
		}
		for _, free := range []string{"07:30", "10:00", "10:30"} {
			if IsSlotBooked(day, MustTime(free), intervals) {
				t.Fatalf("expected %s to be free", free)
			}
		}
	})

	t.Run("open interval occupies two hours", func(t *testing.T) {
		intervals := []Interval{{Date: day, Start: MustTime("14:00")}}
		if !IsSlotBooked(day, MustTime("15:30"), intervals) {
			t.Fatalf("expected 15:30 inside default window")
		}
		if IsSlotBooked(day, MustTime("16:00"), intervals) {
			t.Fatalf("expected 16:00 to be free after default window")
		}
	})

	t.Run("exact start is booked even when end precedes start", func(t *testing.T) {
		intervals := []Interval{{Date: day, Start: MustTime("12:00"), End: endAt("11:00")}}
		if !IsSlotBooked(day, MustTime("12:00"), intervals) {
			t.Fatalf("expected malformed interval start to be booked")
		}
		if IsSlotBooked(day, MustTime("11:30"), intervals) || IsSlotBooked(day, MustTime("12:30"), intervals) {
			t.Fatalf("malformed interval must only block its start")
		}
	})

	t.Run("intervals on other dates are ignored", func(t *testing.T) {
		intervals := []Interval{{Date: day.AddDays(1), Start: MustTime("08:00"), End: endAt("10:00")}}
		if IsSlotBooked(day, MustTime("08:00"), intervals) {
			t.Fatalf("interval on another date must not block")
		}
	})
}

func TestEngine_AvailableStartTimes(t *testing.T) {
	day := MustDate("2025-01-10")
	intervals := []Interval{
		{Date: day, Start: MustTime("08:00"), End: endAt("10:00")},
		{Date: day, Start: MustTime("19:00")},
	}

	starts := AvailableStartTimes(day, intervals)

	for _, excluded := range []string{"08:00", "08:30", "09:00", "09:30", "19:00", "19:30", "20:00", "20:30"} {
		if containsTime(starts, excluded) {
			t.Fatalf("expected %s to be excluded, got %v", excluded, formatTimes(starts))
		}
	}
	for _, included := range []string{"10:00", "11:00", "18:30", "21:00", "22:00"} {
		if !containsTime(starts, included) {
			t.Fatalf("expected %s to be included, got %v", included, formatTimes(starts))
		}
	}
	for i := 1; i < len(starts); i++ {
		if starts[i] <= starts[i-1] {
			t.Fatalf("start times must be ascending: %v", formatTimes(starts))
		}
	}

	t.Run("absent date yields the full ladder", func(t *testing.T) {
		if got := AvailableStartTimes(Date{}, intervals); len(got) != 38 {
			t.Fatalf("expected unfiltered ladder, got %d entries", len(got))
		}
	})

	t.Run("repeated calls are identical", func(t *testing.T) {
		again := AvailableStartTimes(day, intervals)
		if !reflect.DeepEqual(starts, again) {
			t.Fatalf("expected identical results, got %v and %v", formatTimes(starts), formatTimes(again))
		}
	})
}

func TestEngine_AvailableEndTimes(t *testing.T) {
	day := MustDate("2025-01-10")
	intervals := []Interval{{Date: day, Start: MustTime("10:00"), End: endAt("12:00")}}

	t.Run("marker policy stops before the first booked slot", func(t *testing.T) {
		got := formatTimes(AvailableEndTimes(day, MustTime("08:00"), intervals))
		want := []string{"08:30", "09:00", "09:30"}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
	})

	t.Run("overlap policy allows ending when the next booking starts", func(t *testing.T) {
		engine := NewEngine(Options{EndTimePolicy: EndTimeOverlap})
		got := formatTimes(engine.AvailableEndTimes(day, MustTime("08:00"), intervals))
		want := []string{"08:30", "09:00", "09:30", "10:00"}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
	})

	t.Run("returned ends never span a booked slot", func(t *testing.T) {
		busy := []Interval{
			{Date: day, Start: MustTime("09:00"), End: endAt("09:30")},
			{Date: day, Start: MustTime("13:00")},
		}
		start := MustTime("08:00")
		for _, end := range AvailableEndTimes(day, start, busy) {
			for slot := start.Add(30 * time.Minute); slot <= end; slot = slot.Add(30 * time.Minute) {
				if IsSlotBooked(day, slot, busy) {
					t.Fatalf("end %s spans booked slot %s", end, slot)
				}
			}
		}
	})

	t.Run("last ladder value has no end", func(t *testing.T) {
		if got := AvailableEndTimes(day, MustTime("23:00"), nil); len(got) != 0 {
			t.Fatalf("expected no end times, got %v", formatTimes(got))
		}
	})

	t.Run("start outside the ladder has no end", func(t *testing.T) {
		got := AvailableEndTimes(day, MustTime("08:15"), nil)
		if got == nil || len(got) != 0 {
			t.Fatalf("expected empty non-nil result, got %v", got)
		}
	})

	t.Run("free day offers every later ladder value", func(t *testing.T) {
		if got := AvailableEndTimes(day, MustTime("05:00"), nil); len(got) != 37 {
			t.Fatalf("expected 37 end times, got %d", len(got))
		}
	})
}

func TestEngine_Classification(t *testing.T) {
	day := MustDate("2025-01-10")

	t.Run("fully booked day", func(t *testing.T) {
		intervals := []Interval{{Date: day, Start: MustTime("05:00"), End: endAt("23:30")}}
		if !IsDateFullyBooked(day, intervals) {
			t.Fatalf("expected day to be fully booked")
		}
		if got := AvailableStartTimes(day, intervals); len(got) != 0 {
			t.Fatalf("expected no start times, got %v", formatTimes(got))
		}
		if status := defaultEngine.Classify(day, intervals); status != DayFull {
			t.Fatalf("expected full, got %s", status)
		}
	})

	t.Run("partially booked day", func(t *testing.T) {
		intervals := []Interval{{Date: day, Start: MustTime("08:00"), End: endAt("10:00")}}
		partial := DateHasAnyBooking(day, intervals) && !IsDateFullyBooked(day, intervals)
		if !partial {
			t.Fatalf("expected partial day")
		}
		if status := defaultEngine.Classify(day, intervals); status != DayPartial {
			t.Fatalf("expected partial, got %s", status)
		}
	})

	t.Run("range classification covers every day", func(t *testing.T) {
		intervals := []Interval{
			{Date: day, Start: MustTime("08:00"), End: endAt("10:00")},
			{Date: day.AddDays(2), Start: MustTime("05:00"), End: endAt("23:30")},
		}
		got := defaultEngine.ClassifyRange(DateRange{From: day, To: day.AddDays(2)}, intervals)
		want := []DayAvailability{
			{Date: day, Status: DayPartial},
			{Date: day.AddDays(1), Status: DayFree},
			{Date: day.AddDays(2), Status: DayFull},
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
	})
}

func TestEngine_CanBook(t *testing.T) {
	day := MustDate("2025-01-10")
	intervals := []Interval{{Date: day, Start: MustTime("10:00"), End: endAt("12:00")}}

	cases := []struct {
		name       string
		start, end string
		want       bool
	}{
		{name: "clear window", start: "07:00", end: "09:00", want: true},
		{name: "window touching a booked marker", start: "08:00", end: "10:00", want: false},
		{name: "booked start", start: "10:30", end: "11:00", want: false},
		{name: "window straddling a booking", start: "09:00", end: "13:00", want: false},
		{name: "off ladder start", start: "07:15", end: "08:00", want: false},
		{name: "end before start", start: "14:00", end: "13:00", want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := defaultEngine.CanBook(day, MustTime(tc.start), MustTime(tc.end), intervals)
			if got != tc.want {
				t.Fatalf("CanBook(%s, %s) = %v, want %v", tc.start, tc.end, got, tc.want)
			}
		})
	}
}

func TestEngine_CanBookOpenEnded(t *testing.T) {
	day := MustDate("2025-01-10")
	intervals := []Interval{{Date: day, Start: MustTime("10:00"), End: endAt("12:00")}}

	cases := []struct {
		name  string
		start string
		want  bool
	}{
		{name: "default duration ends at the booking", start: "08:00", want: true},
		{name: "default duration runs into the booking", start: "08:30", want: false},
		{name: "booked start", start: "11:00", want: false},
		{name: "after the booking", start: "12:00", want: true},
		{name: "off ladder start", start: "12:15", want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := defaultEngine.CanBookOpenEnded(day, MustTime(tc.start), intervals)
			if got != tc.want {
				t.Fatalf("CanBookOpenEnded(%s) = %v, want %v", tc.start, got, tc.want)
			}
		})
	}

	t.Run("open-ended bookings occupy the default duration", func(t *testing.T) {
		open := []Interval{{Date: day, Start: MustTime("14:00")}}
		if defaultEngine.CanBookOpenEnded(day, MustTime("13:00"), open) {
			t.Fatalf("13:00 should collide with the implied 14:00-16:00 interval")
		}
		if !defaultEngine.CanBookOpenEnded(day, MustTime("16:00"), open) {
			t.Fatalf("16:00 should be free after the implied interval")
		}
	})
}

func TestEngine_CustomLadder(t *testing.T) {
	ladder, err := NewLadder(MustTime("06:00"), MustTime("08:00"), time.Hour)
	if err != nil {
		t.Fatalf("NewLadder returned error: %v", err)
	}
	engine := NewEngine(Options{Ladder: ladder, DefaultDuration: time.Hour})
	day := MustDate("2025-03-01")

	got := formatTimes(engine.AvailableStartTimes(day, []Interval{{Date: day, Start: MustTime("07:00")}}))
	want := []string{"06:00", "08:00"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	if _, err := NewLadder(MustTime("08:00"), MustTime("06:00"), time.Hour); err == nil {
		t.Fatalf("expected error for inverted ladder")
	}
	if _, err := NewLadder(MustTime("06:00"), MustTime("08:00"), 0); err == nil {
		t.Fatalf("expected error for zero step")
	}
}
