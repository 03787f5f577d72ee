package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/example/masjid-scheduler/internal/availability"
)

const (
	defaultSnapshotCacheSize = 128
	defaultSnapshotCacheTTL  = 30 * time.Second
	maxCalendarDays          = 62
)

// AvailabilityOptions configures snapshot caching and the fetch failure policy.
type AvailabilityOptions struct {
	// FailOpen treats an unreachable interval source as an empty snapshot.
	// Results are still reported with Known set to false.
	FailOpen bool
	// CacheTTL bounds how long a snapshot is served from memory.
	CacheTTL time.Duration
	// CacheSize bounds the number of cached date ranges. Negative disables caching.
	CacheSize int
}

// SnapshotMetrics receives snapshot cache and fetch outcomes.
type SnapshotMetrics interface {
	SnapshotCacheHit()
	SnapshotCacheMiss()
	SnapshotFetchFailed()
}

type noopSnapshotMetrics struct{}

func (noopSnapshotMetrics) SnapshotCacheHit()    {}
func (noopSnapshotMetrics) SnapshotCacheMiss()   {}
func (noopSnapshotMetrics) SnapshotFetchFailed() {}

// WindowCheck describes a window that is about to be booked. Intervals whose
// Ref equals IgnoreRef are excluded, so an activity never conflicts with itself.
// Repeats lists further dates on which the same window recurs; each is checked
// like Date.
type WindowCheck struct {
	Date      availability.Date
	Start     availability.TimeOfDay
	End       *availability.TimeOfDay
	Repeats   []availability.Date
	IgnoreRef string
}

func (c WindowCheck) dates() []availability.Date {
	return append([]availability.Date{c.Date}, c.Repeats...)
}

// span is the smallest range covering every checked date.
func (c WindowCheck) span() availability.DateRange {
	r := availability.SingleDay(c.Date)
	for _, d := range c.Repeats {
		if d.Before(r.From) {
			r.From = d
		}
		if d.After(r.To) {
			r.To = d
		}
	}
	return r
}

// AvailabilityService answers start time, end time and calendar questions
// from snapshots of occupied intervals.
type AvailabilityService struct {
	source   availability.IntervalSource
	engine   *availability.Engine
	failOpen bool
	cache    *expirable.LRU[string, []availability.Interval]
	// generation changes on every invalidation; fetches that started under an
	// older generation are not cached.
	generation atomic.Uint64
	// commitMu serializes check-then-write sequences.
	commitMu sync.Mutex
	metrics  SnapshotMetrics
	logger   *slog.Logger
}

// NewAvailabilityService constructs an availability service over source.
func NewAvailabilityService(source availability.IntervalSource, engine *availability.Engine, opts AvailabilityOptions) *AvailabilityService {
	return NewAvailabilityServiceWithLogger(source, engine, opts, nil, nil)
}

// NewAvailabilityServiceWithLogger constructs an availability service with metrics and a logger.
func NewAvailabilityServiceWithLogger(source availability.IntervalSource, engine *availability.Engine, opts AvailabilityOptions, metrics SnapshotMetrics, logger *slog.Logger) *AvailabilityService {
	if engine == nil {
		engine = availability.NewEngine(availability.Options{})
	}
	if metrics == nil {
		metrics = noopSnapshotMetrics{}
	}
	svc := &AvailabilityService{
		source:   source,
		engine:   engine,
		failOpen: opts.FailOpen,
		metrics:  metrics,
		logger:   defaultLogger(logger),
	}
	if opts.CacheSize >= 0 {
		size := opts.CacheSize
		if size == 0 {
			size = defaultSnapshotCacheSize
		}
		ttl := opts.CacheTTL
		if ttl <= 0 {
			ttl = defaultSnapshotCacheTTL
		}
		svc.cache = expirable.NewLRU[string, []availability.Interval](size, nil, ttl)
	}
	return svc
}

func (s *AvailabilityService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AvailabilityService", operation, attrs...)
}

// Engine exposes the engine the service evaluates snapshots with.
func (s *AvailabilityService) Engine() *availability.Engine {
	return s.engine
}

// Ladder returns the selectable times of day.
func (s *AvailabilityService) Ladder() availability.Ladder {
	return s.engine.Ladder()
}

// Commit checks the window and runs write while holding the commit lock, then
// invalidates cached snapshots. write is not called when the check fails.
func (s *AvailabilityService) Commit(ctx context.Context, check WindowCheck, write func(context.Context) error) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	if err := s.CheckWindow(ctx, check); err != nil {
		return err
	}
	if err := write(ctx); err != nil {
		return err
	}
	s.Invalidate()
	return nil
}

// Invalidate drops every cached snapshot. Writers call it after changing
// reservations or activities.
func (s *AvailabilityService) Invalidate() {
	if s == nil {
		return
	}
	s.generation.Add(1)
	if s.cache != nil {
		s.cache.Purge()
	}
}

// Day returns the start times offered on date.
func (s *AvailabilityService) Day(ctx context.Context, date availability.Date) (DayView, error) {
	if date.IsZero() {
		vErr := &ValidationError{}
		vErr.add("date", "date is required")
		return DayView{}, vErr
	}

	intervals, known := s.snapshot(ctx, availability.SingleDay(date))
	view := DayView{Date: date, Known: known, Status: DayUnknown, StartTimes: []availability.TimeOfDay{}}
	if !known && !s.failOpen {
		return view, nil
	}

	view.StartTimes = s.engine.AvailableStartTimes(date, intervals)
	if known {
		view.Status = s.engine.Classify(date, intervals)
	}
	return view, nil
}

// EndTimes returns the end times offered for a booking starting at start on date.
func (s *AvailabilityService) EndTimes(ctx context.Context, date availability.Date, start availability.TimeOfDay) (EndTimesView, error) {
	vErr := &ValidationError{}
	if date.IsZero() {
		vErr.add("date", "date is required")
	}
	if !s.engine.Ladder().Contains(start) {
		vErr.add("start", "start time is not an offered slot")
	}
	if vErr.HasErrors() {
		return EndTimesView{}, vErr
	}

	intervals, known := s.snapshot(ctx, availability.SingleDay(date))
	view := EndTimesView{Date: date, Start: start, Known: known, EndTimes: []availability.TimeOfDay{}}
	if !known && !s.failOpen {
		return view, nil
	}
	view.EndTimes = s.engine.AvailableEndTimes(date, start, intervals)
	return view, nil
}

// Calendar classifies every day in r, which must be bounded and span at most
// two months.
func (s *AvailabilityService) Calendar(ctx context.Context, r availability.DateRange) (CalendarView, error) {
	days := r.Days()
	if len(days) == 0 || len(days) > maxCalendarDays {
		vErr := &ValidationError{}
		vErr.add("range", fmt.Sprintf("range must cover between 1 and %d days", maxCalendarDays))
		return CalendarView{}, vErr
	}

	intervals, known := s.snapshot(ctx, r)
	view := CalendarView{Range: r, Known: known}
	if !known && !s.failOpen {
		view.Days = make([]availability.DayAvailability, 0, len(days))
		for _, day := range days {
			view.Days = append(view.Days, availability.DayAvailability{Date: day, Status: DayUnknown})
		}
		return view, nil
	}
	view.Days = s.engine.ClassifyRange(r, intervals)
	return view, nil
}

// CheckWindow verifies against a freshly fetched snapshot that the window can
// still be booked on every checked date. It returns ErrAvailabilityUnknown
// when the snapshot cannot be fetched and ErrSlotUnavailable when the window
// is occupied. A window without an end occupies the engine's default duration.
func (s *AvailabilityService) CheckWindow(ctx context.Context, check WindowCheck) (err error) {
	logger := s.loggerWith(ctx, "CheckWindow",
		"date", check.Date.String(),
		"start", check.Start.String(),
		"repeats", len(check.Repeats),
	)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "window rejected", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	intervals, fetchErr := s.fetch(ctx, check.span())
	if fetchErr != nil {
		err = fmt.Errorf("%w: %v", ErrAvailabilityUnknown, fetchErr)
		return
	}

	if check.IgnoreRef != "" {
		kept := intervals[:0:0]
		for _, iv := range intervals {
			if iv.Ref != check.IgnoreRef {
				kept = append(kept, iv)
			}
		}
		intervals = kept
	}

	for _, date := range check.dates() {
		var free bool
		if check.End != nil {
			free = s.engine.CanBook(date, check.Start, *check.End, intervals)
		} else {
			free = s.engine.CanBookOpenEnded(date, check.Start, intervals)
		}
		if !free {
			if date == check.Date {
				err = ErrSlotUnavailable
			} else {
				err = fmt.Errorf("%w: occurrence on %s", ErrSlotUnavailable, date)
			}
			return
		}
	}
	return
}

// snapshot returns the intervals for r, from cache when possible. known is
// false when the source failed.
func (s *AvailabilityService) snapshot(ctx context.Context, r availability.DateRange) ([]availability.Interval, bool) {
	key := r.String()
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			s.metrics.SnapshotCacheHit()
			return cached, true
		}
		s.metrics.SnapshotCacheMiss()
	}

	generation := s.generation.Load()
	intervals, err := s.fetch(ctx, r)
	if err != nil {
		s.loggerWith(ctx, "snapshot", "range", key).WarnContext(ctx, "availability snapshot unavailable",
			"error", err,
			"fail_open", s.failOpen,
		)
		return nil, false
	}

	if s.cache != nil && s.generation.Load() == generation {
		s.cache.Add(key, intervals)
	}
	return intervals, true
}

func (s *AvailabilityService) fetch(ctx context.Context, r availability.DateRange) ([]availability.Interval, error) {
	if s.source == nil {
		return nil, nil
	}
	intervals, err := s.source.ListIntervals(ctx, r)
	if err != nil {
		s.metrics.SnapshotFetchFailed()
		return nil, err
	}
	return intervals, nil
}
