package application

import (
	"context"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/example/masjid-scheduler/internal/availability"
	"github.com/example/masjid-scheduler/internal/persistence"
)

var testNow = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return prefix + "-" + strconv.Itoa(n)
	}
}

func ptr[T any](v T) *T { return &v }

func tod(value string) *availability.TimeOfDay {
	t := availability.MustTime(value)
	return &t
}

type reservationRepoStub struct {
	mu    sync.Mutex
	items map[string]Reservation

	createErr     error
	listErr       error
	transitionErr error
	listCalls     int
}

func newReservationRepoStub(seed ...Reservation) *reservationRepoStub {
	r := &reservationRepoStub{items: make(map[string]Reservation)}
	for _, res := range seed {
		r.items[res.ID] = res
	}
	return r
}

func (r *reservationRepoStub) CreateReservation(ctx context.Context, reservation Reservation) (Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return Reservation{}, r.createErr
	}
	if _, exists := r.items[reservation.ID]; exists {
		return Reservation{}, persistence.ErrDuplicate
	}
	r.items[reservation.ID] = reservation
	return reservation, nil
}

func (r *reservationRepoStub) GetReservation(ctx context.Context, id string) (Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.items[id]
	if !ok {
		return Reservation{}, persistence.ErrNotFound
	}
	return res, nil
}

func (r *reservationRepoStub) ListReservations(ctx context.Context, filter ReservationRepositoryFilter) ([]Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	if r.listErr != nil {
		return nil, r.listErr
	}
	rng := availability.DateRange{From: filter.From, To: filter.To}
	out := make([]Reservation, 0, len(r.items))
	for _, res := range r.items {
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, res.Status) {
			continue
		}
		if !rng.Contains(res.Date) {
			continue
		}
		out = append(out, res)
	}
	slices.SortFunc(out, func(a, b Reservation) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out, nil
}

func (r *reservationRepoStub) TransitionReservation(ctx context.Context, id string, from, to ReservationStatus, reviewedBy string, reviewedAt time.Time) (Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.transitionErr != nil {
		return Reservation{}, r.transitionErr
	}
	res, ok := r.items[id]
	if !ok {
		return Reservation{}, persistence.ErrNotFound
	}
	if res.Status != from {
		return Reservation{}, persistence.ErrConflict
	}
	res.Status = to
	res.ReviewedBy = &reviewedBy
	res.ReviewedAt = &reviewedAt
	r.items[id] = res
	return res, nil
}

type activityRepoStub struct {
	mu    sync.Mutex
	items map[string]Activity

	createErr error
	listErr   error
	deleteErr error
}

func newActivityRepoStub(seed ...Activity) *activityRepoStub {
	r := &activityRepoStub{items: make(map[string]Activity)}
	for _, a := range seed {
		r.items[a.ID] = a
	}
	return r
}

func (r *activityRepoStub) CreateActivity(ctx context.Context, activity Activity) (Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return Activity{}, r.createErr
	}
	r.items[activity.ID] = activity
	return activity, nil
}

func (r *activityRepoStub) UpdateActivity(ctx context.Context, activity Activity) (Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[activity.ID]; !ok {
		return Activity{}, persistence.ErrNotFound
	}
	r.items[activity.ID] = activity
	return activity, nil
}

func (r *activityRepoStub) GetActivity(ctx context.Context, id string) (Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return Activity{}, persistence.ErrNotFound
	}
	return a, nil
}

func (r *activityRepoStub) ListActivities(ctx context.Context, filter ActivityRepositoryFilter) ([]Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]Activity, 0, len(r.items))
	for _, a := range r.items {
		if filter.ActiveOnly && !a.Active {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *activityRepoStub) SetActivityActive(ctx context.Context, id string, active bool, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return persistence.ErrNotFound
	}
	a.Active = active
	a.UpdatedAt = updatedAt
	r.items[id] = a
	return nil
}

func (r *activityRepoStub) DeleteActivity(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.items[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

// countingSource wraps an interval source and counts fetches.
type countingSource struct {
	mu        sync.Mutex
	intervals []availability.Interval
	err       error
	calls     int
}

func (s *countingSource) ListIntervals(ctx context.Context, r availability.DateRange) ([]availability.Interval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]availability.Interval, 0, len(s.intervals))
	for _, iv := range s.intervals {
		if r.Contains(iv.Date) {
			out = append(out, iv)
		}
	}
	return out, nil
}

func (s *countingSource) fetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// newWiredServices connects both services to one availability service over the stubs.
func newWiredServices(reservations *reservationRepoStub, activities *activityRepoStub) (*ReservationService, *ActivityService, *AvailabilityService) {
	source := availability.MergeSources(
		NewApprovedReservationSource(reservations),
		NewActiveActivitySource(activities, nil),
	)
	avail := NewAvailabilityService(source, nil, AvailabilityOptions{})
	resSvc := NewReservationService(reservations, avail, sequentialIDs("res"), fixedNow)
	actSvc := NewActivityService(activities, avail, nil, sequentialIDs("act"), fixedNow)
	return resSvc, actSvc, avail
}
