package testfixtures

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/example/masjid-scheduler/internal/application"
	"github.com/example/masjid-scheduler/internal/availability"
)

// MemoryReservations is an in-memory application.ReservationRepository.
// Setting ListErr makes every listing fail, which simulates a storage outage.
type MemoryReservations struct {
	mu      sync.Mutex
	items   map[string]application.Reservation
	ListErr error
}

// NewMemoryReservations returns a repository seeded with reservations.
func NewMemoryReservations(seed ...application.Reservation) *MemoryReservations {
	m := &MemoryReservations{items: make(map[string]application.Reservation)}
	for _, r := range seed {
		m.items[r.ID] = r
	}
	return m
}

// SetListErr changes the listing failure under the repository lock.
func (m *MemoryReservations) SetListErr(err error) {
	m.mu.Lock()
	m.ListErr = err
	m.mu.Unlock()
}

func (m *MemoryReservations) CreateReservation(ctx context.Context, reservation application.Reservation) (application.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.items[reservation.ID]; exists {
		return application.Reservation{}, application.ErrAlreadyExists
	}
	m.items[reservation.ID] = reservation
	return reservation, nil
}

func (m *MemoryReservations) GetReservation(ctx context.Context, id string) (application.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[id]
	if !ok {
		return application.Reservation{}, application.ErrNotFound
	}
	return r, nil
}

func (m *MemoryReservations) ListReservations(ctx context.Context, filter application.ReservationRepositoryFilter) ([]application.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}

	rng := availability.DateRange{From: filter.From, To: filter.To}
	query := strings.ToLower(filter.NameQuery)
	out := make([]application.Reservation, 0, len(m.items))
	for _, r := range m.items {
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, r.Status) {
			continue
		}
		if !rng.Contains(r.Date) {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(r.Name), query) {
			continue
		}
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b application.Reservation) int {
		switch {
		case a.Date != b.Date && a.Date.Before(b.Date):
			return -1
		case a.Date != b.Date:
			return 1
		case a.Start != b.Start:
			return int(a.Start - b.Start)
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (m *MemoryReservations) TransitionReservation(ctx context.Context, id string, from, to application.ReservationStatus, reviewedBy string, reviewedAt time.Time) (application.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[id]
	if !ok {
		return application.Reservation{}, application.ErrNotFound
	}
	if r.Status != from {
		return application.Reservation{}, application.ErrInvalidTransition
	}
	r.Status = to
	r.ReviewedBy = &reviewedBy
	r.ReviewedAt = &reviewedAt
	m.items[id] = r
	return r, nil
}

// MemoryActivities is an in-memory application.ActivityRepository.
type MemoryActivities struct {
	mu      sync.Mutex
	items   map[string]application.Activity
	ListErr error
}

// NewMemoryActivities returns a repository seeded with activities.
func NewMemoryActivities(seed ...application.Activity) *MemoryActivities {
	m := &MemoryActivities{items: make(map[string]application.Activity)}
	for _, a := range seed {
		m.items[a.ID] = a
	}
	return m
}

func (m *MemoryActivities) CreateActivity(ctx context.Context, activity application.Activity) (application.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.items[activity.ID]; exists {
		return application.Activity{}, application.ErrAlreadyExists
	}
	m.items[activity.ID] = activity
	return activity, nil
}

func (m *MemoryActivities) UpdateActivity(ctx context.Context, activity application.Activity) (application.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[activity.ID]; !ok {
		return application.Activity{}, application.ErrNotFound
	}
	m.items[activity.ID] = activity
	return activity, nil
}

func (m *MemoryActivities) GetActivity(ctx context.Context, id string) (application.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok {
		return application.Activity{}, application.ErrNotFound
	}
	return a, nil
}

func (m *MemoryActivities) ListActivities(ctx context.Context, filter application.ActivityRepositoryFilter) ([]application.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	out := make([]application.Activity, 0, len(m.items))
	for _, a := range m.items {
		if filter.ActiveOnly && !a.Active {
			continue
		}
		if !filter.To.IsZero() && a.Date.After(filter.To) {
			continue
		}
		if a.Recurrence == nil && !filter.From.IsZero() && a.Date.Before(filter.From) {
			continue
		}
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b application.Activity) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (m *MemoryActivities) SetActivityActive(ctx context.Context, id string, active bool, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok {
		return application.ErrNotFound
	}
	a.Active = active
	a.UpdatedAt = updatedAt
	m.items[id] = a
	return nil
}

func (m *MemoryActivities) DeleteActivity(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return application.ErrNotFound
	}
	delete(m.items, id)
	return nil
}
