package persistence

import (
	"context"
	"time"

	"github.com/example/masjid-scheduler/internal/availability"
)

// ReservationFilter narrows reservation queries. Zero values disable a condition.
type ReservationFilter struct {
	Statuses  []ReservationStatus
	From      availability.Date
	To        availability.Date
	NameQuery string
}

// ReservationRepository stores reservation requests and their review state.
type ReservationRepository interface {
	CreateReservation(ctx context.Context, reservation Reservation) error
	GetReservation(ctx context.Context, id string) (Reservation, error)
	ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error)
	// TransitionReservation moves a reservation from one status to another and
	// returns ErrConflict when the stored status is not from.
	TransitionReservation(ctx context.Context, id string, from, to ReservationStatus, reviewedBy string, reviewedAt time.Time) (Reservation, error)
}

// ActivityFilter narrows activity queries. Recurring activities match a
// range when their first date is not after To and their until date, if any,
// is not before From.
type ActivityFilter struct {
	ActiveOnly bool
	From       availability.Date
	To         availability.Date
}

// ActivityRepository exposes CRUD operations for activities.
type ActivityRepository interface {
	CreateActivity(ctx context.Context, activity Activity) error
	UpdateActivity(ctx context.Context, activity Activity) error
	GetActivity(ctx context.Context, id string) (Activity, error)
	ListActivities(ctx context.Context, filter ActivityFilter) ([]Activity, error)
	SetActivityActive(ctx context.Context, id string, active bool, updatedAt time.Time) error
	DeleteActivity(ctx context.Context, id string) error
}
