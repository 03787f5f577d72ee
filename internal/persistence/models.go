package persistence

import (
	"time"

	"github.com/example/masjid-scheduler/internal/availability"
)

// ReservationStatus is the stored review state of a reservation.
type ReservationStatus string

const (
	ReservationPending  ReservationStatus = "pending"
	ReservationApproved ReservationStatus = "approved"
	ReservationRejected ReservationStatus = "rejected"
)

// Reservation represents a facility booking request submitted by the public.
type Reservation struct {
	ID           string
	Name         string
	Phone        string
	Email        *string
	ActivityType string
	Description  *string
	Date         availability.Date
	Start        availability.TimeOfDay
	End          *availability.TimeOfDay
	Status       ReservationStatus
	CreatedAt    time.Time
	ReviewedAt   *time.Time
	ReviewedBy   *string
}

// Activity represents a mosque-run activity on the public calendar.
type Activity struct {
	ID           string
	Title        string
	ActivityType string
	Description  *string
	Date         availability.Date
	Start        *availability.TimeOfDay
	End          *availability.TimeOfDay
	Active       bool
	CreatedBy    string
	Recurrence   *Recurrence
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Recurrence stores the repeat rule of an activity. Frequency holds the
// stored name ("daily" or "weekly").
type Recurrence struct {
	Frequency string
	Weekdays  []time.Weekday
	Until     *availability.Date
}
