package application

import (
	"time"

	"github.com/example/masjid-scheduler/internal/availability"
	"github.com/example/masjid-scheduler/internal/recurrence"
)

// Principal represents the caller invoking a service method. Identity is
// asserted by the fronting backend; the service only checks the admin flag.
type Principal struct {
	UserID  string
	IsAdmin bool
}

// ReservationStatus is the review state of a reservation.
type ReservationStatus string

const (
	ReservationPending  ReservationStatus = "pending"
	ReservationApproved ReservationStatus = "approved"
	ReservationRejected ReservationStatus = "rejected"
)

// ParseReservationStatus maps a query value to a ReservationStatus.
func ParseReservationStatus(value string) (ReservationStatus, bool) {
	switch ReservationStatus(value) {
	case ReservationPending, ReservationApproved, ReservationRejected:
		return ReservationStatus(value), true
	}
	return "", false
}

// ReservationActivityTypes lists the purposes a facility can be reserved for.
var ReservationActivityTypes = []string{"pernikahan", "pengajian", "aqiqah", "tahlilan", "rapat", "lainnya"}

// ActivityTypes lists the categories of mosque-run activities.
var ActivityTypes = []string{"kajian", "pengajian", "shalat", "acara", "sosial", "reservasi"}

// ReservationInput captures the public booking form.
type ReservationInput struct {
	Name         string
	Phone        string
	Email        *string
	ActivityType string
	Description  *string
	Date         string
	StartTime    string
	EndTime      *string
}

// Reservation represents a facility booking request.
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

// ReservationQuery narrows the administrator reservation listing.
type ReservationQuery struct {
	Statuses []ReservationStatus
	From     availability.Date
	To       availability.Date
	Name     string
}

// ListReservationsParams wraps the data required to list reservations.
type ListReservationsParams struct {
	Principal Principal
	Query     ReservationQuery
}

// ReviewReservationParams wraps the data required to approve or reject a reservation.
type ReviewReservationParams struct {
	Principal     Principal
	ReservationID string
}

// RecurrenceInput captures the caller provided repeat rule of an activity.
type RecurrenceInput struct {
	Frequency string
	Weekdays  []string
	Until     *string
}

// ActivityInput captures caller provided activity fields.
type ActivityInput struct {
	Title        string
	ActivityType string
	Description  *string
	Date         string
	StartTime    *string
	EndTime      *string
	Recurrence   *RecurrenceInput
}

// ActivityRecurrence is the validated repeat rule of an activity.
type ActivityRecurrence struct {
	Frequency recurrence.Frequency
	Weekdays  []time.Weekday
	Until     *availability.Date
}

// Activity represents a mosque-run activity shown on the public calendar.
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
	Recurrence   *ActivityRecurrence
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ActivityOccurrence is a single dated appearance of an activity.
type ActivityOccurrence struct {
	ActivityID   string
	Title        string
	ActivityType string
	Description  *string
	Date         availability.Date
	Start        *availability.TimeOfDay
	End          *availability.TimeOfDay
	Recurring    bool
}

// CreateActivityParams wraps the data required to create an activity.
type CreateActivityParams struct {
	Principal Principal
	Input     ActivityInput
}

// UpdateActivityParams wraps the data required to update an existing activity.
type UpdateActivityParams struct {
	Principal  Principal
	ActivityID string
	Input      ActivityInput
}

// ActivityIDParams identifies an activity for deactivate and delete operations.
type ActivityIDParams struct {
	Principal  Principal
	ActivityID string
}

// DayUnknown marks a day whose occupancy could not be fetched.
const DayUnknown availability.DayStatus = "unknown"

// DayView lists the start times offered for a date.
type DayView struct {
	Date       availability.Date
	Status     availability.DayStatus
	Known      bool
	StartTimes []availability.TimeOfDay
}

// EndTimesView lists the end times offered for a date and start time.
type EndTimesView struct {
	Date     availability.Date
	Start    availability.TimeOfDay
	Known    bool
	EndTimes []availability.TimeOfDay
}

// CalendarView classifies every day of a month.
type CalendarView struct {
	Range availability.DateRange
	Known bool
	Days  []availability.DayAvailability
}
