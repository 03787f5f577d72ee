package testfixtures

import (
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/example/masjid-scheduler/internal/application"
	"github.com/example/masjid-scheduler/internal/availability"
	"github.com/example/masjid-scheduler/internal/persistence"
	"github.com/example/masjid-scheduler/internal/recurrence"
)

var (
	reservationCounter uint64
	activityCounter    uint64
)

// MosqueLocation is the fixed UTC+7 zone fixtures use as local civil time.
var MosqueLocation = time.FixedZone("WIB", 7*60*60)

var referenceTime = time.Date(2025, time.March, 10, 9, 0, 0, 0, MosqueLocation)

// ReferenceTime returns the baseline instant used by fixtures, a Monday morning.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceDate is the local calendar date of ReferenceTime.
func ReferenceDate() availability.Date {
	return availability.DateOf(referenceTime)
}

func timePtr(value string) *availability.TimeOfDay {
	if value == "" {
		return nil
	}
	t := availability.MustTime(value)
	return &t
}

// -------------------------- Reservation fixtures --------------------------

// ReservationFixture is a deterministic reservation that can be materialised
// for application or persistence tests.
type ReservationFixture struct {
	ID           string
	Name         string
	Phone        string
	Email        *string
	ActivityType string
	Description  *string
	Date         availability.Date
	Start        availability.TimeOfDay
	End          *availability.TimeOfDay
	Status       string
	CreatedAt    time.Time
	ReviewedAt   *time.Time
	ReviewedBy   *string
}

// ReservationOption configures a ReservationFixture.
type ReservationOption func(*ReservationFixture)

// NewReservationFixture returns a pending 10:00-12:00 reservation five days
// after ReferenceDate, with optional overrides.
func NewReservationFixture(opts ...ReservationOption) ReservationFixture {
	idx := atomic.AddUint64(&reservationCounter, 1)
	fixture := ReservationFixture{
		ID:           fmt.Sprintf("res-%03d", idx),
		Name:         fmt.Sprintf("Jamaah %03d", idx),
		Phone:        fmt.Sprintf("0812%08d", idx),
		ActivityType: "pengajian",
		Date:         ReferenceDate().AddDays(5),
		Start:        availability.MustTime("10:00"),
		End:          timePtr("12:00"),
		Status:       string(persistence.ReservationPending),
		CreatedAt:    referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithReservationID overrides the generated identifier.
func WithReservationID(id string) ReservationOption {
	return func(f *ReservationFixture) {
		f.ID = id
	}
}

// WithReservationName overrides the requester name.
func WithReservationName(name string) ReservationOption {
	return func(f *ReservationFixture) {
		f.Name = name
	}
}

// WithReservationEmail sets the optional email address.
func WithReservationEmail(email string) ReservationOption {
	return func(f *ReservationFixture) {
		f.Email = &email
	}
}

// WithReservationWindow sets the date and times. An empty end leaves the
// reservation open-ended.
func WithReservationWindow(date, start, end string) ReservationOption {
	return func(f *ReservationFixture) {
		f.Date = availability.MustDate(date)
		f.Start = availability.MustTime(start)
		f.End = timePtr(end)
	}
}

// WithReservationStatus sets the review state. Approved and rejected fixtures
// are stamped as reviewed by "admin" one hour after creation.
func WithReservationStatus(status string) ReservationOption {
	return func(f *ReservationFixture) {
		f.Status = status
		if status == string(persistence.ReservationPending) {
			f.ReviewedAt, f.ReviewedBy = nil, nil
			return
		}
		reviewedAt := f.CreatedAt.Add(time.Hour)
		reviewer := "admin"
		f.ReviewedAt, f.ReviewedBy = &reviewedAt, &reviewer
	}
}

// WithReservationCreatedAt overrides the creation timestamp.
func WithReservationCreatedAt(t time.Time) ReservationOption {
	return func(f *ReservationFixture) {
		f.CreatedAt = t
	}
}

// Persistence converts the fixture into a persistence record.
func (f ReservationFixture) Persistence() persistence.Reservation {
	return persistence.Reservation{
		ID:           f.ID,
		Name:         f.Name,
		Phone:        f.Phone,
		Email:        f.Email,
		ActivityType: f.ActivityType,
		Description:  f.Description,
		Date:         f.Date,
		Start:        f.Start,
		End:          f.End,
		Status:       persistence.ReservationStatus(f.Status),
		CreatedAt:    f.CreatedAt,
		ReviewedAt:   f.ReviewedAt,
		ReviewedBy:   f.ReviewedBy,
	}
}

// Application converts the fixture into an application model.
func (f ReservationFixture) Application() application.Reservation {
	return application.Reservation{
		ID:           f.ID,
		Name:         f.Name,
		Phone:        f.Phone,
		Email:        f.Email,
		ActivityType: f.ActivityType,
		Description:  f.Description,
		Date:         f.Date,
		Start:        f.Start,
		End:          f.End,
		Status:       application.ReservationStatus(f.Status),
		CreatedAt:    f.CreatedAt,
		ReviewedAt:   f.ReviewedAt,
		ReviewedBy:   f.ReviewedBy,
	}
}

// --------------------------- Activity fixtures ----------------------------

// ActivityFixture is a deterministic activity that can be materialised for
// application or persistence tests.
type ActivityFixture struct {
	ID           string
	Title        string
	ActivityType string
	Description  *string
	Date         availability.Date
	Start        *availability.TimeOfDay
	End          *availability.TimeOfDay
	Active       bool
	CreatedBy    string
	Frequency    string
	Weekdays     []time.Weekday
	Until        *availability.Date
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ActivityOption configures an ActivityFixture.
type ActivityOption func(*ActivityFixture)

// NewActivityFixture returns an active one-off 19:00-20:30 kajian five days
// after ReferenceDate, with optional overrides.
func NewActivityFixture(opts ...ActivityOption) ActivityFixture {
	idx := atomic.AddUint64(&activityCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := ActivityFixture{
		ID:           fmt.Sprintf("act-%03d", idx),
		Title:        fmt.Sprintf("Kajian %03d", idx),
		ActivityType: "kajian",
		Date:         ReferenceDate().AddDays(5),
		Start:        timePtr("19:00"),
		End:          timePtr("20:30"),
		Active:       true,
		CreatedBy:    "admin",
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithActivityID overrides the generated identifier.
func WithActivityID(id string) ActivityOption {
	return func(f *ActivityFixture) {
		f.ID = id
	}
}

// WithActivityTitle overrides the title.
func WithActivityTitle(title string) ActivityOption {
	return func(f *ActivityFixture) {
		f.Title = title
	}
}

// WithActivityWindow sets the date and times. Empty times leave the activity untimed.
func WithActivityWindow(date, start, end string) ActivityOption {
	return func(f *ActivityFixture) {
		f.Date = availability.MustDate(date)
		f.Start = timePtr(start)
		f.End = timePtr(end)
	}
}

// WithActivityInactive marks the activity deactivated.
func WithActivityInactive() ActivityOption {
	return func(f *ActivityFixture) {
		f.Active = false
	}
}

// WithWeeklyRecurrence repeats the activity on days. An empty until leaves the
// rule unbounded.
func WithWeeklyRecurrence(until string, days ...time.Weekday) ActivityOption {
	return func(f *ActivityFixture) {
		f.Frequency = recurrence.FrequencyWeekly.String()
		f.Weekdays = slices.Clone(days)
		f.Until = datePtr(until)
	}
}

// WithDailyRecurrence repeats the activity every day.
func WithDailyRecurrence(until string) ActivityOption {
	return func(f *ActivityFixture) {
		f.Frequency = recurrence.FrequencyDaily.String()
		f.Weekdays = nil
		f.Until = datePtr(until)
	}
}

func datePtr(value string) *availability.Date {
	if value == "" {
		return nil
	}
	d := availability.MustDate(value)
	return &d
}

// Persistence converts the fixture into a persistence record.
func (f ActivityFixture) Persistence() persistence.Activity {
	activity := persistence.Activity{
		ID:           f.ID,
		Title:        f.Title,
		ActivityType: f.ActivityType,
		Description:  f.Description,
		Date:         f.Date,
		Start:        f.Start,
		End:          f.End,
		Active:       f.Active,
		CreatedBy:    f.CreatedBy,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
	if f.Frequency != "" {
		activity.Recurrence = &persistence.Recurrence{
			Frequency: f.Frequency,
			Weekdays:  slices.Clone(f.Weekdays),
			Until:     f.Until,
		}
	}
	return activity
}

// Application converts the fixture into an application model.
func (f ActivityFixture) Application() application.Activity {
	activity := application.Activity{
		ID:           f.ID,
		Title:        f.Title,
		ActivityType: f.ActivityType,
		Description:  f.Description,
		Date:         f.Date,
		Start:        f.Start,
		End:          f.End,
		Active:       f.Active,
		CreatedBy:    f.CreatedBy,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
	if f.Frequency != "" {
		freq, _ := recurrence.ParseFrequency(f.Frequency)
		activity.Recurrence = &application.ActivityRecurrence{
			Frequency: freq,
			Weekdays:  slices.Clone(f.Weekdays),
			Until:     f.Until,
		}
	}
	return activity
}
