package application

import (
	"context"
	"fmt"

	"github.com/example/masjid-scheduler/internal/availability"
	"github.com/example/masjid-scheduler/internal/recurrence"
)

// ApprovedReservationSource reports approved reservations as occupied intervals.
type ApprovedReservationSource struct {
	reservations ReservationRepository
}

// NewApprovedReservationSource constructs the reservation interval source.
func NewApprovedReservationSource(reservations ReservationRepository) *ApprovedReservationSource {
	return &ApprovedReservationSource{reservations: reservations}
}

// ListIntervals implements availability.IntervalSource.
func (s *ApprovedReservationSource) ListIntervals(ctx context.Context, r availability.DateRange) ([]availability.Interval, error) {
	reservations, err := s.reservations.ListReservations(ctx, ReservationRepositoryFilter{
		Statuses: []ReservationStatus{ReservationApproved},
		From:     r.From,
		To:       r.To,
	})
	if err != nil {
		return nil, fmt.Errorf("list approved reservations: %w", err)
	}

	intervals := make([]availability.Interval, 0, len(reservations))
	for _, reservation := range reservations {
		if reservation.Status != ReservationApproved {
			continue
		}
		intervals = append(intervals, availability.Interval{
			Date:  reservation.Date,
			Start: reservation.Start,
			End:   cloneTime(reservation.End),
			Ref:   reservationRef(reservation.ID),
		})
	}
	return intervals, nil
}

// ActiveActivitySource reports timed active activities, including recurring
// occurrences, as occupied intervals.
type ActiveActivitySource struct {
	activities ActivityRepository
	expander   *recurrence.Engine
}

// NewActiveActivitySource constructs the activity interval source.
func NewActiveActivitySource(activities ActivityRepository, expander *recurrence.Engine) *ActiveActivitySource {
	if expander == nil {
		expander = recurrence.NewEngine(0)
	}
	return &ActiveActivitySource{activities: activities, expander: expander}
}

// ListIntervals implements availability.IntervalSource.
func (s *ActiveActivitySource) ListIntervals(ctx context.Context, r availability.DateRange) ([]availability.Interval, error) {
	activities, err := s.activities.ListActivities(ctx, ActivityRepositoryFilter{ActiveOnly: true, From: r.From, To: r.To})
	if err != nil {
		return nil, fmt.Errorf("list active activities: %w", err)
	}

	occurrences, err := expandActivities(s.expander, activities, r)
	if err != nil {
		return nil, err
	}

	intervals := make([]availability.Interval, 0, len(occurrences))
	for _, occ := range occurrences {
		if occ.Start == nil {
			continue
		}
		intervals = append(intervals, availability.Interval{
			Date:  occ.Date,
			Start: *occ.Start,
			End:   cloneTime(occ.End),
			Ref:   activityRef(occ.ActivityID),
		})
	}
	return intervals, nil
}

func activityRef(id string) string {
	return "activity:" + id
}

// expandActivities turns active activities into dated occurrences inside r.
// One-off activities outside r are dropped.
func expandActivities(expander *recurrence.Engine, activities []Activity, r availability.DateRange) ([]ActivityOccurrence, error) {
	occurrences := make([]ActivityOccurrence, 0, len(activities))
	for _, activity := range activities {
		if !activity.Active {
			continue
		}
		if activity.Recurrence == nil {
			if r.Contains(activity.Date) {
				occurrences = append(occurrences, occurrenceOf(activity, activity.Date))
			}
			continue
		}

		dates, err := expander.Dates(recurrence.Rule{
			Frequency: activity.Recurrence.Frequency,
			Weekdays:  activity.Recurrence.Weekdays,
			StartsOn:  activity.Date,
			Until:     activity.Recurrence.Until,
		}, r)
		if err != nil {
			return nil, fmt.Errorf("expand activity %s: %w", activity.ID, err)
		}
		for _, date := range dates {
			occurrences = append(occurrences, occurrenceOf(activity, date))
		}
	}
	return occurrences, nil
}

func occurrenceOf(activity Activity, date availability.Date) ActivityOccurrence {
	return ActivityOccurrence{
		ActivityID:   activity.ID,
		Title:        activity.Title,
		ActivityType: activity.ActivityType,
		Description:  activity.Description,
		Date:         date,
		Start:        cloneTime(activity.Start),
		End:          cloneTime(activity.End),
		Recurring:    activity.Recurrence != nil,
	}
}

func cloneTime(value *availability.TimeOfDay) *availability.TimeOfDay {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
