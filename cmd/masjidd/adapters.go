package main

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/example/masjid-scheduler/internal/application"
	"github.com/example/masjid-scheduler/internal/persistence"
	"github.com/example/masjid-scheduler/internal/recurrence"
)

// Adapters translate between application models and persistence records.
// Persistence sentinel errors pass through; the services map them.

type reservationRepositoryAdapter struct {
	repo persistence.ReservationRepository
}

func newReservationRepositoryAdapter(repo persistence.ReservationRepository) *reservationRepositoryAdapter {
	return &reservationRepositoryAdapter{repo: repo}
}

func (a *reservationRepositoryAdapter) CreateReservation(ctx context.Context, reservation application.Reservation) (application.Reservation, error) {
	if err := a.repo.CreateReservation(ctx, toPersistenceReservation(reservation)); err != nil {
		return application.Reservation{}, err
	}
	stored, err := a.repo.GetReservation(ctx, reservation.ID)
	if err != nil {
		return application.Reservation{}, err
	}
	return toApplicationReservation(stored), nil
}

func (a *reservationRepositoryAdapter) GetReservation(ctx context.Context, id string) (application.Reservation, error) {
	stored, err := a.repo.GetReservation(ctx, id)
	if err != nil {
		return application.Reservation{}, err
	}
	return toApplicationReservation(stored), nil
}

func (a *reservationRepositoryAdapter) ListReservations(ctx context.Context, filter application.ReservationRepositoryFilter) ([]application.Reservation, error) {
	statuses := make([]persistence.ReservationStatus, 0, len(filter.Statuses))
	for _, status := range filter.Statuses {
		statuses = append(statuses, persistence.ReservationStatus(status))
	}
	stored, err := a.repo.ListReservations(ctx, persistence.ReservationFilter{
		Statuses:  statuses,
		From:      filter.From,
		To:        filter.To,
		NameQuery: filter.NameQuery,
	})
	if err != nil {
		return nil, err
	}
	out := make([]application.Reservation, 0, len(stored))
	for _, r := range stored {
		out = append(out, toApplicationReservation(r))
	}
	return out, nil
}

func (a *reservationRepositoryAdapter) TransitionReservation(ctx context.Context, id string, from, to application.ReservationStatus, reviewedBy string, reviewedAt time.Time) (application.Reservation, error) {
	stored, err := a.repo.TransitionReservation(ctx, id, persistence.ReservationStatus(from), persistence.ReservationStatus(to), reviewedBy, reviewedAt)
	if err != nil {
		return application.Reservation{}, err
	}
	return toApplicationReservation(stored), nil
}

type activityRepositoryAdapter struct {
	repo persistence.ActivityRepository
}

func newActivityRepositoryAdapter(repo persistence.ActivityRepository) *activityRepositoryAdapter {
	return &activityRepositoryAdapter{repo: repo}
}

func (a *activityRepositoryAdapter) CreateActivity(ctx context.Context, activity application.Activity) (application.Activity, error) {
	if err := a.repo.CreateActivity(ctx, toPersistenceActivity(activity)); err != nil {
		return application.Activity{}, err
	}
	return a.GetActivity(ctx, activity.ID)
}

func (a *activityRepositoryAdapter) UpdateActivity(ctx context.Context, activity application.Activity) (application.Activity, error) {
	if err := a.repo.UpdateActivity(ctx, toPersistenceActivity(activity)); err != nil {
		return application.Activity{}, err
	}
	return a.GetActivity(ctx, activity.ID)
}

func (a *activityRepositoryAdapter) GetActivity(ctx context.Context, id string) (application.Activity, error) {
	stored, err := a.repo.GetActivity(ctx, id)
	if err != nil {
		return application.Activity{}, err
	}
	return toApplicationActivity(stored)
}

func (a *activityRepositoryAdapter) ListActivities(ctx context.Context, filter application.ActivityRepositoryFilter) ([]application.Activity, error) {
	stored, err := a.repo.ListActivities(ctx, persistence.ActivityFilter{
		ActiveOnly: filter.ActiveOnly,
		From:       filter.From,
		To:         filter.To,
	})
	if err != nil {
		return nil, err
	}
	out := make([]application.Activity, 0, len(stored))
	for _, model := range stored {
		activity, err := toApplicationActivity(model)
		if err != nil {
			return nil, err
		}
		out = append(out, activity)
	}
	return out, nil
}

func (a *activityRepositoryAdapter) SetActivityActive(ctx context.Context, id string, active bool, updatedAt time.Time) error {
	return a.repo.SetActivityActive(ctx, id, active, updatedAt)
}

func (a *activityRepositoryAdapter) DeleteActivity(ctx context.Context, id string) error {
	return a.repo.DeleteActivity(ctx, id)
}

func toApplicationReservation(model persistence.Reservation) application.Reservation {
	return application.Reservation{
		ID:           model.ID,
		Name:         model.Name,
		Phone:        model.Phone,
		Email:        cloneValue(model.Email),
		ActivityType: model.ActivityType,
		Description:  cloneValue(model.Description),
		Date:         model.Date,
		Start:        model.Start,
		End:          cloneValue(model.End),
		Status:       application.ReservationStatus(model.Status),
		CreatedAt:    model.CreatedAt,
		ReviewedAt:   cloneValue(model.ReviewedAt),
		ReviewedBy:   cloneValue(model.ReviewedBy),
	}
}

func toPersistenceReservation(reservation application.Reservation) persistence.Reservation {
	return persistence.Reservation{
		ID:           reservation.ID,
		Name:         reservation.Name,
		Phone:        reservation.Phone,
		Email:        cloneValue(reservation.Email),
		ActivityType: reservation.ActivityType,
		Description:  cloneValue(reservation.Description),
		Date:         reservation.Date,
		Start:        reservation.Start,
		End:          cloneValue(reservation.End),
		Status:       persistence.ReservationStatus(reservation.Status),
		CreatedAt:    reservation.CreatedAt,
		ReviewedAt:   cloneValue(reservation.ReviewedAt),
		ReviewedBy:   cloneValue(reservation.ReviewedBy),
	}
}

func toApplicationActivity(model persistence.Activity) (application.Activity, error) {
	activity := application.Activity{
		ID:           model.ID,
		Title:        model.Title,
		ActivityType: model.ActivityType,
		Description:  cloneValue(model.Description),
		Date:         model.Date,
		Start:        cloneValue(model.Start),
		End:          cloneValue(model.End),
		Active:       model.Active,
		CreatedBy:    model.CreatedBy,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
	if rule := model.Recurrence; rule != nil {
		freq, err := recurrence.ParseFrequency(rule.Frequency)
		if err != nil {
			return application.Activity{}, fmt.Errorf("activity %s: %w", model.ID, err)
		}
		activity.Recurrence = &application.ActivityRecurrence{
			Frequency: freq,
			Weekdays:  slices.Clone(rule.Weekdays),
			Until:     cloneValue(rule.Until),
		}
	}
	return activity, nil
}

func toPersistenceActivity(activity application.Activity) persistence.Activity {
	model := persistence.Activity{
		ID:           activity.ID,
		Title:        activity.Title,
		ActivityType: activity.ActivityType,
		Description:  cloneValue(activity.Description),
		Date:         activity.Date,
		Start:        cloneValue(activity.Start),
		End:          cloneValue(activity.End),
		Active:       activity.Active,
		CreatedBy:    activity.CreatedBy,
		CreatedAt:    activity.CreatedAt,
		UpdatedAt:    activity.UpdatedAt,
	}
	if rule := activity.Recurrence; rule != nil {
		model.Recurrence = &persistence.Recurrence{
			Frequency: rule.Frequency.String(),
			Weekdays:  slices.Clone(rule.Weekdays),
			Until:     cloneValue(rule.Until),
		}
	}
	return model
}

func cloneValue[T any](value *T) *T {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
