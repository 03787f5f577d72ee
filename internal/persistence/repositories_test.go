package persistence_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/masjid-scheduler/internal/availability"
	"github.com/example/masjid-scheduler/internal/persistence"
	"github.com/example/masjid-scheduler/internal/testfixtures"
)

func TestReservationRepositoryContract(t *testing.T) {
	t.Parallel()

	t.Run("orders listings by date then start time", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		harness := testfixtures.NewSQLiteHarness(t)

		fixtures := []persistence.Reservation{
			testfixtures.NewReservationFixture(testfixtures.WithReservationID("c"), testfixtures.WithReservationWindow("2025-03-16", "08:00", "09:00")).Persistence(),
			testfixtures.NewReservationFixture(testfixtures.WithReservationID("b"), testfixtures.WithReservationWindow("2025-03-15", "13:00", "")).Persistence(),
			testfixtures.NewReservationFixture(testfixtures.WithReservationID("a"), testfixtures.WithReservationWindow("2025-03-15", "07:30", "08:00")).Persistence(),
		}
		for _, r := range fixtures {
			if err := harness.Reservations.CreateReservation(ctx, r); err != nil {
				t.Fatalf("CreateReservation(%s) failed: %v", r.ID, err)
			}
		}

		got, err := harness.Reservations.ListReservations(ctx, persistence.ReservationFilter{})
		if err != nil {
			t.Fatalf("ListReservations failed: %v", err)
		}
		ids := make([]string, 0, len(got))
		for _, r := range got {
			ids = append(ids, r.ID)
		}
		if len(ids) != 3 || ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
			t.Fatalf("unexpected order %v", ids)
		}
		if got[1].End != nil {
			t.Fatalf("expected open-ended reservation to keep a nil end")
		}
	})

	t.Run("name search treats wildcards literally", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		harness := testfixtures.NewSQLiteHarness(t)

		for _, name := range []string{"Budi 100% Hadir", "Budi Santoso"} {
			r := testfixtures.NewReservationFixture(testfixtures.WithReservationName(name)).Persistence()
			if err := harness.Reservations.CreateReservation(ctx, r); err != nil {
				t.Fatalf("CreateReservation failed: %v", err)
			}
		}

		got, err := harness.Reservations.ListReservations(ctx, persistence.ReservationFilter{NameQuery: "100%"})
		if err != nil {
			t.Fatalf("ListReservations failed: %v", err)
		}
		if len(got) != 1 || got[0].Name != "Budi 100% Hadir" {
			t.Fatalf("expected literal match only, got %+v", got)
		}

		got, err = harness.Reservations.ListReservations(ctx, persistence.ReservationFilter{NameQuery: "BUDI"})
		if err != nil {
			t.Fatalf("ListReservations failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected case-insensitive match, got %d", len(got))
		}
	})

	t.Run("only one concurrent transition wins", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		harness := testfixtures.NewSQLiteHarness(t)

		r := testfixtures.NewReservationFixture().Persistence()
		if err := harness.Reservations.CreateReservation(ctx, r); err != nil {
			t.Fatalf("CreateReservation failed: %v", err)
		}

		var wg sync.WaitGroup
		errs := make([]error, 2)
		targets := []persistence.ReservationStatus{persistence.ReservationApproved, persistence.ReservationRejected}
		for i, to := range targets {
			wg.Add(1)
			go func(i int, to persistence.ReservationStatus) {
				defer wg.Done()
				_, errs[i] = harness.Reservations.TransitionReservation(ctx, r.ID, persistence.ReservationPending, to, "admin", time.Now())
			}(i, to)
		}
		wg.Wait()

		conflicts := 0
		for _, err := range errs {
			switch {
			case err == nil:
			case errors.Is(err, persistence.ErrConflict):
				conflicts++
			default:
				t.Fatalf("unexpected error %v", err)
			}
		}
		if conflicts != 1 {
			t.Fatalf("expected exactly one conflict, got %v", errs)
		}
	})
}

func TestActivityRepositoryContract(t *testing.T) {
	t.Parallel()

	t.Run("round-trips untimed and recurring activities", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		harness := testfixtures.NewSQLiteHarness(t)

		untimed := testfixtures.NewActivityFixture(
			testfixtures.WithActivityID("untimed"),
			testfixtures.WithActivityWindow("2025-03-20", "", ""),
		).Persistence()
		daily := testfixtures.NewActivityFixture(
			testfixtures.WithActivityID("daily"),
			testfixtures.WithActivityWindow("2025-03-01", "04:30", ""),
			testfixtures.WithDailyRecurrence(""),
		).Persistence()

		for _, a := range []persistence.Activity{untimed, daily} {
			if err := harness.Activities.CreateActivity(ctx, a); err != nil {
				t.Fatalf("CreateActivity(%s) failed: %v", a.ID, err)
			}
		}

		got, err := harness.Activities.GetActivity(ctx, "untimed")
		if err != nil {
			t.Fatalf("GetActivity failed: %v", err)
		}
		if got.Start != nil || got.End != nil || got.Recurrence != nil {
			t.Fatalf("expected untimed one-off activity, got %+v", got)
		}

		got, err = harness.Activities.GetActivity(ctx, "daily")
		if err != nil {
			t.Fatalf("GetActivity failed: %v", err)
		}
		if got.Recurrence == nil || got.Recurrence.Frequency != "daily" || len(got.Recurrence.Weekdays) != 0 || got.Recurrence.Until != nil {
			t.Fatalf("unexpected recurrence %+v", got.Recurrence)
		}
	})

	t.Run("active range listing skips finished and inactive activities", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		harness := testfixtures.NewSQLiteHarness(t)

		seed := []persistence.Activity{
			testfixtures.NewActivityFixture(testfixtures.WithActivityID("ended"), testfixtures.WithActivityWindow("2025-01-04", "19:00", ""),
				testfixtures.WithWeeklyRecurrence("2025-02-28", time.Saturday)).Persistence(),
			testfixtures.NewActivityFixture(testfixtures.WithActivityID("hidden"), testfixtures.WithActivityWindow("2025-03-12", "19:00", ""),
				testfixtures.WithActivityInactive()).Persistence(),
			testfixtures.NewActivityFixture(testfixtures.WithActivityID("visible"), testfixtures.WithActivityWindow("2025-03-12", "19:00", "")).Persistence(),
		}
		for _, a := range seed {
			if err := harness.Activities.CreateActivity(ctx, a); err != nil {
				t.Fatalf("CreateActivity(%s) failed: %v", a.ID, err)
			}
		}

		got, err := harness.Activities.ListActivities(ctx, persistence.ActivityFilter{
			ActiveOnly: true,
			From:       availability.MustDate("2025-03-10"),
			To:         availability.MustDate("2025-03-16"),
		})
		if err != nil {
			t.Fatalf("ListActivities failed: %v", err)
		}
		if len(got) != 1 || got[0].ID != "visible" {
			t.Fatalf("expected only the visible activity, got %+v", got)
		}
	})
}
