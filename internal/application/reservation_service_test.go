package application

import (
	"context"
	"errors"
	"testing"

	"github.com/example/masjid-scheduler/internal/availability"
	"github.com/example/masjid-scheduler/internal/persistence"
)

var adminPrincipal = Principal{UserID: "admin-1", IsAdmin: true}

func validReservationInput() ReservationInput {
	return ReservationInput{
		Name:         "Ahmad Fauzi",
		Phone:        "+62 812-3456-7890",
		Email:        ptr("Ahmad@Example.com"),
		ActivityType: "Pernikahan",
		Date:         "2025-03-15",
		StartTime:    "10:00",
		EndTime:      ptr("12:00"),
	}
}

func approvedReservation(id, date, start, end string) Reservation {
	return Reservation{
		ID:           id,
		Name:         "Existing",
		Phone:        "0812345678",
		ActivityType: "rapat",
		Date:         availability.MustDate(date),
		Start:        availability.MustTime(start),
		End:          tod(end),
		Status:       ReservationApproved,
		CreatedAt:    testNow,
	}
}

func TestReservationService_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("stores a pending reservation", func(t *testing.T) {
		repo := newReservationRepoStub()
		svc, _, _ := newWiredServices(repo, newActivityRepoStub())

		res, err := svc.Submit(ctx, validReservationInput())
		if err != nil {
			t.Fatalf("Submit returned error: %v", err)
		}
		if res.ID != "res-1" || res.Status != ReservationPending {
			t.Fatalf("unexpected reservation %+v", res)
		}
		if res.ActivityType != "pernikahan" {
			t.Fatalf("expected normalized activity type, got %q", res.ActivityType)
		}
		if res.Email == nil || *res.Email != "ahmad@example.com" {
			t.Fatalf("expected lowercased email, got %v", res.Email)
		}
		if res.End == nil || res.End.String() != "12:00" {
			t.Fatalf("expected end 12:00, got %v", res.End)
		}
		if _, err := repo.GetReservation(ctx, res.ID); err != nil {
			t.Fatalf("reservation not persisted: %v", err)
		}
	})

	t.Run("reports every invalid field", func(t *testing.T) {
		svc, _, _ := newWiredServices(newReservationRepoStub(), newActivityRepoStub())

		_, err := svc.Submit(ctx, ReservationInput{
			Phone:        "abc",
			Email:        ptr("not-an-email"),
			ActivityType: "konser",
			Date:         "2025-03-01",
			StartTime:    "10:15",
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"name", "phone", "email", "activity_type", "date", "start_time"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected %s error, got %v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("rejects end before start", func(t *testing.T) {
		svc, _, _ := newWiredServices(newReservationRepoStub(), newActivityRepoStub())

		input := validReservationInput()
		input.EndTime = ptr("09:00")
		_, err := svc.Submit(ctx, input)

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["end_time"]; !ok {
			t.Fatalf("expected end_time error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("accepts today", func(t *testing.T) {
		svc, _, _ := newWiredServices(newReservationRepoStub(), newActivityRepoStub())

		input := validReservationInput()
		input.Date = "2025-03-10"
		if _, err := svc.Submit(ctx, input); err != nil {
			t.Fatalf("Submit returned error: %v", err)
		}
	})

	t.Run("refuses a window overlapping an approved reservation", func(t *testing.T) {
		repo := newReservationRepoStub(approvedReservation("r-approved", "2025-03-15", "11:00", "13:00"))
		svc, _, _ := newWiredServices(repo, newActivityRepoStub())

		_, err := svc.Submit(ctx, validReservationInput())
		if !errors.Is(err, ErrSlotUnavailable) {
			t.Fatalf("expected ErrSlotUnavailable, got %v", err)
		}
		if len(repo.items) != 1 {
			t.Fatalf("expected no new reservation, got %d", len(repo.items))
		}
	})

	t.Run("refuses an open-ended window running into an approved reservation", func(t *testing.T) {
		repo := newReservationRepoStub(approvedReservation("r-approved", "2025-03-15", "08:00", "10:00"))
		svc, _, _ := newWiredServices(repo, newActivityRepoStub())

		input := validReservationInput()
		input.StartTime = "07:30"
		input.EndTime = nil
		_, err := svc.Submit(ctx, input)
		if !errors.Is(err, ErrSlotUnavailable) {
			t.Fatalf("expected ErrSlotUnavailable, got %v", err)
		}
	})

	t.Run("ignores pending reservations", func(t *testing.T) {
		pending := approvedReservation("r-pending", "2025-03-15", "10:00", "12:00")
		pending.Status = ReservationPending
		svc, _, _ := newWiredServices(newReservationRepoStub(pending), newActivityRepoStub())

		if _, err := svc.Submit(ctx, validReservationInput()); err != nil {
			t.Fatalf("Submit returned error: %v", err)
		}
	})

	t.Run("refuses a window overlapping an active activity", func(t *testing.T) {
		activities := newActivityRepoStub(Activity{
			ID:           "kajian",
			Title:        "Kajian Ahad",
			ActivityType: "kajian",
			Date:         availability.MustDate("2025-03-15"),
			Start:        tod("09:00"),
			End:          tod("10:30"),
			Active:       true,
		})
		svc, _, _ := newWiredServices(newReservationRepoStub(), activities)

		_, err := svc.Submit(ctx, validReservationInput())
		if !errors.Is(err, ErrSlotUnavailable) {
			t.Fatalf("expected ErrSlotUnavailable, got %v", err)
		}
	})

	t.Run("refuses when availability is unknown", func(t *testing.T) {
		repo := newReservationRepoStub()
		repo.listErr = errors.New("connection reset")
		svc, _, _ := newWiredServices(repo, newActivityRepoStub())

		_, err := svc.Submit(ctx, validReservationInput())
		if !errors.Is(err, ErrAvailabilityUnknown) {
			t.Fatalf("expected ErrAvailabilityUnknown, got %v", err)
		}
	})
}

func TestReservationService_Review(t *testing.T) {
	ctx := context.Background()

	pendingAt := func(id, start, end string) Reservation {
		res := approvedReservation(id, "2025-03-15", start, end)
		res.Status = ReservationPending
		return res
	}

	t.Run("requires administrator privileges", func(t *testing.T) {
		svc, _, _ := newWiredServices(newReservationRepoStub(pendingAt("p1", "10:00", "12:00")), newActivityRepoStub())

		_, err := svc.Approve(ctx, ReviewReservationParams{Principal: Principal{UserID: "u1"}, ReservationID: "p1"})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("approves and records the reviewer", func(t *testing.T) {
		svc, _, _ := newWiredServices(newReservationRepoStub(pendingAt("p1", "10:00", "12:00")), newActivityRepoStub())

		res, err := svc.Approve(ctx, ReviewReservationParams{Principal: adminPrincipal, ReservationID: "p1"})
		if err != nil {
			t.Fatalf("Approve returned error: %v", err)
		}
		if res.Status != ReservationApproved {
			t.Fatalf("expected approved, got %s", res.Status)
		}
		if res.ReviewedBy == nil || *res.ReviewedBy != "admin-1" {
			t.Fatalf("expected reviewer admin-1, got %v", res.ReviewedBy)
		}
		if res.ReviewedAt == nil || !res.ReviewedAt.Equal(testNow) {
			t.Fatalf("expected reviewed at %v, got %v", testNow, res.ReviewedAt)
		}
	})

	t.Run("approval blocks the slot for later submissions", func(t *testing.T) {
		svc, _, avail := newWiredServices(newReservationRepoStub(pendingAt("p1", "10:00", "12:00")), newActivityRepoStub())

		before, _ := avail.Day(ctx, testDay)
		if _, err := svc.Approve(ctx, ReviewReservationParams{Principal: adminPrincipal, ReservationID: "p1"}); err != nil {
			t.Fatalf("Approve returned error: %v", err)
		}
		after, _ := avail.Day(ctx, testDay)
		if len(after.StartTimes) != len(before.StartTimes)-4 {
			t.Fatalf("expected approval to remove 4 start times, before=%d after=%d", len(before.StartTimes), len(after.StartTimes))
		}
	})

	t.Run("second overlapping approval conflicts", func(t *testing.T) {
		repo := newReservationRepoStub(pendingAt("p1", "10:00", "12:00"), pendingAt("p2", "11:00", "13:00"))
		svc, _, _ := newWiredServices(repo, newActivityRepoStub())

		if _, err := svc.Approve(ctx, ReviewReservationParams{Principal: adminPrincipal, ReservationID: "p1"}); err != nil {
			t.Fatalf("first Approve returned error: %v", err)
		}
		_, err := svc.Approve(ctx, ReviewReservationParams{Principal: adminPrincipal, ReservationID: "p2"})
		if !errors.Is(err, ErrSlotUnavailable) {
			t.Fatalf("expected ErrSlotUnavailable, got %v", err)
		}
		if repo.items["p2"].Status != ReservationPending {
			t.Fatalf("conflicting reservation should stay pending")
		}
	})

	t.Run("open-ended approval conflicts with an approved neighbour", func(t *testing.T) {
		openEnded := pendingAt("p2", "07:30", "08:00")
		openEnded.End = nil
		repo := newReservationRepoStub(pendingAt("p1", "08:00", "10:00"), openEnded)
		svc, _, _ := newWiredServices(repo, newActivityRepoStub())

		if _, err := svc.Approve(ctx, ReviewReservationParams{Principal: adminPrincipal, ReservationID: "p1"}); err != nil {
			t.Fatalf("first Approve returned error: %v", err)
		}
		_, err := svc.Approve(ctx, ReviewReservationParams{Principal: adminPrincipal, ReservationID: "p2"})
		if !errors.Is(err, ErrSlotUnavailable) {
			t.Fatalf("expected ErrSlotUnavailable, got %v", err)
		}
		if repo.items["p2"].Status != ReservationPending {
			t.Fatalf("conflicting reservation should stay pending")
		}
	})

	t.Run("rejects only pending reservations", func(t *testing.T) {
		repo := newReservationRepoStub(pendingAt("p1", "10:00", "12:00"))
		svc, _, _ := newWiredServices(repo, newActivityRepoStub())

		res, err := svc.Reject(ctx, ReviewReservationParams{Principal: adminPrincipal, ReservationID: "p1"})
		if err != nil {
			t.Fatalf("Reject returned error: %v", err)
		}
		if res.Status != ReservationRejected {
			t.Fatalf("expected rejected, got %s", res.Status)
		}

		_, err = svc.Approve(ctx, ReviewReservationParams{Principal: adminPrincipal, ReservationID: "p1"})
		if !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("maps a concurrent transition to ErrInvalidTransition", func(t *testing.T) {
		repo := newReservationRepoStub(pendingAt("p1", "10:00", "12:00"))
		repo.transitionErr = persistence.ErrConflict
		svc, _, _ := newWiredServices(repo, newActivityRepoStub())

		_, err := svc.Reject(ctx, ReviewReservationParams{Principal: adminPrincipal, ReservationID: "p1"})
		if !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("unknown reservation", func(t *testing.T) {
		svc, _, _ := newWiredServices(newReservationRepoStub(), newActivityRepoStub())

		_, err := svc.Reject(ctx, ReviewReservationParams{Principal: adminPrincipal, ReservationID: "missing"})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestReservationService_List(t *testing.T) {
	ctx := context.Background()
	repo := newReservationRepoStub(
		approvedReservation("a", "2025-03-15", "10:00", "12:00"),
		approvedReservation("b", "2025-04-02", "10:00", "12:00"),
	)
	svc, _, _ := newWiredServices(repo, newActivityRepoStub())

	t.Run("requires administrator privileges", func(t *testing.T) {
		_, err := svc.List(ctx, ListReservationsParams{Principal: Principal{UserID: "u"}})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("filters by date range", func(t *testing.T) {
		got, err := svc.List(ctx, ListReservationsParams{
			Principal: adminPrincipal,
			Query:     ReservationQuery{From: availability.MustDate("2025-03-01"), To: availability.MustDate("2025-03-31")},
		})
		if err != nil {
			t.Fatalf("List returned error: %v", err)
		}
		if len(got) != 1 || got[0].ID != "a" {
			t.Fatalf("expected reservation a, got %+v", got)
		}
	})

	t.Run("rejects inverted range", func(t *testing.T) {
		_, err := svc.List(ctx, ListReservationsParams{
			Principal: adminPrincipal,
			Query:     ReservationQuery{From: availability.MustDate("2025-04-01"), To: availability.MustDate("2025-03-01")},
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})
}
