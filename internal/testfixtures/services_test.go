package testfixtures

import (
	"context"
	"errors"
	"testing"

	"github.com/example/masjid-scheduler/internal/application"
)

func TestServiceFactoryNewServices(t *testing.T) {
	ctx := context.Background()

	t.Run("uses the factory clock and identifiers", func(t *testing.T) {
		factory := NewServiceFactory(WithIDGenerator(NewIDGenerator("res")))
		services := factory.NewServices(ServiceDeps{})

		res, err := services.Reservations.Submit(ctx, application.ReservationInput{
			Name:         "Siti Aminah",
			Phone:        "081234567890",
			ActivityType: "aqiqah",
			Date:         ReferenceDate().AddDays(1).String(),
			StartTime:    "08:00",
		})
		if err != nil {
			t.Fatalf("Submit returned error: %v", err)
		}
		if res.ID != "res-1" {
			t.Fatalf("expected generated ID res-1, got %q", res.ID)
		}
		if !res.CreatedAt.Equal(factory.Clock.Now()) {
			t.Fatalf("expected timestamp %v, got %v", factory.Clock.Now(), res.CreatedAt)
		}
	})

	t.Run("shares occupancy across services", func(t *testing.T) {
		approved := NewReservationFixture(
			WithReservationWindow(ReferenceDate().AddDays(2).String(), "18:00", "21:00"),
			WithReservationStatus("approved"),
		)
		services := NewServiceFactory().NewServices(ServiceDeps{
			Reservations: NewMemoryReservations(approved.Application()),
		})

		_, err := services.Activities.Create(ctx, application.CreateActivityParams{
			Principal: application.Principal{UserID: "admin", IsAdmin: true},
			Input: application.ActivityInput{
				Title:        "Kajian Malam",
				ActivityType: "kajian",
				Date:         approved.Date.String(),
				StartTime:    ptr("19:00"),
			},
		})
		if !errors.Is(err, application.ErrSlotUnavailable) {
			t.Fatalf("expected ErrSlotUnavailable, got %v", err)
		}
	})
}

func ptr[T any](v T) *T { return &v }
