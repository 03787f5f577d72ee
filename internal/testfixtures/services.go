package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/masjid-scheduler/internal/application"
	"github.com/example/masjid-scheduler/internal/availability"
	"github.com/example/masjid-scheduler/internal/recurrence"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// ServiceDeps captures the repositories and options behind a service set.
// Nil repositories are replaced with empty in-memory ones.
type ServiceDeps struct {
	Reservations application.ReservationRepository
	Activities   application.ActivityRepository
	Engine       *availability.Engine
	Availability application.AvailabilityOptions
	Metrics      application.SnapshotMetrics
	Logger       *slog.Logger
}

// Services is a wired set of application services sharing one availability service.
type Services struct {
	Availability *application.AvailabilityService
	Reservations *application.ReservationService
	Activities   *application.ActivityService
}

// NewServices wires the application services the same way the server does.
func (f *ServiceFactory) NewServices(deps ServiceDeps) Services {
	reservations := deps.Reservations
	if reservations == nil {
		reservations = NewMemoryReservations()
	}
	activities := deps.Activities
	if activities == nil {
		activities = NewMemoryActivities()
	}

	expander := recurrence.NewEngine(0)
	source := availability.MergeSources(
		application.NewApprovedReservationSource(reservations),
		application.NewActiveActivitySource(activities, expander),
	)
	avail := application.NewAvailabilityServiceWithLogger(source, deps.Engine, deps.Availability, deps.Metrics, deps.Logger)

	return Services{
		Availability: avail,
		Reservations: application.NewReservationServiceWithLogger(
			reservations,
			avail,
			f.IDGenerator.NextFunc(),
			f.Clock.NowFunc(),
			deps.Logger,
		),
		Activities: application.NewActivityServiceWithLogger(
			activities,
			avail,
			expander,
			f.IDGenerator.NextFunc(),
			f.Clock.NowFunc(),
			deps.Logger,
		),
	}
}
