package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/masjid-scheduler/internal/availability"
	"github.com/example/masjid-scheduler/internal/persistence"
)

// ReservationRepositoryFilter narrows reservation queries. Zero values disable a condition.
type ReservationRepositoryFilter struct {
	Statuses  []ReservationStatus
	From      availability.Date
	To        availability.Date
	NameQuery string
}

// ReservationRepository captures the persistence operations needed by the service.
type ReservationRepository interface {
	CreateReservation(ctx context.Context, reservation Reservation) (Reservation, error)
	GetReservation(ctx context.Context, id string) (Reservation, error)
	ListReservations(ctx context.Context, filter ReservationRepositoryFilter) ([]Reservation, error)
	TransitionReservation(ctx context.Context, id string, from, to ReservationStatus, reviewedBy string, reviewedAt time.Time) (Reservation, error)
}

// SlotGuard serializes availability checks with the writes that depend on them.
type SlotGuard interface {
	Ladder() availability.Ladder
	Commit(ctx context.Context, check WindowCheck, write func(context.Context) error) error
	Invalidate()
}

// ReservationService orchestrates validation, availability checks, and review of reservations.
type ReservationService struct {
	reservations ReservationRepository
	guard        SlotGuard
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewReservationService constructs a reservation service with the provided dependencies.
func NewReservationService(reservations ReservationRepository, guard SlotGuard, idGenerator func() string, now func() time.Time) *ReservationService {
	return NewReservationServiceWithLogger(reservations, guard, idGenerator, now, nil)
}

// NewReservationServiceWithLogger constructs a reservation service with a specified logger.
func NewReservationServiceWithLogger(reservations ReservationRepository, guard SlotGuard, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ReservationService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ReservationService{
		reservations: reservations,
		guard:        guard,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (s *ReservationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReservationService", operation, attrs...)
}

// Submit validates a public booking request and stores it as pending when the
// window is still free.
func (s *ReservationService) Submit(ctx context.Context, input ReservationInput) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil || s.guard == nil {
		err = fmt.Errorf("reservation service not configured")
		return
	}

	logger := s.loggerWith(ctx, "Submit",
		"date", strings.TrimSpace(input.Date),
		"start_time", strings.TrimSpace(input.StartTime),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to submit reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("reservation_id", reservation.ID).InfoContext(ctx, "reservation submitted")
	}()

	now := s.now()
	vErr := &ValidationError{}
	candidate := Reservation{
		Name:         validateRequired("name", input.Name, maxNameLength, vErr),
		Phone:        validatePhone(input.Phone, vErr),
		Email:        validateEmail(input.Email, vErr),
		ActivityType: validateOneOf("activity_type", input.ActivityType, ReservationActivityTypes, vErr),
		Description:  validateDescription(input.Description, vErr),
		Status:       ReservationPending,
		CreatedAt:    now,
	}
	start := input.StartTime
	w := parseWindow(s.guard.Ladder(), availability.DateOf(now), input.Date, &start, input.EndTime, true, vErr)
	if vErr.HasErrors() {
		err = vErr
		return
	}
	candidate.Date = w.date
	candidate.Start = *w.start
	candidate.End = w.end
	candidate.ID = s.idGenerator()

	check := WindowCheck{Date: candidate.Date, Start: candidate.Start, End: candidate.End}
	err = s.guard.Commit(ctx, check, func(ctx context.Context) error {
		persisted, createErr := s.reservations.CreateReservation(ctx, candidate)
		if createErr != nil {
			return mapReservationRepoError(createErr)
		}
		reservation = persisted
		return nil
	})
	return
}

// Approve marks a pending reservation approved after re-checking its window.
func (s *ReservationService) Approve(ctx context.Context, params ReviewReservationParams) (Reservation, error) {
	return s.review(ctx, "Approve", params, ReservationApproved)
}

// Reject marks a pending reservation rejected.
func (s *ReservationService) Reject(ctx context.Context, params ReviewReservationParams) (Reservation, error) {
	return s.review(ctx, "Reject", params, ReservationRejected)
}

func (s *ReservationService) review(ctx context.Context, operation string, params ReviewReservationParams, target ReservationStatus) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.reservations == nil || s.guard == nil {
		err = fmt.Errorf("reservation service not configured")
		return
	}

	logger := s.loggerWith(ctx, operation,
		"principal_id", params.Principal.UserID,
		"reservation_id", params.ReservationID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to review reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("status", string(reservation.Status)).InfoContext(ctx, "reservation reviewed")
	}()

	var existing Reservation
	existing, err = s.reservations.GetReservation(ctx, params.ReservationID)
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}
	if existing.Status != ReservationPending {
		err = fmt.Errorf("%w: reservation is %s", ErrInvalidTransition, existing.Status)
		return
	}

	transition := func(ctx context.Context) error {
		updated, transitionErr := s.reservations.TransitionReservation(ctx, existing.ID, ReservationPending, target, params.Principal.UserID, s.now())
		if transitionErr != nil {
			return mapReservationRepoError(transitionErr)
		}
		reservation = updated
		return nil
	}

	if target != ReservationApproved {
		if err = transition(ctx); err != nil {
			return
		}
		s.guard.Invalidate()
		return
	}

	err = s.guard.Commit(ctx, WindowCheck{
		Date:      existing.Date,
		Start:     existing.Start,
		End:       existing.End,
		IgnoreRef: reservationRef(existing.ID),
	}, transition)
	return
}

// Get returns a single reservation for administrators.
func (s *ReservationService) Get(ctx context.Context, principal Principal, id string) (Reservation, error) {
	if s == nil {
		return Reservation{}, fmt.Errorf("ReservationService is nil")
	}
	if !principal.IsAdmin {
		return Reservation{}, ErrUnauthorized
	}
	if s.reservations == nil {
		return Reservation{}, fmt.Errorf("reservation repository not configured")
	}

	reservation, err := s.reservations.GetReservation(ctx, id)
	if err != nil {
		return Reservation{}, mapReservationRepoError(err)
	}
	return reservation, nil
}

// List returns reservations matching the query for administrators.
func (s *ReservationService) List(ctx context.Context, params ListReservationsParams) (reservations []Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.reservations == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "List",
		"principal_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list reservations", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("count", len(reservations)).InfoContext(ctx, "reservations listed")
	}()

	query := params.Query
	if !query.From.IsZero() && !query.To.IsZero() && query.To.Before(query.From) {
		vErr := &ValidationError{}
		vErr.add("to", "to must not be before from")
		err = vErr
		return
	}

	reservations, err = s.reservations.ListReservations(ctx, ReservationRepositoryFilter{
		Statuses:  query.Statuses,
		From:      query.From,
		To:        query.To,
		NameQuery: strings.TrimSpace(query.Name),
	})
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}
	return
}

func reservationRef(id string) string {
	return "reservation:" + id
}

func mapReservationRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrConflict):
		return fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("reservation", "reservation violates a storage constraint")
		return vErr
	}
	return err
}
