package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/example/masjid-scheduler/internal/availability"
	"github.com/example/masjid-scheduler/internal/persistence"
	"github.com/example/masjid-scheduler/internal/recurrence"
)

const (
	defaultUpcomingDays = 30
	maxUpcomingDays     = 366
	recurrenceCheckDays = 365
)

// ActivityRepositoryFilter narrows activity queries. Zero values disable a condition.
type ActivityRepositoryFilter struct {
	ActiveOnly bool
	From       availability.Date
	To         availability.Date
}

// ActivityRepository captures the persistence operations needed by the service.
type ActivityRepository interface {
	CreateActivity(ctx context.Context, activity Activity) (Activity, error)
	UpdateActivity(ctx context.Context, activity Activity) (Activity, error)
	GetActivity(ctx context.Context, id string) (Activity, error)
	ListActivities(ctx context.Context, filter ActivityRepositoryFilter) ([]Activity, error)
	SetActivityActive(ctx context.Context, id string, active bool, updatedAt time.Time) error
	DeleteActivity(ctx context.Context, id string) error
}

// ActivityService orchestrates validation, authorization, and persistence for activities.
type ActivityService struct {
	activities  ActivityRepository
	guard       SlotGuard
	expander    *recurrence.Engine
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewActivityService constructs an activity service with the provided dependencies.
func NewActivityService(activities ActivityRepository, guard SlotGuard, expander *recurrence.Engine, idGenerator func() string, now func() time.Time) *ActivityService {
	return NewActivityServiceWithLogger(activities, guard, expander, idGenerator, now, nil)
}

// NewActivityServiceWithLogger constructs an activity service with a specified logger.
func NewActivityServiceWithLogger(activities ActivityRepository, guard SlotGuard, expander *recurrence.Engine, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ActivityService {
	if expander == nil {
		expander = recurrence.NewEngine(0)
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ActivityService{
		activities:  activities,
		guard:       guard,
		expander:    expander,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *ActivityService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ActivityService", operation, attrs...)
}

func (s *ActivityService) ready() error {
	if s == nil {
		return fmt.Errorf("ActivityService is nil")
	}
	if s.activities == nil || s.guard == nil {
		return fmt.Errorf("activity service not configured")
	}
	return nil
}

// Create validates input and stores a new active activity for administrators.
// A timed activity must not overlap approved reservations or other activities
// on any occurrence within the next year.
func (s *ActivityService) Create(ctx context.Context, params CreateActivityParams) (activity Activity, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Create",
		"principal_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create activity", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("activity_id", activity.ID).InfoContext(ctx, "activity created")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	now := s.now()
	candidate, vErr := s.validateActivityInput(params.Input, availability.DateOf(now))
	if vErr.HasErrors() {
		err = vErr
		return
	}
	candidate.ID = s.idGenerator()
	candidate.Active = true
	candidate.CreatedBy = params.Principal.UserID
	candidate.CreatedAt = now
	candidate.UpdatedAt = now

	err = s.write(ctx, candidate, func(ctx context.Context) error {
		persisted, createErr := s.activities.CreateActivity(ctx, candidate)
		if createErr != nil {
			return mapActivityRepoError(createErr)
		}
		activity = persisted
		return nil
	})
	return
}

// Update validates input and replaces the editable fields of an activity.
func (s *ActivityService) Update(ctx context.Context, params UpdateActivityParams) (activity Activity, err error) {
	if err = s.ready(); err != nil {
		return
	}
	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	logger := s.loggerWith(ctx, "Update",
		"principal_id", params.Principal.UserID,
		"activity_id", params.ActivityID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update activity", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "activity updated")
	}()

	var existing Activity
	existing, err = s.activities.GetActivity(ctx, params.ActivityID)
	if err != nil {
		err = mapActivityRepoError(err)
		return
	}

	now := s.now()
	earliest := availability.DateOf(now)
	if existing.Date.Before(earliest) {
		// An activity that already started may keep its original date.
		earliest = existing.Date
	}
	candidate, vErr := s.validateActivityInput(params.Input, earliest)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	updated := existing
	updated.Title = candidate.Title
	updated.ActivityType = candidate.ActivityType
	updated.Description = candidate.Description
	updated.Date = candidate.Date
	updated.Start = candidate.Start
	updated.End = candidate.End
	updated.Recurrence = candidate.Recurrence
	updated.UpdatedAt = now

	err = s.write(ctx, updated, func(ctx context.Context) error {
		persisted, updateErr := s.activities.UpdateActivity(ctx, updated)
		if updateErr != nil {
			return mapActivityRepoError(updateErr)
		}
		activity = persisted
		return nil
	})
	return
}

// write persists an activity. An active timed activity is checked on every
// occurrence up to recurrenceCheckDays after its first date.
func (s *ActivityService) write(ctx context.Context, activity Activity, persist func(context.Context) error) error {
	if !activity.Active || activity.Start == nil {
		if err := persist(ctx); err != nil {
			return err
		}
		s.guard.Invalidate()
		return nil
	}
	repeats, err := s.repeatDates(activity)
	if err != nil {
		return err
	}
	return s.guard.Commit(ctx, WindowCheck{
		Date:      activity.Date,
		Start:     *activity.Start,
		End:       activity.End,
		Repeats:   repeats,
		IgnoreRef: activityRef(activity.ID),
	}, persist)
}

// repeatDates lists the occurrences after the first date that fall inside
// the checked horizon.
func (s *ActivityService) repeatDates(activity Activity) ([]availability.Date, error) {
	if activity.Recurrence == nil {
		return nil, nil
	}
	horizon := availability.DateRange{
		From: activity.Date.AddDays(1),
		To:   activity.Date.AddDays(recurrenceCheckDays),
	}
	dates, err := s.expander.Dates(recurrence.Rule{
		Frequency: activity.Recurrence.Frequency,
		Weekdays:  activity.Recurrence.Weekdays,
		StartsOn:  activity.Date,
		Until:     activity.Recurrence.Until,
	}, horizon)
	if err != nil {
		return nil, fmt.Errorf("expand activity %s: %w", activity.ID, err)
	}
	return dates, nil
}

// Deactivate hides an activity from the calendar and frees its slots.
func (s *ActivityService) Deactivate(ctx context.Context, params ActivityIDParams) error {
	if err := s.ready(); err != nil {
		return err
	}
	if !params.Principal.IsAdmin {
		return ErrUnauthorized
	}

	logger := s.loggerWith(ctx, "Deactivate",
		"principal_id", params.Principal.UserID,
		"activity_id", params.ActivityID,
	)

	if err := s.activities.SetActivityActive(ctx, params.ActivityID, false, s.now()); err != nil {
		err = mapActivityRepoError(err)
		logger.ErrorContext(ctx, "failed to deactivate activity", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	s.guard.Invalidate()

	logger.InfoContext(ctx, "activity deactivated")
	return nil
}

// Delete removes an activity when requested by an administrator.
func (s *ActivityService) Delete(ctx context.Context, params ActivityIDParams) error {
	if err := s.ready(); err != nil {
		return err
	}
	if !params.Principal.IsAdmin {
		return ErrUnauthorized
	}

	logger := s.loggerWith(ctx, "Delete",
		"principal_id", params.Principal.UserID,
		"activity_id", params.ActivityID,
	)

	if err := s.activities.DeleteActivity(ctx, params.ActivityID); err != nil {
		err = mapActivityRepoError(err)
		logger.ErrorContext(ctx, "failed to delete activity", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	s.guard.Invalidate()

	logger.InfoContext(ctx, "activity deleted")
	return nil
}

// Get returns an activity. Inactive activities are visible to administrators only.
func (s *ActivityService) Get(ctx context.Context, principal Principal, id string) (Activity, error) {
	if s == nil {
		return Activity{}, fmt.Errorf("ActivityService is nil")
	}
	if s.activities == nil {
		return Activity{}, fmt.Errorf("activity repository not configured")
	}

	activity, err := s.activities.GetActivity(ctx, id)
	if err != nil {
		return Activity{}, mapActivityRepoError(err)
	}
	if !activity.Active && !principal.IsAdmin {
		return Activity{}, ErrNotFound
	}
	return activity, nil
}

// ListUpcoming expands active activities into occurrences inside r, ordered
// by date and start time. A missing From defaults to today and a missing To to
// thirty days after From.
func (s *ActivityService) ListUpcoming(ctx context.Context, r availability.DateRange) (occurrences []ActivityOccurrence, err error) {
	if s == nil {
		err = fmt.Errorf("ActivityService is nil")
		return
	}
	if s.activities == nil {
		return []ActivityOccurrence{}, nil
	}

	if r.From.IsZero() {
		r.From = availability.DateOf(s.now())
	}
	if r.To.IsZero() {
		r.To = r.From.AddDays(defaultUpcomingDays)
	}
	if days := len(r.Days()); days == 0 || days > maxUpcomingDays {
		vErr := &ValidationError{}
		vErr.add("range", fmt.Sprintf("range must cover between 1 and %d days", maxUpcomingDays))
		err = vErr
		return
	}

	logger := s.loggerWith(ctx, "ListUpcoming", "range", r.String())
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list activities", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	var activities []Activity
	activities, err = s.activities.ListActivities(ctx, ActivityRepositoryFilter{ActiveOnly: true, From: r.From, To: r.To})
	if err != nil {
		err = mapActivityRepoError(err)
		return
	}

	occurrences, err = expandActivities(s.expander, activities, r)
	if err != nil {
		return
	}
	sortOccurrences(occurrences)
	return
}

func sortOccurrences(occurrences []ActivityOccurrence) {
	sort.SliceStable(occurrences, func(i, j int) bool {
		a, b := occurrences[i], occurrences[j]
		if a.Date != b.Date {
			return a.Date.Before(b.Date)
		}
		// Untimed occurrences lead their day.
		switch {
		case a.Start == nil && b.Start != nil:
			return true
		case a.Start != nil && b.Start == nil:
			return false
		case a.Start != nil && b.Start != nil && *a.Start != *b.Start:
			return *a.Start < *b.Start
		}
		return a.ActivityID < b.ActivityID
	})
}

func (s *ActivityService) validateActivityInput(input ActivityInput, earliest availability.Date) (Activity, *ValidationError) {
	vErr := &ValidationError{}
	activity := Activity{
		Title:        validateRequired("title", input.Title, maxTitleLength, vErr),
		ActivityType: validateOneOf("activity_type", input.ActivityType, ActivityTypes, vErr),
		Description:  validateDescription(input.Description, vErr),
	}
	w := parseWindow(s.guard.Ladder(), earliest, input.Date, input.StartTime, input.EndTime, false, vErr)
	activity.Date = w.date
	activity.Start = w.start
	activity.End = w.end
	activity.Recurrence = validateRecurrence(input.Recurrence, w.date, vErr)
	return activity, vErr
}

func mapActivityRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("activity", "activity violates a storage constraint")
		return vErr
	}
	return err
}
