package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/masjid-scheduler/internal/availability"
	"github.com/example/masjid-scheduler/internal/persistence"
)

const activityColumns = `id, title, type, description, event_date, event_time, event_end_time, is_active,
	created_by, recurrence_frequency, recurrence_weekdays, recurrence_until, created_at, updated_at`

// ActivityRepository implements persistence.ActivityRepository using SQLite
type ActivityRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewActivityRepository creates a new SQLite activity repository
func NewActivityRepository(pool *ConnectionPool) *ActivityRepository {
	return &ActivityRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// CreateActivity inserts a new activity
func (r *ActivityRepository) CreateActivity(ctx context.Context, activity persistence.Activity) error {
	if activity.ID == "" || activity.Date.IsZero() {
		return persistence.ErrConstraintViolation
	}

	frequency, weekdays, until := recurrenceColumns(activity.Recurrence)
	const query = `
		INSERT INTO activities (` + activityColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	return r.retry.WithRetry(ctx, func() error {
		_, err := r.helper.Exec(ctx, query,
			activity.ID,
			activity.Title,
			activity.ActivityType,
			nullString(activity.Description),
			activity.Date.String(),
			nullTime(activity.Start),
			nullTime(activity.End),
			boolToInt(activity.Active),
			activity.CreatedBy,
			frequency,
			weekdays,
			until,
			formatTimestamp(activity.CreatedAt),
			formatTimestamp(activity.UpdatedAt),
		)
		return err
	})
}

// UpdateActivity replaces the editable fields of an activity. CreatedBy and
// CreatedAt are kept from the stored row.
func (r *ActivityRepository) UpdateActivity(ctx context.Context, activity persistence.Activity) error {
	if activity.ID == "" {
		return persistence.ErrNotFound
	}
	if activity.Date.IsZero() {
		return persistence.ErrConstraintViolation
	}

	frequency, weekdays, until := recurrenceColumns(activity.Recurrence)
	const query = `
		UPDATE activities
		SET title = ?, type = ?, description = ?, event_date = ?, event_time = ?, event_end_time = ?,
			is_active = ?, recurrence_frequency = ?, recurrence_weekdays = ?, recurrence_until = ?, updated_at = ?
		WHERE id = ?
	`

	return r.retry.WithRetry(ctx, func() error {
		result, err := r.helper.Exec(ctx, query,
			activity.Title,
			activity.ActivityType,
			nullString(activity.Description),
			activity.Date.String(),
			nullTime(activity.Start),
			nullTime(activity.End),
			boolToInt(activity.Active),
			frequency,
			weekdays,
			until,
			formatTimestamp(activity.UpdatedAt),
			activity.ID,
		)
		if err != nil {
			return err
		}
		return requireAffected(result)
	})
}

// GetActivity retrieves an activity by ID
func (r *ActivityRepository) GetActivity(ctx context.Context, id string) (persistence.Activity, error) {
	if id == "" {
		return persistence.Activity{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = ?`, id)
	activity, err := scanActivity(row)
	if err != nil {
		return persistence.Activity{}, r.mapper.MapError(err)
	}
	return activity, nil
}

// ListActivities lists activities matching filter ordered by date and start time
func (r *ActivityRepository) ListActivities(ctx context.Context, filter persistence.ActivityFilter) ([]persistence.Activity, error) {
	query, args := buildActivityListQuery(filter)

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	activities := make([]persistence.Activity, 0)
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		activities = append(activities, activity)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return activities, nil
}

// SetActivityActive toggles whether an activity contributes to the calendar
func (r *ActivityRepository) SetActivityActive(ctx context.Context, id string, active bool, updatedAt time.Time) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	return r.retry.WithRetry(ctx, func() error {
		result, err := r.helper.Exec(ctx,
			`UPDATE activities SET is_active = ?, updated_at = ? WHERE id = ?`,
			boolToInt(active), formatTimestamp(updatedAt), id,
		)
		if err != nil {
			return err
		}
		return requireAffected(result)
	})
}

// DeleteActivity removes an activity by ID
func (r *ActivityRepository) DeleteActivity(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	return r.retry.WithRetry(ctx, func() error {
		result, err := r.helper.Exec(ctx, `DELETE FROM activities WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return requireAffected(result)
	})
}

func buildActivityListQuery(filter persistence.ActivityFilter) (string, []any) {
	query := `SELECT ` + activityColumns + ` FROM activities`

	var conditions []string
	var args []any

	if filter.ActiveOnly {
		conditions = append(conditions, "is_active = 1")
	}
	if !filter.From.IsZero() {
		// Recurring activities that started earlier still occur inside the range
		// unless their recurrence ended before it.
		conditions = append(conditions, `(event_date >= ? OR (recurrence_frequency IS NOT NULL AND (recurrence_until IS NULL OR recurrence_until >= ?)))`)
		args = append(args, filter.From.String(), filter.From.String())
	}
	if !filter.To.IsZero() {
		conditions = append(conditions, "event_date <= ?")
		args = append(args, filter.To.String())
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY event_date ASC, event_time ASC, id ASC"
	return query, args
}

func scanActivity(row rowScanner) (persistence.Activity, error) {
	var (
		activity                                  persistence.Activity
		description, startTime, endTime           sql.NullString
		frequency, until                          sql.NullString
		dateStr, weekdays, createdAt, updatedAt   string
		active                                    int
	)

	if err := row.Scan(
		&activity.ID,
		&activity.Title,
		&activity.ActivityType,
		&description,
		&dateStr,
		&startTime,
		&endTime,
		&active,
		&activity.CreatedBy,
		&frequency,
		&weekdays,
		&until,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Activity{}, err
	}

	var err error
	if activity.Date, err = availability.ParseDate(dateStr); err != nil {
		return persistence.Activity{}, fmt.Errorf("failed to parse event_date: %w", err)
	}
	if activity.Start, err = parseNullTime("event_time", startTime); err != nil {
		return persistence.Activity{}, err
	}
	if activity.End, err = parseNullTime("event_end_time", endTime); err != nil {
		return persistence.Activity{}, err
	}
	if activity.CreatedAt, err = parseTimestamp("created_at", createdAt); err != nil {
		return persistence.Activity{}, err
	}
	if activity.UpdatedAt, err = parseTimestamp("updated_at", updatedAt); err != nil {
		return persistence.Activity{}, err
	}

	if frequency.Valid {
		rec := &persistence.Recurrence{Frequency: frequency.String}
		if rec.Weekdays, err = parseWeekdays(weekdays); err != nil {
			return persistence.Activity{}, err
		}
		if rec.Until, err = parseNullDate("recurrence_until", until); err != nil {
			return persistence.Activity{}, err
		}
		activity.Recurrence = rec
	}

	activity.Active = active == 1
	activity.Description = stringPtr(description)
	return activity, nil
}

func recurrenceColumns(rec *persistence.Recurrence) (sql.NullString, string, sql.NullString) {
	if rec == nil {
		return sql.NullString{}, "", sql.NullString{}
	}
	return sql.NullString{String: rec.Frequency, Valid: true}, formatWeekdays(rec.Weekdays), nullDate(rec.Until)
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
