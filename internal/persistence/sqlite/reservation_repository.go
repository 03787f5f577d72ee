package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/masjid-scheduler/internal/availability"
	"github.com/example/masjid-scheduler/internal/persistence"
)

const reservationColumns = `id, name, phone, email, activity_type, description, reservation_date,
	reservation_time, reservation_end_time, status, created_at, reviewed_at, reviewed_by`

// ReservationRepository implements persistence.ReservationRepository using SQLite
type ReservationRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewReservationRepository creates a new SQLite reservation repository
func NewReservationRepository(pool *ConnectionPool) *ReservationRepository {
	return &ReservationRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// CreateReservation inserts a new reservation
func (r *ReservationRepository) CreateReservation(ctx context.Context, reservation persistence.Reservation) error {
	if reservation.ID == "" || reservation.Date.IsZero() {
		return persistence.ErrConstraintViolation
	}
	if reservation.Status == "" {
		reservation.Status = persistence.ReservationPending
	}

	const query = `
		INSERT INTO reservations (` + reservationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	return r.retry.WithRetry(ctx, func() error {
		_, err := r.helper.Exec(ctx, query,
			reservation.ID,
			reservation.Name,
			reservation.Phone,
			nullString(reservation.Email),
			reservation.ActivityType,
			nullString(reservation.Description),
			reservation.Date.String(),
			reservation.Start.String(),
			nullTime(reservation.End),
			string(reservation.Status),
			formatTimestamp(reservation.CreatedAt),
			nullTimestamp(reservation.ReviewedAt),
			nullString(reservation.ReviewedBy),
		)
		return err
	})
}

// GetReservation retrieves a reservation by ID
func (r *ReservationRepository) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	if id == "" {
		return persistence.Reservation{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	reservation, err := scanReservation(row)
	if err != nil {
		return persistence.Reservation{}, r.mapper.MapError(err)
	}
	return reservation, nil
}

// ListReservations lists reservations matching filter ordered by date and start time
func (r *ReservationRepository) ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.Reservation, error) {
	query, args := buildReservationListQuery(filter)

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	reservations := make([]persistence.Reservation, 0)
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		reservations = append(reservations, reservation)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return reservations, nil
}

// TransitionReservation changes the status of a reservation when its current
// status equals from, recording the reviewer.
func (r *ReservationRepository) TransitionReservation(ctx context.Context, id string, from, to persistence.ReservationStatus, reviewedBy string, reviewedAt time.Time) (persistence.Reservation, error) {
	if id == "" {
		return persistence.Reservation{}, persistence.ErrNotFound
	}

	var updated persistence.Reservation
	err := r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			result, err := r.helper.ExecTx(ctx, tx, `
				UPDATE reservations
				SET status = ?, reviewed_at = ?, reviewed_by = ?
				WHERE id = ? AND status = ?
			`, string(to), formatTimestamp(reviewedAt), reviewedBy, id, string(from))
			if err != nil {
				return err
			}

			affected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to get rows affected: %w", err)
			}

			row := r.helper.QueryRowTx(ctx, tx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
			current, err := scanReservation(row)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return persistence.ErrNotFound
				}
				return err
			}
			if affected == 0 {
				return fmt.Errorf("%w: reservation %s is %s", persistence.ErrConflict, id, current.Status)
			}
			updated = current
			return nil
		})
	})
	if err != nil {
		return persistence.Reservation{}, err
	}
	return updated, nil
}

func buildReservationListQuery(filter persistence.ReservationFilter) (string, []any) {
	query := `SELECT ` + reservationColumns + ` FROM reservations`

	var conditions []string
	var args []any

	if len(filter.Statuses) > 0 {
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", placeholders(len(filter.Statuses))))
		for _, status := range filter.Statuses {
			args = append(args, string(status))
		}
	}
	if !filter.From.IsZero() {
		conditions = append(conditions, "reservation_date >= ?")
		args = append(args, filter.From.String())
	}
	if !filter.To.IsZero() {
		conditions = append(conditions, "reservation_date <= ?")
		args = append(args, filter.To.String())
	}
	if term := strings.TrimSpace(filter.NameQuery); term != "" {
		conditions = append(conditions, `LOWER(name) LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(term))
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY reservation_date ASC, reservation_time ASC, created_at ASC, id ASC"
	return query, args
}

func scanReservation(row rowScanner) (persistence.Reservation, error) {
	var (
		reservation                                 persistence.Reservation
		email, description, endTime                 sql.NullString
		reviewedAt, reviewedBy                      sql.NullString
		dateStr, startStr, statusStr, createdAtStr string
	)

	if err := row.Scan(
		&reservation.ID,
		&reservation.Name,
		&reservation.Phone,
		&email,
		&reservation.ActivityType,
		&description,
		&dateStr,
		&startStr,
		&endTime,
		&statusStr,
		&createdAtStr,
		&reviewedAt,
		&reviewedBy,
	); err != nil {
		return persistence.Reservation{}, err
	}

	var err error
	if reservation.Date, err = availability.ParseDate(dateStr); err != nil {
		return persistence.Reservation{}, fmt.Errorf("failed to parse reservation_date: %w", err)
	}
	if reservation.Start, err = availability.ParseTimeOfDay(startStr); err != nil {
		return persistence.Reservation{}, fmt.Errorf("failed to parse reservation_time: %w", err)
	}
	if reservation.End, err = parseNullTime("reservation_end_time", endTime); err != nil {
		return persistence.Reservation{}, err
	}
	if reservation.CreatedAt, err = parseTimestamp("created_at", createdAtStr); err != nil {
		return persistence.Reservation{}, err
	}
	if reservation.ReviewedAt, err = parseNullTimestamp("reviewed_at", reviewedAt); err != nil {
		return persistence.Reservation{}, err
	}

	reservation.Status = persistence.ReservationStatus(statusStr)
	reservation.Email = stringPtr(email)
	reservation.Description = stringPtr(description)
	reservation.ReviewedBy = stringPtr(reviewedBy)
	return reservation, nil
}
