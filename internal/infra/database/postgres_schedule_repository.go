package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/MallardLabs/celeris/internal/domain/schedule"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Custom errors specific to the schedule repository.
var ErrScheduleNotFound = fmt.Errorf("payment schedule not found")

// ErrStaleCommit is returned when a tick commit finds that points_paid no
// longer matches the snapshot the tick was computed from (a concurrent tick
// or a cancellation got there first). Callers treat it as a no-op.
var ErrStaleCommit = fmt.Errorf("stale tick commit: schedule state changed since snapshot")

const scheduleColumns = `id, organization_id, user_id, amount, interval_type, interval_value,
               total_points, points_paid, last_paid_at, created_by, created_at`

type PostgresScheduleRepository struct {
	db *sql.DB
}

func NewPostgresScheduleRepository(db *sql.DB) *PostgresScheduleRepository {
	return &PostgresScheduleRepository{db: db}
}

func (r *PostgresScheduleRepository) Create(ctx context.Context, s *schedule.Schedule, recipientIDs []string) error {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for schedule create: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	query := `INSERT INTO payment_schedules
               (organization_id, user_id, amount, interval_type, interval_value, total_points, points_paid, last_paid_at, created_by)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
               RETURNING id, created_at`
	err = txn.QueryRowContext(ctx, query,
		s.OrganizationID, s.UserID, s.Amount, s.IntervalType, s.IntervalValue,
		s.TotalPoints, s.PointsPaid, s.LastPaidAt, s.CreatedBy,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating payment schedule: %w", err)
	}

	stmt, err := txn.PrepareContext(ctx, `INSERT INTO payment_schedule_members (schedule_id, user_id, joined_at)
                                         VALUES ($1, $2, NOW())`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for schedule members: %w", err)
	}
	defer stmt.Close()

	for _, userID := range recipientIDs {
		if _, err := stmt.ExecContext(ctx, s.ID, userID); err != nil {
			return fmt.Errorf("error inserting schedule member (S:%d, U:%s): %w", s.ID, userID, err)
		}
	}

	return txn.Commit()
}

func (r *PostgresScheduleRepository) GetByID(ctx context.Context, id int64) (*schedule.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM payment_schedules WHERE id = $1`
	s := &schedule.Schedule{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.OrganizationID, &s.UserID, &s.Amount, &s.IntervalType, &s.IntervalValue,
		&s.TotalPoints, &s.PointsPaid, &s.LastPaidAt, &s.CreatedBy, &s.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrScheduleNotFound
		}
		return nil, fmt.Errorf("error getting schedule by ID: %w", err)
	}
	return s, nil
}

func (r *PostgresScheduleRepository) ListByCreator(ctx context.Context, createdBy string) ([]*schedule.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM payment_schedules WHERE created_by = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, createdBy)
	if err != nil {
		return nil, fmt.Errorf("error listing schedules by creator: %w", err)
	}
	defer rows.Close()
	return scanSchedules(rows)
}

// DueSchedules reads every non-exhausted schedule in one statement and
// filters due-ness in Go via the interval calculator, so month intervals get
// calendar semantics instead of SQL date arithmetic.
func (r *PostgresScheduleRepository) DueSchedules(ctx context.Context, now time.Time) ([]*schedule.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM payment_schedules
               WHERE points_paid < total_points ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying active schedules: %w", err)
	}
	defer rows.Close()

	active, err := scanSchedules(rows)
	if err != nil {
		return nil, err
	}

	due := make([]*schedule.Schedule, 0, len(active))
	for _, s := range active {
		if schedule.IsDue(s.IntervalType, s.IntervalValue, s.LastPaidAt, now) {
			due = append(due, s)
		}
	}
	return due, nil
}

func (r *PostgresScheduleRepository) Members(ctx context.Context, scheduleID int64) ([]*schedule.Member, error) {
	query := `SELECT id, schedule_id, user_id, joined_at FROM payment_schedule_members
               WHERE schedule_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("error listing schedule members: %w", err)
	}
	defer rows.Close()

	members := make([]*schedule.Member, 0)
	for rows.Next() {
		m := &schedule.Member{}
		if err := rows.Scan(&m.ID, &m.ScheduleID, &m.UserID, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("error scanning schedule member: %w", err)
		}
		members = append(members, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedule members: %w", err)
	}
	return members, nil
}

// CommitTick is a compare-and-swap update: it only applies when points_paid
// still equals the snapshot the tick was computed from. The extra pool guard
// keeps points_paid from ever exceeding total_points.
func (r *PostgresScheduleRepository) CommitTick(ctx context.Context, scheduleID int64, amountDistributed int64, paidAt time.Time, expectedPointsPaid int64) error {
	query := `UPDATE payment_schedules
               SET points_paid = points_paid + $2, last_paid_at = $3
               WHERE id = $1 AND points_paid = $4 AND points_paid + $2 <= total_points`

	res, err := r.db.ExecContext(ctx, query, scheduleID, amountDistributed, paidAt, expectedPointsPaid)
	if err != nil {
		return fmt.Errorf("error committing tick for schedule %d: %w", scheduleID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading commit result for schedule %d: %w", scheduleID, err)
	}
	if affected == 0 {
		// Row gone (cancelled) or points_paid moved under us; both are stale.
		return ErrStaleCommit
	}
	return nil
}

func (r *PostgresScheduleRepository) Cancel(ctx context.Context, scheduleID int64) error {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for schedule cancel: %w", err)
	}
	defer txn.Rollback()

	if _, err := txn.ExecContext(ctx, `DELETE FROM payment_schedule_members WHERE schedule_id = $1`, scheduleID); err != nil {
		return fmt.Errorf("error deleting schedule members for schedule %d: %w", scheduleID, err)
	}

	res, err := txn.ExecContext(ctx, `DELETE FROM payment_schedules WHERE id = $1`, scheduleID)
	if err != nil {
		return fmt.Errorf("error deleting schedule %d: %w", scheduleID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading cancel result for schedule %d: %w", scheduleID, err)
	}
	if affected == 0 {
		return ErrScheduleNotFound
	}

	return txn.Commit()
}

func (r *PostgresScheduleRepository) ShortestActiveInterval(ctx context.Context) (time.Duration, error) {
	// Months approximated as 30 days; this only tunes scan frequency.
	query := `SELECT COALESCE(MIN(interval_value * CASE interval_type
                        WHEN 's' THEN 1
                        WHEN 'm' THEN 60
                        WHEN 'h' THEN 3600
                        WHEN 'd' THEN 86400
                        WHEN 'mm' THEN 2592000
                    END), 0)
               FROM payment_schedules WHERE points_paid < total_points`

	var seconds int64
	if err := r.db.QueryRowContext(ctx, query).Scan(&seconds); err != nil {
		return 0, fmt.Errorf("error querying shortest active interval: %w", err)
	}
	return time.Duration(seconds) * time.Second, nil
}

func (r *PostgresScheduleRepository) Stats(ctx context.Context) (*schedule.Stats, error) {
	query := `SELECT
               COUNT(*) FILTER (WHERE points_paid < total_points),
               COUNT(*) FILTER (WHERE points_paid >= total_points),
               COALESCE(SUM(points_paid), 0)
               FROM payment_schedules`

	st := &schedule.Stats{}
	if err := r.db.QueryRowContext(ctx, query).Scan(&st.ActiveSchedules, &st.ExhaustedSchedules, &st.PointsDistributed); err != nil {
		return nil, fmt.Errorf("error querying schedule stats: %w", err)
	}
	return st, nil
}

func (r *PostgresScheduleRepository) PurgeExhaustedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction for schedule purge: %w", err)
	}
	defer txn.Rollback()

	if _, err := txn.ExecContext(ctx, `DELETE FROM payment_schedule_members WHERE schedule_id IN
               (SELECT id FROM payment_schedules WHERE points_paid >= total_points AND last_paid_at < $1)`, cutoff); err != nil {
		return 0, fmt.Errorf("error purging members of exhausted schedules: %w", err)
	}

	res, err := txn.ExecContext(ctx, `DELETE FROM payment_schedules
               WHERE points_paid >= total_points AND last_paid_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("error purging exhausted schedules: %w", err)
	}
	purged, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error reading purge result: %w", err)
	}

	if err := txn.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit schedule purge: %w", err)
	}
	return purged, nil
}

func scanSchedules(rows *sql.Rows) ([]*schedule.Schedule, error) {
	schedules := make([]*schedule.Schedule, 0)
	for rows.Next() {
		s := &schedule.Schedule{}
		if err := rows.Scan(
			&s.ID, &s.OrganizationID, &s.UserID, &s.Amount, &s.IntervalType, &s.IntervalValue,
			&s.TotalPoints, &s.PointsPaid, &s.LastPaidAt, &s.CreatedBy, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning schedule: %w", err)
		}
		schedules = append(schedules, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedules: %w", err)
	}
	return schedules, nil
}
