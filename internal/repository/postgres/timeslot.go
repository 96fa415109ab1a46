package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pratik-mahalle/alertroute/internal/domain/timeslot"
	"github.com/pratik-mahalle/alertroute/internal/pkg/errors"
)

// TimeslotRepository implements timeslot.Repository
type TimeslotRepository struct {
	db *sql.DB
}

// NewTimeslotRepository creates a new timeslot repository
func NewTimeslotRepository(db *sql.DB) timeslot.Repository {
	return &TimeslotRepository{db: db}
}

// Create stores the timeslot and its recurrences
func (r *TimeslotRepository) Create(ctx context.Context, ts *timeslot.Timeslot) error {
	now := time.Now().UTC()
	ts.CreatedAt = now
	ts.UpdatedAt = now

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO timeslots (user_id, name, created_at, updated_at)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, ts.UserID, ts.Name, now, now).Scan(&ts.ID)
		if err != nil {
			return err
		}
		return insertRecurrences(ctx, tx, ts)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Conflict(fmt.Sprintf("Timeslot %q already exists", ts.Name))
		}
		return errors.DatabaseError("Failed to create timeslot", err)
	}
	return nil
}

// GetByID retrieves a timeslot owned by the user
func (r *TimeslotRepository) GetByID(ctx context.Context, userID, id int64) (*timeslot.Timeslot, error) {
	var ts timeslot.Timeslot
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, created_at, updated_at
		FROM timeslots WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(&ts.ID, &ts.UserID, &ts.Name, &ts.CreatedAt, &ts.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Timeslot")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get timeslot", err)
	}

	if err := r.loadRecurrences(ctx, []*timeslot.Timeslot{&ts}); err != nil {
		return nil, err
	}
	return &ts, nil
}

// ListByUser retrieves every timeslot owned by the user
func (r *TimeslotRepository) ListByUser(ctx context.Context, userID int64) ([]*timeslot.Timeslot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, created_at, updated_at
		FROM timeslots WHERE user_id = $1 ORDER BY name
	`, userID)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list timeslots", err)
	}

	timeslots, err := scanTimeslots(rows)
	if err != nil {
		return nil, errors.DatabaseError("Failed to scan timeslot", err)
	}
	if err := r.loadRecurrences(ctx, timeslots); err != nil {
		return nil, err
	}
	return timeslots, nil
}

// GetMany retrieves timeslots by ID regardless of owner
func (r *TimeslotRepository) GetMany(ctx context.Context, ids []int64) (map[int64]*timeslot.Timeslot, error) {
	out := make(map[int64]*timeslot.Timeslot, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	a := &args{}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, created_at, updated_at
		FROM timeslots WHERE id IN (`+int64List(a, ids)+`)
	`, a.values...)
	if err != nil {
		return nil, errors.DatabaseError("Failed to get timeslots", err)
	}

	timeslots, err := scanTimeslots(rows)
	if err != nil {
		return nil, errors.DatabaseError("Failed to scan timeslot", err)
	}
	if err := r.loadRecurrences(ctx, timeslots); err != nil {
		return nil, err
	}
	for _, ts := range timeslots {
		out[ts.ID] = ts
	}
	return out, nil
}

// Update renames the timeslot and replaces all recurrences in one transaction
func (r *TimeslotRepository) Update(ctx context.Context, ts *timeslot.Timeslot) error {
	ts.UpdatedAt = time.Now().UTC()

	var found bool
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE timeslots SET name = $1, updated_at = $2
			WHERE id = $3 AND user_id = $4
		`, ts.Name, ts.UpdatedAt, ts.ID, ts.UserID)
		if err != nil {
			return err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		found = true

		if _, err := tx.ExecContext(ctx, `DELETE FROM time_recurrences WHERE timeslot_id = $1`, ts.ID); err != nil {
			return err
		}
		return insertRecurrences(ctx, tx, ts)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Conflict(fmt.Sprintf("Timeslot %q already exists", ts.Name))
		}
		return errors.DatabaseError("Failed to update timeslot", err)
	}
	if !found {
		return errors.NotFound("Timeslot")
	}
	return nil
}

// Delete deletes a timeslot. Profiles using it are deleted with it.
func (r *TimeslotRepository) Delete(ctx context.Context, userID, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM timeslots WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return errors.DatabaseError("Failed to delete timeslot", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("Failed to get rows affected", err)
	}
	if n == 0 {
		return errors.NotFound("Timeslot")
	}
	return nil
}

func insertRecurrences(ctx context.Context, tx *sql.Tx, ts *timeslot.Timeslot) error {
	for i := range ts.Recurrences {
		rec := &ts.Recurrences[i]
		err := tx.QueryRowContext(ctx, `
			INSERT INTO time_recurrences (timeslot_id, days, start_time, end_time)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, ts.ID, formatDays(rec.Days), rec.Start.String(), rec.End.String()).Scan(&rec.ID)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *TimeslotRepository) loadRecurrences(ctx context.Context, timeslots []*timeslot.Timeslot) error {
	if len(timeslots) == 0 {
		return nil
	}
	byID := make(map[int64]*timeslot.Timeslot, len(timeslots))
	ids := make([]int64, 0, len(timeslots))
	for _, ts := range timeslots {
		byID[ts.ID] = ts
		ids = append(ids, ts.ID)
	}

	a := &args{}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, timeslot_id, days, start_time, end_time
		FROM time_recurrences WHERE timeslot_id IN (`+int64List(a, ids)+`)
		ORDER BY id
	`, a.values...)
	if err != nil {
		return errors.DatabaseError("Failed to load time recurrences", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec timeslot.TimeRecurrence
		var timeslotID int64
		var days, start, end string
		if err := rows.Scan(&rec.ID, &timeslotID, &days, &start, &end); err != nil {
			return errors.DatabaseError("Failed to scan time recurrence", err)
		}
		if rec.Days, err = parseDays(days); err != nil {
			return errors.DatabaseError("Corrupt time recurrence days", err)
		}
		if rec.Start, err = timeslot.ParseClock(start); err != nil {
			return errors.DatabaseError("Corrupt time recurrence start", err)
		}
		if rec.End, err = timeslot.ParseClock(end); err != nil {
			return errors.DatabaseError("Corrupt time recurrence end", err)
		}
		ts := byID[timeslotID]
		ts.Recurrences = append(ts.Recurrences, rec)
	}
	if err := rows.Err(); err != nil {
		return errors.DatabaseError("Failed to iterate time recurrences", err)
	}
	return nil
}

func scanTimeslots(rows *sql.Rows) ([]*timeslot.Timeslot, error) {
	defer rows.Close()

	var timeslots []*timeslot.Timeslot
	for rows.Next() {
		var ts timeslot.Timeslot
		if err := rows.Scan(&ts.ID, &ts.UserID, &ts.Name, &ts.CreatedAt, &ts.UpdatedAt); err != nil {
			return nil, err
		}
		timeslots = append(timeslots, &ts)
	}
	return timeslots, rows.Err()
}

// formatDays stores weekdays as "1,2,3"
func formatDays(days []timeslot.Weekday) string {
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = strconv.Itoa(int(d))
	}
	return strings.Join(parts, ",")
}

func parseDays(s string) ([]timeslot.Weekday, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	days := make([]timeslot.Weekday, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		d := timeslot.Weekday(n)
		if !d.Valid() {
			return nil, fmt.Errorf("weekday %d out of range", n)
		}
		days = append(days, d)
	}
	return days, nil
}
