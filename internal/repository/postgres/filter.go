package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pratik-mahalle/alertroute/internal/domain/filter"
	"github.com/pratik-mahalle/alertroute/internal/pkg/errors"
)

// FilterRepository implements filter.Repository
type FilterRepository struct {
	db *sql.DB
}

// NewFilterRepository creates a new filter repository
func NewFilterRepository(db *sql.DB) filter.Repository {
	return &FilterRepository{db: db}
}

const filterColumns = `id, user_id, name, filter, created_at, updated_at`

// Create stores a new filter
func (r *FilterRepository) Create(ctx context.Context, f *filter.Filter) error {
	now := time.Now().UTC()
	f.CreatedAt = now
	f.UpdatedAt = now

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO filters (user_id, name, filter, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, f.UserID, f.Name, f.Criteria.Legacy(), now, now).Scan(&f.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Conflict(fmt.Sprintf("Filter %q already exists", f.Name))
		}
		return errors.DatabaseError("Failed to create filter", err)
	}
	return nil
}

// GetByID retrieves a filter owned by the user
func (r *FilterRepository) GetByID(ctx context.Context, userID, id int64) (*filter.Filter, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+filterColumns+` FROM filters WHERE id = $1 AND user_id = $2
	`, id, userID)

	f, err := scanFilter(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Filter")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get filter", err)
	}
	return f, nil
}

// ListByUser retrieves every filter owned by the user
func (r *FilterRepository) ListByUser(ctx context.Context, userID int64) ([]*filter.Filter, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+filterColumns+` FROM filters WHERE user_id = $1 ORDER BY name
	`, userID)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list filters", err)
	}
	return collectFilters(rows)
}

// GetMany retrieves filters by ID regardless of owner
func (r *FilterRepository) GetMany(ctx context.Context, ids []int64) (map[int64]*filter.Filter, error) {
	out := make(map[int64]*filter.Filter, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	a := &args{}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+filterColumns+` FROM filters WHERE id IN (`+int64List(a, ids)+`)
	`, a.values...)
	if err != nil {
		return nil, errors.DatabaseError("Failed to get filters", err)
	}

	filters, err := collectFilters(rows)
	if err != nil {
		return nil, err
	}
	for _, f := range filters {
		out[f.ID] = f
	}
	return out, nil
}

// Update updates name and criteria
func (r *FilterRepository) Update(ctx context.Context, f *filter.Filter) error {
	f.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
		UPDATE filters SET name = $1, filter = $2, updated_at = $3
		WHERE id = $4 AND user_id = $5
	`, f.Name, f.Criteria.Legacy(), f.UpdatedAt, f.ID, f.UserID)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Conflict(fmt.Sprintf("Filter %q already exists", f.Name))
		}
		return errors.DatabaseError("Failed to update filter", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("Failed to get rows affected", err)
	}
	if n == 0 {
		return errors.NotFound("Filter")
	}
	return nil
}

// Delete deletes a filter
func (r *FilterRepository) Delete(ctx context.Context, userID, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM filters WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return errors.DatabaseError("Failed to delete filter", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("Failed to get rows affected", err)
	}
	if n == 0 {
		return errors.NotFound("Filter")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanFilter tolerates both the native and the legacy stored document
func scanFilter(row rowScanner) (*filter.Filter, error) {
	var f filter.Filter
	var doc []byte
	if err := row.Scan(&f.ID, &f.UserID, &f.Name, &doc, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	c, err := filter.ParseCriteria(doc)
	if err != nil {
		return nil, fmt.Errorf("filter %d: %w", f.ID, err)
	}
	f.Criteria = c
	return &f, nil
}

func collectFilters(rows *sql.Rows) ([]*filter.Filter, error) {
	defer rows.Close()

	var filters []*filter.Filter
	for rows.Next() {
		f, err := scanFilter(rows)
		if err != nil {
			return nil, errors.DatabaseError("Failed to scan filter", err)
		}
		filters = append(filters, f)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("Failed to iterate filters", err)
	}
	return filters, nil
}
