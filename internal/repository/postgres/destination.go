package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pratik-mahalle/alertroute/internal/domain/notification"
	"github.com/pratik-mahalle/alertroute/internal/pkg/errors"
)

// DestinationRepository implements notification.DestinationRepository
type DestinationRepository struct {
	db *sql.DB
}

// NewDestinationRepository creates a new destination repository
func NewDestinationRepository(db *sql.DB) notification.DestinationRepository {
	return &DestinationRepository{db: db}
}

const destinationColumns = `id, user_id, media_slug, label, settings, created_at, updated_at`

// Create stores a new destination
func (r *DestinationRepository) Create(ctx context.Context, d *notification.Destination) error {
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO destinations (user_id, media_slug, label, settings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, d.UserID, string(d.Medium), nullString(d.Label), settingsText(d.Settings), now, now).Scan(&d.ID)
	if err != nil {
		return errors.DatabaseError("Failed to create destination", err)
	}
	return nil
}

// GetByID retrieves a destination owned by the user
func (r *DestinationRepository) GetByID(ctx context.Context, userID, id int64) (*notification.Destination, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+destinationColumns+` FROM destinations WHERE id = $1 AND user_id = $2
	`, id, userID)

	d, err := scanDestination(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Destination")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get destination", err)
	}
	return d, nil
}

// ListByUser retrieves every destination owned by the user
func (r *DestinationRepository) ListByUser(ctx context.Context, userID int64) ([]*notification.Destination, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+destinationColumns+` FROM destinations WHERE user_id = $1 ORDER BY id
	`, userID)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list destinations", err)
	}
	return collectDestinations(rows)
}

// GetMany retrieves destinations by ID regardless of owner
func (r *DestinationRepository) GetMany(ctx context.Context, ids []int64) (map[int64]*notification.Destination, error) {
	out := make(map[int64]*notification.Destination, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	a := &args{}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+destinationColumns+` FROM destinations WHERE id IN (`+int64List(a, ids)+`)
	`, a.values...)
	if err != nil {
		return nil, errors.DatabaseError("Failed to get destinations", err)
	}

	destinations, err := collectDestinations(rows)
	if err != nil {
		return nil, err
	}
	for _, d := range destinations {
		out[d.ID] = d
	}
	return out, nil
}

// Update updates label and settings. The medium never changes.
func (r *DestinationRepository) Update(ctx context.Context, d *notification.Destination) error {
	d.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
		UPDATE destinations SET label = $1, settings = $2, updated_at = $3
		WHERE id = $4 AND user_id = $5
	`, nullString(d.Label), settingsText(d.Settings), d.UpdatedAt, d.ID, d.UserID)
	if err != nil {
		return errors.DatabaseError("Failed to update destination", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("Failed to get rows affected", err)
	}
	if n == 0 {
		return errors.NotFound("Destination")
	}
	return nil
}

// Delete deletes a destination
func (r *DestinationRepository) Delete(ctx context.Context, userID, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM destinations WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return errors.DatabaseError("Failed to delete destination", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("Failed to get rows affected", err)
	}
	if n == 0 {
		return errors.NotFound("Destination")
	}
	return nil
}

func scanDestination(row rowScanner) (*notification.Destination, error) {
	var d notification.Destination
	var medium string
	var label sql.NullString
	var settings []byte
	if err := row.Scan(&d.ID, &d.UserID, &medium, &label, &settings, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.Medium = notification.Medium(medium)
	d.Label = label.String
	d.Settings = json.RawMessage(settings)
	return &d, nil
}

func collectDestinations(rows *sql.Rows) ([]*notification.Destination, error) {
	defer rows.Close()

	var destinations []*notification.Destination
	for rows.Next() {
		d, err := scanDestination(rows)
		if err != nil {
			return nil, errors.DatabaseError("Failed to scan destination", err)
		}
		destinations = append(destinations, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("Failed to iterate destinations", err)
	}
	return destinations, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func settingsText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	return string(raw)
}
