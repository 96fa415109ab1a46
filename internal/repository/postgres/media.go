package postgres

import (
	"context"
	"database/sql"

	"github.com/pratik-mahalle/alertroute/internal/domain/notification"
	"github.com/pratik-mahalle/alertroute/internal/pkg/errors"
)

// MediaRepository implements notification.MediaRepository
type MediaRepository struct {
	db *sql.DB
}

// NewMediaRepository creates a new media repository
func NewMediaRepository(db *sql.DB) notification.MediaRepository {
	return &MediaRepository{db: db}
}

// List returns every media record ordered by slug
func (r *MediaRepository) List(ctx context.Context) ([]*notification.Media, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT slug, name, installed FROM media ORDER BY slug`)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list media", err)
	}
	defer rows.Close()

	var media []*notification.Media
	for rows.Next() {
		var m notification.Media
		if err := rows.Scan(&m.Slug, &m.Name, &m.Installed); err != nil {
			return nil, errors.DatabaseError("Failed to scan media", err)
		}
		media = append(media, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("Failed to iterate media", err)
	}
	return media, nil
}

// MarkNotInstalled clears the installed flag, recording unknown slugs as
// not installed. It reports whether anything changed.
func (r *MediaRepository) MarkNotInstalled(ctx context.Context, slug string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE media SET installed = FALSE WHERE slug = $1 AND installed = TRUE
	`, slug)
	if err != nil {
		return false, errors.DatabaseError("Failed to update media", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, errors.DatabaseError("Failed to get rows affected", err)
	}
	if n > 0 {
		return true, nil
	}

	result, err = r.db.ExecContext(ctx, `
		INSERT INTO media (slug, name, installed) VALUES ($1, $2, FALSE)
		ON CONFLICT (slug) DO NOTHING
	`, slug, slug)
	if err != nil {
		return false, errors.DatabaseError("Failed to record media", err)
	}
	n, err = result.RowsAffected()
	if err != nil {
		return false, errors.DatabaseError("Failed to get rows affected", err)
	}
	return n > 0, nil
}

// MarkInstalled sets the installed flag, creating the record if needed
func (r *MediaRepository) MarkInstalled(ctx context.Context, slug, name string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO media (slug, name, installed) VALUES ($1, $2, TRUE)
		ON CONFLICT (slug) DO UPDATE SET installed = TRUE, name = $2
	`, slug, name)
	if err != nil {
		return errors.DatabaseError("Failed to update media", err)
	}
	return nil
}
