package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pratik-mahalle/alertroute/internal/domain/notification"
	"github.com/pratik-mahalle/alertroute/internal/pkg/errors"
)

// ProfileRepository implements notification.ProfileRepository
type ProfileRepository struct {
	db           *sql.DB
	timeslots    *TimeslotRepository
	filters      *FilterRepository
	destinations *DestinationRepository
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *sql.DB) notification.ProfileRepository {
	return &ProfileRepository{
		db:           db,
		timeslots:    &TimeslotRepository{db: db},
		filters:      &FilterRepository{db: db},
		destinations: &DestinationRepository{db: db},
	}
}

const profileColumns = `id, user_id, name, timeslot_id, active, created_at, updated_at`

// Create stores a profile with its filter and destination links
func (r *ProfileRepository) Create(ctx context.Context, p *notification.Profile) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO notification_profiles (user_id, name, timeslot_id, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, p.UserID, nullString(p.Name), p.TimeslotID, p.Active, now, now).Scan(&p.ID)
		if err != nil {
			return err
		}
		return insertProfileLinks(ctx, tx, p)
	})
	if err != nil {
		return errors.DatabaseError("Failed to create notification profile", err)
	}
	return nil
}

// GetByID retrieves a profile owned by the user with its links
func (r *ProfileRepository) GetByID(ctx context.Context, userID, id int64) (*notification.Profile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+profileColumns+` FROM notification_profiles WHERE id = $1 AND user_id = $2
	`, id, userID)

	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Notification profile")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to get notification profile", err)
	}

	if err := r.loadLinks(ctx, []*notification.Profile{p}); err != nil {
		return nil, err
	}
	return p, nil
}

// ListByUser retrieves every profile owned by the user
func (r *ProfileRepository) ListByUser(ctx context.Context, userID int64) ([]*notification.Profile, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+profileColumns+` FROM notification_profiles WHERE user_id = $1 ORDER BY id
	`, userID)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list notification profiles", err)
	}

	profiles, err := collectProfiles(rows)
	if err != nil {
		return nil, err
	}
	if err := r.loadLinks(ctx, profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// Update replaces name, timeslot, active flag and all links
func (r *ProfileRepository) Update(ctx context.Context, p *notification.Profile) error {
	p.UpdatedAt = time.Now().UTC()

	var found bool
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE notification_profiles SET name = $1, timeslot_id = $2, active = $3, updated_at = $4
			WHERE id = $5 AND user_id = $6
		`, nullString(p.Name), p.TimeslotID, p.Active, p.UpdatedAt, p.ID, p.UserID)
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

		if _, err := tx.ExecContext(ctx, `DELETE FROM profile_filters WHERE profile_id = $1`, p.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM profile_destinations WHERE profile_id = $1`, p.ID); err != nil {
			return err
		}
		return insertProfileLinks(ctx, tx, p)
	})
	if err != nil {
		return errors.DatabaseError("Failed to update notification profile", err)
	}
	if !found {
		return errors.NotFound("Notification profile")
	}
	return nil
}

// Delete deletes a profile and its links
func (r *ProfileRepository) Delete(ctx context.Context, userID, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM notification_profiles WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return errors.DatabaseError("Failed to delete notification profile", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return errors.DatabaseError("Failed to get rows affected", err)
	}
	if n == 0 {
		return errors.NotFound("Notification profile")
	}
	return nil
}

// ListActive returns every active profile of every user, hydrated with
// its timeslot, filters and destinations
func (r *ProfileRepository) ListActive(ctx context.Context) ([]*notification.Profile, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+profileColumns+` FROM notification_profiles WHERE active = TRUE ORDER BY id
	`)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list active notification profiles", err)
	}

	profiles, err := collectProfiles(rows)
	if err != nil {
		return nil, err
	}
	if err := r.loadLinks(ctx, profiles); err != nil {
		return nil, err
	}
	if err := r.hydrate(ctx, profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// CountByDestination counts profiles referencing the destination
func (r *ProfileRepository) CountByDestination(ctx context.Context, destinationID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM profile_destinations WHERE destination_id = $1
	`, destinationID).Scan(&n)
	if err != nil {
		return 0, errors.DatabaseError("Failed to count profiles", err)
	}
	return n, nil
}

func insertProfileLinks(ctx context.Context, tx *sql.Tx, p *notification.Profile) error {
	for _, id := range p.FilterIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO profile_filters (profile_id, filter_id) VALUES ($1, $2)
		`, p.ID, id); err != nil {
			return err
		}
	}
	for _, id := range p.DestinationIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO profile_destinations (profile_id, destination_id) VALUES ($1, $2)
		`, p.ID, id); err != nil {
			return err
		}
	}
	return nil
}

// loadLinks fills FilterIDs and DestinationIDs
func (r *ProfileRepository) loadLinks(ctx context.Context, profiles []*notification.Profile) error {
	if len(profiles) == 0 {
		return nil
	}
	byID := make(map[int64]*notification.Profile, len(profiles))
	ids := make([]int64, 0, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	links := []struct {
		query  string
		target func(p *notification.Profile, id int64)
	}{
		{
			query: `SELECT profile_id, filter_id FROM profile_filters WHERE profile_id IN (%s) ORDER BY filter_id`,
			target: func(p *notification.Profile, id int64) {
				p.FilterIDs = append(p.FilterIDs, id)
			},
		},
		{
			query: `SELECT profile_id, destination_id FROM profile_destinations WHERE profile_id IN (%s) ORDER BY destination_id`,
			target: func(p *notification.Profile, id int64) {
				p.DestinationIDs = append(p.DestinationIDs, id)
			},
		},
	}

	for _, link := range links {
		a := &args{}
		query := fmt.Sprintf(link.query, int64List(a, ids))
		if err := scanPairs(ctx, r.db, query, a.values, func(profileID, id int64) {
			link.target(byID[profileID], id)
		}); err != nil {
			return errors.DatabaseError("Failed to load notification profile links", err)
		}
	}
	return nil
}

// hydrate attaches the timeslot, filters and destinations each profile links to
func (r *ProfileRepository) hydrate(ctx context.Context, profiles []*notification.Profile) error {
	var timeslotIDs, filterIDs, destinationIDs []int64
	for _, p := range profiles {
		timeslotIDs = append(timeslotIDs, p.TimeslotID)
		filterIDs = append(filterIDs, p.FilterIDs...)
		destinationIDs = append(destinationIDs, p.DestinationIDs...)
	}

	timeslots, err := r.timeslots.GetMany(ctx, uniqueIDs(timeslotIDs))
	if err != nil {
		return err
	}
	filters, err := r.filters.GetMany(ctx, uniqueIDs(filterIDs))
	if err != nil {
		return err
	}
	destinations, err := r.destinations.GetMany(ctx, uniqueIDs(destinationIDs))
	if err != nil {
		return err
	}

	for _, p := range profiles {
		p.Timeslot = timeslots[p.TimeslotID]
		for _, id := range p.FilterIDs {
			if f, ok := filters[id]; ok {
				p.Filters = append(p.Filters, f)
			}
		}
		for _, id := range p.DestinationIDs {
			if d, ok := destinations[id]; ok {
				p.Destinations = append(p.Destinations, d)
			}
		}
	}
	return nil
}

func scanProfile(row rowScanner) (*notification.Profile, error) {
	var p notification.Profile
	var name sql.NullString
	if err := row.Scan(&p.ID, &p.UserID, &name, &p.TimeslotID, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Name = name.String
	return &p, nil
}

func collectProfiles(rows *sql.Rows) ([]*notification.Profile, error) {
	defer rows.Close()

	var profiles []*notification.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, errors.DatabaseError("Failed to scan notification profile", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("Failed to iterate notification profiles", err)
	}
	return profiles, nil
}
