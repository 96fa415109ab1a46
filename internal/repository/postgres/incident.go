package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pratik-mahalle/alertroute/internal/domain/incident"
	"github.com/pratik-mahalle/alertroute/internal/pkg/errors"
)

// IncidentRepository implements incident.Repository on the materialized
// incident view and its tag table
type IncidentRepository struct {
	db *sql.DB
}

// NewIncidentRepository creates a new incident repository
func NewIncidentRepository(db *sql.DB) incident.Repository {
	return &IncidentRepository{db: db}
}

const incidentColumns = `i.id, i.level, i.open, i.acked, i.stateful, i.source_id, i.start_time, i.description`

// Upsert inserts or replaces the incident view including its tags
func (r *IncidentRepository) Upsert(ctx context.Context, inc *incident.Incident) error {
	for _, tag := range inc.Tags {
		if _, _, ok := incident.SplitTag(tag); !ok {
			return errors.BadRequest(fmt.Sprintf("Tag %q is not of the form key=value", tag))
		}
	}

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO incidents (id, level, open, acked, stateful, source_id, start_time, description, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO UPDATE SET
				level = excluded.level,
				open = excluded.open,
				acked = excluded.acked,
				stateful = excluded.stateful,
				source_id = excluded.source_id,
				start_time = excluded.start_time,
				description = excluded.description,
				updated_at = excluded.updated_at
		`, inc.ID, inc.Level, inc.Open, inc.Acked, inc.Stateful, inc.SourceID,
			inc.StartTime.UTC(), inc.Description, time.Now().UTC())
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM incident_tags WHERE incident_id = $1`, inc.ID); err != nil {
			return err
		}
		for _, tag := range inc.Tags {
			key, value, _ := incident.SplitTag(tag)
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO incident_tags (incident_id, tag_key, tag_value) VALUES ($1, $2, $3)
				ON CONFLICT DO NOTHING
			`, inc.ID, key, value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.DatabaseError("Failed to store incident", err)
	}
	return nil
}

// GetByID retrieves an incident by ID
func (r *IncidentRepository) GetByID(ctx context.Context, id int64) (*incident.Incident, error) {
	incidents, err := r.query(ctx, `SELECT `+incidentColumns+` FROM incidents i WHERE i.id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(incidents) == 0 {
		return nil, errors.NotFound("Incident")
	}
	return incidents[0], nil
}

// Find returns incidents matching the predicate ordered by ID.
// A limit of zero returns every match.
func (r *IncidentRepository) Find(ctx context.Context, p incident.Predicate, limit, offset int) ([]*incident.Incident, error) {
	a := &args{}
	where, err := renderPredicate(p, a)
	if err != nil {
		return nil, errors.Internal("Failed to render incident predicate", err)
	}

	query := `SELECT ` + incidentColumns + ` FROM incidents i WHERE ` + where + ` ORDER BY i.id`
	if limit > 0 {
		query += ` LIMIT ` + a.add(limit) + ` OFFSET ` + a.add(offset)
	}
	return r.query(ctx, query, a.values...)
}

func (r *IncidentRepository) query(ctx context.Context, query string, params ...interface{}) ([]*incident.Incident, error) {
	rows, err := r.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, errors.DatabaseError("Failed to query incidents", err)
	}

	incidents, err := scanIncidents(rows)
	if err != nil {
		return nil, errors.DatabaseError("Failed to scan incident", err)
	}
	if err := r.loadTags(ctx, incidents); err != nil {
		return nil, err
	}
	return incidents, nil
}

func scanIncidents(rows *sql.Rows) ([]*incident.Incident, error) {
	defer rows.Close()

	var incidents []*incident.Incident
	for rows.Next() {
		var inc incident.Incident
		if err := rows.Scan(&inc.ID, &inc.Level, &inc.Open, &inc.Acked, &inc.Stateful,
			&inc.SourceID, &inc.StartTime, &inc.Description); err != nil {
			return nil, err
		}
		incidents = append(incidents, &inc)
	}
	return incidents, rows.Err()
}

func (r *IncidentRepository) loadTags(ctx context.Context, incidents []*incident.Incident) error {
	if len(incidents) == 0 {
		return nil
	}
	byID := make(map[int64]*incident.Incident, len(incidents))
	ids := make([]int64, 0, len(incidents))
	for _, inc := range incidents {
		byID[inc.ID] = inc
		ids = append(ids, inc.ID)
	}

	a := &args{}
	rows, err := r.db.QueryContext(ctx, `
		SELECT incident_id, tag_key, tag_value FROM incident_tags
		WHERE incident_id IN (`+int64List(a, ids)+`)
		ORDER BY incident_id, tag_key, tag_value
	`, a.values...)
	if err != nil {
		return errors.DatabaseError("Failed to load incident tags", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var key, value string
		if err := rows.Scan(&id, &key, &value); err != nil {
			return errors.DatabaseError("Failed to scan incident tag", err)
		}
		inc := byID[id]
		inc.Tags = append(inc.Tags, key+"="+value)
	}
	if err := rows.Err(); err != nil {
		return errors.DatabaseError("Failed to iterate incident tags", err)
	}
	return nil
}

var flagColumns = map[incident.Flag]string{
	incident.FlagOpen:     "i.open",
	incident.FlagAcked:    "i.acked",
	incident.FlagStateful: "i.stateful",
}

// renderPredicate renders p as a WHERE condition over the incidents table
// aliased as i, appending its parameters to a
func renderPredicate(p incident.Predicate, a *args) (string, error) {
	switch p := p.(type) {
	case incident.AllOf:
		return renderJunction(p.Terms, " AND ", "1=1", a)

	case incident.AnyOf:
		return renderJunction(p.Terms, " OR ", "1=0", a)

	case incident.SourceIn:
		if len(p.IDs) == 0 {
			return "1=0", nil
		}
		return "i.source_id IN (" + int64List(a, p.IDs) + ")", nil

	case incident.TagsAll:
		if len(p.Tags) == 0 {
			return "1=1", nil
		}
		for _, tag := range p.Tags {
			if _, _, ok := incident.SplitTag(tag); !ok {
				// stored tags are always key=value, so nothing can carry this one
				return "1=0", nil
			}
		}
		parts := make([]string, 0, len(p.Tags))
		for _, tag := range p.Tags {
			key, value, _ := incident.SplitTag(tag)
			parts = append(parts, fmt.Sprintf(
				"EXISTS (SELECT 1 FROM incident_tags t WHERE t.incident_id = i.id AND t.tag_key = %s AND t.tag_value = %s)",
				a.add(key), a.add(value),
			))
		}
		return strings.Join(parts, " AND "), nil

	case incident.FlagEquals:
		column, ok := flagColumns[p.Flag]
		if !ok {
			return "", fmt.Errorf("unknown incident flag %q", p.Flag)
		}
		return column + " = " + a.add(p.Value), nil

	case incident.LevelAtMost:
		return "i.level <= " + a.add(p.Max), nil
	}
	return "", fmt.Errorf("unsupported predicate %T", p)
}

func renderJunction(terms []incident.Predicate, sep, empty string, a *args) (string, error) {
	if len(terms) == 0 {
		return empty, nil
	}
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		part, err := renderPredicate(t, a)
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}
