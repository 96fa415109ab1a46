package postgres

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/alertroute/internal/domain/filter"
	"github.com/pratik-mahalle/alertroute/internal/domain/incident"
	"github.com/pratik-mahalle/alertroute/internal/pkg/errors"
)

func TestMediaRepository_MarkNotInstalled_SQL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE media SET installed = FALSE WHERE slug = $1 AND installed = TRUE`)).
		WithArgs("sms").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO media (slug, name, installed) VALUES ($1, $2, FALSE)`)).
		WithArgs("sms", "sms").
		WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := NewMediaRepository(db).MarkNotInstalled(context.Background(), "sms")
	require.NoError(t, err)
	assert.False(t, changed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFilterRepository_Create_UniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO filters (user_id, name, filter, created_at, updated_at)`)).
		WithArgs(int64(1), "dup", `{"open":true}`, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505"})

	err = NewFilterRepository(db).Create(context.Background(), &filter.Filter{
		UserID:   1,
		Name:     "dup",
		Criteria: filter.Criteria{Open: filter.Bool(true)},
	})
	assert.True(t, errors.HasCode(err, errors.ErrCodeConflict), "got %v", err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIncidentRepository_Find_SQL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "level", "open", "acked", "stateful", "source_id", "start_time", "description"})
	mock.ExpectQuery(regexp.QuoteMeta(`FROM incidents i WHERE (i.source_id IN ($1) AND i.open = $2) ORDER BY i.id LIMIT $3 OFFSET $4`)).
		WithArgs(int64(5), true, 10, 0).
		WillReturnRows(rows)

	p := incident.All(incident.SourceIn{IDs: []int64{5}}, incident.FlagEquals{Flag: incident.FlagOpen, Value: true})
	found, err := NewIncidentRepository(db).Find(context.Background(), p, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, found)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepository_CountByDestination_SQL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM profile_destinations WHERE destination_id = $1`)).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := NewProfileRepository(db).CountByDestination(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
