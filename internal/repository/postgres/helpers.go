package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// isUniqueViolation recognises unique constraint failures from every supported driver
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// args accumulates positional query arguments and hands out $n placeholders
type args struct {
	values []interface{}
}

func (a *args) add(v interface{}) string {
	a.values = append(a.values, v)
	return "$" + strconv.Itoa(len(a.values))
}

// list adds every value and returns a comma separated placeholder list
func (a *args) list(n int, value func(i int) interface{}) string {
	ph := make([]string, n)
	for i := 0; i < n; i++ {
		ph[i] = a.add(value(i))
	}
	return strings.Join(ph, ", ")
}

func int64List(a *args, ids []int64) string {
	return a.list(len(ids), func(i int) interface{} { return ids[i] })
}

// withTx runs fn in a transaction, rolling back on error
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// scanPairs calls fn for every (int64, int64) row of the query
func scanPairs(ctx context.Context, q querier, query string, params []interface{}, fn func(a, b int64)) error {
	rows, err := q.QueryContext(ctx, query, params...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var a, b int64
		if err := rows.Scan(&a, &b); err != nil {
			return err
		}
		fn(a, b)
	}
	return rows.Err()
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
