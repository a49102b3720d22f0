package store

import (
	"context"
	"database/sql"
)

// Querier is the read-only query seam shared by the analytics sources
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
}

// SQLQuerier adapts a database/sql handle, used for the billing database
func SQLQuerier(db *sql.DB) Querier { return sqlQuerier{db: db} }

type sqlQuerier struct{ db *sql.DB }

func (q sqlQuerier) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rs, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return sqlRows{r: rs}, nil
}

// sqlRows drops the Close and Columns errors so *sql.Rows satisfies store.Rows
type sqlRows struct{ r *sql.Rows }

func (r sqlRows) Next() bool             { return r.r.Next() }
func (r sqlRows) Scan(dest ...any) error { return r.r.Scan(dest...) }
func (r sqlRows) Err() error             { return r.r.Err() }
func (r sqlRows) Close()                 { _ = r.r.Close() }

func (r sqlRows) Columns() []string {
	cols, _ := r.r.Columns()
	return cols
}

var _ Querier = Clickhouse(nil)
