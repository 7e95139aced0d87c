package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/artpar/searchtable/core/selection"
	"github.com/artpar/searchtable/core/table"
)

// SQLLoader loads table pages with a Query over database/sql.
type SQLLoader struct {
	db *sql.DB
	q  Query
}

var _ table.Loader = (*SQLLoader)(nil)

// NewSQLLoader returns a loader running q against db. q.Placeholder must
// match the driver.
func NewSQLLoader(db *sql.DB, q Query) *SQLLoader {
	return &SQLLoader{db: db, q: q}
}

// Query returns the loader's query.
func (l *SQLLoader) Query() Query { return l.q }

// Load runs the count and page queries.
func (l *SQLLoader) Load(ctx context.Context, p table.LoadParams) (table.LoadResult, error) {
	rowsStmt, countStmt := l.q.Build(p)

	var total int
	if err := l.db.QueryRowContext(ctx, countStmt.SQL, countStmt.Args...).Scan(&total); err != nil {
		return table.LoadResult{}, fmt.Errorf("count %s: %w", l.q.Table, err)
	}

	rows, err := l.db.QueryContext(ctx, rowsStmt.SQL, rowsStmt.Args...)
	if err != nil {
		return table.LoadResult{}, fmt.Errorf("query %s: %w", l.q.Table, err)
	}
	defer rows.Close()

	out := []selection.Record{}
	for rows.Next() {
		values := make([]any, len(l.q.Columns))
		dest := make([]any, len(values))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return table.LoadResult{}, fmt.Errorf("scan %s: %w", l.q.Table, err)
		}
		rec := make(selection.Record, len(values))
		for i, c := range l.q.Columns {
			rec[c] = fromDB(values[i])
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return table.LoadResult{}, fmt.Errorf("read %s: %w", l.q.Table, err)
	}
	return table.LoadResult{Rows: out, Total: total}, nil
}

func fromDB(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
