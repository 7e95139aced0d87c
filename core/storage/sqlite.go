package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/artpar/searchtable/core/field"
	"github.com/artpar/searchtable/core/selection"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// OpenSQLite opens a SQLite database with WAL journaling.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// Every connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}
	return db, nil
}

// NewSQLiteLoader returns a loader reading q.Table from a SQLite database.
func NewSQLiteLoader(db *sql.DB, q Query) *SQLLoader {
	q.Placeholder = Question
	return NewSQLLoader(db, q)
}

// CreateTable creates the table of q when it does not exist. Column types
// follow the field kinds; the row key is the primary key.
func CreateTable(ctx context.Context, db *sql.DB, q Query, fields []field.TableField) error {
	kinds := make(map[string]field.Kind, len(fields))
	for _, f := range fields {
		kinds[f.Key] = f.Kind
	}

	cols := make([]string, 0, len(q.Columns))
	for _, c := range q.Columns {
		def := quote(c) + " " + sqlType(kinds[c])
		if c == q.Key {
			def += " PRIMARY KEY"
		}
		cols = append(cols, def)
	}

	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)", quote(q.Table), strings.Join(cols, ",\n  "))
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create table %s: %w", q.Table, err)
	}
	return nil
}

// Insert writes records into the table of q in one transaction. Records
// without a row key get a generated one. Attributes that are not columns are
// dropped.
func Insert(ctx context.Context, db *sql.DB, q Query, records []selection.Record) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	n := 0
	for _, r := range records {
		var cols, ph []string
		var args []any
		for _, c := range q.Columns {
			v, ok := r[c]
			if c == q.Key && (!ok || v == nil || v == "") {
				v, ok = uuid.NewString(), true
			}
			if !ok {
				continue
			}
			cols = append(cols, quote(c))
			ph = append(ph, "?")
			args = append(args, toDB(v))
		}
		if len(cols) == 0 {
			continue
		}
		stmt := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
			quote(q.Table), strings.Join(cols, ", "), strings.Join(ph, ", "))
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return 0, fmt.Errorf("insert into %s: %w", q.Table, err)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

func sqlType(k field.Kind) string {
	switch k {
	case field.KindNumber:
		return "NUMERIC"
	case field.KindSwitch:
		return "INTEGER"
	default:
		return "TEXT"
	}
}

// toDB flattens list values, which have no SQLite column type, to text.
func toDB(v any) any {
	if list, ok := asList(v); ok {
		parts := make([]string, len(list))
		for i, item := range list {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, ",")
	}
	return v
}
