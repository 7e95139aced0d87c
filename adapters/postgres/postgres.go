// Package postgres serves table pages from PostgreSQL through the pgx
// database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/artpar/searchtable/core/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

var schemaNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Open connects to dsn. A non-empty schema is put first on the search_path.
func Open(ctx context.Context, dsn, schema string) (*sql.DB, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if schema != "" {
		if !schemaNameRe.MatchString(schema) {
			return nil, fmt.Errorf("invalid postgres schema name %q", schema)
		}
		if cfg.RuntimeParams == nil {
			cfg.RuntimeParams = make(map[string]string)
		}
		cfg.RuntimeParams["search_path"] = fmt.Sprintf(`"%s",public`, schema)
	}

	db := stdlib.OpenDB(*cfg)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return db, nil
}

// NewLoader returns a loader running q with $n placeholders.
func NewLoader(db *sql.DB, q storage.Query) *storage.SQLLoader {
	q.Placeholder = storage.Dollar
	return storage.NewSQLLoader(db, q)
}
