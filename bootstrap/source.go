package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/artpar/searchtable/adapters/postgres"
	"github.com/artpar/searchtable/config"
	"github.com/artpar/searchtable/core/field"
	"github.com/artpar/searchtable/core/schema"
	"github.com/artpar/searchtable/core/selection"
	"github.com/artpar/searchtable/core/storage"
	"github.com/artpar/searchtable/core/table"
	"github.com/rs/zerolog"
)

// Source is an opened row source. DB is nil for the memory driver.
type Source struct {
	Loader table.Loader
	DB     *sql.DB
}

// Close releases the database, if any.
func (s *Source) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// OpenSource opens the row source described by cfg. The column whitelist
// comes from the table fields derived from fields.
func OpenSource(ctx context.Context, cfg config.SourceConfig, rowKey string, fields []field.Descriptor, logger zerolog.Logger) (*Source, error) {
	layout, _ := schema.Derive(fields)
	columns := storage.Columns(layout.Table.Fields, rowKey)

	var seed []selection.Record
	if cfg.Seed != "" {
		rows, err := storage.ReadSeed(cfg.Seed)
		if err != nil {
			return nil, err
		}
		seed = rows
	}

	switch cfg.Driver {
	case "memory":
		logger.Info().Int("rows", len(seed)).Msg("using in-memory rows")
		return &Source{Loader: storage.NewMemoryLoader(seed, columns, rowKey)}, nil

	case "sqlite":
		q, err := storage.NewQuery(cfg.Table, columns, rowKey, storage.Question)
		if err != nil {
			return nil, err
		}
		db, err := storage.OpenSQLite(cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := storage.CreateTable(ctx, db, q, layout.Table.Fields); err != nil {
			db.Close()
			return nil, err
		}
		if len(seed) > 0 {
			n, err := storage.Insert(ctx, db, q, seed)
			if err != nil {
				db.Close()
				return nil, fmt.Errorf("seed: %w", err)
			}
			logger.Info().Int("rows", n).Str("table", q.Table).Msg("seeded sqlite table")
		}
		logger.Info().Str("dsn", cfg.DSN).Str("table", q.Table).Msg("using sqlite rows")
		return &Source{Loader: storage.NewSQLiteLoader(db, q), DB: db}, nil

	case "postgres":
		q, err := storage.NewQuery(cfg.Table, columns, rowKey, storage.Dollar)
		if err != nil {
			return nil, err
		}
		db, err := postgres.Open(ctx, cfg.DSN, cfg.Schema)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if len(seed) > 0 {
			logger.Warn().Msg("source.seed is ignored for postgres")
		}
		logger.Info().Str("table", q.Table).Str("schema", cfg.Schema).Msg("using postgres rows")
		return &Source{Loader: postgres.NewLoader(db, q), DB: db}, nil
	}

	return nil, fmt.Errorf("unknown source driver %q", cfg.Driver)
}
