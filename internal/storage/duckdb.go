package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/marcboeker/go-duckdb"
)

// DuckDBOptions tunes the embedded DuckDB engine.
type DuckDBOptions struct {
	MemoryLimit string // e.g. "1GB"
	Threads     int
}

// OpenDuckDB opens (or creates) a DuckDB file and ensures the schema exists.
// Commits are serialized on one connection; reads use their own pool.
func OpenDuckDB(ctx context.Context, path string, opts DuckDBOptions) (*SQLStore, error) {
	log.Printf("[Storage] Opening DuckDB at: %s", path)

	pragmas := []string{"PRAGMA enable_progress_bar=false"}
	if opts.MemoryLimit != "" {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA memory_limit='%s'", opts.MemoryLimit))
	}
	if opts.Threads > 0 {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA threads=%d", opts.Threads))
	}

	connector, err := duckdb.NewConnector(path, func(execer driver.ExecerContext) error {
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return fmt.Errorf("%s: %w", pragma, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	write := sqlx.NewDb(sql.OpenDB(connector), "duckdb")
	write.SetMaxOpenConns(1)
	read := sqlx.NewDb(sql.OpenDB(connector), "duckdb")

	s := newSQLStore(dialect{
		name:   "duckdb",
		bind:   sqlx.QUESTION,
		schema: duckdbSchema,
		insert: insertPrepared(sqlx.QUESTION),
	}, write, read)
	s.onClose = connector.Close

	if err := s.migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
