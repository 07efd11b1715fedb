package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Options selects and configures a storage backend.
type Options struct {
	Driver  string // duckdb, sqlite or postgres
	DSN     string // file path for embedded engines, connection string for postgres
	DataDir string // default location for embedded database files

	DuckDB DuckDBOptions
}

// Open creates the store described by opts.
func Open(ctx context.Context, opts Options) (*SQLStore, error) {
	driver := strings.ToLower(strings.TrimSpace(opts.Driver))
	if driver == "" {
		driver = "duckdb"
	}

	switch driver {
	case "duckdb":
		path, err := embeddedPath(opts, "flight_data.duckdb")
		if err != nil {
			return nil, err
		}
		return OpenDuckDB(ctx, path, opts.DuckDB)
	case "sqlite", "sqlite3":
		path, err := embeddedPath(opts, "flight_data.sqlite")
		if err != nil {
			return nil, err
		}
		return OpenSQLite(ctx, path)
	case "postgres", "postgresql":
		if opts.DSN == "" {
			return nil, fmt.Errorf("postgres storage needs a DSN")
		}
		return OpenPostgres(ctx, opts.DSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}

func embeddedPath(opts Options, defaultName string) (string, error) {
	path := opts.DSN
	if path == "" {
		path = filepath.Join(opts.DataDir, defaultName)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("creating database directory: %w", err)
		}
	}
	return path, nil
}
