package storage

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// OpenSQLite opens (or creates) a SQLite database file.
//
// The writer holds a single connection with immediate transactions so batches
// never interleave; readers use a separate read-only pool.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	log.Printf("[Storage] Opening SQLite at: %s", path)

	write, err := sqlx.Open("sqlite3", fmt.Sprintf("file:%s?%s", path,
		"_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL&_txlock=immediate"))
	if err != nil {
		return nil, fmt.Errorf("opening write connection: %w", err)
	}
	write.SetMaxOpenConns(1)

	s := newSQLStore(dialect{
		name:   "sqlite",
		bind:   sqlx.QUESTION,
		schema: sqliteSchema,
		insert: insertPrepared(sqlx.QUESTION),
	}, write, nil)
	if err := s.migrate(ctx); err != nil {
		_ = write.Close()
		return nil, err
	}

	read, err := sqlx.Open("sqlite3", fmt.Sprintf("file:%s?%s", path, "mode=ro&_busy_timeout=5000"))
	if err != nil {
		_ = write.Close()
		return nil, fmt.Errorf("opening read connection: %w", err)
	}
	s.read = read
	return s, nil
}
