package storage

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/tlog-viewer/backend/internal/models"
)

// OpenPostgres connects to PostgreSQL and ensures the schema exists.
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Printf("[Storage] Connected to PostgreSQL")

	s := NewPostgresStore(db)
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStore wraps an existing connection without touching the schema.
func NewPostgresStore(db *sqlx.DB) *SQLStore {
	return newSQLStore(dialect{
		name:   "postgres",
		bind:   sqlx.DOLLAR,
		schema: postgresSchema,
		insert: copyIn,
	}, db, nil)
}

// copyIn streams the batch with COPY FROM STDIN inside the transaction.
func copyIn(ctx context.Context, tx *sqlx.Tx, fileName string, samples []models.Sample) (n int, err error) {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("flight_data", "file_name", "lat", "lon", "alt", "heading"))
	if err != nil {
		return 0, fmt.Errorf("preparing copy: %w", err)
	}
	defer closeWithError(stmt, &err)

	for _, smp := range samples {
		if _, err = stmt.ExecContext(ctx, fileName, smp.Latitude, smp.Longitude, smp.Altitude, nullable(smp.Heading)); err != nil {
			return 0, fmt.Errorf("copying point %d of %s: %w", n, fileName, err)
		}
		n++
	}
	if _, err = stmt.ExecContext(ctx); err != nil {
		return 0, fmt.Errorf("flushing copy for %s: %w", fileName, err)
	}
	return n, nil
}
