// Package storage persists flight-data points in SQL databases.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/tlog-viewer/backend/internal/ingest"
	"github.com/tlog-viewer/backend/internal/models"
)

// batchInserter writes one file's samples inside an open transaction.
type batchInserter func(ctx context.Context, tx *sqlx.Tx, fileName string, samples []models.Sample) (int, error)

type dialect struct {
	name   string
	bind   int
	schema []string
	insert batchInserter
}

// SQLStore implements ingest.Store over a SQL database.
// Writes go through a dedicated handle so each file's batch is one transaction.
type SQLStore struct {
	d     dialect
	write *sqlx.DB
	read  *sqlx.DB

	// released after both handles on Close
	onClose func() error

	closeOnce sync.Once
	closeErr  error
}

func newSQLStore(d dialect, write, read *sqlx.DB) *SQLStore {
	if read == nil {
		read = write
	}
	return &SQLStore{d: d, write: write, read: read}
}

// Driver returns the dialect name.
func (s *SQLStore) Driver() string {
	return s.d.name
}

// migrate creates the schema if it does not exist.
func (s *SQLStore) migrate(ctx context.Context) (err error) {
	tx, err := s.write.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning schema transaction: %w", err)
	}
	defer rollbackOnError(tx, &err)

	for _, stmt := range s.d.schema {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("initializing schema: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing schema: %w", err)
	}
	return nil
}

// CommitBatch writes all samples for fileName in a single transaction.
func (s *SQLStore) CommitBatch(ctx context.Context, fileName string, samples []models.Sample) (n int, err error) {
	if len(samples) == 0 {
		return 0, nil
	}

	tx, err := s.write.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackOnError(tx, &err)

	if n, err = s.d.insert(ctx, tx, fileName, samples); err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing %d points for %s: %w", n, fileName, err)
	}
	return n, nil
}

// Query returns points in id order, optionally filtered by file and windowed.
func (s *SQLStore) Query(ctx context.Context, q models.FlightDataQuery) ([]models.FlightDataPoint, error) {
	var sb strings.Builder
	var args []any

	sb.WriteString(selectPointsSQL)
	if q.FileName != "" {
		sb.WriteString("\nWHERE file_name = ?")
		args = append(args, q.FileName)
	}
	sb.WriteString("\nORDER BY id")
	if q.Paged() {
		limit := int64(q.Limit)
		if limit <= 0 {
			limit = math.MaxInt32
		}
		sb.WriteString("\nLIMIT ? OFFSET ?")
		args = append(args, limit, q.Offset)
	}

	points := []models.FlightDataPoint{}
	if err := s.read.SelectContext(ctx, &points, sqlx.Rebind(s.d.bind, sb.String()), args...); err != nil {
		return nil, fmt.Errorf("querying flight data: %w", err)
	}
	return points, nil
}

// Files summarizes the stored rows per source file.
func (s *SQLStore) Files(ctx context.Context) ([]models.FileSummary, error) {
	files := []models.FileSummary{}
	if err := s.read.SelectContext(ctx, &files, selectFilesSQL); err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	return files, nil
}

// Ping checks both handles.
func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.write.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", s.d.name, err)
	}
	if s.read != s.write {
		if err := s.read.PingContext(ctx); err != nil {
			return fmt.Errorf("ping %s reader: %w", s.d.name, err)
		}
	}
	return nil
}

// Close releases the database handles. It is safe to call more than once.
func (s *SQLStore) Close() error {
	s.closeOnce.Do(func() {
		if s.read != s.write {
			if err := s.read.Close(); err != nil {
				s.closeErr = err
			}
		}
		if err := s.write.Close(); err != nil && s.closeErr == nil {
			s.closeErr = err
		}
		if s.onClose != nil {
			if err := s.onClose(); err != nil && s.closeErr == nil {
				s.closeErr = err
			}
		}
		log.Printf("[Storage] Closed %s store", s.d.name)
	})
	return s.closeErr
}

// insertPrepared inserts rows one by one through a prepared statement.
func insertPrepared(bind int) batchInserter {
	query := sqlx.Rebind(bind, insertPointSQL)
	return func(ctx context.Context, tx *sqlx.Tx, fileName string, samples []models.Sample) (n int, err error) {
		stmt, err := tx.PreparexContext(ctx, query)
		if err != nil {
			return 0, fmt.Errorf("preparing insert: %w", err)
		}
		defer closeWithError(stmt, &err)

		for _, smp := range samples {
			if _, err = stmt.ExecContext(ctx, fileName, smp.Latitude, smp.Longitude, smp.Altitude, nullable(smp.Heading)); err != nil {
				return n, fmt.Errorf("inserting point %d of %s: %w", n, fileName, err)
			}
			n++
		}
		return n, nil
	}
}

// nullable unwraps an optional column value for drivers that do not accept pointers.
func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackOnError(tx *sqlx.Tx, err *error) {
	if *err == nil {
		return
	}
	if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
		log.Printf("[Storage] Rollback failed: %v", rbErr)
	}
}

var _ ingest.Store = (*SQLStore)(nil)
