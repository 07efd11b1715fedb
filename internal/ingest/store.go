// Package ingest turns uploaded telemetry logs into persisted flight-data points.
package ingest

import (
	"context"
	"errors"

	"github.com/tlog-viewer/backend/internal/models"
)

var (
	// ErrInvalidUpload indicates a missing, empty or wrongly named upload.
	ErrInvalidUpload = errors.New("invalid upload")
	// ErrStorageCommitFailed indicates the batch for a file could not be persisted.
	// Nothing from that file is visible in the store.
	ErrStorageCommitFailed = errors.New("storage commit failed")
)

// Store persists flight-data points.
//
// CommitBatch writes every sample of one file in a single transaction and
// returns the number of rows written. Either all rows become visible or none.
// An empty batch succeeds without touching storage.
type Store interface {
	CommitBatch(ctx context.Context, fileName string, samples []models.Sample) (int, error)
	Query(ctx context.Context, q models.FlightDataQuery) ([]models.FlightDataPoint, error)
	Files(ctx context.Context) ([]models.FileSummary, error)
	Ping(ctx context.Context) error
	Close() error
}
