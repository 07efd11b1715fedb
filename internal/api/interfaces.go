// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"
	"io"

	"github.com/labstack/echo/v4"

	"github.com/tlog-viewer/backend/internal/ingest"
	"github.com/tlog-viewer/backend/internal/models"
)

// UploadHandler handles synchronous tlog uploads
type UploadHandler interface {
	HandleUploadTlog(c echo.Context) error
}

// JobHandler handles asynchronous ingest jobs
type JobHandler interface {
	HandleStartJob(c echo.Context) error
	HandleGetJob(c echo.Context) error
	HandleListJobs(c echo.Context) error
	HandleCancelJob(c echo.Context) error
}

// FlightDataHandler serves stored flight data
type FlightDataHandler interface {
	HandleFlightData(c echo.Context) error
	HandleFiles(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// Ingester runs one file through decode and commit.
type Ingester interface {
	Ingest(ctx context.Context, req ingest.Request) (*ingest.Result, error)
}

// JobRunner starts and tracks background ingest jobs.
// This allows mocking in tests
type JobRunner interface {
	Start(fileName, spoolID string) ingest.Job
	Get(id string) (ingest.Job, bool)
	List() []ingest.Job
	Cancel(id string) error
}

// Spooler accepts uploads for background ingestion.
type Spooler interface {
	Save(name string, r io.Reader) (*models.FileInfo, error)
	Remove(id string) error
}
