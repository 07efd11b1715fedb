// Package api exposes tlog ingestion and flight-data queries over HTTP.
package api

import (
	"github.com/tlog-viewer/backend/internal/ingest"
)

// Handler serves every API endpoint. The narrower interfaces in
// interfaces.go describe its route groups.
type Handler struct {
	ingester  Ingester
	store     ingest.Store
	jobs      JobRunner
	spool     Spooler
	maxUpload int64
	version   string
}

// NewHandler creates a Handler from its dependencies.
func NewHandler(deps *Dependencies) *Handler {
	return &Handler{
		ingester:  deps.Ingester,
		store:     deps.Store,
		jobs:      deps.Jobs,
		spool:     deps.Spool,
		maxUpload: deps.MaxUploadSize,
		version:   deps.Version,
	}
}

var (
	_ UploadHandler     = (*Handler)(nil)
	_ JobHandler        = (*Handler)(nil)
	_ FlightDataHandler = (*Handler)(nil)
	_ HealthHandler     = (*Handler)(nil)
)
