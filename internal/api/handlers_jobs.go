// handlers_jobs.go - Background ingest job handlers
package api

import (
	"errors"
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"

	"github.com/tlog-viewer/backend/internal/ingest"
)

// HandleStartJob spools a multipart tlog upload and ingests it in the
// background. The response carries the job id to poll.
func (h *Handler) HandleStartJob(c echo.Context) error {
	if h.jobs == nil || h.spool == nil {
		return NewServiceUnavailableError("background ingestion is disabled", nil)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return NewInvalidUploadError("no file provided", err)
	}
	if err := ingest.ValidateFileName(file.Filename); err != nil {
		return ingestError(err)
	}
	if file.Size == 0 {
		return NewInvalidUploadError("invalid upload", errors.New("empty file"))
	}

	src, err := file.Open()
	if err != nil {
		return NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	info, err := h.spool.Save(file.Filename, src)
	if err != nil {
		return NewInternalError("failed to spool upload", err)
	}

	job := h.jobs.Start(file.Filename, info.ID)
	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"jobId":  job.ID,
		"status": job.Status,
	})
}

// HandleGetJob returns the current state of a job.
func (h *Handler) HandleGetJob(c echo.Context) error {
	if h.jobs == nil {
		return NewServiceUnavailableError("background ingestion is disabled", nil)
	}
	id := c.Param("jobId")
	job, ok := h.jobs.Get(id)
	if !ok {
		return NewNotFoundError("job", id)
	}
	return c.JSON(http.StatusOK, job)
}

// HandleListJobs returns all tracked jobs, newest first.
func (h *Handler) HandleListJobs(c echo.Context) error {
	if h.jobs == nil {
		return c.JSON(http.StatusOK, []ingest.Job{})
	}
	jobs := h.jobs.List()
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	return c.JSON(http.StatusOK, jobs)
}

// HandleCancelJob cancels a queued or running job.
func (h *Handler) HandleCancelJob(c echo.Context) error {
	if h.jobs == nil {
		return NewServiceUnavailableError("background ingestion is disabled", nil)
	}
	id := c.Param("jobId")
	err := h.jobs.Cancel(id)
	switch {
	case errors.Is(err, ingest.ErrJobNotFound):
		return NewNotFoundError("job", id)
	case errors.Is(err, ingest.ErrJobFinished):
		return NewConflictError(err.Error())
	case err != nil:
		return NewInternalError("failed to cancel job", err)
	}
	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"jobId":   id,
		"message": "cancellation requested",
	})
}
