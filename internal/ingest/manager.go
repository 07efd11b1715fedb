package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tlog-viewer/backend/internal/models"
)

// JobStatus is the lifecycle state of an async ingest job.
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobDecoding   JobStatus = "decoding"
	JobCommitting JobStatus = "committing"
	JobComplete   JobStatus = "complete"
	JobError      JobStatus = "error"
	JobCancelled  JobStatus = "cancelled"
)

// Finished reports whether the status is terminal.
func (s JobStatus) Finished() bool {
	return s == JobComplete || s == JobError || s == JobCancelled
}

var (
	// ErrJobNotFound indicates an unknown job id.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobFinished indicates a cancel request for a job that already ended.
	ErrJobFinished = errors.New("job already finished")
)

// Job is an async ingest of one spooled upload.
type Job struct {
	ID          string     `json:"id"`
	SpoolID     string     `json:"spoolId"`
	FileName    string     `json:"fileName"`
	Status      JobStatus  `json:"status"`
	Progress    float64    `json:"progress"`
	Result      *Result    `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	cancel context.CancelFunc
}

// Spool is the on-disk holding area for uploads awaiting ingestion.
type Spool interface {
	Open(id string) (io.ReadCloser, error)
	SetStatus(id, status string)
	Remove(id string) error
}

// Manager runs ingest jobs in the background with bounded concurrency.
type Manager struct {
	jobs     map[string]*Job
	mu       sync.RWMutex
	pipeline *Pipeline
	spool    Spool
	sem      chan struct{}
	maxSize  int64
	wg       sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager creates a job manager. maxConcurrent below one is treated as one;
// maxSize bounds the decoded size of each spooled file (zero is unbounded).
func NewManager(pipeline *Pipeline, spool Spool, maxConcurrent int, maxSize int64) *Manager {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		jobs:     make(map[string]*Job),
		pipeline: pipeline,
		spool:    spool,
		sem:      make(chan struct{}, maxConcurrent),
		maxSize:  maxSize,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start queues a spooled file for ingestion and returns immediately.
func (m *Manager) Start(fileName, spoolID string) Job {
	ctx, cancel := context.WithCancel(m.ctx)
	job := &Job{
		ID:        uuid.New().String(),
		SpoolID:   spoolID,
		FileName:  fileName,
		Status:    JobQueued,
		CreatedAt: time.Now(),
		cancel:    cancel,
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	snapshot := *job
	m.mu.Unlock()

	m.wg.Add(1)
	go m.run(ctx, job)

	return snapshot
}

// Get returns a snapshot of a job.
func (m *Manager) Get(id string) (Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// List returns snapshots of all tracked jobs.
func (m *Manager) List() []Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		out = append(out, *job)
	}
	return out
}

// Cancel stops a queued or running job. Other jobs are unaffected and the
// store is left without any rows from the cancelled file.
func (m *Manager) Cancel(id string) error {
	m.mu.RLock()
	job, ok := m.jobs[id]
	var status JobStatus
	if ok {
		status = job.Status
	}
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if status.Finished() {
		return fmt.Errorf("%w: %s is %s", ErrJobFinished, id, status)
	}
	job.cancel()
	return nil
}

// Wait blocks until every started job has finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Close cancels outstanding jobs and waits for their workers.
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
}

func (m *Manager) run(ctx context.Context, job *Job) {
	defer m.wg.Done()
	defer job.cancel()
	defer m.removeSpool(job)

	select {
	case m.sem <- struct{}{}:
		defer func() { <-m.sem }()
	case <-ctx.Done():
		m.finish(job, nil, ctx.Err())
		return
	}

	log.Printf("[IngestJob %s] Starting: %s", shortID(job.ID), job.FileName)
	m.update(job, JobDecoding, 0)
	m.spool.SetStatus(job.SpoolID, models.FileStatusIngesting)

	data, err := m.load(job.SpoolID)
	if err != nil {
		m.finish(job, nil, err)
		return
	}

	res, err := m.pipeline.Ingest(ctx, Request{
		FileName: job.FileName,
		Data:     data,
		JobID:    job.ID,
		Progress: func(consumed, total int) {
			if total == 0 {
				return
			}
			// Decoding 0-90%, commit 90-100%.
			pct := float64(consumed) / float64(total) * 90
			status := JobDecoding
			if consumed >= total {
				status = JobCommitting
			}
			m.update(job, status, pct)
		},
	})
	m.finish(job, res, err)
}

func (m *Manager) load(spoolID string) ([]byte, error) {
	rc, err := m.spool.Open(spoolID)
	if err != nil {
		return nil, fmt.Errorf("open spooled upload: %w", err)
	}
	defer rc.Close()
	return ReadUpload(rc, m.maxSize)
}

func (m *Manager) removeSpool(job *Job) {
	if err := m.spool.Remove(job.SpoolID); err != nil {
		log.Printf("[IngestJob %s] Warning: failed to remove spool file %s: %v", shortID(job.ID), job.SpoolID, err)
	}
}

// update records job progress (thread-safe).
func (m *Manager) update(job *Job, status JobStatus, progress float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job.Status = status
	job.Progress = progress
}

// finish marks the job terminal (thread-safe).
func (m *Manager) finish(job *Job, res *Result, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	job.CompletedAt = &now
	job.Result = res
	switch {
	case err == nil:
		job.Status = JobComplete
		job.Progress = 100
		m.spool.SetStatus(job.SpoolID, models.FileStatusIngested)
		log.Printf("[IngestJob %s] Complete: %s (%d points)", shortID(job.ID), job.FileName, res.DataPoints)
	case errors.Is(err, context.Canceled):
		job.Status = JobCancelled
		job.Error = err.Error()
		m.spool.SetStatus(job.SpoolID, models.FileStatusError)
		log.Printf("[IngestJob %s] Cancelled: %s", shortID(job.ID), job.FileName)
	default:
		job.Status = JobError
		job.Error = err.Error()
		m.spool.SetStatus(job.SpoolID, models.FileStatusError)
		log.Printf("[IngestJob %s] Error: %v", shortID(job.ID), err)
	}
}

// CleanupOldJobs removes finished jobs completed more than maxAge ago.
func (m *Manager) CleanupOldJobs(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	cutoff := time.Now().Add(-maxAge)
	for id, job := range m.jobs {
		if job.Status.Finished() && job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(m.jobs, id)
			removed++
		}
	}
	return removed
}
