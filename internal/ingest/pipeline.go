package ingest

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/tlog-viewer/backend/internal/events"
	"github.com/tlog-viewer/backend/internal/mavlink"
)

// Observer receives per-file ingest statistics. The metrics package implements it.
type Observer interface {
	ObserveFrames(accepted int, skipped map[mavlink.Reason]int, resyncs int)
	ObserveIngest(state State, samples int, elapsed time.Duration)
}

// Request is one file to ingest.
type Request struct {
	FileName string
	Data     []byte
	JobID    string
	Progress ProgressFunc
}

// Result is the outcome of ingesting one file.
type Result struct {
	FileName   string        `json:"file_name"`
	DataPoints int           `json:"data_points"`
	Duration   time.Duration `json:"duration_ns"`
	Report
}

// Pipeline decodes one file at a time and commits its samples as one batch.
// A Pipeline holds no per-file state and may run files concurrently.
type Pipeline struct {
	store           Store
	events          events.Publisher
	observer        Observer
	skipRecordLimit int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithEvents publishes lifecycle events for every file.
func WithEvents(p events.Publisher) Option {
	return func(pl *Pipeline) { pl.events = p }
}

// WithObserver reports frame and file statistics.
func WithObserver(o Observer) Option {
	return func(pl *Pipeline) { pl.observer = o }
}

// WithSkipRecordLimit caps the skip records kept per file.
func WithSkipRecordLimit(n int) Option {
	return func(pl *Pipeline) { pl.skipRecordLimit = n }
}

// NewPipeline creates a pipeline committing into store.
func NewPipeline(store Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:  store,
		events: events.Nop{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Store returns the store the pipeline commits into.
func (p *Pipeline) Store() Store {
	return p.store
}

// Ingest decodes req.Data and commits the accepted samples under req.FileName.
//
// Cancellation before the commit leaves the store untouched and returns the
// context error with an aborted result. A failed commit returns an error
// wrapping ErrStorageCommitFailed.
func (p *Pipeline) Ingest(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	if err := ValidateFileName(req.FileName); err != nil {
		return nil, err
	}
	tag := logTag(req)
	log.Printf("%s Decoding %s (%s)", tag, req.FileName, humanize.IBytes(uint64(len(req.Data))))
	p.publish(ctx, events.Event{Type: events.IngestStarted, JobID: req.JobID, FileName: req.FileName})

	samples, report, err := DecodeAll(ctx, req.Data, DecodeOptions{
		SkipRecordLimit: p.skipRecordLimit,
		Progress:        req.Progress,
	})
	res := &Result{FileName: req.FileName, Report: *report}
	if p.observer != nil {
		p.observer.ObserveFrames(report.Accepted, report.Skipped, report.Resyncs)
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return p.fail(ctx, req, res, start, fmt.Errorf("ingest %s: %w", req.FileName, err))
	}

	res.State = StateCommitting
	n, err := p.store.CommitBatch(ctx, req.FileName, samples)
	if err != nil {
		return p.fail(ctx, req, res, start, fmt.Errorf("%w: %s: %w", ErrStorageCommitFailed, req.FileName, err))
	}

	res.DataPoints = n
	res.State = StateDone
	res.Duration = time.Since(start)
	if p.observer != nil {
		p.observer.ObserveIngest(StateDone, n, res.Duration)
	}
	log.Printf("%s Committed %s: %d points, %d frames skipped, truncated=%v (%v)",
		tag, req.FileName, n, report.SkippedTotal(), report.Truncated, res.Duration.Round(time.Millisecond))

	p.publish(ctx, events.Event{
		Type:       events.IngestCompleted,
		JobID:      req.JobID,
		FileName:   req.FileName,
		DataPoints: n,
		Skipped:    reasonCounts(report.Skipped),
		Truncated:  report.Truncated,
	})
	return res, nil
}

func (p *Pipeline) fail(ctx context.Context, req Request, res *Result, start time.Time, err error) (*Result, error) {
	res.State = StateAborted
	res.DataPoints = 0
	res.Duration = time.Since(start)
	if p.observer != nil {
		p.observer.ObserveIngest(StateAborted, 0, res.Duration)
	}
	log.Printf("%s Aborted %s: %v", logTag(req), req.FileName, err)

	// The request context may already be done; the failure still gets reported.
	p.publish(context.WithoutCancel(ctx), events.Event{
		Type:     events.IngestFailed,
		JobID:    req.JobID,
		FileName: req.FileName,
		Error:    err.Error(),
	})
	return res, err
}

func (p *Pipeline) publish(ctx context.Context, e events.Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if err := p.events.Publish(ctx, e); err != nil {
		log.Printf("[Ingest] Warning: failed to publish %s for %s: %v", e.Type, e.FileName, err)
	}
}

func reasonCounts(m map[mavlink.Reason]int) map[string]int {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]int, len(m))
	for r, n := range m {
		out[string(r)] = n
	}
	return out
}

func logTag(req Request) string {
	if req.JobID != "" {
		return fmt.Sprintf("[IngestJob %s]", shortID(req.JobID))
	}
	return "[Ingest]"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// ValidateFileName checks that name looks like a telemetry log.
func ValidateFileName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: missing file name", ErrInvalidUpload)
	}
	if !strings.HasSuffix(strings.ToLower(name), ".tlog") {
		return fmt.Errorf("%w: %q is not a .tlog file", ErrInvalidUpload, name)
	}
	return nil
}
