// Package events carries ingest lifecycle notifications to external listeners.
package events

import (
	"context"
	"errors"
	"time"
)

// Type names an ingest lifecycle event.
type Type string

const (
	IngestStarted   Type = "ingest.started"
	IngestCompleted Type = "ingest.completed"
	IngestFailed    Type = "ingest.failed"
)

// Event is one ingest lifecycle notification.
type Event struct {
	Type       Type           `json:"type"`
	JobID      string         `json:"jobId,omitempty"`
	FileName   string         `json:"fileName"`
	DataPoints int            `json:"dataPoints"`
	Skipped    map[string]int `json:"skipped,omitempty"`
	Truncated  bool           `json:"truncated,omitempty"`
	Error      string         `json:"error,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
