package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	// StreamIngest is the JetStream stream holding ingest events.
	StreamIngest = "TLOG_INGEST"
	// SubjectIngest is the subject ingest events are published on.
	SubjectIngest = "tlog.ingest"
)

// jetStream is the part of nats.JetStreamContext the publisher needs.
type jetStream interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// NATSPublisher publishes events to a JetStream stream.
type NATSPublisher struct {
	conn    *nats.Conn
	js      jetStream
	subject string
}

// NewNATSPublisher connects to url and makes sure the ingest stream exists.
func NewNATSPublisher(url string, maxAge time.Duration) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("tlog-ingest"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     StreamIngest,
		Subjects: []string{SubjectIngest},
		Storage:  nats.FileStorage,
		MaxAge:   maxAge,
	})
	if err != nil && !strings.Contains(err.Error(), "stream name already in use") {
		nc.Close()
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}

	return &NATSPublisher{conn: nc, js: js, subject: SubjectIngest}, nil
}

// Publish sends e as JSON. Events are de-duplicated by job, type and time.
func (p *NATSPublisher) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	opts := []nats.PubOpt{nats.Context(ctx)}
	if e.JobID != "" {
		opts = append(opts, nats.MsgId(fmt.Sprintf("%s:%s:%d", e.JobID, e.Type, e.Timestamp.UnixNano())))
	}
	if _, err := p.js.Publish(p.subject, data, opts...); err != nil {
		return fmt.Errorf("failed to publish %s: %w", e.Type, err)
	}
	return nil
}

// Close closes the NATS connection.
func (p *NATSPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
