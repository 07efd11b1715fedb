package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJetStream struct {
	subjects []string
	payloads [][]byte
	optCount []int
	err      error
}

func (f *fakeJetStream) Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.subjects = append(f.subjects, subj)
	f.payloads = append(f.payloads, data)
	f.optCount = append(f.optCount, len(opts))
	return &nats.PubAck{Stream: StreamIngest, Sequence: uint64(len(f.payloads))}, nil
}

type countingPublisher struct {
	n   int
	err error
}

func (c *countingPublisher) Publish(context.Context, Event) error {
	c.n++
	return c.err
}

func TestNATSPublisherPublish(t *testing.T) {
	js := &fakeJetStream{}
	p := &NATSPublisher{js: js, subject: SubjectIngest}

	e := Event{
		Type:       IngestCompleted,
		JobID:      "job-1",
		FileName:   "flight.tlog",
		DataPoints: 12,
		Skipped:    map[string]int{"checksum_mismatch": 2},
		Timestamp:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.Publish(context.Background(), e))

	require.Len(t, js.payloads, 1)
	assert.Equal(t, SubjectIngest, js.subjects[0])
	assert.Equal(t, 2, js.optCount[0], "context and message id")

	var got Event
	require.NoError(t, json.Unmarshal(js.payloads[0], &got))
	assert.Equal(t, e.Type, got.Type)
	assert.Equal(t, e.JobID, got.JobID)
	assert.Equal(t, e.DataPoints, got.DataPoints)
	assert.Equal(t, e.Skipped, got.Skipped)
	assert.True(t, e.Timestamp.Equal(got.Timestamp))

	require.NoError(t, p.Publish(context.Background(), Event{Type: IngestStarted, FileName: "x.tlog"}))
	assert.Equal(t, 1, js.optCount[1], "no message id without a job")
}

func TestNATSPublisherError(t *testing.T) {
	p := &NATSPublisher{js: &fakeJetStream{err: nats.ErrNoResponders}, subject: SubjectIngest}
	err := p.Publish(context.Background(), Event{Type: IngestFailed})
	assert.ErrorIs(t, err, nats.ErrNoResponders)
}

func TestNATSPublisherCloseNilSafe(t *testing.T) {
	p := &NATSPublisher{}
	p.Close()
}

func TestNewNATSPublisherBadURL(t *testing.T) {
	p, err := NewNATSPublisher("nats://127.0.0.1:1", time.Hour)
	assert.Error(t, err)
	assert.Nil(t, p)
}

func TestMulti(t *testing.T) {
	a, b := &countingPublisher{}, &countingPublisher{err: errors.New("b failed")}
	m := Multi{a, nil, b, Nop{}}

	err := m.Publish(context.Background(), Event{Type: IngestStarted})
	assert.EqualError(t, err, "b failed")
	assert.Equal(t, 1, a.n)
	assert.Equal(t, 1, b.n)

	assert.NoError(t, Multi{}.Publish(context.Background(), Event{}))
}
