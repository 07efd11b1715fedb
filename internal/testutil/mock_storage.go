// mock_storage.go - In-memory stand-ins for the flight-data store and upload spool
package testutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/tlog-viewer/backend/internal/events"
	"github.com/tlog-viewer/backend/internal/models"
)

// MemoryStore is a flight-data store backed by a slice.
// Setting FailCommit makes every CommitBatch fail without writing.
type MemoryStore struct {
	mu     sync.RWMutex
	rows   []models.FlightDataPoint
	nextID int64

	FailCommit error
	// CommitDelay blocks CommitBatch, honoring context cancellation.
	CommitDelay time.Duration
	Commits     int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

func (m *MemoryStore) CommitBatch(ctx context.Context, fileName string, samples []models.Sample) (int, error) {
	if m.CommitDelay > 0 {
		select {
		case <-time.After(m.CommitDelay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailCommit != nil {
		return 0, m.FailCommit
	}
	if len(samples) == 0 {
		return 0, nil
	}
	for _, s := range samples {
		m.rows = append(m.rows, models.FlightDataPoint{
			ID:        m.nextID,
			FileName:  fileName,
			Latitude:  s.Latitude,
			Longitude: s.Longitude,
			Altitude:  s.Altitude,
			Heading:   s.Heading,
		})
		m.nextID++
	}
	m.Commits++
	return len(samples), nil
}

func (m *MemoryStore) Query(ctx context.Context, q models.FlightDataQuery) ([]models.FlightDataPoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.FlightDataPoint{}
	skipped := 0
	for _, row := range m.rows {
		if q.FileName != "" && row.FileName != q.FileName {
			continue
		}
		if skipped < q.Offset {
			skipped++
			continue
		}
		out = append(out, row)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) Files(ctx context.Context) ([]models.FileSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byName := make(map[string]*models.FileSummary)
	for _, row := range m.rows {
		s, ok := byName[row.FileName]
		if !ok {
			s = &models.FileSummary{FileName: row.FileName, FirstID: row.ID}
			byName[row.FileName] = s
		}
		s.DataPoints++
		s.LastID = row.ID
	}
	out := make([]models.FileSummary, 0, len(byName))
	for _, s := range byName {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FileName < out[j].FileName })
	return out, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

// Test Helper Methods

// RowCount returns the number of stored rows.
func (m *MemoryStore) RowCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

// MemorySpool holds spooled uploads in memory.
type MemorySpool struct {
	mu      sync.Mutex
	files   map[string]*models.FileInfo
	data    map[string][]byte
	removed map[string]bool
}

// NewMemorySpool creates an empty spool.
func NewMemorySpool() *MemorySpool {
	return &MemorySpool{
		files:   make(map[string]*models.FileInfo),
		data:    make(map[string][]byte),
		removed: make(map[string]bool),
	}
}

// Add stores data under a generated id.
func (s *MemorySpool) Add(name string, data []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := generateTestID()
	s.files[id] = &models.FileInfo{
		ID:         id,
		Name:       name,
		Size:       int64(len(data)),
		UploadedAt: time.Now(),
		Status:     models.FileStatusSpooled,
	}
	s.data[id] = data
	return id
}

// Save reads r fully and spools it under a generated id.
func (s *MemorySpool) Save(name string, r io.Reader) (*models.FileInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	id := s.Add(name, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files[id].Clone(), nil
}

func (s *MemorySpool) Open(id string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.data[id]
	if !ok {
		return nil, errors.New("file not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemorySpool) SetStatus(id, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if info, ok := s.files[id]; ok {
		info.Status = status
	}
}

func (s *MemorySpool) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	s.removed[id] = true
	return nil
}

// Status returns the last status set for id.
func (s *MemorySpool) Status(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if info, ok := s.files[id]; ok {
		return info.Status
	}
	return ""
}

// Removed reports whether Remove was called for id.
func (s *MemorySpool) Removed(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removed[id]
}

// RecordingPublisher captures published events.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	Err    error
}

func (p *RecordingPublisher) Publish(ctx context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.Err
}

// Events returns a copy of everything published so far.
func (p *RecordingPublisher) Events() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.events...)
}

// Types returns the published event types in order.
func (p *RecordingPublisher) Types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// generateTestID generates a simple test ID
var testIDCounter int
var testIDMutex sync.Mutex

func generateTestID() string {
	testIDMutex.Lock()
	defer testIDMutex.Unlock()
	testIDCounter++
	return fmt.Sprintf("test-id-%d", testIDCounter)
}
