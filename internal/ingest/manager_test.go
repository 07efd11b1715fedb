package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tlog-viewer/backend/internal/events"
	"github.com/tlog-viewer/backend/internal/models"
	"github.com/tlog-viewer/backend/internal/testutil"
)

func newTestManager(store *testutil.MemoryStore) (*Manager, *testutil.MemorySpool, *testutil.RecordingPublisher) {
	pub := &testutil.RecordingPublisher{}
	spool := testutil.NewMemorySpool()
	m := NewManager(NewPipeline(store, WithEvents(pub)), spool, 2, 1<<20)
	return m, spool, pub
}

func TestManagerCompletesJob(t *testing.T) {
	store := testutil.NewMemoryStore()
	m, spool, pub := newTestManager(store)
	defer m.Close()

	spoolID := spool.Add("flight.tlog", testutil.Tlog(testutil.Track(10)...))
	job := m.Start("flight.tlog", spoolID)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, JobQueued, job.Status)

	m.Wait()

	got, ok := m.Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, JobComplete, got.Status)
	assert.Equal(t, float64(100), got.Progress)
	require.NotNil(t, got.Result)
	assert.Equal(t, 10, got.Result.DataPoints)
	assert.NotNil(t, got.CompletedAt)

	assert.Equal(t, 10, store.RowCount())
	assert.True(t, spool.Removed(spoolID))
	assert.Equal(t, models.FileStatusIngested, spool.Status(spoolID))

	evts := pub.Events()
	require.Len(t, evts, 2)
	assert.Equal(t, job.ID, evts[0].JobID)
	assert.Equal(t, events.IngestCompleted, evts[1].Type)
}

func TestManagerGzipSpool(t *testing.T) {
	store := testutil.NewMemoryStore()
	m, spool, _ := newTestManager(store)
	defer m.Close()

	spoolID := spool.Add("flight.tlog", gzipBytes(t, testutil.Frames(testutil.Track(4)...)))
	job := m.Start("flight.tlog", spoolID)
	m.Wait()

	got, _ := m.Get(job.ID)
	assert.Equal(t, JobComplete, got.Status)
	assert.Equal(t, 4, store.RowCount())
}

func TestManagerJobErrors(t *testing.T) {
	t.Run("commit failure", func(t *testing.T) {
		store := testutil.NewMemoryStore()
		store.FailCommit = errors.New("constraint violation")
		m, spool, _ := newTestManager(store)
		defer m.Close()

		spoolID := spool.Add("flight.tlog", workedFrame())
		job := m.Start("flight.tlog", spoolID)
		m.Wait()

		got, _ := m.Get(job.ID)
		assert.Equal(t, JobError, got.Status)
		assert.Contains(t, got.Error, "storage commit failed")
		assert.Equal(t, 0, store.RowCount())
		assert.Equal(t, models.FileStatusError, spool.Status(spoolID))
		assert.True(t, spool.Removed(spoolID))
	})

	t.Run("missing spool file", func(t *testing.T) {
		store := testutil.NewMemoryStore()
		m, _, _ := newTestManager(store)
		defer m.Close()

		job := m.Start("flight.tlog", "does-not-exist")
		m.Wait()

		got, _ := m.Get(job.ID)
		assert.Equal(t, JobError, got.Status)
		assert.Contains(t, got.Error, "open spooled upload")
	})
}

func TestManagerCancel(t *testing.T) {
	store := testutil.NewMemoryStore()
	store.CommitDelay = 500 * time.Millisecond
	m, spool, _ := newTestManager(store)
	defer m.Close()

	slow := m.Start("slow.tlog", spool.Add("slow.tlog", testutil.Frames(testutil.Track(3)...)))
	other := m.Start("other.tlog", spool.Add("other.tlog", testutil.Frames(testutil.Track(2)...)))

	require.NoError(t, m.Cancel(slow.ID))
	m.Wait()

	got, _ := m.Get(slow.ID)
	assert.Equal(t, JobCancelled, got.Status)

	got, _ = m.Get(other.ID)
	assert.Equal(t, JobComplete, got.Status)

	rows, err := store.Files(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "other.tlog", rows[0].FileName)

	err = m.Cancel(slow.ID)
	assert.ErrorIs(t, err, ErrJobFinished)

	err = m.Cancel("unknown")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestManagerCleanupOldJobs(t *testing.T) {
	store := testutil.NewMemoryStore()
	m, spool, _ := newTestManager(store)
	defer m.Close()

	job := m.Start("flight.tlog", spool.Add("flight.tlog", workedFrame()))
	m.Wait()

	assert.Equal(t, 0, m.CleanupOldJobs(time.Hour))
	assert.Len(t, m.List(), 1)

	assert.Equal(t, 1, m.CleanupOldJobs(-time.Second))
	_, ok := m.Get(job.ID)
	assert.False(t, ok)
}

func TestManagerClose(t *testing.T) {
	store := testutil.NewMemoryStore()
	store.CommitDelay = 5 * time.Second
	m, spool, _ := newTestManager(store)

	job := m.Start("flight.tlog", spool.Add("flight.tlog", workedFrame()))
	m.Close()

	got, _ := m.Get(job.ID)
	assert.Equal(t, JobCancelled, got.Status)
	assert.Equal(t, 0, store.RowCount())
}
