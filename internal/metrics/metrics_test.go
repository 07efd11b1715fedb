package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tlog-viewer/backend/internal/ingest"
	"github.com/tlog-viewer/backend/internal/mavlink"
)

func TestCollectorObserve(t *testing.T) {
	c := New(false)

	c.ObserveFrames(10, map[mavlink.Reason]int{
		mavlink.ReasonChecksumMismatch:       2,
		mavlink.ReasonUnsupportedMessageType: 5,
	}, 3)
	c.ObserveFrames(4, nil, 0)
	c.ObserveIngest(ingest.StateDone, 14, 120*time.Millisecond)
	c.ObserveIngest(ingest.StateAborted, 0, time.Second)

	assert.Equal(t, float64(14), testutil.ToFloat64(c.frames.WithLabelValues(OutcomeAccepted)))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.frames.WithLabelValues("checksum_mismatch")))
	assert.Equal(t, float64(5), testutil.ToFloat64(c.frames.WithLabelValues("unsupported_message_type")))
	assert.Equal(t, float64(3), testutil.ToFloat64(c.frames.WithLabelValues(OutcomeResync)))
	assert.Equal(t, float64(14), testutil.ToFloat64(c.samples))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.files.WithLabelValues("done")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.files.WithLabelValues("aborted")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.duration))
}

func TestCollectorHandler(t *testing.T) {
	c := New(true)
	c.ObserveIngest(ingest.StateDone, 3, time.Millisecond)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.True(t, strings.Contains(text, "tlog_samples_accepted_total 3"))
	assert.True(t, strings.Contains(text, `tlog_ingest_files_total{status="done"} 1`))
	assert.True(t, strings.Contains(text, "tlog_ingest_duration_seconds_bucket"))
	assert.True(t, strings.Contains(text, "go_goroutines"))
}

func TestCollectorPush(t *testing.T) {
	var gotPath string
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer gw.Close()

	c := New(false)
	c.ObserveIngest(ingest.StateDone, 1, time.Millisecond)
	require.NoError(t, c.Push(gw.URL, "tlogdump"))
	assert.Equal(t, "/metrics/job/tlogdump", gotPath)
}
