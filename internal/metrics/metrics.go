// Package metrics exposes ingest counters in Prometheus format.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/tlog-viewer/backend/internal/ingest"
	"github.com/tlog-viewer/backend/internal/mavlink"
)

// OutcomeAccepted labels frames that produced a sample.
const OutcomeAccepted = "accepted"

// OutcomeResync labels rejected candidates found inside another rejected frame.
const OutcomeResync = "resync"

// Collector records ingest statistics on its own registry.
type Collector struct {
	registry *prometheus.Registry

	frames   *prometheus.CounterVec
	samples  prometheus.Counter
	files    *prometheus.CounterVec
	duration prometheus.Histogram
}

// New creates a collector. withRuntime adds the Go and process collectors.
func New(withRuntime bool) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tlog_frames_total",
			Help: "Candidate frames by outcome: accepted, resync or a skip reason.",
		}, []string{"outcome"}),
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tlog_samples_accepted_total",
			Help: "Position samples committed to the store.",
		}),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tlog_ingest_files_total",
			Help: "Ingested files by final state.",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tlog_ingest_duration_seconds",
			Help:    "Wall time to decode and commit one file.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
		}),
	}
	c.registry.MustRegister(c.frames, c.samples, c.files, c.duration)
	if withRuntime {
		c.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return c
}

// ObserveFrames implements ingest.Observer.
func (c *Collector) ObserveFrames(accepted int, skipped map[mavlink.Reason]int, resyncs int) {
	c.frames.WithLabelValues(OutcomeAccepted).Add(float64(accepted))
	for reason, n := range skipped {
		c.frames.WithLabelValues(string(reason)).Add(float64(n))
	}
	if resyncs > 0 {
		c.frames.WithLabelValues(OutcomeResync).Add(float64(resyncs))
	}
}

// ObserveIngest implements ingest.Observer.
func (c *Collector) ObserveIngest(state ingest.State, samples int, elapsed time.Duration) {
	c.files.WithLabelValues(string(state)).Inc()
	c.samples.Add(float64(samples))
	c.duration.Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Push sends the current values to a Pushgateway under job.
func (c *Collector) Push(url, job string) error {
	if err := push.New(url, job).Gatherer(c.registry).Push(); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}

var _ ingest.Observer = (*Collector)(nil)
