// Package metrics exposes Prometheus collectors for stream sessions and the
// streaming flag.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/groundstation/gsd/internal/session"
	"github.com/groundstation/gsd/internal/source"
	"github.com/groundstation/gsd/internal/telemetry"
)

const namespace = "gsd"

// Collector records stream activity. It satisfies the telemetry hub's
// recorder and session.StatusPublisher.
type Collector struct {
	sessionsActive  *prometheus.GaugeVec
	sessionsOpened  *prometheus.CounterVec
	sessionsClosed  *prometheus.CounterVec
	sessionDuration *prometheus.HistogramVec
	eventsSent      *prometheus.CounterVec
	sourceSkips     *prometheus.CounterVec
	streaming       prometheus.Gauge

	registry *prometheus.Registry
}

var (
	_ session.StatusPublisher = (*Collector)(nil)
	_ telemetry.Recorder      = (*Collector)(nil)
)

// New registers the collectors with reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) (*Collector, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	c := &Collector{
		sessionsActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "sessions_active",
			Help:      "Number of open stream sessions.",
		}, []string{"kind"}),
		sessionsOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "sessions_opened_total",
			Help:      "Total stream sessions opened.",
		}, []string{"kind"}),
		sessionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "sessions_closed_total",
			Help:      "Total stream sessions closed, by reason.",
		}, []string{"kind", "reason"}),
		sessionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "session_duration_seconds",
			Help:      "Lifetime of closed stream sessions.",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 3600},
		}, []string{"kind"}),
		eventsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "events_sent_total",
			Help:      "Total SSE events written.",
		}, []string{"kind"}),
		sourceSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "source_skips_total",
			Help:      "Ticks skipped because the source had no data.",
		}, []string{"kind"}),
		streaming: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "streaming_enabled",
			Help:      "1 while streaming is enabled.",
		}),
		registry: reg,
	}

	collectors := []prometheus.Collector{
		c.sessionsActive, c.sessionsOpened, c.sessionsClosed, c.sessionDuration,
		c.eventsSent, c.sourceSkips, c.streaming,
	}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// SessionOpened counts a new stream.
func (c *Collector) SessionOpened(kind source.Kind) {
	c.sessionsActive.WithLabelValues(string(kind)).Inc()
	c.sessionsOpened.WithLabelValues(string(kind)).Inc()
}

// SessionClosed counts a finished stream.
func (c *Collector) SessionClosed(kind source.Kind, reason string, lived time.Duration) {
	c.sessionsActive.WithLabelValues(string(kind)).Dec()
	c.sessionsClosed.WithLabelValues(string(kind), reason).Inc()
	c.sessionDuration.WithLabelValues(string(kind)).Observe(lived.Seconds())
}

// EventSent counts one written event.
func (c *Collector) EventSent(kind source.Kind) {
	c.eventsSent.WithLabelValues(string(kind)).Inc()
}

// SourceSkipped counts a tick with no reading.
func (c *Collector) SourceSkipped(kind source.Kind) {
	c.sourceSkips.WithLabelValues(string(kind)).Inc()
}

// PublishStatus mirrors the streaming flag.
func (c *Collector) PublishStatus(st session.Status) error {
	if st.Streaming {
		c.streaming.Set(1)
	} else {
		c.streaming.Set(0)
	}
	return nil
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// LinkStats reports decoded and dropped frame counts and the last frame time.
type LinkStats func() (frames, dropped uint64, lastFrame time.Time)

// WatchLink exports serial link counters, read from stats at scrape time.
func (c *Collector) WatchLink(stats LinkStats) error {
	frames := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "link",
		Name:      "frames_total",
		Help:      "Frames decoded from the serial link.",
	}, func() float64 {
		n, _, _ := stats()
		return float64(n)
	})
	dropped := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "link",
		Name:      "frames_dropped_total",
		Help:      "Frames from the serial link that failed to decode.",
	}, func() float64 {
		_, n, _ := stats()
		return float64(n)
	})
	last := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "link",
		Name:      "last_frame_timestamp_seconds",
		Help:      "Unix time of the last decoded frame, 0 before the first.",
	}, func() float64 {
		_, _, at := stats()
		if at.IsZero() {
			return 0
		}
		return float64(at.UnixNano()) / 1e9
	})

	for _, collector := range []prometheus.Collector{frames, dropped, last} {
		if err := c.registry.Register(collector); err != nil {
			return err
		}
	}
	return nil
}
