// Package metrics exposes recorder lifecycle counters as prometheus metrics,
// fed from the event bus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tdaugaard/wow-recorder/internal/events"
)

// Collector holds the recorder metric instruments and their bus
// subscriptions.
type Collector struct {
	registry *prometheus.Registry

	recordingsStarted prometheus.Counter
	recordingsStopped prometheus.Counter
	reconfigures      prometheus.Counter
	signalTimeouts    *prometheus.CounterVec
	engineDisconnects prometheus.Counter
	audioTracks       prometheus.Gauge

	unsubs []func()
}

// New creates a collector with its own registry and subscribes it to bus.
func New(bus *events.Bus) *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	c := &Collector{
		registry: registry,
		recordingsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "wowrecorder_recordings_started_total",
			Help: "Number of recordings confirmed started by the engine.",
		}),
		recordingsStopped: factory.NewCounter(prometheus.CounterOpts{
			Name: "wowrecorder_recordings_stopped_total",
			Help: "Number of recordings fully stopped and written.",
		}),
		reconfigures: factory.NewCounter(prometheus.CounterOpts{
			Name: "wowrecorder_reconfigures_total",
			Help: "Number of successful recorder reconfigurations.",
		}),
		signalTimeouts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wowrecorder_signal_timeouts_total",
			Help: "Output signals that never arrived within the wait window.",
		}, []string{"expected"}),
		engineDisconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "wowrecorder_engine_disconnects_total",
			Help: "Number of unexpected engine host disconnections.",
		}),
		audioTracks: factory.NewGauge(prometheus.GaugeOpts{
			Name: "wowrecorder_audio_tracks",
			Help: "Audio tracks allocated by the last reconfigure.",
		}),
	}

	c.unsubs = []func(){
		bus.Subscribe(func(events.RecordingStartedEvent) { c.recordingsStarted.Inc() }),
		bus.Subscribe(func(events.RecordingStoppedEvent) { c.recordingsStopped.Inc() }),
		bus.Subscribe(func(e events.ReconfiguredEvent) {
			c.reconfigures.Inc()
			c.audioTracks.Set(float64(e.AudioTracks))
		}),
		bus.Subscribe(func(e events.SignalTimeoutEvent) {
			c.signalTimeouts.WithLabelValues(e.Expected).Inc()
		}),
		bus.Subscribe(func(events.EngineDisconnectedEvent) { c.engineDisconnects.Inc() }),
	}

	return c
}

// Handler returns an HTTP handler serving the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Close unsubscribes the collector from the event bus.
func (c *Collector) Close() {
	for _, unsub := range c.unsubs {
		unsub()
	}
	c.unsubs = nil
}
