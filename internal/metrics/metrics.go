// Package metrics holds the Prometheus instrumentation for the ingest
// daemon.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the ingest pipeline counters and histograms.
type Metrics struct {
	EnvelopesReceived prometheus.Counter
	TracksDecoded     prometheus.Counter
	DecodeFailures    prometheus.Counter
	TracksStored      prometheus.Counter
	StoreFailures     prometheus.Counter

	DecodeDuration prometheus.Histogram
	TrackWaypoints prometheus.Histogram
}

// New creates and registers the ingest metrics on the default
// registry. Call once per process.
func New() *Metrics {
	return &Metrics{
		EnvelopesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "quickroute_ingest_envelopes_received_total",
			Help: "Total number of ingest envelopes received",
		}),
		TracksDecoded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "quickroute_ingest_tracks_decoded_total",
			Help: "Total number of tracks decoded successfully",
		}),
		DecodeFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "quickroute_ingest_decode_failures_total",
			Help: "Total number of envelopes that failed extraction or decoding",
		}),
		TracksStored: promauto.NewCounter(prometheus.CounterOpts{
			Name: "quickroute_ingest_tracks_stored_total",
			Help: "Total number of tracks written to the archive",
		}),
		StoreFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "quickroute_ingest_store_failures_total",
			Help: "Total number of archive writes that failed",
		}),
		DecodeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "quickroute_ingest_decode_duration_seconds",
			Help:    "Time spent extracting and decoding one envelope",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		}),
		TrackWaypoints: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "quickroute_ingest_track_waypoints",
			Help:    "Number of waypoints per decoded track",
			Buckets: prometheus.ExponentialBuckets(16, 2, 12), // 16 to ~32k samples
		}),
	}
}

// RecordReceived increments the envelopes received counter.
func (m *Metrics) RecordReceived() {
	m.EnvelopesReceived.Inc()
}

// RecordDecoded records a successful decode with its duration and the
// number of waypoints found.
func (m *Metrics) RecordDecoded(durationSeconds float64, waypoints int) {
	m.TracksDecoded.Inc()
	m.DecodeDuration.Observe(durationSeconds)
	m.TrackWaypoints.Observe(float64(waypoints))
}

// RecordDecodeFailure records a failed extraction or decode with its
// duration.
func (m *Metrics) RecordDecodeFailure(durationSeconds float64) {
	m.DecodeFailures.Inc()
	m.DecodeDuration.Observe(durationSeconds)
}

// RecordStored increments the archived tracks counter.
func (m *Metrics) RecordStored() {
	m.TracksStored.Inc()
}

// RecordStoreFailure increments the failed archive writes counter.
func (m *Metrics) RecordStoreFailure() {
	m.StoreFailures.Inc()
}
