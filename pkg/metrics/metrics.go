// Package metrics counts batch outcomes with Prometheus collectors.
// A batch run has no scrape endpoint, so the registry is written to a
// textfile for the node exporter's textfile collector when requested.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tiffmerge"

// Stage names used as label values
const (
	StageDecode = "decode"
	StageIndex  = "index"
	StageMerge  = "merge"
	StageEncode = "encode"
)

// BatchMetrics holds the collectors of one run
type BatchMetrics struct {
	registry *prometheus.Registry

	// FilesTotal counts processed files by stage and result (ok, failed, skipped)
	FilesTotal *prometheus.CounterVec

	// FailuresTotal counts failures by stage and error kind
	FailuresTotal *prometheus.CounterVec

	// TileSetsTotal counts tile-sets by merge outcome (merged, skipped)
	TileSetsTotal *prometheus.CounterVec

	// PixelsMerged counts merged pixel triples
	PixelsMerged prometheus.Counter

	// DuplicatesTotal counts channel artifacts replaced during indexing
	DuplicatesTotal prometheus.Counter

	// LastRunTimestamp is set when a run completes
	LastRunTimestamp prometheus.Gauge
}

// New registers a fresh set of collectors on their own registry
func New() *BatchMetrics {
	reg := prometheus.NewRegistry()

	m := &BatchMetrics{
		registry: reg,
		FilesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "files_total",
				Help:      "Files processed by stage and result",
			},
			[]string{"stage", "result"},
		),
		FailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "failures_total",
				Help:      "Per-file failures by stage and error kind",
			},
			[]string{"stage", "kind"},
		),
		TileSetsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tile_sets_total",
				Help:      "Tile-sets by merge outcome",
			},
			[]string{"result"},
		),
		PixelsMerged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pixels_merged_total",
			Help:      "Merged pixel triples written",
		}),
		DuplicatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_duplicates_total",
			Help:      "Channel artifacts replaced by a later file with the same tile-set and channel",
		}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
	}

	reg.MustRegister(
		m.FilesTotal,
		m.FailuresTotal,
		m.TileSetsTotal,
		m.PixelsMerged,
		m.DuplicatesTotal,
		m.LastRunTimestamp,
	)
	return m
}

// Registry exposes the underlying registry
func (m *BatchMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// FileOK records a successfully processed file
func (m *BatchMetrics) FileOK(stage string) {
	m.FilesTotal.WithLabelValues(stage, "ok").Inc()
}

// FileSkipped records a file left unprocessed without an error
func (m *BatchMetrics) FileSkipped(stage string) {
	m.FilesTotal.WithLabelValues(stage, "skipped").Inc()
}

// FileFailed records a failed file and its error kind
func (m *BatchMetrics) FileFailed(stage, kind string) {
	m.FilesTotal.WithLabelValues(stage, "failed").Inc()
	m.FailuresTotal.WithLabelValues(stage, kind).Inc()
}

// Finish stamps the completion time
func (m *BatchMetrics) Finish() {
	m.LastRunTimestamp.SetToCurrentTime()
}

// WriteTextfile writes all collectors in the text exposition format
func (m *BatchMetrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
