package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "tousync_"

// Sync results.
const (
	ResultApplied = "applied"
	ResultDryRun  = "dry_run"
	ResultPaused  = "paused"
	ResultError   = "error"
)

// Metrics holds the sync metrics in their own registry so a one-shot run can
// write them out for the node exporter's textfile collector. A nil *Metrics
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	syncs         *prometheus.CounterVec
	syncLatency   *prometheus.HistogramVec
	skippedPoints *prometheus.CounterVec
	degradedSlots *prometheus.GaugeVec
	lastSync      *prometheus.GaugeVec
}

// New creates and registers the metrics.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		syncs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "syncs_total",
				Help: "Total site syncs by result",
			},
			[]string{"result"},
		),
		syncLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "sync_latency_seconds",
				Help:    "Site sync latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),
		skippedPoints: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "skipped_points_total",
				Help: "Total price points skipped as malformed by site",
			},
			[]string{"site"},
		),
		degradedSlots: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "degraded_slots",
				Help: "Slots without price data in the last tariff built for the site",
			},
			[]string{"site"},
		),
		lastSync: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "last_sync_timestamp_seconds",
				Help: "Unix time of the last successful sync by site",
			},
			[]string{"site"},
		),
	}
	m.registry.MustRegister(
		m.syncs,
		m.syncLatency,
		m.skippedPoints,
		m.degradedSlots,
		m.lastSync,
	)
	return m
}

// Registry returns the registry the metrics are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveSync records a finished sync.
func (m *Metrics) ObserveSync(result string, latency time.Duration) {
	if m == nil {
		return
	}
	m.syncs.WithLabelValues(result).Inc()
	m.syncLatency.WithLabelValues(result).Observe(latency.Seconds())
}

// ObserveTariff records the data quality of a tariff built for the site.
func (m *Metrics) ObserveTariff(siteID string, skipped, degraded int) {
	if m == nil {
		return
	}
	m.skippedPoints.WithLabelValues(siteID).Add(float64(skipped))
	m.degradedSlots.WithLabelValues(siteID).Set(float64(degraded))
}

// MarkSynced records when the site last synced successfully.
func (m *Metrics) MarkSynced(siteID string, at time.Time) {
	if m == nil {
		return
	}
	m.lastSync.WithLabelValues(siteID).Set(float64(at.Unix()))
}

// WriteTextfile writes the metrics in the text exposition format to path.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
