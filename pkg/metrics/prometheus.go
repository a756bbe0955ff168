package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fetchesTotal  *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	redrawsTotal  *prometheus.CounterVec
	drawnBoxes    *prometheus.CounterVec
	skippedBoxes  *prometheus.CounterVec
	syncUpdates   *prometheus.CounterVec
	staleDiscards *prometheus.CounterVec
	rendersTotal  *prometheus.CounterVec
}

// New creates a recorder registered with the default Prometheus registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered with reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		fetchesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinchart_fetches_total",
				Help: "Upstream and cache fetches by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinchart_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coinchart_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		redrawsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinchart_overlay_redraws_total",
				Help: "Overlay redraws per pane",
			},
			[]string{"pane"},
		),
		drawnBoxes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinchart_overlay_boxes_drawn_total",
				Help: "Rectangles placed by overlay redraws",
			},
			[]string{"pane"},
		),
		skippedBoxes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinchart_overlay_boxes_skipped_total",
				Help: "Rectangles skipped because a corner could not be projected",
			},
			[]string{"pane"},
		),
		syncUpdates: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinchart_range_sync_updates_total",
				Help: "Programmatic range updates issued by the synchronizer, by origin pane",
			},
			[]string{"origin"},
		),
		staleDiscards: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinchart_stale_fetch_discards_total",
				Help: "Datasets discarded because a newer selection was made",
			},
			[]string{"symbol"},
		),
		rendersTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinchart_renders_total",
				Help: "Pane renders by pane and format",
			},
			[]string{"pane", "format"},
		),
	}
}

// RecordFetch records a fetch outcome (ok, error, cache_hit, shared).
func (r *Recorder) RecordFetch(kind, outcome string) {
	r.fetchesTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordRedraw(pane string, drawn, skipped int) {
	r.redrawsTotal.WithLabelValues(pane).Inc()
	r.drawnBoxes.WithLabelValues(pane).Add(float64(drawn))
	r.skippedBoxes.WithLabelValues(pane).Add(float64(skipped))
}

// RecordSyncUpdate records one propagation reaching targets panes.
func (r *Recorder) RecordSyncUpdate(origin string, targets int) {
	r.syncUpdates.WithLabelValues(origin).Add(float64(targets))
}

func (r *Recorder) RecordStaleDiscard(symbol string) {
	r.staleDiscards.WithLabelValues(symbol).Inc()
}

func (r *Recorder) RecordRender(pane, format string) {
	r.rendersTotal.WithLabelValues(pane, format).Inc()
}
