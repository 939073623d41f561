package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the merge coordinator. Outcome labels:
// executed, validation_failed, transaction_failed.
type Metrics struct {
	Merges        *prometheus.CounterVec
	Previews      prometheus.Counter
	MergeDuration prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		Merges: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "prosreg_merges_total",
			Help: "Merge executions by outcome",
		}, []string{"outcome"}),
		Previews: promauto.NewCounter(prometheus.CounterOpts{
			Name: "prosreg_merge_previews_total",
			Help: "Merge previews computed",
		}),
		MergeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "prosreg_merge_duration_seconds",
			Help:    "Duration of ExecuteMerge calls",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

func (m *Metrics) RecordMerge(outcome string) {
	m.Merges.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordPreview() {
	m.Previews.Inc()
}

func (m *Metrics) ObserveMerge(start time.Time) {
	m.MergeDuration.Observe(time.Since(start).Seconds())
}
