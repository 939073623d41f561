package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts legislation resolutions. Outcome labels: exact, fuzzy,
// created, raced.
type Metrics struct {
	Resolutions *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Resolutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "prosreg_legislation_resolutions_total",
			Help: "Legislation resolutions by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) RecordResolution(outcome string) {
	m.Resolutions.WithLabelValues(outcome).Inc()
}
