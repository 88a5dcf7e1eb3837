package inventory

import "github.com/prometheus/client_golang/prometheus"

// MetricsEmitter counts emitted events by kind.
type MetricsEmitter struct {
	events *prometheus.CounterVec
}

func NewMetricsEmitter(reg *prometheus.Registry) *MetricsEmitter {
	m := &MetricsEmitter{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_events_total",
				Help: "Ledger events emitted, by kind",
			},
			[]string{"kind"},
		),
	}
	reg.MustRegister(m.events)
	return m
}

func (m *MetricsEmitter) Emit(e Event) {
	m.events.WithLabelValues(e.Kind()).Inc()
}
