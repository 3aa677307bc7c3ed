package inventory

import "github.com/prometheus/client_golang/prometheus"

type storeMetrics struct {
	mutations *prometheus.CounterVec
}

func newStoreMetrics(reg prometheus.Registerer) *storeMetrics {
	m := &storeMetrics{
		mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "inventory",
				Name:      "item_mutations_total",
				Help:      "Committed item mutations by operation",
			},
			[]string{"op"},
		),
	}
	reg.MustRegister(m.mutations)
	return m
}

func (m *storeMetrics) observe(t EventType) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(string(t)).Inc()
}
