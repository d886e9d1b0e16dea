package delay

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	Current prometheus.Gauge
	Updates *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Current: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "delay_current_milliseconds",
			Help: "Delay value last read or written",
		}),
		Updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "delay_updates_total",
			Help: "Write requests by outcome (applied, clamped, invalid, absent)",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.Current, m.Updates)
	return m
}

func (m *Metrics) observe(value int, outcome Outcome) {
	if m == nil {
		return
	}
	m.Current.Set(float64(value))
	if outcome != "" {
		m.Updates.WithLabelValues(string(outcome)).Inc()
	}
}
