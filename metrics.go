package sessiontoken

import "github.com/prometheus/client_golang/prometheus"

const resultAccepted = "accepted"

// Metrics counts middleware verification outcomes. A nil *Metrics records nothing.
type Metrics struct {
	verifications *prometheus.CounterVec
}

// NewMetrics registers the session token collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sessiontoken",
			Name:      "verifications_total",
			Help:      "Session token verifications by result",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.verifications)
	}
	return m
}

func (m *Metrics) observe(code ErrorCode) {
	if m == nil {
		return
	}
	result := string(code)
	if code == "" {
		result = resultAccepted
	}
	m.verifications.WithLabelValues(result).Inc()
}
