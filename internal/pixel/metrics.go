package pixel

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	// createdTotal counts pixels handed out to callers.
	createdTotal prometheus.Counter
	// opensTotal counts fire events split by whether they were real opens.
	opensTotal *prometheus.CounterVec
	// pingsTotal counts pings by state machine outcome.
	pingsTotal *prometheus.CounterVec
	// sessionsEndedTotal counts closed sessions by who closed them.
	sessionsEndedTotal *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer, activeSessions func() float64) metrics {
	f := promauto.With(reg)
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "pixel",
		Name:      "active_sessions",
		Help:      "Number of duration-tracking sessions currently active.",
	}, activeSessions)

	return metrics{
		createdTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: "pixel",
			Name:      "created_total",
			Help:      "Total number of tracking pixels created.",
		}),
		opensTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pixel",
			Name:      "opens_total",
			Help:      "Total number of pixel fire events.",
		}, []string{"kind"}),
		pingsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pixel",
			Name:      "pings_total",
			Help:      "Total number of duration pings.",
		}, []string{"result"}),
		sessionsEndedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pixel",
			Name:      "sessions_ended_total",
			Help:      "Total number of duration sessions closed.",
		}, []string{"reason"}),
	}
}
