package hltb

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// chainMetrics counts attempts per strategy and outcome. A nil value records nothing.
type chainMetrics struct {
	attempts *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newChainMetrics(reg prometheus.Registerer) *chainMetrics {
	if reg == nil {
		return nil
	}

	m := &chainMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gamevault",
			Subsystem: "hltb",
			Name:      "attempts_total",
			Help:      "Strategy attempts by strategy tag and outcome.",
		}, []string{"strategy", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gamevault",
			Subsystem: "hltb",
			Name:      "attempt_seconds",
			Help:      "Wall time of strategy attempts.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 10, 15},
		}, []string{"strategy"}),
	}

	m.attempts = registerOrReuse(reg, m.attempts)
	m.duration = registerOrReuse(reg, m.duration)
	return m
}

// registerOrReuse returns the already registered collector when a second
// client shares the registerer.
func registerOrReuse[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (m *chainMetrics) observe(strategy, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(strategy, outcome).Inc()
	m.duration.WithLabelValues(strategy).Observe(elapsed.Seconds())
}
