package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	jugglerSubsystem = "juggler"
	outcomeLabelKey  = "outcome"
)

type jugglerMetrics struct {
	outcomes    prometheus.CounterVec
	skipped     prometheus.Counter
	failed      prometheus.Counter
	hashedBytes prometheus.Counter
}

func newJugglerMetrics() jugglerMetrics {
	var (
		outcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: jugglerSubsystem,
			Name:      "outcomes_total",
			Help:      "Number of assimilated files by outcome",
		}, []string{outcomeLabelKey})

		skipped = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: jugglerSubsystem,
			Name:      "skipped_total",
			Help:      "Number of skipped non-regular files",
		})

		failed = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: jugglerSubsystem,
			Name:      "failed_total",
			Help:      "Number of files that failed to be assimilated",
		})

		hashedBytes = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: jugglerSubsystem,
			Name:      "hashed_bytes_total",
			Help:      "Number of bytes read to compute keys",
		})
	)
	return jugglerMetrics{
		outcomes:    *outcomes,
		skipped:     skipped,
		failed:      failed,
		hashedBytes: hashedBytes,
	}
}

func (m jugglerMetrics) register(r prometheus.Registerer) {
	r.MustRegister(m.outcomes)
	r.MustRegister(m.skipped)
	r.MustRegister(m.failed)
	r.MustRegister(m.hashedBytes)
}

// AddAssimilated implements juggler.Metrics.
func (m jugglerMetrics) AddAssimilated(outcome string) {
	m.outcomes.With(prometheus.Labels{outcomeLabelKey: outcome}).Inc()
}

// AddSkipped implements juggler.Metrics.
func (m jugglerMetrics) AddSkipped() {
	m.skipped.Inc()
}

// AddFailed implements juggler.Metrics.
func (m jugglerMetrics) AddFailed() {
	m.failed.Inc()
}

// AddHashedBytes implements juggler.Metrics.
func (m jugglerMetrics) AddHashedBytes(n int64) {
	m.hashedBytes.Add(float64(n))
}
