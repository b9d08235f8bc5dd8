package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	storeSubsystem = "store"
	opLabelKey     = "op"
)

type storeMetrics struct {
	opDuration prometheus.HistogramVec
}

func newStoreMetrics() storeMetrics {
	opDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: storeSubsystem,
		Name:      "op_time",
		Help:      "Storage operations handling time",
	}, []string{opLabelKey})

	return storeMetrics{
		opDuration: *opDuration,
	}
}

func (m storeMetrics) register(r prometheus.Registerer) {
	r.MustRegister(m.opDuration)
}

// AddStoreOpDuration implements hktree.Metrics.
func (m storeMetrics) AddStoreOpDuration(op string, d time.Duration) {
	m.opDuration.With(prometheus.Labels{opLabelKey: op}).Observe(d.Seconds())
}
