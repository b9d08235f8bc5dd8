package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "hkfs"

// StoreMetrics collects statistics of the storage and of assimilation. It
// implements both hktree.Metrics and juggler.Metrics.
type StoreMetrics struct {
	storeMetrics
	jugglerMetrics
}

// NewStoreMetrics creates metrics and registers them in r. Registration
// panics on duplicates, so one registerer serves a single StoreMetrics.
func NewStoreMetrics(r prometheus.Registerer, version string) *StoreMetrics {
	store := newStoreMetrics()
	store.register(r)

	juggler := newJugglerMetrics()
	juggler.register(r)

	registerVersionMetric(r, namespace, version)

	return &StoreMetrics{
		storeMetrics:   store,
		jugglerMetrics: juggler,
	}
}
