package metrics_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nspcc-dev/hkfs/pkg/local_object_storage/blobstor/hktree"
	"github.com/nspcc-dev/hkfs/pkg/local_object_storage/juggler"
	"github.com/nspcc-dev/hkfs/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

var (
	_ hktree.Metrics  = (*metrics.StoreMetrics)(nil)
	_ juggler.Metrics = (*metrics.StoreMetrics)(nil)
)

func TestStoreMetrics(t *testing.T) {
	r := prometheus.NewRegistry()
	m := metrics.NewStoreMetrics(r, "v0.1.0")

	m.AddStoreOpDuration("create", time.Millisecond)
	m.AddAssimilated("added")
	m.AddAssimilated("linked")
	m.AddAssimilated("linked")
	m.AddSkipped()
	m.AddFailed()
	m.AddHashedBytes(42)

	expected := `
# HELP hkfs_juggler_outcomes_total Number of assimilated files by outcome
# TYPE hkfs_juggler_outcomes_total counter
hkfs_juggler_outcomes_total{outcome="added"} 1
hkfs_juggler_outcomes_total{outcome="linked"} 2
# HELP hkfs_juggler_hashed_bytes_total Number of bytes read to compute keys
# TYPE hkfs_juggler_hashed_bytes_total counter
hkfs_juggler_hashed_bytes_total 42
# HELP hkfs_version Application version
# TYPE hkfs_version gauge
hkfs_version{version="v0.1.0"} 1
`
	require.NoError(t, testutil.GatherAndCompare(r, strings.NewReader(expected),
		"hkfs_juggler_outcomes_total", "hkfs_juggler_hashed_bytes_total", "hkfs_version"))

	n, err := testutil.GatherAndCount(r, "hkfs_store_op_time")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.Panics(t, func() { metrics.NewStoreMetrics(r, "again") })
}

func TestWriteTextfile(t *testing.T) {
	r := prometheus.NewRegistry()
	m := metrics.NewStoreMetrics(r, "dev")
	m.AddSkipped()

	p := filepath.Join(t.TempDir(), "hkfs.prom")
	require.NoError(t, metrics.WriteTextfile(p, r))

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	require.Contains(t, string(data), "hkfs_juggler_skipped_total 1")

	require.Error(t, metrics.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom"), r))
}
