package config_test

import (
	"errors"
	"io/fs"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/nspcc-dev/hkfs/cmd/hkfs/config"
	"github.com/nspcc-dev/hkfs/cmd/internal/configvalidator"
	"github.com/nspcc-dev/hkfs/pkg/hkfs/hasher"
	"github.com/nspcc-dev/hkfs/pkg/local_object_storage/blobstor/common"
	"github.com/nspcc-dev/hkfs/pkg/local_object_storage/blobstor/hktree"
	"github.com/nspcc-dev/hkfs/pkg/local_object_storage/juggler"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func fromFile(t *testing.T, path string) *config.Config {
	c, err := config.New(path)
	require.NoError(t, err)
	return c
}

func forEachFileType(t *testing.T, pref string, f func(*config.Config)) {
	for _, ext := range []string{".yaml", ".json"} {
		f(fromFile(t, pref+ext))
	}
}

func TestFile(t *testing.T) {
	home, err := homedir.Dir()
	require.NoError(t, err)

	forEachFileType(t, "testdata/config", func(c *config.Config) {
		p, err := config.StorePath(c)
		require.NoError(t, err)
		require.Equal(t, filepath.Join(home, "hkfs"), p)

		h, err := config.StoreHasher(c)
		require.NoError(t, err)
		require.Equal(t, hasher.NameSHA256, h.Name())

		perm, err := config.StorePerm(c)
		require.NoError(t, err)
		require.Equal(t, fs.FileMode(0o700), perm)

		require.True(t, config.StoreNoSync(c))
		require.False(t, config.StoreReadOnly(c))

		w, err := config.JugglerWorkers(c)
		require.NoError(t, err)
		require.Equal(t, 4, w)

		v, err := config.JugglerVerify(c)
		require.NoError(t, err)
		require.Equal(t, juggler.VerifyRehash, v)

		cs, err := config.JugglerCacheSize(c)
		require.NoError(t, err)
		require.Zero(t, cs)

		lp, err := config.LedgerPath(c)
		require.NoError(t, err)
		require.Equal(t, "/var/lib/hkfs/ledger.db", lp)

		require.Equal(t, "debug", config.LoggerLevel(c))
		require.Equal(t, "json", config.LoggerEncoding(c))

		mt, err := config.MetricsTextfile(c)
		require.NoError(t, err)
		require.Equal(t, "/var/lib/node_exporter/hkfs.prom", mt)
	})
}

func TestDefaults(t *testing.T) {
	c := fromFile(t, "")

	p, err := config.StorePath(c)
	require.NoError(t, err)
	require.Empty(t, p)

	h, err := config.StoreHasher(c)
	require.NoError(t, err)
	require.Equal(t, hasher.NameBLAKE3, h.Name())

	perm, err := config.StorePerm(c)
	require.NoError(t, err)
	require.Equal(t, hktree.DefaultPerm, perm)

	w, err := config.JugglerWorkers(c)
	require.NoError(t, err)
	require.Equal(t, runtime.GOMAXPROCS(0), w)

	v, err := config.JugglerVerify(c)
	require.NoError(t, err)
	require.Equal(t, juggler.VerifyStat, v)

	cs, err := config.JugglerCacheSize(c)
	require.NoError(t, err)
	require.Equal(t, juggler.DefaultCacheSize, cs)

	require.Equal(t, config.LoggerLevelDefault, config.LoggerLevel(c))
	require.Equal(t, config.LoggerEncodingDefault, config.LoggerEncoding(c))
}

func TestEnv(t *testing.T) {
	t.Setenv("HKFS_STORE_PATH", "/srv/hkfs")
	t.Setenv("HKFS_STORE_READ_ONLY", "true")
	t.Setenv("HKFS_JUGGLER_WORKERS", "3")

	c := fromFile(t, "testdata/config.yaml")

	p, err := config.StorePath(c)
	require.NoError(t, err)
	require.Equal(t, "/srv/hkfs", p)
	require.True(t, config.StoreReadOnly(c))

	w, err := config.JugglerWorkers(c)
	require.NoError(t, err)
	require.Equal(t, 3, w)
}

func TestSet(t *testing.T) {
	c := fromFile(t, "testdata/config.yaml")
	c.Sub("store").Set("path", "/override")

	p, err := config.StorePath(c)
	require.NoError(t, err)
	require.Equal(t, "/override", p)
}

func TestInvalid(t *testing.T) {
	for name, tc := range map[string]struct {
		section, key string
		value        any
		check        func(*config.Config) error
	}{
		"hasher": {"store", "hasher", "md5", func(c *config.Config) error {
			_, err := config.StoreHasher(c)
			if !errors.Is(err, common.ErrConfiguration) {
				return nil
			}
			return err
		}},
		"perm": {"store", "perm", "01777", func(c *config.Config) error {
			_, err := config.StorePerm(c)
			return err
		}},
		"workers": {"juggler", "workers", -1, func(c *config.Config) error {
			_, err := config.JugglerWorkers(c)
			return err
		}},
		"workers type": {"juggler", "workers", "many", func(c *config.Config) error {
			_, err := config.JugglerWorkers(c)
			return err
		}},
		"verify": {"juggler", "verify", "never", func(c *config.Config) error {
			_, err := config.JugglerVerify(c)
			return err
		}},
		"cache size": {"juggler", "cache_size", -5, func(c *config.Config) error {
			_, err := config.JugglerCacheSize(c)
			return err
		}},
	} {
		t.Run(name, func(t *testing.T) {
			c := fromFile(t, "")
			c.Sub(tc.section).Set(tc.key, tc.value)
			require.Error(t, tc.check(c))

			_, err := config.Dump(c)
			require.Error(t, err)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := config.New(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
	})
}

func TestDump(t *testing.T) {
	c := fromFile(t, "testdata/config.yaml")

	data, err := config.Dump(c)
	require.NoError(t, err)

	var e config.Effective
	require.NoError(t, yaml.Unmarshal(data, &e))
	require.Equal(t, "sha256", e.Store.Hasher)
	require.Equal(t, "0700", e.Store.Perm)
	require.Equal(t, "rehash", e.Juggler.Verify)
	require.Equal(t, 4, e.Juggler.Workers)
	require.Equal(t, "debug", e.Logger.Level)
}

func TestValidate(t *testing.T) {
	require.NoError(t, config.Validate(fromFile(t, "testdata/config.yaml")))
	require.NoError(t, config.Validate(fromFile(t, "testdata/config.json")))
	require.ErrorIs(t, config.Validate(fromFile(t, "testdata/unknown.yaml")), configvalidator.ErrUnknownField)
}
