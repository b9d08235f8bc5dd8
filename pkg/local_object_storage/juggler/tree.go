package juggler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/nspcc-dev/hkfs/pkg/local_object_storage/blobstor/common"
	"github.com/nspcc-dev/hkfs/pkg/util"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Observer receives per-file events of AssimilateTree. Methods may be called
// concurrently.
type Observer interface {
	Assimilated(path string, res Result)
	Skipped(path string, mode fs.FileMode)
	Failed(path string, err error)
}

// ObserverFuncs adapts functions to Observer. Nil functions are not called.
type ObserverFuncs struct {
	OnAssimilated func(string, Result)
	OnSkipped     func(string, fs.FileMode)
	OnFailed      func(string, error)
}

// Assimilated implements Observer.
func (o ObserverFuncs) Assimilated(path string, res Result) {
	if o.OnAssimilated != nil {
		o.OnAssimilated(path, res)
	}
}

// Skipped implements Observer.
func (o ObserverFuncs) Skipped(path string, mode fs.FileMode) {
	if o.OnSkipped != nil {
		o.OnSkipped(path, mode)
	}
}

// Failed implements Observer.
func (o ObserverFuncs) Failed(path string, err error) {
	if o.OnFailed != nil {
		o.OnFailed(path, err)
	}
}

// Summary contains counters of AssimilateTree.
type Summary struct {
	Added   uint64
	Linked  uint64
	Skipped uint64
	Failed  uint64
	// Bytes is the total size of assimilated files.
	Bytes uint64
}

type summary struct {
	added, linked, skipped, failed, bytes atomic.Uint64
}

func (s *summary) get() Summary {
	return Summary{
		Added:   s.added.Load(),
		Linked:  s.linked.Load(),
		Skipped: s.skipped.Load(),
		Failed:  s.failed.Load(),
		Bytes:   s.bytes.Load(),
	}
}

// AssimilateTree assimilates every regular file under root, which may also be
// a single file. Symbolic links are not followed, they and other non-regular
// files are reported as skipped. The storage directory is never descended
// into, nor are names staged by concurrent assimilations. Per-file failures
// are reported to obs and counted, they don't stop the walk; the returned
// error is non-nil only when the walk itself can't proceed or ctx is done.
// obs may be nil.
func (j *Juggler) AssimilateTree(ctx context.Context, root string, obs Observer) (Summary, error) {
	if obs == nil {
		obs = ObserverFuncs{}
	}
	if j.store.ReadOnly() {
		return Summary{}, common.ErrReadOnly
	}

	storeRoot, err := filepath.Abs(j.store.RootPath)
	if err != nil {
		return Summary{}, fmt.Errorf("resolve storage root: %w", err)
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return Summary{}, fmt.Errorf("resolve %q: %w", root, err)
	}

	pool, err := util.NewWorkerPool(j.workers)
	if err != nil {
		return Summary{}, err
	}
	defer pool.Release()

	var (
		wg  sync.WaitGroup
		sum summary
	)

	skip := func(p string, mode fs.FileMode) {
		sum.skipped.Inc()
		j.metrics.AddSkipped()
		obs.Skipped(p, mode)
	}
	fail := func(p string, err error) {
		sum.failed.Inc()
		j.metrics.AddFailed()
		j.log.Warn("can't assimilate file", zap.String("path", p), zap.Error(err))
		obs.Failed(p, err)
	}

	walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if p == root {
				return err
			}
			fail(p, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if p == storeRoot {
				j.log.Debug("skipping storage directory", zap.String("path", p))
				return fs.SkipDir
			}
			return nil
		}
		if isStaged(d.Name()) {
			return nil
		}
		if !d.Type().IsRegular() {
			skip(p, d.Type())
			return nil
		}

		wg.Add(1)
		err = pool.Submit(func() {
			defer wg.Done()

			res, err := j.Assimilate(p)
			if err != nil {
				if errors.Is(err, common.ErrNotRegular) {
					skip(p, fs.ModeIrregular)
					return
				}
				fail(p, err)
				return
			}

			switch res.Outcome {
			case Added:
				sum.added.Inc()
			case Linked:
				sum.linked.Inc()
			}
			sum.bytes.Add(uint64(res.Size))
			obs.Assimilated(p, res)
		})
		if err != nil {
			wg.Done()
			return fmt.Errorf("submit %q: %w", p, err)
		}
		return nil
	})
	wg.Wait()

	return sum.get(), walkErr
}
