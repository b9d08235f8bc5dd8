package hktree

import (
	"fmt"
	"os"

	"github.com/nspcc-dev/hkfs/pkg/local_object_storage/blobstor/common"
	"go.uber.org/zap"
)

// Open sets the mode of the tree. In read-only mode all modifying operations
// return [common.ErrReadOnly].
func (t *Tree) Open(ro bool) error {
	t.readOnly = ro
	return nil
}

// Init checks that the root directory exists and prepares the tree for work.
// Missing root is a [common.ErrConfiguration], the tree never creates it.
func (t *Tree) Init() error {
	if t.RootPath == "" {
		return fmt.Errorf("%w: storage root is not set", common.ErrConfiguration)
	}
	fi, err := os.Stat(t.RootPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: storage root %q does not exist", common.ErrConfiguration, t.RootPath)
		}
		return fmt.Errorf("stat storage root %q: %w", t.RootPath, err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("%w: storage root %q is not a directory", common.ErrConfiguration, t.RootPath)
	}
	if t.hasher.Size() < minKeySize {
		return fmt.Errorf("%w: %s produces %d-byte keys, at least %d are required",
			common.ErrConfiguration, t.hasher.Name(), t.hasher.Size(), minKeySize)
	}

	t.writer = newGenericWriter(t.filePerm(), t.noSync)
	if !t.readOnly {
		if w := newSpecificWriter(t.RootPath, t.filePerm(), t.noSync); w != nil {
			t.writer = w
		}
	}

	t.log.Info("storage initialized",
		zap.String("root", t.RootPath),
		zap.String("hash", t.hasher.Name()),
		zap.Bool("read_only", t.readOnly))
	return nil
}

// Close releases tree resources.
func (t *Tree) Close() error {
	if t.writer == nil {
		return nil
	}
	return t.writer.finalize()
}
