package juggler

import (
	"hash/maphash"
	"sync"

	"github.com/nspcc-dev/hkfs/pkg/hkfs/key"
)

const lockStripes = 256

// keyLocker serializes in-process operations on the same key. Correctness
// does not depend on it, it only saves the losers of a race from doing
// useless work.
type keyLocker struct {
	seed  maphash.Seed
	locks [lockStripes]sync.Mutex
}

func newKeyLocker() *keyLocker {
	return &keyLocker{seed: maphash.MakeSeed()}
}

func (l *keyLocker) lock(k key.Key) func() {
	m := &l.locks[maphash.Bytes(l.seed, k)%lockStripes]
	m.Lock()
	return m.Unlock
}
