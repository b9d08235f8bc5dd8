/*
Package hasher provides content digest functions used to derive object keys.

Every Hasher is a fixed-output cryptographic hash matching its standard
reference implementation, so keys can be cross-checked with external tools:
BLAKE3 keys are equal to the output of b3sum, SHA-256 keys to sha256sum and
BLAKE2b-256 keys to b2sum -l 256.

BLAKE3 is the default.
*/
package hasher

import (
	"errors"
	"fmt"
	"hash"
	"io"
	"strings"

	"github.com/minio/sha256-simd"
	"github.com/nspcc-dev/hkfs/pkg/hkfs/key"
	"github.com/nspcc-dev/hkfs/pkg/local_object_storage/blobstor/common"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
)

// DefaultChunkSize is the size of buffers used to read streams by default.
const DefaultChunkSize = 1 << 20

// Names of supported hash functions.
const (
	NameBLAKE3     = "blake3"
	NameSHA256     = "sha256"
	NameBLAKE2b256 = "blake2b"
)

// Hasher computes content keys. Implementations are stateless and safe for
// concurrent use.
type Hasher interface {
	// Name returns canonical name of the hash function.
	Name() string
	// Size returns the length of produced keys in bytes.
	Size() int
	// Digest returns key of data.
	Digest(data []byte) key.Key
	// DigestStream reads r until EOF in chunks of chunkSize bytes and
	// returns key of everything read. The result is the same as Digest
	// over all bytes concatenated. Non-positive chunkSize means
	// DefaultChunkSize.
	DigestStream(r io.Reader, chunkSize int) (key.Key, error)
}

type hashFunc struct {
	name    string
	size    int
	newHash func() hash.Hash
}

// BLAKE3 returns 256-bit BLAKE3 Hasher.
func BLAKE3() Hasher {
	return hashFunc{
		name:    NameBLAKE3,
		size:    32,
		newHash: func() hash.Hash { return blake3.New() },
	}
}

// SHA256 returns SHA-256 Hasher.
func SHA256() Hasher {
	return hashFunc{
		name:    NameSHA256,
		size:    sha256.Size,
		newHash: sha256.New,
	}
}

// BLAKE2b256 returns unkeyed BLAKE2b Hasher with 256-bit output.
func BLAKE2b256() Hasher {
	return hashFunc{
		name: NameBLAKE2b256,
		size: blake2b.Size256,
		newHash: func() hash.Hash {
			h, err := blake2b.New256(nil)
			if err != nil {
				// Only possible for keys longer than 64 bytes.
				panic(fmt.Sprintf("hasher: BLAKE2b initialization failed: %v", err))
			}
			return h
		},
	}
}

// Default returns the Hasher used when nothing else is configured.
func Default() Hasher {
	return BLAKE3()
}

// ByName returns Hasher by its configuration name. Names are case-insensitive,
// "sha-256" and "blake2b-256" aliases are accepted.
func ByName(name string) (Hasher, error) {
	switch strings.ToLower(name) {
	case "", NameBLAKE3:
		return BLAKE3(), nil
	case NameSHA256, "sha-256":
		return SHA256(), nil
	case NameBLAKE2b256, "blake2b-256":
		return BLAKE2b256(), nil
	default:
		return nil, fmt.Errorf("%w: unknown hash function %q", common.ErrConfiguration, name)
	}
}

func (h hashFunc) Name() string {
	return h.name
}

func (h hashFunc) Size() int {
	return h.size
}

func (h hashFunc) Digest(data []byte) key.Key {
	s := h.newHash()
	_, _ = s.Write(data) // hash.Hash never returns an error
	return s.Sum(make([]byte, 0, h.size))
}

func (h hashFunc) DigestStream(r io.Reader, chunkSize int) (key.Key, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	var (
		s   = h.newHash()
		buf = make([]byte, chunkSize)
	)
	for {
		n, err := r.Read(buf)
		_, _ = s.Write(buf[:n])
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read data to hash: %w", err)
		}
	}
	return s.Sum(make([]byte, 0, h.size)), nil
}

func (h hashFunc) String() string {
	return h.name
}
