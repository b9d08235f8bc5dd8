package hktree

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/nspcc-dev/hkfs/pkg/hkfs/key"
)

var payloadSizes = []int{
	0,
	1 << 10,
	100 << 10,
	4 << 20,
}

func generateSizeLabel(size int) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%dMB", size/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%dKB", size/(1<<10))
	default:
		return fmt.Sprintf("%dB", size)
	}
}

func BenchmarkTree_Create(b *testing.B) {
	for _, size := range payloadSizes {
		b.Run(generateSizeLabel(size), func(b *testing.B) {
			tree := newTree(b)
			data := randData(size)

			b.ReportAllocs()
			b.ResetTimer()
			for i := range b.N {
				// Make every object unique.
				if size > 0 {
					data[0] = byte(i)
					data[size-1] = byte(i >> 8)
				}
				if _, err := tree.Create(data); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkTree_CreateFromReader(b *testing.B) {
	for _, size := range payloadSizes {
		b.Run(generateSizeLabel(size), func(b *testing.B) {
			tree := newTree(b)
			data := randData(size)

			b.ReportAllocs()
			b.ResetTimer()
			for range b.N {
				if _, err := tree.CreateFromReader(bytes.NewReader(data)); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkTree_Read(b *testing.B) {
	for _, size := range payloadSizes {
		b.Run(generateSizeLabel(size), func(b *testing.B) {
			tree := newTree(b)
			k, err := tree.Create(randData(size))
			if err != nil {
				b.Fatal(err)
			}

			b.ReportAllocs()
			b.ResetTimer()
			for range b.N {
				if _, err := tree.Read(k, 0, -1); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkTree_Exists(b *testing.B) {
	tree := newTree(b)
	keys := make([]key.Key, 0, 128)
	for range cap(keys) {
		k, err := tree.Create(randData(32))
		if err != nil {
			b.Fatal(err)
		}
		keys = append(keys, k)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := range b.N {
		if _, err := tree.Exists(keys[i%len(keys)]); err != nil {
			b.Fatal(err)
		}
	}
}
