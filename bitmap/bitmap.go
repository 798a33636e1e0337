// Package bitmap implements the dense bit arrays that act as the sole
// allocators. Bit k lives at byte k/8, bit k%8; a set bit means in use.
package bitmap

import (
	"github.com/goose-lang/std"
)

type Bitmap []byte

func New(nbytes uint64) Bitmap {
	return make(Bitmap, nbytes)
}

func (bm Bitmap) IsSet(n uint64) bool {
	return bm[n/8]&(1<<(n%8)) != 0
}

func (bm Bitmap) Set(n uint64) {
	bm[n/8] |= 1 << (n % 8)
}

func (bm Bitmap) Clear(n uint64) {
	bm[n/8] &^= 1 << (n % 8)
}

// FirstFree scans from bit 0 and returns the lowest clear bit below
// limit. Allocation determinism depends on always scanning from 0.
func (bm Bitmap) FirstFree(limit uint64) (uint64, bool) {
	for n := uint64(0); n < limit; n++ {
		if !bm.IsSet(n) {
			return n, true
		}
	}
	return 0, false
}

func (bm Bitmap) FreeCount(limit uint64) uint64 {
	var free uint64
	for n := uint64(0); n < limit; n++ {
		if !bm.IsSet(n) {
			free++
		}
	}
	return free
}

func (bm Bitmap) Clone() Bitmap {
	b := make(Bitmap, len(bm))
	copy(b, bm)
	return b
}

func (bm Bitmap) Equal(other Bitmap) bool {
	return std.BytesEqual(bm, other)
}
