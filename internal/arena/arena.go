// Package arena implements a bump-pointer memory arena used to bound the
// allocations a single inbound message may cause.
package arena

import (
	"github.com/cockroachdb/errors"
)

// defaultAlignment matches the alignment parson/libc malloc would hand back,
// wide enough for any scalar the parser produces.
const defaultAlignment = 8

// Arena is a fixed-capacity bump allocator. Allocate never grows the
// backing slice; once capacity is exhausted, Allocate reports ErrExhausted
// and the caller falls back to the heap.
type Arena struct {
	region []byte
	index  int
}

// ErrExhausted is returned by Allocate when the arena has no room left for
// the requested size, after alignment padding.
var ErrExhausted = errors.New("arena: exhausted")

// New creates an Arena with the given capacity. size must be greater than
// zero.
func New(size int) (*Arena, error) {
	if size <= 0 {
		return nil, errors.New("arena: size must be positive")
	}
	return &Arena{region: make([]byte, size)}, nil
}

// Cap returns the arena's total capacity in bytes.
func (a *Arena) Cap() int {
	return len(a.region)
}

// Used returns the number of bytes currently allocated from the arena.
func (a *Arena) Used() int {
	return a.index
}

// Allocate reserves size bytes, aligned to defaultAlignment, and returns a
// slice viewing that region. The returned slice is zeroed. It returns
// ErrExhausted if the arena does not have enough remaining capacity.
func (a *Arena) Allocate(size int) ([]byte, error) {
	return a.AllocateAligned(size, defaultAlignment)
}

// AllocateAligned reserves size bytes aligned to the given power-of-two
// alignment. alignment of 0 disables padding.
func (a *Arena) AllocateAligned(size int, alignment int) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	if size < 0 {
		return nil, errors.New("arena: negative size")
	}
	if a.index > len(a.region) {
		return nil, ErrExhausted
	}

	if alignment != 0 {
		misalignment := a.index % alignment
		if misalignment != 0 {
			padding := alignment - misalignment
			if padding > len(a.region)-a.index {
				return nil, ErrExhausted
			}
			a.index += padding
		}
	}

	if size > len(a.region)-a.index {
		return nil, ErrExhausted
	}

	start := a.index
	a.index += size
	block := a.region[start:a.index]
	for i := range block {
		block[i] = 0
	}
	return block, nil
}

// Clear resets the arena to empty in O(1), making its full capacity
// available again. It does not zero already-used memory eagerly; each
// future Allocate zeroes its own slice.
func (a *Arena) Clear() {
	a.index = 0
}

// Copy copies up to dst's capacity of bytes used in src into dst, and sets
// dst's used length to match, snapshotting one arena's live bytes into
// another. It returns the number of bytes copied.
func Copy(dst, src *Arena) int {
	n := src.index
	if n > len(dst.region) {
		n = len(dst.region)
	}
	if n > 0 {
		copy(dst.region, src.region[:n])
	}
	dst.index = n
	return n
}
