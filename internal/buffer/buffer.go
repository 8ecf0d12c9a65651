// Package buffer implements the connection's inbound byte buffer: a
// growable accumulator for partially-received bytes, capped so a peer
// cannot force unbounded memory growth before a line delimiter arrives.
package buffer

import "github.com/cockroachdb/errors"

// ErrTooLarge is returned by Append when accepting the new bytes would push
// the buffer past its hard cap.
var ErrTooLarge = errors.New("buffer: exceeds maximum size")

// Buffer accumulates bytes read from a transport until the framer has
// consumed complete lines out of it. It grows by doubling, starting from an
// initial capacity, and refuses to grow past a hard maximum.
type Buffer struct {
	data       []byte
	initialCap int
	maxBytes   int
}

// New creates a Buffer with the given initial capacity and hard maximum
// size. maxBytes must be >= initialCap.
func New(initialCap, maxBytes int) *Buffer {
	if initialCap <= 0 {
		initialCap = 1
	}
	return &Buffer{
		data:       make([]byte, 0, initialCap),
		initialCap: initialCap,
		maxBytes:   maxBytes,
	}
}

// Len returns the number of unconsumed bytes currently buffered.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Bytes returns the buffer's unconsumed bytes. The returned slice is only
// valid until the next Append or Consume call.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Append adds p to the buffer, growing the backing array by doubling if
// needed. It returns ErrTooLarge, leaving the buffer unchanged, if the
// result would exceed maxBytes.
func (b *Buffer) Append(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	newLen := len(b.data) + len(p)
	if newLen > b.maxBytes {
		return ErrTooLarge
	}
	b.reserve(newLen)
	b.data = append(b.data, p...)
	return nil
}

// reserve grows the backing array, doubling capacity until it can hold
// need bytes, capped at maxBytes.
func (b *Buffer) reserve(need int) {
	if cap(b.data) >= need {
		return
	}
	newCap := cap(b.data)
	if newCap == 0 {
		newCap = b.initialCap
	}
	for newCap < need {
		newCap *= 2
	}
	if newCap > b.maxBytes {
		newCap = b.maxBytes
	}
	grown := make([]byte, len(b.data), newCap)
	copy(grown, b.data)
	b.data = grown
}

// Consume discards the first n bytes, shifting the remainder to the front.
// It panics if n is negative or greater than Len, which would indicate a
// framer bug rather than a recoverable runtime condition.
func (b *Buffer) Consume(n int) {
	if n < 0 || n > len(b.data) {
		panic("buffer: consume out of range")
	}
	remaining := len(b.data) - n
	copy(b.data[:remaining], b.data[n:])
	b.data = b.data[:remaining]
}
