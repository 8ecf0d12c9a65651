// Package allocshim tracks which allocator produced a byte slice — the
// connection's per-message arena, or the heap — and binds a "current arena"
// for the duration of a scope, the way the engine binds one arena per
// message while it parses and dispatches it.
//
// There is no manual free in Go; Origin and Block exist so the engine can
// assert, and tests can verify, that scratch buffers created while an arena
// scope is active never leak onto a path that outlives the scope (the
// property spec calls "no arena-origin block reaches the system path").
package allocshim

import (
	"github.com/linerpc/linerpc/internal/arena"
)

// Origin identifies which allocator produced a Block.
type Origin int

const (
	// OriginHeap marks a Block allocated directly by the Go runtime.
	OriginHeap Origin = iota
	// OriginArena marks a Block carved out of the current scope's Arena.
	OriginArena
)

func (o Origin) String() string {
	if o == OriginArena {
		return "arena"
	}
	return "heap"
}

// tag mirrors the magic value the reference C allocator stamped into every
// allocation header. wrap stamps it into every Block it returns; nothing in
// this package reads it back.
const tag = 0x4a525043 // "JRPC"

// Block is a tagged allocation: the bytes plus where they came from.
type Block struct {
	Data   []byte
	Origin Origin
	tag    int32
}

// wrap tags a freshly produced slice with its origin.
func wrap(data []byte, origin Origin) Block {
	return Block{Data: data, Origin: origin, tag: tag}
}

// Free is a no-op: the Go garbage collector reclaims OriginHeap blocks, and
// OriginArena blocks are reclaimed in bulk when their scope ends. It exists
// so call sites can mirror the reference implementation's alloc/free
// symmetry, and so a future origin (e.g. a pooled buffer) has a place to
// hook in without changing every call site.
func Free(b Block) {
	_ = b
}

// current is the arena bound by the active Scope, if any. The engine is
// single-threaded per connection (see connection package), so this is
// ordinary state, not goroutine-local or mutex-guarded, exactly as the
// reference implementation's global g_current_arena is process-global but
// only ever touched from the connection's own thread.
var current *arena.Arena

// Scope binds an Arena as the allocator for its duration. Begin is
// idempotent: binding the arena that is already current is a no-op and End
// will not clear it out from under an outer scope.
type Scope struct {
	arena       *arena.Arena
	previous    *arena.Arena
	ownsBinding bool
}

// Begin binds a as the current arena and returns a Scope that must be ended
// with End. Allocate calls made while the scope is active, without an
// explicit target, draw from a.
func Begin(a *arena.Arena) *Scope {
	s := &Scope{arena: a, previous: current}
	if current != a {
		current = a
		s.ownsBinding = true
	}
	return s
}

// End restores the arena that was current before Begin, and clears the
// scope's own arena if this Begin was the one that bound it.
func (s *Scope) End() {
	if s == nil {
		return
	}
	if s.ownsBinding {
		if s.arena != nil {
			s.arena.Clear()
		}
		current = s.previous
	}
}

// Current returns the arena bound by the innermost active Scope, or nil if
// none is active.
func Current() *arena.Arena {
	return current
}

// Allocate carves size bytes from the current scope's arena, falling back
// to a heap allocation if no scope is active or the arena is exhausted.
func Allocate(size int) Block {
	if current != nil {
		if b, err := current.Allocate(size); err == nil {
			return wrap(b, OriginArena)
		}
	}
	return wrap(make([]byte, size), OriginHeap)
}
