package runtime

import "sync"

// sizeClasses are the bucket sizes requests are rounded up into
// (§4.3). Index order matters: ClassIndex relies on it being sorted.
var sizeClasses = [9]int{32, 48, 64, 80, 96, 128, 192, 256, 512}

const blockSize = 4 << 20 // 4 MiB backing block, per §4.3
const maxArenaObject = 512

// ClassIndex returns the index of the smallest size class able to
// hold size bytes, or -1 if size exceeds every class (the caller must
// fall back to the system allocator directly, per §4.3).
func ClassIndex(size int) int {
	for i, c := range sizeClasses {
		if size <= c {
			return i
		}
	}
	return -1
}

// block is one 4 MiB backing allocation the bump cursor carves offsets
// from.
type block struct {
	mem    []byte
	cursor int
}

// Arena is a mutex-guarded bump-and-freelist allocator. The spec models
// `arena_alloc`/`arena_free` as raw pointer operations with an
// intrusive freelist link stored inside the freed region itself; here
// the freelist instead holds plain byte-slice handles, which gets the
// same O(1) alloc/free and size-class behavior without resorting to
// `unsafe` pointer arithmetic — the one place this implementation
// intentionally departs from a literal transliteration of §4.3.
type Arena struct {
	mu        sync.Mutex
	blocks    []*block
	freelists [9][][]byte
}

// NewArena returns an empty Arena. Scheduler workers do not create or
// own one; ABITable is handed a single Arena that every entry shares.
func NewArena() *Arena {
	return &Arena{}
}

// Alloc returns a zeroed, 8-byte-aligned-by-construction buffer of at
// least size bytes. Requests over 512 bytes bypass the arena and come
// straight from the Go allocator, per §4.3.
func (a *Arena) Alloc(size int) []byte {
	idx := ClassIndex(size)
	if idx < 0 {
		return make([]byte, size)
	}
	classSize := sizeClasses[idx]

	a.mu.Lock()
	defer a.mu.Unlock()

	if n := len(a.freelists[idx]); n > 0 {
		buf := a.freelists[idx][n-1]
		a.freelists[idx] = a.freelists[idx][:n-1]
		clear(buf)
		return buf
	}

	if len(a.blocks) == 0 || a.blocks[len(a.blocks)-1].cursor+classSize > blockSize {
		a.blocks = append(a.blocks, &block{mem: make([]byte, blockSize)})
	}
	b := a.blocks[len(a.blocks)-1]
	buf := b.mem[b.cursor : b.cursor+classSize : b.cursor+classSize]
	b.cursor += classSize
	return buf
}

// Free returns buf to the freelist for its size class. buf must have
// been obtained from Alloc on this same Arena with a size that rounds
// to the same class (§8's "every arena_free is preceded by an
// arena_alloc whose class covers it" invariant).
func (a *Arena) Free(buf []byte) {
	idx := ClassIndex(cap(buf))
	if idx < 0 {
		return // came from the system allocator; let the GC reclaim it
	}
	a.mu.Lock()
	a.freelists[idx] = append(a.freelists[idx], buf[:cap(buf)])
	a.mu.Unlock()
}

// Stats reports how many backing blocks this arena has allocated, for
// tests and debug tooling.
func (a *Arena) Stats() (blocks int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.blocks)
}

func clear(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// freeBacking returns obj's backing storage to arena if obj came from
// one (its size was <= maxArenaObject); larger objects were allocated
// directly by Go and are simply dropped for the GC to collect.
func freeBacking(arena *Arena, obj any) {
	type backed interface{ backing() []byte }
	if b, ok := obj.(backed); ok {
		if buf := b.backing(); buf != nil && cap(buf) <= maxArenaObject {
			arena.Free(buf)
		}
	}
}
